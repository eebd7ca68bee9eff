package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"auth-be/pkg/errors"
	"auth-be/pkg/logger"
)

// GoTrueClient talks to a GoTrue-compatible identity service (Supabase Auth
// and friends) using the service-role key. Custom claims live in the user's
// app_metadata.
type GoTrueClient struct {
	baseURL    string
	serviceKey string
	jwtSecret  string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewGoTrueClient creates a new GoTrue admin API client
func NewGoTrueClient(baseURL, serviceKey, jwtSecret string, logger *logger.Logger) *GoTrueClient {
	return &GoTrueClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		jwtSecret:  jwtSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// gotrueUser is the wire shape of a GoTrue user record
type gotrueUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	AppMetadata  map[string]interface{} `json:"app_metadata"`
}

func (u *gotrueUser) toIdentity() *Identity {
	identity := &Identity{
		ID:     u.ID,
		Email:  u.Email,
		Claims: map[string]bool{},
	}
	if name, ok := u.UserMetadata["display_name"].(string); ok {
		identity.DisplayName = name
	}
	if verified, ok := u.UserMetadata["email_verified"].(bool); ok {
		identity.EmailVerified = verified
	}
	for key, value := range u.AppMetadata {
		if flag, ok := value.(bool); ok {
			identity.Claims[key] = flag
		}
	}
	return identity
}

// CreateIdentity registers a credential record via POST /admin/users
func (c *GoTrueClient) CreateIdentity(ctx context.Context, email, password, displayName string, emailVerified bool) (*Identity, error) {
	body := map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": emailVerified,
		"user_metadata": map[string]interface{}{
			"display_name":   displayName,
			"email_verified": emailVerified,
		},
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/admin/users", body)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		var user gotrueUser
		if err := json.Unmarshal(respBody, &user); err != nil {
			return nil, errors.NewProviderError("failed to parse provider response", err)
		}
		return user.toIdentity(), nil
	case status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return nil, errors.NewDuplicateEmailError(email)
	default:
		return nil, c.statusError("create identity", status, respBody)
	}
}

// LookupByEmail finds an identity via the admin user listing filter
func (c *GoTrueClient) LookupByEmail(ctx context.Context, email string) (*Identity, error) {
	path := fmt.Sprintf("/admin/users?per_page=1&filter=%s", url.QueryEscape(email))
	status, respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.statusError("lookup identity", status, respBody)
	}

	var listing struct {
		Users []gotrueUser `json:"users"`
	}
	if err := json.Unmarshal(respBody, &listing); err != nil {
		return nil, errors.NewProviderError("failed to parse provider response", err)
	}

	// The filter is a substring match; require the exact email
	for _, user := range listing.Users {
		if user.Email == email {
			return user.toIdentity(), nil
		}
	}
	return nil, errors.NewNotFoundError("user not found")
}

// GetIdentity fetches an identity, including current custom claims
func (c *GoTrueClient) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	status, respBody, err := c.do(ctx, http.MethodGet, "/admin/users/"+id, nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		var user gotrueUser
		if err := json.Unmarshal(respBody, &user); err != nil {
			return nil, errors.NewProviderError("failed to parse provider response", err)
		}
		return user.toIdentity(), nil
	case http.StatusNotFound:
		return nil, errors.NewNotFoundError("user not found")
	default:
		return nil, c.statusError("get identity", status, respBody)
	}
}

// SetCustomClaims replaces app_metadata claims via PUT /admin/users/{id}
func (c *GoTrueClient) SetCustomClaims(ctx context.Context, id string, claims map[string]bool) error {
	appMetadata := make(map[string]interface{}, len(claims))
	for key, value := range claims {
		appMetadata[key] = value
	}

	status, respBody, err := c.do(ctx, http.MethodPut, "/admin/users/"+id, map[string]interface{}{
		"app_metadata": appMetadata,
	})
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return errors.NewNotFoundError("user not found")
	default:
		return c.statusError("set custom claims", status, respBody)
	}
}

// VerifyCredential validates an email/password pair through the password
// grant. A rejected credential is indistinguishable from a missing account.
func (c *GoTrueClient) VerifyCredential(ctx context.Context, email, password string) (*Identity, error) {
	status, respBody, err := c.do(ctx, http.MethodPost, "/token?grant_type=password", map[string]interface{}{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	if status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, errors.NewNotFoundError("user not found")
	}
	if status != http.StatusOK {
		return nil, c.statusError("verify credential", status, respBody)
	}

	var grant struct {
		AccessToken string     `json:"access_token"`
		User        gotrueUser `json:"user"`
	}
	if err := json.Unmarshal(respBody, &grant); err != nil {
		return nil, errors.NewProviderError("failed to parse provider response", err)
	}

	identity := grant.User.toIdentity()

	// Cross-check the claims carried in the signed access token when a JWT
	// secret is configured; the token reflects what the provider will tell
	// everyone else.
	if c.jwtSecret != "" && grant.AccessToken != "" {
		claims, err := c.parseAccessToken(grant.AccessToken)
		if err != nil {
			c.logger.WithError(err).Error("Failed to validate provider access token")
			return nil, errors.NewProviderError("invalid provider access token", err)
		}
		for key, value := range claims {
			identity.Claims[key] = value
		}
	}

	return identity, nil
}

// parseAccessToken verifies the HMAC signature on a GoTrue access token and
// extracts boolean claims from its app_metadata
func (c *GoTrueClient) parseAccessToken(tokenString string) (map[string]bool, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(c.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	claims := map[string]bool{}
	if appMetadata, ok := mapClaims["app_metadata"].(map[string]interface{}); ok {
		for key, value := range appMetadata {
			if flag, ok := value.(bool); ok {
				claims[key] = flag
			}
		}
	}
	return claims, nil
}

// DeleteIdentity removes the credential record
func (c *GoTrueClient) DeleteIdentity(ctx context.Context, id string) error {
	status, respBody, err := c.do(ctx, http.MethodDelete, "/admin/users/"+id, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return errors.NewNotFoundError("user not found")
	default:
		return c.statusError("delete identity", status, respBody)
	}
}

// IssuePasswordResetLink asks the provider for a recovery link
func (c *GoTrueClient) IssuePasswordResetLink(ctx context.Context, email string) (string, error) {
	status, respBody, err := c.do(ctx, http.MethodPost, "/admin/generate_link", map[string]interface{}{
		"type":  "recovery",
		"email": email,
	})
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK:
		var link struct {
			ActionLink string `json:"action_link"`
		}
		if err := json.Unmarshal(respBody, &link); err != nil {
			return "", errors.NewProviderError("failed to parse provider response", err)
		}
		return link.ActionLink, nil
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return "", errors.NewNotFoundError("user not found")
	default:
		return "", c.statusError("generate reset link", status, respBody)
	}
}

// do performs one request against the provider and returns status and body
func (c *GoTrueClient) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, errors.NewProviderError("failed to marshal request body", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, errors.NewProviderError("failed to create provider request", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Error("Identity provider request failed")
		return 0, nil, errors.NewProviderError("could not reach identity service", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.NewProviderError("failed to read provider response", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	}).Debug("Identity provider request")

	return resp.StatusCode, respBody, nil
}

// statusError converts an unexpected provider status into a typed error
func (c *GoTrueClient) statusError(operation string, status int, body []byte) error {
	c.logger.WithFields(map[string]interface{}{
		"operation":     operation,
		"status_code":   status,
		"response_body": string(body),
	}).Error("Identity provider returned error")
	return errors.NewProviderError(
		"could not reach identity service",
		fmt.Errorf("%s: provider returned status %d", operation, status),
	)
}
