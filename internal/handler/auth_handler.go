package handler

import (
	"encoding/json"
	"net/http"

	"auth-be/internal/container"
	"auth-be/internal/domain"
	"auth-be/internal/middleware"
	"auth-be/pkg/errors"
)

// Minimum password length enforced at the registration boundary; the gateway
// itself does not re-validate length
const minPasswordLength = 6

// AuthHandler handles authentication related requests
type AuthHandler struct {
	container *container.Container
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(container *container.Container) *AuthHandler {
	return &AuthHandler{container: container}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// userResponse wraps a user record for the client
type userResponse struct {
	Success bool               `json:"success"`
	User    *domain.UserRecord `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("invalid request body", nil), logger)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, errors.NewValidationError("email and password are required", nil), logger)
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, errors.NewValidationError("password is too short", map[string]interface{}{
			"min_length": minPasswordLength,
		}), logger)
		return
	}

	record, err := h.container.GetGateway().CreateUser(r.Context(), req.Email, req.Password, req.DisplayName, false)
	if err != nil {
		writeGatewayError(w, err, logger)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Success: true, User: record}, logger)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewValidationError("invalid request body", nil), logger)
		return
	}

	record, err := h.container.GetGateway().VerifyUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeGatewayError(w, err, logger)
		return
	}
	if record == nil {
		writeError(w, errors.NewAuthenticationError("invalid email or password"), logger)
		return
	}
	if record.Status != domain.StatusActive {
		logger.WithField("user_id", record.ID).Warn("Deactivated user attempted login")
		writeError(w, errors.NewAuthorizationError("account is deactivated"), logger)
		return
	}

	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewInternalError("no session on request", nil), logger)
		return
	}
	sess.Login(record)

	logger.WithFields(map[string]interface{}{
		"user_id":  record.ID,
		"is_admin": record.IsAdmin,
	}).Info("User logged in")

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: record}, logger)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		sess.Logout()
	}
	if token, ok := middleware.SessionTokenFromContext(r.Context()); ok {
		h.container.GetSessionManager().Destroy(token)
		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true}, logger)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok || !sess.IsAuthenticated() {
		writeError(w, errors.NewAuthenticationError("not authenticated"), logger)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: sess.CurrentUser()}, logger)
}

// Reset handles POST /api/auth/reset
func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, errors.NewValidationError("email is required", nil), logger)
		return
	}

	if err := h.container.GetGateway().SendPasswordReset(r.Context(), req.Email); err != nil {
		writeGatewayError(w, err, logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true}, logger)
}
