package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"auth-be/internal/session"
	"auth-be/pkg/errors"
	"auth-be/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// SessionContextKey is the key for the connection's session in context
	SessionContextKey ContextKey = "session"
	// SessionTokenContextKey is the key for the session token in context
	SessionTokenContextKey ContextKey = "session_token"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "session_token"

// Session attaches the connection's session to the request context, creating
// an anonymous session (and setting the cookie) when none exists yet
func Session(manager *session.Manager, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			var sess *session.Session

			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				if existing, ok := manager.Get(cookie.Value); ok {
					token, sess = cookie.Value, existing
				}
			}

			if sess == nil {
				token, sess = manager.Create()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				logger.WithField("session_token", token[:8]+"…").Debug("Session created")
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, sess)
			ctx = context.WithValue(ctx, SessionTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session attached by the Session middleware
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(SessionContextKey).(*session.Session)
	return sess, ok
}

// SessionTokenFromContext returns the session token for the request
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(SessionTokenContextKey).(string)
	return token, ok
}

// RequireAuth refuses anonymous requests before the protected handler runs
func RequireAuth(logger *logger.Logger) func(http.Handler) http.Handler {
	return guard(logger, func(sess *session.Session) error {
		return sess.RequireAuth()
	})
}

// RequireAdmin refuses anonymous and non-admin requests before the protected
// handler runs
func RequireAdmin(logger *logger.Logger) func(http.Handler) http.Handler {
	return guard(logger, func(sess *session.Session) error {
		return sess.RequireAdmin()
	})
}

func guard(logger *logger.Logger, check func(*session.Session) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				WriteErrorResponse(w, errors.NewAuthenticationError("no session"), logger)
				return
			}
			if err := check(sess); err != nil {
				var appErr *errors.AppError
				if e, ok := err.(*errors.AppError); ok {
					appErr = e
				} else {
					appErr = errors.NewAuthenticationError("authentication required")
				}
				WriteErrorResponse(w, appErr, logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID creates a middleware that adds a unique request ID to each request
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r)
		})
	}
}

// WriteErrorResponse writes a typed error response to the client
func WriteErrorResponse(w http.ResponseWriter, appErr *errors.AppError, logger *logger.Logger) {
	logger.WithError(appErr).Debug("Request refused")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode error response")
	}
}
