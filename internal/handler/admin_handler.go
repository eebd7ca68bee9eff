package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"auth-be/internal/container"
	"auth-be/pkg/errors"
)

// AdminHandler serves the admin console API. Routes mounting it must be
// wrapped in middleware.RequireAdmin; the gateway operations themselves do
// not re-check authorization.
type AdminHandler struct {
	container *container.Container
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(container *container.Container) *AdminHandler {
	return &AdminHandler{container: container}
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	profiles, err := h.container.GetGateway().GetAllUsers(r.Context())
	if err != nil {
		writeGatewayError(w, err, logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   profiles,
		"count":   len(profiles),
	}, logger)
}

// CreateUser handles POST /api/admin/users; unlike self-registration it may
// create administrators
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name,omitempty"`
		IsAdmin     bool   `json:"is_admin,omitempty"`
	}
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

	record, err := h.container.GetGateway().CreateUser(r.Context(), req.Email, req.Password, req.DisplayName, req.IsAdmin)
	if err != nil {
		writeGatewayError(w, err, logger)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Success: true, User: record}, logger)
}

// DeleteUser handles DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.mutateUser(w, r, "delete", func(id string) error {
		return h.container.GetGateway().DeleteUser(r.Context(), id)
	})
}

// PromoteUser handles POST /api/admin/users/{id}/promote
func (h *AdminHandler) PromoteUser(w http.ResponseWriter, r *http.Request) {
	h.mutateUser(w, r, "promote", func(id string) error {
		return h.container.GetGateway().MakeAdmin(r.Context(), id)
	})
}

// DemoteUser handles POST /api/admin/users/{id}/demote
func (h *AdminHandler) DemoteUser(w http.ResponseWriter, r *http.Request) {
	h.mutateUser(w, r, "demote", func(id string) error {
		return h.container.GetGateway().RevokeAdmin(r.Context(), id)
	})
}

func (h *AdminHandler) mutateUser(w http.ResponseWriter, r *http.Request, action string, op func(id string) error) {
	logger := h.container.GetLogger()

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, errors.NewValidationError("user id is required", nil), logger)
		return
	}

	err := op(id)
	if errors.IsType(err, errors.ErrorTypePartialConsistency) {
		// The authoritative provider write went through; report success with
		// a warning rather than failing the request.
		logger.WithError(err).WithFields(map[string]interface{}{
			"user_id": id,
			"action":  action,
		}).Warn("Operation left stores out of sync")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"warning": "profile mirror is stale and will be reconciled",
		}, logger)
		return
	}
	if err != nil {
		writeGatewayError(w, err, logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true}, logger)
}
