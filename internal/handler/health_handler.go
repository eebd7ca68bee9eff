package handler

import (
	"net/http"
	"time"

	"auth-be/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{container: container}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Store     string    `json:"store"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "auth-be",
		Store:     h.container.GetConfig().ProfileStore,
	}

	if err := h.container.StoreHealth(r.Context()); err != nil {
		logger.WithError(err).Warn("Profile store health check failed")
		response.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, response, logger)
}
