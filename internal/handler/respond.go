package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"auth-be/pkg/errors"
	"auth-be/pkg/logger"
)

// writeJSON encodes a response body with the given status
func writeJSON(w http.ResponseWriter, status int, body interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError writes a typed error response
func writeError(w http.ResponseWriter, appErr *errors.AppError, logger *logger.Logger) {
	logger.WithError(appErr).Debug("Request error")

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	writeJSON(w, appErr.StatusCode, response, logger)
}

// writeGatewayError maps any gateway error onto a typed response; errors
// that are not AppErrors never reach clients raw
func writeGatewayError(w http.ResponseWriter, err error, logger *logger.Logger) {
	if appErr, ok := err.(*errors.AppError); ok {
		writeError(w, appErr, logger)
		return
	}
	logger.WithError(err).Error("Unexpected error reached handler")
	writeError(w, errors.NewInternalError("internal error", err), logger)
}
