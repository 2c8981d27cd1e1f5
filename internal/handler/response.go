package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"portfolio-be/internal/middleware"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError renders err as {"error": message}. Anything that is not an
// AppError becomes a generic 500; details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternalError("Internal server error", err)
	}

	entry := log.WithFields(map[string]interface{}{
		"request_id": middleware.RequestIDFromContext(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     appErr.StatusCode,
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.WithField("reason", appErr.Message).Debug("Request rejected")
	}

	w.Header().Set("Cache-Control", "no-store")
	if encErr := errors.WriteJSON(w, appErr); encErr != nil {
		log.WithError(encErr).Error("Failed to encode error response")
	}
}

// NotFound renders unknown routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(errors.ErrorResponse{Error: "Endpoint not found"})
}

// MethodNotAllowed renders known routes hit with the wrong method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_ = json.NewEncoder(w).Encode(errors.ErrorResponse{Error: "Method not allowed"})
}
