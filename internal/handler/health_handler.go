package handler

import (
	"context"
	"net/http"
	"time"

	"portfolio-be/internal/container"
)

// readyTimeout bounds dependency pings on /health/ready
const readyTimeout = 2 * time.Second

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	logger.Debug("Health check requested")

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "portfolio-be",
	}, logger)
}

// Ready handles GET /health/ready by pinging the store and Redis
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	checks := make(map[string]string)
	for name, err := range h.container.Health(ctx) {
		if err != nil {
			logger.WithError(err).WithField("dependency", name).Warn("Readiness check failed")
			checks[name] = "unhealthy"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "portfolio-be",
		Checks:    checks,
	}, logger)
}
