package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/service"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// maxVisitBody caps POST /api/visits bodies
const maxVisitBody = 1 << 10

// VisitHandler handles the visit counter endpoints
type VisitHandler struct {
	visitService service.VisitService
	logger       *logger.Logger
	cacheControl string
}

// NewVisitHandler creates a new visit handler. countTTL sets the shared
// cache lifetime advertised on GET responses.
func NewVisitHandler(visitService service.VisitService, logger *logger.Logger, countTTL time.Duration) *VisitHandler {
	seconds := int(countTTL / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return &VisitHandler{
		visitService: visitService,
		logger:       logger,
		cacheControl: fmt.Sprintf("public, s-maxage=%d", seconds),
	}
}

// RegisterRoutes mounts the visit routes. throttle guards the write path.
func (h *VisitHandler) RegisterRoutes(r chi.Router, throttle func(http.Handler) http.Handler) {
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}
	r.Route("/visits", func(r chi.Router) {
		r.Get("/", h.GetCount)
		r.With(throttle).Post("/", h.RecordVisit)
	})
}

// GetCount handles GET /api/visits
func (h *VisitHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.visitService.GetCount(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	writeJSON(w, http.StatusOK, domain.VisitCount{Count: count}, h.logger)
}

// RecordVisit handles POST /api/visits
func (h *VisitHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVisitBody)

	var req domain.VisitRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}
	// exactly one JSON value; trailing whitespace is fine
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	result, err := h.visitService.RecordVisit(r.Context(), req.IP)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	decision := result.Decision
	h.setRateLimitHeaders(w, decision)

	if !decision.Admitted {
		retryAfter := int64(math.Ceil(decision.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
		writeError(w, r, errors.NewRateLimitError("Daily visit limit reached", map[string]interface{}{
			"retry_after": retryAfter,
		}), h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, domain.VisitCount{Count: result.Count}, h.logger)

	h.logger.WithFields(map[string]interface{}{
		"ip":        decision.IP,
		"remaining": decision.Remaining(),
		"count":     result.Count,
	}).Debug("Visit recorded successfully")
}

// setRateLimitHeaders sets standard rate limit headers
func (h *VisitHandler) setRateLimitHeaders(w http.ResponseWriter, decision *domain.QuotaDecision) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining(), 10))
}
