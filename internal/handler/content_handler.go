package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/middleware"
	"portfolio-be/internal/service"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

// maxContentBody caps admin content uploads
const maxContentBody = 1 << 20

// ContentHandler serves site content and accepts admin edits
type ContentHandler struct {
	contentService service.ContentService
	logger         *logger.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(contentService service.ContentService, logger *logger.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
	}
}

// RegisterRoutes mounts the public read route and the admin write route
func (h *ContentHandler) RegisterRoutes(r chi.Router, adminAuth func(http.Handler) http.Handler) {
	r.Get("/content/{type}", h.GetContent)

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuth)
		r.Post("/content", h.SaveContent)
	})
}

// GetContent handles GET /api/content/{type}?locale=xx
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	contentType := domain.ContentType(chi.URLParam(r, "type"))
	locale := r.URL.Query().Get("locale")

	data, updatedAt, err := h.contentService.Load(r.Context(), contentType, locale)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, s-maxage=60")
	// handles If-Modified-Since and HEAD
	http.ServeContent(w, r, string(contentType)+".json", updatedAt, bytes.NewReader(data))
}

// SaveContent handles POST /api/admin/content
func (h *ContentHandler) SaveContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContentBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req domain.SaveContentRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, errors.NewValidationError("Invalid request body", nil), h.logger)
		return
	}

	resp, err := h.contentService.Save(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	fields := map[string]interface{}{
		"type":   resp.Type,
		"locale": resp.Locale,
	}
	if admin, ok := middleware.AdminFromContext(r.Context()); ok {
		fields["admin"] = admin.Subject
	}
	h.logger.WithFields(fields).Info("Content updated")

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp, h.logger)
}
