package service

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/repository"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
	"portfolio-be/pkg/validator"
)

// contentService validates and stores admin-edited page content
type contentService struct {
	repo          repository.ContentRepository
	defaultLocale string
	logger        *logger.Logger
}

// NewContentService creates a new content service
func NewContentService(repo repository.ContentRepository, defaultLocale string, logger *logger.Logger) ContentService {
	return &contentService{
		repo:          repo,
		defaultLocale: defaultLocale,
		logger:        logger,
	}
}

// Save decodes req.Data strictly into the schema selected by req.Type,
// validates it and overwrites the stored blob with the normalized JSON.
func (s *contentService) Save(ctx context.Context, req *domain.SaveContentRequest) (*domain.SaveContentResponse, error) {
	locale, err := s.resolve(req.Type, req.Locale)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(req.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.NewValidationError("Content data is required", nil)
	}

	schema, _ := domain.NewContentSchema(req.Type)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(schema); err != nil {
		return nil, errors.NewValidationError(
			fmt.Sprintf("Content data does not match the %s schema", req.Type),
			map[string]interface{}{"decode": err.Error()},
		)
	}

	if err := validator.ValidateStruct(schema); err != nil {
		return nil, errors.NewValidationError(
			fmt.Sprintf("Content data does not match the %s schema", req.Type),
			validator.FieldErrors(err),
		)
	}

	normalized, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.NewInternalError("Failed to encode content", err)
	}

	updatedAt, err := s.repo.Save(ctx, locale, req.Type, normalized)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"operation": "save_content",
			"type":      req.Type,
			"locale":    locale,
		}).Error("Failed to save content")
		return nil, errors.NewInternalError("Internal server error", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"type":   req.Type,
		"locale": locale,
		"bytes":  len(normalized),
	}).Info("Content saved")

	return &domain.SaveContentResponse{Type: req.Type, Locale: locale, UpdatedAt: updatedAt}, nil
}

// Load returns the stored blob for a type and locale
func (s *contentService) Load(ctx context.Context, contentType domain.ContentType, locale string) ([]byte, time.Time, error) {
	locale, err := s.resolve(contentType, locale)
	if err != nil {
		return nil, time.Time{}, err
	}

	data, updatedAt, err := s.repo.Load(ctx, locale, contentType)
	if err != nil {
		if stderrors.Is(err, repository.ErrContentNotFound) {
			return nil, time.Time{}, errors.NewNotFoundError("Content not found")
		}
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"operation": "load_content",
			"type":      contentType,
			"locale":    locale,
		}).Error("Failed to load content")
		return nil, time.Time{}, errors.NewInternalError("Internal server error", err)
	}

	return data, updatedAt, nil
}

func (s *contentService) resolve(contentType domain.ContentType, locale string) (string, error) {
	if !contentType.Valid() {
		return "", errors.NewValidationError("Unknown content type", map[string]interface{}{"type": string(contentType)})
	}
	if locale == "" {
		locale = s.defaultLocale
	}
	if !validator.IsLocale(locale) {
		return "", errors.NewValidationError("Invalid locale", map[string]interface{}{"locale": locale})
	}
	return locale, nil
}
