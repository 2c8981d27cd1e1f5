package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"portfolio-be/internal/domain"
	"portfolio-be/internal/repository"
	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
	"portfolio-be/pkg/validator"
)

const countFlightKey = "visits:count"

// Default visit policy
const (
	DefaultDailyLimit = 10
	DefaultWindow     = 24 * time.Hour
	DefaultCountTTL   = 30 * time.Second
)

// visitService implements the visit write path and the read-through count
type visitService struct {
	repo   repository.VisitRepository
	cache  CountCache
	quota  domain.Quota
	logger *logger.Logger
	now    func() time.Time

	// recomputes share one store query
	group singleflight.Group
}

// NewVisitService creates a new visit service
func NewVisitService(repo repository.VisitRepository, cache CountCache, quota domain.Quota, logger *logger.Logger) VisitService {
	return newVisitService(repo, cache, quota, logger, time.Now)
}

func newVisitService(repo repository.VisitRepository, cache CountCache, quota domain.Quota, logger *logger.Logger, now func() time.Time) *visitService {
	return &visitService{
		repo:   repo,
		cache:  cache,
		quota:  quota,
		logger: logger,
		now:    now,
	}
}

// RecordVisit validates ip, applies the quota and stores the visit. On
// success the cache is invalidated and the fresh total returned.
func (s *visitService) RecordVisit(ctx context.Context, ip string) (*domain.VisitResult, error) {
	if _, err := validator.ValidateIPv4(ip); err != nil {
		return nil, errors.NewValidationError("Invalid IP address format", map[string]interface{}{"ip": "dottedquad"})
	}

	decision, err := s.repo.RecordVisit(ctx, ip, s.now(), s.quota)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"operation": "record_visit",
			"ip":        ip,
		}).Error("Failed to record visit")
		return nil, errors.NewInternalError("Internal server error", err)
	}

	if !decision.Admitted {
		s.logger.WithFields(map[string]interface{}{
			"ip":          ip,
			"used":        decision.Used,
			"limit":       decision.Limit,
			"retry_after": decision.RetryAfter.String(),
		}).Warn("Visit quota exceeded")
		return &domain.VisitResult{Decision: decision}, nil
	}

	s.invalidate(ctx)

	// Straight to the store: the response must include this write even if
	// the invalidation did not reach a shared cache.
	_, gen, _ := s.cache.Get(ctx)
	count, err := s.countAndStore(ctx, gen)
	if err != nil {
		return nil, s.countError(err)
	}

	s.logger.WithFields(map[string]interface{}{
		"ip":    ip,
		"used":  decision.Used,
		"count": count,
	}).Debug("Visit recorded successfully")

	return &domain.VisitResult{Count: count, Decision: decision}, nil
}

// GetCount serves the cached total or recomputes it from the store. A failed
// recompute is an error; nothing stale is served past the TTL.
func (s *visitService) GetCount(ctx context.Context) (int64, error) {
	if count, _, ok := s.cache.Get(ctx); ok {
		return count, nil
	}

	v, err, _ := s.group.Do(countFlightKey, func() (interface{}, error) {
		// another flight may have refreshed it since our miss
		count, gen, ok := s.cache.Get(ctx)
		if ok {
			return count, nil
		}
		return s.countAndStore(ctx, gen)
	})
	if err != nil {
		return 0, s.countError(err)
	}

	return v.(int64), nil
}

// countAndStore queries the total and offers it to the cache under gen, which
// must have been read before the query. The cache drops it if a write
// invalidated in between.
func (s *visitService) countAndStore(ctx context.Context, gen uint64) (int64, error) {
	count, err := s.repo.CountVisits(ctx)
	if err != nil {
		return 0, err
	}
	s.cache.Set(ctx, count, gen)
	return count, nil
}

func (s *visitService) countError(err error) error {
	s.logger.WithError(err).WithField("operation", "count_visits").Error("Failed to count visits")
	return errors.NewInternalError("Internal server error", err)
}

func (s *visitService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to invalidate visit count cache")
	}
	s.group.Forget(countFlightKey)
}
