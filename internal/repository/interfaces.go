package repository

import (
	"context"
	"errors"
	"time"

	"portfolio-be/internal/domain"
)

// ErrContentNotFound is returned when no blob is stored for a type and locale
var ErrContentNotFound = errors.New("content not found")

// VisitRepository defines the persistent visit store
type VisitRepository interface {
	// CountVisits returns the total number of visit records
	CountVisits(ctx context.Context) (int64, error)

	// CountVisitsSince returns the number of records for ip created at or after since
	CountVisitsSince(ctx context.Context, ip string, since time.Time) (int64, error)

	// RecordVisit checks the quota for ip and, if admitted, inserts a record
	// created at now. Check and insert run in one transaction serialized per IP.
	RecordVisit(ctx context.Context, ip string, now time.Time, quota domain.Quota) (*domain.QuotaDecision, error)

	// Health pings the underlying database
	Health(ctx context.Context) error

	// Close releases the underlying database
	Close() error
}

// ContentRepository defines the store for admin-edited content blobs
type ContentRepository interface {
	// Save overwrites the blob for a type and locale
	Save(ctx context.Context, locale string, contentType domain.ContentType, data []byte) (time.Time, error)

	// Load returns the blob for a type and locale and when it was written
	Load(ctx context.Context, locale string, contentType domain.ContentType) ([]byte, time.Time, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Visit   VisitRepository
	Content ContentRepository
}
