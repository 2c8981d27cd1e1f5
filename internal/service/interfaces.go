package service

import (
	"context"
	"time"

	"portfolio-be/internal/domain"
)

// AuthService verifies admin bearer tokens
type AuthService interface {
	// ValidateAdminToken parses token and returns the admin it was issued to
	ValidateAdminToken(ctx context.Context, token string) (*domain.AdminIdentity, error)
}

// VisitService defines the visit counter operations
type VisitService interface {
	// RecordVisit validates ip, applies the daily quota and stores a visit.
	// A rejected visit is reported through Decision.Admitted, not an error.
	RecordVisit(ctx context.Context, ip string) (*domain.VisitResult, error)

	// GetCount returns the total visit count, at most one cache TTL stale
	GetCount(ctx context.Context) (int64, error)
}

// ContentService defines the admin-edited content operations
type ContentService interface {
	// Save validates req.Data against the schema of req.Type and stores it
	Save(ctx context.Context, req *domain.SaveContentRequest) (*domain.SaveContentResponse, error)

	// Load returns the stored blob for a type and locale
	Load(ctx context.Context, contentType domain.ContentType, locale string) ([]byte, time.Time, error)
}

// CountCache holds the last known total visit count. Every Invalidate starts
// a new generation; a count computed in an older generation is never stored.
type CountCache interface {
	// Get returns the cached count if it is still fresh, and the current
	// generation either way. Read the generation before querying the store.
	Get(ctx context.Context) (count int64, gen uint64, ok bool)

	// Set stores count unless the cache was invalidated after gen was read
	Set(ctx context.Context, count int64, gen uint64)

	// Invalidate forces the next Get to miss and starts a new generation
	Invalidate(ctx context.Context) error
}

// Services aggregates all service interfaces
type Services struct {
	Auth    AuthService
	Visit   VisitService
	Content ContentService
}
