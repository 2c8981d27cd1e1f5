package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"portfolio-be/internal/domain"
	"portfolio-be/pkg/database"
)

// visitRepository stores visits in PostgreSQL
type visitRepository struct {
	db *database.PostgresDB
}

// NewVisitRepository creates a new PostgreSQL visit repository
func NewVisitRepository(db *database.PostgresDB) VisitRepository {
	return &visitRepository{
		db: db,
	}
}

// CountVisits returns the total number of visit records
func (r *visitRepository) CountVisits(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM visits`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

// rowQuerier is satisfied by both the pool and a transaction
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// quotaUsage counts the records of ip created at or after since and finds
// the oldest of them
func quotaUsage(ctx context.Context, q rowQuerier, ip string, since time.Time) (int64, *time.Time, error) {
	var used int64
	var oldest *time.Time
	err := q.QueryRow(ctx,
		`SELECT COUNT(*), MIN(created_at) FROM visits WHERE ip = $1 AND created_at >= $2`,
		ip, since,
	).Scan(&used, &oldest)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to check visit quota: %w", err)
	}
	return used, oldest, nil
}

// CountVisitsSince returns the number of records for ip created at or after since
func (r *visitRepository) CountVisitsSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	used, _, err := quotaUsage(ctx, r.db.Pool, ip, since)
	return used, err
}

// RecordVisit checks the quota and inserts inside one transaction. A
// transaction-scoped advisory lock on the IP serializes concurrent requests
// from the same address; different addresses do not contend.
func (r *visitRepository) RecordVisit(ctx context.Context, ip string, now time.Time, quota domain.Quota) (*domain.QuotaDecision, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin visit transaction: %w", err)
	}
	// No-op once committed
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ip); err != nil {
		return nil, fmt.Errorf("failed to lock visit quota: %w", err)
	}

	used, oldest, err := quotaUsage(ctx, tx, ip, now.Add(-quota.Window))
	if err != nil {
		return nil, err
	}

	decision := evaluateQuota(ip, used, oldest, now, quota)
	if !decision.Admitted {
		return decision, nil
	}

	record := &domain.VisitRecord{IP: ip}
	err = tx.QueryRow(ctx,
		`INSERT INTO visits (ip, created_at) VALUES ($1, $2) RETURNING id, created_at`,
		ip, now,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert visit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit visit: %w", err)
	}

	decision.Used++
	decision.Record = record
	return decision, nil
}

// Health pings the database
func (r *visitRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Close closes the connection pool
func (r *visitRepository) Close() error {
	return r.db.Close()
}
