package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"portfolio-be/internal/domain"
	"portfolio-be/pkg/database"
)

// sqliteVisitRepository stores visits in SQLite for local runs
type sqliteVisitRepository struct {
	db *database.SQLiteDB
}

// NewSQLiteVisitRepository creates a new SQLite visit repository
func NewSQLiteVisitRepository(db *database.SQLiteDB) VisitRepository {
	return &sqliteVisitRepository{db: db}
}

func (r *sqliteVisitRepository) CountVisits(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return count, nil
}

// sqlRowQuerier is satisfied by both *sql.DB and *sql.Tx
type sqlRowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteQuotaUsage counts the records of ip created at or after since and
// finds the oldest of them. Times are stored as UTC unix microseconds.
func sqliteQuotaUsage(ctx context.Context, q sqlRowQuerier, ip string, since time.Time) (int64, *time.Time, error) {
	var used int64
	var oldestMicros sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(created_at) FROM visits WHERE ip = ? AND created_at >= ?`,
		ip, since.UTC().UnixMicro(),
	).Scan(&used, &oldestMicros)
	if err != nil {
		return 0, nil, fmt.Errorf("check visit quota: %w", err)
	}

	if !oldestMicros.Valid {
		return used, nil, nil
	}
	oldest := time.UnixMicro(oldestMicros.Int64).UTC()
	return used, &oldest, nil
}

func (r *sqliteVisitRepository) CountVisitsSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	used, _, err := sqliteQuotaUsage(ctx, r.db.DB, ip, since)
	return used, err
}

// RecordVisit runs check and insert in one BEGIN IMMEDIATE transaction,
// which takes the database write lock before the count is read.
func (r *sqliteVisitRepository) RecordVisit(ctx context.Context, ip string, now time.Time, quota domain.Quota) (*domain.QuotaDecision, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin visit transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	used, oldest, err := sqliteQuotaUsage(ctx, tx, ip, now.Add(-quota.Window))
	if err != nil {
		return nil, err
	}

	decision := evaluateQuota(ip, used, oldest, now, quota)
	if !decision.Admitted {
		return decision, nil
	}

	createdAt := now.UTC().Truncate(time.Microsecond)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO visits (ip, created_at) VALUES (?, ?)`,
		ip, createdAt.UnixMicro(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert visit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read visit id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit visit: %w", err)
	}

	decision.Used++
	decision.Record = &domain.VisitRecord{ID: id, IP: ip, CreatedAt: createdAt}
	return decision, nil
}

func (r *sqliteVisitRepository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

func (r *sqliteVisitRepository) Close() error {
	return r.db.Close()
}
