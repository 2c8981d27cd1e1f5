package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteSchema mirrors PostgresSchema. created_at holds unix microseconds
// so range comparisons and MIN() stay numeric.
const SQLiteSchema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ip TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visits_ip_created_at ON visits (ip, created_at);
`

type SQLiteDB struct {
	DB *sql.DB
}

// OpenSQLite opens the database file at path. Transactions start with
// BEGIN IMMEDIATE and a single connection is used, so writers are serialized.
func OpenSQLite(ctx context.Context, path string) (*SQLiteDB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	dbh, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	dbh.SetMaxOpenConns(1)
	dbh.SetMaxIdleConns(1)
	dbh.SetConnMaxLifetime(0)

	db := &SQLiteDB{DB: dbh}
	if err := db.Migrate(ctx); err != nil {
		_ = dbh.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema
func (db *SQLiteDB) Migrate(ctx context.Context) error {
	if _, err := db.DB.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database handle
func (db *SQLiteDB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Health checks the database connection
func (db *SQLiteDB) Health(ctx context.Context) error {
	return db.DB.PingContext(ctx)
}
