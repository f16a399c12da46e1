package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"location-reconciler/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteCountyStore is the default on-disk county cache.
type SQLiteCountyStore struct {
	db *sql.DB
}

// NewSQLiteCountyStore opens a SQLite database at the given path and configures WAL mode.
func NewSQLiteCountyStore(dsn string) (*SQLiteCountyStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to open sqlite: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("repository: failed to exec %s: %w", pragma, err)
		}
	}
	return &SQLiteCountyStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS county_cache (
	cache_key  TEXT PRIMARY KEY,
	county     TEXT,
	source     TEXT NOT NULL DEFAULT 'none',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteCountyStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("repository: failed to migrate sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteCountyStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteCountyStore) Get(ctx context.Context, key string) (models.CountyCacheEntry, bool, error) {
	var (
		county    sql.NullString
		source    string
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT county, source, created_at FROM county_cache WHERE cache_key = ?`, key,
	).Scan(&county, &source, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CountyCacheEntry{}, false, nil
	}
	if err != nil {
		return models.CountyCacheEntry{}, false, fmt.Errorf("repository: failed to read county %s: %w", key, err)
	}

	entry := models.CountyCacheEntry{Key: key, Source: source, CreatedAt: createdAt}
	if county.Valid && county.String != "" {
		c := county.String
		entry.County = &c
	}
	return entry, true, nil
}

func (s *SQLiteCountyStore) Set(ctx context.Context, entry models.CountyCacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO county_cache (cache_key, county, source, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			county = excluded.county,
			source = excluded.source,
			created_at = excluded.created_at`,
		entry.Key, nilIfEmpty(entry.County), entry.Source, createdAtOrNow(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("repository: failed to store county %s: %w", entry.Key, err)
	}
	return nil
}

func (s *SQLiteCountyStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM county_cache`); err != nil {
		return fmt.Errorf("repository: failed to clear county cache: %w", err)
	}
	return nil
}

// ImportEntries upserts entries in a single transaction.
func (s *SQLiteCountyStore) ImportEntries(ctx context.Context, entries []models.CountyCacheEntry) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO county_cache (cache_key, county, source, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			county = excluded.county,
			source = excluded.source,
			created_at = excluded.created_at`)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to prepare import: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Key, nilIfEmpty(e.County), e.Source, createdAtOrNow(e.CreatedAt)); err != nil {
			return 0, fmt.Errorf("repository: failed to import %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("repository: failed to commit import: %w", err)
	}
	return int64(len(entries)), nil
}

// Count returns the number of cached keys.
func (s *SQLiteCountyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM county_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: failed to count county cache: %w", err)
	}
	return n, nil
}

func createdAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
