package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"location-reconciler/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of *pgxpool.Pool the Postgres store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresCountyStore implements the county cache on PostgreSQL
type PostgresCountyStore struct {
	db    Pool
	table string
}

// NewPostgresCountyStore creates a new PostgreSQL county store
func NewPostgresCountyStore(db Pool, table string) *PostgresCountyStore {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresCountyStore{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// OpenPostgresCountyStore connects, migrates, and returns a store.
func OpenPostgresCountyStore(ctx context.Context, dsn, table string) (*PostgresCountyStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to connect to postgres: %w", err)
	}
	store := NewPostgresCountyStore(pool, table)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the cache table if it is missing.
func (r *PostgresCountyStore) Migrate(ctx context.Context) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key  TEXT PRIMARY KEY,
			county     TEXT,
			source     TEXT NOT NULL DEFAULT 'none',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, r.table)
	if _, err := r.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("repository: failed to migrate county cache: %w", err)
	}
	return nil
}

// Get looks up a cached county. A missing row is a miss, not an error.
func (r *PostgresCountyStore) Get(ctx context.Context, key string) (models.CountyCacheEntry, bool, error) {
	sql := fmt.Sprintf(`SELECT county, source, created_at FROM %s WHERE cache_key = $1`, r.table)

	var (
		county    *string
		source    string
		createdAt time.Time
	)
	err := r.db.QueryRow(ctx, sql, key).Scan(&county, &source, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CountyCacheEntry{}, false, nil
		}
		return models.CountyCacheEntry{}, false, fmt.Errorf("repository: failed to read county cache: %w", err)
	}

	return models.CountyCacheEntry{Key: key, County: county, Source: source, CreatedAt: createdAt}, true, nil
}

// Set upserts one entry.
func (r *PostgresCountyStore) Set(ctx context.Context, entry models.CountyCacheEntry) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (cache_key, county, source, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cache_key) DO UPDATE SET
			county = EXCLUDED.county,
			source = EXCLUDED.source,
			created_at = EXCLUDED.created_at`, r.table)

	_, err := r.db.Exec(ctx, sql, entry.Key, nilIfEmpty(entry.County), entry.Source, createdAtOrNow(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("repository: failed to store county cache: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (r *PostgresCountyStore) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, r.table)); err != nil {
		return fmt.Errorf("repository: failed to clear county cache: %w", err)
	}
	return nil
}

// ImportEntries bulk loads entries through a temp table so existing keys are
// overwritten rather than rejected by COPY.
func (r *PostgresCountyStore) ImportEntries(ctx context.Context, entries []models.CountyCacheEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to begin import: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `CREATE TEMP TABLE _tmp_county_cache (
		cache_key  TEXT,
		county     TEXT,
		source     TEXT,
		created_at TIMESTAMPTZ
	) ON COMMIT DROP`)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to create temp table: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"_tmp_county_cache"},
		[]string{"cache_key", "county", "source", "created_at"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{e.Key, nilIfEmpty(e.County), e.Source, createdAtOrNow(e.CreatedAt)}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to copy county cache: %w", err)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (cache_key, county, source, created_at)
		SELECT DISTINCT ON (cache_key) cache_key, county, source, created_at FROM _tmp_county_cache
		ON CONFLICT (cache_key) DO UPDATE SET
			county = EXCLUDED.county,
			source = EXCLUDED.source,
			created_at = EXCLUDED.created_at`, r.table))
	if err != nil {
		return 0, fmt.Errorf("repository: failed to merge county cache: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("repository: failed to commit import: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresCountyStore) Close() error {
	r.db.Close()
	return nil
}
