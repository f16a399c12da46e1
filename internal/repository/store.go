// Package repository persists county resolutions between runs.
package repository

import (
	"context"
	"fmt"
	"strings"

	"location-reconciler/internal/models"
)

// DefaultTable is the county cache table used by the SQL stores.
const DefaultTable = "county_cache"

// CountyStore is a durable county cache. Implementations satisfy
// county.Cache and add bulk import for the legacy cache importer.
type CountyStore interface {
	Get(ctx context.Context, key string) (models.CountyCacheEntry, bool, error)
	Set(ctx context.Context, entry models.CountyCacheEntry) error
	Clear(ctx context.Context) error
	ImportEntries(ctx context.Context, entries []models.CountyCacheEntry) (int64, error)
	Close() error
}

// Options selects and configures a store.
type Options struct {
	Driver   string
	Path     string
	DBSource string
	RedisURL string
	Table    string
}

// Open builds the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (CountyStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite":
		store, err := NewSQLiteCountyStore(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "postgres":
		return OpenPostgresCountyStore(ctx, opts.DBSource, opts.Table)
	case "redis":
		return OpenRedisCountyStore(ctx, opts.RedisURL, "")
	case "memory":
		return NewMemoryCountyStore(), nil
	default:
		return nil, fmt.Errorf("repository: unknown cache driver %q", opts.Driver)
	}
}

func nilIfEmpty(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
