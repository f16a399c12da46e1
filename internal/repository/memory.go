package repository

import (
	"context"
	"sync"

	"location-reconciler/internal/models"
)

// MemoryCountyStore keeps entries for the life of the process.
type MemoryCountyStore struct {
	mu      sync.RWMutex
	entries map[string]models.CountyCacheEntry
}

func NewMemoryCountyStore() *MemoryCountyStore {
	return &MemoryCountyStore{entries: make(map[string]models.CountyCacheEntry)}
}

func (s *MemoryCountyStore) Get(_ context.Context, key string) (models.CountyCacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *MemoryCountyStore) Set(_ context.Context, entry models.CountyCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = entry
	return nil
}

func (s *MemoryCountyStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]models.CountyCacheEntry)
	return nil
}

func (s *MemoryCountyStore) ImportEntries(ctx context.Context, entries []models.CountyCacheEntry) (int64, error) {
	for _, e := range entries {
		if err := s.Set(ctx, e); err != nil {
			return 0, err
		}
	}
	return int64(len(entries)), nil
}

// Len reports the number of cached keys.
func (s *MemoryCountyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryCountyStore) Close() error { return nil }
