package repository

import (
	"context"
	"testing"

	"location-reconciler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCountyStore(t *testing.T) {
	st := NewMemoryCountyStore()
	ctx := context.Background()

	_, ok, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := st.ImportEntries(ctx, []models.CountyCacheEntry{
		{Key: "k", County: strPtr("Clarke County")},
		{Key: "j"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, st.Len())

	entry, ok, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, entry.Found())

	require.NoError(t, st.Clear(ctx))
	assert.Zero(t, st.Len())
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		expectedErr bool
	}{
		{name: "memory", opts: Options{Driver: "memory"}},
		{name: "sqlite default", opts: Options{Path: "county_cache.db"}},
		{name: "unknown driver", opts: Options{Driver: "mongo"}, expectedErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.opts.Path != "" {
				tt.opts.Path = t.TempDir() + "/" + tt.opts.Path
			}
			st, err := Open(context.Background(), tt.opts)
			if tt.expectedErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { st.Close() }) //nolint:errcheck

			require.NoError(t, st.Set(context.Background(), models.CountyCacheEntry{Key: "k", Source: "none"}))
			_, ok, err := st.Get(context.Background(), "k")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}
