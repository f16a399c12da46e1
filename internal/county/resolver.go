package county

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/geo"
	"location-reconciler/internal/models"

	"github.com/rs/zerolog/log"
)

// Cache is the durable store behind a Resolver.
type Cache interface {
	Get(ctx context.Context, key string) (models.CountyCacheEntry, bool, error)
	Set(ctx context.Context, entry models.CountyCacheEntry) error
	Clear(ctx context.Context) error
}

// Stats counts resolver activity.
type Stats struct {
	TotalLookups  int            `json:"total_lookups" yaml:"total_lookups"`
	CacheHits     int            `json:"cache_hits" yaml:"cache_hits"`
	ProviderCalls map[string]int `json:"provider_calls" yaml:"provider_calls"`
	Failures      int            `json:"failures" yaml:"failures"`
}

// Resolver maps coordinates or postal codes to county names. It is the only
// writer of its cache; concurrent callers are serialized around cache access.
type Resolver struct {
	providers []Provider
	cache     Cache

	mu       sync.Mutex
	disabled map[string]bool
	stats    Stats
}

// NewResolver creates a Resolver that tries providers in order.
func NewResolver(cache Cache, providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		cache:     cache,
		disabled:  make(map[string]bool),
		stats:     Stats{ProviderCalls: make(map[string]int)},
	}
}

// CoordinateKey is the cache key for a coordinate.
func CoordinateKey(lat, lon float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}

// PostalKey is the cache key for a postal code lookup.
func PostalKey(postalCode string) string {
	return "zip:" + NormalizePostalCode(postalCode)
}

// lookupKey picks the cache key for a request. ok is false when there is
// nothing to look up.
func lookupKey(lat, lon float64, postalCode string) (key string, byCoordinate bool, ok bool) {
	if geo.IsValidCoordinate(lat, lon) {
		return CoordinateKey(lat, lon), true, true
	}
	if NormalizePostalCode(postalCode) != "" {
		return PostalKey(postalCode), false, true
	}
	return "", false, false
}

// Resolve returns the county for a coordinate, falling back to the postal
// code when the coordinate is missing or invalid. Provider failures are
// never returned; they resolve to not found.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64, postalCode string) (string, bool) {
	key, byCoordinate, ok := lookupKey(lat, lon, postalCode)
	if !ok {
		return "", false
	}

	r.mu.Lock()
	r.stats.TotalLookups++
	r.mu.Unlock()

	if r.cache != nil {
		entry, found, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("county cache read failed")
		} else if found {
			r.mu.Lock()
			r.stats.CacheHits++
			r.mu.Unlock()
			if entry.Found() {
				return *entry.County, true
			}
			return "", false
		}
	}

	county, source := r.query(ctx, lat, lon, postalCode, byCoordinate)

	if ctx.Err() != nil {
		return county, county != ""
	}

	entry := models.CountyCacheEntry{Key: key, Source: source, CreatedAt: time.Now().UTC()}
	if county != "" {
		entry.County = &county
	}
	if r.cache != nil {
		r.mu.Lock()
		err := r.cache.Set(ctx, entry)
		r.mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("county cache write failed")
		}
	}

	return county, county != ""
}

func (r *Resolver) query(ctx context.Context, lat, lon float64, postalCode string, byCoordinate bool) (string, string) {
	for _, p := range r.providers {
		if !r.usable(p) {
			continue
		}

		r.mu.Lock()
		r.stats.ProviderCalls[p.Name()]++
		r.mu.Unlock()

		var (
			county string
			err    error
		)
		if byCoordinate {
			county, err = p.LookupCoordinate(ctx, lat, lon)
		} else {
			county, err = p.LookupPostalCode(ctx, postalCode)
		}

		if err != nil {
			if errors.Is(err, apperrors.ErrProviderUnavailable) {
				r.disable(p)
			}
			log.Debug().
				Err(err).
				Str("provider", p.Name()).
				Float64("lat", lat).
				Float64("lon", lon).
				Msg("county provider failed, trying next")
			continue
		}
		if county != "" {
			return county, p.Name()
		}
	}

	r.mu.Lock()
	r.stats.Failures++
	r.mu.Unlock()
	return "", "none"
}

func (r *Resolver) usable(p Provider) bool {
	if !p.Available() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.disabled[p.Name()]
}

func (r *Resolver) disable(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.disabled[p.Name()] {
		log.Warn().Str("provider", p.Name()).Msg("county provider disabled for this run")
	}
	r.disabled[p.Name()] = true
}

// Enrich resolves every distinct lookup key once and copies the county onto
// every location sharing it. Locations that already carry a county are
// left untouched.
func (r *Resolver) Enrich(ctx context.Context, locations []models.Location) []models.Location {
	out := make([]models.Location, len(locations))
	copy(out, locations)

	type request struct {
		lat, lon   float64
		postalCode string
	}
	var order []string
	requests := make(map[string]request)
	for _, loc := range out {
		if loc.County != nil && *loc.County != "" {
			continue
		}
		key, _, ok := lookupKey(loc.Latitude, loc.Longitude, loc.PostalCode)
		if !ok {
			continue
		}
		if _, seen := requests[key]; !seen {
			order = append(order, key)
			requests[key] = request{lat: loc.Latitude, lon: loc.Longitude, postalCode: loc.PostalCode}
		}
	}

	log.Info().
		Int("locations", len(out)).
		Int("unique_lookups", len(order)).
		Msg("resolving counties")

	resolved := make(map[string]string, len(order))
	for i, key := range order {
		if ctx.Err() != nil {
			break
		}
		req := requests[key]
		if county, ok := r.Resolve(ctx, req.lat, req.lon, req.postalCode); ok {
			resolved[key] = county
		}
		if (i+1)%100 == 0 {
			log.Info().Int("done", i+1).Int("total", len(order)).Msg("county lookup progress")
		}
	}

	for i := range out {
		if out[i].County != nil && *out[i].County != "" {
			continue
		}
		key, _, ok := lookupKey(out[i].Latitude, out[i].Longitude, out[i].PostalCode)
		if !ok {
			continue
		}
		if county, found := resolved[key]; found {
			c := county
			out[i].County = &c
		}
	}

	return out
}

// Stats returns a snapshot of the resolver counters.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make(map[string]int, len(r.stats.ProviderCalls))
	for k, v := range r.stats.ProviderCalls {
		calls[k] = v
	}
	s := r.stats
	s.ProviderCalls = calls
	return s
}

// ClearCache empties the backing cache.
func (r *Resolver) ClearCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Clear(ctx)
}

// Close releases the cache when it holds resources.
func (r *Resolver) Close() error {
	if c, ok := r.cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
