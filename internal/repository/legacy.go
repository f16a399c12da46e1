package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"location-reconciler/internal/models"
)

// LegacySource tags entries seeded from a JSON cache file.
const LegacySource = "legacy"

// ParseLegacyCache decodes a JSON object mapping "lat,lon" keys to a county
// name or null. Keys are normalised to six decimals; keys that are not a
// coordinate pair are kept verbatim. Entries come back sorted by key.
func ParseLegacyCache(r io.Reader) ([]models.CountyCacheEntry, error) {
	var raw map[string]*string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("repository: decode legacy cache: %w", err)
	}

	now := time.Now().UTC()
	entries := make([]models.CountyCacheEntry, 0, len(raw))
	for key, county := range raw {
		entry := models.CountyCacheEntry{
			Key:       normalizeLegacyKey(key),
			Source:    LegacySource,
			CreatedAt: now,
		}
		if county != nil && strings.TrimSpace(*county) != "" {
			c := strings.TrimSpace(*county)
			entry.County = &c
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func normalizeLegacyKey(key string) string {
	latStr, lonStr, ok := strings.Cut(key, ",")
	if !ok {
		return key
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err1 != nil || err2 != nil {
		return key
	}
	return fmt.Sprintf("%.6f,%.6f", lat, lon)
}
