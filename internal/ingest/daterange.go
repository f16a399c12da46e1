package ingest

import (
	"fmt"
	"path/filepath"
	"regexp"

	"location-reconciler/internal/models"
)

// DefaultDateRange is used when no reporting period can be inferred.
const DefaultDateRange = models.DefaultDateRange

// Exports are named like "Ranking_Index_-_7_Brew_Coffee_-_Oct_1__2024_-_Sep_30__2025.csv".
var dateRangePattern = regexp.MustCompile(`([A-Z][a-z]{2})_(\d{1,2})__(\d{4})_-_([A-Z][a-z]{2})_(\d{1,2})__(\d{4})`)

// InferDateRange extracts the reporting period from the first export file
// name that carries one.
func InferDateRange(filenames ...string) string {
	if dr, ok := FindDateRange(filenames...); ok {
		return dr
	}
	return DefaultDateRange
}

// FindDateRange is InferDateRange without the fallback.
func FindDateRange(filenames ...string) (string, bool) {
	for _, name := range filenames {
		m := dateRangePattern.FindStringSubmatch(filepath.Base(name))
		if m == nil {
			continue
		}
		return fmt.Sprintf("%s %s, %s - %s %s, %s", m[1], m[2], m[3], m[4], m[5], m[6]), true
	}
	return "", false
}
