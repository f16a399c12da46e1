package service

import (
	"fmt"
	"sort"
	"strings"

	"location-reconciler/internal/geo"
	"location-reconciler/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultDedupeThresholdMeters is the proximity under which two records
	// in the same city are considered the same site.
	DefaultDedupeThresholdMeters = 50.0

	pendingReason = "No matching CSV location found within threshold"
)

// MergeService combines ranked, existing and proposed locations
type MergeService struct {
	dedupeThresholdMeters float64
}

// NewMergeService creates a new merge service
func NewMergeService(dedupeThresholdMeters float64) *MergeService {
	if dedupeThresholdMeters <= 0 {
		dedupeThresholdMeters = DefaultDedupeThresholdMeters
	}
	return &MergeService{dedupeThresholdMeters: dedupeThresholdMeters}
}

// RegionKey returns the grouping key for a location.
func RegionKey(loc models.Location) string {
	return loc.RegionKey()
}

// Merge builds the final collection. Ranked locations are always kept and
// tagged with the proposed record they absorbed, existing locations are always
// kept, and proposed locations survive only when no match claimed them.
// Match indexes refer to the ranked and proposed slices.
func (s *MergeService) Merge(ranked, existing, proposed []models.Location, matches []models.MatchResult) models.MergeOutcome {
	byRanked := make(map[int]models.MatchResult, len(matches))
	byProposed := make(map[int]models.MatchResult, len(matches))
	for _, m := range matches {
		byRanked[m.RankedIndex] = m
		byProposed[m.ProposedIndex] = m
	}

	final := make([]models.Location, 0, len(ranked)+len(existing)+len(proposed))
	meta := models.MergeMetadata{
		RankedLocations:   len(ranked),
		ExistingLocations: len(existing),
		ProposedTotal:     len(proposed),
		MatchesFound:      len(matches),
		MatchDetails:      make([]models.MatchDetail, 0, len(matches)),
		UnmatchedProposed: []models.PendingProposed{},
	}

	for i, loc := range ranked {
		loc.SourceKind = models.SourceRanked
		loc.IsActual = true
		if m, ok := byRanked[i]; ok {
			loc.ReplacedBy = &models.ReplacedBy{
				Name:           m.Proposed.Name,
				DistanceMeters: m.DistanceMeters,
				Confidence:     m.Confidence,
			}
			meta.MatchDetails = append(meta.MatchDetails, models.MatchDetail{
				RankedName:     loc.Name,
				ProposedName:   m.Proposed.Name,
				DistanceMeters: m.DistanceMeters,
				Confidence:     m.Confidence,
			})
		}
		final = append(final, loc)
	}

	for _, loc := range existing {
		loc.SourceKind = models.SourceExisting
		loc.IsActual = true
		final = append(final, loc)
	}

	for i, loc := range proposed {
		if _, claimed := byProposed[i]; claimed {
			meta.ProposedReplaced++
			continue
		}
		loc.SourceKind = models.SourceProposed
		loc.IsActual = false
		loc.ReplacedBy = nil
		final = append(final, loc)
		meta.ProposedKept++
		meta.UnmatchedProposed = append(meta.UnmatchedProposed, models.PendingProposed{
			Name:   loc.Name,
			City:   loc.City,
			State:  loc.RegionCode,
			Reason: pendingReason,
		})
	}

	s.applyAggregates(&meta, final)

	log.Info().
		Int("ranked", meta.RankedLocations).
		Int("existing", meta.ExistingLocations).
		Int("proposed_kept", meta.ProposedKept).
		Int("proposed_replaced", meta.ProposedReplaced).
		Int("total", meta.TotalLocations).
		Msg("merge complete")

	return models.MergeOutcome{Locations: final, Metadata: meta}
}

// ComputeAggregates derives the per-region and nationwide figures for an
// arbitrary collection.
func (s *MergeService) ComputeAggregates(locations []models.Location) models.MergeMetadata {
	var meta models.MergeMetadata
	s.applyAggregates(&meta, locations)
	return meta
}

func (s *MergeService) applyAggregates(meta *models.MergeMetadata, locations []models.Location) {
	meta.TotalLocations = len(locations)
	meta.TotalStoresUS = len(locations)
	meta.TotalRankedUS = 0
	meta.SourceBreakdown = map[models.SourceKind]int{
		models.SourceRanked:   0,
		models.SourceExisting: 0,
		models.SourceProposed: 0,
	}
	meta.RegionStoreCounts = make(map[string]int)
	meta.RegionTotalVisits = make(map[string]float64)
	meta.RegionAverageVisits = make(map[string]float64)

	visitCounts := make(map[string]int)
	for _, loc := range locations {
		region := RegionKey(loc)
		meta.RegionStoreCounts[region]++
		meta.SourceBreakdown[loc.SourceKind]++

		if loc.Rank != nil {
			meta.TotalRankedUS++
		}
		if loc.VisitCount != nil {
			meta.RegionTotalVisits[region] += *loc.VisitCount
			visitCounts[region]++
		}
	}

	for region, n := range visitCounts {
		meta.RegionAverageVisits[region] = meta.RegionTotalVisits[region] / float64(n)
	}
}

// Deduplicate removes proximity duplicates independently of matching.
// Locations are visited in source priority order; a location within the
// threshold of an already accepted one in the same city and region is
// dropped. Records without valid coordinates are never treated as duplicates.
func (s *MergeService) Deduplicate(locations []models.Location) []models.Location {
	sorted := make([]models.Location, len(locations))
	copy(sorted, locations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SourceKind.Priority() < sorted[j].SourceKind.Priority()
	})

	accepted := make([]models.Location, 0, len(sorted))
	groups := make(map[string][]int)
	removed := 0

	for _, loc := range sorted {
		group := loc.NormalizedCity() + "|" + loc.NormalizedRegion()
		duplicate := false

		if geo.IsValidCoordinate(loc.Latitude, loc.Longitude) {
			for _, idx := range groups[group] {
				other := accepted[idx]
				if !geo.IsValidCoordinate(other.Latitude, other.Longitude) {
					continue
				}
				distance := geo.Haversine(loc.Latitude, loc.Longitude, other.Latitude, other.Longitude)
				if distance <= s.dedupeThresholdMeters {
					log.Debug().
						Str("name", loc.Name).
						Str("kept", other.Name).
						Float64("distance_m", distance).
						Msg("duplicate location removed")
					duplicate = true
					break
				}
			}
		}

		if duplicate {
			removed++
			continue
		}
		groups[group] = append(groups[group], len(accepted))
		accepted = append(accepted, loc)
	}

	log.Info().
		Int("removed", removed).
		Int("kept", len(accepted)).
		Float64("threshold_m", s.dedupeThresholdMeters).
		Msg("deduplication complete")

	return accepted
}

// Validate reports data-quality problems without blocking.
func (s *MergeService) Validate(locations []models.Location) models.ValidationReport {
	report := models.ValidationReport{
		Errors:   []models.ValidationIssue{},
		Warnings: []models.ValidationIssue{},
	}

	for i, loc := range locations {
		issue := func(msg string) models.ValidationIssue {
			return models.ValidationIssue{Index: i, Name: loc.Name, Message: msg}
		}

		if strings.TrimSpace(loc.Name) == "" {
			report.Errors = append(report.Errors, issue("missing property name"))
		}
		if strings.TrimSpace(loc.City) == "" {
			report.Warnings = append(report.Warnings, issue("missing city"))
		}
		if strings.TrimSpace(loc.RegionCode) == "" {
			report.Warnings = append(report.Warnings, issue("missing state"))
		}
		if loc.Latitude == 0 && loc.Longitude == 0 {
			report.Errors = append(report.Errors, issue("invalid coordinates (0,0)"))
		} else if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			report.Errors = append(report.Errors, issue(fmt.Sprintf("coordinates out of range (%g, %g)", loc.Latitude, loc.Longitude)))
		}
	}

	report.Valid = len(report.Errors) == 0
	if !report.Valid || len(report.Warnings) > 0 {
		log.Warn().
			Int("errors", len(report.Errors)).
			Int("warnings", len(report.Warnings)).
			Msg("merged data has quality issues")
	}
	return report
}

// GroupByRegion splits a collection by region code, preserving order.
func GroupByRegion(locations []models.Location) map[string][]models.Location {
	groups := make(map[string][]models.Location)
	for _, loc := range locations {
		key := RegionKey(loc)
		groups[key] = append(groups[key], loc)
	}
	return groups
}

// Summary renders merge metadata as plain text.
func (s *MergeService) Summary(meta models.MergeMetadata) string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	b.WriteString(line + "\nMERGE SUMMARY\n" + line + "\n\n")
	b.WriteString("INPUT:\n")
	fmt.Fprintf(&b, "  Ranked locations:             %d\n", meta.RankedLocations)
	fmt.Fprintf(&b, "  Existing locations:           %d\n", meta.ExistingLocations)
	fmt.Fprintf(&b, "  Proposed locations:           %d\n\n", meta.ProposedTotal)
	b.WriteString("MATCHING:\n")
	fmt.Fprintf(&b, "  Matches found:                %d\n", meta.MatchesFound)
	fmt.Fprintf(&b, "  Proposed locations replaced:  %d\n", meta.ProposedReplaced)
	fmt.Fprintf(&b, "  Proposed locations kept:      %d\n\n", meta.ProposedKept)
	b.WriteString("OUTPUT:\n")
	fmt.Fprintf(&b, "  Total unique locations:       %d\n", meta.TotalLocations)
	fmt.Fprintf(&b, "  Ranked stores US:             %d\n", meta.TotalRankedUS)

	if len(meta.MatchDetails) > 0 {
		b.WriteString("\nREPLACED PROPOSED LOCATIONS:\n")
		for i, m := range meta.MatchDetails {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, m.ProposedName)
			fmt.Fprintf(&b, "     replaced with: %s\n", m.RankedName)
			fmt.Fprintf(&b, "     distance: %.1fm | confidence: %.0f%%\n", m.DistanceMeters, m.Confidence*100)
		}
	}
	if len(meta.UnmatchedProposed) > 0 {
		b.WriteString("\nPROPOSED LOCATIONS STILL PENDING:\n")
		for i, p := range meta.UnmatchedProposed {
			fmt.Fprintf(&b, "  %d. %s (%s, %s)\n", i+1, p.Name, p.City, p.State)
		}
	}
	b.WriteString(line + "\n")
	return b.String()
}
