package service

import (
	"fmt"
	"strings"

	"location-reconciler/internal/geo"
	"location-reconciler/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultMatchThresholdMeters is used when no threshold is supplied.
const DefaultMatchThresholdMeters = 200.0

// MatchService pairs ranked locations with proposed placemarks
type MatchService struct {
	thresholdMeters float64
}

// NewMatchService creates a new match service
func NewMatchService(thresholdMeters float64) *MatchService {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultMatchThresholdMeters
	}
	return &MatchService{thresholdMeters: thresholdMeters}
}

// Threshold returns the configured maximum match distance.
func (s *MatchService) Threshold() float64 {
	return s.thresholdMeters
}

// ConfidenceFor maps a distance onto the fixed confidence tiers.
// The threshold only bounds the lowest tier.
func ConfidenceFor(distanceMeters, thresholdMeters float64) float64 {
	switch {
	case distanceMeters <= 50:
		return models.ConfidenceHigh
	case distanceMeters <= 200:
		return models.ConfidenceMedium
	case distanceMeters <= thresholdMeters:
		return models.ConfidenceLow
	default:
		return models.ConfidenceNone
	}
}

// Compare checks a single ranked/proposed pair. It returns the confidence and
// distance; a confidence of zero means the pair is not eligible.
func (s *MatchService) Compare(ranked, proposed models.Location) (float64, float64) {
	city := ranked.NormalizedCity()
	if city == "" || city != proposed.NormalizedCity() {
		return models.ConfidenceNone, 0
	}
	region := ranked.NormalizedRegion()
	if region == "" || region != proposed.NormalizedRegion() {
		return models.ConfidenceNone, 0
	}
	if !geo.IsValidCoordinate(ranked.Latitude, ranked.Longitude) ||
		!geo.IsValidCoordinate(proposed.Latitude, proposed.Longitude) {
		return models.ConfidenceNone, 0
	}

	distance := geo.Haversine(ranked.Latitude, ranked.Longitude, proposed.Latitude, proposed.Longitude)
	return ConfidenceFor(distance, s.thresholdMeters), distance
}

// FindMatches produces a greedy 1:1 assignment. Ranked locations are visited
// in order; each claims its highest-confidence unclaimed candidate.
func (s *MatchService) FindMatches(ranked, proposed []models.Location) models.MatchSet {
	claimed := make([]bool, len(proposed))
	set := models.MatchSet{}

	for ri, r := range ranked {
		best := -1
		bestConfidence := models.ConfidenceNone
		bestDistance := 0.0

		for pi, p := range proposed {
			if claimed[pi] {
				continue
			}
			confidence, distance := s.Compare(r, p)
			if confidence > bestConfidence {
				best = pi
				bestConfidence = confidence
				bestDistance = distance
			}
		}

		if best < 0 {
			set.UnmatchedRanked = append(set.UnmatchedRanked, r)
			continue
		}

		claimed[best] = true
		set.Matches = append(set.Matches, models.MatchResult{
			RankedIndex:    ri,
			ProposedIndex:  best,
			Ranked:         r,
			Proposed:       proposed[best],
			Confidence:     bestConfidence,
			DistanceMeters: bestDistance,
		})
		log.Debug().
			Str("ranked", r.Name).
			Str("proposed", proposed[best].Name).
			Float64("distance_m", bestDistance).
			Float64("confidence", bestConfidence).
			Msg("matched proposed location")
	}

	for pi, p := range proposed {
		if !claimed[pi] {
			set.UnmatchedProposed = append(set.UnmatchedProposed, p)
		}
	}

	return set
}

// Statistics summarises a match set.
func (s *MatchService) Statistics(set models.MatchSet) models.MatchStats {
	stats := models.MatchStats{
		TotalMatches:      len(set.Matches),
		UnmatchedRanked:   len(set.UnmatchedRanked),
		UnmatchedProposed: len(set.UnmatchedProposed),
	}
	if len(set.Matches) == 0 {
		return stats
	}

	var distanceSum, confidenceSum float64
	for _, m := range set.Matches {
		distanceSum += m.DistanceMeters
		confidenceSum += m.Confidence

		switch {
		case m.Confidence >= 0.9:
			stats.HighConfidence++
		case m.Confidence >= 0.7:
			stats.MediumConfidence++
		default:
			stats.LowConfidence++
		}

		switch d := m.DistanceMeters; {
		case d <= 50:
			stats.DistanceBuckets.Under50++
		case d <= 100:
			stats.DistanceBuckets.Under100++
		case d <= 200:
			stats.DistanceBuckets.Under200++
		case d <= 500:
			stats.DistanceBuckets.Under500++
		default:
			stats.DistanceBuckets.Over500++
		}
	}

	total := float64(len(set.Matches))
	stats.AverageDistanceMeters = distanceSum / total
	stats.AverageConfidence = confidenceSum / total
	return stats
}

// Report renders a plain-text summary of a match set.
func (s *MatchService) Report(set models.MatchSet) string {
	stats := s.Statistics(set)

	var b strings.Builder
	b.WriteString("LOCATION MATCHING REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Total Matches: %d\n", stats.TotalMatches)
	fmt.Fprintf(&b, "Unmatched Ranked: %d\n", stats.UnmatchedRanked)
	fmt.Fprintf(&b, "Unmatched Proposed: %d\n", stats.UnmatchedProposed)
	fmt.Fprintf(&b, "Average Distance: %.1fm\n", stats.AverageDistanceMeters)
	fmt.Fprintf(&b, "Average Confidence: %.0f%%\n", stats.AverageConfidence*100)
	b.WriteString("\nConfidence Breakdown:\n")
	fmt.Fprintf(&b, "  High (>=90%%):    %d matches\n", stats.HighConfidence)
	fmt.Fprintf(&b, "  Medium (70-89%%): %d matches\n", stats.MediumConfidence)
	fmt.Fprintf(&b, "  Low (<70%%):      %d matches\n", stats.LowConfidence)

	if len(set.Matches) > 0 {
		b.WriteString("\nMatch Details:\n")
		b.WriteString(strings.Repeat("-", 60) + "\n")
	}
	for i, m := range set.Matches {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Ranked.Name)
		fmt.Fprintf(&b, "   -> %s\n", m.Proposed.Name)
		fmt.Fprintf(&b, "   Distance: %.1fm | Confidence: %.0f%%\n", m.DistanceMeters, m.Confidence*100)
	}

	return b.String()
}
