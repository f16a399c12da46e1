package models

// Confidence tiers assigned by the matcher.
const (
	ConfidenceHigh   = 1.0
	ConfidenceMedium = 0.8
	ConfidenceLow    = 0.6
	ConfidenceNone   = 0.0
)

// MatchResult pairs a ranked location with the proposed placemark it claims.
// Indexes point into the slices handed to the matcher.
type MatchResult struct {
	RankedIndex    int      `json:"ranked_index"`
	ProposedIndex  int      `json:"proposed_index"`
	Ranked         Location `json:"ranked"`
	Proposed       Location `json:"proposed"`
	Confidence     float64  `json:"confidence"`
	DistanceMeters float64  `json:"distance_meters"`
}

// MatchSet is the full output of one matcher pass.
type MatchSet struct {
	Matches           []MatchResult
	UnmatchedRanked   []Location
	UnmatchedProposed []Location
}

// DistanceBuckets counts matches per distance band.
type DistanceBuckets struct {
	Under50  int `json:"0-50m" yaml:"0-50m"`
	Under100 int `json:"50-100m" yaml:"50-100m"`
	Under200 int `json:"100-200m" yaml:"100-200m"`
	Under500 int `json:"200-500m" yaml:"200-500m"`
	Over500  int `json:"500m+" yaml:"500m+"`
}

// MatchStats summarises a matcher pass.
type MatchStats struct {
	TotalMatches          int             `json:"total_matches" yaml:"total_matches"`
	UnmatchedRanked       int             `json:"unmatched_ranked" yaml:"unmatched_ranked"`
	UnmatchedProposed     int             `json:"unmatched_proposed" yaml:"unmatched_proposed"`
	AverageDistanceMeters float64         `json:"average_distance_meters" yaml:"average_distance_meters"`
	AverageConfidence     float64         `json:"average_confidence" yaml:"average_confidence"`
	HighConfidence        int             `json:"high_confidence" yaml:"high_confidence"`
	MediumConfidence      int             `json:"medium_confidence" yaml:"medium_confidence"`
	LowConfidence         int             `json:"low_confidence" yaml:"low_confidence"`
	DistanceBuckets       DistanceBuckets `json:"distance_buckets" yaml:"distance_buckets"`
}
