package models

// MatchDetail is the metadata view of one match.
type MatchDetail struct {
	RankedName     string  `json:"ranked_name" yaml:"ranked_name"`
	ProposedName   string  `json:"proposed_name" yaml:"proposed_name"`
	DistanceMeters float64 `json:"distance_meters" yaml:"distance_meters"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
}

// PendingProposed is a proposed placemark kept because nothing claimed it.
type PendingProposed struct {
	Name   string `json:"name" yaml:"name"`
	City   string `json:"city" yaml:"city"`
	State  string `json:"state" yaml:"state"`
	Reason string `json:"reason" yaml:"reason"`
}

// MergeMetadata carries counts and aggregates computed once per merge.
type MergeMetadata struct {
	TotalLocations      int                `json:"total_locations" yaml:"total_locations"`
	RankedLocations     int                `json:"ranked_locations" yaml:"ranked_locations"`
	ExistingLocations   int                `json:"existing_locations" yaml:"existing_locations"`
	ProposedTotal       int                `json:"proposed_total" yaml:"proposed_total"`
	ProposedKept        int                `json:"proposed_kept" yaml:"proposed_kept"`
	MatchesFound        int                `json:"matches_found" yaml:"matches_found"`
	ProposedReplaced    int                `json:"proposed_replaced" yaml:"proposed_replaced"`
	MatchDetails        []MatchDetail      `json:"match_details" yaml:"match_details"`
	UnmatchedProposed   []PendingProposed  `json:"unmatched_proposed" yaml:"unmatched_proposed"`
	SourceBreakdown     map[SourceKind]int `json:"source_breakdown" yaml:"source_breakdown"`
	RegionStoreCounts   map[string]int     `json:"region_store_counts" yaml:"region_store_counts"`
	RegionTotalVisits   map[string]float64 `json:"region_total_visits" yaml:"region_total_visits"`
	RegionAverageVisits map[string]float64 `json:"region_average_visits" yaml:"region_average_visits"`
	TotalRankedUS       int                `json:"total_ranked_us" yaml:"total_ranked_us"`
	TotalStoresUS       int                `json:"total_stores_us" yaml:"total_stores_us"`
	DateRange           string             `json:"date_range" yaml:"date_range"`
}

// MergeOutcome is the deduplicated collection plus its metadata.
type MergeOutcome struct {
	Locations []Location    `json:"locations"`
	Metadata  MergeMetadata `json:"metadata"`
}

// ValidationIssue describes one data-quality finding.
type ValidationIssue struct {
	Index   int    `json:"index" yaml:"index"`
	Name    string `json:"name" yaml:"name"`
	Message string `json:"message" yaml:"message"`
}

// ValidationReport lists data-quality findings. It never blocks a run.
type ValidationReport struct {
	Valid    bool              `json:"valid" yaml:"valid"`
	Errors   []ValidationIssue `json:"errors" yaml:"errors"`
	Warnings []ValidationIssue `json:"warnings" yaml:"warnings"`
}
