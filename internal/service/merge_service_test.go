package service

import (
	"testing"

	"location-reconciler/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestMergeService_Merge(t *testing.T) {
	ranked := []models.Location{
		rankedLoc("7 Brew Coffee", "Athens", "GA", 33.9390, -83.4536),
		rankedLoc("7 Brew Coffee", "Macon", "GA", 32.8407, -83.6324),
	}
	ranked[0].VisitCount = floatPtr(100000)
	ranked[1].VisitCount = floatPtr(50000)
	existing := []models.Location{
		planningLoc("7 Brew Coffee - Nashville", "Nashville", "TN", 36.1627, -86.7816, models.SourceExisting),
	}
	proposed := []models.Location{
		planningLoc("7 Brew Coffee-Athens, GA (proposed)", "Athens", "GA", 33.9389, -83.4535, models.SourceProposed),
		planningLoc("7 Brew Coffee-Knoxville, TN (u/c)", "Knoxville", "TN", 35.9606, -83.9207, models.SourceProposed),
	}

	matches := NewMatchService(200).FindMatches(ranked, proposed).Matches
	require.Len(t, matches, 1)

	outcome := NewMergeService(50).Merge(ranked, existing, proposed, matches)

	require.Len(t, outcome.Locations, 4)
	meta := outcome.Metadata
	assert.Equal(t, 1, meta.MatchesFound)
	assert.Equal(t, 4, meta.TotalLocations)
	assert.Equal(t, 2, meta.RankedLocations)
	assert.Equal(t, 1, meta.ExistingLocations)
	assert.Equal(t, 2, meta.ProposedTotal)
	assert.Equal(t, 1, meta.ProposedKept)
	assert.Equal(t, 1, meta.ProposedReplaced)
	assert.Equal(t, map[models.SourceKind]int{
		models.SourceRanked:   2,
		models.SourceExisting: 1,
		models.SourceProposed: 1,
	}, meta.SourceBreakdown)
	assert.Equal(t, map[string]int{"GA": 2, "TN": 2}, meta.RegionStoreCounts)
	assert.Equal(t, 150000.0, meta.RegionTotalVisits["GA"])
	assert.Equal(t, 75000.0, meta.RegionAverageVisits["GA"])
	_, hasTN := meta.RegionAverageVisits["TN"]
	assert.False(t, hasTN)
	assert.Equal(t, 2, meta.TotalRankedUS)
	assert.Equal(t, 4, meta.TotalStoresUS)

	require.Len(t, meta.MatchDetails, 1)
	assert.Equal(t, "7 Brew Coffee-Athens, GA (proposed)", meta.MatchDetails[0].ProposedName)
	require.Len(t, meta.UnmatchedProposed, 1)
	assert.Equal(t, "7 Brew Coffee-Knoxville, TN (u/c)", meta.UnmatchedProposed[0].Name)
	assert.Equal(t, pendingReason, meta.UnmatchedProposed[0].Reason)

	athens := outcome.Locations[0]
	require.NotNil(t, athens.ReplacedBy)
	assert.Equal(t, "7 Brew Coffee-Athens, GA (proposed)", athens.ReplacedBy.Name)
	assert.Equal(t, 1.0, athens.ReplacedBy.Confidence)
	assert.Nil(t, outcome.Locations[1].ReplacedBy)
}

func TestMergeService_Merge_ProposedMembership(t *testing.T) {
	ranked := []models.Location{
		rankedLoc("A", "Athens", "GA", 33.9390, -83.4536),
		rankedLoc("B", "Macon", "GA", 32.8407, -83.6324),
		rankedLoc("C", "Savannah", "GA", 32.0809, -81.0912),
	}
	proposed := []models.Location{
		planningLoc("A (proposed)", "Athens", "GA", 33.9391, -83.4536, models.SourceProposed),
		planningLoc("D (planned)", "Augusta", "GA", 33.4735, -82.0105, models.SourceProposed),
		planningLoc("C (future)", "Savannah", "GA", 32.0810, -81.0912, models.SourceProposed),
		planningLoc("E (pending)", "Athens", "GA", 33.9800, -83.4536, models.SourceProposed),
	}

	set := NewMatchService(200).FindMatches(ranked, proposed)
	outcome := NewMergeService(50).Merge(ranked, nil, proposed, set.Matches)

	claimed := make(map[string]bool)
	for _, m := range set.Matches {
		claimed[m.Proposed.Name] = true
	}

	emitted := make(map[string]bool)
	for _, loc := range outcome.Locations {
		if loc.SourceKind == models.SourceProposed {
			emitted[loc.Name] = true
			assert.Nil(t, loc.ReplacedBy)
			assert.False(t, loc.IsActual)
		}
	}

	for _, p := range proposed {
		assert.NotEqual(t, claimed[p.Name], emitted[p.Name], p.Name)
	}
	assert.Len(t, outcome.Locations, len(ranked)+len(proposed)-len(set.Matches))
}

func TestMergeService_Deduplicate(t *testing.T) {
	tests := []struct {
		name     string
		input    []models.Location
		expected []string
	}{
		{
			name: "ranked wins over nearby proposed regardless of order",
			input: []models.Location{
				planningLoc("Proposed", "Athens", "GA", 33.93900, -83.45360, models.SourceProposed),
				rankedLoc("Ranked", "Athens", "GA", 33.93905, -83.45360),
			},
			expected: []string{"Ranked"},
		},
		{
			name: "existing wins over proposed",
			input: []models.Location{
				planningLoc("Proposed", "Athens", "GA", 33.9390, -83.4536, models.SourceProposed),
				planningLoc("Existing", "Athens", "GA", 33.9390, -83.4537, models.SourceExisting),
			},
			expected: []string{"Existing"},
		},
		{
			name: "different city keeps both",
			input: []models.Location{
				rankedLoc("Ranked", "Athens", "GA", 33.9390, -83.4536),
				planningLoc("Proposed", "Winterville", "GA", 33.9390, -83.4536, models.SourceProposed),
			},
			expected: []string{"Ranked", "Proposed"},
		},
		{
			name: "far apart keeps both",
			input: []models.Location{
				rankedLoc("Ranked", "Athens", "GA", 33.9390, -83.4536),
				planningLoc("Proposed", "Athens", "GA", 33.9450, -83.4536, models.SourceProposed),
			},
			expected: []string{"Ranked", "Proposed"},
		},
		{
			name: "invalid coordinates are never duplicates",
			input: []models.Location{
				rankedLoc("Ranked", "Athens", "GA", 0, 0),
				planningLoc("Proposed", "Athens", "GA", 0, 0, models.SourceProposed),
			},
			expected: []string{"Ranked", "Proposed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMergeService(50).Deduplicate(tt.input)

			names := make([]string, 0, len(got))
			for _, loc := range got {
				names = append(names, loc.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestMergeService_Validate(t *testing.T) {
	locations := []models.Location{
		rankedLoc("Good", "Athens", "GA", 33.9390, -83.4536),
		rankedLoc("", "Athens", "GA", 33.9390, -83.4536),
		rankedLoc("No City", "", "", 33.9390, -83.4536),
		rankedLoc("Null Island", "Athens", "GA", 0, 0),
		rankedLoc("Out Of Range", "Athens", "GA", 95, -83.4536),
	}

	report := NewMergeService(50).Validate(locations)

	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 3)
	assert.Equal(t, 1, report.Errors[0].Index)
	assert.Equal(t, "missing property name", report.Errors[0].Message)
	assert.Equal(t, "Null Island", report.Errors[1].Name)
	assert.Equal(t, "Out Of Range", report.Errors[2].Name)
	require.Len(t, report.Warnings, 2)
	assert.Equal(t, "missing city", report.Warnings[0].Message)
	assert.Equal(t, "missing state", report.Warnings[1].Message)

	clean := NewMergeService(50).Validate(locations[:1])
	assert.True(t, clean.Valid)
	assert.Empty(t, clean.Errors)
}

func TestGroupByRegion(t *testing.T) {
	locations := []models.Location{
		rankedLoc("A", "Athens", "GA", 33.9, -83.4),
		rankedLoc("B", "Nashville", "tn", 36.1, -86.7),
		rankedLoc("C", "Somewhere", "", 36.1, -86.7),
		rankedLoc("D", "Macon", "GA", 32.8, -83.6),
	}

	groups := GroupByRegion(locations)

	require.Len(t, groups, 3)
	assert.Len(t, groups["GA"], 2)
	assert.Equal(t, "D", groups["GA"][1].Name)
	assert.Len(t, groups["TN"], 1)
	assert.Len(t, groups[models.UnknownRegion], 1)
}

func TestMergeService_Summary(t *testing.T) {
	svc := NewMergeService(50)
	meta := models.MergeMetadata{
		RankedLocations: 2,
		MatchesFound:    1,
		TotalLocations:  3,
		MatchDetails:    []models.MatchDetail{{RankedName: "A", ProposedName: "A (proposed)", DistanceMeters: 12.3, Confidence: 1}},
		UnmatchedProposed: []models.PendingProposed{
			{Name: "B (planned)", City: "Macon", State: "GA", Reason: pendingReason},
		},
	}

	summary := svc.Summary(meta)

	assert.Contains(t, summary, "MERGE SUMMARY")
	assert.Contains(t, summary, "replaced with: A")
	assert.Contains(t, summary, "B (planned) (Macon, GA)")
}
