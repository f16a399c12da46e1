// Package pipeline runs one reconciliation pass: match ranked records
// against planning placemarks, merge the sources, resolve counties and write
// the per-region archives.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"location-reconciler/internal/county"
	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/export"
	"location-reconciler/internal/models"
	"location-reconciler/internal/service"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// Stage names reported to progress callbacks and carried by failures.
const (
	StageParse  = "parse"
	StageMatch  = "match"
	StageMerge  = "merge"
	StageEnrich = "enrich"
	StageExport = "export"
	StageDone   = "done"
)

var stageProgress = map[string]int{
	StageParse:  10,
	StageMatch:  40,
	StageMerge:  60,
	StageEnrich: 80,
	StageExport: 90,
	StageDone:   100,
}

// ProgressFunc receives the stage that just finished and the overall
// percentage.
type ProgressFunc func(stage string, percent int)

// Enricher fills in county names. *county.Resolver satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, locations []models.Location) []models.Location
	Stats() county.Stats
}

// Options control a single run.
type Options struct {
	OutputDir             string
	DateRange             string
	MatchThresholdMeters  float64
	DedupeThresholdMeters float64
	// Deduplicate applies proximity deduplication after the merge.
	Deduplicate           bool
	GeoJSON               bool
	ExportWorkers         int
	Progress              ProgressFunc
}

// Result is everything a run produced.
type Result struct {
	Locations  []models.Location       `json:"-"`
	Metadata   models.MergeMetadata    `json:"metadata"`
	Archives   map[string]string       `json:"archives"`
	Validation models.ValidationReport `json:"validation"`
	MatchStats models.MatchStats       `json:"match_stats"`
	ReportPath string                  `json:"report_path"`
}

func (o Options) report(stage string) {
	if o.Progress != nil {
		o.Progress(stage, stageProgress[stage])
	}
}

// Run executes match, merge, enrich and export in order over already parsed
// inputs. resolver may be nil, in which case counties are left as supplied.
func Run(ctx context.Context, ranked []models.RankedRecord, placemarks []models.Placemark, opts Options, resolver Enricher) (*Result, error) {
	if opts.OutputDir == "" {
		return nil, apperrors.NewProcessingError(StageExport, "no output directory", apperrors.ErrInvalidInput)
	}
	if opts.DateRange == "" {
		opts.DateRange = models.DefaultDateRange
	}
	start := time.Now()

	rankedLocs := make([]models.Location, 0, len(ranked))
	for _, r := range ranked {
		rankedLocs = append(rankedLocs, r.ToLocation())
	}
	var existing, proposed []models.Location
	for _, p := range placemarks {
		loc := p.ToLocation()
		if loc.SourceKind == models.SourceProposed {
			proposed = append(proposed, loc)
		} else {
			existing = append(existing, loc)
		}
	}
	opts.report(StageParse)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled before match")
	}
	matcher := service.NewMatchService(opts.MatchThresholdMeters)
	set := matcher.FindMatches(rankedLocs, proposed)
	stats := matcher.Statistics(set)
	log.Info().
		Int("matches", stats.TotalMatches).
		Int("unmatched_ranked", stats.UnmatchedRanked).
		Int("unmatched_proposed", stats.UnmatchedProposed).
		Msg("matching complete")
	opts.report(StageMatch)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled before merge")
	}
	merger := service.NewMergeService(opts.DedupeThresholdMeters)
	outcome := merger.Merge(rankedLocs, existing, proposed, set.Matches)
	locations := outcome.Locations
	meta := outcome.Metadata
	if opts.Deduplicate {
		locations = merger.Deduplicate(locations)
		aggregates := merger.ComputeAggregates(locations)
		meta.TotalLocations = aggregates.TotalLocations
		meta.TotalStoresUS = aggregates.TotalStoresUS
		meta.TotalRankedUS = aggregates.TotalRankedUS
		meta.SourceBreakdown = aggregates.SourceBreakdown
		meta.RegionStoreCounts = aggregates.RegionStoreCounts
		meta.RegionTotalVisits = aggregates.RegionTotalVisits
		meta.RegionAverageVisits = aggregates.RegionAverageVisits
	}
	meta.DateRange = opts.DateRange
	opts.report(StageMerge)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled before enrichment")
	}
	if resolver != nil {
		locations = resolver.Enrich(ctx, locations)
	}
	opts.report(StageEnrich)

	validation := merger.Validate(locations)

	exporter := export.NewExporter(opts.OutputDir, export.WithGeoJSON(opts.GeoJSON), export.WithWorkers(opts.ExportWorkers))
	archives, err := exporter.ExportRegions(ctx, locations, meta)
	if err != nil {
		return nil, apperrors.NewProcessingError(StageExport, "failed to write archives", err)
	}
	opts.report(StageExport)

	rep := export.Report{
		GeneratedAt: time.Now().UTC(),
		DateRange:   meta.DateRange,
		Archives:    make(map[string]string, len(archives)),
		Merge:       meta,
		Matching:    stats,
		Validation:  validation,
	}
	for region, path := range archives {
		rep.Archives[region] = filepath.Base(path)
	}
	if resolver != nil {
		rep.Counties = resolver.Stats()
	}
	reportPath := filepath.Join(opts.OutputDir, export.ReportName)
	if err := export.WriteReport(reportPath, rep); err != nil {
		return nil, apperrors.NewProcessingError(StageExport, "failed to write report", err)
	}
	opts.report(StageDone)

	log.Info().
		Int("locations", len(locations)).
		Int("archives", len(archives)).
		Dur("elapsed", time.Since(start)).
		Msg("pipeline complete")

	return &Result{
		Locations:  locations,
		Metadata:   meta,
		Archives:   archives,
		Validation: validation,
		MatchStats: stats,
		ReportPath: reportPath,
	}, nil
}
