package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"location-reconciler/internal/ingest"
	"location-reconciler/internal/pipeline"
	"location-reconciler/internal/service"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type runFlags struct {
	ranked    []string
	planning  string
	output    string
	dateRange string
	threshold float64
	regions   []string
	dedupe    bool
	geoJSON   bool
	noCounty  bool
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match, merge, enrich and export one set of inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			in := pipeline.Inputs{RankedPaths: f.ranked, PlanningPath: f.planning}
			if len(f.regions) > 0 {
				in.Regions = make(map[string][]string, len(f.ranked))
				for _, p := range f.ranked {
					in.Regions[filepath.Base(p)] = f.regions
				}
			}

			opts := pipeline.Options{
				OutputDir:             f.output,
				DateRange:             f.dateRange,
				MatchThresholdMeters:  cfg.Match.ThresholdMeters,
				DedupeThresholdMeters: cfg.Dedupe.ThresholdMeters,
				Deduplicate:           f.dedupe || cfg.Dedupe.Enabled,
				GeoJSON:               f.geoJSON || cfg.Report.GeoJSON,
			}
			if opts.OutputDir == "" {
				opts.OutputDir = cfg.Storage.Outputs
			}
			if opts.DateRange == "" {
				opts.DateRange = dateRangeFor(f.ranked, cfg.Report.DateRange)
			}
			if cmd.Flags().Changed("threshold") {
				opts.MatchThresholdMeters = f.threshold
			}

			var enricher pipeline.Enricher
			if !f.noCounty {
				resolver, err := openResolver(ctx)
				if err != nil {
					return err
				}
				defer resolver.Close()
				enricher = resolver
			}

			result, err := pipeline.RunFiles(ctx, in, opts, enricher)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, service.NewMergeService(opts.DedupeThresholdMeters).Summary(result.Metadata))
			fmt.Fprintf(out, "\nMatches: %d (avg %.1f m)\n", result.MatchStats.TotalMatches, result.MatchStats.AverageDistanceMeters)
			if !result.Validation.Valid {
				fmt.Fprintf(out, "Validation: %d errors, %d warnings\n", len(result.Validation.Errors), len(result.Validation.Warnings))
			}

			regions := make([]string, 0, len(result.Archives))
			for region := range result.Archives {
				regions = append(regions, region)
			}
			sort.Strings(regions)
			fmt.Fprintf(out, "\nArchives (%s locations):\n", humanize.Comma(int64(len(result.Locations))))
			for _, region := range regions {
				fmt.Fprintf(out, "  %-8s %s\n", region, result.Archives[region])
			}
			fmt.Fprintf(out, "Report: %s\n", result.ReportPath)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&f.ranked, "ranked", nil, "ranked-metrics export (.csv or .xlsx), repeatable")
	cmd.Flags().StringVar(&f.planning, "planning", "", "planning export (.kmz or .kml)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output directory (defaults to storage.outputs)")
	cmd.Flags().StringVar(&f.dateRange, "date-range", "", "reporting period (file names, then report.date_range, when empty)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 200, "maximum match distance in meters")
	cmd.Flags().StringSliceVar(&f.regions, "region", nil, "keep only these State Codes")
	cmd.Flags().BoolVar(&f.dedupe, "dedupe", false, "apply proximity deduplication after the merge")
	cmd.Flags().BoolVar(&f.geoJSON, "geojson", false, "also write a GeoJSON file per region")
	cmd.Flags().BoolVar(&f.noCounty, "no-county", false, "skip county resolution")
	_ = cmd.MarkFlagRequired("ranked")

	return cmd
}

// dateRangeFor prefers a period carried by the ranked file names and falls
// back to the configured one.
func dateRangeFor(paths []string, configured string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	if dr, ok := ingest.FindDateRange(names...); ok {
		return dr
	}
	return configured
}
