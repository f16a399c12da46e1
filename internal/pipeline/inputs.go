package pipeline

import (
	"context"
	"path/filepath"

	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/ingest"
	"location-reconciler/internal/models"
)

// Inputs names the files one run reads.
type Inputs struct {
	RankedPaths  []string
	// PlanningPath is an optional .kmz or .kml planning export.
	PlanningPath string
	// Regions optionally restricts each ranked file, keyed by file base name.
	Regions      map[string][]string
}

// Load parses the ranked exports and the planning file. Input-shape
// failures come back as a ProcessingError for the parse stage.
func Load(ctx context.Context, in Inputs) ([]models.RankedRecord, []models.Placemark, error) {
	if len(in.RankedPaths) == 0 {
		return nil, nil, apperrors.NewProcessingError(StageParse, "no ranked export supplied", apperrors.ErrInvalidInput)
	}

	ranked, err := ingest.ReadRankedFiles(in.RankedPaths, in.Regions)
	if err != nil {
		return nil, nil, apperrors.NewProcessingError(StageParse, "failed to read ranked export", err)
	}

	var placemarks []models.Placemark
	if in.PlanningPath != "" {
		placemarks, err = ingest.ReadPlanningFile(ctx, in.PlanningPath)
		if err != nil {
			return nil, nil, apperrors.NewProcessingError(StageParse, "failed to read planning export", err)
		}
	}

	return ranked, placemarks, nil
}

// RunFiles loads in and runs the pipeline. When opts carries no date range
// it is inferred from the ranked file names.
func RunFiles(ctx context.Context, in Inputs, opts Options, resolver Enricher) (*Result, error) {
	ranked, placemarks, err := Load(ctx, in)
	if err != nil {
		return nil, err
	}
	if opts.DateRange == "" {
		names := make([]string, len(in.RankedPaths))
		for i, p := range in.RankedPaths {
			names[i] = filepath.Base(p)
		}
		opts.DateRange = ingest.InferDateRange(names...)
	}
	return Run(ctx, ranked, placemarks, opts, resolver)
}
