package export

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"location-reconciler/internal/models"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Exporter writes one archive per region into a directory.
type Exporter struct {
	outputDir string
	geoJSON   bool
	workers   int
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithGeoJSON also writes a <REGION>.geojson next to each archive.
func WithGeoJSON(enabled bool) Option {
	return func(e *Exporter) {
		e.geoJSON = enabled
	}
}

// WithWorkers bounds how many regions are written at once.
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewExporter creates an Exporter rooted at outputDir.
func NewExporter(outputDir string, opts ...Option) *Exporter {
	e := &Exporter{outputDir: outputDir, workers: 4}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportRegions groups locations by region and writes <REGION>.kmz for each
// group. Every archive uses the nationwide figures from meta. The returned
// map is keyed by region.
func (e *Exporter) ExportRegions(ctx context.Context, locations []models.Location, meta models.MergeMetadata) (map[string]string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", e.outputDir)
	}

	groups := make(map[string][]models.Location)
	var regions []string
	for _, loc := range locations {
		key := loc.RegionKey()
		if _, ok := groups[key]; !ok {
			regions = append(regions, key)
		}
		groups[key] = append(groups[key], loc)
	}
	sort.Strings(regions)

	var (
		mu    sync.Mutex
		paths = make(map[string]string, len(regions))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, region := range regions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "export: cancelled")
			}

			group := groups[region]
			path := filepath.Join(e.outputDir, fileStem(region)+".kmz")
			if err := writeFileAtomic(path, func(f *os.File) error {
				return WriteKMZ(f, group, meta)
			}); err != nil {
				return eris.Wrapf(err, "export: region %s", region)
			}

			if e.geoJSON {
				raw, err := MarshalGeoJSON(group, meta)
				if err != nil {
					return err
				}
				gjPath := filepath.Join(e.outputDir, fileStem(region)+".geojson")
				if err := writeFileAtomic(gjPath, func(f *os.File) error {
					_, err := f.Write(raw)
					return err
				}); err != nil {
					return eris.Wrapf(err, "export: region %s geojson", region)
				}
			}

			mu.Lock()
			paths[region] = path
			mu.Unlock()

			log.Info().Str("region", region).Int("locations", len(group)).Str("path", path).Msg("wrote region archive")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return paths, nil
}

func fileStem(region string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(region)
}

// writeFileAtomic writes through a temp file in the same directory and
// renames it into place.
func writeFileAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
