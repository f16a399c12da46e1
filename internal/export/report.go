package export

import (
	"os"
	"time"

	"location-reconciler/internal/county"
	"location-reconciler/internal/models"

	"github.com/goccy/go-yaml"
	"github.com/rotisserie/eris"
)

// ReportName is the run summary written next to the archives.
const ReportName = "report.yaml"

// Report summarises one pipeline run.
type Report struct {
	GeneratedAt time.Time               `yaml:"generated_at"`
	DateRange   string                  `yaml:"date_range"`
	Archives    map[string]string       `yaml:"archives"`
	Merge       models.MergeMetadata    `yaml:"merge"`
	Matching    models.MatchStats       `yaml:"matching"`
	Validation  models.ValidationReport `yaml:"validation"`
	Counties    county.Stats            `yaml:"counties"`
}

// WriteReport encodes r as YAML at path.
func WriteReport(path string, r Report) error {
	raw, err := yaml.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "export: marshal report")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadReport decodes a report written by WriteReport.
func ReadReport(path string) (Report, error) {
	var r Report
	raw, err := os.ReadFile(path)
	if err != nil {
		return r, eris.Wrapf(err, "export: read %s", path)
	}
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return r, eris.Wrapf(err, "export: decode %s", path)
	}
	return r, nil
}
