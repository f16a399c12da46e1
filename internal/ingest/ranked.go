// Package ingest turns the ranked-metrics export and the planning export into
// the record shapes the reconciliation pipeline consumes.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/models"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// RequiredRankedColumns must all be present in a ranked-metrics header.
var RequiredRankedColumns = []string{
	"Rank",
	"Property Name",
	"Latitude",
	"Longitude",
	"City",
	"State",
	"State Code",
	"Zip Code",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// rankedRow mirrors the export columns the pipeline reads. Every column is
// decoded as text and cleaned afterwards so one bad cell never fails a row.
type rankedRow struct {
	Rank         string `csv:"Rank"`
	PropertyName string `csv:"Property Name"`
	Address      string `csv:"Address,omitempty"`
	Latitude     string `csv:"Latitude"`
	Longitude    string `csv:"Longitude"`
	City         string `csv:"City"`
	State        string `csv:"State"`
	StateCode    string `csv:"State Code"`
	ZipCode      string `csv:"Zip Code"`
	Visits       string `csv:"Visits,omitempty"`
	SquareFeet   string `csv:"sq ft,omitempty"`
	VisitsPerSF  string `csv:"Visits / sq ft,omitempty"`
}

// RankedOptions configures ranked-metrics parsing.
type RankedOptions struct {
	// Source names the input in errors and logs.
	Source  string
	// Regions keeps only rows whose State Code is listed. Empty keeps all.
	Regions []string
}

// ReadRankedCSV parses a ranked-metrics CSV export.
func ReadRankedCSV(r io.Reader, opts RankedOptions) ([]models.RankedRecord, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, eris.Wrap(err, "ingest: skip byte order mark")
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return decodeRanked(reader, opts)
}

// ReadRankedFile parses one ranked export from disk. Files ending in .xlsx
// are read as workbooks, everything else as CSV.
func ReadRankedFile(path string, opts RankedOptions) ([]models.RankedRecord, error) {
	if opts.Source == "" {
		opts.Source = filepath.Base(path)
	}

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		return decodeRanked(&rowReader{rows: rows}, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	return ReadRankedCSV(f, opts)
}

// ReadRankedFiles parses several exports and concatenates them in order.
// regions maps a file's base name to the State Codes kept from it.
func ReadRankedFiles(paths []string, regions map[string][]string) ([]models.RankedRecord, error) {
	var all []models.RankedRecord
	for _, path := range paths {
		opts := RankedOptions{Source: filepath.Base(path), Regions: regions[filepath.Base(path)]}
		records, err := ReadRankedFile(path, opts)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", opts.Source).Int("locations", len(records)).Msg("parsed ranked export")
		all = append(all, records...)
	}
	return all, nil
}

func decodeRanked(reader csvutil.Reader, opts RankedOptions) ([]models.RankedRecord, error) {
	source := opts.Source
	if source == "" {
		source = "ranked export"
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.NewShapeError(source, RequiredRankedColumns...)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s header", source)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	if missing := missingColumns(header, RequiredRankedColumns); len(missing) > 0 {
		return nil, apperrors.NewShapeError(source, missing...)
	}

	dec, err := csvutil.NewDecoder(reader, header...)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: decode %s", source)
	}

	keep := regionSet(opts.Regions)

	var records []models.RankedRecord
	line := 1
	for {
		line++
		var row rankedRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				break
			}
			log.Warn().Err(err).Str("source", source).Int("line", line).Msg("skipping unreadable row")
			continue
		}

		rec := row.clean(source, line)
		if rec.PropertyName == "" {
			continue
		}
		if keep != nil && !keep[rec.StateCode] {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func (row rankedRow) clean(source string, line int) models.RankedRecord {
	field := func(name, raw string) *float64 {
		v, ok, present := parseNumber(raw)
		if present && !ok {
			log.Warn().Str("source", source).Int("line", line).Str("field", name).Str("value", raw).Msg("unparseable number")
		}
		if !ok {
			return nil
		}
		return &v
	}

	rec := models.RankedRecord{
		PropertyName: strings.TrimSpace(row.PropertyName),
		Address:      strings.TrimSpace(row.Address),
		City:         strings.TrimSpace(row.City),
		State:        strings.TrimSpace(row.State),
		StateCode:    strings.ToUpper(strings.TrimSpace(row.StateCode)),
		ZipCode:      strings.TrimSpace(row.ZipCode),
		Latitude:     field("Latitude", row.Latitude),
		Longitude:    field("Longitude", row.Longitude),
		Visits:       field("Visits", row.Visits),
		SquareFeet:   field("sq ft", row.SquareFeet),
		VisitsPerSF:  field("Visits / sq ft", row.VisitsPerSF),
	}

	if v := field("Rank", row.Rank); v != nil {
		if *v == math.Trunc(*v) {
			rank := int(*v)
			rec.Rank = &rank
		} else {
			log.Warn().Str("source", source).Int("line", line).Str("value", row.Rank).Msg("non-integer rank")
		}
	}

	return rec
}

// parseNumber parses a trimmed numeric cell, tolerating thousands
// separators. present is false for empty cells.
func parseNumber(raw string) (v float64, ok bool, present bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false, false
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, true
	}
	return v, true, true
}

func missingColumns(header, required []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func regionSet(regions []string) map[string]bool {
	if len(regions) == 0 {
		return nil
	}
	set := make(map[string]bool, len(regions))
	for _, r := range regions {
		set[strings.ToUpper(strings.TrimSpace(r))] = true
	}
	return set
}

// AvailableRegions lists the distinct State Codes present, sorted.
func AvailableRegions(records []models.RankedRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if r.StateCode != "" && !seen[r.StateCode] {
			seen[r.StateCode] = true
			out = append(out, r.StateCode)
		}
	}
	sort.Strings(out)
	return out
}

// rowReader feeds pre-split rows to csvutil.
type rowReader struct {
	rows [][]string
	pos  int
}

func (r *rowReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}
