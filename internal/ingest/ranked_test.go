package ingest

import (
	"path/filepath"
	"strings"
	"testing"

	apperrors "location-reconciler/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

const rankedHeader = "Rank,Id,Property Name,Latitude,Longitude,Address,City,State,State Code,Zip Code,Visits,sq ft,Visits / sq ft"

func TestReadRankedCSV(t *testing.T) {
	input := "\xEF\xBB\xBF" + rankedHeader + "\n" +
		`1,a1, 7 Brew Coffee ,33.9390,-83.4536,100 Main St, Athens ,Georgia,ga,30601,"12,345",1200,` + "\n" +
		`2,a2,7 Brew Coffee,32.8407,-83.6324,,Macon,Georgia,GA,31201,abc,,` + "\n" +
		`,a3,,0,0,,,,,,,,` + "\n" +
		`x,a4,7 Brew Coffee,,,,Tampa,Florida,FL,33602,,,` + "\n"

	records, err := ReadRankedCSV(strings.NewReader(input), RankedOptions{Source: "test.csv"})
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	require.NotNil(t, first.Rank)
	assert.Equal(t, 1, *first.Rank)
	assert.Equal(t, "7 Brew Coffee", first.PropertyName)
	assert.Equal(t, "Athens", first.City)
	assert.Equal(t, "GA", first.StateCode)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 33.939, *first.Latitude, 1e-9)
	require.NotNil(t, first.Visits)
	assert.Equal(t, 12345.0, *first.Visits)
	require.NotNil(t, first.SquareFeet)
	assert.Equal(t, 1200.0, *first.SquareFeet)
	assert.Nil(t, first.VisitsPerSF)

	second := records[1]
	assert.Nil(t, second.Visits, "unparseable visits become null")
	assert.Equal(t, "", second.Address)

	third := records[2]
	assert.Nil(t, third.Rank)
	assert.Nil(t, third.Latitude)
	assert.Nil(t, third.Longitude)
}

func TestReadRankedCSV_MissingColumns(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		expectedMissing []string
	}{
		{
			name:            "missing coordinates",
			input:           "Rank,Property Name,City,State,State Code,Zip Code\n1,A,Athens,Georgia,GA,30601\n",
			expectedMissing: []string{"Latitude", "Longitude"},
		},
		{
			name:            "empty input",
			input:           "",
			expectedMissing: RequiredRankedColumns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRankedCSV(strings.NewReader(tt.input), RankedOptions{Source: "bad.csv"})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

			var shapeErr *apperrors.ShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, "bad.csv", shapeErr.Source)
			assert.Equal(t, tt.expectedMissing, shapeErr.Missing)
		})
	}
}

func TestReadRankedCSV_RegionFilter(t *testing.T) {
	input := rankedHeader + "\n" +
		"1,a,A,33.9,-83.4,,Athens,Georgia,GA,30601,,,\n" +
		"1,b,B,27.9,-82.4,,Tampa,Florida,FL,33602,,,\n" +
		"2,c,C,34.0,-81.0,,Columbia,South Carolina,sc,29201,,,\n"

	records, err := ReadRankedCSV(strings.NewReader(input), RankedOptions{Regions: []string{"ga", "SC"}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"GA", "SC"}, AvailableRegions(records))
}

func TestReadRankedFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranked.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Ranking Index")
	require.NoError(t, err)
	for _, values := range [][]string{
		strings.Split(rankedHeader, ","),
		{"3", "a1", "7 Brew Coffee", "33.939", "-83.4536", "", "Athens", "Georgia", "GA", "30601", "5000", "1000", "5"},
	} {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))

	records, err := ReadRankedFile(path, RankedOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, *records[0].Rank)
	assert.Equal(t, 5.0, *records[0].VisitsPerSF)
}

func TestReadRankedFiles_ShapeErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", rankedHeader+"\n1,a,A,33.9,-83.4,,Athens,Georgia,GA,30601,,,\n")
	bad := writeFile(t, dir, "bad.csv", "Name,City\nA,Athens\n")

	_, err := ReadRankedFiles([]string{good, bad}, nil)
	require.Error(t, err)

	var shapeErr *apperrors.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "bad.csv", shapeErr.Source)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw             string
		expected        float64
		expectedOK      bool
		expectedPresent bool
	}{
		{raw: "1,234.5", expected: 1234.5, expectedOK: true, expectedPresent: true},
		{raw: "  42 ", expected: 42, expectedOK: true, expectedPresent: true},
		{raw: "", expectedOK: false, expectedPresent: false},
		{raw: "N/A", expectedOK: false, expectedPresent: true},
		{raw: "NaN", expectedOK: false, expectedPresent: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, ok, present := parseNumber(tt.raw)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expectedPresent, present)
			if ok {
				assert.Equal(t, tt.expected, v)
			}
		})
	}
}
