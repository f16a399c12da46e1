package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planningKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document>
  <name>Planning</name>
  <Placemark>
    <name>7 Brew Coffee-Athens, GA (Proposed)</name>
    <ExtendedData>
      <SchemaData schemaUrl="#S">
        <SimpleData name="Address">100 Main St</SimpleData>
        <SimpleData name="City">Athens</SimpleData>
        <SimpleData name="State">GA</SimpleData>
        <SimpleData name="Zip">30601</SimpleData>
      </SchemaData>
    </ExtendedData>
    <Point><coordinates>-83.4535,33.9389,0</coordinates></Point>
  </Placemark>
  <Folder>
    <Placemark>
      <name>7 Brew Coffee-Macon</name>
      <ExtendedData>
        <Data name="City"><value>Macon</value></Data>
        <Data name="State"><value>GA</value></Data>
      </ExtendedData>
      <Point><coordinates>
        -83.6324,32.8407
      </coordinates></Point>
    </Placemark>
  </Folder>
  <Placemark>
    <Point><coordinates>garbage</coordinates></Point>
  </Placemark>
</Document>
</kml>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeKMZ(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, "planning.kmz")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestReadPlacemarks(t *testing.T) {
	placemarks, err := ReadPlacemarks(context.Background(), strings.NewReader(planningKML))
	require.NoError(t, err)
	require.Len(t, placemarks, 3)

	proposed := placemarks[0]
	assert.True(t, proposed.Proposed)
	assert.Equal(t, "Athens", proposed.City)
	assert.Equal(t, "GA", proposed.State)
	assert.Equal(t, "30601", proposed.Zip)
	assert.Equal(t, "100 Main St", proposed.Address)
	assert.InDelta(t, 33.9389, proposed.Latitude, 1e-9)
	assert.InDelta(t, -83.4535, proposed.Longitude, 1e-9)

	existing := placemarks[1]
	assert.False(t, existing.Proposed)
	assert.Equal(t, "Macon", existing.City)
	assert.InDelta(t, 32.8407, existing.Latitude, 1e-9)

	broken := placemarks[2]
	assert.Equal(t, "Unknown", broken.Name)
	assert.Zero(t, broken.Latitude)
	assert.Zero(t, broken.Longitude)
}

func TestReadPlacemarks_NameFallback(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2"><Document>
  <Placemark><name>Primary</name><n>Short</n><Point><coordinates>-83.4,33.9</coordinates></Point></Placemark>
  <Placemark><n>Short Only</n><Point><coordinates>-83.4,33.9</coordinates></Point></Placemark>
  <Placemark><name>  </name><n> </n><Point><coordinates>-83.4,33.9</coordinates></Point></Placemark>
</Document></kml>`

	placemarks, err := ReadPlacemarks(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, placemarks, 3)
	assert.Equal(t, "Primary", placemarks[0].Name)
	assert.Equal(t, "Short Only", placemarks[1].Name)
	assert.Equal(t, "Unknown", placemarks[2].Name)
}

func TestReadPlacemarks_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadPlacemarks(ctx, strings.NewReader(planningKML))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadPlanningFile(t *testing.T) {
	tests := []struct {
		name          string
		entries       map[string]string
		expectedCount int
		expectedErr   bool
	}{
		{
			name:          "doc.kml preferred",
			entries:       map[string]string{"doc.kml": planningKML, "other.kml": "<kml/>"},
			expectedCount: 3,
		},
		{
			name:          "first kml entry",
			entries:       map[string]string{"files/planning.kml": planningKML, "files/icon.png": "png"},
			expectedCount: 3,
		},
		{
			name:        "no kml entry",
			entries:     map[string]string{"readme.txt": "nothing here"},
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeKMZ(t, t.TempDir(), tt.entries)

			placemarks, err := ReadPlanningFile(context.Background(), path)
			if tt.expectedErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, placemarks, tt.expectedCount)
		})
	}
}

func TestReadPlanningFile_BareKML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "planning.kml", planningKML)

	placemarks, err := ReadPlanningFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, placemarks, 3)
}

func TestIsProposed(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"7 Brew (PROPOSED)", true},
		{"Store (U/C)", true},
		{"Store - Under Construction", true},
		{"Store (Coming Soon)", true},
		{"Store (future site)", true},
		{"Store proposed", false},
		{"Store", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsProposed(tt.name))
		})
	}
}

func TestParseKMLCoordinates(t *testing.T) {
	tests := []struct {
		raw        string
		lat        float64
		lon        float64
		expectedOK bool
	}{
		{raw: "-83.4535,33.9389,0", lat: 33.9389, lon: -83.4535, expectedOK: true},
		{raw: "  -83.4535,33.9389  -84,34", lat: 33.9389, lon: -83.4535, expectedOK: true},
		{raw: "-83.4535", expectedOK: false},
		{raw: "", expectedOK: false},
		{raw: "a,b", expectedOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			lat, lon, ok := parseKMLCoordinates(tt.raw)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.lat, lat)
			assert.Equal(t, tt.lon, lon)
		})
	}
}
