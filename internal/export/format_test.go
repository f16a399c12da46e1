package export

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func TestFormatCount(t *testing.T) {
	tests := []struct {
		name     string
		value    *float64
		expected string
	}{
		{name: "nil", value: nil, expected: "N/A"},
		{name: "zero", value: floatPtr(0), expected: "N/A"},
		{name: "small", value: floatPtr(999), expected: "999"},
		{name: "thousands", value: floatPtr(1234567), expected: "1,234,567"},
		{name: "truncates", value: floatPtr(1999.99), expected: "1,999"},
		{name: "nan", value: floatPtr(math.NaN()), expected: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCount(tt.value))
		})
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{value: 0, expected: "0.00"},
		{value: 4.5, expected: "4.50"},
		{value: 1234.567, expected: "1,234.57"},
		{value: 1000000, expected: "1,000,000.00"},
		{value: -1234.5, expected: "-1,234.50"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDecimal(tt.value))
		})
	}
}

func TestFormatSalesPerSF(t *testing.T) {
	tests := []struct {
		name       string
		salesPerSF *float64
		visits     *float64
		floorArea  *float64
		expected   string
	}{
		{name: "supplied", salesPerSF: floatPtr(12.345), visits: floatPtr(1), floorArea: floatPtr(1), expected: "12.35"},
		{name: "derived", visits: floatPtr(250000), floorArea: floatPtr(1200), expected: "208.33"},
		{name: "zero supplied falls back", salesPerSF: floatPtr(0), visits: floatPtr(100), floorArea: floatPtr(50), expected: "2.00"},
		{name: "no floor area", visits: floatPtr(100), expected: "N/A"},
		{name: "zero floor area", visits: floatPtr(100), floorArea: floatPtr(0), expected: "N/A"},
		{name: "nothing", expected: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSalesPerSF(tt.salesPerSF, tt.visits, tt.floorArea))
		})
	}
}

func TestFormatCounty(t *testing.T) {
	tests := []struct {
		county   *string
		expected string
	}{
		{county: strPtr("Clarke County"), expected: "CLARKE"},
		{county: strPtr("Orleans Parish"), expected: "ORLEANS"},
		{county: strPtr("  DeKalb County "), expected: "DEKALB"},
		{county: strPtr("Anchorage Municipality"), expected: "ANCHORAGE MUNICIPALITY"},
		{county: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCounty(tt.county))
		})
	}
}

func TestFormatRankAndCoordinate(t *testing.T) {
	assert.Equal(t, "N/A", FormatRank(nil))
	assert.Equal(t, "7", FormatRank(intPtr(7)))

	assert.Equal(t, "33.939", FormatCoordinate(33.939))
	assert.Equal(t, "-83.4536", FormatCoordinate(-83.4536))
	assert.Equal(t, "0.0", FormatCoordinate(0))
	assert.Equal(t, "45.0", FormatCoordinate(45))
}
