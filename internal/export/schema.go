// Package export writes the reconciled collection as per-region KMZ archives
// carrying a fixed set of named attributes.
package export

import (
	"fmt"
	"strconv"

	"location-reconciler/internal/models"
)

// Field is one schema attribute.
type Field struct {
	Name string
	Type string
}

// Attribute is one named placemark value.
type Attribute struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Fields returns the attribute schema for a reporting period, in display
// order. The period only ever appears in field names.
func Fields(dateRange string) []Field {
	return []Field{
		{"Name", "string"},
		{"Address", "string"},
		{"City", "string"},
		{"State", "string"},
		{"Zip", "string"},
		{"County", "string"},
		{fmt.Sprintf("Placer Rank [State Code] (%s)", dateRange), "string"},
		{"Ranked Stores [State Code]", "string"},
		{fmt.Sprintf("Total Visits [State Code] (%s)", dateRange), "string"},
		{fmt.Sprintf("Average Total Visits [State Code] (%s)", dateRange), "string"},
		{"Total Stores [State Code]", "string"},
		{fmt.Sprintf("Placer Rank US (%s)", dateRange), "string"},
		{"Ranked Stores US", "string"},
		{"Total Stores US", "string"},
		{"SF", "string"},
		{"Sales Per SF", "string"},
		{"Lat", "double"},
		{"Long", "double"},
	}
}

// Attributes renders a location against the schema for meta.DateRange.
// Nationwide figures always come from meta, whichever region loc is in.
func Attributes(loc models.Location, meta models.MergeMetadata) []Attribute {
	region := regionOf(loc)
	regionKey := loc.RegionKey()

	storeCount := strconv.Itoa(meta.RegionStoreCounts[regionKey])
	rank := FormatRank(loc.Rank)

	var total, average *float64
	if v, ok := meta.RegionTotalVisits[regionKey]; ok {
		total = &v
	}
	if v, ok := meta.RegionAverageVisits[regionKey]; ok {
		average = &v
	}

	values := []string{
		loc.Name,
		loc.Address,
		loc.City,
		region,
		loc.PostalCode,
		FormatCounty(loc.County),
		rank,
		storeCount,
		FormatCount(total),
		FormatCount(average),
		storeCount,
		// No nationwide ranking input exists; the region rank stands in.
		rank,
		strconv.Itoa(meta.TotalRankedUS),
		strconv.Itoa(meta.TotalStoresUS),
		FormatCount(loc.FloorArea),
		FormatSalesPerSF(loc.SalesPerSF, loc.VisitCount, loc.FloorArea),
		FormatCoordinate(loc.Latitude),
		FormatCoordinate(loc.Longitude),
	}

	fields := Fields(dateRangeOf(meta))
	attrs := make([]Attribute, len(fields))
	for i, f := range fields {
		attrs[i] = Attribute{Name: f.Name, Value: values[i]}
	}
	return attrs
}

// PlacemarkName is the title shown for a placemark.
func PlacemarkName(loc models.Location) string {
	name := loc.Name
	if name == "" {
		name = "Unknown"
	}
	region := regionOf(loc)
	if loc.City != "" && region != "" {
		return fmt.Sprintf("%s - %s, %s", name, loc.City, region)
	}
	return name
}

func dateRangeOf(meta models.MergeMetadata) string {
	if meta.DateRange == "" {
		return models.DefaultDateRange
	}
	return meta.DateRange
}

func regionOf(loc models.Location) string {
	if r := loc.NormalizedRegion(); r != "" {
		return r
	}
	return loc.State
}
