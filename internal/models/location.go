package models

import "strings"

const (
	// UnknownRegion groups records that carry no region code.
	UnknownRegion = "Unknown"

	// DefaultDateRange is the reporting period used when none is known.
	DefaultDateRange = "Oct 1, 2024 - Sep 30, 2025"
)

// SourceKind identifies which input a Location came from.
type SourceKind string

const (
	SourceRanked   SourceKind = "ranked"
	SourceExisting SourceKind = "existing"
	SourceProposed SourceKind = "proposed"
)

// Priority orders source kinds for merging; lower wins.
func (k SourceKind) Priority() int {
	switch k {
	case SourceRanked:
		return 1
	case SourceExisting:
		return 2
	default:
		return 3
	}
}

// ReplacedBy records the proposed placemark a ranked location absorbed.
type ReplacedBy struct {
	Name           string  `json:"name" yaml:"name"`
	DistanceMeters float64 `json:"distance_meters" yaml:"distance_meters"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
}

// Location is the canonical record shared by every pipeline stage.
type Location struct {
	Name       string            `json:"name"`
	Address    string            `json:"address"`
	City       string            `json:"city"`
	State      string            `json:"state"`
	RegionCode string            `json:"region_code"`
	PostalCode string            `json:"postal_code"`
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	Rank       *int              `json:"rank,omitempty"`
	VisitCount *float64          `json:"visit_count,omitempty"`
	FloorArea  *float64          `json:"floor_area,omitempty"`
	SalesPerSF *float64          `json:"sales_per_sf,omitempty"`
	County     *string           `json:"county,omitempty"`
	SourceKind SourceKind        `json:"source_kind"`
	IsActual   bool              `json:"is_actual"`
	ReplacedBy *ReplacedBy       `json:"replaced_by,omitempty"`
	Extended   map[string]string `json:"extended,omitempty"`
}

// NormalizedCity is the city used for locality comparisons.
func (l Location) NormalizedCity() string {
	return strings.ToUpper(strings.TrimSpace(l.City))
}

// NormalizedRegion is the region code used for locality comparisons.
func (l Location) NormalizedRegion() string {
	return strings.ToUpper(strings.TrimSpace(l.RegionCode))
}

// RegionKey is the output grouping key: the normalized region code, or
// UnknownRegion when there is none.
func (l Location) RegionKey() string {
	if r := l.NormalizedRegion(); r != "" {
		return r
	}
	return UnknownRegion
}

// RankedRecord is one row of the ranked-metrics export.
type RankedRecord struct {
	Rank         *int
	PropertyName string
	Address      string
	Latitude     *float64
	Longitude    *float64
	City         string
	State        string
	StateCode    string
	ZipCode      string
	Visits       *float64
	SquareFeet   *float64
	VisitsPerSF  *float64
}

// ToLocation converts the row into a ranked Location.
func (r RankedRecord) ToLocation() Location {
	loc := Location{
		Name:       r.PropertyName,
		Address:    r.Address,
		City:       r.City,
		State:      r.State,
		RegionCode: r.StateCode,
		PostalCode: r.ZipCode,
		Rank:       r.Rank,
		VisitCount: r.Visits,
		FloorArea:  r.SquareFeet,
		SalesPerSF: r.VisitsPerSF,
		SourceKind: SourceRanked,
		IsActual:   true,
	}
	if loc.RegionCode == "" {
		loc.RegionCode = r.State
	}
	if r.Latitude != nil {
		loc.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		loc.Longitude = *r.Longitude
	}
	return loc
}

// Placemark is one point of the planning export.
type Placemark struct {
	Name      string
	Latitude  float64
	Longitude float64
	Address   string
	City      string
	State     string
	Zip       string
	Proposed  bool
	Extended  map[string]string
}

// ToLocation converts the placemark into an existing or proposed Location.
func (p Placemark) ToLocation() Location {
	kind := SourceExisting
	if p.Proposed {
		kind = SourceProposed
	}
	return Location{
		Name:       p.Name,
		Address:    p.Address,
		City:       p.City,
		State:      p.State,
		RegionCode: strings.ToUpper(strings.TrimSpace(p.State)),
		PostalCode: p.Zip,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		SourceKind: kind,
		IsActual:   !p.Proposed,
		Extended:   p.Extended,
	}
}
