package export

import (
	"location-reconciler/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

// FeatureCollection renders locations as GeoJSON points carrying the same
// attributes as the KML placemarks.
func FeatureCollection(locations []models.Location, meta models.MergeMetadata) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, loc := range locations {
		f := geojson.NewFeature(orb.Point{loc.Longitude, loc.Latitude})
		f.Properties["title"] = PlacemarkName(loc)
		f.Properties["source_kind"] = string(loc.SourceKind)
		for _, a := range Attributes(loc, meta) {
			f.Properties[a.Name] = a.Value
		}
		fc.Append(f)
	}
	return fc
}

// MarshalGeoJSON encodes the feature collection for locations.
func MarshalGeoJSON(locations []models.Location, meta models.MergeMetadata) ([]byte, error) {
	raw, err := FeatureCollection(locations, meta).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal geojson")
	}
	return raw, nil
}
