package export

import (
	"io"

	"location-reconciler/internal/models"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	kml "github.com/twpayne/go-kml"
)

const (
	styleID    = "defaultStyle"
	schemaID   = "LocationDataSchema"
	schemaName = "LocationData"
	iconHref   = "http://maps.google.com/mapfiles/kml/paddle/red-circle.png"
)

// Document builds the KML document for one group of locations.
func Document(locations []models.Location, meta models.MergeMetadata) *kml.CompoundElement {
	dateRange := dateRangeOf(meta)

	style := kml.SharedStyle(styleID,
		kml.IconStyle(
			kml.Icon(kml.Href(iconHref)),
		),
	)

	fields := Fields(dateRange)
	simpleFields := make([]kml.Element, len(fields))
	for i, f := range fields {
		simpleFields[i] = kml.SimpleField(f.Name, f.Type)
	}
	schema := kml.Schema(schemaID, schemaName, simpleFields...)

	doc := kml.Document(
		kml.Name("Locations - "+dateRange),
		style,
		schema,
	)
	for _, loc := range locations {
		doc.Add(placemark(loc, meta, style.URL(), schema.URL()))
	}

	return kml.KML(doc)
}

func placemark(loc models.Location, meta models.MergeMetadata, styleURL, schemaURL string) *kml.CompoundElement {
	if loc.Latitude == 0 && loc.Longitude == 0 {
		log.Warn().
			Str("name", loc.Name).
			Str("region", loc.RegionKey()).
			Msg("placemark exported at (0,0), coordinates missing")
	}

	attrs := Attributes(loc, meta)
	data := make([]kml.Element, len(attrs))
	for i, a := range attrs {
		data[i] = kml.SimpleData(a.Name, a.Value)
	}

	return kml.Placemark(
		kml.Name(PlacemarkName(loc)),
		kml.StyleURL(styleURL),
		kml.ExtendedData(kml.SchemaData(schemaURL, data...)),
		kml.Point(kml.Coordinates(kml.Coordinate{Lon: loc.Longitude, Lat: loc.Latitude})),
	)
}

// WriteKML writes the document for locations to w.
func WriteKML(w io.Writer, locations []models.Location, meta models.MergeMetadata) error {
	if err := Document(locations, meta).WriteIndent(w, "", "  "); err != nil {
		return eris.Wrap(err, "export: write kml")
	}
	return nil
}
