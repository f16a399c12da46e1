package export

import (
	"io"

	"location-reconciler/internal/models"

	"github.com/klauspost/compress/zip"
	"github.com/rotisserie/eris"
)

// DocumentName is the KML entry inside every archive.
const DocumentName = "doc.kml"

// WriteKMZ writes a compressed archive holding a single doc.kml.
func WriteKMZ(w io.Writer, locations []models.Location, meta models.MergeMetadata) error {
	zw := zip.NewWriter(w)

	entry, err := zw.CreateHeader(&zip.FileHeader{Name: DocumentName, Method: zip.Deflate})
	if err != nil {
		return eris.Wrap(err, "export: create kmz entry")
	}
	if err := WriteKML(entry, locations, meta); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return eris.Wrap(err, "export: close kmz")
	}
	return nil
}
