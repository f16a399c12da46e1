package ingest

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"location-reconciler/internal/models"

	"github.com/klauspost/compress/zip"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/htmlindex"
)

// ProposedIndicators mark a placemark name as a planned site.
var ProposedIndicators = []string{
	"(proposed)",
	"(u/c)",
	"under construction",
	"(planned)",
	"(future)",
	"(coming soon)",
	"(opening soon)",
	"(in development)",
	"(pending)",
	"(future site)",
}

// IsProposed reports whether a placemark name carries a planned-site marker.
func IsProposed(name string) bool {
	lower := strings.ToLower(name)
	for _, indicator := range ProposedIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

type kmlSimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPlacemark struct {
	Name          string     `xml:"name"`
	ShortName     string     `xml:"n"`
	Point         *kmlPoint  `xml:"Point"`
	MultiGeometry []kmlPoint `xml:"MultiGeometry>Point"`
	ExtendedData  struct {
		SchemaData []struct {
			SimpleData []kmlSimpleData `xml:"SimpleData"`
		} `xml:"SchemaData"`
		Data []kmlData `xml:"Data"`
	} `xml:"ExtendedData"`
}

// kmzFile closes the archive together with the open entry.
type kmzFile struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (k *kmzFile) Close() error {
	err := k.ReadCloser.Close()
	if cerr := k.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenKMZ opens the KML document inside a KMZ archive: doc.kml when present,
// otherwise the first .kml entry.
func OpenKMZ(path string) (io.ReadCloser, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open kmz %s", path)
	}

	var doc *zip.File
	for _, f := range archive.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".kml") {
			continue
		}
		if filepath.Base(f.Name) == "doc.kml" {
			doc = f
			break
		}
		if doc == nil {
			doc = f
		}
	}
	if doc == nil {
		archive.Close()
		return nil, eris.Wrapf(errNoKML, "ingest: %s", path)
	}

	rc, err := doc.Open()
	if err != nil {
		archive.Close()
		return nil, eris.Wrapf(err, "ingest: open %s in %s", doc.Name, path)
	}
	return &kmzFile{ReadCloser: rc, archive: archive}, nil
}

var errNoKML = eris.New("no KML document found in archive")

// ReadPlanningFile reads placemarks from a .kmz archive or a bare .kml file.
func ReadPlanningFile(ctx context.Context, path string) ([]models.Placemark, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".kml") {
		rc, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
	} else {
		rc, err = OpenKMZ(path)
		if err != nil {
			return nil, err
		}
	}
	defer rc.Close()

	placemarks, err := ReadPlacemarks(ctx, rc)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse %s", filepath.Base(path))
	}

	proposed := 0
	for _, p := range placemarks {
		if p.Proposed {
			proposed++
		}
	}
	log.Info().
		Str("file", filepath.Base(path)).
		Int("placemarks", len(placemarks)).
		Int("proposed", proposed).
		Int("existing", len(placemarks)-proposed).
		Msg("parsed planning export")

	return placemarks, nil
}

// ReadPlacemarks decodes every Placemark in a KML document.
func ReadPlacemarks(ctx context.Context, r io.Reader) ([]models.Placemark, error) {
	items, errs := streamXML[kmlPlacemark](ctx, r, "Placemark")

	var out []models.Placemark
	for item := range items {
		out = append(out, item.toPlacemark())
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return out, nil
}

func (k kmlPlacemark) toPlacemark() models.Placemark {
	name := strings.TrimSpace(k.Name)
	if name == "" {
		name = strings.TrimSpace(k.ShortName)
	}
	if name == "" {
		name = "Unknown"
	}

	extended := make(map[string]string)
	for _, sd := range k.ExtendedData.SchemaData {
		for _, d := range sd.SimpleData {
			extended[d.Name] = strings.TrimSpace(d.Value)
		}
	}
	for _, d := range k.ExtendedData.Data {
		if _, ok := extended[d.Name]; !ok {
			extended[d.Name] = strings.TrimSpace(d.Value)
		}
	}

	raw := ""
	if k.Point != nil {
		raw = k.Point.Coordinates
	} else if len(k.MultiGeometry) > 0 {
		raw = k.MultiGeometry[0].Coordinates
	}
	lat, lon, ok := parseKMLCoordinates(raw)
	if !ok {
		log.Warn().Str("placemark", name).Str("coordinates", strings.TrimSpace(raw)).Msg("invalid placemark coordinates")
	}

	return models.Placemark{
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		Address:   extended["Address"],
		City:      extended["City"],
		State:     extended["State"],
		Zip:       extended["Zip"],
		Proposed:  IsProposed(name),
		Extended:  extended,
	}
}

// parseKMLCoordinates reads the first lon,lat[,alt] tuple.
func parseKMLCoordinates(raw string) (lat, lon float64, ok bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, 0, false
	}
	parts := strings.Split(fields[0], ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLon != nil || errLat != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// streamXML decodes XML elements matching the given local name and sends them to a channel.
// Both channels are closed when processing completes.
func streamXML[T any](ctx context.Context, r io.Reader, elementName string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := xml.NewDecoder(r)
		decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
			enc, err := htmlindex.Get(charset)
			if err != nil {
				return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
			}
			return enc.NewDecoder().Reader(input), nil
		}

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != elementName {
				continue
			}

			var item T
			if err := decoder.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrap(err, "xml: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}
