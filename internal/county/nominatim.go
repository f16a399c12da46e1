package county

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "location-reconciler/internal/errors"

	"github.com/rotisserie/eris"
)

const (
	nominatimReverseURL = "https://nominatim.openstreetmap.org/reverse"
	nominatimSearchURL  = "https://nominatim.openstreetmap.org/search"

	// NominatimMinInterval follows the public instance usage policy.
	NominatimMinInterval = time.Second
)

type nominatimAddress struct {
	County        string `json:"county"`
	StateDistrict string `json:"state_district"`
}

type nominatimPlace struct {
	Address nominatimAddress `json:"address"`
}

// NominatimProvider looks counties up through OpenStreetMap Nominatim.
type NominatimProvider struct {
	client
}

// NewNominatimProvider creates a NominatimProvider. Nominatim rejects
// anonymous clients, so a User-Agent is required for it to be available.
func NewNominatimProvider(opts ...Option) *NominatimProvider {
	return &NominatimProvider{client: newClient(NominatimMinInterval, opts)}
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return p.enabled && p.userAgent != "" }

// LookupCoordinate implements Provider.
func (p *NominatimProvider) LookupCoordinate(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format":         {"json"},
		"addressdetails": {"1"},
	}

	var place nominatimPlace
	if err := p.get(ctx, nominatimReverseURL, params, &place); err != nil {
		return "", err
	}
	return countyFromAddress(place.Address), nil
}

// LookupPostalCode implements Provider.
func (p *NominatimProvider) LookupPostalCode(ctx context.Context, postalCode string) (string, error) {
	zip := NormalizePostalCode(postalCode)
	if zip == "" {
		return "", nil
	}
	params := url.Values{
		"postalcode":     {zip},
		"country":        {"us"},
		"format":         {"json"},
		"addressdetails": {"1"},
		"limit":          {"1"},
	}

	var places []nominatimPlace
	if err := p.get(ctx, nominatimSearchURL, params, &places); err != nil {
		return "", err
	}
	if len(places) == 0 {
		return "", nil
	}
	return countyFromAddress(places[0].Address), nil
}

func countyFromAddress(addr nominatimAddress) string {
	name := addr.County
	if name == "" {
		name = addr.StateDistrict
	}
	return withCountySuffix(name)
}

func (p *NominatimProvider) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if !p.Available() {
		return eris.Wrap(apperrors.ErrProviderUnavailable, "county: nominatim not configured")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "county: nominatim rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "county: nominatim build request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "county: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return eris.Wrap(apperrors.ErrProviderUnavailable, "county: nominatim refused client")
	case resp.StatusCode != http.StatusOK:
		return eris.Errorf("county: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "county: nominatim read body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "county: nominatim parse response")
	}
	return nil
}
