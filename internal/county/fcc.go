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
	fccAreaURL = "https://geo.fcc.gov/api/census/area"

	// FCCMinInterval is the default spacing between FCC calls.
	FCCMinInterval = 100 * time.Millisecond
)

type fccAreaResponse struct {
	Results []struct {
		CountyName string `json:"county_name"`
		CountyFIPS string `json:"county_fips"`
		StateCode  string `json:"state_code"`
	} `json:"results"`
}

// FCCProvider looks counties up through the FCC Census Area API.
type FCCProvider struct {
	client
}

// NewFCCProvider creates an FCCProvider.
func NewFCCProvider(opts ...Option) *FCCProvider {
	return &FCCProvider{client: newClient(FCCMinInterval, opts)}
}

// Name implements Provider.
func (p *FCCProvider) Name() string { return "fcc" }

// Available implements Provider.
func (p *FCCProvider) Available() bool { return p.enabled }

// LookupCoordinate implements Provider.
func (p *FCCProvider) LookupCoordinate(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
		"format": {"json"},
	}
	return p.lookup(ctx, params)
}

// LookupPostalCode implements Provider.
func (p *FCCProvider) LookupPostalCode(ctx context.Context, postalCode string) (string, error) {
	zip := NormalizePostalCode(postalCode)
	if zip == "" {
		return "", nil
	}
	params := url.Values{
		"zip":    {zip},
		"format": {"json"},
	}
	return p.lookup(ctx, params)
}

func (p *FCCProvider) lookup(ctx context.Context, params url.Values) (string, error) {
	if !p.enabled {
		return "", eris.Wrap(apperrors.ErrProviderUnavailable, "county: fcc disabled")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "county: fcc rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fccAreaURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "county: fcc build request")
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "county: fcc request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("county: fcc returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "county: fcc read body")
	}

	var area fccAreaResponse
	if err := json.Unmarshal(body, &area); err != nil {
		return "", eris.Wrap(err, "county: fcc parse response")
	}

	if len(area.Results) == 0 {
		return "", nil
	}
	return area.Results[0].CountyName, nil
}
