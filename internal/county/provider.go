// Package county resolves coordinates and postal codes to US county names
// through a chain of rate-limited lookup providers fronted by a durable cache.
package county

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every provider HTTP call.
const DefaultTimeout = 10 * time.Second

// Provider represents a single county lookup backend. An empty name with a
// nil error means the provider had no answer.
type Provider interface {
	Name() string
	LookupCoordinate(ctx context.Context, lat, lon float64) (string, error)
	LookupPostalCode(ctx context.Context, postalCode string) (string, error)
	Available() bool
}

// Option configures a provider.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call HTTP timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithMinInterval sets the minimum delay between calls.
func WithMinInterval(d time.Duration) Option {
	return func(c *client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLimiter replaces the rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *client) {
		c.limiter = l
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithEnabled switches a provider on or off.
func WithEnabled(enabled bool) Option {
	return func(c *client) {
		c.enabled = enabled
	}
}

type client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	enabled    bool
}

func newClient(interval time.Duration, opts []Option) client {
	c := client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		enabled:    true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NormalizePostalCode keeps the first five digits of a postal code. It
// returns "" when fewer than five digits are present.
func NormalizePostalCode(postalCode string) string {
	var digits strings.Builder
	for _, r := range postalCode {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			if digits.Len() == 5 {
				return digits.String()
			}
		}
	}
	return ""
}

// withCountySuffix appends " County" unless the name already carries a
// county-equivalent suffix.
func withCountySuffix(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	upper := strings.ToUpper(name)
	if strings.Contains(upper, "COUNTY") || strings.Contains(upper, "PARISH") {
		return name
	}
	return name + " County"
}
