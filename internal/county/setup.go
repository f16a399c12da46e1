package county

import "time"

// Settings selects and tunes the default provider chain.
type Settings struct {
	FCCEnabled        bool
	NominatimEnabled  bool
	FCCInterval       time.Duration
	NominatimInterval time.Duration
	Timeout           time.Duration
	UserAgent         string
}

// DefaultProviders returns the FCC provider followed by Nominatim.
func DefaultProviders(s Settings) []Provider {
	common := []Option{WithTimeout(s.Timeout), WithUserAgent(s.UserAgent)}

	fccOpts := append([]Option{WithEnabled(s.FCCEnabled)}, common...)
	if s.FCCInterval > 0 {
		fccOpts = append(fccOpts, WithMinInterval(s.FCCInterval))
	}
	nomOpts := append([]Option{WithEnabled(s.NominatimEnabled)}, common...)
	if s.NominatimInterval > 0 {
		nomOpts = append(nomOpts, WithMinInterval(s.NominatimInterval))
	}

	return []Provider{
		NewFCCProvider(fccOpts...),
		NewNominatimProvider(nomOpts...),
	}
}
