package models

import "time"

// CountyCacheEntry is one persisted county resolution. A nil County marks
// a lookup that found nothing.
type CountyCacheEntry struct {
	Key       string    `json:"key"`
	County    *string   `json:"county"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Found reports whether the entry resolved to a county.
func (e CountyCacheEntry) Found() bool {
	return e.County != nil && *e.County != ""
}

// CountyLookup is the answer to a single county request.
type CountyLookup struct {
	County     string   `json:"county"`
	Display    string   `json:"display"`
	Key        string   `json:"key"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
}
