package service

import (
	"context"
	"fmt"

	"location-reconciler/internal/county"
	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/export"
	"location-reconciler/internal/models"
)

// CountyService answers single county lookups through the shared resolver
type CountyService struct {
	resolver CountyResolver
}

// CountyResolver interface for dependency injection
type CountyResolver interface {
	Resolve(ctx context.Context, lat, lon float64, postalCode string) (string, bool)
}

// NewCountyService creates a new county service
func NewCountyService(resolver CountyResolver) *CountyService {
	return &CountyService{resolver: resolver}
}

// CountyForCoordinate resolves the county containing a coordinate. It
// returns nil when no provider knows the answer.
func (s *CountyService) CountyForCoordinate(ctx context.Context, lat, lon float64) (*models.CountyLookup, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("service: invalid latitude: %f: %w", lat, apperrors.ErrInvalidInput)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("service: invalid longitude: %f: %w", lon, apperrors.ErrInvalidInput)
	}
	if lat == 0 && lon == 0 {
		return nil, fmt.Errorf("service: coordinate (0,0) is not a location: %w", apperrors.ErrInvalidInput)
	}

	name, ok := s.resolver.Resolve(ctx, lat, lon, "")
	if !ok {
		return nil, nil
	}

	return &models.CountyLookup{
		County:    name,
		Display:   export.FormatCounty(&name),
		Key:       county.CoordinateKey(lat, lon),
		Latitude:  &lat,
		Longitude: &lon,
	}, nil
}

// CountyForPostalCode resolves the county for a US postal code.
func (s *CountyService) CountyForPostalCode(ctx context.Context, postalCode string) (*models.CountyLookup, error) {
	zip := county.NormalizePostalCode(postalCode)
	if zip == "" {
		return nil, fmt.Errorf("service: invalid postal code %q: %w", postalCode, apperrors.ErrInvalidInput)
	}

	name, ok := s.resolver.Resolve(ctx, 0, 0, zip)
	if !ok {
		return nil, nil
	}

	return &models.CountyLookup{
		County:     name,
		Display:    export.FormatCounty(&name),
		Key:        county.PostalKey(zip),
		PostalCode: zip,
	}, nil
}
