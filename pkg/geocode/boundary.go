package geocode

import (
	"context"
	"fmt"

	"github.com/kass/go-geodsd/pkg/geo"
	"github.com/kass/go-geodsd/pkg/models"
)

// BoundaryGeocoder resolves countries offline from boundary polygons
type BoundaryGeocoder struct {
	index *geo.CountryIndex
}

// NewBoundaryGeocoder creates a geocoder over an existing index
func NewBoundaryGeocoder(index *geo.CountryIndex) *BoundaryGeocoder {
	return &BoundaryGeocoder{index: index}
}

// NewBoundaryGeocoderFromCountries indexes countries and wraps the index
func NewBoundaryGeocoderFromCountries(countries []*geo.Country) (*BoundaryGeocoder, error) {
	index, err := geo.NewCountryIndex(countries)
	if err != nil {
		return nil, fmt.Errorf("failed to index boundaries: %w", err)
	}
	return NewBoundaryGeocoder(index), nil
}

// ReverseCountry implements Geocoder
func (b *BoundaryGeocoder) ReverseCountry(ctx context.Context, lat, lon float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	country, ok := b.index.Lookup(models.Location{Lat: lat, Lon: lon})
	if !ok {
		return "", fmt.Errorf("(%g, %g): %w", lat, lon, ErrNoCountry)
	}
	return country.Name, nil
}
