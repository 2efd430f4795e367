// Package geo loads country boundaries and answers point-in-country lookups
// through an R-Tree over the boundary bounding boxes.
package geo

import (
	"fmt"
	"os"

	"github.com/kass/go-geodsd/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// DefaultNameKeys are the feature properties tried, in order, for a country name.
// NAME_LONG and NAME come from Natural Earth admin-0 files.
var DefaultNameKeys = []string{"NAME_LONG", "NAME", "ADMIN", "name"}

// Country is one named boundary. Polygon features are stored as a one-element MultiPolygon.
type Country struct {
	Name     string
	Geometry orb.MultiPolygon
	Bound    orb.Bound
}

// Contains reports whether loc is inside the country; holes are excluded
func (c *Country) Contains(loc models.Location) bool {
	if !loc.Valid() {
		return false
	}
	pt := orb.Point{loc.Lon, loc.Lat}
	if !c.Bound.Contains(pt) {
		return false
	}
	return planar.MultiPolygonContains(c.Geometry, pt)
}

// Area returns the bounding box area in square degrees
func (c *Country) Area() float64 {
	return (c.Bound.Max.Lon() - c.Bound.Min.Lon()) * (c.Bound.Max.Lat() - c.Bound.Min.Lat())
}

// LoadCountries reads a GeoJSON FeatureCollection of country boundaries.
// With no nameKeys, DefaultNameKeys is used.
func LoadCountries(path string, nameKeys ...string) ([]*Country, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundaries: %w", err)
	}

	countries, err := ParseCountries(data, nameKeys...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return countries, nil
}

// ParseCountries decodes country boundaries from GeoJSON. Features that are
// not (Multi)Polygons or carry no name are skipped.
func ParseCountries(data []byte, nameKeys ...string) ([]*Country, error) {
	if len(nameKeys) == 0 {
		nameKeys = DefaultNameKeys
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode boundaries: %w", err)
	}

	countries := make([]*Country, 0, len(fc.Features))
	for _, f := range fc.Features {
		name := featureName(f, nameKeys)
		if name == "" {
			continue
		}

		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			continue
		}
		if len(mp) == 0 {
			continue
		}

		countries = append(countries, &Country{
			Name:     name,
			Geometry: mp,
			Bound:    mp.Bound(),
		})
	}

	return countries, nil
}

func featureName(f *geojson.Feature, keys []string) string {
	for _, key := range keys {
		if s, ok := f.Properties[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
