package geo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/kass/go-geodsd/pkg/models"
)

const (
	tolerance   = 1e-9
	minChildren = 4
	maxChildren = 16
	dimensions  = 2
)

// spatialCountry wraps a Country to implement rtreego.Spatial
type spatialCountry struct {
	*Country
	rect *rtreego.Rect
}

func (sc *spatialCountry) Bounds() *rtreego.Rect {
	return sc.rect
}

// CountryIndex is a thread-safe R-Tree over country bounding boxes
type CountryIndex struct {
	tree  *rtreego.Rtree
	mu    sync.RWMutex
	count int
}

// NewCountryIndex indexes the given countries
func NewCountryIndex(countries []*Country) (*CountryIndex, error) {
	items := make([]rtreego.Spatial, 0, len(countries))
	for _, c := range countries {
		if c == nil {
			continue
		}
		rect, err := boundRect(c)
		if err != nil {
			return nil, fmt.Errorf("invalid bounds for %s: %w", c.Name, err)
		}
		items = append(items, &spatialCountry{c, rect})
	}

	return &CountryIndex{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren, items...),
		count: len(items),
	}, nil
}

// boundRect converts a country bound to a rect in (lat, lon) order.
// Degenerate sides are padded so the rect has positive size.
func boundRect(c *Country) (*rtreego.Rect, error) {
	minLat, minLon := c.Bound.Min.Lat(), c.Bound.Min.Lon()
	height := c.Bound.Max.Lat() - minLat
	width := c.Bound.Max.Lon() - minLon
	if height <= 0 {
		height = tolerance
	}
	if width <= 0 {
		width = tolerance
	}
	return rtreego.NewRect(rtreego.Point{minLat, minLon}, []float64{height, width})
}

// Lookup returns the country containing loc. When several boundaries contain
// the point, the one with the smallest bounding box wins, so enclaves resolve
// to themselves rather than to the surrounding country.
func (idx *CountryIndex) Lookup(loc models.Location) (*Country, bool) {
	if !loc.Valid() {
		return nil, false
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	query := rtreego.Point{loc.Lat, loc.Lon}.ToRect(tolerance)
	results := idx.tree.SearchIntersect(query)

	var matches []*Country
	for _, result := range results {
		item, ok := result.(*spatialCountry)
		if !ok || item.Country == nil {
			continue
		}
		if item.Contains(loc) {
			matches = append(matches, item.Country)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}

	sort.Slice(matches, func(i, j int) bool {
		ai, aj := matches[i].Area(), matches[j].Area()
		if ai != aj {
			return ai < aj
		}
		return matches[i].Name < matches[j].Name
	})
	return matches[0], true
}

// Count returns the number of indexed countries
func (idx *CountryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

// QueryBox returns the countries whose bounding boxes intersect box
func (idx *CountryIndex) QueryBox(box models.BoundingBox) ([]*Country, error) {
	bounds, err := rtreego.NewRect(
		rtreego.Point{box.BottomLeft.Lat, box.BottomLeft.Lon},
		[]float64{box.TopRight.Lat - box.BottomLeft.Lat, box.TopRight.Lon - box.BottomLeft.Lon},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := idx.tree.SearchIntersect(bounds)
	countries := make([]*Country, 0, len(results))
	for _, result := range results {
		if item, ok := result.(*spatialCountry); ok && item.Country != nil {
			countries = append(countries, item.Country)
		}
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i].Name < countries[j].Name })
	return countries, nil
}
