package render

import (
	"fmt"
	"math"
	"strings"
)

// Projection names accepted by NewProjection
const (
	ProjectionRobinson        = "robinson"
	ProjectionEquirectangular = "equirectangular"
)

// Projection maps a point to plane coordinates with the origin at the map
// center and y pointing north. dlon is the longitude relative to the central
// meridian and may leave [-180, 180] for unwrapped rings.
type Projection interface {
	Project(lat, dlon float64) (x, y float64)
	// Extent returns the half width and half height of the projected world
	Extent() (halfWidth, halfHeight float64)
}

// NewProjection returns the projection with the given name
func NewProjection(name string) (Projection, error) {
	switch strings.ToLower(name) {
	case ProjectionRobinson, "robin", "":
		return Robinson{}, nil
	case ProjectionEquirectangular, "plate-carree", "cyl":
		return Equirectangular{}, nil
	default:
		return nil, fmt.Errorf("unknown projection %q", name)
	}
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Equirectangular is the plate carrée projection
type Equirectangular struct{}

func (Equirectangular) Project(lat, dlon float64) (float64, float64) {
	return radians(dlon), radians(clampLat(lat))
}

func (Equirectangular) Extent() (float64, float64) {
	return math.Pi, math.Pi / 2
}

// robinsonTable holds the Robinson parallel length and distance from the
// equator at every 5 degrees of latitude
var robinsonTable = [...][2]float64{
	{1.0000, 0.0000},
	{0.9986, 0.0620},
	{0.9954, 0.1240},
	{0.9900, 0.1860},
	{0.9822, 0.2480},
	{0.9730, 0.3100},
	{0.9600, 0.3720},
	{0.9427, 0.4340},
	{0.9216, 0.4958},
	{0.8962, 0.5571},
	{0.8679, 0.6176},
	{0.8350, 0.6769},
	{0.7986, 0.7346},
	{0.7597, 0.7903},
	{0.7186, 0.8435},
	{0.6732, 0.8936},
	{0.6213, 0.9394},
	{0.5722, 0.9761},
	{0.5322, 1.0000},
}

const (
	robinsonX = 0.8487
	robinsonY = 1.3523
)

// Robinson is the Robinson pseudo-cylindrical projection, linearly
// interpolated between the tabulated parallels
type Robinson struct{}

func (Robinson) Project(lat, dlon float64) (float64, float64) {
	lat = clampLat(lat)
	abs := math.Abs(lat)

	i := int(abs / 5)
	if i >= len(robinsonTable)-1 {
		i = len(robinsonTable) - 2
	}
	frac := (abs - float64(i)*5) / 5
	plen := robinsonTable[i][0] + (robinsonTable[i+1][0]-robinsonTable[i][0])*frac
	pdfe := robinsonTable[i][1] + (robinsonTable[i+1][1]-robinsonTable[i][1])*frac

	y := robinsonY * pdfe
	if lat < 0 {
		y = -y
	}
	return robinsonX * plen * radians(dlon), y
}

func (Robinson) Extent() (float64, float64) {
	return robinsonX * math.Pi, robinsonY
}

// normalizeLon wraps a longitude difference into [-180, 180)
func normalizeLon(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}
