package render

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProjection(t *testing.T) {
	tests := []struct {
		name string
		want Projection
	}{
		{"", Robinson{}},
		{"robinson", Robinson{}},
		{"Robin", Robinson{}},
		{"equirectangular", Equirectangular{}},
		{"cyl", Equirectangular{}},
	}
	for _, tt := range tests {
		p, err := NewProjection(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, p, tt.name)
	}

	_, err := NewProjection("mercator")
	assert.Error(t, err)
}

func TestRobinson(t *testing.T) {
	p := Robinson{}

	x, y := p.Project(0, 0)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)

	x, y = p.Project(90, 180)
	hw, hh := p.Extent()
	assert.InDelta(t, 0.5322*hw, x, 1e-9)
	assert.InDelta(t, hh, y, 1e-9)

	// symmetric about the equator and the central meridian
	x1, y1 := p.Project(37.5, 40)
	x2, y2 := p.Project(-37.5, -40)
	assert.InDelta(t, x1, -x2, 1e-12)
	assert.InDelta(t, y1, -y2, 1e-12)

	// interpolated between the 35 and 40 degree rows
	_, y = p.Project(37.5, 0)
	assert.InDelta(t, robinsonY*(0.4340+0.4958)/2, y, 1e-9)

	// latitudes past the poles are clamped
	_, y = p.Project(95, 0)
	assert.InDelta(t, hh, y, 1e-9)
}

func TestEquirectangular(t *testing.T) {
	p := Equirectangular{}
	x, y := p.Project(45, -90)
	assert.InDelta(t, -math.Pi/2, x, 1e-12)
	assert.InDelta(t, math.Pi/4, y, 1e-12)

	hw, hh := p.Extent()
	assert.Equal(t, math.Pi, hw)
	assert.Equal(t, math.Pi/2, hh)
}

func TestNormalizeLon(t *testing.T) {
	tests := map[float64]float64{
		0:    0,
		179:  179,
		180:  -180,
		-180: -180,
		190:  -170,
		-190: 170,
		540:  -180,
		-725: -5,
	}
	for in, want := range tests {
		assert.InDelta(t, want, normalizeLon(in), 1e-9, "normalizeLon(%v)", in)
	}
}

func TestUnwrapRing(t *testing.T) {
	// A box spanning the antimeridian stays contiguous
	ring := orb.Ring{{170, 0}, {-170, 0}, {-170, 10}, {170, 10}, {170, 0}}
	got := unwrapRing(ring, 0, 170)
	assert.Equal(t, []float64{170, 190, 190, 170, 170}, got)

	lo, hi := span(got)
	assert.Equal(t, 170.0, lo)
	assert.Equal(t, 190.0, hi)

	// relative to a shifted center
	got = unwrapRing(ring, -130, normalizeLon(170+130))
	assert.Equal(t, []float64{-60, -40, -40, -60, -60}, got)
}
