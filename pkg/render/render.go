// Package render draws query results onto a world map image.
package render

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/kass/go-geodsd/pkg/geo"
	"github.com/kass/go-geodsd/pkg/models"
	"github.com/paulmach/orb"
)

// Map defaults
const (
	DefaultWidth     = 1200
	DefaultHeight    = 700
	DefaultTitle     = "Location of Query Results"
	DefaultCenterLon = -130.0

	margin        = 20.0
	titleBand     = 48.0
	graticuleStep = 30.0
	sampleStep    = 2.0
	markerOuter   = 8.0
	markerInner   = 3.4
)

// Colors
const (
	oceanColor     = "#ffffff"
	landColor      = "#d3d3d3"
	borderColor    = "#4d4d4d"
	graticuleColor = "#7f7f7f"
	boundaryColor  = "#000000"
	markerColor    = "#ff0000"
	titleColor     = "#000000"
)

// Options configures a Renderer
type Options struct {
	Width      int
	Height     int
	Projection string
	CenterLon  float64
	Title      string
	// Countries supplies land fill, coastlines and borders. Without it only
	// the map boundary and graticule are drawn.
	Countries []*geo.Country
}

// Renderer rasterizes world maps with point markers
type Renderer struct {
	opts  Options
	proj  Projection
	scale float64
	cx    float64
	cy    float64
}

// NewRenderer validates opts and precomputes the map layout
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}
	if opts.Width < 100 || opts.Height < 100 {
		return nil, fmt.Errorf("map size %dx%d is too small", opts.Width, opts.Height)
	}

	proj, err := NewProjection(opts.Projection)
	if err != nil {
		return nil, err
	}

	hw, hh := proj.Extent()
	w, h := float64(opts.Width), float64(opts.Height)
	scale := math.Min((w-2*margin)/(2*hw), (h-titleBand-margin)/(2*hh))

	return &Renderer{
		opts:  opts,
		proj:  proj,
		scale: scale,
		cx:    w / 2,
		cy:    titleBand + (h-titleBand-margin)/2,
	}, nil
}

// Pixel returns the image position of a coordinate
func (r *Renderer) Pixel(lat, lon float64) (x, y float64) {
	return r.pixel(lat, normalizeLon(lon-r.opts.CenterLon))
}

func (r *Renderer) pixel(lat, dlon float64) (float64, float64) {
	x, y := r.proj.Project(lat, dlon)
	return r.cx + x*r.scale, r.cy - y*r.scale
}

// Render draws the map with one marker per coordinate pair and writes it to
// path. The format follows the extension: .png, .jpg or .jpeg.
func (r *Renderer) Render(path string, lats, lons []float64) error {
	format, err := formatFor(path)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrIO, err)
	}

	img, err := r.Draw(lats, lons)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w: %w", path, models.ErrIO, err)
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w: %w", path, models.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w: %w", path, models.ErrIO, err)
	}
	return nil
}

// Draw renders the map in memory. lats and lons must have equal length;
// pairs with a NaN coordinate get no marker.
func (r *Renderer) Draw(lats, lons []float64) (image.Image, error) {
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("got %d latitudes and %d longitudes", len(lats), len(lons))
	}

	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	r.outline(dc)
	dc.SetHexColor(oceanColor)
	dc.FillPreserve()
	dc.Clip()

	r.drawCountries(dc)
	r.drawGraticule(dc)

	dc.ResetClip()
	r.outline(dc)
	dc.SetHexColor(boundaryColor)
	dc.SetLineWidth(1.2)
	dc.Stroke()

	for i := range lats {
		if math.IsNaN(lats[i]) || math.IsNaN(lons[i]) {
			continue
		}
		x, y := r.Pixel(lats[i], lons[i])
		drawStar(dc, x, y)
	}

	title := r.opts.Title
	if title == "" {
		title = DefaultTitle
	}
	dc.SetHexColor(titleColor)
	dc.DrawStringAnchored(title, r.cx, titleBand/2, 0.5, 0.5)

	return dc.Image(), nil
}

// outline traces the edge of the projected world
func (r *Renderer) outline(dc *gg.Context) {
	dc.NewSubPath()
	for lat := -90.0; lat <= 90; lat += sampleStep {
		x, y := r.pixel(lat, -180)
		if lat == -90 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	for lat := 90.0; lat >= -90; lat -= sampleStep {
		dc.LineTo(r.pixel(lat, 180))
	}
	dc.ClosePath()
}

func (r *Renderer) drawCountries(dc *gg.Context) {
	dc.SetFillRuleEvenOdd()
	dc.SetLineWidth(0.6)

	for _, c := range r.opts.Countries {
		for _, poly := range c.Geometry {
			if len(poly) == 0 || len(poly[0]) == 0 {
				continue
			}

			outer := unwrapRing(poly[0], r.opts.CenterLon, normalizeLon(poly[0][0].Lon()-r.opts.CenterLon))
			rings := [][]float64{outer}
			for _, hole := range poly[1:] {
				rings = append(rings, unwrapRing(hole, r.opts.CenterLon, outer[0]))
			}
			lo, hi := span(outer)

			// A ring unwrapped past the seam is drawn again one world over;
			// the clip removes whatever falls outside the outline.
			for _, offset := range []float64{-360, 0, 360} {
				if hi+offset < -180 || lo+offset > 180 {
					continue
				}
				for k, ring := range poly {
					r.ringPath(dc, ring, rings[k], offset)
				}
				dc.SetHexColor(landColor)
				dc.FillPreserve()
				dc.SetHexColor(borderColor)
				dc.Stroke()
			}
		}
	}
}

func (r *Renderer) ringPath(dc *gg.Context, ring orb.Ring, dlons []float64, offset float64) {
	dc.NewSubPath()
	for i, p := range ring {
		x, y := r.pixel(p.Lat(), dlons[i]+offset)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
}

func (r *Renderer) drawGraticule(dc *gg.Context) {
	dc.SetHexColor(graticuleColor)
	dc.SetLineWidth(0.5)
	dc.SetDash(3, 3)
	defer dc.SetDash()

	for m := -180.0; m < 180; m += graticuleStep {
		d := normalizeLon(m - r.opts.CenterLon)
		dc.NewSubPath()
		for lat := -90.0; lat <= 90; lat += sampleStep {
			dc.LineTo(r.pixel(lat, d))
		}
		dc.Stroke()
	}

	for p := -90.0; p < 90; p += graticuleStep {
		dc.NewSubPath()
		for d := -180.0; d <= 180; d += sampleStep {
			dc.LineTo(r.pixel(p, d))
		}
		dc.Stroke()
	}
}

// drawStar fills a five-pointed star centered on (x, y)
func drawStar(dc *gg.Context, x, y float64) {
	dc.NewSubPath()
	for i := 0; i < 10; i++ {
		radius := markerOuter
		if i%2 == 1 {
			radius = markerInner
		}
		angle := -math.Pi/2 + float64(i)*math.Pi/5
		px, py := x+radius*math.Cos(angle), y+radius*math.Sin(angle)
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.ClosePath()
	dc.SetHexColor(markerColor)
	dc.Fill()
}

// unwrapRing returns longitudes relative to center with no jump larger than
// 180 degrees between neighbors, starting within 180 degrees of ref
func unwrapRing(ring orb.Ring, center, ref float64) []float64 {
	out := make([]float64, len(ring))
	prev := ref
	for i, p := range ring {
		d := normalizeLon(p.Lon() - center)
		for d-prev > 180 {
			d -= 360
		}
		for d-prev < -180 {
			d += 360
		}
		out[i] = d
		prev = d
	}
	return out
}

func span(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func formatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	default:
		return "", fmt.Errorf("unsupported image format %q", filepath.Ext(path))
	}
}

// SupportedFormat reports whether path has an extension Render can write
func SupportedFormat(path string) bool {
	_, err := formatFor(path)
	return err == nil
}

// Encode writes img in the given format ("png" or "jpeg")
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}
