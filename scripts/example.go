package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/kass/go-geodsd/pkg/geo"
	"github.com/kass/go-geodsd/pkg/geocode"
	"github.com/kass/go-geodsd/pkg/models"
	"github.com/kass/go-geodsd/pkg/paths"
	"github.com/kass/go-geodsd/pkg/render"
)

func main() {
	var (
		boundaries = flag.String("boundaries", "", "Country boundaries GeoJSON (default: bundled Natural Earth 110m)")
		output     = flag.String("o", "output/cities.png", "Map image path")
	)
	flag.Parse()

	countries, err := geo.LoadOrBuiltin(*boundaries)
	if err != nil {
		log.Fatalf("Failed to load boundaries: %v", err)
	}
	index, err := geo.NewCountryIndex(countries)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Indexed %d countries\n\n", index.Count())

	cities := []struct {
		Name     string
		Location models.Location
	}{
		{"New York", models.Location{Lat: 40.7128, Lon: -74.0060}},
		{"Los Angeles", models.Location{Lat: 34.0522, Lon: -118.2437}},
		{"London", models.Location{Lat: 51.5074, Lon: -0.1278}},
		{"Paris", models.Location{Lat: 48.8566, Lon: 2.3522}},
		{"Tokyo", models.Location{Lat: 35.6762, Lon: 139.6503}},
		{"Sydney", models.Location{Lat: -33.8688, Lon: 151.2093}},
		{"Johannesburg", models.Location{Lat: -26.2041, Lon: 28.0473}},
		{"Mid-Atlantic", models.Location{Lat: 0, Lon: -30}},
	}

	// Example 1: resolve each city through the same fallback policy the SQL function uses
	fmt.Println("=== Reverse geocoding ===")
	resolver := geocode.NewResolver(geocode.NewBoundaryGeocoder(index))
	lats := make([]float64, len(cities))
	lons := make([]float64, len(cities))
	for i, c := range cities {
		fmt.Printf("  - %-13s (%8.4f, %9.4f) -> %s\n", c.Name, c.Location.Lat, c.Location.Lon,
			resolver.Country(c.Location.Lat, c.Location.Lon))
		lats[i], lons[i] = c.Location.Lat, c.Location.Lon
	}

	// Example 2: countries whose bounds touch Western Europe
	fmt.Println("\n=== Countries near Western Europe (Bounding Box) ===")
	europe := models.BoundingBox{
		BottomLeft: models.Location{Lat: 43, Lon: -5},
		TopRight:   models.Location{Lat: 52, Lon: 8},
	}
	found, err := index.QueryBox(europe)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range found {
		fmt.Printf("  - %s\n", c.Name)
	}

	// Example 3: plot the cities
	fmt.Println("\n=== Rendering ===")
	r, err := render.NewRenderer(render.Options{
		CenterLon: render.DefaultCenterLon,
		Title:     "Example Cities",
		Countries: countries,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := paths.EnsureParent(*output); err != nil {
		log.Fatal(err)
	}
	if err := r.Render(*output, lats, lons); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Map saved to %s\n", *output)
}
