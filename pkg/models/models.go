package models

import (
	"encoding/json"
	"math"
)

// Result column names, in output order. The casing is part of the CSV contract.
const (
	ColFirstName = "First_Name"
	ColLastName  = "Last_Name"
	ColEmail     = "EMAIL"
	ColLatitude  = "LATITUDE"
	ColLongitude = "LONGITUDE"
	ColCountry   = "COUNTRY"
)

// ResultColumns is the header of every query result export
var ResultColumns = []string{ColFirstName, ColLastName, ColEmail, ColLatitude, ColLongitude, ColCountry}

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both coordinates are numbers. No range check is done.
func (l Location) Valid() bool {
	return !math.IsNaN(l.Lat) && !math.IsNaN(l.Lon)
}

// Record is one row of the input file
type Record struct {
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	Location  Location          `json:"location"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// ResultRow is one row of the query result. Missing coordinates are NaN.
type ResultRow struct {
	FirstName string  `json:"First_Name"`
	LastName  string  `json:"Last_Name"`
	Email     string  `json:"EMAIL"`
	Latitude  float64 `json:"LATITUDE"`
	Longitude float64 `json:"LONGITUDE"`
	Country   string  `json:"COUNTRY"`
}

// Location returns the coordinate pair of the row
func (r ResultRow) Location() Location {
	return Location{Lat: r.Latitude, Lon: r.Longitude}
}

// MarshalJSON writes missing coordinates as null
func (r ResultRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FirstName string   `json:"First_Name"`
		LastName  string   `json:"Last_Name"`
		Email     string   `json:"EMAIL"`
		Latitude  *float64 `json:"LATITUDE"`
		Longitude *float64 `json:"LONGITUDE"`
		Country   string   `json:"COUNTRY"`
	}{r.FirstName, r.LastName, r.Email, nullable(r.Latitude), nullable(r.Longitude), r.Country})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Coordinates splits rows into parallel latitude and longitude slices
func Coordinates(rows []ResultRow) (lats, lons []float64) {
	lats = make([]float64, len(rows))
	lons = make([]float64, len(rows))
	for i, r := range rows {
		loc := r.Location()
		lats[i], lons[i] = loc.Lat, loc.Lon
	}
	return lats, lons
}
