package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultRowJSON(t *testing.T) {
	rows := []ResultRow{
		{FirstName: "Patrick", LastName: "Smith", Email: "p@x.com", Latitude: 40.7, Longitude: -74, Country: "United States"},
		{FirstName: "Patrick", LastName: "Blank", Email: "pb@x.com", Latitude: math.NaN(), Longitude: math.NaN(), Country: "NAN"},
	}

	out, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"First_Name":"Patrick","Last_Name":"Smith","EMAIL":"p@x.com","LATITUDE":40.7,"LONGITUDE":-74,"COUNTRY":"United States"},
		{"First_Name":"Patrick","Last_Name":"Blank","EMAIL":"pb@x.com","LATITUDE":null,"LONGITUDE":null,"COUNTRY":"NAN"}
	]`, string(out))
}

func TestCoordinates(t *testing.T) {
	lats, lons := Coordinates([]ResultRow{{Latitude: 1, Longitude: 2}, {Latitude: 3, Longitude: 4}})
	assert.Equal(t, []float64{1, 3}, lats)
	assert.Equal(t, []float64{2, 4}, lons)

	lats, lons = Coordinates(nil)
	assert.Empty(t, lats)
	assert.Empty(t, lons)
}

func TestLocationValid(t *testing.T) {
	assert.True(t, Location{Lat: 95, Lon: 400}.Valid())
	assert.False(t, Location{Lat: math.NaN(), Lon: 0}.Valid())
}

func TestBoundingBoxContains(t *testing.T) {
	box := BoundingBox{BottomLeft: Location{Lat: 0, Lon: 0}, TopRight: Location{Lat: 10, Lon: 10}}
	assert.True(t, box.Contains(Location{Lat: 10, Lon: 0}))
	assert.False(t, box.Contains(Location{Lat: 10.1, Lon: 5}))
}
