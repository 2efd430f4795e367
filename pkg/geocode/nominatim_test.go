package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nominatimServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "geodsd-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("lat") {
		case "40.700000":
			assert.Equal(t, "-74.000000", r.URL.Query().Get("lon"))
			assert.Equal(t, "en", r.URL.Query().Get("accept-language"))
			w.Write([]byte(`{"place_id": 1, "address": {"country": "United States", "country_code": "us"}}`))
		case "0.000000":
			w.Write([]byte(`{"error": "Unable to geocode"}`))
		case "95.000000":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"code": 400, "message": "Invalid coordinates"}}`))
		case "1.000000":
			w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`busy`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNominatimReverseCountry(t *testing.T) {
	srv := nominatimServer(t)
	g := NewNominatimGeocoder(srv.URL+"/", "geodsd-test", "en", 5*time.Second)
	ctx := context.Background()

	name, err := g.ReverseCountry(ctx, 40.7, -74.0)
	require.NoError(t, err)
	assert.Equal(t, "United States", name)

	_, err = g.ReverseCountry(ctx, 0, -30)
	assert.True(t, errors.Is(err, ErrNoCountry))

	_, err = g.ReverseCountry(ctx, 95, 0)
	assert.True(t, errors.Is(err, ErrService))
	assert.Contains(t, err.Error(), "400")

	_, err = g.ReverseCountry(ctx, 1, 1)
	assert.True(t, errors.Is(err, ErrService))

	_, err = g.ReverseCountry(ctx, 2, 2)
	assert.True(t, errors.Is(err, ErrService))
	assert.Contains(t, err.Error(), "503")
}

func TestNominatimUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewNominatimGeocoder(url, "geodsd-test", "", time.Second)
	_, err := g.ReverseCountry(context.Background(), 40.7, -74.0)
	assert.True(t, errors.Is(err, ErrService))

	r := NewResolver(g)
	assert.Equal(t, NotFound, r.Country(40.7, -74.0))
}
