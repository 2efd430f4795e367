package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultNominatimURL is the public OpenStreetMap instance
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	// countryZoom asks Nominatim for country-level detail only
	countryZoom = "3"
)

// nominatimResponse is the subset of the /reverse jsonv2 body we read
type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

// NominatimGeocoder calls the Nominatim /reverse endpoint
type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	language  string
	client    *http.Client
}

// NewNominatimGeocoder creates a client. Nominatim's usage policy requires an
// identifying User-Agent.
func NewNominatimGeocoder(baseURL, userAgent, language string, timeout time.Duration) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &NominatimGeocoder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		language:  language,
		client:    &http.Client{Timeout: timeout},
	}
}

// ReverseCountry implements Geocoder
func (n *NominatimGeocoder) ReverseCountry(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("format", "jsonv2")
	params.Set("zoom", countryZoom)
	params.Set("addressdetails", "1")
	if n.language != "" {
		params.Set("accept-language", n.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	if n.language != "" {
		req.Header.Set("Accept-Language", n.language)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %w", ErrService, err)
	}

	if body.Error != "" || body.Address.Country == "" {
		return "", fmt.Errorf("(%g, %g): %w", lat, lon, ErrNoCountry)
	}
	return body.Address.Country, nil
}
