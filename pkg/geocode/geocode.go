// Package geocode resolves coordinate pairs to country names. A Resolver
// wraps any Geocoder with the never-fail policy used inside SQL queries:
// every lookup failure becomes the NotFound sentinel.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// NotFound is returned by Resolver.Country for every failed lookup
const NotFound = "NAN"

var (
	// ErrNoCountry means the coordinate is valid but lies in no country (open water)
	ErrNoCountry = errors.New("no country at coordinate")
	// ErrService means the geocoder itself failed
	ErrService = errors.New("geocoding service error")
)

// Geocoder performs a single reverse lookup
type Geocoder interface {
	ReverseCountry(ctx context.Context, lat, lon float64) (string, error)
}

// Outcome classifies a resolver call
type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeNoCountry Outcome = "no_country"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeError     Outcome = "error"
)

// Outcomes lists every outcome, for metric initialization
var Outcomes = []Outcome{OutcomeResolved, OutcomeNoCountry, OutcomeInvalid, OutcomeError}

// Recorder receives one observation per resolver call
type Recorder interface {
	ObserveGeocode(outcome string)
}

// Resolver applies the fallback policy around a Geocoder
type Resolver struct {
	geocoder Geocoder
	logger   *slog.Logger
	recorder Recorder
	timeout  time.Duration
	ctx      context.Context

	mu    sync.Mutex
	stats map[Outcome]int
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger used for per-lookup debug lines
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithRecorder sets a metrics sink
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// WithTimeout bounds each lookup; zero means no per-lookup deadline
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithContext sets the parent context of every lookup. SQL scalar functions
// carry no context, so the run context is bound here instead.
func WithContext(ctx context.Context) Option {
	return func(r *Resolver) { r.ctx = ctx }
}

// NewResolver creates a resolver around g
func NewResolver(g Geocoder, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder: g,
		logger:   slog.Default(),
		ctx:      context.Background(),
		stats:    make(map[Outcome]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Country returns the country at (lat, lon) or NotFound. It never fails.
func (r *Resolver) Country(lat, lon float64) string {
	name, outcome, err := r.lookup(lat, lon)
	r.record(outcome)

	if outcome != OutcomeResolved {
		r.logger.Debug("geocode fallback",
			"lat", lat,
			"lon", lon,
			"outcome", string(outcome),
			"error", err,
		)
		return NotFound
	}
	return name
}

func (r *Resolver) lookup(lat, lon float64) (name string, outcome Outcome, err error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return "", OutcomeInvalid, errors.New("coordinate is not a number")
	}
	if r.geocoder == nil {
		return "", OutcomeError, fmt.Errorf("%w: no geocoder configured", ErrService)
	}

	defer func() {
		if p := recover(); p != nil {
			name, outcome, err = "", OutcomeError, fmt.Errorf("%w: panic: %v", ErrService, p)
		}
	}()

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	name, err = r.geocoder.ReverseCountry(ctx, lat, lon)
	switch {
	case err == nil && name != "":
		return name, OutcomeResolved, nil
	case err == nil, errors.Is(err, ErrNoCountry):
		return "", OutcomeNoCountry, err
	default:
		return "", OutcomeError, err
	}
}

func (r *Resolver) record(outcome Outcome) {
	r.mu.Lock()
	r.stats[outcome]++
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.ObserveGeocode(string(outcome))
	}
}

// Stats returns a copy of the outcome counters
func (r *Resolver) Stats() map[Outcome]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[Outcome]int, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}
