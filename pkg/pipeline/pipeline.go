// Package pipeline runs the load, query, export and render stages in order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kass/go-geodsd/pkg/config"
	"github.com/kass/go-geodsd/pkg/export"
	"github.com/kass/go-geodsd/pkg/geo"
	"github.com/kass/go-geodsd/pkg/geocode"
	"github.com/kass/go-geodsd/pkg/metrics"
	"github.com/kass/go-geodsd/pkg/models"
	"github.com/kass/go-geodsd/pkg/paths"
	"github.com/kass/go-geodsd/pkg/render"
	"github.com/kass/go-geodsd/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Summary describes a finished run
type Summary struct {
	RunID       uuid.UUID
	RowsLoaded  int
	RowsMatched int
	Geocode     map[geocode.Outcome]int
	Outputs     []string
	Duration    time.Duration
}

// Pipeline holds the configuration and collaborators of a run
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	geocoder geocode.Geocoder
	metrics  *metrics.Metrics
	registry *prometheus.Registry

	// boundaries loaded so far, by path; "" is the bundled layer
	countries map[string][]*geo.Country
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithGeocoder replaces the geocoder selected by the configuration
func WithGeocoder(g geocode.Geocoder) Option {
	return func(p *Pipeline) { p.geocoder = g }
}

// New creates a pipeline. Metrics are registered on a private registry.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	outcomes := make([]string, len(geocode.Outcomes))
	for i, o := range geocode.Outcomes {
		outcomes[i] = string(o)
	}

	p := &Pipeline{
		cfg:       cfg,
		logger:    slog.Default(),
		metrics:   metrics.NewMetrics(outcomes...),
		registry:  prometheus.NewRegistry(),
		countries: make(map[string][]*geo.Country),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.registry.MustRegister(p.metrics.Collectors()...)
	return p
}

// Registry returns the registry holding the run metrics
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// Run executes every stage once. Outputs written before a failing stage are
// left in place.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.New()}
	logger := p.logger.With("run_id", summary.RunID.String())

	logger.Info("starting run",
		"input", p.cfg.InputPath,
		"store", p.cfg.StorePath,
		"table", p.cfg.TableName,
		"first_name", p.cfg.QueryFilterValue,
	)

	if err := paths.EnsureParents(
		p.cfg.StorePath,
		p.cfg.CSVOutputPath,
		p.cfg.ImageOutputPath,
		p.cfg.XLSXOutputPath,
		p.cfg.MetricsOutputPath,
	); err != nil {
		return nil, err
	}

	resolver, err := p.Resolver(ctx, logger)
	if err != nil {
		return nil, err
	}
	land, err := p.mapCountries()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(p.cfg.StorePath, store.CountryFunc(resolver.Country))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var loadStats *store.LoadStats
	err = p.stage(logger, metrics.StageLoad, func() error {
		loadStats, err = st.LoadCSV(ctx, p.cfg.InputPath, p.cfg.TableName)
		return err
	})
	if err != nil {
		return nil, err
	}
	summary.RowsLoaded = loadStats.Rows
	p.metrics.AddRowsLoaded(loadStats.Rows)
	logger.Info("loaded table", "store", st.Path(), "table", loadStats.Table, "rows", loadStats.Rows, "columns", len(loadStats.Columns))

	var rows []models.ResultRow
	err = p.stage(logger, metrics.StageQuery, func() error {
		rows, err = st.QueryByFirstName(ctx, p.cfg.TableName, p.cfg.QueryFilterValue)
		return err
	})
	if err != nil {
		return nil, err
	}
	summary.RowsMatched = len(rows)
	summary.Geocode = resolver.Stats()
	p.metrics.AddRowsMatched(len(rows))
	logger.Info("query finished", "rows", len(rows), "geocode", outcomeAttrs(summary.Geocode))

	if err := st.Close(); err != nil {
		return nil, err
	}

	err = p.stage(logger, metrics.StageExport, func() error {
		if err := export.WriteCSV(p.cfg.CSVOutputPath, rows); err != nil {
			return err
		}
		summary.Outputs = append(summary.Outputs, p.cfg.CSVOutputPath)

		if p.cfg.XLSXOutputPath != "" {
			if err := export.WriteXLSX(p.cfg.XLSXOutputPath, rows); err != nil {
				return err
			}
			summary.Outputs = append(summary.Outputs, p.cfg.XLSXOutputPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(logger, metrics.StageRender, func() error {
		return p.render(rows, land)
	})
	if err != nil {
		return nil, err
	}
	summary.Outputs = append(summary.Outputs, p.cfg.ImageOutputPath)

	p.metrics.MarkSuccess(time.Now())
	if p.cfg.MetricsOutputPath != "" {
		if err := metrics.WriteTextfile(p.cfg.MetricsOutputPath, p.registry); err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrIO, err)
		}
		summary.Outputs = append(summary.Outputs, p.cfg.MetricsOutputPath)
	}

	summary.Duration = time.Since(start)
	logger.Info("run complete", "outputs", len(summary.Outputs), "duration", summary.Duration)
	return summary, nil
}

// Load runs only the load stage
func (p *Pipeline) Load(ctx context.Context) (*store.LoadStats, error) {
	if err := paths.EnsureParent(p.cfg.StorePath); err != nil {
		return nil, err
	}

	st, err := store.Open(p.cfg.StorePath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var stats *store.LoadStats
	err = p.stage(p.logger, metrics.StageLoad, func() error {
		stats, err = st.LoadCSV(ctx, p.cfg.InputPath, p.cfg.TableName)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.metrics.AddRowsLoaded(stats.Rows)
	return stats, nil
}

// Query runs only the query stage against a previously loaded store
func (p *Pipeline) Query(ctx context.Context) ([]models.ResultRow, error) {
	resolver, err := p.Resolver(ctx, p.logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(p.cfg.StorePath, store.CountryFunc(resolver.Country))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var rows []models.ResultRow
	err = p.stage(p.logger, metrics.StageQuery, func() error {
		rows, err = st.QueryByFirstName(ctx, p.cfg.TableName, p.cfg.QueryFilterValue)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.metrics.AddRowsMatched(len(rows))
	return rows, nil
}

// Resolver builds the country resolver for ctx from the configured geocoder
func (p *Pipeline) Resolver(ctx context.Context, logger *slog.Logger) (*geocode.Resolver, error) {
	g, err := p.Geocoder()
	if err != nil {
		return nil, err
	}
	return geocode.NewResolver(g,
		geocode.WithLogger(logger),
		geocode.WithRecorder(p.metrics),
		geocode.WithTimeout(p.cfg.Geocoder.Timeout),
		geocode.WithContext(ctx),
	), nil
}

// Geocoder returns the injected geocoder or builds the configured one
func (p *Pipeline) Geocoder() (geocode.Geocoder, error) {
	if p.geocoder != nil {
		return p.geocoder, nil
	}

	switch p.cfg.Geocoder.Provider {
	case config.ProviderBoundary:
		countries, err := p.boundaries(p.cfg.Geocoder.BoundariesPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrConfig, err)
		}
		g, err := geocode.NewBoundaryGeocoderFromCountries(countries)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrConfig, err)
		}
		p.geocoder = g
	case config.ProviderNominatim:
		p.geocoder = geocode.NewNominatimGeocoder(
			p.cfg.Geocoder.NominatimURL,
			p.cfg.Geocoder.UserAgent,
			p.cfg.Geocoder.Language,
			p.cfg.Geocoder.Timeout,
		)
	default:
		return nil, fmt.Errorf("unknown geocoder %q: %w", p.cfg.Geocoder.Provider, models.ErrConfig)
	}
	return p.geocoder, nil
}

func (p *Pipeline) boundaries(path string) ([]*geo.Country, error) {
	if countries, ok := p.countries[path]; ok {
		return countries, nil
	}
	countries, err := geo.LoadOrBuiltin(path)
	if err != nil {
		return nil, err
	}
	p.countries[path] = countries
	return countries, nil
}

// mapCountries returns the land layer drawn under the markers
func (p *Pipeline) mapCountries() ([]*geo.Country, error) {
	countries, err := p.boundaries(p.cfg.MapBoundariesPath())
	if err != nil {
		return nil, fmt.Errorf("%w: map boundaries: %w", models.ErrConfig, err)
	}
	return countries, nil
}

func (p *Pipeline) render(rows []models.ResultRow, countries []*geo.Country) error {
	r, err := render.NewRenderer(render.Options{
		Width:      p.cfg.Map.Width,
		Height:     p.cfg.Map.Height,
		Projection: p.cfg.Map.Projection,
		CenterLon:  p.cfg.Map.CenterLon,
		Title:      p.cfg.Map.Title,
		Countries:  countries,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrConfig, err)
	}

	lats, lons := models.Coordinates(rows)
	return r.Render(p.cfg.ImageOutputPath, lats, lons)
}

func (p *Pipeline) stage(logger *slog.Logger, name string, fn func() error) error {
	start := time.Now()
	logger.Info("stage started", "stage", name)

	err := fn()
	elapsed := time.Since(start)
	p.metrics.ObserveStage(name, elapsed)
	if err != nil {
		logger.Error("stage failed", "stage", name, "error", err)
		return fmt.Errorf("%s stage: %w", name, err)
	}

	logger.Info("stage finished", "stage", name, "duration", elapsed)
	return nil
}

func outcomeAttrs(stats map[geocode.Outcome]int) slog.Value {
	attrs := make([]slog.Attr, 0, len(geocode.Outcomes))
	for _, o := range geocode.Outcomes {
		attrs = append(attrs, slog.Int(string(o), stats[o]))
	}
	return slog.GroupValue(attrs...)
}
