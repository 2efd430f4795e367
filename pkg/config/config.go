// Package config loads run configuration from an optional YAML file and
// GEODSD_* environment variables, falling back to defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kass/go-geodsd/pkg/models"
	"github.com/kass/go-geodsd/pkg/render"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. Nested keys use
// underscores, so geocoder.timeout is GEODSD_GEOCODER_TIMEOUT.
const EnvPrefix = "GEODSD_"

// Geocoder providers
const (
	ProviderNominatim = "nominatim"
	ProviderBoundary  = "boundary"
)

// Log formats
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Defaults reproduce the layout the pipeline has always used
const (
	DefaultInputPath        = "./raw_data/user_meta_data.csv"
	DefaultStorePath        = "./database/user_meta_data.db"
	DefaultTableName        = "User Metadata"
	DefaultCSVOutputPath    = "./output/query_results.csv"
	DefaultImageOutputPath  = "./output/query_results.png"
	DefaultQueryFilterValue = "Patrick"
	DefaultLogFormat        = LogFormatAuto
	DefaultLogLevel         = "info"
	DefaultProvider         = ProviderNominatim
	DefaultNominatimURL     = "https://nominatim.openstreetmap.org"
	DefaultUserAgent        = "go-geodsd/1.0"
	DefaultLanguage         = "en"
	DefaultTimeout          = 10 * time.Second
	DefaultProjection       = render.ProjectionRobinson
)

// Validation errors. Each one matches models.ErrConfig with errors.Is.
var (
	ErrMissingInputPath       = fmt.Errorf("input_path is required: %w", models.ErrConfig)
	ErrMissingStorePath       = fmt.Errorf("store_path is required: %w", models.ErrConfig)
	ErrMissingTableName       = fmt.Errorf("table_name is required: %w", models.ErrConfig)
	ErrMissingCSVOutputPath   = fmt.Errorf("csv_output_path is required: %w", models.ErrConfig)
	ErrMissingImageOutputPath = fmt.Errorf("image_output_path is required: %w", models.ErrConfig)
	ErrInvalidImageFormat     = fmt.Errorf("image_output_path must end in .png, .jpg or .jpeg: %w", models.ErrConfig)
	ErrInvalidLogFormat       = fmt.Errorf("log_format must be auto, text or json: %w", models.ErrConfig)
	ErrInvalidLogLevel        = fmt.Errorf("log_level must be debug, info, warn or error: %w", models.ErrConfig)
	ErrInvalidProvider        = fmt.Errorf("geocoder.provider must be nominatim or boundary: %w", models.ErrConfig)
	ErrMissingNominatimURL    = fmt.Errorf("geocoder.nominatim_url is required for the nominatim provider: %w", models.ErrConfig)
	ErrInvalidTimeout         = fmt.Errorf("geocoder.timeout must not be negative: %w", models.ErrConfig)
	ErrInvalidMapSize         = fmt.Errorf("map.width and map.height must be at least 100: %w", models.ErrConfig)
	ErrInvalidProjection      = fmt.Errorf("map.projection must be robinson or equirectangular: %w", models.ErrConfig)
	ErrInvalidCenterLon       = fmt.Errorf("map.center_lon must be within [-180, 180]: %w", models.ErrConfig)
	ErrInvalidNumber          = fmt.Errorf("invalid number: %w", models.ErrConfig)
)

// Config holds the settings of one pipeline run
type Config struct {
	InputPath         string `koanf:"input_path" yaml:"input_path"`
	StorePath         string `koanf:"store_path" yaml:"store_path"`
	TableName         string `koanf:"table_name" yaml:"table_name"`
	CSVOutputPath     string `koanf:"csv_output_path" yaml:"csv_output_path"`
	ImageOutputPath   string `koanf:"image_output_path" yaml:"image_output_path"`
	XLSXOutputPath    string `koanf:"xlsx_output_path" yaml:"xlsx_output_path,omitempty"`
	MetricsOutputPath string `koanf:"metrics_output_path" yaml:"metrics_output_path,omitempty"`
	QueryFilterValue  string `koanf:"query_filter_value" yaml:"query_filter_value"`
	LogFormat         string `koanf:"log_format" yaml:"log_format"`
	LogLevel          string `koanf:"log_level" yaml:"log_level"`

	Geocoder GeocoderConfig `koanf:"geocoder" yaml:"geocoder"`
	Map      MapConfig      `koanf:"map" yaml:"map"`
}

// GeocoderConfig selects and configures the reverse geocoder
type GeocoderConfig struct {
	Provider string `koanf:"provider" yaml:"provider"`
	// BoundariesPath is a GeoJSON of country polygons; empty uses the
	// bundled Natural Earth 110m countries
	BoundariesPath string        `koanf:"boundaries_path" yaml:"boundaries_path"`
	NominatimURL   string        `koanf:"nominatim_url" yaml:"nominatim_url"`
	UserAgent      string        `koanf:"user_agent" yaml:"user_agent"`
	Language       string        `koanf:"language" yaml:"language"`
	Timeout        time.Duration `koanf:"timeout" yaml:"timeout"`
}

// MapConfig configures the rendered map
type MapConfig struct {
	Width      int     `koanf:"width" yaml:"width"`
	Height     int     `koanf:"height" yaml:"height"`
	Projection string  `koanf:"projection" yaml:"projection"`
	CenterLon  float64 `koanf:"center_lon" yaml:"center_lon"`
	Title      string  `koanf:"title" yaml:"title"`
	// BoundariesPath supplies land and borders; empty falls back to
	// geocoder.boundaries_path
	BoundariesPath string `koanf:"boundaries_path" yaml:"boundaries_path,omitempty"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		InputPath:        DefaultInputPath,
		StorePath:        DefaultStorePath,
		TableName:        DefaultTableName,
		CSVOutputPath:    DefaultCSVOutputPath,
		ImageOutputPath:  DefaultImageOutputPath,
		QueryFilterValue: DefaultQueryFilterValue,
		LogFormat:        DefaultLogFormat,
		LogLevel:         DefaultLogLevel,
		Geocoder: GeocoderConfig{
			Provider:     DefaultProvider,
			NominatimURL: DefaultNominatimURL,
			UserAgent:    DefaultUserAgent,
			Language:     DefaultLanguage,
			Timeout:      DefaultTimeout,
		},
		Map: MapConfig{
			Width:      render.DefaultWidth,
			Height:     render.DefaultHeight,
			Projection: DefaultProjection,
			CenterLon:  render.DefaultCenterLon,
			Title:      render.DefaultTitle,
		},
	}
}

// Load reads configuration with the following precedence (highest first):
//  1. GEODSD_* environment variables
//  2. the YAML file at configFilePath, if non-empty
//  3. defaults
//
// The returned errors include parse failures and Validate results.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w: %w", configFilePath, models.ErrConfig, err)}
		}
	}

	d := Default()
	var loadErrs []error

	width, err := getEnvIntOrDefault("map.width", k, d.Map.Width)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	height, err := getEnvIntOrDefault("map.height", k, d.Map.Height)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	centerLon, err := getEnvFloatOrDefault("map.center_lon", k, d.Map.CenterLon)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	timeout, err := getEnvDurationOrDefault("geocoder.timeout", k, d.Geocoder.Timeout)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	cfg := &Config{
		InputPath:         getEnvOrDefault("input_path", k, d.InputPath),
		StorePath:         getEnvOrDefault("store_path", k, d.StorePath),
		TableName:         getEnvOrDefault("table_name", k, d.TableName),
		CSVOutputPath:     getEnvOrDefault("csv_output_path", k, d.CSVOutputPath),
		ImageOutputPath:   getEnvOrDefault("image_output_path", k, d.ImageOutputPath),
		XLSXOutputPath:    getEnvOrDefault("xlsx_output_path", k, ""),
		MetricsOutputPath: getEnvOrDefault("metrics_output_path", k, ""),
		QueryFilterValue:  getEnvOrDefault("query_filter_value", k, d.QueryFilterValue),
		LogFormat:         strings.ToLower(getEnvOrDefault("log_format", k, d.LogFormat)),
		LogLevel:          strings.ToLower(getEnvOrDefault("log_level", k, d.LogLevel)),
		Geocoder: GeocoderConfig{
			Provider:       strings.ToLower(getEnvOrDefault("geocoder.provider", k, d.Geocoder.Provider)),
			BoundariesPath: getEnvOrDefault("geocoder.boundaries_path", k, d.Geocoder.BoundariesPath),
			NominatimURL:   getEnvOrDefault("geocoder.nominatim_url", k, d.Geocoder.NominatimURL),
			UserAgent:      getEnvOrDefault("geocoder.user_agent", k, d.Geocoder.UserAgent),
			Language:       getEnvOrDefault("geocoder.language", k, d.Geocoder.Language),
			Timeout:        timeout,
		},
		Map: MapConfig{
			Width:          width,
			Height:         height,
			Projection:     strings.ToLower(getEnvOrDefault("map.projection", k, d.Map.Projection)),
			CenterLon:      centerLon,
			Title:          getEnvOrDefault("map.title", k, d.Map.Title),
			BoundariesPath: getEnvOrDefault("map.boundaries_path", k, ""),
		},
	}

	return cfg, append(loadErrs, cfg.Validate()...)
}

// EnvKey returns the environment variable overriding a koanf key
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func getEnvOrDefault(key string, k *koanf.Koanf, defaultVal string) string {
	if val := os.Getenv(EnvKey(key)); val != "" {
		return val
	}
	if k.Exists(key) {
		return k.String(key)
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, k *koanf.Koanf, defaultVal int) (int, error) {
	if val := os.Getenv(EnvKey(key)); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", EnvKey(key), ErrInvalidNumber)
		}
		return i, nil
	}
	if k.Exists(key) {
		return k.Int(key), nil
	}
	return defaultVal, nil
}

func getEnvFloatOrDefault(key string, k *koanf.Koanf, defaultVal float64) (float64, error) {
	if val := os.Getenv(EnvKey(key)); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", EnvKey(key), ErrInvalidNumber)
		}
		return f, nil
	}
	if k.Exists(key) {
		return k.Float64(key), nil
	}
	return defaultVal, nil
}

func getEnvDurationOrDefault(key string, k *koanf.Koanf, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(EnvKey(key))
	if val == "" && k.Exists(key) {
		val = k.String(key)
	}
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 10s: %w", key, ErrInvalidNumber)
	}
	return d, nil
}

// Validate checks all fields and returns every problem found
func (c *Config) Validate() []error {
	var errs []error

	if c.InputPath == "" {
		errs = append(errs, ErrMissingInputPath)
	}
	if c.StorePath == "" {
		errs = append(errs, ErrMissingStorePath)
	}
	if c.TableName == "" {
		errs = append(errs, ErrMissingTableName)
	}
	if c.CSVOutputPath == "" {
		errs = append(errs, ErrMissingCSVOutputPath)
	}
	if c.ImageOutputPath == "" {
		errs = append(errs, ErrMissingImageOutputPath)
	} else if !render.SupportedFormat(c.ImageOutputPath) {
		errs = append(errs, ErrInvalidImageFormat)
	}

	switch c.LogFormat {
	case LogFormatAuto, LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, ErrInvalidLogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ErrInvalidLogLevel)
	}

	switch c.Geocoder.Provider {
	case ProviderNominatim:
		if c.Geocoder.NominatimURL == "" {
			errs = append(errs, ErrMissingNominatimURL)
		}
	case ProviderBoundary:
	default:
		errs = append(errs, ErrInvalidProvider)
	}
	if c.Geocoder.Timeout < 0 {
		errs = append(errs, ErrInvalidTimeout)
	}

	if c.Map.Width < 100 || c.Map.Height < 100 {
		errs = append(errs, ErrInvalidMapSize)
	}
	if _, err := render.NewProjection(c.Map.Projection); err != nil {
		errs = append(errs, ErrInvalidProjection)
	}
	if c.Map.CenterLon < -180 || c.Map.CenterLon > 180 {
		errs = append(errs, ErrInvalidCenterLon)
	}

	return errs
}

// MapBoundariesPath returns the GeoJSON used for land and borders
func (c *Config) MapBoundariesPath() string {
	if c.Map.BoundariesPath != "" {
		return c.Map.BoundariesPath
	}
	return c.Geocoder.BoundariesPath
}

// Join folds a slice of errors from Load or Validate into one error
func Join(errs []error) error {
	return errors.Join(errs...)
}

// Dump renders cfg as YAML
func Dump(cfg *Config) ([]byte, error) {
	out, err := yamlv3.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}
