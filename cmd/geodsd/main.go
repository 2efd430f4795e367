package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kass/go-geodsd/pkg/config"
	"github.com/kass/go-geodsd/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
	logFormat  string

	inputPath  string
	storePath  string
	tableName  string
	firstName  string
	provider   string
	boundaries string
)

var rootCmd = &cobra.Command{
	Use:   "geodsd",
	Short: "Geospatial data storage and display",
	Long: `Load user location data into SQLite, query it with a reverse geocoding
SQL function, and plot the matching rows on a world map.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	pf.StringVar(&logFormat, "log-format", "", "Log format: auto, text or json")
	pf.StringVarP(&inputPath, "input", "i", "", "Input CSV file")
	pf.StringVarP(&storePath, "store", "s", "", "SQLite database file")
	pf.StringVar(&tableName, "table", "", "Table name")
	pf.StringVarP(&firstName, "first-name", "n", "", "First name to query")
	pf.StringVar(&provider, "geocoder", "", "Geocoder: nominatim or boundary")
	pf.StringVar(&boundaries, "boundaries", "", "Country boundaries GeoJSON (default: bundled)")

	rootCmd.AddCommand(runCmd, loadCmd, queryCmd, resolveCmd, showCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}

// setup loads the configuration, applies command line overrides and
// installs the default logger
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, errs := config.Load(configFile)
	if cfg == nil {
		return nil, nil, config.Join(errs)
	}

	// Validation runs again once the flags are applied
	var loadErrs []error
	for _, err := range errs {
		if errors.Is(err, config.ErrInvalidNumber) {
			loadErrs = append(loadErrs, err)
		}
	}

	applyFlags(cmd, cfg)
	if errs := append(loadErrs, cfg.Validate()...); len(errs) > 0 {
		return nil, nil, config.Join(errs)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(os.Stderr, cfg.LogFormat, level)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, val string) {
		if cmd.Flags().Changed(name) {
			*dst = val
		}
	}

	set("log-format", &cfg.LogFormat, logFormat)
	set("input", &cfg.InputPath, inputPath)
	set("store", &cfg.StorePath, storePath)
	set("table", &cfg.TableName, tableName)
	set("first-name", &cfg.QueryFilterValue, firstName)
	set("geocoder", &cfg.Geocoder.Provider, provider)
	set("boundaries", &cfg.Geocoder.BoundariesPath, boundaries)

	set("csv-out", &cfg.CSVOutputPath, csvOut)
	set("image-out", &cfg.ImageOutputPath, imageOut)
	set("xlsx-out", &cfg.XLSXOutputPath, xlsxOut)
	set("metrics-out", &cfg.MetricsOutputPath, metricsOut)
}
