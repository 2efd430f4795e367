package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kass/go-geodsd/pkg/config"
	"github.com/kass/go-geodsd/pkg/export"
	"github.com/kass/go-geodsd/pkg/models"
	"github.com/kass/go-geodsd/pkg/pipeline"
	"github.com/kass/go-geodsd/pkg/store"
	"github.com/spf13/cobra"
)

var (
	csvOut     string
	imageOut   string
	xlsxOut    string
	metricsOut string

	previewRows int
	jsonOutput  bool
	lat, lon    float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long:  `Load the input CSV, query it, export the results and render the map.`,
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the input CSV into the store",
	Long:  `Replace the configured table with the contents of the input CSV.`,
	Args:  cobra.NoArgs,
	RunE:  runLoad,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a loaded store",
	Long:  `Select rows by first name from a previously loaded store and resolve their countries.`,
	Args:  cobra.NoArgs,
	RunE:  runQuery,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one coordinate to a country",
	Args:  cobra.NoArgs,
	RunE:  runResolve,
}

var showCmd = &cobra.Command{
	Use:   "show [results.csv]",
	Short: "Print an exported results file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	runCmd.Flags().StringVar(&csvOut, "csv-out", "", "Results CSV path")
	runCmd.Flags().StringVar(&imageOut, "image-out", "", "Map image path (.png, .jpg)")
	runCmd.Flags().StringVar(&xlsxOut, "xlsx-out", "", "Optional results XLSX path")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Optional Prometheus textfile path")

	loadCmd.Flags().IntVarP(&previewRows, "preview", "p", 0, "Print the first N input rows")

	queryCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print rows as JSON")

	resolveCmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	resolveCmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	resolveCmd.MarkFlagRequired("lat")
	resolveCmd.MarkFlagRequired("lon")

	showCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print rows as JSON")
	showCmd.Flags().StringVar(&csvOut, "csv-out", "", "Results CSV path")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	summary, err := pipeline.New(cfg, pipeline.WithLogger(logger)).Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(cfg, summary))
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	stats, err := pipeline.New(cfg, pipeline.WithLogger(logger)).Load(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(renderLoad(cfg, stats))

	if previewRows > 0 {
		frame, err := store.ReadFrame(cfg.InputPath)
		if err != nil {
			return err
		}
		fmt.Println(renderRecords(frame.Records(previewRows)))
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	rows, err := pipeline.New(cfg, pipeline.WithLogger(logger)).Query(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(rows)
	}
	fmt.Println(renderRows(rows))
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	resolver, err := pipeline.New(cfg, pipeline.WithLogger(logger)).Resolver(cmd.Context(), logger)
	if err != nil {
		return err
	}
	fmt.Println(resolver.Country(lat, lon))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		path = cfg.CSVOutputPath
	}

	rows, err := export.ReadCSV(path)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(rows)
	}
	fmt.Println(renderRows(rows))
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	out, err := config.Dump(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func writeJSON(rows []models.ResultRow) error {
	if rows == nil {
		rows = []models.ResultRow{}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
