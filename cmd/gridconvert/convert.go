package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridconvert/internal/config"
	"github.com/jgoulah/gridconvert/internal/export"
	"github.com/jgoulah/gridconvert/internal/pipeline"
	"github.com/jgoulah/gridconvert/internal/series"
	"github.com/jgoulah/gridconvert/pkg/models"
)

var (
	convertFrequency      string
	convertStrategy       string
	convertClassification string
	convertColumns        []string
	convertOutput         string
	convertStore          bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert consumption exports into one merged time series",
	Long: `Loads every file, detects its datetime and consumption columns, parses timestamps,
reindexes each series onto a regular grid, fills the gaps and merges all series into one
table with columns timestamp, consumption_kWh, source_file and missing_flag.

Files that cannot be converted are reported and skipped. The output format follows the
extension of --output (.csv or .xlsx).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertFrequency, "frequency", "", "Grid frequency: minute, 15min, hourly, daily (default: inferred per file)")
	convertCmd.Flags().StringVar(&convertStrategy, "strategy", "", "Gap filling: auto, distribute, zero, nan (default from config, else auto)")
	convertCmd.Flags().StringVar(&convertClassification, "classification", "", "Reading type: auto, cumulative, interval (default from config, else auto)")
	convertCmd.Flags().StringSliceVar(&convertColumns, "column", nil, "Consumption column(s) to convert (default: auto-detect)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "standardized.csv", "Output file (.csv or .xlsx)")
	convertCmd.Flags().BoolVar(&convertStore, "store", false, "Also store the merged records in the database")
	rootCmd.AddCommand(convertCmd)
}

// pipelineOptions merges config defaults with command line flags
func pipelineOptions(cfg *config.Config) (pipeline.Options, error) {
	conv := cfg.Conversion
	if convertFrequency != "" {
		conv.Frequency = convertFrequency
	}
	if convertStrategy != "" {
		conv.Strategy = convertStrategy
	}
	if convertClassification != "" {
		conv.Classification = convertClassification
	}

	freq, err := series.ParseFrequency(conv.Frequency)
	if err != nil {
		return pipeline.Options{}, err
	}
	strategy, err := series.ParseStrategy(conv.Strategy)
	if err != nil {
		return pipeline.Options{}, err
	}
	classification, err := series.ParseClassification(conv.Classification)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Frequency:           freq,
		Strategy:            strategy,
		Classification:      classification,
		MaxGridPoints:       cfg.GetMaxGridPoints(),
		DatetimeKeywords:    conv.DatetimeKeywords,
		ConsumptionKeywords: conv.ConsumptionKeywords,
	}, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	startBanner("Convert")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	opts, err := pipelineOptions(cfg)
	if err != nil {
		return err
	}

	uploads, size, err := readUploads(args, convertColumns)
	if err != nil {
		return err
	}
	fmt.Printf("Converting %d files (%s)...\n", len(uploads), humanize.Bytes(uint64(size)))

	res, err := pipeline.New(opts, log.StandardLogger()).Run(uploads)
	if err != nil {
		return fmt.Errorf("converting: %w", err)
	}

	for _, a := range res.Advisories {
		fmt.Printf("⚠ Skipped %s\n", a)
	}
	for _, s := range res.Series {
		fmt.Printf("✓ %s [%s]: %s points at %s (%s, cumulative=%t)\n",
			s.SourceFile, s.Column, humanize.Comma(int64(len(s.Records))), s.Frequency, s.Strategy, s.Cumulative)
	}

	if err := writeMerged(convertOutput, res.Merged); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %s records to %s\n", humanize.Comma(int64(len(res.Merged.Records))), convertOutput)

	if convertStore {
		if err := storeRun(opts, len(uploads), res.Merged); err != nil {
			return err
		}
	}

	return nil
}

func writeMerged(path string, m *series.Merged) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		wb, err := export.MergedWorkbook(m)
		if err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}
		defer wb.Close()
		return writeFile(path, func(f *os.File) error { return export.WriteWorkbook(f, wb) })
	case ".csv":
		return writeFile(path, func(f *os.File) error { return export.WriteMergedCSV(f, m) })
	default:
		return fmt.Errorf("unsupported output format: %s (available: .csv, .xlsx)", path)
	}
}

func storeRun(opts pipeline.Options, files int, m *series.Merged) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	freq := opts.Frequency.String()
	if opts.Frequency == series.FrequencyNone {
		freq = "inferred"
	}
	strategy := string(opts.Strategy)
	if strategy == "" {
		strategy = string(series.StrategyAuto)
	}

	run := &models.Run{
		Frequency: freq,
		Strategy:  strategy,
		Files:     files,
		Records:   len(m.Records),
	}
	if err := db.InsertRun(run); err != nil {
		return err
	}

	inserted, err := db.InsertRecords(run.ID, m.Records)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Stored run %s: %s new records (%s already present)\n",
		run.ID, humanize.Comma(int64(inserted)), humanize.Comma(int64(len(m.Records)-inserted)))
	return nil
}
