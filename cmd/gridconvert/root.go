package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridconvert/internal/config"
	"github.com/jgoulah/gridconvert/internal/database"
	"github.com/jgoulah/gridconvert/internal/occupancy"
	"github.com/jgoulah/gridconvert/internal/pipeline"
)

var (
	cfgFile  string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "gridconvert",
	Short: "Normalize energy consumption exports into clean time series",
	Long: `GridConvert is a CLI tool to turn heterogeneous consumption exports (CSV, XLS, XLSX)
into one gap-filled, merged time series, and to prepare standard data files for upload
to a time-series platform. Converted records can be kept in a local SQLite database.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config, else info)")
}

// setupLogging configures the standard logger before any command runs
func setupLogging(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level = cfg.GetLogLevel()
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(lvl)
	return nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "data.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// readUploads reads the named files from disk
func readUploads(paths []string, columns []string) ([]pipeline.Upload, int64, error) {
	uploads := make([]pipeline.Upload, 0, len(paths))
	var total int64
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("reading %s: %w", path, err)
		}
		total += int64(len(data))
		uploads = append(uploads, pipeline.Upload{
			Name:    filepath.Base(path),
			Data:    data,
			Columns: columns,
		})
	}
	return uploads, total, nil
}

// loadCalendar builds the on-peak and occupancy calendar from config
func loadCalendar(cfg *config.Config) (*occupancy.Calendar, error) {
	start, err := occupancy.ParseClock(cfg.GetOnPeakStart())
	if err != nil {
		return nil, err
	}
	end, err := occupancy.ParseClock(cfg.GetOnPeakEnd())
	if err != nil {
		return nil, err
	}

	var profiles []occupancy.Profile
	for _, p := range cfg.Calendar.Occupancy {
		profile := occupancy.Profile{}
		for _, day := range p.Days {
			d, err := occupancy.ParseWeekday(day)
			if err != nil {
				return nil, err
			}
			profile.Days = append(profile.Days, d)
		}
		if profile.Open, err = occupancy.ParseClock(p.GetOpen()); err != nil {
			return nil, err
		}
		if profile.Close, err = occupancy.ParseClock(p.GetClose()); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return occupancy.New(start, end, cfg.Calendar.WeekendsOnPeak, profiles...)
}

// writeFile writes data to path, creating its directory
func writeFile(path string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func startBanner(name string) {
	fmt.Printf("=== %s started at %s ===\n", name, time.Now().Format("2006-01-02 15:04:05 MST"))
}
