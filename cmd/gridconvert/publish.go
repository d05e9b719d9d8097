package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridconvert/internal/config"
	"github.com/jgoulah/gridconvert/internal/publisher"
	"github.com/jgoulah/gridconvert/internal/series"
	"github.com/jgoulah/gridconvert/pkg/models"
)

var (
	publishSource     string
	publishColumn     string
	publishSourceID   string
	publishVariableID string
	publishSince      string
	publishUntil      string
	publishAll        bool
	publishLimit      int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish stored records to the time-series platform",
	Long: `Reads stored consumption records from the database and sends them as standard
records over MQTT and/or the platform HTTP API. Source and variable ids come from the
sources section of the config, or from --source-id/--variable-id together with --source.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishSource, "source", "", "Source file to publish (default: all configured sources)")
	publishCmd.Flags().StringVar(&publishColumn, "column", "", "Only publish records cleaned from this consumption column")
	publishCmd.Flags().StringVar(&publishSourceID, "source-id", "", "Source id (requires --source)")
	publishCmd.Flags().StringVar(&publishVariableID, "variable-id", "", "Variable id (requires --source)")
	publishCmd.Flags().StringVar(&publishSince, "since", "", "Only publish data since this date (YYYY-MM-DD or relative like 7d)")
	publishCmd.Flags().StringVar(&publishUntil, "until", "", "Only publish data until this date (YYYY-MM-DD)")
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all records (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of records to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	startBanner("Publish")

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	targets, err := publishTargets(cfg)
	if err != nil {
		return err
	}

	// Create publisher
	pub, err := publisher.New(cfg.MQTT, cfg.Platform)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Parse date filters if provided
	var sinceDate, untilDate *time.Time
	if publishSince != "" {
		since, err := parseDate(publishSince)
		if err != nil {
			return fmt.Errorf("parsing --since date: %w", err)
		}
		sinceDate = &since
	}
	if publishUntil != "" {
		until, err := parseDate(publishUntil)
		if err != nil {
			return fmt.Errorf("parsing --until date: %w", err)
		}
		untilDate = &until
	}

	totalPublished := 0
	for source, ids := range targets {
		var data []models.UsageRecord
		if publishAll {
			data, err = db.ListRecords(source)
		} else {
			data, err = db.ListUnpublished(source)
		}
		if err != nil {
			return fmt.Errorf("listing data for %s: %w", source, err)
		}

		filteredData := []models.UsageRecord{}
		for _, record := range data {
			// Missing points are not sent
			if !record.KWh.Valid {
				continue
			}
			if publishColumn != "" && record.Column != publishColumn {
				continue
			}
			if sinceDate != nil && record.Timestamp.Before(*sinceDate) {
				continue
			}
			if untilDate != nil && record.Timestamp.After(*untilDate) {
				continue
			}
			filteredData = append(filteredData, record)
		}

		if len(filteredData) == 0 {
			fmt.Printf("No data to publish for %s\n", source)
			continue
		}

		// Apply limit if specified
		if publishLimit > 0 && len(filteredData) > publishLimit {
			filteredData = filteredData[:publishLimit]
			fmt.Printf("Limiting to %d records (--limit flag)\n", publishLimit)
		}

		fmt.Printf("Publishing %d records for %s...\n", len(filteredData), source)
		published := 0
		for i, record := range filteredData {
			rec := models.StandardRecord{
				Date:       record.Timestamp.Format(series.TimestampLayout),
				Value:      series.FormatDecimal(record.KWh),
				SourceID:   ids.SourceID,
				VariableID: ids.VariableID,
			}
			fmt.Printf("[%d/%d] Publishing %s (%s kWh)... ", i+1, len(filteredData), rec.Date, rec.Value)
			if err := pub.Publish(rec); err != nil {
				fmt.Printf("FAILED: %v\n", err)
				continue
			}

			// Mark record as published in database
			if err := db.MarkPublished(record.ID); err != nil {
				fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
			} else {
				fmt.Printf("✓\n")
			}
			published++
		}

		fmt.Printf("Successfully published %d/%d records for %s\n", published, len(filteredData), source)
		totalPublished += published
	}

	fmt.Printf("\nTotal records published: %d\n", totalPublished)
	return nil
}

// publishTargets resolves the source files to publish and their ids
func publishTargets(cfg *config.Config) (map[string]config.SourceConfig, error) {
	if publishSource != "" {
		if publishSourceID != "" || publishVariableID != "" {
			if publishSourceID == "" || publishVariableID == "" {
				return nil, fmt.Errorf("--source-id and --variable-id must be given together")
			}
			return map[string]config.SourceConfig{
				publishSource: {SourceID: publishSourceID, VariableID: publishVariableID},
			}, nil
		}
		ids, ok := cfg.GetSource(publishSource)
		if !ok {
			return nil, fmt.Errorf("no source_id/variable_id configured for %s", publishSource)
		}
		return map[string]config.SourceConfig{publishSource: ids}, nil
	}

	if publishSourceID != "" || publishVariableID != "" {
		return nil, fmt.Errorf("--source-id and --variable-id require --source")
	}

	targets := make(map[string]config.SourceConfig)
	for source := range cfg.Sources {
		if ids, ok := cfg.GetSource(source); ok {
			targets[source] = ids
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no sources configured; add them to the sources section of the config or use --source")
	}
	return targets, nil
}

// parseDate parses a date string in either YYYY-MM-DD format or relative format (e.g., "7d")
func parseDate(dateStr string) (time.Time, error) {
	// Try absolute date format first
	t, err := time.Parse("2006-01-02", dateStr)
	if err == nil {
		return t, nil
	}

	// Try relative format (e.g., "7d" for 7 days ago)
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil {
			return time.Now().AddDate(0, 0, -days), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}
