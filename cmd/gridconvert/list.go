package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridconvert/internal/series"
)

var (
	listSource string
	listRuns   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored consumption records",
	Long:  `Displays the consumption records stored by 'convert --store', grouped by source file.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listSource, "source", "", "Filter by source file")
	listCmd.Flags().BoolVar(&listRuns, "runs", false, "List conversion runs instead of records")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if listRuns {
		runs, err := db.ListRuns()
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs found")
			return nil
		}
		fmt.Printf("%-36s  %-20s  %-10s  %-10s  %5s  %10s\n", "Run", "Started", "Frequency", "Strategy", "Files", "Records")
		for _, run := range runs {
			fmt.Printf("%-36s  %-20s  %-10s  %-10s  %5d  %10s\n",
				run.ID, humanize.Time(run.StartedAt), run.Frequency, run.Strategy, run.Files, humanize.Comma(int64(run.Records)))
		}
		return nil
	}

	// Determine which sources to query
	sources := []string{}
	if listSource != "" {
		sources = append(sources, listSource)
	} else {
		sources, err = db.ListSources()
		if err != nil {
			return fmt.Errorf("listing sources: %w", err)
		}
	}
	if len(sources) == 0 {
		fmt.Println("No data found")
		return nil
	}

	// Query and display data for each source
	for _, source := range sources {
		data, err := db.ListRecords(source)
		if err != nil {
			return fmt.Errorf("listing data for %s: %w", source, err)
		}

		if len(data) == 0 {
			fmt.Printf("No data found for %s\n", source)
			continue
		}

		fmt.Printf("\n%s Consumption Data:\n", source)
		fmt.Println("----------------------------------------")
		fmt.Printf("%-19s  %12s  %s\n", "Timestamp", "kWh", "Column")
		fmt.Println("----------------------------------------")

		var total float64
		missing := 0
		for _, record := range data {
			fmt.Printf("%-19s  %12s  %s\n", record.Timestamp.Format(series.TimestampLayout), series.FormatDecimal(record.KWh), record.Column)
			if record.KWh.Valid {
				total += record.KWh.Float64
			}
			if record.MissingFlag {
				missing++
			}
		}

		fmt.Println("----------------------------------------")
		fmt.Printf("Total: %.2f kWh (%s records, %d missing)\n", total, humanize.Comma(int64(len(data))), missing)
	}

	return nil
}
