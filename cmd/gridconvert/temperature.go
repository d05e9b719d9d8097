package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridconvert/internal/standard"
)

var (
	temperatureSourceID string
	temperatureVarID    string
	temperatureName     string
	temperatureOutDir   string
)

var temperatureCmd = &cobra.Command{
	Use:   "temperature [file]",
	Short: "Convert a temperature logger export",
	Long:  `Reads a two-column (time, temperature) logger export and writes one standard data file.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTemperature,
}

func init() {
	temperatureCmd.Flags().StringVar(&temperatureSourceID, "source-id", "", "Source id")
	temperatureCmd.Flags().StringVar(&temperatureVarID, "variable-id", "", "Variable id")
	temperatureCmd.Flags().StringVar(&temperatureName, "name", "", "Name of the data (default: input file name)")
	temperatureCmd.Flags().StringVar(&temperatureOutDir, "out-dir", ".", "Output directory")
	rootCmd.AddCommand(temperatureCmd)
}

func runTemperature(cmd *cobra.Command, args []string) error {
	startBanner("Temperature")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	base := filepath.Base(args[0])
	name := temperatureName
	if name == "" {
		name = base[:len(base)-len(filepath.Ext(base))]
	}

	f, err := standard.Temperature(base, data, temperatureSourceID, temperatureVarID, name)
	if err != nil {
		return err
	}

	return writeStandardFiles(temperatureOutDir, []standard.File{*f})
}
