package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridconvert/internal/loader"
	"github.com/jgoulah/gridconvert/internal/standard"
)

var (
	standardizeDateColumn string
	standardizeColumns    []string
	standardizeSourceIDs  []string
	standardizeVarIDs     []string
	standardizeNames      []string
	standardizeOutDir     string
)

var standardizeCmd = &cobra.Command{
	Use:   "standardize [file]",
	Short: "Write standard data files from any CSV or Excel file",
	Long: `Pairs the chosen date column with each value column and writes one
"date, value, source_id, variable_id" file per value column.

--source-id, --variable-id and --name are matched to --column by position.
Columns lacking a source id or variable id are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runStandardize,
}

func init() {
	standardizeCmd.Flags().StringVar(&standardizeDateColumn, "date-column", "", "Date/time column (required)")
	standardizeCmd.Flags().StringSliceVar(&standardizeColumns, "column", nil, "Value column(s) to export (required)")
	standardizeCmd.Flags().StringSliceVar(&standardizeSourceIDs, "source-id", nil, "Source id per column")
	standardizeCmd.Flags().StringSliceVar(&standardizeVarIDs, "variable-id", nil, "Variable id per column")
	standardizeCmd.Flags().StringSliceVar(&standardizeNames, "name", nil, "Optional file name per column")
	standardizeCmd.Flags().StringVar(&standardizeOutDir, "out-dir", ".", "Output directory")
	standardizeCmd.MarkFlagRequired("date-column")
	standardizeCmd.MarkFlagRequired("column")
	rootCmd.AddCommand(standardizeCmd)
}

func runStandardize(cmd *cobra.Command, args []string) error {
	startBanner("Standardize")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	ds, err := loader.Load(filepath.Base(args[0]), data)
	if err != nil {
		return fmt.Errorf("loading: %w", err)
	}

	cols := columnsFromFlags(standardizeColumns, standardizeSourceIDs, standardizeVarIDs, standardizeNames, false)
	files, err := standard.AnyFile(ds, standardizeDateColumn, cols)
	if err != nil {
		return err
	}

	return writeStandardFiles(standardizeOutDir, files)
}

// columnsFromFlags pairs column names with ids given in the same position.
// With sameSource, a column without a source id reuses the previous one.
func columnsFromFlags(names, sourceIDs, variableIDs, fileNames []string, sameSource bool) []standard.Column {
	at := func(values []string, i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}

	cols := make([]standard.Column, len(names))
	for i, name := range names {
		cols[i] = standard.Column{
			Name:       name,
			SourceID:   at(sourceIDs, i),
			VariableID: at(variableIDs, i),
			FileName:   at(fileNames, i),
		}
		cols[i].SameAsPrevious = sameSource && i > 0 && cols[i].SourceID == ""
	}
	return cols
}

// writeStandardFiles writes every file carrying both ids and reports the others
func writeStandardFiles(dir string, files []standard.File) error {
	written := 0
	for _, f := range files {
		if !f.Ready() {
			fmt.Printf("⚠ Skipped %s: %v\n", f.Column, standard.ErrMissingIDs)
			continue
		}

		path := filepath.Join(dir, f.Name)
		if err := writeFile(path, func(out *os.File) error { return standard.WriteCSV(out, f) }); err != nil {
			return err
		}
		fmt.Printf("✓ %s (%d records)\n", path, len(f.Records))
		written++
	}

	fmt.Printf("Wrote %d/%d files\n", written, len(files))
	return nil
}
