package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridconvert/internal/export"
	"github.com/jgoulah/gridconvert/internal/standard"
	"github.com/jgoulah/gridconvert/pkg/models"
)

var (
	energyBoxBase       string
	energyBoxColumns    []string
	energyBoxSourceIDs  []string
	energyBoxVarIDs     []string
	energyBoxSameSource bool
	energyBoxZip        bool
	energyBoxExcel      bool
	energyBoxOutDir     string
)

var energyBoxCmd = &cobra.Command{
	Use:   "energybox [file]",
	Short: "Clean an EnergyBox export",
	Long: `Cleans an EnergyBox CSV export and writes one standard data file per selected
column. Without --column the available columns are listed.

--zip bundles all files into <base>_Opinum.zip; every column then needs both ids.
--excel writes <base>.xlsx with occupancy and on-peak flags taken from the calendar
section of the config.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnergyBox,
}

func init() {
	energyBoxCmd.Flags().StringVar(&energyBoxBase, "base", standard.DefaultEnergyBoxBase, "Base name of the output files")
	energyBoxCmd.Flags().StringSliceVar(&energyBoxColumns, "column", nil, "Column(s) to export")
	energyBoxCmd.Flags().StringSliceVar(&energyBoxSourceIDs, "source-id", nil, "Source id per column")
	energyBoxCmd.Flags().StringSliceVar(&energyBoxVarIDs, "variable-id", nil, "Variable id per column")
	energyBoxCmd.Flags().BoolVar(&energyBoxSameSource, "same-source", true, "Columns without a source id reuse the previous column's")
	energyBoxCmd.Flags().BoolVar(&energyBoxZip, "zip", false, "Bundle the files into one zip archive")
	energyBoxCmd.Flags().BoolVar(&energyBoxExcel, "excel", false, "Also write the analysis workbook")
	energyBoxCmd.Flags().StringVar(&energyBoxOutDir, "out-dir", ".", "Output directory")
	rootCmd.AddCommand(energyBoxCmd)
}

func runEnergyBox(cmd *cobra.Command, args []string) error {
	startBanner("EnergyBox")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	ds, err := standard.LoadEnergyBox(filepath.Base(args[0]), data)
	if err != nil {
		return fmt.Errorf("loading: %w", err)
	}
	fmt.Printf("Loaded %d rows\n", ds.Len())

	if energyBoxExcel {
		if err := writeEnergyBoxWorkbook(ds); err != nil {
			return err
		}
	}

	if len(energyBoxColumns) == 0 {
		fmt.Println("Available columns:")
		for _, col := range standard.ValueColumns(ds) {
			fmt.Printf("  %-28s %s\n", col, standard.VariableName(col))
		}
		return nil
	}

	cols := columnsFromFlags(energyBoxColumns, energyBoxSourceIDs, energyBoxVarIDs, nil, energyBoxSameSource)
	files, err := standard.EnergyBox(ds, energyBoxBase, cols)
	if err != nil {
		return err
	}

	if energyBoxZip {
		path := filepath.Join(energyBoxOutDir, standard.ZipName(energyBoxBase))
		if err := writeFile(path, func(f *os.File) error { return standard.WriteZip(f, files) }); err != nil {
			return err
		}
		fmt.Printf("✓ %s (%d files)\n", path, len(files))
		return nil
	}

	return writeStandardFiles(energyBoxOutDir, files)
}

func writeEnergyBoxWorkbook(ds *models.Dataset) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cal, err := loadCalendar(cfg)
	if err != nil {
		return fmt.Errorf("loading calendar: %w", err)
	}

	wb, err := export.EnergyBoxWorkbook(ds, cal)
	if err != nil {
		return err
	}
	defer wb.Close()

	path := filepath.Join(energyBoxOutDir, energyBoxBase+".xlsx")
	if err := writeFile(path, func(f *os.File) error { return export.WriteWorkbook(f, wb) }); err != nil {
		return err
	}
	fmt.Printf("✓ %s\n", path)
	return nil
}
