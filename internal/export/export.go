// Package export writes converted data as CSV text or Excel workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/gridconvert/internal/occupancy"
	"github.com/jgoulah/gridconvert/internal/series"
	"github.com/jgoulah/gridconvert/internal/standard"
	"github.com/jgoulah/gridconvert/internal/timeparse"
	"github.com/jgoulah/gridconvert/pkg/models"
)

// MergedSheet is the sheet holding a merged dataset
const MergedSheet = "Standardized"

// EnergyBoxSheet is the sheet of the EnergyBox analysis workbook
const EnergyBoxSheet = "Sheet1"

// EnergyBoxColumns is the fixed column order of the EnergyBox analysis workbook
var EnergyBoxColumns = []string{
	"date", "occupied", "on_peak",
	"Frequency  [Hz]", "I A  [A]", "I B  [A]", "I C  [A]", "I N  [A]", "I Average  [A]",
	"Pwr Factor A", "Pwr Factor B", "Pwr Factor C", "Pwr Factor Total",
	"VA A  [kVA]", "VA B  [kVA]", "VA C  [kVA]", "VA Total  [kVA]",
	"Volts AN  [V]", "Volts BN  [V]", "Volts CN  [V]", "Volts LN Average  [V]",
	"Volts AB  [V]", "Volts BC  [V]", "Volts CA  [V]", "Volts LL Average  [V]",
	"Watt A  [kW]", "Watt B  [kW]", "Watt C  [kW]", "Watt Total  [kW]",
}

// WriteMergedCSV writes the merged dataset with a header row
func WriteMergedCSV(w io.Writer, m *series.Merged) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(m.Columns()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(m.Rows()); err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	return nil
}

// MergedWorkbook lays the merged dataset out on one sheet
func MergedWorkbook(m *series.Merged) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", MergedSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	if err := setRow(f, MergedSheet, 1, toCells(m.Columns())); err != nil {
		return nil, err
	}
	for i, rec := range m.Records {
		var kwh interface{}
		if rec.KWh.Valid {
			kwh = rec.KWh.Float64
		}
		row := []interface{}{rec.Timestamp.UTC().Format(series.TimestampLayout), kwh, rec.SourceFile, rec.MissingFlag}
		if err := setRow(f, MergedSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// EnergyBoxWorkbook lays a cleaned EnergyBox export out in the analysis column
// order with calendar flags. Columns missing from the export are left blank.
func EnergyBoxWorkbook(ds *models.Dataset, cal *occupancy.Calendar) (*excelize.File, error) {
	ds, parsed, err := timeparse.Standardize(ds, standard.DateColumn)
	if err != nil {
		return nil, fmt.Errorf("building workbook: %w", err)
	}

	f := excelize.NewFile()
	if err := setRow(f, EnergyBoxSheet, 1, toCells(EnergyBoxColumns)); err != nil {
		return nil, err
	}

	columns := make([][]string, len(EnergyBoxColumns))
	for i, name := range EnergyBoxColumns[3:] {
		columns[i+3] = ds.Column(name)
	}

	for r := 0; r < ds.Len(); r++ {
		row := make([]interface{}, len(EnergyBoxColumns))
		if ts := parsed.Timestamps[r]; ts.Valid {
			row[0] = ts.Time.Format(standard.DateLayout)
			row[1] = cal.Occupied(ts.Time)
			row[2] = cal.OnPeak(ts.Time)
		} else {
			row[1], row[2] = false, false
		}
		for c := 3; c < len(row); c++ {
			if columns[c] == nil {
				continue
			}
			row[c] = cellValue(columns[c][r])
		}
		if err := setRow(f, EnergyBoxSheet, r+2, row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteWorkbook serializes a workbook
func WriteWorkbook(w io.Writer, f *excelize.File) error {
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, n int, row []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("writing row %d: %w", n, err)
	}
	return nil
}

func toCells(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func cellValue(raw string) interface{} {
	if v, ok := series.ParseDecimal(raw); ok {
		return v
	}
	return raw
}
