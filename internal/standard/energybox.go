package standard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jgoulah/gridconvert/internal/loader"
	"github.com/jgoulah/gridconvert/pkg/models"
)

// DefaultEnergyBoxBase is the file base name when none is given
const DefaultEnergyBoxBase = "EnergyBox"

// DateColumn is the timestamp column of a cleaned EnergyBox export
const DateColumn = "date"

// ErrNotEnergyBox is returned when an export has no "Time Stamp" column
var ErrNotEnergyBox = errors.New("not an EnergyBox export")

var unitSuffix = regexp.MustCompile(`\s*\[.*?\]`)

// LoadEnergyBox reads and cleans an EnergyBox CSV export
func LoadEnergyBox(name string, data []byte) (*models.Dataset, error) {
	ds, err := loader.Load(name, data, loader.WithSkipRows(1))
	if err != nil {
		return nil, err
	}
	return CleanEnergyBox(ds)
}

// CleanEnergyBox drops the row counter and the trailing column, renames the
// timestamp column to "date" and strips the "(float)" marker from headers.
func CleanEnergyBox(ds *models.Dataset) (*models.Dataset, error) {
	var keep []string
	for _, col := range ds.Columns {
		if col != loader.SourceColumn {
			keep = append(keep, col)
		}
	}
	if len(keep) > 0 {
		keep = keep[:len(keep)-1]
	}

	cols := keep[:0]
	for _, col := range keep {
		if col != "No." {
			cols = append(cols, col)
		}
	}

	out := ds.Select(cols...).Rename(func(col string) string {
		if col == "Time Stamp" {
			return DateColumn
		}
		return strings.TrimSpace(strings.ReplaceAll(col, "(float)", ""))
	})
	if !out.HasColumn(DateColumn) {
		return nil, fmt.Errorf("cleaning %s: %w", ds.Source, ErrNotEnergyBox)
	}
	return out, nil
}

// ValueColumns lists every column of a cleaned export except the date
func ValueColumns(ds *models.Dataset) []string {
	var out []string
	for _, col := range ds.Columns {
		if col != DateColumn {
			out = append(out, col)
		}
	}
	return out
}

// VariableName drops bracketed units: "Watt A  [kW]" becomes "Watt A"
func VariableName(col string) string {
	return strings.TrimSpace(unitSuffix.ReplaceAllString(col, ""))
}

// EnergyBoxFileName names the file of one EnergyBox column
func EnergyBoxFileName(base, col string) string {
	if base == "" {
		base = DefaultEnergyBoxBase
	}
	return FilePrefix + base + "_" + col + ".csv"
}

// EnergyBox builds one standard file per selected column of a cleaned export.
// Dates are written as they appear in the export.
func EnergyBox(ds *models.Dataset, base string, cols []Column) ([]File, error) {
	dates := ds.Column(DateColumn)
	if dates == nil {
		return nil, fmt.Errorf("building %s: %w", ds.Source, ErrNotEnergyBox)
	}
	for i := range dates {
		dates[i] = strings.TrimSpace(dates[i])
	}
	return build(ds, dates, cols, func(c Column) string {
		return EnergyBoxFileName(base, c.Name)
	})
}
