// Package standard builds "date, value, source_id, variable_id" files for upload to a
// time-series platform.
package standard

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jgoulah/gridconvert/internal/timeparse"
	"github.com/jgoulah/gridconvert/pkg/models"
)

// FilePrefix starts the name of every standard data file
const FilePrefix = "OpisenseStandardDataFile_"

// DateLayout is the date format written for parsed timestamps
const DateLayout = "2006-01-02 15:04:05"

// ErrMissingIDs is returned when a file lacks its source id or variable id
var ErrMissingIDs = errors.New("source id and variable id are required")

// Column selects one value column and the ids it is uploaded under
type Column struct {
	Name           string
	SourceID       string
	VariableID     string
	SameAsPrevious bool   // Reuse the source id of the preceding column
	FileName       string // Optional name used instead of the column name
}

// File is one standard data file
type File struct {
	Name       string
	Column     string
	SourceID   string
	VariableID string
	Records    []models.StandardRecord
}

// Ready reports whether the file carries both ids
func (f *File) Ready() bool {
	return f.SourceID != "" && f.VariableID != ""
}

// ChainSourceIDs resolves SameAsPrevious flags. The first column never inherits.
func ChainSourceIDs(cols []Column) []Column {
	out := make([]Column, len(cols))
	copy(out, cols)
	for i := 1; i < len(out); i++ {
		if out[i].SameAsPrevious {
			out[i].SourceID = out[i-1].SourceID
		}
	}
	return out
}

// build pairs a date column with each value column
func build(ds *models.Dataset, dates []string, cols []Column, name func(Column) string) ([]File, error) {
	files := make([]File, 0, len(cols))
	for _, col := range ChainSourceIDs(cols) {
		values := ds.Column(col.Name)
		if values == nil {
			return nil, fmt.Errorf("building %s: column %q not found", ds.Source, col.Name)
		}

		f := File{
			Name:       name(col),
			Column:     col.Name,
			SourceID:   col.SourceID,
			VariableID: col.VariableID,
			Records:    make([]models.StandardRecord, len(values)),
		}
		for i, v := range values {
			f.Records[i] = models.StandardRecord{
				Date:       dates[i],
				Value:      strings.TrimSpace(v),
				SourceID:   col.SourceID,
				VariableID: col.VariableID,
			}
		}
		files = append(files, f)
	}
	return files, nil
}

// formatDates renders parsed timestamps in DateLayout. When the column cannot be
// read as timestamps the raw cells are kept; unreadable cells stay as written.
func formatDates(cells []string) []string {
	res := timeparse.Parse(cells)
	out := make([]string, len(cells))
	for i, cell := range cells {
		if res.Strategy != timeparse.StrategyNone && res.Timestamps[i].Valid {
			out[i] = res.Timestamps[i].Time.Format(DateLayout)
			continue
		}
		out[i] = strings.TrimSpace(cell)
	}
	return out
}

// WriteCSV writes a file with a header row
func WriteCSV(w io.Writer, f File) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.StandardColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range f.Records {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteZip bundles files into one archive. Every file must carry both ids.
func WriteZip(w io.Writer, files []File) error {
	for _, f := range files {
		if !f.Ready() {
			return fmt.Errorf("%s: %w", f.Column, ErrMissingIDs)
		}
	}

	zw := zip.NewWriter(w)
	for _, f := range files {
		entry, err := zw.Create(f.Name)
		if err != nil {
			return fmt.Errorf("adding %s: %w", f.Name, err)
		}
		if err := WriteCSV(entry, f); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}

// ZipName returns the archive name for a base name
func ZipName(base string) string {
	return base + "_Opinum.zip"
}
