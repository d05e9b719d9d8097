package models

import (
	"database/sql"
	"strings"
)

// Dataset is a table of string cells read from one uploaded file.
// Timestamps is nil until a timestamp column has been standardized.
type Dataset struct {
	Source     string     // Originating filename
	Columns    []string   // Header names in file order
	Rows       [][]string // Every row has len(Columns) cells
	Timestamps []sql.NullTime
}

// Len returns the number of data rows
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Index returns the position of the named column, or -1
func (d *Dataset) Index(name string) int {
	for i, col := range d.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Column returns the cells of the named column, or nil if it does not exist
func (d *Dataset) Column(name string) []string {
	idx := d.Index(name)
	if idx < 0 {
		return nil
	}
	cells := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		if idx < len(row) {
			cells[i] = row[idx]
		}
	}
	return cells
}

// WithTimestamps returns a copy of the dataset carrying the given timestamp column
func (d *Dataset) WithTimestamps(ts []sql.NullTime) *Dataset {
	out := *d
	out.Timestamps = ts
	return &out
}

// Select returns a copy holding only the named columns, in the given order.
// Unknown names produce blank cells.
func (d *Dataset) Select(names ...string) *Dataset {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = d.Index(name)
	}

	rows := make([][]string, len(d.Rows))
	for r, row := range d.Rows {
		out := make([]string, len(names))
		for i, j := range idx {
			if j >= 0 && j < len(row) {
				out[i] = row[j]
			}
		}
		rows[r] = out
	}

	return &Dataset{
		Source:     d.Source,
		Columns:    append([]string(nil), names...),
		Rows:       rows,
		Timestamps: d.Timestamps,
	}
}

// Rename returns a copy with column names mapped through fn
func (d *Dataset) Rename(fn func(string) string) *Dataset {
	out := *d
	out.Columns = make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out.Columns[i] = fn(col)
	}
	return &out
}

// HasColumn reports whether a column exists, ignoring case and surrounding spaces
func (d *Dataset) HasColumn(name string) bool {
	for _, col := range d.Columns {
		if strings.EqualFold(strings.TrimSpace(col), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
