package models

import (
	"database/sql"
	"time"
)

// MergedColumns is the column order of a merged consumption dataset
var MergedColumns = []string{"timestamp", "consumption_kWh", "source_file", "missing_flag"}

// StandardColumns is the column order of a standard data file
var StandardColumns = []string{"date", "value", "source_id", "variable_id"}

// UsageRecord represents one grid point of a cleaned consumption series
type UsageRecord struct {
	ID          int             `json:"id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	KWh         sql.NullFloat64 `json:"consumption_kWh"` // Interval consumption, null when missing
	SourceFile  string          `json:"source_file"`
	Column      string          `json:"column,omitempty"` // Consumption column the series was cleaned from
	MissingFlag bool            `json:"missing_flag"`
}

// IsMissing reports whether the value is null or not strictly positive
func (r UsageRecord) IsMissing() bool {
	return !r.KWh.Valid || r.KWh.Float64 <= 0
}

// StandardRecord is one row of a time-series platform upload file
type StandardRecord struct {
	Date       string `json:"date"`
	Value      string `json:"value"`
	SourceID   string `json:"source_id"`
	VariableID string `json:"variable_id"`
}

// Strings returns the record in StandardColumns order
func (r StandardRecord) Strings() []string {
	return []string{r.Date, r.Value, r.SourceID, r.VariableID}
}
