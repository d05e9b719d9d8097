package series

import (
	"sort"

	"github.com/jgoulah/gridconvert/pkg/models"
)

// Merged is the long-format concatenation of several cleaned series
type Merged struct {
	Records []models.UsageRecord
}

// Columns returns the header of the merged table
func (m *Merged) Columns() []string {
	return append([]string(nil), models.MergedColumns...)
}

// Rows renders the records as text in Columns order
func (m *Merged) Rows() [][]string {
	rows := make([][]string, len(m.Records))
	for i, rec := range m.Records {
		rows[i] = recordRow(rec)
	}
	return rows
}

// Merge concatenates series in the given order and sorts the records by timestamp.
// Records sharing a timestamp keep the order of the series they came from.
func Merge(all ...*Series) *Merged {
	n := 0
	for _, s := range all {
		if s != nil {
			n += len(s.Records)
		}
	}

	records := make([]models.UsageRecord, 0, n)
	for _, s := range all {
		if s != nil {
			records = append(records, s.Records...)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return &Merged{Records: records}
}
