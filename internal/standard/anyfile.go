package standard

import (
	"fmt"

	"github.com/jgoulah/gridconvert/pkg/models"
)

// AnyFileName names the file of one column, preferring the user-given name
func AnyFileName(col Column) string {
	if col.FileName != "" {
		return FilePrefix + col.FileName + ".csv"
	}
	return FilePrefix + col.Name + ".csv"
}

// AnyFile builds one standard file per value column of an arbitrary dataset.
// The date column itself is skipped if selected as a value.
func AnyFile(ds *models.Dataset, dateColumn string, cols []Column) ([]File, error) {
	cells := ds.Column(dateColumn)
	if cells == nil {
		return nil, fmt.Errorf("building %s: date column %q not found", ds.Source, dateColumn)
	}

	values := make([]Column, 0, len(cols))
	for _, col := range cols {
		if col.Name != dateColumn {
			values = append(values, col)
		}
	}
	return build(ds, formatDates(cells), values, AnyFileName)
}
