package standard

import (
	"fmt"

	"github.com/jgoulah/gridconvert/internal/loader"
	"github.com/jgoulah/gridconvert/internal/timeparse"
	"github.com/jgoulah/gridconvert/pkg/models"
)

// Temperature logger column names
const (
	TemperatureTime  = "Time"
	TemperatureValue = "Temp/°C"
)

// Temperature converts a two-column temperature logger export. The first line is
// skipped and rows whose time cannot be read are dropped.
func Temperature(name string, data []byte, sourceID, variableID, fileName string) (*File, error) {
	ds, err := loader.Load(name, data,
		loader.WithSkipRows(1),
		loader.WithColumnNames(TemperatureTime, TemperatureValue),
	)
	if err != nil {
		return nil, err
	}

	ds, parsed, err := timeparse.Standardize(ds, TemperatureTime)
	if err != nil {
		return nil, err
	}
	values := ds.Column(TemperatureValue)

	f := &File{
		Name:       FilePrefix + fileName + ".csv",
		Column:     TemperatureValue,
		SourceID:   sourceID,
		VariableID: variableID,
	}
	for i, ts := range parsed.Timestamps {
		if !ts.Valid {
			continue
		}
		f.Records = append(f.Records, models.StandardRecord{
			Date:       ts.Time.Format(DateLayout),
			Value:      values[i],
			SourceID:   sourceID,
			VariableID: variableID,
		})
	}
	if len(f.Records) == 0 {
		return nil, fmt.Errorf("converting %s: no readable timestamps", name)
	}
	return f, nil
}
