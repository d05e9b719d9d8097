package pipeline

import (
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridconvert/internal/series"
	"github.com/jgoulah/gridconvert/internal/timeparse"
)

func TestRunMergesFilesInOrder(t *testing.T) {
	a := Upload{Name: "A.csv", Data: []byte("timestamp,kWh\n2024-01-01 00:00,100\n2024-01-01 01:00,110\n2024-01-01 03:00,130\n")}
	b := Upload{Name: "B.csv", Data: []byte("timestamp,kWh\n2024-01-01 00:00,5\n2024-01-01 02:00,9\n")}

	p := New(Options{Frequency: series.FrequencyHour, Strategy: series.StrategyAuto}, nil)
	res, err := p.Run([]Upload{a, b})
	require.NoError(t, err)
	require.Empty(t, res.Advisories)
	require.Len(t, res.Series, 2)

	type row struct {
		hour   int
		source string
		kwh    float64
	}
	want := []row{
		{0, "A.csv", 100}, {0, "B.csv", 5},
		{1, "A.csv", 10}, {1, "B.csv", 2},
		{2, "A.csv", 10}, {2, "B.csv", 2},
		{3, "A.csv", 10},
	}

	require.Len(t, res.Merged.Records, len(want))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, w := range want {
		rec := res.Merged.Records[i]
		assert.True(t, base.Add(time.Duration(w.hour)*time.Hour).Equal(rec.Timestamp), "row %d", i)
		assert.Equal(t, w.source, rec.SourceFile, "row %d", i)
		assert.True(t, rec.KWh.Valid)
		assert.InDelta(t, w.kwh, rec.KWh.Float64, 1e-9, "row %d", i)
		assert.False(t, rec.MissingFlag)
	}
}

func TestRunSkipsBadFiles(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	// Only 01/02/2024 reads month-first, so the column is day-first
	uploads := []Upload{
		{Name: "notes.pdf", Data: []byte("%PDF")},
		{Name: "labels.csv", Data: []byte("date;label\n2024-01-01;on\n2024-01-02;off\n")},
		{Name: "good.csv", Data: []byte("date;usage\n13/02/2024;1,5\n14/02/2024;2,5\n01/02/2024;1\n15/02/2024;2\n")},
	}

	res, err := New(Options{}, logger).Run(uploads)
	require.NoError(t, err)

	require.Len(t, res.Advisories, 2)
	assert.Equal(t, "UnsupportedFileType", res.Advisories[0].Kind())
	assert.Equal(t, "notes.pdf", res.Advisories[0].File)
	assert.Equal(t, "NoConsumptionColumn", res.Advisories[1].Kind())

	require.Len(t, res.Series, 1)
	s := res.Series[0]
	assert.Equal(t, "good.csv", s.SourceFile)
	assert.Equal(t, series.FrequencyDay, s.Frequency)
	require.Len(t, s.Records, 15)
	assert.True(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Equal(s.Records[0].Timestamp))
	assert.True(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC).Equal(s.Records[14].Timestamp))

	warnings := 0
	var strategy interface{}
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warnings++
		}
		if e.Message == "timestamps standardized" && e.Data["file"] == "good.csv" {
			strategy = e.Data["strategy"]
		}
	}
	assert.Equal(t, 2, warnings)
	assert.Equal(t, timeparse.StrategyDayFirst, strategy)
}

func TestRunExplicitColumns(t *testing.T) {
	data := []byte("Time,Main kWh,Sub kWh\n2024-01-01 00:00,1,4\n2024-01-01 00:15,2,3\n")
	res, err := New(Options{Strategy: series.StrategyNaN}, nil).Run([]Upload{
		{Name: "multi.csv", Data: data, Columns: []string{"Main kWh", "Sub kWh", "Other"}},
	})
	require.NoError(t, err)

	require.Len(t, res.Series, 2)
	assert.Equal(t, "Main kWh", res.Series[0].Column)
	assert.Equal(t, "Sub kWh", res.Series[1].Column)
	assert.Equal(t, series.FrequencyQuarterHour, res.Series[0].Frequency)
	require.Len(t, res.Merged.Records, 4)
	assert.Equal(t, "Main kWh", res.Merged.Records[0].Column)
	assert.Equal(t, "Sub kWh", res.Merged.Records[1].Column)
	assert.Len(t, res.Merged.Rows()[1], len(res.Merged.Columns()))

	require.Len(t, res.Advisories, 1)
	assert.Equal(t, "ColumnNotFound", res.Advisories[0].Kind())
	assert.Equal(t, "Other", res.Advisories[0].Column)
}

func TestRunFallsBackToHourly(t *testing.T) {
	data := []byte("date,kWh\n2024-01-01 00:00,1\n")
	res, err := New(Options{}, nil).Run([]Upload{{Name: "one.csv", Data: data}})
	require.NoError(t, err)
	require.Len(t, res.Series, 1)
	assert.Equal(t, FallbackFrequency, res.Series[0].Frequency)
	assert.Len(t, res.Merged.Records, 1)
}

func TestRunEmptyGridAdvisory(t *testing.T) {
	data := []byte("date,kWh\nnot a date,1\nnope,2\n")
	res, err := New(Options{Frequency: series.FrequencyHour}, nil).Run([]Upload{{Name: "bad.csv", Data: data}})
	require.NoError(t, err)
	require.Len(t, res.Advisories, 1)
	assert.Equal(t, "EmptyGrid", res.Advisories[0].Kind())
	assert.Empty(t, res.Merged.Records)
	assert.Equal(t, []string{"timestamp", "consumption_kWh", "source_file", "missing_flag"}, res.Merged.Columns())
}

func TestRunWithoutFiles(t *testing.T) {
	_, err := New(Options{}, nil).Run(nil)
	assert.True(t, errors.Is(err, ErrNoFiles))
}
