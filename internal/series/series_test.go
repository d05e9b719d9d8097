package series

import (
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/gridconvert/pkg/models"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func hours(h ...int) []sql.NullTime {
	out := make([]sql.NullTime, len(h))
	for i, v := range h {
		if v < 0 {
			continue
		}
		out[i] = sql.NullTime{Time: t0.Add(time.Duration(v) * time.Hour), Valid: true}
	}
	return out
}

func hourly(source string, ts []sql.NullTime, values ...string) *models.Dataset {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return &models.Dataset{Source: source, Columns: []string{"kWh"}, Rows: rows, Timestamps: ts}
}

func kwh(s *Series) []interface{} {
	out := make([]interface{}, len(s.Records))
	for i, rec := range s.Records {
		if rec.KWh.Valid {
			out[i] = rec.KWh.Float64
		}
	}
	return out
}

func TestBucket(t *testing.T) {
	tests := []struct {
		spacing time.Duration
		want    Frequency
	}{
		{30 * time.Second, FrequencyMinute},
		{time.Minute, FrequencyMinute},
		{time.Minute + time.Second, FrequencyQuarterHour},
		{15 * time.Minute, FrequencyQuarterHour},
		{30 * time.Minute, FrequencyHour},
		{time.Hour, FrequencyHour},
		{2 * time.Hour, FrequencyDay},
		{24 * time.Hour, FrequencyDay},
		{24*time.Hour + time.Second, FrequencyNone},
		{0, FrequencyNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Bucket(tt.spacing), tt.spacing.String())
	}
}

func TestInferFrequency(t *testing.T) {
	q := func(m ...int) []time.Time {
		out := make([]time.Time, len(m))
		for i, v := range m {
			out[i] = t0.Add(time.Duration(v) * time.Minute)
		}
		return out
	}

	assert.Equal(t, FrequencyQuarterHour, InferFrequency(q(45, 0, 15, 30, 30, 90)))
	assert.Equal(t, FrequencyHour, InferFrequency(q(0, 60, 120, 180, 200)))
	// tie between 1 and 2 hours resolves to the shorter spacing
	assert.Equal(t, FrequencyHour, InferFrequency(q(0, 60, 180)))
	assert.Equal(t, FrequencyNone, InferFrequency(q(0, 0)))
	assert.Equal(t, FrequencyNone, InferFrequency(nil))
	assert.Equal(t, FrequencyNone, InferFrequency(q(0, 2*24*60)))
}

func TestParseFrequency(t *testing.T) {
	for label, want := range map[string]Frequency{
		"":           FrequencyNone,
		"15min":      FrequencyQuarterHour,
		"15T":        FrequencyQuarterHour,
		"15-minute":  FrequencyQuarterHour,
		"15 minutes": FrequencyQuarterHour,
		"15-Min":     FrequencyQuarterHour,
		"Hourly":     FrequencyHour,
		"H":          FrequencyHour,
		"daily":      FrequencyDay,
		"minute":     FrequencyMinute,
	} {
		got, err := ParseFrequency(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}

	_, err := ParseFrequency("weekly")
	assert.Error(t, err)
}

func TestParseDecimal(t *testing.T) {
	v, ok := ParseDecimal("12,5")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = ParseDecimal(" 7.2 ")
	assert.True(t, ok)
	assert.Equal(t, 7.2, v)

	_, ok = ParseDecimal("")
	assert.False(t, ok)
	_, ok = ParseDecimal("abc")
	assert.False(t, ok)
	_, ok = ParseDecimal("NaN")
	assert.False(t, ok)

	for _, cell := range []string{"inf", "-Inf", "+Infinity", "1e400", "0x1p3", "0X10", "-0x1p-2"} {
		_, ok = ParseDecimal(cell)
		assert.False(t, ok, cell)
	}

	v, ok = ParseDecimal("-0,25")
	assert.True(t, ok)
	assert.Equal(t, -0.25, v)
}

func TestFillGapsDistributesCumulativeReadings(t *testing.T) {
	ds := hourly("a.csv", hours(0, 1, 4), "10", "15", "30")

	s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyDistribute})
	require.NoError(t, err)

	assert.True(t, s.Cumulative)
	assert.Equal(t, StrategyDistribute, s.Strategy)
	assert.Equal(t, []interface{}{10.0, 5.0, 5.0, 5.0, 5.0}, kwh(s))
	for i, rec := range s.Records {
		assert.Equal(t, t0.Add(time.Duration(i)*time.Hour), rec.Timestamp)
		assert.False(t, rec.MissingFlag)
		assert.Equal(t, "a.csv", rec.SourceFile)
	}
}

func TestFillGapsAutoStrategy(t *testing.T) {
	cumulative := hourly("a.csv", hours(0, 1, 3), "100", "110", "130")
	s, err := FillGaps(cumulative, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyAuto})
	require.NoError(t, err)
	assert.Equal(t, StrategyDistribute, s.Strategy)
	assert.Equal(t, []interface{}{100.0, 10.0, 10.0, 10.0}, kwh(s))

	interval := hourly("b.csv", hours(0, 1, 3), "4", "2", "5")
	s, err = FillGaps(interval, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyAuto})
	require.NoError(t, err)
	assert.False(t, s.Cumulative)
	assert.Equal(t, StrategyNaN, s.Strategy)
	assert.Equal(t, []interface{}{4.0, 2.0, nil, 5.0}, kwh(s))
	assert.Equal(t, []bool{false, false, true, false}, flags(s))
}

func TestFillGapsTrailingAndLeadingRuns(t *testing.T) {
	// the last row has an unparseable reading, so the trailing run cannot be closed
	ds := hourly("a.csv", hours(0, 2, 3), "5", "9", "n/a")
	s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyDistribute})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{5.0, 2.0, 2.0, nil}, kwh(s))
	assert.Equal(t, []bool{false, false, false, true}, flags(s))

	// a leading run is measured from zero
	ds = hourly("a.csv", hours(0, 1, 2), "", "", "6")
	s, err = FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyDistribute})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{2.0, 2.0, 2.0}, kwh(s))
}

func TestFillGapsZeroAndNaN(t *testing.T) {
	ds := hourly("a.csv", hours(0, 2, 3), "3", "-1", "4")

	s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyZero})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{3.0, 0.0, -1.0, 4.0}, kwh(s))
	assert.Equal(t, []bool{false, true, true, false}, flags(s))

	s, err = FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyNaN})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{3.0, nil, -1.0, 4.0}, kwh(s))
	assert.Equal(t, []bool{false, true, true, false}, flags(s))
}

func TestFillGapsDistributeOnIntervalData(t *testing.T) {
	ds := hourly("a.csv", hours(0, 1, 2), "5", "3", "4")

	s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyDistribute})
	require.NoError(t, err)
	assert.False(t, s.Cumulative)
	assert.Equal(t, []interface{}{5.0, -2.0, 1.0}, kwh(s))
}

func TestFillGapsClassificationOverride(t *testing.T) {
	ds := hourly("a.csv", hours(0, 1, 2), "1", "2", "3")

	s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Classification: ClassifyInterval})
	require.NoError(t, err)
	assert.False(t, s.Cumulative)
	assert.Equal(t, StrategyNaN, s.Strategy)
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, kwh(s))

	down := hourly("a.csv", hours(0, 1), "5", "4")
	s, err = FillGaps(down, "kWh", Options{Frequency: FrequencyHour, Classification: ClassifyCumulative})
	require.NoError(t, err)
	assert.True(t, s.Cumulative)
	assert.Equal(t, StrategyDistribute, s.Strategy)
}

func TestFillGapsSortsDeduplicatesAndDropsNullTimestamps(t *testing.T) {
	ds := hourly("a.csv", hours(2, 0, -1, 0, 1), "7", "1", "99", "50", "3")

	s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyNaN})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, 3.0, 7.0}, kwh(s))
}

func TestFillGapsOffGridRowsAreDropped(t *testing.T) {
	ts := []sql.NullTime{
		{Time: t0, Valid: true},
		{Time: t0.Add(30 * time.Minute), Valid: true},
		{Time: t0.Add(2 * time.Hour), Valid: true},
	}
	ds := hourly("a.csv", ts, "1", "2", "3")

	s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyNaN})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, nil, 3.0}, kwh(s))
}

func TestFillGapsEmptyAndErrors(t *testing.T) {
	ds := hourly("a.csv", hours(-1, -1), "1", "2")
	s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour})
	require.NoError(t, err)
	assert.Empty(t, s.Records)

	_, err = FillGaps(ds, "kWh", Options{})
	assert.Error(t, err)

	_, err = FillGaps(hourly("a.csv", nil, "1"), "kWh", Options{Frequency: FrequencyHour})
	assert.Error(t, err)

	_, err = FillGaps(ds, "missing", Options{Frequency: FrequencyHour})
	assert.Error(t, err)

	big := hourly("a.csv", hours(0, 1000), "1", "2")
	_, err = FillGaps(big, "kWh", Options{Frequency: FrequencyHour, MaxGridPoints: 100})
	assert.True(t, errors.Is(err, ErrGridTooLarge))
}

func TestFillGapsIsIdempotentWithNaN(t *testing.T) {
	ds := hourly("a.csv", hours(0, 1, 4, 6), "2,5", "", "4", "0")

	first, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyNaN})
	require.NoError(t, err)

	second, err := FillGaps(first.Dataset(), "consumption_kWh", Options{Frequency: FrequencyHour, Strategy: StrategyNaN})
	require.NoError(t, err)

	require.Len(t, second.Records, len(first.Records))
	for i := range first.Records {
		a, b := first.Records[i], second.Records[i]
		assert.True(t, a.Timestamp.Equal(b.Timestamp))
		assert.Equal(t, a.KWh, b.KWh)
		assert.Equal(t, a.SourceFile, b.SourceFile)
		assert.Equal(t, a.MissingFlag, b.MissingFlag)
	}
}

func TestMissingFlagMatchesValues(t *testing.T) {
	ds := hourly("a.csv", hours(0, 1, 2, 3, 5), "1", "0", "-2", "x", "3")

	for _, st := range []Strategy{StrategyAuto, StrategyDistribute, StrategyZero, StrategyNaN} {
		s, err := FillGaps(ds, "kWh", Options{Frequency: FrequencyHour, Strategy: st})
		require.NoError(t, err)
		for _, rec := range s.Records {
			want := !rec.KWh.Valid || rec.KWh.Float64 <= 0 || math.IsNaN(rec.KWh.Float64)
			assert.Equal(t, want, rec.MissingFlag, "%s at %s", st, rec.Timestamp)
		}
	}
}

func TestMergeIsStableOnTies(t *testing.T) {
	mk := func(source string, h ...int) *Series {
		s := &Series{SourceFile: source}
		for _, v := range h {
			s.Records = append(s.Records, models.UsageRecord{Timestamp: t0.Add(time.Duration(v) * time.Hour), SourceFile: source})
		}
		return s
	}

	m := Merge(mk("A", 1, 2), mk("B", 0, 1), nil, mk("C", 1))

	var got []string
	for _, rec := range m.Records {
		got = append(got, rec.SourceFile+rec.Timestamp.Format("15"))
	}
	assert.Equal(t, []string{"B00", "A01", "B01", "C01", "A02"}, got)
	assert.Equal(t, models.MergedColumns, m.Columns())

	empty := Merge()
	assert.Empty(t, empty.Records)
	assert.Equal(t, []string{"timestamp", "consumption_kWh", "source_file", "missing_flag"}, empty.Columns())
}

func TestStrategyAndClassificationParsing(t *testing.T) {
	st, err := ParseStrategy("zero (set missing to 0)")
	require.NoError(t, err)
	assert.Equal(t, StrategyZero, st)

	st, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, st)

	_, err = ParseStrategy("linear")
	assert.Error(t, err)

	c, err := ParseClassification("Cumulative")
	require.NoError(t, err)
	assert.Equal(t, ClassifyCumulative, c)

	_, err = ParseClassification("sometimes")
	assert.Error(t, err)
}

func flags(s *Series) []bool {
	out := make([]bool, len(s.Records))
	for i, rec := range s.Records {
		out[i] = rec.MissingFlag
	}
	return out
}

func TestMergedRows(t *testing.T) {
	s, err := FillGaps(hourly("a.csv", hours(0, 2), "1,5", "3"), "kWh", Options{Frequency: FrequencyHour, Strategy: StrategyNaN})
	require.NoError(t, err)

	m := Merge(s)
	assert.Equal(t, models.MergedColumns, m.Columns())
	assert.Equal(t, [][]string{
		{"2024-01-01 00:00:00", "1.5", "a.csv", "false"},
		{"2024-01-01 01:00:00", "", "a.csv", "true"},
		{"2024-01-01 02:00:00", "3", "a.csv", "false"},
	}, m.Rows())
}
