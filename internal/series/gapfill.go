package series

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/gridconvert/pkg/models"
)

var (
	// ErrEmptyGrid reports a series with no usable rows; FillGaps itself returns an
	// empty series in that case and callers use this to surface it
	ErrEmptyGrid = errors.New("no usable rows after cleaning")
	// ErrGridTooLarge is returned when the grid would exceed Options.MaxGridPoints
	ErrGridTooLarge = errors.New("grid too large")
)

// Strategy selects how missing grid points are filled
type Strategy string

const (
	StrategyAuto       Strategy = "auto"
	StrategyDistribute Strategy = "distribute"
	StrategyZero       Strategy = "zero"
	StrategyNaN        Strategy = "nan"
)

// ParseStrategy accepts a strategy name, ignoring anything after the first word
// ("zero (set missing to 0)" reads as zero). Empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return StrategyAuto, nil
	}
	switch st := Strategy(fields[0]); st {
	case StrategyAuto, StrategyDistribute, StrategyZero, StrategyNaN:
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy: %s (available: auto, distribute, zero, nan)", s)
}

// Classification decides whether a series holds running totals
type Classification string

const (
	// ClassifyAuto treats a series as cumulative when its values never decrease
	ClassifyAuto       Classification = "auto"
	ClassifyCumulative Classification = "cumulative"
	ClassifyInterval   Classification = "interval"
)

// ParseClassification accepts auto, cumulative or interval. Empty means auto.
func ParseClassification(s string) (Classification, error) {
	switch c := Classification(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return ClassifyAuto, nil
	case ClassifyAuto, ClassifyCumulative, ClassifyInterval:
		return c, nil
	}
	return "", fmt.Errorf("unknown classification: %s (available: auto, cumulative, interval)", s)
}

// Options controls FillGaps
type Options struct {
	Frequency      Frequency
	Strategy       Strategy
	Classification Classification
	MaxGridPoints  int // 0 disables the limit
}

// Series is one cleaned consumption column on a regular grid
type Series struct {
	SourceFile string
	Column     string
	Frequency  Frequency
	Cumulative bool
	Strategy   Strategy // Strategy actually applied
	Records    []models.UsageRecord
}

type observation struct {
	at  time.Time
	raw string
}

// FillGaps reindexes a column onto a complete grid at the given frequency and fills
// missing points. Cumulative readings are turned into interval consumption when
// distributing. Rows without a timestamp are dropped; if none remain, the result
// has no records.
func FillGaps(ds *models.Dataset, column string, opts Options) (*Series, error) {
	step := opts.Frequency.Duration()
	if step <= 0 {
		return nil, fmt.Errorf("filling gaps in %s: frequency is required", ds.Source)
	}
	if ds.Timestamps == nil {
		return nil, fmt.Errorf("filling gaps in %s: timestamps have not been standardized", ds.Source)
	}
	cells := ds.Column(column)
	if cells == nil {
		return nil, fmt.Errorf("filling gaps in %s: column %q not found", ds.Source, column)
	}

	out := &Series{
		SourceFile: ds.Source,
		Column:     column,
		Frequency:  opts.Frequency,
	}

	obs := observations(ds.Timestamps, cells)
	if len(obs) == 0 {
		out.Strategy = resolveStrategy(opts.Strategy, true)
		return out, nil
	}

	start, end := obs[0].at, obs[len(obs)-1].at
	points := int(end.Sub(start)/step) + 1
	if opts.MaxGridPoints > 0 && points > opts.MaxGridPoints {
		return nil, fmt.Errorf("filling gaps in %s: %d points at %s: %w", ds.Source, points, opts.Frequency, ErrGridTooLarge)
	}

	byInstant := make(map[int64]string, len(obs))
	for _, o := range obs {
		byInstant[o.at.UnixNano()] = o.raw
	}

	grid := make([]time.Time, points)
	raw := make([]string, points)
	for i := range grid {
		grid[i] = start.Add(time.Duration(i) * step)
		raw[i] = byInstant[grid[i].UnixNano()]
	}

	values := NormalizeColumn(raw)

	switch opts.Classification {
	case ClassifyCumulative:
		out.Cumulative = true
	case ClassifyInterval:
		out.Cumulative = false
	default:
		out.Cumulative = nonDecreasing(values)
	}
	out.Strategy = resolveStrategy(opts.Strategy, out.Cumulative)

	switch out.Strategy {
	case StrategyDistribute:
		values = distribute(values)
	case StrategyZero:
		values = fillZero(values)
	}

	out.Records = make([]models.UsageRecord, points)
	for i, at := range grid {
		rec := models.UsageRecord{
			Timestamp:  at,
			KWh:        values[i],
			SourceFile: ds.Source,
			Column:     column,
		}
		rec.MissingFlag = rec.IsMissing()
		out.Records[i] = rec
	}

	return out, nil
}

// Dataset renders the series back into a dataset in the merged column layout
func (s *Series) Dataset() *models.Dataset {
	rows := make([][]string, len(s.Records))
	ts := make([]sql.NullTime, len(s.Records))
	for i, rec := range s.Records {
		rows[i] = recordRow(rec)
		ts[i] = sql.NullTime{Time: rec.Timestamp, Valid: true}
	}
	return &models.Dataset{
		Source:     s.SourceFile,
		Columns:    append([]string(nil), models.MergedColumns...),
		Rows:       rows,
		Timestamps: ts,
	}
}

// TimestampLayout is the text form of timestamps in rendered tables
const TimestampLayout = "2006-01-02 15:04:05"

func recordRow(rec models.UsageRecord) []string {
	return []string{
		rec.Timestamp.UTC().Format(TimestampLayout),
		FormatDecimal(rec.KWh),
		rec.SourceFile,
		strconv.FormatBool(rec.MissingFlag),
	}
}

// observations pairs timestamps with cells, sorted by time, keeping the first row
// of every duplicated instant
func observations(ts []sql.NullTime, cells []string) []observation {
	obs := make([]observation, 0, len(cells))
	for i, cell := range cells {
		if i < len(ts) && ts[i].Valid {
			obs = append(obs, observation{at: ts[i].Time, raw: cell})
		}
	}
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].at.Before(obs[j].at) })

	unique := obs[:0]
	for _, o := range obs {
		if len(unique) > 0 && o.at.Equal(unique[len(unique)-1].at) {
			continue
		}
		unique = append(unique, o)
	}
	return unique
}

func resolveStrategy(requested Strategy, cumulative bool) Strategy {
	if requested == "" || requested == StrategyAuto {
		if cumulative {
			return StrategyDistribute
		}
		return StrategyNaN
	}
	return requested
}

func nonDecreasing(values []sql.NullFloat64) bool {
	prev := sql.NullFloat64{}
	for _, v := range values {
		if !v.Valid {
			continue
		}
		if prev.Valid && v.Float64 < prev.Float64 {
			return false
		}
		prev = v
	}
	return true
}

// distribute converts running totals into per-step consumption. A run of missing
// points is closed by the next reading and the delta since the previous reading is
// shared equally over every step of the run including that next point. A leading
// run counts from zero, a trailing run stays null.
func distribute(values []sql.NullFloat64) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(values))

	i := 0
	for i < len(values) {
		if values[i].Valid {
			if i == 0 {
				out[i] = values[i]
			} else {
				out[i] = sql.NullFloat64{Float64: values[i].Float64 - values[i-1].Float64, Valid: true}
			}
			i++
			continue
		}

		prev := i - 1
		prevVal := 0.0
		if prev >= 0 {
			prevVal = values[prev].Float64
		}

		next := i
		for next < len(values) && !values[next].Valid {
			next++
		}
		if next == len(values) {
			break
		}

		share := (values[next].Float64 - prevVal) / float64(next-prev)
		for j := prev + 1; j <= next; j++ {
			out[j] = sql.NullFloat64{Float64: share, Valid: true}
		}
		i = next + 1
	}

	return out
}

func fillZero(values []sql.NullFloat64) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(values))
	for i, v := range values {
		if v.Valid {
			out[i] = v
		} else {
			out[i] = sql.NullFloat64{Valid: true}
		}
	}
	return out
}
