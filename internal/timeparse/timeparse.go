package timeparse

import (
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/jgoulah/gridconvert/internal/series"
	"github.com/jgoulah/gridconvert/pkg/models"
)

// Strategy names one way of reading a timestamp cell
type Strategy string

const (
	StrategyNone        Strategy = "none"
	StrategyMonthFirst  Strategy = "month-first"
	StrategyDayFirst    Strategy = "day-first"
	StrategyExcelSerial Strategy = "excel-serial"
	StrategyUnixSeconds Strategy = "unix-seconds"
)

const secondsPerDay = 86400

// Days between the spreadsheet epoch 1899-12-30 and 1970-01-01
const excelEpochOffsetDays = 25569

// Representable range of the instants produced by the numeric strategies
var (
	minInstant = time.Date(1677, 9, 22, 0, 0, 0, 0, time.UTC)
	maxInstant = time.Date(2262, 4, 11, 0, 0, 0, 0, time.UTC)
)

var numericCell = regexp.MustCompile(`^[+-]?\d+([.,]\d+)?([eE][+-]?\d+)?$`)

type parser struct {
	strategy Strategy
	parse    func(cell string) (time.Time, bool)
}

// Fixed fallback order
var parsers = []parser{
	{StrategyMonthFirst, calendar(true)},
	{StrategyDayFirst, calendar(false)},
	{StrategyExcelSerial, excelSerial},
	{StrategyUnixSeconds, unixSeconds},
}

// Result is a parsed timestamp column
type Result struct {
	Timestamps []sql.NullTime
	Strategy   Strategy
	Parsed     int
}

// Standardize parses the named column and returns a copy of the dataset carrying
// the timestamps. Cells that cannot be read become null.
func Standardize(ds *models.Dataset, column string) (*models.Dataset, Result, error) {
	cells := ds.Column(column)
	if cells == nil {
		return nil, Result{}, fmt.Errorf("standardizing %s: column %q not found", ds.Source, column)
	}
	res := Parse(cells)
	return ds.WithTimestamps(res.Timestamps), res, nil
}

// Parse tries each strategy in order and keeps the first that reads more than half
// the cells. If none does, the strategy that read the most cells wins.
func Parse(cells []string) Result {
	best := Result{Timestamps: make([]sql.NullTime, len(cells)), Strategy: StrategyNone}
	if len(cells) == 0 {
		return best
	}

	for _, p := range parsers {
		res := apply(p, cells)
		if res.Parsed*2 > len(cells) {
			return res
		}
		if res.Parsed > best.Parsed {
			best = res
		}
	}
	return best
}

func apply(p parser, cells []string) Result {
	res := Result{Timestamps: make([]sql.NullTime, len(cells)), Strategy: p.strategy}
	for i, cell := range cells {
		if t, ok := p.parse(cell); ok {
			res.Timestamps[i] = sql.NullTime{Time: t, Valid: true}
			res.Parsed++
		}
	}
	return res
}

func calendar(monthFirst bool) func(string) (time.Time, bool) {
	return func(cell string) (time.Time, bool) {
		s := strings.TrimSpace(cell)
		if s == "" || numericCell.MatchString(s) {
			return time.Time{}, false
		}
		t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(monthFirst))
		if err != nil {
			return time.Time{}, false
		}
		t = t.UTC()
		if t.Before(minInstant) || t.After(maxInstant) {
			return time.Time{}, false
		}
		return t, true
	}
}

func excelSerial(cell string) (time.Time, bool) {
	days, ok := series.ParseDecimal(cell)
	if !ok {
		return time.Time{}, false
	}
	return fromUnixSeconds((days - excelEpochOffsetDays) * secondsPerDay)
}

func unixSeconds(cell string) (time.Time, bool) {
	sec, ok := series.ParseDecimal(cell)
	if !ok {
		return time.Time{}, false
	}
	return fromUnixSeconds(sec)
}

func fromUnixSeconds(sec float64) (time.Time, bool) {
	if math.IsInf(sec, 0) || sec < float64(minInstant.Unix()) || sec > float64(maxInstant.Unix()) {
		return time.Time{}, false
	}
	whole := math.Floor(sec)
	nanos := int64(math.Round((sec - whole) * 1e9))
	// serial fractions of a day carry float noise below a millisecond
	return time.Unix(int64(whole), nanos).UTC().Round(time.Millisecond), true
}
