package detect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jgoulah/gridconvert/internal/series"
	"github.com/jgoulah/gridconvert/pkg/models"
)

var (
	// ErrNoConsumptionColumn is returned when no column qualifies as consumption data
	ErrNoConsumptionColumn = errors.New("no consumption column detected")
	// ErrColumnNotFound is returned when an explicitly requested column does not exist
	ErrColumnNotFound = errors.New("column not found")
)

// Default keyword sets, matched case-insensitively as substrings of column names
var (
	DefaultDatetimeKeywords    = []string{"date", "time", "timestamp"}
	DefaultConsumptionKeywords = []string{"consumption", "kwh", "energy", "value", "usage"}
)

// Match is the outcome of a detection. Found is false when only a fallback applied.
type Match struct {
	Column string
	Found  bool
	Rule   string
}

// rule inspects a dataset and reports a column, or a zero Match if it does not apply
type rule struct {
	name  string
	found bool
	pick  func(ds *models.Dataset) (string, bool)
}

// Detector identifies the timestamp and consumption columns of a dataset
type Detector struct {
	datetimeRules    []rule
	consumptionRules []rule
}

// New builds a detector from keyword sets, using the defaults for empty sets
func New(datetimeKeywords, consumptionKeywords []string) *Detector {
	if len(datetimeKeywords) == 0 {
		datetimeKeywords = DefaultDatetimeKeywords
	}
	if len(consumptionKeywords) == 0 {
		consumptionKeywords = DefaultConsumptionKeywords
	}

	return &Detector{
		datetimeRules: []rule{
			{name: "keyword", found: true, pick: keywordColumn(datetimeKeywords, nil)},
			{name: "first column", found: false, pick: positionalColumn(0, nil)},
		},
		consumptionRules: []rule{
			{name: "keyword", found: true, pick: keywordColumn(consumptionKeywords, isNumeric)},
			{name: "second column", found: true, pick: positionalColumn(1, isNumeric)},
		},
	}
}

// Datetime returns the timestamp column. When no column name matches, the first
// column is returned with Found set to false.
func (d *Detector) Datetime(ds *models.Dataset) Match {
	return evaluate(d.datetimeRules, ds)
}

// Consumption returns the first keyword column that is mostly numeric, falling back
// to a numeric second column
func (d *Detector) Consumption(ds *models.Dataset) (Match, error) {
	m := evaluate(d.consumptionRules, ds)
	if m.Column == "" {
		return Match{}, fmt.Errorf("%s: %w", ds.Source, ErrNoConsumptionColumn)
	}
	return m, nil
}

// Resolve checks that an explicitly chosen column exists
func Resolve(ds *models.Dataset, column string) (Match, error) {
	if ds.Index(column) < 0 {
		return Match{}, fmt.Errorf("%s: %q: %w", ds.Source, column, ErrColumnNotFound)
	}
	return Match{Column: column, Found: true, Rule: "explicit"}, nil
}

func evaluate(rules []rule, ds *models.Dataset) Match {
	for _, r := range rules {
		if col, ok := r.pick(ds); ok {
			return Match{Column: col, Found: r.found, Rule: r.name}
		}
	}
	return Match{}
}

func keywordColumn(keywords []string, accept func([]string) bool) func(*models.Dataset) (string, bool) {
	return func(ds *models.Dataset) (string, bool) {
		for _, col := range ds.Columns {
			if !containsAny(strings.ToLower(col), keywords) {
				continue
			}
			if accept == nil || accept(ds.Column(col)) {
				return col, true
			}
		}
		return "", false
	}
}

func positionalColumn(pos int, accept func([]string) bool) func(*models.Dataset) (string, bool) {
	return func(ds *models.Dataset) (string, bool) {
		if pos >= len(ds.Columns) {
			return "", false
		}
		col := ds.Columns[pos]
		if accept != nil && !accept(ds.Column(col)) {
			return "", false
		}
		return col, true
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// isNumeric reports whether more than half the cells parse as decimal numbers
func isNumeric(cells []string) bool {
	valid := 0
	for _, cell := range cells {
		if _, ok := series.ParseDecimal(cell); ok {
			valid++
		}
	}
	return valid*2 > len(cells)
}
