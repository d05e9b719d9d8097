package pipeline

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jgoulah/gridconvert/internal/detect"
	"github.com/jgoulah/gridconvert/internal/loader"
	"github.com/jgoulah/gridconvert/internal/series"
	"github.com/jgoulah/gridconvert/internal/timeparse"
)

// ErrNoFiles is returned when a run is started without any upload
var ErrNoFiles = errors.New("no files supplied")

// FallbackFrequency is used when no frequency is given and none can be inferred
const FallbackFrequency = series.FrequencyHour

// Upload is one file handed over by the caller
type Upload struct {
	Name    string
	Data    []byte
	Columns []string // Consumption columns to process; empty means auto-detect
}

// Options are the user choices for a run
type Options struct {
	Frequency           series.Frequency // FrequencyNone infers it per file
	Strategy            series.Strategy
	Classification      series.Classification
	MaxGridPoints       int
	DatetimeKeywords    []string
	ConsumptionKeywords []string
}

// Result is the output of a run
type Result struct {
	Merged     *series.Merged
	Series     []*series.Series
	Advisories []Advisory
}

// Pipeline converts consumption exports into one merged dataset
type Pipeline struct {
	opts     Options
	detector *detect.Detector
	log      log.FieldLogger
}

// New creates a pipeline. A nil logger discards everything.
func New(opts Options, logger log.FieldLogger) *Pipeline {
	if logger == nil {
		l := log.New()
		l.SetLevel(log.PanicLevel)
		logger = l
	}
	return &Pipeline{
		opts:     opts,
		detector: detect.New(opts.DatetimeKeywords, opts.ConsumptionKeywords),
		log:      logger,
	}
}

// Run processes every upload in order. Problems with a single file or column are
// reported as advisories and never stop the batch.
func (p *Pipeline) Run(uploads []Upload) (*Result, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}

	res := &Result{}
	for _, u := range uploads {
		cleaned, advisories := p.processFile(u)
		res.Series = append(res.Series, cleaned...)
		for _, a := range advisories {
			p.log.WithFields(log.Fields{"file": a.File, "column": a.Column, "kind": a.Kind()}).Warn(a.Err)
		}
		res.Advisories = append(res.Advisories, advisories...)
	}

	res.Merged = series.Merge(res.Series...)
	p.log.WithFields(log.Fields{
		"files":      len(uploads),
		"series":     len(res.Series),
		"records":    len(res.Merged.Records),
		"advisories": len(res.Advisories),
	}).Info("conversion finished")

	return res, nil
}

func (p *Pipeline) processFile(u Upload) ([]*series.Series, []Advisory) {
	logger := p.log.WithField("file", u.Name)

	ds, err := loader.Load(u.Name, u.Data)
	if err != nil {
		return nil, []Advisory{{File: u.Name, Err: err}}
	}
	logger.WithFields(log.Fields{"rows": ds.Len(), "columns": len(ds.Columns)}).Debug("file loaded")

	dt := p.detector.Datetime(ds)
	if dt.Column == "" {
		return nil, []Advisory{{File: u.Name, Err: fmt.Errorf("%s: %w", u.Name, loader.ErrEmptyFile)}}
	}
	if !dt.Found {
		logger.WithField("column", dt.Column).Info("no datetime column name matched, using first column")
	}

	ds, parsed, err := timeparse.Standardize(ds, dt.Column)
	if err != nil {
		return nil, []Advisory{{File: u.Name, Column: dt.Column, Err: err}}
	}
	logger.WithFields(log.Fields{
		"column":   dt.Column,
		"strategy": parsed.Strategy,
		"parsed":   parsed.Parsed,
		"rows":     ds.Len(),
	}).Debug("timestamps standardized")

	var columns []detect.Match
	var advisories []Advisory
	if len(u.Columns) > 0 {
		for _, name := range u.Columns {
			m, err := detect.Resolve(ds, name)
			if err != nil {
				advisories = append(advisories, Advisory{File: u.Name, Column: name, Err: err})
				continue
			}
			columns = append(columns, m)
		}
	} else {
		m, err := p.detector.Consumption(ds)
		if err != nil {
			return nil, []Advisory{{File: u.Name, Err: err}}
		}
		columns = append(columns, m)
	}

	freq := p.frequency(ds.Timestamps, logger)

	var out []*series.Series
	for _, col := range columns {
		s, err := series.FillGaps(ds, col.Column, series.Options{
			Frequency:      freq,
			Strategy:       p.opts.Strategy,
			Classification: p.opts.Classification,
			MaxGridPoints:  p.opts.MaxGridPoints,
		})
		if err != nil {
			advisories = append(advisories, Advisory{File: u.Name, Column: col.Column, Err: err})
			continue
		}
		if len(s.Records) == 0 {
			advisories = append(advisories, Advisory{File: u.Name, Column: col.Column, Err: fmt.Errorf("%s: %w", u.Name, series.ErrEmptyGrid)})
		}

		logger.WithFields(log.Fields{
			"column":     col.Column,
			"rule":       col.Rule,
			"frequency":  s.Frequency,
			"cumulative": s.Cumulative,
			"strategy":   s.Strategy,
			"points":     len(s.Records),
		}).Debug("series cleaned")
		out = append(out, s)
	}

	return out, advisories
}

func (p *Pipeline) frequency(ts []sql.NullTime, logger log.FieldLogger) series.Frequency {
	if p.opts.Frequency != series.FrequencyNone {
		return p.opts.Frequency
	}

	instants := make([]time.Time, 0, len(ts))
	for _, t := range ts {
		if t.Valid {
			instants = append(instants, t.Time)
		}
	}

	freq := series.InferFrequency(instants)
	if freq == series.FrequencyNone {
		logger.WithField("fallback", FallbackFrequency).Info("no frequency inferable")
		return FallbackFrequency
	}
	logger.WithField("frequency", freq).Debug("frequency inferred")
	return freq
}
