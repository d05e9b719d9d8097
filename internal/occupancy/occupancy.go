// Package occupancy flags instants as on-peak and occupied for workbook exports.
package occupancy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDayReused is returned when a weekday appears in more than one profile
var ErrDayReused = errors.New("weekday belongs to more than one occupancy profile")

// Clock is a time of day with minute precision
type Clock struct {
	Hour   int
	Minute int
}

// Default windows
var (
	DefaultOnPeakStart = Clock{Hour: 7}
	DefaultOnPeakEnd   = Clock{Hour: 22}
	DefaultOpen        = Clock{Hour: 8}
	DefaultClose       = Clock{Hour: 18}
)

// ParseClock reads "HH:MM"
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("parsing time of day %q: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) offset() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

func sinceMidnight(t time.Time) time.Duration {
	y, m, d := t.Date()
	return t.Sub(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

// within reports whether t's time of day lies in [from, to]
func within(t time.Time, from, to Clock) bool {
	tod := sinceMidnight(t)
	return tod >= from.offset() && tod <= to.offset()
}

// ParseWeekday accepts full English day names and their three-letter forms
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || (len(name) == 3 && strings.HasPrefix(full, name)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Profile is a set of weekdays sharing opening hours
type Profile struct {
	Days  []time.Weekday
	Open  Clock
	Close Clock
}

// Calendar holds the on-peak window and the occupancy profiles of a site
type Calendar struct {
	OnPeakStart    Clock
	OnPeakEnd      Clock
	WeekendsOnPeak bool
	profiles       map[time.Weekday]Profile
}

// New creates a calendar. Each weekday may belong to one profile only.
func New(onPeakStart, onPeakEnd Clock, weekendsOnPeak bool, profiles ...Profile) (*Calendar, error) {
	c := &Calendar{
		OnPeakStart:    onPeakStart,
		OnPeakEnd:      onPeakEnd,
		WeekendsOnPeak: weekendsOnPeak,
		profiles:       make(map[time.Weekday]Profile),
	}
	for _, p := range profiles {
		for _, d := range p.Days {
			if _, ok := c.profiles[d]; ok {
				return nil, fmt.Errorf("%s: %w", d, ErrDayReused)
			}
			c.profiles[d] = p
		}
	}
	return c, nil
}

// Default returns the 07:00-22:00 weekday on-peak calendar with no occupancy
func Default() *Calendar {
	c, _ := New(DefaultOnPeakStart, DefaultOnPeakEnd, false)
	return c
}

// OnPeak reports whether t falls in the on-peak window
func (c *Calendar) OnPeak(t time.Time) bool {
	if !c.WeekendsOnPeak && isWeekend(t.Weekday()) {
		return false
	}
	return within(t, c.OnPeakStart, c.OnPeakEnd)
}

// Occupied reports whether t falls within the opening hours of its weekday
func (c *Calendar) Occupied(t time.Time) bool {
	p, ok := c.profiles[t.Weekday()]
	if !ok {
		return false
	}
	return within(t, p.Open, p.Close)
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
