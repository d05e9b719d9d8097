package series

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Frequency is a sampling interval of a regular grid
type Frequency int

const (
	// FrequencyNone means no interval could be inferred
	FrequencyNone Frequency = iota
	FrequencyMinute
	FrequencyQuarterHour
	FrequencyHour
	FrequencyDay
)

var frequencyBuckets = []struct {
	freq  Frequency
	upper time.Duration
}{
	{FrequencyMinute, time.Minute},
	{FrequencyQuarterHour, 15 * time.Minute},
	{FrequencyHour, time.Hour},
	{FrequencyDay, 24 * time.Hour},
}

// Duration returns the grid step, or zero for FrequencyNone
func (f Frequency) Duration() time.Duration {
	switch f {
	case FrequencyMinute:
		return time.Minute
	case FrequencyQuarterHour:
		return 15 * time.Minute
	case FrequencyHour:
		return time.Hour
	case FrequencyDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (f Frequency) String() string {
	switch f {
	case FrequencyMinute:
		return "minute"
	case FrequencyQuarterHour:
		return "15min"
	case FrequencyHour:
		return "hourly"
	case FrequencyDay:
		return "daily"
	default:
		return "none"
	}
}

// ParseFrequency accepts the labels used in configs and flags. An empty label
// returns FrequencyNone, meaning the interval is inferred from the data.
func ParseFrequency(label string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "":
		return FrequencyNone, nil
	case "minute", "1min", "t":
		return FrequencyMinute, nil
	case "15min", "15 min", "15-min", "15-minute", "15 minute", "15 minutes", "15t", "quarter-hourly":
		return FrequencyQuarterHour, nil
	case "hourly", "hour", "h":
		return FrequencyHour, nil
	case "daily", "day", "d":
		return FrequencyDay, nil
	default:
		return FrequencyNone, fmt.Errorf("unknown frequency: %s (available: 15min, hourly, daily, minute)", label)
	}
}

// Bucket maps a spacing to the smallest frequency whose step is at least as long
func Bucket(spacing time.Duration) Frequency {
	if spacing <= 0 {
		return FrequencyNone
	}
	for _, b := range frequencyBuckets {
		if spacing <= b.upper {
			return b.freq
		}
	}
	return FrequencyNone
}

// InferFrequency estimates the dominant spacing of a set of instants. The input is
// sorted and de-duplicated first; the most frequent difference wins, the shorter
// one on ties.
func InferFrequency(instants []time.Time) Frequency {
	sorted := make([]time.Time, len(instants))
	copy(sorted, instants)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	counts := make(map[time.Duration]int)
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i].Sub(sorted[i-1]); d > 0 {
			counts[d]++
		}
	}
	if len(counts) == 0 {
		return FrequencyNone
	}

	var mode time.Duration
	best := 0
	for d, n := range counts {
		if n > best || (n == best && d < mode) {
			mode, best = d, n
		}
	}
	return Bucket(mode)
}
