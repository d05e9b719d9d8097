package occupancy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday
func at(day, hour, min, sec int) time.Time {
	return time.Date(2024, 1, day, hour, min, sec, 0, time.UTC)
}

func TestOnPeakDefaults(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before start", at(1, 6, 59, 0), false},
		{"start inclusive", at(1, 7, 0, 0), true},
		{"midday", at(3, 12, 0, 0), true},
		{"end inclusive", at(1, 22, 0, 0), true},
		{"after end", at(1, 22, 0, 1), false},
		{"saturday", at(6, 12, 0, 0), false},
		{"sunday", at(7, 12, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.OnPeak(tt.t))
		})
	}
}

func TestOnPeakWeekends(t *testing.T) {
	c, err := New(Clock{Hour: 8}, Clock{Hour: 20, Minute: 30}, true)
	require.NoError(t, err)

	assert.True(t, c.OnPeak(at(6, 20, 30, 0)))
	assert.False(t, c.OnPeak(at(6, 7, 30, 0)))
}

func TestOccupied(t *testing.T) {
	c, err := New(DefaultOnPeakStart, DefaultOnPeakEnd, false,
		Profile{Days: []time.Weekday{time.Monday, time.Tuesday}, Open: DefaultOpen, Close: DefaultClose},
		Profile{Days: []time.Weekday{time.Saturday}, Open: Clock{Hour: 9}, Close: Clock{Hour: 12}},
	)
	require.NoError(t, err)

	assert.True(t, c.Occupied(at(1, 8, 0, 0)))
	assert.True(t, c.Occupied(at(2, 18, 0, 0)))
	assert.False(t, c.Occupied(at(2, 18, 15, 0)))
	assert.False(t, c.Occupied(at(3, 10, 0, 0)), "wednesday has no profile")
	assert.True(t, c.Occupied(at(6, 11, 0, 0)))
	assert.False(t, c.Occupied(at(6, 13, 0, 0)))
}

func TestDayInTwoProfiles(t *testing.T) {
	_, err := New(DefaultOnPeakStart, DefaultOnPeakEnd, false,
		Profile{Days: []time.Weekday{time.Monday}},
		Profile{Days: []time.Weekday{time.Friday, time.Monday}},
	)
	assert.True(t, errors.Is(err, ErrDayReused))
}

func TestParseClockAndWeekday(t *testing.T) {
	c, err := ParseClock(" 07:30 ")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 7, Minute: 30}, c)
	assert.Equal(t, "07:30", c.String())

	_, err = ParseClock("7h")
	assert.Error(t, err)

	d, err := ParseWeekday("Wednesday")
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, d)

	d, err = ParseWeekday("sat")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)

	_, err = ParseWeekday("Funday")
	assert.Error(t, err)
}
