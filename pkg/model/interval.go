package model

import (
	"fmt"
	"time"
)

const (
	// MinutesPerDay bounds interval offsets: a valid interval lives in [0, 1440].
	MinutesPerDay = 24 * 60

	ClockFormat = "15:04"      // HH:MM
	DateFormat  = "2006-01-02" // YYYY-MM-DD
)

// Interval is a half-open [Start, End) time range expressed as minute offsets
// from midnight of a single calendar day. Touching intervals (End == Start of
// the next) do not overlap.
type Interval struct {
	Start int `json:"start" bson:"start"`
	End   int `json:"end" bson:"end"`
}

func NewInterval(start, end int) (Interval, error) {
	if start < 0 || end > MinutesPerDay || start >= end {
		return Interval{}, fmt.Errorf("invalid interval [%d, %d)", start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps is the single overlap predicate used everywhere: conflict
// detection, availability slicing and reschedule checks all go through it.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

func (i Interval) Minutes() int {
	return i.End - i.Start
}

func (i Interval) String() string {
	return fmt.Sprintf("%s-%s", FormatClock(i.Start), FormatClock(i.End))
}

// ParseClock converts an HH:MM string to a minute offset from midnight.
func ParseClock(clock string) (int, error) {
	t, err := time.Parse(ClockFormat, clock)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts a minute offset back to HH:MM. An offset of 1440
// renders as 24:00 so that end-of-day interval bounds stay printable.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// IntervalAt builds the interval starting at the given HH:MM clock time and
// spanning durationHours. Fails if the interval would cross midnight.
func IntervalAt(startClock string, durationHours float64) (Interval, error) {
	start, err := ParseClock(startClock)
	if err != nil {
		return Interval{}, err
	}
	if durationHours <= 0 {
		return Interval{}, fmt.Errorf("duration must be positive, got %v", durationHours)
	}
	end := start + int(durationHours*60)
	return NewInterval(start, end)
}

// ParseDate parses a YYYY-MM-DD calendar date at UTC midnight. All date math
// in the system is UTC so that day-of-week resolution does not depend on the
// server's local timezone.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateFormat, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// DayOfWeek resolves the weekday of a date in UTC.
func DayOfWeek(date time.Time) time.Weekday {
	return date.UTC().Weekday()
}
