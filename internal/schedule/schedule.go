// Package schedule holds the static weekly opening-hours template.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSchedule marks a malformed weekly template. Fatal at startup.
var ErrInvalidSchedule = errors.New("invalid schedule")

// ErrInvalidClock marks a time-of-day string that is not HH:MM.
var ErrInvalidClock = errors.New("invalid clock value")

// Minutes is a time of day expressed as minutes since midnight (0-1439).
type Minutes int

// String formats the value as 24-hour "HH:MM".
func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (Minutes, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidClock, s)
	}
	return Minutes(hour*60 + minute), nil
}

// OpenInterval is one continuous open period within a day.
type OpenInterval struct {
	Start Minutes
	End   Minutes
}

func (i OpenInterval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// Weekly maps each weekday to its ordered open intervals.
// An absent or empty entry means the shop is closed that day.
// The template is built once at startup and never mutated afterwards.
type Weekly map[time.Weekday][]OpenInterval

// IntervalsFor returns the configured intervals for a weekday.
// Returns nil for closed days. Never fails.
func (w Weekly) IntervalsFor(day time.Weekday) []OpenInterval {
	return w[day]
}

// Validate fails fast on intervals with start >= end or overlapping
// intervals within a day. A corrupt template would otherwise silently
// produce nonsensical slot lists.
func (w Weekly) Validate() error {
	for day := time.Sunday; day <= time.Saturday; day++ {
		intervals := w[day]
		for i, iv := range intervals {
			if iv.Start >= iv.End {
				return fmt.Errorf("%w: %s interval %s has start >= end", ErrInvalidSchedule, day, iv)
			}
			for _, other := range intervals[i+1:] {
				if iv.Start < other.End && other.Start < iv.End {
					return fmt.Errorf("%w: %s intervals %s and %s overlap", ErrInvalidSchedule, day, iv, other)
				}
			}
		}
	}
	return nil
}

// dayNames maps config keys to weekdays. Lookups are by name, not index,
// so the week-start convention does not matter.
var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekly builds a validated template from day-name keyed "HH:MM" pairs,
// the shape the YAML config uses.
func ParseWeekly(hours map[string][][2]string) (Weekly, error) {
	w := make(Weekly, len(hours))
	for name, pairs := range hours {
		day, ok := dayNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: unknown day %q", ErrInvalidSchedule, name)
		}
		intervals := make([]OpenInterval, 0, len(pairs))
		for _, pair := range pairs {
			start, err := ParseClock(pair[0])
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchedule, name, err)
			}
			end, err := ParseClock(pair[1])
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchedule, name, err)
			}
			intervals = append(intervals, OpenInterval{Start: start, End: end})
		}
		w[day] = intervals
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Default returns the shop's published weekly hours: split morning and
// afternoon shifts on weekdays, closed on weekends.
func Default() Weekly {
	workday := []OpenInterval{
		{Start: 9 * 60, End: 14 * 60},
		{Start: 16 * 60, End: 20 * 60},
	}
	return Weekly{
		time.Monday:    workday,
		time.Tuesday:   workday,
		time.Wednesday: workday,
		time.Thursday:  workday,
		time.Friday:    workday,
	}
}
