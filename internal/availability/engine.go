// Package availability derives bookable time slots from the weekly
// opening-hours template.
package availability

import (
	"errors"
	"fmt"
	"time"

	"tallerbot/internal/schedule"
)

const (
	// SlotDuration is the fixed length of a bookable slot.
	SlotDuration = 30 * time.Minute

	slotMinutes = schedule.Minutes(30)

	// DateLayout is the wire format for dates.
	DateLayout = "2006-01-02"

	// DefaultLookaheadDays bounds the forward scan for open days.
	DefaultLookaheadDays = 14

	// DefaultMaxSuggestions caps how many open days the scan collects.
	DefaultMaxSuggestions = 8
)

// ErrInvalidDate marks a date string that is not a valid YYYY-MM-DD date.
var ErrInvalidDate = errors.New("invalid date")

// ErrInvalidTime marks a time string that is not a valid HH:MM clock value.
var ErrInvalidTime = errors.New("invalid time")

// Slot is a bookable start time on the 30-minute grid.
type Slot struct {
	Hour   int
	Minute int
}

// String formats the slot as 24-hour "HH:MM".
func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// DayAvailability is one open day produced by the lookahead scan.
type DayAvailability struct {
	Date      string
	DayOfWeek time.Weekday
	Slots     []Slot
}

// Engine answers availability questions against an immutable weekly
// template. All methods are pure given the template and the clock.
type Engine struct {
	weekly schedule.Weekly
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, used by the lookahead scan.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over a validated weekly template.
func NewEngine(weekly schedule.Weekly, opts ...Option) *Engine {
	e := &Engine{weekly: weekly, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DayOfWeek resolves the weekday of a YYYY-MM-DD date in the local
// calendar. Malformed input is an error, never a silently wrong weekday.
func (e *Engine) DayOfWeek(dateStr string) (time.Weekday, error) {
	date, err := time.ParseInLocation(DateLayout, dateStr, time.Local)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, dateStr)
	}
	return date.Weekday(), nil
}

// GenerateSlots enumerates the bookable slots for a date, in interval
// order. A closed day yields an empty list. The result depends only on
// the template and the date, so repeated calls are identical.
func (e *Engine) GenerateSlots(dateStr string) ([]Slot, error) {
	day, err := e.DayOfWeek(dateStr)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	for _, interval := range e.weekly.IntervalsFor(day) {
		// A slot must fit entirely before the interval end.
		for cursor := interval.Start; cursor <= interval.End-slotMinutes; cursor += slotMinutes {
			slots = append(slots, Slot{Hour: int(cursor) / 60, Minute: int(cursor) % 60})
		}
	}
	return slots, nil
}

// IsWithinBusinessHours reports whether a time of day falls inside any
// open interval of the date's weekday. Both interval ends are inclusive:
// a technician can still be working at exactly closing time, even though
// no new slot starts there. This is deliberately looser than
// GenerateSlots, which requires a full slot to fit before the end.
func (e *Engine) IsWithinBusinessHours(dateStr, timeStr string) (bool, error) {
	day, err := e.DayOfWeek(dateStr)
	if err != nil {
		return false, err
	}
	clock, err := schedule.ParseClock(timeStr)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidTime, timeStr)
	}

	for _, interval := range e.weekly.IntervalsFor(day) {
		if clock >= interval.Start && clock <= interval.End {
			return true, nil
		}
	}
	return false, nil
}

// HasSlot reports whether timeStr is one of the bookable slots of the
// date. This is the submit-time check: stricter than
// IsWithinBusinessHours because the full 30 minutes must fit.
func (e *Engine) HasSlot(dateStr, timeStr string) (bool, error) {
	if _, err := schedule.ParseClock(timeStr); err != nil {
		return false, fmt.Errorf("%w: %q", ErrInvalidTime, timeStr)
	}
	slots, err := e.GenerateSlots(dateStr)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.String() == timeStr {
			return true, nil
		}
	}
	return false, nil
}

// NextAvailableDays scans forward starting tomorrow, skipping closed
// days, and collects up to maxResults open days within maxDays calendar
// days. Non-positive arguments fall back to the defaults.
func (e *Engine) NextAvailableDays(maxDays, maxResults int) []DayAvailability {
	if maxDays <= 0 {
		maxDays = DefaultLookaheadDays
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxSuggestions
	}

	var result []DayAvailability
	date := e.now().AddDate(0, 0, 1)
	for checked := 0; checked < maxDays && len(result) < maxResults; checked++ {
		dateStr := date.Format(DateLayout)
		slots, err := e.GenerateSlots(dateStr)
		if err == nil && len(slots) > 0 {
			result = append(result, DayAvailability{
				Date:      dateStr,
				DayOfWeek: date.Weekday(),
				Slots:     slots,
			})
		}
		date = date.AddDate(0, 0, 1)
	}
	return result
}
