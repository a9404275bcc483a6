// Package calendar holds the date and time-of-day primitives of the booking grid.
//
// Dates travel as "YYYY-MM-DD" strings and times of day as "HH:mm" strings; both are
// interpreted in the clinic's single wall-clock location.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// SlotInterval is the fixed spacing of the bookable grid.
	SlotInterval = 30 * time.Minute
)

var (
	ErrInvalidDate  = errors.New("date must use YYYY-MM-DD format")
	ErrInvalidClock = errors.New("time must use HH:mm format")
)

// Clock is a time of day expressed in minutes after midnight.
type Clock int

// Midnight is 00:00; a day whose hours are Midnight-Midnight is closed.
const Midnight Clock = 0

// ParseClock parses a strict two-digit "HH:mm" value.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, okH := twoDigits(s[0:2])
	m, okM := twoDigits(s[3:5])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(h*60 + m), nil
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Hour returns the hour component.
func (c Clock) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c Clock) Minute() int { return int(c) % 60 }

// OnGrid reports whether c falls on the SlotInterval grid.
func (c Clock) OnGrid() bool {
	return int(c)%int(SlotInterval/time.Minute) == 0
}

// ParseDate parses a strict "YYYY-MM-DD" calendar date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return day, nil
}

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := ParseDate(s, time.UTC)
	return err == nil
}

// DisplayDate turns YYYY-MM-DD into DD.MM.YYYY; other input is returned unchanged.
func DisplayDate(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "." + parts[1] + "." + parts[0]
}

// At returns the absolute instant of the wall-clock time c on day, in day's location.
func At(day time.Time, c Clock) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, day.Location())
}

// Grid lists clocks from start (inclusive) to end (exclusive) in SlotInterval steps.
// Alignment is absolute: an off-grid start is rounded up to the next boundary.
func Grid(start, end Clock) []Clock {
	step := Clock(SlotInterval / time.Minute)
	if rem := start % step; rem != 0 {
		start += step - rem
	}
	if end <= start {
		return nil
	}
	slots := make([]Clock, 0, int(end-start)/int(step)+1)
	for c := start; c < end; c += step {
		slots = append(slots, c)
	}
	return slots
}

// WeekdayKey returns the lowercase English weekday name used as a working-hours key.
func WeekdayKey(wd time.Weekday) string {
	return strings.ToLower(wd.String())
}

// Weekdays lists the working-hours keys Monday first.
func Weekdays() []string {
	return []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
}
