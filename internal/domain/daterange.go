package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// MaxRangeDays is the longest rental a single booking may cover.
const MaxRangeDays = 30

const day = 24 * time.Hour

// DateRange is a half-open interval of calendar dates [Start, End).
// End is the turnover day and is not occupied.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// NewDateRange builds a range from two dates, dropping any time of day.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Date(start), End: Date(end)}
}

// ParseDateRange parses both ends of a range in DateLayout.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, &ValidationError{Field: "start", Reason: "must be a YYYY-MM-DD date"}
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, &ValidationError{Field: "end", Reason: "must be a YYYY-MM-DD date"}
	}
	return NewDateRange(s, e), nil
}

// Days returns the number of occupied days (end - start).
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start) / day)
}

// Validate checks that the range is non-empty and no longer than maxDays.
func (r DateRange) Validate(maxDays int) error {
	n := r.Days()
	if n <= 0 {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	if n > maxDays {
		return &ValidationError{Field: "end", Reason: fmt.Sprintf("range spans %d days, maximum is %d", n, maxDays)}
	}
	return nil
}

// Overlaps reports whether two half-open ranges share at least one day.
// Ranges that only touch at a boundary do not overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains reports whether the calendar day d is occupied by the range.
func (r DateRange) Contains(d time.Time) bool {
	d = Date(d)
	return !d.Before(r.Start) && d.Before(r.End)
}

// Clip returns the part of r that falls inside window, and false when they do not overlap.
func (r DateRange) Clip(window DateRange) (DateRange, bool) {
	if !r.Overlaps(window) {
		return DateRange{}, false
	}
	clipped := r
	if clipped.Start.Before(window.Start) {
		clipped.Start = window.Start
	}
	if clipped.End.After(window.End) {
		clipped.End = window.End
	}
	return clipped, true
}

// EachDay calls fn for every occupied day in order.
func (r DateRange) EachDay(fn func(d time.Time)) {
	for d := r.Start; d.Before(r.End); d = d.Add(day) {
		fn(d)
	}
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}
