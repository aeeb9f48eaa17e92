// Package scheduling holds the pure temporal logic of the recurring
// appointment subsystem: recurrence expansion and conflict detection.
// Nothing in this package touches storage or the wall clock.
package scheduling

import (
	"time"

	"github.com/abaflow/practice-api/internal/model"
	"github.com/abaflow/practice-api/pkg/errors"
)

const (
	// DefaultHorizonWeeks is how far ahead a fresh template generates.
	DefaultHorizonWeeks = 4
	// MaxHorizonWeeks caps any single generation call.
	MaxHorizonWeeks = 16
)

// Occurrence is one candidate slot produced by expansion.
type Occurrence struct {
	Date time.Time       `json:"date"`
	Time model.ClockTime `json:"time"`
}

// ClampHorizon normalizes a caller-supplied weeks-ahead value.
func ClampHorizon(weeks int) int {
	if weeks <= 0 {
		return DefaultHorizonWeeks
	}
	if weeks > MaxHorizonWeeks {
		return MaxHorizonWeeks
	}
	return weeks
}

// Expand produces the ordered occurrence dates for a template, starting
// no earlier than windowStart and extending weeksAhead weeks from it.
// The template's end_date, when set, bounds the sequence (inclusive).
// An empty result is not an error; a window that cannot exist is.
func Expand(t *model.AppointmentTemplate, windowStart time.Time, weeksAhead int) ([]Occurrence, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	weeksAhead = ClampHorizon(weeksAhead)
	step := t.RecurrenceType.StepDays()

	// The anchor is the first date >= start_date on the template's
	// weekday; every occurrence is anchor + k*step. Expanding from a
	// later window must keep that phase or biweekly and monthly series
	// would drift on re-generation.
	templateStart := dateOnly(t.StartDate)
	offset := (t.DayOfWeek - int(templateStart.Weekday()) + 7) % 7
	anchor := templateStart.AddDate(0, 0, offset)

	first := anchor
	if start := dateOnly(windowStart); start.After(anchor) {
		days := int(start.Sub(anchor).Hours() / 24)
		k := (days + step - 1) / step
		first = anchor.AddDate(0, 0, k*step)
	}

	horizon := dateOnly(windowStart).AddDate(0, 0, weeksAhead*7)
	if t.EndDate != nil {
		end := dateOnly(*t.EndDate)
		if end.Before(horizon) {
			// Inclusive end date: allow an occurrence on the day itself.
			horizon = end.AddDate(0, 0, 1)
		}
	}

	var out []Occurrence
	for d := first; d.Before(horizon); d = d.AddDate(0, 0, step) {
		out = append(out, Occurrence{Date: d, Time: t.ScheduledTime})
	}
	return out, nil
}

// NextAfter returns the window start to use when extending a series past
// its latest generated date, so re-generation never duplicates a slot.
func NextAfter(latestGenerated time.Time) time.Time {
	return dateOnly(latestGenerated).AddDate(0, 0, 1)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateWindow rejects an inverted generation window up front.
func ValidateWindow(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return errors.NewValidation("end_date cannot be before start_date")
	}
	return nil
}
