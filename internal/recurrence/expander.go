// Package recurrence expands an anchor time range into the concrete
// occurrences of a recurring booking. It is a pure generator: no storage,
// no clock, identical inputs always yield identical output.
package recurrence

import (
	"time"

	"roomly/internal/models"
)

// MaxInstances caps expansion regardless of the end date, preventing
// unbounded series from a far-future recurring_end_date.
const MaxInstances = 365

// Expand produces the ordered occurrence intervals for an anchor interval.
//
// The until bound is inclusive of the whole calendar day: a candidate whose
// start falls anywhere on the until date is still emitted. When until is nil
// the bound collapses to the anchor's own date, so exactly one occurrence is
// produced even for recurring types.
//
// Monthly steps use calendar-month addition; if the target month lacks the
// anchor's day-of-month the occurrence rolls into the following month
// (Jan 31 + 1 month = Mar 2/3).
func Expand(anchor models.Interval, typ models.RecurringType, until *time.Time) []models.Interval {
	bound := endOfDay(anchor.Start)
	if until != nil {
		bound = endOfDay(*until)
	}

	var out []models.Interval
	current := anchor
	for count := 0; !current.Start.After(bound) && count < MaxInstances; count++ {
		out = append(out, current)
		if !typ.Recurs() {
			break
		}
		current = step(current, typ)
	}
	return out
}

// ExpandFuture is Expand without the anchor occurrence itself: it emits the
// occurrences strictly after the anchor. Used when the anchor slot is updated
// in place and only the tail of the series must be regenerated. Non-recurring
// types yield nothing.
func ExpandFuture(anchor models.Interval, typ models.RecurringType, until *time.Time) []models.Interval {
	if !typ.Recurs() {
		return nil
	}
	bound := endOfDay(anchor.Start)
	if until != nil {
		bound = endOfDay(*until)
	}

	var out []models.Interval
	current := step(anchor, typ)
	for count := 0; !current.Start.After(bound) && count < MaxInstances; count++ {
		out = append(out, current)
		current = step(current, typ)
	}
	return out
}

func step(iv models.Interval, typ models.RecurringType) models.Interval {
	switch typ {
	case models.RecurringDaily:
		return models.Interval{Start: iv.Start.AddDate(0, 0, 1), End: iv.End.AddDate(0, 0, 1)}
	case models.RecurringWeekly:
		return models.Interval{Start: iv.Start.AddDate(0, 0, 7), End: iv.End.AddDate(0, 0, 7)}
	case models.RecurringMonthly:
		return models.Interval{Start: iv.Start.AddDate(0, 1, 0), End: iv.End.AddDate(0, 1, 0)}
	}
	return iv
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
