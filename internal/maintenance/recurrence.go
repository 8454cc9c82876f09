// Package maintenance holds the due-date engine for vehicle maintenance:
// resolving next-due anchors from a recurrence, classifying how overdue a
// schedule is, throttling how often an owner is reminded, and keeping
// schedules current as completion records change.
//
// Everything in this file and in classifier.go, cadence.go and severity.go is
// pure and works on UTC values only.
package maintenance

import (
	"time"

	"fleetcare/internal/types"
)

// Anchor is the reference point from which the next occurrence is computed:
// the latest completion, or the reset point when no completion exists.
type Anchor struct {
	Date    time.Time
	Mileage int
}

// NextDue is the derived due state persisted on a schedule. A nil field means
// the corresponding axis is not configured.
type NextDue struct {
	Date       *time.Time
	Kilometers *int
}

// Resolve computes the next-due values for rec from anchor. A recurrence with
// neither axis yields an empty NextDue.
func Resolve(rec types.Recurrence, anchor Anchor) NextDue {
	var out NextDue
	if rec.Time != nil {
		due := AddInterval(anchor.Date, *rec.Time)
		out.Date = &due
	}
	if rec.Kilometers != nil {
		km := anchor.Mileage + *rec.Kilometers
		out.Kilometers = &km
	}
	return out
}

// AddInterval adds iv to t in UTC.
//
// Days and weeks are whole calendar days. Months and years clamp to the last
// day of the target month, so Jan 31 + 1 month is Feb 28 (or 29) and Feb 29 +
// 1 year is Feb 28. The time of day is preserved.
func AddInterval(t time.Time, iv types.TimeInterval) time.Time {
	t = t.UTC()
	switch iv.Unit {
	case types.TimeUnitDays:
		return t.AddDate(0, 0, iv.Value)
	case types.TimeUnitWeeks:
		return t.AddDate(0, 0, 7*iv.Value)
	case types.TimeUnitMonths:
		return addMonthsClamped(t, iv.Value)
	case types.TimeUnitYears:
		return addMonthsClamped(t, 12*iv.Value)
	default:
		return t
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	// Day 1 of the target month never overflows.
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Today truncates now to UTC midnight.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
