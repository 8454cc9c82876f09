package maintenance

import (
	"time"

	"fleetcare/internal/types"
)

// Tier thresholds. Both axes are inclusive lower bounds.
const (
	CriticalDays = 30
	CriticalKm   = 10000
	UrgentDays   = 7
	UrgentKm     = 2000
)

// DueState is the overdue classification of one schedule on one day.
type DueState struct {
	DaysOverdue int
	KmOverdue   int
	Tier        types.Tier

	// TimeActive and DistanceActive are true when the axis is configured and
	// currently overdue.
	TimeActive     bool
	DistanceActive bool
}

// Overdue reports whether any axis is overdue.
func (s DueState) Overdue() bool {
	return s.Tier != types.TierNone
}

// Classify computes how overdue a schedule is. today must already be
// truncated to midnight (see Today). An axis contributes only when the
// recurrence configures it and the schedule carries a next-due value for it.
func Classify(today time.Time, currentMileage int, rec types.Recurrence, due NextDue) DueState {
	var st DueState

	if rec.Time != nil && due.Date != nil {
		st.DaysOverdue = daysOverdue(today, *due.Date)
	}
	if rec.Kilometers != nil && due.Kilometers != nil {
		if km := currentMileage - *due.Kilometers; km > 0 {
			st.KmOverdue = km
		}
	}

	st.TimeActive = st.DaysOverdue > 0
	st.DistanceActive = st.KmOverdue > 0
	st.Tier = tierFor(st.DaysOverdue, st.KmOverdue)
	return st
}

// daysOverdue is max(0, ceil((today - due) / 24h)).
func daysOverdue(today, due time.Time) int {
	diff := today.Sub(due.UTC())
	if diff <= 0 {
		return 0
	}
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func tierFor(days, km int) types.Tier {
	switch {
	case days == 0 && km == 0:
		return types.TierNone
	case days >= CriticalDays || km >= CriticalKm:
		return types.TierCritical
	case days >= UrgentDays || km >= UrgentKm:
		return types.TierUrgent
	default:
		return types.TierWarning
	}
}
