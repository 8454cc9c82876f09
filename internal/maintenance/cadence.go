package maintenance

import "fleetcare/internal/types"

// Cadence windows. A distance reminder fires while the overdue distance sits
// within DistanceWindowKm past a band boundary.
const (
	EscalatedDayInterval = 7
	EscalatedBandKm      = 1000
	WarningBandKm        = 500
	DistanceWindowKm     = 50
)

// warningDays are the only days a warning-tier time reminder is sent.
var warningDays = map[int]bool{1: true, 3: true}

// ShouldNotifyToday applies the reminder cadence to a classified state. Only
// active axes are considered, so a schedule that is not overdue never
// notifies.
func ShouldNotifyToday(st DueState) bool {
	switch st.Tier {
	case types.TierCritical, types.TierUrgent:
		return (st.TimeActive && st.DaysOverdue%EscalatedDayInterval == 0) ||
			(st.DistanceActive && st.KmOverdue%EscalatedBandKm < DistanceWindowKm)
	case types.TierWarning:
		return (st.TimeActive && warningDays[st.DaysOverdue]) ||
			(st.DistanceActive && st.KmOverdue%WarningBandKm < DistanceWindowKm)
	default:
		return false
	}
}
