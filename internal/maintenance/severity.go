package maintenance

import "fleetcare/internal/types"

// SeverityKeyFor derives the ledger key for st. The time axis drives whenever
// it is overdue; otherwise the distance axis drives with 1000 km bands.
func SeverityKeyFor(st DueState) types.SeverityKey {
	if st.DaysOverdue > 0 {
		return types.SeverityKey{Axis: types.AxisTime, Magnitude: st.DaysOverdue}
	}
	return types.SeverityKey{Axis: types.AxisDistance, Magnitude: st.KmOverdue / EscalatedBandKm}
}
