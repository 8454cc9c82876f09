package maintenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fleetcare/internal/types"
)

func timeRec() types.Recurrence {
	return types.Recurrence{Time: every(6, types.TimeUnitMonths)}
}

func kmRec() types.Recurrence {
	return types.Recurrence{Kilometers: intPtr(10000)}
}

func dueOn(d time.Time) NextDue { return NextDue{Date: &d} }

func dueAt(km int) NextDue { return NextDue{Kilometers: &km} }

func TestClassify_NothingOverdue(t *testing.T) {
	today := date(2024, 6, 1)

	st := Classify(today, 1000, timeRec(), dueOn(today))
	assert.Equal(t, types.TierNone, st.Tier)
	assert.False(t, st.Overdue())
	assert.False(t, ShouldNotifyToday(st))

	st = Classify(today, 50000, kmRec(), dueAt(50000))
	assert.Equal(t, types.TierNone, st.Tier)
	assert.Equal(t, 0, st.KmOverdue)
	assert.False(t, ShouldNotifyToday(st))

	st = Classify(today, 0, types.Recurrence{}, NextDue{})
	assert.Equal(t, types.TierNone, st.Tier)
}

func TestClassify_DaysOverdueCeil(t *testing.T) {
	today := date(2024, 6, 10)

	st := Classify(today, 0, timeRec(), dueOn(date(2024, 6, 9)))
	assert.Equal(t, 1, st.DaysOverdue)

	// A due timestamp carrying a time of day rounds up to the next whole day.
	st = Classify(today, 0, timeRec(), dueOn(time.Date(2024, 6, 8, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, st.DaysOverdue)

	st = Classify(today, 0, timeRec(), dueOn(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, st.DaysOverdue)
}

func TestClassify_Tiers(t *testing.T) {
	today := date(2024, 6, 30)

	tests := []struct {
		name string
		days int
		km   int
		want types.Tier
	}{
		{"30 days is critical", 30, 0, types.TierCritical},
		{"29 days is urgent", 29, 0, types.TierUrgent},
		{"7 days is urgent", 7, 0, types.TierUrgent},
		{"6 days is warning", 6, 0, types.TierWarning},
		{"1 day is warning", 1, 0, types.TierWarning},
		{"2000 km is urgent", 0, 2000, types.TierUrgent},
		{"1999 km is warning", 0, 1999, types.TierWarning},
		{"10000 km is critical", 0, 10000, types.TierCritical},
		{"worst axis wins by distance", 2, 12000, types.TierCritical},
		{"worst axis wins by time", 31, 10, types.TierCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := types.Recurrence{Time: every(1, types.TimeUnitYears), Kilometers: intPtr(15000)}
			due := NextDue{}
			d := today.AddDate(0, 0, -tt.days)
			due.Date = &d
			km := 100000 - tt.km
			due.Kilometers = &km

			st := Classify(today, 100000, rec, due)
			assert.Equal(t, tt.days, st.DaysOverdue)
			assert.Equal(t, tt.km, st.KmOverdue)
			assert.Equal(t, tt.want, st.Tier)
			assert.Equal(t, tt.days > 0, st.TimeActive)
			assert.Equal(t, tt.km > 0, st.DistanceActive)
		})
	}
}

func TestClassify_AxisRequiresRecurrence(t *testing.T) {
	today := date(2024, 6, 30)
	past := date(2024, 1, 1)
	km := 1000

	// A stale next-due date is ignored when the recurrence has no time axis.
	st := Classify(today, 50000, kmRec(), NextDue{Date: &past, Kilometers: &km})
	assert.Equal(t, 0, st.DaysOverdue)
	assert.Equal(t, 49000, st.KmOverdue)

	st = Classify(today, 50000, timeRec(), NextDue{Date: &past, Kilometers: &km})
	assert.Equal(t, 0, st.KmOverdue)
	assert.Positive(t, st.DaysOverdue)
}

func TestClassify_EndToEndDistance(t *testing.T) {
	st := Classify(date(2024, 6, 1), 52000, kmRec(), dueAt(50000))

	assert.Equal(t, 2000, st.KmOverdue)
	assert.Equal(t, types.TierUrgent, st.Tier)
	assert.True(t, ShouldNotifyToday(st))
	assert.Equal(t, types.SeverityKey{Axis: types.AxisDistance, Magnitude: 2}, SeverityKeyFor(st))
}
