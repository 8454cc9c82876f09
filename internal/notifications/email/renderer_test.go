package email

import (
	"strings"
	"testing"
	"time"

	"fleetcare/internal/types"
)

func testNotice(tier types.Tier) types.OverdueNotice {
	due := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	km := 50000
	return types.OverdueNotice{
		UserID:            "user-1",
		UserName:          "Dana",
		UserEmail:         "dana@example.com",
		ScheduleID:        "sched-1",
		VehicleID:         "veh-1",
		VehicleName:       "2019 Toyota Corolla",
		CurrentMileage:    52000,
		MaintenanceName:   "Oil change",
		Description:       "Engine oil & filter",
		Instructions:      "Use 0W-20 synthetic",
		Priority:          types.PriorityHigh,
		Tier:              tier,
		DaysOverdue:       12,
		KmOverdue:         2000,
		NextDueDate:       &due,
		NextDueKilometers: &km,
		DashboardURL:      "https://app.fleetcare.app/vehicles/veh-1",
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		tier types.Tier
		want string
	}{
		{types.TierWarning, "Reminder: Oil change overdue for 2019 Toyota Corolla"},
		{types.TierUrgent, "Urgent: Oil change overdue for 2019 Toyota Corolla"},
		{types.TierCritical, "Critical: Oil change overdue for 2019 Toyota Corolla"},
		{types.TierNone, "Reminder: Oil change overdue for 2019 Toyota Corolla"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			if got := Subject(testNotice(tt.tier)); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRendererRender(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	subject, html, err := r.Render(testNotice(types.TierCritical))
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Critical: Oil change overdue for 2019 Toyota Corolla" {
		t.Errorf("subject = %q", subject)
	}

	for _, want := range []string{
		"Dana",
		"Oil change",
		"2019 Toyota Corolla",
		"2024-05-20",
		"12",
		"2000",
		"https://app.fleetcare.app/vehicles/veh-1",
		"Use 0W-20 synthetic",
		"Engine oil &amp; filter",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestRendererRenderDefaultsGreeting(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	n := testNotice(types.TierWarning)
	n.UserName = "  "
	_, html, err := r.Render(n)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(html, "there") {
		t.Error("expected fallback greeting")
	}
}

func TestRendererRenderRequiresName(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	n := testNotice(types.TierUrgent)
	n.MaintenanceName = ""
	if _, _, err := r.Render(n); err == nil {
		t.Error("expected error for notice without maintenance name")
	}
}

func TestBuildTemplateDataOmitsMissingAxes(t *testing.T) {
	n := testNotice(types.TierWarning)
	n.NextDueDate = nil
	n.NextDueKilometers = nil

	data := buildTemplateData(n)
	if data.DueDate != "" || data.DueKm != 0 {
		t.Errorf("expected empty due fields, got %q / %d", data.DueDate, data.DueKm)
	}
	if data.Headline != "Maintenance overdue" {
		t.Errorf("Headline = %q", data.Headline)
	}
}
