package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"fleetcare/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// subjectPrefixes maps tiers to their subject line prefix.
var subjectPrefixes = map[types.Tier]string{
	types.TierWarning:  "Reminder",
	types.TierUrgent:   "Urgent",
	types.TierCritical: "Critical",
}

var accentColors = map[types.Tier]string{
	types.TierWarning:  "#d97706",
	types.TierUrgent:   "#ea580c",
	types.TierCritical: "#dc2626",
}

// templateData is the struct passed into the overdue template.
type templateData struct {
	Subject         string
	Headline        string
	AccentColor     string
	Greeting        string
	MaintenanceName string
	VehicleName     string
	Description     string
	Instructions    string
	Priority        string
	DaysOverdue     int
	KmOverdue       int
	DueDate         string
	DueKm           int
	CurrentMileage  int
	DashboardURL    string
}

// Renderer builds reminder emails from the embedded html/template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/overdue.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to parse overdue.html: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Subject returns "<tier prefix>: <maintenance> overdue for <vehicle>".
func Subject(n types.OverdueNotice) string {
	prefix := subjectPrefixes[n.Tier]
	if prefix == "" {
		prefix = "Reminder"
	}
	return fmt.Sprintf("%s: %s overdue for %s", prefix, n.MaintenanceName, n.VehicleName)
}

// Render returns the subject and HTML body for n.
func (r *Renderer) Render(n types.OverdueNotice) (string, string, error) {
	if n.MaintenanceName == "" {
		return "", "", fmt.Errorf("renderer: notice for schedule %s has no maintenance name", n.ScheduleID)
	}

	data := buildTemplateData(n)
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("renderer: failed to render schedule %s: %w", n.ScheduleID, err)
	}
	return data.Subject, buf.String(), nil
}

func buildTemplateData(n types.OverdueNotice) templateData {
	greeting := strings.TrimSpace(n.UserName)
	if greeting == "" {
		greeting = "there"
	}

	headline := "Maintenance overdue"
	switch n.Tier {
	case types.TierCritical:
		headline = "Maintenance critically overdue"
	case types.TierUrgent:
		headline = "Maintenance needs attention"
	}

	data := templateData{
		Subject:         Subject(n),
		Headline:        headline,
		AccentColor:     accentColors[n.Tier],
		Greeting:        greeting,
		MaintenanceName: n.MaintenanceName,
		VehicleName:     n.VehicleName,
		Description:     n.Description,
		Instructions:    n.Instructions,
		Priority:        string(n.Priority),
		DaysOverdue:     n.DaysOverdue,
		KmOverdue:       n.KmOverdue,
		CurrentMileage:  n.CurrentMileage,
		DashboardURL:    n.DashboardURL,
	}
	if n.NextDueDate != nil {
		data.DueDate = n.NextDueDate.UTC().Format(time.DateOnly)
	}
	if n.NextDueKilometers != nil {
		data.DueKm = *n.NextDueKilometers
	}
	if data.AccentColor == "" {
		data.AccentColor = accentColors[types.TierWarning]
	}
	return data
}
