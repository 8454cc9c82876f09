// Package push builds Web Push payloads for overdue reminders and fans them
// out to a user's registrations.
package push

import (
	"encoding/json"
	"fmt"
	"strings"

	"fleetcare/internal/types"
)

// Payload is the JSON document the service worker receives.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Tag   string      `json:"tag"`
	URL   string      `json:"url,omitempty"`
	Data  PayloadData `json:"data"`
}

// PayloadData identifies the schedule the notification refers to.
type PayloadData struct {
	ScheduleID string     `json:"scheduleId"`
	VehicleID  string     `json:"vehicleId"`
	Tier       types.Tier `json:"tier"`
}

var titlePrefixes = map[types.Tier]string{
	types.TierWarning:  "Maintenance due",
	types.TierUrgent:   "Maintenance overdue",
	types.TierCritical: "Critically overdue",
}

// Builder produces push payloads.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder { return &Builder{} }

// Build encodes the payload for n.
func (b *Builder) Build(n types.OverdueNotice) ([]byte, error) {
	body, err := json.Marshal(NewPayload(n))
	if err != nil {
		return nil, fmt.Errorf("push: encoding payload: %w", err)
	}
	return body, nil
}

// NewPayload maps a notice to its push payload. The tag is per schedule so a
// newer reminder replaces an older one on the device.
func NewPayload(n types.OverdueNotice) Payload {
	prefix := titlePrefixes[n.Tier]
	if prefix == "" {
		prefix = titlePrefixes[types.TierWarning]
	}

	var parts []string
	if n.DaysOverdue > 0 {
		parts = append(parts, plural(n.DaysOverdue, "day"))
	}
	if n.KmOverdue > 0 {
		parts = append(parts, fmt.Sprintf("%d km", n.KmOverdue))
	}
	body := fmt.Sprintf("%s is overdue for %s", n.VehicleName, n.MaintenanceName)
	if len(parts) > 0 {
		body += " by " + strings.Join(parts, " and ")
	}

	return Payload{
		Title: fmt.Sprintf("%s: %s", prefix, n.MaintenanceName),
		Body:  body + ".",
		Tag:   "maintenance-" + n.ScheduleID,
		URL:   n.DashboardURL,
		Data: PayloadData{
			ScheduleID: n.ScheduleID,
			VehicleID:  n.VehicleID,
			Tier:       n.Tier,
		},
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
