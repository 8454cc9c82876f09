package types

import "time"

// OverdueNotice is the input to the email and push content builders for a
// single overdue reminder.
type OverdueNotice struct {
	UserID    string
	UserName  string
	UserEmail string

	ScheduleID     string
	VehicleID      string
	VehicleName    string
	CurrentMileage int

	MaintenanceName string
	Description     string
	Instructions    string
	Priority        Priority

	Tier              Tier
	DaysOverdue       int
	KmOverdue         int
	NextDueDate       *time.Time
	NextDueKilometers *int

	DashboardURL string
}

// PushResult is the aggregate outcome of sending one payload to a user's
// push registrations. Expired lists endpoints the push service reported as
// gone; they should be removed.
type PushResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Expired    []string `json:"expired,omitempty"`
}

// ScanRetryMessage is the SQS payload asking the retry worker to rescan one
// user for the given day.
type ScanRetryMessage struct {
	UserID  string    `json:"user_id"`
	Day     time.Time `json:"day"`
	Reason  string    `json:"reason"`
	Attempt int       `json:"attempt"`
	TraceID string    `json:"trace_id"`
}
