package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeUnit is the calendar unit of a time-based recurrence.
type TimeUnit string

const (
	TimeUnitDays   TimeUnit = "days"
	TimeUnitWeeks  TimeUnit = "weeks"
	TimeUnitMonths TimeUnit = "months"
	TimeUnitYears  TimeUnit = "years"
)

// Valid reports whether u is one of the supported units.
func (u TimeUnit) Valid() bool {
	switch u {
	case TimeUnitDays, TimeUnitWeeks, TimeUnitMonths, TimeUnitYears:
		return true
	}
	return false
}

// TimeInterval is the time axis of a recurrence, e.g. {6, months}.
type TimeInterval struct {
	Value int      `json:"value" validate:"required,gt=0"`
	Unit  TimeUnit `json:"unit" validate:"required,oneof=days weeks months years"`
}

// Recurrence describes how often a maintenance item recurs. Either axis may be
// absent; a recurrence with neither axis is inert and never becomes overdue.
type Recurrence struct {
	Time       *TimeInterval `json:"time,omitempty"`
	Kilometers *int          `json:"kilometers,omitempty"`
}

// HasTime reports whether the time axis is configured.
func (r Recurrence) HasTime() bool { return r.Time != nil }

// HasDistance reports whether the distance axis is configured.
func (r Recurrence) HasDistance() bool { return r.Kilometers != nil }

// IsInert reports whether neither axis is configured.
func (r Recurrence) IsInert() bool { return r.Time == nil && r.Kilometers == nil }

// Validate checks the recurrence for user-supplied (custom) definitions.
func (r Recurrence) Validate() error {
	if r.IsInert() {
		return NewAppError(ErrCodeValidationRecurrence, "recurrence requires a time interval or a kilometer interval", nil)
	}
	if r.Time != nil {
		if r.Time.Value <= 0 {
			return NewAppError(ErrCodeValidationRecurrence, "recurrence time value must be positive", nil)
		}
		if !r.Time.Unit.Valid() {
			return NewAppError(ErrCodeValidationRecurrence, fmt.Sprintf("unknown recurrence unit %q", r.Time.Unit), nil)
		}
	}
	if r.Kilometers != nil && *r.Kilometers <= 0 {
		return NewAppError(ErrCodeValidationRecurrence, "recurrence kilometers must be positive", nil)
	}
	return nil
}

// Priority is the owner-facing importance of a maintenance item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefinitionData is the content of a maintenance definition, shared or custom.
type DefinitionData struct {
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Priority     Priority   `json:"priority,omitempty"`
	Recurrence   Recurrence `json:"recurrence"`
}

// MaintenanceDefinition is a reusable template. UserID is empty for the
// shared catalogue.
type MaintenanceDefinition struct {
	ID     string `json:"id"`
	UserID string `json:"user_id,omitempty"`
	DefinitionData
	CreatedAt time.Time `json:"created_at"`
}

// DefinitionSource is where a schedule's maintenance data comes from. It is
// either a ReferencedDefinition or a CustomDefinition.
type DefinitionSource interface {
	isDefinitionSource()
}

// ReferencedDefinition points at a row in maintenance_definitions.
type ReferencedDefinition struct {
	ID string
}

// CustomDefinition carries the definition inline on the schedule.
type CustomDefinition struct {
	Data DefinitionData
}

func (ReferencedDefinition) isDefinitionSource() {}
func (CustomDefinition) isDefinitionSource()     {}

// MaintenanceSchedule binds a definition to a vehicle. The NextDue fields are
// always derived from the recurrence and the latest completion.
type MaintenanceSchedule struct {
	ID                   string           `json:"id"`
	UserID               string           `json:"user_id"`
	VehicleID            string           `json:"vehicle_id"`
	Source               DefinitionSource `json:"-"`
	NextDueDate          *time.Time       `json:"next_due_date,omitempty"`
	NextDueKilometers    *int             `json:"next_due_kilometers,omitempty"`
	LastCompletedAt      *time.Time       `json:"last_completed_at,omitempty"`
	LastCompletedMileage *int             `json:"last_completed_mileage,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ScheduleDue is the derived portion of a schedule, written only by the
// recalculator.
type ScheduleDue struct {
	NextDueDate          *time.Time
	NextDueKilometers    *int
	LastCompletedAt      *time.Time
	LastCompletedMileage *int
}

// Vehicle is read-only from the maintenance core's perspective; CurrentMileage
// is maintained elsewhere.
type Vehicle struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Name           string `json:"name,omitempty"`
	Make           string `json:"make,omitempty"`
	Model          string `json:"model,omitempty"`
	Year           int    `json:"year,omitempty"`
	CurrentMileage int    `json:"current_mileage"`
}

// DisplayName prefers the owner's nickname, then "Year Make Model".
func (v Vehicle) DisplayName() string {
	if strings.TrimSpace(v.Name) != "" {
		return v.Name
	}
	parts := make([]string, 0, 3)
	if v.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", v.Year))
	}
	if v.Make != "" {
		parts = append(parts, v.Make)
	}
	if v.Model != "" {
		parts = append(parts, v.Model)
	}
	if len(parts) == 0 {
		return "your vehicle"
	}
	return strings.Join(parts, " ")
}

// PushRegistration is a Web Push subscription.
type PushRegistration struct {
	Endpoint string `json:"endpoint"`
	P256DH   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// User is an owner as seen by the overdue scan.
type User struct {
	ID                string             `json:"id"`
	Email             string             `json:"email"`
	Name              string             `json:"name,omitempty"`
	EmailVerified     bool               `json:"email_verified"`
	EmailReminders    bool               `json:"email_reminders"`
	PushReminders     bool               `json:"push_reminders"`
	PushRegistrations []PushRegistration `json:"push_registrations,omitempty"`
}

// MaintenanceRecord is a completion event for a schedule.
type MaintenanceRecord struct {
	ID                  string    `json:"id"`
	ScheduleID          string    `json:"schedule_id"`
	VehicleID           string    `json:"vehicle_id"`
	UserID              string    `json:"user_id"`
	CompletedAt         time.Time `json:"completed_at"`
	MileageAtCompletion *int      `json:"mileage_at_completion,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	Cost                *float64  `json:"cost,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Tier is the urgency classification of an overdue schedule.
type Tier string

const (
	TierNone     Tier = "none"
	TierWarning  Tier = "warning"
	TierUrgent   Tier = "urgent"
	TierCritical Tier = "critical"
)

// Axis identifies which dimension drove an overdue state.
type Axis string

const (
	AxisTime     Axis = "time"
	AxisDistance Axis = "distance"
)

// SeverityKey discriminates ledger entries for the same schedule and day.
// Magnitude is days for AxisTime and 1000 km bands for AxisDistance.
type SeverityKey struct {
	Axis      Axis `json:"axis"`
	Magnitude int  `json:"magnitude"`
}

// LegacyCode folds the key into the single negative integer historically
// stored in the ledger. Distinct keys can share a legacy code.
func (k SeverityKey) LegacyCode() int {
	return -k.Magnitude
}

func (k SeverityKey) String() string {
	return fmt.Sprintf("%s:%d", k.Axis, k.Magnitude)
}

// Delivery records per-channel outcome for a ledger entry.
type Delivery struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

// LedgerEntry is one notification decision, unique per
// (UserID, ScheduleID, Day, Key).
type LedgerEntry struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	ScheduleID string      `json:"schedule_id"`
	VehicleID  string      `json:"vehicle_id"`
	Day        time.Time   `json:"day"`
	Key        SeverityKey `json:"severity_key"`
	Tier       Tier        `json:"tier"`
	Delivered  Delivery    `json:"delivered"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// TierBreakdown counts dispatched notifications per tier.
type TierBreakdown struct {
	Warning  int `json:"warning"`
	Urgent   int `json:"urgent"`
	Critical int `json:"critical"`
}

// Add increments the counter for t. TierNone is ignored.
func (b *TierBreakdown) Add(t Tier) {
	switch t {
	case TierWarning:
		b.Warning++
	case TierUrgent:
		b.Urgent++
	case TierCritical:
		b.Critical++
	}
}

// ScanSummary is the aggregate result returned to the scan trigger.
type ScanSummary struct {
	TotalUsers               int           `json:"totalUsers"`
	TotalOverdueMaintenances int           `json:"totalOverdueMaintenances"`
	TotalNotifications       int           `json:"totalNotifications"`
	SuccessfulEmails         int           `json:"successfulEmails"`
	FailedEmails             int           `json:"failedEmails"`
	SuccessfulPush           int           `json:"successfulPush"`
	FailedPush               int           `json:"failedPush"`
	Breakdown                TierBreakdown `json:"breakdown"`
	Errors                   []string      `json:"errors"`
}

// Merge folds other into s.
func (s *ScanSummary) Merge(other ScanSummary) {
	s.TotalUsers += other.TotalUsers
	s.TotalOverdueMaintenances += other.TotalOverdueMaintenances
	s.TotalNotifications += other.TotalNotifications
	s.SuccessfulEmails += other.SuccessfulEmails
	s.FailedEmails += other.FailedEmails
	s.SuccessfulPush += other.SuccessfulPush
	s.FailedPush += other.FailedPush
	s.Breakdown.Warning += other.Breakdown.Warning
	s.Breakdown.Urgent += other.Breakdown.Urgent
	s.Breakdown.Critical += other.Breakdown.Critical
	s.Errors = append(s.Errors, other.Errors...)
}

// MarshalJSON keeps "errors" an array even when no errors occurred.
func (s ScanSummary) MarshalJSON() ([]byte, error) {
	type alias ScanSummary
	if s.Errors == nil {
		s.Errors = []string{}
	}
	return json.Marshal(alias(s))
}

// ScanRunStatus is the lifecycle state of a scan_runs row.
type ScanRunStatus string

const (
	ScanRunRunning   ScanRunStatus = "running"
	ScanRunSucceeded ScanRunStatus = "succeeded"
	ScanRunFailed    ScanRunStatus = "failed"
)

// ScanRun is the persisted history of a scan invocation.
type ScanRun struct {
	ID         string        `json:"id"`
	Trigger    string        `json:"trigger"`
	Day        time.Time     `json:"day"`
	Status     ScanRunStatus `json:"status"`
	Summary    *ScanSummary  `json:"summary,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
