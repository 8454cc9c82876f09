package types

import "time"

// Validator is implemented by entities to self-validate.
type Validator interface {
	Validate() error
}

var _ Validator = Recurrence{}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
