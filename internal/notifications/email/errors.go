// Package email renders overdue-maintenance reminders and delivers them
// through a transactional email provider.
package email

import (
	"errors"

	"fleetcare/internal/types"
)

// ErrRecipientBlocked indicates the provider refuses to deliver to the
// recipient (suppression list, policy block). It is not retried.
var ErrRecipientBlocked = errors.New("recipient blocked by provider")

// IsBlocklistError reports whether err means the recipient is blocked, either
// through ErrRecipientBlocked or an AppError with ErrCodeEmailBlocked.
func IsBlocklistError(err error) bool {
	if errors.Is(err, ErrRecipientBlocked) {
		return true
	}
	return types.HasCode(err, types.ErrCodeEmailBlocked)
}
