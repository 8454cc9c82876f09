package email

import (
	"context"
	"log/slog"

	"fleetcare/internal/external"
)

// Sender adapts an external.EmailProvider to the scan's email collaborator:
// it stamps the configured sender identity and logs redacted recipients.
type Sender struct {
	provider external.EmailProvider
	from     external.SenderIdentity
	logger   *slog.Logger
}

// NewSender creates a Sender. A nil logger uses slog.Default().
func NewSender(provider external.EmailProvider, from external.SenderIdentity, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{provider: provider, from: from, logger: logger}
}

// Send delivers one rendered email. Provider errors are returned unchanged.
func (s *Sender) Send(ctx context.Context, to, subject, html string) error {
	msgID, err := s.provider.Send(ctx, external.SendInput{
		To:       to,
		From:     s.from,
		Subject:  subject,
		BodyHTML: html,
	})
	if err != nil {
		if IsBlocklistError(err) {
			s.logger.WarnContext(ctx, "recipient blocked by provider", "dest", RedactEmail(to))
		} else {
			s.logger.ErrorContext(ctx, "email delivery failed", "dest", RedactEmail(to), "error", err)
		}
		return err
	}

	s.logger.InfoContext(ctx, "email sent", "dest", RedactEmail(to), "provider_message_id", msgID)
	return nil
}
