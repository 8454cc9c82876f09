package external

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// LogEmailProvider implements EmailProvider by logging each message instead
// of sending it. Selected with EMAIL_PROVIDER=log for local development.
type LogEmailProvider struct {
	logger *slog.Logger
}

// NewLogEmailProvider creates a LogEmailProvider.
func NewLogEmailProvider(logger *slog.Logger) *LogEmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmailProvider{logger: logger}
}

// Send logs the message metadata in place of delivering it and returns a
// synthetic "log_" message ID. The recipient is never logged.
func (p *LogEmailProvider) Send(ctx context.Context, input SendInput) (string, error) {
	id := fmt.Sprintf("log_%s", uuid.NewString())
	p.logger.InfoContext(ctx, "email suppressed by log provider",
		"subject", input.Subject,
		"from", input.From.Address,
		"body_bytes", len(input.BodyHTML),
		"reference_id", input.ReferenceID,
		"provider_message_id", id,
	)
	return id, nil
}

var _ EmailProvider = (*LogEmailProvider)(nil)
