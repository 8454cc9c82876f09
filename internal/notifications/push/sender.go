package push

import (
	"context"
	"log/slog"

	"fleetcare/internal/external"
	"fleetcare/internal/types"
)

// Sender fans a payload out to every registration through a PushProvider.
type Sender struct {
	provider external.PushProvider
	logger   *slog.Logger
}

// NewSender creates a Sender. A nil logger uses slog.Default().
func NewSender(provider external.PushProvider, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{provider: provider, logger: logger}
}

// SendMany delivers payload to each registration. Per-registration failures
// are counted, never returned; expired registrations count as failed and are
// listed in Expired. Only a cancelled context returns an error.
func (s *Sender) SendMany(ctx context.Context, regs []types.PushRegistration, payload []byte) (types.PushResult, error) {
	var res types.PushResult
	for _, reg := range regs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		outcome, err := s.provider.Push(ctx, reg, payload)
		switch {
		case err != nil:
			res.Failed++
			s.logger.WarnContext(ctx, "push delivery failed", "error", err)
		case outcome == external.PushDelivered:
			res.Successful++
		case outcome == external.PushExpired:
			res.Failed++
			res.Expired = append(res.Expired, reg.Endpoint)
		default:
			res.Failed++
		}
	}
	return res, nil
}
