package external

import (
	"context"

	"fleetcare/internal/types"
)

// SenderIdentity is the From header of an outbound email.
type SenderIdentity struct {
	Address string
	Name    string
}

// SendInput is a fully rendered email.
type SendInput struct {
	To       string
	From     SenderIdentity
	Subject  string
	BodyHTML string
	// ReferenceID is echoed back by the provider for correlation.
	ReferenceID string
}

// EmailProvider transmits rendered emails. Send returns the provider's
// message ID.
type EmailProvider interface {
	Send(ctx context.Context, input SendInput) (providerMsgID string, err error)
}

// PushProvider delivers an encrypted Web Push message to one subscription.
type PushProvider interface {
	Push(ctx context.Context, reg types.PushRegistration, payload []byte) (PushOutcome, error)
}

// PushOutcome classifies a single push delivery.
type PushOutcome int

const (
	PushDelivered PushOutcome = iota
	// PushExpired means the subscription is gone (404/410) and should be
	// removed.
	PushExpired
	PushRejected
)
