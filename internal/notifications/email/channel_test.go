package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"fleetcare/internal/external"
	"fleetcare/internal/types"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockEmailProvider implements external.EmailProvider for testing.
type mockEmailProvider struct {
	sendCalled bool
	sendInput  external.SendInput
	sendMsgID  string
	sendErr    error
}

func (m *mockEmailProvider) Send(ctx context.Context, input external.SendInput) (string, error) {
	m.sendCalled = true
	m.sendInput = input
	if m.sendErr != nil {
		return "", m.sendErr
	}
	return m.sendMsgID, nil
}

var testFrom = external.SenderIdentity{Address: "reminders@fleetcare.app", Name: "Fleetcare"}

func TestSenderSend(t *testing.T) {
	provider := &mockEmailProvider{sendMsgID: "msg-1"}
	s := NewSender(provider, testFrom, newTestLogger())

	err := s.Send(context.Background(), "dana@example.com", "Reminder: Oil change", "<p>hi</p>")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if !provider.sendCalled {
		t.Fatal("provider was not called")
	}
	in := provider.sendInput
	if in.To != "dana@example.com" || in.Subject != "Reminder: Oil change" || in.BodyHTML != "<p>hi</p>" {
		t.Errorf("unexpected send input: %+v", in)
	}
	if in.From != testFrom {
		t.Errorf("From = %+v, want %+v", in.From, testFrom)
	}
}

func TestSenderSendPropagatesErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		blocked bool
	}{
		{"blocked", types.NewAppError(types.ErrCodeEmailBlocked, "suppressed", nil), true},
		{"transport", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSender(&mockEmailProvider{sendErr: tt.err}, testFrom, newTestLogger())
			err := s.Send(context.Background(), "dana@example.com", "s", "b")
			if !errors.Is(err, tt.err) {
				t.Fatalf("Send() error = %v, want %v", err, tt.err)
			}
			if IsBlocklistError(err) != tt.blocked {
				t.Errorf("IsBlocklistError = %v, want %v", !tt.blocked, tt.blocked)
			}
		})
	}
}
