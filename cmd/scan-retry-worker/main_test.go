package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetcare/internal/scheduler"
	"fleetcare/internal/types"
)

var testDay = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type mockUserScanner struct {
	mock.Mock
}

func (m *mockUserScanner) RunForUser(ctx context.Context, userID string, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error) {
	args := m.Called(userID, now)
	s, _ := args.Get(0).(*types.ScanSummary)
	return s, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sqsRecord(t *testing.T, id string, msg types.ScanRetryMessage, receiveCount string) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	rec := events.SQSMessage{MessageId: id, Body: string(body)}
	if receiveCount != "" {
		rec.Attributes = map[string]string{"ApproximateReceiveCount": receiveCount}
	}
	return rec
}

func TestHandle(t *testing.T) {
	boom := errors.New("database timeout")
	gone := types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)

	tests := []struct {
		name         string
		msg          types.ScanRetryMessage
		receiveCount string
		scanErr      error
		wantFailure  bool
	}{
		{"success", types.ScanRetryMessage{UserID: "u1", Day: testDay, Attempt: 1}, "1", nil, false},
		{"failure is redelivered", types.ScanRetryMessage{UserID: "u1", Day: testDay, Attempt: 1}, "1", boom, true},
		{"exhausted by receive count", types.ScanRetryMessage{UserID: "u1", Day: testDay, Attempt: 1}, "3", boom, false},
		{"exhausted by attempt", types.ScanRetryMessage{UserID: "u1", Day: testDay, Attempt: 3}, "", boom, false},
		{"user gone is dropped", types.ScanRetryMessage{UserID: "u1", Day: testDay, Attempt: 1}, "1", gone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(mockUserScanner)
			s.On("RunForUser", "u1", testDay).Return(&types.ScanSummary{Errors: []string{}}, tt.scanErr)

			resp, err := NewHandler(s, discardLogger()).Handle(context.Background(), events.SQSEvent{
				Records: []events.SQSMessage{sqsRecord(t, "m-1", tt.msg, tt.receiveCount)},
			})
			require.NoError(t, err)
			if tt.wantFailure {
				require.Len(t, resp.BatchItemFailures, 1)
				assert.Equal(t, "m-1", resp.BatchItemFailures[0].ItemIdentifier)
			} else {
				assert.Empty(t, resp.BatchItemFailures)
			}
			s.AssertExpectations(t)
		})
	}
}

func TestHandle_DropsBadMessagesWithoutScanning(t *testing.T) {
	s := new(mockUserScanner)
	resp, err := NewHandler(s, discardLogger()).Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "bad-json", Body: "{"},
			sqsRecord(t, "no-user", types.ScanRetryMessage{Day: testDay}, ""),
			sqsRecord(t, "no-day", types.ScanRetryMessage{UserID: "u1"}, ""),
		},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	s.AssertNotCalled(t, "RunForUser", mock.Anything, mock.Anything)
}

func TestHandle_MixedBatch(t *testing.T) {
	s := new(mockUserScanner)
	s.On("RunForUser", "ok", testDay).Return(&types.ScanSummary{Errors: []string{}}, nil)
	s.On("RunForUser", "bad", testDay).Return(&types.ScanSummary{Errors: []string{}}, errors.New("smtp down"))

	resp, err := NewHandler(s, discardLogger()).Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			sqsRecord(t, "m-ok", types.ScanRetryMessage{UserID: "ok", Day: testDay, Attempt: 1}, "1"),
			sqsRecord(t, "m-bad", types.ScanRetryMessage{UserID: "bad", Day: testDay, Attempt: 1}, "1"),
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m-bad", resp.BatchItemFailures[0].ItemIdentifier)
}

func TestAttemptOf(t *testing.T) {
	assert.Equal(t, 1, attemptOf(types.ScanRetryMessage{}, events.SQSMessage{}))
	assert.Equal(t, 2, attemptOf(types.ScanRetryMessage{Attempt: 2}, events.SQSMessage{}))
	assert.Equal(t, 4, attemptOf(types.ScanRetryMessage{Attempt: 2},
		events.SQSMessage{Attributes: map[string]string{"ApproximateReceiveCount": "4"}}))
	assert.Equal(t, 2, attemptOf(types.ScanRetryMessage{Attempt: 2},
		events.SQSMessage{Attributes: map[string]string{"ApproximateReceiveCount": "x"}}))
}

func TestRunLocal_RequiresInput(t *testing.T) {
	h := NewHandler(new(mockUserScanner), discardLogger())
	assert.Error(t, runLocal(context.Background(), h, strings.NewReader(""), discardLogger()))
	assert.Error(t, runLocal(context.Background(), h, strings.NewReader("not json"), discardLogger()))
}
