package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fleetcare/internal/scheduler"
	"fleetcare/internal/types"
)

var testNow = time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type mockScanner struct {
	mock.Mock
}

func (m *mockScanner) Run(ctx context.Context, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error) {
	args := m.Called(now)
	s, _ := args.Get(0).(*types.ScanSummary)
	return s, args.Error(1)
}

func (m *mockScanner) RunForUser(ctx context.Context, userID string, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error) {
	args := m.Called(userID, now)
	s, _ := args.Get(0).(*types.ScanSummary)
	return s, args.Error(1)
}

func newTestHandler(s Scanner) *Handler {
	return NewHandler(s, fixedClock{testNow}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandle_FullScanUsesClock(t *testing.T) {
	s := new(mockScanner)
	want := &types.ScanSummary{TotalUsers: 3, Errors: []string{}}
	s.On("Run", testNow).Return(want, nil)

	got, err := newTestHandler(s).Handle(context.Background(), scheduler.ScanPayload{})
	require.NoError(t, err)
	assert.Same(t, want, got)
	s.AssertExpectations(t)
}

func TestHandle_ReferenceTimeOverridesClock(t *testing.T) {
	ref := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	s := new(mockScanner)
	s.On("Run", ref).Return(&types.ScanSummary{Errors: []string{}}, nil)

	_, err := newTestHandler(s).Handle(context.Background(), scheduler.ScanPayload{ReferenceTime: &ref})
	require.NoError(t, err)
	s.AssertExpectations(t)
}

func TestHandle_SingleUser(t *testing.T) {
	s := new(mockScanner)
	summary := &types.ScanSummary{TotalUsers: 1, Errors: []string{"user u-1: boom"}}
	s.On("RunForUser", "u-1", testNow).Return(summary, errors.New("scanning user u-1: boom"))

	got, err := newTestHandler(s).Handle(context.Background(), scheduler.ScanPayload{UserID: "u-1"})
	require.NoError(t, err, "per-user failures do not fail the invocation")
	assert.Equal(t, []string{"user u-1: boom"}, got.Errors)
	s.AssertNotCalled(t, "Run", mock.Anything)
}

func TestHandle_FatalErrorFailsInvocation(t *testing.T) {
	s := new(mockScanner)
	s.On("Run", testNow).Return(&types.ScanSummary{Errors: []string{}}, errors.New("directory unavailable"))

	_, err := newTestHandler(s).Handle(context.Background(), scheduler.ScanPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory unavailable")
}

func TestRunLocal(t *testing.T) {
	s := new(mockScanner)
	s.On("Run", testNow).Return(&types.ScanSummary{TotalUsers: 2, TotalNotifications: 1, Errors: []string{}}, nil)

	var out bytes.Buffer
	require.NoError(t, runLocal(context.Background(), newTestHandler(s), strings.NewReader(""), &out))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.EqualValues(t, 2, decoded["totalUsers"])
	assert.EqualValues(t, 1, decoded["totalNotifications"])
}

func TestRunLocal_BadPayload(t *testing.T) {
	err := runLocal(context.Background(), newTestHandler(new(mockScanner)), strings.NewReader("{"), io.Discard)
	assert.Error(t, err)
}
