package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetcare/internal/scheduler"
	"fleetcare/internal/types"
)

var testNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type fakeScanner struct {
	calledUser string
	calledAt   time.Time
	optCount   int
	summary    *types.ScanSummary
	err        error
}

func (f *fakeScanner) Run(_ context.Context, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error) {
	f.calledAt, f.optCount = now, len(opts)
	return f.summary, f.err
}

func (f *fakeScanner) RunForUser(_ context.Context, userID string, now time.Time, opts ...scheduler.RunOption) (*types.ScanSummary, error) {
	f.calledUser, f.calledAt, f.optCount = userID, now, len(opts)
	return f.summary, f.err
}

type fakeLedger struct {
	entries []types.LedgerEntry
	purged  time.Time
}

func (f *fakeLedger) ListForDay(context.Context, string, time.Time) ([]types.LedgerEntry, error) {
	return f.entries, nil
}

func (f *fakeLedger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.purged = cutoff
	return 7, nil
}

type fakeRuns struct{ run *types.ScanRun }

func (f fakeRuns) Latest(context.Context) (*types.ScanRun, error) { return f.run, nil }

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{"defaults", nil, options{mode: modeScan, day: testNow}, false},
		{"date and user", []string{"--date=2024-05-20", "--user=u1", "--dry-run"},
			options{mode: modeScan, day: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), userID: "u1", dryRun: true}, false},
		{"rfc3339 date", []string{"--date=2024-05-20T08:00:00Z"},
			options{mode: modeScan, day: time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)}, false},
		{"ledger", []string{"--ledger", "--user=u1"}, options{mode: modeLedger, day: testNow, userID: "u1"}, false},
		{"purge", []string{"--purge-before=2024-01-01"},
			options{mode: modePurge, day: testNow, cutoff: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, false},
		{"last run", []string{"--last-run"}, options{mode: modeLastRun, day: testNow}, false},
		{"ledger needs user", []string{"--ledger"}, options{}, true},
		{"bad date", []string{"--date=yesterday"}, options{}, true},
		{"exclusive modes", []string{"--last-run", "--purge-before=2024-01-01"}, options{}, true},
		{"unknown flag", []string{"--force"}, options{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, testNow)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecute_Scan(t *testing.T) {
	s := &fakeScanner{summary: &types.ScanSummary{TotalUsers: 4, Errors: []string{}}}
	var out bytes.Buffer
	r := &runner{scanner: s, out: &out}

	require.NoError(t, r.execute(context.Background(), options{day: testNow, dryRun: true}))
	assert.Equal(t, testNow, s.calledAt)
	assert.Equal(t, 2, s.optCount)
	assert.Empty(t, s.calledUser)

	var decoded types.ScanSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 4, decoded.TotalUsers)
}

func TestExecute_SingleUserPrintsSummaryAndReturnsError(t *testing.T) {
	s := &fakeScanner{
		summary: &types.ScanSummary{TotalUsers: 1, Errors: []string{"user u1: boom"}},
		err:     errors.New("scanning user u1: boom"),
	}
	var out bytes.Buffer
	r := &runner{scanner: s, out: &out}

	err := r.execute(context.Background(), options{day: testNow, userID: "u1"})
	assert.Error(t, err)
	assert.Equal(t, "u1", s.calledUser)
	assert.Contains(t, out.String(), "user u1: boom")
}

func TestExecute_LedgerPurgeAndLastRun(t *testing.T) {
	ledger := &fakeLedger{entries: []types.LedgerEntry{{
		ID:     "l-1",
		UserID: "u1",
		Key:    types.SeverityKey{Axis: types.AxisTime, Magnitude: 12},
	}}}
	runs := fakeRuns{run: &types.ScanRun{ID: "run-1"}}

	var out bytes.Buffer
	r := &runner{ledger: ledger, runs: runs, out: &out}

	require.NoError(t, r.execute(context.Background(), options{mode: modeLedger, userID: "u1", day: testNow}))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "l-1", rows[0]["id"])
	assert.Equal(t, "time:12", rows[0]["severity"])
	assert.Equal(t, float64(-12), rows[0]["legacy_severity_code"])

	out.Reset()
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.execute(context.Background(), options{mode: modePurge, cutoff: cutoff}))
	assert.Equal(t, cutoff, ledger.purged)
	assert.Contains(t, out.String(), `"purged": 7`)

	out.Reset()
	require.NoError(t, r.execute(context.Background(), options{mode: modeLastRun}))
	assert.Contains(t, out.String(), "run-1")
}
