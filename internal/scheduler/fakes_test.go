package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"fleetcare/internal/types"
)

var errStoreDown = errors.New("store unavailable")

type fakeUsers struct {
	mu      sync.Mutex
	users   []types.User
	listErr error
	removed map[string][]string
}

func (f *fakeUsers) ListEligible(_ context.Context, afterID string, limit int) ([]types.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	sorted := append([]types.User(nil), f.users...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	var page []types.User
	for _, u := range sorted {
		if u.ID > afterID {
			page = append(page, u)
		}
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (f *fakeUsers) GetEligible(_ context.Context, userID string) (*types.User, error) {
	for _, u := range f.users {
		if u.ID == userID {
			u := u
			return &u, nil
		}
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
}

func (f *fakeUsers) RemovePushRegistrations(_ context.Context, userID string, endpoints []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removed == nil {
		f.removed = map[string][]string{}
	}
	f.removed[userID] = append(f.removed[userID], endpoints...)
	return int64(len(endpoints)), nil
}

type fakeVehicles struct {
	byUser  map[string][]types.Vehicle
	failFor map[string]bool
}

func (f *fakeVehicles) ListByUser(_ context.Context, userID string) ([]types.Vehicle, error) {
	if f.failFor[userID] {
		return nil, errStoreDown
	}
	return f.byUser[userID], nil
}

type fakeSchedules struct {
	byVehicle map[string][]types.MaintenanceSchedule
}

func (f *fakeSchedules) ListOverdue(_ context.Context, vehicleID string, _ time.Time, _ int) ([]types.MaintenanceSchedule, error) {
	return f.byVehicle[vehicleID], nil
}

type fakeDefinitions struct {
	defs map[string]types.MaintenanceDefinition
}

func (f *fakeDefinitions) GetDefinition(_ context.Context, id string) (*types.MaintenanceDefinition, error) {
	d, ok := f.defs[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundDef, "definition not found", nil)
	}
	return &d, nil
}

// memLedger enforces key uniqueness the way the database constraint does.
type memLedger struct {
	mu       sync.Mutex
	entries  map[string]*types.LedgerEntry
	byID     map[string]*types.LedgerEntry
	reserves int
}

func newMemLedger() *memLedger {
	return &memLedger{entries: map[string]*types.LedgerEntry{}, byID: map[string]*types.LedgerEntry{}}
}

func ledgerKey(userID, scheduleID string, day time.Time, key types.SeverityKey) string {
	return userID + "|" + scheduleID + "|" + day.Format(time.DateOnly) + "|" + key.String()
}

func (l *memLedger) Reserve(_ context.Context, e *types.LedgerEntry) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserves++
	k := ledgerKey(e.UserID, e.ScheduleID, e.Day, e.Key)
	if _, ok := l.entries[k]; ok {
		return false, nil
	}
	cp := *e
	l.entries[k] = &cp
	l.byID[e.ID] = &cp
	return true, nil
}

func (l *memLedger) Exists(_ context.Context, userID, scheduleID string, day time.Time, key types.SeverityKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[ledgerKey(userID, scheduleID, day, key)]
	return ok, nil
}

func (l *memLedger) RecordOutcome(_ context.Context, id string, d types.Delivery, errText string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byID[id]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundLedger, "ledger entry not found", nil)
	}
	e.Delivered = d
	e.Error = errText
	return nil
}

func (l *memLedger) all() []types.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.LedgerEntry, 0, len(l.byID))
	for _, e := range l.byID {
		out = append(out, *e)
	}
	return out
}

type sentEmail struct {
	To, Subject, HTML string
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmail) Send(_ context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to, subject, html})
	return nil
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePush struct {
	mu     sync.Mutex
	calls  int
	result types.PushResult
	err    error
}

func (f *fakePush) SendMany(_ context.Context, regs []types.PushRegistration, _ []byte) (types.PushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return types.PushResult{}, f.err
	}
	if f.result.Successful == 0 && f.result.Failed == 0 && len(f.result.Expired) == 0 {
		return types.PushResult{Successful: len(regs)}, nil
	}
	return f.result, nil
}

type stubRenderer struct{}

func (stubRenderer) Render(n types.OverdueNotice) (string, string, error) {
	return string(n.Tier) + ": " + n.MaintenanceName + " overdue for " + n.VehicleName, "<p>" + n.MaintenanceName + "</p>", nil
}

type stubPushBuilder struct{}

func (stubPushBuilder) Build(n types.OverdueNotice) ([]byte, error) {
	return []byte(`{"title":"` + n.MaintenanceName + `"}`), nil
}

type fakeRetry struct {
	mu   sync.Mutex
	msgs []types.ScanRetryMessage
}

func (f *fakeRetry) PublishUserRetry(_ context.Context, msg types.ScanRetryMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeRuns struct {
	mu       sync.Mutex
	started  []string
	finished []types.ScanRunStatus
	lastErr  error
}

func (f *fakeRuns) Start(_ context.Context, trigger string, _ time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, trigger)
	return "run-1", nil
}

func (f *fakeRuns) Finish(_ context.Context, _ string, status types.ScanRunStatus, _ *types.ScanSummary, runErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, status)
	f.lastErr = runErr
	return nil
}

type fakeMetrics struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeMetrics) EmitScan(context.Context, string, types.ScanSummary, time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}
