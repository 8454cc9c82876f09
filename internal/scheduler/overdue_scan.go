package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fleetcare/internal/maintenance"
	"fleetcare/internal/types"
)

// OverdueScanJob finds overdue maintenance and sends reminders.
//
// Users are scanned concurrently up to Config.Concurrency; each user's
// vehicles and schedules are processed sequentially. A failure while
// processing one user is recorded in the summary and does not stop the run.
// Only failures reading the user directory abort a run.
type OverdueScanJob struct {
	deps   Dependencies
	cfg    Config
	logger *slog.Logger
}

// NewOverdueScanJob creates an OverdueScanJob. A nil logger uses
// slog.Default().
func NewOverdueScanJob(deps Dependencies, cfg Config, logger *slog.Logger) *OverdueScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &OverdueScanJob{deps: deps, cfg: cfg, logger: logger}
}

type runOptions struct {
	trigger string
	dryRun  bool
}

// RunOption customizes a single run.
type RunOption func(*runOptions)

// WithTrigger labels the run in history and metrics.
func WithTrigger(trigger string) RunOption {
	return func(o *runOptions) { o.trigger = trigger }
}

// WithDryRun classifies and counts without reserving ledger entries or
// dispatching. Candidates already in today's ledger are not counted as
// notifications.
func WithDryRun(dryRun bool) RunOption {
	return func(o *runOptions) { o.dryRun = dryRun }
}

func buildOptions(opts []RunOption) runOptions {
	o := runOptions{trigger: TriggerCron}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Run scans every eligible user for the calendar day containing now.
//
// The returned summary is complete for every user reached. A non-nil error
// means the run could not proceed (for example the user directory failed);
// the summary then covers only the users processed before the failure.
func (j *OverdueScanJob) Run(ctx context.Context, now time.Time, opts ...RunOption) (*types.ScanSummary, error) {
	o := buildOptions(opts)
	today := maintenance.Today(now)
	started := time.Now()

	logger := j.logger.With("trigger", o.trigger, "day", today.Format(time.DateOnly), "dry_run", o.dryRun)
	logger.InfoContext(ctx, "overdue scan started")

	runID := j.startRun(ctx, o, today)

	var (
		mu      sync.Mutex
		summary = types.ScanSummary{Errors: []string{}}
		afterID string
	)

	for {
		users, err := j.deps.Users.ListEligible(ctx, afterID, j.cfg.BatchSize)
		if err != nil {
			runErr := fmt.Errorf("listing eligible users after %q: %w", afterID, err)
			logger.ErrorContext(ctx, "overdue scan aborted", "error", runErr)
			j.finishRun(ctx, runID, &summary, runErr)
			return &summary, runErr
		}
		if len(users) == 0 {
			break
		}

		g := new(errgroup.Group)
		g.SetLimit(j.cfg.Concurrency)
		for i := range users {
			user := users[i]
			g.Go(func() error {
				us, userErr := j.scanUser(ctx, &user, today, o)
				if userErr != nil {
					us.Errors = append(us.Errors, fmt.Sprintf("user %s: %v", user.ID, userErr))
					logger.ErrorContext(ctx, "user scan failed", "user_id", user.ID, "error", userErr)
					if !o.dryRun {
						j.publishRetry(ctx, user.ID, today, userErr)
					}
				}
				us.TotalUsers = 1

				mu.Lock()
				summary.Merge(us)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		afterID = users[len(users)-1].ID
		if len(users) < j.cfg.BatchSize {
			break
		}
	}

	elapsed := time.Since(started)
	logger.InfoContext(ctx, "overdue scan complete",
		"total_users", summary.TotalUsers,
		"total_overdue", summary.TotalOverdueMaintenances,
		"total_notifications", summary.TotalNotifications,
		"user_errors", len(summary.Errors),
		"duration_ms", elapsed.Milliseconds(),
	)

	j.emitMetrics(ctx, o.trigger, summary, elapsed)
	j.finishRun(ctx, runID, &summary, nil)
	return &summary, nil
}

// RunForUser scans a single user. It is the retry path, so a failing user is
// not re-published; the per-user error is returned to the caller instead.
func (j *OverdueScanJob) RunForUser(ctx context.Context, userID string, now time.Time, opts ...RunOption) (*types.ScanSummary, error) {
	o := buildOptions(append([]RunOption{WithTrigger(TriggerRetry)}, opts...))
	today := maintenance.Today(now)
	started := time.Now()

	user, err := j.deps.Users.GetEligible(ctx, userID)
	if err != nil {
		return &types.ScanSummary{}, fmt.Errorf("loading user %s: %w", userID, err)
	}

	summary, userErr := j.scanUser(ctx, user, today, o)
	summary.TotalUsers = 1
	if summary.Errors == nil {
		summary.Errors = []string{}
	}
	if userErr != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("user %s: %v", user.ID, userErr))
		userErr = fmt.Errorf("scanning user %s: %w", user.ID, userErr)
	}

	j.emitMetrics(ctx, o.trigger, summary, time.Since(started))
	return &summary, userErr
}

// scanUser processes one user's vehicles. The returned summary holds whatever
// was counted before an error stopped the user.
func (j *OverdueScanJob) scanUser(ctx context.Context, user *types.User, today time.Time, o runOptions) (types.ScanSummary, error) {
	var summary types.ScanSummary

	vehicles, err := j.deps.Vehicles.ListByUser(ctx, user.ID)
	if err != nil {
		return summary, fmt.Errorf("listing vehicles: %w", err)
	}

	for i := range vehicles {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		vehicle := &vehicles[i]

		schedules, err := j.deps.Schedules.ListOverdue(ctx, vehicle.ID, today, vehicle.CurrentMileage)
		if err != nil {
			return summary, fmt.Errorf("listing overdue schedules for vehicle %s: %w", vehicle.ID, err)
		}

		for k := range schedules {
			if err := j.processSchedule(ctx, user, vehicle, &schedules[k], today, o, &summary); err != nil {
				return summary, fmt.Errorf("schedule %s: %w", schedules[k].ID, err)
			}
		}
	}
	return summary, nil
}

// processSchedule classifies one candidate, applies the cadence and, when due
// today, reserves the ledger key and dispatches. Delivery failures are
// counted, never returned.
func (j *OverdueScanJob) processSchedule(
	ctx context.Context,
	user *types.User,
	vehicle *types.Vehicle,
	sched *types.MaintenanceSchedule,
	today time.Time,
	o runOptions,
	summary *types.ScanSummary,
) error {
	def, err := maintenance.ResolveDefinition(ctx, sched.Source, j.deps.Definitions)
	if err != nil {
		return err
	}

	st := maintenance.Classify(today, vehicle.CurrentMileage, def.Recurrence, maintenance.NextDue{
		Date:       sched.NextDueDate,
		Kilometers: sched.NextDueKilometers,
	})
	if !st.Overdue() {
		return nil
	}
	summary.TotalOverdueMaintenances++

	if !maintenance.ShouldNotifyToday(st) {
		return nil
	}

	key := maintenance.SeverityKeyFor(st)
	logger := j.logger.With(
		"user_id", user.ID,
		"vehicle_id", vehicle.ID,
		"schedule_id", sched.ID,
		"tier", string(st.Tier),
		"severity", key.String(),
	)

	wantEmail := user.EmailVerified && user.EmailReminders && user.Email != ""
	wantPush := user.PushReminders && len(user.PushRegistrations) > 0
	if !wantEmail && !wantPush {
		logger.DebugContext(ctx, "no reminder channel enabled")
		return nil
	}

	if o.dryRun {
		exists, err := j.deps.Ledger.Exists(ctx, user.ID, sched.ID, today, key)
		if err != nil {
			return err
		}
		if !exists {
			summary.TotalNotifications++
			summary.Breakdown.Add(st.Tier)
		}
		return nil
	}

	entry := &types.LedgerEntry{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		ScheduleID: sched.ID,
		VehicleID:  vehicle.ID,
		Day:        today,
		Key:        key,
		Tier:       st.Tier,
	}
	reserved, err := j.deps.Ledger.Reserve(ctx, entry)
	if err != nil {
		return err
	}
	if !reserved {
		logger.DebugContext(ctx, "reminder already sent today")
		return nil
	}

	summary.TotalNotifications++
	summary.Breakdown.Add(st.Tier)

	notice := types.OverdueNotice{
		UserID:            user.ID,
		UserName:          user.Name,
		UserEmail:         user.Email,
		ScheduleID:        sched.ID,
		VehicleID:         vehicle.ID,
		VehicleName:       vehicle.DisplayName(),
		CurrentMileage:    vehicle.CurrentMileage,
		MaintenanceName:   def.Name,
		Description:       def.Description,
		Instructions:      def.Instructions,
		Priority:          def.Priority,
		Tier:              st.Tier,
		DaysOverdue:       st.DaysOverdue,
		KmOverdue:         st.KmOverdue,
		NextDueDate:       sched.NextDueDate,
		NextDueKilometers: sched.NextDueKilometers,
		DashboardURL:      j.cfg.DashboardURL,
	}

	var (
		delivered types.Delivery
		failures  []string
	)
	if wantEmail {
		if err := j.sendEmail(ctx, user, notice); err != nil {
			summary.FailedEmails++
			failures = append(failures, "email: "+err.Error())
			logger.WarnContext(ctx, "reminder email failed", "error", err)
		} else {
			summary.SuccessfulEmails++
			delivered.Email = true
		}
	}
	if wantPush {
		res, err := j.sendPush(ctx, user, notice)
		summary.SuccessfulPush += res.Successful
		summary.FailedPush += res.Failed
		if err != nil {
			failures = append(failures, "push: "+err.Error())
			logger.WarnContext(ctx, "reminder push failed", "error", err)
		}
		delivered.Push = res.Successful > 0
	}

	if err := j.deps.Ledger.RecordOutcome(ctx, entry.ID, delivered, strings.Join(failures, "; ")); err != nil {
		logger.WarnContext(ctx, "failed to record reminder outcome", "ledger_id", entry.ID, "error", err)
	}

	logger.InfoContext(ctx, "reminder dispatched",
		"email_delivered", delivered.Email,
		"push_delivered", delivered.Push,
	)
	return nil
}

func (j *OverdueScanJob) sendEmail(ctx context.Context, user *types.User, n types.OverdueNotice) error {
	subject, html, err := j.deps.EmailBody.Render(n)
	if err != nil {
		return fmt.Errorf("rendering email: %w", err)
	}
	return j.deps.Email.Send(ctx, user.Email, subject, html)
}

// sendPush delivers to every registration and prunes endpoints the push
// service reported as expired. A transport error counts every registration
// as failed.
func (j *OverdueScanJob) sendPush(ctx context.Context, user *types.User, n types.OverdueNotice) (types.PushResult, error) {
	payload, err := j.deps.PushBody.Build(n)
	if err != nil {
		return types.PushResult{Failed: len(user.PushRegistrations)}, fmt.Errorf("building push payload: %w", err)
	}

	res, err := j.deps.Push.SendMany(ctx, user.PushRegistrations, payload)
	if err != nil {
		return types.PushResult{Failed: len(user.PushRegistrations)}, err
	}

	if len(res.Expired) > 0 {
		removed, rmErr := j.deps.Users.RemovePushRegistrations(ctx, user.ID, res.Expired)
		if rmErr != nil {
			j.logger.WarnContext(ctx, "failed to prune expired push registrations",
				"user_id", user.ID,
				"error", rmErr,
			)
		} else {
			j.logger.InfoContext(ctx, "pruned expired push registrations",
				"user_id", user.ID,
				"removed", removed,
			)
			user.PushRegistrations = withoutEndpoints(user.PushRegistrations, res.Expired)
		}
	}
	return res, nil
}

func withoutEndpoints(regs []types.PushRegistration, endpoints []string) []types.PushRegistration {
	gone := make(map[string]bool, len(endpoints))
	for _, e := range endpoints {
		gone[e] = true
	}
	kept := make([]types.PushRegistration, 0, len(regs))
	for _, r := range regs {
		if !gone[r.Endpoint] {
			kept = append(kept, r)
		}
	}
	return kept
}

func (j *OverdueScanJob) publishRetry(ctx context.Context, userID string, today time.Time, cause error) {
	if j.deps.Retry == nil || errors.Is(cause, context.Canceled) {
		return
	}
	msg := types.ScanRetryMessage{
		UserID:  userID,
		Day:     today,
		Reason:  cause.Error(),
		Attempt: 1,
		TraceID: uuid.NewString(),
	}
	if err := j.deps.Retry.PublishUserRetry(ctx, msg); err != nil {
		j.logger.ErrorContext(ctx, "failed to publish user retry",
			"user_id", userID,
			"error", err,
		)
	}
}

func (j *OverdueScanJob) startRun(ctx context.Context, o runOptions, today time.Time) string {
	if j.deps.Runs == nil || o.dryRun {
		return ""
	}
	id, err := j.deps.Runs.Start(ctx, o.trigger, today)
	if err != nil {
		j.logger.WarnContext(ctx, "failed to record scan start", "error", err)
		return ""
	}
	return id
}

func (j *OverdueScanJob) finishRun(ctx context.Context, id string, summary *types.ScanSummary, runErr error) {
	if j.deps.Runs == nil || id == "" {
		return
	}
	status := types.ScanRunSucceeded
	if runErr != nil {
		status = types.ScanRunFailed
	}
	if err := j.deps.Runs.Finish(ctx, id, status, summary, runErr); err != nil {
		j.logger.WarnContext(ctx, "failed to record scan finish", "run_id", id, "error", err)
	}
}

func (j *OverdueScanJob) emitMetrics(ctx context.Context, trigger string, summary types.ScanSummary, elapsed time.Duration) {
	if j.deps.Metrics == nil {
		return
	}
	if err := j.deps.Metrics.EmitScan(ctx, trigger, summary, elapsed); err != nil {
		j.logger.WarnContext(ctx, "failed to emit scan metrics", "error", err)
	}
}
