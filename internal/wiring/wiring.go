// Package wiring builds the Fleetcare object graph from a loaded Config.
//
// Every entry point (API server, scanner Lambda, retry worker, operator CLI)
// calls New once at process start. All repositories, providers and services
// are constructed eagerly so that a misconfiguration surfaces before the
// first request or scan.
package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetcare/internal/config"
	"fleetcare/internal/db"
	"fleetcare/internal/external"
	"fleetcare/internal/maintenance"
	"fleetcare/internal/notifications"
	"fleetcare/internal/notifications/email"
	"fleetcare/internal/notifications/push"
	"fleetcare/internal/queue"
	"fleetcare/internal/scheduler"
	"fleetcare/internal/types"
)

// Database is the connection surface the application needs. *pgxpool.Pool
// satisfies it.
type Database interface {
	db.DBTX
	db.TxBeginner
	Ping(ctx context.Context) error
}

// AWSClients holds the AWS service clients used by the application.
type AWSClients struct {
	SQS        queue.SQSSender
	CloudWatch notifications.CloudWatchClient
}

// App is the fully wired application.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Clock  types.Clock
	DB     Database

	Ledger   *db.LedgerRepository
	ScanRuns *db.ScanRunRepository

	Scanner *scheduler.OverdueScanJob
	Records *maintenance.RecordService

	// Retry is nil when no retry queue is configured.
	Retry *queue.RetryPublisher

	closers []func()
}

// NewLogger returns a JSON slog.Logger writing to stdout at level.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// New connects to Postgres, loads the AWS configuration and builds the App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("wiring: config must not be nil")
	}
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}

	pool, err := NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	awsCfg, err := NewAWSConfig(ctx, cfg.AWS)
	if err != nil {
		pool.Close()
		return nil, err
	}

	app, err := Build(cfg, logger, pool, AWSClients{
		SQS:        sqs.NewFromConfig(awsCfg),
		CloudWatch: cloudwatch.NewFromConfig(awsCfg),
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	app.closers = append(app.closers, pool.Close)
	return app, nil
}

// NewPool creates a pgx pool tuned from cfg and verifies connectivity.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("wiring: parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("wiring: creating database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, acquireTimeout(cfg))
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("wiring: database not reachable: %w", err)
	}
	return pool, nil
}

func acquireTimeout(cfg config.DatabaseConfig) time.Duration {
	if cfg.AcquireTimeout > 0 {
		return cfg.AcquireTimeout
	}
	return 2 * time.Second
}

// NewAWSConfig loads the default AWS configuration for cfg.Region. A
// configured EndpointURL redirects every client, for LocalStack.
func NewAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("wiring: loading AWS config: %w", err)
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}
	return awsCfg, nil
}

// Build assembles the App on an existing database and AWS clients.
func Build(cfg *config.Config, logger *slog.Logger, database Database, clients AWSClients) (*App, error) {
	if database == nil {
		return nil, fmt.Errorf("wiring: database must not be nil")
	}

	emailProvider, err := newEmailProvider(cfg, logger)
	if err != nil {
		return nil, err
	}
	pushProvider, err := external.NewWebPushClient(
		newBaseClient("webpush", cfg, logger),
		external.WebPushConfig{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:         cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
			Logger:          logger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("wiring: web push client: %w", err)
	}

	renderer, err := email.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("wiring: %w", err)
	}

	users := db.NewUserRepository(database)
	ledger := db.NewLedgerRepository(database)
	runs := db.NewScanRunRepository(database)

	deps := scheduler.Dependencies{
		Users:       users,
		Vehicles:    db.NewVehicleRepository(database),
		Schedules:   db.NewScheduleRepository(database),
		Definitions: db.NewDefinitionRepository(database),
		Ledger:      ledger,
		Email: email.NewSender(emailProvider, external.SenderIdentity{
			Address: cfg.Email.FromAddress,
			Name:    cfg.Email.FromName,
		}, logger),
		Push:      push.NewSender(pushProvider, logger),
		EmailBody: renderer,
		PushBody:  push.NewBuilder(),
		Runs:      runs,
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Clock:    types.RealClock{},
		DB:       database,
		Ledger:   ledger,
		ScanRuns: runs,
	}

	if cfg.AWS.ScanRetryQueueURL != "" && clients.SQS != nil {
		app.Retry = queue.NewRetryPublisher(clients.SQS, cfg.AWS, logger)
		deps.Retry = app.Retry
	} else {
		logger.Info("scan retry queue not configured; failed users will not be retried")
	}
	if cfg.Observability.MetricsEnabled && clients.CloudWatch != nil {
		deps.Metrics = notifications.NewCloudWatchScanMetrics(clients.CloudWatch, cfg.Observability.MetricNamespace)
	}

	app.Scanner = scheduler.NewOverdueScanJob(deps, scheduler.Config{
		Concurrency:  cfg.Scan.Concurrency,
		BatchSize:    cfg.Scan.BatchSize,
		DashboardURL: cfg.Scan.DashboardURL,
	}, logger)

	app.Records = maintenance.NewRecordService(
		NewTxManager(database),
		maintenance.NewRecalculator(logger),
		app.Clock,
		logger,
	)

	return app, nil
}

func newEmailProvider(cfg *config.Config, logger *slog.Logger) (external.EmailProvider, error) {
	switch cfg.Email.Provider {
	case "log":
		logger.Warn("EMAIL_PROVIDER=log: emails are logged, not sent")
		return external.NewLogEmailProvider(logger), nil
	case "sendgrid", "":
		return external.NewSendGridClient(newBaseClient("sendgrid", cfg, logger), external.SendGridClientConfig{
			APIKey:  cfg.Email.SendGridAPIKey,
			BaseURL: cfg.Email.SendGridURL,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("wiring: unknown email provider %q", cfg.Email.Provider)
	}
}

func newBaseClient(name string, cfg *config.Config, logger *slog.Logger) *external.BaseClient {
	version := cfg.Build.Version
	if version == "" {
		version = "dev"
	}
	return external.NewBaseClient(external.BaseClientConfig{
		Name:        name,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		RetryPolicy: external.DefaultRetryPolicy(),
		UserAgent:   "Fleetcare/" + version,
		Logger:      logger,
	})
}

// Close releases the database pool.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
