// Package config loads the Fleetcare process configuration from the
// environment. Values resolve in priority order:
//
//	OS environment -> .env file -> AWS SSM Parameter Store
//
// Configuration is loaded once at startup and treated as immutable. A missing
// or malformed value fails the process before it serves any work.
package config

import (
	"time"

	"fleetcare/internal/types"
)

// SecretString is the redacted string used for credentials.
type SecretString = types.SecretString

// Config is the top-level configuration. Components receive only the group
// they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"fleetcare"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Email         EmailConfig
	Push          PushConfig
	Auth          AuthConfig
	Cron          CronConfig
	Scan          ScanConfig
	Observability ObservabilityConfig

	// Build is injected via ldflags, not the environment.
	Build BuildInfo
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds the Postgres connection and pool tuning.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds the region and AWS resource identifiers.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// ScanRetryQueueURL receives users whose scan failed. Empty disables
	// retry publishing.
	ScanRetryQueueURL string `envconfig:"SQS_SCAN_RETRY" validate:"omitempty,url"`

	// EndpointURL overrides AWS endpoints for LocalStack. Empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// EmailConfig holds the transactional email provider settings.
type EmailConfig struct {
	Provider       string       `envconfig:"EMAIL_PROVIDER" default:"sendgrid" validate:"oneof=sendgrid log"`
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY" validate:"required_if=Provider sendgrid"`
	SendGridURL    string       `envconfig:"SENDGRID_BASE_URL" validate:"omitempty,url"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"reminders@fleetcare.app" validate:"required,email"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Fleetcare"`
}

// PushConfig holds the Web Push VAPID credentials.
type PushConfig struct {
	VAPIDPublicKey  string        `envconfig:"VAPID_PUBLIC_KEY" validate:"required"`
	VAPIDPrivateKey SecretString  `envconfig:"VAPID_PRIVATE_KEY" validate:"required"`
	Subject         string        `envconfig:"VAPID_SUBJECT" default:"mailto:support@fleetcare.app" validate:"required"`
	TTL             time.Duration `envconfig:"PUSH_TTL" default:"24h"`
}

// AuthConfig holds the session token verification secret.
type AuthConfig struct {
	JWTSecret SecretString `envconfig:"JWT_SECRET" validate:"required,min=32"`
}

// CronConfig holds the shared secret the scheduler presents on the cron
// trigger endpoint.
type CronConfig struct {
	Secret SecretString `envconfig:"CRON_SECRET" validate:"required,min=16"`
}

// ScanConfig tunes the overdue maintenance scan.
type ScanConfig struct {
	Concurrency  int    `envconfig:"SCAN_CONCURRENCY" default:"4" validate:"min=1,max=64"`
	BatchSize    int    `envconfig:"SCAN_USER_BATCH_SIZE" default:"100" validate:"min=1,max=1000"`
	DashboardURL string `envconfig:"DASHBOARD_URL" validate:"required,url"`
}

// ObservabilityConfig holds metrics settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Fleetcare"`
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// BuildInfo holds build-time metadata.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration failures.
type ConfigErrorType string

const (
	// ErrSSMResolution means a *_SSM_PARAM pointer could not be fetched.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation means the loaded struct failed its validate tags.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing means an environment value did not parse into its field type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
