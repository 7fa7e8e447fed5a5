// Package config defines the global configuration structure for the
// mailcourier service. Configuration is loaded once at process start and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup (fail fast).
package config

import "time"

// Config is the top-level configuration struct for the service. It is
// populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"mailcourier"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Email    EmailConfig
	Delivery DeliveryConfig
	Resweep  ResweepConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings for the read API.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// OrderEventsQueue is the SQS queue URL carrying order lifecycle events.
	OrderEventsQueue string `envconfig:"SQS_ORDER_EVENTS" validate:"required,url"`

	// LocalStack Support (empty in prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// EmailConfig holds the mail transport settings. Enabled=false turns every
// send into a silent success; Mock=true routes sends to a log sink. Both are
// honored before any network call is attempted.
type EmailConfig struct {
	FromAddress string `envconfig:"EMAIL_FROM_ADDRESS" default:"noreply@mailcourier.io"`
	FromName    string `envconfig:"EMAIL_FROM_NAME" default:"Customer Service"`
	Enabled     bool   `envconfig:"EMAIL_ENABLED" default:"true"`
	Mock        bool   `envconfig:"EMAIL_MOCK" default:"false"`
}

// DeliveryConfig tunes the asynchronous delivery executor.
type DeliveryConfig struct {
	// MaxAttempts bounds transport retries within one logical delivery attempt.
	MaxAttempts int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3" validate:"min=1"`
	// Backoff is the fixed delay between bounded retry attempts.
	Backoff time.Duration `envconfig:"RETRY_BACKOFF" default:"2s"`
	// SendTimeout caps a single transport invocation.
	SendTimeout time.Duration `envconfig:"SEND_TIMEOUT" default:"10s"`
	// PoolSize bounds the number of concurrent delivery workers.
	PoolSize int `envconfig:"WORKER_POOL_SIZE" default:"5" validate:"min=1"`
}

// ResweepConfig tunes the periodic re-attempt of stuck FAILED records.
type ResweepConfig struct {
	// Interval is the resweep scheduler period.
	Interval time.Duration `envconfig:"RESWEEP_INTERVAL" default:"5m"`
	// CutoffAge is the minimum age of a FAILED record before it is reswept.
	CutoffAge time.Duration `envconfig:"RESWEEP_CUTOFF_AGE" default:"1h"`
	// BatchLimit caps the number of records selected per sweep.
	BatchLimit int `envconfig:"RESWEEP_BATCH_LIMIT" default:"100" validate:"min=1"`
}

// MetricsConfig holds CloudWatch telemetry settings.
type MetricsConfig struct {
	Namespace string `envconfig:"METRICS_NAMESPACE" default:"MailCourier"`
	Enabled   bool   `envconfig:"METRICS_ENABLED" default:"true"`
}
