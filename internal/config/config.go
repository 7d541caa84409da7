// Package config defines the process configuration for the onboarding
// platform. Configuration is loaded once at startup and immutable thereafter.
// Values come from the OS environment with an optional .env file for local
// development; any missing required value fails startup immediately.
package config

import (
	"time"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// SecretString aliases the redacting secret type so config consumers do not
// need to import types directly for it.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subsets they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"onboarding"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Database  DatabaseConfig
	Google    GoogleConfig
	Security  SecurityConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds the HTTP listener and public URL settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// PublicURL is the externally reachable base URL, used to build the
	// OAuth callback redirect. No trailing slash.
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:8080" validate:"required,url"`
}

// DatabaseConfig holds connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout  time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
}

// GoogleConfig holds the OAuth client and API endpoints for the external
// calendar/mail provider. Endpoint overrides exist for testing.
type GoogleConfig struct {
	ClientID     string       `envconfig:"GOOGLE_CLIENT_ID" validate:"required"`
	ClientSecret SecretString `envconfig:"GOOGLE_CLIENT_SECRET" validate:"required"`

	// CallTimeout bounds every outbound provider call. A timed-out call is a
	// per-item failure, never fatal to a job run.
	CallTimeout time.Duration `envconfig:"GOOGLE_CALL_TIMEOUT" default:"15s"`

	AuthBaseURL     string `envconfig:"GOOGLE_AUTH_BASE_URL" default:"https://accounts.google.com/o/oauth2/v2/auth"`
	TokenURL        string `envconfig:"GOOGLE_TOKEN_URL" default:"https://oauth2.googleapis.com/token"`
	CalendarBaseURL string `envconfig:"GOOGLE_CALENDAR_BASE_URL" default:"https://www.googleapis.com/calendar/v3"`
	GmailBaseURL    string `envconfig:"GOOGLE_GMAIL_BASE_URL" default:"https://gmail.googleapis.com/gmail/v1"`
}

// SecurityConfig holds the process-wide secret that the credential cipher
// derives its encryption key from.
type SecurityConfig struct {
	SecretKey SecretString `envconfig:"ONBOARDING_SECRET_KEY" validate:"required,min=32"`
}

// SchedulerConfig holds the recurring job trigger settings. Defaults match
// the production schedule: hourly synchronization with a 5 minute misfire
// grace, and a daily 08:00 reminder with a 30 minute grace.
type SchedulerConfig struct {
	Timezone string `envconfig:"SCHEDULER_TZ" default:"America/Sao_Paulo" validate:"required"`

	SyncInterval         time.Duration `envconfig:"SYNC_INTERVAL" default:"1h"`
	SyncMisfireGrace     time.Duration `envconfig:"SYNC_MISFIRE_GRACE" default:"5m"`
	ReminderAt           string        `envconfig:"REMINDER_AT" default:"08:00"`
	ReminderMisfireGrace time.Duration `envconfig:"REMINDER_MISFIRE_GRACE" default:"30m"`

	// Workers bounds how many job bodies may run concurrently. Distinct jobs
	// can overlap; the same job id never does (on the trigger path).
	Workers    int           `envconfig:"SCHEDULER_WORKERS" default:"4" validate:"min=1"`
	JobTimeout time.Duration `envconfig:"SCHEDULER_JOB_TIMEOUT" default:"10m"`
}
