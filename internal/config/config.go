package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Sprint    SprintConfig    `mapstructure:"sprint" validate:"required"`
	Reminder  ReminderConfig  `mapstructure:"reminder" validate:"required"`
	Push      PushConfig      `mapstructure:"push" validate:"required"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	SRS       SRSConfig       `mapstructure:"srs" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the store implementation. "memory" keeps everything in
	// process and is meant for local runs.
	Driver                 string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL                    string `mapstructure:"url" validate:"required_if=Driver postgres,omitempty,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
	ConnectAttempts        uint   `mapstructure:"connect_attempts" validate:"gte=1,lte=20"`
}

// AuthConfig contains all authentication settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=1,lte=44640"`
}

// SprintConfig contains the review session timings.
type SprintConfig struct {
	ResumeWindowMinutes  int `mapstructure:"resume_window_minutes" validate:"gte=1"`
	AbandonSnoozeMinutes int `mapstructure:"abandon_snooze_minutes" validate:"gte=1"`
}

// ResumeWindow returns the resume window as a duration.
func (c SprintConfig) ResumeWindow() time.Duration {
	return time.Duration(c.ResumeWindowMinutes) * time.Minute
}

// AbandonSnooze returns the abandon snooze as a duration.
func (c SprintConfig) AbandonSnooze() time.Duration {
	return time.Duration(c.AbandonSnoozeMinutes) * time.Minute
}

// ReminderConfig contains the reminder scheduler settings.
type ReminderConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	TickIntervalMinutes  int    `mapstructure:"tick_interval_minutes" validate:"gte=1"`
	DueWindowMinutes     int    `mapstructure:"due_window_minutes" validate:"gte=1"`
	RenotifyGuardMinutes int    `mapstructure:"renotify_guard_minutes" validate:"gte=0"`
	ReferenceTimezone    string `mapstructure:"reference_timezone" validate:"required,timezone"`
	DispatchConcurrency  int    `mapstructure:"dispatch_concurrency" validate:"gte=1,lte=64"`
	BatchSize            int    `mapstructure:"batch_size" validate:"gte=1,lte=100"`
}

// Location resolves the reference timezone that defines a reminder "day".
func (c ReminderConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.ReferenceTimezone)
}

// PushConfig contains the push transport settings.
type PushConfig struct {
	Endpoint       string `mapstructure:"endpoint" validate:"required,url"`
	AccessToken    string `mapstructure:"access_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=1,lte=120"`
}

// TelemetryConfig contains tracing settings. An empty endpoint disables
// export.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// SRSConfig contains memory model overrides.
type SRSConfig struct {
	RequestRetention      float64 `mapstructure:"request_retention" validate:"gt=0,lt=1"`
	MaximumIntervalDays   int     `mapstructure:"maximum_interval_days" validate:"gte=1,lte=36500"`
	LearningStepMinutes   int     `mapstructure:"learning_step_minutes" validate:"gte=1"`
	RelearningStepMinutes int     `mapstructure:"relearning_step_minutes" validate:"gte=1"`
}
