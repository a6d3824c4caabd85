package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCRY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 30)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 30)
	v.SetDefault("database.connect_attempts", 5)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("sprint.resume_window_minutes", 30)
	v.SetDefault("sprint.abandon_snooze_minutes", 120)

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.tick_interval_minutes", 15)
	v.SetDefault("reminder.due_window_minutes", 7)
	v.SetDefault("reminder.renotify_guard_minutes", 30)
	v.SetDefault("reminder.reference_timezone", "UTC")
	v.SetDefault("reminder.dispatch_concurrency", 4)
	v.SetDefault("reminder.batch_size", 100)

	v.SetDefault("push.endpoint", "https://exp.host")
	v.SetDefault("push.access_token", "")
	v.SetDefault("push.timeout_seconds", 10)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "scry-sprint")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("srs.request_retention", 0.9)
	v.SetDefault("srs.maximum_interval_days", 365)
	v.SetDefault("srs.learning_step_minutes", 10)
	v.SetDefault("srs.relearning_step_minutes", 10)
}

// Load configuration from defaults, an optional config.yaml in the working
// directory, an optional .env file and SCRY_ environment variables, in
// increasing order of precedence. The result is validated.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory for config.yaml and .env.
func LoadFrom(dir string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(strings.TrimSuffix(dir, "/") + "/.env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
