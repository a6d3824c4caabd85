// Package config loads and validates application configuration.
//
// Values come from defaults, an optional config.yaml, an optional .env file
// and environment variables prefixed with SCRY_ (nested keys joined with
// underscores, e.g. SCRY_REMINDER_TICK_INTERVAL_MINUTES).
package config
