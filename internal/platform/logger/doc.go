// Package logger provides structured logging functionality for the application.
//
// It builds a log/slog JSON logger with a configurable level, decorates
// records with the OpenTelemetry trace of the current context, and carries
// request-scoped loggers through context.Context.
package logger
