// Package logger configures the application's structured logging (slog with
// a JSON handler) and provides helpers for carrying a request- or job-scoped
// logger through a context.Context.
package logger
