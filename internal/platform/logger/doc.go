// Package logger provides structured logging for the application.
//
// It builds JSON log/slog loggers from configuration and carries the
// request-scoped logger through context.Context, so handlers and services log
// with the trace ID of the request they serve.
package logger
