// Package logger builds configured slog loggers for the notification
// engine: JSON or text encoding, level and service name from the
// environment, static attributes per record.
package logger
