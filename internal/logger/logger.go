// Package logger provides structured logging for the bot.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// NewLogger creates a new slog Logger with the specified level and format and
// installs it as the default logger. If jsonOutput is true, logs are JSON,
// otherwise text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := New(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w without touching the default logger.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Middleware creates a gin logging middleware. Every request gets a request
// id (reused from the X-Request-ID header when the gateway sends one) and is
// logged when it starts and finishes.
func Middleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		logEntry := log.With(
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
		)
		logEntry.DebugContext(c.Request.Context(), "Processing request")

		c.Next()

		status := c.Writer.Status()
		duration := time.Since(startTime)
		switch {
		case status >= 500:
			logEntry.ErrorContext(c.Request.Context(), "Finished processing request", "status", status, "duration", duration, "errors", c.Errors.String())
		case status >= 400:
			logEntry.WarnContext(c.Request.Context(), "Finished processing request", "status", status, "duration", duration)
		default:
			logEntry.InfoContext(c.Request.Context(), "Finished processing request", "status", status, "duration", duration)
		}
	}
}

// Truncate shortens s to at most maxLen bytes for log previews.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
