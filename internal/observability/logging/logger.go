package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Attribute keys whose values may carry document text or detection quotes.
// They are elided at the handler so no log path can leak PII.
var sensitiveKeys = map[string]bool{
	"quote":    true,
	"ocr_text": true,
	"payload":  true,
}

func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if sensitiveKeys[a.Key] {
				a.Value = slog.StringValue("[elided]")
			}
			return a
		},
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
