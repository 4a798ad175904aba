package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const redacted = "[redacted]"

// secretKeys are attribute keys whose values never reach the log.
var secretKeys = map[string]struct{}{
	"authorization":  {},
	"token":          {},
	"bearer_token":   {},
	"api_key":        {},
	"openai_api_key": {},
	"jwt_secret":     {},
	"password":       {},
}

func NewJSONLogger(service, level string) *slog.Logger {
	return NewJSONLoggerTo(os.Stdout, service, level)
}

// NewJSONLoggerTo is NewJSONLogger with an explicit sink, for processes whose
// stdout is taken by a protocol.
func NewJSONLoggerTo(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redactSecrets,
	})
	return slog.New(handler).With("service", service)
}

func redactSecrets(_ []string, attr slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, redacted)
	}
	return attr
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
