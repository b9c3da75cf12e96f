package logging

import (
	"context"
	"log/slog"
	"os"
)

// SetupJSON sets slog's default logger to use JSON output at the given level.
func SetupJSON(level slog.Level) {
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	)
	slog.SetDefault(logger)
}

// SecurityEvent logs a rejected request that looks like tampering or an
// ownership probe. Records are tagged security=true so they can be routed
// to fraud review. Callers must not pass secrets or raw signatures in args.
func SecurityEvent(ctx context.Context, msg string, args ...any) {
	args = append([]any{slog.Bool("security", true)}, args...)
	slog.WarnContext(ctx, msg, args...)
}
