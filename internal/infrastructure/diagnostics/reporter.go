// Package diagnostics forwards health-check diagnostic records to slog.
package diagnostics

import (
	"context"
	"log/slog"
	"sort"

	"github.com/lllypuk/healthd/internal/health"
	"github.com/lllypuk/healthd/internal/middleware"
)

// Component is attached to every record emitted by LogReporter.
const Component = "healthcheck"

// LogReporter writes diagnostic records to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a reporter writing to logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{
		logger: logger.With(slog.String("component", Component)),
	}
}

// Record implements health.Reporter. Fields are emitted in key order,
// followed by the request ID when the probe runs inside an HTTP request.
func (r *LogReporter) Record(ctx context.Context, severity health.Severity, message string, fields map[string]any) {
	out := attrs(fields)
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		out = append(out, slog.String("request_id", requestID))
	}
	r.logger.LogAttrs(ctx, levelFor(severity), message, out...)
}

func levelFor(severity health.Severity) slog.Level {
	switch severity {
	case health.SeverityError:
		return slog.LevelError
	case health.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func attrs(fields map[string]any) []slog.Attr {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}

var _ health.Reporter = (*LogReporter)(nil)
