package telemetry

import (
	"context"
	"log/slog"

	"github.com/davidroman0O/goaction/internal/log"
)

// LogHandler writes events to a structured logger. Start events are logged
// at debug level, successful stops at info, failures at warn and exceptions
// at error.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler. A nil logger means slog.Default().
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger}
}

// HandleEvent implements Handler.
func (h *LogHandler) HandleEvent(ctx context.Context, ev Event) {
	logger := log.WithAction(h.logger, ev.Owner, ev.Action)
	attrs := []any{"event_id", ev.ID}

	switch ev.Kind {
	case KindStart:
		logger.DebugContext(ctx, "action started", attrs...)
	case KindStop:
		attrs = append(attrs, "status", ev.Status, log.DurationKey, ev.Measurements.DurationMicros())
		if ev.Status == StatusError {
			logger.WarnContext(ctx, "action failed", append(attrs, log.ReasonKey, ev.Reason)...)
			return
		}
		logger.InfoContext(ctx, "action completed", attrs...)
	case KindException:
		logger.ErrorContext(ctx, "action raised",
			append(attrs, log.DurationKey, ev.Measurements.DurationMicros(), "panic", ev.Reason)...)
	}
}
