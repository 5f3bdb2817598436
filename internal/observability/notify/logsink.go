package notify

import (
	"context"
	"log/slog"
)

// LogSink writes delivery events to the structured log. It is the default
// sink when no external channel is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a log sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default().With("component", "delivery_notify")
	}
	return &LogSink{logger: logger}
}

// Send implements the Sink interface.
func (s *LogSink) Send(ctx context.Context, event Event) error {
	switch event.Kind {
	case KindDelivered:
		s.logger.InfoContext(ctx, "record delivered",
			"record_id", event.RecordID,
			"durable_id", event.DurableID,
			"attempts", event.Attempts,
		)
	case KindFailed:
		s.logger.WarnContext(ctx, "record delivery failed",
			"record_id", event.RecordID,
			"attempts", event.Attempts,
			"error", event.Error,
			"error_class", event.ErrorClass,
		)
	default:
		s.logger.InfoContext(ctx, "delivery event",
			"kind", string(event.Kind),
			"record_id", event.RecordID,
		)
	}
	return nil
}
