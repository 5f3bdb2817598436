// Package deliverynotifier fans delivery outcome events out to the
// registered notification sinks.
package deliverynotifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fieldsync/fieldsync/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the delivery notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
}

// Service dispatches delivery events to all registered sinks. Sink errors are
// logged and swallowed; notification delivery never affects record state.
type Service struct {
	logger *slog.Logger
	sinks  []SinkRegistration
}

// NewService constructs a delivery notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "delivery_notifier")
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{
			Name: name,
			Sink: entry.Sink,
		})
	}

	return &Service{
		logger: logger,
		sinks:  sinks,
	}
}

// Notify fan-outs the event to all sinks and waits for them to finish.
func (s *Service) Notify(ctx context.Context, event notify.Event) {
	if len(s.sinks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.Send(ctx, event); err != nil {
				s.logger.Error("delivery notifier sink error",
					"sink", entry.Name,
					"kind", string(event.Kind),
					"record_id", event.RecordID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}
