// Package notify defines the terminal delivery events emitted to the user
// notification channel and the sink interface for destinations consuming
// them. Delivery of notifications is best-effort and never feeds back into
// record state.
package notify

import (
	"context"
	"time"
)

// Kind identifies a terminal delivery outcome.
type Kind string

const (
	// KindDelivered marks a record accepted by the remote endpoint.
	KindDelivered Kind = "delivered"
	// KindFailed marks a record whose delivery attempts are exhausted.
	KindFailed Kind = "failed"
)

// Event captures the canonical data we emit for terminal delivery outcomes.
type Event struct {
	Kind       Kind
	RecordID   string
	DurableID  string
	Error      string
	ErrorClass string
	Attempts   int
	OccurredAt time.Time
}

// Sink describes a destination capable of consuming delivery events.
type Sink interface {
	Send(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, event Event) error

// Send implements the Sink interface.
func (f SinkFunc) Send(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}
