// Package redispub publishes notification events to a Redis channel so host
// UIs can subscribe to delivery outcomes out of process.
package redispub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldsync/fieldsync/internal/observability/notify"
)

// Sink publishes delivery events to a Redis pub/sub channel.
type Sink struct {
	client  redis.UniversalClient
	channel string
}

// NewSink builds a Redis pub/sub sink.
func NewSink(client redis.UniversalClient, channel string) (*Sink, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("redis channel is required")
	}
	return &Sink{client: client, channel: channel}, nil
}

type message struct {
	Kind       string `json:"kind"`
	RecordID   string `json:"recordId"`
	DurableID  string `json:"durableId,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorClass string `json:"errorClass,omitempty"`
	Attempts   int    `json:"attempts"`
	OccurredAt string `json:"occurredAt"`
}

// Send implements the notify.Sink interface.
func (s *Sink) Send(ctx context.Context, event notify.Event) error {
	timestamp := event.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	body, err := json.Marshal(message{
		Kind:       string(event.Kind),
		RecordID:   event.RecordID,
		DurableID:  event.DurableID,
		Error:      event.Error,
		ErrorClass: event.ErrorClass,
		Attempts:   event.Attempts,
		OccurredAt: timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode redis notification: %w", err)
	}

	if err := s.client.Publish(ctx, s.channel, body).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", s.channel, err)
	}
	return nil
}
