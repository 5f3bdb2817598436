package deliverynotifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldsync/fieldsync/internal/observability/notify"
)

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (s *recordingSink) Send(_ context.Context, event notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestNotifyFansOutToAllSinks(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	svc := NewService(Options{Sinks: []SinkRegistration{
		{Name: "first", Sink: first},
		{Name: "second", Sink: second},
	}})

	event := notify.Event{
		Kind:       notify.KindDelivered,
		RecordID:   "rec-1",
		DurableID:  "srv-1",
		OccurredAt: time.Now().UTC(),
	}
	svc.Notify(context.Background(), event)

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
	assert.Equal(t, event, first.events[0])
}

func TestNotifySwallowsSinkErrors(t *testing.T) {
	failing := &recordingSink{err: errors.New("webhook 500")}
	healthy := &recordingSink{}
	svc := NewService(Options{Sinks: []SinkRegistration{
		{Name: "failing", Sink: failing},
		{Name: "healthy", Sink: healthy},
	}})

	svc.Notify(context.Background(), notify.Event{Kind: notify.KindFailed, RecordID: "rec-2"})

	assert.Equal(t, 1, healthy.count(), "one sink's failure does not block the others")
}

func TestNilSinksAreFiltered(t *testing.T) {
	svc := NewService(Options{Sinks: []SinkRegistration{
		{Name: "absent", Sink: nil},
	}})
	assert.False(t, svc.Enabled())

	// No sinks: Notify is a no-op rather than a panic.
	svc.Notify(context.Background(), notify.Event{Kind: notify.KindDelivered})

	svc = NewService(Options{Sinks: []SinkRegistration{
		{Name: "real", Sink: &recordingSink{}},
	}})
	assert.True(t, svc.Enabled())
}

func TestSinkFuncAdapter(t *testing.T) {
	var got notify.Event
	sink := notify.SinkFunc(func(_ context.Context, event notify.Event) error {
		got = event
		return nil
	})
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "fn", Sink: sink}}})

	svc.Notify(context.Background(), notify.Event{Kind: notify.KindFailed, RecordID: "rec-3"})
	assert.Equal(t, "rec-3", got.RecordID)
}
