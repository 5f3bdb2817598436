package queuerunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsync/fieldsync/internal/connectivity"
)

type stubQueue struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubQueue) Trigger(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 1, s.err
}

func (s *stubQueue) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestNewRunnerRequiresQueue(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestRunnerTriggersOnTick(t *testing.T) {
	queue := &stubQueue{}
	runner, err := NewRunner(RunnerOptions{Queue: queue, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return queue.count() >= 2 },
		time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRunnerSkipsTicksWhileOffline(t *testing.T) {
	queue := &stubQueue{}
	monitor := connectivity.NewMonitor(connectivity.MonitorOptions{InitialOffline: true})
	runner, err := NewRunner(RunnerOptions{
		Queue:        queue,
		Connectivity: monitor,
		Interval:     10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, queue.count(), "offline ticks never trigger a pass")

	cancel()
	assert.NoError(t, <-done)
}

func TestRunnerKicksOnOnlineEdge(t *testing.T) {
	queue := &stubQueue{}
	monitor := connectivity.NewMonitor(connectivity.MonitorOptions{InitialOffline: true})
	runner, err := NewRunner(RunnerOptions{
		Queue:        queue,
		Connectivity: monitor,
		Interval:     time.Hour, // ticks never fire in this test
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// The subscription is registered inside Run; give it a moment.
	time.Sleep(10 * time.Millisecond)
	monitor.Set(true, false)

	require.Eventually(t, func() bool { return queue.count() == 1 },
		time.Second, 5*time.Millisecond, "online edge kicks an immediate pass")

	// Going offline and back online kicks again.
	monitor.Set(false, false)
	monitor.Set(true, false)
	require.Eventually(t, func() bool { return queue.count() == 2 },
		time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestRunnerKeepsRunningAfterQueueErrors(t *testing.T) {
	queue := &stubQueue{err: errors.New("remote down")}
	runner, err := NewRunner(RunnerOptions{Queue: queue, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool { return queue.count() >= 3 },
		time.Second, 5*time.Millisecond, "errors do not stop the loop")

	cancel()
	assert.NoError(t, <-done)
}
