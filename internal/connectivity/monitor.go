// Package connectivity observes network reachability for the submission
// pipeline. The monitor is a passive observer: it trusts whatever signal the
// host wires in and assumes online when none is provided.
package connectivity

import (
	"log/slog"
	"sync"
)

// Event describes a reachability transition. Exactly one event is emitted per
// offline -> online or online -> offline edge.
type Event struct {
	Online   bool
	SlowLink bool
}

// MonitorOptions holds the dependencies for creating a Monitor.
type MonitorOptions struct {
	Logger *slog.Logger

	// InitialOffline starts the monitor in the offline state. The default is
	// online, matching the assume-online fallback for hosts without a signal.
	InitialOffline bool
}

// Monitor tracks the current reachability state and notifies subscribers on
// transitions. No method blocks on the network; state changes are pushed in
// via Set by a host signal or a Probe.
type Monitor struct {
	logger *slog.Logger

	mu     sync.Mutex
	online bool
	slow   bool
	subs   []func(Event)
}

// NewMonitor creates a monitor. With no signal wired the monitor reports
// online and a fast link.
func NewMonitor(opts MonitorOptions) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "connectivity")
	}
	return &Monitor{
		logger: logger,
		online: !opts.InitialOffline,
	}
}

// IsOnline reports the current reachability state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// IsSlowLink reports the current link-quality hint. Always false on platforms
// without link-quality introspection.
func (m *Monitor) IsSlowLink() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slow
}

// Subscribe registers a callback invoked once per reachability transition.
// Callbacks run synchronously on the goroutine calling Set and must not block
// for long.
func (m *Monitor) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Set updates the reachability state. Subscribers are notified only when the
// online flag actually flips; link-quality changes alone emit no event.
func (m *Monitor) Set(online, slow bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	m.slow = slow
	var subs []func(Event)
	if changed {
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("connectivity changed", "online", online, "slow_link", slow)
	ev := Event{Online: online, SlowLink: slow}
	for _, fn := range subs {
		fn(ev)
	}
}
