package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ProbeOptions holds the dependencies for creating a Probe.
type ProbeOptions struct {
	Monitor  *Monitor
	URL      string
	Interval time.Duration
	// SlowThreshold marks the link as slow when a probe round trip exceeds it.
	SlowThreshold time.Duration
	Client        *http.Client
	Logger        *slog.Logger
}

// Probe feeds a Monitor from a periodic HTTP reachability check. It exists
// for deployments whose host platform exposes no connectivity signal; hosts
// with a native signal should call Monitor.Set directly instead.
type Probe struct {
	monitor       *Monitor
	url           string
	interval      time.Duration
	slowThreshold time.Duration
	client        *http.Client
	logger        *slog.Logger
}

// NewProbe creates a probe with the given options.
func NewProbe(opts ProbeOptions) (*Probe, error) {
	if opts.Monitor == nil {
		return nil, errors.New("monitor is required")
	}
	if opts.URL == "" {
		return nil, errors.New("probe url is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	slowThreshold := opts.SlowThreshold
	if slowThreshold <= 0 {
		slowThreshold = 2 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "connectivity_probe")
	}

	return &Probe{
		monitor:       opts.Monitor,
		url:           opts.URL,
		interval:      interval,
		slowThreshold: slowThreshold,
		client:        client,
		logger:        logger,
	}, nil
}

// Run probes immediately and then on every interval until the context is
// cancelled.
func (p *Probe) Run(ctx context.Context) error {
	p.check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Probe) check(ctx context.Context) {
	online, slow, err := p.probe(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		p.logger.Debug("probe unreachable", "url", p.url, "error", err)
	}
	p.monitor.Set(online, slow)
}

func (p *Probe) probe(ctx context.Context) (online, slow bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false, false, fmt.Errorf("create probe request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return false, false, fmt.Errorf("probe request failed: %w", err)
	}
	elapsed := time.Since(start)

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		resp.Body.Close()
		return false, false, fmt.Errorf("drain probe response: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return false, false, fmt.Errorf("close probe response: %w", err)
	}

	// Any response at all means the network path is up; server errors still
	// prove reachability.
	return true, elapsed > p.slowThreshold, nil
}
