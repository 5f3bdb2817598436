// Package queuerunner runs the submission queue's trigger loop: a periodic
// tick while online plus an immediate kick on the offline -> online edge.
package queuerunner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fieldsync/fieldsync/internal/connectivity"
)

// Queue is the submission queue surface the runner drives.
type Queue interface {
	Trigger(ctx context.Context) (int, error)
}

// Connectivity combines the state snapshot and edge subscription the runner
// needs. *connectivity.Monitor satisfies it.
type Connectivity interface {
	IsOnline() bool
	Subscribe(fn func(connectivity.Event))
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Queue Queue

	// Connectivity gates the ticker and supplies the online edge. Optional;
	// nil assumes always online.
	Connectivity Connectivity

	Interval time.Duration
	Logger   *slog.Logger
}

// Runner drives the submission queue until its context is cancelled.
type Runner struct {
	queue        Queue
	connectivity Connectivity
	interval     time.Duration
	logger       *slog.Logger
}

// NewRunner creates a queue runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("queue is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "queue_runner")
	}

	return &Runner{
		queue:        opts.Queue,
		connectivity: opts.Connectivity,
		interval:     interval,
		logger:       logger,
	}, nil
}

// Run starts the trigger loop and runs until the context is cancelled. Ticks
// while offline are skipped; an offline -> online transition kicks a pass
// immediately.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting queue runner", "interval", r.interval)

	kick := make(chan struct{}, 1)
	if r.connectivity != nil {
		r.connectivity.Subscribe(func(ev connectivity.Event) {
			if !ev.Online {
				return
			}
			select {
			case kick <- struct{}{}:
			default:
			}
		})
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "queue runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-kick:
			r.trigger(ctx, "online_edge")

		case <-ticker.C:
			if r.connectivity != nil && !r.connectivity.IsOnline() {
				continue
			}
			r.trigger(ctx, "tick")
		}
	}
}

func (r *Runner) trigger(ctx context.Context, reason string) {
	processed, err := r.queue.Trigger(ctx)
	if err != nil {
		// Keep running despite errors; the next trigger retries.
		r.logger.ErrorContext(ctx, "queue pass failed", "reason", reason, "error", err)
		return
	}
	if processed > 0 {
		r.logger.InfoContext(ctx, "queue pass finished",
			"reason", reason, "processed", processed)
	}
}
