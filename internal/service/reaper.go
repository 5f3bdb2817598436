package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fieldsync/fieldsync/config"
)

// ReaperStore is the store surface the retention sweep needs.
type ReaperStore interface {
	DeleteDeliveredBefore(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

// ReaperServiceOptions holds the dependencies for creating a ReaperService.
type ReaperServiceOptions struct {
	Store  ReaperStore
	Config config.ReaperConfig
	Logger *slog.Logger
}

// ReaperService garbage-collects delivered records older than the retention
// age. Not a correctness-critical path: sweep errors are logged and the next
// interval retries.
type ReaperService struct {
	store  ReaperStore
	logger *slog.Logger

	interval        time.Duration
	deliveredMaxAge time.Duration
	batchSize       int
}

// NewReaperService creates a reaper service with the given options.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Store == nil {
		return nil, errors.New("record store is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "reaper")
	}

	return &ReaperService{
		store:           opts.Store,
		logger:          logger,
		interval:        cfg.Interval,
		deliveredMaxAge: cfg.DeliveredMaxAge,
		batchSize:       cfg.BatchSize,
	}, nil
}

// RunOnce performs a single sweep, deleting in batches until none remain,
// and returns the total number of records removed.
func (s *ReaperService) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.deliveredMaxAge)

	var total int64
	for {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		n, err := s.store.DeleteDeliveredBefore(ctx, cutoff, s.batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// Run sweeps on every interval until the context is cancelled.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper",
		"interval", s.interval, "delivered_max_age", s.deliveredMaxAge)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			removed, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.InfoContext(ctx, "retention sweep removed records", "count", removed)
			}
		}
	}
}
