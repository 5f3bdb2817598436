// Package service provides the business logic for the fieldsync submission
// pipeline: the submission queue, the draft controller, and the retention
// reaper.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldsync/fieldsync/config"
	"github.com/fieldsync/fieldsync/internal/domain/model"
	"github.com/fieldsync/fieldsync/internal/observability/notify"
	"github.com/fieldsync/fieldsync/internal/remote"
)

// RecordStore is the durable store surface the pipeline services need.
type RecordStore interface {
	Put(ctx context.Context, rec *model.Record) error
	Get(ctx context.Context, id string) (*model.Record, error)
	ListByStatus(ctx context.Context, status model.RecordStatus) ([]*model.Record, error)
	Delete(ctx context.Context, id string) error
}

// RemoteAPI is the remote submission endpoint surface.
type RemoteAPI interface {
	UploadAttachment(ctx context.Context, att model.Attachment) (string, error)
	CreateRecord(ctx context.Context, payload json.RawMessage, refs []remote.AttachmentRef) (string, error)
}

// DeliveryNotifier receives terminal delivery outcomes. Best-effort; the
// queue never lets notification errors touch record state.
type DeliveryNotifier interface {
	Notify(ctx context.Context, event notify.Event)
}

// SubmissionServiceOptions holds the dependencies for creating a SubmissionService.
type SubmissionServiceOptions struct {
	Store    RecordStore
	Remote   RemoteAPI
	Notifier DeliveryNotifier // optional
	Config   config.QueueConfig
	Logger   *slog.Logger

	// Now overrides the clock for backoff bookkeeping in tests.
	Now func() time.Time
}

// SubmissionService delivers queued records to the remote endpoint and owns
// the retry policy. Attempt counters are deliberately process-local: a
// record that survived a restart while queued is retried as if freshly
// queued. Retry exhaustion is a local fatigue signal, not a durable fact.
type SubmissionService struct {
	store    RecordStore
	remote   RemoteAPI
	notifier DeliveryNotifier
	logger   *slog.Logger
	now      func() time.Time

	maxAttempts     int
	retryBackoff    time.Duration
	deliveryTimeout time.Duration

	// running is the single-flight guard: at most one scan-and-deliver pass
	// executes at a time, and a trigger arriving mid-pass is dropped.
	running atomic.Bool

	mu        sync.Mutex
	attempts  map[string]int
	notBefore map[string]time.Time
}

// NewSubmissionService creates a submission queue service with the given options.
func NewSubmissionService(opts SubmissionServiceOptions) (*SubmissionService, error) {
	if opts.Store == nil {
		return nil, errors.New("record store is required")
	}
	if opts.Remote == nil {
		return nil, errors.New("remote API client is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "submission_queue")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &SubmissionService{
		store:           opts.Store,
		remote:          opts.Remote,
		notifier:        opts.Notifier,
		logger:          logger,
		now:             now,
		maxAttempts:     cfg.MaxAttempts,
		retryBackoff:    cfg.RetryBackoff,
		deliveryTimeout: cfg.DeliveryTimeout,
		attempts:        make(map[string]int),
		notBefore:       make(map[string]time.Time),
	}, nil
}

// Trigger runs one scan-and-deliver pass and returns the number of records
// for which delivery was attempted. A trigger arriving while a pass is in
// flight is dropped and returns (0, nil); the next periodic tick catches any
// unprocessed work.
func (s *SubmissionService) Trigger(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer s.running.Store(false)

	return s.processPending(ctx)
}

func (s *SubmissionService) processPending(ctx context.Context) (int, error) {
	queued, err := s.store.ListByStatus(ctx, model.StatusQueued)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, rec := range queued {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if !s.due(rec.ID) {
			continue
		}
		s.deliver(ctx, rec)
		processed++
	}
	return processed, nil
}

// deliver runs one complete delivery attempt for one record and translates
// the outcome into a status transition plus attempt-count bookkeeping. It
// never returns an error: failures inside one record's attempt must not
// interrupt processing of other records.
func (s *SubmissionService) deliver(ctx context.Context, rec *model.Record) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	durableID, err := s.attempt(attemptCtx, rec)
	if err == nil {
		s.markDelivered(ctx, rec, durableID)
		return
	}

	attempts := s.recordFailure(rec.ID)
	s.logger.WarnContext(ctx, "delivery attempt failed",
		"record_id", rec.ID,
		"attempt", attempts,
		"max_attempts", s.maxAttempts,
		"error_class", model.Classify(err),
		"error", err,
	)

	// Non-recoverable failures (quota exhaustion) are not worth retrying.
	if attempts >= s.maxAttempts || !model.IsRecoverable(err) {
		s.markFailed(ctx, rec, err, attempts)
	}
	// Below the cap the record simply stays queued; the next due pass
	// retries it.
}

// attempt uploads the record's attachments in declared order, then submits
// the payload with the collected references. The two phases are not
// transactional: a failure after some uploads leaves orphaned remote
// binaries, which is accepted and classified as a partial delivery.
func (s *SubmissionService) attempt(ctx context.Context, rec *model.Record) (string, error) {
	refs := make([]remote.AttachmentRef, 0, len(rec.Attachments))
	for _, att := range rec.Attachments {
		url, err := s.remote.UploadAttachment(ctx, att)
		if err != nil {
			if len(refs) > 0 {
				return "", &model.PartialDeliveryError{Uploaded: len(refs), Err: err}
			}
			return "", err
		}
		refs = append(refs, remote.AttachmentRef{
			URL:         url,
			FileName:    att.Name,
			FileType:    att.MimeType,
			FileSize:    att.SizeBytes,
			Annotations: att.Annotations,
		})
	}

	durableID, err := s.remote.CreateRecord(ctx, rec.Payload, refs)
	if err != nil {
		if len(refs) > 0 {
			return "", &model.PartialDeliveryError{Uploaded: len(refs), Err: err}
		}
		return "", err
	}
	return durableID, nil
}

func (s *SubmissionService) markDelivered(ctx context.Context, rec *model.Record, durableID string) {
	if err := s.setStatus(rec, model.StatusDelivered); err != nil {
		s.logger.ErrorContext(ctx, "refusing delivered transition",
			"record_id", rec.ID, "error", err)
		return
	}
	if err := s.store.Put(ctx, rec); err != nil {
		// The remote accepted the record but the local status write failed.
		// Leaving it queued means a redelivery on the next pass, which the
		// at-least-once contract allows.
		s.logger.ErrorContext(ctx, "persist delivered status failed",
			"record_id", rec.ID, "error", err)
		return
	}

	attempts := s.clearCounters(rec.ID)
	s.logger.InfoContext(ctx, "record delivered",
		"record_id", rec.ID, "durable_id", durableID)
	s.notify(ctx, notify.Event{
		Kind:       notify.KindDelivered,
		RecordID:   rec.ID,
		DurableID:  durableID,
		Attempts:   attempts,
		OccurredAt: s.now().UTC(),
	})
}

func (s *SubmissionService) markFailed(ctx context.Context, rec *model.Record, cause error, attempts int) {
	if err := s.setStatus(rec, model.StatusFailed); err != nil {
		s.logger.ErrorContext(ctx, "refusing failed transition",
			"record_id", rec.ID, "error", err)
		return
	}
	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "persist failed status failed",
			"record_id", rec.ID, "error", err)
		return
	}

	s.notify(ctx, notify.Event{
		Kind:       notify.KindFailed,
		RecordID:   rec.ID,
		Error:      cause.Error(),
		ErrorClass: model.Classify(cause),
		Attempts:   attempts,
		OccurredAt: s.now().UTC(),
	})
}

// RetryFailed is the operator-triggered retry: it transitions a failed
// record back to queued and resets its attempt counter.
func (s *SubmissionService) RetryFailed(ctx context.Context, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status != model.StatusFailed {
		return &model.StorageError{Op: "retry", Err: errors.New("record is not in failed status")}
	}

	if err := s.setStatus(rec, model.StatusQueued); err != nil {
		return &model.StorageError{Op: "retry", Err: err}
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return err
	}
	s.clearCounters(id)
	return nil
}

// setStatus applies a status change after checking it against the record
// state machine. Delivered records never leave that state.
func (s *SubmissionService) setStatus(rec *model.Record, to model.RecordStatus) error {
	if !rec.Status.CanTransition(to) {
		return fmt.Errorf("invalid status transition %s -> %s", rec.Status, to)
	}
	rec.Status = to
	rec.LastModified = s.now().UTC()
	return nil
}

// Attempts returns the process-local attempt count for a record.
func (s *SubmissionService) Attempts(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

func (s *SubmissionService) due(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.notBefore[id]
	return !ok || !s.now().Before(nb)
}

func (s *SubmissionService) recordFailure(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[id]++
	n := s.attempts[id]
	if s.retryBackoff > 0 {
		s.notBefore[id] = s.now().Add(s.retryBackoff * time.Duration(n))
	}
	return n
}

func (s *SubmissionService) clearCounters(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.attempts[id]
	delete(s.attempts, id)
	delete(s.notBefore, id)
	return n
}

func (s *SubmissionService) notify(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, event)
}
