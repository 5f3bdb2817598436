package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldsync/fieldsync/config"
	"github.com/fieldsync/fieldsync/internal/domain/model"
)

// QueueTrigger kicks one submission queue pass.
type QueueTrigger interface {
	Trigger(ctx context.Context) (int, error)
}

// ConnectivitySource reports the current reachability state.
type ConnectivitySource interface {
	IsOnline() bool
}

// DraftControllerOptions holds the dependencies for creating a DraftController.
type DraftControllerOptions struct {
	Store RecordStore

	// Queue enables inline delivery on submission. Optional; without it a
	// submitted record waits for the background runner.
	Queue QueueTrigger

	// Connectivity gates inline delivery. Optional; nil assumes online.
	Connectivity ConnectivitySource

	Config config.DraftConfig
	Logger *slog.Logger
}

// DraftController bridges live editing state to the durable record store.
// Edits are autosaved after a debounce quiet period; explicit submission
// transitions the record to queued and, when online, attempts immediate
// delivery instead of waiting for the next periodic tick.
type DraftController struct {
	store        RecordStore
	queue        QueueTrigger
	connectivity ConnectivitySource
	logger       *slog.Logger
	debounce     time.Duration

	mu     sync.Mutex
	record *model.Record
	timer  *time.Timer
	dirty  bool
}

// NewDraftController creates a draft controller with the given options.
func NewDraftController(opts DraftControllerOptions) (*DraftController, error) {
	if opts.Store == nil {
		return nil, errors.New("record store is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "draft_controller")
	}

	return &DraftController{
		store:        opts.Store,
		queue:        opts.Queue,
		connectivity: opts.Connectivity,
		logger:       logger,
		debounce:     cfg.AutosaveDebounce,
	}, nil
}

// NewDraft starts editing a fresh draft record and returns a snapshot of it.
// Nothing is persisted until the first autosave or an explicit Flush.
func (c *DraftController) NewDraft(payload json.RawMessage, attachments []model.Attachment) *model.Record {
	rec := model.NewRecord(payload, attachments)

	c.mu.Lock()
	c.stopTimerLocked()
	c.record = rec
	c.dirty = false
	c.mu.Unlock()

	return rec.Clone()
}

// Rehydrate reloads a persisted record into editing state, with attachments
// decoded back to raw bytes. Returns model.ErrRecordNotFound when no record
// exists for the id.
func (c *DraftController) Rehydrate(ctx context.Context, id string) (*model.Record, error) {
	rec, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.stopTimerLocked()
	c.record = rec.Clone()
	c.dirty = false
	c.mu.Unlock()

	return rec, nil
}

// Update replaces the in-progress payload and attachment set and schedules a
// debounced autosave: the store write happens only after the quiet period
// elapses with no further edits.
func (c *DraftController) Update(payload json.RawMessage, attachments []model.Attachment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record == nil {
		return errors.New("no draft in progress")
	}
	if c.record.Status != model.StatusDraft {
		return errors.New("record is no longer editable")
	}

	c.record.Payload = payload
	c.record.Attachments = attachments
	c.record.LastModified = time.Now().UTC()
	for i := range c.record.Attachments {
		if c.record.Attachments[i].SizeBytes == 0 {
			c.record.Attachments[i].SizeBytes = int64(len(c.record.Attachments[i].Content))
		}
	}
	c.dirty = true

	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.debounce, func() {
		if err := c.Flush(context.Background()); err != nil {
			c.logger.Error("autosave failed", "error", err)
		}
	})
	return nil
}

// Flush persists the current snapshot immediately if there are unsaved
// edits. A failed write keeps the dirty flag so the next edit or Flush
// retries it.
func (c *DraftController) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.dirty || c.record == nil {
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	snapshot := c.record.Clone()
	c.dirty = false
	c.mu.Unlock()

	if err := c.store.Put(ctx, snapshot); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return err
	}
	return nil
}

// Submit transitions the current draft to queued and persists it. When the
// environment reports online it triggers an inline queue pass; any failure
// there leaves the record queued for the background runner, so submission
// itself only fails on a storage error.
func (c *DraftController) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.record == nil {
		c.mu.Unlock()
		return errors.New("no draft in progress")
	}
	if c.record.Status != model.StatusDraft {
		// Delivered and queued records are frozen; failed records re-enter
		// the queue through the operator retry, which also resets the
		// attempt counter.
		status := c.record.Status
		c.mu.Unlock()
		return fmt.Errorf("record is %s, only a draft can be submitted", status)
	}
	c.stopTimerLocked()
	c.record.Status = model.StatusQueued
	c.record.LastModified = time.Now().UTC()
	snapshot := c.record.Clone()
	c.record = nil
	c.dirty = false
	c.mu.Unlock()

	if err := c.store.Put(ctx, snapshot); err != nil {
		// Restore the editing session so a storage failure does not lose
		// the draft.
		c.mu.Lock()
		snapshot.Status = model.StatusDraft
		c.record = snapshot
		c.dirty = true
		c.mu.Unlock()
		return err
	}

	if c.queue != nil && c.isOnline() {
		if _, err := c.queue.Trigger(ctx); err != nil {
			c.logger.Warn("inline delivery failed, record stays queued",
				"record_id", snapshot.ID, "error", err)
		}
	}
	return nil
}

// Record returns a snapshot of the in-progress draft, or nil when no editing
// session is active.
func (c *DraftController) Record() *model.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.Clone()
}

// Close flushes any pending autosave. The controller can be reused after
// Close; it only exists so hosts can drain state on shutdown.
func (c *DraftController) Close(ctx context.Context) error {
	return c.Flush(ctx)
}

func (c *DraftController) isOnline() bool {
	if c.connectivity == nil {
		return true
	}
	return c.connectivity.IsOnline()
}

func (c *DraftController) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
