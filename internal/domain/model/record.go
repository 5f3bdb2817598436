// Package model defines the core data types for the fieldsync submission pipeline.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordStatus represents the delivery status of a record.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type RecordStatus string

const (
	// StatusDraft indicates a record that is still being edited.
	StatusDraft RecordStatus = "draft"
	// StatusQueued indicates a record waiting for delivery to the remote endpoint.
	StatusQueued RecordStatus = "queued"
	// StatusDelivered indicates a record accepted by the remote endpoint.
	StatusDelivered RecordStatus = "delivered"
	// StatusFailed indicates a record whose delivery attempts are exhausted.
	StatusFailed RecordStatus = "failed"
)

// Valid returns true if the RecordStatus is valid.
func (s RecordStatus) Valid() bool {
	return s == StatusDraft || s == StatusQueued || s == StatusDelivered || s == StatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler for RecordStatus to allow env and flag parsing.
func (s *RecordStatus) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	rs := RecordStatus(v)
	if rs.Valid() {
		*s = rs
		return nil
	}
	return fmt.Errorf("invalid RecordStatus: %q", v)
}

// CanTransition reports whether a status change from s to the given status is
// allowed. Transitions are monotonic (draft -> queued -> delivered/failed)
// except for the operator-triggered failed -> queued retry. Writing the same
// status back is not a transition and is always allowed.
func (s RecordStatus) CanTransition(to RecordStatus) bool {
	if s == to {
		return true
	}
	switch s {
	case StatusDraft:
		return to == StatusQueued
	case StatusQueued:
		return to == StatusDelivered || to == StatusFailed
	case StatusFailed:
		return to == StatusQueued
	case StatusDelivered:
		return false
	default:
		return false
	}
}

// Attachment is a binary file attached to a record. Content holds the raw
// bytes in memory; the data layer encodes it to a text-safe form on write and
// decodes it back on read. Annotations are carried through unchanged.
type Attachment struct {
	Name        string          `json:"name"`
	MimeType    string          `json:"mimeType"`
	SizeBytes   int64           `json:"sizeBytes"`
	Content     []byte          `json:"-"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

// Record is the durable unit combining an opaque business payload, its binary
// attachments, and delivery status. Exactly one record exists per ID; store
// writes are upserts keyed by ID.
type Record struct {
	ID           string          `json:"id"`
	Payload      json.RawMessage `json:"payload"`
	Attachments  []Attachment    `json:"attachments,omitempty"`
	Status       RecordStatus    `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	LastModified time.Time       `json:"last_modified"`
}

// NewRecord creates a draft record with a client-generated ID. Attachment
// sizes are filled in from content when unset.
func NewRecord(payload json.RawMessage, attachments []Attachment) *Record {
	now := time.Now().UTC()
	r := &Record{
		ID:           uuid.NewString(),
		Payload:      payload,
		Attachments:  attachments,
		Status:       StatusDraft,
		CreatedAt:    now,
		LastModified: now,
	}
	r.fillAttachmentSizes()
	return r
}

func (r *Record) fillAttachmentSizes() {
	for i := range r.Attachments {
		if r.Attachments[i].SizeBytes == 0 {
			r.Attachments[i].SizeBytes = int64(len(r.Attachments[i].Content))
		}
	}
}

// Validate validates the record fields ahead of a store write.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("record id is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid record status: %q", r.Status)
	}
	for i := range r.Attachments {
		if strings.TrimSpace(r.Attachments[i].Name) == "" {
			return fmt.Errorf("attachment %d: name is required", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the record. Attachment content and raw JSON
// fields are copied so the caller can mutate the clone freely.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Payload = cloneRaw(r.Payload)
	if r.Attachments != nil {
		out.Attachments = make([]Attachment, len(r.Attachments))
		for i, att := range r.Attachments {
			out.Attachments[i] = att
			out.Attachments[i].Content = append([]byte(nil), att.Content...)
			out.Attachments[i].Annotations = cloneRaw(att.Annotations)
		}
	}
	return &out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// StoreUsage is a best-effort estimate of durable store consumption.
// QuotaBytes is zero on stores without a configured quota.
type StoreUsage struct {
	UsedBytes  int64 `json:"used_bytes"`
	QuotaBytes int64 `json:"quota_bytes"`
}
