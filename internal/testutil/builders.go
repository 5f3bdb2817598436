package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsync/fieldsync/internal/domain/model"
)

// BuildRecord creates a record in the given status with one small attachment.
func BuildRecord(t *testing.T, status model.RecordStatus) *model.Record {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.Record{
		ID:      uuid.NewString(),
		Payload: json.RawMessage(`{"kind":"inspection","x":1}`),
		Attachments: []model.Attachment{
			{
				Name:        "photo.jpg",
				MimeType:    "image/jpeg",
				SizeBytes:   4,
				Content:     []byte{0xff, 0xd8, 0xff, 0xd9},
				Annotations: json.RawMessage(`[{"type":"arrow","x":10,"y":20}]`),
			},
		},
		Status:       status,
		CreatedAt:    now,
		LastModified: now,
	}
}

// BuildRecordWithAttachment creates a queued record carrying the given
// attachment content.
func BuildRecordWithAttachment(t *testing.T, content []byte) *model.Record {
	t.Helper()

	rec := BuildRecord(t, model.StatusQueued)
	rec.Attachments = []model.Attachment{
		{
			Name:      "blob.bin",
			MimeType:  "application/octet-stream",
			SizeBytes: int64(len(content)),
			Content:   content,
		},
	}
	return rec
}
