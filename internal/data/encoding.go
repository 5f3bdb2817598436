package data

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/fieldsync/fieldsync/internal/domain/model"
)

// storedAttachment is the text-safe serialized form of an attachment.
// Content is base64-encoded because the storage layer is not required to
// preserve raw binary; the round trip must be byte-for-byte exact.
type storedAttachment struct {
	Name        string          `json:"name"`
	MimeType    string          `json:"mimeType"`
	SizeBytes   int64           `json:"sizeBytes"`
	Content     string          `json:"content"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

func encodeAttachments(attachments []model.Attachment) (string, error) {
	stored := make([]storedAttachment, len(attachments))
	for i, att := range attachments {
		stored[i] = storedAttachment{
			Name:        att.Name,
			MimeType:    att.MimeType,
			SizeBytes:   att.SizeBytes,
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			Annotations: att.Annotations,
		}
	}
	out, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("marshal attachments: %w", err)
	}
	return string(out), nil
}

func decodeAttachments(raw string) ([]model.Attachment, error) {
	var stored []storedAttachment
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal attachments: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil
	}

	attachments := make([]model.Attachment, len(stored))
	for i, s := range stored {
		content, err := base64.StdEncoding.DecodeString(s.Content)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %q content: %w", s.Name, err)
		}
		attachments[i] = model.Attachment{
			Name:        s.Name,
			MimeType:    s.MimeType,
			SizeBytes:   s.SizeBytes,
			Content:     content,
			Annotations: s.Annotations,
		}
	}
	return attachments, nil
}
