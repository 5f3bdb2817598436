// Package remote implements the client for the remote ingestion endpoint:
// one operation to upload a binary attachment and one to create a record from
// a payload plus the collected attachment references.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fieldsync/fieldsync/internal/domain/model"
)

// AttachmentRef is the server-side reference for an uploaded attachment,
// combined with its metadata for the record-creation call.
type AttachmentRef struct {
	URL         string          `json:"url"`
	FileName    string          `json:"fileName"`
	FileType    string          `json:"fileType"`
	FileSize    int64           `json:"fileSize"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

// Config captures the connection settings for the ingestion endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Client  *http.Client
}

// Client talks to the remote submission API. Any non-2xx response is a
// delivery failure; all failures are reported as model.NetworkError so the
// submission queue can drive its retry counter off them.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a remote submission client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote base url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: baseURL, client: hc}, nil
}

// UploadAttachment uploads one attachment's raw bytes to the binary-intake
// operation and returns the server-assigned reference URL.
func (c *Client) UploadAttachment(ctx context.Context, att model.Attachment) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/attachments", bytes.NewReader(att.Content))
	if err != nil {
		return "", &model.NetworkError{Op: "upload attachment", Err: err}
	}
	contentType := att.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Attachment-Name", att.Name)

	var result struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &result); err != nil {
		return "", &model.NetworkError{Op: "upload attachment", Err: err}
	}
	if result.URL == "" {
		return "", &model.NetworkError{Op: "upload attachment", Err: errors.New("response missing url")}
	}
	return result.URL, nil
}

// CreateRecord submits the payload together with the collected attachment
// references as one logical record-creation call and returns the durable id
// assigned by the server.
func (c *Client) CreateRecord(ctx context.Context, payload json.RawMessage, refs []AttachmentRef) (string, error) {
	if payload == nil {
		payload = json.RawMessage("null")
	}
	if refs == nil {
		refs = []AttachmentRef{}
	}
	body, err := json.Marshal(map[string]any{
		"payload":     payload,
		"attachments": refs,
	})
	if err != nil {
		return "", &model.NetworkError{Op: "create record", Err: fmt.Errorf("encode record: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/records", bytes.NewReader(body))
	if err != nil {
		return "", &model.NetworkError{Op: "create record", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		DurableID string `json:"durableId"`
	}
	if err := c.do(req, &result); err != nil {
		return "", &model.NetworkError{Op: "create record", Err: err}
	}
	if result.DurableID == "" {
		return "", &model.NetworkError{Op: "create record", Err: errors.New("response missing durableId")}
	}
	return result.DurableID, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		resp.Body.Close()
		return fmt.Errorf("read response body: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, 512))
	// Drain the rest so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("%s: read error body: %w", resp.Status, readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%s: close response body: %w", resp.Status, closeErr)
	}
	return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet)))
}
