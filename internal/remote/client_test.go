package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsync/fieldsync/internal/domain/model"
)

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "   "})
	require.Error(t, err)

	c, err := NewClient(Config{BaseURL: "https://remote.example/api/"})
	require.NoError(t, err)
	assert.Equal(t, "https://remote.example/api", c.baseURL, "trailing slash is trimmed")
}

func TestUploadAttachment(t *testing.T) {
	content := []byte{0x00, 0xff, 0x10, 0x7f}
	var gotBody []byte
	var gotReq *http.Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://remote.example/blobs/abc123"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	url, err := client.UploadAttachment(context.Background(), model.Attachment{
		Name:     "photo.jpg",
		MimeType: "image/jpeg",
		Content:  content,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://remote.example/blobs/abc123", url)

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodPost, gotReq.Method)
	assert.Equal(t, "/attachments", gotReq.URL.Path)
	assert.Equal(t, "image/jpeg", gotReq.Header.Get("Content-Type"))
	assert.Equal(t, "photo.jpg", gotReq.Header.Get("X-Attachment-Name"))
	assert.Equal(t, content, gotBody, "attachment bytes go over the wire untouched")
}

func TestUploadAttachmentDefaultsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"url":"https://remote.example/blobs/x"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.UploadAttachment(context.Background(), model.Attachment{Name: "raw.bin"})
	require.NoError(t, err)
}

func TestUploadAttachmentFailures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "storage backend down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client, err := NewClient(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.UploadAttachment(context.Background(), model.Attachment{Name: "a"})
		var netErr *model.NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Contains(t, netErr.Error(), "503")
		assert.Contains(t, netErr.Error(), "storage backend down")
	})

	t.Run("missing url in response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client, err := NewClient(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.UploadAttachment(context.Background(), model.Attachment{Name: "a"})
		var netErr *model.NetworkError
		require.ErrorAs(t, err, &netErr)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		srv.Close()

		client, err := NewClient(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.UploadAttachment(context.Background(), model.Attachment{Name: "a"})
		var netErr *model.NetworkError
		require.ErrorAs(t, err, &netErr)
	})
}

func TestErrorResponseBodyIsTruncatedAndConnectionStaysUsable(t *testing.T) {
	var calls atomic.Int32
	large := strings.Repeat("x", 4096) + "TAIL"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, large, http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"url":"https://remote.example/blobs/ok"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.UploadAttachment(context.Background(), model.Attachment{Name: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.NotContains(t, err.Error(), "TAIL", "error carries only a bounded snippet")

	// The oversized error body is fully consumed; the client keeps working.
	url, err := client.UploadAttachment(context.Background(), model.Attachment{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "https://remote.example/blobs/ok", url)
}

func TestCreateRecord(t *testing.T) {
	var gotBody map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/records", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"durableId":"srv-7781"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	refs := []AttachmentRef{{
		URL:         "https://remote.example/blobs/abc123",
		FileName:    "photo.jpg",
		FileType:    "image/jpeg",
		FileSize:    4,
		Annotations: json.RawMessage(`[{"type":"arrow"}]`),
	}}
	durableID, err := client.CreateRecord(context.Background(),
		json.RawMessage(`{"kind":"inspection"}`), refs)
	require.NoError(t, err)
	assert.Equal(t, "srv-7781", durableID)

	assert.JSONEq(t, `{"kind":"inspection"}`, string(gotBody["payload"]))
	assert.JSONEq(t,
		`[{"url":"https://remote.example/blobs/abc123","fileName":"photo.jpg","fileType":"image/jpeg","fileSize":4,"annotations":[{"type":"arrow"}]}]`,
		string(gotBody["attachments"]))
}

func TestCreateRecordWithoutAttachments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `[]`, string(body["attachments"]), "nil refs encode as an empty list")
		_, _ = w.Write([]byte(`{"durableId":"srv-1"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.CreateRecord(context.Background(), json.RawMessage(`{}`), nil)
	require.NoError(t, err)
}

func TestCreateRecordFailures(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"schema mismatch"}`, http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		client, err := NewClient(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.CreateRecord(context.Background(), json.RawMessage(`{}`), nil)
		var netErr *model.NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, "network", model.Classify(err))
	})

	t.Run("missing durableId", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"id":"wrong-field"}`))
		}))
		defer srv.Close()

		client, err := NewClient(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.CreateRecord(context.Background(), json.RawMessage(`{}`), nil)
		var netErr *model.NetworkError
		require.ErrorAs(t, err, &netErr)
	})
}

func TestRequestsHonorContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.CreateRecord(ctx, json.RawMessage(`{}`), nil)
	var netErr *model.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, context.Canceled)
}
