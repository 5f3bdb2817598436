package data_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsync/fieldsync/internal/data"
	"github.com/fieldsync/fieldsync/internal/domain/model"
	"github.com/fieldsync/fieldsync/internal/testutil"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := testutil.OpenTestStore(t)
	ctx := context.Background()

	content := testutil.RandomBytes(t, 2048)
	rec := testutil.BuildRecordWithAttachment(t, content)

	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Status, got.Status)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "blob.bin", got.Attachments[0].Name)
	assert.Equal(t, int64(2048), got.Attachments[0].SizeBytes)
	// Binary round trip must be byte-for-byte exact.
	assert.Equal(t, content, got.Attachments[0].Content)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
	assert.WithinDuration(t, rec.LastModified, got.LastModified, time.Second)
}

func TestGetMissingRecord(t *testing.T) {
	store := testutil.OpenTestStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	require.ErrorIs(t, err, model.ErrRecordNotFound)
}

func TestPutUpsertsByID(t *testing.T) {
	store := testutil.OpenTestStore(t)
	ctx := context.Background()

	rec := testutil.BuildRecord(t, model.StatusDraft)
	require.NoError(t, store.Put(ctx, rec))

	rec.Status = model.StatusQueued
	rec.Payload = []byte(`{"kind":"inspection","x":2}`)
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)
	assert.JSONEq(t, `{"kind":"inspection","x":2}`, string(got.Payload))

	queued, err := store.ListByStatus(ctx, model.StatusQueued)
	require.NoError(t, err)
	assert.Len(t, queued, 1, "upsert must not create a second row")
}

func TestPutRejectsInvalidRecord(t *testing.T) {
	store := testutil.OpenTestStore(t)

	rec := testutil.BuildRecord(t, model.StatusDraft)
	rec.ID = ""

	err := store.Put(context.Background(), rec)
	var storageErr *model.StorageError
	require.ErrorAs(t, err, &storageErr)
}

func TestListByStatus(t *testing.T) {
	store := testutil.OpenTestStore(t)
	ctx := context.Background()

	draft := testutil.BuildRecord(t, model.StatusDraft)
	queued1 := testutil.BuildRecord(t, model.StatusQueued)
	queued2 := testutil.BuildRecord(t, model.StatusQueued)
	for _, rec := range []*model.Record{draft, queued1, queued2} {
		require.NoError(t, store.Put(ctx, rec))
	}

	queued, err := store.ListByStatus(ctx, model.StatusQueued)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	ids := []string{queued[0].ID, queued[1].ID}
	assert.ElementsMatch(t, []string{queued1.ID, queued2.ID}, ids)

	failed, err := store.ListByStatus(ctx, model.StatusFailed)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestDelete(t *testing.T) {
	store := testutil.OpenTestStore(t)
	ctx := context.Background()

	rec := testutil.BuildRecord(t, model.StatusDraft)
	require.NoError(t, store.Put(ctx, rec))
	require.NoError(t, store.Delete(ctx, rec.ID))

	_, err := store.Get(ctx, rec.ID)
	require.ErrorIs(t, err, model.ErrRecordNotFound)

	// Deleting a missing record is not an error.
	require.NoError(t, store.Delete(ctx, rec.ID))
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	first, err := data.Open(path, data.RepoConfig{})
	require.NoError(t, err)

	content := testutil.RandomBytes(t, 512)
	rec := testutil.BuildRecordWithAttachment(t, content)
	require.NoError(t, first.Put(ctx, rec))
	require.NoError(t, first.Close())

	second := testutil.OpenTestStoreAt(t, path)
	queued, err := second.ListByStatus(ctx, model.StatusQueued)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, rec.ID, queued[0].ID)
	assert.Equal(t, content, queued[0].Attachments[0].Content)
}

func TestDeleteDeliveredBefore(t *testing.T) {
	store := testutil.OpenTestStore(t)
	ctx := context.Background()

	old := testutil.BuildRecord(t, model.StatusDelivered)
	old.LastModified = time.Now().UTC().Add(-48 * time.Hour)
	fresh := testutil.BuildRecord(t, model.StatusDelivered)
	queuedOld := testutil.BuildRecord(t, model.StatusQueued)
	queuedOld.LastModified = time.Now().UTC().Add(-48 * time.Hour)
	for _, rec := range []*model.Record{old, fresh, queuedOld} {
		require.NoError(t, store.Put(ctx, rec))
	}

	removed, err := store.DeleteDeliveredBefore(ctx, time.Now().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.Get(ctx, old.ID)
	require.ErrorIs(t, err, model.ErrRecordNotFound)

	// Fresh delivered and old queued records are untouched.
	_, err = store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	_, err = store.Get(ctx, queuedOld.ID)
	require.NoError(t, err)
}

func TestEstimateUsage(t *testing.T) {
	t.Run("reports used bytes and zero quota by default", func(t *testing.T) {
		store := testutil.OpenTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, testutil.BuildRecord(t, model.StatusDraft)))

		usage, err := store.EstimateUsage(ctx)
		require.NoError(t, err)
		assert.Positive(t, usage.UsedBytes)
		assert.Zero(t, usage.QuotaBytes)
	})

	t.Run("echoes configured quota", func(t *testing.T) {
		store, err := data.Open(filepath.Join(t.TempDir(), "records.db"), data.RepoConfig{
			QuotaBytes: 1 << 20,
		})
		require.NoError(t, err)
		defer store.Close()

		usage, err := store.EstimateUsage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1<<20), usage.QuotaBytes)
	})
}

func TestPutEnforcesQuota(t *testing.T) {
	// Quota far below the initial page allocation, so any write overflows.
	store, err := data.Open(filepath.Join(t.TempDir(), "records.db"), data.RepoConfig{
		QuotaBytes: 1,
	})
	require.NoError(t, err)
	defer store.Close()

	putErr := store.Put(context.Background(), testutil.BuildRecord(t, model.StatusDraft))
	var quotaErr *model.QuotaExceededError
	require.True(t, errors.As(putErr, &quotaErr), "expected QuotaExceededError, got %v", putErr)
	assert.Positive(t, quotaErr.UsedBytes)
}
