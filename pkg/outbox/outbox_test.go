package outbox_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/outbox"
	"github.com/cernbox/docvault/pkg/ports"
)

// fakeStore is a single-event ports.Store fake: enough for MarkQueued's
// WithTx + GetSyncEvent round trip without a real database.
type fakeStore struct {
	ports.Store
	event *model.SyncEvent
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	return fn(&fakeTx{store: s})
}

func (s *fakeStore) GetSyncEvent(_ context.Context, id string) (*model.SyncEvent, error) {
	if s.event == nil || s.event.ID != id {
		return nil, errkind.NotFound(id)
	}
	return s.event, nil
}

type fakeTx struct {
	ports.Tx
	store *fakeStore
}

func (tx *fakeTx) GetSyncEvent(ctx context.Context, id string) (*model.SyncEvent, error) {
	return tx.store.GetSyncEvent(ctx, id)
}

func (tx *fakeTx) UpdateSyncEvent(_ context.Context, e *model.SyncEvent) error {
	tx.store.event = e
	return nil
}

func folderID(id string) *string { return &id }

func TestNewBuildsPendingEvent(t *testing.T) {
	fid := folderID("folder-1")
	ev := outbox.New("ev-1", model.EventCreate, model.EntityFolder, fid, nil, "/src", "/dst", 3)

	require.Equal(t, "ev-1", ev.ID)
	require.Equal(t, model.EventCreate, ev.EventType)
	require.Equal(t, model.EntityFolder, ev.TargetType)
	require.Equal(t, model.SyncPending, ev.Status)
	require.Equal(t, 3, ev.MaxRetries)
	require.Equal(t, 0, ev.RetryCount)
	require.NotNil(t, ev.Metadata)
	require.False(t, ev.CreatedAt.IsZero())
}

func TestMarkQueuedTransitionsPendingToQueued(t *testing.T) {
	store := &fakeStore{event: &model.SyncEvent{ID: "ev-1", Status: model.SyncPending}}
	err := outbox.MarkQueued(context.Background(), store, "ev-1")
	require.NoError(t, err)
	require.Equal(t, model.SyncQueued, store.event.Status)
}

func TestMarkQueuedIsANoOpWhenNotPending(t *testing.T) {
	store := &fakeStore{event: &model.SyncEvent{ID: "ev-1", Status: model.SyncProcessing}}
	err := outbox.MarkQueued(context.Background(), store, "ev-1")
	require.NoError(t, err)
	require.Equal(t, model.SyncProcessing, store.event.Status, "MarkQueued must not disturb an event already past PENDING")
}

func TestMarkProcessingSetsStatus(t *testing.T) {
	store := &fakeStore{event: &model.SyncEvent{ID: "ev-1", Status: model.SyncQueued}}
	ev := store.event
	err := outbox.MarkProcessing(context.Background(), &fakeTx{store: store}, ev)
	require.NoError(t, err)
	require.Equal(t, model.SyncProcessing, ev.Status)
}

func TestMarkDoneClearsErrorAndStampsProcessedAt(t *testing.T) {
	msg := "previous failure"
	ev := &model.SyncEvent{ID: "ev-1", Status: model.SyncProcessing, ErrorMessage: &msg, EventType: model.EventCreate}
	store := &fakeStore{event: ev}

	err := outbox.MarkDone(context.Background(), &fakeTx{store: store}, ev)
	require.NoError(t, err)
	require.Equal(t, model.SyncDone, ev.Status)
	require.Nil(t, ev.ErrorMessage)
	require.NotNil(t, ev.ProcessedAt)
}

func TestRetryStaysPendingBelowMaxRetries(t *testing.T) {
	ev := &model.SyncEvent{ID: "ev-1", Status: model.SyncProcessing, RetryCount: 0, MaxRetries: 3, EventType: model.EventCreate}
	store := &fakeStore{event: ev}

	err := outbox.Retry(context.Background(), &fakeTx{store: store}, ev, errors.New("NAS timeout"), "folderMkdir")
	require.NoError(t, err)
	require.Equal(t, model.SyncPending, ev.Status)
	require.Equal(t, 1, ev.RetryCount)
	require.Equal(t, "NAS timeout", *ev.ErrorMessage)
	require.Nil(t, ev.ProcessedAt)
}

func TestRetryFailsPermanentlyAtMaxRetries(t *testing.T) {
	ev := &model.SyncEvent{ID: "ev-1", Status: model.SyncProcessing, RetryCount: 2, MaxRetries: 3, EventType: model.EventCreate}
	store := &fakeStore{event: ev}

	err := outbox.Retry(context.Background(), &fakeTx{store: store}, ev, errors.New("NAS timeout"), "folderMkdir")
	require.NoError(t, err)
	require.Equal(t, model.SyncFailed, ev.Status)
	require.Equal(t, 3, ev.RetryCount)
	require.NotNil(t, ev.ProcessedAt)
}
