package filesvc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/filesvc"
	"github.com/cernbox/docvault/pkg/jobqueue"
	"github.com/cernbox/docvault/pkg/jobqueue/memqueue"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
)

// memStore is a minimal in-memory ports.Store, mirroring pkg/foldersvc's
// test fake, used to exercise filesvc without a real database.
type memStore struct {
	folders map[string]*model.Folder
	files   map[string]*model.File
	objects map[string]*model.StorageObject
	events  map[string]*model.SyncEvent
	trash   map[string]*model.TrashMetadata
}

func newMemStore() *memStore {
	root := &model.Folder{ID: "root", Name: "", ParentID: nil, Path: "/", State: model.StateActive}
	rootSO := &model.StorageObject{ID: "root-so", FolderID: &root.ID, Tier: model.TierNAS, ObjectKey: "/", AvailabilityStatus: model.AvailabilityAvailable}
	return &memStore{
		folders: map[string]*model.Folder{root.ID: root},
		files:   map[string]*model.File{},
		objects: map[string]*model.StorageObject{rootSO.ID: rootSO},
		events:  map[string]*model.SyncEvent{},
		trash:   map[string]*model.TrashMetadata{},
	}
}

func (m *memStore) WithTx(_ context.Context, fn func(tx ports.Tx) error) error {
	return fn(&memTx{m})
}

func (m *memStore) GetFolder(_ context.Context, id string) (*model.Folder, error) {
	f, ok := m.folders[id]
	if !ok {
		return nil, errkind.NotFound("folder not found: " + id)
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) GetFile(_ context.Context, id string) (*model.File, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, errkind.NotFound("file not found: " + id)
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) GetStorageObject(_ context.Context, entityID string, entityType model.EntityType, tier model.Tier) (*model.StorageObject, error) {
	for _, so := range m.objects {
		if so.Tier == tier && matchesEntity(so, entityID, entityType) {
			cp := *so
			return &cp, nil
		}
	}
	return nil, errkind.NotFound("storage object not found")
}

func (m *memStore) GetSyncEvent(_ context.Context, id string) (*model.SyncEvent, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, errkind.NotFound("sync event not found: " + id)
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) GetLatestSyncEventForEntity(_ context.Context, entityID string, entityType model.EntityType) (*model.SyncEvent, error) {
	var latest *model.SyncEvent
	for _, e := range m.events {
		if !matchesSyncEventEntity(e, entityID, entityType) {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, errkind.NotFound("sync event not found for entity: " + entityID)
	}
	cp := *latest
	return &cp, nil
}

func matchesSyncEventEntity(e *model.SyncEvent, entityID string, entityType model.EntityType) bool {
	if entityType == model.EntityFolder {
		return e.FolderID != nil && *e.FolderID == entityID
	}
	return e.FileID != nil && *e.FileID == entityID
}

func matchesEntity(so *model.StorageObject, entityID string, entityType model.EntityType) bool {
	if entityType == model.EntityFolder {
		return so.FolderID != nil && *so.FolderID == entityID
	}
	return so.FileID != nil && *so.FileID == entityID
}

type memTx struct{ s *memStore }

func (t *memTx) GetFolderForUpdate(_ context.Context, id string) (*model.Folder, error) {
	f, ok := t.s.folders[id]
	if !ok {
		return nil, errkind.NotFound("folder not found: " + id)
	}
	cp := *f
	return &cp, nil
}

func (t *memTx) GetFolderByParentAndName(_ context.Context, parentID *string, name string) (*model.Folder, error) {
	for _, f := range t.s.folders {
		if f.State == model.StateActive && f.Name == name && samePtr(f.ParentID, parentID) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, errkind.NotFound("folder not found")
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (t *memTx) ListActiveChildren(_ context.Context, folderID string) ([]model.Folder, []model.File, error) {
	var folders []model.Folder
	var files []model.File
	for _, f := range t.s.folders {
		if f.State == model.StateActive && f.ParentID != nil && *f.ParentID == folderID {
			folders = append(folders, *f)
		}
	}
	for _, f := range t.s.files {
		if f.State == model.StateActive && f.FolderID == folderID {
			files = append(files, *f)
		}
	}
	return folders, files, nil
}

func (t *memTx) InsertFolder(_ context.Context, f *model.Folder) error {
	cp := *f
	t.s.folders[f.ID] = &cp
	return nil
}

func (t *memTx) UpdateFolder(_ context.Context, f *model.Folder) error {
	cp := *f
	t.s.folders[f.ID] = &cp
	return nil
}

func (t *memTx) RewriteDescendantFolderPaths(_ context.Context, _, _ string) error { return nil }

func (t *memTx) GetFileForUpdate(_ context.Context, id string) (*model.File, error) {
	f, ok := t.s.files[id]
	if !ok {
		return nil, errkind.NotFound("file not found: " + id)
	}
	cp := *f
	return &cp, nil
}

func (t *memTx) GetFileByFolderAndName(_ context.Context, folderID, name string) (*model.File, error) {
	for _, f := range t.s.files {
		if f.State == model.StateActive && f.FolderID == folderID && f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	return nil, errkind.NotFound("file not found")
}

func (t *memTx) InsertFile(_ context.Context, f *model.File) error {
	cp := *f
	t.s.files[f.ID] = &cp
	return nil
}

func (t *memTx) UpdateFile(_ context.Context, f *model.File) error {
	f.Version++
	cp := *f
	t.s.files[f.ID] = &cp
	return nil
}

func (t *memTx) GetStorageObjectForUpdate(_ context.Context, entityID string, entityType model.EntityType, tier model.Tier) (*model.StorageObject, error) {
	for _, so := range t.s.objects {
		if so.Tier == tier && matchesEntity(so, entityID, entityType) {
			cp := *so
			return &cp, nil
		}
	}
	return nil, errkind.NotFound("storage object not found")
}

func (t *memTx) InsertStorageObject(_ context.Context, so *model.StorageObject) error {
	cp := *so
	t.s.objects[so.ID] = &cp
	return nil
}

func (t *memTx) UpdateStorageObject(_ context.Context, so *model.StorageObject) error {
	cp := *so
	t.s.objects[so.ID] = &cp
	return nil
}

func (t *memTx) DeleteStorageObject(_ context.Context, id string) error {
	delete(t.s.objects, id)
	return nil
}

func (t *memTx) RewriteDescendantObjectKeys(_ context.Context, _, _, _ string) error { return nil }

func (t *memTx) InsertSyncEvent(_ context.Context, e *model.SyncEvent) error {
	cp := *e
	t.s.events[e.ID] = &cp
	return nil
}

func (t *memTx) GetSyncEvent(_ context.Context, id string) (*model.SyncEvent, error) {
	e, ok := t.s.events[id]
	if !ok {
		return nil, errkind.NotFound("sync event not found: " + id)
	}
	cp := *e
	return &cp, nil
}

func (t *memTx) UpdateSyncEvent(_ context.Context, e *model.SyncEvent) error {
	cp := *e
	t.s.events[e.ID] = &cp
	return nil
}

func (t *memTx) InsertTrashMetadata(_ context.Context, tm *model.TrashMetadata) error {
	cp := *tm
	t.s.trash[tm.ID] = &cp
	return nil
}

func (t *memTx) GetTrashMetadataByEntity(_ context.Context, entityID string, entityType model.EntityType) (*model.TrashMetadata, error) {
	for _, tm := range t.s.trash {
		if entityType == model.EntityFile && tm.FileID != nil && *tm.FileID == entityID {
			cp := *tm
			return &cp, nil
		}
	}
	return nil, errkind.NotFound("trash metadata not found")
}

func (t *memTx) DeleteTrashMetadata(_ context.Context, id string) error {
	delete(t.s.trash, id)
	return nil
}

func (t *memTx) InsertUploadSession(_ context.Context, _ *model.UploadSession) error { return nil }
func (t *memTx) GetUploadSessionForUpdate(_ context.Context, _ string) (*model.UploadSession, error) {
	return nil, errkind.NotFound("not implemented in this fake")
}
func (t *memTx) UpdateUploadSession(_ context.Context, _ *model.UploadSession) error { return nil }

func setup(t *testing.T) (*filesvc.Service, *memStore) {
	t.Helper()
	store := newMemStore()
	queue := jobqueue.New(memqueue.New())
	return filesvc.NewService(store, queue, 3, 30), store
}

// markAllSynced flips every NAS storage object to AVAILABLE, standing in for
// the sync dispatcher draining the queue: commands reject a file whose NAS
// object is still SYNCING from the previous command.
func markAllSynced(store *memStore) {
	for _, so := range store.objects {
		so.AvailabilityStatus = model.AvailabilityAvailable
	}
}

func TestCreateAndRenameConflict(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, filesvc.CreateInput{FolderID: "root", Name: "report.pdf", SizeBytes: 10, CreatedBy: "alice"})
	require.NoError(t, err)
	require.Equal(t, "report.pdf", f.Name)

	_, err = svc.Create(ctx, filesvc.CreateInput{FolderID: "root", Name: "report.pdf", SizeBytes: 20, CreatedBy: "alice"})
	require.Error(t, err)
	require.True(t, errkind.IsConflict(err))

	overwritten, err := svc.Create(ctx, filesvc.CreateInput{
		FolderID:  "root",
		Name:      "report.pdf",
		SizeBytes: 30,
		CreatedBy: "alice",
		Conflict:  model.ConflictOverwrite,
	})
	require.NoError(t, err)
	require.Equal(t, f.ID, overwritten.ID)
	require.Equal(t, int64(30), overwritten.SizeBytes)
}

func TestTrashRestorePurgeLifecycle(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, filesvc.CreateInput{FolderID: "root", Name: "a.txt", SizeBytes: 1, CreatedBy: "alice"})
	require.NoError(t, err)
	markAllSynced(store)

	_, err = svc.Trash(ctx, filesvc.TrashInput{FileID: f.ID, DeletedBy: "alice"})
	require.NoError(t, err)
	trashed, err := store.GetFile(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateTrashed, trashed.State)

	_, err = svc.Restore(ctx, filesvc.RestoreInput{FileID: f.ID})
	require.NoError(t, err)
	restored, err := store.GetFile(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateActive, restored.State)
	markAllSynced(store)

	_, err = svc.Trash(ctx, filesvc.TrashInput{FileID: f.ID, DeletedBy: "alice"})
	require.NoError(t, err)
	require.NoError(t, svc.Purge(ctx, f.ID))
	deleted, err := store.GetFile(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, model.StateDeleted, deleted.State)
}

func TestMoveRejectsMissingDestination(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	f, err := svc.Create(ctx, filesvc.CreateInput{FolderID: "root", Name: "a.txt", SizeBytes: 1, CreatedBy: "alice"})
	require.NoError(t, err)
	markAllSynced(store)

	_, err = svc.Move(ctx, filesvc.MoveInput{FileID: f.ID, NewFolderID: "does-not-exist"})
	require.Error(t, err)
	require.True(t, errkind.IsNotFound(err))
}
