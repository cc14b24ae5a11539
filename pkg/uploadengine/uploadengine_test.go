package uploadengine_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/admission"
	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/filesvc"
	"github.com/cernbox/docvault/pkg/jobqueue"
	"github.com/cernbox/docvault/pkg/jobqueue/memqueue"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/uploadengine"
)

// memStore is a minimal in-memory ports.Store exercising upload sessions in
// addition to the folder/file/storage-object/sync-event maps every command
// service's test fake already carries.
type memStore struct {
	folders  map[string]*model.Folder
	files    map[string]*model.File
	objects  map[string]*model.StorageObject
	events   map[string]*model.SyncEvent
	trash    map[string]*model.TrashMetadata
	sessions map[string]*model.UploadSession
}

func newMemStore() *memStore {
	root := &model.Folder{ID: "root", Name: "", ParentID: nil, Path: "/", State: model.StateActive}
	rootSO := &model.StorageObject{ID: "root-so", FolderID: &root.ID, Tier: model.TierNAS, ObjectKey: "/", AvailabilityStatus: model.AvailabilityAvailable}
	return &memStore{
		folders:  map[string]*model.Folder{root.ID: root},
		files:    map[string]*model.File{},
		objects:  map[string]*model.StorageObject{rootSO.ID: rootSO},
		events:   map[string]*model.SyncEvent{},
		trash:    map[string]*model.TrashMetadata{},
		sessions: map[string]*model.UploadSession{},
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

func (t *memTx) InsertUploadSession(_ context.Context, s *model.UploadSession) error {
	cp := *s
	t.s.sessions[s.ID] = &cp
	return nil
}

func (t *memTx) GetUploadSessionForUpdate(_ context.Context, id string) (*model.UploadSession, error) {
	s, ok := t.s.sessions[id]
	if !ok {
		return nil, errkind.NotFound("upload session not found: " + id)
	}
	cp := *s
	return &cp, nil
}

func (t *memTx) UpdateUploadSession(_ context.Context, s *model.UploadSession) error {
	cp := *s
	t.s.sessions[s.ID] = &cp
	return nil
}

// memCache is a minimal in-memory ports.ObjectStore standing in for the
// cache tier.
type memCache struct{ objects map[string][]byte }

func newMemCache() *memCache { return &memCache{objects: map[string][]byte{}} }

func (c *memCache) WriteFile(_ context.Context, key string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.objects[key] = b
	return nil
}

func (c *memCache) ReadFile(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := c.objects[key]
	if !ok {
		return nil, &ports.StorageError{Code: ports.ErrNotFound, Op: "ReadFile", Path: key}
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (c *memCache) DeleteFile(_ context.Context, key string) error {
	delete(c.objects, key)
	return nil
}

func (c *memCache) MoveFile(_ context.Context, src, dst string) error {
	b, ok := c.objects[src]
	if !ok {
		return &ports.StorageError{Code: ports.ErrNotFound, Op: "MoveFile", Path: src}
	}
	c.objects[dst] = b
	delete(c.objects, src)
	return nil
}

func (c *memCache) CopyFile(_ context.Context, src, dst string) error {
	b, ok := c.objects[src]
	if !ok {
		return &ports.StorageError{Code: ports.ErrNotFound, Op: "CopyFile", Path: src}
	}
	c.objects[dst] = b
	return nil
}

func (c *memCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := c.objects[key]
	return ok, nil
}

func (c *memCache) Size(_ context.Context, key string) (int64, error) {
	b, ok := c.objects[key]
	if !ok {
		return 0, &ports.StorageError{Code: ports.ErrNotFound, Op: "Size", Path: key}
	}
	return int64(len(b)), nil
}

func (c *memCache) Mkdir(_ context.Context, _ string) error           { return nil }
func (c *memCache) Rmdir(_ context.Context, _ string, _ bool) error    { return nil }
func (c *memCache) MoveDir(_ context.Context, _, _ string) error       { return nil }
func (c *memCache) List(_ context.Context, _ string) ([]string, error) { return nil, nil }

func setup(t *testing.T, limits admission.Limits) (*uploadengine.Engine, *memStore, *memCache) {
	t.Helper()
	store := newMemStore()
	cache := newMemCache()
	queue := jobqueue.New(memqueue.New())
	files := filesvc.NewService(store, queue, 3, 30)
	eng := uploadengine.New(store, cache, files, limits, uploadengine.Config{
		PartSizeBytes:           4,
		MultipartThresholdBytes: 8,
	})
	return eng, store, cache
}

func TestInitiateBelowThresholdRejected(t *testing.T) {
	eng, _, _ := setup(t, admission.Limits{MaxActiveSessions: 2, MaxTotalUploadBytes: 1000})
	_, err := eng.Initiate(context.Background(), uploadengine.InitiateInput{
		FileName: "a.bin", FolderID: "root", TotalSize: 4, CreatedBy: "alice",
	})
	require.Error(t, err)
}

func TestFullUploadLifecycle(t *testing.T) {
	eng, _, cache := setup(t, admission.Limits{MaxActiveSessions: 2, MaxTotalUploadBytes: 1000})

	res, err := eng.Initiate(context.Background(), uploadengine.InitiateInput{
		FileName: "big.bin", FolderID: "root", TotalSize: 10, CreatedBy: "alice",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	require.Nil(t, res.Ticket)
	sess := res.Session
	require.Equal(t, 3, sess.TotalParts) // ceil(10/4) = 3

	_, err = eng.UploadPart(context.Background(), sess.ID, 1, 4, bytes.NewReader([]byte("aaaa")))
	require.NoError(t, err)
	_, err = eng.UploadPart(context.Background(), sess.ID, 2, 4, bytes.NewReader([]byte("bbbb")))
	require.NoError(t, err)
	result, err := eng.UploadPart(context.Background(), sess.ID, 3, 2, bytes.NewReader([]byte("cc")))
	require.NoError(t, err)
	require.Equal(t, float64(100), result.ProgressPct)

	file, err := eng.Complete(context.Background(), sess.ID, filesvc.CreateInput{
		FolderID: "root", Name: "big.bin", SizeBytes: 10, MimeType: "application/octet-stream", CreatedBy: "alice",
	})
	require.NoError(t, err)
	require.Equal(t, "big.bin", file.Name)

	r, err := cache.ReadFile(context.Background(), "/big.bin")
	require.NoError(t, err)
	b, _ := io.ReadAll(r)
	require.Equal(t, "aaaabbbbcc", string(b))
}

func TestAbortCleansUpParts(t *testing.T) {
	eng, _, cache := setup(t, admission.Limits{MaxActiveSessions: 2, MaxTotalUploadBytes: 1000})

	res, err := eng.Initiate(context.Background(), uploadengine.InitiateInput{
		FileName: "x.bin", FolderID: "root", TotalSize: 8, CreatedBy: "bob",
	})
	require.NoError(t, err)
	sess := res.Session

	_, err = eng.UploadPart(context.Background(), sess.ID, 1, 4, bytes.NewReader([]byte("zzzz")))
	require.NoError(t, err)

	require.NoError(t, eng.Abort(context.Background(), sess.ID))
	ok, _ := cache.Exists(context.Background(), "sessions/"+sess.ID+"/parts/1")
	require.False(t, ok)

	require.NoError(t, eng.Abort(context.Background(), sess.ID))
}
