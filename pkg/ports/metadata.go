package ports

import (
	"context"

	"github.com/cernbox/docvault/pkg/model"
)

// Tx is one open metadata-store transaction. Every command service method
// takes a Tx so the metadata mutation and the outbox insert happen
// atomically, per spec.md §4.4's outbox-pattern invariant.
type Tx interface {
	// Folders

	GetFolderForUpdate(ctx context.Context, id string) (*model.Folder, error)
	GetFolderByParentAndName(ctx context.Context, parentID *string, name string) (*model.Folder, error)
	ListActiveChildren(ctx context.Context, folderID string) (folders []model.Folder, files []model.File, err error)
	InsertFolder(ctx context.Context, f *model.Folder) error
	UpdateFolder(ctx context.Context, f *model.Folder) error
	RewriteDescendantFolderPaths(ctx context.Context, oldPathPrefix, newPathPrefix string) error

	// Files

	GetFileForUpdate(ctx context.Context, id string) (*model.File, error)
	GetFileByFolderAndName(ctx context.Context, folderID string, name string) (*model.File, error)
	InsertFile(ctx context.Context, f *model.File) error
	UpdateFile(ctx context.Context, f *model.File) error

	// Storage objects

	GetStorageObjectForUpdate(ctx context.Context, entityID string, entityType model.EntityType, tier model.Tier) (*model.StorageObject, error)
	InsertStorageObject(ctx context.Context, so *model.StorageObject) error
	UpdateStorageObject(ctx context.Context, so *model.StorageObject) error
	DeleteStorageObject(ctx context.Context, id string) error
	RewriteDescendantObjectKeys(ctx context.Context, folderID string, oldPathPrefix, newPathPrefix string) error

	// Sync events

	InsertSyncEvent(ctx context.Context, e *model.SyncEvent) error
	GetSyncEvent(ctx context.Context, id string) (*model.SyncEvent, error)
	UpdateSyncEvent(ctx context.Context, e *model.SyncEvent) error

	// Trash metadata

	InsertTrashMetadata(ctx context.Context, t *model.TrashMetadata) error
	GetTrashMetadataByEntity(ctx context.Context, entityID string, entityType model.EntityType) (*model.TrashMetadata, error)
	DeleteTrashMetadata(ctx context.Context, id string) error

	// Upload sessions

	InsertUploadSession(ctx context.Context, s *model.UploadSession) error
	GetUploadSessionForUpdate(ctx context.Context, id string) (*model.UploadSession, error)
	UpdateUploadSession(ctx context.Context, s *model.UploadSession) error
}

// Store opens transactions against the metadata database (C3).
type Store interface {
	// WithTx runs fn inside a single transaction, committing on success and
	// rolling back (and propagating the error) otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Read-only helpers that don't need row locks, used by diagnostics and
	// by handlers that only need to read the current state.
	GetFolder(ctx context.Context, id string) (*model.Folder, error)
	GetFile(ctx context.Context, id string) (*model.File, error)
	GetStorageObject(ctx context.Context, entityID string, entityType model.EntityType, tier model.Tier) (*model.StorageObject, error)
	GetSyncEvent(ctx context.Context, id string) (*model.SyncEvent, error)

	// GetLatestSyncEventForEntity returns the most recently created
	// SyncEvent targeting entityID, for the per-entity diagnostic endpoint
	// of spec.md §6.
	GetLatestSyncEventForEntity(ctx context.Context, entityID string, entityType model.EntityType) (*model.SyncEvent, error)
}
