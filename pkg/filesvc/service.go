// Package filesvc implements the file command service (C5): the same fixed
// seven-step shape as pkg/foldersvc, specialised to files — which, unlike
// folders, support OVERWRITE conflict resolution and never cascade a
// descendant rewrite since a file has no children.
package filesvc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/log"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/outbox"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
)

var logger = log.New("filesvc")

// Service is the file command service.
type Service struct {
	store              ports.Store
	queue              ports.JobQueue
	maxRetries         int
	trashRetentionDays int
}

// NewService returns a file command service backed by store and queue.
func NewService(store ports.Store, queue ports.JobQueue, maxRetries, trashRetentionDays int) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if trashRetentionDays <= 0 {
		trashRetentionDays = 30
	}
	return &Service{store: store, queue: queue, maxRetries: maxRetries, trashRetentionDays: trashRetentionDays}
}

func newID() string { return uuid.NewString() }

func now() time.Time { return time.Now().UTC() }

func (s *Service) enqueue(ctx context.Context, p syncjob.Payload, syncEventID string) {
	if syncEventID == "" {
		return
	}
	b, err := p.Marshal()
	if err != nil {
		logger.Error().Err(err).Str("syncEventId", syncEventID).Msg("filesvc: failed to marshal job payload")
		return
	}
	if err := s.queue.Submit(ctx, syncjob.StreamFileSync, b); err != nil {
		logger.Warn().Err(err).Str("syncEventId", syncEventID).Msg("filesvc: failed to enqueue sync job, left PENDING")
		return
	}
	if err := outbox.MarkQueued(ctx, s.store, syncEventID); err != nil {
		logger.Warn().Err(err).Str("syncEventId", syncEventID).Msg("filesvc: failed to mark sync event QUEUED")
	}
}

func newFileSyncEvent(eventType model.SyncEventType, fileID *string, sourcePath, targetPath string, maxRetries int) *model.SyncEvent {
	return outbox.New(newID(), eventType, model.EntityFile, nil, fileID, sourcePath, targetPath, maxRetries)
}

// requireActiveFileForUpdate loads id under a row lock and rejects unless it
// is ACTIVE and its NAS storage object isn't already mid-sync.
func requireActiveFileForUpdate(ctx context.Context, tx ports.Tx, id string) (*model.File, *model.StorageObject, error) {
	f, err := tx.GetFileForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f.State != model.StateActive {
		return nil, nil, errkind.Precondition("file is not active: " + id)
	}
	so, err := tx.GetStorageObjectForUpdate(ctx, id, model.EntityFile, model.TierNAS)
	if err != nil {
		return nil, nil, err
	}
	if so.AvailabilityStatus == model.AvailabilitySyncing {
		return nil, nil, errkind.Conflict("FILE_SYNCING: a sync is already in progress for file " + id)
	}
	return f, so, nil
}

// requireTrashedFileForUpdate loads id under a row lock and rejects unless
// it is TRASHED.
func requireTrashedFileForUpdate(ctx context.Context, tx ports.Tx, id string) (*model.File, *model.StorageObject, error) {
	f, err := tx.GetFileForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f.State != model.StateTrashed {
		return nil, nil, errkind.Precondition("file is not trashed: " + id)
	}
	so, err := tx.GetStorageObjectForUpdate(ctx, id, model.EntityFile, model.TierNAS)
	if err != nil {
		return nil, nil, err
	}
	return f, so, nil
}

// nameCollides reports whether name is taken by an active folder or file
// under folderID, other than excludeID.
func nameCollides(ctx context.Context, tx ports.Tx, folderID, name, excludeID string) (bool, error) {
	if f, err := tx.GetFolderByParentAndName(ctx, &folderID, name); err == nil && f != nil {
		if f.ID != excludeID {
			return true, nil
		}
	} else if !errkind.IsNotFound(err) {
		return false, err
	}
	if fl, err := tx.GetFileByFolderAndName(ctx, folderID, name); err == nil && fl != nil {
		if fl.ID != excludeID {
			return true, nil
		}
	} else if !errkind.IsNotFound(err) {
		return false, err
	}
	return false, nil
}

func trashObjectKey(entityID string) string { return "/.trash/" + entityID }

func errNotActiveParent(folderID string) error {
	return errkind.Precondition("parent folder is not active: " + folderID)
}
