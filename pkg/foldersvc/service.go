// Package foldersvc implements the folder command service (C5): validate,
// lock, resolve conflicts, mutate metadata + outbox in one transaction,
// commit, then enqueue a NAS sync job — the fixed seven-step shape of
// spec.md §4.5, specialised to folders (create, rename, move, trash,
// restore, purge, plus the root-bootstrap special case).
package foldersvc

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

var logger = log.New("foldersvc")

// RootFolderID is the well-known identity of the tree root, created once by
// Bootstrap and never trashed, renamed or moved.
const RootFolderID = "00000000-0000-0000-0000-000000000000"

// Service is the folder command service.
type Service struct {
	store              ports.Store
	queue              ports.JobQueue
	maxRetries         int
	trashRetentionDays int
}

// NewService returns a folder command service backed by store and queue.
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

// enqueue publishes payload on NAS_FOLDER_SYNC and best-effort transitions
// the SyncEvent to QUEUED. A failure to enqueue is logged, not returned: the
// metadata mutation already committed, and the row stays PENDING. No
// component of this module re-submits a PENDING row afterwards.
func (s *Service) enqueue(ctx context.Context, p syncjob.Payload, syncEventID string) {
	if syncEventID == "" {
		return
	}
	b, err := p.Marshal()
	if err != nil {
		logger.Error().Err(err).Str("syncEventId", syncEventID).Msg("foldersvc: failed to marshal job payload")
		return
	}
	if err := s.queue.Submit(ctx, syncjob.StreamFolderSync, b); err != nil {
		logger.Warn().Err(err).Str("syncEventId", syncEventID).Msg("foldersvc: failed to enqueue sync job, left PENDING")
		return
	}
	if err := outbox.MarkQueued(ctx, s.store, syncEventID); err != nil {
		logger.Warn().Err(err).Str("syncEventId", syncEventID).Msg("foldersvc: failed to mark sync event QUEUED")
	}
}

// requireActiveFolderForUpdate loads id under a row lock and rejects unless
// it is ACTIVE (spec.md §4.5 step 2), also rejecting while its NAS storage
// object is SYNCING (another op in flight).
func requireActiveFolderForUpdate(ctx context.Context, tx ports.Tx, id string) (*model.Folder, *model.StorageObject, error) {
	f, err := tx.GetFolderForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f.State != model.StateActive {
		return nil, nil, errkind.Precondition("folder is not active: " + id)
	}
	so, err := tx.GetStorageObjectForUpdate(ctx, id, model.EntityFolder, model.TierNAS)
	if err != nil {
		return nil, nil, err
	}
	if so.AvailabilityStatus == model.AvailabilitySyncing {
		return nil, nil, errkind.Conflict("FOLDER_SYNCING: a sync is already in progress for folder " + id)
	}
	return f, so, nil
}

// requireTrashedFolderForUpdate loads id under a row lock and rejects unless
// it is TRASHED — the precondition for restore and purge.
func requireTrashedFolderForUpdate(ctx context.Context, tx ports.Tx, id string) (*model.Folder, *model.StorageObject, error) {
	f, err := tx.GetFolderForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f.State != model.StateTrashed {
		return nil, nil, errkind.Precondition("folder is not trashed: " + id)
	}
	so, err := tx.GetStorageObjectForUpdate(ctx, id, model.EntityFolder, model.TierNAS)
	if err != nil {
		return nil, nil, err
	}
	return f, so, nil
}

// nameCollides reports whether name is taken by an active folder or file
// under parentID, other than excludeID — a real filesystem directory can't
// hold both a folder and a file of the same name, so the two namespaces are
// checked together.
func nameCollides(ctx context.Context, tx ports.Tx, parentID, name, excludeID string) (bool, error) {
	if f, err := tx.GetFolderByParentAndName(ctx, &parentID, name); err == nil && f != nil {
		if f.ID != excludeID {
			return true, nil
		}
	} else if !errkind.IsNotFound(err) {
		return false, err
	}
	if fl, err := tx.GetFileByFolderAndName(ctx, parentID, name); err == nil && fl != nil {
		if fl.ID != excludeID {
			return true, nil
		}
	} else if !errkind.IsNotFound(err) {
		return false, err
	}
	return false, nil
}

// newFolderSyncEvent builds a PENDING SyncEvent targeting a folder.
func newFolderSyncEvent(eventType model.SyncEventType, folderID *string, sourcePath, targetPath string, maxRetries int) *model.SyncEvent {
	return outbox.New(newID(), eventType, model.EntityFolder, folderID, nil, sourcePath, targetPath, maxRetries)
}

// trashObjectKey is the hidden NAS location a trashed entity's physical
// content is moved to, keyed by entity ID so it can never collide with a
// user-chosen name (names starting with ".trash" are rejected, see
// pkg/validate).
func trashObjectKey(entityID string) string { return "/.trash/" + entityID }
