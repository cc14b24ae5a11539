package syncdispatch

import (
	"context"

	"github.com/cernbox/docvault/pkg/distlock"
	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/metrics"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/outbox"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
)

func (d *Dispatcher) handleFolderJob(ctx context.Context, job ports.Job) error {
	p, err := syncjob.Unmarshal(job.Payload)
	if err != nil {
		logger.Error().Err(err).Msg("syncdispatch: cannot unmarshal folder job payload, dropping")
		return nil
	}
	if p.FolderID == nil {
		logger.Error().Msg("syncdispatch: folder job payload missing folderId, dropping")
		return nil
	}

	ev, err := d.Store.GetSyncEvent(ctx, p.SyncEventID)
	if err != nil {
		if errkind.IsNotFound(err) {
			return nil
		}
		return err
	}
	if ev.Status == model.SyncDone {
		return nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.SyncEventDuration, string(ev.EventType))

	return d.withEntityLock(ctx, distlock.FolderLockKey(*p.FolderID), func(ctx context.Context) error {
		switch p.Action {
		case syncjob.ActionMkdir:
			return d.folderMkdir(ctx, ev, p)
		case syncjob.ActionRename:
			return d.folderRename(ctx, ev, p)
		case syncjob.ActionMove:
			return d.folderMove(ctx, ev, p)
		case syncjob.ActionTrash:
			return d.folderTrash(ctx, ev, p)
		case syncjob.ActionRestore:
			return d.folderRestore(ctx, ev, p)
		case syncjob.ActionPurge:
			return d.folderPurge(ctx, ev, p)
		default:
			logger.Error().Str("action", string(p.Action)).Msg("syncdispatch: unknown folder action, dropping")
			return nil
		}
	})
}

func (d *Dispatcher) markProcessing(ctx context.Context, ev *model.SyncEvent) error {
	return d.Store.WithTx(ctx, func(tx ports.Tx) error { return outbox.MarkProcessing(ctx, tx, ev) })
}

func (d *Dispatcher) retry(ctx context.Context, ev *model.SyncEvent, cause error, action string) error {
	if txErr := d.Store.WithTx(ctx, func(tx ports.Tx) error { return outbox.Retry(ctx, tx, ev, cause, action) }); txErr != nil {
		return txErr
	}
	return cause
}

// finalizeFolderStorage rewrites the folder's NAS storage object to
// objectKey/status and marks the SyncEvent DONE, in one transaction.
func (d *Dispatcher) finalizeFolderStorage(ctx context.Context, ev *model.SyncEvent, folderID, objectKey string, status model.AvailabilityStatus) error {
	return d.Store.WithTx(ctx, func(tx ports.Tx) error {
		so, err := tx.GetStorageObjectForUpdate(ctx, folderID, model.EntityFolder, model.TierNAS)
		if err != nil {
			return err
		}
		so.ObjectKey = objectKey
		so.AvailabilityStatus = status
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}
		return outbox.MarkDone(ctx, tx, ev)
	})
}

func (d *Dispatcher) folderMkdir(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.NAS.Mkdir(ctx, p.TargetPath); err != nil && !ports.IsCode(err, ports.ErrAlreadyExists) {
		return d.retry(ctx, ev, err, "folder.mkdir")
	}
	return d.finalizeFolderStorage(ctx, ev, *p.FolderID, p.TargetPath, model.AvailabilityAvailable)
}

func (d *Dispatcher) folderRename(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.NAS.MoveDir(ctx, p.SourcePath, p.TargetPath); err != nil {
		if !(ports.IsCode(err, ports.ErrNotFound) && d.existsAt(ctx, d.NAS, p.TargetPath)) {
			return d.retry(ctx, ev, err, "folder.rename")
		}
	}
	return d.finalizeFolderStorage(ctx, ev, *p.FolderID, p.TargetPath, model.AvailabilityAvailable)
}

// existsAt reports whether an object (file or directory) already sits at
// path — used by the folder and file handlers alike to treat
// a NOT_FOUND source as "already moved by a prior delivery of this job" when
// the destination is already in place, the idempotency condition spec.md
// §4.6 requires of every handler.
func (d *Dispatcher) existsAt(ctx context.Context, store ports.ObjectStore, path string) bool {
	ok, err := store.Exists(ctx, path)
	return err == nil && ok
}

func (d *Dispatcher) folderMove(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}

	if p.TargetParentID != nil {
		target, err := d.Store.GetFolder(ctx, *p.TargetParentID)
		if err != nil || target.State != model.StateActive {
			return d.compensateFolderMove(ctx, ev, p)
		}
	}

	if err := d.NAS.MoveDir(ctx, p.SourcePath, p.TargetPath); err != nil {
		if !(ports.IsCode(err, ports.ErrNotFound) && d.existsAt(ctx, d.NAS, p.TargetPath)) {
			return d.retry(ctx, ev, err, "folder.move")
		}
	}
	return d.finalizeFolderStorage(ctx, ev, *p.FolderID, p.TargetPath, model.AvailabilityAvailable)
}

// compensateFolderMove reverts a move whose destination parent was
// concurrently trashed between the command committing and the handler
// running: the folder and its descendants go back to their pre-move paths,
// and the event is marked DONE since the situation has been resolved, not
// failed.
func (d *Dispatcher) compensateFolderMove(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	return d.Store.WithTx(ctx, func(tx ports.Tx) error {
		folder, err := tx.GetFolderForUpdate(ctx, *p.FolderID)
		if err != nil {
			return err
		}
		folder.ParentID = p.OriginalParentID
		folder.Path = p.SourcePath
		if err := tx.UpdateFolder(ctx, folder); err != nil {
			return err
		}
		if err := tx.RewriteDescendantFolderPaths(ctx, p.TargetPath, p.SourcePath); err != nil {
			return err
		}
		if err := tx.RewriteDescendantObjectKeys(ctx, folder.ID, p.TargetPath, p.SourcePath); err != nil {
			return err
		}
		so, err := tx.GetStorageObjectForUpdate(ctx, folder.ID, model.EntityFolder, model.TierNAS)
		if err != nil {
			return err
		}
		so.ObjectKey = p.SourcePath
		so.AvailabilityStatus = model.AvailabilityAvailable
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}
		return outbox.MarkDone(ctx, tx, ev)
	})
}

func (d *Dispatcher) folderTrash(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.NAS.MoveDir(ctx, p.SourcePath, p.TargetPath); err != nil {
		if !(ports.IsCode(err, ports.ErrNotFound) && d.existsAt(ctx, d.NAS, p.TargetPath)) {
			return d.retry(ctx, ev, err, "folder.trash")
		}
	}
	return d.finalizeFolderStorage(ctx, ev, *p.FolderID, p.TargetPath, model.AvailabilityAvailable)
}

func (d *Dispatcher) folderRestore(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.NAS.MoveDir(ctx, p.SourcePath, p.TargetPath); err != nil {
		if !(ports.IsCode(err, ports.ErrNotFound) && d.existsAt(ctx, d.NAS, p.TargetPath)) {
			return d.retry(ctx, ev, err, "folder.restore")
		}
	}
	return d.Store.WithTx(ctx, func(tx ports.Tx) error {
		so, err := tx.GetStorageObjectForUpdate(ctx, *p.FolderID, model.EntityFolder, model.TierNAS)
		if err != nil {
			return err
		}
		so.ObjectKey = p.TargetPath
		so.AvailabilityStatus = model.AvailabilityAvailable
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}
		if tm, err := tx.GetTrashMetadataByEntity(ctx, *p.FolderID, model.EntityFolder); err == nil {
			if err := tx.DeleteTrashMetadata(ctx, tm.ID); err != nil {
				return err
			}
		} else if !errkind.IsNotFound(err) {
			return err
		}
		return outbox.MarkDone(ctx, tx, ev)
	})
}

func (d *Dispatcher) folderPurge(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.NAS.Rmdir(ctx, p.SourcePath, true); err != nil && !ports.IsCode(err, ports.ErrNotFound) {
		return d.retry(ctx, ev, err, "folder.purge")
	}
	return d.Store.WithTx(ctx, func(tx ports.Tx) error {
		so, err := tx.GetStorageObjectForUpdate(ctx, *p.FolderID, model.EntityFolder, model.TierNAS)
		if err == nil {
			if err := tx.DeleteStorageObject(ctx, so.ID); err != nil {
				return err
			}
		} else if !errkind.IsNotFound(err) {
			return err
		}
		if tm, err := tx.GetTrashMetadataByEntity(ctx, *p.FolderID, model.EntityFolder); err == nil {
			if err := tx.DeleteTrashMetadata(ctx, tm.ID); err != nil {
				return err
			}
		} else if !errkind.IsNotFound(err) {
			return err
		}
		return outbox.MarkDone(ctx, tx, ev)
	})
}
