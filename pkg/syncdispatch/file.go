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

func (d *Dispatcher) handleFileJob(ctx context.Context, job ports.Job) error {
	p, err := syncjob.Unmarshal(job.Payload)
	if err != nil {
		logger.Error().Err(err).Msg("syncdispatch: cannot unmarshal file job payload, dropping")
		return nil
	}
	if p.FileID == nil {
		logger.Error().Msg("syncdispatch: file job payload missing fileId, dropping")
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

	return d.withEntityLock(ctx, distlock.FileLockKey(*p.FileID), func(ctx context.Context) error {
		switch p.Action {
		case syncjob.ActionMkdir:
			return d.fileCreate(ctx, ev, p)
		case syncjob.ActionRename:
			return d.fileRename(ctx, ev, p)
		case syncjob.ActionMove:
			return d.fileMove(ctx, ev, p)
		case syncjob.ActionTrash:
			return d.fileTrash(ctx, ev, p)
		case syncjob.ActionRestore:
			return d.fileRestore(ctx, ev, p)
		case syncjob.ActionPurge:
			return d.filePurge(ctx, ev, p)
		default:
			logger.Error().Str("action", string(p.Action)).Msg("syncdispatch: unknown file action, dropping")
			return nil
		}
	})
}

func (d *Dispatcher) finalizeFileStorage(ctx context.Context, ev *model.SyncEvent, fileID, objectKey string, status model.AvailabilityStatus) error {
	return d.Store.WithTx(ctx, func(tx ports.Tx) error {
		so, err := tx.GetStorageObjectForUpdate(ctx, fileID, model.EntityFile, model.TierNAS)
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

// fileCreate copies the bytes already staged on the cache tier at
// TargetPath (written there by pkg/uploadengine or a direct small-file
// upload handler before filesvc.Create was ever called) onto the NAS at the
// same key.
func (d *Dispatcher) fileCreate(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.copyCacheToNAS(ctx, p.TargetPath, p.TargetPath); err != nil && !ports.IsCode(err, ports.ErrAlreadyExists) {
		return d.retry(ctx, ev, err, "file.create")
	}
	return d.finalizeFileStorage(ctx, ev, *p.FileID, p.TargetPath, model.AvailabilityAvailable)
}

func (d *Dispatcher) copyCacheToNAS(ctx context.Context, cacheKey, nasKey string) error {
	r, err := d.Cache.ReadFile(ctx, cacheKey)
	if err != nil {
		if ports.IsCode(err, ports.ErrNotFound) {
			ok, existsErr := d.NAS.Exists(ctx, nasKey)
			if existsErr == nil && ok {
				return nil
			}
		}
		return err
	}
	defer r.Close()
	return d.NAS.WriteFile(ctx, nasKey, r)
}

func (d *Dispatcher) fileRename(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.NAS.MoveFile(ctx, p.SourcePath, p.TargetPath); err != nil {
		if !(ports.IsCode(err, ports.ErrNotFound) && d.existsAt(ctx, d.NAS, p.TargetPath)) {
			return d.retry(ctx, ev, err, "file.rename")
		}
	}
	return d.finalizeFileStorage(ctx, ev, *p.FileID, p.TargetPath, model.AvailabilityAvailable)
}

func (d *Dispatcher) fileMove(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}

	if p.TargetParentID != nil {
		target, err := d.Store.GetFolder(ctx, *p.TargetParentID)
		if err != nil || target.State != model.StateActive {
			return d.compensateFileMove(ctx, ev, p)
		}
	}

	if err := d.NAS.MoveFile(ctx, p.SourcePath, p.TargetPath); err != nil {
		if !(ports.IsCode(err, ports.ErrNotFound) && d.existsAt(ctx, d.NAS, p.TargetPath)) {
			return d.retry(ctx, ev, err, "file.move")
		}
	}
	return d.finalizeFileStorage(ctx, ev, *p.FileID, p.TargetPath, model.AvailabilityAvailable)
}

func (d *Dispatcher) compensateFileMove(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	return d.Store.WithTx(ctx, func(tx ports.Tx) error {
		file, err := tx.GetFileForUpdate(ctx, *p.FileID)
		if err != nil {
			return err
		}
		if p.OriginalParentID != nil {
			file.FolderID = *p.OriginalParentID
		}
		if err := tx.UpdateFile(ctx, file); err != nil {
			return err
		}
		so, err := tx.GetStorageObjectForUpdate(ctx, file.ID, model.EntityFile, model.TierNAS)
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

// fileTrash waits out an open cache lease rather than failing: if
// LeaseCount is still positive, the move is deferred via the normal retry
// path so a later delivery picks it up once the lease drops to zero.
func (d *Dispatcher) fileTrash(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}

	cacheSO, err := d.Store.GetStorageObject(ctx, *p.FileID, model.EntityFile, model.TierCache)
	if err == nil && cacheSO.LeaseCount > 0 {
		return d.retry(ctx, ev, errkind.Conflict("FILE_IN_USE: cache lease still held"), "file.trash")
	}

	if err := d.NAS.MoveFile(ctx, p.SourcePath, p.TargetPath); err != nil {
		if !(ports.IsCode(err, ports.ErrNotFound) && d.existsAt(ctx, d.NAS, p.TargetPath)) {
			return d.retry(ctx, ev, err, "file.trash")
		}
	}
	return d.finalizeFileStorage(ctx, ev, *p.FileID, p.TargetPath, model.AvailabilityAvailable)
}

func (d *Dispatcher) fileRestore(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.NAS.MoveFile(ctx, p.SourcePath, p.TargetPath); err != nil {
		if !(ports.IsCode(err, ports.ErrNotFound) && d.existsAt(ctx, d.NAS, p.TargetPath)) {
			return d.retry(ctx, ev, err, "file.restore")
		}
	}
	return d.Store.WithTx(ctx, func(tx ports.Tx) error {
		so, err := tx.GetStorageObjectForUpdate(ctx, *p.FileID, model.EntityFile, model.TierNAS)
		if err != nil {
			return err
		}
		so.ObjectKey = p.TargetPath
		so.AvailabilityStatus = model.AvailabilityAvailable
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}
		if tm, err := tx.GetTrashMetadataByEntity(ctx, *p.FileID, model.EntityFile); err == nil {
			if err := tx.DeleteTrashMetadata(ctx, tm.ID); err != nil {
				return err
			}
		} else if !errkind.IsNotFound(err) {
			return err
		}
		return outbox.MarkDone(ctx, tx, ev)
	})
}

func (d *Dispatcher) filePurge(ctx context.Context, ev *model.SyncEvent, p syncjob.Payload) error {
	if err := d.markProcessing(ctx, ev); err != nil {
		return err
	}
	if err := d.NAS.DeleteFile(ctx, p.SourcePath); err != nil && !ports.IsCode(err, ports.ErrNotFound) {
		return d.retry(ctx, ev, err, "file.purge")
	}
	return d.Store.WithTx(ctx, func(tx ports.Tx) error {
		if so, err := tx.GetStorageObjectForUpdate(ctx, *p.FileID, model.EntityFile, model.TierNAS); err == nil {
			if err := tx.DeleteStorageObject(ctx, so.ID); err != nil {
				return err
			}
		} else if !errkind.IsNotFound(err) {
			return err
		}
		if cacheSO, err := tx.GetStorageObjectForUpdate(ctx, *p.FileID, model.EntityFile, model.TierCache); err == nil {
			if err := tx.DeleteStorageObject(ctx, cacheSO.ID); err != nil {
				return err
			}
		} else if !errkind.IsNotFound(err) {
			return err
		}
		if tm, err := tx.GetTrashMetadataByEntity(ctx, *p.FileID, model.EntityFile); err == nil {
			if err := tx.DeleteTrashMetadata(ctx, tm.ID); err != nil {
				return err
			}
		} else if !errkind.IsNotFound(err) {
			return err
		}
		return outbox.MarkDone(ctx, tx, ev)
	})
}
