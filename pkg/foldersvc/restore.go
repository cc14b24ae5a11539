package foldersvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
	"github.com/cernbox/docvault/pkg/validate"
)

// RestoreInput describes a request to restore a trashed folder to its
// original parent. Conflict defaults to RENAME when the original name is
// now taken, since the caller did not choose a new name.
type RestoreInput struct {
	FolderID string
	Conflict model.ConflictStrategy
}

// Restore re-parents a trashed folder back under its original parent,
// renaming it if the original name collides, and flips its metadata state
// back to ACTIVE immediately. The TrashMetadata row is left in place: the
// dispatcher's restore handler deletes it only after the physical NAS move
// succeeds, so a trash-expiry sweep can never race an in-flight restore.
func (s *Service) Restore(ctx context.Context, in RestoreInput) (*model.Folder, error) {
	if in.Conflict == "" {
		in.Conflict = model.ConflictRename
	}
	if in.Conflict == model.ConflictOverwrite {
		return nil, errkind.Validation("OVERWRITE is not a valid conflict strategy for folders")
	}

	var result *model.Folder
	var syncEventID, sourcePath, targetPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		folder, so, err := requireTrashedFolderForUpdate(ctx, tx, in.FolderID)
		if err != nil {
			return err
		}

		trashMeta, err := tx.GetTrashMetadataByEntity(ctx, folder.ID, model.EntityFolder)
		if err != nil {
			return err
		}
		if trashMeta.OriginalParentID == nil {
			return errkind.Precondition("trashed folder has no recorded original parent")
		}

		parent, err := tx.GetFolderForUpdate(ctx, *trashMeta.OriginalParentID)
		if err != nil {
			return errkind.Precondition("original parent folder no longer exists: " + err.Error())
		}
		if parent.State != model.StateActive {
			return errkind.Precondition("original parent folder is no longer active")
		}

		outcome, err := validate.ResolveConflict(folder.Name, in.Conflict, func(name string) (bool, error) {
			return nameCollides(ctx, tx, parent.ID, name, folder.ID)
		})
		if err != nil {
			return err
		}

		t := now()
		sourcePath = so.ObjectKey
		targetPath = validate.JoinPath(parent.Path, outcome.FinalName)

		folder.State = model.StateActive
		folder.ParentID = &parent.ID
		folder.Name = outcome.FinalName
		folder.Path = targetPath
		folder.UpdatedAt = t
		if err := tx.UpdateFolder(ctx, folder); err != nil {
			return err
		}

		so.AvailabilityStatus = model.AvailabilitySyncing
		so.UpdatedAt = t
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}

		ev := newFolderSyncEvent(model.EventRestore, &folder.ID, sourcePath, targetPath, s.maxRetries)
		if err := tx.InsertSyncEvent(ctx, ev); err != nil {
			return err
		}

		result = folder
		syncEventID = ev.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if syncEventID != "" {
		s.enqueue(ctx, syncjob.Payload{
			Action:      syncjob.ActionRestore,
			FolderID:    &result.ID,
			SyncEventID: syncEventID,
			SourcePath:  sourcePath,
			TargetPath:  targetPath,
		}, syncEventID)
	}
	return result, nil
}
