package filesvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
	"github.com/cernbox/docvault/pkg/validate"
)

// RestoreInput describes a request to restore a trashed file to its
// original folder.
type RestoreInput struct {
	FileID   string
	Conflict model.ConflictStrategy
}

// Restore re-parents a trashed file back into its original folder, renaming
// it if the original name collides. Its TrashMetadata row is left for the
// dispatcher's restore handler to remove once the physical NAS move back
// succeeds.
func (s *Service) Restore(ctx context.Context, in RestoreInput) (*model.File, error) {
	if in.Conflict == "" {
		in.Conflict = model.ConflictRename
	}

	var result *model.File
	var syncEventID, sourcePath, targetPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		file, so, err := requireTrashedFileForUpdate(ctx, tx, in.FileID)
		if err != nil {
			return err
		}

		trashMeta, err := tx.GetTrashMetadataByEntity(ctx, file.ID, model.EntityFile)
		if err != nil {
			return err
		}
		if trashMeta.OriginalParentID == nil {
			return errkind.Precondition("trashed file has no recorded original folder")
		}

		folder, err := tx.GetFolderForUpdate(ctx, *trashMeta.OriginalParentID)
		if err != nil {
			return errkind.Precondition("original folder no longer exists: " + err.Error())
		}
		if folder.State != model.StateActive {
			return errkind.Precondition("original folder is no longer active")
		}

		outcome, err := validate.ResolveConflict(file.Name, in.Conflict, func(name string) (bool, error) {
			return nameCollides(ctx, tx, folder.ID, name, file.ID)
		})
		if err != nil {
			return err
		}

		t := now()
		sourcePath = so.ObjectKey
		targetPath = validate.JoinPath(folder.Path, outcome.FinalName)

		file.State = model.StateActive
		file.FolderID = folder.ID
		file.Name = outcome.FinalName
		file.UpdatedAt = t
		if err := tx.UpdateFile(ctx, file); err != nil {
			return err
		}

		so.AvailabilityStatus = model.AvailabilitySyncing
		so.UpdatedAt = t
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}

		ev := newFileSyncEvent(model.EventRestore, &file.ID, sourcePath, targetPath, s.maxRetries)
		if err := tx.InsertSyncEvent(ctx, ev); err != nil {
			return err
		}

		result = file
		syncEventID = ev.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if syncEventID != "" {
		s.enqueue(ctx, syncjob.Payload{
			Action:      syncjob.ActionRestore,
			FileID:      &result.ID,
			SyncEventID: syncEventID,
			SourcePath:  sourcePath,
			TargetPath:  targetPath,
		}, syncEventID)
	}
	return result, nil
}
