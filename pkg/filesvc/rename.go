package filesvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
	"github.com/cernbox/docvault/pkg/validate"
)

// RenameInput describes a request to rename a file in place.
type RenameInput struct {
	FileID   string
	NewName  string
	Conflict model.ConflictStrategy
}

// Rename validates the new name, locks the file and its parent folder, and
// resolves a name conflict among the folder's active children. Unlike
// folder rename there is no descendant rewrite: a file has no children.
func (s *Service) Rename(ctx context.Context, in RenameInput) (*model.File, error) {
	if err := validate.Name(in.NewName); err != nil {
		return nil, err
	}

	var result *model.File
	var syncEventID, oldPath, newPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		file, so, err := requireActiveFileForUpdate(ctx, tx, in.FileID)
		if err != nil {
			return err
		}
		folder, err := tx.GetFolderForUpdate(ctx, file.FolderID)
		if err != nil {
			return err
		}

		if in.NewName == file.Name {
			result = file
			return nil
		}

		var overwriting *model.File
		outcome, err := validate.ResolveConflict(in.NewName, in.Conflict, func(name string) (bool, error) {
			return nameCollides(ctx, tx, folder.ID, name, file.ID)
		})
		if err != nil {
			return err
		}
		if outcome.Overwrite {
			overwriting, err = tx.GetFileByFolderAndName(ctx, folder.ID, in.NewName)
			if err != nil {
				return err
			}
			if overwriting.ID == file.ID {
				overwriting = nil
			}
		}
		if outcome.Skip {
			result = file
			return nil
		}

		t := now()
		if overwriting != nil {
			// The target of the rename already exists; OVERWRITE means its
			// metadata row is retired now. The physical object at that NAS
			// path is replaced as a side effect of the rename's own move,
			// so no separate purge sync event is needed for it.
			overwriting.State = model.StateDeleted
			overwriting.UpdatedAt = t
			if err := tx.UpdateFile(ctx, overwriting); err != nil {
				return err
			}
			if overwriteSO, err := tx.GetStorageObjectForUpdate(ctx, overwriting.ID, model.EntityFile, model.TierNAS); err == nil {
				if err := tx.DeleteStorageObject(ctx, overwriteSO.ID); err != nil {
					return err
				}
			} else if !errkind.IsNotFound(err) {
				return err
			}
		}

		oldPath = so.ObjectKey
		newPath = validate.JoinPath(folder.Path, outcome.FinalName)

		file.Name = outcome.FinalName
		file.UpdatedAt = t
		if err := tx.UpdateFile(ctx, file); err != nil {
			return err
		}

		so.ObjectKey = newPath
		so.AvailabilityStatus = model.AvailabilitySyncing
		so.UpdatedAt = t
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}

		ev := newFileSyncEvent(model.EventRename, &file.ID, oldPath, newPath, s.maxRetries)
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
			Action:      syncjob.ActionRename,
			FileID:      &result.ID,
			SyncEventID: syncEventID,
			SourcePath:  oldPath,
			TargetPath:  newPath,
		}, syncEventID)
	}
	return result, nil
}
