package filesvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
	"github.com/cernbox/docvault/pkg/validate"
)

// MoveInput describes a request to move a file into a different folder.
type MoveInput struct {
	FileID      string
	NewFolderID string
	Conflict    model.ConflictStrategy
}

// Move locks the file and its destination folder (the current folder is not
// locked), and writes the destination's identity into the job payload so the
// dispatcher's move handler can re-check it is still ACTIVE before touching
// the NAS, compensating (reverting) if the destination was concurrently
// trashed.
func (s *Service) Move(ctx context.Context, in MoveInput) (*model.File, error) {
	var result *model.File
	var syncEventID, oldPath, newPath string
	var originalFolderID string
	targetFolderID := in.NewFolderID

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		file, so, err := requireActiveFileForUpdate(ctx, tx, in.FileID)
		if err != nil {
			return err
		}

		if file.FolderID == in.NewFolderID {
			result = file
			return nil
		}

		newFolder, err := tx.GetFolderForUpdate(ctx, in.NewFolderID)
		if err != nil {
			return err
		}
		if newFolder.State != model.StateActive {
			return errNotActiveParent(in.NewFolderID)
		}

		outcome, err := validate.ResolveConflict(file.Name, in.Conflict, func(name string) (bool, error) {
			return nameCollides(ctx, tx, newFolder.ID, name, file.ID)
		})
		if err != nil {
			return err
		}
		if outcome.Skip {
			result = file
			return nil
		}

		t := now()
		oldPath = so.ObjectKey
		newPath = validate.JoinPath(newFolder.Path, outcome.FinalName)
		originalFolderID = file.FolderID

		if outcome.Overwrite {
			if overwriting, err := tx.GetFileByFolderAndName(ctx, newFolder.ID, outcome.FinalName); err == nil {
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
			} else if !errkind.IsNotFound(err) {
				return err
			}
		}

		file.FolderID = newFolder.ID
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

		ev := newFileSyncEvent(model.EventMove, &file.ID, oldPath, newPath, s.maxRetries)
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
			Action:           syncjob.ActionMove,
			FileID:           &result.ID,
			SyncEventID:      syncEventID,
			SourcePath:       oldPath,
			TargetPath:       newPath,
			TargetParentID:   &targetFolderID,
			OriginalParentID: &originalFolderID,
		}, syncEventID)
	}
	return result, nil
}
