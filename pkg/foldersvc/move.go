package foldersvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
	"github.com/cernbox/docvault/pkg/validate"
)

// MoveInput describes a request to reparent a folder, optionally resolving a
// name collision at the destination.
type MoveInput struct {
	FolderID    string
	NewParentID string
	Conflict    model.ConflictStrategy
}

// Move locks the folder and its destination parent (the current parent is
// not locked), rejects moving a folder into itself or one of its own
// descendants, and
// rewrites the folder's path plus every descendant's path/object key, per
// spec.md §4.3. The target parent's identity travels with the job payload so
// the dispatcher can re-check it is still ACTIVE before writing to the NAS,
// and compensate (revert) if it was concurrently trashed.
func (s *Service) Move(ctx context.Context, in MoveInput) (*model.Folder, error) {
	if in.Conflict == model.ConflictOverwrite {
		return nil, errkind.Validation("OVERWRITE is not a valid conflict strategy for folders")
	}
	if in.FolderID == RootFolderID {
		return nil, errkind.Validation("the root folder cannot be moved")
	}

	var result *model.Folder
	var syncEventID, oldPath, newPath string
	var originalParentID *string
	targetParentID := in.NewParentID

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		folder, so, err := requireActiveFolderForUpdate(ctx, tx, in.FolderID)
		if err != nil {
			return err
		}

		if *folder.ParentID == in.NewParentID {
			result = folder
			return nil
		}

		newParent, _, err := requireActiveFolderForUpdate(ctx, tx, in.NewParentID)
		if err != nil {
			return err
		}
		if newParent.ID == folder.ID || validate.IsDescendantPath(folder.Path, newParent.Path) {
			return errkind.Conflict("cannot move a folder into itself or one of its own descendants")
		}

		outcome, err := validate.ResolveConflict(folder.Name, in.Conflict, func(name string) (bool, error) {
			return nameCollides(ctx, tx, newParent.ID, name, folder.ID)
		})
		if err != nil {
			return err
		}
		if outcome.Skip {
			result = folder
			return nil
		}

		t := now()
		oldPath = folder.Path
		newPath = validate.JoinPath(newParent.Path, outcome.FinalName)
		originalParentID = folder.ParentID

		folder.ParentID = &newParent.ID
		folder.Name = outcome.FinalName
		folder.Path = newPath
		folder.UpdatedAt = t
		if err := tx.UpdateFolder(ctx, folder); err != nil {
			return err
		}

		so.ObjectKey = newPath
		so.AvailabilityStatus = model.AvailabilitySyncing
		so.UpdatedAt = t
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}

		if err := tx.RewriteDescendantFolderPaths(ctx, oldPath, newPath); err != nil {
			return err
		}
		if err := tx.RewriteDescendantObjectKeys(ctx, folder.ID, oldPath, newPath); err != nil {
			return err
		}

		ev := newFolderSyncEvent(model.EventMove, &folder.ID, oldPath, newPath, s.maxRetries)
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
			Action:           syncjob.ActionMove,
			FolderID:         &result.ID,
			SyncEventID:      syncEventID,
			SourcePath:       oldPath,
			TargetPath:       newPath,
			TargetParentID:   &targetParentID,
			OriginalParentID: originalParentID,
		}, syncEventID)
	}
	return result, nil
}
