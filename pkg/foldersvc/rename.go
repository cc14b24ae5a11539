package foldersvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
	"github.com/cernbox/docvault/pkg/validate"
)

// RenameInput describes a request to rename a folder in place.
type RenameInput struct {
	FolderID string
	NewName  string
	Conflict model.ConflictStrategy
}

// Rename validates the new name, locks the folder and its parent, resolves a
// name conflict among the parent's active children, and rewrites the
// folder's own path plus every descendant's path and object key in the same
// transaction (spec.md §4.3's anchored prefix rewrite).
func (s *Service) Rename(ctx context.Context, in RenameInput) (*model.Folder, error) {
	if in.Conflict == model.ConflictOverwrite {
		return nil, errkind.Validation("OVERWRITE is not a valid conflict strategy for folders")
	}
	if err := validate.Name(in.NewName); err != nil {
		return nil, err
	}
	if in.FolderID == RootFolderID {
		return nil, errkind.Validation("the root folder cannot be renamed")
	}

	var result *model.Folder
	var syncEventID, oldPath, newPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		folder, so, err := requireActiveFolderForUpdate(ctx, tx, in.FolderID)
		if err != nil {
			return err
		}
		parent, err := tx.GetFolderForUpdate(ctx, *folder.ParentID)
		if err != nil {
			return err
		}

		if in.NewName == folder.Name {
			result = folder
			return nil
		}

		outcome, err := validate.ResolveConflict(in.NewName, in.Conflict, func(name string) (bool, error) {
			return nameCollides(ctx, tx, parent.ID, name, folder.ID)
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
		newPath = validate.JoinPath(parent.Path, outcome.FinalName)

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

		ev := newFolderSyncEvent(model.EventRename, &folder.ID, oldPath, newPath, s.maxRetries)
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
			Action:      syncjob.ActionRename,
			FolderID:    &result.ID,
			SyncEventID: syncEventID,
			SourcePath:  oldPath,
			TargetPath:  newPath,
		}, syncEventID)
	}
	return result, nil
}
