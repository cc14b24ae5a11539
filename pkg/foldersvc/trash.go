package foldersvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
)

// TrashInput describes a request to move a folder to trash.
type TrashInput struct {
	FolderID  string
	DeletedBy string
}

// Trash rejects a non-empty folder with FOLDER_NOT_EMPTY (spec.md §4.5): a
// folder can only be trashed once it holds no active children, so trash
// never needs to cascade. The folder's logical path is left untouched —
// TRASHED entities are excluded from sibling-uniqueness checks — only its
// NAS storage object is redirected to the hidden trash location.
func (s *Service) Trash(ctx context.Context, in TrashInput) (*model.Folder, error) {
	if in.FolderID == RootFolderID {
		return nil, errkind.Validation("the root folder cannot be trashed")
	}

	var result *model.Folder
	var syncEventID, sourcePath, targetPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		folder, so, err := requireActiveFolderForUpdate(ctx, tx, in.FolderID)
		if err != nil {
			return err
		}

		childFolders, childFiles, err := tx.ListActiveChildren(ctx, folder.ID)
		if err != nil {
			return err
		}
		if len(childFolders) > 0 || len(childFiles) > 0 {
			return errkind.Conflict("FOLDER_NOT_EMPTY: folder has active children and cannot be trashed")
		}

		t := now()
		sourcePath = so.ObjectKey
		targetPath = trashObjectKey(folder.ID)

		folder.State = model.StateTrashed
		folder.UpdatedAt = t
		if err := tx.UpdateFolder(ctx, folder); err != nil {
			return err
		}

		so.AvailabilityStatus = model.AvailabilitySyncing
		so.UpdatedAt = t
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}

		trashMeta := &model.TrashMetadata{
			ID:               newID(),
			FolderID:         &folder.ID,
			OriginalPath:     folder.Path,
			OriginalParentID: folder.ParentID,
			DeletedBy:        in.DeletedBy,
			DeletedAt:        t,
			ExpiresAt:        t.AddDate(0, 0, s.trashRetentionDays),
		}
		if err := tx.InsertTrashMetadata(ctx, trashMeta); err != nil {
			return err
		}

		ev := newFolderSyncEvent(model.EventTrash, &folder.ID, sourcePath, targetPath, s.maxRetries)
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
			Action:      syncjob.ActionTrash,
			FolderID:    &result.ID,
			SyncEventID: syncEventID,
			SourcePath:  sourcePath,
			TargetPath:  targetPath,
		}, syncEventID)
	}
	return result, nil
}
