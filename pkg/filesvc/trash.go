package filesvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
)

// TrashInput describes a request to move a file to trash.
type TrashInput struct {
	FileID    string
	DeletedBy string
}

// Trash has no FOLDER_NOT_EMPTY-equivalent restriction — a file has no
// children — but if the cache storage object's LeaseCount is still positive
// (an open download/stream handle) the command still succeeds: metadata
// flips to TRASHED immediately, and it is the sync dispatcher's trash
// handler that must wait out the lease before it can safely physically
// relocate the NAS object, retrying rather than failing outright.
func (s *Service) Trash(ctx context.Context, in TrashInput) (*model.File, error) {
	var result *model.File
	var syncEventID, sourcePath, targetPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		file, so, err := requireActiveFileForUpdate(ctx, tx, in.FileID)
		if err != nil {
			return err
		}

		t := now()
		sourcePath = so.ObjectKey
		targetPath = trashObjectKey(file.ID)

		file.State = model.StateTrashed
		file.UpdatedAt = t
		if err := tx.UpdateFile(ctx, file); err != nil {
			return err
		}

		so.AvailabilityStatus = model.AvailabilitySyncing
		so.UpdatedAt = t
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}

		folderID := file.FolderID
		trashMeta := &model.TrashMetadata{
			ID:               newID(),
			FileID:           &file.ID,
			OriginalPath:     sourcePath,
			OriginalParentID: &folderID,
			DeletedBy:        in.DeletedBy,
			DeletedAt:        t,
			ExpiresAt:        t.AddDate(0, 0, s.trashRetentionDays),
		}
		if err := tx.InsertTrashMetadata(ctx, trashMeta); err != nil {
			return err
		}

		ev := newFileSyncEvent(model.EventTrash, &file.ID, sourcePath, targetPath, s.maxRetries)
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
			Action:      syncjob.ActionTrash,
			FileID:      &result.ID,
			SyncEventID: syncEventID,
			SourcePath:  sourcePath,
			TargetPath:  targetPath,
		}, syncEventID)
	}
	return result, nil
}
