package foldersvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
)

// Purge permanently deletes a trashed folder. The metadata row flips to
// DELETED immediately; the storage object and trash metadata rows are left
// for the dispatcher's purge handler to remove once the physical NAS delete
// has actually happened, so a crash mid-purge leaves a recoverable PENDING
// event rather than an orphaned storage object pointing at nothing.
func (s *Service) Purge(ctx context.Context, folderID string) error {
	var syncEventID, targetPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		folder, so, err := requireTrashedFolderForUpdate(ctx, tx, folderID)
		if err != nil {
			return err
		}

		t := now()
		targetPath = so.ObjectKey

		folder.State = model.StateDeleted
		folder.UpdatedAt = t
		if err := tx.UpdateFolder(ctx, folder); err != nil {
			return err
		}

		so.AvailabilityStatus = model.AvailabilitySyncing
		so.UpdatedAt = t
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}

		ev := newFolderSyncEvent(model.EventPurge, &folder.ID, targetPath, "", s.maxRetries)
		if err := tx.InsertSyncEvent(ctx, ev); err != nil {
			return err
		}

		syncEventID = ev.ID
		return nil
	})
	if err != nil {
		return err
	}
	if syncEventID != "" {
		s.enqueue(ctx, syncjob.Payload{
			Action:      syncjob.ActionPurge,
			FolderID:    &folderID,
			SyncEventID: syncEventID,
			SourcePath:  targetPath,
		}, syncEventID)
	}
	return nil
}
