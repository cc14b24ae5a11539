package filesvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
)

// Purge permanently deletes a trashed file. As with folder purge, the
// storage object and trash metadata rows are left for the dispatcher to
// remove once the physical NAS delete is confirmed.
func (s *Service) Purge(ctx context.Context, fileID string) error {
	var syncEventID, targetPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		file, so, err := requireTrashedFileForUpdate(ctx, tx, fileID)
		if err != nil {
			return err
		}

		t := now()
		targetPath = so.ObjectKey

		file.State = model.StateDeleted
		file.UpdatedAt = t
		if err := tx.UpdateFile(ctx, file); err != nil {
			return err
		}

		so.AvailabilityStatus = model.AvailabilitySyncing
		so.UpdatedAt = t
		if err := tx.UpdateStorageObject(ctx, so); err != nil {
			return err
		}

		ev := newFileSyncEvent(model.EventPurge, &file.ID, targetPath, "", s.maxRetries)
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
			FileID:      &fileID,
			SyncEventID: syncEventID,
			SourcePath:  targetPath,
		}, syncEventID)
	}
	return nil
}
