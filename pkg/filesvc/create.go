package filesvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
	"github.com/cernbox/docvault/pkg/validate"
)

// CreateInput describes a request to create a file whose content has
// already been written to the cache tier (by pkg/uploadengine or a direct
// small-file upload), pending NAS sync.
type CreateInput struct {
	FolderID  string
	Name      string
	SizeBytes int64
	MimeType  string
	Checksum  *string
	CreatedBy string
	Conflict  model.ConflictStrategy
}

// Create validates the name, locks the parent folder, resolves a name
// conflict (OVERWRITE replaces an existing file's content in place, keeping
// its identity) and inserts the file plus its SYNCING NAS storage object and
// PENDING CREATE sync event in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.File, error) {
	if err := validate.Name(in.Name); err != nil {
		return nil, err
	}

	var result *model.File
	var syncEventID, targetPath string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		folder, err := tx.GetFolderForUpdate(ctx, in.FolderID)
		if err != nil {
			return err
		}
		if folder.State != model.StateActive {
			return errNotActiveParent(in.FolderID)
		}

		var overwriting *model.File
		outcome, err := validate.ResolveConflict(in.Name, in.Conflict, func(name string) (bool, error) {
			return nameCollides(ctx, tx, folder.ID, name, "")
		})
		if err != nil {
			return err
		}
		if outcome.Overwrite {
			overwriting, err = tx.GetFileByFolderAndName(ctx, folder.ID, in.Name)
			if err != nil {
				return err
			}
		}
		if outcome.Skip {
			existing, err := tx.GetFileByFolderAndName(ctx, folder.ID, in.Name)
			if err != nil {
				return err
			}
			result = existing
			return nil
		}

		t := now()
		targetPath = validate.JoinPath(folder.Path, outcome.FinalName)

		var file *model.File
		if overwriting != nil {
			overwriting.SizeBytes = in.SizeBytes
			overwriting.MimeType = in.MimeType
			overwriting.Checksum = in.Checksum
			overwriting.UpdatedAt = t
			if err := tx.UpdateFile(ctx, overwriting); err != nil {
				return err
			}
			file = overwriting

			so, err := tx.GetStorageObjectForUpdate(ctx, file.ID, model.EntityFile, model.TierNAS)
			if err != nil {
				return err
			}
			so.AvailabilityStatus = model.AvailabilitySyncing
			so.UpdatedAt = t
			if err := tx.UpdateStorageObject(ctx, so); err != nil {
				return err
			}
		} else {
			id := newID()
			file = &model.File{
				ID:        id,
				Name:      outcome.FinalName,
				FolderID:  folder.ID,
				SizeBytes: in.SizeBytes,
				MimeType:  in.MimeType,
				Checksum:  in.Checksum,
				State:     model.StateActive,
				CreatedBy: in.CreatedBy,
				CreatedAt: t,
				UpdatedAt: t,
				Version:   1,
			}
			if err := tx.InsertFile(ctx, file); err != nil {
				return err
			}
			so := &model.StorageObject{
				ID:                 newID(),
				FileID:             &id,
				Tier:               model.TierNAS,
				ObjectKey:          targetPath,
				AvailabilityStatus: model.AvailabilitySyncing,
				CreatedAt:          t,
				UpdatedAt:          t,
			}
			if err := tx.InsertStorageObject(ctx, so); err != nil {
				return err
			}
		}

		ev := newFileSyncEvent(model.EventCreate, &file.ID, "", targetPath, s.maxRetries)
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
			Action:      syncjob.ActionMkdir,
			FileID:      &result.ID,
			SyncEventID: syncEventID,
			TargetPath:  targetPath,
		}, syncEventID)
	}
	return result, nil
}
