package foldersvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
	"github.com/cernbox/docvault/pkg/validate"
)

// CreateInput describes a request to create a folder under an existing
// parent.
type CreateInput struct {
	ParentID  string
	Name      string
	CreatedBy string
	Conflict  model.ConflictStrategy
}

// Create validates the name, locks the parent, resolves a name conflict and
// inserts the new folder plus its SYNCING NAS storage object and PENDING
// CREATE sync event in one transaction, per spec.md §4.5's seven-step shape.
// A SKIP resolution is a no-op: the existing folder is returned unchanged.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Folder, error) {
	if in.Conflict == model.ConflictOverwrite {
		return nil, errkind.Validation("OVERWRITE is not a valid conflict strategy for folders")
	}
	if err := validate.Name(in.Name); err != nil {
		return nil, err
	}

	var result *model.Folder
	var syncEventID string

	err := s.store.WithTx(ctx, func(tx ports.Tx) error {
		parent, err := tx.GetFolderForUpdate(ctx, in.ParentID)
		if err != nil {
			return err
		}
		if parent.State != model.StateActive {
			return errkind.Precondition("parent folder is not active: " + in.ParentID)
		}

		outcome, err := validate.ResolveConflict(in.Name, in.Conflict, func(name string) (bool, error) {
			return nameCollides(ctx, tx, parent.ID, name, "")
		})
		if err != nil {
			return err
		}
		if outcome.Skip {
			existing, err := tx.GetFolderByParentAndName(ctx, &parent.ID, in.Name)
			if err != nil {
				return err
			}
			result = existing
			return nil
		}

		t := now()
		id := newID()
		path := validate.JoinPath(parent.Path, outcome.FinalName)

		folder := &model.Folder{
			ID:        id,
			Name:      outcome.FinalName,
			ParentID:  &parent.ID,
			Path:      path,
			State:     model.StateActive,
			CreatedBy: in.CreatedBy,
			CreatedAt: t,
			UpdatedAt: t,
			Version:   1,
		}
		if err := tx.InsertFolder(ctx, folder); err != nil {
			return err
		}

		so := &model.StorageObject{
			ID:                 newID(),
			FolderID:           &id,
			Tier:               model.TierNAS,
			ObjectKey:          path,
			AvailabilityStatus: model.AvailabilitySyncing,
			CreatedAt:          t,
			UpdatedAt:          t,
		}
		if err := tx.InsertStorageObject(ctx, so); err != nil {
			return err
		}

		ev := newFolderSyncEvent(model.EventCreate, &id, "", path, s.maxRetries)
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
			Action:      syncjob.ActionMkdir,
			FolderID:    &result.ID,
			SyncEventID: syncEventID,
			TargetPath:  result.Path,
		}, syncEventID)
	}
	return result, nil
}
