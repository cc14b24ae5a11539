package foldersvc

import (
	"context"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
)

// Bootstrap creates the tree root the first time docvault starts against a
// fresh database: a folder with no name and no parent at path "/", and a NAS
// storage object that is already AVAILABLE since there is nothing to sync —
// the root's physical directory is expected to pre-exist on the NAS mount.
// Bootstrap is idempotent: if the root already exists it returns nil.
func (s *Service) Bootstrap(ctx context.Context) error {
	if _, err := s.store.GetFolder(ctx, RootFolderID); err == nil {
		return nil
	} else if !errkind.IsNotFound(err) {
		return err
	}

	return s.store.WithTx(ctx, func(tx ports.Tx) error {
		t := now()
		root := &model.Folder{
			ID:        RootFolderID,
			Name:      "",
			ParentID:  nil,
			Path:      "/",
			State:     model.StateActive,
			CreatedBy: "system",
			CreatedAt: t,
			UpdatedAt: t,
			Version:   1,
		}
		if err := tx.InsertFolder(ctx, root); err != nil {
			return err
		}
		so := &model.StorageObject{
			ID:                 newID(),
			FolderID:           &root.ID,
			Tier:               model.TierNAS,
			ObjectKey:          "/",
			AvailabilityStatus: model.AvailabilityAvailable,
			CreatedAt:          t,
			UpdatedAt:          t,
		}
		return tx.InsertStorageObject(ctx, so)
	})
}
