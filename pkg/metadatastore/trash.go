package metadatastore

import (
	"context"
	"database/sql"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
)

func scanTrashMetadata(row rowScanner) (*model.TrashMetadata, error) {
	var tmd model.TrashMetadata
	var fileID, folderID, originalParentID sql.NullString
	if err := row.Scan(&tmd.ID, &fileID, &folderID, &tmd.OriginalPath, &originalParentID, &tmd.DeletedBy, &tmd.DeletedAt, &tmd.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.NotFound("trash metadata")
		}
		return nil, err
	}
	if fileID.Valid {
		tmd.FileID = &fileID.String
	}
	if folderID.Valid {
		tmd.FolderID = &folderID.String
	}
	if originalParentID.Valid {
		tmd.OriginalParentID = &originalParentID.String
	}
	return &tmd, nil
}

func (t *txImpl) InsertTrashMetadata(ctx context.Context, tmd *model.TrashMetadata) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO trash_metadata (id, file_id, folder_id, original_path, original_parent_id, deleted_by, deleted_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tmd.ID, tmd.FileID, tmd.FolderID, tmd.OriginalPath, tmd.OriginalParentID, tmd.DeletedBy, tmd.DeletedAt, tmd.ExpiresAt)
	return err
}

func (t *txImpl) GetTrashMetadataByEntity(ctx context.Context, entityID string, entityType model.EntityType) (*model.TrashMetadata, error) {
	column := "file_id"
	if entityType == model.EntityFolder {
		column = "folder_id"
	}
	row := t.tx.QueryRowContext(ctx,
		`SELECT id, file_id, folder_id, original_path, original_parent_id, deleted_by, deleted_at, expires_at FROM trash_metadata WHERE `+column+` = ?`,
		entityID)
	return scanTrashMetadata(row)
}

func (t *txImpl) DeleteTrashMetadata(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM trash_metadata WHERE id = ?`, id)
	return err
}
