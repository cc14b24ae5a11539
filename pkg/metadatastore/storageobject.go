package metadatastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
)

// storage objects are split across folder_storage_objects and
// file_storage_objects, per spec.md §6's persisted schema. The two tables
// share column shape; entityType picks which one a call targets.

func tableFor(entityType model.EntityType) (table, idColumn string) {
	if entityType == model.EntityFolder {
		return "folder_storage_objects", "folder_id"
	}
	return "file_storage_objects", "file_id"
}

func scanStorageObject(row rowScanner, entityType model.EntityType, entityID string) (*model.StorageObject, error) {
	var so model.StorageObject
	var tier, availability string
	if err := row.Scan(&so.ID, &tier, &so.ObjectKey, &availability, &so.LeaseCount, &so.CreatedAt, &so.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.NotFound("storage object")
		}
		return nil, err
	}
	so.Tier = model.Tier(tier)
	so.AvailabilityStatus = model.AvailabilityStatus(availability)
	if entityType == model.EntityFolder {
		so.FolderID = &entityID
	} else {
		so.FileID = &entityID
	}
	return &so, nil
}

func getStorageObject(ctx context.Context, q querier, entityID string, entityType model.EntityType, tier model.Tier, forUpdate bool) (*model.StorageObject, error) {
	table, idColumn := tableFor(entityType)
	query := `SELECT id, tier, object_key, availability_status, lease_count, created_at, updated_at FROM ` + table +
		` WHERE ` + idColumn + ` = ? AND tier = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanStorageObject(q.QueryRowContext(ctx, query, entityID, tier), entityType, entityID)
}

func (t *txImpl) GetStorageObjectForUpdate(ctx context.Context, entityID string, entityType model.EntityType, tier model.Tier) (*model.StorageObject, error) {
	return getStorageObject(ctx, t.tx, entityID, entityType, tier, true)
}

func (t *txImpl) InsertStorageObject(ctx context.Context, so *model.StorageObject) error {
	var entityID string
	var entityType model.EntityType
	if so.FolderID != nil {
		entityID, entityType = *so.FolderID, model.EntityFolder
	} else {
		entityID, entityType = *so.FileID, model.EntityFile
	}
	table, idColumn := tableFor(entityType)
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO `+table+` (id, `+idColumn+`, tier, object_key, availability_status, lease_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		so.ID, entityID, so.Tier, so.ObjectKey, so.AvailabilityStatus, so.LeaseCount, so.CreatedAt, so.UpdatedAt)
	return err
}

func (t *txImpl) UpdateStorageObject(ctx context.Context, so *model.StorageObject) error {
	var entityType model.EntityType
	if so.FolderID != nil {
		entityType = model.EntityFolder
	} else {
		entityType = model.EntityFile
	}
	table, _ := tableFor(entityType)
	_, err := t.tx.ExecContext(ctx,
		`UPDATE `+table+` SET object_key = ?, availability_status = ?, lease_count = ?, updated_at = ? WHERE id = ?`,
		so.ObjectKey, so.AvailabilityStatus, so.LeaseCount, time.Now().UTC(), so.ID)
	return err
}

func (t *txImpl) DeleteStorageObject(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM folder_storage_objects WHERE id = ?`, id); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx, `DELETE FROM file_storage_objects WHERE id = ?`, id)
	return err
}

// RewriteDescendantObjectKeys bulk-updates the object_key of every storage
// object (folder or file, NAS or cache tier) whose key begins with
// oldPathPrefix + "/", anchored the same way as RewriteDescendantFolderPaths.
// The subtree is selected by that key prefix alone: folderID is not used in
// the filter, and the joins only limit the update to storage objects whose
// folder or file row exists.
func (t *txImpl) RewriteDescendantObjectKeys(ctx context.Context, folderID string, oldPathPrefix, newPathPrefix string) error {
	now := time.Now().UTC()

	if _, err := t.tx.ExecContext(ctx,
		`UPDATE folder_storage_objects fso
		 JOIN folders f ON f.id = fso.folder_id
		 SET fso.object_key = CONCAT(?, SUBSTRING(fso.object_key, ?)), fso.updated_at = ?
		 WHERE fso.object_key LIKE ?`,
		newPathPrefix, len(oldPathPrefix)+1, now, oldPathPrefix+"/%"); err != nil {
		return err
	}

	_, err := t.tx.ExecContext(ctx,
		`UPDATE file_storage_objects fso
		 JOIN files fl ON fl.id = fso.file_id
		 SET fso.object_key = CONCAT(?, SUBSTRING(fso.object_key, ?)), fso.updated_at = ?
		 WHERE fso.object_key LIKE ?`,
		newPathPrefix, len(oldPathPrefix)+1, now, oldPathPrefix+"/%")
	return err
}
