package metadatastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
)

const selectFolderSQL = `SELECT id, name, parent_id, path, state, created_by, created_at, updated_at, version FROM folders WHERE id = ?`

const selectFolderForUpdateSQL = selectFolderSQL + ` FOR UPDATE`

const selectFolderByParentAndNameSQL = `SELECT id, name, parent_id, path, state, created_by, created_at, updated_at, version
	FROM folders WHERE name = ? AND state = 'ACTIVE' AND ((parent_id IS NULL AND ? IS NULL) OR parent_id = ?)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFolder(row rowScanner) (*model.Folder, error) {
	var f model.Folder
	var parentID sql.NullString
	if err := row.Scan(&f.ID, &f.Name, &parentID, &f.Path, &f.State, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt, &f.Version); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.NotFound("folder")
		}
		return nil, err
	}
	if parentID.Valid {
		f.ParentID = &parentID.String
	}
	return &f, nil
}

func (t *txImpl) GetFolderForUpdate(ctx context.Context, id string) (*model.Folder, error) {
	return scanFolder(t.tx.QueryRowContext(ctx, selectFolderForUpdateSQL, id))
}

func (t *txImpl) GetFolderByParentAndName(ctx context.Context, parentID *string, name string) (*model.Folder, error) {
	return scanFolder(t.tx.QueryRowContext(ctx, selectFolderByParentAndNameSQL, name, parentID, parentID))
}

func (t *txImpl) ListActiveChildren(ctx context.Context, folderID string) ([]model.Folder, []model.File, error) {
	folderRows, err := t.tx.QueryContext(ctx,
		`SELECT id, name, parent_id, path, state, created_by, created_at, updated_at, version FROM folders WHERE parent_id = ? AND state = 'ACTIVE'`,
		folderID)
	if err != nil {
		return nil, nil, err
	}
	defer folderRows.Close()

	var folders []model.Folder
	for folderRows.Next() {
		f, err := scanFolder(folderRows)
		if err != nil {
			return nil, nil, err
		}
		folders = append(folders, *f)
	}
	if err := folderRows.Err(); err != nil {
		return nil, nil, err
	}

	fileRows, err := t.tx.QueryContext(ctx,
		`SELECT id, name, folder_id, size_bytes, mime_type, checksum, state, created_by, created_at, updated_at, version FROM files WHERE folder_id = ? AND state = 'ACTIVE'`,
		folderID)
	if err != nil {
		return nil, nil, err
	}
	defer fileRows.Close()

	var files []model.File
	for fileRows.Next() {
		fl, err := scanFile(fileRows)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, *fl)
	}
	if err := fileRows.Err(); err != nil {
		return nil, nil, err
	}

	return folders, files, nil
}

func (t *txImpl) InsertFolder(ctx context.Context, f *model.Folder) error {
	now := f.UpdatedAt
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO folders (id, name, parent_id, path, state, created_by, created_at, updated_at, version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.ParentID, f.Path, f.State, f.CreatedBy, f.CreatedAt, now, f.Version)
	return err
}

func (t *txImpl) UpdateFolder(ctx context.Context, f *model.Folder) error {
	f.Version++
	_, err := t.tx.ExecContext(ctx,
		`UPDATE folders SET name = ?, parent_id = ?, path = ?, state = ?, updated_at = ?, version = ? WHERE id = ?`,
		f.Name, f.ParentID, f.Path, f.State, time.Now().UTC(), f.Version, f.ID)
	return err
}

// RewriteDescendantFolderPaths bulk-updates every folder whose path begins
// with oldPathPrefix + "/" to start with newPathPrefix + "/" instead,
// anchored at a "/" boundary so that e.g. renaming "/a/b" never touches
// "/a/bc" (spec.md §4.3 / §9 "Path rewrites").
func (t *txImpl) RewriteDescendantFolderPaths(ctx context.Context, oldPathPrefix, newPathPrefix string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE folders SET path = CONCAT(?, SUBSTRING(path, ?)), updated_at = ? WHERE path LIKE ?`,
		newPathPrefix, len(oldPathPrefix)+1, time.Now().UTC(), oldPathPrefix+"/%")
	return err
}
