package metadatastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
)

const selectFileSQL = `SELECT id, name, folder_id, size_bytes, mime_type, checksum, state, created_by, created_at, updated_at, version FROM files WHERE id = ?`

const selectFileForUpdateSQL = selectFileSQL + ` FOR UPDATE`

const selectFileByFolderAndNameSQL = `SELECT id, name, folder_id, size_bytes, mime_type, checksum, state, created_by, created_at, updated_at, version
	FROM files WHERE folder_id = ? AND name = ? AND state = 'ACTIVE'`

func scanFile(row rowScanner) (*model.File, error) {
	var f model.File
	var checksum sql.NullString
	if err := row.Scan(&f.ID, &f.Name, &f.FolderID, &f.SizeBytes, &f.MimeType, &checksum, &f.State, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt, &f.Version); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.NotFound("file")
		}
		return nil, err
	}
	if checksum.Valid {
		f.Checksum = &checksum.String
	}
	return &f, nil
}

func (t *txImpl) GetFileForUpdate(ctx context.Context, id string) (*model.File, error) {
	return scanFile(t.tx.QueryRowContext(ctx, selectFileForUpdateSQL, id))
}

func (t *txImpl) GetFileByFolderAndName(ctx context.Context, folderID string, name string) (*model.File, error) {
	return scanFile(t.tx.QueryRowContext(ctx, selectFileByFolderAndNameSQL, folderID, name))
}

func (t *txImpl) InsertFile(ctx context.Context, f *model.File) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO files (id, name, folder_id, size_bytes, mime_type, checksum, state, created_by, created_at, updated_at, version) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.FolderID, f.SizeBytes, f.MimeType, f.Checksum, f.State, f.CreatedBy, f.CreatedAt, f.UpdatedAt, f.Version)
	return err
}

func (t *txImpl) UpdateFile(ctx context.Context, f *model.File) error {
	f.Version++
	_, err := t.tx.ExecContext(ctx,
		`UPDATE files SET name = ?, folder_id = ?, size_bytes = ?, mime_type = ?, checksum = ?, state = ?, updated_at = ?, version = ? WHERE id = ?`,
		f.Name, f.FolderID, f.SizeBytes, f.MimeType, f.Checksum, f.State, time.Now().UTC(), f.Version, f.ID)
	return err
}
