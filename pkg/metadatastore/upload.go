package metadatastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
)

const selectUploadSessionSQL = `SELECT id, file_name, folder_id, total_size, part_size, total_parts, mime_type, status,
	uploaded_bytes, expires_at, created_by, created_at, updated_at, file_id FROM upload_sessions WHERE id = ?`

func scanUploadSession(row rowScanner) (*model.UploadSession, error) {
	var s model.UploadSession
	var fileID sql.NullString
	if err := row.Scan(&s.ID, &s.FileName, &s.FolderID, &s.TotalSize, &s.PartSize, &s.TotalParts, &s.MimeType, &s.Status,
		&s.UploadedBytes, &s.ExpiresAt, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt, &fileID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.NotFound("upload session")
		}
		return nil, err
	}
	if fileID.Valid {
		s.FileID = &fileID.String
	}
	s.CompletedParts = map[int]model.UploadedPart{}
	return &s, nil
}

func (t *txImpl) InsertUploadSession(ctx context.Context, s *model.UploadSession) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO upload_sessions (id, file_name, folder_id, total_size, part_size, total_parts, mime_type, status,
			uploaded_bytes, expires_at, created_by, created_at, updated_at, file_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.FileName, s.FolderID, s.TotalSize, s.PartSize, s.TotalParts, s.MimeType, s.Status,
		s.UploadedBytes, s.ExpiresAt, s.CreatedBy, s.CreatedAt, s.UpdatedAt, s.FileID)
	return err
}

func (t *txImpl) GetUploadSessionForUpdate(ctx context.Context, id string) (*model.UploadSession, error) {
	s, err := scanUploadSession(t.tx.QueryRowContext(ctx, selectUploadSessionSQL+" FOR UPDATE", id))
	if err != nil {
		return nil, err
	}
	if err := t.loadParts(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (t *txImpl) loadParts(ctx context.Context, s *model.UploadSession) error {
	rows, err := t.tx.QueryContext(ctx, `SELECT part_number, etag, size FROM upload_session_parts WHERE session_id = ?`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.UploadedPart
		if err := rows.Scan(&p.PartNumber, &p.ETag, &p.Size); err != nil {
			return err
		}
		s.CompletedParts[p.PartNumber] = p
	}
	return rows.Err()
}

// UpdateUploadSession persists the session row and replaces its part set
// with CompletedParts, so UploadPart and Complete can both just mutate the
// in-memory session and call this once under the row lock.
func (t *txImpl) UpdateUploadSession(ctx context.Context, s *model.UploadSession) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE upload_sessions SET status = ?, uploaded_bytes = ?, updated_at = ?, file_id = ? WHERE id = ?`,
		s.Status, s.UploadedBytes, time.Now().UTC(), s.FileID, s.ID)
	if err != nil {
		return err
	}

	for _, p := range s.CompletedParts {
		if _, err := t.tx.ExecContext(ctx,
			`REPLACE INTO upload_session_parts (session_id, part_number, etag, size) VALUES (?, ?, ?, ?)`,
			s.ID, p.PartNumber, p.ETag, p.Size); err != nil {
			return err
		}
	}
	return nil
}
