package metadatastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
)

const selectSyncEventSQL = `SELECT id, event_type, target_type, file_id, folder_id, source_path, target_path, status,
	retry_count, max_retries, error_message, metadata, created_at, updated_at, processed_at FROM sync_events WHERE id = ?`

const selectLatestSyncEventForFolderSQL = `SELECT id, event_type, target_type, file_id, folder_id, source_path, target_path, status,
	retry_count, max_retries, error_message, metadata, created_at, updated_at, processed_at FROM sync_events
	WHERE folder_id = ? ORDER BY created_at DESC LIMIT 1`

const selectLatestSyncEventForFileSQL = `SELECT id, event_type, target_type, file_id, folder_id, source_path, target_path, status,
	retry_count, max_retries, error_message, metadata, created_at, updated_at, processed_at FROM sync_events
	WHERE file_id = ? ORDER BY created_at DESC LIMIT 1`

func scanSyncEvent(row rowScanner) (*model.SyncEvent, error) {
	var e model.SyncEvent
	var fileID, folderID, errMsg, meta sql.NullString
	var processedAt sql.NullTime
	if err := row.Scan(&e.ID, &e.EventType, &e.TargetType, &fileID, &folderID, &e.SourcePath, &e.TargetPath, &e.Status,
		&e.RetryCount, &e.MaxRetries, &errMsg, &meta, &e.CreatedAt, &e.UpdatedAt, &processedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.NotFound("sync event")
		}
		return nil, err
	}
	if fileID.Valid {
		e.FileID = &fileID.String
	}
	if folderID.Valid {
		e.FolderID = &folderID.String
	}
	if errMsg.Valid {
		e.ErrorMessage = &errMsg.String
	}
	if processedAt.Valid {
		e.ProcessedAt = &processedAt.Time
	}
	if meta.Valid && meta.String != "" {
		_ = json.Unmarshal([]byte(meta.String), &e.Metadata)
	}
	return &e, nil
}

func (t *txImpl) InsertSyncEvent(ctx context.Context, e *model.SyncEvent) error {
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO sync_events (id, event_type, target_type, file_id, folder_id, source_path, target_path, status,
			retry_count, max_retries, error_message, metadata, created_at, updated_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EventType, e.TargetType, e.FileID, e.FolderID, e.SourcePath, e.TargetPath, e.Status,
		e.RetryCount, e.MaxRetries, e.ErrorMessage, string(metaJSON), e.CreatedAt, e.UpdatedAt, e.ProcessedAt)
	return err
}

func (t *txImpl) GetSyncEvent(ctx context.Context, id string) (*model.SyncEvent, error) {
	return scanSyncEvent(t.tx.QueryRowContext(ctx, selectSyncEventSQL, id))
}

func getLatestSyncEventForEntity(ctx context.Context, q querier, entityID string, entityType model.EntityType) (*model.SyncEvent, error) {
	query := selectLatestSyncEventForFolderSQL
	if entityType == model.EntityFile {
		query = selectLatestSyncEventForFileSQL
	}
	return scanSyncEvent(q.QueryRowContext(ctx, query, entityID))
}

func (t *txImpl) UpdateSyncEvent(ctx context.Context, e *model.SyncEvent) error {
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`UPDATE sync_events SET status = ?, retry_count = ?, error_message = ?, metadata = ?, updated_at = ?, processed_at = ? WHERE id = ?`,
		e.Status, e.RetryCount, e.ErrorMessage, string(metaJSON), time.Now().UTC(), e.ProcessedAt, e.ID)
	return err
}
