package metadatastore

// schemaStatements creates the tables named in spec.md §6: folders, files,
// file_storage_objects, folder_storage_objects, sync_events,
// trash_metadata, upload_sessions and upload_session_parts. Applied once at
// startup by Migrate, in the manner of the teacher's favorite/sql/migrator
// (a small, idempotent, CREATE-TABLE-IF-NOT-EXISTS migrator rather than a
// versioned migration chain, since the schema here is fixed by the spec).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS folders (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		parent_id CHAR(36) NULL,
		path VARCHAR(4096) NOT NULL,
		state VARCHAR(16) NOT NULL,
		created_by VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		version INT NOT NULL DEFAULT 0,
		INDEX idx_folders_parent (parent_id),
		INDEX idx_folders_path (path(768))
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		folder_id CHAR(36) NOT NULL,
		size_bytes BIGINT NOT NULL,
		mime_type VARCHAR(255) NOT NULL,
		checksum VARCHAR(128) NULL,
		state VARCHAR(16) NOT NULL,
		created_by VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		version INT NOT NULL DEFAULT 0,
		INDEX idx_files_folder (folder_id)
	)`,
	`CREATE TABLE IF NOT EXISTS folder_storage_objects (
		id CHAR(36) PRIMARY KEY,
		folder_id CHAR(36) NOT NULL,
		tier VARCHAR(16) NOT NULL,
		object_key VARCHAR(4096) NOT NULL,
		availability_status VARCHAR(16) NOT NULL,
		lease_count INT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_folder_tier (folder_id, tier)
	)`,
	`CREATE TABLE IF NOT EXISTS file_storage_objects (
		id CHAR(36) PRIMARY KEY,
		file_id CHAR(36) NOT NULL,
		tier VARCHAR(16) NOT NULL,
		object_key VARCHAR(4096) NOT NULL,
		availability_status VARCHAR(16) NOT NULL,
		lease_count INT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_file_tier (file_id, tier)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_events (
		id CHAR(36) PRIMARY KEY,
		event_type VARCHAR(16) NOT NULL,
		target_type VARCHAR(16) NOT NULL,
		file_id CHAR(36) NULL,
		folder_id CHAR(36) NULL,
		source_path VARCHAR(4096) NOT NULL,
		target_path VARCHAR(4096) NOT NULL,
		status VARCHAR(16) NOT NULL,
		retry_count INT NOT NULL DEFAULT 0,
		max_retries INT NOT NULL DEFAULT 3,
		error_message TEXT NULL,
		metadata TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		processed_at DATETIME(6) NULL,
		INDEX idx_sync_events_status (status)
	)`,
	`CREATE TABLE IF NOT EXISTS trash_metadata (
		id CHAR(36) PRIMARY KEY,
		file_id CHAR(36) NULL,
		folder_id CHAR(36) NULL,
		original_path VARCHAR(4096) NOT NULL,
		original_parent_id CHAR(36) NULL,
		deleted_by VARCHAR(255) NOT NULL,
		deleted_at DATETIME(6) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		INDEX idx_trash_file (file_id),
		INDEX idx_trash_folder (folder_id)
	)`,
	`CREATE TABLE IF NOT EXISTS upload_sessions (
		id CHAR(36) PRIMARY KEY,
		file_name VARCHAR(255) NOT NULL,
		folder_id CHAR(36) NOT NULL,
		total_size BIGINT NOT NULL,
		part_size BIGINT NOT NULL,
		total_parts INT NOT NULL,
		mime_type VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		uploaded_bytes BIGINT NOT NULL DEFAULT 0,
		expires_at DATETIME(6) NOT NULL,
		created_by VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		file_id CHAR(36) NULL
	)`,
	`CREATE TABLE IF NOT EXISTS upload_session_parts (
		session_id CHAR(36) NOT NULL,
		part_number INT NOT NULL,
		etag VARCHAR(255) NOT NULL,
		size BIGINT NOT NULL,
		PRIMARY KEY (session_id, part_number)
	)`,
}
