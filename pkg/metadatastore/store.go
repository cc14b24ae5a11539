// Package metadatastore is the database/sql-backed implementation of
// ports.Store: folders, files, storage objects, sync events, trash
// metadata and upload sessions, all behind explicit transactions with
// SELECT ... FOR UPDATE row locks on the primary entity row, per spec.md
// §4.3. Grounded on the teacher's raw-SQL manager style
// (pkg/notification/manager/sql, pkg/share/manager/sql): no ORM, explicit
// tx.Begin/Prepare/Exec/Commit, github.com/pkg/errors for wrapping.
package metadatastore

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
)

// SQLStore is the concrete ports.Store backed by database/sql.
type SQLStore struct {
	db *sql.DB
}

// Open connects to dsn using driver and verifies connectivity.
func Open(driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "metadatastore: cannot open database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "metadatastore: cannot reach database")
	}
	return &SQLStore{db: db}, nil
}

// NewWithDB wraps an already-open *sql.DB, used by tests against sqlite/mysql
// test containers.
func NewWithDB(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB exposes the underlying handle for Migrate.
func (s *SQLStore) DB() *sql.DB { return s.db }

// WithTx runs fn inside one transaction, committing on success and rolling
// back otherwise. This is the only way command services mutate metadata,
// so the metadata change and its SyncEvent always land in the same
// transaction (spec.md §4.4's outbox invariant).
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "metadatastore: cannot begin transaction")
	}

	tx := &txImpl{tx: sqlTx}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "metadatastore: rollback also failed: %v", rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return errors.Wrap(err, "metadatastore: cannot commit transaction")
	}
	return nil
}

func (s *SQLStore) GetFolder(ctx context.Context, id string) (*model.Folder, error) {
	return scanFolder(s.db.QueryRowContext(ctx, selectFolderSQL, id))
}

func (s *SQLStore) GetFile(ctx context.Context, id string) (*model.File, error) {
	return scanFile(s.db.QueryRowContext(ctx, selectFileSQL, id))
}

func (s *SQLStore) GetStorageObject(ctx context.Context, entityID string, entityType model.EntityType, tier model.Tier) (*model.StorageObject, error) {
	return getStorageObject(ctx, s.db, entityID, entityType, tier, false)
}

func (s *SQLStore) GetSyncEvent(ctx context.Context, id string) (*model.SyncEvent, error) {
	return scanSyncEvent(s.db.QueryRowContext(ctx, selectSyncEventSQL, id))
}

func (s *SQLStore) GetLatestSyncEventForEntity(ctx context.Context, entityID string, entityType model.EntityType) (*model.SyncEvent, error) {
	return getLatestSyncEventForEntity(ctx, s.db, entityID, entityType)
}

// txImpl is the ports.Tx implementation backed by one *sql.Tx.
type txImpl struct {
	tx *sql.Tx
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting the scan helpers
// below be shared between the read-only Store methods and the Tx methods.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
