// Package ports declares the abstract collaborators the core depends on:
// NAS and cache storage I/O, the job queue, the distributed lock, and
// transactional metadata persistence. Command services, the dispatcher and
// its handlers reach storage, the job queue, the lock and the database only
// through these interfaces, never through a concrete adapter type.
package ports

import (
	"context"
	"io"
)

// StorageErrorCode is the stable error-code set every storage port
// implementation must map its failures onto, per spec.md §4.1.
type StorageErrorCode string

const (
	ErrNotFound      StorageErrorCode = "NOT_FOUND"
	ErrAlreadyExists StorageErrorCode = "ALREADY_EXISTS"
	ErrInUse         StorageErrorCode = "IN_USE"
	ErrConn          StorageErrorCode = "CONN"
	ErrOther         StorageErrorCode = "OTHER"
)

// StorageError is returned by every FileStore/DirStore method on failure.
type StorageError struct {
	Code StorageErrorCode
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return e.Op + " " + e.Path + ": " + string(e.Code) + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + string(e.Code)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsCode reports whether err is a *StorageError with the given code.
func IsCode(err error, code StorageErrorCode) bool {
	se, ok := err.(*StorageError)
	return ok && se.Code == code
}

// FileStore is the byte-level half of a storage tier (NAS or cache):
// writing, reading, deleting, moving, copying and inspecting objects keyed
// by a rooted path.
type FileStore interface {
	WriteFile(ctx context.Context, key string, r io.Reader) error
	ReadFile(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, key string) error
	MoveFile(ctx context.Context, src, dst string) error
	CopyFile(ctx context.Context, src, dst string) error
	Exists(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context, key string) (int64, error)
}

// DirStore is the directory-level half of a storage tier.
type DirStore interface {
	Mkdir(ctx context.Context, path string) error
	Rmdir(ctx context.Context, path string, recursive bool) error
	MoveDir(ctx context.Context, src, dst string) error
	List(ctx context.Context, path string) ([]string, error)
}

// ObjectStore is the full storage port a tier adapter implements: NAS and
// cache are each one ObjectStore, selected by the caller via the
// StorageObject's Tier.
type ObjectStore interface {
	FileStore
	DirStore
}
