// Package diskfs implements ports.ObjectStore by mapping objectKeys onto a
// rooted directory tree, exactly as the teacher's local filesystem driver
// (pkg/storage/fs/posix) maps CS3 references onto disk paths: a single
// configured root, intermediate directories created on demand, and a
// traversal guard rejecting any resolved path that escapes the root. The
// same type backs both the NAS port and the cache port — they differ only
// in which root they're rooted at (spec.md §4.1).
package diskfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cernbox/docvault/pkg/ports"
)

// Store is a ports.ObjectStore rooted at Root.
type Store struct {
	Root string
}

// New returns a Store rooted at root. root is created if missing.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Store{Root: abs}, nil
}

// resolve maps a rooted object key ("/a/b.txt") onto an absolute disk path
// under Root, rejecting any key that would escape Root after cleaning —
// the traversal guard spec.md §4.1 requires.
func (s *Store) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	full := filepath.Join(s.Root, cleaned)
	if full != s.Root && !strings.HasPrefix(full, s.Root+string(filepath.Separator)) {
		return "", &ports.StorageError{Code: ports.ErrOther, Op: "resolve", Path: key, Err: os.ErrInvalid}
	}
	return full, nil
}

func mapErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return &ports.StorageError{Code: ports.ErrNotFound, Op: op, Path: path, Err: err}
	}
	if os.IsExist(err) {
		return &ports.StorageError{Code: ports.ErrAlreadyExists, Op: op, Path: path, Err: err}
	}
	return &ports.StorageError{Code: ports.ErrOther, Op: op, Path: path, Err: err}
}

func (s *Store) WriteFile(ctx context.Context, key string, r io.Reader) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return mapErr("WriteFile", key, err)
	}
	f, err := os.Create(full)
	if err != nil {
		return mapErr("WriteFile", key, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return mapErr("WriteFile", key, err)
	}
	return nil
}

func (s *Store) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, mapErr("ReadFile", key, err)
	}
	return f, nil
}

func (s *Store) DeleteFile(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return mapErr("DeleteFile", key, err)
	}
	return nil
}

func (s *Store) MoveFile(ctx context.Context, src, dst string) error {
	fullSrc, err := s.resolve(src)
	if err != nil {
		return err
	}
	fullDst, err := s.resolve(dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullDst); err == nil {
		return &ports.StorageError{Code: ports.ErrAlreadyExists, Op: "MoveFile", Path: dst}
	}
	if err := os.MkdirAll(filepath.Dir(fullDst), 0o755); err != nil {
		return mapErr("MoveFile", dst, err)
	}
	if err := os.Rename(fullSrc, fullDst); err != nil {
		return mapErr("MoveFile", src, err)
	}
	return nil
}

func (s *Store) CopyFile(ctx context.Context, src, dst string) error {
	r, err := s.ReadFile(ctx, src)
	if err != nil {
		return err
	}
	defer r.Close()
	return s.WriteFile(ctx, dst, r)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, mapErr("Exists", key, err)
}

func (s *Store) Size(ctx context.Context, key string) (int64, error) {
	full, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return 0, mapErr("Size", key, err)
	}
	return fi.Size(), nil
}

func (s *Store) Mkdir(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(full); statErr == nil {
		return &ports.StorageError{Code: ports.ErrAlreadyExists, Op: "Mkdir", Path: path}
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return mapErr("Mkdir", path, err)
	}
	return nil
}

func (s *Store) Rmdir(ctx context.Context, path string, recursive bool) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if recursive {
		if err := os.RemoveAll(full); err != nil {
			return mapErr("Rmdir", path, err)
		}
		return nil
	}
	if err := os.Remove(full); err != nil {
		return mapErr("Rmdir", path, err)
	}
	return nil
}

func (s *Store) MoveDir(ctx context.Context, src, dst string) error {
	fullSrc, err := s.resolve(src)
	if err != nil {
		return err
	}
	fullDst, err := s.resolve(dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullDst); err == nil {
		return &ports.StorageError{Code: ports.ErrAlreadyExists, Op: "MoveDir", Path: dst}
	}
	if err := os.MkdirAll(filepath.Dir(fullDst), 0o755); err != nil {
		return mapErr("MoveDir", dst, err)
	}
	if err := os.Rename(fullSrc, fullDst); err != nil {
		return mapErr("MoveDir", src, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, path string) ([]string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, mapErr("List", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
