package uploadengine

import (
	"context"
	"io"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/filesvc"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/validate"
)

// Complete verifies every part has landed, concatenates them into one
// cache object, hands off to filesvc.Create for the metadata/outbox
// transaction, relocates the assembled bytes to the path filesvc assigned,
// cleans up the part files and marks the session COMPLETED.
func (e *Engine) Complete(ctx context.Context, sessionID string, in filesvc.CreateInput) (*model.File, error) {
	sess, err := e.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sess.CompletedParts) != sess.TotalParts {
		return nil, errkind.Precondition("upload session is missing parts")
	}

	staging := stagingKey(sessionID)
	if err := e.concatParts(ctx, sess, staging); err != nil {
		return nil, err
	}

	file, err := e.files.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	targetPath, err := e.resolveTargetPath(ctx, file)
	if err != nil {
		return nil, err
	}
	if err := e.cache.MoveFile(ctx, staging, targetPath); err != nil && !ports.IsCode(err, ports.ErrAlreadyExists) {
		return nil, err
	}

	e.cleanupParts(ctx, sess)

	err = e.store.WithTx(ctx, func(tx ports.Tx) error {
		s, err := tx.GetUploadSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		s.Status = model.UploadCompleted
		s.FileID = &file.ID
		s.UpdatedAt = now()
		return tx.UpdateUploadSession(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	e.Admitter.Release(sess.TotalSize)
	return file, nil
}

// concatParts reads every part in order and writes them as one stream into
// the cache at dstKey.
func (e *Engine) concatParts(ctx context.Context, sess *model.UploadSession, dstKey string) error {
	readers := make([]io.Reader, 0, sess.TotalParts)
	closers := make([]io.Closer, 0, sess.TotalParts)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for i := 1; i <= sess.TotalParts; i++ {
		r, err := e.cache.ReadFile(ctx, partKey(sess.ID, i))
		if err != nil {
			return err
		}
		readers = append(readers, r)
		closers = append(closers, r)
	}
	return e.cache.WriteFile(ctx, dstKey, io.MultiReader(readers...))
}

func (e *Engine) cleanupParts(ctx context.Context, sess *model.UploadSession) {
	for i := 1; i <= sess.TotalParts; i++ {
		if err := e.cache.DeleteFile(ctx, partKey(sess.ID, i)); err != nil && !ports.IsCode(err, ports.ErrNotFound) {
			logger.Warn().Err(err).Str("sessionId", sess.ID).Int("part", i).Msg("uploadengine: failed to clean up part file")
		}
	}
}

// resolveTargetPath recomputes the NAS object key filesvc.Create assigned
// to file, since Create only returns the entity and not the path directly.
func (e *Engine) resolveTargetPath(ctx context.Context, file *model.File) (string, error) {
	folder, err := e.store.GetFolder(ctx, file.FolderID)
	if err != nil {
		return "", err
	}
	return validate.JoinPath(folder.Path, file.Name), nil
}
