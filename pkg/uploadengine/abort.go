package uploadengine

import (
	"context"

	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
)

// Abort marks the session ABORTED, cleans up any staged parts and releases
// its admission slot. Aborting an already-terminal session is a no-op.
func (e *Engine) Abort(ctx context.Context, sessionID string) error {
	var sess *model.UploadSession
	err := e.store.WithTx(ctx, func(tx ports.Tx) error {
		s, err := tx.GetUploadSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if isTerminal(s.Status) {
			return nil
		}
		s.Status = model.UploadAborted
		s.UpdatedAt = now()
		if err := tx.UpdateUploadSession(ctx, s); err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	e.cleanupParts(ctx, sess)
	e.Admitter.Release(sess.TotalSize)
	return nil
}
