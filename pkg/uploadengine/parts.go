package uploadengine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
)

// UploadPartResult is returned after a part is accepted.
type UploadPartResult struct {
	Session        *model.UploadSession
	ProgressPct    float64
}

// UploadPart streams r's bytes straight to the cache tier at a
// deterministic per-part key, then records the part and bumps progress.
// Re-uploading a part number overwrites the previous bytes and etag. Every
// non-final part must equal PartSize; the final part may be smaller.
func (e *Engine) UploadPart(ctx context.Context, sessionID string, partNumber int, size int64, r io.Reader) (*UploadPartResult, error) {
	sess, err := e.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if partNumber < 1 || partNumber > sess.TotalParts {
		return nil, errkind.Validation("part number out of range")
	}
	if partNumber != sess.TotalParts && size != sess.PartSize {
		return nil, errkind.Validation("non-final part must equal the session's partSize")
	}

	hasher := md5.New()
	key := partKey(sessionID, partNumber)
	if err := e.cache.WriteFile(ctx, key, io.TeeReader(r, hasher)); err != nil {
		return nil, err
	}
	etag := hex.EncodeToString(hasher.Sum(nil))

	err = e.store.WithTx(ctx, func(tx ports.Tx) error {
		s, err := tx.GetUploadSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if prev, ok := s.CompletedParts[partNumber]; ok {
			s.UploadedBytes -= prev.Size
		}
		s.CompletedParts[partNumber] = model.UploadedPart{PartNumber: partNumber, ETag: etag, Size: size}
		s.UploadedBytes += size
		if s.Status == model.UploadInit {
			s.Status = model.UploadUploading
		}
		s.UpdatedAt = now()
		if err := tx.UpdateUploadSession(ctx, s); err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	pct := float64(sess.UploadedBytes) / float64(sess.TotalSize) * 100
	return &UploadPartResult{Session: sess, ProgressPct: pct}, nil
}
