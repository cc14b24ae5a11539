// Package uploadengine implements the multipart upload engine (C7):
// initiate/upload-part/complete/abort/status over a session that streams
// part bytes straight to the cache tier, in the same outbox-then-enqueue
// shape the command services use for everything else, fronted by the
// admission queue (pkg/admission) so a flood of large uploads queues
// instead of starving the cache disk.
package uploadengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cernbox/docvault/pkg/admission"
	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/filesvc"
	"github.com/cernbox/docvault/pkg/log"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
)

var logger = log.New("uploadengine")

// Config holds the size/expiry thresholds of spec.md §4.7/§6.
type Config struct {
	PartSizeBytes           int64
	MultipartThresholdBytes int64
	SessionExpiry           time.Duration
}

func (c Config) withDefaults() Config {
	if c.PartSizeBytes <= 0 {
		c.PartSizeBytes = 10 * 1024 * 1024
	}
	if c.MultipartThresholdBytes <= 0 {
		c.MultipartThresholdBytes = 100 * 1024 * 1024
	}
	if c.SessionExpiry <= 0 {
		c.SessionExpiry = time.Hour
	}
	return c
}

// Engine is the multipart upload command surface.
type Engine struct {
	store ports.Store
	cache ports.ObjectStore
	files *filesvc.Service
	cfg   Config

	Admitter *admission.Queue
}

// New returns an Engine whose admission queue creates sessions immediately
// when the configured caps have headroom.
func New(store ports.Store, cache ports.ObjectStore, files *filesvc.Service, limits admission.Limits, cfg Config) *Engine {
	e := &Engine{store: store, cache: cache, files: files, cfg: cfg.withDefaults()}
	e.Admitter = admission.New(limits, e.createSessionNow)
	return e
}

func newID() string { return uuid.NewString() }
func now() time.Time { return time.Now().UTC() }

func partKey(sessionID string, partNumber int) string {
	return "sessions/" + sessionID + "/parts/" + strconv.Itoa(partNumber)
}

func stagingKey(sessionID string) string {
	return "sessions/" + sessionID + "/complete"
}

// createSessionNow inserts a fresh INIT upload session. It is both the
// direct-admission path (called synchronously from Initiate when the caps
// have headroom) and the admission queue's promote-next callback.
func (e *Engine) createSessionNow(args model.InitiateArgs) (*model.UploadSession, error) {
	t := now()
	partSize := e.cfg.PartSizeBytes
	totalParts := int(math.Ceil(float64(args.TotalSize) / float64(partSize)))
	if totalParts < 1 {
		totalParts = 1
	}

	sess := &model.UploadSession{
		ID:             newID(),
		FileName:       args.FileName,
		FolderID:       args.FolderID,
		TotalSize:      args.TotalSize,
		PartSize:       partSize,
		TotalParts:     totalParts,
		MimeType:       args.MimeType,
		Status:         model.UploadInit,
		CompletedParts: map[int]model.UploadedPart{},
		CreatedBy:      args.CreatedBy,
		ExpiresAt:      t.Add(e.cfg.SessionExpiry),
		CreatedAt:      t,
		UpdatedAt:      t,
	}

	ctx := context.Background()
	if err := e.store.WithTx(ctx, func(tx ports.Tx) error {
		return tx.InsertUploadSession(ctx, sess)
	}); err != nil {
		return nil, err
	}
	return sess, nil
}

// InitiateInput describes an upload-initiate request.
type InitiateInput struct {
	FileName  string
	FolderID  string
	TotalSize int64
	MimeType  string
	CreatedBy string
}

// InitiateResult is what Initiate returns: either an ACTIVE session or a
// WAITING ticket, never both.
type InitiateResult struct {
	Session *model.UploadSession
	Ticket  *model.QueueTicket
}

// Initiate validates totalSize against the multipart threshold and defers
// to the admission queue's initiate-or-enqueue semantics.
func (e *Engine) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	if in.TotalSize < e.cfg.MultipartThresholdBytes {
		return nil, errkind.Validation("totalSize is below the multipart threshold, use a direct upload instead")
	}
	folder, err := e.store.GetFolder(ctx, in.FolderID)
	if err != nil {
		return nil, err
	}
	if folder.State != model.StateActive {
		return nil, errkind.Precondition("parent folder is not active: " + in.FolderID)
	}

	sess, ticket, err := e.Admitter.InitiateOrEnqueue(model.InitiateArgs{
		FileName:  in.FileName,
		FolderID:  in.FolderID,
		TotalSize: in.TotalSize,
		MimeType:  in.MimeType,
		CreatedBy: in.CreatedBy,
	}, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &InitiateResult{Session: sess, Ticket: ticket}, nil
}

// loadActive loads a session and lazily expires it if its wall-clock
// deadline has passed, per spec.md §4.7's "any non-terminal -> EXPIRED"
// transition.
func (e *Engine) loadActive(ctx context.Context, sessionID string) (*model.UploadSession, error) {
	var sess *model.UploadSession
	err := e.store.WithTx(ctx, func(tx ports.Tx) error {
		s, err := tx.GetUploadSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if isTerminal(s.Status) {
			sess = s
			return nil
		}
		if now().After(s.ExpiresAt) {
			s.Status = model.UploadExpired
			s.UpdatedAt = now()
			if err := tx.UpdateUploadSession(ctx, s); err != nil {
				return err
			}
			e.releaseAndPromote(s)
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sess.Status != model.UploadInit && sess.Status != model.UploadUploading {
		return sess, errkind.Precondition("upload session is not active: " + string(sess.Status))
	}
	return sess, nil
}

func isTerminal(s model.UploadStatus) bool {
	return s == model.UploadCompleted || s == model.UploadAborted || s == model.UploadExpired
}

func (e *Engine) releaseAndPromote(s *model.UploadSession) {
	e.Admitter.Release(s.TotalSize)
}

// GetStatus returns the session plus the next missing part number and
// remaining bytes.
func (e *Engine) GetStatus(ctx context.Context, sessionID string) (*model.UploadSession, int, int64, error) {
	var sess *model.UploadSession
	err := e.store.WithTx(ctx, func(tx ports.Tx) error {
		s, err := tx.GetUploadSessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if !isTerminal(s.Status) && now().After(s.ExpiresAt) {
			s.Status = model.UploadExpired
			s.UpdatedAt = now()
			if err := tx.UpdateUploadSession(ctx, s); err != nil {
				return err
			}
			e.releaseAndPromote(s)
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}
	next := nextMissingPart(sess)
	remaining := sess.TotalSize - sess.UploadedBytes
	if remaining < 0 {
		remaining = 0
	}
	return sess, next, remaining, nil
}

func nextMissingPart(s *model.UploadSession) int {
	for i := 1; i <= s.TotalParts; i++ {
		if _, ok := s.CompletedParts[i]; !ok {
			return i
		}
	}
	return 0
}
