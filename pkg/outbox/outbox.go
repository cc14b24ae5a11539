// Package outbox holds the SyncEvent lifecycle helpers shared by command
// services (which create PENDING/QUEUED rows) and sync handlers (which
// drive PROCESSING through to DONE or FAILED), per spec.md §4.4's state
// machine. Kept as free functions over *model.SyncEvent + ports.Tx, in the
// style of the teacher's sql managers, rather than a stateful service.
package outbox

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cernbox/docvault/pkg/log"
	"github.com/cernbox/docvault/pkg/metrics"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/ports"
)

var logger = log.New("outbox")

// New constructs a PENDING SyncEvent for insertion in the same transaction
// as the metadata mutation that produced it.
func New(id string, eventType model.SyncEventType, targetType model.EntityType, folderID, fileID *string, sourcePath, targetPath string, maxRetries int) *model.SyncEvent {
	now := time.Now().UTC()
	return &model.SyncEvent{
		ID:         id,
		EventType:  eventType,
		TargetType: targetType,
		FolderID:   folderID,
		FileID:     fileID,
		SourcePath: sourcePath,
		TargetPath: targetPath,
		Status:     model.SyncPending,
		MaxRetries: maxRetries,
		Metadata:   map[string]string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkQueued transitions PENDING -> QUEUED after the broker has
// acknowledged enqueue. Called outside the originating transaction, in its
// own short transaction, since it only runs after commit.
func MarkQueued(ctx context.Context, store ports.Store, syncEventID string) error {
	return store.WithTx(ctx, func(tx ports.Tx) error {
		e, err := tx.GetSyncEvent(ctx, syncEventID)
		if err != nil {
			return err
		}
		if e.Status != model.SyncPending {
			return nil
		}
		e.Status = model.SyncQueued
		return tx.UpdateSyncEvent(ctx, e)
	})
}

// MarkProcessing transitions QUEUED/PENDING/RETRYING -> PROCESSING. Called
// by a handler at the start of its run.
func MarkProcessing(ctx context.Context, tx ports.Tx, e *model.SyncEvent) error {
	e.Status = model.SyncProcessing
	return tx.UpdateSyncEvent(ctx, e)
}

// MarkDone transitions -> DONE (terminal) and stamps ProcessedAt.
func MarkDone(ctx context.Context, tx ports.Tx, e *model.SyncEvent) error {
	now := time.Now().UTC()
	e.Status = model.SyncDone
	e.ProcessedAt = &now
	e.ErrorMessage = nil
	if err := tx.UpdateSyncEvent(ctx, e); err != nil {
		return err
	}
	metrics.SyncEventsTotal.WithLabelValues(string(e.EventType), "done").Inc()
	return nil
}

// Retry increments RetryCount and either sets the event back to PENDING
// (still below MaxRetries, so the job queue's next delivery re-drives it) or
// FAILED (terminal), logging an alert-grade line with the full error chain
// on the terminal transition, per spec.md §4.4 and §7.
func Retry(ctx context.Context, tx ports.Tx, e *model.SyncEvent, cause error, action string) error {
	e.RetryCount++
	msg := cause.Error()
	e.ErrorMessage = &msg

	if e.RetryCount < e.MaxRetries {
		e.Status = model.SyncPending
		if err := tx.UpdateSyncEvent(ctx, e); err != nil {
			return err
		}
		metrics.HandlerRetriesTotal.WithLabelValues(string(e.EventType)).Inc()
		return nil
	}

	e.Status = model.SyncFailed
	now := time.Now().UTC()
	e.ProcessedAt = &now
	if err := tx.UpdateSyncEvent(ctx, e); err != nil {
		return err
	}
	metrics.HandlerFailuresTotal.WithLabelValues(string(e.EventType)).Inc()
	metrics.SyncEventsTotal.WithLabelValues(string(e.EventType), "failed").Inc()

	logger.Error().
		Str("action", action).
		Str("syncEventId", e.ID).
		Str("targetType", string(e.TargetType)).
		Err(errorChain(cause)).
		Msg("sync event failed permanently after exhausting retries")
	return nil
}

// errorChain wraps err with github.com/pkg/errors.WithStack so the
// alert-grade log line carries a stack trace; it does not walk Cause links.
func errorChain(err error) error {
	return errors.WithStack(err)
}
