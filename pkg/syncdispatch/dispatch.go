// Package syncdispatch implements the sync dispatcher (C6): one worker pool
// per entity kind that consumes NAS_FOLDER_SYNC / NAS_FILE_SYNC, acquires
// the per-entity distributed lock, and runs the idempotent handler matching
// the job's Action — mkdir, rename, move, trash, restore or purge — per
// spec.md §4.6. Before acting, every job looks up its SyncEvent row and is
// dropped when the row is missing or already DONE; the paths a handler acts
// on come from the payload, and each NAS step tolerates having already been
// applied, so a redelivered or duplicate job is safe to run again.
package syncdispatch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cernbox/docvault/pkg/log"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/syncjob"
)

var logger = log.New("syncdispatch")

// Dispatcher wires the metadata store, the two storage tiers, the job
// queue and the distributed lock into the twelve idempotent NAS handlers.
type Dispatcher struct {
	Store       ports.Store
	Queue       ports.JobQueue
	Lock        ports.DistLock
	NAS         ports.ObjectStore
	Cache       ports.ObjectStore
	Concurrency int
	LockOpts    ports.LockOptions
}

// Run registers both worker pools and blocks until ctx is cancelled or
// either pool returns an error.
func (d *Dispatcher) Run(ctx context.Context) error {
	opts := ports.ProcessOptions{Concurrency: d.Concurrency}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.Queue.ProcessJobs(ctx, syncjob.StreamFolderSync, d.handleFolderJob, opts)
	})
	g.Go(func() error {
		return d.Queue.ProcessJobs(ctx, syncjob.StreamFileSync, d.handleFileJob, opts)
	})
	return g.Wait()
}

// withEntityLock acquires the per-entity lease before running fn, using the
// folder/file-sync key naming from pkg/distlock.
func (d *Dispatcher) withEntityLock(ctx context.Context, key string, fn ports.LockedFunc) error {
	return d.Lock.WithLock(ctx, key, fn, d.LockOpts)
}
