package ports

import (
	"context"
	"time"
)

// LockOptions configures one withLock call. Zero values are replaced with
// the defaults in spec.md §4.2 (ttl=60s, waitTimeout=30s, autoRenew=true,
// renewInterval=25s) by the concrete adapter.
type LockOptions struct {
	TTL             time.Duration
	WaitTimeout     time.Duration
	AutoRenew       bool
	RenewInterval   time.Duration
}

// LockedFunc is run while holding the named lease.
type LockedFunc func(ctx context.Context) error

// DistLock is the distributed, named, exclusive lease port (C2). Lock keys
// are entity-scoped: "folder-sync:{folderId}" and "file-sync:{fileId}".
type DistLock interface {
	// WithLock acquires key, runs fn, and releases on exit (success or
	// failure). Returns ErrLockTimeout if the lease could not be acquired
	// within WaitTimeout.
	WithLock(ctx context.Context, key string, fn LockedFunc, opts LockOptions) error
}
