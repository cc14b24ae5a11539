// Package model holds the entities of the docvault metadata model: folders,
// files, storage objects, sync events, trash metadata, upload sessions and
// admission-queue tickets, as described in spec.md §3.
package model

import "time"

// EntityState is the lifecycle state of a folder or file.
type EntityState string

const (
	StateActive  EntityState = "ACTIVE"
	StateTrashed EntityState = "TRASHED"
	StateDeleted EntityState = "DELETED"
)

// Tier names a physical storage tier.
type Tier string

const (
	TierCache Tier = "CACHE"
	TierNAS   Tier = "NAS"
)

// AvailabilityStatus is the sync status of a StorageObject.
type AvailabilityStatus string

const (
	AvailabilitySyncing   AvailabilityStatus = "SYNCING"
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityError     AvailabilityStatus = "ERROR"
)

// ConflictStrategy governs name-collision resolution on create/rename/move.
type ConflictStrategy string

const (
	ConflictError     ConflictStrategy = "ERROR"
	ConflictRename    ConflictStrategy = "RENAME"
	ConflictSkip      ConflictStrategy = "SKIP"
	ConflictOverwrite ConflictStrategy = "OVERWRITE"
)

// Folder is a hierarchical node in the virtual filesystem.
type Folder struct {
	ID        string
	Name      string
	ParentID  *string
	Path      string
	State     EntityState
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// File is a leaf entity owned by a folder.
type File struct {
	ID        string
	Name      string
	FolderID  string
	SizeBytes int64
	MimeType  string
	Checksum  *string
	State     EntityState
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// StorageObject is the per-tier physical pointer for a folder or a file.
type StorageObject struct {
	ID                 string
	FolderID           *string
	FileID             *string
	Tier               Tier
	ObjectKey          string
	AvailabilityStatus AvailabilityStatus
	LeaseCount         int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EntityType discriminates which kind of entity a SyncEvent or job targets.
type EntityType string

const (
	EntityFolder EntityType = "FOLDER"
	EntityFile   EntityType = "FILE"
)

// SyncEventType is the NAS action a SyncEvent drives.
type SyncEventType string

const (
	EventCreate  SyncEventType = "CREATE"
	EventRename  SyncEventType = "RENAME"
	EventMove    SyncEventType = "MOVE"
	EventTrash   SyncEventType = "TRASH"
	EventRestore SyncEventType = "RESTORE"
	EventPurge   SyncEventType = "PURGE"
)

// SyncEventStatus is the outbox lifecycle state, per spec.md §4.4.
type SyncEventStatus string

const (
	SyncPending    SyncEventStatus = "PENDING"
	SyncQueued     SyncEventStatus = "QUEUED"
	SyncProcessing SyncEventStatus = "PROCESSING"
	SyncRetrying   SyncEventStatus = "RETRYING"
	SyncDone       SyncEventStatus = "DONE"
	SyncFailed     SyncEventStatus = "FAILED"
)

// SyncEvent is an outbox row: a durable record of a pending NAS mutation.
type SyncEvent struct {
	ID           string
	EventType    SyncEventType
	TargetType   EntityType
	FileID       *string
	FolderID     *string
	SourcePath   string
	TargetPath   string
	Status       SyncEventStatus
	RetryCount   int
	MaxRetries   int
	ErrorMessage *string
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ProcessedAt  *time.Time
}

// TrashMetadata records the origin of a trashed entity so it can be restored.
type TrashMetadata struct {
	ID               string
	FileID           *string
	FolderID         *string
	OriginalPath     string
	OriginalParentID *string
	DeletedBy        string
	DeletedAt        time.Time
	ExpiresAt        time.Time
}

// UploadStatus is the multipart upload session lifecycle state.
type UploadStatus string

const (
	UploadInit      UploadStatus = "INIT"
	UploadUploading UploadStatus = "UPLOADING"
	UploadCompleted UploadStatus = "COMPLETED"
	UploadAborted   UploadStatus = "ABORTED"
	UploadExpired   UploadStatus = "EXPIRED"
)

// UploadedPart records one completed part of a multipart upload.
type UploadedPart struct {
	PartNumber int
	ETag       string
	Size       int64
}

// UploadSession is the state of one in-progress multipart upload.
type UploadSession struct {
	ID              string
	FileName        string
	FolderID        string
	TotalSize       int64
	PartSize        int64
	TotalParts      int
	MimeType        string
	Status          UploadStatus
	CompletedParts  map[int]UploadedPart
	UploadedBytes   int64
	ExpiresAt       time.Time
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FileID          *string
}

// TicketStatus is the admission-queue ticket lifecycle state.
type TicketStatus string

const (
	TicketWaiting   TicketStatus = "WAITING"
	TicketReady     TicketStatus = "READY"
	TicketActive    TicketStatus = "ACTIVE"
	TicketExpired   TicketStatus = "EXPIRED"
	TicketCancelled TicketStatus = "CANCELLED"
)

// InitiateArgs is the payload a queued upload will be initiated with once a
// slot frees up.
type InitiateArgs struct {
	FileName  string
	FolderID  string
	TotalSize int64
	MimeType  string
	CreatedBy string
}

// QueueTicket is one FIFO admission-queue entry.
type QueueTicket struct {
	Ticket         string
	Status         TicketStatus
	Position       int
	ReadyDeadline  *time.Time
	InitiateArgs   InitiateArgs
	UserID         string
	SessionID      *string
	CreatedAt      time.Time
}

// NASHealthStatus is the three-state traffic gate of pkg/nashealth.
type NASHealthStatus string

const (
	HealthHealthy   NASHealthStatus = "healthy"
	HealthDegraded  NASHealthStatus = "degraded"
	HealthUnhealthy NASHealthStatus = "unhealthy"
)
