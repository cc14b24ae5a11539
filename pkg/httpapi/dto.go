package httpapi

import (
	"time"

	"github.com/cernbox/docvault/pkg/model"
)

// The model package carries no JSON tags of its own — its structs are the
// core's internal representation, not a wire format — so this file is the
// one seam where entities are translated into the shapes spec.md §6
// sketches for the ingress layer.

type folderDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	Path      string    `json:"path"`
	State     string    `json:"state"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

func toFolderDTO(f *model.Folder) *folderDTO {
	return &folderDTO{
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  f.ParentID,
		Path:      f.Path,
		State:     string(f.State),
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		Version:   f.Version,
	}
}

type fileDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FolderID  string    `json:"folderId"`
	SizeBytes int64     `json:"sizeBytes"`
	MimeType  string    `json:"mimeType"`
	Checksum  *string   `json:"checksum,omitempty"`
	State     string    `json:"state"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

func toFileDTO(f *model.File) *fileDTO {
	return &fileDTO{
		ID:        f.ID,
		Name:      f.Name,
		FolderID:  f.FolderID,
		SizeBytes: f.SizeBytes,
		MimeType:  f.MimeType,
		Checksum:  f.Checksum,
		State:     string(f.State),
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
		Version:   f.Version,
	}
}

// commandResultDTO wraps the updated entity a command produced. The command
// services intentionally don't surface the SyncEvent id they create
// internally as part of their return value — it's an outbox implementation
// detail, not part of the entity's identity — so callers that want to
// observe sync progress poll the entity's own sync-status endpoint instead
// of threading a second id through every command response.
type commandResultDTO struct {
	Folder *folderDTO `json:"folder,omitempty"`
	File   *fileDTO   `json:"file,omitempty"`
}

type syncEventDTO struct {
	ID           string            `json:"id"`
	EventType    string            `json:"eventType"`
	TargetType   string            `json:"targetType"`
	FolderID     *string           `json:"folderId,omitempty"`
	FileID       *string           `json:"fileId,omitempty"`
	SourcePath   string            `json:"sourcePath"`
	TargetPath   string            `json:"targetPath"`
	Status       string            `json:"status"`
	RetryCount   int               `json:"retryCount"`
	MaxRetries   int               `json:"maxRetries"`
	ErrorMessage *string           `json:"errorMessage,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	ProcessedAt  *time.Time        `json:"processedAt,omitempty"`
}

func toSyncEventDTO(e *model.SyncEvent) *syncEventDTO {
	return &syncEventDTO{
		ID:           e.ID,
		EventType:    string(e.EventType),
		TargetType:   string(e.TargetType),
		FolderID:     e.FolderID,
		FileID:       e.FileID,
		SourcePath:   e.SourcePath,
		TargetPath:   e.TargetPath,
		Status:       string(e.Status),
		RetryCount:   e.RetryCount,
		MaxRetries:   e.MaxRetries,
		ErrorMessage: e.ErrorMessage,
		Metadata:     e.Metadata,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		ProcessedAt:  e.ProcessedAt,
	}
}

type storageObjectDTO struct {
	Tier               string    `json:"tier"`
	ObjectKey          string    `json:"objectKey"`
	AvailabilityStatus string    `json:"availabilityStatus"`
	LeaseCount         int       `json:"leaseCount"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func toStorageObjectDTO(so *model.StorageObject) *storageObjectDTO {
	return &storageObjectDTO{
		Tier:               string(so.Tier),
		ObjectKey:          so.ObjectKey,
		AvailabilityStatus: string(so.AvailabilityStatus),
		LeaseCount:         so.LeaseCount,
		UpdatedAt:          so.UpdatedAt,
	}
}

// entitySyncStatusDTO is the per-entity diagnostic view spec.md §6
// describes: the entity's current NAS storage object plus its most recent
// sync event.
type entitySyncStatusDTO struct {
	EntityID      string        `json:"entityId"`
	EntityType    string        `json:"entityType"`
	NAS           *storageObjectDTO `json:"nas,omitempty"`
	LatestEvent   *syncEventDTO `json:"latestEvent,omitempty"`
}

type uploadSessionDTO struct {
	ID            string     `json:"id"`
	FileName      string     `json:"fileName"`
	FolderID      string     `json:"folderId"`
	TotalSize     int64      `json:"totalSize"`
	PartSize      int64      `json:"partSize"`
	TotalParts    int        `json:"totalParts"`
	MimeType      string     `json:"mimeType"`
	Status        string     `json:"status"`
	UploadedBytes int64      `json:"uploadedBytes"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	FileID        *string    `json:"fileId,omitempty"`
}

func toUploadSessionDTO(s *model.UploadSession) *uploadSessionDTO {
	return &uploadSessionDTO{
		ID:            s.ID,
		FileName:      s.FileName,
		FolderID:      s.FolderID,
		TotalSize:     s.TotalSize,
		PartSize:      s.PartSize,
		TotalParts:    s.TotalParts,
		MimeType:      s.MimeType,
		Status:        string(s.Status),
		UploadedBytes: s.UploadedBytes,
		ExpiresAt:     s.ExpiresAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		FileID:        s.FileID,
	}
}

type initiateResponseDTO struct {
	Session *uploadSessionDTO `json:"session,omitempty"`
	Ticket  *queueTicketDTO   `json:"ticket,omitempty"`
}

type queueTicketDTO struct {
	Ticket        string     `json:"ticket"`
	Status        string     `json:"status"`
	Position      int        `json:"position"`
	ReadyDeadline *time.Time `json:"readyDeadline,omitempty"`
	SessionID     *string    `json:"sessionId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toQueueTicketDTO(t *model.QueueTicket) *queueTicketDTO {
	return &queueTicketDTO{
		Ticket:        t.Ticket,
		Status:        string(t.Status),
		Position:      t.Position,
		ReadyDeadline: t.ReadyDeadline,
		SessionID:     t.SessionID,
		CreatedAt:     t.CreatedAt,
	}
}

type uploadPartResponseDTO struct {
	Session     *uploadSessionDTO `json:"session"`
	ProgressPct float64           `json:"progressPct"`
}

type uploadStatusResponseDTO struct {
	Session        *uploadSessionDTO `json:"session"`
	NextMissingPart int              `json:"nextMissingPart"`
	RemainingBytes  int64            `json:"remainingBytes"`
}

type nasHealthDTO struct {
	State         string    `json:"state"`
	LastCheckedAt time.Time `json:"lastCheckedAt"`
	LastError     string    `json:"lastError,omitempty"`
}
