// Package syncjob defines the job payload shape command services enqueue
// and the sync dispatcher consumes: a discriminated-by-action struct
// carrying every path the handler needs, per spec.md §6 "Job payload
// shapes". This is the tagged-variant replacement for the source's
// per-action handler classes (spec.md §9 "Dynamic-dispatch replacement").
package syncjob

import "encoding/json"

// Action names one of the six idempotent NAS operations, for either
// entity kind.
type Action string

const (
	// ActionMkdir is the create action for both entity kinds: a folder
	// handler issues DirStore.Mkdir, a file handler issues
	// FileStore.WriteFile. Which applies is implicit in which stream the
	// job arrived on (NAS_FOLDER_SYNC vs NAS_FILE_SYNC).
	ActionMkdir   Action = "mkdir"
	ActionRename  Action = "rename"
	ActionMove    Action = "move"
	ActionTrash   Action = "trash"
	ActionRestore Action = "restore"
	ActionPurge   Action = "purge"
)

// Streams used by the two per-entity-kind queues (spec.md §4.6).
const (
	StreamFileSync   = "NAS_FILE_SYNC"
	StreamFolderSync = "NAS_FOLDER_SYNC"
)

// Payload is published on StreamFolderSync or StreamFileSync.
type Payload struct {
	Action      Action  `json:"action"`
	FolderID    *string `json:"folderId,omitempty"`
	FileID      *string `json:"fileId,omitempty"`
	SyncEventID string  `json:"syncEventId,omitempty"`
	SourcePath  string  `json:"sourcePath,omitempty"`
	TargetPath  string  `json:"targetPath,omitempty"`

	// TargetParentID carries the destination parent for move operations,
	// needed by the handler's second-line compensation check.
	TargetParentID *string `json:"targetParentId,omitempty"`
	// OriginalParentID carries the pre-move parent so a move handler can
	// compensate by reverting to it.
	OriginalParentID *string `json:"originalParentId,omitempty"`
}

// Marshal serializes p for JobQueue.Submit.
func (p Payload) Marshal() ([]byte, error) { return json.Marshal(p) }

// Unmarshal parses b into a Payload.
func Unmarshal(b []byte) (Payload, error) {
	var p Payload
	err := json.Unmarshal(b, &p)
	return p, err
}
