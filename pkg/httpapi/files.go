package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cernbox/docvault/pkg/filesvc"
	"github.com/cernbox/docvault/pkg/model"
)

// createFileRequest describes a direct (below-multipart-threshold) file
// create whose bytes were already written to the cache tier by the caller
// before this metadata call — the same precondition pkg/uploadengine's
// Complete relies on for a multipart-assembled file.
type createFileRequest struct {
	FolderID  string  `json:"folderId"`
	Name      string  `json:"name"`
	SizeBytes int64   `json:"sizeBytes"`
	MimeType  string  `json:"mimeType"`
	Checksum  *string `json:"checksum,omitempty"`
	CreatedBy string  `json:"createdBy"`
	Conflict  string  `json:"conflict,omitempty"`
}

func (rt *Router) handleFileCreate(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	f, err := rt.Files.Create(r.Context(), filesvc.CreateInput{
		FolderID:  req.FolderID,
		Name:      req.Name,
		SizeBytes: req.SizeBytes,
		MimeType:  req.MimeType,
		Checksum:  req.Checksum,
		CreatedBy: req.CreatedBy,
		Conflict:  model.ConflictStrategy(req.Conflict),
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONCreated(w, &commandResultDTO{File: toFileDTO(f)})
}

func (rt *Router) handleFileGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	f, err := rt.Store.GetFile(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, toFileDTO(f))
}

type renameFileRequest struct {
	NewName  string `json:"newName"`
	Conflict string `json:"conflict,omitempty"`
}

func (rt *Router) handleFileRename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	var req renameFileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	f, err := rt.Files.Rename(r.Context(), filesvc.RenameInput{
		FileID:   id,
		NewName:  req.NewName,
		Conflict: model.ConflictStrategy(req.Conflict),
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{File: toFileDTO(f)})
}

type moveFileRequest struct {
	NewFolderID string `json:"newFolderId"`
	Conflict    string `json:"conflict,omitempty"`
}

func (rt *Router) handleFileMove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	var req moveFileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	f, err := rt.Files.Move(r.Context(), filesvc.MoveInput{
		FileID:      id,
		NewFolderID: req.NewFolderID,
		Conflict:    model.ConflictStrategy(req.Conflict),
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{File: toFileDTO(f)})
}

func (rt *Router) handleFileTrash(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	var req trashRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	f, err := rt.Files.Trash(r.Context(), filesvc.TrashInput{FileID: id, DeletedBy: req.DeletedBy})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{File: toFileDTO(f)})
}

func (rt *Router) handleFileRestore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	var req restoreRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	f, err := rt.Files.Restore(r.Context(), filesvc.RestoreInput{FileID: id, Conflict: model.ConflictStrategy(req.Conflict)})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{File: toFileDTO(f)})
}

func (rt *Router) handleFilePurge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "fileID")
	if err := rt.Files.Purge(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}
	writeNoContent(w)
}
