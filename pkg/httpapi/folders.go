package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cernbox/docvault/pkg/foldersvc"
	"github.com/cernbox/docvault/pkg/model"
)

type createFolderRequest struct {
	ParentID  string `json:"parentId"`
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
	Conflict  string `json:"conflict,omitempty"`
}

func (rt *Router) handleFolderCreate(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	f, err := rt.Folders.Create(r.Context(), foldersvc.CreateInput{
		ParentID:  req.ParentID,
		Name:      req.Name,
		CreatedBy: req.CreatedBy,
		Conflict:  model.ConflictStrategy(req.Conflict),
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONCreated(w, &commandResultDTO{Folder: toFolderDTO(f)})
}

func (rt *Router) handleFolderGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	f, err := rt.Store.GetFolder(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, toFolderDTO(f))
}

type renameFolderRequest struct {
	NewName  string `json:"newName"`
	Conflict string `json:"conflict,omitempty"`
}

func (rt *Router) handleFolderRename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	var req renameFolderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	f, err := rt.Folders.Rename(r.Context(), foldersvc.RenameInput{
		FolderID: id,
		NewName:  req.NewName,
		Conflict: model.ConflictStrategy(req.Conflict),
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{Folder: toFolderDTO(f)})
}

type moveFolderRequest struct {
	NewParentID string `json:"newParentId"`
	Conflict    string `json:"conflict,omitempty"`
}

func (rt *Router) handleFolderMove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	var req moveFolderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	f, err := rt.Folders.Move(r.Context(), foldersvc.MoveInput{
		FolderID:    id,
		NewParentID: req.NewParentID,
		Conflict:    model.ConflictStrategy(req.Conflict),
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{Folder: toFolderDTO(f)})
}

type trashRequest struct {
	DeletedBy string `json:"deletedBy"`
}

func (rt *Router) handleFolderTrash(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	var req trashRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	f, err := rt.Folders.Trash(r.Context(), foldersvc.TrashInput{FolderID: id, DeletedBy: req.DeletedBy})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{Folder: toFolderDTO(f)})
}

type restoreRequest struct {
	Conflict string `json:"conflict,omitempty"`
}

func (rt *Router) handleFolderRestore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	var req restoreRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	f, err := rt.Folders.Restore(r.Context(), foldersvc.RestoreInput{FolderID: id, Conflict: model.ConflictStrategy(req.Conflict)})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{Folder: toFolderDTO(f)})
}

func (rt *Router) handleFolderPurge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	if err := rt.Folders.Purge(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}
	writeNoContent(w)
}
