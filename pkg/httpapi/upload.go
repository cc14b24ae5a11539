package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cernbox/docvault/pkg/filesvc"
	"github.com/cernbox/docvault/pkg/model"
	"github.com/cernbox/docvault/pkg/uploadengine"
)

type initiateUploadRequest struct {
	FileName  string `json:"fileName"`
	FolderID  string `json:"folderId"`
	TotalSize int64  `json:"totalSize"`
	MimeType  string `json:"mimeType"`
	CreatedBy string `json:"createdBy"`
}

// handleUploadInitiate returns 201 with an ACTIVE session when the
// admission queue has headroom, or 202 with a WAITING ticket when it
// doesn't, per spec.md §6's multipart sketch.
func (rt *Router) handleUploadInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateUploadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	res, err := rt.Upload.Initiate(r.Context(), uploadengine.InitiateInput{
		FileName:  req.FileName,
		FolderID:  req.FolderID,
		TotalSize: req.TotalSize,
		MimeType:  req.MimeType,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	if res.Session != nil {
		writeJSONCreated(w, &initiateResponseDTO{Session: toUploadSessionDTO(res.Session)})
		return
	}
	writeJSONAccepted(w, &initiateResponseDTO{Ticket: toQueueTicketDTO(res.Ticket)})
}

func (rt *Router) handleUploadPart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	partNumber, err := strconv.Atoi(chi.URLParam(r, "partNumber"))
	if err != nil {
		badRequest(w, "partNumber must be an integer")
		return
	}
	if r.ContentLength < 0 {
		badRequest(w, "Content-Length is required for a part upload")
		return
	}
	res, err := rt.Upload.UploadPart(r.Context(), sessionID, partNumber, r.ContentLength, r.Body)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &uploadPartResponseDTO{Session: toUploadSessionDTO(res.Session), ProgressPct: res.ProgressPct})
}

type completeUploadRequest struct {
	Name      string  `json:"name"`
	Checksum  *string `json:"checksum,omitempty"`
	CreatedBy string  `json:"createdBy"`
	Conflict  string  `json:"conflict,omitempty"`
}

func (rt *Router) handleUploadComplete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req completeUploadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	sess, _, _, err := rt.Upload.GetStatus(r.Context(), sessionID)
	if err != nil {
		HandleError(w, err)
		return
	}
	file, err := rt.Upload.Complete(r.Context(), sessionID, filesvc.CreateInput{
		FolderID:  sess.FolderID,
		Name:      valueOr(req.Name, sess.FileName),
		SizeBytes: sess.TotalSize,
		MimeType:  sess.MimeType,
		Checksum:  req.Checksum,
		CreatedBy: valueOr(req.CreatedBy, sess.CreatedBy),
		Conflict:  model.ConflictStrategy(req.Conflict),
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &commandResultDTO{File: toFileDTO(file)})
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (rt *Router) handleUploadAbort(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := rt.Upload.Abort(r.Context(), sessionID); err != nil {
		HandleError(w, err)
		return
	}
	writeNoContent(w)
}

func (rt *Router) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, next, remaining, err := rt.Upload.GetStatus(r.Context(), sessionID)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, &uploadStatusResponseDTO{Session: toUploadSessionDTO(sess), NextMissingPart: next, RemainingBytes: remaining})
}

func (rt *Router) handleQueuePoll(w http.ResponseWriter, r *http.Request) {
	ticket := chi.URLParam(r, "ticket")
	t, err := rt.Upload.Admitter.Status(ticket)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, toQueueTicketDTO(t))
}

func (rt *Router) handleQueueCancel(w http.ResponseWriter, r *http.Request) {
	ticket := chi.URLParam(r, "ticket")
	if err := rt.Upload.Admitter.Cancel(ticket); err != nil {
		HandleError(w, err)
		return
	}
	writeNoContent(w)
}
