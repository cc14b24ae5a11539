// Package httpapi is the thin REST ingress (A5): chi-routed handlers over
// the command services, the multipart upload engine and the outbox's
// diagnostic read paths. It is shape-only per spec.md §6 — no auth, no
// audit logging — and translates pkg/errkind's error kinds into HTTP status
// codes at the edge; nothing below this package imports net/http.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cernbox/docvault/pkg/errkind"
)

// Problem is an RFC 7807 "problem details" response body.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

const contentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", contentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&Problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func badRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, "Bad Request", detail)
}

func notFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", detail)
}

func conflict(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusConflict, "Conflict", detail)
}

func preconditionFailed(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusPreconditionFailed, "Precondition Failed", detail)
}

func tooLarge(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", detail)
}

func serviceUnavailable(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", detail)
}

func internalServerError(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// HandleError maps err's errkind classification to the status codes of
// spec.md §6 and writes the corresponding problem response. Unclassified
// errors (storage/DB failures that never went through errkind) are folded
// into 500 rather than leaking internal detail to the caller.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errkind.IsNotFound(err):
		notFound(w, err.Error())
	case errkind.IsConflict(err):
		conflict(w, err.Error())
	case errkind.IsPrecondition(err):
		preconditionFailed(w, err.Error())
	case errkind.IsValidation(err):
		badRequest(w, err.Error())
	case errkind.IsCapacity(err):
		tooLarge(w, err.Error())
	case errkind.IsServiceUnavailable(err):
		serviceUnavailable(w, err.Error())
	default:
		logger.Error().Err(err).Msg("httpapi: unclassified error")
		internalServerError(w, "an internal error occurred")
	}
}

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONOK(w http.ResponseWriter, data any)      { WriteJSON(w, http.StatusOK, data) }
func writeJSONCreated(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusCreated, data) }
func writeJSONAccepted(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusAccepted, data) }

func writeNoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// decodeJSONBody decodes r's body into v, writing a 400 problem response
// and returning false on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeOptionalJSONBody decodes r's body into v if one was sent, leaving v
// at its zero value on an empty body. Used by endpoints whose request body
// is entirely optional (e.g. restore's conflict strategy override).
func decodeOptionalJSONBody(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}
