package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cernbox/docvault/pkg/errkind"
	"github.com/cernbox/docvault/pkg/model"
)

const (
	entityFolder = model.EntityFolder
	entityFile   = model.EntityFile
)

// handleEntitySyncStatus returns a handler factory for the per-entity
// diagnostic endpoint of spec.md §6: the NAS storage object's current
// availability plus the most recently created sync event for that entity —
// the view a caller polls to observe a background compensation that never
// surfaced to their original command response.
func (rt *Router) handleEntitySyncStatus(entityType model.EntityType) http.HandlerFunc {
	paramName := "folderID"
	if entityType == entityFile {
		paramName = "fileID"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, paramName)

		so, soErr := rt.Store.GetStorageObject(r.Context(), id, entityType, model.TierNAS)
		if soErr != nil && !errkind.IsNotFound(soErr) {
			HandleError(w, soErr)
			return
		}

		ev, evErr := rt.Store.GetLatestSyncEventForEntity(r.Context(), id, entityType)
		if evErr != nil && !errkind.IsNotFound(evErr) {
			HandleError(w, evErr)
			return
		}

		if soErr != nil && evErr != nil {
			notFound(w, "no storage object or sync event found for "+id)
			return
		}

		resp := &entitySyncStatusDTO{EntityID: id, EntityType: string(entityType)}
		if soErr == nil {
			resp.NAS = toStorageObjectDTO(so)
		}
		if evErr == nil {
			resp.LatestEvent = toSyncEventDTO(ev)
		}
		writeJSONOK(w, resp)
	}
}

func (rt *Router) handleSyncEventGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "syncEventID")
	ev, err := rt.Store.GetSyncEvent(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}
	writeJSONOK(w, toSyncEventDTO(ev))
}
