package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cernbox/docvault/pkg/filesvc"
	"github.com/cernbox/docvault/pkg/foldersvc"
	"github.com/cernbox/docvault/pkg/log"
	"github.com/cernbox/docvault/pkg/nashealth"
	"github.com/cernbox/docvault/pkg/ports"
	"github.com/cernbox/docvault/pkg/uploadengine"
)

var logger = log.New("httpapi")

// Router wires the command services, the upload engine and the outbox's
// diagnostic read paths into a chi.Router. It is deliberately a thin
// translation layer: every handler validates almost nothing itself beyond
// decoding the body, deferring all business rules to the service it calls.
type Router struct {
	Folders *foldersvc.Service
	Files   *filesvc.Service
	Upload  *uploadengine.Engine
	Store   ports.Store
	Health  *nashealth.Cell
}

// NewRouter builds the full docvault HTTP surface of spec.md §6.
func (rt *Router) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(rt.healthGate)

	r.Get("/healthz", rt.handleHealthz)

	r.Route("/api/v1/folders", func(r chi.Router) {
		r.Post("/", rt.handleFolderCreate)
		r.Get("/{folderID}", rt.handleFolderGet)
		r.Patch("/{folderID}/rename", rt.handleFolderRename)
		r.Patch("/{folderID}/move", rt.handleFolderMove)
		r.Post("/{folderID}/trash", rt.handleFolderTrash)
		r.Post("/{folderID}/restore", rt.handleFolderRestore)
		r.Delete("/{folderID}", rt.handleFolderPurge)
		r.Get("/{folderID}/sync-status", rt.handleEntitySyncStatus(entityFolder))
	})

	r.Route("/api/v1/files", func(r chi.Router) {
		r.Post("/", rt.handleFileCreate)
		r.Get("/{fileID}", rt.handleFileGet)
		r.Patch("/{fileID}/rename", rt.handleFileRename)
		r.Patch("/{fileID}/move", rt.handleFileMove)
		r.Post("/{fileID}/trash", rt.handleFileTrash)
		r.Post("/{fileID}/restore", rt.handleFileRestore)
		r.Delete("/{fileID}", rt.handleFilePurge)
		r.Get("/{fileID}/sync-status", rt.handleEntitySyncStatus(entityFile))
	})

	r.Route("/api/v1/uploads", func(r chi.Router) {
		r.Post("/", rt.handleUploadInitiate)
		r.Put("/{sessionID}/parts/{partNumber}", rt.handleUploadPart)
		r.Post("/{sessionID}/complete", rt.handleUploadComplete)
		r.Post("/{sessionID}/abort", rt.handleUploadAbort)
		r.Get("/{sessionID}", rt.handleUploadStatus)
	})

	r.Route("/api/v1/upload-queue", func(r chi.Router) {
		r.Get("/{ticket}", rt.handleQueuePoll)
		r.Post("/{ticket}/cancel", rt.handleQueueCancel)
	})

	r.Get("/api/v1/sync-events/{syncEventID}", rt.handleSyncEventGet)

	return r
}

// healthGate rejects everything but the health probe itself while the NAS
// health cell is unhealthy, per spec.md §4.9's ingress-gating behaviour.
func (rt *Router) healthGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if rt.Health != nil {
			if err := rt.Health.Gate(); err != nil {
				HandleError(w, err)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if rt.Health == nil {
		writeJSONOK(w, map[string]string{"state": "healthy"})
		return
	}
	st := rt.Health.Get()
	writeJSONOK(w, &nasHealthDTO{State: string(st.State), LastCheckedAt: st.LastCheckedAt, LastError: st.LastError})
}
