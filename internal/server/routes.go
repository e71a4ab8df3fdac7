package server

import (
	"net/http"

	"zipsight/internal/handler"
	"zipsight/internal/middleware"
)

// NewMux wires every route to its handler. Method-qualified patterns
// keep dispatch in the mux instead of per-handler method checks.
func NewMux(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	// Workspaces
	mux.HandleFunc("POST /v1/workspaces", h.CreateWorkspace)
	mux.HandleFunc("GET /v1/workspaces", h.ListWorkspaces)
	mux.HandleFunc("GET /v1/workspaces/{id}", h.GetWorkspace)
	mux.HandleFunc("DELETE /v1/workspaces/{id}", h.DeleteWorkspace)
	mux.HandleFunc("PUT /v1/workspaces/{id}/archive", h.ReplaceArchive)
	mux.HandleFunc("GET /v1/workspaces/{id}/archive", h.DownloadArchive)

	// Browsing
	mux.HandleFunc("GET /v1/workspaces/{id}/entries", h.ListEntries)
	mux.HandleFunc("GET /v1/workspaces/{id}/file", h.GetFile)

	// Analysis
	mux.HandleFunc("POST /v1/workspaces/{id}/analyses", h.RunAnalysis)
	mux.HandleFunc("GET /v1/workspaces/{id}/analyses/last", h.LastAnalysis)
	mux.HandleFunc("GET /v1/workspaces/{id}/events", h.HandleEvents)

	mux.HandleFunc("GET /healthz", h.HandleHealth)

	return middleware.CORS(mux)
}
