// Package handler exposes the HTTP surface of the service: workspace
// management, archive browsing, and analysis endpoints. Handlers decode
// requests, call into the services, and map service errors onto HTTP
// statuses with stable human-readable messages.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"zipsight/internal/analysis"
	"zipsight/internal/archive"
	"zipsight/internal/service/analyze"
	"zipsight/internal/service/workspace"
)

// DefaultMaxUploadBytes caps the request body of archive uploads.
const DefaultMaxUploadBytes = 50 << 20 // 50 MiB

// analysisDisclosure is surfaced wherever an analysis can be requested.
// Running an analysis sends workspace content to an external provider,
// and the API states that instead of burying it in docs.
const analysisDisclosure = "Requesting an analysis sends the selected file paths and file contents of this workspace to the configured external analysis provider."

type Handler struct {
	ws             *workspace.Service
	an             *analyze.Service
	maxUploadBytes int64
	log            *logrus.Entry
}

func New(ws *workspace.Service, an *analyze.Service, maxUploadBytes int64, log *logrus.Entry) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{ws: ws, an: an, maxUploadBytes: maxUploadBytes, log: log}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto HTTP statuses. Every known failure
// class gets its own message so clients can tell a broken upload from a
// broken analysis backend.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, archive.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "uploaded archive exceeds the size limits"})
	case errors.Is(err, archive.ErrMalformed):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "uploaded archive could not be decoded"})
	case errors.Is(err, workspace.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "workspace not found"})
	case errors.Is(err, workspace.ErrEntryNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "entry not found in workspace"})
	case errors.Is(err, analyze.ErrNoReport):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no analysis report for this workspace yet"})
	case errors.Is(err, analyze.ErrAnalysisRunning):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "an analysis is already running for this workspace"})
	case errors.Is(err, analysis.ErrNoEntries):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "workspace has no files to analyze"})
	case errors.Is(err, analysis.ErrContractViolation):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "analysis service returned an invalid response"})
	case errors.Is(err, analysis.ErrServiceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "analysis service is unavailable"})
	default:
		h.log.WithError(err).Error("unhandled request error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
