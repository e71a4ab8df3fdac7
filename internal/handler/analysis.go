package handler

import (
	"net/http"

	"zipsight/internal/service/analyze"
)

type analysisResponse struct {
	Record *analyze.Record `json:"record"`
	Notice string          `json:"notice,omitempty"`
}

// RunAnalysis triggers a single analysis of the workspace archive. The
// call blocks until the provider answers; progress is also published on
// the events stream.
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := h.an.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Record: rec, Notice: analysisDisclosure})
}

func (h *Handler) LastAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := h.an.Last(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Record: rec})
}
