package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"zipsight/internal/archive"
	"zipsight/internal/selector"
	"zipsight/internal/service/workspace"
)

type workspaceResponse struct {
	Workspace *workspace.Workspace `json:"workspace"`
	Notice    string               `json:"notice,omitempty"`
}

type workspaceListResponse struct {
	Workspaces []*workspace.Workspace `json:"workspaces"`
}

type entryView struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	Size        int    `json:"size"`
	Eligible    bool   `json:"eligible"`
	Content     string `json:"content,omitempty"`
}

type entryListResponse struct {
	WorkspaceID string      `json:"workspaceId"`
	Entries     []entryView `json:"entries"`
}

type fileResponse struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Content string `json:"content"`
}

// readArchiveUpload pulls the archive bytes and workspace name out of a
// multipart request. It writes the error response itself and returns
// ok=false when the request cannot be used.
func (h *Handler) readArchiveUpload(w http.ResponseWriter, r *http.Request) (name string, data []byte, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, fmt.Errorf("%w: upload exceeds %d bytes", archive.ErrTooLarge, tooLarge.Limit))
			return "", nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return "", nil, false
	}
	file, header, err := r.FormFile("archive")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `form field "archive" is required`})
		return "", nil, false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reading uploaded archive failed"})
		return "", nil, false
	}
	name = strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}
	return name, data, true
}

func (h *Handler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	name, data, ok := h.readArchiveUpload(w, r)
	if !ok {
		return
	}
	ws, err := h.ws.Create(r.Context(), name, data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, workspaceResponse{Workspace: ws, Notice: analysisDisclosure})
}

func (h *Handler) ListWorkspaces(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, workspaceListResponse{Workspaces: h.ws.List()})
}

func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.ws.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceResponse{Workspace: ws})
}

func (h *Handler) ReplaceArchive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	name, data, ok := h.readArchiveUpload(w, r)
	if !ok {
		return
	}
	ws, err := h.ws.Replace(r.Context(), id, name, data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// The stored report was dropped with the old archive; drop the
	// in-memory record too so Last does not serve stale results.
	h.an.Forget(id)
	writeJSON(w, http.StatusOK, workspaceResponse{Workspace: ws})
}

func (h *Handler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.ws.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.an.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entries, err := h.ws.Entries(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	includeContent := false
	switch strings.ToLower(r.URL.Query().Get("content")) {
	case "1", "true", "yes":
		includeContent = true
	}
	out := entryListResponse{WorkspaceID: id, Entries: make([]entryView, 0, len(entries))}
	for _, e := range entries {
		v := entryView{
			Name:        e.Name,
			Path:        e.Path,
			IsDirectory: e.IsDirectory,
			Size:        len(e.Content),
			Eligible:    selector.Eligible(e),
		}
		if includeContent && !e.IsDirectory {
			v.Content = e.Content
		}
		out.Entries = append(out.Entries, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path query parameter is required"})
		return
	}
	entry, err := h.ws.File(r.Context(), r.PathValue("id"), path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fileResponse{
		Name:    entry.Name,
		Path:    entry.Path,
		Size:    len(entry.Content),
		Content: entry.Content,
	})
}

func (h *Handler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ws, err := h.ws.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Backends with presigned URL support hand the download off directly.
	if url, err := h.ws.ArchiveURL(r.Context(), id); err == nil && url != "" {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}
	data, err := h.ws.Archive(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ws.Name+".zip"))
	_, _ = w.Write(data)
}
