package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/navikt/zmeet/internal/service"
)

// PreviewResponse carries the first lines of a transcript
type PreviewResponse struct {
	Lines []string `json:"lines"`
}

// ExportRequest is the body of POST /api/notes/{id}/export
type ExportRequest struct {
	Format string `json:"format"`
}

// ExportResponse points at the rendered file
type ExportResponse struct {
	FileURL string `json:"file_url"`
}

// NotesHandler handles meeting notes storage and export
type NotesHandler struct {
	notesService NotesServicer
}

// NewNotesHandler creates a new notes handler
func NewNotesHandler(notesService NotesServicer) *NotesHandler {
	return &NotesHandler{notesService: notesService}
}

// ServeHTTP routes notes requests
func (h *NotesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	// Path format: /api/notes[/{notesID}/{preview|export|download}]
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/notes"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodPost:
		h.saveNotes(w, r, user)
	case len(parts) == 2 && parts[1] == "preview" && r.Method == http.MethodGet:
		h.preview(w, r, user, parts[0])
	case len(parts) == 2 && parts[1] == "export" && r.Method == http.MethodPost:
		h.export(w, r, user, parts[0])
	case len(parts) == 2 && parts[1] == "download" && r.Method == http.MethodGet:
		h.download(w, r, user, parts[0])
	default:
		http.NotFound(w, r)
	}
}

// saveNotes handles POST /api/notes
func (h *NotesHandler) saveNotes(w http.ResponseWriter, r *http.Request, user string) {
	var req service.SaveNotesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.notesService.SaveNotes(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// preview handles GET /api/notes/{notesID}/preview
func (h *NotesHandler) preview(w http.ResponseWriter, r *http.Request, user, id string) {
	lines, err := h.notesService.Preview(r.Context(), user, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Lines: lines})
}

// export handles POST /api/notes/{notesID}/export
func (h *NotesHandler) export(w http.ResponseWriter, r *http.Request, user, id string) {
	var req ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Format == "" {
		req.Format = "txt"
	}

	fileURL, err := h.notesService.ExportLink(r.Context(), user, id, req.Format)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{FileURL: fileURL})
}

// download handles GET /api/notes/{notesID}/download?format=
func (h *NotesHandler) download(w http.ResponseWriter, r *http.Request, user, id string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "txt"
	}

	f, err := h.notesService.Download(r.Context(), user, id, format)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(f.Data)
}
