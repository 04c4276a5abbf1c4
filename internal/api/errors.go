package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/notes"
	"github.com/navikt/zmeet/internal/service"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotPermitted), errors.Is(err, service.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrNoUsers),
		errors.Is(err, notes.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvitationRejected), errors.Is(err, notes.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, service.ErrIntegrationDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes it with the mapped status code.
// Internal errors are not echoed to the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{"path": r.URL.Path}).WithError(err).Error("Request failed")
		msg = "internal server error"
	} else {
		log.WithFields(log.Fields{"path": r.URL.Path, "status": status}).Debugf("Request rejected: %v", err)
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Error encoding response: %v", err)
	}
}

// maxBodySize limits JSON request bodies
const maxBodySize = 1 << 20

// decodeJSON reads a JSON request body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}
