package api

import (
	"net/http"
	"strings"

	"github.com/navikt/zmeet/internal/web"
)

// MeetingHandler serves meeting snapshots and access decisions
type MeetingHandler struct {
	meetingService MeetingServicer
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingService MeetingServicer) *MeetingHandler {
	return &MeetingHandler{meetingService: meetingService}
}

// ServeHTTP handles HTTP requests for meetings
func (h *MeetingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	// Path format: /api/meetings[/{meetingID}[/access]]
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/meetings"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "":
		h.listMeetings(w, r)
	case len(parts) == 1:
		h.getMeeting(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "access":
		h.resolveAccess(w, r, parts[0], user)
	default:
		http.NotFound(w, r)
	}
}

// listMeetings handles GET /api/meetings. Pass all=true to include closed meetings.
func (h *MeetingHandler) listMeetings(w http.ResponseWriter, r *http.Request) {
	includeEnded := r.URL.Query().Get("all") == "true"

	meetings, err := h.meetingService.ListMeetings(r.Context(), includeEnded)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meetings)
}

// getMeeting handles GET /api/meetings/{meetingID}
func (h *MeetingHandler) getMeeting(w http.ResponseWriter, r *http.Request, meetingID string) {
	meeting, err := h.meetingService.GetMeeting(r.Context(), meetingID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

// resolveAccess handles GET /api/meetings/{meetingID}/access for the acting user
func (h *MeetingHandler) resolveAccess(w http.ResponseWriter, r *http.Request, meetingID, user string) {
	decision, err := h.meetingService.ResolveAccess(r.Context(), meetingID, user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// requireUser returns the acting user or answers 401
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := web.UserFromContext(r.Context())
	if user == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return user, true
}
