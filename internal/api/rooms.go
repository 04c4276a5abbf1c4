package api

import (
	"context"
	"net/http"

	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/web"
)

// CreateRoomRequest is the body of POST /api/rooms
type CreateRoomRequest struct {
	ReferenceType string `json:"reference_doctype"`
	ReferenceName string `json:"reference_docname"`
}

// RoomRequest names the room an action applies to
type RoomRequest struct {
	RoomName string `json:"room_name"`
}

// InviteRequest is the body of POST /api/rooms/invite
type InviteRequest struct {
	RoomName string   `json:"room_name"`
	Users    []string `json:"users"`
}

// InviteResponse lists the users that were actually added
type InviteResponse struct {
	Added []string `json:"added"`
}

// ActionResponse acknowledges a room action
type ActionResponse struct {
	Status string `json:"status"`
}

// RoomHandler handles the room actions of the meeting gateway
type RoomHandler struct {
	meetingService MeetingServicer
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(meetingService MeetingServicer) *RoomHandler {
	return &RoomHandler{meetingService: meetingService}
}

// ServeHTTP routes room requests
func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/rooms/join":
		h.joinRoom(w, r)
	case r.Method != http.MethodPost:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	case r.URL.Path == "/api/rooms" || r.URL.Path == "/api/rooms/":
		h.createRoom(w, r)
	case r.URL.Path == "/api/rooms/invite":
		h.inviteUsers(w, r)
	case r.URL.Path == "/api/rooms/accept":
		h.roomAction(w, r, h.meetingService.AcceptInvitation)
	case r.URL.Path == "/api/rooms/reject":
		h.roomAction(w, r, h.meetingService.RejectInvitation)
	case r.URL.Path == "/api/rooms/end":
		h.roomAction(w, r, h.meetingService.EndMeeting)
	default:
		http.NotFound(w, r)
	}
}

// createRoom handles POST /api/rooms
func (h *RoomHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.meetingService.CreateRoom(r.Context(), user, req.ReferenceType, req.ReferenceName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// inviteUsers handles POST /api/rooms/invite
func (h *RoomHandler) inviteUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req InviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoomName == "" {
		writeError(w, http.StatusBadRequest, "room_name is required")
		return
	}

	added, err := h.meetingService.InviteUsers(r.Context(), user, req.RoomName, req.Users)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if added == nil {
		added = []string{}
	}
	writeJSON(w, http.StatusOK, InviteResponse{Added: added})
}

// roomAction handles the accept, reject and end actions, which share a body
func (h *RoomHandler) roomAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, user, roomName string) error) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req RoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoomName == "" {
		writeError(w, http.StatusBadRequest, "room_name is required")
		return
	}

	if err := action(r.Context(), user, req.RoomName); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActionResponse{Status: "ok"})
}

// joinRoom handles GET /api/rooms/join?room_name= by redirecting to Jitsi.
// Anonymous requests join as guests when guests are allowed.
func (h *RoomHandler) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomName := r.URL.Query().Get("room_name")
	if roomName == "" {
		writeError(w, http.StatusBadRequest, "room_name is required")
		return
	}

	user := web.UserFromContext(r.Context())
	joinURL, err := h.meetingService.JoinRoom(r.Context(), user, roomName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithRoom(roomName).WithField("guest", user == "").Info("Redirecting to Jitsi room")
	http.Redirect(w, r, joinURL, http.StatusFound)
}
