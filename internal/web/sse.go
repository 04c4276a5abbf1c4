package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/r3labs/sse/v2"

	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/service"
)

const (
	// MeetingsStream is the SSE stream carrying meeting update notices
	MeetingsStream = "meetings"
	// InvitesStream is the stream name clients ask for to receive their own invites
	InvitesStream = "invites"
)

// inviteStreamID is the per-user stream behind InvitesStream
func inviteStreamID(user string) string {
	return InvitesStream + ":" + user
}

// MeetingUpdate is the payload of an update event. Clients reload the
// meeting snapshot and resolve access again when they receive one.
type MeetingUpdate struct {
	MeetingID string               `json:"meeting_id"`
	Status    models.MeetingStatus `json:"status"`
	Modified  time.Time            `json:"modified"`
}

// SSEManager handles server-sent events to clients
type SSEManager struct {
	server      *sse.Server
	eventID     atomic.Uint64
	subscribers atomic.Int64
}

// NewSSEManager creates a new server-sent events manager
func NewSSEManager() *SSEManager {
	sm := &SSEManager{}

	sm.server = sse.NewWithCallback(sm.onSubscribe, sm.onUnsubscribe)
	// Update notices are not replayed to new clients
	sm.server.AutoReplay = false
	sm.server.Headers = map[string]string{
		"Cache-Control":               "no-cache, no-transform",
		"X-Accel-Buffering":           "no",
		"Access-Control-Allow-Origin": "*",
	}
	sm.server.CreateStream(MeetingsStream)

	return sm
}

func (sm *SSEManager) onSubscribe(streamID string, sub *sse.Subscriber) {
	n := sm.subscribers.Add(1)
	log.WithFields(log.Fields{"stream": streamID, "subscribers": n}).Debug("SSE client connected")
}

func (sm *SSEManager) onUnsubscribe(streamID string, sub *sse.Subscriber) {
	n := sm.subscribers.Add(-1)
	log.WithFields(log.Fields{"stream": streamID, "subscribers": n}).Debug("SSE client disconnected")
}

// Subscribers returns the number of connected clients
func (sm *SSEManager) Subscribers() int {
	return int(sm.subscribers.Load())
}

// ServeHTTP implements the http.Handler interface for SSE connections.
// Requests without a stream parameter get the meetings stream. The invites
// stream is per user and needs an authenticated request.
func (sm *SSEManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Handle CORS preflight
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	streamID := MeetingsStream
	switch r.URL.Query().Get("stream") {
	case "", MeetingsStream:
	case InvitesStream:
		user := UserFromContext(r.Context())
		if user == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		streamID = inviteStreamID(user)
		sm.server.CreateStream(streamID)
	default:
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}

	r = r.Clone(r.Context())
	q := r.URL.Query()
	q.Set("stream", streamID)
	r.URL.RawQuery = q.Encode()

	log.WithFields(log.Fields{
		"remote_addr": r.RemoteAddr,
		"proto":       r.Proto,
		"stream":      r.URL.Query().Get("stream"),
	}).Debug("SSE request")

	sm.server.ServeHTTP(w, r)
}

// NotifyMeetingUpdate publishes an update notice for meeting to all clients
func (sm *SSEManager) NotifyMeetingUpdate(meeting *models.Meeting) {
	data, err := json.Marshal(MeetingUpdate{
		MeetingID: meeting.ID,
		Status:    meeting.Status,
		Modified:  meeting.Modified,
	})
	if err != nil {
		log.Errorf("Failed to encode meeting update: %v", err)
		return
	}

	id := sm.eventID.Add(1)
	published := sm.server.TryPublish(MeetingsStream, &sse.Event{
		ID:    []byte(strconv.FormatUint(id, 10)),
		Event: []byte("update"),
		Data:  data,
	})
	if !published {
		log.WithFields(log.Fields{"meeting_id": meeting.ID}).Warn("SSE buffer full, dropped meeting update")
		return
	}

	log.WithFields(log.Fields{
		"meeting_id":  meeting.ID,
		"subscribers": sm.Subscribers(),
	}).Debug("Published meeting update")
}

// NotifyInvite publishes an invite event to the invitee's stream. Invitees
// without an open connection are skipped.
func (sm *SSEManager) NotifyInvite(notice service.InviteNotice) {
	streamID := inviteStreamID(notice.User)
	if !sm.server.StreamExists(streamID) {
		return
	}

	data, err := json.Marshal(notice)
	if err != nil {
		log.Errorf("Failed to encode invite notice: %v", err)
		return
	}

	id := sm.eventID.Add(1)
	published := sm.server.TryPublish(streamID, &sse.Event{
		ID:    []byte(strconv.FormatUint(id, 10)),
		Event: []byte("invite"),
		Data:  data,
	})
	if !published {
		log.WithUser(notice.User).WithField("meeting_id", notice.MeetingID).Warn("SSE buffer full, dropped invite")
		return
	}

	log.WithFields(log.Fields{"room": notice.RoomName, "invitee": notice.User}).Debug("Published invite")
}

// Close disconnects all clients
func (sm *SSEManager) Close() {
	sm.server.Close()
}
