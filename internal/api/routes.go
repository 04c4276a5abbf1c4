package api

import (
	"net/http"

	"github.com/navikt/zmeet/internal/config"
)

// Dependencies bundles what the HTTP handlers need
type Dependencies struct {
	Meetings   MeetingServicer
	Notes      NotesServicer
	Store      ReadinessChecker
	Events     http.Handler
	Jitsi      config.JitsiConfig
	Conference config.ConferenceSettings
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints for Kubernetes
	mux.HandleFunc("/health/live", HealthLiveHandler)
	mux.HandleFunc("/health/ready", HealthReadyHandler(deps.Store))

	// Jitsi room events
	mux.Handle("/webhook/jitsi", NewWebhookHandler(deps.Meetings, deps.Jitsi.WebhookToken))

	meetingHandler := NewMeetingHandler(deps.Meetings)
	mux.Handle("/api/meetings", meetingHandler)
	mux.Handle("/api/meetings/", meetingHandler)

	roomHandler := NewRoomHandler(deps.Meetings)
	mux.Handle("/api/rooms", roomHandler)
	mux.Handle("/api/rooms/", roomHandler)

	if deps.Notes != nil {
		notesHandler := NewNotesHandler(deps.Notes)
		mux.Handle("/api/notes", notesHandler)
		mux.Handle("/api/notes/", notesHandler)
	}

	mux.HandleFunc("/api/conference/config", ConferenceConfigHandler(deps.Conference))

	if deps.Events != nil {
		mux.Handle("/events", deps.Events)
	}

	return mux
}
