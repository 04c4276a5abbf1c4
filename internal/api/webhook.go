package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/models"
)

// WebhookHandler processes room events posted by the Jitsi event-sync module
type WebhookHandler struct {
	meetingService MeetingServicer
	token          string
}

// NewWebhookHandler creates a webhook handler accepting events signed with token
func NewWebhookHandler(meetingService MeetingServicer, token string) *WebhookHandler {
	if token == "" {
		log.Warnf("JITSI_WEBHOOK_TOKEN not set, all Jitsi webhook calls will be refused")
	}
	return &WebhookHandler{
		meetingService: meetingService,
		token:          token,
	}
}

// ServeHTTP handles HTTP requests for the webhook endpoint
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Limit request body size to prevent abuse
	body, err := io.ReadAll(io.LimitReader(r.Body, 1048576))
	if err != nil {
		log.Errorf("Error reading webhook body: %v", err)
		writeError(w, http.StatusBadRequest, "Error reading request body")
		return
	}
	defer r.Body.Close()

	event, err := parseWebhookEvent(r, body)
	if err != nil {
		log.Warnf("Error parsing webhook payload: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if h.token == "" {
		writeError(w, http.StatusForbidden, "Webhook Token is not configured")
		return
	}
	if subtle.ConstantTimeCompare([]byte(event.Token), []byte(h.token)) != 1 {
		log.Warnf("Rejected Jitsi webhook with invalid token")
		writeError(w, http.StatusForbidden, "Invalid Webhook Token")
		return
	}

	if !event.Handled() {
		log.WithFields(log.Fields{"event": event.Event}).Debug("Ignoring Jitsi event")
		writeJSON(w, http.StatusOK, models.WebhookResponse{Status: "ignored", Message: "Event not handled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var message string
	switch event.Event {
	case models.EventRoomCreated:
		err = h.meetingService.StartMeeting(ctx, event.Room)
		message = fmt.Sprintf("Meeting started for room %s", event.Room)
	case models.EventRoomDestroyed:
		err = h.meetingService.SuspendMeeting(ctx, event.Room)
		message = fmt.Sprintf("Meeting ended for room %s", event.Room)
	}

	if errors.Is(err, models.ErrNotFound) {
		log.WithRoom(event.Room).Debug("Jitsi event for unknown room")
		writeJSON(w, http.StatusOK, models.WebhookResponse{Status: "ignored", Message: "Unknown room"})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.WithRoom(event.Room).WithField("event", event.Event).Info("Processed Jitsi event")
	writeJSON(w, http.StatusOK, models.WebhookResponse{Status: "success", Message: message})
}

// parseWebhookEvent accepts JSON and form encoded payloads. A token in the
// query string is used when the payload carries none.
func parseWebhookEvent(r *http.Request, body []byte) (*models.WebhookEvent, error) {
	var event models.WebhookEvent

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		event.Event = form.Get("event")
		event.Room = form.Get("room")
		event.Token = form.Get("token")
	} else if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}

	if event.Token == "" {
		event.Token = r.URL.Query().Get("token")
	}
	return &event, nil
}
