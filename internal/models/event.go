package models

// Jitsi webhook event names
const (
	EventRoomCreated   = "room_created"
	EventRoomDestroyed = "room_destroyed"
)

// WebhookEvent represents a room event posted by the Jitsi event-sync module
type WebhookEvent struct {
	Event string `json:"event"`
	Room  string `json:"room"`
	Token string `json:"token"`
}

// WebhookResponse is returned to Jitsi for every accepted event
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handled reports whether the event is one zmeet acts on
func (e *WebhookEvent) Handled() bool {
	if e.Room == "" {
		return false
	}
	return e.Event == EventRoomCreated || e.Event == EventRoomDestroyed
}
