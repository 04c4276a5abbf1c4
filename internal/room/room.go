// Package room derives conferencing room names from meeting metadata.
//
// The same name is used to join, end and answer invitations for a meeting, so
// every caller must go through this package rather than building names itself.
package room

import (
	"errors"
	"strings"

	"github.com/navikt/zmeet/internal/models"
)

// ErrInvalidName is returned when a session id cannot be recovered from a room name
var ErrInvalidName = errors.New("invalid room name")

const (
	prefix  = "Meet"
	instant = "Instant"
)

// Name returns the room name for a meeting
func Name(m *models.Meeting) string {
	return NameFor(m.ReferenceType, m.ReferenceName, m.SessionID)
}

// NameFor builds a room name from a reference document and a session id.
// Meetings without a reference document get an "Instant" room.
func NameFor(referenceType, referenceName, sessionID string) string {
	if referenceType == "" {
		return prefix + "-" + instant + "-" + sessionID
	}

	name := prefix + "-" + referenceType + "-" + referenceName + "-" + sessionID
	return strings.ReplaceAll(name, " ", "_")
}

// SessionID extracts the session id from a room name: the text after the
// last '-', without any query string.
func SessionID(name string) (string, error) {
	i := strings.LastIndex(name, "-")
	if i < 0 {
		return "", ErrInvalidName
	}

	sessionID := name[i+1:]
	if q := strings.Index(sessionID, "?"); q >= 0 {
		sessionID = sessionID[:q]
	}
	if sessionID == "" {
		return "", ErrInvalidName
	}
	return sessionID, nil
}
