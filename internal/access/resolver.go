// Package access decides which meeting actions a user may take.
package access

import (
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/room"
)

// Action is a user-facing meeting action
type Action string

const (
	ActionJoin   Action = "join"
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionEnd    Action = "end"
)

// Outcome classifies an access decision
type Outcome string

const (
	NoAccess        Outcome = "no_access"
	PendingDecision Outcome = "pending_decision"
	Rejected        Outcome = "rejected"
	Joinable        Outcome = "joinable"
)

// RejectedWarning is shown to users who declined the invitation
const RejectedWarning = "You have rejected this invitation."

// Decision is the set of actions available to one user on one meeting
type Decision struct {
	Outcome  Outcome  `json:"outcome"`
	Actions  []Action `json:"actions"`
	RoomName string   `json:"room_name,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

// Allows reports whether the decision permits action
func (d Decision) Allows(action Action) bool {
	for _, a := range d.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// ResolveRoomName returns the canonical room name for a meeting
func ResolveRoomName(m *models.Meeting) string {
	return room.Name(m)
}

// Resolve computes the access decision for user on meeting m.
// It never fails: missing or inconsistent data yields NoAccess.
func Resolve(m *models.Meeting, user string) Decision {
	if m == nil || !m.Status.IsLive() || m.SessionID == "" {
		return Decision{Outcome: NoAccess, Actions: []Action{}}
	}

	roomName := ResolveRoomName(m)
	isHost := user != "" && user == m.Host

	// Host precedence: invitation bookkeeping never restricts the host
	if isHost {
		return Decision{
			Outcome:  Joinable,
			Actions:  []Action{ActionJoin, ActionEnd},
			RoomName: roomName,
		}
	}

	var status models.InvitationStatus
	if user != "" {
		if p := m.FindParticipant(user); p != nil {
			status = p.InvitationStatus
		}
	}

	switch status {
	case models.InvitationPending:
		return Decision{
			Outcome:  PendingDecision,
			Actions:  []Action{ActionAccept, ActionReject},
			RoomName: roomName,
		}
	case models.InvitationRejected:
		return Decision{
			Outcome:  Rejected,
			Actions:  []Action{},
			RoomName: roomName,
			Warning:  RejectedWarning,
		}
	case models.InvitationAccepted:
		return Decision{
			Outcome:  Joinable,
			Actions:  []Action{ActionJoin},
			RoomName: roomName,
		}
	default:
		return Decision{Outcome: NoAccess, Actions: []Action{}, RoomName: roomName}
	}
}
