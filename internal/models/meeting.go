package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by every store when a requested entity is not found
var ErrNotFound = errors.New("entity not found")

// MeetingStatus represents the current status of a meeting
type MeetingStatus string

const (
	MeetingStatusWaiting   MeetingStatus = "Waiting"
	MeetingStatusActive    MeetingStatus = "Active"
	MeetingStatusEnded     MeetingStatus = "Ended"
	MeetingStatusCancelled MeetingStatus = "Cancelled"
)

// IsLive reports whether a meeting in this status has a provisioned session
func (s MeetingStatus) IsLive() bool {
	return s == MeetingStatusWaiting || s == MeetingStatusActive
}

// InvitationStatus is a participant's answer to a meeting invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "Pending"
	InvitationAccepted InvitationStatus = "Accepted"
	InvitationRejected InvitationStatus = "Rejected"
)

// Participant represents an invited user
type Participant struct {
	User             string           `json:"user"`
	InvitationStatus InvitationStatus `json:"invitation_status"`
}

// Meeting represents one scheduled or live video session
type Meeting struct {
	ID            string        `json:"id"`
	Status        MeetingStatus `json:"status"`
	SessionID     string        `json:"session_id,omitempty"`
	Host          string        `json:"host"`
	ReferenceType string        `json:"reference_doctype,omitempty"`
	ReferenceName string        `json:"reference_docname,omitempty"`
	Participants  []Participant `json:"participants"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time,omitempty"`
	Modified      time.Time     `json:"modified"`
}

// FindParticipant returns the participant entry for user, or nil
func (m *Meeting) FindParticipant(user string) *Participant {
	for i := range m.Participants {
		if m.Participants[i].User == user {
			return &m.Participants[i]
		}
	}
	return nil
}

// AddParticipant appends user as a pending participant.
// Returns false if the user is the host or already invited.
func (m *Meeting) AddParticipant(user string) bool {
	if user == "" || user == m.Host || m.FindParticipant(user) != nil {
		return false
	}

	m.Participants = append(m.Participants, Participant{
		User:             user,
		InvitationStatus: InvitationPending,
	})
	return true
}

// Close moves the meeting into a terminal status and drops its session
func (m *Meeting) Close(status MeetingStatus, now time.Time) {
	m.Status = status
	m.SessionID = ""
	if m.EndTime.IsZero() {
		m.EndTime = now
	}
	m.Modified = now
}

// Clone returns a deep copy of the meeting
func (m *Meeting) Clone() *Meeting {
	if m == nil {
		return nil
	}
	c := *m
	if m.Participants != nil {
		c.Participants = make([]Participant, len(m.Participants))
		copy(c.Participants, m.Participants)
	}
	return &c
}
