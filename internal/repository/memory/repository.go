// Package memory provides an in-memory implementation of the repository interface
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/navikt/zmeet/internal/models"
)

// ErrNotFound is returned when a requested entity is not found
var ErrNotFound = models.ErrNotFound

// Repository implements the repository interface with in-memory storage
type Repository struct {
	meetings map[string]*models.Meeting
	// sessions maps a live session id to its meeting id
	sessions map[string]string
	notes    map[string]*models.MeetingNotes
	mu       sync.RWMutex
}

// NewRepository creates a new in-memory repository
func NewRepository() *Repository {
	return &Repository{
		meetings: make(map[string]*models.Meeting),
		sessions: make(map[string]string),
		notes:    make(map[string]*models.MeetingNotes),
	}
}

// Ping always succeeds for the in-memory store
func (r *Repository) Ping(ctx context.Context) error {
	return nil
}

// SaveMeeting stores a copy of the meeting, replacing any previous version
func (r *Repository) SaveMeeting(ctx context.Context, meeting *models.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Drop the index entry of a session the meeting no longer carries
	if old, ok := r.meetings[meeting.ID]; ok && old.SessionID != "" && old.SessionID != meeting.SessionID {
		delete(r.sessions, old.SessionID)
	}

	r.meetings[meeting.ID] = meeting.Clone()
	if meeting.SessionID != "" {
		r.sessions[meeting.SessionID] = meeting.ID
	}

	return nil
}

// GetMeeting retrieves a meeting by ID
func (r *Repository) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meeting, ok := r.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return meeting.Clone(), nil
}

// GetMeetingBySession retrieves the meeting currently holding a session id
func (r *Repository) GetMeetingBySession(ctx context.Context, sessionID string) (*models.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	meeting, ok := r.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return meeting.Clone(), nil
}

// ListMeetings returns all meetings with a live session
func (r *Repository) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meetings := make([]*models.Meeting, 0, len(r.meetings))
	for _, meeting := range r.meetings {
		if meeting.Status.IsLive() {
			meetings = append(meetings, meeting.Clone())
		}
	}

	sortByStartTime(meetings)
	return meetings, nil
}

// ListAllMeetings returns all meetings, including ended and cancelled ones
func (r *Repository) ListAllMeetings(ctx context.Context) ([]*models.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meetings := make([]*models.Meeting, 0, len(r.meetings))
	for _, meeting := range r.meetings {
		meetings = append(meetings, meeting.Clone())
	}

	sortByStartTime(meetings)
	return meetings, nil
}

// DeleteMeeting removes a meeting and its notes by ID
func (r *Repository) DeleteMeeting(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meeting, ok := r.meetings[id]
	if !ok {
		return ErrNotFound
	}

	if meeting.SessionID != "" {
		delete(r.sessions, meeting.SessionID)
	}
	delete(r.meetings, id)

	for notesID, n := range r.notes {
		if n.MeetingID == id {
			delete(r.notes, notesID)
		}
	}

	return nil
}

// SaveNotes stores a copy of the meeting notes
func (r *Repository) SaveNotes(ctx context.Context, notes *models.MeetingNotes) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notes[notes.ID] = notes.Clone()
	return nil
}

// GetNotes retrieves meeting notes by ID
func (r *Repository) GetNotes(ctx context.Context, id string) (*models.MeetingNotes, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes, ok := r.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return notes.Clone(), nil
}

func sortByStartTime(meetings []*models.Meeting) {
	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].StartTime.Equal(meetings[j].StartTime) {
			return meetings[i].ID < meetings[j].ID
		}
		return meetings[i].StartTime.Before(meetings[j].StartTime)
	})
}
