// Package repository defines interfaces for data storage
package repository

import (
	"context"

	"github.com/navikt/zmeet/internal/models"
)

// Repository defines the interface for storing and retrieving meeting data.
// Implementations return models.ErrNotFound for missing entities and never
// share mutable state with callers.
type Repository interface {
	// Meeting operations
	SaveMeeting(ctx context.Context, meeting *models.Meeting) error
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	GetMeetingBySession(ctx context.Context, sessionID string) (*models.Meeting, error)
	ListMeetings(ctx context.Context) ([]*models.Meeting, error)
	ListAllMeetings(ctx context.Context) ([]*models.Meeting, error)
	// DeleteMeeting removes the meeting together with its notes
	DeleteMeeting(ctx context.Context, id string) error

	// Meeting notes operations
	SaveNotes(ctx context.Context, notes *models.MeetingNotes) error
	GetNotes(ctx context.Context, id string) (*models.MeetingNotes, error)

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error
}
