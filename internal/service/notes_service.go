package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/notes"
	"github.com/navikt/zmeet/internal/repository"
)

// PreviewSegments is the number of transcript lines shown in a preview
const PreviewSegments = 10

// SaveNotesRequest carries a transcript produced for a meeting
type SaveNotesRequest struct {
	MeetingID           string                     `json:"meeting_id"`
	TranscriptionStatus models.TranscriptionStatus `json:"transcription_status"`
	Segments            []models.Segment           `json:"segments"`
}

// NotesService stores meeting transcripts and exports them
type NotesService struct {
	repo     repository.Repository
	exporter *notes.Exporter
	baseURL  string
	now      func() time.Time
}

// NewNotesService creates a new NotesService
func NewNotesService(repo repository.Repository, exporter *notes.Exporter, baseURL string) *NotesService {
	return &NotesService{
		repo:     repo,
		exporter: exporter,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// SaveNotes stores a transcript for a meeting hosted by user
func (s *NotesService) SaveNotes(ctx context.Context, user string, req SaveNotesRequest) (*models.MeetingNotes, error) {
	if req.MeetingID == "" {
		return nil, fmt.Errorf("meeting_id is required: %w", ErrInvalidRequest)
	}

	status := req.TranscriptionStatus
	switch status {
	case "":
		status = models.TranscriptionPending
		if len(req.Segments) > 0 {
			status = models.TranscriptionCompleted
		}
	case models.TranscriptionPending, models.TranscriptionProcessing,
		models.TranscriptionCompleted, models.TranscriptionFailed:
	default:
		return nil, fmt.Errorf("transcription status %q: %w", status, ErrInvalidRequest)
	}

	m, err := s.repo.GetMeeting(ctx, req.MeetingID)
	if err != nil {
		return nil, err
	}
	if user == "" || m.Host != user {
		return nil, fmt.Errorf("save notes: %w", ErrNotPermitted)
	}

	n := &models.MeetingNotes{
		ID:                  "NOTES-" + uuid.NewString(),
		MeetingID:           m.ID,
		Host:                m.Host,
		Readers:             acceptedUsers(m),
		TranscriptionStatus: status,
		Segments:            req.Segments,
		CreatedAt:           s.now(),
	}
	if n.Segments == nil {
		n.Segments = []models.Segment{}
	}

	if err := s.repo.SaveNotes(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save notes: %w", err)
	}

	log.WithFields(log.Fields{
		"notes_id":   n.ID,
		"meeting_id": m.ID,
		"segments":   len(n.Segments),
	}).Info("Meeting notes stored")
	return n, nil
}

// GetNotes returns notes readable by user. Access follows the meeting while
// it exists and the readers recorded on the notes after that.
func (s *NotesService) GetNotes(ctx context.Context, user, id string) (*models.MeetingNotes, error) {
	n, err := s.repo.GetNotes(ctx, id)
	if err != nil {
		return nil, err
	}

	var allowed bool
	m, err := s.repo.GetMeeting(ctx, n.MeetingID)
	switch {
	case err == nil:
		allowed = canReadNotes(m, user)
	case errors.Is(err, models.ErrNotFound):
		allowed = n.CanRead(user)
	default:
		return nil, err
	}

	if !allowed {
		return nil, fmt.Errorf("read notes: %w", ErrNotPermitted)
	}
	return n, nil
}

// Preview returns the first lines of a transcript
func (s *NotesService) Preview(ctx context.Context, user, id string) ([]string, error) {
	n, err := s.GetNotes(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return notes.Preview(n, PreviewSegments), nil
}

// ExportLink checks that the notes can be exported in format and returns the download URL
func (s *NotesService) ExportLink(ctx context.Context, user, id, format string) (string, error) {
	f, err := notes.ParseFormat(format)
	if err != nil {
		return "", err
	}

	n, err := s.GetNotes(ctx, user, id)
	if err != nil {
		return "", err
	}
	if err := s.exporter.Validate(n, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/api/notes/%s/download?format=%s", s.baseURL, url.PathEscape(n.ID), f), nil
}

// Download renders the notes in format
func (s *NotesService) Download(ctx context.Context, user, id, format string) (*notes.File, error) {
	f, err := notes.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	n, err := s.GetNotes(ctx, user, id)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, n, f)
}

func acceptedUsers(m *models.Meeting) []string {
	var users []string
	for _, p := range m.Participants {
		if p.InvitationStatus == models.InvitationAccepted {
			users = append(users, p.User)
		}
	}
	return users
}

// canReadNotes allows the host and accepted participants, also after the meeting ended
func canReadNotes(m *models.Meeting, user string) bool {
	if user == "" {
		return false
	}
	if m.Host == user {
		return true
	}
	p := m.FindParticipant(user)
	return p != nil && p.InvitationStatus == models.InvitationAccepted
}
