package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/navikt/zmeet/internal/access"
	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/jitsi"
	"github.com/navikt/zmeet/internal/log"
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/repository"
	"github.com/navikt/zmeet/internal/room"
)

var (
	// ErrIntegrationDisabled is returned when meetings are switched off
	ErrIntegrationDisabled = errors.New("meeting integration is disabled")
	// ErrNoUsers is returned when an invite names nobody
	ErrNoUsers = errors.New("no users to invite")
	// ErrNotParticipant is returned when the acting user was never invited
	ErrNotParticipant = errors.New("user is not a participant in this meeting")
	// ErrInvitationRejected is returned when accepting an already rejected invitation
	ErrInvitationRejected = errors.New("invitation has been rejected")
	// ErrNotPermitted is returned when the access decision does not allow an action
	ErrNotPermitted = access.ErrActionNotPermitted
	// ErrInvalidRequest is returned for malformed input
	ErrInvalidRequest = errors.New("invalid request")
)

// sessionIDAttempts bounds the retries when a generated session id is taken
const sessionIDAttempts = 5

// MeetingUpdateCallback is a function type for meeting update callbacks
type MeetingUpdateCallback func(*models.Meeting)

// InviteNotice tells one invitee where to join
type InviteNotice struct {
	User      string `json:"user"`
	MeetingID string `json:"meeting_id"`
	RoomName  string `json:"room_name"`
	JoinLink  string `json:"join_link"`
	InvitedBy string `json:"invited_by"`
}

// InviteCallback receives a notice for every user added to a meeting
type InviteCallback func(InviteNotice)

// CreateRoomResult describes a newly provisioned meeting
type CreateRoomResult struct {
	RoomName    string `json:"room_name"`
	SessionName string `json:"session_name"`
	JoinLink    string `json:"join_link"`
}

// MeetingService provides business logic for working with meetings
type MeetingService struct {
	repo    repository.Repository
	meet    config.MeetConfig
	domain  string
	baseURL string
	issuer  *jitsi.TokenIssuer

	// mu serialises read-modify-write cycles on meetings
	mu              sync.Mutex
	updateCallbacks []MeetingUpdateCallback
	inviteCallbacks []InviteCallback

	now          func() time.Time
	newSessionID func() string
}

// NewMeetingService creates a new MeetingService with the given repository
func NewMeetingService(repo repository.Repository, meet config.MeetConfig, jitsiCfg config.JitsiConfig, baseURL string) *MeetingService {
	return &MeetingService{
		repo:            repo,
		meet:            meet,
		domain:          jitsiCfg.Domain,
		baseURL:         baseURL,
		issuer:          jitsi.NewTokenIssuer(jitsiCfg),
		updateCallbacks: make([]MeetingUpdateCallback, 0),
		now:             time.Now,
		newSessionID: func() string {
			return uuid.NewString()[:8]
		},
	}
}

// WithClock replaces the time source, used by tests
func (s *MeetingService) WithClock(now func() time.Time) *MeetingService {
	s.now = now
	s.issuer = s.issuer.WithClock(now)
	return s
}

// WithSessionIDs replaces the session id generator, used by tests
func (s *MeetingService) WithSessionIDs(gen func() string) *MeetingService {
	s.newSessionID = gen
	return s
}

// RegisterInviteCallback registers a callback called once per newly invited user
func (s *MeetingService) RegisterInviteCallback(callback InviteCallback) {
	s.inviteCallbacks = append(s.inviteCallbacks, callback)
}

// RegisterUpdateCallback registers a callback function to be called when meeting data changes
func (s *MeetingService) RegisterUpdateCallback(callback MeetingUpdateCallback) {
	s.updateCallbacks = append(s.updateCallbacks, callback)
}

// notifyUpdate calls all registered callbacks with the updated meeting
func (s *MeetingService) notifyUpdate(meeting *models.Meeting) {
	for _, callback := range s.updateCallbacks {
		callback(meeting.Clone())
	}
}

// GetMeeting returns a snapshot of one meeting
func (s *MeetingService) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	return s.repo.GetMeeting(ctx, id)
}

// ListMeetings returns live meetings, or every stored meeting when includeEnded is set
func (s *MeetingService) ListMeetings(ctx context.Context, includeEnded bool) ([]*models.Meeting, error) {
	if includeEnded {
		return s.repo.ListAllMeetings(ctx)
	}
	return s.repo.ListMeetings(ctx)
}

// ResolveAccess computes the decision for user from a fresh snapshot
func (s *MeetingService) ResolveAccess(ctx context.Context, meetingID, user string) (access.Decision, error) {
	m, err := s.repo.GetMeeting(ctx, meetingID)
	if err != nil {
		return access.Decision{}, err
	}
	return access.Resolve(m, user), nil
}

// CreateRoom provisions a new Active meeting hosted by user
func (s *MeetingService) CreateRoom(ctx context.Context, user, referenceType, referenceName string) (*CreateRoomResult, error) {
	if !s.meet.Enabled {
		return nil, ErrIntegrationDisabled
	}
	if user == "" {
		return nil, fmt.Errorf("host is required: %w", ErrInvalidRequest)
	}
	if referenceType == "" || referenceName == "" {
		referenceType, referenceName = "", ""
	}

	now := s.now()
	m := &models.Meeting{
		ID:            "MEET-" + uuid.NewString(),
		Status:        models.MeetingStatusActive,
		Host:          user,
		ReferenceType: referenceType,
		ReferenceName: referenceName,
		Participants:  []models.Participant{},
		StartTime:     now,
		Modified:      now,
	}

	s.mu.Lock()
	sessionID, err := s.freeSessionID(ctx)
	if err == nil {
		m.SessionID = sessionID
		err = s.repo.SaveMeeting(ctx, m)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to save meeting: %w", err)
	}

	roomName := room.Name(m)
	log.WithRoom(roomName).WithField("meeting_id", m.ID).Info("Meeting created")
	s.notifyUpdate(m)

	return &CreateRoomResult{
		RoomName:    roomName,
		SessionName: m.ID,
		JoinLink:    s.JoinLink(roomName),
	}, nil
}

// freeSessionID returns a session id no live meeting uses. Callers hold s.mu.
func (s *MeetingService) freeSessionID(ctx context.Context) (string, error) {
	for range sessionIDAttempts {
		id := s.newSessionID()
		_, err := s.repo.GetMeetingBySession(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
		log.WithFields(log.Fields{"session_id": id}).Warn("Session id already in use, generating another")
	}
	return "", fmt.Errorf("no free session id after %d attempts", sessionIDAttempts)
}

// JoinLink is the zmeet URL that redirects to the Jitsi room
func (s *MeetingService) JoinLink(roomName string) string {
	return s.baseURL + "/api/rooms/join?room_name=" + url.QueryEscape(roomName)
}

// InviteUsers adds users as pending participants and returns the ones actually added
func (s *MeetingService) InviteUsers(ctx context.Context, user, roomName string, users []string) ([]string, error) {
	if len(users) == 0 {
		return nil, ErrNoUsers
	}

	var added []string
	m, err := s.mutate(ctx, roomName, func(m *models.Meeting) (bool, error) {
		if !access.Resolve(m, user).Allows(access.ActionJoin) {
			return false, fmt.Errorf("invite: %w", ErrNotPermitted)
		}
		for _, u := range users {
			if u == user {
				continue
			}
			if m.AddParticipant(u) {
				added = append(added, u)
			}
		}
		return len(added) > 0, nil
	})
	if err != nil {
		return nil, err
	}

	if len(added) > 0 {
		log.WithRoom(roomName).WithField("count", len(added)).Info("Users invited")
		s.notifyInvites(m, user, added)
	}
	return added, nil
}

func (s *MeetingService) notifyInvites(m *models.Meeting, invitedBy string, users []string) {
	roomName := room.Name(m)
	for _, u := range users {
		notice := InviteNotice{
			User:      u,
			MeetingID: m.ID,
			RoomName:  roomName,
			JoinLink:  s.JoinLink(roomName),
			InvitedBy: invitedBy,
		}
		for _, callback := range s.inviteCallbacks {
			callback(notice)
		}
	}
}

// AcceptInvitation marks user's invitation as accepted
func (s *MeetingService) AcceptInvitation(ctx context.Context, user, roomName string) error {
	return s.answerInvitation(ctx, user, roomName, models.InvitationAccepted)
}

// RejectInvitation marks user's invitation as rejected
func (s *MeetingService) RejectInvitation(ctx context.Context, user, roomName string) error {
	return s.answerInvitation(ctx, user, roomName, models.InvitationRejected)
}

func (s *MeetingService) answerInvitation(ctx context.Context, user, roomName string, status models.InvitationStatus) error {
	m, err := s.mutate(ctx, roomName, func(m *models.Meeting) (bool, error) {
		p := m.FindParticipant(user)
		if user == "" || p == nil {
			return false, ErrNotParticipant
		}
		if p.InvitationStatus == status {
			return false, nil
		}
		if p.InvitationStatus == models.InvitationRejected {
			return false, ErrInvitationRejected
		}
		p.InvitationStatus = status
		return true, nil
	})
	if err != nil {
		return err
	}

	log.WithUser(user).WithFields(log.Fields{
		"room":   room.Name(m),
		"status": string(status),
	}).Info("Invitation answered")
	return nil
}

// EndMeeting ends the meeting on behalf of its host
func (s *MeetingService) EndMeeting(ctx context.Context, user, roomName string) error {
	_, err := s.mutate(ctx, roomName, func(m *models.Meeting) (bool, error) {
		if !access.Resolve(m, user).Allows(access.ActionEnd) {
			return false, fmt.Errorf("end: %w", ErrNotPermitted)
		}
		m.Close(models.MeetingStatusEnded, s.now())
		return true, nil
	})
	if err != nil {
		return err
	}

	log.WithRoom(roomName).Info("Meeting ended")
	return nil
}

// StartMeeting moves a Waiting meeting to Active. Other states are left alone.
func (s *MeetingService) StartMeeting(ctx context.Context, roomName string) error {
	_, err := s.mutate(ctx, roomName, func(m *models.Meeting) (bool, error) {
		if m.Status != models.MeetingStatusWaiting {
			return false, nil
		}
		m.Status = models.MeetingStatusActive
		return true, nil
	})
	return err
}

// SuspendMeeting moves an Active meeting back to Waiting once the Jitsi room is gone
func (s *MeetingService) SuspendMeeting(ctx context.Context, roomName string) error {
	_, err := s.mutate(ctx, roomName, func(m *models.Meeting) (bool, error) {
		if m.Status != models.MeetingStatusActive {
			return false, nil
		}
		m.Status = models.MeetingStatusWaiting
		return true, nil
	})
	return err
}

// JoinRoom returns the Jitsi URL for user. An empty user is a guest.
func (s *MeetingService) JoinRoom(ctx context.Context, user, roomName string) (string, error) {
	m, err := s.meetingByRoom(ctx, roomName)
	if err != nil {
		return "", err
	}

	moderator := false
	if user == "" {
		if !s.meet.AllowGuests || !m.Status.IsLive() {
			return "", fmt.Errorf("guest join: %w", ErrNotPermitted)
		}
	} else {
		d := access.Resolve(m, user)
		if !d.Allows(access.ActionJoin) {
			return "", fmt.Errorf("join: %w", ErrNotPermitted)
		}
		moderator = d.Allows(access.ActionEnd)
	}

	// Join with the canonical name, whatever suffix the caller sent
	canonical := room.Name(m)
	token, err := s.issuer.Issue(canonical, jitsi.Identity{ID: user}, moderator)
	if err != nil {
		return "", err
	}

	log.WithRoom(canonical).WithField("moderator", moderator).Debug("Issued join URL")
	return jitsi.JoinURL(s.domain, canonical, token), nil
}

// meetingByRoom loads the meeting owning the session encoded in roomName
func (s *MeetingService) meetingByRoom(ctx context.Context, roomName string) (*models.Meeting, error) {
	sessionID, err := room.SessionID(roomName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.repo.GetMeetingBySession(ctx, sessionID)
}

// mutate loads the meeting for roomName, applies fn and saves the result when
// fn reports a change. Callbacks are notified after a successful save.
func (s *MeetingService) mutate(ctx context.Context, roomName string, fn func(*models.Meeting) (bool, error)) (*models.Meeting, error) {
	s.mu.Lock()
	m, err := s.meetingByRoom(ctx, roomName)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	changed, err := fn(m)
	if err != nil || !changed {
		s.mu.Unlock()
		return m, err
	}

	m.Modified = s.now()
	if err := s.repo.SaveMeeting(ctx, m); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to save meeting: %w", err)
	}
	s.mu.Unlock()

	s.notifyUpdate(m)
	return m, nil
}
