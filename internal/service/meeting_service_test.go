package service_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/navikt/zmeet/internal/access"
	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/jitsi"
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/repository/memory"
	"github.com/navikt/zmeet/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// MockUpdateCallback is a mock for testing callbacks
type MockUpdateCallback struct {
	mock.Mock
}

func (m *MockUpdateCallback) OnUpdate(meeting *models.Meeting) {
	m.Called(meeting)
}

func testJitsiConfig() config.JitsiConfig {
	return config.JitsiConfig{
		Domain:    "meet.example.com",
		AppID:     "zmeet",
		AppSecret: "s3cret",
		TokenTTL:  2 * time.Hour,
	}
}

func newTestService(meet config.MeetConfig) (*service.MeetingService, *memory.Repository) {
	repo := memory.NewRepository()
	svc := service.NewMeetingService(repo, meet, testJitsiConfig(), "https://erp.example.com")
	svc.WithClock(func() time.Time { return testNow })
	return svc, repo
}

func enabled() config.MeetConfig {
	return config.MeetConfig{Enabled: true}
}

// seedMeeting stores a live meeting with a known session id
func seedMeeting(t *testing.T, repo *memory.Repository, status models.MeetingStatus, participants ...models.Participant) *models.Meeting {
	t.Helper()
	m := &models.Meeting{
		ID:           "MEET-1",
		Status:       status,
		SessionID:    "a1b2c3d4",
		Host:         "alice",
		Participants: participants,
		StartTime:    testNow.Add(-time.Hour),
		Modified:     testNow.Add(-time.Hour),
	}
	require.NoError(t, repo.SaveMeeting(context.Background(), m))
	return m
}

const seededRoom = "Meet-Instant-a1b2c3d4"

func parseJoinToken(t *testing.T, joinURL string) *jitsi.Claims {
	t.Helper()
	u, err := url.Parse(joinURL)
	require.NoError(t, err)
	token := u.Query().Get("jwt")
	require.NotEmpty(t, token)

	var claims jitsi.Claims
	_, err = jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	return &claims
}

func TestMeetingService_CreateRoom(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()

	mockCallback := new(MockUpdateCallback)
	svc.RegisterUpdateCallback(func(m *models.Meeting) {
		mockCallback.OnUpdate(m)
	})
	mockCallback.On("OnUpdate", mock.Anything).Return()

	result, err := svc.CreateRoom(ctx, "alice", "", "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.RoomName, "Meet-Instant-"))
	assert.True(t, strings.HasPrefix(result.SessionName, "MEET-"))
	assert.Equal(t, "https://erp.example.com/api/rooms/join?room_name="+result.RoomName, result.JoinLink)

	m, err := repo.GetMeeting(ctx, result.SessionName)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingStatusActive, m.Status)
	assert.Equal(t, "alice", m.Host)
	assert.Len(t, m.SessionID, 8)
	assert.Equal(t, "Meet-Instant-"+m.SessionID, result.RoomName)
	assert.Empty(t, m.Participants)
	assert.Equal(t, testNow, m.StartTime)

	mockCallback.AssertNumberOfCalls(t, "OnUpdate", 1)
}

func TestMeetingService_CreateRoom_WithReference(t *testing.T) {
	svc, repo := newTestService(enabled())

	result, err := svc.CreateRoom(context.Background(), "alice", "Sales Order", "SO 0001")
	require.NoError(t, err)

	m, err := repo.GetMeeting(context.Background(), result.SessionName)
	require.NoError(t, err)
	assert.Equal(t, "Meet-Sales_Order-SO_0001-"+m.SessionID, result.RoomName)
	assert.Equal(t, "Sales Order", m.ReferenceType)
	assert.Contains(t, result.JoinLink, url.QueryEscape(result.RoomName))
}

func TestMeetingService_CreateRoom_Errors(t *testing.T) {
	svc, _ := newTestService(config.MeetConfig{Enabled: false})
	_, err := svc.CreateRoom(context.Background(), "alice", "", "")
	assert.ErrorIs(t, err, service.ErrIntegrationDisabled)

	svc, _ = newTestService(enabled())
	_, err = svc.CreateRoom(context.Background(), "", "", "")
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestMeetingService_InviteUsers(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive)

	added, err := svc.InviteUsers(ctx, "alice", seededRoom, []string{"bob", "alice", "bob", "carol"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, added)

	m, err := repo.GetMeeting(ctx, "MEET-1")
	require.NoError(t, err)
	assert.Equal(t, []models.Participant{
		{User: "bob", InvitationStatus: models.InvitationPending},
		{User: "carol", InvitationStatus: models.InvitationPending},
	}, m.Participants)
	assert.Equal(t, testNow, m.Modified)

	// Re-inviting is a no-op
	added, err = svc.InviteUsers(ctx, "alice", seededRoom, []string{"bob"})
	require.NoError(t, err)
	assert.Empty(t, added)

	_, err = svc.InviteUsers(ctx, "alice", seededRoom, nil)
	assert.ErrorIs(t, err, service.ErrNoUsers)
}

func TestMeetingService_InviteUsers_RequiresJoin(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive,
		models.Participant{User: "bob", InvitationStatus: models.InvitationPending},
		models.Participant{User: "carol", InvitationStatus: models.InvitationAccepted},
	)

	_, err := svc.InviteUsers(ctx, "bob", seededRoom, []string{"dave"})
	assert.ErrorIs(t, err, service.ErrNotPermitted)

	_, err = svc.InviteUsers(ctx, "mallory", seededRoom, []string{"dave"})
	assert.ErrorIs(t, err, service.ErrNotPermitted)

	added, err := svc.InviteUsers(ctx, "carol", seededRoom, []string{"dave", "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dave"}, added)
}

func TestMeetingService_AnswerInvitation(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive,
		models.Participant{User: "bob", InvitationStatus: models.InvitationPending},
		models.Participant{User: "carol", InvitationStatus: models.InvitationPending},
	)

	require.NoError(t, svc.AcceptInvitation(ctx, "bob", seededRoom))
	require.NoError(t, svc.AcceptInvitation(ctx, "bob", seededRoom), "repeating an answer succeeds")

	require.NoError(t, svc.RejectInvitation(ctx, "carol", seededRoom))
	require.NoError(t, svc.RejectInvitation(ctx, "carol", seededRoom))
	assert.ErrorIs(t, svc.AcceptInvitation(ctx, "carol", seededRoom), service.ErrInvitationRejected)

	assert.ErrorIs(t, svc.AcceptInvitation(ctx, "mallory", seededRoom), service.ErrNotParticipant)
	assert.ErrorIs(t, svc.RejectInvitation(ctx, "alice", seededRoom), service.ErrNotParticipant)

	m, err := repo.GetMeeting(ctx, "MEET-1")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationAccepted, m.FindParticipant("bob").InvitationStatus)
	assert.Equal(t, models.InvitationRejected, m.FindParticipant("carol").InvitationStatus)

	// Accepting flips the resolved decision to joinable
	d, err := svc.ResolveAccess(ctx, "MEET-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, access.Joinable, d.Outcome)
	assert.Equal(t, []access.Action{access.ActionJoin}, d.Actions)
}

func TestMeetingService_AcceptedCanReject(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive,
		models.Participant{User: "bob", InvitationStatus: models.InvitationAccepted},
	)

	// Accepted can still change its mind and reject
	require.NoError(t, svc.RejectInvitation(ctx, "bob", seededRoom))
	d, err := svc.ResolveAccess(ctx, "MEET-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, access.Rejected, d.Outcome)
	assert.Equal(t, access.RejectedWarning, d.Warning)
}

func TestMeetingService_EndMeeting(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive,
		models.Participant{User: "bob", InvitationStatus: models.InvitationAccepted},
	)

	assert.ErrorIs(t, svc.EndMeeting(ctx, "bob", seededRoom), service.ErrNotPermitted)

	require.NoError(t, svc.EndMeeting(ctx, "alice", seededRoom))

	m, err := repo.GetMeeting(ctx, "MEET-1")
	require.NoError(t, err)
	assert.Equal(t, models.MeetingStatusEnded, m.Status)
	assert.Empty(t, m.SessionID)
	assert.Equal(t, testNow, m.EndTime)

	// The session is gone, so the room no longer resolves
	assert.ErrorIs(t, svc.EndMeeting(ctx, "alice", seededRoom), models.ErrNotFound)

	d, err := svc.ResolveAccess(ctx, "MEET-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, access.NoAccess, d.Outcome)
	assert.Empty(t, d.Actions)
}

func TestMeetingService_StartAndSuspend(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusWaiting)

	mockCallback := new(MockUpdateCallback)
	svc.RegisterUpdateCallback(func(m *models.Meeting) {
		mockCallback.OnUpdate(m)
	})
	mockCallback.On("OnUpdate", mock.Anything).Return()

	require.NoError(t, svc.StartMeeting(ctx, seededRoom))
	m, _ := repo.GetMeeting(ctx, "MEET-1")
	assert.Equal(t, models.MeetingStatusActive, m.Status)

	// Already active: no change, no notification
	require.NoError(t, svc.StartMeeting(ctx, seededRoom+"?jwt=abc"))

	require.NoError(t, svc.SuspendMeeting(ctx, seededRoom))
	m, _ = repo.GetMeeting(ctx, "MEET-1")
	assert.Equal(t, models.MeetingStatusWaiting, m.Status)
	assert.Equal(t, "a1b2c3d4", m.SessionID)

	require.NoError(t, svc.SuspendMeeting(ctx, seededRoom))

	mockCallback.AssertNumberOfCalls(t, "OnUpdate", 2)
}

func TestMeetingService_RoomLookupErrors(t *testing.T) {
	svc, _ := newTestService(enabled())
	ctx := context.Background()

	assert.ErrorIs(t, svc.StartMeeting(ctx, "nodash"), service.ErrInvalidRequest)
	assert.ErrorIs(t, svc.StartMeeting(ctx, "Meet-Instant-missing"), models.ErrNotFound)
}

func TestMeetingService_JoinRoom(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive,
		models.Participant{User: "bob", InvitationStatus: models.InvitationAccepted},
		models.Participant{User: "carol", InvitationStatus: models.InvitationPending},
	)

	hostURL, err := svc.JoinRoom(ctx, "alice", seededRoom)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hostURL, "https://meet.example.com/"+seededRoom+"?jwt="))
	claims := parseJoinToken(t, hostURL)
	assert.True(t, claims.Moderator)
	assert.Equal(t, seededRoom, claims.Room)
	assert.Equal(t, testNow.Add(2*time.Hour).Unix(), claims.ExpiresAt.Unix())

	bobURL, err := svc.JoinRoom(ctx, "bob", seededRoom)
	require.NoError(t, err)
	assert.False(t, parseJoinToken(t, bobURL).Moderator)

	_, err = svc.JoinRoom(ctx, "carol", seededRoom)
	assert.ErrorIs(t, err, service.ErrNotPermitted)

	_, err = svc.JoinRoom(ctx, "", seededRoom)
	assert.ErrorIs(t, err, service.ErrNotPermitted, "guests are off by default")
}

func TestMeetingService_JoinRoom_Guest(t *testing.T) {
	svc, repo := newTestService(config.MeetConfig{Enabled: true, AllowGuests: true})
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusWaiting)

	guestURL, err := svc.JoinRoom(ctx, "", seededRoom)
	require.NoError(t, err)
	claims := parseJoinToken(t, guestURL)
	assert.False(t, claims.Moderator)
	assert.Equal(t, "member", claims.Affiliation)
}

func TestMeetingService_JoinRoom_NoCredentials(t *testing.T) {
	repo := memory.NewRepository()
	svc := service.NewMeetingService(repo, enabled(), config.JitsiConfig{Domain: "meet.example.com"}, "")
	seedMeeting(t, repo, models.MeetingStatusActive)

	joinURL, err := svc.JoinRoom(context.Background(), "alice", seededRoom)
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example.com/"+seededRoom, joinURL)
}

func TestMeetingService_ListAndGet(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive)
	require.NoError(t, repo.SaveMeeting(ctx, &models.Meeting{
		ID:     "MEET-2",
		Status: models.MeetingStatusEnded,
		Host:   "alice",
	}))

	live, err := svc.ListMeetings(ctx, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "MEET-1", live[0].ID)

	all, err := svc.ListMeetings(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	m, err := svc.GetMeeting(ctx, "MEET-2")
	require.NoError(t, err)
	assert.Equal(t, models.MeetingStatusEnded, m.Status)

	_, err = svc.GetMeeting(ctx, "MEET-404")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.ResolveAccess(ctx, "MEET-404", "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMeetingService_CallbackReceivesCopy(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive)

	svc.RegisterUpdateCallback(func(m *models.Meeting) {
		m.Host = "mallory"
	})

	_, err := svc.InviteUsers(ctx, "alice", seededRoom, []string{"bob"})
	require.NoError(t, err)

	m, err := repo.GetMeeting(ctx, "MEET-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", m.Host)
}

func sessionIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestMeetingService_CreateRoom_SessionCollision(t *testing.T) {
	svc, repo := newTestService(enabled())
	svc.WithSessionIDs(sessionIDs("deadbeef", "deadbeef", "cafebabe"))
	ctx := context.Background()

	first, err := svc.CreateRoom(ctx, "alice", "", "")
	require.NoError(t, err)
	second, err := svc.CreateRoom(ctx, "bob", "", "")
	require.NoError(t, err)

	assert.Equal(t, "Meet-Instant-deadbeef", first.RoomName)
	assert.Equal(t, "Meet-Instant-cafebabe", second.RoomName)

	m, err := repo.GetMeetingBySession(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, first.SessionName, m.ID)

	// alice still controls her own room
	require.NoError(t, svc.EndMeeting(ctx, "alice", first.RoomName))
	m, err = repo.GetMeeting(ctx, second.SessionName)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingStatusActive, m.Status)
	assert.Equal(t, "bob", m.Host)
}

func TestMeetingService_CreateRoom_NoFreeSession(t *testing.T) {
	svc, repo := newTestService(enabled())
	seedMeeting(t, repo, models.MeetingStatusActive)
	svc.WithSessionIDs(sessionIDs("a1b2c3d4"))

	_, err := svc.CreateRoom(context.Background(), "bob", "", "")
	require.Error(t, err)

	all, err := repo.ListAllMeetings(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMeetingService_InviteNotices(t *testing.T) {
	svc, repo := newTestService(enabled())
	ctx := context.Background()
	seedMeeting(t, repo, models.MeetingStatusActive,
		models.Participant{User: "bob", InvitationStatus: models.InvitationPending},
	)

	var notices []service.InviteNotice
	svc.RegisterInviteCallback(func(n service.InviteNotice) {
		notices = append(notices, n)
	})

	_, err := svc.InviteUsers(ctx, "alice", seededRoom, []string{"bob", "carol", "alice"})
	require.NoError(t, err)

	require.Len(t, notices, 1)
	assert.Equal(t, service.InviteNotice{
		User:      "carol",
		MeetingID: "MEET-1",
		RoomName:  seededRoom,
		JoinLink:  "https://erp.example.com/api/rooms/join?room_name=" + seededRoom,
		InvitedBy: "alice",
	}, notices[0])

	// Nothing new, nothing sent
	_, err = svc.InviteUsers(ctx, "alice", seededRoom, []string{"carol"})
	require.NoError(t, err)
	assert.Len(t, notices, 1)

	_, err = svc.InviteUsers(ctx, "mallory", seededRoom, []string{"dave"})
	assert.ErrorIs(t, err, service.ErrNotPermitted)
	assert.Len(t, notices, 1)
}
