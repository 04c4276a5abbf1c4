package api

import (
	"context"

	"github.com/navikt/zmeet/internal/access"
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/notes"
	"github.com/navikt/zmeet/internal/service"
)

// MeetingServicer defines the meeting operations needed by API handlers
type MeetingServicer interface {
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	ListMeetings(ctx context.Context, includeEnded bool) ([]*models.Meeting, error)
	ResolveAccess(ctx context.Context, meetingID, user string) (access.Decision, error)

	CreateRoom(ctx context.Context, user, referenceType, referenceName string) (*service.CreateRoomResult, error)
	InviteUsers(ctx context.Context, user, roomName string, users []string) ([]string, error)
	AcceptInvitation(ctx context.Context, user, roomName string) error
	RejectInvitation(ctx context.Context, user, roomName string) error
	EndMeeting(ctx context.Context, user, roomName string) error
	JoinRoom(ctx context.Context, user, roomName string) (string, error)

	// Room state changes reported by the Jitsi webhook
	StartMeeting(ctx context.Context, roomName string) error
	SuspendMeeting(ctx context.Context, roomName string) error
}

// NotesServicer defines the meeting notes operations needed by API handlers
type NotesServicer interface {
	SaveNotes(ctx context.Context, user string, req service.SaveNotesRequest) (*models.MeetingNotes, error)
	Preview(ctx context.Context, user, id string) ([]string, error)
	ExportLink(ctx context.Context, user, id, format string) (string, error)
	Download(ctx context.Context, user, id, format string) (*notes.File, error)
}

// ReadinessChecker reports whether a dependency is ready to serve traffic
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}
