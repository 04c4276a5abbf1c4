package access

import (
	"context"
	"errors"
	"fmt"
)

// ErrActionNotPermitted is returned when an action is not part of a decision
var ErrActionNotPermitted = errors.New("action not permitted")

// Gateway performs the side-effecting meeting actions
type Gateway interface {
	AcceptInvitation(ctx context.Context, roomName string) error
	RejectInvitation(ctx context.Context, roomName string) error
	EndMeeting(ctx context.Context, roomName string) error
	JoinRoom(ctx context.Context, roomName string) (string, error)
}

// Result is the outcome of a dispatched action. JoinURL is only set for joins.
type Result struct {
	Action  Action
	JoinURL string
}

// Dispatch runs action through gw if the decision permits it. Callers reload
// the meeting and resolve again after every call.
func Dispatch(ctx context.Context, gw Gateway, d Decision, action Action) (Result, error) {
	if !d.Allows(action) {
		return Result{}, fmt.Errorf("%s: %w", action, ErrActionNotPermitted)
	}

	res := Result{Action: action}
	var err error

	switch action {
	case ActionAccept:
		err = gw.AcceptInvitation(ctx, d.RoomName)
	case ActionReject:
		err = gw.RejectInvitation(ctx, d.RoomName)
	case ActionEnd:
		err = gw.EndMeeting(ctx, d.RoomName)
	case ActionJoin:
		res.JoinURL, err = gw.JoinRoom(ctx, d.RoomName)
	default:
		return Result{}, fmt.Errorf("unknown action %q: %w", action, ErrActionNotPermitted)
	}

	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", action, d.RoomName, err)
	}
	return res, nil
}
