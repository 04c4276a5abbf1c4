// Package gateway is a typed client for the zmeet meeting API. It performs
// meeting actions on behalf of one user and satisfies access.Gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/navikt/zmeet/internal/access"
	"github.com/navikt/zmeet/internal/log"
)

// CreateRoomResult describes a newly provisioned meeting
type CreateRoomResult struct {
	RoomName    string `json:"room_name"`
	SessionName string `json:"session_name"`
	JoinLink    string `json:"join_link"`
}

// ExportResult points at an exported transcript
type ExportResult struct {
	FileURL string `json:"file_url"`
}

// ConferenceConfig maps Jitsi config file names to their contents
type ConferenceConfig map[string]string

// RemoteActionError is returned for every failed call. StatusCode is zero
// when the request never got a response.
type RemoteActionError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteActionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Message)
}

func (e *RemoteActionError) Unwrap() error {
	return e.Err
}

// Client calls the zmeet API as a single user
type Client struct {
	baseURL    string
	user       string
	userHeader string
	httpClient *http.Client
	maxTries   uint
	backOff    func() backoff.BackOff
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserHeader sets the header carrying the acting user
func WithUserHeader(header string) Option {
	return func(c *Client) {
		c.userHeader = header
	}
}

// WithRetry sets how often read-only calls are attempted and the first wait between them
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(c *Client) {
		c.maxTries = maxTries
		c.backOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			return b
		}
	}
}

// NewClient creates a client acting as user. An empty user calls the API anonymously.
func NewClient(baseURL, user string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		userHeader: "X-Forwarded-User",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxTries:   3,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ access.Gateway = (*Client)(nil)

type roomRequest struct {
	RoomName string `json:"room_name"`
}

// CreateRoom provisions a meeting hosted by the client user
func (c *Client) CreateRoom(ctx context.Context, referenceType, referenceName string) (*CreateRoomResult, error) {
	var result CreateRoomResult
	body := map[string]string{
		"reference_doctype": referenceType,
		"reference_docname": referenceName,
	}
	if err := c.do(ctx, "createRoom", http.MethodPost, "/api/rooms", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InviteUsers invites users to roomName and returns the ones actually added
func (c *Client) InviteUsers(ctx context.Context, roomName string, users []string) ([]string, error) {
	var result struct {
		Added []string `json:"added"`
	}
	body := map[string]any{"room_name": roomName, "users": users}
	if err := c.do(ctx, "inviteUsers", http.MethodPost, "/api/rooms/invite", body, &result); err != nil {
		return nil, err
	}
	return result.Added, nil
}

// AcceptInvitation accepts the client user's invitation
func (c *Client) AcceptInvitation(ctx context.Context, roomName string) error {
	return c.do(ctx, "acceptInvitation", http.MethodPost, "/api/rooms/accept", roomRequest{RoomName: roomName}, nil)
}

// RejectInvitation rejects the client user's invitation
func (c *Client) RejectInvitation(ctx context.Context, roomName string) error {
	return c.do(ctx, "rejectInvitation", http.MethodPost, "/api/rooms/reject", roomRequest{RoomName: roomName}, nil)
}

// EndMeeting ends the meeting. Only the host may do this.
func (c *Client) EndMeeting(ctx context.Context, roomName string) error {
	return c.do(ctx, "endMeeting", http.MethodPost, "/api/rooms/end", roomRequest{RoomName: roomName}, nil)
}

// JoinRoom returns the link that redirects the user into the room. No request is made.
func (c *Client) JoinRoom(ctx context.Context, roomName string) (string, error) {
	if roomName == "" {
		return "", &RemoteActionError{Op: "joinRoom", Message: "room name is required"}
	}
	return c.baseURL + "/api/rooms/join?room_name=" + url.QueryEscape(roomName), nil
}

// ResolveAccess fetches the access decision of the client user for a meeting
func (c *Client) ResolveAccess(ctx context.Context, meetingID string) (access.Decision, error) {
	var d access.Decision
	path := "/api/meetings/" + url.PathEscape(meetingID) + "/access"
	err := c.retry(ctx, "resolveAccess", func() error {
		return c.do(ctx, "resolveAccess", http.MethodGet, path, nil, &d)
	})
	return d, err
}

// ExportMeetingNotes asks for a download link for notes in format
func (c *Client) ExportMeetingNotes(ctx context.Context, notesID, format string) (*ExportResult, error) {
	var result ExportResult
	path := "/api/notes/" + url.PathEscape(notesID) + "/export"
	err := c.retry(ctx, "exportMeetingNotes", func() error {
		return c.do(ctx, "exportMeetingNotes", http.MethodPost, path, map[string]string{"format": format}, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateConferenceConfig fetches the generated Jitsi client configuration
func (c *Client) GenerateConferenceConfig(ctx context.Context) (ConferenceConfig, error) {
	var cfg ConferenceConfig
	err := c.retry(ctx, "generateConferenceConfig", func() error {
		return c.do(ctx, "generateConferenceConfig", http.MethodGet, "/api/conference/config", nil, &cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// retry runs call until it succeeds, fails with a client error or runs out of tries
func (c *Client) retry(ctx context.Context, op string, call func() error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := call()

		var rerr *RemoteActionError
		if errors.As(err, &rerr) && rerr.StatusCode >= 400 && rerr.StatusCode < 500 {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			log.WithFields(log.Fields{"op": op, "attempt": attempt}).Debugf("Retrying gateway call: %v", err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(c.backOff()), backoff.WithMaxTries(c.maxTries))
	return err
}

// do sends one request and decodes a successful JSON response into out
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &RemoteActionError{Op: op, Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &RemoteActionError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.Header.Set(c.userHeader, c.user)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteActionError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteActionError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteActionError{Op: op, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// errorMessage extracts the error field of an API error body, or falls back to the raw body
func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	if msg := strings.TrimSpace(string(data)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
