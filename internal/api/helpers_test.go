package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/navikt/zmeet/internal/api"
	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/models"
	"github.com/navikt/zmeet/internal/notes"
	"github.com/navikt/zmeet/internal/repository/memory"
	"github.com/navikt/zmeet/internal/service"
	"github.com/navikt/zmeet/internal/web"
	"github.com/stretchr/testify/require"
)

const (
	userHeader   = "X-Forwarded-User"
	webhookToken = "hook-secret"
	seededRoom   = "Meet-Instant-a1b2c3d4"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	handler  http.Handler
	repo     *memory.Repository
	meetings *service.MeetingService
}

func newTestEnv(t *testing.T, meet config.MeetConfig) *testEnv {
	t.Helper()

	repo := memory.NewRepository()
	jitsiCfg := config.JitsiConfig{
		Domain:       "meet.example.com",
		AppID:        "zmeet",
		AppSecret:    "s3cret",
		WebhookToken: webhookToken,
	}
	meetings := service.NewMeetingService(repo, meet, jitsiCfg, "https://erp.example.com")
	meetings.WithClock(func() time.Time { return testNow })
	notesService := service.NewNotesService(repo, notes.NewExporter(nil), "https://erp.example.com")

	mux := api.SetupRoutes(api.Dependencies{
		Meetings:   meetings,
		Notes:      notesService,
		Store:      repo,
		Jitsi:      jitsiCfg,
		Conference: config.ConferenceSettings{Domain: "meet.example.com"},
	})

	return &testEnv{
		handler:  web.WrapMuxWithMiddleware(mux, userHeader),
		repo:     repo,
		meetings: meetings,
	}
}

// do sends a request as user. An empty user is anonymous.
func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(userHeader, user)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

// seed stores a live meeting hosted by alice
func (e *testEnv) seed(t *testing.T, status models.MeetingStatus, participants ...models.Participant) {
	t.Helper()
	require.NoError(t, e.repo.SaveMeeting(context.Background(), &models.Meeting{
		ID:           "MEET-1",
		Status:       status,
		SessionID:    "a1b2c3d4",
		Host:         "alice",
		Participants: participants,
		StartTime:    testNow.Add(-time.Hour),
		Modified:     testNow.Add(-time.Hour),
	}))
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func enabled() config.MeetConfig {
	return config.MeetConfig{Enabled: true}
}
