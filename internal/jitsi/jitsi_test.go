package jitsi_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/jitsi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testIssuer() *jitsi.TokenIssuer {
	cfg := config.JitsiConfig{AppID: "zmeet", AppSecret: "s3cret", TokenTTL: 2 * time.Hour}
	return jitsi.NewTokenIssuer(cfg).WithClock(func() time.Time { return fixedNow })
}

func parseClaims(t *testing.T, token string) *jitsi.Claims {
	t.Helper()
	var claims jitsi.Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	return &claims
}

func TestIssue_Moderator(t *testing.T) {
	token, err := testIssuer().Issue("Meet-Instant-abc", jitsi.Identity{ID: "alice@example.com"}, true)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims := parseClaims(t, token)
	assert.Equal(t, "zmeet", claims.Issuer)
	assert.Equal(t, "meet.jitsi", claims.Subject)
	assert.Equal(t, "jitsi", claims.Audience)
	assert.Equal(t, fixedNow.Add(2*time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, "Meet-Instant-abc", claims.Room)
	assert.True(t, claims.Moderator)
	assert.Equal(t, "owner", claims.Affiliation)
}

func TestIssue_Member(t *testing.T) {
	token, err := testIssuer().Issue("Meet-Instant-abc", jitsi.Identity{ID: "bob"}, false)
	require.NoError(t, err)

	claims := parseClaims(t, token)
	assert.False(t, claims.Moderator)
	assert.Equal(t, "member", claims.Affiliation)
}

func TestIssue_Guest(t *testing.T) {
	token, err := testIssuer().Issue("Meet-Instant-abc", jitsi.Identity{}, false)
	require.NoError(t, err)

	// Decode the raw payload to check the user context
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"name":"Guest"`)
	assert.Contains(t, string(payload), `"id":"guest-`)
}

func TestIssue_Disabled(t *testing.T) {
	issuer := jitsi.NewTokenIssuer(config.JitsiConfig{AppID: "zmeet"})
	assert.False(t, issuer.Enabled())

	token, err := issuer.Issue("Meet-Instant-abc", jitsi.Identity{ID: "alice"}, true)
	assert.NoError(t, err)
	assert.Empty(t, token)
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		token    string
		expected string
	}{
		{name: "bare domain", domain: "meet.example.com", expected: "https://meet.example.com/Meet-Instant-abc"},
		{name: "explicit scheme", domain: "http://localhost:8443/", expected: "http://localhost:8443/Meet-Instant-abc"},
		{name: "with token", domain: "meet.example.com", token: "a.b.c", expected: "https://meet.example.com/Meet-Instant-abc?jwt=a.b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, jitsi.JoinURL(tt.domain, "Meet-Instant-abc", tt.token))
		})
	}
}

func TestGenerateConfig_Defaults(t *testing.T) {
	files, err := jitsi.GenerateConfig(config.ConferenceSettings{})
	require.NoError(t, err)
	require.Len(t, files, 2)

	cfg := files[jitsi.ConfigFile]
	assert.Contains(t, cfg, "domain: 'meet.jit.si'")
	assert.Contains(t, cfg, "muc: 'muc.meet.jit.si'")
	assert.Contains(t, cfg, "config.startAudioMuted = null;")
	assert.Contains(t, cfg, "config.startWithAudioMuted = false;")
	assert.Contains(t, cfg, "config.resolution = 720;")
	assert.Contains(t, cfg, `"mute-everyone","security"]`)

	iface := files[jitsi.InterfaceConfigFile]
	assert.Contains(t, iface, "APP_NAME: 'Jitsi Meet'")
	assert.Contains(t, iface, "DEFAULT_BACKGROUND: '#040404'")
	assert.Contains(t, iface, "SHOW_JITSI_WATERMARK: false")
}

func TestGenerateConfig_Settings(t *testing.T) {
	files, err := jitsi.GenerateConfig(config.ConferenceSettings{
		Domain:             "meet.example.com",
		AppName:            "Team's Meet",
		ToolbarButtons:     []string{" microphone", "camera ", ""},
		StartAudioMuted:    true,
		PrejoinPageEnabled: true,
		Resolution:         1080,
		ShowBrandWatermark: true,
	})
	require.NoError(t, err)

	cfg := files[jitsi.ConfigFile]
	assert.Contains(t, cfg, "config.bosh = 'https://meet.example.com/http-bind';")
	assert.Contains(t, cfg, "config.startAudioMuted = 10;")
	assert.Contains(t, cfg, "config.startWithAudioMuted = true;")
	assert.Contains(t, cfg, "config.prejoinPageEnabled = true;")
	assert.Contains(t, cfg, "config.resolution = 1080;")
	assert.Contains(t, cfg, `config.toolbarButtons = ["microphone","camera"];`)

	iface := files[jitsi.InterfaceConfigFile]
	assert.Contains(t, iface, `APP_NAME: 'Team\'s Meet'`)
	assert.Contains(t, iface, "SHOW_BRAND_WATERMARK: true")
}

func TestToolbarButtons(t *testing.T) {
	assert.Equal(t, jitsi.DefaultToolbarButtons, jitsi.ToolbarButtons(nil))
	assert.Equal(t, jitsi.DefaultToolbarButtons, jitsi.ToolbarButtons([]string{" ", ""}))
	assert.Equal(t, []string{"hangup"}, jitsi.ToolbarButtons([]string{"hangup"}))
}
