// Package jitsi integrates with a Jitsi Meet deployment: signed join
// tokens, join URLs and generated client configuration files.
package jitsi

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/navikt/zmeet/internal/config"
)

const (
	tokenAudience = "jitsi"
	tokenSubject  = "meet.jitsi"
)

// Identity describes the user a token is issued for
type Identity struct {
	ID     string
	Name   string
	Email  string
	Avatar string
}

type userContext struct {
	Avatar      string `json:"avatar"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ID          string `json:"id"`
	Moderator   bool   `json:"moderator"`
	Affiliation string `json:"affiliation"`
}

type featureContext struct {
	Livestreaming bool `json:"livestreaming"`
	Recording     bool `json:"recording"`
}

type tokenContext struct {
	User     userContext    `json:"user"`
	Features featureContext `json:"features"`
}

// Claims is the JWT payload understood by Jitsi's token authentication
type Claims struct {
	jwt.RegisteredClaims
	// Audience shadows the registered claim so "aud" is encoded as a plain
	// string, which is what Prosody's token verification expects
	Audience    string       `json:"aud"`
	Context     tokenContext `json:"context"`
	Room        string       `json:"room"`
	Moderator   bool         `json:"moderator"`
	Affiliation string       `json:"affiliation"`
}

// TokenIssuer signs Jitsi join tokens with the app secret
type TokenIssuer struct {
	appID  string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer from the Jitsi configuration
func NewTokenIssuer(cfg config.JitsiConfig) *TokenIssuer {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &TokenIssuer{
		appID:  cfg.AppID,
		secret: []byte(cfg.AppSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer using now as its time source
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	c := *i
	c.now = now
	return &c
}

// Enabled reports whether the issuer has the credentials to sign tokens
func (i *TokenIssuer) Enabled() bool {
	return i != nil && i.appID != "" && len(i.secret) > 0
}

// Issue signs a token for identity in roomName. It returns an empty token
// when no app credentials are configured. An empty identity is a guest.
func (i *TokenIssuer) Issue(roomName string, identity Identity, moderator bool) (string, error) {
	if !i.Enabled() {
		return "", nil
	}

	if identity.ID == "" {
		identity = Identity{ID: "guest-" + uuid.NewString()[:8], Name: "Guest"}
	}
	if identity.Name == "" {
		identity.Name = identity.ID
	}
	if identity.Email == "" && strings.Contains(identity.ID, "@") {
		identity.Email = identity.ID
	}

	affiliation := "member"
	if moderator {
		affiliation = "owner"
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.appID,
			Subject:   tokenSubject,
			ExpiresAt: jwt.NewNumericDate(i.now().Add(i.ttl)),
		},
		Context: tokenContext{
			User: userContext{
				Avatar:      identity.Avatar,
				Name:        identity.Name,
				Email:       identity.Email,
				ID:          identity.ID,
				Moderator:   moderator,
				Affiliation: affiliation,
			},
			Features: featureContext{
				Livestreaming: moderator,
				Recording:     moderator,
			},
		},
		Audience:    tokenAudience,
		Room:        roomName,
		Moderator:   moderator,
		Affiliation: affiliation,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign jitsi token: %w", err)
	}
	return token, nil
}

// JoinURL builds the Jitsi URL for a room, with the token attached when present
func JoinURL(domain, roomName, token string) string {
	base := strings.TrimRight(domain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	u := base + "/" + url.PathEscape(roomName)
	if token != "" {
		u += "?jwt=" + url.QueryEscape(token)
	}
	return u
}
