// Package config provides configuration management for the application
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// BaseURL is the public address of zmeet, used in join and download links
	BaseURL string `env:"MEET_BASE_URL" envDefault:"http://localhost:8080"`
	// UserHeader carries the authenticated user, set by the fronting proxy
	UserHeader string `env:"AUTH_USER_HEADER" envDefault:"X-Forwarded-User"`
}

// MeetConfig holds meeting lifecycle settings
type MeetConfig struct {
	Enabled        bool          `env:"MEET_ENABLED" envDefault:"true"`
	AllowGuests    bool          `env:"MEET_ALLOW_GUESTS" envDefault:"false"`
	SweepInterval  time.Duration `env:"MEET_SWEEP_INTERVAL" envDefault:"1h"`
	WaitingTimeout time.Duration `env:"MEET_WAITING_TIMEOUT" envDefault:"1h"`
	ActiveTimeout  time.Duration `env:"MEET_ACTIVE_TIMEOUT" envDefault:"24h"`
	// Retention is how long closed meetings are kept (0 keeps them forever)
	Retention time.Duration `env:"MEET_RETENTION" envDefault:"720h"`
}

// JitsiConfig holds all Jitsi-related configuration
type JitsiConfig struct {
	Domain       string        `env:"JITSI_DOMAIN" envDefault:"meet.jit.si"`
	AppID        string        `env:"JITSI_APP_ID"`
	AppSecret    string        `env:"JITSI_APP_SECRET"`
	WebhookToken string        `env:"JITSI_WEBHOOK_TOKEN"`
	TokenTTL     time.Duration `env:"JITSI_TOKEN_TTL" envDefault:"2h"`
}

// ConferenceSettings drive the generated Jitsi config.js and interface_config.js
type ConferenceSettings struct {
	Domain             string   `env:"JITSI_DOMAIN" envDefault:"meet.jit.si"`
	AppName            string   `env:"JITSI_APP_NAME" envDefault:"Jitsi Meet"`
	ToolbarButtons     []string `env:"JITSI_TOOLBAR_BUTTONS" envSeparator:","`
	StartAudioMuted    bool     `env:"JITSI_START_AUDIO_MUTED"`
	StartVideoMuted    bool     `env:"JITSI_START_VIDEO_MUTED"`
	RequireDisplayName bool     `env:"JITSI_REQUIRE_DISPLAY_NAME"`
	PrejoinPageEnabled bool     `env:"JITSI_PREJOIN_PAGE_ENABLED"`
	Resolution         int      `env:"JITSI_RESOLUTION" envDefault:"720"`
	ShowBrandWatermark bool     `env:"JITSI_SHOW_BRAND_WATERMARK"`
	ShowJitsiWatermark bool     `env:"JITSI_SHOW_JITSI_WATERMARK"`
	BrandWatermarkLink string   `env:"JITSI_BRAND_WATERMARK_LINK"`
	DefaultBackground  string   `env:"JITSI_DEFAULT_BACKGROUND" envDefault:"#040404"`
}

// ExportConfig points at the external service rendering docx and pdf exports
type ExportConfig struct {
	ServiceURL string        `env:"EXPORT_SERVICE_URL"`
	Timeout    time.Duration `env:"EXPORT_SERVICE_TIMEOUT" envDefault:"30s"`
}

// RedisConfig holds Redis/Valkey configuration
type RedisConfig struct {
	Enabled bool `env:"REDIS_ENABLED" envDefault:"false"`
	// URI is prioritized if provided, otherwise individual connection parameters are used
	URI       string `env:"REDIS_URI_ZMEET"`
	Host      string `env:"REDIS_HOST_ZMEET"`
	Port      string `env:"REDIS_PORT_ZMEET" envDefault:"6379"`
	Username  string `env:"REDIS_USERNAME_ZMEET"`
	Password  string `env:"REDIS_PASSWORD_ZMEET"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"zmeet:"`
	// TTL for meetings (0 means no expiration)
	MeetingTTL time.Duration
	TTLHours   int `env:"REDIS_MEETING_TTL_HOURS" envDefault:"168"`

	// Fallbacks for platform-provided variables
	Address        string `env:"REDIS_ADDRESS" envDefault:"localhost"`
	LegacyPassword string `env:"REDIS_PASSWORD"`
}

// Config aggregates every configuration group
type Config struct {
	Server     ServerConfig
	Meet       MeetConfig
	Jitsi      JitsiConfig
	Conference ConferenceSettings
	Export     ExportConfig
	Redis      RedisConfig
}

// Load reads the complete configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	var err error

	if cfg.Server, err = GetServerConfig(); err != nil {
		return nil, err
	}
	if cfg.Meet, err = GetMeetConfig(); err != nil {
		return nil, err
	}
	if cfg.Jitsi, err = GetJitsiConfig(); err != nil {
		return nil, err
	}
	if cfg.Conference, err = GetConferenceSettings(); err != nil {
		return nil, err
	}
	if cfg.Export, err = GetExportConfig(); err != nil {
		return nil, err
	}
	if cfg.Redis, err = GetRedisConfig(); err != nil {
		return nil, err
	}
	cfg.Redis.MeetingTTL = StoreTTL(cfg.Redis.MeetingTTL, cfg.Meet.Retention)
	return &cfg, nil
}

// GetServerConfig loads server configuration from environment variables
func GetServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := parse(&cfg); err != nil {
		return ServerConfig{}, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

// GetMeetConfig loads meeting lifecycle configuration from environment variables
func GetMeetConfig() (MeetConfig, error) {
	var cfg MeetConfig
	if err := parse(&cfg); err != nil {
		return MeetConfig{}, err
	}
	return cfg, nil
}

// GetJitsiConfig loads Jitsi configuration from environment variables
func GetJitsiConfig() (JitsiConfig, error) {
	var cfg JitsiConfig
	if err := parse(&cfg); err != nil {
		return JitsiConfig{}, err
	}
	return cfg, nil
}

// GetConferenceSettings loads the conference UI settings from environment variables
func GetConferenceSettings() (ConferenceSettings, error) {
	var cfg ConferenceSettings
	if err := parse(&cfg); err != nil {
		return ConferenceSettings{}, err
	}
	return cfg, nil
}

// GetExportConfig loads export service configuration from environment variables
func GetExportConfig() (ExportConfig, error) {
	var cfg ExportConfig
	if err := parse(&cfg); err != nil {
		return ExportConfig{}, err
	}
	return cfg, nil
}

// GetRedisConfig loads Redis/Valkey configuration from environment variables
func GetRedisConfig() (RedisConfig, error) {
	var cfg RedisConfig
	if err := parse(&cfg); err != nil {
		return RedisConfig{}, err
	}

	if cfg.Host == "" {
		cfg.Host = cfg.Address
	}
	if cfg.Password == "" {
		cfg.Password = cfg.LegacyPassword
	}
	cfg.MeetingTTL = time.Duration(cfg.TTLHours) * time.Hour

	return cfg, nil
}

// StoreTTL returns a key TTL that never expires a closed meeting before the
// sweeper purges it. A zero retention keeps meetings forever, so keys never expire.
func StoreTTL(ttl, retention time.Duration) time.Duration {
	if retention <= 0 || ttl <= 0 {
		return 0
	}
	if ttl < retention {
		return retention
	}
	return ttl
}

// CanSignTokens checks if the Jitsi app credentials needed for JWT auth are present
func (c JitsiConfig) CanSignTokens() bool {
	return c.AppID != "" && c.AppSecret != ""
}

func parse(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
