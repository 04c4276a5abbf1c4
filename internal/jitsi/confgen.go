package jitsi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/navikt/zmeet/internal/config"
)

// Generated file names
const (
	ConfigFile          = "config.js"
	InterfaceConfigFile = "interface_config.js"
)

// DefaultToolbarButtons is used when no toolbar buttons are configured
var DefaultToolbarButtons = []string{
	"microphone", "camera", "closedcaptions", "desktop", "fullscreen",
	"fodeviceselection", "hangup", "profile", "chat", "recording",
	"livestreaming", "etherpad", "sharedvideo", "settings", "raisehand",
	"videoquality", "filmstrip", "invite", "feedback", "stats", "shortcuts",
	"tileview", "videobackgroundblur", "download", "help", "mute-everyone",
	"security",
}

var configTemplate = template.Must(template.New(ConfigFile).Parse(`
var config = {};

config.hosts = {
    domain: '{{.Domain}}',
    muc: 'muc.{{.Domain}}'
};

config.bosh = 'https://{{.Domain}}/http-bind';
config.websocket = 'wss://{{.Domain}}/xmpp-websocket';

config.clientNode = 'http://jitsi.org/jitsimeet';

config.testing = {
    enableCodecSelectionAPI: true,
    capScreenshareBitrate: 1,
    p2pTestMode: false
};

config.flags = {
    sourceNameSignaling: true,
    sendMultipleVideoStreams: true,
    receiveMultipleVideoStreams: true
};

config.channelLastN = -1;
config.startAudioMuted = {{if .StartAudioMuted}}10{{else}}null{{end}};
config.startVideoMuted = {{if .StartVideoMuted}}10{{else}}null{{end}};
config.startWithAudioMuted = {{.StartAudioMuted}};
config.startWithVideoMuted = {{.StartVideoMuted}};

config.requireDisplayName = {{.RequireDisplayName}};
config.prejoinPageEnabled = {{.PrejoinPageEnabled}};

config.disableDeepLinking = false;
config.p2p = {
    enabled: true,
    useStunTurn: true,
    stunServers: [
        { urls: 'stun:meet-jit-si-turnrelay.jitsi.net:443' }
    ]
};

config.resolution = {{.Resolution}};

config.toolbarButtons = {{.Toolbar}};

config.analytics = {};

config.deploymentInfo = {};
`))

var interfaceConfigTemplate = template.Must(template.New(InterfaceConfigFile).Parse(`
var interfaceConfig = {
    APP_NAME: '{{.AppName}}',
    DEFAULT_BACKGROUND: '{{.DefaultBackground}}',
    SHOW_JITSI_WATERMARK: {{.ShowJitsiWatermark}},
    SHOW_BRAND_WATERMARK: {{.ShowBrandWatermark}},
    BRAND_WATERMARK_LINK: '{{.BrandWatermarkLink}}',

    // Default toolbar buttons (legacy fallback)
    TOOLBAR_BUTTONS: {{.Toolbar}},

    SETTINGS_SECTIONS: [ 'devices', 'language', 'moderator', 'profile', 'calendar', 'sounds', 'more' ],

    MOBILE_APP_PROMO: true,

    FILM_STRIP_MAX_HEIGHT: 120,
    VERTICAL_FILMSTRIP: true,
    VIDEO_LAYOUT_FIT: 'both',

    DISABLE_JOIN_LEAVE_NOTIFICATIONS: false,
    DISABLE_VIDEO_BACKGROUND: false,
};
`))

type templateData struct {
	config.ConferenceSettings
	Toolbar string
}

// GenerateConfig renders config.js and interface_config.js for a self-hosted
// Jitsi deployment. The result maps file names to file contents.
func GenerateConfig(settings config.ConferenceSettings) (map[string]string, error) {
	if settings.Domain == "" {
		settings.Domain = "meet.jit.si"
	}
	if settings.AppName == "" {
		settings.AppName = "Jitsi Meet"
	}
	if settings.DefaultBackground == "" {
		settings.DefaultBackground = "#040404"
	}
	if settings.Resolution <= 0 {
		settings.Resolution = 720
	}

	for _, s := range []*string{&settings.Domain, &settings.AppName, &settings.DefaultBackground, &settings.BrandWatermarkLink} {
		*s = escapeJSString(*s)
	}

	toolbar, err := json.Marshal(ToolbarButtons(settings.ToolbarButtons))
	if err != nil {
		return nil, fmt.Errorf("encode toolbar buttons: %w", err)
	}
	data := templateData{ConferenceSettings: settings, Toolbar: string(toolbar)}

	files := make(map[string]string, 2)
	for _, tmpl := range []*template.Template{configTemplate, interfaceConfigTemplate} {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", tmpl.Name(), err)
		}
		files[tmpl.Name()] = buf.String()
	}
	return files, nil
}

// ToolbarButtons trims the configured buttons and falls back to the defaults
func ToolbarButtons(configured []string) []string {
	buttons := make([]string, 0, len(configured))
	for _, b := range configured {
		if b = strings.TrimSpace(b); b != "" {
			buttons = append(buttons, b)
		}
	}
	if len(buttons) == 0 {
		return DefaultToolbarButtons
	}
	return buttons
}

var jsStringReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

// escapeJSString makes s safe inside a single-quoted JavaScript literal
func escapeJSString(s string) string {
	return jsStringReplacer.Replace(s)
}
