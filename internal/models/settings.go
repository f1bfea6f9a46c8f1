package models

import "time"

// Sender origins of the daemon's own surfaces.
const (
	CLIOrigin  = "devicelink-cli://local"  // commands from the devicelink CLI
	TrayOrigin = "devicelink-tray://local" // clicks in the tray menu
)

// DefaultPopupOrigin is the origin of the devicelink browser extension.
const DefaultPopupOrigin = "chrome-extension://devicelink/"

// CompanionConfig identifies the companion application.
type CompanionConfig struct {
	Host    string `yaml:"host"`    // native messaging host name
	Command string `yaml:"command"` // empty = resolve through the host manifest
	Origin  string `yaml:"origin"`  // passed to the companion as the caller origin
}

// ReconnectConfig holds the reconnect backoff parameters.
type ReconnectConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"` // 0 = uncapped
}

// UIConfig holds settings for the browser-facing surfaces.
type UIConfig struct {
	Listen         string   `yaml:"listen"`
	TrustedOrigins []string `yaml:"trusted_origins"` // glob patterns
	InternalPages  []string `yaml:"internal_pages"`  // glob patterns of pages the action is disabled on
	Tray           bool     `yaml:"tray"`
}

// Settings represents global application settings.
// This corresponds to ~/.devicelink/settings.yaml.
type Settings struct {
	Version   int             `yaml:"version"`
	Companion CompanionConfig `yaml:"companion"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	UI        UIConfig        `yaml:"ui"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Companion: CompanionConfig{
			Host:    "io.devicelink.companion",
			Command: "",
			Origin:  DefaultPopupOrigin,
		},
		Reconnect: ReconnectConfig{
			BaseDelay: 100 * time.Millisecond,
			MaxDelay:  5 * time.Minute,
		},
		UI: UIConfig{
			Listen:         "127.0.0.1:0",
			TrustedOrigins: DefaultTrustedOrigins(DefaultPopupOrigin),
			InternalPages:  DefaultInternalPages(),
			Tray:           true,
		},
	}
}

// DefaultTrustedOrigins returns the origins allowed to send commands out of
// the box: the extension popup plus the daemon's own CLI and tray. Wildcards
// such as "chrome-extension://*" are opt-in.
func DefaultTrustedOrigins(popupOrigin string) []string {
	return []string{popupOrigin, CLIOrigin, TrayOrigin}
}

// DefaultInternalPages returns the URL patterns of privileged browser pages.
func DefaultInternalPages() []string {
	return []string{
		"about:*",
		"chrome://*",
		"chrome-extension://*",
		"chrome-search://*",
		"devtools://*",
		"edge://*",
		"moz-extension://*",
		"view-source:*",
	}
}

// Normalize fills zero values left by a partial settings file.
func (s *Settings) Normalize() {
	def := NewSettings()
	if s.Version == 0 {
		s.Version = def.Version
	}
	if s.Companion.Host == "" {
		s.Companion.Host = def.Companion.Host
	}
	if s.Companion.Origin == "" {
		s.Companion.Origin = def.Companion.Origin
	}
	if s.Reconnect.BaseDelay <= 0 {
		s.Reconnect.BaseDelay = def.Reconnect.BaseDelay
	}
	if s.Reconnect.MaxDelay < 0 {
		s.Reconnect.MaxDelay = 0
	}
	if s.UI.Listen == "" {
		s.UI.Listen = def.UI.Listen
	}
	if s.UI.TrustedOrigins == nil {
		s.UI.TrustedOrigins = DefaultTrustedOrigins(s.Companion.Origin)
	}
	if s.UI.InternalPages == nil {
		s.UI.InternalPages = def.UI.InternalPages
	}
}
