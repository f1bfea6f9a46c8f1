package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	json "github.com/goccy/go-json"
)

// HostManifest is a native messaging host manifest as installed by the
// companion application for each browser.
type HostManifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`    // Chromium
	AllowedExtensions []string `json:"allowed_extensions,omitempty"` // Firefox

	// File is where the manifest was read from.
	File string `json:"-"`
}

var hostNamePattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// ValidHostName reports whether name is a legal native messaging host name.
func ValidHostName(name string) bool {
	return hostNamePattern.MatchString(name)
}

// Allows reports whether the manifest lets origin launch the host. A
// manifest without any allow list is treated as open.
func (m *HostManifest) Allows(origin string) bool {
	if len(m.AllowedOrigins) == 0 && len(m.AllowedExtensions) == 0 {
		return true
	}
	for _, o := range m.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	id := strings.TrimSuffix(strings.TrimPrefix(origin, "moz-extension://"), "/")
	for _, ext := range m.AllowedExtensions {
		if ext == id {
			return true
		}
	}
	return false
}

// LoadHostManifest reads and validates a manifest file.
func LoadHostManifest(path string) (*HostManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m HostManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	m.File = path

	if m.Type != "stdio" {
		return nil, fmt.Errorf("manifest %s: unsupported type %q", path, m.Type)
	}
	if m.Path == "" {
		return nil, fmt.Errorf("manifest %s: missing path", path)
	}
	// Relative paths are relative to the manifest (Chromium on Windows and
	// some Linux packagers rely on this).
	if !filepath.IsAbs(m.Path) {
		m.Path = filepath.Join(filepath.Dir(path), m.Path)
	}
	return &m, nil
}

// ManifestDirs returns the directories searched for host manifests, user
// directories first.
func ManifestDirs() []string {
	home, _ := os.UserHomeDir()
	var dirs []string
	switch runtime.GOOS {
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		dirs = append(dirs,
			filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts"),
			filepath.Join(support, "Chromium", "NativeMessagingHosts"),
			filepath.Join(support, "Mozilla", "NativeMessagingHosts"),
			"/Library/Google/Chrome/NativeMessagingHosts",
			"/Library/Application Support/Mozilla/NativeMessagingHosts",
		)
	default:
		dirs = append(dirs,
			filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"),
			filepath.Join(home, ".config", "chromium", "NativeMessagingHosts"),
			filepath.Join(home, ".mozilla", "native-messaging-hosts"),
			"/etc/opt/chrome/native-messaging-hosts",
			"/etc/chromium/native-messaging-hosts",
			"/usr/lib/mozilla/native-messaging-hosts",
			"/usr/lib64/mozilla/native-messaging-hosts",
		)
	}
	return dirs
}

// FindHostManifest looks for <name>.json in dirs and returns the first
// manifest that parses and allows origin.
func FindHostManifest(name, origin string, dirs []string) (*HostManifest, error) {
	if !ValidHostName(name) {
		return nil, fmt.Errorf("invalid native messaging host name %q", name)
	}

	var lastErr error
	for _, dir := range dirs {
		path := filepath.Join(dir, name+".json")
		if !FileExists(path) {
			continue
		}
		m, err := LoadHostManifest(path)
		if err != nil {
			lastErr = err
			continue
		}
		if m.Name != name {
			lastErr = fmt.Errorf("manifest %s: name %q does not match %q", path, m.Name, name)
			continue
		}
		if !m.Allows(origin) {
			lastErr = fmt.Errorf("manifest %s: origin %q not allowed", path, origin)
			continue
		}
		return m, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no manifest for native messaging host %q", name)
}
