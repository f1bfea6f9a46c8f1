package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name+".json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidHostName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"io.devicelink.companion", true},
		{"host_1", true},
		{"Upper.case", false},
		{".leading", false},
		{"double..dot", false},
		{"trailing.", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidHostName(tt.name); got != tt.expected {
				t.Errorf("ValidHostName(%q) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestFindHostManifest(t *testing.T) {
	root := t.TempDir()
	userDir := filepath.Join(root, "user")
	systemDir := filepath.Join(root, "system")

	writeManifest(t, systemDir, "io.devicelink.companion", `{
		"name": "io.devicelink.companion",
		"description": "system",
		"path": "/usr/bin/companion",
		"type": "stdio",
		"allowed_origins": ["chrome-extension://abc/"]
	}`)

	m, err := FindHostManifest("io.devicelink.companion", "chrome-extension://abc/", []string{userDir, systemDir})
	if err != nil {
		t.Fatalf("FindHostManifest() error = %v", err)
	}
	if m.Description != "system" || m.Path != "/usr/bin/companion" {
		t.Errorf("manifest = %+v", m)
	}

	// A user manifest shadows the system one.
	writeManifest(t, userDir, "io.devicelink.companion", `{
		"name": "io.devicelink.companion",
		"description": "user",
		"path": "bin/companion",
		"type": "stdio"
	}`)
	m, err = FindHostManifest("io.devicelink.companion", "chrome-extension://abc/", []string{userDir, systemDir})
	if err != nil {
		t.Fatalf("FindHostManifest() error = %v", err)
	}
	if m.Description != "user" {
		t.Errorf("Description = %q, want user", m.Description)
	}
	if want := filepath.Join(userDir, "bin", "companion"); m.Path != want {
		t.Errorf("Path = %q, want %q", m.Path, want)
	}
}

func TestFindHostManifestRejects(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		origin string
	}{
		{
			name:   "origin not allowed",
			body:   `{"name":"io.devicelink.companion","path":"/bin/c","type":"stdio","allowed_origins":["chrome-extension://other/"]}`,
			origin: "chrome-extension://abc/",
		},
		{
			name:   "wrong type",
			body:   `{"name":"io.devicelink.companion","path":"/bin/c","type":"socket"}`,
			origin: "chrome-extension://abc/",
		},
		{
			name:   "name mismatch",
			body:   `{"name":"io.other","path":"/bin/c","type":"stdio"}`,
			origin: "chrome-extension://abc/",
		},
		{
			name:   "broken json",
			body:   `{"name":`,
			origin: "chrome-extension://abc/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, "io.devicelink.companion", tt.body)
			if _, err := FindHostManifest("io.devicelink.companion", tt.origin, []string{dir}); err == nil {
				t.Error("FindHostManifest() error = nil, want error")
			}
		})
	}
}

func TestHostManifestAllowsFirefoxExtension(t *testing.T) {
	m := &HostManifest{AllowedExtensions: []string{"devicelink@example.org"}}
	if !m.Allows("moz-extension://devicelink@example.org/") {
		t.Error("Allows() = false for listed extension")
	}
	if m.Allows("moz-extension://other@example.org/") {
		t.Error("Allows() = true for unlisted extension")
	}
}
