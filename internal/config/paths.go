// Package config handles configuration loading, saving, and path management.
package config

import (
	"os"
	"path/filepath"
)

const (
	// GlobalDirName is the name of the global devicelink directory.
	GlobalDirName = ".devicelink"
)

// File names
const (
	DaemonFileName   = "daemon.yaml"
	SettingsFileName = "settings.yaml"
)

// homeDirOverride lets tests point the global directory somewhere else.
var homeDirOverride string

// GlobalDir returns the path to the global devicelink directory (~/.devicelink/).
func GlobalDir() (string, error) {
	if homeDirOverride != "" {
		return filepath.Join(homeDirOverride, GlobalDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

// GlobalDaemonFile returns the path to the daemon.yaml file.
func GlobalDaemonFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DaemonFileName), nil
}

// GlobalSettingsFile returns the path to the settings.yaml file.
func GlobalSettingsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// EnsureGlobalDir creates the global devicelink directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
