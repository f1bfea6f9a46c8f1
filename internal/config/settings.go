package config

import (
	"github.com/devicelink/devicelink/internal/models"
)

// LoadSettings loads the global settings from ~/.devicelink/settings.yaml.
// If the file doesn't exist, returns default settings.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	return LoadSettingsFile(path)
}

// LoadSettingsFile loads settings from an explicit path, filling defaults
// for anything the file leaves out.
func LoadSettingsFile(path string) (*models.Settings, error) {
	// Trusted origins default to the configured popup origin, which the
	// file may change, so they are filled in by Normalize.
	settings, err := LoadYAMLOrDefault(path, func() *models.Settings {
		s := models.NewSettings()
		s.UI.TrustedOrigins = nil
		return s
	})
	if err != nil {
		return nil, err
	}
	settings.Normalize()
	return settings, nil
}

// SaveSettings saves the global settings to ~/.devicelink/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}
