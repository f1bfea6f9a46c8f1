package models

import "time"

// DaemonInfo represents the daemon connection information.
// This corresponds to ~/.devicelink/daemon.yaml.
type DaemonInfo struct {
	Version   int       `yaml:"version"`
	Host      string    `yaml:"host"`
	Port      int       `yaml:"port"`    // control (gRPC) port
	UIAddr    string    `yaml:"ui_addr"` // websocket hub address for browser surfaces
	PID       int       `yaml:"pid"`
	StartedAt time.Time `yaml:"started_at"`
}

// NewDaemonInfo creates a new daemon info with current values.
func NewDaemonInfo(host string, port int, uiAddr string, pid int) *DaemonInfo {
	return &DaemonInfo{
		Version:   1,
		Host:      host,
		Port:      port,
		UIAddr:    uiAddr,
		PID:       pid,
		StartedAt: time.Now().UTC(),
	}
}
