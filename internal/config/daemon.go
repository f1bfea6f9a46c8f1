package config

import (
	"fmt"
	"os"
	"syscall"

	"github.com/devicelink/devicelink/internal/models"
)

// LoadDaemonInfo loads the daemon connection info from ~/.devicelink/daemon.yaml.
// Returns nil if the file doesn't exist.
func LoadDaemonInfo() (*models.DaemonInfo, error) {
	path, err := GlobalDaemonFile()
	if err != nil {
		return nil, err
	}

	if !FileExists(path) {
		return nil, nil
	}

	var info models.DaemonInfo
	if err := LoadYAML(path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveDaemonInfo saves the daemon connection info to ~/.devicelink/daemon.yaml.
func SaveDaemonInfo(info *models.DaemonInfo) error {
	if err := EnsureGlobalDir(); err != nil {
		return err
	}

	path, err := GlobalDaemonFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, info)
}

// RemoveDaemonInfo removes the daemon.yaml file.
func RemoveDaemonInfo() error {
	path, err := GlobalDaemonFile()
	if err != nil {
		return err
	}

	if !FileExists(path) {
		return nil
	}
	return os.Remove(path)
}

// IsDaemonRunning reports whether the daemon recorded in daemon.yaml is
// still alive. A stale file left by a crashed daemon is removed.
func IsDaemonRunning() (bool, *models.DaemonInfo, error) {
	info, err := LoadDaemonInfo()
	if err != nil {
		return false, nil, err
	}
	if info == nil {
		return false, nil, nil
	}

	if !processAlive(info.PID) {
		_ = RemoveDaemonInfo()
		return false, info, nil
	}
	return true, info, nil
}

// ControlAddr returns the host:port of the daemon's control server.
func ControlAddr(info *models.DaemonInfo) string {
	return fmt.Sprintf("%s:%d", info.Host, info.Port)
}

// processAlive sends signal 0 to pid.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
