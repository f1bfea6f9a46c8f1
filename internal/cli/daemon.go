package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/devicelink/devicelink/internal/config"
)

const daemonBinary = "devicelinkd"

// EnsureDaemon makes sure the daemon is running, starting it if necessary.
func EnsureDaemon() error {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		return nil
	}

	// Clean up stale daemon info if it exists
	if info != nil {
		_ = config.RemoveDaemonInfo()
	}

	// Start daemon in background
	return startDaemon()
}

// startDaemon starts the daemon process in the background.
func startDaemon() error {
	daemonPath, err := findDaemonBinary()
	if err != nil {
		return err
	}

	cmd := exec.Command(daemonPath)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	// The daemon outlives this process.
	_ = cmd.Process.Release()

	// Wait for daemon to be ready (max 5 seconds)
	if !waitForDaemon(true, 5*time.Second) {
		return fmt.Errorf("daemon failed to start within timeout")
	}
	return nil
}

// waitForDaemon polls daemon.yaml until the daemon's running state matches
// want or timeout passes.
func waitForDaemon(want bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		running, _, err := config.IsDaemonRunning()
		if err == nil && running == want {
			return true
		}
	}
	return false
}

// findDaemonBinary locates the devicelinkd binary.
func findDaemonBinary() (string, error) {
	// Try PATH first
	path, err := exec.LookPath(daemonBinary)
	if err == nil {
		return path, nil
	}

	// Try next to the current executable
	execPath, err := os.Executable()
	if err == nil {
		daemonPath := filepath.Join(filepath.Dir(execPath), daemonBinary)
		if _, err := os.Stat(daemonPath); err == nil {
			return daemonPath, nil
		}
	}

	// Try build directory
	buildPath := filepath.Join(".", "build", daemonBinary)
	if _, err := os.Stat(buildPath); err == nil {
		return buildPath, nil
	}

	return "", fmt.Errorf("%s not found. Install or build it first", daemonBinary)
}
