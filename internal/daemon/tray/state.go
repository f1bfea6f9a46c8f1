// Package tray implements the system tray icon and menu for the daemon.
package tray

import (
	_ "embed"

	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/models"
)

var (
	//go:embed icon.png
	iconData []byte
	//go:embed icon_error.png
	iconErrorData []byte
)

// DaemonState provides access to daemon state for the tray.
type DaemonState interface {
	Status() models.BridgeStatus
	Reconnect() error
	RequestShutdown()
}

// Dispatcher handles clicks on device entries.
type Dispatcher interface {
	HandleMenuClick(click projector.Click, origin string) error
}
