package tray

import (
	"bytes"

	"github.com/getlantern/systray"

	"github.com/devicelink/devicelink/internal/daemon/projector"
)

// Surface mirrors the projected UI state in the tray. Calls made before
// the tray is ready are kept and drawn once it is.
type Surface struct{}

// SetEnabled is a no-op: the tray is not tied to a tab.
func (Surface) SetEnabled(int, bool) error { return nil }

// DisableAll is a no-op: the tray is not tied to a tab.
func (Surface) DisableAll() error { return nil }

// SetBadge switches between the normal and the error icon.
func (Surface) SetBadge(badge projector.Badge) error {
	icon := iconData
	if badge.Text != "" {
		icon = iconErrorData
	}

	slotMu.Lock()
	changed := !bytes.Equal(currentIcon, icon)
	currentIcon = icon
	isReady := ready
	slotMu.Unlock()

	if isReady && changed {
		setIcon(icon)
	}
	go render()
	return nil
}

// RemoveAll clears the stored menu.
func (Surface) RemoveAll() error {
	slotMu.Lock()
	menuItems = nil
	slotMu.Unlock()
	go render()
	return nil
}

// Create adds an entry to the stored menu.
func (Surface) Create(item projector.MenuItem) error {
	slotMu.Lock()
	menuItems = append(menuItems, item)
	slotMu.Unlock()
	go render()
	return nil
}

// setIcon shows icon. The error icon is drawn in color; the normal one
// follows the menu bar theme.
func setIcon(icon []byte) {
	if bytes.Equal(icon, iconErrorData) {
		systray.SetIcon(icon)
		return
	}
	systray.SetTemplateIcon(icon, icon)
}
