package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/devicelink/devicelink/internal/models"
)

// renderDevices lists the devices, one line each, cut to fit width.
func renderDevices(devices []models.Device, cursor, width int) string {
	if len(devices) == 0 {
		return emptyStyle.Render("No devices reported by the companion.")
	}

	lines := make([]string, 0, len(devices))
	for i, d := range devices {
		line := renderDeviceLine(d)
		// 2 for the cursor prefix
		if maxWidth := width - 2; maxWidth > 0 {
			line = ansi.Truncate(line, maxWidth, "…")
		}
		if i == cursor {
			line = selectedItemStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderDeviceLine(d models.Device) string {
	parts := []string{deviceNameStyle.Render(displayName(d))}
	if d.Name != "" {
		parts = append(parts, deviceIDStyle.Render(d.ID))
	}
	parts = append(parts,
		renderCapability("share", d.Share),
		renderCapability("telephony", d.Telephony),
	)
	return strings.Join(parts, "  ")
}

func renderCapability(name string, on bool) string {
	if on {
		return capabilityOnStyle.Render(name)
	}
	return capabilityOffStyle.Render(name)
}
