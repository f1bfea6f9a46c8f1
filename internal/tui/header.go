package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/devicelink/devicelink/internal/daemon/server"
)

func renderHeader(status *server.StatusReply, connected bool, spin string, width int) string {
	name := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Render("devicelink")
	left := fmt.Sprintf(" %s  %s", name, renderChannelBadge(status, connected, spin))

	right := ""
	if status != nil {
		right = hintStyle.Render(fmt.Sprintf("%s · %s ",
			plural(len(status.Bridge.Devices), "device"),
			plural(status.Bridge.Clients, "surface")))
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderChannelBadge describes the companion channel. spin is shown while
// the daemon is still connecting or has not reported yet.
func renderChannelBadge(status *server.StatusReply, connected bool, spin string) string {
	if status == nil || !connected {
		return badgeConnectingStyle.Render(spin + " Waiting for daemon")
	}

	st := status.Bridge
	switch st.State {
	case "open":
		if st.Connected {
			return badgeOpenStyle.Render("● Connected")
		}
		return badgeConnectingStyle.Render("● Companion offline")
	case "connecting":
		return badgeConnectingStyle.Render(spin + " Connecting")
	default:
		badge := badgeAbsentStyle.Render("● Disconnected")
		if st.NextDelay != "" && st.Attempts > 0 {
			badge += hintStyle.Render(fmt.Sprintf(" (retry in %s, attempt %d)", st.NextDelay, st.Attempts))
		}
		return badge
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
