package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(m *Model, width int) string {
	if m.err != nil {
		return renderErrorBar(m.err.Error(), width)
	}
	if m.notice != "" {
		return renderNoticeBar(m.notice, width)
	}

	left := " " + getKeyHints(m)

	right := ""
	if m.connected {
		right = lipgloss.NewStyle().Foreground(colorGreen).Render("Daemon") + " "
	} else {
		right = lipgloss.NewStyle().Foreground(colorYellow).Bold(true).Render("⚠ No daemon") + " "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func getKeyHints(m *Model) string {
	if m.prompting {
		return keyHint("Enter", "send") + "  " + keyHint("Esc", "cancel")
	}

	hints := keyHint("q", "quit") + "  " + keyHint("r", "reconnect")
	if len(m.devices()) > 0 {
		hints += "  " + keyHint("j/k", "navigate") + "  " +
			keyHint("s", "share") + "  " + keyHint("t", "call/text")
	}
	return hints
}

func keyHint(k, desc string) string {
	if k == "" {
		return hintStyle.Render(desc)
	}
	return keyStyle.Render(k) + " " + hintStyle.Render(desc)
}

func renderErrorBar(msg string, width int) string {
	return statusBarStyle.
		Background(colorRed).
		Width(width).
		Render(" " + msg)
}

func renderNoticeBar(msg string, width int) string {
	return statusBarStyle.
		Width(width).
		Render(" " + lipgloss.NewStyle().Foreground(colorGreen).Render(msg))
}
