package tui

import "github.com/charmbracelet/lipgloss"

// Colors using AdaptiveColor for light/dark terminal support.
var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Layout styles.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.AdaptiveColor{Light: "235", Dark: "236"})

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// Device list styles.
var (
	deviceNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	deviceIDStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	capabilityOnStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	capabilityOffStyle = lipgloss.NewStyle().Foreground(colorDim).Strikethrough(true)

	selectedItemStyle = lipgloss.NewStyle().
				Background(lipgloss.AdaptiveColor{Light: "254", Dark: "237"})

	emptyStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)
)

// Channel badge styles.
var (
	badgeOpenStyle       = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	badgeConnectingStyle = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	badgeAbsentStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// Key hint styles for status bar.
var (
	keyStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	hintStyle = lipgloss.NewStyle().Foreground(colorDim)
)

var promptLabelStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan)
