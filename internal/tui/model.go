package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"google.golang.org/grpc"

	"github.com/devicelink/devicelink/internal/daemon/server"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

// Model is the root Bubbletea model for the dashboard.
type Model struct {
	client *server.BridgeClient

	// Latest status from the Watch stream; nil until the first update.
	status    *server.StatusReply
	connected bool // the Watch stream is up

	// UI state
	cursor int
	width  int
	height int

	// Share prompt
	prompting bool
	action    protocol.Action
	input     textinput.Model

	// Status display
	err    error
	notice string

	spinner spinner.Model

	// Program reference for goroutine Send()
	program *programRef

	// Streaming state
	streamCtx    context.Context
	streamCancel context.CancelFunc
}

// NewModel creates the initial dashboard model.
func NewModel(conn *grpc.ClientConn, program *programRef) Model {
	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.Placeholder = "https://..."
	input.CharLimit = 2048

	return Model{
		client:       server.NewBridgeClient(conn),
		input:        input,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		program:      program,
		streamCtx:    ctx,
		streamCancel: cancel,
	}
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		watchCmd(m.streamCtx, m.client, m.program),
		m.spinner.Tick,
	)
}

// Update processes messages and returns an updated model and commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(m.contentWidth()-12, 10)
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StatusMsg:
		m.status = msg.Reply
		m.connected = true
		m.cursor = clampCursor(m.cursor, len(m.devices()))
		return m, nil

	case WatchEndedMsg:
		m.connected = false
		if msg.Err == nil {
			return m, nil
		}
		if isConnectionLost(msg.Err) {
			m.err = fmt.Errorf("daemon unreachable, retrying")
		} else {
			m.err = fmt.Errorf("watch ended: %s", describeError(msg.Err))
		}
		return m, resubscribeAfter(resubscribeDelay)

	case ResubscribeMsg:
		if m.streamCtx.Err() != nil {
			return m, nil
		}
		return m, watchCmd(m.streamCtx, m.client, m.program)

	case ErrorMsg:
		m.err = msg.Err
		return m, clearErrorAfter(5 * time.Second)

	case ClearErrorMsg:
		m.err = nil
		return m, nil

	case SharedMsg:
		m.notice = fmt.Sprintf("Sent to %s", msg.Device)
		return m, clearNoticeAfter(3 * time.Second)

	case ReconnectedMsg:
		m.notice = "Reconnecting to companion"
		return m, clearNoticeAfter(3 * time.Second)

	case ClearNoticeMsg:
		m.notice = ""
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, globalKeys.Quit):
		m.streamCancel()
		return m, tea.Quit

	case key.Matches(msg, globalKeys.Up):
		m.cursor = clampCursor(m.cursor-1, len(m.devices()))

	case key.Matches(msg, globalKeys.Down):
		m.cursor = clampCursor(m.cursor+1, len(m.devices()))

	case key.Matches(msg, globalKeys.Reconnect):
		return m, reconnectCmd(m.client)

	case key.Matches(msg, globalKeys.Share):
		return m.openPrompt(protocol.ActionShare)

	case key.Matches(msg, globalKeys.Telephony):
		return m.openPrompt(protocol.ActionTelephony)
	}
	return m, nil
}

func (m Model) openPrompt(action protocol.Action) (tea.Model, tea.Cmd) {
	device, ok := m.selected()
	if !ok {
		m.err = fmt.Errorf("no device selected")
		return m, clearErrorAfter(3 * time.Second)
	}
	if !supports(device, action) {
		m.err = fmt.Errorf("%s does not accept %s", displayName(device), action)
		return m, clearErrorAfter(3 * time.Second)
	}

	m.prompting = true
	m.action = action
	m.input.SetValue("")
	if action == protocol.ActionTelephony {
		m.input.Placeholder = "tel:+1555... or sms:+1555..."
	} else {
		m.input.Placeholder = "https://..."
	}
	return m, m.input.Focus()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, promptKeys.Cancel):
		m.prompting = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, promptKeys.Submit):
		url := strings.TrimSpace(m.input.Value())
		m.prompting = false
		m.input.Blur()
		if url == "" {
			m.err = fmt.Errorf("nothing to send")
			return m, clearErrorAfter(3 * time.Second)
		}
		device, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, shareCmd(m.client, device.ID, url, m.action)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) devices() []models.Device {
	if m.status == nil {
		return nil
	}
	return m.status.Bridge.Devices
}

func (m Model) selected() (models.Device, bool) {
	devices := m.devices()
	if m.cursor < 0 || m.cursor >= len(devices) {
		return models.Device{}, false
	}
	return devices[m.cursor], true
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

// panelInnerWidth is the text width left inside the bordered, padded panel.
func panelInnerWidth(width int) int {
	return width - 2 - panelStyle.GetHorizontalPadding()
}

// View renders the dashboard.
func (m Model) View() string {
	width := m.contentWidth()

	sections := []string{
		renderHeader(m.status, m.connected, m.spinner.View(), width),
		panelStyle.Width(width - 2).Render(renderDevices(m.devices(), m.cursor, panelInnerWidth(width))),
	}
	if m.prompting {
		label := "Share"
		if m.action == protocol.ActionTelephony {
			label = "Call/text"
		}
		sections = append(sections, " "+promptLabelStyle.Render(label+":")+" "+m.input.View())
	}
	body := lipgloss.JoinVertical(lipgloss.Left, sections...)

	bar := renderStatusBar(&m, width)
	if m.height > 0 {
		gap := m.height - lipgloss.Height(body) - lipgloss.Height(bar)
		if gap > 0 {
			body += strings.Repeat("\n", gap)
		}
	}
	return body + "\n" + bar
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

func supports(d models.Device, action protocol.Action) bool {
	switch action {
	case protocol.ActionShare:
		return d.Share
	case protocol.ActionTelephony:
		return d.Telephony
	default:
		return false
	}
}

func displayName(d models.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
