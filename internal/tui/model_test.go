package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/devicelink/devicelink/internal/daemon/server"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

func reply(state string, connected bool, devices ...models.Device) StatusMsg {
	return StatusMsg{Reply: &server.StatusReply{Bridge: models.BridgeStatus{
		State:     state,
		Connected: connected,
		Devices:   devices,
	}}}
}

func newTestModel() Model {
	return NewModel(nil, &programRef{})
}

var (
	phone  = models.Device{ID: "p1", Name: "Phone", Share: true, Telephony: true}
	tablet = models.Device{ID: "t1", Name: "Tablet", Share: true}
)

func TestClampCursor(t *testing.T) {
	tests := []struct {
		name   string
		cursor int
		n      int
		want   int
	}{
		{"empty", 3, 0, 0},
		{"negative", -1, 2, 0},
		{"in range", 1, 2, 1},
		{"past end", 5, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampCursor(tt.cursor, tt.n); got != tt.want {
				t.Errorf("clampCursor(%d, %d) = %d, want %d", tt.cursor, tt.n, got, tt.want)
			}
		})
	}
}

func TestStatusUpdateClampsCursor(t *testing.T) {
	m := newTestModel()
	m, _ = update(t, m, reply("open", true, phone, tablet))
	m, _ = update(t, m, runeKey('j'))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	m, _ = update(t, m, reply("open", true, phone))
	if m.cursor != 0 {
		t.Errorf("cursor after shrink = %d, want 0", m.cursor)
	}
	if !m.connected {
		t.Error("connected = false after a status update")
	}
}

func TestSharePrompt(t *testing.T) {
	m := newTestModel()
	m, _ = update(t, m, reply("open", true, tablet))

	m, _ = update(t, m, runeKey('s'))
	if !m.prompting || m.action != protocol.ActionShare {
		t.Fatalf("prompting = %v action = %q, want share prompt", m.prompting, m.action)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.prompting {
		t.Error("Esc did not close the prompt")
	}

	m, _ = update(t, m, runeKey('s'))
	m.input.SetValue("https://example.com")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.prompting {
		t.Error("Enter did not close the prompt")
	}
	if cmd == nil {
		t.Error("Enter with a URL returned no share command")
	}
}

func TestSharePromptRejects(t *testing.T) {
	t.Run("no devices", func(t *testing.T) {
		m := newTestModel()
		m, _ = update(t, m, runeKey('s'))
		if m.prompting || m.err == nil {
			t.Errorf("prompting = %v err = %v, want an error and no prompt", m.prompting, m.err)
		}
	})

	t.Run("unsupported action", func(t *testing.T) {
		m := newTestModel()
		m, _ = update(t, m, reply("open", true, tablet))
		m, _ = update(t, m, runeKey('t'))
		if m.prompting {
			t.Error("opened a telephony prompt for a share-only device")
		}
		if m.err == nil || !strings.Contains(m.err.Error(), "Tablet") {
			t.Errorf("err = %v, want it to name the device", m.err)
		}
	})

	t.Run("empty url", func(t *testing.T) {
		m := newTestModel()
		m, _ = update(t, m, reply("open", true, phone))
		m, _ = update(t, m, runeKey('t'))
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		if m.prompting || m.err == nil {
			t.Errorf("prompting = %v err = %v, want an error and no prompt", m.prompting, m.err)
		}
	})
}

func TestWatchEnded(t *testing.T) {
	m := newTestModel()
	m, _ = update(t, m, reply("open", true))

	m, cmd := update(t, m, WatchEndedMsg{})
	if cmd != nil {
		t.Error("a cancelled stream scheduled a resubscribe")
	}
	if m.connected {
		t.Error("connected = true after the stream ended")
	}

	m, cmd = update(t, m, WatchEndedMsg{Err: status.Error(codes.Unavailable, "gone")})
	if cmd == nil {
		t.Error("a dropped stream did not schedule a resubscribe")
	}
	if m.err == nil || !strings.Contains(m.err.Error(), "unreachable") {
		t.Errorf("err = %v, want daemon unreachable", m.err)
	}

	_, cmd = update(t, m, WatchEndedMsg{Err: errors.New("boom")})
	if cmd == nil {
		t.Error("a failed stream did not schedule a resubscribe")
	}
}

func TestQuitCancelsStream(t *testing.T) {
	m := newTestModel()
	_, cmd := update(t, m, runeKey('q'))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if m.streamCtx.Err() == nil {
		t.Error("stream context still live after quit")
	}
}

func TestRenderChannelBadge(t *testing.T) {
	tests := []struct {
		name      string
		status    *server.StatusReply
		connected bool
		want      string
	}{
		{"no status", nil, false, "Waiting for daemon"},
		{"stream down", &server.StatusReply{}, false, "Waiting for daemon"},
		{"open", &server.StatusReply{Bridge: models.BridgeStatus{State: "open", Connected: true}}, true, "Connected"},
		{"companion offline", &server.StatusReply{Bridge: models.BridgeStatus{State: "open"}}, true, "Companion offline"},
		{"connecting", &server.StatusReply{Bridge: models.BridgeStatus{State: "connecting"}}, true, "Connecting"},
		{"backing off", &server.StatusReply{Bridge: models.BridgeStatus{State: "absent", Attempts: 2, NextDelay: "400ms"}}, true, "retry in 400ms, attempt 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderChannelBadge(tt.status, tt.connected, "*")
			if !strings.Contains(got, tt.want) {
				t.Errorf("renderChannelBadge() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestRenderDevices(t *testing.T) {
	if got := renderDevices(nil, 0, 80); !strings.Contains(got, "No devices") {
		t.Errorf("renderDevices(nil) = %q", got)
	}

	got := renderDevices([]models.Device{phone, {ID: "bare"}}, 1, 80)
	for _, want := range []string{"Phone", "p1", "bare", "> "} {
		if !strings.Contains(got, want) {
			t.Errorf("renderDevices() missing %q in %q", want, got)
		}
	}
}

func TestRenderDevicesFitsWidth(t *testing.T) {
	long := models.Device{ID: strings.Repeat("x", 60), Name: strings.Repeat("Phone ", 20), Share: true}
	for _, width := range []int{20, 40, 76} {
		got := renderDevices([]models.Device{long, phone}, 0, width)
		for _, line := range strings.Split(got, "\n") {
			if w := lipgloss.Width(line); w > width {
				t.Errorf("width %d: line is %d cells wide: %q", width, w, line)
			}
		}
		if !strings.Contains(got, "…") {
			t.Errorf("width %d: long line not marked as cut: %q", width, got)
		}
	}
}

func TestViewFitsNarrowTerminal(t *testing.T) {
	long := models.Device{ID: "id-" + strings.Repeat("9", 40), Name: strings.Repeat("Tablet ", 10), Telephony: true}
	m := newTestModel()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 12})
	m, _ = update(t, m, reply("open", true, long))

	lines := strings.Split(m.View(), "\n")
	for _, line := range lines {
		if w := lipgloss.Width(line); w > 40 {
			t.Errorf("View() line is %d cells wide, want at most 40: %q", w, line)
		}
	}
}

func TestViewMentionsPrompt(t *testing.T) {
	m := newTestModel()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	m, _ = update(t, m, reply("open", true, phone))
	m, _ = update(t, m, runeKey('t'))

	if view := m.View(); !strings.Contains(view, "Call/text:") {
		t.Errorf("View() does not show the telephony prompt:\n%s", view)
	}
}
