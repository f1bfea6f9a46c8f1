package hub

import (
	"bytes"
	"log"

	json "github.com/goccy/go-json"

	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/protocol"
)

// Frame types that exist only between the hub and its clients. Companion
// message types pass through unchanged.
const (
	FrameToolbar   = "toolbar"
	FrameMenus     = "menus"
	FrameTab       = "tab"
	FrameMenuClick = "menuClick"
	FrameError     = "error"
)

// Toolbar operations.
const (
	ToolbarEnable     = "enable"
	ToolbarDisable    = "disable"
	ToolbarDisableAll = "disableAll"
	ToolbarBadge      = "badge"
)

// Menu operations.
const (
	MenusRemoveAll = "removeAll"
	MenusCreate    = "create"
)

// ToolbarFrame is the payload of a toolbar frame.
type ToolbarFrame struct {
	Op    string           `json:"op"`
	TabID int              `json:"tabId,omitempty"`
	Badge *projector.Badge `json:"badge,omitempty"`
}

// MenusFrame is the payload of a menus frame.
type MenusFrame struct {
	Op   string              `json:"op"`
	Item *projector.MenuItem `json:"item,omitempty"`
}

// ErrorFrame tells a client why its frame was not acted on.
type ErrorFrame struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func encodeFrame(frameType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(protocol.Envelope{Type: frameType, Data: raw})
}

// handleFrame dispatches one frame from a client.
func (h *Hub) handleFrame(c *client, data []byte) {
	err := h.dispatch(c.origin, data)
	if err == nil || faults.Is(err, faults.Inspection) {
		return
	}
	if !faults.Is(err, faults.Untrusted) {
		log.Printf("[hub] Warning: frame from client %s not handled: %v", c.id, err)
	}

	kind := "internal"
	if k := faults.KindOf(err); k != 0 {
		kind = k.String()
	}
	reply, encErr := encodeFrame(FrameError, ErrorFrame{Kind: kind, Message: err.Error()})
	if encErr != nil {
		return
	}
	select {
	case c.send <- reply:
	default:
	}
}

func (h *Hub) dispatch(origin string, data []byte) error {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return faults.New(faults.Malformed, "client frame", err)
	}
	if env.Type == "" {
		return faults.Newf(faults.Malformed, "client frame", "missing type")
	}

	handler := h.getHandler()
	if handler == nil {
		return faults.Newf(faults.NotConnected, "client frame", "no handler")
	}

	switch env.Type {
	case FrameTab:
		var tab *projector.Tab
		if !isNull(env.Data) {
			tab = &projector.Tab{}
			if err := json.Unmarshal(env.Data, tab); err != nil {
				return faults.New(faults.Malformed, "tab frame", err)
			}
		}
		return handler.HandleTab(tab, origin)
	case FrameMenuClick:
		var click projector.Click
		if err := json.Unmarshal(env.Data, &click); err != nil {
			return faults.New(faults.Malformed, "menu click frame", err)
		}
		return handler.HandleMenuClick(click, origin)
	default:
		msg, err := protocol.Decode(data)
		if err != nil {
			return err
		}
		return handler.HandleOutbound(msg, origin)
	}
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
