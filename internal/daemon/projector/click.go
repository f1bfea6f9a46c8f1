package projector

import (
	"strings"

	"github.com/devicelink/devicelink/internal/daemon/roster"
	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/protocol"
)

// Click is what the menu dispatcher reports about a clicked entry.
type Click struct {
	MenuItemID    string `json:"menuItemId"`
	PageURL       string `json:"pageUrl,omitempty"`
	LinkURL       string `json:"linkUrl,omitempty"`
	SrcURL        string `json:"srcUrl,omitempty"`
	SelectionText string `json:"selectionText,omitempty"`
}

// MenuItemID builds the "<deviceId>:<action>" id of a leaf entry.
func MenuItemID(deviceID string, action protocol.Action) string {
	return deviceID + roster.IDDelimiter + string(action)
}

// ParseMenuItemID splits a leaf entry id back into device and action.
func ParseMenuItemID(id string) (string, protocol.Action, error) {
	parts := strings.Split(id, roster.IDDelimiter)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", faults.Newf(faults.Malformed, "menu click", "not a device entry: %q", id)
	}
	action := protocol.Action(parts[1])
	if !action.Valid() {
		return "", "", faults.Newf(faults.Malformed, "menu click", "unknown action in %q", id)
	}
	return parts[0], action, nil
}

// InterpretClick turns a clicked entry into the share command it stands
// for. The URL is the link, then the media source, then (for SMS) the
// selected text, then the page.
func InterpretClick(c Click) (protocol.Share, error) {
	device, action, err := ParseMenuItemID(c.MenuItemID)
	if err != nil {
		return protocol.Share{}, err
	}

	url := c.LinkURL
	if url == "" {
		url = c.SrcURL
	}
	if url == "" && action == protocol.ActionTelephony {
		url = strings.TrimSpace(c.SelectionText)
	}
	if url == "" {
		url = c.PageURL
	}
	if url == "" {
		return protocol.Share{}, faults.Newf(faults.Malformed, "menu click", "nothing to send for %q", c.MenuItemID)
	}
	return protocol.Share{Device: device, URL: url, Action: action}, nil
}
