package tray

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/models"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		name     string
		items    []projector.MenuItem
		expected []Slot
	}{
		{
			name:     "empty",
			items:    nil,
			expected: nil,
		},
		{
			name: "single flat entry",
			items: []projector.MenuItem{
				{ID: "a:share", Title: "Share via Phone"},
			},
			expected: []Slot{{Title: "Share via Phone", ItemID: "a:share"}},
		},
		{
			name: "single device submenu",
			items: []projector.MenuItem{
				{ID: "a", Title: "Phone"},
				{ID: "a:share", ParentID: "a", Title: "Share"},
				{ID: "a:telephony", ParentID: "a", Title: "Send SMS"},
			},
			expected: []Slot{{
				Title: "Phone",
				Children: []Slot{
					{Title: "Share", ItemID: "a:share"},
					{Title: "Send SMS", ItemID: "a:telephony"},
				},
			}},
		},
		{
			name: "group root is folded away",
			items: []projector.MenuItem{
				{ID: projector.GroupID, Title: "Send To Mobile Device"},
				{ID: "a:share", ParentID: projector.GroupID, Title: "Share via Phone"},
				{ID: "b", ParentID: projector.GroupID, Title: "Tablet"},
				{ID: "b:share", ParentID: "b", Title: "Share"},
				{ID: "b:telephony", ParentID: "b", Title: "Send SMS"},
			},
			expected: []Slot{
				{Title: "Share via Phone", ItemID: "a:share"},
				{Title: "Tablet", Children: []Slot{
					{Title: "Share", ItemID: "b:share"},
					{Title: "Send SMS", ItemID: "b:telephony"},
				}},
			},
		},
		{
			name: "orphan child ignored",
			items: []projector.MenuItem{
				{ID: "x:share", ParentID: "x", Title: "Share"},
			},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Layout(tt.items); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Layout() = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestLayoutTruncates(t *testing.T) {
	var items []projector.MenuItem
	for i := 0; i < maxDeviceSlots+3; i++ {
		id := fmt.Sprintf("d%d", i)
		items = append(items, projector.MenuItem{ID: id + ":share", ParentID: projector.GroupID, Title: id})
	}
	if got := len(Layout(items)); got != maxDeviceSlots {
		t.Errorf("len(Layout()) = %d, want %d", got, maxDeviceSlots)
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  models.BridgeStatus
		title   string
		tooltip string
	}{
		{
			name:    "connected",
			status:  models.BridgeStatus{State: "open", Connected: true, Devices: make([]models.Device, 2)},
			title:   "Connected: 2 devices",
			tooltip: "devicelink: 2 devices",
		},
		{
			name:    "one device",
			status:  models.BridgeStatus{State: "open", Connected: true, Devices: make([]models.Device, 1)},
			title:   "Connected: 1 device",
			tooltip: "devicelink: 1 device",
		},
		{
			name:    "companion offline",
			status:  models.BridgeStatus{State: "open"},
			title:   "Companion offline",
			tooltip: "devicelink: companion offline",
		},
		{
			name:    "backing off",
			status:  models.BridgeStatus{State: "absent", Attempts: 3, NextDelay: "800ms"},
			title:   "Reconnecting in 800ms (attempt 3)",
			tooltip: "devicelink: companion unavailable",
		},
		{
			name:    "never connected",
			status:  models.BridgeStatus{State: "absent"},
			title:   "Companion unavailable",
			tooltip: "devicelink: companion unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatStatusTitle(tt.status); got != tt.title {
				t.Errorf("formatStatusTitle() = %q, want %q", got, tt.title)
			}
			if got := formatTooltip(tt.status); got != tt.tooltip {
				t.Errorf("formatTooltip() = %q, want %q", got, tt.tooltip)
			}
		})
	}
}
