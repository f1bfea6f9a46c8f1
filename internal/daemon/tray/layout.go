package tray

import (
	"fmt"

	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/models"
)

const (
	maxDeviceSlots = 8
	maxActionSlots = 2
)

// Slot is one top-level tray entry. A slot with children is a device
// submenu; otherwise ItemID is the entry that is clicked.
type Slot struct {
	Title    string
	ItemID   string
	Children []Slot
}

// Layout folds the context-menu tree into tray slots. The tray menu is
// its own root, so the multiple-devices group is dropped and its children
// become top-level slots. Entries beyond the pre-allocated slots are
// dropped.
func Layout(items []projector.MenuItem) []Slot {
	var slots []Slot
	index := make(map[string]int)

	for _, item := range items {
		if item.ID == projector.GroupID {
			continue
		}
		if item.ParentID == "" || item.ParentID == projector.GroupID {
			if len(slots) >= maxDeviceSlots {
				continue
			}
			index[item.ID] = len(slots)
			slots = append(slots, Slot{Title: item.Title, ItemID: item.ID})
			continue
		}
		i, ok := index[item.ParentID]
		if !ok || len(slots[i].Children) >= maxActionSlots {
			continue
		}
		slots[i].ItemID = ""
		slots[i].Children = append(slots[i].Children, Slot{Title: item.Title, ItemID: item.ID})
	}
	return slots
}

func formatTooltip(st models.BridgeStatus) string {
	if st.State != "open" {
		return "devicelink: companion unavailable"
	}
	if !st.Connected {
		return "devicelink: companion offline"
	}
	return fmt.Sprintf("devicelink: %s", formatDeviceCount(len(st.Devices)))
}

func formatStatusTitle(st models.BridgeStatus) string {
	switch {
	case st.State == "open" && st.Connected:
		return "Connected: " + formatDeviceCount(len(st.Devices))
	case st.State == "open":
		return "Companion offline"
	case st.Attempts > 0:
		return fmt.Sprintf("Reconnecting in %s (attempt %d)", st.NextDelay, st.Attempts)
	default:
		return "Companion unavailable"
	}
}

func formatDeviceCount(n int) string {
	if n == 1 {
		return "1 device"
	}
	return fmt.Sprintf("%d devices", n)
}
