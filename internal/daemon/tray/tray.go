package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"

	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/models"
)

var (
	state      DaemonState
	dispatcher Dispatcher
	activeTab  func() *projector.Tab
	onStart    func()
	onExit     func()

	statusItem    *systray.MenuItem
	noDevicesItem *systray.MenuItem
	reconnectItem *systray.MenuItem
	quitItem      *systray.MenuItem

	// Pre-allocated device slots, each with action sub-slots
	deviceSlots [maxDeviceSlots]*systray.MenuItem
	actionSlots [maxDeviceSlots][maxActionSlots]*systray.MenuItem

	// Maps slots → menu item ids for click dispatch
	slotMu      sync.RWMutex
	ready       bool
	deviceIDs   [maxDeviceSlots]string
	actionIDs   [maxDeviceSlots][maxActionSlots]string
	menuItems   []projector.MenuItem
	currentIcon []byte
)

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStartFn is called when the tray is ready (start the bridge here).
// onExitFn is called when the tray exits (cleanup here).
func Run(s DaemonState, d Dispatcher, tab func() *projector.Tab, onStartFn, onExitFn func()) {
	state = s
	dispatcher = d
	activeTab = tab
	onStart = onStartFn
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

func onReady() {
	systray.SetTemplateIcon(iconData, iconData)
	systray.SetTooltip("devicelink")

	header := systray.AddMenuItem("devicelink", "")
	header.Disable()

	statusItem = systray.AddMenuItem("Starting...", "")
	statusItem.Disable()

	systray.AddSeparator()

	for i := 0; i < maxDeviceSlots; i++ {
		deviceSlots[i] = systray.AddMenuItem("", "")
		watchClicks(deviceSlots[i], deviceSlotClicked(i))
		for j := 0; j < maxActionSlots; j++ {
			actionSlots[i][j] = deviceSlots[i].AddSubMenuItem("", "")
			watchClicks(actionSlots[i][j], actionSlotClicked(i, j))
			actionSlots[i][j].Hide()
		}
		deviceSlots[i].Hide()
	}

	noDevicesItem = systray.AddMenuItem("No devices", "")
	noDevicesItem.Disable()

	systray.AddSeparator()

	reconnectItem = systray.AddMenuItem("Reconnect", "Reconnect to the companion application")
	quitItem = systray.AddMenuItem("Quit", "Shut down the devicelink daemon")
	watchClicks(reconnectItem, func() {
		if state == nil {
			return
		}
		if err := state.Reconnect(); err != nil {
			log.Printf("[tray] Reconnect failed: %v", err)
		}
	})
	watchClicks(quitItem, func() {
		if state != nil {
			state.RequestShutdown()
		}
	})

	slotMu.Lock()
	ready = true
	icon := currentIcon
	slotMu.Unlock()
	if icon != nil {
		setIcon(icon)
	}

	if onStart != nil {
		onStart()
	}
	render()
}

func onQuit() {
	if onExit != nil {
		onExit()
	}
}

func watchClicks(item *systray.MenuItem, fn func()) {
	go func() {
		for range item.ClickedCh {
			fn()
		}
	}()
}

func deviceSlotClicked(i int) func() {
	return func() {
		slotMu.RLock()
		id := deviceIDs[i]
		slotMu.RUnlock()
		dispatch(id)
	}
}

func actionSlotClicked(i, j int) func() {
	return func() {
		slotMu.RLock()
		id := actionIDs[i][j]
		slotMu.RUnlock()
		dispatch(id)
	}
}

// dispatch sends a click on id for the active tab's page.
func dispatch(id string) {
	if id == "" || dispatcher == nil {
		return
	}
	click := projector.Click{MenuItemID: id}
	if activeTab != nil {
		if tab := activeTab(); tab != nil {
			click.PageURL = tab.URL
		}
	}
	if err := dispatcher.HandleMenuClick(click, models.TrayOrigin); err != nil {
		log.Printf("[tray] Click on %s not sent: %v", id, err)
	}
}

// render redraws the slots, status line and tooltip from the stored menu.
func render() {
	slotMu.Lock()
	if !ready {
		slotMu.Unlock()
		return
	}
	slots := Layout(menuItems)
	for i := 0; i < maxDeviceSlots; i++ {
		deviceIDs[i] = ""
		for j := 0; j < maxActionSlots; j++ {
			actionIDs[i][j] = ""
		}
		if i >= len(slots) {
			deviceSlots[i].Hide()
			continue
		}
		deviceSlots[i].SetTitle(slots[i].Title)
		deviceIDs[i] = slots[i].ItemID
		for j := 0; j < maxActionSlots; j++ {
			if j < len(slots[i].Children) {
				actionSlots[i][j].SetTitle(slots[i].Children[j].Title)
				actionIDs[i][j] = slots[i].Children[j].ItemID
				actionSlots[i][j].Show()
			} else {
				actionSlots[i][j].Hide()
			}
		}
		deviceSlots[i].Show()
	}
	if len(slots) == 0 {
		noDevicesItem.Show()
	} else {
		noDevicesItem.Hide()
	}
	slotMu.Unlock()

	if state != nil {
		st := state.Status()
		statusItem.SetTitle(formatStatusTitle(st))
		systray.SetTooltip(formatTooltip(st))
	}
}
