// Package projector derives the toolbar state and the context-menu tree
// from the device roster and the active tab.
package projector

import (
	"log"
	"sync"

	"github.com/gobwas/glob"

	"github.com/devicelink/devicelink/internal/daemon/roster"
	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

// GroupID is the id of the non-actionable parent entry used when more than
// one device is known.
const GroupID = "contextMenuMultipleDevices"

// Menu contexts the entries appear in.
var (
	shareContexts     = []string{"page", "link", "image", "video", "audio"}
	telephonyContexts = []string{"selection", "link"}
	groupContexts     = []string{"page", "link", "image", "video", "audio", "selection"}
)

// Projector pushes toolbar and menu state to its surfaces. Rebuilds are
// serialized; each one starts from an empty menu.
type Projector struct {
	roster    *roster.Roster
	localizer Localizer
	surfaces  []Surface

	mu        sync.Mutex
	internal  []glob.Glob
	activeTab *Tab
	badge     Badge
	menu      []MenuItem
}

// New creates a Projector. internalPages are glob patterns of privileged
// page URLs the toolbar control is disabled on.
func New(r *roster.Roster, l Localizer, internalPages []string, surfaces ...Surface) (*Projector, error) {
	if l == nil {
		l = DefaultCatalog
	}
	p := &Projector{
		roster:    r,
		localizer: l,
		surfaces:  surfaces,
		badge:     BadgeClear,
	}
	if err := p.SetInternalPages(internalPages); err != nil {
		return nil, err
	}
	return p, nil
}

// AddSurface registers another surface. It receives the current state on
// the next refresh.
func (p *Projector) AddSurface(s Surface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.surfaces = append(p.surfaces, s)
}

// CompileInternalPages compiles internal-page patterns.
func CompileInternalPages(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, faults.Newf(faults.Malformed, "internal pages", "pattern %q: %v", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// SetInternalPages replaces the internal page patterns.
func (p *Projector) SetInternalPages(patterns []string) error {
	compiled, err := CompileInternalPages(patterns)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.internal = compiled
	p.mu.Unlock()
	return nil
}

// IsInternal reports whether url is a privileged browser page.
func (p *Projector) IsInternal(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isInternalLocked(url)
}

func (p *Projector) isInternalLocked(url string) bool {
	for _, g := range p.internal {
		if g.Match(url) {
			return true
		}
	}
	return false
}

// SetActiveTab records the tab UI surfaces report as focused. nil means
// the active tab is unknown.
func (p *Projector) SetActiveTab(tab *Tab) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tab == nil {
		p.activeTab = nil
		return
	}
	t := *tab
	p.activeTab = &t
}

// ActiveTab returns a copy of the active tab, or nil.
func (p *Projector) ActiveTab() *Tab {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activeTab == nil {
		return nil
	}
	t := *p.activeTab
	return &t
}

// Badge returns the badge currently shown.
func (p *Projector) Badge() Badge {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.badge
}

// Menu returns the most recently built menu.
func (p *Projector) Menu() []MenuItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]MenuItem, len(p.menu))
	copy(out, p.menu)
	return out
}

// Refresh re-projects the toolbar and menu for the active tab.
func (p *Projector) Refresh() error {
	tab := p.ActiveTab()
	err := p.ToggleAction(tab)
	p.BuildContextMenu(tab)
	return err
}

// ToggleAction disables the toolbar control on internal pages and enables
// it elsewhere. When the tab can't be inspected the control is disabled
// everywhere and a faults.Inspection error is returned.
func (p *Projector) ToggleAction(tab *Tab) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if tab == nil || tab.URL == "" {
		for _, s := range p.surfaces {
			if err := s.DisableAll(); err != nil {
				log.Printf("[projector] Warning: failed to disable toolbar: %v", err)
			}
		}
		return faults.Newf(faults.Inspection, "toggle action", "active tab unknown")
	}

	enabled := !p.isInternalLocked(tab.URL)
	for _, s := range p.surfaces {
		if err := s.SetEnabled(tab.ID, enabled); err != nil {
			log.Printf("[projector] Warning: failed to update toolbar for tab %d: %v", tab.ID, err)
		}
	}
	return nil
}

// SetError shows or clears the disconnected badge.
func (p *Projector) SetError(disconnected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	badge := BadgeClear
	if disconnected {
		badge = BadgeDisconnected
	}
	p.badge = badge
	for _, s := range p.surfaces {
		if err := s.SetBadge(badge); err != nil {
			log.Printf("[projector] Warning: failed to set badge: %v", err)
		}
	}
}

// BuildContextMenu clears every surface's menu and recreates it from the
// roster. It returns the entries it created.
func (p *Projector) BuildContextMenu(tab *Tab) []MenuItem {
	devices := p.roster.Snapshot().Devices

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.surfaces {
		if err := s.RemoveAll(); err != nil {
			log.Printf("[projector] Warning: failed to clear menu: %v", err)
		}
	}

	var items []MenuItem
	if tab != nil && tab.URL != "" && !p.isInternalLocked(tab.URL) {
		items = p.menuTree(devices)
	}

	for _, item := range items {
		for _, s := range p.surfaces {
			if err := s.Create(item); err != nil {
				log.Printf("[projector] Warning: failed to create menu item %s: %v", item.ID, err)
			}
		}
	}
	p.menu = items
	return items
}

func (p *Projector) menuTree(devices []models.Device) []MenuItem {
	switch len(devices) {
	case 0:
		return nil
	case 1:
		return p.deviceEntries(devices[0], "")
	}

	var children []MenuItem
	for _, d := range devices {
		children = append(children, p.deviceEntries(d, GroupID)...)
	}
	// No root over an empty group.
	if len(children) == 0 {
		return nil
	}
	root := MenuItem{
		ID:       GroupID,
		Title:    p.localizer.Message(MsgMultipleDevices),
		Contexts: groupContexts,
	}
	return append([]MenuItem{root}, children...)
}

// deviceEntries returns a submenu for a device with both capabilities, a
// single entry for one capability, and nothing otherwise.
func (p *Projector) deviceEntries(d models.Device, parent string) []MenuItem {
	share := MenuItem{
		ID:       MenuItemID(d.ID, protocol.ActionShare),
		Contexts: shareContexts,
	}
	sms := MenuItem{
		ID:       MenuItemID(d.ID, protocol.ActionTelephony),
		Contexts: telephonyContexts,
	}

	switch {
	case d.Share && d.Telephony:
		share.ParentID, sms.ParentID = d.ID, d.ID
		share.Title = p.localizer.Message(MsgShare)
		sms.Title = p.localizer.Message(MsgSMS)
		group := MenuItem{ID: d.ID, ParentID: parent, Title: d.Name, Contexts: groupContexts}
		return []MenuItem{group, share, sms}
	case d.Share:
		share.ParentID = parent
		share.Title = p.localizer.Message(MsgSinglePlugin, d.Name, p.localizer.Message(MsgShare))
		return []MenuItem{share}
	case d.Telephony:
		sms.ParentID = parent
		sms.Title = p.localizer.Message(MsgSinglePlugin, d.Name, p.localizer.Message(MsgSMS))
		return []MenuItem{sms}
	default:
		return nil
	}
}
