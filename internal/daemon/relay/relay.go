// Package relay moves messages between the companion channel and the UI
// surfaces, keeping the roster and projected UI state in step.
package relay

import (
	"context"
	"log"
	"sync"

	"github.com/gobwas/glob"

	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/daemon/roster"
	"github.com/devicelink/devicelink/internal/daemon/supervisor"
	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/protocol"
)

// Sender delivers messages to the companion.
type Sender interface {
	Send(msg protocol.Message) error
}

// Broadcaster fans a message out to every connected UI surface.
type Broadcaster interface {
	Broadcast(msg protocol.Message)
}

// Relay is the message router. Inbound traffic arrives through Run or
// HandleInbound; outbound traffic through the Handle* methods, which check
// the sender's origin first.
type Relay struct {
	sender    Sender
	roster    *roster.Roster
	projector *projector.Projector

	mu           sync.RWMutex
	trusted      []glob.Glob
	broadcasters []Broadcaster

	// Channel whose messages are current; owned by the HandleEvent caller.
	live       bool
	generation int
}

// New creates a Relay. trustedOrigins are glob patterns of sender origins
// allowed to issue outbound commands.
func New(sender Sender, r *roster.Roster, p *projector.Projector, trustedOrigins []string) (*Relay, error) {
	rl := &Relay{
		sender:    sender,
		roster:    r,
		projector: p,
	}
	if err := rl.SetTrustedOrigins(trustedOrigins); err != nil {
		return nil, err
	}
	return rl, nil
}

// AddBroadcaster registers a UI fan-out.
func (r *Relay) AddBroadcaster(b Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasters = append(r.broadcasters, b)
}

// CompileOrigins compiles trusted-origin patterns, failing on the first
// bad one.
func CompileOrigins(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, faults.Newf(faults.Malformed, "trusted origins", "pattern %q: %v", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// SetTrustedOrigins replaces the trusted origin patterns.
func (r *Relay) SetTrustedOrigins(patterns []string) error {
	compiled, err := CompileOrigins(patterns)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.trusted = compiled
	r.mu.Unlock()
	return nil
}

// Trusted reports whether origin may send outbound commands. An empty
// origin is never trusted.
func (r *Relay) Trusted(origin string) bool {
	if origin == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.trusted {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

// Run handles supervisor events in arrival order until ctx is cancelled or
// events is closed.
func (r *Relay) Run(ctx context.Context, events <-chan supervisor.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.HandleEvent(ev)
		}
	}
}

// HandleEvent reacts to one supervisor event. Messages still queued from a
// channel that has been lost are dropped, so they cannot repopulate the
// roster after the disconnect reset it.
func (r *Relay) HandleEvent(ev supervisor.Event) {
	switch ev.Kind {
	case supervisor.EventOpened:
		r.live = true
		r.generation = ev.Generation
		r.projector.SetError(false)
	case supervisor.EventLost:
		r.live = false
		r.roster.Reset()
		r.projector.SetError(true)
		r.broadcast(protocol.Connected{Value: false})
		r.refresh()
	case supervisor.EventMessage:
		if !r.live || ev.Generation != r.generation {
			log.Printf("[relay] Dropping %s message from a closed channel", messageType(ev.Message))
			return
		}
		_ = r.HandleInbound(ev.Message)
	}
}

func messageType(msg protocol.Message) string {
	if msg == nil {
		return "empty"
	}
	return msg.Type()
}

// HandleInbound applies a companion message to the roster, refreshes the
// projected UI state and broadcasts the message unchanged. A device list
// the roster rejects is still broadcast.
func (r *Relay) HandleInbound(msg protocol.Message) error {
	var err error
	switch m := msg.(type) {
	case protocol.Connected:
		if r.roster.SetConnected(m.Value) {
			if serr := r.sender.Send(protocol.DevicesRequest{}); serr != nil {
				log.Printf("[relay] Warning: device list request not sent: %v", serr)
			}
		}
	case protocol.Devices:
		if err = r.roster.Replace(m.List); err != nil {
			log.Printf("[relay] Warning: ignoring device list: %v", err)
		}
	case nil:
		return faults.Newf(faults.Malformed, "inbound", "nil message")
	}

	r.refresh()
	r.broadcast(msg)
	return err
}

// HandleOutbound forwards msg to the companion if origin is trusted.
func (r *Relay) HandleOutbound(msg protocol.Message, origin string) error {
	if !r.Trusted(origin) {
		return faults.Newf(faults.Untrusted, "outbound", "origin %q", origin)
	}
	return r.sender.Send(msg)
}

// HandleMenuClick turns a clicked context-menu entry into a share command
// and forwards it.
func (r *Relay) HandleMenuClick(click projector.Click, origin string) error {
	if !r.Trusted(origin) {
		return faults.Newf(faults.Untrusted, "menu click", "origin %q", origin)
	}
	share, err := projector.InterpretClick(click)
	if err != nil {
		log.Printf("[relay] Warning: %v", err)
		return err
	}
	return r.HandleOutbound(share, origin)
}

// HandleTab records the active tab reported by a surface and re-projects.
// A nil tab means the surface could not inspect it.
func (r *Relay) HandleTab(tab *projector.Tab, origin string) error {
	if !r.Trusted(origin) {
		return faults.Newf(faults.Untrusted, "tab", "origin %q", origin)
	}
	r.projector.SetActiveTab(tab)
	return r.projector.Refresh()
}

func (r *Relay) refresh() {
	if err := r.projector.Refresh(); err != nil && !faults.Is(err, faults.Inspection) {
		log.Printf("[relay] Warning: refresh failed: %v", err)
	}
}

func (r *Relay) broadcast(msg protocol.Message) {
	r.mu.RLock()
	targets := make([]Broadcaster, len(r.broadcasters))
	copy(targets, r.broadcasters)
	r.mu.RUnlock()

	for _, b := range targets {
		b.Broadcast(msg)
	}
}
