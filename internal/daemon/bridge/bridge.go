// Package bridge assembles the daemon's components around one roster and
// one companion channel.
package bridge

import (
	"context"
	"errors"
	"log"
	"os"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/devicelink/devicelink/internal/clock"
	"github.com/devicelink/devicelink/internal/daemon/host"
	"github.com/devicelink/devicelink/internal/daemon/hub"
	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/daemon/relay"
	"github.com/devicelink/devicelink/internal/daemon/roster"
	"github.com/devicelink/devicelink/internal/daemon/supervisor"
	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

const shutdownTimeout = 2 * time.Second

// Options configures a Bridge.
type Options struct {
	Settings *models.Settings
	// Dialer overrides the companion process described by Settings.
	Dialer supervisor.Dialer
	Clock  clock.Clock
	// OnShutdown is called by RequestShutdown. The default sends SIGINT to
	// the current process.
	OnShutdown func()
}

// Bridge owns the roster, supervisor, projector, relay and UI hub.
type Bridge struct {
	Roster     *roster.Roster
	Supervisor *supervisor.Supervisor
	Projector  *projector.Projector
	Relay      *relay.Relay
	Hub        *hub.Hub

	dialer     supervisor.Dialer
	onShutdown func()

	mu       sync.RWMutex
	settings *models.Settings
	uiAddr   string
	cancel   context.CancelFunc
	stopped  chan struct{}
}

// New wires the components. Nothing runs until Start.
func New(opts Options) (*Bridge, error) {
	settings := opts.Settings
	if settings == nil {
		settings = models.NewSettings()
	}
	settings.Normalize()

	b := &Bridge{
		Roster:     roster.New(),
		dialer:     opts.Dialer,
		onShutdown: opts.OnShutdown,
		settings:   settings,
	}

	b.Hub = hub.New(b.Status)
	p, err := projector.New(b.Roster, nil, settings.UI.InternalPages, b.Hub)
	if err != nil {
		return nil, err
	}
	b.Projector = p

	b.Supervisor = supervisor.New(supervisor.Options{
		Dialer:    supervisor.DialerFunc(b.dial),
		Roster:    b.Roster,
		Clock:     opts.Clock,
		BaseDelay: settings.Reconnect.BaseDelay,
		MaxDelay:  settings.Reconnect.MaxDelay,
	})

	r, err := relay.New(b.Supervisor, b.Roster, p, settings.UI.TrustedOrigins)
	if err != nil {
		return nil, err
	}
	r.AddBroadcaster(b.Hub)
	b.Relay = r
	b.Hub.SetHandler(r)

	return b, nil
}

// dial opens the companion described by the current settings.
func (b *Bridge) dial(ctx context.Context) (supervisor.Channel, error) {
	if b.dialer != nil {
		return b.dialer.Dial(ctx)
	}
	companion := b.Settings().Companion
	d := &host.Dialer{
		HostName: companion.Host,
		Command:  companion.Command,
		Origin:   companion.Origin,
	}
	return d.Dial(ctx)
}

// Start runs the supervisor and relay, starts the UI hub and opens the
// companion channel. A failed first connect is retried with backoff.
func (b *Bridge) Start(ctx context.Context) error {
	addr, err := b.Hub.Start(b.Settings().UI.Listen)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	b.mu.Lock()
	b.uiAddr = addr
	b.cancel = cancel
	b.stopped = stopped
	b.mu.Unlock()

	go func() {
		defer close(stopped)
		if err := b.Supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[bridge] Supervisor stopped: %v", err)
		}
	}()
	go b.Relay.Run(ctx, b.Supervisor.Events())

	if err := b.Supervisor.Connect(); err != nil {
		log.Printf("[bridge] Companion not available yet: %v", err)
	}
	return nil
}

// Stop disconnects the UI surfaces and closes the companion channel.
func (b *Bridge) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := b.Hub.Shutdown(ctx); err != nil {
		log.Printf("[bridge] Warning: hub shutdown: %v", err)
	}

	b.mu.RLock()
	stop, stopped := b.cancel, b.stopped
	b.mu.RUnlock()
	if stop == nil {
		return
	}
	stop()
	select {
	case <-stopped:
	case <-ctx.Done():
		log.Println("[bridge] Warning: supervisor did not stop in time")
	}
}

// Settings returns the settings currently applied.
func (b *Bridge) Settings() *models.Settings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

// UIAddr returns the address the UI hub listens on.
func (b *Bridge) UIAddr() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.uiAddr
}

// Status combines the channel state and the roster.
func (b *Bridge) Status() models.BridgeStatus {
	b.mu.RLock()
	started := b.cancel != nil
	b.mu.RUnlock()

	// The supervisor answers only once its loop runs.
	st := supervisor.Status{State: supervisor.StateAbsent}
	if started {
		st = b.Supervisor.Status()
	}
	snap := b.Roster.Snapshot()
	return models.BridgeStatus{
		State:     st.State.String(),
		Connected: snap.Connected,
		Devices:   snap.Devices,
		Attempts:  st.Attempts,
		NextDelay: st.Delay.String(),
		Since:     st.Since,
		Clients:   b.Hub.ClientCount(),
	}
}

// Share sends a share command on behalf of the CLI.
func (b *Bridge) Share(share protocol.Share) error {
	return b.Relay.HandleOutbound(share, models.CLIOrigin)
}

// Reconnect drops and reopens the companion channel.
func (b *Bridge) Reconnect() error {
	return b.Supervisor.Reconnect()
}

// Subscribe returns a channel of roster snapshots.
func (b *Bridge) Subscribe() (string, <-chan roster.Snapshot) {
	return b.Roster.Subscribe()
}

// Unsubscribe ends a roster subscription.
func (b *Bridge) Unsubscribe(id string) {
	b.Roster.Unsubscribe(id)
}

// RequestShutdown asks the daemon to exit.
func (b *Bridge) RequestShutdown() {
	if b.onShutdown != nil {
		b.onShutdown()
		return
	}
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return
	}
	_ = p.Signal(syscall.SIGINT)
}

// Apply switches to new settings. Trusted origins and internal pages take
// effect at once; a different companion endpoint reopens the channel.
// Listen address and backoff changes need a restart.
func (b *Bridge) Apply(settings *models.Settings) error {
	settings.Normalize()

	// Check both pattern lists first so a bad one changes nothing.
	if _, err := relay.CompileOrigins(settings.UI.TrustedOrigins); err != nil {
		return err
	}
	if _, err := projector.CompileInternalPages(settings.UI.InternalPages); err != nil {
		return err
	}
	if err := b.Relay.SetTrustedOrigins(settings.UI.TrustedOrigins); err != nil {
		return err
	}
	if err := b.Projector.SetInternalPages(settings.UI.InternalPages); err != nil {
		return err
	}

	b.mu.Lock()
	old := b.settings
	b.settings = settings
	b.mu.Unlock()

	if old.UI.Listen != settings.UI.Listen || old.Reconnect != settings.Reconnect {
		log.Println("[bridge] Listen address and reconnect settings apply after a restart")
	}
	if !reflect.DeepEqual(old.Companion, settings.Companion) {
		log.Printf("[bridge] Companion changed to %s, reconnecting", settings.Companion.Host)
		if err := b.Supervisor.Reconnect(); err != nil {
			log.Printf("[bridge] Warning: reconnect failed: %v", err)
		}
	}

	if err := b.Projector.Refresh(); err != nil && !faults.Is(err, faults.Inspection) {
		log.Printf("[bridge] Warning: refresh after settings change: %v", err)
	}
	return nil
}
