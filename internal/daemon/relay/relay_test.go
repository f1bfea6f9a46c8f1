package relay

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/devicelink/devicelink/internal/clock"
	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/daemon/roster"
	"github.com/devicelink/devicelink/internal/daemon/supervisor"
	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []protocol.Message
	err  error
}

func (f *fakeSender) Send(msg protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeSender) messages() []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Message(nil), f.sent...)
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (f *fakeBroadcaster) Broadcast(msg protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeBroadcaster) messages() []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Message(nil), f.msgs...)
}

// nopSurface records only the badge.
type nopSurface struct {
	mu    sync.Mutex
	badge projector.Badge
}

func (s *nopSurface) SetEnabled(int, bool) error      { return nil }
func (s *nopSurface) DisableAll() error               { return nil }
func (s *nopSurface) RemoveAll() error                { return nil }
func (s *nopSurface) Create(projector.MenuItem) error { return nil }
func (s *nopSurface) SetBadge(b projector.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badge = b
	return nil
}

const (
	popup     = models.DefaultPopupOrigin
	stranger  = "https://evil.example"
	cliOrigin = models.CLIOrigin
)

type harness struct {
	relay       *Relay
	sender      *fakeSender
	broadcaster *fakeBroadcaster
	roster      *roster.Roster
	projector   *projector.Projector
	surface     *nopSurface
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sender:      &fakeSender{},
		broadcaster: &fakeBroadcaster{},
		roster:      roster.New(),
		surface:     &nopSurface{},
	}
	p, err := projector.New(h.roster, nil, models.DefaultInternalPages(), h.surface)
	if err != nil {
		t.Fatal(err)
	}
	h.projector = p
	r, err := New(h.sender, h.roster, p, models.NewSettings().UI.TrustedOrigins)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.AddBroadcaster(h.broadcaster)
	h.relay = r
	return h
}

func TestUntrustedOriginNeverForwarded(t *testing.T) {
	h := newHarness(t)
	share := protocol.Share{Device: "a", URL: "https://example.org", Action: protocol.ActionShare}

	for _, origin := range []string{"", stranger, "chrome-extension-evil", "devicelink-cli://remote"} {
		if err := h.relay.HandleOutbound(share, origin); !faults.Is(err, faults.Untrusted) {
			t.Errorf("HandleOutbound(%q) error = %v, want untrusted", origin, err)
		}
		if err := h.relay.HandleOutbound(protocol.DevicesRequest{}, origin); !faults.Is(err, faults.Untrusted) {
			t.Errorf("HandleOutbound(%q) error = %v, want untrusted", origin, err)
		}
		click := projector.Click{MenuItemID: "a:share", PageURL: "https://example.org"}
		if err := h.relay.HandleMenuClick(click, origin); !faults.Is(err, faults.Untrusted) {
			t.Errorf("HandleMenuClick(%q) error = %v, want untrusted", origin, err)
		}
		if err := h.relay.HandleTab(&projector.Tab{ID: 1, URL: "https://example.org"}, origin); !faults.Is(err, faults.Untrusted) {
			t.Errorf("HandleTab(%q) error = %v, want untrusted", origin, err)
		}
	}

	if sent := h.sender.messages(); len(sent) != 0 {
		t.Errorf("sender got %d messages, want 0: %v", len(sent), sent)
	}
	if tab := h.projector.ActiveTab(); tab != nil {
		t.Errorf("active tab = %+v, want nil", tab)
	}
}

func TestTrustedOriginForwarded(t *testing.T) {
	h := newHarness(t)
	share := protocol.Share{Device: "a", URL: "https://example.org", Action: protocol.ActionShare}

	for _, origin := range []string{popup, cliOrigin, models.TrayOrigin} {
		if err := h.relay.HandleOutbound(share, origin); err != nil {
			t.Errorf("HandleOutbound(%q) error = %v", origin, err)
		}
	}
	if got := len(h.sender.messages()); got != 3 {
		t.Errorf("sender got %d messages, want 3", got)
	}
}

func TestOutboundSendErrorReturned(t *testing.T) {
	h := newHarness(t)
	h.sender.err = faults.Newf(faults.NotConnected, "send", "no channel")
	err := h.relay.HandleOutbound(protocol.DevicesRequest{}, popup)
	if !faults.Is(err, faults.NotConnected) {
		t.Errorf("HandleOutbound() error = %v, want not-connected", err)
	}
}

func TestConnectedTrueRequestsDevicesOnce(t *testing.T) {
	h := newHarness(t)

	if err := h.relay.HandleInbound(protocol.Connected{Value: true}); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}
	want := []protocol.Message{protocol.DevicesRequest{}}
	if got := h.sender.messages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("sent = %v, want exactly one devices request", got)
	}

	// Already connected: no second request.
	_ = h.relay.HandleInbound(protocol.Connected{Value: true})
	if got := len(h.sender.messages()); got != 1 {
		t.Errorf("sent %d messages after repeat, want 1", got)
	}

	_ = h.relay.HandleInbound(protocol.Connected{Value: false})
	_ = h.relay.HandleInbound(protocol.Connected{Value: true})
	if got := len(h.sender.messages()); got != 2 {
		t.Errorf("sent %d messages after reconnect, want 2", got)
	}

	if got := len(h.broadcaster.messages()); got != 4 {
		t.Errorf("broadcast %d messages, want 4", got)
	}
}

func TestConnectedFalseClearsDevices(t *testing.T) {
	h := newHarness(t)
	devices := []models.Device{{ID: "a", Name: "Phone", Share: true}}
	_ = h.relay.HandleInbound(protocol.Devices{List: devices})

	_ = h.relay.HandleInbound(protocol.Connected{Value: false})
	snap := h.roster.Snapshot()
	if snap.Connected || len(snap.Devices) != 0 {
		t.Errorf("roster = %+v, want disconnected and empty", snap)
	}
}

func TestDevicesReplaceRosterAndBroadcast(t *testing.T) {
	h := newHarness(t)
	h.projector.SetActiveTab(&projector.Tab{ID: 3, URL: "https://example.org"})
	devices := []models.Device{
		{ID: "a", Name: "Phone", Share: true, Telephony: true},
		{ID: "b", Name: "Tablet", Share: true},
	}
	msg := protocol.Devices{List: devices}

	if err := h.relay.HandleInbound(msg); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}

	snap := h.roster.Snapshot()
	if !snap.Connected || !reflect.DeepEqual(snap.Devices, devices) {
		t.Errorf("roster = %+v", snap)
	}
	if got := h.broadcaster.messages(); !reflect.DeepEqual(got, []protocol.Message{msg}) {
		t.Errorf("broadcast = %v", got)
	}
	if menu := h.projector.Menu(); len(menu) == 0 || menu[0].ID != projector.GroupID {
		t.Errorf("menu not rebuilt: %v", menu)
	}
}

func TestInvalidDevicesStillBroadcast(t *testing.T) {
	h := newHarness(t)
	msg := protocol.Devices{List: []models.Device{{ID: "bad:id", Name: "x"}}}

	err := h.relay.HandleInbound(msg)
	if !faults.Is(err, faults.Malformed) {
		t.Errorf("HandleInbound() error = %v, want malformed", err)
	}
	if len(h.roster.Snapshot().Devices) != 0 {
		t.Error("roster accepted invalid devices")
	}
	if got := len(h.broadcaster.messages()); got != 1 {
		t.Errorf("broadcast %d messages, want 1", got)
	}
}

func TestUnknownBroadcastOnly(t *testing.T) {
	h := newHarness(t)
	msg := protocol.Unknown{Kind: "battery", Raw: []byte(`{"type":"battery","data":42}`)}

	if err := h.relay.HandleInbound(msg); err != nil {
		t.Fatalf("HandleInbound() error = %v", err)
	}
	if got := h.broadcaster.messages(); !reflect.DeepEqual(got, []protocol.Message{msg}) {
		t.Errorf("broadcast = %v", got)
	}
	if snap := h.roster.Snapshot(); snap.Connected || len(snap.Devices) != 0 {
		t.Errorf("roster changed: %+v", snap)
	}
	if len(h.sender.messages()) != 0 {
		t.Error("unknown message caused a send")
	}
}

func TestLostEventMarksDisconnected(t *testing.T) {
	h := newHarness(t)

	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventOpened})
	if h.projector.Badge() != projector.BadgeClear {
		t.Errorf("badge after open = %+v", h.projector.Badge())
	}

	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventLost, Err: errors.New("eof")})
	if h.projector.Badge() != projector.BadgeDisconnected {
		t.Errorf("badge after loss = %+v", h.projector.Badge())
	}
	want := []protocol.Message{protocol.Connected{Value: false}}
	if got := h.broadcaster.messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("broadcast = %v, want synthetic disconnect", got)
	}
}

func TestMenuClickSendsShare(t *testing.T) {
	h := newHarness(t)

	click := projector.Click{MenuItemID: "a:telephony", PageURL: "https://example.org", SelectionText: "555 0100"}
	if err := h.relay.HandleMenuClick(click, popup); err != nil {
		t.Fatalf("HandleMenuClick() error = %v", err)
	}
	want := []protocol.Message{protocol.Share{Device: "a", URL: "555 0100", Action: protocol.ActionTelephony}}
	if got := h.sender.messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("sent = %v, want %v", got, want)
	}

	err := h.relay.HandleMenuClick(projector.Click{MenuItemID: projector.GroupID}, popup)
	if !faults.Is(err, faults.Malformed) {
		t.Errorf("HandleMenuClick(group) error = %v, want malformed", err)
	}
	if got := len(h.sender.messages()); got != 1 {
		t.Errorf("sent %d messages, want 1", got)
	}
}

func TestHandleTab(t *testing.T) {
	h := newHarness(t)

	if err := h.relay.HandleTab(&projector.Tab{ID: 5, URL: "https://example.org"}, popup); err != nil {
		t.Errorf("HandleTab() error = %v", err)
	}
	if tab := h.projector.ActiveTab(); tab == nil || tab.ID != 5 {
		t.Errorf("active tab = %+v", tab)
	}

	if err := h.relay.HandleTab(nil, popup); !faults.Is(err, faults.Inspection) {
		t.Errorf("HandleTab(nil) error = %v, want inspection", err)
	}
}

func TestSetTrustedOrigins(t *testing.T) {
	h := newHarness(t)
	if err := h.relay.SetTrustedOrigins([]string{"https://trusted.example"}); err != nil {
		t.Fatal(err)
	}
	if !h.relay.Trusted("https://trusted.example") || h.relay.Trusted(popup) {
		t.Error("trusted origins not replaced")
	}
	if err := h.relay.SetTrustedOrigins([]string{"[broken"}); !faults.Is(err, faults.Malformed) {
		t.Errorf("SetTrustedOrigins() error = %v, want malformed", err)
	}
}

func TestRunProcessesEventsInOrder(t *testing.T) {
	h := newHarness(t)
	events := make(chan supervisor.Event, 4)
	events <- supervisor.Event{Kind: supervisor.EventOpened}
	events <- supervisor.Event{Kind: supervisor.EventMessage, Message: protocol.Connected{Value: true}}
	events <- supervisor.Event{Kind: supervisor.EventMessage, Message: protocol.Devices{List: []models.Device{{ID: "a", Name: "Phone", Share: true}}}}
	close(events)

	done := make(chan struct{})
	go func() {
		h.relay.Run(context.Background(), events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after events closed")
	}

	got := h.broadcaster.messages()
	if len(got) != 2 {
		t.Fatalf("broadcast %d messages, want 2", len(got))
	}
	if _, ok := got[0].(protocol.Connected); !ok {
		t.Errorf("first broadcast = %T, want Connected", got[0])
	}
	if _, ok := got[1].(protocol.Devices); !ok {
		t.Errorf("second broadcast = %T, want Devices", got[1])
	}
	if _, ok := h.roster.Device("a"); !ok {
		t.Error("device a missing from roster")
	}
}

func TestOtherExtensionsNotTrustedByDefault(t *testing.T) {
	h := newHarness(t)
	share := protocol.Share{Device: "a", URL: "https://example.org", Action: protocol.ActionShare}

	for _, origin := range []string{"chrome-extension://other/", "moz-extension://1234/"} {
		if h.relay.Trusted(origin) {
			t.Errorf("Trusted(%q) = true", origin)
		}
		if err := h.relay.HandleOutbound(share, origin); !faults.Is(err, faults.Untrusted) {
			t.Errorf("HandleOutbound(%q) error = %v, want untrusted", origin, err)
		}
	}
	if sent := h.sender.messages(); len(sent) != 0 {
		t.Errorf("sender got %v, want nothing", sent)
	}

	// Wildcards still work once configured.
	if err := h.relay.SetTrustedOrigins([]string{"chrome-extension://*"}); err != nil {
		t.Fatal(err)
	}
	if !h.relay.Trusted("chrome-extension://other/") {
		t.Error("configured wildcard not honoured")
	}
}

func TestMessagesFromLostChannelDropped(t *testing.T) {
	h := newHarness(t)
	devices := protocol.Devices{List: []models.Device{{ID: "a", Name: "Phone", Share: true}}}

	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventOpened, Generation: 1})
	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventLost, Err: io.EOF})
	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventMessage, Message: devices, Generation: 1})

	if snap := h.roster.Snapshot(); snap.Connected || len(snap.Devices) != 0 {
		t.Errorf("roster after stale message = %+v, want empty", snap)
	}

	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventOpened, Generation: 3})
	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventMessage, Message: devices, Generation: 1})
	if snap := h.roster.Snapshot(); snap.Connected {
		t.Errorf("roster took a message from an old channel: %+v", snap)
	}
	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventMessage, Message: devices, Generation: 3})
	if snap := h.roster.Snapshot(); !snap.Connected || len(snap.Devices) != 1 {
		t.Errorf("roster after live message = %+v, want one device", snap)
	}
}

func TestLostEventResetsRoster(t *testing.T) {
	h := newHarness(t)
	if err := h.roster.Replace([]models.Device{{ID: "a", Share: true}}); err != nil {
		t.Fatal(err)
	}

	h.relay.HandleEvent(supervisor.Event{Kind: supervisor.EventLost, Err: io.EOF})
	if snap := h.roster.Snapshot(); snap.Connected || len(snap.Devices) != 0 {
		t.Errorf("roster after loss = %+v, want empty", snap)
	}
}

// scriptedChannel yields its messages, then reports EOF.
type scriptedChannel struct {
	mu       sync.Mutex
	messages []protocol.Message
}

func (c *scriptedChannel) Send(protocol.Message) error { return nil }
func (c *scriptedChannel) Close() error                { return nil }

func (c *scriptedChannel) Receive() (protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return nil, io.EOF
	}
	msg := c.messages[0]
	c.messages = c.messages[1:]
	return msg, nil
}

func TestRosterEmptyAfterCompanionExitsMidList(t *testing.T) {
	h := newHarness(t)
	ch := &scriptedChannel{messages: []protocol.Message{
		protocol.Devices{List: []models.Device{{ID: "a", Name: "A", Share: true}}},
	}}

	sup := supervisor.New(supervisor.Options{
		Dialer: supervisor.DialerFunc(func(context.Context) (supervisor.Channel, error) { return ch, nil }),
		Roster: h.roster,
		Clock:  clock.Fake(time.Unix(0, 0)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sup.Run(ctx)

	if err := sup.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Let the channel die before the relay sees any of its events.
	deadline := time.Now().Add(2 * time.Second)
	for sup.Status().State != supervisor.StateAbsent {
		if time.Now().After(deadline) {
			t.Fatal("channel never reported lost")
		}
		time.Sleep(5 * time.Millisecond)
	}

	go h.relay.Run(ctx, sup.Events())

	deadline = time.Now().Add(2 * time.Second)
	for !containsDisconnect(h.broadcaster.messages()) {
		if time.Now().After(deadline) {
			t.Fatal("relay never handled the lost event")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if snap := h.roster.Snapshot(); snap.Connected || len(snap.Devices) != 0 {
		t.Errorf("roster after disconnect = %+v, want empty", snap)
	}
	if st := sup.Status(); st.State != supervisor.StateAbsent {
		t.Errorf("state = %v, want absent", st.State)
	}
}

func containsDisconnect(msgs []protocol.Message) bool {
	for _, m := range msgs {
		if c, ok := m.(protocol.Connected); ok && !c.Value {
			return true
		}
	}
	return false
}
