// Package roster holds the connection flag and device list reported by the
// companion application.
package roster

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/models"
)

// IDDelimiter separates the device id from the action in menu item ids, so
// it may not appear inside a device id.
const IDDelimiter = ":"

// Snapshot is a point-in-time copy of the roster.
type Snapshot struct {
	Connected bool
	Devices   []models.Device
}

// Roster is the single owned copy of the companion's state. It is created by
// the daemon and shared with the supervisor, relay, projector and control
// server.
type Roster struct {
	mu        sync.RWMutex
	connected bool
	devices   []models.Device

	subMu sync.Mutex
	subs  map[string]chan Snapshot
}

// New returns a disconnected, empty roster.
func New() *Roster {
	return &Roster{
		devices: []models.Device{},
		subs:    make(map[string]chan Snapshot),
	}
}

// Snapshot returns a copy of the current state.
func (r *Roster) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Roster) snapshotLocked() Snapshot {
	devices := make([]models.Device, len(r.devices))
	copy(devices, r.devices)
	return Snapshot{Connected: r.connected, Devices: devices}
}

// Connected reports the connection flag.
func (r *Roster) Connected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// Reset marks the roster disconnected and drops every device.
func (r *Roster) Reset() {
	r.update(func() {
		r.connected = false
		r.devices = []models.Device{}
	})
}

// SetConnected sets the connection flag. Going offline clears the devices.
// Returns true when the flag went from false to true.
func (r *Roster) SetConnected(connected bool) (newlyConnected bool) {
	r.update(func() {
		newlyConnected = connected && !r.connected
		r.connected = connected
		if !connected {
			r.devices = []models.Device{}
		}
	})
	return newlyConnected
}

// Replace swaps in a fresh device list, keeping its order, and marks the
// roster connected. The list is rejected as a whole if any id is empty,
// duplicated, or contains IDDelimiter.
func (r *Roster) Replace(devices []models.Device) error {
	if err := Validate(devices); err != nil {
		return err
	}
	list := make([]models.Device, len(devices))
	copy(list, devices)
	r.update(func() {
		r.connected = true
		r.devices = list
	})
	return nil
}

// Device looks up a device by id.
func (r *Roster) Device(id string) (models.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.ID == id {
			return d, true
		}
	}
	return models.Device{}, false
}

// Validate checks the invariants a device list must hold to be stored.
func Validate(devices []models.Device) error {
	seen := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		if d.ID == "" {
			return faults.Newf(faults.Malformed, "roster", "device %q has no id", d.Name)
		}
		if strings.Contains(d.ID, IDDelimiter) {
			return faults.Newf(faults.Malformed, "roster", "device id %q contains %q", d.ID, IDDelimiter)
		}
		if _, dup := seen[d.ID]; dup {
			return faults.Newf(faults.Malformed, "roster", "duplicate device id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// Subscribe returns a channel that receives a snapshot after every change.
// Slow subscribers only ever see the latest snapshot.
func (r *Roster) Subscribe() (string, <-chan Snapshot) {
	id := uuid.New().String()
	ch := make(chan Snapshot, 1)

	r.subMu.Lock()
	r.subs[id] = ch
	r.subMu.Unlock()

	return id, ch
}

// Unsubscribe removes and closes a subscription.
func (r *Roster) Unsubscribe(id string) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if ch, ok := r.subs[id]; ok {
		delete(r.subs, id)
		close(ch)
	}
}

// update applies fn and notifies subscribers. subMu is held across both so
// notifications go out in the order the changes were made.
func (r *Roster) update(fn func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	r.mu.Lock()
	fn()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	for _, ch := range r.subs {
		// Replace any snapshot the subscriber hasn't read yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
