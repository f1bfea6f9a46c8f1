package roster

import (
	"reflect"
	"testing"

	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/models"
)

func TestReplaceKeepsOrderAndConnects(t *testing.T) {
	r := New()
	devices := []models.Device{
		{ID: "b", Name: "Second", Share: true},
		{ID: "a", Name: "First", Telephony: true},
	}
	if err := r.Replace(devices); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	snap := r.Snapshot()
	if !snap.Connected {
		t.Error("Connected = false after Replace")
	}
	if !reflect.DeepEqual(snap.Devices, devices) {
		t.Errorf("Devices = %v, want %v", snap.Devices, devices)
	}

	// Replace never merges.
	if err := r.Replace([]models.Device{{ID: "c", Name: "Third"}}); err != nil {
		t.Fatal(err)
	}
	if got := r.Snapshot().Devices; len(got) != 1 || got[0].ID != "c" {
		t.Errorf("Devices = %v, want only c", got)
	}
}

func TestReplaceRejectsInvalidIDs(t *testing.T) {
	tests := []struct {
		name    string
		devices []models.Device
	}{
		{"delimiter", []models.Device{{ID: "a:b", Name: "Bad"}}},
		{"empty", []models.Device{{ID: "", Name: "Nameless"}}},
		{"duplicate", []models.Device{{ID: "a"}, {ID: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			_ = r.Replace([]models.Device{{ID: "keep", Name: "Keep"}})

			err := r.Replace(tt.devices)
			if !faults.Is(err, faults.Malformed) {
				t.Fatalf("Replace() error = %v, want malformed", err)
			}
			if got := r.Snapshot().Devices; len(got) != 1 || got[0].ID != "keep" {
				t.Errorf("rejected list changed roster: %v", got)
			}
		})
	}
}

func TestResetAndSetConnected(t *testing.T) {
	r := New()
	_ = r.Replace([]models.Device{{ID: "a", Share: true}})

	r.Reset()
	snap := r.Snapshot()
	if snap.Connected || len(snap.Devices) != 0 || snap.Devices == nil {
		t.Errorf("after Reset = %+v, want {false []}", snap)
	}

	if !r.SetConnected(true) {
		t.Error("SetConnected(true) from offline should report newly connected")
	}
	if r.SetConnected(true) {
		t.Error("SetConnected(true) twice reported newly connected")
	}

	_ = r.Replace([]models.Device{{ID: "a", Share: true}})
	r.SetConnected(false)
	if snap := r.Snapshot(); snap.Connected || len(snap.Devices) != 0 {
		t.Errorf("after SetConnected(false) = %+v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New()
	_ = r.Replace([]models.Device{{ID: "a", Name: "A"}})
	snap := r.Snapshot()
	snap.Devices[0].Name = "changed"
	if d, _ := r.Device("a"); d.Name != "A" {
		t.Errorf("roster mutated through snapshot: %q", d.Name)
	}
}

func TestSubscribeSeesLatest(t *testing.T) {
	r := New()
	id, ch := r.Subscribe()

	_ = r.Replace([]models.Device{{ID: "a"}})
	_ = r.Replace([]models.Device{{ID: "a"}, {ID: "b"}})

	snap := <-ch
	if len(snap.Devices) != 2 {
		t.Errorf("subscriber got %d devices, want latest (2)", len(snap.Devices))
	}

	r.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}
}
