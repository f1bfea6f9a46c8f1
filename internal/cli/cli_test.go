package cli

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

func TestResolveDevice(t *testing.T) {
	devices := []models.Device{
		{ID: "a1", Name: "Pixel"},
		{ID: "b2", Name: "iPad"},
		{ID: "c3", Name: "ipad"},
		{ID: "Pixel", Name: "Old phone"},
	}

	tests := []struct {
		name    string
		arg     string
		wantID  string
		wantErr string
	}{
		{"by id", "b2", "b2", ""},
		{"id wins over name", "Pixel", "Pixel", ""},
		{"name case insensitive", "PIXEL", "a1", ""},
		{"ambiguous name", "IPAD", "", "several devices"},
		{"unknown", "watch", "", "no device"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveDevice(devices, tt.arg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("resolveDevice(%q) error = %v, want %q", tt.arg, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveDevice(%q) error = %v", tt.arg, err)
			}
			if got.ID != tt.wantID {
				t.Errorf("resolveDevice(%q) = %q, want %q", tt.arg, got.ID, tt.wantID)
			}
		})
	}
}

func TestAccepts(t *testing.T) {
	d := models.Device{ID: "x", Share: true}
	if !accepts(d, protocol.ActionShare) {
		t.Error("share-capable device rejected share")
	}
	if accepts(d, protocol.ActionTelephony) {
		t.Error("share-only device accepted telephony")
	}
	if accepts(d, protocol.Action("fax")) {
		t.Error("unknown action accepted")
	}
}

func TestAddOrigin(t *testing.T) {
	base := []string{"chrome-extension://*"}

	if _, ok := addOrigin(base, ""); ok {
		t.Error("empty origin added")
	}
	if _, ok := addOrigin(base, "chrome-extension://*"); ok {
		t.Error("duplicate origin added")
	}
	got, ok := addOrigin(base, "https://example.com")
	if !ok || len(got) != 2 || got[1] != "https://example.com" {
		t.Errorf("addOrigin() = %v, %v", got, ok)
	}
}

func TestFormatWatchLine(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		st   models.BridgeStatus
		want string
	}{
		{
			name: "connected",
			st: models.BridgeStatus{State: "open", Connected: true, Devices: []models.Device{
				{ID: "a1"}, {ID: "b2"},
			}},
			want: "15:04:05 state=open companion=online devices=2 a1 b2",
		},
		{
			name: "backing off",
			st:   models.BridgeStatus{State: "absent", Attempts: 3, NextDelay: "800ms"},
			want: "15:04:05 state=absent companion=offline devices=0 attempts=3 retry=800ms",
		},
		{
			name: "first attempt",
			st:   models.BridgeStatus{State: "connecting"},
			want: "15:04:05 state=connecting companion=offline devices=0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatWatchLine(now, tt.st); got != tt.want {
				t.Errorf("formatWatchLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatState(t *testing.T) {
	tests := []struct {
		name string
		st   models.BridgeStatus
		want string
	}{
		{"connected", models.BridgeStatus{State: "open", Connected: true}, "connected"},
		{"offline", models.BridgeStatus{State: "open"}, "companion offline"},
		{"connecting", models.BridgeStatus{State: "connecting"}, "connecting"},
		{"retrying", models.BridgeStatus{State: "absent", Attempts: 1, NextDelay: "100ms"}, "retry in 100ms, attempt 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatState(tt.st); !strings.Contains(got, tt.want) {
				t.Errorf("formatState() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestFormatSince(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	if got := formatSince(nil, now); got != "-" {
		t.Errorf("formatSince(nil) = %q, want -", got)
	}
	if got := formatSince(timestamppb.New(now.Add(-90*time.Second-300*time.Millisecond)), now); got != "1m30s ago" {
		t.Errorf("formatSince() = %q, want 1m30s ago", got)
	}
}

func TestFormatDevice(t *testing.T) {
	got := formatDevice(models.Device{ID: "a1", Name: "Pixel", Telephony: true})
	for _, want := range []string{"Pixel", "(a1)", "-share", "telephony"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatDevice() = %q, missing %q", got, want)
		}
	}

	if got := formatDevice(models.Device{ID: "bare"}); strings.Contains(got, "(") {
		t.Errorf("formatDevice() without name = %q, want no id suffix", got)
	}
}
