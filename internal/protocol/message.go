// Package protocol defines the messages exchanged with the companion
// application and the framing used on its stdio channel.
package protocol

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/models"
)

// Message type tags.
const (
	TypeConnected = "connected"
	TypeDevices   = "devices"
	TypeShare     = "share"
)

// Action is what a share command asks the device to do with the URL.
type Action string

// Actions accepted by the companion.
const (
	ActionShare     Action = "share"
	ActionTelephony Action = "telephony"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionShare || a == ActionTelephony
}

// Message is one of Connected, Devices, DevicesRequest, Share or Unknown.
type Message interface {
	Type() string
	isMessage()
}

// Connected reports whether the companion can reach its devices.
type Connected struct {
	Value bool
}

// Devices carries the companion's current device list.
type Devices struct {
	List []models.Device
}

// DevicesRequest asks the companion for its device list.
type DevicesRequest struct{}

// Share asks a device to open a URL or dial/text a number.
type Share struct {
	Device string `json:"device"`
	URL    string `json:"url"`
	Action Action `json:"action"`
}

// Unknown is any message whose type this bridge does not interpret. It is
// forwarded opaquely.
type Unknown struct {
	Kind string
	Data json.RawMessage
	Raw  []byte
}

func (Connected) Type() string      { return TypeConnected }
func (Devices) Type() string        { return TypeDevices }
func (DevicesRequest) Type() string { return TypeDevices }
func (Share) Type() string          { return TypeShare }
func (u Unknown) Type() string      { return u.Kind }

func (Connected) isMessage()      {}
func (Devices) isMessage()        {}
func (DevicesRequest) isMessage() {}
func (Share) isMessage()          {}
func (Unknown) isMessage()        {}

// Envelope is the {type, data} shape every frame has on the wire.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses a frame into a Message. A frame without a type, or a known
// type with an unusable payload, is a faults.Malformed error.
func Decode(frame []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, faults.New(faults.Malformed, "decode", err)
	}
	if env.Type == "" {
		return nil, faults.Newf(faults.Malformed, "decode", "missing type")
	}
	return decodeEnvelope(env, frame)
}

// DecodeEnvelope is Decode for a frame whose envelope is already parsed.
func DecodeEnvelope(env Envelope) (Message, error) {
	if env.Type == "" {
		return nil, faults.Newf(faults.Malformed, "decode", "missing type")
	}
	return decodeEnvelope(env, nil)
}

func decodeEnvelope(env Envelope, frame []byte) (Message, error) {
	switch env.Type {
	case TypeConnected:
		var v bool
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, faults.Newf(faults.Malformed, "decode", "connected: %v", err)
		}
		return Connected{Value: v}, nil

	case TypeDevices:
		if isEmpty(env.Data) {
			return DevicesRequest{}, nil
		}
		var list []models.Device
		if err := json.Unmarshal(env.Data, &list); err != nil {
			return nil, faults.Newf(faults.Malformed, "decode", "devices: %v", err)
		}
		if list == nil {
			list = []models.Device{}
		}
		return Devices{List: list}, nil

	case TypeShare:
		var s Share
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, faults.Newf(faults.Malformed, "decode", "share: %v", err)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return s, nil

	default:
		raw := frame
		if raw == nil {
			var err error
			if raw, err = json.Marshal(env); err != nil {
				return nil, faults.New(faults.Malformed, "decode", err)
			}
		}
		return Unknown{Kind: env.Type, Data: env.Data, Raw: raw}, nil
	}
}

// Validate checks that a share command names a device and a known action.
func (s Share) Validate() error {
	if s.Device == "" {
		return faults.Newf(faults.Malformed, "share", "missing device")
	}
	if !s.Action.Valid() {
		return faults.Newf(faults.Malformed, "share", "unknown action %q", s.Action)
	}
	return nil
}

// Encode renders a Message as a {type, data} frame. Unknown messages are
// returned exactly as they were received.
func Encode(msg Message) ([]byte, error) {
	var data any
	switch m := msg.(type) {
	case Connected:
		data = m.Value
	case Devices:
		list := m.List
		if list == nil {
			list = []models.Device{}
		}
		data = list
	case DevicesRequest:
		return json.Marshal(Envelope{Type: TypeDevices})
	case Share:
		data = m
	case Unknown:
		if m.Raw != nil {
			return m.Raw, nil
		}
		return json.Marshal(Envelope{Type: m.Kind, Data: m.Data})
	case nil:
		return nil, faults.Newf(faults.Malformed, "encode", "nil message")
	default:
		return nil, faults.Newf(faults.Malformed, "encode", "unsupported message %T", msg)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{Type: msg.Type(), Data: raw})
}

// Known reports whether msg is a type the companion accepts from the bridge.
func Known(msg Message) bool {
	switch msg.(type) {
	case DevicesRequest, Share:
		return true
	default:
		return false
	}
}

func isEmpty(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
