package supervisor

import (
	"context"

	"github.com/devicelink/devicelink/internal/protocol"
)

// Channel is one live connection to the companion application.
type Channel interface {
	// Send writes one message.
	Send(msg protocol.Message) error
	// Receive blocks until the next message arrives. A faults.Malformed
	// error leaves the channel usable; any other error means it is gone.
	Receive() (protocol.Message, error)
	// Close tears the channel down. Receive returns an error afterwards.
	Close() error
}

// Dialer opens channels to the companion endpoint.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Channel, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Channel, error) {
	return f(ctx)
}

// State is the lifecycle state of the channel handle.
type State int

// Handle states.
const (
	StateAbsent State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// EventKind says what an Event reports.
type EventKind int

// Event kinds, emitted in the order they happen.
const (
	EventOpened  EventKind = iota + 1 // a channel opened
	EventMessage                      // the companion sent Message
	EventLost                         // the channel dropped; Err says why
)

// Event is something the relay has to react to. Opened and Message events
// carry the generation of the channel they came from; a Message whose
// channel has since been lost is stale.
type Event struct {
	Kind       EventKind
	Message    protocol.Message
	Err        error
	Generation int
}
