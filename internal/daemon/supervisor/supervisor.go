// Package supervisor owns the channel to the companion application: it
// opens it, watches for loss, and reconnects with exponential backoff.
package supervisor

import (
	"context"
	"errors"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/devicelink/devicelink/internal/clock"
	"github.com/devicelink/devicelink/internal/daemon/roster"
	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/protocol"
)

// DefaultBaseDelay is the first reconnect delay.
const DefaultBaseDelay = 100 * time.Millisecond

// benignSendErrors are the two errors a send can hit when it races a
// disconnect. They are returned but not logged.
var benignSendErrors = []error{os.ErrClosed, syscall.EPIPE}

// Options configures a Supervisor.
type Options struct {
	Dialer Dialer
	Roster *roster.Roster
	Clock  clock.Clock

	BaseDelay time.Duration // default DefaultBaseDelay
	MaxDelay  time.Duration // 0 = uncapped
}

// Status is a snapshot of the supervisor for the control API.
type Status struct {
	State    State
	Delay    time.Duration // delay before the next reconnect attempt
	Attempts int           // disconnects since the channel was last stable
	Since    time.Time     // when State was entered
}

// Supervisor runs a single event loop that owns the channel handle and both
// timers. Public methods hand work to the loop and wait for it.
type Supervisor struct {
	dialer Dialer
	roster *roster.Roster
	clock  clock.Clock
	base   time.Duration
	max    time.Duration

	requests chan func()
	events   chan Event
	stopped  chan struct{}

	// Owned by the loop goroutine.
	ctx        context.Context
	state      State
	since      time.Time
	handle     Channel
	generation int
	delay      time.Duration
	attempts   int
	reconnect  clock.Timer
	stabilize  clock.Timer
	pending    []Event
}

// New creates a Supervisor. Call Run before anything else.
func New(opts Options) *Supervisor {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Roster == nil {
		opts.Roster = roster.New()
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	return &Supervisor{
		dialer:   opts.Dialer,
		roster:   opts.Roster,
		clock:    opts.Clock,
		base:     opts.BaseDelay,
		max:      opts.MaxDelay,
		requests: make(chan func()),
		events:   make(chan Event, 16),
		stopped:  make(chan struct{}),
		state:    StateAbsent,
		since:    opts.Clock.Now(),
		delay:    opts.BaseDelay,
	}
}

// Events returns the stream of opened/message/lost events. It is closed
// when Run returns.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// Run processes work until ctx is cancelled, then closes the channel and
// stops both timers.
func (s *Supervisor) Run(ctx context.Context) error {
	s.ctx = ctx
	defer close(s.events)
	defer close(s.stopped)

	for {
		var out chan<- Event
		var head Event
		if len(s.pending) > 0 {
			out = s.events
			head = s.pending[0]
		}

		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case fn := <-s.requests:
			fn()
		case out <- head:
			s.pending = s.pending[1:]
		}
	}
}

// do runs fn on the loop and waits for it.
func (s *Supervisor) do(fn func() error) error {
	done := make(chan error, 1)
	select {
	case s.requests <- func() { done <- fn() }:
	case <-s.stopped:
		return faults.Newf(faults.NotConnected, "supervisor", "stopped")
	}
	return <-done
}

// post queues fn on the loop without waiting for it to run.
func (s *Supervisor) post(fn func()) {
	select {
	case s.requests <- fn:
	case <-s.stopped:
	}
}

// Connect opens the channel unless one is already open or opening.
func (s *Supervisor) Connect() error {
	return s.do(s.connect)
}

// Reconnect drops the current channel, if any, and connects again right
// away with the backoff reset.
func (s *Supervisor) Reconnect() error {
	return s.do(func() error {
		if s.handle != nil {
			s.closeHandle()
			s.roster.Reset()
			s.emit(Event{Kind: EventLost, Err: faults.Newf(faults.Disconnected, "reconnect", "requested")})
		}
		s.stopTimers()
		s.setState(StateAbsent)
		s.delay = s.base
		s.attempts = 0
		return s.connect()
	})
}

// Send forwards msg to the companion. Without an open channel, or for a
// message the companion does not accept, the message is dropped.
func (s *Supervisor) Send(msg protocol.Message) error {
	return s.do(func() error { return s.send(msg) })
}

// Status returns the current handle state and backoff.
func (s *Supervisor) Status() Status {
	var st Status
	_ = s.do(func() error {
		st = Status{State: s.state, Delay: s.delay, Attempts: s.attempts, Since: s.since}
		return nil
	})
	return st
}

func (s *Supervisor) connect() error {
	if s.state == StateOpen || s.state == StateConnecting {
		return nil
	}
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}

	s.setState(StateConnecting)
	ch, err := s.dialer.Dial(s.ctx)
	if err != nil {
		ferr := faults.New(faults.Transport, "connect", err)
		log.Printf("[supervisor] Failed to open companion channel: %v", err)
		s.lost(ferr)
		return ferr
	}

	s.generation++
	s.handle = ch
	s.setState(StateOpen)
	log.Printf("[supervisor] Companion channel open (next backoff %v)", s.delay)
	s.emit(Event{Kind: EventOpened, Generation: s.generation})

	gen := s.generation
	s.stabilize = s.clock.AfterFunc(s.delay*9/10, func() {
		s.post(func() { s.stabilized(gen) })
	})
	go s.readLoop(gen, ch)

	_ = s.send(protocol.DevicesRequest{})
	return nil
}

func (s *Supervisor) stabilized(gen int) {
	if gen != s.generation || s.state != StateOpen {
		return
	}
	s.stabilize = nil
	if s.delay != s.base {
		log.Printf("[supervisor] Channel stable, backoff reset to %v", s.base)
	}
	s.delay = s.base
	s.attempts = 0
}

func (s *Supervisor) readLoop(gen int, ch Channel) {
	for {
		msg, err := ch.Receive()
		if err != nil {
			if faults.Is(err, faults.Malformed) {
				log.Printf("[supervisor] Warning: dropping malformed message: %v", err)
				continue
			}
			s.post(func() { s.channelLost(gen, err) })
			return
		}
		s.post(func() {
			if gen == s.generation {
				s.emit(Event{Kind: EventMessage, Message: msg, Generation: gen})
			}
		})
	}
}

func (s *Supervisor) channelLost(gen int, err error) {
	if gen != s.generation || s.handle == nil {
		return
	}
	log.Printf("[supervisor] Companion channel lost: %v", err)
	s.closeHandle()
	s.lost(faults.New(faults.Disconnected, "receive", err))
}

// lost runs the disconnect sequence: reset the roster, tell the relay,
// clear both timers, schedule one reconnect and double the delay.
func (s *Supervisor) lost(err error) {
	s.setState(StateAbsent)
	s.roster.Reset()
	s.emit(Event{Kind: EventLost, Err: err})
	s.stopTimers()

	s.attempts++
	delay := s.delay
	s.reconnect = s.clock.AfterFunc(delay, func() {
		s.post(func() {
			s.reconnect = nil
			_ = s.connect()
		})
	})
	log.Printf("[supervisor] Reconnecting in %v (attempt %d)", delay, s.attempts)

	s.delay *= 2
	if s.max > 0 && s.delay > s.max {
		s.delay = s.max
	}
}

func (s *Supervisor) send(msg protocol.Message) error {
	if msg == nil || !protocol.Known(msg) {
		err := faults.Newf(faults.Malformed, "send", "unrecognized message %T", msg)
		log.Printf("[supervisor] Warning: %v", err)
		return err
	}
	if s.state != StateOpen || s.handle == nil {
		err := faults.Newf(faults.NotConnected, "send", "dropping %s message", msg.Type())
		log.Printf("[supervisor] Warning: %v", err)
		return err
	}
	if err := s.handle.Send(msg); err != nil {
		if !isBenign(err) {
			log.Printf("[supervisor] Failed to send %s message: %v", msg.Type(), err)
		}
		return faults.New(faults.Transport, "send", err)
	}
	return nil
}

func (s *Supervisor) closeHandle() {
	if s.handle == nil {
		return
	}
	s.setState(StateClosing)
	s.generation++
	if err := s.handle.Close(); err != nil && !isBenign(err) {
		log.Printf("[supervisor] Warning: close failed: %v", err)
	}
	s.handle = nil
}

func (s *Supervisor) stopTimers() {
	if s.stabilize != nil {
		s.stabilize.Stop()
		s.stabilize = nil
	}
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
}

func (s *Supervisor) shutdown() {
	s.stopTimers()
	s.closeHandle()
	s.setState(StateAbsent)
	s.pending = nil
}

func (s *Supervisor) setState(state State) {
	if s.state != state {
		s.state = state
		s.since = s.clock.Now()
	}
}

func (s *Supervisor) emit(ev Event) {
	s.pending = append(s.pending, ev)
}

func isBenign(err error) bool {
	for _, b := range benignSendErrors {
		if errors.Is(err, b) {
			return true
		}
	}
	return false
}
