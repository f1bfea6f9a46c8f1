// Package host launches the companion application and speaks the native
// messaging stdio protocol with it.
package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/devicelink/devicelink/internal/config"
	"github.com/devicelink/devicelink/internal/daemon/supervisor"
	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/protocol"
)

// closeGrace is how long Close waits for the companion to exit on its own
// after stdin is closed before killing it.
const closeGrace = time.Second

// Dialer starts one companion process per Dial.
type Dialer struct {
	// HostName is the native messaging host name, resolved through the
	// host manifests in ManifestDirs when Command is empty.
	HostName     string
	Command      string
	ManifestDirs []string

	// Origin is passed to the companion as its last argument, after Args.
	Origin string
	Args   []string
	Env    []string
}

// Resolve returns the executable Dial would start.
func (d *Dialer) Resolve() (string, error) {
	if d.Command != "" {
		return d.Command, nil
	}
	dirs := d.ManifestDirs
	if dirs == nil {
		dirs = config.ManifestDirs()
	}
	m, err := config.FindHostManifest(d.HostName, d.Origin, dirs)
	if err != nil {
		return "", err
	}
	return m.Path, nil
}

// Dial starts the companion and returns a channel to it.
func (d *Dialer) Dial(ctx context.Context) (supervisor.Channel, error) {
	path, err := d.Resolve()
	if err != nil {
		return nil, err
	}

	args := append(append([]string{}, d.Args...), d.Origin)
	cmd := exec.Command(path, args...)
	if d.Env != nil {
		cmd.Env = append(os.Environ(), d.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open companion stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open companion stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open companion stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start companion %s: %w", path, err)
	}
	log.Printf("[host] Started companion %s (PID %d)", path, cmd.Process.Pid)

	p := &Process{
		cmd:      cmd,
		stdin:    stdin,
		stdout:   bufio.NewReader(stdout),
		frames:   make(chan received),
		closing:  make(chan struct{}),
		readDone: make(chan struct{}),
	}
	p.readers.Add(2)
	go p.readFrames()
	go p.logStderr(stderr)
	return p, nil
}

// Process is a running companion. It implements supervisor.Channel.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	// stdout and stderr are read until EOF before Wait closes them.
	frames   chan received
	closing  chan struct{}
	readDone chan struct{}
	readers  sync.WaitGroup

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

type received struct {
	msg protocol.Message
	err error
}

// Send encodes msg and writes it as one frame.
func (p *Process) Send(msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return protocol.WriteFrame(p.stdin, frame, protocol.MaxOutboundFrame)
}

// Receive returns the next message. A frame that is not a valid message is
// reported as faults.Malformed and the stream stays in sync; an oversized
// or truncated frame ends the channel. Once the companion's stdout is
// closed Receive returns io.EOF.
func (p *Process) Receive() (protocol.Message, error) {
	select {
	case r := <-p.frames:
		return r.msg, r.err
	case <-p.readDone:
		return nil, io.EOF
	}
}

// readFrames reads stdout until it fails. After Close has started, frames
// nobody receives are dropped so the companion can still reach EOF.
func (p *Process) readFrames() {
	defer p.readers.Done()
	defer close(p.readDone)
	for {
		msg, err := p.readMessage()
		select {
		case p.frames <- received{msg, err}:
		case <-p.closing:
		}
		if err != nil && !faults.Is(err, faults.Malformed) {
			return
		}
	}
}

func (p *Process) readMessage() (protocol.Message, error) {
	frame, err := protocol.ReadFrame(p.stdout, protocol.MaxInboundFrame)
	if err != nil {
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			return nil, faults.New(faults.Transport, "receive", err)
		}
		return nil, err
	}
	return protocol.Decode(frame)
}

// Close closes the companion's stdin and waits for it to close its output.
// A companion still running after closeGrace is killed. It is safe to call
// more than once.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		close(p.closing)
		_ = p.stdin.Close()
		kill := time.AfterFunc(closeGrace, func() {
			_ = p.cmd.Process.Kill()
		})

		drained := make(chan struct{})
		go func() {
			p.readers.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(2 * closeGrace):
			// A grandchild may hold the pipes open; Wait closes them.
			log.Printf("[host] Companion output still open after kill (PID %d)", p.cmd.Process.Pid)
		}

		err := p.cmd.Wait()
		kill.Stop()

		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			p.closeErr = err
		}
		log.Printf("[host] Companion exited (PID %d): %v", p.cmd.Process.Pid, exitStatus(err))
	})
	return p.closeErr
}

func (p *Process) logStderr(r io.Reader) {
	defer p.readers.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Printf("[companion] %s", scanner.Text())
	}
}

func exitStatus(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
