// Package server implements the gRPC control server for the daemon.
package server

import (
	"context"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/devicelink/devicelink/internal/daemon/roster"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

// Backend is the bridge the control server drives.
type Backend interface {
	Status() models.BridgeStatus
	Share(share protocol.Share) error
	Reconnect() error
	Subscribe() (string, <-chan roster.Snapshot)
	Unsubscribe(id string)
	RequestShutdown()
}

// Server is the daemon's gRPC server.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	port       int
	backend    Backend
	info       func() *models.DaemonInfo
}

// New creates a new server listening on the loopback interface.
// Pass port 0 for dynamic allocation.
func New(port int, backend Backend) (*Server, error) {
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	// Get actual port if dynamically allocated
	actualPort := listener.Addr().(*net.TCPAddr).Port

	srv := &Server{
		grpcServer: grpc.NewServer(),
		listener:   listener,
		port:       actualPort,
		backend:    backend,
	}
	RegisterBridgeServer(srv.grpcServer, &bridgeService{server: srv})
	return srv, nil
}

// SetDaemonInfo sets where GetStatus reads the daemon details from.
func (s *Server) SetDaemonInfo(fn func() *models.DaemonInfo) {
	s.info = fn
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Serve starts serving requests. This blocks until Stop is called.
func (s *Server) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

type bridgeService struct {
	server *Server
}

func (b *bridgeService) reply() *StatusReply {
	r := &StatusReply{Bridge: b.server.backend.Status()}
	if !r.Bridge.Since.IsZero() {
		r.Since = timestamppb.New(r.Bridge.Since)
	}
	if b.server.info != nil {
		r.Daemon = b.server.info()
		if r.Daemon != nil {
			r.StartedAt = timestamppb.New(r.Daemon.StartedAt)
		}
	}
	return r
}

func (b *bridgeService) GetStatus(ctx context.Context, _ *Request) (*StatusReply, error) {
	return b.reply(), nil
}

func (b *bridgeService) Share(ctx context.Context, req *ShareRequest) (*emptypb.Empty, error) {
	share := protocol.Share{Device: req.Device, URL: req.URL, Action: protocol.Action(req.Action)}
	if err := share.Validate(); err != nil {
		return nil, statusError(err)
	}
	if err := b.server.backend.Share(share); err != nil {
		return nil, statusError(err)
	}
	return &emptypb.Empty{}, nil
}

func (b *bridgeService) Reconnect(ctx context.Context, _ *Request) (*emptypb.Empty, error) {
	if err := b.server.backend.Reconnect(); err != nil {
		return nil, statusError(err)
	}
	return &emptypb.Empty{}, nil
}

func (b *bridgeService) Shutdown(ctx context.Context, _ *Request) (*emptypb.Empty, error) {
	log.Println("[server] Shutdown requested")
	b.server.backend.RequestShutdown()
	return &emptypb.Empty{}, nil
}

// Watch sends the current status, then a fresh one after every roster
// change, until the client goes away.
func (b *bridgeService) Watch(_ *Request, stream Bridge_WatchServer) error {
	id, updates := b.server.backend.Subscribe()
	defer b.server.backend.Unsubscribe(id)

	if err := stream.Send(b.reply()); err != nil {
		return err
	}
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case _, ok := <-updates:
			if !ok {
				return nil
			}
			if err := stream.Send(b.reply()); err != nil {
				return err
			}
		}
	}
}
