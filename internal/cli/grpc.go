package cli

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/devicelink/devicelink/internal/buildinfo"
	"github.com/devicelink/devicelink/internal/config"
	"github.com/devicelink/devicelink/internal/daemon/server"
)

// rpcTimeout bounds every unary call to the daemon.
const rpcTimeout = 5 * time.Second

// connectDaemon establishes a gRPC connection to the running daemon.
func connectDaemon() (*grpc.ClientConn, error) {
	info, err := config.LoadDaemonInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to load daemon info: %w", err)
	}
	if info == nil {
		return nil, fmt.Errorf("daemon not running")
	}

	conn, err := grpc.NewClient(config.ControlAddr(info), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	return conn, nil
}

// withClient starts the daemon if needed, connects, and runs fn with a
// bridge client and a bounded context.
func withClient(fn func(ctx context.Context, client *server.BridgeClient) error) error {
	if err := EnsureDaemon(); err != nil {
		return err
	}

	conn, err := connectDaemon()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	return fn(ctx, server.NewBridgeClient(conn))
}

// requestMeta identifies this CLI to the daemon.
func requestMeta() *server.RequestMeta {
	return &server.RequestMeta{ClientID: "devicelink-cli", Version: buildinfo.Version}
}

// rpcError strips the gRPC wrapping so users see the daemon's message.
func rpcError(action string, err error) error {
	if st, ok := status.FromError(err); ok {
		return fmt.Errorf("%s: %s", action, st.Message())
	}
	return fmt.Errorf("%s: %w", action, err)
}
