package cli

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devicelink/devicelink/internal/config"
	"github.com/devicelink/devicelink/internal/daemon/server"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the devicelink daemon",
	Long:  `Manage the devicelinkd bridge process.`,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runDaemonStatus,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running && info != nil {
		fmt.Printf("Daemon is already running (PID %d, port %d).\n", info.PID, info.Port)
		return nil
	}

	// Clean up stale daemon info if it exists
	if info != nil {
		_ = config.RemoveDaemonInfo()
	}

	fmt.Print("Starting daemon...")
	if startErr := startDaemon(); startErr != nil {
		fmt.Println()
		return startErr
	}

	// Fetch fresh status to display
	_, freshInfo, err := config.IsDaemonRunning()
	if err != nil || freshInfo == nil {
		fmt.Println(" started.")
		return nil
	}

	fmt.Printf(" started (PID %d, port %d).\n", freshInfo.PID, freshInfo.Port)
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return err
	}

	if !running || info == nil {
		fmt.Println("Daemon is not running.")
		return nil
	}

	uptime := time.Since(info.StartedAt).Truncate(time.Second)

	fmt.Println("Daemon is running.")
	fmt.Printf("  Host:       %s\n", info.Host)
	fmt.Printf("  Port:       %d\n", info.Port)
	if info.UIAddr != "" {
		fmt.Printf("  UI:         ws://%s/ws\n", info.UIAddr)
	}
	fmt.Printf("  PID:        %d\n", info.PID)
	fmt.Printf("  Uptime:     %s\n", uptime)

	// The bridge itself may be wedged even when the process is alive.
	reply, err := fetchStatus()
	if err != nil {
		fmt.Printf("  Companion:  %s\n", styleError.Render("unknown ("+err.Error()+")"))
		return nil
	}
	fmt.Printf("  Companion:  %s\n", formatState(reply.Bridge))
	fmt.Printf("  Devices:    %d\n", len(reply.Bridge.Devices))
	fmt.Printf("  Surfaces:   %d\n", reply.Bridge.Clients)

	return nil
}

// fetchStatus asks a running daemon for its status without starting one.
func fetchStatus() (*server.StatusReply, error) {
	conn, err := connectDaemon()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	reply, err := server.NewBridgeClient(conn).GetStatus(ctx, &server.Request{Meta: requestMeta()})
	if err != nil {
		return nil, rpcError("status", err)
	}
	return reply, nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running || info == nil {
		fmt.Println("Daemon is not running.")
		return nil
	}

	// Ask politely first, then fall back to SIGTERM.
	if err := requestShutdown(); err != nil {
		process, err := os.FindProcess(info.PID)
		if err != nil {
			return fmt.Errorf("failed to find daemon process: %w", err)
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("failed to send stop signal: %w", err)
		}
	}

	// Poll for shutdown (max 5 seconds)
	if !waitForDaemon(false, 5*time.Second) {
		return fmt.Errorf("daemon did not stop within timeout")
	}
	fmt.Println("Daemon stopped.")
	return nil
}

func requestShutdown() error {
	conn, err := connectDaemon()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	_, err = server.NewBridgeClient(conn).Shutdown(ctx, &server.Request{Meta: requestMeta()})
	return err
}
