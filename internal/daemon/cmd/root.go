// Package cmd implements the devicelinkd command line.
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/devicelink/devicelink/internal/config"
	"github.com/devicelink/devicelink/internal/daemon/bridge"
	"github.com/devicelink/devicelink/internal/daemon/server"
	"github.com/devicelink/devicelink/internal/daemon/tray"
	"github.com/devicelink/devicelink/internal/daemon/watcher"
	"github.com/devicelink/devicelink/internal/models"
)

var (
	foreground bool
	port       int
	listen     string
)

var rootCmd = &cobra.Command{
	Use:   "devicelinkd",
	Short: "Bridge browser surfaces to the devicelink companion application",
	Long: `devicelinkd keeps a channel open to the companion application, tracks the
devices it reports, and serves the browser surfaces and the devicelink CLI.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDaemon,
}

// Execute runs the daemon command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVar(&foreground, "foreground", false, "Run in foreground (no system tray)")
	rootCmd.Flags().IntVar(&port, "port", 0, "Control port to listen on (0 for dynamic allocation)")
	rootCmd.Flags().StringVar(&listen, "listen", "", "UI hub address (overrides settings)")
	rootCmd.AddCommand(daemonVersionCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.SetPrefix("[devicelinkd] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	gin.SetMode(gin.ReleaseMode)

	// Ensure global directory exists
	if err := config.EnsureGlobalDir(); err != nil {
		return fmt.Errorf("failed to create global directory: %w", err)
	}

	// Check if daemon is already running
	running, info, err := config.IsDaemonRunning()
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running on port %d (PID %d)", info.Port, info.PID)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if listen != "" {
		settings.UI.Listen = listen
	}

	b, err := bridge.New(bridge.Options{Settings: settings})
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	if foreground || !settings.UI.Tray {
		log.Println("Running in foreground mode (no system tray)")
		return runForeground(b)
	}
	log.Println("Running in background mode (with system tray)")
	runWithTray(b)
	return nil
}

// daemon is everything started for one run.
type daemon struct {
	bridge  *bridge.Bridge
	server  *server.Server
	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

func start(b *bridge.Bridge) (*daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &daemon{bridge: b, cancel: cancel}

	if err := b.Start(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start bridge: %w", err)
	}

	srv, err := server.New(port, b)
	if err != nil {
		d.stop()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	d.server = srv

	daemonInfo := models.NewDaemonInfo("127.0.0.1", srv.Port(), b.UIAddr(), os.Getpid())
	srv.SetDaemonInfo(func() *models.DaemonInfo { return daemonInfo })
	if err := config.SaveDaemonInfo(daemonInfo); err != nil {
		d.stop()
		return nil, fmt.Errorf("failed to write daemon info: %w", err)
	}

	go func() {
		if err := srv.Serve(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	if path, err := config.GlobalSettingsFile(); err == nil {
		if w, err := watcher.New(path); err != nil {
			log.Printf("Warning: settings will not reload: %v", err)
		} else if err := w.Start(); err != nil {
			log.Printf("Warning: settings will not reload: %v", err)
		} else {
			d.watcher = w
			go b.Watch(ctx, w)
		}
	}

	log.Printf("Daemon started on port %d, UI hub on %s (PID %d)", srv.Port(), b.UIAddr(), os.Getpid())
	return d, nil
}

func (d *daemon) stop() {
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.server != nil {
		d.server.Stop()
	}
	d.bridge.Stop()
	d.cancel()

	if err := config.RemoveDaemonInfo(); err != nil {
		log.Printf("Failed to remove daemon info: %v", err)
	}
}

// runForeground runs the daemon without a system tray, blocking on signals.
func runForeground(b *bridge.Bridge) error {
	d, err := start(b)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	d.stop()
	fmt.Println("Daemon stopped")
	return nil
}

// runWithTray runs the daemon with a system tray icon on the main goroutine.
// systray.Run must occupy the main goroutine on macOS (Cocoa requirement).
func runWithTray(b *bridge.Bridge) {
	var d *daemon
	b.Projector.AddSurface(tray.Surface{})

	onStart := func() {
		var err error
		d, err = start(b)
		if err != nil {
			log.Printf("Failed to start: %v", err)
			tray.Quit()
			return
		}

		// Quit the tray on SIGINT/SIGTERM
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			log.Printf("Received signal %v, shutting down...", sig)
			tray.Quit()
		}()
	}

	onExit := func() {
		if d != nil {
			d.stop()
		}
		fmt.Println("Daemon stopped")
	}

	// This blocks the main goroutine until tray exits.
	tray.Run(b, b.Relay, b.Projector.ActiveTab, onStart, onExit)
}
