package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/devicelink/devicelink/internal/daemon/server"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/tui"
)

var watchPlain bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the companion channel and devices live",
	Long: `Follow the companion channel and device list as they change.

On a terminal this opens an interactive dashboard. Otherwise, or with
--plain, one line is printed per change.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Print one line per change instead of the dashboard")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := EnsureDaemon(); err != nil {
		return err
	}

	conn, err := connectDaemon()
	if err != nil {
		return err
	}
	defer conn.Close()

	if !watchPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.Run(conn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := server.NewBridgeClient(conn).Watch(ctx, &server.Request{Meta: requestMeta()})
	if err != nil {
		return rpcError("failed to watch", err)
	}
	for {
		reply, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return rpcError("watch ended", err)
		}
		fmt.Println(formatWatchLine(time.Now(), reply.Bridge))
	}
}

// formatWatchLine renders one status update without styling, for pipes.
func formatWatchLine(now time.Time, st models.BridgeStatus) string {
	connected := "offline"
	if st.Connected {
		connected = "online"
	}
	line := fmt.Sprintf("%s state=%s companion=%s devices=%d",
		now.Format(time.TimeOnly), st.State, connected, len(st.Devices))
	if st.State != "open" && st.Attempts > 0 {
		line += fmt.Sprintf(" attempts=%d retry=%s", st.Attempts, st.NextDelay)
	}
	for _, d := range st.Devices {
		line += " " + d.ID
	}
	return line
}
