package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/devicelink/devicelink/internal/daemon/server"
	"github.com/devicelink/devicelink/internal/models"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the companion channel and its devices",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, client *server.BridgeClient) error {
		reply, err := client.GetStatus(ctx, &server.Request{Meta: requestMeta()})
		if err != nil {
			return rpcError("failed to get status", err)
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reply)
		}

		st := reply.Bridge
		fmt.Printf("  %s %s\n", styleBrand.Render("devicelink"), formatState(st))
		fmt.Printf("    %s %s\n", styleLabel.Render("Since   "), styleValue.Render(formatSince(reply.Since, time.Now())))
		fmt.Printf("    %s %s\n", styleLabel.Render("Surfaces"), styleValue.Render(fmt.Sprintf("%d", st.Clients)))
		if reply.Daemon != nil && reply.Daemon.UIAddr != "" {
			fmt.Printf("    %s %s\n", styleLabel.Render("UI      "), styleValue.Render("ws://"+reply.Daemon.UIAddr+"/ws"))
		}
		fmt.Println()
		printDevices(st.Devices)
		return nil
	})
}

// formatState renders the channel state in one styled phrase.
func formatState(st models.BridgeStatus) string {
	switch st.State {
	case "open":
		if st.Connected {
			return styleSuccess.Render("connected")
		}
		return styleWarning.Render("channel open, companion offline")
	case "connecting":
		return styleWarning.Render("connecting")
	default:
		s := styleError.Render("disconnected")
		if st.Attempts > 0 && st.NextDelay != "" {
			s += styleHint.Render(fmt.Sprintf(" (retry in %s, attempt %d)", st.NextDelay, st.Attempts))
		}
		return s
	}
}

func formatSince(since *timestamppb.Timestamp, now time.Time) string {
	if since == nil {
		return "-"
	}
	return fmt.Sprintf("%s ago", now.Sub(since.AsTime()).Truncate(time.Second))
}

func printDevices(devices []models.Device) {
	if len(devices) == 0 {
		fmt.Println(styleHint.Render("  No devices."))
		return
	}
	for _, d := range devices {
		fmt.Println("  " + formatDevice(d))
	}
}

// formatDevice renders one device as "name (id)  share telephony".
func formatDevice(d models.Device) string {
	var b strings.Builder
	if d.Name != "" {
		b.WriteString(styleValue.Render(d.Name))
		b.WriteString(styleHint.Render(" (" + d.ID + ")"))
	} else {
		b.WriteString(styleValue.Render(d.ID))
	}
	b.WriteString("  ")
	b.WriteString(formatCapability("share", d.Share))
	b.WriteString(" ")
	b.WriteString(formatCapability("telephony", d.Telephony))
	return b.String()
}

func formatCapability(name string, on bool) string {
	if on {
		return badgeOn.Render(name)
	}
	return badgeOff.Render("-" + name)
}
