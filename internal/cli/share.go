package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devicelink/devicelink/internal/daemon/server"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

var shareTelephony bool

var shareCmd = &cobra.Command{
	Use:   "share <device> <url>",
	Short: "Open a link on a device",
	Long: `Open a link on a paired device. The device can be given by id or name.

With --telephony the URL is handed to the device's dialer or messaging app
instead (tel:, sms: or a bare number).`,
	Args: cobra.ExactArgs(2),
	RunE: runShare,
}

func init() {
	shareCmd.Flags().BoolVarP(&shareTelephony, "telephony", "t", false, "Call or text the number instead of opening the link")
}

func runShare(cmd *cobra.Command, args []string) error {
	action := protocol.ActionShare
	if shareTelephony {
		action = protocol.ActionTelephony
	}

	return withClient(func(ctx context.Context, client *server.BridgeClient) error {
		reply, err := client.GetStatus(ctx, &server.Request{Meta: requestMeta()})
		if err != nil {
			return rpcError("failed to get devices", err)
		}
		if !reply.Bridge.Connected {
			return fmt.Errorf("companion is not connected")
		}

		device, err := resolveDevice(reply.Bridge.Devices, args[0])
		if err != nil {
			return err
		}
		if !accepts(device, action) {
			return fmt.Errorf("%s does not accept %s", deviceLabel(device), action)
		}

		_, err = client.Share(ctx, &server.ShareRequest{
			Meta:   requestMeta(),
			Device: device.ID,
			URL:    args[1],
			Action: string(action),
		})
		if err != nil {
			return rpcError("share failed", err)
		}

		fmt.Printf("%s %s\n", styleSuccess.Render("Sent to"), styleValue.Render(deviceLabel(device)))
		return nil
	})
}

func accepts(d models.Device, action protocol.Action) bool {
	switch action {
	case protocol.ActionShare:
		return d.Share
	case protocol.ActionTelephony:
		return d.Telephony
	default:
		return false
	}
}

func deviceLabel(d models.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
