package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devicelink/devicelink/internal/daemon/server"
	"github.com/devicelink/devicelink/internal/models"
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"ls"},
	Short:   "List the devices the companion reports",
	RunE:    runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	return withClient(func(ctx context.Context, client *server.BridgeClient) error {
		reply, err := client.GetStatus(ctx, &server.Request{Meta: requestMeta()})
		if err != nil {
			return rpcError("failed to list devices", err)
		}
		if !reply.Bridge.Connected {
			fmt.Println(styleWarning.Render("Companion is not connected."))
		}
		printDevices(reply.Bridge.Devices)
		return nil
	})
}

// resolveDevice finds the device arg names: an exact id first, then a
// case-insensitive name. An ambiguous name is an error.
func resolveDevice(devices []models.Device, arg string) (models.Device, error) {
	for _, d := range devices {
		if d.ID == arg {
			return d, nil
		}
	}

	var matches []models.Device
	for _, d := range devices {
		if strings.EqualFold(d.Name, arg) {
			matches = append(matches, d)
		}
	}
	switch len(matches) {
	case 0:
		return models.Device{}, fmt.Errorf("no device named %q", arg)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, d := range matches {
			ids[i] = d.ID
		}
		return models.Device{}, fmt.Errorf("%q matches several devices (%s); use an id", arg, strings.Join(ids, ", "))
	}
}
