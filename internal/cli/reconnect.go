package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devicelink/devicelink/internal/daemon/server"
)

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Drop the companion channel and open it again",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, client *server.BridgeClient) error {
			if _, err := client.Reconnect(ctx, &server.Request{Meta: requestMeta()}); err != nil {
				return rpcError("reconnect failed", err)
			}
			fmt.Println("Reconnecting to the companion.")
			return nil
		})
	},
}
