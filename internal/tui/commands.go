package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/devicelink/devicelink/internal/daemon/server"
	"github.com/devicelink/devicelink/internal/protocol"
)

// resubscribeDelay is how long the dashboard waits before watching again
// after the stream dropped.
const resubscribeDelay = 2 * time.Second

// watchCmd opens a Watch stream and forwards every update to the program
// from a goroutine. The command itself returns nothing.
func watchCmd(ctx context.Context, client *server.BridgeClient, ref *programRef) tea.Cmd {
	return func() tea.Msg {
		stream, err := client.Watch(ctx, &server.Request{})
		if err != nil {
			return WatchEndedMsg{Err: err}
		}

		go func() {
			for {
				reply, err := stream.Recv()
				if err != nil {
					if ctx.Err() != nil {
						ref.Send(WatchEndedMsg{})
						return
					}
					ref.Send(WatchEndedMsg{Err: err})
					return
				}
				ref.Send(StatusMsg{Reply: reply})
			}
		}()
		return nil
	}
}

func reconnectCmd(client *server.BridgeClient) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := client.Reconnect(ctx, &server.Request{}); err != nil {
			return ErrorMsg{Err: fmt.Errorf("reconnect failed: %s", describeError(err))}
		}
		return ReconnectedMsg{}
	}
}

func shareCmd(client *server.BridgeClient, device, url string, action protocol.Action) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := client.Share(ctx, &server.ShareRequest{
			Device: device,
			URL:    url,
			Action: string(action),
		})
		if err != nil {
			return ErrorMsg{Err: fmt.Errorf("share failed: %s", describeError(err))}
		}
		return SharedMsg{Device: device}
	}
}

func resubscribeAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return ResubscribeMsg{}
	})
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return ClearErrorMsg{}
	})
}

func clearNoticeAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return ClearNoticeMsg{}
	})
}

// describeError strips the gRPC wrapping from err.
func describeError(err error) string {
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}

// isConnectionLost checks if a gRPC error indicates the daemon is gone.
func isConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unavailable
}
