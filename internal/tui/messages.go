package tui

import (
	"github.com/devicelink/devicelink/internal/daemon/server"
)

// StatusMsg carries one update from the Watch stream.
type StatusMsg struct {
	Reply *server.StatusReply
}

// WatchEndedMsg signals the Watch stream closed. Err is nil when the
// dashboard cancelled it.
type WatchEndedMsg struct {
	Err error
}

// ErrorMsg carries an error to display.
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the error display.
type ClearErrorMsg struct{}

// SharedMsg signals a share command was accepted by the daemon.
type SharedMsg struct {
	Device string
}

// ClearNoticeMsg clears the notice shown after an action.
type ClearNoticeMsg struct{}

// ReconnectedMsg signals the daemon reopened the companion channel.
type ReconnectedMsg struct{}

// ResubscribeMsg triggers a new Watch stream after the old one ended.
type ResubscribeMsg struct{}
