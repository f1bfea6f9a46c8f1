// Package hub serves the browser-facing surfaces: a websocket fan-out of
// companion traffic and projected UI state, plus a small JSON API.
package hub

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/devicelink/devicelink/internal/daemon/projector"
	"github.com/devicelink/devicelink/internal/models"
	"github.com/devicelink/devicelink/internal/protocol"
)

// Handler receives commands from connected surfaces.
type Handler interface {
	Trusted(origin string) bool
	HandleOutbound(msg protocol.Message, origin string) error
	HandleMenuClick(click projector.Click, origin string) error
	HandleTab(tab *projector.Tab, origin string) error
}

// StatusFunc reports the bridge status for the API.
type StatusFunc func() models.BridgeStatus

// Hub tracks websocket clients and broadcasts to them. It implements
// relay.Broadcaster and projector.Surface.
type Hub struct {
	status StatusFunc

	mu      sync.RWMutex
	handler Handler
	clients map[string]*client

	server   *http.Server
	listener net.Listener
}

// New creates a hub with no handler. Frames from clients are dropped until
// SetHandler is called.
func New(status StatusFunc) *Hub {
	return &Hub{
		status:  status,
		clients: make(map[string]*client),
	}
}

// SetHandler sets the receiver of client commands.
func (h *Hub) SetHandler(handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

func (h *Hub) getHandler() Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handler
}

// Start listens on addr and serves in the background. It returns the
// address actually bound.
func (h *Hub) Start(addr string) (string, error) {
	listener, err := (&net.ListenConfig{}).Listen(context.TODO(), "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}
	h.listener = listener
	h.server = &http.Server{
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[hub] Server error: %v", err)
		}
	}()

	log.Printf("[hub] Listening on %s", listener.Addr())
	return listener.Addr().String(), nil
}

// Shutdown stops the HTTP server and disconnects every client.
func (h *Hub) Shutdown(ctx context.Context) error {
	var err error
	if h.server != nil {
		err = h.server.Shutdown(ctx)
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
	return err
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("[hub] Client %s connected from %q (total: %d)", c.id, c.origin, total)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("[hub] Client %s disconnected (total: %d)", c.id, total)
}

// Broadcast sends a companion message to every client unchanged.
func (h *Hub) Broadcast(msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Printf("[hub] Warning: cannot broadcast %T: %v", msg, err)
		return
	}
	h.sendAll(data)
}

// sendAll never blocks: a client whose buffer is full misses the frame.
func (h *Hub) sendAll(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("[hub] Warning: client %s buffer full, dropping frame", c.id)
		}
	}
}

func (h *Hub) sendFrame(frameType string, payload any) {
	data, err := encodeFrame(frameType, payload)
	if err != nil {
		log.Printf("[hub] Warning: cannot encode %s frame: %v", frameType, err)
		return
	}
	h.sendAll(data)
}

// SetEnabled tells surfaces to enable or disable the action on a tab.
func (h *Hub) SetEnabled(tabID int, enabled bool) error {
	op := ToolbarDisable
	if enabled {
		op = ToolbarEnable
	}
	h.sendFrame(FrameToolbar, ToolbarFrame{Op: op, TabID: tabID})
	return nil
}

// DisableAll tells surfaces to disable the action on every tab.
func (h *Hub) DisableAll() error {
	h.sendFrame(FrameToolbar, ToolbarFrame{Op: ToolbarDisableAll})
	return nil
}

// SetBadge tells surfaces which badge to show.
func (h *Hub) SetBadge(badge projector.Badge) error {
	h.sendFrame(FrameToolbar, ToolbarFrame{Op: ToolbarBadge, Badge: &badge})
	return nil
}

// RemoveAll tells surfaces to clear their context menu.
func (h *Hub) RemoveAll() error {
	h.sendFrame(FrameMenus, MenusFrame{Op: MenusRemoveAll})
	return nil
}

// Create tells surfaces to add a context menu entry.
func (h *Hub) Create(item projector.MenuItem) error {
	h.sendFrame(FrameMenus, MenusFrame{Op: MenusCreate, Item: &item})
	return nil
}
