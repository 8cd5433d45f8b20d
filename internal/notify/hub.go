package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 5 * time.Second
	sendBufferSize = 32
)

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans engine events out to websocket clients. A player may hold several
// connections; events addressed to the player go to all of them. Slow clients
// are disconnected rather than allowed to stall the engine.
type Hub struct {
	registrar Registrar

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// NewHub creates a Hub. registrar may be nil.
func NewHub(registrar Registrar) *Hub {
	return &Hub{
		registrar: registrar,
		clients:   make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket session. The player is
// identified by the "player" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		http.Error(w, "missing player parameter", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}

	c := &client{conn: conn, send: make(chan Event, sendBufferSize)}
	h.add(playerID, c)
	log.Info().Str("player_id", playerID).Msg("Websocket client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writePump(ctx, c)

	// Inbound frames are not part of the protocol; reading only serves to
	// detect the close.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	h.remove(playerID, c)
	conn.Close(websocket.StatusNormalClosure, "")
	log.Info().Str("player_id", playerID).Msg("Websocket client disconnected")
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, event)
			cancel()
			if err != nil {
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (h *Hub) add(playerID string, c *client) {
	h.mu.Lock()
	if h.clients[playerID] == nil {
		h.clients[playerID] = make(map[*client]struct{})
	}
	first := len(h.clients[playerID]) == 0
	h.clients[playerID][c] = struct{}{}
	h.mu.Unlock()

	if first && h.registrar != nil {
		h.registrar.Register(playerID)
	}
}

func (h *Hub) remove(playerID string, c *client) {
	h.mu.Lock()
	if set, ok := h.clients[playerID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, playerID)
		}
	}
	last := h.clients[playerID] == nil
	h.mu.Unlock()

	close(c.send)
	if last && h.registrar != nil {
		h.registrar.Unregister(playerID)
	}
}

// NotifyPlayer implements Notifier.
func (h *Hub) NotifyPlayer(playerID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[playerID] {
		h.deliver(c, event)
	}
}

// Broadcast implements Notifier.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.clients {
		for c := range set {
			h.deliver(c, event)
		}
	}
}

func (h *Hub) deliver(c *client, event Event) {
	select {
	case c.send <- event:
	default:
		// Buffer full; drop the event rather than block a cycle.
		log.Warn().Str("event", event.Type).Msg("Dropping event for slow websocket client")
	}
}
