package devserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 64 * 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// dev server: any origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// InboundFunc handles a frame a client pushed. from is the sending connection.
type InboundFunc func(from *Client, category events.Category, payload any)

// Client is one WebSocket connection of an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func (c *Client) UserID() string { return c.userID }

// outbound is a frame addressed to one user (or everyone when userID is
// empty), optionally skipping the connection it came from.
type outbound struct {
	frame  []byte
	userID string
	except *Client
}

// Hub tracks connections per user and fans frames out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     zerolog.Logger

	inbound InboundFunc
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, sendBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "hub").Logger(),
	}
}

// OnInbound sets the handler for frames clients push. Set it before Run.
func (h *Hub) OnInbound(fn InboundFunc) { h.inbound = fn }

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every connection.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info().Str("user_id", client.userID).Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info().Str("user_id", client.userID).Msg("client disconnected")

		case msg := <-h.broadcast:
			var toDelete []*Client
			h.mu.RLock()
			for client := range h.clients {
				if client == msg.except || (msg.userID != "" && client.userID != msg.userID) {
					continue
				}
				select {
				case client.send <- msg.frame:
				default:
					// buffer full
					toDelete = append(toDelete, client)
				}
			}
			h.mu.RUnlock()

			if len(toDelete) > 0 {
				h.mu.Lock()
				for _, client := range toDelete {
					if _, ok := h.clients[client]; ok {
						close(client.send)
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Publish sends an event to every connection of userID.
func (h *Hub) Publish(userID string, category events.Category, payload any) error {
	return h.enqueue(outbound{userID: userID}, category, payload)
}

// Broadcast sends an event to every connection.
func (h *Hub) Broadcast(category events.Category, payload any) error {
	return h.enqueue(outbound{}, category, payload)
}

// relay sends an event to the sender's other connections.
func (h *Hub) relay(from *Client, category events.Category, payload any) error {
	return h.enqueue(outbound{userID: from.userID, except: from}, category, payload)
}

func (h *Hub) enqueue(msg outbound, category events.Category, payload any) error {
	frame, err := realtime.EncodeEnvelope(category, payload)
	if err != nil {
		return err
	}
	msg.frame = frame
	h.logger.Debug().Str("event", string(category)).Str("user_id", msg.userID).Msg("publishing")
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
	return nil
}

// Users returns the ids of users with at least one connection.
func (h *Hub) Users() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var users []string
	for client := range h.clients {
		if !seen[client.userID] {
			seen[client.userID] = true
			users = append(users, client.userID)
		}
	}
	return users
}

// Connections counts the open connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for client := range h.clients {
		if client.userID == userID {
			n++
		}
	}
	return n
}

// serve upgrades the request and starts the pumps for an authenticated user.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade failed")
		return err
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		userID: userID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump reads frames from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("user_id", c.userID).Msg("unexpected close")
			}
			return
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame []byte) {
	category, payload, err := realtime.DecodeEnvelope(frame)
	var partial *realtime.PartialPayloadError
	switch {
	case errors.As(err, &partial):
		c.hub.logger.Warn().Strs("fields", partial.Fields).Str("user_id", c.userID).Msg("relaying payload with skipped fields")
	case err != nil:
		c.hub.logger.Warn().Err(err).Str("user_id", c.userID).Msg("dropping malformed frame")
		return
	}
	if c.hub.inbound != nil {
		c.hub.inbound(c, category, payload)
	}
}

// writePump writes queued frames to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			// drain what queued meanwhile, one frame each
			n := len(c.send)
			for i := 0; i < n; i++ {
				next, ok := <-c.send
				if !ok {
					return
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, next); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
