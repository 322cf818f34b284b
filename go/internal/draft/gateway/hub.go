package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// CommandHandler processes one client command. reply sends a message
// back to the issuing connection only.
type CommandHandler func(ctx context.Context, cmd Command, reply func(msgType string, payload any))

// HubConfig holds websocket connection tuning.
type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultHubConfig returns the standard websocket tuning. CheckOrigin
// admits every origin; production deployments restrict it.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

type broadcast struct {
	roomID uuid.UUID
	data   []byte
}

// Hub owns the websocket connection pools, one per room, and fans
// broadcast frames out to them.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*client]bool

	broadcastCh chan broadcast
}

// NewHub builds a hub. Run must be called for broadcasts to flow.
func NewHub(config HubConfig) *Hub {
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		rooms:       make(map[uuid.UUID]map[*client]bool),
		broadcastCh: make(chan broadcast, 1024),
	}
}

// Run drains the broadcast channel until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	log.Info().Msg("gateway hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("gateway hub shutting down")
			return
		case msg := <-h.broadcastCh:
			h.deliver(msg)
		}
	}
}

// Broadcast queues a frame for every connection on the room. Frames are
// dropped rather than blocking the caller when the hub is saturated.
func (h *Hub) Broadcast(roomID uuid.UUID, data []byte) {
	select {
	case h.broadcastCh <- broadcast{roomID: roomID, data: data}:
	default:
		log.Warn().Str("room_id", roomID.String()).Msg("broadcast channel full, dropping frame")
	}
}

// ServeWS upgrades the request and runs the connection until the client
// goes away. onCommand handles inbound frames; onConnect, if set, runs
// once after registration with a reply function for the new connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomID uuid.UUID, userID string, onCommand CommandHandler, onConnect func(reply func(msgType string, payload any))) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &client{
		id:        uuid.New().String(),
		userID:    userID,
		roomID:    roomID,
		conn:      conn,
		send:      make(chan []byte, 256),
		hub:       h,
		onCommand: onCommand,
	}
	h.register(c)

	// The request context dies when the upgrade handler returns, so the
	// read pump runs against the background context for the life of the
	// connection.
	go c.writePump()
	go c.readPump(context.Background())

	log.Info().
		Str("connection_id", c.id).
		Str("user_id", userID).
		Str("room_id", roomID.String()).
		Msg("websocket connection established")

	if onConnect != nil {
		onConnect(c.reply)
	}
	return nil
}

// ConnectionCount reports the live connections for one room.
func (h *Hub) ConnectionCount(roomID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.roomID] == nil {
		h.rooms[c.roomID] = make(map[*client]bool)
	}
	h.rooms[c.roomID][c] = true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pool, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	if _, ok := pool[c]; !ok {
		return
	}
	delete(pool, c)
	c.closeSend()
	if len(pool) == 0 {
		delete(h.rooms, c.roomID)
	}
	log.Info().
		Str("connection_id", c.id).
		Str("room_id", c.roomID.String()).
		Msg("websocket connection closed")
}

func (h *Hub) deliver(msg broadcast) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[msg.roomID]))
	for c := range h.rooms[msg.roomID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(msg.data) {
			// A client that cannot keep up gets disconnected rather than
			// stalling the room.
			log.Warn().Str("connection_id", c.id).Msg("client send buffer full, closing connection")
			h.unregister(c)
			c.conn.Close()
		}
	}
}

type client struct {
	id        string
	userID    string
	roomID    uuid.UUID
	conn      *websocket.Conn
	hub       *Hub
	onCommand CommandHandler

	// sendMu serializes sends on the channel with its close, so a
	// disconnect racing a broadcast cannot send on a closed channel.
	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues a frame without blocking. It reports false when the
// buffer is full or the connection is already torn down.
func (c *client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// reply queues a frame for this connection only.
func (c *client) reply(msgType string, payload any) {
	data, err := marshalMessage(msgType, c.roomID.String(), payload)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.id).Msg("failed to marshal reply")
		return
	}
	if !c.enqueue(data) {
		log.Warn().Str("connection_id", c.id).Msg("reply dropped, client send buffer full")
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(MessageError, ErrorPayload{Code: "BAD_REQUEST", Detail: "malformed command"})
			continue
		}
		if c.onCommand != nil {
			c.onCommand(ctx, cmd, c.reply)
		}
	}
}
