package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

const (
	// sendBufferSize is the number of events that can be queued per client.
	sendBufferSize = 16

	// writeTimeout is the max time to wait for a single write to complete.
	writeTimeout = 5 * time.Second

	// defaultPingInterval is the period of the liveness monitor.
	defaultPingInterval = 30 * time.Second
)

// HubStats holds point-in-time hub statistics.
type HubStats struct {
	Connections     int   `json:"connections"`
	Sessions        int   `json:"sessions"`
	DroppedMessages int64 `json:"dropped_messages"`
	ForceClosed     int64 `json:"force_closed"`
}

// Hub is the session registry and broadcast engine. It is the single
// source of truth for which connections are open and which usernames are
// online. One mutex guards both maps, so the one-session-per-username
// invariant holds across concurrent logins.
type Hub struct {
	mu       sync.Mutex
	clients  map[*Client]context.CancelFunc
	sessions map[*Client]string
	online   map[string]*Client
	closed   bool

	pingInterval time.Duration
	stopMonitor  context.CancelFunc

	droppedMessages atomic.Int64
	forceClosed     atomic.Int64
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithPingInterval sets the liveness monitor period. A value of 0
// disables the monitor.
func WithPingInterval(d time.Duration) HubOption {
	return func(h *Hub) {
		h.pingInterval = d
	}
}

// NewHub creates a Hub and starts its liveness monitor.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:      make(map[*Client]context.CancelFunc),
		sessions:     make(map[*Client]string),
		online:       make(map[string]*Client),
		pingInterval: defaultPingInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.pingInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		h.stopMonitor = cancel
		go h.monitorLoop(ctx)
	}
	return h
}

// Attach registers an open connection and starts its write pump. The
// returned context is cancelled when the client is detached or the hub
// shuts down. Returns a cancelled context if the hub is closed.
func (h *Hub) Attach(c *Client) context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	c.send = make(chan []byte, sendBufferSize)
	c.alive.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	h.clients[c] = cancel

	go h.writePump(ctx, c)

	return ctx
}

// Detach removes a connection and its session, if any. It returns the
// username that was bound to the connection. Idempotent: detaching an
// unknown or already-detached client returns ("", false).
func (h *Hub) Detach(c *Client) (string, bool) {
	h.mu.Lock()
	cancel, attached := h.clients[c]
	if attached {
		delete(h.clients, c)
	}
	username, had := h.sessions[c]
	if had {
		delete(h.sessions, c)
		delete(h.online, username)
	}
	c.setState(StateClosed)
	h.mu.Unlock()

	if attached {
		cancel()
		close(c.send)
	}
	return username, had
}

// Errors returned by Register.
var (
	// ErrAlreadyAuthenticated means the connection already holds a session.
	ErrAlreadyAuthenticated = errors.New("connection already has a session")
	// ErrUsernameOnline means another live session holds the username.
	ErrUsernameOnline = errors.New("username already online")
)

// Register binds a username to a connection. The duplicate checks and the
// insert happen under one lock, so two concurrent logins for the same
// username can never both succeed. Callers must finish any credential
// store round trip before calling.
func (h *Hub) Register(c *Client, username string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[c]; ok {
		return ErrAlreadyAuthenticated
	}
	if _, ok := h.online[username]; ok {
		return ErrUsernameOnline
	}
	h.sessions[c] = username
	h.online[username] = c
	c.setState(StateAuthenticated)
	return nil
}

// Lookup returns the username bound to a connection, if any.
func (h *Hub) Lookup(c *Client) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	username, ok := h.sessions[c]
	return username, ok
}

// IsOnline reports whether any live session holds the username.
func (h *Hub) IsOnline(username string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.online[username]
	return ok
}

// Connections returns a snapshot of all open connections.
func (h *Hub) Connections() []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		result = append(result, c)
	}
	return result
}

// Broadcast sends an event to every open connection, serialized once.
// Delivery is best-effort: a full buffer or a closing connection drops
// the event for that recipient only.
func (h *Hub) Broadcast(ev Event) {
	h.broadcast(nil, ev)
}

// BroadcastExcept sends an event to every open connection except origin.
func (h *Hub) BroadcastExcept(origin *Client, ev Event) {
	h.broadcast(origin, ev)
}

func (h *Hub) broadcast(origin *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: failed to marshal event: %v", err)
		return
	}

	// Copy the set so concurrent detaches can't corrupt the iteration.
	for _, c := range h.Connections() {
		if c == origin {
			continue
		}
		h.enqueue(c, data)
	}
}

// Send delivers an event to a single connection.
func (h *Hub) Send(c *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ws: failed to marshal event: %v", err)
		return
	}
	h.enqueue(c, data)
}

// enqueue queues serialized data for a client, dropping it if the client
// is closing or its buffer is full.
func (h *Hub) enqueue(c *Client, data []byte) (queued bool) {
	if c.State() == StateClosed {
		return false
	}
	// The send channel closes on detach; an enqueue racing that close is
	// a silent drop, not an error.
	defer func() {
		if recover() != nil {
			h.droppedMessages.Add(1)
			queued = false
		}
	}()
	select {
	case c.send <- data:
		return true
	default:
		h.droppedMessages.Add(1)
		log.Printf("ws: send buffer full for client %s, dropping message", c.id)
		return false
	}
}

// Stats returns point-in-time hub statistics.
func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	connections := len(h.clients)
	sessions := len(h.sessions)
	h.mu.Unlock()
	return HubStats{
		Connections:     connections,
		Sessions:        sessions,
		DroppedMessages: h.droppedMessages.Load(),
		ForceClosed:     h.forceClosed.Load(),
	}
}

// Shutdown closes every connection and stops the liveness monitor.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make(map[*Client]context.CancelFunc, len(h.clients))
	for c, cancel := range h.clients {
		clients[c] = cancel
	}
	h.clients = make(map[*Client]context.CancelFunc)
	h.sessions = make(map[*Client]string)
	h.online = make(map[string]*Client)
	h.mu.Unlock()

	if h.stopMonitor != nil {
		h.stopMonitor()
	}

	for c, cancel := range clients {
		c.setState(StateClosed)
		cancel()
		close(c.send)
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// monitorLoop drives the liveness monitor on a fixed period.
func (h *Hub) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.checkLiveness(ctx)
		}
	}
}

// checkLiveness force-closes connections whose liveness flag was not
// restored since the previous tick, then clears the flag on the rest and
// pings them; the pong restores the flag out-of-band. Closing the conn
// makes the client's read loop fail, which runs the same cleanup as a
// normal close.
func (h *Hub) checkLiveness(ctx context.Context) {
	var stale, healthy []*Client
	h.mu.Lock()
	for c := range h.clients {
		if !c.alive.Load() {
			stale = append(stale, c)
		} else {
			c.alive.Store(false)
			healthy = append(healthy, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.forceClosed.Add(1)
		log.Printf("ws: client %s failed ping check, closing", c.id)
		c.conn.Close(websocket.StatusPolicyViolation, "ping timeout")
	}

	for _, c := range healthy {
		go h.ping(ctx, c)
	}
}

// ping sends a low-level ping and restores the liveness flag when the
// pong arrives.
func (h *Hub) ping(ctx context.Context, c *Client) {
	pingCtx, cancel := context.WithTimeout(ctx, h.pingInterval)
	defer cancel()
	if err := c.conn.Ping(pingCtx); err != nil {
		return
	}
	c.alive.Store(true)
}

// writePump drains the client's send channel, writing each event to the
// WebSocket connection. It exits when ctx is cancelled or the send
// channel is closed.
func (h *Hub) writePump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			if err := c.conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
				cancel()
				log.Printf("ws: write to client %s failed: %v", c.id, err)
				return
			}
			cancel()
		}
	}
}
