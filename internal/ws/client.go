package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync/atomic"

	"nhooyr.io/websocket"
)

// State is the lifecycle state of a connection.
type State int32

const (
	// StateUnauthenticated is the initial state: connected, no session.
	StateUnauthenticated State = iota
	// StateAuthenticated means the connection holds a live session.
	StateAuthenticated
	// StateClosed means the connection has been detached from the hub.
	StateClosed
)

// Client is the handle for one WebSocket connection. The hub owns its
// registration; the transport layer owns the underlying conn.
type Client struct {
	conn *websocket.Conn
	id   string
	send chan []byte

	// alive is the liveness flag: set on attach and on every pong,
	// cleared by each monitor tick. A connection whose flag is still
	// clear at the next tick is force-closed.
	alive atomic.Bool

	state atomic.Int32
}

// NewClient wraps a WebSocket connection in a Client handle.
func NewClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn: conn,
		id:   generateClientID(),
	}
	c.alive.Store(true)
	return c
}

// ID returns the client's random identifier, used only for logging.
func (c *Client) ID() string {
	return c.id
}

// State returns the connection's lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

func generateClientID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
