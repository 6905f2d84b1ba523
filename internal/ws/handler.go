package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/l0ubard/wearemeta-chat/internal/auth"
	"nhooyr.io/websocket"
)

// Client-visible error messages. Store failures map to a generic retry
// message so infrastructure detail never leaks onto the wire.
const (
	msgUsernameExists  = "Username already exists"
	msgInvalidLogin    = "Invalid username or password"
	msgUserOnline      = "User already logged in"
	msgAlreadyLoggedIn = "Already logged in"
	msgServiceTryAgain = "Service unavailable, please try again"
)

// Handler upgrades HTTP requests to WebSocket connections and dispatches
// inbound frames.
type Handler struct {
	hub             *Hub
	store           auth.Store
	allowLegacyJoin bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLegacyJoin toggles the credential-less "join" frame.
func WithLegacyJoin(allow bool) HandlerOption {
	return func(h *Handler) {
		h.allowLegacyJoin = allow
	}
}

// NewHandler creates a WebSocket Handler backed by the given hub and
// credential store.
func NewHandler(hub *Hub, store auth.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:             hub,
		store:           store,
		allowLegacyJoin: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the connection and runs the client's read loop until
// the connection closes. On close, the session (if any) is removed and a
// leave event goes to everyone else.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Connections are accepted from any origin.
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("ws: accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	client := NewClient(conn)
	connCtx := h.hub.Attach(client)
	defer func() {
		username, had := h.hub.Detach(client)
		if had {
			h.hub.BroadcastExcept(client, leaveEvent(username))
		}
	}()

	h.readLoop(r.Context(), connCtx, client)
}

// readLoop reads frames until the connection closes or the hub cancels
// connCtx. Malformed frames are logged and dropped; unknown types are
// ignored. The connection stays open in both cases.
func (h *Handler) readLoop(ctx context.Context, connCtx context.Context, client *Client) {
	for {
		select {
		case <-connCtx.Done():
			return
		default:
		}

		_, data, err := client.conn.Read(ctx)
		if err != nil {
			// Normal close, force close, or context cancelled.
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("ws: dropping malformed frame from client %s: %v", client.id, err)
			continue
		}

		switch frame.Type {
		case TypeRegister:
			h.handleRegister(ctx, client, frame)
		case TypeLogin:
			h.handleLogin(ctx, client, frame)
		case TypeMessage:
			h.handleMessage(client, frame)
		case TypeJoin:
			h.handleJoin(client, frame)
		}
	}
}

// handleRegister validates the fields, then creates a credential record.
// Registration does not log the connection in.
func (h *Handler) handleRegister(ctx context.Context, client *Client, frame Frame) {
	if err := auth.ValidateUsername(frame.Username); err != nil {
		h.hub.Send(client, errorEvent(err.Error()))
		return
	}
	if err := auth.ValidatePassword(frame.Password); err != nil {
		h.hub.Send(client, errorEvent(err.Error()))
		return
	}

	err := h.store.CreateUser(ctx, frame.Username, frame.Password)
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		h.hub.Send(client, errorEvent(msgUsernameExists))
	case err != nil:
		log.Printf("ws: credential store failure during register: %v", err)
		h.hub.Send(client, errorEvent(msgServiceTryAgain))
	default:
		h.hub.Send(client, registrationSuccessEvent())
	}
}

// handleLogin verifies credentials against the store, then takes the
// registry lock for the final state transition. The store round trip
// deliberately happens before Register so the lock is never held across
// it.
func (h *Handler) handleLogin(ctx context.Context, client *Client, frame Frame) {
	if client.State() == StateAuthenticated {
		h.hub.Send(client, errorEvent(msgAlreadyLoggedIn))
		return
	}

	// A username that fails validation can't have a credential record, so
	// short-circuit with the same message a failed lookup produces.
	if auth.ValidateUsername(frame.Username) != nil || auth.ValidatePassword(frame.Password) != nil {
		h.hub.Send(client, errorEvent(msgInvalidLogin))
		return
	}

	ok, err := h.store.VerifyCredentials(ctx, frame.Username, frame.Password)
	if err != nil {
		log.Printf("ws: credential store failure during login: %v", err)
		h.hub.Send(client, errorEvent(msgServiceTryAgain))
		return
	}
	if !ok {
		h.hub.Send(client, errorEvent(msgInvalidLogin))
		return
	}

	err = h.hub.Register(client, frame.Username)
	switch {
	case errors.Is(err, ErrUsernameOnline):
		h.hub.Send(client, errorEvent(msgUserOnline))
	case errors.Is(err, ErrAlreadyAuthenticated):
		h.hub.Send(client, errorEvent(msgAlreadyLoggedIn))
	default:
		h.hub.Send(client, loginSuccessEvent(frame.Username))
		h.hub.BroadcastExcept(client, joinEvent(frame.Username))
	}
}

// handleMessage broadcasts a chat message to every open connection,
// sender included. A message from a connection with no session is
// silently ignored.
func (h *Handler) handleMessage(client *Client, frame Frame) {
	username, ok := h.hub.Lookup(client)
	if !ok {
		return
	}
	h.hub.Broadcast(chatEvent(username, frame.Message))
}

// handleJoin is the legacy no-auth path: it binds the client-supplied
// username with no credential check and no reply. It goes through the
// same Register call as login, so it cannot break the
// one-session-per-username invariant; a conflicting join is dropped.
func (h *Handler) handleJoin(client *Client, frame Frame) {
	if !h.allowLegacyJoin {
		log.Printf("ws: rejected legacy join from client %s", client.id)
		return
	}
	if frame.Username == "" {
		return
	}
	if err := h.hub.Register(client, frame.Username); err != nil {
		log.Printf("ws: legacy join for %q from client %s failed: %v", frame.Username, client.id, err)
		return
	}
	log.Printf("ws: legacy join bound %q to client %s without credentials", frame.Username, client.id)
}
