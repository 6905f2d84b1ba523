// Package server wires the HTTP surface: the WebSocket upgrade endpoint,
// the health check, and permissive CORS.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/l0ubard/wearemeta-chat/internal/auth"
	"github.com/l0ubard/wearemeta-chat/internal/ratelimit"
	"github.com/l0ubard/wearemeta-chat/internal/ws"
)

// Server is the HTTP server hosting the chat hub.
type Server struct {
	addr    string
	mux     *http.ServeMux
	hub     *ws.Hub
	store   auth.Store
	limiter *ratelimit.IPLimiter

	limitWindow     time.Duration
	stopPrune       context.CancelFunc
	pingInterval    time.Duration
	allowLegacyJoin bool
}

// Option configures a Server.
type Option func(*Server)

// WithStore sets the credential store. Defaults to an in-memory store.
func WithStore(store auth.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithUpgradeLimit applies a per-IP rate limit to WebSocket upgrades.
func WithUpgradeLimit(max int, window time.Duration) Option {
	return func(s *Server) {
		s.limiter = ratelimit.NewIPLimiter(max, window)
		s.limitWindow = window
	}
}

// WithPingInterval sets the liveness monitor period.
func WithPingInterval(d time.Duration) Option {
	return func(s *Server) {
		s.pingInterval = d
	}
}

// WithLegacyJoin toggles the credential-less "join" frame.
func WithLegacyJoin(allow bool) Option {
	return func(s *Server) {
		s.allowLegacyJoin = allow
	}
}

// New creates a Server listening on addr.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		mux:             http.NewServeMux(),
		pingInterval:    30 * time.Second,
		allowLegacyJoin: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = auth.NewMemoryStore()
	}
	s.hub = ws.NewHub(ws.WithPingInterval(s.pingInterval))
	if s.limiter != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopPrune = cancel
		go s.pruneLoop(ctx)
	}
	s.routes()
	return s
}

// pruneLoop periodically drops aged-out rate limiter entries so per-IP
// state doesn't grow for the server's lifetime.
func (s *Server) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.limitWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Prune()
		}
	}
}

// Hub returns the server's hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Handler returns the full HTTP handler, CORS included.
func (s *Server) Handler() http.Handler {
	return cors(s.mux)
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	return http.ListenAndServe(s.addr, s.Handler())
}

// Close shuts the hub down, closing every connection, and stops the
// limiter prune loop.
func (s *Server) Close() {
	if s.stopPrune != nil {
		s.stopPrune()
	}
	s.hub.Shutdown()
}

func (s *Server) routes() {
	wsHandler := ws.NewHandler(s.hub, s.store, ws.WithLegacyJoin(s.allowLegacyJoin))
	s.mux.Handle("GET /ws", s.limitUpgrades(wsHandler))
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"hub":    s.hub.Stats(),
	})
}

// limitUpgrades rejects upgrade attempts over the per-IP limit with 429.
// Without a configured limiter it is a pass-through.
func (s *Server) limitUpgrades(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !s.limiter.Allow(ip) {
				http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// cors applies a permissive CORS policy: any origin may reach the HTTP
// surface, matching the open-origin WebSocket accept.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
