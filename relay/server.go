package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server owns the relay's HTTP surface: the /ws subscriber endpoint
// plus the /health, /clients, and /metrics hooks. Static files, when
// wanted, are an external collaborator on another listener.
type Server struct {
	httpServer *http.Server
	hub        *Hub
	upgrader   websocket.Upgrader
	log        zerolog.Logger
	metrics    *Metrics
	started    time.Time
}

// NewServer builds the HTTP surface over a hub.
func NewServer(hub *Hub, log zerolog.Logger, metrics *Metrics) *Server {
	s := &Server{
		hub:     hub,
		log:     log,
		metrics: metrics,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			// Subscribers are trusted tools on the same network.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /clients", s.handleClients)
	mux.Handle("GET /metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.httpServer.Serve(lis); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("relay: serve: %w", err)
	}
	return nil
}

// Shutdown stops the listener, then sends every subscriber a close
// frame.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.hub.CloseAll()
	if err != nil {
		return fmt.Errorf("relay: shutdown: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error; this subscriber never
		// enters the registry.
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("handshake failed")
		return
	}
	sub := s.hub.Add(conn)
	go s.readLoop(sub)
}

// readLoop watches one subscriber for its close frame or EOF. Inbound
// data frames are ignored; pings are answered with pongs by the
// connection's default control handler.
func (s *Server) readLoop(sub *Subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			s.hub.Remove(sub.ID, "closed")
			return
		}
	}
}

type healthJSON struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime-seconds"`
	Subscribers   int     `json:"subscribers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthJSON{
		Status:        "ok",
		UptimeSeconds: time.Since(s.started).Seconds(),
		Subscribers:   s.hub.Len(),
	})
}

func (s *Server) handleClients(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Summaries())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}
