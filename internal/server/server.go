package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lox/cardroom/internal/handlog"
	"github.com/lox/cardroom/internal/metrics"
	"github.com/lox/cardroom/internal/room"
)

// Server owns the WebSocket endpoint and the room registry behind it
type Server struct {
	cfg      *Config
	upgrader websocket.Upgrader
	logger   *log.Logger
	registry *room.Registry

	mu          sync.RWMutex
	connections map[*Connection]bool
}

// NewServer builds a server from its configuration. Hand logging is wired
// only when a directory is configured.
func NewServer(cfg *Config, logger *log.Logger) (*Server, error) {
	var opts []room.Option
	if cfg.Server.HandLogDir != "" {
		writer, err := handlog.NewWriter(cfg.Server.HandLogDir, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, room.WithHandLog(writer))
	}

	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// the service holds no credentials, so any origin may talk
				// to it
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		registry:    room.NewRegistry(cfg.RoomConfig(), logger, quartz.NewReal(), opts...),
		connections: make(map[*Connection]bool),
	}, nil
}

// Registry exposes the room table, mainly to tests
func (s *Server) Registry() *room.Registry {
	return s.registry
}

// Handler returns the HTTP surface: the WebSocket endpoint plus health
// and metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled, then shuts down: no new rooms, every
// room's timers stopped, every connection closed.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: s.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting server", "addr", s.cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")
		s.registry.Shutdown()
		s.closeConnections()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handleWebSocket upgrades a client and starts its pumps
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(ws, s.logger, s.registry)
	s.addConnection(conn)
	conn.Start()

	go func() {
		<-conn.ctx.Done()
		s.removeConnection(conn)
	}()
}

// handleHealth reports liveness with current room and connection counts
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	conns := len(s.connections)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"rooms":       s.registry.Len(),
		"connections": conns,
	})
}

func (s *Server) addConnection(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = true
	n := len(s.connections)
	s.mu.Unlock()

	metrics.ActiveConnections.Set(float64(n))
	s.logger.Info("Client connected", "total", n)
}

// removeConnection drops a closed connection and hands each seat it held
// to its room's disconnect handling.
func (s *Server) removeConnection(conn *Connection) {
	s.mu.Lock()
	_, ok := s.connections[conn]
	if ok {
		delete(s.connections, conn)
	}
	n := len(s.connections)
	s.mu.Unlock()
	if !ok {
		return
	}

	metrics.ActiveConnections.Set(float64(n))
	for roomID, seatID := range conn.takeBindings() {
		if ctrl, err := s.registry.Get(roomID); err == nil {
			ctrl.Disconnect(seatID, conn)
		}
	}
	s.logger.Info("Client disconnected", "total", n)
}

func (s *Server) closeConnections() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
