// Package inspect serves a read-only debug view of a pulse graph: a JSON
// snapshot of nodes and edges, a websocket feed of change notifications, and
// the Prometheus scrape endpoint.
//
// Everything the snapshot reports comes from the engine's introspection
// queries; the inspector never walks or mutates the graph behind the engine's
// back.
package inspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulse-dev/pulse/pkg/pulse"
)

// NodeInfo is one node in the graph snapshot.
type NodeInfo struct {
	Name    string   `json:"name"`
	ID      uint64   `json:"id"`
	Kind    string   `json:"kind"` // "state" or "computed"
	Live    bool     `json:"live"`
	Dirty   bool     `json:"dirty"`
	Sources []uint64 `json:"sources,omitempty"`
	Sinks   []uint64 `json:"sinks,omitempty"`
}

// Snapshot is the full /graph response.
type Snapshot struct {
	Revision uint64     `json:"revision"`
	Nodes    []NodeInfo `json:"nodes"`
}

// ChangeEvent is pushed to /live clients after a write episode.
type ChangeEvent struct {
	Type     string   `json:"type"` // always "change"
	Revision uint64   `json:"revision"`
	Pending  []string `json:"pending"`
}

// Server is the inspector HTTP server.
type Server struct {
	cfg Config
	reg *Registry
	log *slog.Logger

	watcher *pulse.Watcher
	changes chan struct{}
	done    chan struct{}
	stop    sync.Once

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

// NewServer creates an inspector over the given registry. Call Start (or Run)
// to arm the change feed.
func NewServer(cfg Config, reg *Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		reg:     reg,
		log:     log,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Debug tooling: any origin may connect.
				return true
			},
		},
	}
	s.watcher = pulse.NewWatcher(func() {
		// Contract: no signal access in here. Just wake the pump.
		select {
		case s.changes <- struct{}{}:
		default:
		}
	})
	return s
}

// Handler returns the inspector routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/graph", s.handleGraph)
	r.Get("/live", s.handleLive)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start watches every registered node and starts the broadcast pump.
// Note that the feed is itself a Watcher: while it runs, every registered
// node is live, and snapshots report it among the sinks.
func (s *Server) Start() {
	s.watcher.Watch(s.reg.Nodes()...)
	go s.pump()
}

// Stop unwatches everything and stops the pump. Safe to call once.
func (s *Server) Stop() {
	s.stop.Do(func() {
		close(s.done)
		s.watcher.Unwatch(s.reg.Nodes()...)
	})
}

// Run starts the feed and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.Start()
	defer s.Stop()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("inspector listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// pump turns watcher wake-ups into websocket broadcasts. Probing and
// re-arming happen here, outside the notify callback, as the engine requires.
func (s *Server) pump() {
	for {
		select {
		case <-s.done:
			return
		case <-s.changes:
		}

		pending := s.watcher.Pending()
		names := make([]string, 0, len(pending))
		for _, src := range pending {
			if name := s.reg.Name(src.ID()); name != "" {
				names = append(names, name)
			}
		}
		s.watcher.Watch() // re-arm for the next episode

		s.broadcast(ChangeEvent{
			Type:     "change",
			Revision: pulse.CurrentRevision(),
			Pending:  names,
		})
	}
}

func (s *Server) broadcast(ev ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("marshal change event", "error", err)
		return
	}

	s.clientsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clientsMu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.removeClient(conn)
		}
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	snapshot := s.snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.log.Error("encode snapshot", "error", err)
	}
}

func (s *Server) snapshot() Snapshot {
	nodes := s.reg.Nodes()
	out := Snapshot{
		Revision: pulse.CurrentRevision(),
		Nodes:    make([]NodeInfo, 0, len(nodes)),
	}

	for _, src := range nodes {
		info := NodeInfo{
			Name:  s.reg.Name(src.ID()),
			ID:    src.ID(),
			Kind:  "state",
			Live:  pulse.IsLive(src),
			Dirty: pulse.IsDirty(src),
		}
		// Only derived nodes have a dependency list.
		if dep, ok := src.(pulse.Dependent); ok {
			info.Kind = "computed"
			for _, dsrc := range pulse.SourcesOf(dep) {
				info.Sources = append(info.Sources, dsrc.ID())
			}
		}
		for _, sink := range pulse.SinksOf(src) {
			info.Sinks = append(info.Sinks, sink.ID())
		}
		out.Nodes = append(out.Nodes, info)
	}
	return out
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	// Hold the connection until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.removeClient(conn)
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	delete(s.clients, conn)
	s.clientsMu.Unlock()
	conn.Close()
}
