// Package server implements the docket HTTP server, REST API, actor tokens,
// and SSE task activity.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GoCodeAlone/docket/comms"
	"github.com/GoCodeAlone/docket/config"
	"github.com/GoCodeAlone/docket/engine"
	"github.com/GoCodeAlone/docket/policy"
	"github.com/GoCodeAlone/docket/server/api"
	"github.com/GoCodeAlone/docket/task"
)

// Server is the docket HTTP server.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	svc      *engine.Service
	bus      comms.Bus
	handlers *api.Handlers

	routesOnce  sync.Once
	unsubscribe func()

	sseMu      sync.RWMutex
	sseClients map[chan []byte]sseClient

	// JWT secret caching
	secretOnce      sync.Once
	generatedSecret string

	version string
}

// sseClient is one event stream: the case it watches ("" = all) and the
// actor it was opened for.
type sseClient struct {
	caseID string
	actor  policy.Actor
}

// New creates a new Server with the given config and logger.
func New(cfg config.Config, ver string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		mux:        http.NewServeMux(),
		logger:     logger,
		sseClients: make(map[chan []byte]sseClient),
		version:    ver,
	}
}

// SetService attaches the task engine.
func (s *Server) SetService(svc *engine.Service) {
	s.svc = svc
}

// SetBus attaches the task activity bus.
func (s *Server) SetBus(bus comms.Bus) {
	s.bus = bus
}

// Handler returns the root handler with all routes registered.
func (s *Server) Handler() http.Handler {
	s.registerRoutes()
	return s.mux
}

// Start registers routes, relays bus events to SSE clients and begins
// listening.
func (s *Server) Start() error {
	s.registerRoutes()
	if s.bus != nil && s.unsubscribe == nil {
		s.unsubscribe = s.bus.Subscribe("", s.relay)
	}

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":9090"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes once.
func (s *Server) registerRoutes() {
	s.routesOnce.Do(func() {
		h := &api.Handlers{
			Service: s.svc,
			Bus:     s.bus,
			Logger:  s.logger,
			Version: s.version,
		}
		s.handlers = h

		// Public routes (no auth required)
		s.mux.HandleFunc("GET /api/status", h.StatusHandler())

		// SSE authenticates from the token query parameter.
		s.mux.Handle("GET /events", s.authMiddleware(http.HandlerFunc(s.handleSSE)))

		// Protected API
		apiMux := http.NewServeMux()
		h.RegisterRoutes(apiMux)
		s.mux.Handle("/api/", s.authMiddleware(apiMux))
	})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleSSE streams task activity as Server-Sent Events. The optional
// case_id query parameter narrows the stream to one case.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	actor, _ := api.ActorFrom(r.Context())
	ch := make(chan []byte, 64)
	s.sseMu.Lock()
	s.sseClients[ch] = sseClient{caseID: r.URL.Query().Get("case_id"), actor: actor}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseClients, ch)
		s.sseMu.Unlock()
	}()

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n") //nolint:errcheck
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			for _, line := range strings.Split(string(data), "\n") {
				fmt.Fprintf(w, "data: %s\n", line) //nolint:errcheck
			}
			fmt.Fprintln(w) //nolint:errcheck
			flusher.Flush()
		}
	}
}

// relay is the bus handler that forwards task events to SSE clients.
func (s *Server) relay(_ context.Context, ev *comms.Event) error {
	s.BroadcastEvent(ev)
	return nil
}

// BroadcastEvent sends ev to every SSE client watching its case. Clients
// watching a single case only receive events for tasks their actor may see.
func (s *Server) BroadcastEvent(ev *comms.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("broadcast event marshal", slog.Any("err", err))
		return
	}

	s.sseMu.RLock()
	defer s.sseMu.RUnlock()
	for ch, c := range s.sseClients {
		if c.caseID != "" && (c.caseID != ev.CaseID || !s.visible(c.actor, ev)) {
			continue
		}
		select {
		case ch <- data:
		default:
			s.logger.Debug("sse client lagging, event dropped", slog.String("event_id", ev.ID))
		}
	}
}

func (s *Server) visible(actor policy.Actor, ev *comms.Event) bool {
	if s.svc == nil {
		return actor.Role == task.RoleAdmin
	}
	return s.svc.EventVisible(actor, ev)
}

// clientCount reports connected SSE clients.
func (s *Server) clientCount() int {
	s.sseMu.RLock()
	defer s.sseMu.RUnlock()
	return len(s.sseClients)
}
