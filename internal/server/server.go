// Package server exposes the session over HTTP: read-only views, a command
// endpoint routed through the dispatcher, and a websocket frame stream.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pitwall/pitwall/internal/config"
	"github.com/pitwall/pitwall/internal/dispatcher"
	"github.com/pitwall/pitwall/internal/parser"
	"github.com/pitwall/pitwall/internal/session"
	"github.com/pitwall/pitwall/internal/views"
	"github.com/pitwall/pitwall/internal/worker"
	"github.com/pitwall/pitwall/pkg/core"
	"github.com/pitwall/pitwall/pkg/streaming"
)

const maxCommandBody = 64 << 10

// Dependencies holds everything the handlers read from.
type Dependencies struct {
	Session    *session.Session
	Dispatcher *dispatcher.Dispatcher
	Views      *views.Builder
	Hub        *Hub
	Logger     *slog.Logger
	Version    string
}

// Server is the HTTP API.
type Server struct {
	cfg      config.ServerConfig
	deps     Dependencies
	logger   *slog.Logger
	mux      *http.ServeMux
	commands map[string]struct{}
}

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// CommandResponse is returned for an accepted command.
type CommandResponse struct {
	Command string `json:"command"`
	Result  any    `json:"result"`
}

// CatalogResponse lists what can be selected.
type CatalogResponse struct {
	Drivers   []core.Driver                       `json:"drivers"`
	Tracks    []TrackInfo                         `json:"tracks"`
	Compounds []core.TireCompound                 `json:"compounds"`
	Tires     map[core.TireCompound]core.TireSpec `json:"tires"`
}

// TrackInfo is a catalog track without its path data.
type TrackInfo struct {
	Name   string  `json:"name"`
	Length float64 `json:"length"`
}

// StrategyResponse is one driver's plan and, once data is loaded, its projection.
type StrategyResponse struct {
	Slot       int                 `json:"slot"`
	Status     session.Status      `json:"status"`
	RaceLength int                 `json:"raceLength"`
	Stops      []core.PitStop      `json:"stops"`
	Laps       []core.ProjectedLap `json:"laps,omitempty"`
	TotalTime  float64             `json:"totalTime,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates the server and its routes.
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(cfg.ClientBuffer, deps.Logger)
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.With("component", "server"),
		mux:      http.NewServeMux(),
		commands: make(map[string]struct{}, len(worker.ClientCommands)),
	}
	for _, c := range worker.ClientCommands {
		s.commands[c] = struct{}{}
	}
	if deps.Hub.Status == nil {
		deps.Hub.Status = s.status
	}

	s.mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)
	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	s.mux.HandleFunc("POST /api/command", s.handleCommand)
	s.mux.HandleFunc("GET /api/strategy/{slot}", s.handleStrategy)
	s.mux.Handle("GET /ws", deps.Hub)
	return s
}

// Hub returns the websocket hub frames should be broadcast to.
func (s *Server) Hub() *Hub {
	return s.deps.Hub
}

// Handler returns the routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.deps.Hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP API: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.deps.Version,
		"session": s.deps.Session.ID(),
		"clients": s.deps.Hub.Clients(),
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.deps.Session.Catalog()
	resp := CatalogResponse{
		Drivers:   cat.Drivers(),
		Compounds: cat.Compounds(),
		Tires:     cat.Tires(),
	}
	for _, t := range cat.Tracks() {
		resp.Tracks = append(resp.Tracks, TrackInfo{Name: t.Name, Length: t.Length})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Views.Dashboard(s.deps.Session.State()))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid command body: %w", err))
		return
	}
	if _, ok := s.commands[req.Command]; !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", dispatcher.ErrUnknownCommand, req.Command))
		return
	}

	result, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{Command: req.Command, Args: req.Args})
	if err != nil {
		writeError(w, commandStatus(err), err)
		return
	}
	s.deps.Hub.BroadcastStatus(s.status())
	writeJSON(w, http.StatusOK, CommandResponse{Command: req.Command, Result: result})
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, dispatcher.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, dispatcher.ErrQueueFull), errors.Is(err, dispatcher.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, parser.ErrArgCount),
		errors.Is(err, parser.ErrInvalidArg),
		errors.Is(err, session.ErrUnknownDriver),
		errors.Is(err, session.ErrUnknownTrack),
		errors.Is(err, session.ErrInvalidSlot):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil || (n != 1 && n != 2) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: slot %q, want 1 or 2", parser.ErrInvalidArg, r.PathValue("slot")))
		return
	}

	st := s.deps.Session.State()
	idx := n - 1
	resp := StrategyResponse{
		Slot:       n,
		Status:     st.Status,
		RaceLength: st.RaceLength,
		Stops:      st.Stops[idx],
	}
	if st.Status == session.StatusReady && st.Data != nil {
		base := st.Data.Slot(idx).LapData.LapTime
		laps, err := s.deps.Views.Evaluator().Project(base, resp.Stops, st.RaceLength)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Laps = laps
			for _, l := range laps {
				resp.TotalTime += l.LapTime
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) status() streaming.StatusPayload {
	st, err := s.deps.Session.Status()
	p := streaming.StatusPayload{
		SessionID: s.deps.Session.ID(),
		Status:    string(st),
		Phase:     s.deps.Session.Snapshot().Phase.String(),
	}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack passes websocket upgrades through to the underlying writer.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
