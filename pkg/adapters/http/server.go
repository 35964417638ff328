// Package http exposes an App over HTTP: session runs, widget updates, SSE and WebSocket streams.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/aretw0/rerun"
	"github.com/aretw0/rerun/internal/logging"
	"github.com/aretw0/rerun/internal/presentation/graph"
	"github.com/aretw0/rerun/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App is the subset of *rerun.App the server drives.
type App interface {
	Run(ctx context.Context, sessionID string, script rerun.Script) rerun.Outcome
	UpdateWidget(ctx context.Context, sessionID, widgetKey string, value any) error
	SetURLContext(ctx context.Context, sessionID, path string, query map[string][]string) error
	SetDeveloper(ctx context.Context, sessionID string, developer bool) error
	Disconnect(ctx context.Context, sessionID string) error
	DeveloperReset(ctx context.Context) error
	Media(ctx context.Context, sessionID, hash string) (domain.MediaEntry, bool)
	Layout(ctx context.Context, sessionID string) ([]domain.ContainerLayout, error)
}

var _ App = (*rerun.App)(nil)

// Server holds the HTTP handlers.
type Server struct {
	App      App
	Script   rerun.Script
	Streams  *StreamManager
	Upgrader *websocket.Upgrader

	gatherer prometheus.Gatherer
	devMode  bool
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics serves the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithDevMode treats every client as a developer, not only loopback ones.
func WithDevMode(enabled bool) Option {
	return func(s *Server) {
		s.devMode = enabled
	}
}

// WithUpgrader sets a custom WebSocket upgrader.
func WithUpgrader(u *websocket.Upgrader) Option {
	return func(s *Server) {
		s.Upgrader = u
	}
}

// NewHandler creates the HTTP handler. streams must be the transport the App sends to.
func NewHandler(app App, script rerun.Script, streams *StreamManager, opts ...Option) http.Handler {
	s := &Server{
		App:     app,
		Script:  script,
		Streams: streams,
		Upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Post("/sessions", s.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/rerun", s.Rerun)
		r.Post("/widgets/{widgetKey}", s.UpdateWidget)
		r.Delete("/", s.Disconnect)
		r.Get("/events", s.SubscribeEvents)
		r.Get("/ws", s.Socket)
		r.Get("/media/{hash}", s.GetMedia)
		r.Get("/layout", s.GetLayout)
	})
	r.Post("/dev/reset", s.DeveloperReset)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RerunRequest optionally carries the client URL for the run.
type RerunRequest struct {
	Path  *string             `json:"path,omitempty"`
	Query map[string][]string `json:"query,omitempty"`
}

// WidgetRequest carries a client-reported widget value.
type WidgetRequest struct {
	Value any `json:"value"`
	// Rerun defaults to true.
	Rerun *bool `json:"rerun,omitempty"`
}

// RunResponse reports the outcome of a run.
type RunResponse struct {
	SessionID string `json:"session_id"`
	Outcome   string `json:"outcome"`
	Reruns    int    `json:"reruns,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": rerun.Version})
}

// CreateSession handles the POST /sessions request by allocating a fresh session ID and running
// the script once for it.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	if err := s.prepare(r, sessionID); err != nil {
		s.fail(w, err)
		return
	}
	s.run(w, r, sessionID)
}

// Rerun handles the POST /sessions/{sessionID}/rerun request.
func (s *Server) Rerun(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body RerunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Rerun: invalid request body", "err", err)
		return
	}
	if err := s.prepare(r, sessionID); err != nil {
		s.fail(w, err)
		return
	}
	if body.Path != nil {
		if err := s.App.SetURLContext(r.Context(), sessionID, *body.Path, body.Query); err != nil {
			s.fail(w, err)
			return
		}
	}
	s.run(w, r, sessionID)
}

// UpdateWidget handles the POST /sessions/{sessionID}/widgets/{widgetKey} request.
func (s *Server) UpdateWidget(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	key, err := url.PathUnescape(chi.URLParam(r, "widgetKey"))
	if err != nil {
		http.Error(w, "Invalid widget key", http.StatusBadRequest)
		return
	}

	var body WidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("UpdateWidget: invalid request body", "err", err)
		return
	}

	if err := s.App.UpdateWidget(r.Context(), sessionID, key, body.Value); err != nil {
		s.fail(w, err)
		return
	}
	if body.Rerun != nil && !*body.Rerun {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	s.run(w, r, sessionID)
}

// Disconnect handles the DELETE /sessions/{sessionID} request.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.App.Disconnect(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMedia handles the GET /sessions/{sessionID}/media/{hash} request.
func (s *Server) GetMedia(w http.ResponseWriter, r *http.Request) {
	m, ok := s.App.Media(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "hash"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", m.MimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(m.Data); err != nil {
		s.logger.Debug("Media write failed", "err", err)
	}
}

// GetLayout handles the GET /sessions/{sessionID}/layout request. With ?format=mermaid the
// container tree is returned as a Mermaid flowchart instead of JSON.
func (s *Server) GetLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := s.App.Layout(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if r.URL.Query().Get("format") == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, graph.GenerateMermaid(layout, nil))
		return
	}
	if layout == nil {
		layout = []domain.ContainerLayout{}
	}
	writeJSON(w, http.StatusOK, layout)
}

// DeveloperReset handles the POST /dev/reset request. Only developers may reset.
func (s *Server) DeveloperReset(w http.ResponseWriter, r *http.Request) {
	if !s.isDeveloper(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if err := s.App.DeveloperReset(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /sessions/{sessionID}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Info("SSE: client subscribed", "session_id", sessionID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) prepare(r *http.Request, sessionID string) error {
	return s.App.SetDeveloper(r.Context(), sessionID, s.isDeveloper(r))
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, sessionID string) {
	out := s.App.Run(r.Context(), sessionID, s.Script)
	resp := RunResponse{SessionID: sessionID, Outcome: string(out.Kind), Reruns: out.Reruns}
	status := http.StatusOK
	if out.Err != nil {
		resp.Error = out.Err.Error()
		if errors.Is(out.Err, domain.ErrIllegalState) {
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, resp)
}

// fail maps engine errors to HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrIllegalState):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) isDeveloper(r *http.Request) bool {
	return s.devMode || isLoopback(r.RemoteAddr)
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
