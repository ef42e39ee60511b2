package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/domreplay/recorder/internal/config"
	"github.com/domreplay/recorder/internal/domfake"
)

// Server is the demo HTTP host: it exposes session lifecycle and
// event-stream endpoints over a Registry, mounted on a chi router the
// way the teacher's chassis mounts each registered service.
type Server struct {
	registry *Registry
	router   *chi.Mux
	logger   *slog.Logger

	// newOptions builds a fresh config.RecordOptions for each started
	// session. Registry.Start wraps the returned value's Emit: it is
	// called first for each event, then the event is fanned out to
	// viewers; set it to record additional sinks (e.g.
	// telemetry.WrapSink, an archive writer) if needed.
	newOptions func() config.RecordOptions
}

// NewServer builds a Server with routes mounted and returns it ready
// for http.ListenAndServe.
func NewServer(registry *Registry, newOptions func() config.RecordOptions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{registry: registry, newOptions: newOptions, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Post("/record", s.handleStart)
	r.Route("/record/{id}", func(r chi.Router) {
		r.Get("/events", s.handleEvents)
		r.Delete("/", s.handleStop)
	})

	s.router = r
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.registry.Len()})
}

type startRequest struct {
	ViewportWidth  int `json:"viewport_width"`
	ViewportHeight int `json:"viewport_height"`
}

type startResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.ViewportWidth == 0 {
		req.ViewportWidth = 1280
	}
	if req.ViewportHeight == 0 {
		req.ViewportHeight = 800
	}

	doc := domfake.NewDocument(req.ViewportWidth, req.ViewportHeight)
	opts := s.newOptions()

	sess, err := s.registry.Start(doc, opts)
	if err != nil {
		s.logger.Error("start recording failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{ID: sess.ID})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.registry.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := ServeViewer(w, r, sess, s.logger); err != nil {
		s.logger.Error("viewer stream failed", "session_id", id, "error", err)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Stop(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
