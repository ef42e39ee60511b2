package transport

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/domreplay/recorder/internal/config"
	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/record"
)

// ErrSessionNotFound is returned by Registry lookups for an unknown
// or already-stopped session id.
var ErrSessionNotFound = errors.New("transport: session not found")

// Session wraps one active *record.Recording together with the set
// of viewer connections subscribed to its event stream.
type Session struct {
	ID        string
	CreatedAt time.Time

	recording *record.Recording

	mu       sync.RWMutex
	viewers  map[*wsViewer]struct{}
	lastSeen time.Time
}

func (s *Session) broadcast(e event.Event, isCheckout bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for v := range s.viewers {
		v.send(e, isCheckout)
	}
	return nil
}

func (s *Session) addViewer(v *wsViewer) {
	s.mu.Lock()
	s.viewers[v] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) removeViewer(v *wsViewer) {
	s.mu.Lock()
	delete(s.viewers, v)
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idle(since time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastSeen) > since
}

// AddCustomEvent forwards to the underlying recording.
func (s *Session) AddCustomEvent(tag string, payload any) error {
	return s.recording.AddCustomEvent(tag, payload)
}

// Registry tracks every live demo recording session, mirroring the
// map-plus-RWMutex-plus-cleanup-ticker shape of the teacher's
// SessionManager.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTimeout     time.Duration
	cleanupInterval time.Duration
	cleanupDone     chan struct{}

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64

	logger *slog.Logger
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	IdleTimeout     time.Duration // default 10 minutes
	CleanupInterval time.Duration // default 1 minute
	Logger          *slog.Logger
}

// NewRegistry creates a Registry and starts its idle-session reaper.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 10 * time.Minute
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Registry{
		sessions:        make(map[string]*Session),
		idleTimeout:     opts.IdleTimeout,
		cleanupInterval: opts.CleanupInterval,
		cleanupDone:     make(chan struct{}),
		logger:          opts.Logger,
	}
	go r.cleanupLoop()
	return r
}

func newSessionID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Start creates a new recording over doc and registers it under a
// fresh session id. opts.Emit, when non-nil, is called first for each
// event, and the event is then broadcast to the session's viewers.
func (r *Registry) Start(doc domcore.Document, opts config.RecordOptions) (*Session, error) {
	sess := &Session{
		ID:        newSessionID(),
		CreatedAt: time.Now(),
		lastSeen:  time.Now(),
		viewers:   make(map[*wsViewer]struct{}),
	}

	userSink := opts.Emit
	opts.Emit = func(e event.Event, isCheckout bool) error {
		if userSink != nil {
			if err := userSink(e, isCheckout); err != nil {
				return err
			}
		}
		return sess.broadcast(e, isCheckout)
	}

	rec, err := record.Start(doc, opts)
	if err != nil {
		return nil, err
	}
	sess.recording = rec

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	r.totalCreated.Add(1)
	r.logger.Info("recording session started", "session_id", sess.ID)

	return sess, nil
}

// Get looks up a live session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch()
	return sess, nil
}

// Stop stops and unregisters a session.
func (r *Registry) Stop(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.recording.Stop()
	r.totalClosed.Add(1)
	r.logger.Info("recording session stopped", "session_id", id)
	return nil
}

// Len returns the number of currently live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.reapIdle()
		case <-r.cleanupDone:
			return
		}
	}
}

func (r *Registry) reapIdle() {
	r.mu.RLock()
	var stale []string
	for id, sess := range r.sessions {
		if sess.idle(r.idleTimeout) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		if err := r.Stop(id); err != nil {
			r.logger.Warn("cleanup: stop failed", "session_id", id, "error", err)
		}
	}
}

// Close stops the cleanup loop and every live session.
func (r *Registry) Close() {
	close(r.cleanupDone)
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		_ = r.Stop(id)
	}
}
