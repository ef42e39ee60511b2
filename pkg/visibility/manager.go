package visibility

import (
	"sync"
	"time"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
)

// FlushMode selects how a VisibilityManager paces emission of buffered
// visibility changes once a frame has produced at least one.
type FlushMode int

const (
	FlushNone FlushMode = iota
	FlushDebounce
	FlushThrottle
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Evaluator   Options
	RafThrottle time.Duration
	Mode        FlushMode
	Debounce    time.Duration
	Throttle    time.Duration
	Sensitivity float64 // minimum |Δratio| that counts as a change even without a visibility flip
}

// Manager drives an Evaluator on every animation frame (throttled by
// RafThrottle), diffs the result against the prior frame, and batches
// changed elements into one VisibilityMutation event per flush.
type Manager struct {
	doc       domcore.Document
	opts      ManagerOptions
	evaluator *Evaluator
	getID     func(domcore.Element) (int, bool)
	onEmit    func(event.VisibilityMutationData)
	onActivity func(count int)

	mu        sync.Mutex
	observed  map[domcore.Element]bool
	prev      map[domcore.Element]Entry
	pending   map[domcore.Element]Entry
	firstPass bool

	frozen bool
	locked bool
	running bool

	frameHandle   int
	lastRaf       time.Time
	lastEmit      time.Time
	debounceTimer *time.Timer

	moDispose domcore.Disposable
}

// NewManager returns a Manager bound to doc. getID resolves an element
// to the mirror id a VisibilityMutation entry should reference; onEmit
// receives each flushed batch; onActivity is called with the number of
// changed elements in each batch, for the emit pipeline's
// checkoutEveryNvm counter.
func NewManager(doc domcore.Document, opts ManagerOptions, getID func(domcore.Element) (int, bool), onEmit func(event.VisibilityMutationData), onActivity func(int)) *Manager {
	return &Manager{
		doc:       doc,
		opts:      opts,
		evaluator: New(opts.Evaluator),
		getID:     getID,
		onEmit:    onEmit,
		onActivity: onActivity,
		observed:  make(map[domcore.Element]bool),
		firstPass: true,
	}
}

// Observe adds el to the observed set.
func (m *Manager) Observe(el domcore.Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed[el] = true
}

// Unobserve removes el from the observed set.
func (m *Manager) Unobserve(el domcore.Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observed, el)
	delete(m.prev, el)
	delete(m.pending, el)
}

// Start begins the rAF loop and installs the document-subtree mutation
// observer that keeps the observed set synchronized with DOM add/remove.
func (m *Manager) Start() {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	mo := m.doc.NewMutationObserver(m.onBodyMutation)
	mo.Observe(m.doc.DocumentElement(), domcore.MutationObserverInit{ChildList: true, Subtree: true})
	m.moDispose = domcore.DisposeFunc(mo.Disconnect)

	m.scheduleFrame()
}

func (m *Manager) onBodyMutation(records []domcore.MutationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		for _, n := range r.RemovedNodes {
			if el, ok := n.(domcore.Element); ok {
				delete(m.observed, el)
				delete(m.prev, el)
				delete(m.pending, el)
			}
		}
		for _, n := range r.AddedNodes {
			if el, ok := n.(domcore.Element); ok {
				m.observed[el] = true
			}
		}
	}
}

func (m *Manager) scheduleFrame() {
	m.frameHandle = m.doc.AnimationFrames().RequestFrame(m.onFrame)
}

func (m *Manager) onFrame() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	defer func() {
		m.mu.Lock()
		if m.running {
			m.scheduleFrame()
		}
		m.mu.Unlock()
	}()

	if m.frozen || m.locked || len(m.observed) == 0 {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	if !m.lastRaf.IsZero() && now.Sub(m.lastRaf) < m.opts.RafThrottle {
		m.mu.Unlock()
		return
	}
	m.lastRaf = now

	elements := make([]domcore.Element, 0, len(m.observed))
	for el := range m.observed {
		elements = append(elements, el)
	}
	viewportW, viewportH := m.doc.Viewport()
	viewportRect := domcore.Rect{Top: 0, Left: 0, Right: float64(viewportW), Bottom: float64(viewportH)}

	entries := m.evaluator.Evaluate(elements, viewportRect)

	skipBuffering := m.firstPass
	m.firstPass = false

	if !skipBuffering {
		if m.pending == nil {
			m.pending = make(map[domcore.Element]Entry)
		}
		for el, cur := range entries {
			prior, had := m.prev[el]
			if !had || prior.IsVisible != cur.IsVisible || absFloat(cur.Ratio-prior.Ratio) > m.opts.Sensitivity {
				m.pending[el] = cur
			}
		}
	}
	m.prev = entries
	m.mu.Unlock()

	m.applyFlushPolicy(now)
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func (m *Manager) applyFlushPolicy(now time.Time) {
	switch m.opts.Mode {
	case FlushNone:
		m.flush()
	case FlushDebounce:
		m.mu.Lock()
		if m.debounceTimer != nil {
			m.debounceTimer.Stop()
		}
		m.debounceTimer = time.AfterFunc(m.opts.Debounce, m.flush)
		m.mu.Unlock()
	case FlushThrottle:
		m.mu.Lock()
		ready := m.lastEmit.IsZero() || now.Sub(m.lastEmit) >= m.opts.Throttle
		m.mu.Unlock()
		if ready {
			m.flush()
		}
	}
}

// flush delivers every pending entry as one VisibilityMutation batch.
func (m *Manager) flush() {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	batch := m.pending
	m.pending = nil
	m.lastEmit = time.Now()
	m.mu.Unlock()

	var mutations []event.VisibilityEntry
	for el, e := range batch {
		id, ok := m.getID(el)
		if !ok {
			continue
		}
		mutations = append(mutations, event.VisibilityEntry{ID: id, IsVisible: e.IsVisible, Ratio: e.Ratio})
	}
	if len(mutations) == 0 {
		return
	}
	if m.onEmit != nil {
		m.onEmit(event.VisibilityMutationData{Source: event.SourceVisibilityMutation, Mutations: mutations})
	}
	if m.onActivity != nil {
		m.onActivity(len(mutations))
	}
}

// Current returns the most recently evaluated Entry for el, if any.
// The serializer uses this to stamp IsVisible on a freshly added node
// without waiting for the next animation frame.
func (m *Manager) Current(el domcore.Element) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.prev[el]
	return e, ok
}

// Freeze suspends the frame loop's evaluation (frames still fire but
// are no-ops) without canceling it.
func (m *Manager) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frozen = true
}

// Unfreeze resumes evaluation.
func (m *Manager) Unfreeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frozen = false
}

// Lock suspends evaluation during a full snapshot.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = true
}

// Unlock resumes evaluation after a full snapshot completes.
func (m *Manager) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = false
}

// Reset cancels the pending animation frame and outstanding debounce
// timer and clears every buffer, as on recorder stop.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	if m.frameHandle != 0 {
		m.doc.AnimationFrames().CancelFrame(m.frameHandle)
		m.frameHandle = 0
	}
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
		m.debounceTimer = nil
	}
	if m.moDispose != nil {
		m.moDispose.Dispose()
		m.moDispose = nil
	}
	m.observed = make(map[domcore.Element]bool)
	m.prev = nil
	m.pending = nil
	m.firstPass = true
}
