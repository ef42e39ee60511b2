package frame

import (
	"sync"

	"github.com/domreplay/recorder/internal/domcore"
)

// ShadowDomManager attaches a fresh observer set to every shadow root
// encountered, including roots opened after the initial full
// snapshot — the Go equivalent of intercepting attachShadow, done via
// each Element's AttachShadow call site notifying this manager
// instead of a patched prototype method.
type ShadowDomManager struct {
	mu       sync.Mutex
	attached map[domcore.ShadowRoot]bool
	onAttach func(root domcore.ShadowRoot, host domcore.Element)
}

// NewShadowDomManager constructs a ShadowDomManager. onAttach installs
// the observer set (mutation buffer, mouse/input/etc. observers) that
// the caller's recording facade uses for a top-level document, scoped
// to root's children instead of the whole document.
func NewShadowDomManager(onAttach func(root domcore.ShadowRoot, host domcore.Element)) *ShadowDomManager {
	return &ShadowDomManager{attached: make(map[domcore.ShadowRoot]bool), onAttach: onAttach}
}

// Attach registers root for observation if not already tracked.
func (m *ShadowDomManager) Attach(root domcore.ShadowRoot) {
	m.mu.Lock()
	if m.attached[root] {
		m.mu.Unlock()
		return
	}
	m.attached[root] = true
	m.mu.Unlock()
	if m.onAttach != nil {
		m.onAttach(root, root.Host())
	}
}

// IsAttached reports whether root has already been registered.
func (m *ShadowDomManager) IsAttached(root domcore.ShadowRoot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached[root]
}
