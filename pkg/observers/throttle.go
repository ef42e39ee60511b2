// Package observers implements the recorder's per-source incremental
// observers: mouse/touch movement and interaction, scroll, viewport
// resize, form input, media playback, stylesheet and style-declaration
// changes, canvas mutation, font loading, selection, and custom
// element definition. Each observer installs itself on a
// internal/domcore.Document and emits pkg/event payloads through an
// injected sink, independent of how those events eventually reach the
// wire (pkg/emit owns timestamping, the plugin chain, and checkout).
package observers

import (
	"sync"
	"time"
)

// throttle enforces a minimum interval between allowed actions. The
// zero value allows every call (no throttling).
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

// Allow reports whether enough time has passed since the last allowed
// call, and if so records now as the new last-allowed time.
func (t *throttle) Allow() bool {
	if t == nil || t.interval <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if t.last.IsZero() || now.Sub(t.last) >= t.interval {
		t.last = now
		return true
	}
	return false
}

// debouncer restarts a timer on every Fire call and invokes fn only
// once the timer elapses without a further Fire.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

func (d *debouncer) Fire(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
