package observers

import (
	"sync"
	"time"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
)

// CanvasOptions configures canvas mutation sampling.
type CanvasOptions struct {
	// FPS caps how often a single canvas element may emit a
	// CanvasMutationData frame; zero emits on every draw completion.
	FPS float64

	// DataURLQuality is passed through to DataURL when capturing a
	// full-frame snapshot. 0 uses the binding's default.
	DataURLQuality float64

	// MimeType selects the image encoding DataURL produces ("image/webp"
	// by default in the original source).
	MimeType string
}

// CanvasObserver captures canvas mutations as full-frame data URLs on
// each completed draw call. Unlike the document-root delegated
// observers, a canvas has no bubbling "draw" DOM event to delegate, so
// the serializer registers each canvas element with Observe as it is
// discovered (see Serializer's OnSerialize hook in the recording
// facade), mirroring how the original source patches each canvas's
// own rendering context the first time it is seen.
type CanvasObserver struct {
	doc   domcore.Document
	opts  CanvasOptions
	getID IDResolver
	emit  func(event.Data)

	mu        sync.Mutex
	throttles map[domcore.Element]*throttle
	disposed  map[domcore.Element]domcore.Disposable
}

// NewCanvasObserver constructs a CanvasObserver.
func NewCanvasObserver(doc domcore.Document, opts CanvasOptions, getID IDResolver, emit func(event.Data)) *CanvasObserver {
	return &CanvasObserver{
		doc:       doc,
		opts:      opts,
		getID:     getID,
		emit:      emit,
		throttles: make(map[domcore.Element]*throttle),
		disposed:  make(map[domcore.Element]domcore.Disposable),
	}
}

// Observe registers el for draw-completion capture, if not already
// observed.
func (o *CanvasObserver) Observe(el domcore.CanvasElement) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.disposed[el]; ok {
		return
	}
	var interval time.Duration
	if o.opts.FPS > 0 {
		interval = time.Duration(float64(time.Second) / o.opts.FPS)
	}
	o.throttles[el] = newThrottle(interval)
	o.disposed[el] = el.OnDraw(func() { o.onDraw(el) })
}

// Unobserve stops capturing el, for when it is removed from the live
// tree.
func (o *CanvasObserver) Unobserve(el domcore.CanvasElement) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d, ok := o.disposed[el]; ok {
		d.Dispose()
		delete(o.disposed, el)
		delete(o.throttles, el)
	}
}

func (o *CanvasObserver) onDraw(el domcore.CanvasElement) {
	if el.IsBlank() {
		return
	}
	o.mu.Lock()
	t := o.throttles[el]
	o.mu.Unlock()
	if t != nil && !t.Allow() {
		return
	}
	id, ok := o.getID(el)
	if !ok {
		return
	}
	mime := o.opts.MimeType
	if mime == "" {
		mime = "image/webp"
	}
	dataURL := el.DataURL(mime, o.opts.DataURLQuality)
	o.emit(event.CanvasMutationData{Source: event.SourceCanvasMutation, ID: id, DataURL: dataURL})
}

// Dispose removes every observed canvas's draw hook.
func (o *CanvasObserver) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for el, d := range o.disposed {
		d.Dispose()
		delete(o.disposed, el)
		delete(o.throttles, el)
	}
}
