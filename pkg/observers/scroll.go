package observers

import (
	"time"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
)

// ScrollOptions configures scroll sampling.
type ScrollOptions struct {
	// Throttle is the minimum interval between emitted ScrollData
	// events for the same target. Zero disables throttling.
	Throttle time.Duration
}

// ScrollObserver delegates the (non-bubbling, capture-only in a real
// browser) scroll event. Because domfake's Element.Dispatch only models
// bubbling dispatch, callers that need scroll observed on arbitrary
// scrollable containers must still register via the document root
// delegated listener; domfake's Dispatch walks the ancestor chain so a
// listener attached at the root still observes descendant scrolls
// fired through Element.Dispatch.
type ScrollObserver struct {
	doc      domcore.Document
	getID    IDResolver
	emit     func(event.Data)
	throttle map[domcore.Node]*throttle
	window   time.Duration
	disposed domcore.Disposable
}

// NewScrollObserver constructs a ScrollObserver.
func NewScrollObserver(doc domcore.Document, opts ScrollOptions, getID IDResolver, emit func(event.Data)) *ScrollObserver {
	return &ScrollObserver{
		doc:      doc,
		getID:    getID,
		emit:     emit,
		throttle: make(map[domcore.Node]*throttle),
		window:   opts.Throttle,
	}
}

// Install attaches the delegated scroll listener.
func (o *ScrollObserver) Install() domcore.Disposable {
	o.disposed = o.doc.DocumentElement().AddEventListener("scroll", o.onScroll)
	return o.disposed
}

func (o *ScrollObserver) onScroll(e domcore.Event) {
	if e.Target == nil {
		return
	}
	t, ok := o.throttle[e.Target]
	if !ok {
		t = newThrottle(o.window)
		o.throttle[e.Target] = t
	}
	if !t.Allow() {
		return
	}
	id, ok := o.getID(e.Target)
	if !ok {
		return
	}
	o.emit(event.ScrollData{Source: event.SourceScroll, ID: id, X: e.ClientX, Y: e.ClientY})
}

// ViewportObserver reports window resize as a ViewportResizeData event.
type ViewportObserver struct {
	doc      domcore.Document
	emit     func(event.Data)
	disposed domcore.Disposable
}

// NewViewportObserver constructs a ViewportObserver.
func NewViewportObserver(doc domcore.Document, emit func(event.Data)) *ViewportObserver {
	return &ViewportObserver{doc: doc, emit: emit}
}

// Install subscribes to window resize.
func (o *ViewportObserver) Install() domcore.Disposable {
	o.disposed = o.doc.OnViewportResize(func(w, h int) {
		o.emit(event.ViewportResizeData{Source: event.SourceViewportResize, Width: w, Height: h})
	})
	return o.disposed
}
