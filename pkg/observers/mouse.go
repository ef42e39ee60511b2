package observers

import (
	"sync"
	"time"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
)

// IDResolver looks up the mirror id assigned to a live node. Observers
// that cannot resolve an id (the node was never serialized, e.g. it is
// blocked) drop the sample rather than emit a dangling reference.
type IDResolver func(node domcore.Node) (int, bool)

// InteractionSampling toggles individual mouse/touch interaction
// subtypes on or off; a nil entry defaults to enabled. It mirrors
// internal/config.MouseInteractionSampling rather than importing that
// package, the same way InputOptions mirrors snapshot.Options's
// masking fields.
type InteractionSampling struct {
	MouseUp     *bool
	MouseDown   *bool
	Click       *bool
	ContextMenu *bool
	DblClick    *bool
	Focus       *bool
	Blur        *bool
	TouchStart  *bool
	TouchEnd    *bool
}

func (s InteractionSampling) enabled(kind event.MouseInteractionKind) bool {
	var p *bool
	switch kind {
	case event.MouseInteractionMouseUp:
		p = s.MouseUp
	case event.MouseInteractionMouseDown:
		p = s.MouseDown
	case event.MouseInteractionClick:
		p = s.Click
	case event.MouseInteractionContextMenu:
		p = s.ContextMenu
	case event.MouseInteractionDblClick:
		p = s.DblClick
	case event.MouseInteractionFocus:
		p = s.Focus
	case event.MouseInteractionBlur:
		p = s.Blur
	case event.MouseInteractionTouchStart:
		p = s.TouchStart
	case event.MouseInteractionTouchEnd:
		p = s.TouchEnd
	}
	return p == nil || *p
}

// MouseOptions configures mouse/touch sampling per spec §6's
// sampling.mousemove/mouseInteraction table.
type MouseOptions struct {
	// MoveBatchWindow is how long to accumulate mousemove/touchmove
	// samples before flushing a MouseMoveData event. Zero flushes every
	// sample immediately.
	MoveBatchWindow time.Duration

	// DisableInteraction turns off click/mousedown/focus/blur/etc.
	DisableInteraction bool

	// Sampling toggles individual interaction subtypes within the set
	// DisableInteraction leaves enabled.
	Sampling InteractionSampling
}

// MouseObserver delegates mousemove, touchmove, and discrete mouse
// interaction events from a single document-root listener, batching
// movement samples the way the original source's mouse observer does.
type MouseObserver struct {
	doc     domcore.Document
	opts    MouseOptions
	getID   IDResolver
	emit    func(event.Data)
	start   time.Time

	mu       sync.Mutex
	buffered []event.MousePosition
	flusher  *debouncer
	disposed []domcore.Disposable
}

// NewMouseObserver constructs a MouseObserver. start is the recording
// start time, used to compute each sample's timeOffset.
func NewMouseObserver(doc domcore.Document, opts MouseOptions, getID IDResolver, emit func(event.Data), start time.Time) *MouseObserver {
	o := &MouseObserver{doc: doc, opts: opts, getID: getID, emit: emit, start: start}
	if opts.MoveBatchWindow > 0 {
		o.flusher = newDebouncer(opts.MoveBatchWindow)
	}
	return o
}

// Install attaches delegated listeners at the document root and
// returns a handle that removes them all.
func (o *MouseObserver) Install() domcore.Disposable {
	root := o.doc.DocumentElement()
	o.disposed = append(o.disposed,
		root.AddEventListener("mousemove", o.onMove),
		root.AddEventListener("touchmove", o.onMove),
	)
	if !o.opts.DisableInteraction {
		kinds := map[string]event.MouseInteractionKind{
			"mouseup":     event.MouseInteractionMouseUp,
			"mousedown":   event.MouseInteractionMouseDown,
			"click":       event.MouseInteractionClick,
			"contextmenu": event.MouseInteractionContextMenu,
			"dblclick":    event.MouseInteractionDblClick,
			"focus":       event.MouseInteractionFocus,
			"blur":        event.MouseInteractionBlur,
			"touchstart":  event.MouseInteractionTouchStart,
			"touchend":    event.MouseInteractionTouchEnd,
		}
		for evType, kind := range kinds {
			k := kind
			o.disposed = append(o.disposed, root.AddEventListener(evType, func(e domcore.Event) {
				o.onInteraction(e, k)
			}))
		}
	}
	return domcore.DisposeFunc(func() {
		for _, d := range o.disposed {
			if d != nil {
				d.Dispose()
			}
		}
		if o.flusher != nil {
			o.flusher.Stop()
		}
	})
}

func (o *MouseObserver) onMove(e domcore.Event) {
	id, ok := o.resolveTarget(e)
	if !ok {
		return
	}
	pos := event.MousePosition{
		X:          e.ClientX,
		Y:          e.ClientY,
		ID:         id,
		TimeOffset: time.Since(o.start).Milliseconds(),
	}
	o.mu.Lock()
	o.buffered = append(o.buffered, pos)
	o.mu.Unlock()

	if o.flusher == nil {
		o.Flush()
		return
	}
	o.flusher.Fire(o.Flush)
}

// Flush emits any buffered movement samples as a single MouseMoveData
// event, batching per the original source's positions array.
func (o *MouseObserver) Flush() {
	o.mu.Lock()
	if len(o.buffered) == 0 {
		o.mu.Unlock()
		return
	}
	positions := o.buffered
	o.buffered = nil
	o.mu.Unlock()
	o.emit(event.MouseMoveData{Source: event.SourceMouseMove, Positions: positions})
}

func (o *MouseObserver) onInteraction(e domcore.Event, kind event.MouseInteractionKind) {
	if !o.opts.Sampling.enabled(kind) {
		return
	}
	id, ok := o.resolveTarget(e)
	if !ok {
		return
	}
	o.emit(event.MouseInteractionData{
		Source: event.SourceMouseInteraction,
		Type:   kind,
		ID:     id,
		X:      e.ClientX,
		Y:      e.ClientY,
	})
}

func (o *MouseObserver) resolveTarget(e domcore.Event) (int, bool) {
	if e.Target == nil {
		return 0, false
	}
	return o.getID(e.Target)
}
