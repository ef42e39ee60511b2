package visibility

import (
	"strings"
	"sync"

	"github.com/domreplay/recorder/internal/domcore"
)

// interactiveEventTypes is the fixed set of event types whose
// registration marks an element known-interactive, per the design
// this fork follows for its addEventListener patch.
var interactiveEventTypes = map[string]bool{
	"click": true, "dblclick": true, "contextmenu": true,
	"mousedown": true, "mouseup": true, "mouseenter": true, "mouseleave": true,
	"keydown": true, "keyup": true, "keypress": true,
	"input": true, "change": true, "submit": true,
	"pointerdown": true, "pointerup": true,
	"touchstart": true, "touchmove": true, "touchend": true, "touchcancel": true,
	"focus": true, "blur": true,
	"dragstart": true, "drop": true,
}

var fixedInteractiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true,
	"label": true, "details": true, "summary": true, "dialog": true,
	"video": true, "audio": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "switch": true, "menuitem": true,
}

// Registry tracks elements observed to have received a listener for an
// event in interactiveEventTypes. It is the Go equivalent of the
// design's patched EventTarget.prototype.addEventListener: rather than
// monkey-patching a prototype (there is none to patch in a
// non-browser binding), it subscribes to
// domcore.Document.OnListenerRegistered, which every binding commits to
// firing for every listener registration anywhere in the document.
//
// Membership is monotonic for the registry's lifetime: removeEventListener
// is not observed, so an element never loses interactive status once
// granted it. This is a deliberate, documented over-approximation.
type Registry struct {
	mu    sync.RWMutex
	known map[domcore.Element]bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{known: make(map[domcore.Element]bool)}
}

// Install subscribes to doc's listener-registration hook and performs
// the one-time startup scan for inline on* attributes. The returned
// Disposable unsubscribes the hook; it does not forget already-known
// elements.
func (r *Registry) Install(doc domcore.Document) domcore.Disposable {
	r.scanInlineHandlers(doc.DocumentElement())
	return doc.OnListenerRegistered(func(el domcore.Element, eventType string) {
		if !interactiveEventTypes[eventType] {
			return
		}
		r.mu.Lock()
		r.known[el] = true
		r.mu.Unlock()
	})
}

func (r *Registry) scanInlineHandlers(el domcore.Element) {
	if el == nil {
		return
	}
	for _, a := range el.Attributes() {
		if strings.HasPrefix(a.Name, "on") && len(a.Name) > 2 {
			r.mu.Lock()
			r.known[el] = true
			r.mu.Unlock()
			break
		}
	}
	for _, c := range el.ChildNodes() {
		if ce, ok := c.(domcore.Element); ok {
			r.scanInlineHandlers(ce)
		}
	}
	if sr, ok := el.ShadowRoot(); ok {
		for _, c := range sr.ChildNodes() {
			if ce, ok := c.(domcore.Element); ok {
				r.scanInlineHandlers(ce)
			}
		}
	}
}

func (r *Registry) isKnown(el domcore.Element) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.known[el]
}

// IsInteractive classifies el per the fixed-tag/tabindex/ARIA-role
// rules plus registry membership.
func (r *Registry) IsInteractive(el domcore.Element) bool {
	tag := el.TagName()
	if fixedInteractiveTags[tag] {
		if tag == "button" {
			return !isDisabled(el)
		}
		if tag == "a" {
			_, hasHref := el.GetAttribute("href")
			return hasHref
		}
		return true
	}
	if ti, ok := el.GetAttribute("tabindex"); ok && ti != "-1" {
		return true
	}
	if role, ok := el.GetAttribute("role"); ok && interactiveRoles[role] {
		return true
	}
	return r.isKnown(el)
}

func isDisabled(el domcore.Element) bool {
	_, ok := el.GetAttribute("disabled")
	return ok
}
