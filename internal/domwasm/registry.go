//go:build js && wasm

package domwasm

import (
	"sync"
	"syscall/js"

	"github.com/domreplay/recorder/internal/domcore"
)

// registry hands out a stable Go wrapper per live JS node, keyed by
// the expando id stamped onto the node on first sight.
type registry struct {
	mu      sync.Mutex
	nextID  int
	byID    map[int]domcore.Node
}

var reg = &registry{byID: make(map[int]domcore.Node)}

// idOf returns the stable id for v, stamping a fresh one if v has
// never been wrapped before.
func (r *registry) idOf(v js.Value) int {
	existing := v.Get(expandoKey)
	if !existing.IsUndefined() {
		return existing.Int()
	}
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.mu.Unlock()
	js.Global().Get("Object").Call("defineProperty", v, expandoKey, map[string]any{
		"value":        id,
		"enumerable":   false,
		"configurable": false,
		"writable":     false,
	})
	return id
}

// wrapNode returns the cached wrapper for v, or constructs and caches
// a fresh one keyed by v's node type.
func wrapNode(v js.Value) domcore.Node {
	if isNullish(v) {
		return nil
	}
	id := reg.idOf(v)

	reg.mu.Lock()
	if n, ok := reg.byID[id]; ok {
		reg.mu.Unlock()
		return n
	}
	reg.mu.Unlock()

	var n domcore.Node
	switch nodeTypeOf(v) {
	case domcore.NodeDocument:
		n = newDocument(v)
	case domcore.NodeElement:
		n = newElementFor(v)
	case domcore.NodeDocumentFragment:
		n = newShadowRoot(v)
	case domcore.NodeText, domcore.NodeComment, domcore.NodeCDATA:
		n = newCharacterData(v)
	case domcore.NodeDocumentType:
		n = newDocumentType(v)
	default:
		n = newElement(v)
	}

	reg.mu.Lock()
	reg.byID[id] = n
	reg.mu.Unlock()
	return n
}

func wrapElement(v js.Value) domcore.Element {
	if isNullish(v) {
		return nil
	}
	if el, ok := wrapNode(v).(domcore.Element); ok {
		return el
	}
	return newElement(v)
}

// nodeTypeOf maps the DOM's numeric Node.nodeType to domcore.NodeType.
func nodeTypeOf(v js.Value) domcore.NodeType {
	switch v.Get("nodeType").Int() {
	case 1:
		return domcore.NodeElement
	case 3:
		return domcore.NodeText
	case 8:
		return domcore.NodeComment
	case 4:
		return domcore.NodeCDATA
	case 9:
		return domcore.NodeDocument
	case 10:
		return domcore.NodeDocumentType
	case 11:
		return domcore.NodeDocumentFragment
	default:
		return domcore.NodeElement
	}
}

// Wrap adapts the browser's global document into a domcore.Document.
// Call once at startup; the result is safe to pass to
// config.RecordOptions-driven pkg/record.Start.
func Wrap(doc js.Value) domcore.Document {
	d, _ := wrapNode(doc).(domcore.Document)
	return d
}
