package frame

import (
	"sync"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/snapshot"
)

// CrossOriginMirror rewrites a child (cross-origin iframe) recorder's
// locally assigned ids into the parent recorder's id space. One
// instance is kept per cross-origin iframe, matching the original
// source's crossOriginIframeMirror.
type CrossOriginMirror struct {
	mu        sync.Mutex
	childToParent map[int]int
	nextParentID  func() int
}

// NewCrossOriginMirror constructs a mirror that allocates parent-space
// ids via nextParentID, a callback into the parent recorder's own
// mirror sequence so child ids never collide with natively serialized
// parent ids.
func NewCrossOriginMirror(nextParentID func() int) *CrossOriginMirror {
	return &CrossOriginMirror{childToParent: make(map[int]int), nextParentID: nextParentID}
}

// Translate returns the parent-space id for a child-local id, minting
// one on first use.
func (m *CrossOriginMirror) Translate(childID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.childToParent[childID]; ok {
		return id
	}
	id := m.nextParentID()
	m.childToParent[childID] = id
	return id
}

// IframeEntry describes one tracked iframe.
type IframeEntry struct {
	ID          int
	Element     domcore.IframeElement
	SameOrigin  bool
	CrossMirror *CrossOriginMirror // non-nil only when !SameOrigin
}

// IframeManager tracks same-origin iframes for recursive observation
// and cross-origin iframes for postMessage-forwarded id translation.
type IframeManager struct {
	mu       sync.Mutex
	entries  map[int]*IframeEntry
	onAttach func(entry *IframeEntry, doc domcore.Document)
	nextID   func() int
}

// NewIframeManager constructs an IframeManager. onAttach is invoked
// for each newly tracked same-origin iframe so the caller (the
// recording facade) can install a fresh observer set on its nested
// document. nextID mints new parent-space mirror ids, used to
// translate forwarded cross-origin child ids.
func NewIframeManager(onAttach func(entry *IframeEntry, doc domcore.Document), nextID func() int) *IframeManager {
	return &IframeManager{entries: make(map[int]*IframeEntry), onAttach: onAttach, nextID: nextID}
}

// AttachIframe registers iframeID (the iframe element's own mirror
// id) as a tracked iframe. For a same-origin iframe, onAttach fires
// immediately with the nested document so the caller can recurse
// recording into it, mirroring §4.7's "on attach, registers the
// iframe element id and recurses observers into its document".
func (m *IframeManager) AttachIframe(iframeID int, el domcore.IframeElement) *IframeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[iframeID]; ok {
		return e
	}
	doc, sameOrigin := el.ContentDocument()
	e := &IframeEntry{ID: iframeID, Element: el, SameOrigin: sameOrigin}
	if !sameOrigin {
		e.CrossMirror = NewCrossOriginMirror(m.nextID)
	}
	m.entries[iframeID] = e
	if sameOrigin && m.onAttach != nil {
		m.onAttach(e, doc)
	}
	return e
}

// Entry returns the tracked entry for iframeID.
func (m *IframeManager) Entry(iframeID int) (*IframeEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[iframeID]
	return e, ok
}

// ForwardedMessage is the shape a child frame posts via
// postMessage({type:'rrweb', event, origin, isCheckout}).
type ForwardedMessage struct {
	Event      event.Event
	Origin     string
	IsCheckout bool
}

// ReceiveForwarded rewrites a cross-origin child's event ids into the
// parent's id space and returns the translated event for the parent's
// own emit pipeline to pack and pass to its sink. Packing is skipped
// for these events at the call site (the emit pipeline), since the
// parent packs once per spec §4.8.
func (m *IframeManager) ReceiveForwarded(iframeID int, msg ForwardedMessage) (event.Event, bool) {
	m.mu.Lock()
	e, ok := m.entries[iframeID]
	m.mu.Unlock()
	if !ok || e.CrossMirror == nil {
		return event.Event{}, false
	}
	translateMutationIDs(&msg.Event, e.CrossMirror)
	return msg.Event, true
}

// translateMutationIDs rewrites every id field embedded in an
// IncrementalSnapshot payload through mirror, covering the full
// incremental source taxonomy so a forwarded cross-origin event never
// leaks a child-local id into the parent's stream. Full-snapshot and
// meta events carry no standalone ids to rewrite at this layer.
func translateMutationIDs(e *event.Event, m *CrossOriginMirror) {
	switch d := e.Payload.(type) {
	case event.MutationData:
		for i := range d.Adds {
			d.Adds[i].ParentID = m.Translate(d.Adds[i].ParentID)
			if d.Adds[i].NextID != 0 {
				d.Adds[i].NextID = m.Translate(d.Adds[i].NextID)
			}
			if sn, ok := d.Adds[i].Node.(*snapshot.SerializedNode); ok {
				translateSerializedNodeIDs(sn, m)
			}
		}
		for i := range d.Removes {
			d.Removes[i].ID = m.Translate(d.Removes[i].ID)
			d.Removes[i].ParentID = m.Translate(d.Removes[i].ParentID)
		}
		for i := range d.Attributes {
			d.Attributes[i].ID = m.Translate(d.Attributes[i].ID)
		}
		for i := range d.Texts {
			d.Texts[i].ID = m.Translate(d.Texts[i].ID)
		}
		e.Payload = d
	case event.MouseInteractionData:
		d.ID = m.Translate(d.ID)
		e.Payload = d
	case event.ScrollData:
		d.ID = m.Translate(d.ID)
		e.Payload = d
	case event.InputData:
		d.ID = m.Translate(d.ID)
		e.Payload = d
	case event.MouseMoveData:
		for i := range d.Positions {
			d.Positions[i].ID = m.Translate(d.Positions[i].ID)
		}
		e.Payload = d
	case event.DragData:
		for i := range d.Positions {
			d.Positions[i].ID = m.Translate(d.Positions[i].ID)
		}
		e.Payload = d
	case event.StyleSheetRuleData:
		d.ID = m.Translate(d.ID)
		e.Payload = d
	case event.StyleDeclarationData:
		d.ID = m.Translate(d.ID)
		e.Payload = d
	case event.AdoptedStyleSheetData:
		// StyleIDs is a local ordinal index into the adopted-sheet list,
		// not a mirror id; only the owning root's id is translated.
		d.ID = m.Translate(d.ID)
		e.Payload = d
	case event.MediaInteractionData:
		d.ID = m.Translate(d.ID)
		e.Payload = d
	case event.SelectionData:
		for i := range d.Ranges {
			d.Ranges[i].Start.ID = m.Translate(d.Ranges[i].Start.ID)
			d.Ranges[i].End.ID = m.Translate(d.Ranges[i].End.ID)
		}
		e.Payload = d
	case event.CanvasMutationData:
		d.ID = m.Translate(d.ID)
		e.Payload = d
	case event.VisibilityMutationData:
		for i := range d.Mutations {
			d.Mutations[i].ID = m.Translate(d.Mutations[i].ID)
		}
		e.Payload = d
	case event.CustomElementData:
		// Define names a tag, not an id; nothing to translate.
	}
}

// translateSerializedNodeIDs rewrites a forwarded Adds[i].Node subtree
// in place, since the child recorder serialized it against its own
// mirror id space. Every id embedded anywhere in the subtree — the
// node's own id and RootID (a same-origin iframe nested inside the
// forwarded subtree) — must land in the parent's space the same way
// the flat mutation fields above do.
func translateSerializedNodeIDs(n *snapshot.SerializedNode, m *CrossOriginMirror) {
	if n == nil {
		return
	}
	n.ID = m.Translate(n.ID)
	if n.RootID != nil {
		translated := m.Translate(*n.RootID)
		n.RootID = &translated
	}
	for _, c := range n.ChildNodes {
		translateSerializedNodeIDs(c, m)
	}
}
