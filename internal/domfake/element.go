package domfake

import "github.com/domreplay/recorder/internal/domcore"

// Element is an in-memory element node.
type Element struct {
	nodeBase

	doc      *Document
	tag      string
	attrs    []domcore.Attr
	children []domcore.Node
	shadow   *ShadowRootNode
	svg      bool
	rect     domcore.Rect
	style    domcore.ComputedStyle
	connected bool

	listeners map[string][]func(domcore.Event)

	// canvas
	isCanvas      bool
	canvasBlank   bool
	canvasDataURL string
	drawHooks     []func()

	// iframe
	isIframe     bool
	iframeSrc    string
	iframeDoc    *Document
	iframeOK     bool

	// media
	isMedia      bool
	mediaTime    float64
	mediaPaused  bool
	mediaVolume  float64
	mediaMuted   bool
	mediaRate    float64
}

func (e *Element) TagName() string { return e.tag }

func (e *Element) Attributes() []domcore.Attr { return e.attrs }

func (e *Element) GetAttribute(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			s, ok := a.Value.(string)
			if !ok {
				return "", true
			}
			return s, true
		}
	}
	return "", false
}

// SetAttribute sets or replaces an attribute and emits an Attributes
// mutation record with the prior value.
func (e *Element) SetAttribute(name string, value any) {
	old, hadOld := "", false
	idx := -1
	for i, a := range e.attrs {
		if a.Name == name {
			idx = i
			if s, ok := a.Value.(string); ok {
				old, hadOld = s, true
			}
			break
		}
	}
	if idx >= 0 {
		e.attrs[idx].Value = value
	} else {
		e.attrs = append(e.attrs, domcore.Attr{Name: name, Value: value})
	}
	rec := domcore.MutationRecord{
		Type:          domcore.MutationAttributes,
		Target:        e,
		AttributeName: name,
	}
	if hadOld {
		rec.OldValue = old
	}
	e.doc.emit(rec)
}

// RemoveAttribute removes an attribute and emits an Attributes mutation
// record.
func (e *Element) RemoveAttribute(name string) {
	for i, a := range e.attrs {
		if a.Name == name {
			old, _ := a.Value.(string)
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			e.doc.emit(domcore.MutationRecord{
				Type:          domcore.MutationAttributes,
				Target:        e,
				AttributeName: name,
				OldValue:      old,
			})
			return
		}
	}
}

func (e *Element) ChildNodes() []domcore.Node { return e.children }

func (e *Element) ShadowRoot() (domcore.ShadowRoot, bool) {
	if e.shadow == nil {
		return nil, false
	}
	return e.shadow, true
}

// AttachShadow creates and attaches a shadow root in the given mode
// ("open" or "closed").
func (e *Element) AttachShadow(mode string) *ShadowRootNode {
	sr := &ShadowRootNode{
		nodeBase: nodeBase{ntype: domcore.NodeDocumentFragment, parent: e},
		host:     e,
		mode:     mode,
		doc:      e.doc,
	}
	e.shadow = sr
	return sr
}

func (e *Element) IsSVG() bool { return e.svg }

// SetSVG marks the element as living in the SVG namespace.
func (e *Element) SetSVG(v bool) { e.svg = v }

func (e *Element) BoundingClientRect() domcore.Rect { return e.rect }

// SetRect sets the element's layout rect, as would be returned by
// getBoundingClientRect.
func (e *Element) SetRect(r domcore.Rect) { e.rect = r }

func (e *Element) Style() domcore.ComputedStyle { return e.style }

// SetStyle sets the element's computed style.
func (e *Element) SetStyle(s domcore.ComputedStyle) { e.style = s }

func (e *Element) AddEventListener(eventType string, fn func(domcore.Event)) domcore.Disposable {
	if e.listeners == nil {
		e.listeners = make(map[string][]func(domcore.Event))
	}
	e.listeners[eventType] = append(e.listeners[eventType], fn)
	idx := len(e.listeners[eventType]) - 1
	e.doc.notifyListenerRegistered(e, eventType)
	return domcore.DisposeFunc(func() {
		e.listeners[eventType][idx] = nil
	})
}

// Dispatch invokes every listener registered for evt.Type on e and,
// bubbling upward, on every ancestor element, as a trusted synchronous
// event dispatch would for a bubbling event type.
func (e *Element) Dispatch(evt domcore.Event) {
	evt.Target = e
	var cur domcore.Node = e
	for cur != nil {
		el, ok := cur.(*Element)
		if !ok {
			break
		}
		for _, fn := range el.listeners[evt.Type] {
			if fn != nil {
				fn(evt)
			}
		}
		cur = el.ParentNode()
	}
}

func (e *Element) IsConnected() bool { return e.connected }

// SetConnected marks the element (and its subtree) connected or
// disconnected, matching the fact that appending to a connected parent
// connects a whole detached subtree at once.
func (e *Element) SetConnected(v bool) {
	e.connected = v
	for _, c := range e.children {
		if el, ok := c.(*Element); ok {
			el.SetConnected(v)
		}
	}
}

// AppendChild appends child and emits a ChildList mutation record.
func (e *Element) AppendChild(child domcore.Node) {
	setParent(child, e)
	e.children = append(e.children, child)
	if el, ok := child.(*Element); ok && e.connected {
		el.SetConnected(true)
	}
	e.doc.emit(domcore.MutationRecord{
		Type:       domcore.MutationChildList,
		Target:     e,
		AddedNodes: []domcore.Node{child},
	})
}

// InsertBefore inserts child immediately before ref (or appends if ref
// is nil) and emits a ChildList mutation record.
func (e *Element) InsertBefore(child domcore.Node, ref domcore.Node) {
	setParent(child, e)
	if ref == nil {
		e.children = append(e.children, child)
	} else {
		idx := indexOf(e.children, ref)
		if idx < 0 {
			e.children = append(e.children, child)
		} else {
			e.children = append(e.children[:idx], append([]domcore.Node{child}, e.children[idx:]...)...)
		}
	}
	if el, ok := child.(*Element); ok && e.connected {
		el.SetConnected(true)
	}
	e.doc.emit(domcore.MutationRecord{
		Type:        domcore.MutationChildList,
		Target:      e,
		AddedNodes:  []domcore.Node{child},
		NextSibling: ref,
	})
}

// RemoveChild detaches child and emits a ChildList mutation record.
func (e *Element) RemoveChild(child domcore.Node) {
	idx := indexOf(e.children, child)
	if idx < 0 {
		return
	}
	e.children = append(e.children[:idx], e.children[idx+1:]...)
	if el, ok := child.(*Element); ok {
		el.SetConnected(false)
	}
	e.doc.emit(domcore.MutationRecord{
		Type:         domcore.MutationChildList,
		Target:       e,
		RemovedNodes: []domcore.Node{child},
	})
}

func setParent(n domcore.Node, parent domcore.Node) {
	switch v := n.(type) {
	case *Element:
		v.parent = parent
	case *CharacterData:
		v.parent = parent
	case *ShadowRootNode:
		v.parent = parent
	}
}

func indexOf(nodes []domcore.Node, target domcore.Node) int {
	for i, n := range nodes {
		if n == target {
			return i
		}
	}
	return -1
}

// AsCanvas marks this element as a <canvas> and returns a view
// implementing domcore.CanvasElement.
func (e *Element) AsCanvas() *Element { e.isCanvas = true; return e }

func (e *Element) IsBlank() bool { return e.canvasBlank }

// SetCanvasBlank sets whether IsBlank reports true.
func (e *Element) SetCanvasBlank(v bool) { e.canvasBlank = v }

func (e *Element) DataURL(mimeType string, quality float64) string { return e.canvasDataURL }

// SetCanvasDataURL sets the string DataURL returns.
func (e *Element) SetCanvasDataURL(s string) { e.canvasDataURL = s }

func (e *Element) OnDraw(fn func()) domcore.Disposable {
	e.drawHooks = append(e.drawHooks, fn)
	idx := len(e.drawHooks) - 1
	return domcore.DisposeFunc(func() { e.drawHooks[idx] = nil })
}

// Draw simulates a completed canvas draw call, firing registered draw
// hooks.
func (e *Element) Draw() {
	for _, fn := range e.drawHooks {
		if fn != nil {
			fn()
		}
	}
}

// AsIframe marks this element as an <iframe> with the given src and
// nested document (doc may be nil to simulate a cross-origin,
// inaccessible frame).
func (e *Element) AsIframe(src string, doc *Document) *Element {
	e.isIframe = true
	e.iframeSrc = src
	e.iframeDoc = doc
	e.iframeOK = doc != nil
	return e
}

func (e *Element) ContentDocument() (domcore.Document, bool) {
	if !e.iframeOK || e.iframeDoc == nil {
		return nil, false
	}
	return e.iframeDoc, true
}

func (e *Element) Src() string { return e.iframeSrc }

// AsMedia marks this element as a <video>/<audio> with the given
// playback state.
func (e *Element) AsMedia(current float64, paused bool, volume float64, muted bool, rate float64) *Element {
	e.isMedia = true
	e.mediaTime, e.mediaPaused, e.mediaVolume, e.mediaMuted, e.mediaRate = current, paused, volume, muted, rate
	return e
}

func (e *Element) CurrentTime() float64  { return e.mediaTime }
func (e *Element) Paused() bool          { return e.mediaPaused }
func (e *Element) Volume() float64       { return e.mediaVolume }
func (e *Element) Muted() bool           { return e.mediaMuted }
func (e *Element) PlaybackRate() float64 { return e.mediaRate }

var (
	_ domcore.Element       = (*Element)(nil)
	_ domcore.CanvasElement = (*Element)(nil)
	_ domcore.IframeElement = (*Element)(nil)
	_ domcore.MediaElement  = (*Element)(nil)
)
