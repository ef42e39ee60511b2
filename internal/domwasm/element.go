//go:build js && wasm

package domwasm

import (
	"strconv"
	"strings"
	"syscall/js"

	"github.com/domreplay/recorder/internal/domcore"
)

// element wraps a live DOM Element.
type element struct {
	nodeBase
}

func newElement(v js.Value) *element {
	return &element{nodeBase: nodeBase{v: v, ntype: domcore.NodeElement}}
}

// newElementFor picks the specialized wrapper (canvas/media/iframe)
// matching v's tag name, falling back to the plain element wrapper.
func newElementFor(v js.Value) domcore.Node {
	switch strings.ToLower(v.Get("tagName").String()) {
	case "canvas":
		return newCanvasElement(v)
	case "video", "audio":
		return newMediaElement(v)
	case "iframe":
		return newIframeElement(v)
	default:
		return newElement(v)
	}
}

func (e *element) TagName() string {
	return strings.ToLower(e.v.Get("tagName").String())
}

func (e *element) Attributes() []domcore.Attr {
	attrs := e.v.Get("attributes")
	n := attrs.Get("length").Int()
	out := make([]domcore.Attr, 0, n)
	for i := 0; i < n; i++ {
		a := attrs.Call("item", i)
		out = append(out, domcore.Attr{Name: a.Get("name").String(), Value: a.Get("value").String()})
	}
	return out
}

func (e *element) GetAttribute(name string) (string, bool) {
	if !e.v.Call("hasAttribute", name).Bool() {
		return "", false
	}
	return e.v.Call("getAttribute", name).String(), true
}

func (e *element) ChildNodes() []domcore.Node {
	kids := e.v.Get("childNodes")
	n := kids.Get("length").Int()
	out := make([]domcore.Node, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, wrapNode(kids.Call("item", i)))
	}
	return out
}

func (e *element) ShadowRoot() (domcore.ShadowRoot, bool) {
	sr := e.v.Get("shadowRoot")
	if isNullish(sr) {
		return nil, false
	}
	root, ok := wrapNode(sr).(domcore.ShadowRoot)
	return root, ok
}

func (e *element) IsSVG() bool {
	return e.v.Get("namespaceURI").String() == "http://www.w3.org/2000/svg"
}

func (e *element) BoundingClientRect() domcore.Rect {
	r := e.v.Call("getBoundingClientRect")
	return domcore.Rect{
		Top:    r.Get("top").Float(),
		Left:   r.Get("left").Float(),
		Right:  r.Get("right").Float(),
		Bottom: r.Get("bottom").Float(),
	}
}

func (e *element) Style() domcore.ComputedStyle {
	cs := js.Global().Call("getComputedStyle", e.v)
	return domcore.ComputedStyle{
		Display:    cs.Get("display").String(),
		Visibility: cs.Get("visibility").String(),
		Opacity:    parseOpacity(cs.Get("opacity").String()),
	}
}

func parseOpacity(s string) float64 {
	if s == "" {
		return 1
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1
	}
	return f
}

func (e *element) AddEventListener(eventType string, fn func(domcore.Event)) domcore.Disposable {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		fn(toDomEvent(args[0]))
		return nil
	})
	e.v.Call("addEventListener", eventType, cb, map[string]any{"capture": false, "passive": true})
	return domcore.DisposeFunc(func() {
		e.v.Call("removeEventListener", eventType, cb)
		cb.Release()
	})
}

func (e *element) IsConnected() bool { return e.v.Get("isConnected").Bool() }

func toDomEvent(v js.Value) domcore.Event {
	ev := domcore.Event{
		Type:     v.Get("type").String(),
		Trusted:  getBool(v, "isTrusted"),
		Composed: getBool(v, "composed"),
	}
	if t := v.Get("timeStamp"); !t.IsUndefined() {
		ev.TimeStamp = t.Float()
	}
	if cx := v.Get("clientX"); !cx.IsUndefined() {
		ev.ClientX = cx.Float()
	}
	if cy := v.Get("clientY"); !cy.IsUndefined() {
		ev.ClientY = cy.Float()
	}
	if k := v.Get("key"); !k.IsUndefined() {
		ev.Key = k.String()
	}
	if c := v.Get("code"); !c.IsUndefined() {
		ev.Code = c.String()
	}
	if target := v.Get("target"); !isNullish(target) {
		ev.Target = wrapNode(target)
	}
	return ev
}

func getBool(v js.Value, prop string) bool {
	p := v.Get(prop)
	if p.IsUndefined() {
		return false
	}
	return p.Bool()
}

var _ domcore.Element = (*element)(nil)

// shadowRoot wraps a ShadowRoot (a DocumentFragment attached via
// attachShadow).
type shadowRoot struct{ nodeBase }

func newShadowRoot(v js.Value) *shadowRoot {
	return &shadowRoot{nodeBase{v: v, ntype: domcore.NodeDocumentFragment}}
}

func (s *shadowRoot) Host() domcore.Element { return wrapElement(s.v.Get("host")) }

func (s *shadowRoot) ChildNodes() []domcore.Node {
	kids := s.v.Get("childNodes")
	n := kids.Get("length").Int()
	out := make([]domcore.Node, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, wrapNode(kids.Call("item", i)))
	}
	return out
}

func (s *shadowRoot) Mode() string { return s.v.Get("mode").String() }

var _ domcore.ShadowRoot = (*shadowRoot)(nil)

// canvasElement wraps a <canvas>, patching its 2D/WebGL context
// methods so OnDraw fires after every draw call, mirroring the
// original source's own canvas-context-patching technique.
type canvasElement struct {
	element
	drawHooks []func()
	patched   bool
}

func newCanvasElement(v js.Value) *canvasElement {
	return &canvasElement{element: element{nodeBase: nodeBase{v: v, ntype: domcore.NodeElement}}}
}

func (c *canvasElement) IsBlank() bool {
	ctx := c.v.Call("getContext", "2d")
	if isNullish(ctx) {
		return false
	}
	w := c.v.Get("width").Int()
	h := c.v.Get("height").Int()
	if w == 0 || h == 0 {
		return true
	}
	data := ctx.Call("getImageData", 0, 0, w, h).Get("data")
	length := data.Get("length").Int()
	buf := make([]byte, length)
	js.CopyBytesToGo(buf, data)
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

func (c *canvasElement) DataURL(mimeType string, quality float64) string {
	if quality > 0 {
		return c.v.Call("toDataURL", mimeType, quality).String()
	}
	return c.v.Call("toDataURL", mimeType).String()
}

func (c *canvasElement) OnDraw(fn func()) domcore.Disposable {
	c.drawHooks = append(c.drawHooks, fn)
	c.ensurePatched()
	idx := len(c.drawHooks) - 1
	return domcore.DisposeFunc(func() { c.drawHooks[idx] = nil })
}

// ensurePatched wraps every drawing method on the canvas's 2D context
// so that after it runs, every registered draw hook fires once per
// frame's worth of calls is the caller's responsibility to throttle;
// this just reports "a draw happened".
func (c *canvasElement) ensurePatched() {
	if c.patched {
		return
	}
	c.patched = true
	ctx := c.v.Call("getContext", "2d")
	if isNullish(ctx) {
		return
	}
	methods := []string{"fillRect", "strokeRect", "clearRect", "fill", "stroke", "drawImage", "putImageData"}
	for _, name := range methods {
		original := ctx.Get(name)
		if original.Type() != js.TypeFunction {
			continue
		}
		cb := js.FuncOf(func(this js.Value, args []js.Value) any {
			jsArgs := make([]any, len(args))
			for i, a := range args {
				jsArgs[i] = a
			}
			result := original.Invoke(jsArgs...)
			c.notifyDraw()
			return result
		})
		ctx.Set(name, cb)
	}
}

func (c *canvasElement) notifyDraw() {
	for _, h := range c.drawHooks {
		if h != nil {
			h()
		}
	}
}

var _ domcore.CanvasElement = (*canvasElement)(nil)

// mediaElement wraps <video>/<audio>.
type mediaElement struct{ element }

func newMediaElement(v js.Value) *mediaElement {
	return &mediaElement{element: element{nodeBase: nodeBase{v: v, ntype: domcore.NodeElement}}}
}

func (m *mediaElement) CurrentTime() float64  { return m.v.Get("currentTime").Float() }
func (m *mediaElement) Paused() bool          { return m.v.Get("paused").Bool() }
func (m *mediaElement) Volume() float64       { return m.v.Get("volume").Float() }
func (m *mediaElement) Muted() bool           { return m.v.Get("muted").Bool() }
func (m *mediaElement) PlaybackRate() float64 { return m.v.Get("playbackRate").Float() }

var _ domcore.MediaElement = (*mediaElement)(nil)

// iframeElement wraps <iframe>.
type iframeElement struct{ element }

func newIframeElement(v js.Value) *iframeElement {
	return &iframeElement{element: element{nodeBase: nodeBase{v: v, ntype: domcore.NodeElement}}}
}

func (i *iframeElement) Src() string { return i.v.Get("src").String() }

// ContentDocument returns ok=false when same-origin access throws
// (accessing contentDocument on a cross-origin iframe returns null in
// every evergreen browser rather than throwing, so a nil check alone
// is sufficient here).
func (i *iframeElement) ContentDocument() (domcore.Document, bool) {
	cd := i.v.Get("contentDocument")
	if isNullish(cd) {
		return nil, false
	}
	doc, ok := wrapNode(cd).(domcore.Document)
	return doc, ok
}

var _ domcore.IframeElement = (*iframeElement)(nil)
