package domfake

import "github.com/domreplay/recorder/internal/domcore"

// Document is an in-memory document tree.
type Document struct {
	nodeBase

	root       *Element
	compatMode string
	width      int
	height     int
	location   string

	styleSheets []domcore.StyleSheet
	adopted     []domcore.StyleSheet
	fonts       []domcore.FontFace

	frames *frameSource

	observers []*mutationObserver
	pending   []domcore.MutationRecord

	listenerHooks    []func(domcore.Element, string)
	styleSheetHooks  []func(domcore.StyleSheetChange)
	adoptedHooks     []func([]domcore.StyleSheet)
	fontsHooks       []func([]domcore.FontFace)
	customElHooks    []func(domcore.CustomElementDefinition)
	selectionHooks   []func(domcore.Selection)
	resizeHooks      []func(int, int)
	styleDeclHooks   []func(domcore.StyleDeclarationChange)
}

// NewDocument creates a document with a bare <html><head></head><body></body></html>
// skeleton and the given viewport dimensions.
func NewDocument(width, height int) *Document {
	d := &Document{
		nodeBase:   nodeBase{ntype: domcore.NodeDocument},
		compatMode: "CSS1Compat",
		width:      width,
		height:     height,
		frames:     newFrameSource(),
	}
	html := d.NewElement("html")
	head := d.NewElement("head")
	body := d.NewElement("body")
	html.AppendChild(head)
	html.AppendChild(body)
	d.root = html
	html.parent = d
	return d
}

// NewElement creates a detached element owned by this document.
func (d *Document) NewElement(tag string) *Element {
	return &Element{
		nodeBase: nodeBase{ntype: domcore.NodeElement},
		tag:      tag,
		doc:      d,
	}
}

// NewText creates a detached text node owned by this document.
func (d *Document) NewText(data string) *CharacterData {
	return &CharacterData{nodeBase: nodeBase{ntype: domcore.NodeText}, data: data, doc: d}
}

// NewComment creates a detached comment node owned by this document.
func (d *Document) NewComment(data string) *CharacterData {
	return &CharacterData{nodeBase: nodeBase{ntype: domcore.NodeComment}, data: data, doc: d}
}

func (d *Document) DocumentElement() domcore.Element { return d.root }

func (d *Document) CompatMode() string { return d.compatMode }

// SetCompatMode overrides the default standards-mode compat mode, for
// tests that exercise quirks-mode document type handling.
func (d *Document) SetCompatMode(mode string) { d.compatMode = mode }

func (d *Document) Viewport() (int, int) { return d.width, d.height }

func (d *Document) Location() string { return d.location }

// SetLocation sets the value Location returns, for tests simulating a
// document's window.location.href.
func (d *Document) SetLocation(href string) { d.location = href }

// Resize updates the viewport and notifies resize hooks, for tests
// simulating a window resize.
func (d *Document) Resize(w, h int) {
	d.width, d.height = w, h
	for _, h2 := range d.resizeHooks {
		if h2 != nil {
			h2(w, h)
		}
	}
}

func (d *Document) OnViewportResize(fn func(int, int)) domcore.Disposable {
	d.resizeHooks = append(d.resizeHooks, fn)
	idx := len(d.resizeHooks) - 1
	return domcore.DisposeFunc(func() { d.resizeHooks[idx] = nil })
}

func (d *Document) StyleSheets() []domcore.StyleSheet { return d.styleSheets }

// AddStyleSheet registers a sheet in document.styleSheets.
func (d *Document) AddStyleSheet(s domcore.StyleSheet) {
	d.styleSheets = append(d.styleSheets, s)
}

func (d *Document) AdoptedStyleSheets() []domcore.StyleSheet { return d.adopted }

// SetAdoptedStyleSheets reassigns document.adoptedStyleSheets and fires
// registered hooks.
func (d *Document) SetAdoptedStyleSheets(sheets []domcore.StyleSheet) {
	d.adopted = sheets
	for _, h := range d.adoptedHooks {
		h(sheets)
	}
}

func (d *Document) Fonts() []domcore.FontFace { return d.fonts }

// SetFonts replaces the loaded font face list and fires registered
// hooks, simulating a FontFaceSet "loadingdone" event.
func (d *Document) SetFonts(faces []domcore.FontFace) {
	d.fonts = faces
	for _, h := range d.fontsHooks {
		h(faces)
	}
}

func (d *Document) AnimationFrames() domcore.AnimationFrameSource { return d.frames }

// DriveFrame delivers queued mutation records (as the microtask
// checkpoint before a browser frame would), then fires one round of
// queued requestAnimationFrame callbacks.
func (d *Document) DriveFrame() {
	d.FlushMutations()
	d.frames.tick()
}

func (d *Document) OnListenerRegistered(fn func(domcore.Element, string)) domcore.Disposable {
	d.listenerHooks = append(d.listenerHooks, fn)
	idx := len(d.listenerHooks) - 1
	return domcore.DisposeFunc(func() { d.listenerHooks[idx] = nil })
}

func (d *Document) notifyListenerRegistered(el domcore.Element, eventType string) {
	for _, h := range d.listenerHooks {
		if h != nil {
			h(el, eventType)
		}
	}
}

func (d *Document) OnStyleSheetChange(fn func(domcore.StyleSheetChange)) domcore.Disposable {
	d.styleSheetHooks = append(d.styleSheetHooks, fn)
	idx := len(d.styleSheetHooks) - 1
	return domcore.DisposeFunc(func() { d.styleSheetHooks[idx] = nil })
}

// NotifyStyleSheetChange simulates a live CSSOM mutation (insertRule,
// deleteRule, replace) that bypasses MutationObserver.
func (d *Document) NotifyStyleSheetChange(c domcore.StyleSheetChange) {
	for _, h := range d.styleSheetHooks {
		if h != nil {
			h(c)
		}
	}
}

func (d *Document) OnAdoptedStyleSheetsChange(fn func([]domcore.StyleSheet)) domcore.Disposable {
	d.adoptedHooks = append(d.adoptedHooks, fn)
	idx := len(d.adoptedHooks) - 1
	return domcore.DisposeFunc(func() { d.adoptedHooks[idx] = nil })
}

func (d *Document) OnFontsChange(fn func([]domcore.FontFace)) domcore.Disposable {
	d.fontsHooks = append(d.fontsHooks, fn)
	idx := len(d.fontsHooks) - 1
	return domcore.DisposeFunc(func() { d.fontsHooks[idx] = nil })
}

func (d *Document) OnCustomElementDefined(fn func(domcore.CustomElementDefinition)) domcore.Disposable {
	d.customElHooks = append(d.customElHooks, fn)
	idx := len(d.customElHooks) - 1
	return domcore.DisposeFunc(func() { d.customElHooks[idx] = nil })
}

// DefineCustomElement simulates a customElements.define() call.
func (d *Document) DefineCustomElement(name string) {
	for _, h := range d.customElHooks {
		if h != nil {
			h(domcore.CustomElementDefinition{Name: name})
		}
	}
}

func (d *Document) OnSelectionChange(fn func(domcore.Selection)) domcore.Disposable {
	d.selectionHooks = append(d.selectionHooks, fn)
	idx := len(d.selectionHooks) - 1
	return domcore.DisposeFunc(func() { d.selectionHooks[idx] = nil })
}

// ChangeSelection simulates a selectionchange event.
func (d *Document) ChangeSelection(sel domcore.Selection) {
	for _, h := range d.selectionHooks {
		if h != nil {
			h(sel)
		}
	}
}

func (d *Document) OnStyleDeclarationChange(fn func(domcore.StyleDeclarationChange)) domcore.Disposable {
	d.styleDeclHooks = append(d.styleDeclHooks, fn)
	idx := len(d.styleDeclHooks) - 1
	return domcore.DisposeFunc(func() { d.styleDeclHooks[idx] = nil })
}

// NotifyStyleDeclarationChange simulates a CSSStyleDeclaration
// setProperty/removeProperty call.
func (d *Document) NotifyStyleDeclarationChange(c domcore.StyleDeclarationChange) {
	for _, h := range d.styleDeclHooks {
		if h != nil {
			h(c)
		}
	}
}

var _ domcore.Document = (*Document)(nil)
