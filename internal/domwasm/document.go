//go:build js && wasm

package domwasm

import (
	"sync"
	"syscall/js"

	"github.com/domreplay/recorder/internal/domcore"
)

// document wraps the live window.document.
type document struct {
	nodeBase

	listenerHooks []func(domcore.Element, string)
	hookMu        sync.Mutex

	styleSheetHooks []func(domcore.StyleSheetChange)
	adoptedHooks    []func([]domcore.StyleSheet)
	fontsHooks      []func([]domcore.FontFace)
	customElHooks   []func(domcore.CustomElementDefinition)
	selectionHooks  []func(domcore.Selection)
	styleDeclHooks  []func(domcore.StyleDeclarationChange)

	patchedAddListener bool
	patchedStyleSheets bool
	patchedCustomEls   bool
	patchedStyleDecls  bool
	styleDeclOwners    js.Value
}

func newDocument(v js.Value) *document {
	return &document{nodeBase: nodeBase{v: v, ntype: domcore.NodeDocument}}
}

func (d *document) DocumentElement() domcore.Element {
	return wrapElement(d.v.Get("documentElement"))
}

func (d *document) CompatMode() string { return d.v.Get("compatMode").String() }

func (d *document) Viewport() (int, int) {
	win := js.Global()
	return win.Get("innerWidth").Int(), win.Get("innerHeight").Int()
}

func (d *document) Location() string {
	return d.v.Get("location").Get("href").String()
}

func (d *document) StyleSheets() []domcore.StyleSheet {
	return styleSheetsOf(d.v.Get("styleSheets"))
}

func (d *document) AdoptedStyleSheets() []domcore.StyleSheet {
	return styleSheetsOf(d.v.Get("adoptedStyleSheets"))
}

func styleSheetsOf(list js.Value) []domcore.StyleSheet {
	if isNullish(list) {
		return nil
	}
	n := list.Get("length").Int()
	out := make([]domcore.StyleSheet, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, newStyleSheet(list.Call("item", i)))
	}
	return out
}

func (d *document) Fonts() []domcore.FontFace {
	set := d.v.Get("fonts")
	if isNullish(set) {
		return nil
	}
	arr := js.Global().Get("Array").Call("from", set)
	n := arr.Get("length").Int()
	out := make([]domcore.FontFace, 0, n)
	for i := 0; i < n; i++ {
		f := arr.Index(i)
		out = append(out, domcore.FontFace{Family: f.Get("family").String(), Status: f.Get("status").String()})
	}
	return out
}

func (d *document) AnimationFrames() domcore.AnimationFrameSource { return rafSource{} }

func (d *document) OnViewportResize(fn func(int, int)) domcore.Disposable {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		w, h := d.Viewport()
		fn(w, h)
		return nil
	})
	js.Global().Call("addEventListener", "resize", cb)
	return domcore.DisposeFunc(func() {
		js.Global().Call("removeEventListener", "resize", cb)
		cb.Release()
	})
}

func (d *document) NewMutationObserver(cb func([]domcore.MutationRecord)) domcore.MutationObserver {
	return newMutationObserver(cb)
}

// OnListenerRegistered patches EventTarget.prototype.addEventListener
// once per document so every future addEventListener call anywhere in
// the page, not just ones this module makes, is visible — this is how
// the interactivity classifier learns about page-authored listeners
// without per-element polling, matching the original source's own
// prototype patch.
func (d *document) OnListenerRegistered(fn func(domcore.Element, string)) domcore.Disposable {
	d.hookMu.Lock()
	d.listenerHooks = append(d.listenerHooks, fn)
	idx := len(d.listenerHooks) - 1
	d.ensureListenerPatch()
	d.hookMu.Unlock()
	return domcore.DisposeFunc(func() {
		d.hookMu.Lock()
		d.listenerHooks[idx] = nil
		d.hookMu.Unlock()
	})
}

func (d *document) ensureListenerPatch() {
	if d.patchedAddListener {
		return
	}
	d.patchedAddListener = true

	proto := js.Global().Get("EventTarget").Get("prototype")
	original := proto.Get("addEventListener")

	patched := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 && this.Get("nodeType").Truthy() {
			if el, ok := wrapNode(this).(domcore.Element); ok {
				d.notifyListenerRegistered(el, args[0].String())
			}
		}
		jsArgs := make([]any, len(args))
		for i, a := range args {
			jsArgs[i] = a
		}
		return original.Call("apply", this, jsArgs)
	})
	proto.Set("addEventListener", patched)
}

func (d *document) notifyListenerRegistered(el domcore.Element, eventType string) {
	d.hookMu.Lock()
	hooks := append([]func(domcore.Element, string){}, d.listenerHooks...)
	d.hookMu.Unlock()
	for _, h := range hooks {
		if h != nil {
			h(el, eventType)
		}
	}
}

func (d *document) OnStyleSheetChange(fn func(domcore.StyleSheetChange)) domcore.Disposable {
	d.styleSheetHooks = append(d.styleSheetHooks, fn)
	d.ensureStyleSheetPatch()
	idx := len(d.styleSheetHooks) - 1
	return domcore.DisposeFunc(func() { d.styleSheetHooks[idx] = nil })
}

// ensureStyleSheetPatch patches CSSStyleSheet.prototype's live
// mutation methods, the only way to observe insertRule/deleteRule/
// replace since MutationObserver never sees CSSOM-only changes.
func (d *document) ensureStyleSheetPatch() {
	if d.patchedStyleSheets {
		return
	}
	d.patchedStyleSheets = true

	proto := js.Global().Get("CSSStyleSheet").Get("prototype")
	d.patchMethod(proto, "insertRule", func(this js.Value, args []js.Value, result js.Value) {
		idx := 0
		if len(args) > 1 {
			idx = args[1].Int()
		}
		text := ""
		if len(args) > 0 {
			text = args[0].String()
		}
		d.emitStyleSheetChange(domcore.StyleSheetChange{Kind: domcore.StyleSheetRuleInserted, Sheet: newStyleSheet(this), Index: idx, CSSText: text})
	})
	d.patchMethod(proto, "deleteRule", func(this js.Value, args []js.Value, result js.Value) {
		idx := 0
		if len(args) > 0 {
			idx = args[0].Int()
		}
		d.emitStyleSheetChange(domcore.StyleSheetChange{Kind: domcore.StyleSheetRuleDeleted, Sheet: newStyleSheet(this), Index: idx})
	})
	d.patchMethod(proto, "replaceSync", func(this js.Value, args []js.Value, result js.Value) {
		text := ""
		if len(args) > 0 {
			text = args[0].String()
		}
		d.emitStyleSheetChange(domcore.StyleSheetChange{Kind: domcore.StyleSheetReplaced, Sheet: newStyleSheet(this), CSSText: text})
	})
}

func (d *document) patchMethod(proto js.Value, name string, after func(this js.Value, args []js.Value, result js.Value)) {
	original := proto.Get(name)
	if original.Type() != js.TypeFunction {
		return
	}
	patched := js.FuncOf(func(this js.Value, args []js.Value) any {
		jsArgs := make([]any, len(args))
		for i, a := range args {
			jsArgs[i] = a
		}
		result := original.Invoke(jsArgs...)
		after(this, args, result)
		return result
	})
	proto.Set(name, patched)
}

func (d *document) emitStyleSheetChange(c domcore.StyleSheetChange) {
	for _, h := range d.styleSheetHooks {
		if h != nil {
			h(c)
		}
	}
}

// OnAdoptedStyleSheetsChange polls document.adoptedStyleSheets every
// 500 ms via setInterval, since there is no native event for the
// setter, and reports a change when the list's length differs from the
// previous poll; the original source accepts the same limitation.
func (d *document) OnAdoptedStyleSheetsChange(fn func([]domcore.StyleSheet)) domcore.Disposable {
	d.adoptedHooks = append(d.adoptedHooks, fn)
	idx := len(d.adoptedHooks) - 1

	var lastLen = -1
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		sheets := d.AdoptedStyleSheets()
		if len(sheets) != lastLen {
			lastLen = len(sheets)
			for _, h := range d.adoptedHooks {
				if h != nil {
					h(sheets)
				}
			}
		}
		return nil
	})
	handle := js.Global().Call("setInterval", cb, 500)
	return domcore.DisposeFunc(func() {
		d.adoptedHooks[idx] = nil
		js.Global().Call("clearInterval", handle)
		cb.Release()
	})
}

func (d *document) OnFontsChange(fn func([]domcore.FontFace)) domcore.Disposable {
	d.fontsHooks = append(d.fontsHooks, fn)
	idx := len(d.fontsHooks) - 1

	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		faces := d.Fonts()
		for _, h := range d.fontsHooks {
			if h != nil {
				h(faces)
			}
		}
		return nil
	})
	d.v.Get("fonts").Call("addEventListener", "loadingdone", cb)
	return domcore.DisposeFunc(func() {
		d.fontsHooks[idx] = nil
		d.v.Get("fonts").Call("removeEventListener", "loadingdone", cb)
		cb.Release()
	})
}

func (d *document) OnCustomElementDefined(fn func(domcore.CustomElementDefinition)) domcore.Disposable {
	d.customElHooks = append(d.customElHooks, fn)
	idx := len(d.customElHooks) - 1
	d.ensureCustomElementPatch()
	return domcore.DisposeFunc(func() { d.customElHooks[idx] = nil })
}

func (d *document) ensureCustomElementPatch() {
	if d.patchedCustomEls {
		return
	}
	d.patchedCustomEls = true

	registry := js.Global().Get("customElements")
	original := registry.Get("define")
	patched := js.FuncOf(func(this js.Value, args []js.Value) any {
		jsArgs := make([]any, len(args))
		for i, a := range args {
			jsArgs[i] = a
		}
		result := original.Call("apply", registry, jsArgs)
		if len(args) > 0 {
			name := args[0].String()
			for _, h := range d.customElHooks {
				if h != nil {
					h(domcore.CustomElementDefinition{Name: name})
				}
			}
		}
		return result
	})
	registry.Set("define", patched)
}

func (d *document) OnSelectionChange(fn func(domcore.Selection)) domcore.Disposable {
	d.selectionHooks = append(d.selectionHooks, fn)
	idx := len(d.selectionHooks) - 1

	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		d.emitSelectionChange()
		return nil
	})
	d.v.Call("addEventListener", "selectionchange", cb)
	return domcore.DisposeFunc(func() {
		d.selectionHooks[idx] = nil
		d.v.Call("removeEventListener", "selectionchange", cb)
		cb.Release()
	})
}

func (d *document) emitSelectionChange() {
	win := js.Global()
	sel := win.Call("getSelection")
	if isNullish(sel) {
		return
	}
	count := sel.Get("rangeCount").Int()
	ranges := make([]domcore.SelectionRange, 0, count)
	for i := 0; i < count; i++ {
		r := sel.Call("getRangeAt", i)
		ranges = append(ranges, domcore.SelectionRange{
			StartNode:   wrapNode(r.Get("startContainer")),
			StartOffset: r.Get("startOffset").Int(),
			EndNode:     wrapNode(r.Get("endContainer")),
			EndOffset:   r.Get("endOffset").Int(),
		})
	}
	s := domcore.Selection{Ranges: ranges}
	for _, h := range d.selectionHooks {
		if h != nil {
			h(s)
		}
	}
}

func (d *document) OnStyleDeclarationChange(fn func(domcore.StyleDeclarationChange)) domcore.Disposable {
	d.styleDeclHooks = append(d.styleDeclHooks, fn)
	idx := len(d.styleDeclHooks) - 1
	d.ensureStyleDeclarationPatch()
	return domcore.DisposeFunc(func() { d.styleDeclHooks[idx] = nil })
}

// ensureStyleDeclarationPatch patches CSSStyleDeclaration.prototype's
// setProperty/removeProperty, the only way to observe a single
// property write: MutationObserver only reports the style attribute's
// final serialized cssText, and a rule-nested declaration change never
// touches an attribute at all. A rule-nested declaration's owner is
// recovered through parentRule/parentStyleSheet; an inline declaration
// (el.style) has no such CSSOM back-reference, so this also patches
// HTMLElement.prototype's style getter to remember which element a
// declaration instance came from.
func (d *document) ensureStyleDeclarationPatch() {
	if d.patchedStyleDecls {
		return
	}
	d.patchedStyleDecls = true
	d.styleDeclOwners = js.Global().Get("WeakMap").New()

	styleProto := js.Global().Get("HTMLElement").Get("prototype")
	desc := js.Global().Get("Object").Call("getOwnPropertyDescriptor", styleProto, "style")
	if desc.Truthy() && desc.Get("get").Type() == js.TypeFunction {
		originalGet := desc.Get("get")
		owners := d.styleDeclOwners
		newDesc := js.Global().Get("Object").New()
		newDesc.Set("configurable", true)
		newDesc.Set("get", js.FuncOf(func(this js.Value, args []js.Value) any {
			decl := originalGet.Invoke(this)
			owners.Call("set", decl, this)
			return decl
		}))
		js.Global().Get("Object").Call("defineProperty", styleProto, "style", newDesc)
	}

	proto := js.Global().Get("CSSStyleDeclaration").Get("prototype")
	d.patchMethod(proto, "setProperty", func(this js.Value, args []js.Value, result js.Value) {
		if len(args) == 0 {
			return
		}
		owner, idx, ok := d.resolveStyleDeclOwner(this)
		if !ok {
			return
		}
		value, priority := "", ""
		if len(args) > 1 {
			value = args[1].String()
		}
		if len(args) > 2 {
			priority = args[2].String()
		}
		d.emitStyleDeclarationChange(domcore.StyleDeclarationChange{
			Owner: owner, Index: idx, Property: args[0].String(), Value: value, Priority: priority,
		})
	})
	d.patchMethod(proto, "removeProperty", func(this js.Value, args []js.Value, result js.Value) {
		if len(args) == 0 {
			return
		}
		owner, idx, ok := d.resolveStyleDeclOwner(this)
		if !ok {
			return
		}
		d.emitStyleDeclarationChange(domcore.StyleDeclarationChange{
			Owner: owner, Index: idx, Property: args[0].String(), Removed: true,
		})
	})
}

// resolveStyleDeclOwner recovers the owning node and, for a
// rule-nested declaration, the rule's index among its parent's rules.
func (d *document) resolveStyleDeclOwner(decl js.Value) (domcore.Node, []int, bool) {
	rule := decl.Get("parentRule")
	if rule.Truthy() {
		sheet := rule.Get("parentStyleSheet")
		if !sheet.Truthy() {
			return nil, nil, false
		}
		owner := sheet.Get("ownerNode")
		if !owner.Truthy() {
			return nil, nil, false
		}
		rules := sheet.Get("cssRules")
		for i := 0; i < rules.Length(); i++ {
			if rules.Index(i).Equal(rule) {
				return wrapNode(owner), []int{i}, true
			}
		}
		return wrapNode(owner), nil, true
	}
	el := d.styleDeclOwners.Call("get", decl)
	if !el.Truthy() {
		return nil, nil, false
	}
	return wrapNode(el), nil, true
}

func (d *document) emitStyleDeclarationChange(c domcore.StyleDeclarationChange) {
	for _, h := range d.styleDeclHooks {
		if h != nil {
			h(c)
		}
	}
}

var _ domcore.Document = (*document)(nil)

// rafSource implements domcore.AnimationFrameSource over
// window.requestAnimationFrame/cancelAnimationFrame.
type rafSource struct{}

func (rafSource) RequestFrame(fn func()) int {
	var cb js.Func
	cb = js.FuncOf(func(this js.Value, args []js.Value) any {
		fn()
		cb.Release()
		return nil
	})
	return js.Global().Call("requestAnimationFrame", cb).Int()
}

func (rafSource) CancelFrame(handle int) {
	js.Global().Call("cancelAnimationFrame", handle)
}

var _ domcore.AnimationFrameSource = rafSource{}
