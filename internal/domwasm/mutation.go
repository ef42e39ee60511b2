//go:build js && wasm

package domwasm

import (
	"syscall/js"

	"github.com/domreplay/recorder/internal/domcore"
)

// mutationObserver wraps a live MutationObserver.
type mutationObserver struct {
	native   js.Value
	callback js.Func
	cb       func([]domcore.MutationRecord)
}

func newMutationObserver(cb func([]domcore.MutationRecord)) *mutationObserver {
	mo := &mutationObserver{cb: cb}
	mo.callback = js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) == 0 {
			return nil
		}
		mo.cb(decodeMutationRecords(args[0]))
		return nil
	})
	mo.native = js.Global().Get("MutationObserver").New(mo.callback)
	return mo
}

func (mo *mutationObserver) Observe(target domcore.Node, opts domcore.MutationObserverInit) {
	jv := underlyingValue(target)

	init := map[string]any{
		"childList":         opts.ChildList,
		"attributes":        opts.Attributes,
		"attributeOldValue": opts.AttributeOldValue,
		"characterData":     opts.CharacterData,
		"characterDataOld":  opts.CharacterDataOld,
		"subtree":           opts.Subtree,
	}
	if len(opts.AttributeFilter) > 0 {
		filter := make([]any, len(opts.AttributeFilter))
		for i, f := range opts.AttributeFilter {
			filter[i] = f
		}
		init["attributeFilter"] = filter
	}
	mo.native.Call("observe", jv, init)
}

func (mo *mutationObserver) Disconnect() {
	mo.native.Call("disconnect")
	mo.callback.Release()
}

func (mo *mutationObserver) TakeRecords() []domcore.MutationRecord {
	return decodeMutationRecords(mo.native.Call("takeRecords"))
}

func decodeMutationRecords(list js.Value) []domcore.MutationRecord {
	n := list.Get("length").Int()
	out := make([]domcore.MutationRecord, 0, n)
	for i := 0; i < n; i++ {
		r := list.Index(i)
		rec := domcore.MutationRecord{
			Target:        wrapNode(r.Get("target")),
			AttributeName: stringOrEmpty(r.Get("attributeName")),
			OldValue:      stringOrEmpty(r.Get("oldValue")),
		}
		switch r.Get("type").String() {
		case "attributes":
			rec.Type = domcore.MutationAttributes
		case "characterData":
			rec.Type = domcore.MutationCharacterData
		default:
			rec.Type = domcore.MutationChildList
			rec.AddedNodes = nodeListOf(r.Get("addedNodes"))
			rec.RemovedNodes = nodeListOf(r.Get("removedNodes"))
			if next := r.Get("nextSibling"); !isNullish(next) {
				rec.NextSibling = wrapNode(next)
			}
		}
		out = append(out, rec)
	}
	return out
}

func nodeListOf(list js.Value) []domcore.Node {
	n := list.Get("length").Int()
	out := make([]domcore.Node, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, wrapNode(list.Call("item", i)))
	}
	return out
}

func stringOrEmpty(v js.Value) string {
	if isNullish(v) {
		return ""
	}
	return v.String()
}

// underlyingValue recovers the js.Value backing any domcore.Node this
// package produced, for handing to Observe (which accepts
// domcore.Node generically but, for this binding, always receives one
// of this package's own wrappers).
func underlyingValue(n domcore.Node) js.Value {
	switch w := n.(type) {
	case *document:
		return w.v
	case *element:
		return w.v
	case *canvasElement:
		return w.v
	case *mediaElement:
		return w.v
	case *iframeElement:
		return w.v
	case *shadowRoot:
		return w.v
	case *characterData:
		return w.v
	case *documentType:
		return w.v
	default:
		return js.Null()
	}
}

var _ domcore.MutationObserver = (*mutationObserver)(nil)
