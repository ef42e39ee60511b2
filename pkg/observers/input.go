package observers

import (
	"strings"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
)

// InputOptions configures input/change masking. It deliberately
// mirrors the subset of pkg/snapshot.Options that governs masking
// rather than importing that package, since the live-event masking
// decision (what value to ever construct, before an observer even
// calls into this package) must not depend on snapshot's full policy
// surface.
type InputOptions struct {
	MaskAllInputs    bool
	MaskInputOptions map[string]bool // lowercased input "type" -> mask
	MaskInputFn      func(value string, el domcore.Element) string
	IgnoreClass      string
	MaskTextClass    string

	// UserTriggered is stamped onto every emitted InputData, matching
	// the original source's userTriggeredOnInput option: false lets a
	// replay viewer distinguish a real keystroke from a programmatic
	// value assignment it also observes via the same event.
	UserTriggered bool
}

var sensitiveInputTypes = map[string]bool{
	"password": true,
}

// InputObserver delegates "input" and "change" events, masking values
// per the same sensitive-input-type policy the full snapshot applies
// so a masked field never round-trips its real value through either
// code path.
type InputObserver struct {
	doc      domcore.Document
	opts     InputOptions
	getID    IDResolver
	emit     func(event.Data)
	disposed []domcore.Disposable
	lastText map[domcore.Node]string
}

// NewInputObserver constructs an InputObserver.
func NewInputObserver(doc domcore.Document, opts InputOptions, getID IDResolver, emit func(event.Data)) *InputObserver {
	return &InputObserver{doc: doc, opts: opts, getID: getID, emit: emit, lastText: make(map[domcore.Node]string)}
}

// Install attaches delegated "input" and "change" listeners.
func (o *InputObserver) Install() domcore.Disposable {
	root := o.doc.DocumentElement()
	o.disposed = append(o.disposed,
		root.AddEventListener("input", o.onEvent),
		root.AddEventListener("change", o.onEvent),
	)
	return domcore.DisposeFunc(func() {
		for _, d := range o.disposed {
			if d != nil {
				d.Dispose()
			}
		}
	})
}

func (o *InputObserver) onEvent(e domcore.Event) {
	target, ok := e.Target.(domcore.Element)
	if !ok {
		return
	}
	if hasClassAttr(target, o.opts.IgnoreClass) {
		return
	}
	id, ok := o.getID(target)
	if !ok {
		return
	}

	isCheckbox := false
	value := ""
	if v, ok := target.GetAttribute("value"); ok {
		value = v
	}
	if t, ok := target.GetAttribute("type"); ok && (strings.EqualFold(t, "checkbox") || strings.EqualFold(t, "radio")) {
		isCheckbox = true
	}

	masked := o.maskValue(target, value)

	if !isCheckbox {
		if prev, ok := o.lastText[target]; ok && prev == masked {
			return
		}
		o.lastText[target] = masked
	}

	checked := false
	if c, ok := target.GetAttribute("checked"); ok {
		checked = c != ""
	}

	o.emit(event.InputData{
		Source:        event.SourceInput,
		ID:            id,
		Text:          masked,
		IsChecked:     isCheckbox && checked,
		UserTriggered: o.opts.UserTriggered,
	})
}

func (o *InputObserver) maskValue(el domcore.Element, value string) string {
	if !o.shouldMask(el) {
		return value
	}
	if o.opts.MaskInputFn != nil {
		return o.opts.MaskInputFn(value, el)
	}
	return strings.Repeat("*", len(value))
}

func (o *InputObserver) shouldMask(el domcore.Element) bool {
	if hasClassAttr(el, o.opts.MaskTextClass) {
		return true
	}
	if o.opts.MaskAllInputs {
		return true
	}
	t, _ := el.GetAttribute("type")
	t = strings.ToLower(t)
	if o.opts.MaskInputOptions[t] {
		return true
	}
	return sensitiveInputTypes[t]
}

func hasClassAttr(el domcore.Element, class string) bool {
	if class == "" {
		return false
	}
	v, ok := el.GetAttribute("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}
