package observers

import (
	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
)

// StyleSheetObserver reports live CSSOM rule inserts/deletes that
// bypass MutationObserver entirely (insertRule, deleteRule, replace).
type StyleSheetObserver struct {
	doc      domcore.Document
	getID    IDResolver
	emit     func(event.Data)
	disposed domcore.Disposable
}

// NewStyleSheetObserver constructs a StyleSheetObserver.
func NewStyleSheetObserver(doc domcore.Document, getID IDResolver, emit func(event.Data)) *StyleSheetObserver {
	return &StyleSheetObserver{doc: doc, getID: getID, emit: emit}
}

// Install subscribes to live stylesheet mutations.
func (o *StyleSheetObserver) Install() domcore.Disposable {
	o.disposed = o.doc.OnStyleSheetChange(o.onChange)
	return o.disposed
}

func (o *StyleSheetObserver) onChange(c domcore.StyleSheetChange) {
	owner, ok := c.Sheet.OwnerNode()
	if !ok {
		return
	}
	id, ok := o.getID(owner)
	if !ok {
		return
	}
	switch c.Kind {
	case domcore.StyleSheetRuleInserted:
		o.emit(event.StyleSheetRuleData{
			Source: event.SourceStyleSheetRule,
			ID:     id,
			Adds:   []event.StyleRuleAdd{{Rule: c.CSSText, Index: c.Index}},
		})
	case domcore.StyleSheetRuleDeleted:
		o.emit(event.StyleSheetRuleData{
			Source:  event.SourceStyleSheetRule,
			ID:      id,
			Removes: []event.StyleRuleRemove{{Index: c.Index}},
		})
	case domcore.StyleSheetReplaced:
		// A full replace is emitted as a single insert of the new text
		// at index 0; the rules it replaced are not listed as Removes.
		o.emit(event.StyleSheetRuleData{
			Source: event.SourceStyleSheetRule,
			ID:     id,
			Adds:   []event.StyleRuleAdd{{Rule: c.CSSText, Index: 0}},
		})
	}
}

// AdoptedStyleSheetObserver reports document.adoptedStyleSheets
// reassignment.
type AdoptedStyleSheetObserver struct {
	doc      domcore.Document
	getID    IDResolver
	emit     func(event.Data)
	rootID   int
	disposed domcore.Disposable
}

// NewAdoptedStyleSheetObserver constructs an AdoptedStyleSheetObserver.
// rootID is the mirror id of doc itself (or the shadow root host, for
// a shadow-scoped adopted list), matching the original
// source's id-keyed reporting of adopted stylesheet changes.
func NewAdoptedStyleSheetObserver(doc domcore.Document, rootID int, getID IDResolver, emit func(event.Data)) *AdoptedStyleSheetObserver {
	return &AdoptedStyleSheetObserver{doc: doc, getID: getID, emit: emit, rootID: rootID}
}

// Install subscribes to adoptedStyleSheets reassignment.
func (o *AdoptedStyleSheetObserver) Install() domcore.Disposable {
	o.disposed = o.doc.OnAdoptedStyleSheetsChange(o.onChange)
	return o.disposed
}

func (o *AdoptedStyleSheetObserver) onChange(sheets []domcore.StyleSheet) {
	ids := make([]int, 0, len(sheets))
	texts := make([]string, 0, len(sheets))
	for _, s := range sheets {
		rules, err := s.CSSRules()
		if err != nil {
			continue
		}
		ids = append(ids, len(ids))
		joined := ""
		for _, r := range rules {
			joined += r
		}
		texts = append(texts, joined)
	}
	o.emit(event.AdoptedStyleSheetData{
		Source:      event.SourceAdoptedStyleSheet,
		ID:          o.rootID,
		StyleIDs:    ids,
		StyleSheets: texts,
	})
}

// StyleDeclarationObserver reports CSSStyleDeclaration.setProperty/
// removeProperty calls, both on an element's inline style and on a
// rule nested inside a tracked stylesheet.
type StyleDeclarationObserver struct {
	doc      domcore.Document
	getID    IDResolver
	emit     func(event.Data)
	disposed domcore.Disposable
}

// NewStyleDeclarationObserver constructs a StyleDeclarationObserver.
func NewStyleDeclarationObserver(doc domcore.Document, getID IDResolver, emit func(event.Data)) *StyleDeclarationObserver {
	return &StyleDeclarationObserver{doc: doc, getID: getID, emit: emit}
}

// Install subscribes to live CSSStyleDeclaration property writes.
func (o *StyleDeclarationObserver) Install() domcore.Disposable {
	o.disposed = o.doc.OnStyleDeclarationChange(o.onChange)
	return o.disposed
}

func (o *StyleDeclarationObserver) onChange(c domcore.StyleDeclarationChange) {
	if c.Owner == nil {
		return
	}
	id, ok := o.getID(c.Owner)
	if !ok {
		return
	}
	d := event.StyleDeclarationData{Source: event.SourceStyleDeclaration, ID: id, Index: c.Index}
	if c.Removed {
		prop := c.Property
		d.Remove = &prop
	} else {
		d.Set = &event.StylePropertySet{Property: c.Property, Value: c.Value, Priority: c.Priority}
	}
	o.emit(d)
}

// FontObserver reports completed FontFaceSet loading passes.
type FontObserver struct {
	doc      domcore.Document
	emit     func(event.Data)
	disposed domcore.Disposable
}

// NewFontObserver constructs a FontObserver.
func NewFontObserver(doc domcore.Document, emit func(event.Data)) *FontObserver {
	return &FontObserver{doc: doc, emit: emit}
}

// Install subscribes to font loading completion.
func (o *FontObserver) Install() domcore.Disposable {
	o.disposed = o.doc.OnFontsChange(func(faces []domcore.FontFace) {
		for _, f := range faces {
			if f.Status != "loaded" {
				continue
			}
			o.emit(event.FontData{
				Source:     event.SourceFont,
				Family:     f.Family,
				FontSource: "",
			})
		}
	})
	return o.disposed
}

// CustomElementObserver reports customElements.define() calls.
type CustomElementObserver struct {
	doc      domcore.Document
	emit     func(event.Data)
	disposed domcore.Disposable
}

// NewCustomElementObserver constructs a CustomElementObserver.
func NewCustomElementObserver(doc domcore.Document, emit func(event.Data)) *CustomElementObserver {
	return &CustomElementObserver{doc: doc, emit: emit}
}

// Install subscribes to custom element definition.
func (o *CustomElementObserver) Install() domcore.Disposable {
	o.disposed = o.doc.OnCustomElementDefined(func(def domcore.CustomElementDefinition) {
		o.emit(event.CustomElementData{Source: event.SourceCustomElement, Define: def.Name})
	})
	return o.disposed
}

// SelectionObserver reports selectionchange, resolving each range's
// start/end containers to mirror ids.
type SelectionObserver struct {
	doc      domcore.Document
	getID    IDResolver
	emit     func(event.Data)
	disposed domcore.Disposable
}

// NewSelectionObserver constructs a SelectionObserver.
func NewSelectionObserver(doc domcore.Document, getID IDResolver, emit func(event.Data)) *SelectionObserver {
	return &SelectionObserver{doc: doc, getID: getID, emit: emit}
}

// Install subscribes to selectionchange.
func (o *SelectionObserver) Install() domcore.Disposable {
	o.disposed = o.doc.OnSelectionChange(o.onChange)
	return o.disposed
}

func (o *SelectionObserver) onChange(sel domcore.Selection) {
	ranges := make([]event.SelectionRange, 0, len(sel.Ranges))
	for _, r := range sel.Ranges {
		startID, ok1 := o.getID(r.StartNode)
		endID, ok2 := o.getID(r.EndNode)
		if !ok1 || !ok2 {
			continue
		}
		ranges = append(ranges, event.SelectionRange{
			Start: event.SelectionRangePoint{ID: startID, Offset: r.StartOffset},
			End:   event.SelectionRangePoint{ID: endID, Offset: r.EndOffset},
		})
	}
	if len(ranges) == 0 {
		return
	}
	o.emit(event.SelectionData{Source: event.SourceSelection, Ranges: ranges})
}
