package domcore

// StyleSheet is a CSSStyleSheet: either the sheet owned by a <style> or
// <link rel=stylesheet> element, or one present only in
// document.adoptedStyleSheets.
type StyleSheet interface {
	// OwnerNode returns the owning <style>/<link> element, or ok=false
	// for an adopted sheet with no owning node.
	OwnerNode() (Node, bool)

	// Href returns the sheet's URL, or ok=false for an inline sheet.
	Href() (string, bool)

	// CSSRules returns each rule's serialized cssText. err is non-nil
	// when the rules are inaccessible (cross-origin stylesheet without
	// CORS headers).
	CSSRules() (rules []string, err error)
}

// StyleSheetChangeKind discriminates a live stylesheet mutation.
type StyleSheetChangeKind uint8

const (
	StyleSheetRuleInserted StyleSheetChangeKind = iota
	StyleSheetRuleDeleted
	StyleSheetReplaced // CSSStyleSheet.replace()/replaceSync()
)

// StyleSheetChange describes one live CSSOM mutation (insertRule,
// deleteRule, replace/replaceSync) that bypasses the mutation observer.
type StyleSheetChange struct {
	Kind     StyleSheetChangeKind
	Sheet    StyleSheet
	Index    int
	CSSText  string // rule text for insert; full text for replace
}

// StyleDeclarationChange describes one CSSStyleDeclaration property
// write (setProperty/removeProperty), covering both an element's
// inline style and a rule nested inside a stylesheet — a change
// MutationObserver's attribute tracking does not reliably capture at
// the single-property level, and which OnStyleSheetChange never sees
// since it isn't an insertRule/deleteRule/replace.
type StyleDeclarationChange struct {
	// Owner is the styled element for an inline declaration, or the
	// owning stylesheet's owner node for a rule-nested declaration.
	Owner Node

	// Index is the rule's position among its parent's rules, nil for
	// an inline declaration.
	Index []int

	Property string
	Value    string // empty when Removed is true
	Priority string
	Removed  bool
}

// FontFace is one loaded @font-face entry.
type FontFace struct {
	Family string
	Status string // "loaded", "error"
}

// CustomElementDefinition describes a customElements.define() call.
type CustomElementDefinition struct {
	Name string
}

// Selection mirrors the subset of the Selection API the engine records.
type Selection struct {
	Ranges []SelectionRange
}

// SelectionRange is one Range within a Selection.
type SelectionRange struct {
	StartNode   Node
	StartOffset int
	EndNode     Node
	EndOffset   int
}

// AnimationFrameSource schedules per-frame callbacks. domwasm implements
// it over window.requestAnimationFrame; domfake implements it over a
// manually or ticker-driven clock so tests can control frame pacing.
type AnimationFrameSource interface {
	RequestFrame(fn func()) int
	CancelFrame(handle int)
}

// Document is the root of a DOM tree, live or nested (iframe content
// document).
type Document interface {
	Node

	// DocumentElement returns the root <html> element.
	DocumentElement() Element

	// CompatMode returns "CSS1Compat" (standards mode) or
	// "BackCompat" (quirks mode).
	CompatMode() string

	// Viewport returns the window's inner width/height in CSS pixels.
	Viewport() (width, height int)

	// Location returns window.location.href, used to stamp the Meta
	// event and to validate a cross-origin iframe's postMessage origin.
	Location() string

	// StyleSheets returns document.styleSheets.
	StyleSheets() []StyleSheet

	// AdoptedStyleSheets returns document.adoptedStyleSheets.
	AdoptedStyleSheets() []StyleSheet

	// Fonts lists the currently loaded font faces.
	Fonts() []FontFace

	// AnimationFrames returns the frame scheduler bound to this
	// document's window.
	AnimationFrames() AnimationFrameSource

	// OnViewportResize is invoked on window resize.
	OnViewportResize(fn func(width, height int)) Disposable

	// NewMutationObserver creates a MutationObserver bound to cb. The
	// caller must call Observe to start receiving records.
	NewMutationObserver(cb func([]MutationRecord)) MutationObserver

	// OnListenerRegistered is invoked whenever any event listener is
	// attached anywhere in the document, mirroring a patched
	// EventTarget.prototype.addEventListener. It is how the engine
	// classifies interactivity without per-element polling.
	OnListenerRegistered(fn func(target Element, eventType string)) Disposable

	// OnStyleSheetChange is invoked for live CSSOM mutations that
	// MutationObserver does not see (insertRule, deleteRule, replace).
	OnStyleSheetChange(fn func(StyleSheetChange)) Disposable

	// OnAdoptedStyleSheetsChange is invoked when
	// document.adoptedStyleSheets is reassigned.
	OnAdoptedStyleSheetsChange(fn func([]StyleSheet)) Disposable

	// OnFontsChange is invoked when the document's FontFaceSet finishes
	// a loading pass.
	OnFontsChange(fn func([]FontFace)) Disposable

	// OnCustomElementDefined is invoked for each customElements.define
	// call.
	OnCustomElementDefined(fn func(CustomElementDefinition)) Disposable

	// OnSelectionChange is invoked on selectionchange.
	OnSelectionChange(fn func(Selection)) Disposable

	// OnStyleDeclarationChange is invoked for a CSSStyleDeclaration
	// property write, inline or rule-nested.
	OnStyleDeclarationChange(fn func(StyleDeclarationChange)) Disposable
}

// MutationType discriminates the kind of change a MutationRecord
// describes.
type MutationType uint8

const (
	MutationChildList MutationType = iota
	MutationAttributes
	MutationCharacterData
)

// MutationRecord mirrors the DOM MutationRecord the MutationObserver
// callback receives.
type MutationRecord struct {
	Type          MutationType
	Target        Node
	AddedNodes    []Node
	RemovedNodes  []Node
	AttributeName string
	OldValue      string
	NextSibling   Node // insertion point hint for AddedNodes, nil if appended
}

// MutationObserverInit configures which mutations Observe reports.
type MutationObserverInit struct {
	ChildList         bool
	Attributes        bool
	AttributeOldValue bool
	AttributeFilter   []string
	CharacterData     bool
	CharacterDataOld  bool
	Subtree           bool
}

// MutationObserver mirrors the DOM MutationObserver.
type MutationObserver interface {
	Observe(target Node, opts MutationObserverInit)
	Disconnect()
	// TakeRecords flushes and returns any queued records without
	// invoking the callback.
	TakeRecords() []MutationRecord
}
