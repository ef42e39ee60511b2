package snapshot

import (
	"regexp"

	"github.com/domreplay/recorder/internal/domcore"
)

// SlimDOMMode controls head/script noise pruning.
type SlimDOMMode uint8

const (
	SlimDOMOff SlimDOMMode = iota
	SlimDOMOn              // drop scripts, comments, favicon, common head noise
	SlimDOMAll             // SlimDOMOn plus description/keywords/author meta tags; <title> is kept and its changes are not pruned
)

// DataURLOptions controls canvas/image inlining quality.
type DataURLOptions struct {
	Type    string  // e.g. "image/webp"
	Quality float64 // 0..1
}

// VisibilityLookup resolves the visibility/interactivity flags the
// serializer stamps onto each element, computed by pkg/visibility and
// handed to the serializer rather than recomputed here.
type VisibilityLookup func(el domcore.Element) (isVisible, isInteractive bool)

// Options configures one Serialize call. The zero value disables every
// optional policy (no blocking, no slimDOM, no canvas inlining, and no
// masking beyond the password-input default in match.go).
type Options struct {
	BlockClass      string
	BlockSelector   string
	IgnoreClass     string
	IgnoreSelector  string
	ExcludeAttribute *regexp.Regexp

	MaskTextClass    string
	MaskTextSelector string
	MaskTextFn       func(text string, el domcore.Element) string

	MaskAllInputs    bool
	MaskInputOptions map[string]bool // keyed by lowercased input type or tag name
	MaskInputFn      func(value string, el domcore.Element) string

	SlimDOM SlimDOMMode

	InlineStylesheet bool
	InlineImages     bool
	RecordCanvas     bool
	DataURLOptions   DataURLOptions

	KeepIframeSrcFn func(url string) bool

	OnSerialize      func(n domcore.Node, s *SerializedNode)
	OnIframeLoad     func(el domcore.IframeElement, s *SerializedNode)
	OnStylesheetLoad func(sheet domcore.StyleSheet, s *SerializedNode)

	VisibilityOf VisibilityLookup
}

const ignoredNodeID = -2

// defaultMaskChar is what maskTextFn/maskInputFn fall back to absent an
// override: one '*' per original rune, matching the spec's
// length-preserving masking invariant.
const defaultMaskChar = '*'
