//go:build js && wasm

package domwasm

import (
	"syscall/js"

	"github.com/domreplay/recorder/internal/domcore"
)

// styleSheet wraps a live CSSStyleSheet.
type styleSheet struct{ v js.Value }

func newStyleSheet(v js.Value) *styleSheet { return &styleSheet{v: v} }

func (s *styleSheet) OwnerNode() (domcore.Node, bool) {
	owner := s.v.Get("ownerNode")
	if isNullish(owner) {
		return nil, false
	}
	return wrapNode(owner), true
}

func (s *styleSheet) Href() (string, bool) {
	href := s.v.Get("href")
	if isNullish(href) {
		return "", false
	}
	return href.String(), true
}

// CSSRules reads sheet.cssRules, which throws a SecurityError for a
// cross-origin stylesheet without CORS headers; that throw surfaces
// here as a non-nil err, matching the original source's own
// try/catch-around-cssRules pattern.
func (s *styleSheet) CSSRules() (rules []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errCSSRulesInaccessible
		}
	}()
	list := s.v.Get("cssRules")
	n := list.Get("length").Int()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, list.Call("item", i).Get("cssText").String())
	}
	return out, nil
}

var errCSSRulesInaccessible = &cssRulesError{}

type cssRulesError struct{}

func (*cssRulesError) Error() string { return "domwasm: cssRules inaccessible (cross-origin stylesheet)" }

var _ domcore.StyleSheet = (*styleSheet)(nil)
