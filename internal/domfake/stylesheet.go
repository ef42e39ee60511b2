package domfake

import (
	"errors"

	"github.com/domreplay/recorder/internal/domcore"
)

// StyleSheet is an in-memory CSSStyleSheet.
type StyleSheet struct {
	owner       domcore.Node
	href        string
	hasHref     bool
	rules       []string
	inaccessible bool
}

// NewInlineStyleSheet creates a sheet owned by a <style> element.
func NewInlineStyleSheet(owner domcore.Node, rules ...string) *StyleSheet {
	return &StyleSheet{owner: owner, rules: rules}
}

// NewLinkedStyleSheet creates a sheet owned by a <link> element, with
// href and an accessibility flag for simulating a cross-origin sheet
// without CORS headers.
func NewLinkedStyleSheet(owner domcore.Node, href string, accessible bool, rules ...string) *StyleSheet {
	return &StyleSheet{owner: owner, href: href, hasHref: true, rules: rules, inaccessible: !accessible}
}

// NewAdoptedStyleSheet creates a sheet with no owning node, as returned
// by the Constructable Stylesheets API.
func NewAdoptedStyleSheet(rules ...string) *StyleSheet {
	return &StyleSheet{rules: rules}
}

func (s *StyleSheet) OwnerNode() (domcore.Node, bool) {
	if s.owner == nil {
		return nil, false
	}
	return s.owner, true
}

func (s *StyleSheet) Href() (string, bool) { return s.href, s.hasHref }

func (s *StyleSheet) CSSRules() ([]string, error) {
	if s.inaccessible {
		return nil, errors.New("domfake: stylesheet rules inaccessible (cross-origin)")
	}
	return s.rules, nil
}

// InsertRule appends a rule and notifies doc's stylesheet hooks.
func (s *StyleSheet) InsertRule(doc *Document, cssText string) {
	s.rules = append(s.rules, cssText)
	doc.NotifyStyleSheetChange(domcore.StyleSheetChange{
		Kind:    domcore.StyleSheetRuleInserted,
		Sheet:   s,
		Index:   len(s.rules) - 1,
		CSSText: cssText,
	})
}

var _ domcore.StyleSheet = (*StyleSheet)(nil)
