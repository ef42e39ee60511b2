package snapshot

import (
	"strings"

	"github.com/domreplay/recorder/internal/domcore"
)

func hasClass(el domcore.Element, class string) bool {
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

// matchesSelector implements a deliberately reduced CSS selector
// grammar: a comma-separated list of compound selectors, each a
// sequence of a tag name, #id, .class, and [attr] / [attr=value]
// tokens with no combinators (no descendant/child selectors). It has
// no access to a browser's native Element.matches, so block/ignore
// selectors in this fork are expected to name the element directly
// rather than an ancestor-qualified path.
func matchesSelector(el domcore.Element, selector string) bool {
	if selector == "" {
		return false
	}
	for _, compound := range strings.Split(selector, ",") {
		if matchesCompound(el, strings.TrimSpace(compound)) {
			return true
		}
	}
	return false
}

func matchesCompound(el domcore.Element, compound string) bool {
	if compound == "" {
		return false
	}
	rest := compound
	matchedAny := false
	for len(rest) > 0 {
		switch rest[0] {
		case '#':
			end := tokenEnd(rest[1:])
			id := rest[1 : 1+end]
			v, ok := el.GetAttribute("id")
			if !ok || v != id {
				return false
			}
			rest = rest[1+end:]
			matchedAny = true
		case '.':
			end := tokenEnd(rest[1:])
			class := rest[1 : 1+end]
			if !hasClass(el, class) {
				return false
			}
			rest = rest[1+end:]
			matchedAny = true
		case '[':
			close := strings.IndexByte(rest, ']')
			if close < 0 {
				return false
			}
			body := rest[1:close]
			if !matchesAttrToken(el, body) {
				return false
			}
			rest = rest[close+1:]
			matchedAny = true
		default:
			end := tokenEnd(rest)
			tag := rest[:end]
			if !strings.EqualFold(tag, el.TagName()) {
				return false
			}
			rest = rest[end:]
			matchedAny = true
		}
	}
	return matchedAny
}

func tokenEnd(s string) int {
	for i, r := range s {
		if r == '#' || r == '.' || r == '[' {
			return i
		}
	}
	return len(s)
}

func matchesAttrToken(el domcore.Element, token string) bool {
	eq := strings.IndexByte(token, '=')
	if eq < 0 {
		_, ok := el.GetAttribute(strings.TrimSpace(token))
		return ok
	}
	name := strings.TrimSpace(token[:eq])
	want := strings.Trim(strings.TrimSpace(token[eq+1:]), `"'`)
	v, ok := el.GetAttribute(name)
	return ok && v == want
}

func isBlocked(el domcore.Element, opts Options) bool {
	return hasClass(el, opts.BlockClass) || matchesSelector(el, opts.BlockSelector)
}

func isIgnored(el domcore.Element, opts Options) bool {
	return hasClass(el, opts.IgnoreClass) || matchesSelector(el, opts.IgnoreSelector)
}

func isMaskedText(el domcore.Element, opts Options) bool {
	return hasClass(el, opts.MaskTextClass) || matchesSelector(el, opts.MaskTextSelector)
}

// sensitiveInputTypes are the input kinds masked even when neither
// MaskAllInputs nor a MaskInputOptions entry asks for it, the same
// fallback pkg/observers/input.go applies on the live Input path.
var sensitiveInputTypes = map[string]bool{
	"password": true,
}

func shouldMaskInput(el domcore.Element) (mask bool, kind string) {
	tag := el.TagName()
	typ, hasType := el.GetAttribute("type")
	if tag == "input" && hasType {
		typ = strings.ToLower(typ)
		return true, typ
	}
	if tag == "input" {
		return true, "text"
	}
	return tag == "textarea" || tag == "select", tag
}

func inputMaskEnabled(el domcore.Element, opts Options) bool {
	if opts.MaskAllInputs {
		return true
	}
	_, kind := shouldMaskInput(el)
	if opts.MaskInputOptions != nil && opts.MaskInputOptions[kind] {
		return true
	}
	return sensitiveInputTypes[kind]
}

func maskValue(opts Options, el domcore.Element, value string) string {
	if opts.MaskInputFn != nil {
		return opts.MaskInputFn(value, el)
	}
	return strings.Repeat(string(defaultMaskChar), len([]rune(value)))
}

func maskTextValue(opts Options, el domcore.Element, text string) string {
	if opts.MaskTextFn != nil {
		return opts.MaskTextFn(text, el)
	}
	return strings.Repeat(string(defaultMaskChar), len([]rune(text)))
}

// slimDOMNoiseHead reports whether a <head>-resident element should be
// pruned under SlimDOMOn/SlimDOMAll.
func slimDOMNoiseHead(el domcore.Element, mode SlimDOMMode) bool {
	if mode == SlimDOMOff {
		return false
	}
	tag := el.TagName()
	switch tag {
	case "script":
		return true
	}
	if tag == "link" {
		if rel, ok := el.GetAttribute("rel"); ok && strings.Contains(strings.ToLower(rel), "icon") {
			return true
		}
	}
	if tag == "meta" {
		name, hasName := el.GetAttribute("name")
		prop, hasProp := el.GetAttribute("property")
		httpEquiv, hasEquiv := el.GetAttribute("http-equiv")
		lname := strings.ToLower(name)
		lprop := strings.ToLower(prop)
		if hasEquiv && httpEquiv != "" {
			return true
		}
		if hasName && (strings.HasPrefix(lname, "og:") || lname == "twitter:card" || lname == "robots" || strings.HasPrefix(lname, "verify-") || strings.Contains(lname, "site-verification")) {
			return true
		}
		if hasProp && strings.HasPrefix(lprop, "og:") {
			return true
		}
		if mode == SlimDOMAll && hasName && (lname == "description" || lname == "keywords" || lname == "author") {
			return true
		}
	}
	return false
}
