package snapshot

import (
	"fmt"
	"strings"

	"github.com/domreplay/recorder/internal/domcore"
)

// computeXPath returns an absolute-ish XPath for el: an #id shortcut
// when present, otherwise a chain of tag + positional index up to the
// document root.
func computeXPath(el domcore.Element) string {
	if id, ok := el.GetAttribute("id"); ok && id != "" {
		return fmt.Sprintf(`//*[@id="%s"]`, id)
	}
	var parts []string
	cur := domcore.Node(el)
	for {
		e, ok := cur.(domcore.Element)
		if !ok {
			break
		}
		idx := elementPositionAmongSiblings(e)
		parts = append([]string{fmt.Sprintf("%s[%d]", e.TagName(), idx)}, parts...)
		cur = e.ParentNode()
	}
	return "/" + strings.Join(parts, "/")
}

func elementPositionAmongSiblings(el domcore.Element) int {
	parent := el.ParentNode()
	siblings := siblingElements(parent)
	count := 0
	for _, s := range siblings {
		if s.TagName() == el.TagName() {
			count++
		}
		if s == domcore.Node(el) {
			return count
		}
	}
	return 1
}

func siblingElements(parent domcore.Node) []domcore.Element {
	var children []domcore.Node
	switch p := parent.(type) {
	case domcore.Element:
		children = p.ChildNodes()
	case domcore.ShadowRoot:
		children = p.ChildNodes()
	default:
		return nil
	}
	var out []domcore.Element
	for _, c := range children {
		if e, ok := c.(domcore.Element); ok {
			out = append(out, e)
		}
	}
	return out
}

// computeSelector returns a CSS selector for el: an #id shortcut when
// present and unique in root; else tag + classes + data-* attributes,
// verified for uniqueness against root; else a positional
// :nth-of-type chain, which is always unique.
func computeSelector(el domcore.Element, root domcore.Document) string {
	if id, ok := el.GetAttribute("id"); ok && id != "" {
		candidate := "#" + id
		if isUnique(candidate, root, el) {
			return candidate
		}
	}

	var b strings.Builder
	b.WriteString(el.TagName())
	for _, a := range el.Attributes() {
		if a.Name == "class" {
			if s, ok := a.Value.(string); ok {
				for _, c := range strings.Fields(s) {
					b.WriteString("." + c)
				}
			}
		}
		if strings.HasPrefix(a.Name, "data-") {
			if s, ok := a.Value.(string); ok {
				b.WriteString(fmt.Sprintf(`[%s="%s"]`, a.Name, s))
			} else {
				b.WriteString(fmt.Sprintf(`[%s]`, a.Name))
			}
		}
	}
	candidate := b.String()
	if candidate != el.TagName() && isUnique(candidate, root, el) {
		return candidate
	}

	return nthOfTypeChain(el)
}

func nthOfTypeChain(el domcore.Element) string {
	var parts []string
	cur := el
	for {
		idx := elementPositionAmongSiblings(cur)
		parts = append([]string{fmt.Sprintf("%s:nth-of-type(%d)", cur.TagName(), idx)}, parts...)
		parent := cur.ParentNode()
		next, ok := parent.(domcore.Element)
		if !ok {
			break
		}
		cur = next
	}
	return strings.Join(parts, ">")
}

// isUnique walks root's tree and reports whether candidate matches
// exactly one element: target.
func isUnique(candidate string, root domcore.Document, target domcore.Element) bool {
	count := 0
	var walk func(el domcore.Element)
	walk = func(el domcore.Element) {
		if matchesSelector(el, candidate) {
			count++
		}
		for _, c := range el.ChildNodes() {
			if ce, ok := c.(domcore.Element); ok {
				walk(ce)
			}
		}
		if sr, ok := el.ShadowRoot(); ok {
			for _, c := range sr.ChildNodes() {
				if ce, ok := c.(domcore.Element); ok {
					walk(ce)
				}
			}
		}
	}
	walk(root.DocumentElement())
	return count == 1
}
