package snapshot

import (
	"strings"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/internal/rrerrors"
	"github.com/domreplay/recorder/pkg/mirror"
)

// Serializer walks a live document and produces a SerializedNode tree,
// registering every visited node with a shared Mirror. One Serializer
// is created per recording and reused across the initial full snapshot
// and every later checkout, so options (and the Serializer's internal
// stylesheet-owner cache) stay consistent.
type Serializer struct {
	opts      Options
	mirror    *mirror.Mirror
	sheetByOwner map[domcore.Node]domcore.StyleSheet
}

// New returns a Serializer bound to m, which must outlive every call to
// Serialize — ids assigned here are the ones later mutation events
// reference.
func New(m *mirror.Mirror, opts Options) *Serializer {
	return &Serializer{opts: opts, mirror: m}
}

// idFor returns the id n is already registered under, or the next
// unused id, so re-serializing a live node keeps its id.
func (s *Serializer) idFor(n domcore.Node) int {
	if id, ok := s.mirror.GetID(n); ok {
		return id
	}
	return s.mirror.NextID()
}

// Serialize serializes doc's full tree, starting from its
// DocumentElement. It returns *rrerrors.RecorderError with
// rrerrors.SerializationFailed when doc is nil or its document element
// is unreachable.
func (s *Serializer) Serialize(doc domcore.Document) (*SerializedNode, error) {
	if doc == nil {
		return nil, rrerrors.New(rrerrors.SerializationFailed, "snapshot: document is nil")
	}
	s.primeStylesheetCache(doc)

	docID := s.idFor(doc)
	docNode := &SerializedNode{ID: docID, Kind: KindDocument, CompatMode: doc.CompatMode()}
	s.mirror.Add(doc, docID, mirror.Meta{Type: domcore.NodeDocument})

	html := doc.DocumentElement()
	if html == nil {
		return nil, rrerrors.New(rrerrors.SerializationFailed, "snapshot: document element is nil")
	}
	child, err := s.serializeElement(html, doc, false)
	if err != nil {
		return nil, err
	}
	if child != nil {
		docNode.ChildNodes = append(docNode.ChildNodes, child)
	}
	return docNode, nil
}

func (s *Serializer) primeStylesheetCache(doc domcore.Document) {
	s.sheetByOwner = make(map[domcore.Node]domcore.StyleSheet)
	for _, sheet := range doc.StyleSheets() {
		if owner, ok := sheet.OwnerNode(); ok {
			s.sheetByOwner[owner] = sheet
		}
	}
}

// SerializeNode serializes a single node (and, for an Element, its
// live subtree) outside of a full-document walk. The mutation buffer
// uses this to serialize a newly added node for an incremental
// Mutation event.
func (s *Serializer) SerializeNode(n domcore.Node, doc domcore.Document) (*SerializedNode, error) {
	return s.serializeNode(n, doc, false)
}

func (s *Serializer) serializeNode(n domcore.Node, doc domcore.Document, masked bool) (*SerializedNode, error) {
	switch v := n.(type) {
	case domcore.Element:
		return s.serializeElement(v, doc, masked)
	case domcore.DocumentTypeNode:
		return s.serializeDocType(v), nil
	case domcore.CharacterData:
		kind := KindText
		switch v.NodeType() {
		case domcore.NodeComment:
			if s.opts.SlimDOM != SlimDOMOff {
				return nil, nil
			}
			kind = KindComment
		case domcore.NodeCDATA:
			kind = KindCDATA
		}
		return s.serializeCharacterData(v, kind, masked, false), nil
	default:
		return nil, nil
	}
}

func (s *Serializer) serializeDocType(dt domcore.DocumentTypeNode) *SerializedNode {
	id := s.idFor(dt)
	node := &SerializedNode{ID: id, Kind: KindDocumentType, Name: dt.Name(), PublicID: dt.PublicID(), SystemID: dt.SystemID()}
	s.mirror.Add(dt, id, mirror.Meta{Type: domcore.NodeDocumentType})
	return node
}

func (s *Serializer) serializeCharacterData(cd domcore.CharacterData, kind Kind, masked, isStyle bool) *SerializedNode {
	id := s.idFor(cd)
	text := cd.Data()
	if masked && kind == KindText {
		text = maskTextValue(s.opts, nil, text)
	}
	node := &SerializedNode{ID: id, Kind: kind, TextContent: text, IsStyle: isStyle}
	s.mirror.Add(cd, id, mirror.Meta{Type: cd.NodeType()})
	return node
}

func (s *Serializer) serializeElement(el domcore.Element, doc domcore.Document, masked bool) (*SerializedNode, error) {
	if isIgnored(el, s.opts) {
		return nil, nil
	}
	if s.opts.SlimDOM != SlimDOMOff && slimDOMNoiseHead(el, s.opts.SlimDOM) {
		return nil, nil
	}

	tag := el.TagName()
	id := s.idFor(el)
	node := &SerializedNode{ID: id, Kind: KindElement, TagName: tag, IsSVG: el.IsSVG()}

	if isBlocked(el, s.opts) {
		node.NeedBlock = true
		rect := el.BoundingClientRect()
		node.Attributes = OrderedAttrs{
			{Name: "rr_width", Value: rect.Width()},
			{Name: "rr_height", Value: rect.Height()},
		}
		s.mirror.Add(el, id, mirror.Meta{Type: domcore.NodeElement, Tag: tag})
		return node, nil
	}

	if !masked {
		masked = isMaskedText(el, s.opts)
	}

	node.Attributes = s.serializeAttributes(el)
	node.XPath = computeXPath(el)
	node.Selector = computeSelector(el, doc)

	if s.opts.VisibilityOf != nil {
		node.IsVisible, node.IsInteractive = s.opts.VisibilityOf(el)
	} else {
		node.IsInteractive = defaultIsInteractive(el)
	}

	if tag == "input" || tag == "textarea" || tag == "select" {
		s.applyInputMasking(el, node)
	}

	if tag == "link" && s.opts.InlineStylesheet {
		s.inlineLinkedStylesheet(el, node)
	}

	if s.opts.RecordCanvas && tag == "canvas" {
		if cv, ok := domcore.Element(el).(domcore.CanvasElement); ok && !cv.IsBlank() {
			url := cv.DataURL(s.opts.DataURLOptions.Type, s.opts.DataURLOptions.Quality)
			node.Attributes = node.Attributes.Set("rr_dataURL", url)
		}
	}

	var iframeChild *SerializedNode
	if tag == "iframe" {
		var err error
		iframeChild, err = s.serializeIframe(el, node)
		if err != nil {
			return nil, err
		}
	}

	for _, c := range el.ChildNodes() {
		cn, err := s.serializeNode(c, doc, masked)
		if err != nil {
			return nil, err
		}
		if cn != nil {
			node.ChildNodes = append(node.ChildNodes, cn)
		}
	}
	if iframeChild != nil {
		node.ChildNodes = append(node.ChildNodes, iframeChild)
	}

	if sr, ok := el.ShadowRoot(); ok {
		node.IsShadowHost = true
		for _, c := range sr.ChildNodes() {
			cn, err := s.serializeNode(c, doc, masked)
			if err != nil {
				return nil, err
			}
			if cn != nil {
				cn.IsShadow = true
				node.ChildNodes = append(node.ChildNodes, cn)
			}
		}
	}

	s.mirror.Add(el, id, mirror.Meta{Type: domcore.NodeElement, Tag: tag})
	if s.opts.OnSerialize != nil {
		s.opts.OnSerialize(el, node)
	}
	return node, nil
}

func (s *Serializer) serializeAttributes(el domcore.Element) OrderedAttrs {
	var out OrderedAttrs
	for _, a := range el.Attributes() {
		if s.opts.ExcludeAttribute != nil && s.opts.ExcludeAttribute.MatchString(a.Name) {
			continue
		}
		out = append(out, AttrPair{Name: a.Name, Value: a.Value})
	}
	return out
}

func (s *Serializer) applyInputMasking(el domcore.Element, node *SerializedNode) {
	if !inputMaskEnabled(el, s.opts) {
		return
	}
	value, hasValue := node.Attributes.Get("value")
	str, _ := value.(string)
	if hasValue {
		node.Attributes = node.Attributes.Set("value", maskValue(s.opts, el, str))
	}
	if typ, ok := el.GetAttribute("type"); ok && strings.EqualFold(typ, "password") {
		node.Attributes = node.Attributes.Set("data-rr-is-password", true)
	}
}

func (s *Serializer) inlineLinkedStylesheet(el domcore.Element, node *SerializedNode) {
	sheet, ok := s.sheetByOwner[el]
	if !ok {
		return
	}
	rules, err := sheet.CSSRules()
	if err != nil {
		return
	}
	node.Attributes = node.Attributes.Set("_cssText", strings.Join(rules, "\n"))
	if s.opts.OnStylesheetLoad != nil {
		s.opts.OnStylesheetLoad(sheet, node)
	}
}

func (s *Serializer) serializeIframe(el domcore.Element, node *SerializedNode) (*SerializedNode, error) {
	ifr, ok := domcore.Element(el).(domcore.IframeElement)
	if !ok {
		return nil, nil
	}
	src := ifr.Src()
	keep := s.opts.KeepIframeSrcFn != nil && s.opts.KeepIframeSrcFn(src)
	if !keep {
		node.Attributes = node.Attributes.Set("src", "about:blank")
	}
	cdoc, ok := ifr.ContentDocument()
	if !ok {
		return nil, nil
	}
	childNode, err := s.Serialize(cdoc)
	if err != nil {
		return nil, err
	}
	node.RootID = &childNode.ID
	if s.opts.OnIframeLoad != nil {
		s.opts.OnIframeLoad(ifr, node)
	}
	return childNode, nil
}

// defaultIsInteractive is the fixed-set interactivity fallback the
// serializer uses when no VisibilityLookup is wired (standalone
// serializer tests, or a facade configured without the visibility
// pipeline). pkg/visibility implements the fuller classifier that also
// consults observed listener registrations.
func defaultIsInteractive(el domcore.Element) bool {
	switch el.TagName() {
	case "a", "button", "input", "select", "textarea", "label", "details", "summary", "dialog", "video", "audio":
		return true
	}
	if ti, ok := el.GetAttribute("tabindex"); ok && ti != "-1" {
		return true
	}
	if role, ok := el.GetAttribute("role"); ok {
		switch role {
		case "button", "link", "checkbox", "switch", "menuitem":
			return true
		}
	}
	return false
}
