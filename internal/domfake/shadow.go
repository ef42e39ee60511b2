package domfake

import "github.com/domreplay/recorder/internal/domcore"

// ShadowRootNode is an in-memory shadow root.
type ShadowRootNode struct {
	nodeBase
	doc      *Document
	host     *Element
	mode     string
	children []domcore.Node
}

func (s *ShadowRootNode) Host() domcore.Element  { return s.host }
func (s *ShadowRootNode) ChildNodes() []domcore.Node { return s.children }
func (s *ShadowRootNode) Mode() string            { return s.mode }

// AppendChild appends child to the shadow tree and emits a ChildList
// mutation record targeting the shadow root.
func (s *ShadowRootNode) AppendChild(child domcore.Node) {
	setParent(child, s)
	s.children = append(s.children, child)
	s.doc.emit(domcore.MutationRecord{
		Type:       domcore.MutationChildList,
		Target:     s,
		AddedNodes: []domcore.Node{child},
	})
}

var _ domcore.ShadowRoot = (*ShadowRootNode)(nil)
