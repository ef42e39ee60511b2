//go:build js && wasm

package domwasm

import (
	"syscall/js"

	"github.com/domreplay/recorder/internal/domcore"
)

// nodeBase holds the underlying JS node and its cached domcore type.
type nodeBase struct {
	v     js.Value
	ntype domcore.NodeType
}

func (n *nodeBase) NodeType() domcore.NodeType { return n.ntype }

func (n *nodeBase) ParentNode() domcore.Node {
	p := n.v.Get("parentNode")
	return wrapNode(p)
}

// characterData wraps a Text, Comment, or CDATASection node.
type characterData struct{ nodeBase }

func newCharacterData(v js.Value) *characterData {
	return &characterData{nodeBase{v: v, ntype: nodeTypeOf(v)}}
}

func (c *characterData) Data() string { return c.v.Get("data").String() }

var _ domcore.CharacterData = (*characterData)(nil)

// documentType wraps a <!DOCTYPE> node.
type documentType struct{ nodeBase }

func newDocumentType(v js.Value) *documentType {
	return &documentType{nodeBase{v: v, ntype: domcore.NodeDocumentType}}
}

func (d *documentType) Name() string     { return d.v.Get("name").String() }
func (d *documentType) PublicID() string { return d.v.Get("publicId").String() }
func (d *documentType) SystemID() string { return d.v.Get("systemId").String() }

var _ domcore.DocumentTypeNode = (*documentType)(nil)
