package domfake

import "github.com/domreplay/recorder/internal/domcore"

// CharacterData is an in-memory Text, Comment, or CDATA node.
type CharacterData struct {
	nodeBase
	doc  *Document
	data string
}

func (c *CharacterData) Data() string { return c.data }

// SetData replaces the node's data and emits a CharacterData mutation
// record with the prior value.
func (c *CharacterData) SetData(s string) {
	old := c.data
	c.data = s
	c.doc.emit(domcore.MutationRecord{
		Type:     domcore.MutationCharacterData,
		Target:   c,
		OldValue: old,
	})
}

var _ domcore.CharacterData = (*CharacterData)(nil)

// DocumentType is an in-memory <!DOCTYPE> node.
type DocumentType struct {
	nodeBase
	name, publicID, systemID string
}

// NewDocumentType creates a detached doctype node.
func NewDocumentType(name, publicID, systemID string) *DocumentType {
	return &DocumentType{
		nodeBase: nodeBase{ntype: domcore.NodeDocumentType},
		name:     name, publicID: publicID, systemID: systemID,
	}
}

func (d *DocumentType) Name() string     { return d.name }
func (d *DocumentType) PublicID() string { return d.publicID }
func (d *DocumentType) SystemID() string { return d.systemID }

var _ domcore.DocumentTypeNode = (*DocumentType)(nil)
