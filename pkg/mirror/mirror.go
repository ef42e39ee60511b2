// Package mirror implements the bidirectional node↔id map the
// recording engine uses to refer to DOM nodes by a small serializable
// integer instead of by reference. The same id space is shared by the
// snapshot serializer (which assigns ids as it walks the tree) and the
// mutation buffer (which must resolve a live node back to the id a
// viewer already knows about).
package mirror

import (
	"sync"

	"github.com/domreplay/recorder/internal/domcore"
)

// Meta carries just enough information about a mapped node to decide,
// cheaply and without re-touching the live DOM, what kind of node an id
// refers to.
type Meta struct {
	Type domcore.NodeType
	Tag  string // lowercased tag name, empty for non-elements
}

// Mirror is the bidirectional node↔id map. The zero value is not
// usable; construct with New.
type Mirror struct {
	mu       sync.RWMutex
	nodeToID map[domcore.Node]int
	idToNode map[int]domcore.Node
	idToMeta map[int]Meta
	weakMeta map[domcore.Node]Meta
	nextID   int
}

// New returns an empty Mirror. ids are assigned by the caller (the
// serializer), not generated here, so the same numbering survives a
// recorder restart against a resumed id sequence.
func New() *Mirror {
	return &Mirror{
		nodeToID: make(map[domcore.Node]int),
		idToNode: make(map[int]domcore.Node),
		idToMeta: make(map[int]Meta),
		weakMeta: make(map[domcore.Node]Meta),
	}
}

// Add records node as id, overwriting any prior mapping for either
// side.
func (m *Mirror) Add(node domcore.Node, id int, meta Meta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeToID[node] = id
	m.idToNode[id] = node
	m.idToMeta[id] = meta
	m.weakMeta[node] = meta
	if id >= m.nextID {
		m.nextID = id + 1
	}
}

// Replace repoints id at a new node, leaving the old node's mapping (if
// any) untouched. Used when a node is swapped in place without a
// document-visible removal, which the spec's fork does not currently
// need but the method mirrors rrweb's mirror API for callers adapting
// existing plugin code.
func (m *Mirror) Replace(id int, node domcore.Node, meta Meta) {
	m.Add(node, id, meta)
}

// GetID returns the id a node was registered under.
func (m *Mirror) GetID(node domcore.Node) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.nodeToID[node]
	return id, ok
}

// GetNode returns the node registered under id.
func (m *Mirror) GetNode(id int) (domcore.Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.idToNode[id]
	return n, ok
}

// GetMeta returns the Meta recorded for id.
func (m *Mirror) GetMeta(id int) (Meta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.idToMeta[id]
	return meta, ok
}

// GetMetaByNode returns the Meta last recorded for node, even if node
// has since been removed from the document and dropped from the
// mirror's id-keyed maps by RemoveNodeFromMap. A replay consumer that
// is still holding a reference to a detached node (e.g. to decide how
// to render a tombstoned mutation target) can use this to recover what
// kind of node it was without needing the node to still be mapped to
// an id. Only Reset clears this side.
func (m *Mirror) GetMetaByNode(node domcore.Node) (Meta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.weakMeta[node]
	return meta, ok
}

// Has reports whether id is currently mapped.
func (m *Mirror) Has(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.idToNode[id]
	return ok
}

// HasNode reports whether node is currently mapped.
func (m *Mirror) HasNode(node domcore.Node) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodeToID[node]
	return ok
}

// RemoveNodeFromMap drops node's mapping in both directions. Callers
// that must remove a whole detached subtree walk it themselves and
// call this once per node — the mirror has no tree-shape knowledge of
// its own.
//
// The weak node->Meta side survives this call; it is only cleared by
// Reset. A detached node's id is free to be reassigned to an unrelated
// node by the serializer, so the strong id-keyed maps must be purged
// here, but GetMetaByNode keeps answering for the original node.
func (m *Mirror) RemoveNodeFromMap(node domcore.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.nodeToID[node]
	if !ok {
		return
	}
	delete(m.nodeToID, node)
	delete(m.idToNode, id)
	delete(m.idToMeta, id)
}

// NextID returns the next unused id, for callers assigning ids
// sequentially as they serialize new nodes.
func (m *Mirror) NextID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextID
}

// Reset clears every mapping, as when starting a fresh full snapshot.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeToID = make(map[domcore.Node]int)
	m.idToNode = make(map[int]domcore.Node)
	m.idToMeta = make(map[int]Meta)
	m.weakMeta = make(map[domcore.Node]Meta)
	m.nextID = 0
}

// Size returns the number of mapped nodes.
func (m *Mirror) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.idToNode)
}
