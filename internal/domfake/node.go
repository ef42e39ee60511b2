// Package domfake is a small, pure-Go in-memory DOM used by this
// module's own tests and by the demo CLI/server in cmd/recorder. It
// implements internal/domcore so the recording engine's core never
// needs a real browser to exercise its invariants.
//
// Mutations are queued, not delivered synchronously: SetAttribute,
// AppendChild, and friends push a MutationRecord onto the owning
// Document's pending queue, matching how a real MutationObserver
// delivers as a microtask rather than inline with the mutating call.
// Call Document.FlushMutations to deliver queued records to observers,
// and Document.DriveFrame to deliver them and then fire one round of
// requestAnimationFrame callbacks — both are test/demo harness hooks with no domcore
// interface equivalent, since a real browser drives them itself.
package domfake

import "github.com/domreplay/recorder/internal/domcore"

type nodeBase struct {
	parent domcore.Node
	ntype  domcore.NodeType
}

func (n *nodeBase) NodeType() domcore.NodeType { return n.ntype }
func (n *nodeBase) ParentNode() domcore.Node   { return n.parent }

func isDescendant(n domcore.Node, ancestor domcore.Node) bool {
	for cur := n; cur != nil; {
		if cur == ancestor {
			return true
		}
		switch v := cur.(type) {
		case *Element:
			cur = v.ParentNode()
		case *CharacterData:
			cur = v.ParentNode()
		case *ShadowRootNode:
			cur = v.ParentNode()
		default:
			return false
		}
	}
	return false
}
