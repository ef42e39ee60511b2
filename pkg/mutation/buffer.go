// Package mutation implements the per-frame MutationBuffer: it
// consumes raw domcore.MutationRecord batches and coalesces them into
// one ordered Mutation event per flush, applying the drop rules the
// design specifies for same-window add+remove pairs and
// attribute/text edits on removed nodes.
package mutation

import (
	"sync"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/mirror"
	"github.com/domreplay/recorder/pkg/snapshot"
)

type pendingAdd struct {
	parent domcore.Node
	next   domcore.Node
	node   domcore.Node
}

type pendingRemove struct {
	parent domcore.Node
	node   domcore.Node
}

// Buffer coalesces MutationObserver records between flushes.
type Buffer struct {
	mirror     *mirror.Mirror
	serializer *snapshot.Serializer
	doc        domcore.Document

	mu sync.Mutex

	pendingAdds    []pendingAdd
	pendingRemoves []pendingRemove
	addedSet       map[domcore.Node]bool
	removedSet     map[domcore.Node]bool
	attrEdits      map[domcore.Node]map[string]any
	attrOrder      []domcore.Node
	textEdits      map[domcore.Node]string
	textOrder      []domcore.Node

	locked bool
	frozen bool
}

// New returns an empty Buffer bound to doc, serializing newly added
// subtrees with ser and resolving/assigning ids through m.
func New(doc domcore.Document, m *mirror.Mirror, ser *snapshot.Serializer) *Buffer {
	return &Buffer{doc: doc, mirror: m, serializer: ser}
}

// Feed consumes one MutationObserver callback's records.
func (b *Buffer) Feed(records []domcore.MutationRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range records {
		switch rec.Type {
		case domcore.MutationChildList:
			for _, n := range rec.AddedNodes {
				b.ensureSets()
				b.pendingAdds = append(b.pendingAdds, pendingAdd{parent: rec.Target, next: rec.NextSibling, node: n})
				b.addedSet[n] = true
			}
			for _, n := range rec.RemovedNodes {
				b.ensureSets()
				b.pendingRemoves = append(b.pendingRemoves, pendingRemove{parent: rec.Target, node: n})
				b.removedSet[n] = true
			}
		case domcore.MutationAttributes:
			el, ok := rec.Target.(domcore.Element)
			if !ok {
				continue
			}
			if b.attrEdits == nil {
				b.attrEdits = make(map[domcore.Node]map[string]any)
			}
			if b.attrEdits[rec.Target] == nil {
				b.attrEdits[rec.Target] = make(map[string]any)
				b.attrOrder = append(b.attrOrder, rec.Target)
			}
			val, has := el.GetAttribute(rec.AttributeName)
			if has {
				b.attrEdits[rec.Target][rec.AttributeName] = val
			} else {
				b.attrEdits[rec.Target][rec.AttributeName] = nil
			}
		case domcore.MutationCharacterData:
			cd, ok := rec.Target.(domcore.CharacterData)
			if !ok {
				continue
			}
			if b.textEdits == nil {
				b.textEdits = make(map[domcore.Node]string)
			}
			if _, seen := b.textEdits[rec.Target]; !seen {
				b.textOrder = append(b.textOrder, rec.Target)
			}
			b.textEdits[rec.Target] = cd.Data()
		}
	}
}

func (b *Buffer) ensureSets() {
	if b.addedSet == nil {
		b.addedSet = make(map[domcore.Node]bool)
	}
	if b.removedSet == nil {
		b.removedSet = make(map[domcore.Node]bool)
	}
}

// Lock suspends flushing during a full snapshot; Feed keeps accepting
// records.
func (b *Buffer) Lock() {
	b.mu.Lock()
	b.locked = true
	b.mu.Unlock()
}

// Unlock resumes flushing.
func (b *Buffer) Unlock() {
	b.mu.Lock()
	b.locked = false
	b.mu.Unlock()
}

// IsLocked reports whether the buffer is currently locked.
func (b *Buffer) IsLocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Freeze suspends flushing while the recorder is paused; Feed keeps
// coalescing.
func (b *Buffer) Freeze() {
	b.mu.Lock()
	b.frozen = true
	b.mu.Unlock()
}

// Unfreeze resumes flushing. The caller is responsible for flushing
// once immediately after, per the design's "first non-mutation event
// triggers a flush first" rule.
func (b *Buffer) Unfreeze() {
	b.mu.Lock()
	b.frozen = false
	b.mu.Unlock()
}

// IsFrozen reports whether the buffer is currently frozen.
func (b *Buffer) IsFrozen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frozen
}

// HasPending reports whether a flush would produce a non-empty event.
func (b *Buffer) HasPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pendingAdds) > 0 || len(b.pendingRemoves) > 0 || len(b.attrOrder) > 0 || len(b.textOrder) > 0
}

// Flush builds and returns one coalesced Mutation event from every
// record fed since the last flush, applying the drop rules, and clears
// the buffer. It returns ok=false when locked, frozen, or empty.
func (b *Buffer) Flush() (event.MutationData, bool) {
	b.mu.Lock()
	if b.locked || b.frozen {
		b.mu.Unlock()
		return event.MutationData{}, false
	}
	adds, removes, attrOrder, attrEdits, textOrder, textEdits, addedSet := b.pendingAdds, b.pendingRemoves, b.attrOrder, b.attrEdits, b.textOrder, b.textEdits, b.addedSet
	b.pendingAdds = nil
	b.pendingRemoves = nil
	b.attrOrder = nil
	b.attrEdits = nil
	b.textOrder = nil
	b.textEdits = nil
	removedSet := b.removedSet
	b.addedSet = nil
	b.removedSet = nil
	b.mu.Unlock()

	if len(adds) == 0 && len(removes) == 0 && len(attrOrder) == 0 && len(textOrder) == 0 {
		return event.MutationData{Source: event.SourceMutation}, false
	}

	var out event.MutationData
	out.Source = event.SourceMutation

	// Removes: drop nodes that were also added this window, resolve
	// ids before unregistering them from the mirror.
	for _, pr := range removes {
		if addedSet[pr.node] {
			continue
		}
		id, ok := b.mirror.GetID(pr.node)
		if !ok {
			continue
		}
		parentID, _ := b.mirror.GetID(pr.parent)
		b.removeSubtree(pr.node)
		// removeSubtree has already dropped pr.node from the mirror's
		// strong maps; its node-keyed Meta survives that and still
		// answers here, so a replay consumer downstream knows whether
		// the removed id was a shadow root without needing it to still
		// be live-mapped.
		isShadow := false
		if meta, ok := b.mirror.GetMetaByNode(pr.node); ok {
			isShadow = meta.Type == domcore.NodeDocumentFragment
		}
		out.Removes = append(out.Removes, event.RemovedNode{ID: id, ParentID: parentID, IsShadow: isShadow})
	}

	// Adds: skip nodes whose parent is itself being added this window
	// (they ride along inside the parent's serialized subtree, since
	// the live DOM already has them attached by flush time).
	for _, pa := range adds {
		if removedSet[pa.node] {
			continue
		}
		if addedSet[pa.parent] {
			continue
		}
		parentID, ok := b.mirror.GetID(pa.parent)
		if !ok {
			continue
		}
		serialized, err := b.serializer.SerializeNode(pa.node, b.doc)
		if err != nil || serialized == nil {
			continue
		}
		nextID := 0
		if pa.next != nil {
			if nid, ok := b.mirror.GetID(pa.next); ok {
				nextID = nid
			}
		}
		out.Adds = append(out.Adds, event.AddedNode{ParentID: parentID, NextID: nextID, Node: serialized})
	}

	// Attribute edits on nodes removed this window are dropped.
	for _, n := range attrOrder {
		if removedSet[n] {
			continue
		}
		id, ok := b.mirror.GetID(n)
		if !ok {
			continue
		}
		out.Attributes = append(out.Attributes, event.AttributeMutation{ID: id, Attributes: attrEdits[n]})
	}

	// Text edits on nodes removed this window are dropped.
	for _, n := range textOrder {
		if removedSet[n] {
			continue
		}
		id, ok := b.mirror.GetID(n)
		if !ok {
			continue
		}
		out.Texts = append(out.Texts, event.TextMutation{ID: id, Value: textEdits[n]})
	}

	return out, true
}

// removeSubtree unregisters node and every descendant from the mirror.
func (b *Buffer) removeSubtree(node domcore.Node) {
	b.mirror.RemoveNodeFromMap(node)
	switch v := node.(type) {
	case domcore.Element:
		for _, c := range v.ChildNodes() {
			b.removeSubtree(c)
		}
		if sr, ok := v.ShadowRoot(); ok {
			for _, c := range sr.ChildNodes() {
				b.removeSubtree(c)
			}
		}
	case domcore.ShadowRoot:
		for _, c := range v.ChildNodes() {
			b.removeSubtree(c)
		}
	}
}
