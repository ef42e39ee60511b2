package domfake

import "github.com/domreplay/recorder/internal/domcore"

type mutationObserver struct {
	doc     *Document
	cb      func([]domcore.MutationRecord)
	target  domcore.Node
	opts    domcore.MutationObserverInit
	queued  []domcore.MutationRecord
	active  bool
}

func (m *mutationObserver) Observe(target domcore.Node, opts domcore.MutationObserverInit) {
	m.target = target
	m.opts = opts
	if !m.active {
		m.active = true
		m.doc.observers = append(m.doc.observers, m)
	}
}

func (m *mutationObserver) Disconnect() {
	m.active = false
	m.queued = nil
}

func (m *mutationObserver) TakeRecords() []domcore.MutationRecord {
	r := m.queued
	m.queued = nil
	return r
}

func (m *mutationObserver) matches(rec domcore.MutationRecord) bool {
	if !m.active {
		return false
	}
	switch rec.Type {
	case domcore.MutationChildList:
		if !m.opts.ChildList {
			return false
		}
	case domcore.MutationAttributes:
		if !m.opts.Attributes {
			return false
		}
		if len(m.opts.AttributeFilter) > 0 {
			found := false
			for _, a := range m.opts.AttributeFilter {
				if a == rec.AttributeName {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	case domcore.MutationCharacterData:
		if !m.opts.CharacterData {
			return false
		}
	}
	if rec.Target == m.target {
		return true
	}
	if m.opts.Subtree {
		return isDescendant(rec.Target, m.target)
	}
	return false
}

// NewMutationObserver implements domcore.Document.
func (d *Document) NewMutationObserver(cb func([]domcore.MutationRecord)) domcore.MutationObserver {
	return &mutationObserver{doc: d, cb: cb}
}

// emit queues rec for delivery to any matching observer on the next
// FlushMutations call.
func (d *Document) emit(rec domcore.MutationRecord) {
	for _, o := range d.observers {
		if o.matches(rec) {
			o.queued = append(o.queued, rec)
		}
	}
	d.pending = append(d.pending, rec)
}

// FlushMutations delivers every observer's queued records via its
// callback, in observer-registration order, then clears the queues.
// Observers with no matching records since the last flush are not
// invoked, matching real MutationObserver semantics.
func (d *Document) FlushMutations() {
	d.pending = d.pending[:0]
	for _, o := range d.observers {
		if len(o.queued) == 0 {
			continue
		}
		records := o.queued
		o.queued = nil
		o.cb(records)
	}
}
