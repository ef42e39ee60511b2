package frame_test

import (
	"testing"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/internal/domfake"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/frame"
	"github.com/domreplay/recorder/pkg/snapshot"
)

// S5 (manager half): attaching a same-origin iframe fires onAttach
// synchronously with its nested document, so the caller can recurse
// observers into it without polling.
func TestAttachIframeSameOrigin(t *testing.T) {
	nested := domfake.NewDocument(300, 150)
	el := domfake.NewDocument(800, 600).NewElement("iframe").AsIframe("https://example.test/child", nested)

	var gotDoc domcore.Document
	attached := false
	mgr := frame.NewIframeManager(func(e *frame.IframeEntry, doc domcore.Document) {
		attached = true
		gotDoc = doc
	}, func() int { return 1 })

	entry := mgr.AttachIframe(5, el)
	if !attached {
		t.Fatal("onAttach was not invoked for a same-origin iframe")
	}
	if !entry.SameOrigin {
		t.Fatal("an iframe with a reachable ContentDocument must be treated as same-origin")
	}
	if entry.CrossMirror != nil {
		t.Fatal("same-origin entries must not carry a CrossOriginMirror")
	}
	if gotDoc != domcore.Document(nested) {
		t.Fatal("onAttach was not given the iframe's actual nested document")
	}

	// Re-attaching the same iframe id is a no-op: onAttach does not fire
	// again and the same entry is returned.
	attached = false
	again := mgr.AttachIframe(5, el)
	if attached {
		t.Fatal("onAttach must not fire again for an already-tracked iframe id")
	}
	if again != entry {
		t.Fatal("AttachIframe must return the existing entry on re-attach")
	}
}

// S6: cross-origin forwarded events have their embedded ids rewritten
// into the parent's id space, stably across repeated forwards of the
// same child id, and distinctly across different child ids.
func TestReceiveForwardedCrossOrigin(t *testing.T) {
	el := domfake.NewDocument(800, 600).NewElement("iframe").AsIframe("https://other.test/child", nil)

	next := 100
	mgr := frame.NewIframeManager(nil, func() int {
		next++
		return next
	})

	const iframeID = 7
	entry := mgr.AttachIframe(iframeID, el)
	if entry.SameOrigin {
		t.Fatal("a nil ContentDocument must be treated as cross-origin")
	}
	if entry.CrossMirror == nil {
		t.Fatal("cross-origin entries must carry a CrossOriginMirror")
	}

	msg := frame.ForwardedMessage{
		Event: event.Event{
			Type: event.TypeIncrementalSnapshot,
			Payload: event.MutationData{
				Attributes: []event.AttributeMutation{{ID: 3, Attributes: map[string]any{"class": "x"}}},
				Texts:      []event.TextMutation{{ID: 3, Value: "hi"}},
			},
		},
	}
	translated, ok := mgr.ReceiveForwarded(iframeID, msg)
	if !ok {
		t.Fatal("ReceiveForwarded failed for a known cross-origin iframe")
	}
	md, ok := translated.Payload.(event.MutationData)
	if !ok {
		t.Fatalf("translated payload has wrong type: %T", translated.Payload)
	}
	if md.Attributes[0].ID != md.Texts[0].ID {
		t.Fatal("the same child id must translate to the same parent id within one message")
	}
	if md.Attributes[0].ID < 101 {
		t.Fatalf("translated id %d was not minted via the parent's nextID callback", md.Attributes[0].ID)
	}

	// A second message referencing a different child id gets a distinct
	// parent id; referencing the same child id again is stable.
	msg2 := frame.ForwardedMessage{
		Event: event.Event{
			Type:    event.TypeIncrementalSnapshot,
			Payload: event.MutationData{Attributes: []event.AttributeMutation{{ID: 3}, {ID: 9}}},
		},
	}
	translated2, ok := mgr.ReceiveForwarded(iframeID, msg2)
	if !ok {
		t.Fatal("ReceiveForwarded failed on second message")
	}
	md2 := translated2.Payload.(event.MutationData)
	if md2.Attributes[0].ID != md.Attributes[0].ID {
		t.Fatalf("child id 3 translated inconsistently: %d then %d", md.Attributes[0].ID, md2.Attributes[0].ID)
	}
	if md2.Attributes[1].ID == md2.Attributes[0].ID {
		t.Fatal("distinct child ids must not collide in the parent's id space")
	}
}

// Every incremental payload shape that carries an id must have that
// id translated, including a MutationData.Adds[i].Node subtree (the
// child serialized its own new nodes in its own local id space) and
// the other non-Mutation incremental sources.
func TestReceiveForwardedTranslatesEveryPayloadShape(t *testing.T) {
	el := domfake.NewDocument(800, 600).NewElement("iframe").AsIframe("https://other.test/child", nil)
	next := 100
	mgr := frame.NewIframeManager(nil, func() int {
		next++
		return next
	})
	const iframeID = 7
	mgr.AttachIframe(iframeID, el)

	grandchildRootID := 11
	addedSubtree := &snapshot.SerializedNode{
		ID:   4,
		Kind: snapshot.KindElement,
		ChildNodes: []*snapshot.SerializedNode{
			{ID: 5, Kind: snapshot.KindElement, RootID: &grandchildRootID},
		},
	}

	cases := []struct {
		name    string
		payload event.Data
		check   func(t *testing.T, got event.Data)
	}{
		{"MutationAdds", event.MutationData{
			Adds: []event.AddedNode{{ParentID: 2, NextID: 3, Node: addedSubtree}},
		}, func(t *testing.T, got event.Data) {
			md := got.(event.MutationData)
			if md.Adds[0].ParentID < 101 || md.Adds[0].NextID < 101 {
				t.Fatalf("Adds[0] ParentID/NextID not translated: %+v", md.Adds[0])
			}
			sn := md.Adds[0].Node.(*snapshot.SerializedNode)
			if sn.ID < 101 {
				t.Fatalf("Adds[0].Node.ID not translated: %d", sn.ID)
			}
			if sn.ChildNodes[0].ID < 101 {
				t.Fatalf("nested child id not translated: %d", sn.ChildNodes[0].ID)
			}
			if sn.ChildNodes[0].RootID == nil || *sn.ChildNodes[0].RootID < 101 {
				t.Fatalf("nested RootID not translated: %+v", sn.ChildNodes[0].RootID)
			}
		}},
		{"StyleSheetRule", event.StyleSheetRuleData{ID: 2}, func(t *testing.T, got event.Data) {
			if got.(event.StyleSheetRuleData).ID < 101 {
				t.Fatal("StyleSheetRuleData.ID not translated")
			}
		}},
		{"StyleDeclaration", event.StyleDeclarationData{ID: 2}, func(t *testing.T, got event.Data) {
			if got.(event.StyleDeclarationData).ID < 101 {
				t.Fatal("StyleDeclarationData.ID not translated")
			}
		}},
		{"AdoptedStyleSheet", event.AdoptedStyleSheetData{ID: 2, StyleIDs: []int{0, 1}}, func(t *testing.T, got event.Data) {
			d := got.(event.AdoptedStyleSheetData)
			if d.ID < 101 {
				t.Fatal("AdoptedStyleSheetData.ID not translated")
			}
			if d.StyleIDs[0] != 0 || d.StyleIDs[1] != 1 {
				t.Fatal("AdoptedStyleSheetData.StyleIDs are local ordinals and must not be translated")
			}
		}},
		{"MediaInteraction", event.MediaInteractionData{ID: 2}, func(t *testing.T, got event.Data) {
			if got.(event.MediaInteractionData).ID < 101 {
				t.Fatal("MediaInteractionData.ID not translated")
			}
		}},
		{"Selection", event.SelectionData{Ranges: []event.SelectionRange{
			{Start: event.SelectionRangePoint{ID: 2}, End: event.SelectionRangePoint{ID: 3}},
		}}, func(t *testing.T, got event.Data) {
			d := got.(event.SelectionData)
			if d.Ranges[0].Start.ID < 101 || d.Ranges[0].End.ID < 101 {
				t.Fatal("SelectionData range endpoints not translated")
			}
		}},
		{"CanvasMutation", event.CanvasMutationData{ID: 2}, func(t *testing.T, got event.Data) {
			if got.(event.CanvasMutationData).ID < 101 {
				t.Fatal("CanvasMutationData.ID not translated")
			}
		}},
		{"VisibilityMutation", event.VisibilityMutationData{Mutations: []event.VisibilityEntry{{ID: 2, IsVisible: true}}}, func(t *testing.T, got event.Data) {
			if got.(event.VisibilityMutationData).Mutations[0].ID < 101 {
				t.Fatal("VisibilityMutationData.Mutations[].ID not translated")
			}
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			translated, ok := mgr.ReceiveForwarded(iframeID, frame.ForwardedMessage{
				Event: event.Event{Type: event.TypeIncrementalSnapshot, Payload: c.payload},
			})
			if !ok {
				t.Fatal("ReceiveForwarded failed")
			}
			c.check(t, translated.Payload)
		})
	}
}

// Unknown iframe ids (never attached, or same-origin) are rejected
// rather than silently forwarded untranslated.
func TestReceiveForwardedUnknownIframe(t *testing.T) {
	mgr := frame.NewIframeManager(nil, func() int { return 1 })
	_, ok := mgr.ReceiveForwarded(999, frame.ForwardedMessage{Event: event.Event{Type: event.TypeIncrementalSnapshot}})
	if ok {
		t.Fatal("expected ReceiveForwarded to reject an iframe id that was never attached")
	}
}
