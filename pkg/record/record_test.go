package record_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/domreplay/recorder/internal/config"
	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/internal/domfake"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/record"
	"github.com/domreplay/recorder/pkg/snapshot"
)

// collector is a concurrency-safe event sink for assertions.
type collector struct {
	mu     sync.Mutex
	events []event.Event
	chk    []bool
}

func (c *collector) sink(e event.Event, isCheckout bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	c.chk = append(c.chk, isCheckout)
	return nil
}

func (c *collector) snapshot() ([]event.Event, []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...), append([]bool(nil), c.chk...)
}

func findSerialized(n *snapshot.SerializedNode, tag string) *snapshot.SerializedNode {
	if n == nil {
		return nil
	}
	if n.TagName == tag {
		return n
	}
	for _, c := range n.ChildNodes {
		if found := findSerialized(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findText(n *snapshot.SerializedNode) string {
	if n == nil {
		return ""
	}
	if n.Kind == snapshot.KindText {
		return n.TextContent
	}
	for _, c := range n.ChildNodes {
		if s := findText(c); s != "" {
			return s
		}
	}
	return ""
}

// S1: start+stop on a minimal document yields Meta immediately
// followed by FullSnapshot containing the body's div and its text.
func TestS1StartStop(t *testing.T) {
	doc := domfake.NewDocument(800, 600)
	doc.SetLocation("https://example.test/page")
	body := doc.DocumentElement().ChildNodes()[1].(*domfake.Element)
	div := doc.NewElement("div")
	div.SetAttribute("id", "x")
	div.AppendChild(doc.NewText("hi"))
	body.AppendChild(div)

	c := &collector{}
	rec, err := record.Start(doc, config.RecordOptions{Emit: c.sink})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.Stop()

	events, checkouts := c.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected exactly 2 events (Meta, FullSnapshot), got %d: %+v", len(events), events)
	}
	if events[0].Type != event.TypeMeta {
		t.Fatalf("event[0] = %s, want Meta", events[0].Type)
	}
	meta, ok := events[0].Payload.(event.MetaData)
	if !ok {
		t.Fatalf("Meta payload has wrong type: %T", events[0].Payload)
	}
	if meta.Href != "https://example.test/page" || meta.Width != 800 || meta.Height != 600 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if events[1].Type != event.TypeFullSnapshot {
		t.Fatalf("event[1] = %s, want FullSnapshot", events[1].Type)
	}
	if checkouts[1] {
		t.Fatalf("initial FullSnapshot must not be flagged as a checkout")
	}

	full, ok := events[1].Payload.(event.FullSnapshotData)
	if !ok {
		t.Fatalf("FullSnapshot payload has wrong type: %T", events[1].Payload)
	}
	root, ok := full.Node.(*snapshot.SerializedNode)
	if !ok {
		t.Fatalf("full.Node has wrong type: %T", full.Node)
	}
	x := findSerialized(root, "div")
	if x == nil {
		t.Fatal("serialized tree is missing the div")
	}
	if v, ok := x.Attributes.Get("id"); !ok || v != "x" {
		t.Fatalf("div#x attribute missing or wrong: %v", v)
	}
	if got := findText(x); got != "hi" {
		t.Fatalf("div text = %q, want \"hi\"", got)
	}
}

// S2: a password input's value is masked to same-length asterisks in
// both the live Input event and, when re-serialized, the attribute
// tree — and the raw value never appears in the stream.
func TestS2InputMasking(t *testing.T) {
	doc := domfake.NewDocument(400, 300)
	body := doc.DocumentElement().ChildNodes()[1].(*domfake.Element)
	input := doc.NewElement("input")
	input.SetAttribute("type", "password")
	input.SetAttribute("id", "p")
	body.AppendChild(input)

	c := &collector{}
	rec, err := record.Start(doc, config.RecordOptions{Emit: c.sink})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer rec.Stop()

	input.SetAttribute("value", "secret")
	input.Dispatch(domcore.Event{Type: "input"})

	events, _ := c.snapshot()
	var inputData *event.InputData
	for _, e := range events {
		if d, ok := e.Payload.(event.InputData); ok {
			inputData = &d
		}
	}
	if inputData == nil {
		t.Fatal("no Input event emitted")
	}
	if inputData.Text != "******" {
		t.Fatalf("masked input text = %q, want 6 asterisks", inputData.Text)
	}
	for _, e := range events {
		full, ok := e.Payload.(event.FullSnapshotData)
		if !ok {
			continue
		}
		root := full.Node.(*snapshot.SerializedNode)
		if strings.Contains(renderAll(root), "secret") {
			t.Fatal("raw input value leaked into the serialized stream")
		}
	}
}

func renderAll(n *snapshot.SerializedNode) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(n.TextContent)
	if v, ok := n.Attributes.Get("value"); ok {
		if s, ok := v.(string); ok {
			sb.WriteString(s)
		}
	}
	for _, c := range n.ChildNodes {
		sb.WriteString(renderAll(c))
	}
	return sb.String()
}

// S3: with checkoutEveryNth=5, 12 attribute mutations produce exactly
// 2 extra FullSnapshots beyond the initial one.
func TestS3CheckoutEveryNth(t *testing.T) {
	doc := domfake.NewDocument(400, 300)
	body := doc.DocumentElement().ChildNodes()[1].(*domfake.Element)
	div := doc.NewElement("div")
	body.AppendChild(div)

	c := &collector{}
	rec, err := record.Start(doc, config.RecordOptions{Emit: c.sink, CheckoutEveryNth: 5})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer rec.Stop()

	for i := 0; i < 12; i++ {
		div.SetAttribute("data-n", string(rune('a'+i)))
		doc.DriveFrame()
	}

	events, checkouts := c.snapshot()
	fullCount := 0
	checkoutCount := 0
	for i, e := range events {
		if e.Type == event.TypeFullSnapshot {
			fullCount++
			if checkouts[i] {
				checkoutCount++
			}
		}
	}
	if fullCount != 3 {
		t.Fatalf("expected 3 total FullSnapshots (1 initial + 2 checkouts), got %d", fullCount)
	}
	if checkoutCount != 2 {
		t.Fatalf("expected 2 checkout FullSnapshots, got %d", checkoutCount)
	}
}

// S4: an initially display:none element that becomes display:block
// produces exactly one VisibilityMutation with isVisible=true, and no
// VisibilityMutation was emitted for it during the initial pass.
func TestS4VisibilityChange(t *testing.T) {
	doc := domfake.NewDocument(400, 300)
	body := doc.DocumentElement().ChildNodes()[1].(*domfake.Element)
	section := doc.NewElement("section")
	section.AppendChild(doc.NewText("A"))
	section.SetRect(domcore.Rect{Top: 0, Left: 0, Right: 100, Bottom: 100})
	section.SetStyle(domcore.ComputedStyle{Display: "none", Opacity: 1})
	body.AppendChild(section)

	c := &collector{}
	rec, err := record.Start(doc, config.RecordOptions{
		Emit: c.sink,
		Sampling: config.Sampling{
			Visibility: config.VisibilitySampling{Threshold: 0.0},
		},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer rec.Stop()

	events, _ := c.snapshot()
	for _, e := range events {
		if vd, ok := e.Payload.(event.VisibilityMutationData); ok {
			t.Fatalf("visibility mutation emitted during initial pass: %+v", vd)
		}
	}

	sectionID, ok := rec.Mirror.GetID(section)
	if !ok {
		t.Fatal("section was not registered in the mirror by the initial full snapshot")
	}

	doc.DriveFrame() // first observed pass after Start: establishes the baseline, suppressed
	section.SetStyle(domcore.ComputedStyle{Display: "block", Opacity: 1})
	doc.DriveFrame() // second pass: the flip is observed and flushed

	events, _ = c.snapshot()
	var found *event.VisibilityMutationData
	for _, e := range events {
		if vd, ok := e.Payload.(event.VisibilityMutationData); ok {
			found = &vd
		}
	}
	if found == nil {
		t.Fatal("expected a VisibilityMutation event after the display flip")
	}
	if len(found.Mutations) != 1 {
		t.Fatalf("expected exactly 1 visibility entry, got %d", len(found.Mutations))
	}
	entry := found.Mutations[0]
	if entry.ID != sectionID {
		t.Fatalf("visibility entry id = %d, want %d", entry.ID, sectionID)
	}
	if !entry.IsVisible {
		t.Fatal("expected isVisible=true after the display:none -> display:block flip")
	}
}

// S5: a same-origin iframe's nested document root and its descendants
// appear nested under the iframe element in the next full snapshot,
// with ids drawn from the parent's own id space (the same mirror,
// since serializeIframe recurses with the parent's Serializer).
func TestS5SameOriginIframe(t *testing.T) {
	doc := domfake.NewDocument(800, 600)
	body := doc.DocumentElement().ChildNodes()[1].(*domfake.Element)

	child := domfake.NewDocument(300, 150)
	childBody := child.DocumentElement().ChildNodes()[1].(*domfake.Element)
	button := child.NewElement("button")
	button.AppendChild(child.NewText("go"))
	childBody.AppendChild(button)

	iframe := doc.NewElement("iframe").AsIframe("https://example.test/child", child)
	body.AppendChild(iframe)

	c := &collector{}
	rec, err := record.Start(doc, config.RecordOptions{Emit: c.sink})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer rec.Stop()

	events, _ := c.snapshot()
	var root *snapshot.SerializedNode
	for _, e := range events {
		if full, ok := e.Payload.(event.FullSnapshotData); ok {
			root = full.Node.(*snapshot.SerializedNode)
		}
	}
	if root == nil {
		t.Fatal("no FullSnapshot found")
	}
	ifrNode := findSerialized(root, "iframe")
	if ifrNode == nil {
		t.Fatal("iframe not found in serialized tree")
	}
	if ifrNode.RootID == nil {
		t.Fatal("iframe node missing RootID pointing at its nested document")
	}
	btn := findSerialized(ifrNode, "button")
	if btn == nil {
		t.Fatal("iframe's nested <button> was not recursed into the full snapshot")
	}
	if got := findText(btn); got != "go" {
		t.Fatalf("nested button text = %q, want \"go\"", got)
	}

	parentID, ok := rec.Mirror.GetID(iframe)
	if !ok {
		t.Fatal("iframe element itself was not registered in the parent mirror")
	}
	childID, ok := rec.Mirror.GetID(button)
	if !ok {
		t.Fatal("nested button was not registered in the same (parent) mirror")
	}
	if childID == parentID {
		t.Fatal("nested button must not share the iframe element's own id")
	}
}

// Invariant 1: id stability. Re-registering the same live node never
// changes its id, and two distinct nodes never share one.
func TestIdStability(t *testing.T) {
	doc := domfake.NewDocument(400, 300)
	body := doc.DocumentElement().ChildNodes()[1].(*domfake.Element)
	a := doc.NewElement("div")
	b := doc.NewElement("div")
	body.AppendChild(a)
	body.AppendChild(b)

	c := &collector{}
	rec, err := record.Start(doc, config.RecordOptions{Emit: c.sink})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer rec.Stop()

	idA, ok := rec.Mirror.GetID(a)
	if !ok {
		t.Fatal("node a was not assigned an id")
	}
	idB, ok := rec.Mirror.GetID(b)
	if !ok {
		t.Fatal("node b was not assigned an id")
	}
	if idA == idB {
		t.Fatalf("distinct nodes share id %d", idA)
	}

	// Triggering a second full snapshot (without a checkout reset) must
	// not renumber a or b.
	if err := rec.TakeFullSnapshot(false); err != nil {
		t.Fatalf("TakeFullSnapshot: %v", err)
	}
	idA2, _ := rec.Mirror.GetID(a)
	idB2, _ := rec.Mirror.GetID(b)
	if idA2 != idA || idB2 != idB {
		t.Fatalf("ids changed across re-serialization: a %d->%d, b %d->%d", idA, idA2, idB, idB2)
	}
}

// Invariant 6: calling Stop twice is equivalent to calling it once,
// and no further events are emitted afterward.
func TestIdempotentStop(t *testing.T) {
	doc := domfake.NewDocument(400, 300)
	body := doc.DocumentElement().ChildNodes()[1].(*domfake.Element)
	div := doc.NewElement("div")
	body.AppendChild(div)

	c := &collector{}
	rec, err := record.Start(doc, config.RecordOptions{Emit: c.sink})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.Stop()
	before, _ := c.snapshot()

	rec.Stop() // must not panic or double-dispose

	div.SetAttribute("data-x", "1")
	doc.DriveFrame()
	time.Sleep(time.Millisecond)

	after, _ := c.snapshot()
	if len(after) != len(before) {
		t.Fatalf("events emitted after Stop: before=%d after=%d", len(before), len(after))
	}
}
