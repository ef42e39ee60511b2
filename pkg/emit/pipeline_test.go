package emit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/domreplay/recorder/pkg/emit"
	"github.com/domreplay/recorder/pkg/event"
)

// fakeClock lets tests advance time deterministically instead of
// sleeping real wall-clock milliseconds.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sinkRecorder struct {
	mu         sync.Mutex
	events     []event.Event
	checkouts  []bool
}

func (s *sinkRecorder) sink(e event.Event, isCheckout bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	s.checkouts = append(s.checkouts, isCheckout)
	return nil
}

func (s *sinkRecorder) fullCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Type == event.TypeFullSnapshot {
			n++
		}
	}
	return n
}

func newPipeline(t *testing.T, clock *fakeClock, s *sinkRecorder, opts emit.Options) *emit.Pipeline {
	t.Helper()
	opts.Sink = s.sink
	opts.Now = clock.Now
	p := emit.New(opts)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.EmitFullSnapshot(event.MetaData{}, event.FullSnapshotData{}); err != nil {
		t.Fatalf("initial EmitFullSnapshot: %v", err)
	}
	return p
}

// The first EmitFullSnapshot after Start transitions STARTING to
// RECORDING and is not itself a checkout.
func TestPipelineInitialSnapshotNotCheckout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := &sinkRecorder{}
	p := newPipeline(t, clock, s, emit.Options{})

	s.mu.Lock()
	if len(s.checkouts) != 2 || s.checkouts[1] {
		t.Fatalf("expected [Meta, FullSnapshot(checkout=false)], got checkouts=%v", s.checkouts)
	}
	s.mu.Unlock()

	if err := p.EmitFullSnapshot(event.MetaData{}, event.FullSnapshotData{}); err != nil {
		t.Fatalf("second EmitFullSnapshot: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkouts[len(s.checkouts)-1] {
		t.Fatal("a FullSnapshot emitted after RECORDING has begun must be flagged as a checkout")
	}
}

// CheckoutEveryNth fires once incrementalCount reaches the threshold,
// and attach-iframe mutations never count toward it.
func TestCheckoutEveryNthIgnoresIframeAttach(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := &sinkRecorder{}
	p := newPipeline(t, clock, s, emit.Options{CheckoutEveryNth: 2})

	for i := 0; i < 5; i++ {
		checkout, err := p.EmitIncremental(event.SourceMutation, event.MutationData{IsAttachIframe: true})
		if err != nil {
			t.Fatalf("EmitIncremental: %v", err)
		}
		if checkout {
			t.Fatal("an iframe-attach mutation must never itself trigger a checkout")
		}
	}

	checkout, err := p.EmitIncremental(event.SourceMutation, event.MutationData{})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if checkout {
		t.Fatal("checkout should not fire after only 1 counted mutation with threshold 2")
	}
	checkout, err = p.EmitIncremental(event.SourceMutation, event.MutationData{})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if !checkout {
		t.Fatal("checkout should fire once 2 counted mutations have been emitted")
	}
}

// CheckoutEveryNms fires once the elapsed time since the last full
// snapshot exceeds the threshold, using the injected clock rather than
// real sleeps.
func TestCheckoutEveryNms(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := &sinkRecorder{}
	p := newPipeline(t, clock, s, emit.Options{CheckoutEveryNms: 100 * time.Millisecond})

	clock.Advance(50 * time.Millisecond)
	checkout, err := p.EmitIncremental(event.SourceMutation, event.MutationData{})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if checkout {
		t.Fatal("checkout should not fire before the Nms threshold has elapsed")
	}

	clock.Advance(100 * time.Millisecond)
	checkout, err = p.EmitIncremental(event.SourceMutation, event.MutationData{})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if !checkout {
		t.Fatal("checkout should fire once elapsed time exceeds the Nms threshold")
	}
}

// CheckoutEveryNvm fires once the cumulative visibility-change count
// (folded in both via VisibilityMutationData payloads and via
// NotifyActivity) reaches the threshold.
func TestCheckoutEveryNvm(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := &sinkRecorder{}
	p := newPipeline(t, clock, s, emit.Options{CheckoutEveryNvm: 3})

	checkout, err := p.EmitIncremental(event.SourceVisibilityMutation, event.VisibilityMutationData{
		Mutations: []event.VisibilityEntry{{ID: 1, IsVisible: true}},
	})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if checkout {
		t.Fatal("checkout should not fire after only 1 of 3 visibility changes")
	}

	p.NotifyActivity(1)

	checkout, err = p.EmitIncremental(event.SourceVisibilityMutation, event.VisibilityMutationData{
		Mutations: []event.VisibilityEntry{{ID: 2, IsVisible: false}},
	})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if !checkout {
		t.Fatal("checkout should fire once NotifyActivity plus emitted visibility entries reach the Nvm threshold")
	}
}

// EmitFullSnapshot resets every checkout counter, so a checkout that
// would otherwise be due does not re-fire immediately afterward.
func TestCheckoutCountersResetOnFullSnapshot(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := &sinkRecorder{}
	p := newPipeline(t, clock, s, emit.Options{CheckoutEveryNth: 2})

	if _, err := p.EmitIncremental(event.SourceMutation, event.MutationData{}); err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	checkout, err := p.EmitIncremental(event.SourceMutation, event.MutationData{})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if !checkout {
		t.Fatal("expected checkout to be due")
	}
	if err := p.EmitFullSnapshot(event.MetaData{}, event.FullSnapshotData{}); err != nil {
		t.Fatalf("EmitFullSnapshot: %v", err)
	}

	checkout, err = p.EmitIncremental(event.SourceMutation, event.MutationData{})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if checkout {
		t.Fatal("immediately after a checkout's full snapshot, a single new mutation must not re-trigger one")
	}
	if s.fullCount() != 2 {
		t.Fatalf("expected 2 FullSnapshots total, got %d", s.fullCount())
	}
}

// Custom events added before Start are queued and released in order by
// FlushQueuedCustomEvents; once recording, they dispatch immediately.
func TestCustomEventQueueing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := &sinkRecorder{}
	p := emit.New(emit.Options{Sink: s.sink, Now: clock.Now})

	if err := p.AddCustomEvent("pre-start", 1); err != nil {
		t.Fatalf("AddCustomEvent before Start: %v", err)
	}
	s.mu.Lock()
	queuedYet := len(s.events)
	s.mu.Unlock()
	if queuedYet != 0 {
		t.Fatal("a custom event added before Start must be queued, not dispatched")
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.FlushQueuedCustomEvents(); err != nil {
		t.Fatalf("FlushQueuedCustomEvents: %v", err)
	}
	if err := p.EmitFullSnapshot(event.MetaData{}, event.FullSnapshotData{}); err != nil {
		t.Fatalf("EmitFullSnapshot: %v", err)
	}
	if err := p.AddCustomEvent("live", 2); err != nil {
		t.Fatalf("AddCustomEvent while recording: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var tags []string
	for _, e := range s.events {
		if cd, ok := e.Payload.(event.CustomData); ok {
			tags = append(tags, cd.Tag)
		}
	}
	if len(tags) != 2 || tags[0] != "pre-start" || tags[1] != "live" {
		t.Fatalf("custom events out of order or missing: %v", tags)
	}
}

// Freeze/Unfreeze guard against invalid state transitions, and
// EmitIncremental is a silent no-op (not an error) while frozen.
func TestFreezeUnfreeze(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := &sinkRecorder{}
	p := newPipeline(t, clock, s, emit.Options{})

	if err := p.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if err := p.Freeze(); err == nil {
		t.Fatal("Freeze from an already-frozen pipeline must error")
	}

	checkout, err := p.EmitIncremental(event.SourceMutation, event.MutationData{})
	if err != nil {
		t.Fatalf("EmitIncremental while frozen: %v", err)
	}
	if checkout {
		t.Fatal("EmitIncremental must report no checkout while frozen")
	}

	if err := p.Unfreeze(); err != nil {
		t.Fatalf("Unfreeze: %v", err)
	}
	if err := p.Unfreeze(); err == nil {
		t.Fatal("Unfreeze from a non-frozen pipeline must error")
	}
}

// Stop is idempotent and resets every counter, so a later Start begins
// the checkout policy from a clean slate.
func TestStopIdempotentAndResets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := &sinkRecorder{}
	p := newPipeline(t, clock, s, emit.Options{CheckoutEveryNth: 1})

	if _, err := p.EmitIncremental(event.SourceMutation, event.MutationData{}); err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	p.Stop()
	p.Stop() // must not panic

	if err := p.Start(); err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	if err := p.EmitFullSnapshot(event.MetaData{}, event.FullSnapshotData{}); err != nil {
		t.Fatalf("EmitFullSnapshot: %v", err)
	}
	checkout, err := p.EmitIncremental(event.SourceMutation, event.MutationData{})
	if err != nil {
		t.Fatalf("EmitIncremental: %v", err)
	}
	if !checkout {
		t.Fatal("a fresh Start must begin the incremental counter at 0, not carry over pre-Stop state")
	}
}
