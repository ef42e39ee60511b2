// Package emit implements the recorder's emit pipeline: per-event
// timestamping, the plugin chain, optional packing, sink dispatch (or
// parent-frame forwarding from inside a cross-origin iframe), the
// three-predicate checkout policy, the custom-event queue, and the
// IDLE/STARTING/RECORDING/FROZEN state machine.
package emit

import (
	"sync"
	"time"

	"github.com/domreplay/recorder/internal/rrerrors"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/plugin"
)

// State is one state of the recording process's state machine.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRecording
	StateFrozen
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRecording:
		return "recording"
	case StateFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// FlushCustomEvent selects when queued custom events are emitted
// relative to the first full snapshot.
type FlushCustomEvent int

const (
	// FlushAfter emits queued custom events after the initial
	// observers are installed (the default).
	FlushAfter FlushCustomEvent = iota
	// FlushBefore emits queued custom events before the first full
	// snapshot.
	FlushBefore
)

// Options configures a Pipeline. Sink is required; Forward is used
// instead of Sink when IsChildFrame is set, modeling a pass-through
// child recording frame that posts to window.parent instead of
// calling the host's sink directly.
type Options struct {
	CheckoutEveryNth int
	CheckoutEveryNms time.Duration
	CheckoutEveryNvm int

	FlushCustomEvent FlushCustomEvent
	Plugins          []plugin.Plugin
	PackFn           func(event.Event) (event.Event, error)

	Sink         func(e event.Event, isCheckout bool) error
	IsChildFrame bool
	Forward      func(e event.Event, isCheckout bool) error

	ErrorHandler func(*rrerrors.RecorderError)

	// Now returns the current time, overridable by tests that need
	// deterministic timestamps.
	Now func() time.Time
}

// Pipeline is the recording process's central event gateway. All
// fields live on the struct, never at package scope, so two
// independent recordings in one process never share state.
type Pipeline struct {
	opts Options

	mu                    sync.Mutex
	state                 State
	incrementalCount      int
	lastFullTimestamp     int64
	visibilityChangeCount int
	customQueue           []event.Event
}

// New constructs an idle Pipeline.
func New(opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts, state: StateIdle}
}

func (p *Pipeline) now() int64 {
	return p.opts.Now().UnixMilli()
}

// State returns the current state machine state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start transitions IDLE to STARTING. It is an error to call Start
// from any other state.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return rrerrors.New(rrerrors.InvalidConfig, "emit: Start called outside idle state")
	}
	p.state = StateStarting
	p.incrementalCount = 0
	p.visibilityChangeCount = 0
	return nil
}

// FlushQueuedCustomEvents drains and emits the custom-event queue. The
// caller invokes this at the point FlushCustomEvent designates
// relative to the first full snapshot.
func (p *Pipeline) FlushQueuedCustomEvents() error {
	p.mu.Lock()
	queued := p.customQueue
	p.customQueue = nil
	p.mu.Unlock()
	for _, e := range queued {
		if err := p.dispatch(e, false); err != nil {
			return err
		}
	}
	return nil
}

// AddCustomEvent enqueues (before start / after stop) or immediately
// emits a Custom event carrying tag and payload.
func (p *Pipeline) AddCustomEvent(tag string, payload any) error {
	e := event.Event{Type: event.TypeCustom, Payload: event.CustomData{Tag: tag, Payload: payload}}
	p.mu.Lock()
	if p.state == StateIdle {
		p.customQueue = append(p.customQueue, e)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.dispatch(e, false)
}

// EmitFullSnapshot emits a FullSnapshot (preceded by its Meta event,
// per the stream-prefix invariant). On the first call after Start it
// advances STARTING to RECORDING; on any later call it is a
// checkout, and resets the checkout counters.
func (p *Pipeline) EmitFullSnapshot(meta event.MetaData, full event.FullSnapshotData) error {
	p.mu.Lock()
	if p.state == StateIdle || p.state == StateFrozen {
		p.mu.Unlock()
		return rrerrors.New(rrerrors.InvalidConfig, "emit: EmitFullSnapshot called while "+p.state.String())
	}
	first := p.state == StateStarting
	p.mu.Unlock()

	if err := p.dispatch(event.Event{Type: event.TypeMeta, Payload: meta}, false); err != nil {
		return err
	}
	ts := p.now()
	if err := p.dispatch(event.Event{Type: event.TypeFullSnapshot, Payload: full, Timestamp: ts}, !first); err != nil {
		return err
	}

	p.mu.Lock()
	if first {
		p.state = StateRecording
	}
	p.incrementalCount = 0
	p.visibilityChangeCount = 0
	p.lastFullTimestamp = ts
	p.mu.Unlock()
	return nil
}

// EmitIncremental emits an IncrementalSnapshot and reports whether the
// checkout policy now requires a fresh full snapshot. Mutations
// carrying IsAttachIframe do not bump the incremental counter, since
// they are themselves full-snapshot machinery (a recursed iframe
// attach), not a counted interaction.
func (p *Pipeline) EmitIncremental(source event.Source, payload event.Data) (checkoutNeeded bool, err error) {
	p.mu.Lock()
	if p.state != StateRecording {
		p.mu.Unlock()
		return false, nil
	}
	p.mu.Unlock()

	ts := p.now()
	if err := p.dispatch(event.Event{Type: event.TypeIncrementalSnapshot, Payload: payload, Timestamp: ts}, false); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if md, ok := payload.(event.MutationData); !ok || !md.IsAttachIframe {
		p.incrementalCount++
	}
	if vm, ok := payload.(event.VisibilityMutationData); ok {
		p.visibilityChangeCount += len(vm.Mutations)
	}

	if p.opts.CheckoutEveryNth > 0 && p.incrementalCount >= p.opts.CheckoutEveryNth {
		return true, nil
	}
	if p.opts.CheckoutEveryNms > 0 && time.Duration(ts-p.lastFullTimestamp)*time.Millisecond > p.opts.CheckoutEveryNms {
		return true, nil
	}
	if p.opts.CheckoutEveryNvm > 0 && p.visibilityChangeCount >= p.opts.CheckoutEveryNvm {
		return true, nil
	}
	return false, nil
}

// NotifyActivity folds in a visibility-change count observed outside
// EmitIncremental's own bookkeeping (the VisibilityManager's
// notifyActivity hook per spec §4.5 step 6), so a caller forwarding a
// VisibilityMutationData payload through EmitIncremental need not
// double-count.
func (p *Pipeline) NotifyActivity(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visibilityChangeCount += count
}

// Freeze locks the pipeline without transitioning out of RECORDING
// bookkeeping; callers lock their own mutation buffers separately.
func (p *Pipeline) Freeze() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRecording {
		return rrerrors.New(rrerrors.InvalidConfig, "emit: Freeze called outside recording state")
	}
	p.state = StateFrozen
	return nil
}

// Unfreeze returns FROZEN to RECORDING.
func (p *Pipeline) Unfreeze() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateFrozen {
		return rrerrors.New(rrerrors.InvalidConfig, "emit: Unfreeze called outside frozen state")
	}
	p.state = StateRecording
	return nil
}

// Stop is idempotent: calling it from any state leaves the pipeline
// IDLE and drops any queued custom events.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateIdle
	p.incrementalCount = 0
	p.visibilityChangeCount = 0
	p.lastFullTimestamp = 0
	p.customQueue = nil
}

// dispatch stamps, runs the plugin chain, optionally packs, and sinks
// or forwards one event.
func (p *Pipeline) dispatch(e event.Event, isCheckout bool) error {
	if e.Timestamp == 0 {
		e.Timestamp = p.now()
	}
	e = plugin.Chain(p.opts.Plugins, e)

	if p.opts.IsChildFrame {
		if p.opts.Forward == nil {
			return rrerrors.New(rrerrors.InvalidConfig, "emit: IsChildFrame set without Forward sink")
		}
		// Packing is skipped for forwarded events; the parent packs
		// once after id translation, per spec §4.8.
		if err := p.opts.Forward(e, isCheckout); err != nil {
			re := rrerrors.Wrap(rrerrors.EmitFailed, "forward to parent frame failed", err)
			if p.opts.ErrorHandler != nil {
				p.opts.ErrorHandler(re)
				return nil
			}
			return re
		}
		return nil
	}

	if p.opts.PackFn != nil {
		packed, err := p.opts.PackFn(e)
		if err != nil {
			re := rrerrors.Wrap(rrerrors.EmitFailed, "pack failed", err)
			if p.opts.ErrorHandler != nil {
				p.opts.ErrorHandler(re)
			} else {
				return re
			}
		} else {
			e = packed
		}
	}

	if p.opts.Sink == nil {
		return rrerrors.New(rrerrors.InvalidConfig, "emit: no Sink configured")
	}
	if err := p.opts.Sink(e, isCheckout); err != nil {
		re := rrerrors.Wrap(rrerrors.EmitFailed, "sink failed", err)
		if p.opts.ErrorHandler != nil {
			p.opts.ErrorHandler(re)
			return nil
		}
		return re
	}
	return nil
}
