// Package record is the recorder's public facade: one Start function
// that wires mirror, serializer, visibility pipeline, mutation
// buffer, per-source observers, and the emit pipeline together
// against a live internal/domcore.Document, and returns an idempotent
// stop handle plus the host integrations spec §6 names
// (addCustomEvent, freezePage, takeFullSnapshot, flushCustomEventQueue,
// a read-only mirror handle).
package record

import (
	"sync"
	"time"

	"github.com/domreplay/recorder/internal/config"
	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/internal/rrerrors"
	"github.com/domreplay/recorder/pkg/emit"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/frame"
	"github.com/domreplay/recorder/pkg/mirror"
	"github.com/domreplay/recorder/pkg/mutation"
	"github.com/domreplay/recorder/pkg/observers"
	"github.com/domreplay/recorder/pkg/snapshot"
	"github.com/domreplay/recorder/pkg/visibility"
)

// Recording is one active (or stopped) recording. All state lives on
// the struct; two Start calls in the same process produce two
// independent instances, per the design's "no module-level state"
// note.
type Recording struct {
	opts config.RecordOptions
	doc  domcore.Document

	Mirror *mirror.Mirror

	pipeline   *emit.Pipeline
	serializer *snapshot.Serializer
	visReg     *visibility.Registry
	visMgr     *visibility.Manager
	mutBuf     *mutation.Buffer

	iframeMgr *frame.IframeManager
	shadowMgr *frame.ShadowDomManager
	styleMgr  *frame.StylesheetManager

	obsCanvas *observers.CanvasObserver

	startTime time.Time

	mu          sync.Mutex
	running     bool
	frameHandle int
	disposables []domcore.Disposable

	stopOnce sync.Once
}

func errf(opts *config.RecordOptions, kind rrerrors.Kind, msg string) {
	if opts.ErrorHandler != nil {
		opts.ErrorHandler(rrerrors.New(kind, msg))
	}
}

// Start validates opts, takes the initial full snapshot, installs
// every observer, and begins recording. It returns a *Recording whose
// Stop method is the idempotent stop handle.
func Start(doc domcore.Document, opts config.RecordOptions) (*Recording, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &Recording{opts: opts, doc: doc, Mirror: mirror.New(), startTime: time.Now()}

	r.pipeline = emit.New(emit.Options{
		CheckoutEveryNth: opts.CheckoutEveryNth,
		CheckoutEveryNms: opts.CheckoutEveryNms,
		CheckoutEveryNvm: opts.CheckoutEveryNvm,
		FlushCustomEvent: opts.FlushCustomEvent,
		Plugins:          opts.Plugins,
		PackFn:           opts.PackFn,
		Sink:             opts.Emit,
		ErrorHandler:     opts.ErrorHandler,
	})
	if err := r.pipeline.Start(); err != nil {
		return nil, err
	}

	if opts.FlushCustomEvent == emit.FlushBefore {
		if err := r.pipeline.FlushQueuedCustomEvents(); err != nil {
			errf(&opts, rrerrors.EmitFailed, "flushing custom event queue before snapshot")
		}
	}

	r.visReg = visibility.NewRegistry()
	r.visReg.Install(doc)

	r.visMgr = visibility.NewManager(doc, visibility.ManagerOptions{
		Evaluator:   visibility.Options{Threshold: opts.Sampling.Visibility.Threshold},
		RafThrottle: opts.Sampling.Visibility.RafThrottle,
		Mode:        opts.Sampling.Visibility.Mode,
		Debounce:    opts.Sampling.Visibility.Debounce,
		Throttle:    opts.Sampling.Visibility.Throttle,
		Sensitivity: opts.Sampling.Visibility.Sensitivity,
	}, func(el domcore.Element) (int, bool) { return r.Mirror.GetID(el) }, func(d event.VisibilityMutationData) {
		checkout, err := r.pipeline.EmitIncremental(event.SourceVisibilityMutation, d)
		if err != nil {
			errf(&opts, rrerrors.EmitFailed, "visibility mutation emit failed")
			return
		}
		if checkout {
			r.TakeFullSnapshot(true)
		}
	}, func(int) {
		// No-op: EmitIncremental already derives the checkoutEveryNvm
		// counter from the VisibilityMutationData payload above: a
		// separate NotifyActivity call here would double-count.
	})

	r.serializer = snapshot.New(r.Mirror, snapshot.Options{
		BlockClass:       opts.BlockClass,
		BlockSelector:    opts.BlockSelector,
		IgnoreClass:      opts.IgnoreClass,
		IgnoreSelector:   opts.IgnoreSelector,
		ExcludeAttribute: opts.ExcludeAttribute,
		MaskTextClass:    opts.MaskTextClass,
		MaskTextSelector: opts.MaskTextSelector,
		MaskTextFn:       opts.MaskTextFn,
		MaskAllInputs:    opts.MaskAllInputs,
		MaskInputOptions: opts.MaskInputOptions,
		MaskInputFn:      opts.MaskInputFn,
		SlimDOM:          opts.SlimDOMOptions,
		InlineStylesheet: opts.InlineStylesheet,
		InlineImages:     opts.InlineImages,
		RecordCanvas:     opts.RecordCanvas,
		DataURLOptions:   opts.DataURLOptions,
		KeepIframeSrcFn:  opts.KeepIframeSrcFn,
		VisibilityOf: func(el domcore.Element) (bool, bool) {
			isInteractive := r.visReg.IsInteractive(el)
			if e, ok := r.visMgr.Current(el); ok {
				return e.IsVisible, isInteractive
			}
			return false, isInteractive
		},
		OnSerialize: r.onNodeSerialized,
	})

	r.mutBuf = mutation.New(doc, r.Mirror, r.serializer)

	r.iframeMgr = frame.NewIframeManager(r.onIframeAttach, r.Mirror.NextID)
	r.shadowMgr = frame.NewShadowDomManager(r.onShadowAttach)
	r.styleMgr = frame.NewStylesheetManager()

	if opts.Hooks.BeforeFullSnapshot != nil {
		opts.Hooks.BeforeFullSnapshot()
	}
	if err := r.TakeFullSnapshot(false); err != nil {
		return nil, err
	}
	if opts.Hooks.AfterFullSnapshot != nil {
		opts.Hooks.AfterFullSnapshot()
	}

	r.installObservers()

	if opts.FlushCustomEvent != emit.FlushBefore {
		if err := r.pipeline.FlushQueuedCustomEvents(); err != nil {
			errf(&opts, rrerrors.EmitFailed, "flushing custom event queue after observers installed")
		}
	}

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	r.scheduleFrame()

	return r, nil
}

// emitIncremental is the shared sink every per-source observer's emit
// callback funnels through.
func (r *Recording) emitIncremental(source event.Source, data event.Data) {
	checkout, err := r.pipeline.EmitIncremental(source, data)
	if err != nil {
		errf(&r.opts, rrerrors.EmitFailed, "incremental emit failed")
		return
	}
	if checkout {
		r.TakeFullSnapshot(true)
	}
}

func (r *Recording) installObservers() {
	root := r.doc.DocumentElement()
	_ = root

	mo := r.doc.NewMutationObserver(r.mutBuf.Feed)
	mo.Observe(r.doc.DocumentElement(), domcore.MutationObserverInit{
		ChildList: true, Attributes: true, AttributeOldValue: true,
		CharacterData: true, CharacterDataOld: true, Subtree: true,
	})
	r.addDisposable(domcore.DisposeFunc(mo.Disconnect))

	mi := r.opts.Sampling.MouseInteraction
	mouse := observers.NewMouseObserver(r.doc, observers.MouseOptions{
		MoveBatchWindow: r.opts.Sampling.MouseMove,
		Sampling: observers.InteractionSampling{
			MouseUp:     mi.MouseUp,
			MouseDown:   mi.MouseDown,
			Click:       mi.Click,
			ContextMenu: mi.ContextMenu,
			DblClick:    mi.DblClick,
			Focus:       mi.Focus,
			Blur:        mi.Blur,
			TouchStart:  mi.TouchStart,
			TouchEnd:    mi.TouchEnd,
		},
	}, r.Mirror.GetID,
		func(d event.Data) { r.emitIncremental(sourceOf(d), d) }, r.startTime)
	r.addDisposable(mouse.Install())

	scroll := observers.NewScrollObserver(r.doc, observers.ScrollOptions{Throttle: r.opts.Sampling.Scroll}, r.Mirror.GetID,
		func(d event.Data) { r.emitIncremental(event.SourceScroll, d) })
	r.addDisposable(scroll.Install())

	viewport := observers.NewViewportObserver(r.doc, func(d event.Data) { r.emitIncremental(event.SourceViewportResize, d) })
	r.addDisposable(viewport.Install())

	input := observers.NewInputObserver(r.doc, observers.InputOptions{
		MaskAllInputs:    r.opts.MaskAllInputs,
		MaskInputOptions: r.opts.MaskInputOptions,
		MaskInputFn:      r.opts.MaskInputFn,
		IgnoreClass:      r.opts.IgnoreClass,
		MaskTextClass:    r.opts.MaskTextClass,
		UserTriggered:    r.opts.UserTriggeredOnInput,
	}, r.Mirror.GetID, func(d event.Data) { r.emitIncremental(event.SourceInput, d) })
	r.addDisposable(input.Install())

	media := observers.NewMediaObserver(r.doc, r.Mirror.GetID, func(d event.Data) { r.emitIncremental(event.SourceMediaInteraction, d) })
	r.addDisposable(media.Install())

	sheet := observers.NewStyleSheetObserver(r.doc, r.Mirror.GetID, func(d event.Data) { r.emitIncremental(event.SourceStyleSheetRule, d) })
	r.addDisposable(sheet.Install())

	styleDecl := observers.NewStyleDeclarationObserver(r.doc, r.Mirror.GetID, func(d event.Data) { r.emitIncremental(event.SourceStyleDeclaration, d) })
	r.addDisposable(styleDecl.Install())

	if rootID, ok := r.Mirror.GetID(r.doc); ok {
		adopted := observers.NewAdoptedStyleSheetObserver(r.doc, rootID, r.Mirror.GetID, func(d event.Data) { r.emitIncremental(event.SourceAdoptedStyleSheet, d) })
		r.addDisposable(adopted.Install())
	}

	if r.opts.CollectFonts {
		font := observers.NewFontObserver(r.doc, func(d event.Data) { r.emitIncremental(event.SourceFont, d) })
		r.addDisposable(font.Install())
	}

	customEl := observers.NewCustomElementObserver(r.doc, func(d event.Data) { r.emitIncremental(event.SourceCustomElement, d) })
	r.addDisposable(customEl.Install())

	selection := observers.NewSelectionObserver(r.doc, r.Mirror.GetID, func(d event.Data) { r.emitIncremental(event.SourceSelection, d) })
	r.addDisposable(selection.Install())

	if r.opts.RecordCanvas {
		r.obsCanvas = observers.NewCanvasObserver(r.doc, observers.CanvasOptions{
			FPS:            r.opts.Sampling.Canvas,
			DataURLQuality: r.opts.DataURLOptions.Quality,
			MimeType:       r.opts.DataURLOptions.Type,
		}, r.Mirror.GetID, func(d event.Data) { r.emitIncremental(event.SourceCanvasMutation, d) })
	}

	r.visMgr.Start()
}

// sourceOf recovers the Source tag a payload already carries, for the
// (rare) payload types that embed their own Source field.
func sourceOf(d event.Data) event.Source {
	switch v := d.(type) {
	case event.MouseMoveData:
		return v.Source
	case event.MouseInteractionData:
		return v.Source
	default:
		return event.SourceMutation
	}
}

// onNodeSerialized is invoked by the serializer for every element it
// visits, including ones nested inside iframes and shadow roots. It
// is how canvas observation, iframe recursion, and shadow root
// observer attachment are wired without a patched prototype method.
func (r *Recording) onNodeSerialized(n domcore.Node, s *snapshot.SerializedNode) {
	el, ok := n.(domcore.Element)
	if !ok {
		return
	}
	r.visMgr.Observe(el)
	if r.obsCanvas != nil {
		if cv, ok := el.(domcore.CanvasElement); ok {
			r.obsCanvas.Observe(cv)
		}
	}
	if ifr, ok := el.(domcore.IframeElement); ok {
		if s.ID != 0 {
			r.iframeMgr.AttachIframe(s.ID, ifr)
		}
	}
	if sr, ok := el.ShadowRoot(); ok {
		r.shadowMgr.Attach(sr)
	}
}

func (r *Recording) onIframeAttach(entry *frame.IframeEntry, doc domcore.Document) {
	// Same-origin: the iframe's nested document is already fully
	// walked by the serializer (serializeIframe recurses into it), so
	// there is nothing further to recurse here beyond installing a
	// mutation observer scoped to the nested document, letting its
	// DOM changes flow into the same mutation buffer/mirror id space.
	if doc == nil {
		return
	}
	mo := doc.NewMutationObserver(r.mutBuf.Feed)
	mo.Observe(doc.DocumentElement(), domcore.MutationObserverInit{
		ChildList: true, Attributes: true, AttributeOldValue: true,
		CharacterData: true, CharacterDataOld: true, Subtree: true,
	})
	r.addDisposable(domcore.DisposeFunc(mo.Disconnect))
}

func (r *Recording) onShadowAttach(root domcore.ShadowRoot, host domcore.Element) {
	mo := r.doc.NewMutationObserver(r.mutBuf.Feed)
	mo.Observe(root, domcore.MutationObserverInit{
		ChildList: true, Attributes: true, AttributeOldValue: true,
		CharacterData: true, CharacterDataOld: true, Subtree: true,
	})
	r.addDisposable(domcore.DisposeFunc(mo.Disconnect))
}

func (r *Recording) addDisposable(d domcore.Disposable) {
	r.mu.Lock()
	r.disposables = append(r.disposables, d)
	r.mu.Unlock()
}

func (r *Recording) scheduleFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.frameHandle = r.doc.AnimationFrames().RequestFrame(r.onFrame)
}

func (r *Recording) onFrame() {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		return
	}
	defer r.scheduleFrame()

	if !r.mutBuf.HasPending() {
		return
	}
	if r.opts.Hooks.BeforeMutation != nil {
		r.opts.Hooks.BeforeMutation()
	}
	data, ok := r.mutBuf.Flush()
	if !ok {
		if r.opts.Hooks.AfterMutation != nil {
			r.opts.Hooks.AfterMutation()
		}
		return
	}
	r.emitIncremental(event.SourceMutation, data)
	if r.opts.Hooks.AfterMutation != nil {
		r.opts.Hooks.AfterMutation()
	}
}

// TakeFullSnapshot serializes the current document and emits it. It
// locks the mutation buffer and visibility manager for the duration
// of serialization, so mutations and visibility flips that happen
// mid-walk are buffered rather than interleaved with the walk's own
// mirror writes.
func (r *Recording) TakeFullSnapshot(isCheckout bool) error {
	if r.mutBuf != nil {
		r.mutBuf.Lock()
		defer r.mutBuf.Unlock()
	}
	if r.visMgr != nil {
		r.visMgr.Lock()
		defer r.visMgr.Unlock()
	}
	if isCheckout {
		r.Mirror.Reset()
	}

	node, err := r.serializer.Serialize(r.doc)
	if err != nil {
		errf(&r.opts, rrerrors.SerializationFailed, "full snapshot serialization failed")
		return err
	}
	w, h := r.doc.Viewport()
	meta := event.MetaData{Href: r.doc.Location(), Width: w, Height: h}
	full := event.FullSnapshotData{Node: node, InitialOffset: event.Offset{}}
	return r.pipeline.EmitFullSnapshot(meta, full)
}

// AddCustomEvent emits (or, before the first full snapshot, queues)
// tag and payload as a Custom event.
func (r *Recording) AddCustomEvent(tag string, payload any) error {
	return r.pipeline.AddCustomEvent(tag, payload)
}

// FlushCustomEventQueue drains any custom events still queued.
func (r *Recording) FlushCustomEventQueue() error {
	return r.pipeline.FlushQueuedCustomEvents()
}

// FreezePage locks the mutation buffer and visibility manager so
// recorded mutations accumulate without being flushed, for tab-switch
// pause/resume.
func (r *Recording) FreezePage() error {
	if err := r.pipeline.Freeze(); err != nil {
		return err
	}
	r.mutBuf.Freeze()
	r.visMgr.Freeze()
	return nil
}

// UnfreezePage resumes flushing after FreezePage.
func (r *Recording) UnfreezePage() error {
	if err := r.pipeline.Unfreeze(); err != nil {
		return err
	}
	r.mutBuf.Unfreeze()
	r.visMgr.Unfreeze()
	return nil
}

// Stop is the idempotent stop handle: it detaches every observer,
// cancels the animation-frame loop, and resets the mirror.
func (r *Recording) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.running = false
		handle := r.frameHandle
		r.mu.Unlock()
		if handle != 0 {
			r.doc.AnimationFrames().CancelFrame(handle)
		}

		r.mu.Lock()
		disposables := r.disposables
		r.disposables = nil
		r.mu.Unlock()
		for _, d := range disposables {
			if d != nil {
				d.Dispose()
			}
		}

		if r.obsCanvas != nil {
			r.obsCanvas.Dispose()
		}
		if r.visMgr != nil {
			r.visMgr.Reset()
		}
		r.pipeline.Stop()
		r.Mirror.Reset()
	})
}
