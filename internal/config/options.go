// Package config defines RecordOptions, the recorder's single
// configuration struct, and its validation rules.
package config

import (
	"regexp"
	"time"

	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/internal/rrerrors"
	"github.com/domreplay/recorder/pkg/emit"
	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/plugin"
	"github.com/domreplay/recorder/pkg/snapshot"
	"github.com/domreplay/recorder/pkg/visibility"
)

// RecordAfter selects when recording begins relative to document
// load.
type RecordAfter int

const (
	RecordAfterDOMContentLoaded RecordAfter = iota
	RecordAfterLoad
)

// MouseInteractionSampling toggles individual interaction subtypes;
// an entry defaulting to true unless explicitly turned off.
type MouseInteractionSampling struct {
	MouseUp     *bool
	MouseDown   *bool
	Click       *bool
	ContextMenu *bool
	DblClick    *bool
	Focus       *bool
	Blur        *bool
	TouchStart  *bool
	TouchEnd    *bool
}

// VisibilitySampling configures the VisibilityManager per spec §4.5
// and §6's sampling.visibility table.
type VisibilitySampling struct {
	Mode        visibility.FlushMode
	Debounce    time.Duration
	Throttle    time.Duration
	Threshold   float64
	Sensitivity float64
	RafThrottle time.Duration
}

// Sampling groups every per-source rate-limiting knob under §6's
// `sampling` option.
type Sampling struct {
	MouseMove         time.Duration
	MouseInteraction  MouseInteractionSampling
	Scroll            time.Duration
	Media             time.Duration
	Input             string // "all" or "last"
	Visibility        VisibilitySampling
	Canvas            float64 // fps, 0 = capture every draw
}

// SlimDOM selects head/script noise pruning; it is exactly
// snapshot.SlimDOMMode re-exported under the option's spec name.
type SlimDOM = snapshot.SlimDOMMode

const (
	SlimDOMOff = snapshot.SlimDOMOff
	SlimDOMOn  = snapshot.SlimDOMOn
	SlimDOMAll = snapshot.SlimDOMAll
)

// RecordOptions is the recorder's single configuration struct,
// covering every option in spec §6's table. Two historically drifting
// shapes from the original source — `checkoutEveryEvc` in place of
// `checkoutEveryNvm`, and `ignoreAttribute` in place of
// `excludeAttribute` — are not fields here at all, so code that still
// uses those names does not compile (the canonical names are the only
// ones a Go caller can set); Validate itself does not check for them.
type RecordOptions struct {
	// Emit is the required sink. isCheckout is true for every
	// FullSnapshot after the first.
	Emit func(e event.Event, isCheckout bool) error

	CheckoutEveryNth int
	CheckoutEveryNms time.Duration
	CheckoutEveryNvm int

	BlockClass      string
	BlockSelector   string
	IgnoreClass     string
	IgnoreSelector  string
	ExcludeAttribute *regexp.Regexp

	MaskTextClass    string
	MaskTextSelector string
	MaskTextFn       func(text string, el domcore.Element) string

	MaskAllInputs    bool
	MaskInputOptions map[string]bool
	MaskInputFn      func(value string, el domcore.Element) string

	InlineStylesheet bool
	InlineImages     bool
	CollectFonts     bool

	SlimDOMOptions SlimDOM

	Sampling Sampling

	RecordDOM                bool
	RecordCanvas             bool
	RecordCrossOriginIframes bool

	RecordAfter RecordAfter

	FlushCustomEvent emit.FlushCustomEvent

	UserTriggeredOnInput bool

	KeepIframeSrcFn func(url string) bool

	IgnoreCSSAttributes map[string]bool

	DataURLOptions snapshot.DataURLOptions

	Plugins []plugin.Plugin

	// Hooks are coarse pre/post callbacks per event family, invoked
	// around dispatch for host integrations that want visibility into
	// the pipeline without a full plugin.
	Hooks Hooks

	PackFn func(e event.Event) (event.Event, error)

	ErrorHandler func(*rrerrors.RecorderError)
}

// Hooks groups the facade's coarse pre/post callbacks.
type Hooks struct {
	BeforeFullSnapshot func()
	AfterFullSnapshot  func()
	BeforeMutation     func()
	AfterMutation      func()
}

// Validate rejects a RecordOptions that cannot be started: a missing
// sink is the only fatal condition, matching spec §7's note that
// InvalidConfig is the one kind returned (never routed to
// ErrorHandler) from the facade's start call.
func (o *RecordOptions) Validate() error {
	if o.Emit == nil {
		return rrerrors.New(rrerrors.InvalidConfig, "RecordOptions.Emit is required")
	}
	if o.CheckoutEveryNth < 0 {
		return rrerrors.New(rrerrors.InvalidConfig, "CheckoutEveryNth must not be negative")
	}
	if o.CheckoutEveryNms < 0 {
		return rrerrors.New(rrerrors.InvalidConfig, "CheckoutEveryNms must not be negative")
	}
	if o.CheckoutEveryNvm < 0 {
		return rrerrors.New(rrerrors.InvalidConfig, "CheckoutEveryNvm must not be negative")
	}
	return nil
}
