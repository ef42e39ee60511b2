// Package event defines the recorder's wire-shape event taxonomy: a
// discriminated union keyed by Type, with IncrementalSnapshot further
// discriminated by Source. The shapes and the integer assignment of
// Type and Source are normative — they mirror the original rrweb
// public constants so that nothing downstream of this package (the
// demo replayer, a viewer written against the wire shape) needs to
// special-case this fork.
package event

import "encoding/json"

// Type discriminates the top-level event shape.
type Type int

const (
	TypeDomContentLoaded Type = iota
	TypeLoad
	TypeFullSnapshot
	TypeIncrementalSnapshot
	TypeMeta
	TypeCustom
	TypePlugin
)

func (t Type) String() string {
	switch t {
	case TypeDomContentLoaded:
		return "DomContentLoaded"
	case TypeLoad:
		return "Load"
	case TypeFullSnapshot:
		return "FullSnapshot"
	case TypeIncrementalSnapshot:
		return "IncrementalSnapshot"
	case TypeMeta:
		return "Meta"
	case TypeCustom:
		return "Custom"
	case TypePlugin:
		return "Plugin"
	default:
		return "Unknown"
	}
}

// Source discriminates an IncrementalSnapshot's data.source field.
type Source int

const (
	SourceMutation Source = iota
	SourceMouseMove
	SourceMouseInteraction
	SourceScroll
	SourceViewportResize
	SourceInput
	SourceTouchMove
	SourceMediaInteraction
	SourceStyleSheetRule
	SourceCanvasMutation
	SourceFont
	SourceLog
	SourceDrag
	SourceStyleDeclaration
	SourceSelection
	SourceAdoptedStyleSheet
	SourceCustomElement
	SourceVisibilityMutation
)

// Data is implemented by every concrete event payload. It carries no
// methods beyond the marker — Go's struct-tag-driven JSON marshaling
// already gives each payload its stable wire shape.
type Data interface {
	isEventData()
}

// Event is one entry in the recording stream. Timestamp is assigned by
// the emit pipeline, never by the producing observer. Seq is set only
// when the sequential-id plugin is installed.
type Event struct {
	Type      Type
	Timestamp int64
	Seq       *int64
	Payload   Data
}

type wireEvent struct {
	Type      Type   `json:"type"`
	Data      Data   `json:"data"`
	Timestamp int64  `json:"timestamp"`
	ID        *int64 `json:"id,omitempty"`
}

// MarshalJSON renders the stable wire shape: {type, data, timestamp, id?}.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		Type:      e.Type,
		Data:      e.Payload,
		Timestamp: e.Timestamp,
		ID:        e.Seq,
	})
}

// UnmarshalJSON is intentionally unimplemented: this fork's core never
// consumes its own event stream (replay is out of scope). Tests that
// need round-tripping construct Event values directly.
