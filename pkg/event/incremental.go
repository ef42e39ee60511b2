package event

// AddedNode describes one node inserted into the tree, as carried by a
// Mutation event. Node is `any` for the same reason as
// FullSnapshotData.Node: it holds a *snapshot.SerializedNode without
// creating an import cycle.
type AddedNode struct {
	ParentID   int  `json:"parentId"`
	NextID     int  `json:"nextId,omitempty"` // 0 when appended
	Node       any  `json:"node"`
}

// RemovedNode describes one node detached from the tree.
type RemovedNode struct {
	ID       int  `json:"id"`
	ParentID int  `json:"parentId"`
	IsShadow bool `json:"isShadow,omitempty"`
}

// AttributeMutation describes the final value of one element's
// attribute set change within a coalescing window, last-value-wins.
type AttributeMutation struct {
	ID         int            `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// TextMutation describes the final text content of one character-data
// node within a coalescing window, last-value-wins.
type TextMutation struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// MutationData is the payload of an IncrementalSnapshot with
// source=Mutation.
type MutationData struct {
	Source         Source              `json:"source"`
	Texts          []TextMutation      `json:"texts"`
	Attributes     []AttributeMutation `json:"attributes"`
	Removes        []RemovedNode       `json:"removes"`
	Adds           []AddedNode         `json:"adds"`
	IsAttachIframe bool                `json:"isAttachIframe,omitempty"`
}

func (MutationData) isEventData() {}

// MousePosition is one sampled pointer/touch position.
type MousePosition struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	ID            int     `json:"id"`
	TimeOffset    int64   `json:"timeOffset"`
}

// MouseMoveData is the payload of an IncrementalSnapshot with
// source=MouseMove or source=TouchMove.
type MouseMoveData struct {
	Source    Source          `json:"source"`
	Positions []MousePosition `json:"positions"`
}

func (MouseMoveData) isEventData() {}

// MouseInteractionKind enumerates the mouse/touch interaction
// subtypes, sampled per sampling.mouseInteraction.*.
type MouseInteractionKind int

const (
	MouseInteractionMouseUp MouseInteractionKind = iota
	MouseInteractionMouseDown
	MouseInteractionClick
	MouseInteractionContextMenu
	MouseInteractionDblClick
	MouseInteractionFocus
	MouseInteractionBlur
	MouseInteractionTouchStart
	MouseInteractionTouchEnd
)

// MouseInteractionData is the payload of an IncrementalSnapshot with
// source=MouseInteraction.
type MouseInteractionData struct {
	Source Source               `json:"source"`
	Type   MouseInteractionKind `json:"type"`
	ID     int                  `json:"id"`
	X      float64              `json:"x,omitempty"`
	Y      float64              `json:"y,omitempty"`
}

func (MouseInteractionData) isEventData() {}

// ScrollData is the payload of an IncrementalSnapshot with
// source=Scroll.
type ScrollData struct {
	Source Source  `json:"source"`
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (ScrollData) isEventData() {}

// ViewportResizeData is the payload of an IncrementalSnapshot with
// source=ViewportResize.
type ViewportResizeData struct {
	Source Source `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (ViewportResizeData) isEventData() {}

// InputData is the payload of an IncrementalSnapshot with source=Input.
type InputData struct {
	Source        Source `json:"source"`
	ID            int    `json:"id"`
	Text          string `json:"text"`
	IsChecked     bool   `json:"isChecked,omitempty"`
	UserTriggered bool   `json:"userTriggered,omitempty"`
}

func (InputData) isEventData() {}

// MediaInteractionKind enumerates media playback events.
type MediaInteractionKind int

const (
	MediaInteractionPlay MediaInteractionKind = iota
	MediaInteractionPause
	MediaInteractionSeeked
	MediaInteractionVolumeChange
	MediaInteractionRateChange
)

// MediaInteractionData is the payload of an IncrementalSnapshot with
// source=MediaInteraction.
type MediaInteractionData struct {
	Source       Source               `json:"source"`
	ID           int                  `json:"id"`
	Type         MediaInteractionKind `json:"type"`
	CurrentTime  float64              `json:"currentTime,omitempty"`
	Volume       float64              `json:"volume,omitempty"`
	Muted        bool                 `json:"muted,omitempty"`
	PlaybackRate float64              `json:"playbackRate,omitempty"`
}

func (MediaInteractionData) isEventData() {}

// StyleRuleAdd is one inserted CSS rule.
type StyleRuleAdd struct {
	Rule  string `json:"rule"`
	Index int    `json:"index"`
}

// StyleRuleRemove is one deleted CSS rule's index.
type StyleRuleRemove struct {
	Index int `json:"index"`
}

// StyleSheetRuleData is the payload of an IncrementalSnapshot with
// source=StyleSheetRule.
type StyleSheetRuleData struct {
	Source  Source            `json:"source"`
	ID      int               `json:"id"`
	Adds    []StyleRuleAdd    `json:"adds,omitempty"`
	Removes []StyleRuleRemove `json:"removes,omitempty"`
}

func (StyleSheetRuleData) isEventData() {}

// CanvasMutationData is the payload of an IncrementalSnapshot with
// source=CanvasMutation. Commands holds a patched-API call log when
// sampling captures draw commands; DataURL holds a full-frame
// snapshot when it does not.
type CanvasMutationData struct {
	Source   Source `json:"source"`
	ID       int    `json:"id"`
	Commands []any  `json:"commands,omitempty"`
	DataURL  string `json:"dataUrl,omitempty"`
}

func (CanvasMutationData) isEventData() {}

// FontData is the payload of an IncrementalSnapshot with source=Font.
type FontData struct {
	Source      Source            `json:"source"`
	Family      string            `json:"family"`
	FontSource  string            `json:"fontSource"`
	Descriptors map[string]string `json:"descriptors,omitempty"`
}

func (FontData) isEventData() {}

// LogData is the payload of an IncrementalSnapshot with source=Log.
type LogData struct {
	Source  Source   `json:"source"`
	Level   string   `json:"level"`
	Payload []string `json:"payload"`
}

func (LogData) isEventData() {}

// DragData is the payload of an IncrementalSnapshot with source=Drag.
// It shares MouseMove's position-batch shape.
type DragData struct {
	Source    Source          `json:"source"`
	Positions []MousePosition `json:"positions"`
}

func (DragData) isEventData() {}

// StylePropertySet is one CSSStyleDeclaration property assignment.
type StylePropertySet struct {
	Property string `json:"property"`
	Value    string `json:"value"`
	Priority string `json:"priority,omitempty"`
}

// StyleDeclarationData is the payload of an IncrementalSnapshot with
// source=StyleDeclaration.
type StyleDeclarationData struct {
	Source Source            `json:"source"`
	ID     int               `json:"id"`
	Index  []int             `json:"index"`
	Set    *StylePropertySet `json:"set,omitempty"`
	Remove *string           `json:"remove,omitempty"`
}

func (StyleDeclarationData) isEventData() {}

// SelectionRangePoint is one end of a selection range.
type SelectionRangePoint struct {
	ID     int `json:"id"`
	Offset int `json:"offset"`
}

// SelectionRange is one Range within a Selection.
type SelectionRange struct {
	Start SelectionRangePoint `json:"start"`
	End   SelectionRangePoint `json:"end"`
}

// SelectionData is the payload of an IncrementalSnapshot with
// source=Selection.
type SelectionData struct {
	Source Source           `json:"source"`
	Ranges []SelectionRange `json:"ranges"`
}

func (SelectionData) isEventData() {}

// AdoptedStyleSheetData is the payload of an IncrementalSnapshot with
// source=AdoptedStyleSheet. StyleSheetIDs maps a style sheet id to the
// element ids that adopt it; StyleIDs is the full new adopted-list
// ordering for the owning document or shadow root.
type AdoptedStyleSheetData struct {
	Source      Source   `json:"source"`
	ID          int      `json:"id"`
	StyleIDs    []int    `json:"styleIds"`
	StyleSheets []string `json:"styles,omitempty"`
}

func (AdoptedStyleSheetData) isEventData() {}

// CustomElementData is the payload of an IncrementalSnapshot with
// source=CustomElement.
type CustomElementData struct {
	Source Source `json:"source"`
	Define string `json:"define"`
}

func (CustomElementData) isEventData() {}

// VisibilityEntry is one element's visibility change, as carried in a
// VisibilityMutation batch.
type VisibilityEntry struct {
	ID        int     `json:"id"`
	IsVisible bool    `json:"isVisible"`
	Ratio     float64 `json:"ratio"`
}

// VisibilityMutationData is the payload of an IncrementalSnapshot with
// source=VisibilityMutation — this fork's addition to the taxonomy.
type VisibilityMutationData struct {
	Source    Source            `json:"source"`
	Mutations []VisibilityEntry `json:"mutations"`
}

func (VisibilityMutationData) isEventData() {}
