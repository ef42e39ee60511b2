package event

// Offset is the scroll offset captured alongside a full snapshot.
type Offset struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// MetaData is the payload of a Meta event.
type MetaData struct {
	Href   string `json:"href"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (MetaData) isEventData() {}

// FullSnapshotData is the payload of a FullSnapshot event. Node is
// typed as `any` here (rather than importing pkg/snapshot) to avoid a
// dependency cycle: pkg/snapshot imports pkg/event for the Event type it
// emits. Callers store a *snapshot.SerializedNode.
type FullSnapshotData struct {
	Node          any    `json:"node"`
	InitialOffset Offset `json:"initialOffset"`
}

func (FullSnapshotData) isEventData() {}

// CustomData is the payload of a Custom event, used by
// record.AddCustomEvent.
type CustomData struct {
	Tag     string `json:"tag"`
	Payload any    `json:"payload"`
}

func (CustomData) isEventData() {}

// PluginData is the payload of a Plugin event.
type PluginData struct {
	Plugin  string `json:"plugin"`
	Payload any    `json:"payload"`
}

func (PluginData) isEventData() {}

// EmptyData is the payload of DomContentLoaded and Load, which carry no
// fields.
type EmptyData struct{}

func (EmptyData) isEventData() {}
