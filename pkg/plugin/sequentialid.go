package plugin

import (
	"sync"

	"github.com/domreplay/recorder/pkg/event"
)

// SequentialID builds the sequential-id plugin (spec §4.9): an
// eventProcessor that stamps event.Seq with a monotonically
// increasing integer. getID, when non-nil, is consulted instead of an
// internal counter — the mechanism for sharing one counter across a
// parent recorder and its forwarded cross-origin iframe events.
func SequentialID(getID func() int64) Plugin {
	var mu sync.Mutex
	var counter int64
	next := getID
	if next == nil {
		next = func() int64 {
			mu.Lock()
			defer mu.Unlock()
			counter++
			return counter
		}
	}
	return Plugin{
		Name: "sequential-id",
		EventProcessor: func(e event.Event) event.Event {
			id := next()
			e.Seq = &id
			return e
		},
	}
}
