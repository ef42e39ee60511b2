package domfake

import "github.com/domreplay/recorder/internal/domcore"

// frameSource is a manually driven requestAnimationFrame stand-in.
// Real pacing (one callback batch per display refresh) is simulated by
// calling tick from a test or from a time.Ticker in the demo host.
type frameSource struct {
	nextID   int
	pending  map[int]func()
}

func newFrameSource() *frameSource {
	return &frameSource{pending: make(map[int]func())}
}

func (f *frameSource) RequestFrame(fn func()) int {
	f.nextID++
	id := f.nextID
	f.pending[id] = fn
	return id
}

func (f *frameSource) CancelFrame(id int) {
	delete(f.pending, id)
}

// tick fires every callback currently queued, as a single animation
// frame would, then clears the queue (callbacks must re-register for
// the next frame, matching requestAnimationFrame's one-shot contract).
func (f *frameSource) tick() {
	batch := f.pending
	f.pending = make(map[int]func())
	for _, fn := range batch {
		if fn != nil {
			fn()
		}
	}
}

var _ domcore.AnimationFrameSource = (*frameSource)(nil)
