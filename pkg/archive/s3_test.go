package archive_test

import (
	"testing"

	"github.com/domreplay/recorder/pkg/archive"
	"github.com/domreplay/recorder/pkg/event"
)

func TestRecordingAccumulatesFrames(t *testing.T) {
	rec := archive.NewRecording("sess-1")
	if rec.Size() != 0 {
		t.Fatalf("Size() on empty recording = %d, want 0", rec.Size())
	}

	e := event.Event{Type: event.TypeMeta, Timestamp: 1000, Payload: event.MetaData{Href: "https://example.com", Width: 800, Height: 600}}
	if err := rec.AddEvent(e); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if rec.Size() == 0 {
		t.Fatal("Size() after AddEvent = 0, want > 0")
	}

	before := rec.Size()
	if err := rec.AddEvent(e); err != nil {
		t.Fatalf("AddEvent second: %v", err)
	}
	if rec.Size() <= before {
		t.Fatalf("Size() after second AddEvent = %d, want > %d", rec.Size(), before)
	}
}
