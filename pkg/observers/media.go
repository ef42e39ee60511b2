package observers

import (
	"github.com/domreplay/recorder/internal/domcore"
	"github.com/domreplay/recorder/pkg/event"
)

// MediaObserver delegates play/pause/seeked/volumechange/ratechange
// from <video>/<audio> elements.
type MediaObserver struct {
	doc      domcore.Document
	getID    IDResolver
	emit     func(event.Data)
	disposed []domcore.Disposable
}

// NewMediaObserver constructs a MediaObserver.
func NewMediaObserver(doc domcore.Document, getID IDResolver, emit func(event.Data)) *MediaObserver {
	return &MediaObserver{doc: doc, getID: getID, emit: emit}
}

// Install attaches delegated media event listeners.
func (o *MediaObserver) Install() domcore.Disposable {
	root := o.doc.DocumentElement()
	kinds := map[string]event.MediaInteractionKind{
		"play":          event.MediaInteractionPlay,
		"pause":         event.MediaInteractionPause,
		"seeked":        event.MediaInteractionSeeked,
		"volumechange":  event.MediaInteractionVolumeChange,
		"ratechange":    event.MediaInteractionRateChange,
	}
	for evType, kind := range kinds {
		k := kind
		o.disposed = append(o.disposed, root.AddEventListener(evType, func(e domcore.Event) {
			o.onEvent(e, k)
		}))
	}
	return domcore.DisposeFunc(func() {
		for _, d := range o.disposed {
			if d != nil {
				d.Dispose()
			}
		}
	})
}

func (o *MediaObserver) onEvent(e domcore.Event, kind event.MediaInteractionKind) {
	media, ok := e.Target.(domcore.MediaElement)
	if !ok {
		return
	}
	id, ok := o.getID(e.Target)
	if !ok {
		return
	}
	o.emit(event.MediaInteractionData{
		Source:       event.SourceMediaInteraction,
		ID:           id,
		Type:         kind,
		CurrentTime:  media.CurrentTime(),
		Volume:       media.Volume(),
		Muted:        media.Muted(),
		PlaybackRate: media.PlaybackRate(),
	})
}
