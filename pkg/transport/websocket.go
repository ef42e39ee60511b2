package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/domreplay/recorder/pkg/event"
	"github.com/domreplay/recorder/pkg/frame"
	"github.com/domreplay/recorder/pkg/wire"
)

const (
	viewerWriteTimeout = 10 * time.Second
	viewerSendQueue    = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsViewer is one live viewer connection subscribed to a Session's
// event stream, mirroring the teacher's per-connection write-loop
// shape (a buffered outbound channel drained by a single writer
// goroutine, never written to directly by the recording's own
// goroutines).
type wsViewer struct {
	conn   *websocket.Conn
	out    chan []byte
	done   chan struct{}
	logger *slog.Logger
}

func newWSViewer(conn *websocket.Conn, logger *slog.Logger) *wsViewer {
	return &wsViewer{conn: conn, out: make(chan []byte, viewerSendQueue), done: make(chan struct{}), logger: logger}
}

func (v *wsViewer) send(e event.Event, isCheckout bool) {
	payload, err := json.Marshal(e)
	if err != nil {
		v.logger.Error("viewer: event marshal failed", "error", err)
		return
	}
	f := wire.NewFrame(wire.FrameEvent, payload)
	select {
	case v.out <- f.Encode():
	default:
		v.logger.Warn("viewer: send queue full, dropping event")
	}
}

// writeLoop drains out and writes each frame as a single binary
// WebSocket message, exiting when done is closed.
func (v *wsViewer) writeLoop() {
	for {
		select {
		case msg, ok := <-v.out:
			if !ok {
				return
			}
			v.conn.SetWriteDeadline(time.Now().Add(viewerWriteTimeout))
			if err := v.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				v.logger.Error("viewer: write error", "error", err)
				return
			}
		case <-v.done:
			return
		}
	}
}

// readLoop discards inbound traffic except close frames; a viewer
// connection is receive-only except for the eventual iframe-forward
// endpoint, which uses its own handler.
func (v *wsViewer) readLoop() {
	defer close(v.done)
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ServeViewer upgrades r to a WebSocket and streams sess's events to
// it until the connection closes.
func ServeViewer(w http.ResponseWriter, r *http.Request, sess *Session, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	v := newWSViewer(conn, logger)
	sess.addViewer(v)
	defer func() {
		sess.removeViewer(v)
		close(v.out)
		conn.Close()
	}()

	go v.writeLoop()
	v.readLoop()
	return nil
}

// ServeIframeForward upgrades r to a WebSocket used by a cross-origin
// iframe's own recorder instance to forward its events into the
// parent session identified by parentIframeID (the iframe element's
// mirror id in the parent's tree), per the original source's
// postMessage relay.
func ServeIframeForward(w http.ResponseWriter, r *http.Request, sess *Session, iframeMgr *frame.IframeManager, parentIframeID int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		f, err := wire.DecodeFrame(data)
		if err != nil {
			logger.Warn("iframe forward: bad frame", "error", err)
			continue
		}
		if f.Type != wire.FrameIframe {
			continue
		}
		var msg frame.ForwardedMessage
		if err := json.Unmarshal(f.Payload, &msg); err != nil {
			logger.Warn("iframe forward: bad payload", "error", err)
			continue
		}
		translated, ok := iframeMgr.ReceiveForwarded(parentIframeID, msg)
		if !ok {
			continue
		}
		if err := sess.AddCustomEvent("iframe-forward", translated.Payload); err != nil {
			logger.Error("iframe forward: add custom event failed", "error", err)
		}
	}
}
