// Package transport provides a demo HTTP/WebSocket host for the
// recorder: an in-memory registry of recording sessions, a chi-routed
// HTTP server exposing start/stop/stream endpoints, and a
// gorilla/websocket event-stream sink a live viewer can connect to.
//
// None of this is part of the core recording engine in pkg/record —
// it exists to give cmd/recorder something real to drive, the way a
// hosting application would wire pkg/record into its own server.
package transport
