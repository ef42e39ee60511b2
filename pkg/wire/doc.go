// Package wire implements the optional binary packing format for recorder
// event streams.
//
// The wire shape of the event stream is JSON (see package event). In
// this module wire supplies the framing around it: the WebSocket viewer
// stream, the archive buffer and the cross-origin-iframe forwarding
// socket each carry one JSON-encoded event per Frame. The emit
// pipeline's PackFn hook is not implemented on top of this package.
//
// # Design goals
//
//   - Minimal size: varint-encoded integers, length-prefixed strings
//   - No reflection: direct byte manipulation
//   - Depth limits (MaxNodeDepth, MaxPayloadDepth) for recursive
//     decoders; Decoder itself reads flat values and applies no depth
//     check
//
// # Frames
//
// Every message crossing a transport boundary (WebSocket sink,
// cross-origin iframe postMessage relay) is wrapped in a 4-byte-header
// Frame:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
package wire
