//go:build js && wasm

// Package domwasm implements internal/domcore against a live browser
// DOM via syscall/js. It is the production binding: a page embeds
// this module compiled to GOOS=js GOARCH=wasm, calls domwasm.Wrap on
// the global document, and passes the result to pkg/record.Start.
//
// Node identity is preserved the way the original source's own mirror
// does it: every wrapped node gets a small integer written to a
// non-enumerable expando property on the underlying JS object
// (mirroring rrweb's own "__sn" node-id stamp), so re-wrapping the
// same live node always returns the same *node pointer and therefore
// compares equal with ==, which domcore.Node requires for map-key use.
package domwasm

import "syscall/js"

const expandoKey = "__rrNodeId"

func isNullish(v js.Value) bool {
	return v.IsUndefined() || v.IsNull()
}
