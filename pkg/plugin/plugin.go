// Package plugin defines the recorder's plugin chain interface and
// the one built-in plugin the fork ships: a sequential-id annotator.
package plugin

import "github.com/domreplay/recorder/pkg/event"

// Plugin is a recording-time extension point: {name, eventProcessor?,
// observer?, options, getMirror?} per the original source's plugin
// shape. Observer and GetMirror are left to the caller's own
// composition (a plugin wanting a custom observer registers it
// directly against the recording facade); this package only models
// the part of the chain the emit pipeline itself drives.
type Plugin struct {
	Name string

	// EventProcessor rewrites or augments an event before it reaches
	// the sink. Plugins run in declaration order; each sees the prior
	// plugin's output, per spec's ordering guarantee.
	EventProcessor func(e event.Event) event.Event

	Options map[string]any
}

// Chain applies a plugin list's event processors in order.
func Chain(plugins []Plugin, e event.Event) event.Event {
	for _, p := range plugins {
		if p.EventProcessor != nil {
			e = p.EventProcessor(e)
		}
	}
	return e
}
