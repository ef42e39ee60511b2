// Package visibility implements the recorder's two visibility-adjacent
// classifiers: the per-element visible/intersecting Evaluator (§4.3 of
// the design this fork follows) and the interactivity Registry that
// backs the serializer's isInteractive flag. Manager (manager.go in
// this package) paces the Evaluator on animation frames
// and turns its diffs into VisibilityMutation events.
package visibility

import "github.com/domreplay/recorder/internal/domcore"

// Entry is one element's visibility classification as of the most
// recent Evaluate call.
type Entry struct {
	IsVisible      bool
	IsStyleVisible bool
	Ratio          float64
	Rect           domcore.Rect
}

// Margin is a parsed CSS-order rootMargin (top, right, bottom, left),
// each either an absolute pixel offset or a percentage of the
// corresponding root dimension.
type Margin struct {
	Top, Right, Bottom, Left Offset
}

// Offset is one margin component.
type Offset struct {
	Value   float64
	Percent bool
}

func (o Offset) resolve(dimension float64) float64 {
	if o.Percent {
		return dimension * o.Value / 100
	}
	return o.Value
}

// Options configures an Evaluator.
type Options struct {
	Threshold float64 // minimum intersection ratio to count as visible
	RootMargin Margin
}

// Evaluator computes per-element visibility against a root rect
// (typically the viewport).
type Evaluator struct {
	opts Options
}

// New returns an Evaluator with the given options.
func New(opts Options) *Evaluator {
	return &Evaluator{opts: opts}
}

// Evaluate computes a fresh Entry for every element in elements against
// rootRect, which it first expands by the Evaluator's RootMargin.
func (e *Evaluator) Evaluate(elements []domcore.Element, rootRect domcore.Rect) map[domcore.Element]Entry {
	expanded := e.expand(rootRect)
	out := make(map[domcore.Element]Entry, len(elements))
	for _, el := range elements {
		elRect := el.BoundingClientRect()
		inter := intersect(elRect, expanded)
		area := elRect.Area()
		ratio := 0.0
		if area > 0 {
			ratio = round2(inter.Area() / area)
		}
		style := el.Style()
		isStyleVisible := style.Display != "none" && style.Visibility != "hidden" && style.Visibility != "collapse" && style.Opacity > 0
		isVisible := isStyleVisible && ratio > e.opts.Threshold
		out[el] = Entry{
			IsVisible:      isVisible,
			IsStyleVisible: isStyleVisible,
			Ratio:          ratio,
			Rect:           elRect,
		}
	}
	return out
}

// expand returns rootRect expanded per e.opts.RootMargin.
func (e *Evaluator) expand(rootRect domcore.Rect) domcore.Rect {
	m := e.opts.RootMargin
	w, h := rootRect.Width(), rootRect.Height()
	return domcore.Rect{
		Top:    rootRect.Top - m.Top.resolve(h),
		Right:  rootRect.Right + m.Right.resolve(w),
		Bottom: rootRect.Bottom + m.Bottom.resolve(h),
		Left:   rootRect.Left - m.Left.resolve(w),
	}
}

func intersect(a, b domcore.Rect) domcore.Rect {
	r := domcore.Rect{
		Top:    max(a.Top, b.Top),
		Left:   max(a.Left, b.Left),
		Right:  min(a.Right, b.Right),
		Bottom: min(a.Bottom, b.Bottom),
	}
	if r.Right < r.Left {
		r.Right = r.Left
	}
	if r.Bottom < r.Top {
		r.Bottom = r.Top
	}
	return r
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
