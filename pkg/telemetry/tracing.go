// Package telemetry wires OpenTelemetry tracing and Prometheus
// metrics around a recording's emit pipeline. Both are optional: a
// RecordOptions.Emit left unwrapped records with neither, exactly as
// the original source's middleware package is opt-in.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/domreplay/recorder/pkg/event"
)

const defaultTracerName = "domreplay-recorder"

// TracingConfig configures the tracing sink wrapper.
type TracingConfig struct {
	// TracerName names the resolved tracer (default
	// "domreplay-recorder").
	TracerName string

	// IncludeHref adds the document href as a span attribute when a
	// Meta event carries one. Off by default since a recorded page's
	// URL can itself be sensitive.
	IncludeHref bool
}

// TracingOption configures a TracingConfig.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) { c.TracerName = name }
}

// WithIncludeHref enables recording the document href as a span
// attribute.
func WithIncludeHref(include bool) TracingOption {
	return func(c *TracingConfig) { c.IncludeHref = include }
}

// WrapSink wraps a pipeline sink with a span per dispatched event,
// named after the event's Type (and, for the incremental payload types
// sourceOf recognizes, its Source). The wrapped sink is a drop-in
// replacement for
// config.RecordOptions.Emit.
func WrapSink(next func(e event.Event, isCheckout bool) error, opts ...TracingOption) func(event.Event, bool) error {
	cfg := TracingConfig{TracerName: defaultTracerName}
	for _, o := range opts {
		o(&cfg)
	}
	tracer := otel.Tracer(cfg.TracerName)

	return func(e event.Event, isCheckout bool) error {
		name := spanName(e)
		attrs := []attribute.KeyValue{
			attribute.String("recorder.event_type", e.Type.String()),
			attribute.Bool("recorder.is_checkout", isCheckout),
		}
		if md, ok := e.Payload.(event.MetaData); ok && cfg.IncludeHref {
			attrs = append(attrs, attribute.String("recorder.href", md.Href))
		}
		if src, ok := sourceOf(e.Payload); ok {
			attrs = append(attrs, attribute.Int("recorder.source", int(src)))
		}

		_, span := tracer.Start(context.Background(), name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
		defer span.End()

		err := next(e, isCheckout)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	}
}

func spanName(e event.Event) string {
	if src, ok := sourceOf(e.Payload); ok {
		return fmt.Sprintf("recorder.%s.source=%d", e.Type, src)
	}
	return fmt.Sprintf("recorder.%s", e.Type)
}

func sourceOf(d event.Data) (event.Source, bool) {
	switch v := d.(type) {
	case event.MutationData:
		return v.Source, true
	case event.MouseMoveData:
		return v.Source, true
	case event.MouseInteractionData:
		return v.Source, true
	case event.ScrollData:
		return v.Source, true
	case event.ViewportResizeData:
		return v.Source, true
	case event.InputData:
		return v.Source, true
	case event.MediaInteractionData:
		return v.Source, true
	case event.StyleSheetRuleData:
		return v.Source, true
	case event.CanvasMutationData:
		return v.Source, true
	case event.FontData:
		return v.Source, true
	case event.VisibilityMutationData:
		return v.Source, true
	default:
		return 0, false
	}
}
