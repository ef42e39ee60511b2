package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/domreplay/recorder/pkg/event"
)

// MetricsConfig configures the Prometheus metrics wrapper.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default "domreplay").
	Namespace string

	// Subsystem is the metrics subsystem (default "recorder").
	Subsystem string

	// ConstLabels are constant labels added to every metric.
	ConstLabels prometheus.Labels

	// Registry is the registry metrics are registered against
	// (default prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// MetricsOption configures a MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(ns string) MetricsOption { return func(c *MetricsConfig) { c.Namespace = ns } }

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(sub string) MetricsOption { return func(c *MetricsConfig) { c.Subsystem = sub } }

// WithRegistry sets the Prometheus registry.
func WithRegistry(r prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = r }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Namespace: "domreplay", Subsystem: "recorder", Registry: prometheus.DefaultRegisterer}
}

// Metrics holds every Prometheus collector the recorder publishes.
type Metrics struct {
	eventsTotal       *prometheus.CounterVec
	sinkErrorsTotal   prometheus.Counter
	fullSnapshotTotal *prometheus.CounterVec
	visibilityChanges prometheus.Counter
	eventBytes        prometheus.Histogram
}

// NewMetrics registers and returns a Metrics instance.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, o := range opts {
		o(&cfg)
	}
	factory := promauto.With(cfg.Registry)
	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "events_total",
			Help:        "Total events emitted, by event type.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"type"}),
		sinkErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "sink_errors_total",
			Help:        "Total sink callback errors.",
			ConstLabels: cfg.ConstLabels,
		}),
		fullSnapshotTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "full_snapshots_total",
			Help:        "Total full snapshots taken, by checkout/initial.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"reason"}),
		visibilityChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "visibility_changes_total",
			Help:        "Total per-element visibility changes observed.",
			ConstLabels: cfg.ConstLabels,
		}),
		eventBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "event_payload_bytes",
			Help:        "Approximate serialized size of emitted events.",
			Buckets:     prometheus.ExponentialBuckets(64, 4, 10),
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// WrapSink wraps a pipeline sink with metric recording. approxSize
// estimates a payload's wire size; passing nil skips the byte
// histogram.
func (m *Metrics) WrapSink(next func(e event.Event, isCheckout bool) error, approxSize func(event.Event) int) func(event.Event, bool) error {
	return func(e event.Event, isCheckout bool) error {
		m.eventsTotal.WithLabelValues(e.Type.String()).Inc()
		if e.Type == event.TypeFullSnapshot {
			reason := "initial"
			if isCheckout {
				reason = "checkout"
			}
			m.fullSnapshotTotal.WithLabelValues(reason).Inc()
		}
		if vm, ok := e.Payload.(event.VisibilityMutationData); ok {
			m.visibilityChanges.Add(float64(len(vm.Mutations)))
		}
		if approxSize != nil {
			m.eventBytes.Observe(float64(approxSize(e)))
		}
		err := next(e, isCheckout)
		if err != nil {
			m.sinkErrorsTotal.Inc()
		}
		return err
	}
}
