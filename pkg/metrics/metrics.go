// Package metrics exposes Prometheus metrics for the lifecycle runtime.
//
// Metrics collected:
//   - throwdown_lifecycle_callbacks_total: callbacks fired, by kind
//   - throwdown_batches_total: mutation batches processed
//   - throwdown_records_total: mutation records processed
//   - throwdown_records_skipped_total: records skipped, by reason
//   - throwdown_batch_duration_seconds: batch processing duration
//   - throwdown_callback_panics_total: recovered callback panics
//   - throwdown_live_entries: live registry entries
//   - throwdown_store_notifications_total: store notifications, by outcome
//   - throwdown_updates_total: reconciler updates, by result
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "throwdown").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for batch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "throwdown",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records lifecycle metrics.
type Collector struct {
	callbacks      *prometheus.CounterVec
	batches        prometheus.Counter
	records        prometheus.Counter
	skipped        *prometheus.CounterVec
	batchDuration  prometheus.Histogram
	callbackPanics prometheus.Counter
	liveEntries    prometheus.Gauge
	storeNotifs    *prometheus.CounterVec
	updates        *prometheus.CounterVec
}

// New creates a collector and registers its metrics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		callbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "lifecycle_callbacks_total",
			Help:        "Total number of lifecycle callbacks fired",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batches_total",
			Help:        "Total number of mutation batches processed",
			ConstLabels: config.ConstLabels,
		}),

		records: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "records_total",
			Help:        "Total number of mutation records processed",
			ConstLabels: config.ConstLabels,
		}),

		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "records_skipped_total",
			Help:        "Total number of mutation records skipped",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batch_duration_seconds",
			Help:        "Mutation batch processing duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		callbackPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "callback_panics_total",
			Help:        "Total number of recovered lifecycle callback panics",
			ConstLabels: config.ConstLabels,
		}),

		liveEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_entries",
			Help:        "Number of live registry entries",
			ConstLabels: config.ConstLabels,
		}),

		storeNotifs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_notifications_total",
			Help:        "Store notifications per subscription, by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Reconciler updates, by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),
	}
}

// RecordCallback records a fired callback of the given kind.
func (c *Collector) RecordCallback(kind string) {
	if c == nil {
		return
	}
	c.callbacks.WithLabelValues(kind).Inc()
}

// RecordBatch records a processed batch.
func (c *Collector) RecordBatch(records int, d time.Duration) {
	if c == nil {
		return
	}
	c.batches.Inc()
	c.records.Add(float64(records))
	c.batchDuration.Observe(d.Seconds())
}

// RecordSkipped records a skipped record.
func (c *Collector) RecordSkipped(reason string) {
	if c == nil {
		return
	}
	c.skipped.WithLabelValues(reason).Inc()
}

// RecordPanic records a recovered callback panic.
func (c *Collector) RecordPanic() {
	if c == nil {
		return
	}
	c.callbackPanics.Inc()
}

// SetLiveEntries sets the live entry gauge.
func (c *Collector) SetLiveEntries(n int) {
	if c == nil {
		return
	}
	c.liveEntries.Set(float64(n))
}

// RecordStoreNotification records the outcome of one subscription check:
// "changed", "unchanged", "pruned" or "failed".
func (c *Collector) RecordStoreNotification(outcome string) {
	if c == nil {
		return
	}
	c.storeNotifs.WithLabelValues(outcome).Inc()
}

// RecordUpdate records a reconciler update: "applied", "skipped" or
// "error".
func (c *Collector) RecordUpdate(result string) {
	if c == nil {
		return
	}
	c.updates.WithLabelValues(result).Inc()
}
