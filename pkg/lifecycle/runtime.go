package lifecycle

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/throwdown/internal/errors"
	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/metrics"
	"github.com/vango-dev/throwdown/pkg/morph"
	"github.com/vango-dev/throwdown/pkg/registry"
)

// Default configuration values.
const (
	// DefaultTaskBuffer is the capacity of the Post queue.
	DefaultTaskBuffer = 256

	// DefaultMaxFlushRounds bounds Flush when callbacks keep mutating the
	// tree in response to their own batches.
	DefaultMaxFlushRounds = 64
)

// ErrClosed is returned by Post after Close.
var ErrClosed = errors.Newf(errors.CategoryLifecycle, "runtime closed")

// Config configures a Runtime.
type Config struct {
	// Registry is the identity registry. Default: a fresh registry.New().
	Registry *registry.Registry

	// Patcher applies updates. Default: morph.Patcher{}.
	Patcher Patcher

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records lifecycle metrics. nil records nothing.
	Metrics *metrics.Collector

	// Tracer traces mutation batches. Default: global provider.
	Tracer trace.Tracer

	// ErrorSink receives isolated errors. Default: the logger.
	ErrorSink ErrorSink

	// TaskBuffer is the capacity of the Post queue.
	TaskBuffer int

	// MaxFlushRounds bounds a single Flush call.
	MaxFlushRounds int
}

// Option configures a Runtime.
type Option func(*Config)

// WithRegistry sets the registry.
func WithRegistry(r *registry.Registry) Option {
	return func(c *Config) { c.Registry = r }
}

// WithPatcher sets the patcher.
func WithPatcher(p Patcher) Option {
	return func(c *Config) { c.Patcher = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithRuntimeTracer sets the batch tracer.
func WithRuntimeTracer(t trace.Tracer) Option {
	return func(c *Config) { c.Tracer = t }
}

// WithRuntimeErrorSink sets the error sink.
func WithRuntimeErrorSink(s ErrorSink) Option {
	return func(c *Config) { c.ErrorSink = s }
}

// WithTaskBuffer sets the Post queue capacity.
func WithTaskBuffer(n int) Option {
	return func(c *Config) { c.TaskBuffer = n }
}

// WithMaxFlushRounds bounds the batches a single Flush processes.
func WithMaxFlushRounds(n int) Option {
	return func(c *Config) { c.MaxFlushRounds = n }
}

// Runtime is the lifecycle event loop for one observed tree.
type Runtime struct {
	root       *dom.Node
	reg        *registry.Registry
	obs        *dom.Observer
	dispatcher *Dispatcher
	reconciler *Reconciler
	logger     *slog.Logger
	metrics    *metrics.Collector
	maxRounds  int

	tasks    chan func()
	inBatch  bool
	closed   atomic.Bool
	isClosed chan struct{}
}

// New creates a runtime observing root. Observation starts immediately;
// records queue until Run or Flush processes them.
func New(root *dom.Node, opts ...Option) *Runtime {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.New()
	}
	if cfg.Patcher == nil {
		cfg.Patcher = morph.Patcher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TaskBuffer <= 0 {
		cfg.TaskBuffer = DefaultTaskBuffer
	}
	if cfg.MaxFlushRounds <= 0 {
		cfg.MaxFlushRounds = DefaultMaxFlushRounds
	}

	rt := &Runtime{
		root:      root,
		reg:       cfg.Registry,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		maxRounds: cfg.MaxFlushRounds,
		tasks:     make(chan func(), cfg.TaskBuffer),
		isClosed:  make(chan struct{}),
	}
	rt.dispatcher = NewDispatcher(cfg.Registry,
		WithObservedRoot(root),
		WithDispatcherLogger(cfg.Logger),
		WithDispatcherMetrics(cfg.Metrics),
		WithTracer(cfg.Tracer),
		WithErrorSink(cfg.ErrorSink),
	)
	rt.reconciler = NewReconciler(cfg.Registry, cfg.Patcher, cfg.Logger, cfg.Metrics)
	rt.obs = dom.Observe(root, dom.ObserveAll)
	return rt
}

// Root returns the observed root.
func (rt *Runtime) Root() *dom.Node { return rt.root }

// Registry returns the identity registry.
func (rt *Runtime) Registry() *registry.Registry { return rt.reg }

// Dispatcher returns the mutation dispatcher.
func (rt *Runtime) Dispatcher() *Dispatcher { return rt.dispatcher }

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Metrics returns the metrics collector, possibly nil.
func (rt *Runtime) Metrics() *metrics.Collector { return rt.metrics }

// OnEvent registers a listener for fired callbacks.
func (rt *Runtime) OnEvent(l EventListener) { rt.dispatcher.OnEvent(l) }

// Update patches the node named by target to match next, keeping its
// identity. See Reconciler.Update.
func (rt *Runtime) Update(target Target, next *dom.Node, opts any) error {
	return rt.reconciler.Update(target, next, opts)
}

// Post schedules fn on the event loop. Use it to touch the tree or the
// runtime from other goroutines.
func (rt *Runtime) Post(fn func()) error {
	if rt.closed.Load() {
		return ErrClosed
	}
	select {
	case rt.tasks <- fn:
		return nil
	case <-rt.isClosed:
		return ErrClosed
	}
}

// Run is the event loop. It processes mutation batches and posted tasks
// until ctx is done or Close is called.
func (rt *Runtime) Run(ctx context.Context) error {
	rt.logger.Info("lifecycle runtime started")
	defer rt.logger.Info("lifecycle runtime stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rt.isClosed:
			return nil
		case <-rt.obs.Notify():
			rt.Flush(ctx)
		case fn := <-rt.tasks:
			rt.runTask(fn)
			rt.Flush(ctx)
		}
	}
}

// Flush processes pending batches until the tree is quiet, returning the
// number of batches processed. Records produced by callbacks form the next
// batch. Calling Flush from inside a callback does nothing; the outer
// flush picks the records up.
func (rt *Runtime) Flush(ctx context.Context) int {
	if rt.inBatch || rt.closed.Load() {
		return 0
	}
	rt.inBatch = true
	defer func() { rt.inBatch = false }()

	n := 0
	for ; n < rt.maxRounds; n++ {
		batch := rt.obs.Take()
		if len(batch) == 0 {
			return n
		}
		rt.dispatcher.Process(ctx, batch)
	}
	if pending := rt.obs.Pending(); pending > 0 {
		rt.logger.Warn("flush round limit reached, records left for the next pass",
			"rounds", n, "pending", pending)
	}
	return n
}

func (rt *Runtime) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error("posted task panicked", "panic", r)
		}
	}()
	fn()
}

// Close stops observation and clears the registry without firing
// callbacks. Close is idempotent. While Run is active, call it through
// Post so it does not race with batch processing.
func (rt *Runtime) Close() {
	if !rt.closed.CompareAndSwap(false, true) {
		return
	}
	close(rt.isClosed)
	rt.obs.Disconnect()
	rt.reg.Clear()
	rt.metrics.SetLiveEntries(0)
}
