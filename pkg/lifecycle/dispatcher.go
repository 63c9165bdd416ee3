package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/throwdown/internal/errors"
	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/metrics"
	"github.com/vango-dev/throwdown/pkg/registry"
)

// Default tracer name for batch spans.
const defaultTracerName = "throwdown"

// Malformed record errors.
var ErrMalformedRecord = errors.New("E110")

// ErrCallbackPanic is reported when a lifecycle callback panics.
var ErrCallbackPanic = errors.New("E120")

// Dispatcher drives registry entries through their lifecycle from ordered
// batches of mutation records.
type Dispatcher struct {
	reg     *registry.Registry
	root    *dom.Node
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	sink    ErrorSink

	listeners []EventListener
	batch     uint64

	// per-batch counters for the span
	counts [4]int
	failed int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObservedRoot sets the root of the observed tree. A node found in a
// removed subtree that is connected to the root again by the time its
// batch is processed has been moved, not detached, and keeps its entry.
func WithObservedRoot(root *dom.Node) DispatcherOption {
	return func(d *Dispatcher) {
		d.root = root
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDispatcherMetrics sets the metrics collector.
func WithDispatcherMetrics(m *metrics.Collector) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracer sets the tracer used for batch spans. Default: the global
// OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithErrorSink sets where isolated errors are reported. Default: the
// logger.
func WithErrorSink(s ErrorSink) DispatcherOption {
	return func(d *Dispatcher) {
		d.sink = s
	}
}

// NewDispatcher creates a dispatcher over reg.
func NewDispatcher(reg *registry.Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		reg:    reg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(defaultTracerName)
	}
	return d
}

// OnEvent registers a listener for fired callbacks.
func (d *Dispatcher) OnEvent(l EventListener) {
	d.listeners = append(d.listeners, l)
}

// Process handles one batch: every record in delivery order, each record's
// attribute change before its added and removed subtrees. Malformed
// records and panicking callbacks are reported and skipped; they never
// stop the batch.
func (d *Dispatcher) Process(ctx context.Context, batch []dom.MutationRecord) {
	if len(batch) == 0 {
		return
	}
	start := time.Now()
	d.batch++
	d.counts = [4]int{}
	d.failed = 0

	_, span := d.tracer.Start(ctx, "throwdown.batch",
		trace.WithAttributes(
			attribute.Int64("throwdown.batch", int64(d.batch)),
			attribute.Int("throwdown.records", len(batch)),
		))
	defer span.End()

	for i := range batch {
		d.processRecord(&batch[i])
	}

	span.SetAttributes(
		attribute.Int("throwdown.added", d.counts[KindAdded]),
		attribute.Int("throwdown.mutated", d.counts[KindMutated]),
		attribute.Int("throwdown.removed", d.counts[KindRemoved]),
	)
	if d.failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d isolated errors", d.failed))
	}

	d.metrics.RecordBatch(len(batch), time.Since(start))
	d.metrics.SetLiveEntries(d.reg.Len())
	d.logger.Debug("batch processed",
		"batch", d.batch,
		"records", len(batch),
		"added", d.counts[KindAdded],
		"mutated", d.counts[KindMutated],
		"removed", d.counts[KindRemoved])
}

func (d *Dispatcher) processRecord(rec *dom.MutationRecord) {
	if err := validate(rec); err != nil {
		d.metrics.RecordSkipped("malformed")
		d.report(err)
		return
	}

	if rec.Type == dom.RecordAttributes && rec.AttributeName == dom.IdentityAttr {
		d.identityChanged(rec)
	} else if id, ok := rec.Target.Identity(); ok {
		if e, ok := d.reg.Lookup(id); ok {
			d.touch(e, rec.Target)
		}
	}

	for _, root := range rec.Added {
		root.Walk(d.visitAdded)
	}
	for _, root := range rec.Removed {
		root.Walk(d.visitRemoved)
	}
}

// identityChanged handles a change of the identity attribute. The old
// identity is destroyed; a new identity with a live entry is attached to
// the target.
func (d *Dispatcher) identityChanged(rec *dom.MutationRecord) {
	cur, hasCur := rec.Target.Identity()

	if rec.HasOldValue && rec.OldValue != "" && !(hasCur && cur == rec.OldValue) {
		if e, ok := d.reg.Unregister(rec.OldValue); ok {
			d.fire(e, KindRemoved, rec.Target)
		}
	}

	if !hasCur {
		return
	}
	if e, ok := d.reg.Lookup(cur); ok {
		d.touch(e, rec.Target)
	}
}

// touch refreshes the entry's node and fires mutated, or added if the
// entry has never been seen attached.
func (d *Dispatcher) touch(e *registry.Entry, n *dom.Node) {
	e.SetNode(n)
	if e.Attach() {
		d.fire(e, KindAdded, n)
		return
	}
	d.fire(e, KindMutated, n)
}

func (d *Dispatcher) visitAdded(n *dom.Node) {
	id, ok := n.Identity()
	if !ok {
		return
	}
	e, ok := d.reg.Lookup(id)
	if !ok {
		return
	}
	e.SetNode(n)
	if e.Attach() {
		d.fire(e, KindAdded, n)
	}
}

func (d *Dispatcher) visitRemoved(n *dom.Node) {
	id, ok := n.Identity()
	if !ok {
		return
	}
	if d.root != nil && d.root.Contains(n) {
		// Moved: removed and re-inserted before this batch ran.
		if e, ok := d.reg.Lookup(id); ok {
			e.SetNode(n)
		}
		return
	}
	if e, ok := d.reg.Unregister(id); ok {
		d.fire(e, KindRemoved, n)
	}
}

// fire invokes one callback, isolating panics.
func (d *Dispatcher) fire(e *registry.Entry, kind Kind, n *dom.Node) {
	d.counts[kind]++
	d.metrics.RecordCallback(kind.String())

	ev := Event{Kind: kind, ID: e.ID, Tag: n.Tag(), Batch: d.batch, Time: time.Now()}
	for _, l := range d.listeners {
		d.emit(l, ev)
	}

	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordPanic()
			d.report(ErrCallbackPanic.WithID(e.ID).Wrap(fmt.Errorf("%s callback: %v", kind, r)))
		}
	}()

	switch kind {
	case KindAdded:
		e.Callbacks.Added(n)
	case KindMutated:
		e.Callbacks.Mutated(n)
	case KindRemoved:
		e.Callbacks.Removed(n)
	}
}

// emit delivers ev to one listener. A panicking listener is reported and
// never keeps the callback or other listeners from running.
func (d *Dispatcher) emit(l EventListener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordPanic()
			d.report(ErrCallbackPanic.WithID(ev.ID).Wrap(fmt.Errorf("%s event listener: %v", ev.Kind, r)))
		}
	}()
	l(ev)
}

func (d *Dispatcher) report(err error) {
	d.failed++
	if d.sink != nil {
		d.sink(err)
		return
	}
	d.logger.Error("lifecycle error", "code", errors.CodeOf(err), "error", err)
}

// validate rejects records without a target and records that list the
// same node as both added and removed.
func validate(rec *dom.MutationRecord) error {
	if rec.Target == nil {
		return ErrMalformedRecord.WithDetail("record has no target")
	}
	for _, a := range rec.Added {
		for _, r := range rec.Removed {
			if a == r && a != nil {
				return ErrMalformedRecord.WithDetail("node listed as both added and removed")
			}
		}
	}
	return nil
}
