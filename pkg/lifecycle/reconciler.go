package lifecycle

import (
	"log/slog"

	"github.com/vango-dev/throwdown/internal/errors"
	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/metrics"
	"github.com/vango-dev/throwdown/pkg/registry"
)

// Update errors.
var (
	ErrPatchFailed   = errors.New("E140")
	ErrInvalidTarget = errors.New("E141")
)

// Patcher applies a new representation to a live node in place. opts is
// passed through unmodified.
type Patcher interface {
	Apply(old, next *dom.Node, opts any) error
}

// PatcherFunc adapts a function to the Patcher interface.
type PatcherFunc func(old, next *dom.Node, opts any) error

// Apply calls f.
func (f PatcherFunc) Apply(old, next *dom.Node, opts any) error {
	return f(old, next, opts)
}

// Target names the live node an update applies to.
type Target interface {
	resolve(reg *registry.Registry) (*dom.Node, bool)
	String() string
}

type idTarget string

func (t idTarget) resolve(reg *registry.Registry) (*dom.Node, bool) {
	e, ok := reg.Lookup(string(t))
	if !ok || e.Node() == nil {
		return nil, false
	}
	return e.Node(), true
}

func (t idTarget) String() string { return string(t) }

type nodeTarget struct{ n *dom.Node }

func (t nodeTarget) resolve(*registry.Registry) (*dom.Node, bool) {
	return t.n, t.n != nil
}

func (t nodeTarget) String() string {
	if id, ok := t.n.Identity(); ok {
		return id
	}
	return "<" + t.n.Tag() + ">"
}

// ByID targets the node currently registered under id.
func ByID(id string) Target { return idTarget(id) }

// ByNode targets a node directly.
func ByNode(n *dom.Node) Target { return nodeTarget{n: n} }

// Reconciler re-renders tracked nodes through a Patcher without losing
// their identity.
type Reconciler struct {
	reg     *registry.Registry
	patcher Patcher
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewReconciler creates a reconciler. logger may be nil.
func NewReconciler(reg *registry.Registry, p Patcher, logger *slog.Logger, m *metrics.Collector) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{reg: reg, patcher: p, logger: logger, metrics: m}
}

// Update patches the node named by target to match next. The live
// identity is copied onto next first so that the records produced by the
// patch resolve to the same entry. An identifier with no live entry is a
// silent no-op.
func (r *Reconciler) Update(target Target, next *dom.Node, opts any) error {
	if target == nil || next == nil {
		r.metrics.RecordUpdate("error")
		return ErrInvalidTarget.WithDetail("update needs a target and a new representation")
	}
	if nt, ok := target.(nodeTarget); ok && nt.n == nil {
		r.metrics.RecordUpdate("error")
		return ErrInvalidTarget.WithDetail("nil node target")
	}

	old, ok := target.resolve(r.reg)
	if !ok {
		r.metrics.RecordUpdate("skipped")
		r.logger.Debug("update skipped, unknown identifier", "id", target.String())
		return nil
	}

	if id, ok := old.Identity(); ok {
		releaseOrphan(r.reg, next, id, r.logger)
		if err := next.SetIdentity(id); err != nil {
			r.metrics.RecordUpdate("error")
			return ErrInvalidTarget.WithID(id).Wrap(err)
		}
	}

	if err := r.patcher.Apply(old, next, opts); err != nil {
		r.metrics.RecordUpdate("error")
		return ErrPatchFailed.WithID(target.String()).Wrap(err)
	}
	r.metrics.RecordUpdate("applied")
	return nil
}

// releaseOrphan drops the entry of a node that is about to be stamped with
// a different identity, if that entry was never attached. Such an entry
// could never fire a callback again.
func releaseOrphan(reg *registry.Registry, n *dom.Node, keep string, logger *slog.Logger) {
	prev, ok := n.Identity()
	if !ok || prev == keep {
		return
	}
	if e, ok := reg.Lookup(prev); ok && e.Phase() == registry.Registered && e.Node() == n {
		reg.Unregister(prev)
		logger.Debug("released unattached identity", "id", prev, "replaced_by", keep)
	}
}
