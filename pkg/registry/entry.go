package registry

import (
	"sync/atomic"

	"github.com/vango-dev/throwdown/pkg/dom"
)

// Phase is the lifecycle state of an Entry.
type Phase uint32

const (
	// Registered entries have a node that has not been observed in the
	// tree yet.
	Registered Phase = iota
	// Attached entries have fired added.
	Attached
	// Detached is terminal: removed has fired and the entry is gone from
	// the registry.
	Detached
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case Registered:
		return "registered"
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Callback is a lifecycle callback. It receives the live node backing the
// entry at the time of the transition.
type Callback func(n *dom.Node)

func noop(*dom.Node) {}

// Callbacks is the lifecycle bundle of an Entry.
type Callbacks struct {
	Added   Callback
	Mutated Callback
	Removed Callback
}

// withDefaults replaces nil callbacks with no-ops.
func (c Callbacks) withDefaults() Callbacks {
	if c.Added == nil {
		c.Added = noop
	}
	if c.Mutated == nil {
		c.Mutated = noop
	}
	if c.Removed == nil {
		c.Removed = noop
	}
	return c
}

// State is component-local state. Merges are shallow.
type State map[string]any

// Subscription binds an entry to an external store.
type Subscription struct {
	// Project computes the entry's view of the store state.
	Project func(state any) map[string]any

	// Last is the most recent projection.
	Last map[string]any

	// OnChange re-renders and reconciles the entry's component.
	OnChange func()
}

// Entry is the registry record for one tracked node.
type Entry struct {
	// ID is stable for the tracked lifetime of the node.
	ID string

	Callbacks Callbacks

	node  atomic.Pointer[dom.Node]
	phase atomic.Uint32
	sub   atomic.Pointer[Subscription]
	seq   uint64

	// state is guarded by the owning registry's mutex. nil for entries
	// that are not component-backed.
	state State
}

// NewEntry creates an entry for node. It is not live until registered.
func NewEntry(id string, node *dom.Node, cb Callbacks) *Entry {
	e := &Entry{ID: id, Callbacks: cb.withDefaults()}
	e.node.Store(node)
	return e
}

// Node returns the live node currently carrying this identity.
func (e *Entry) Node() *dom.Node { return e.node.Load() }

// SetNode points the entry at the node that now carries its identity.
func (e *Entry) SetNode(n *dom.Node) { e.node.Store(n) }

// Phase returns the lifecycle phase.
func (e *Entry) Phase() Phase { return Phase(e.phase.Load()) }

// Attach moves a Registered entry to Attached. It reports whether the
// transition happened; it never resurrects a Detached entry.
func (e *Entry) Attach() bool {
	return e.phase.CompareAndSwap(uint32(Registered), uint32(Attached))
}

// Subscription returns the store subscription, or nil.
func (e *Entry) Subscription() *Subscription { return e.sub.Load() }

// SetSubscription attaches or clears the store subscription.
func (e *Entry) SetSubscription(s *Subscription) { e.sub.Store(s) }

func (e *Entry) detach() { e.phase.Store(uint32(Detached)) }
