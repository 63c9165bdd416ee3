package dom

import (
	"slices"
	"sync"
)

// RecordType identifies the kind of mutation a record describes.
type RecordType uint8

const (
	RecordChildList     RecordType = iota // Children added or removed
	RecordAttributes                      // Attribute set or removed
	RecordCharacterData                   // Text content changed
)

// String returns the string representation of the RecordType.
func (t RecordType) String() string {
	switch t {
	case RecordChildList:
		return "childList"
	case RecordAttributes:
		return "attributes"
	case RecordCharacterData:
		return "characterData"
	default:
		return "unknown"
	}
}

// MutationRecord describes one change to the tree.
type MutationRecord struct {
	Type RecordType

	// Target is the node that changed: the parent for child list changes,
	// the element for attribute changes, the text node for data changes.
	Target *Node

	// AttributeName is the changed attribute, "" for other record types.
	AttributeName string

	// OldValue is the previous attribute value or text content. It is only
	// meaningful when HasOldValue is true.
	OldValue    string
	HasOldValue bool

	// Added and Removed are the roots of inserted and detached subtrees.
	Added   []*Node
	Removed []*Node
}

// ObserveOptions selects which mutations an Observer records.
type ObserveOptions struct {
	ChildList         bool
	Attributes        bool
	AttributeOldValue bool
	CharacterData     bool

	// Subtree extends observation from the root to all its descendants.
	Subtree bool

	// AttributeFilter limits attribute records to the named attributes.
	// Empty means all attributes.
	AttributeFilter []string
}

// ObserveAll observes every kind of mutation in the whole subtree, with
// previous attribute values captured.
var ObserveAll = ObserveOptions{
	ChildList:         true,
	Attributes:        true,
	AttributeOldValue: true,
	CharacterData:     true,
	Subtree:           true,
}

// Observer queues mutation records for a subtree and hands them out in
// batches.
type Observer struct {
	root *Node
	opts ObserveOptions

	mu        sync.Mutex
	pending   []MutationRecord
	notify    chan struct{}
	connected bool
}

// Observe registers a new Observer at root.
func Observe(root *Node, opts ObserveOptions) *Observer {
	o := &Observer{
		root:      root,
		opts:      opts,
		notify:    make(chan struct{}, 1),
		connected: true,
	}
	root.observers = append(root.observers, o)
	return o
}

// Root returns the node the observer is registered at.
func (o *Observer) Root() *Node { return o.root }

// Notify returns a channel that receives a value whenever records become
// pending. Several mutations may share a single notification.
func (o *Observer) Notify() <-chan struct{} { return o.notify }

// Take returns the pending records in mutation order and clears the queue.
func (o *Observer) Take() []MutationRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := o.pending
	o.pending = nil
	return batch
}

// Pending returns the number of queued records.
func (o *Observer) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Disconnect stops observation and drops any queued records.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	o.connected = false
	o.pending = nil
	o.mu.Unlock()

	o.root.observers = slices.DeleteFunc(o.root.observers, func(x *Observer) bool {
		return x == o
	})
}

// wants reports whether the observer records rec, given whether the
// mutation happened on the root itself.
func (o *Observer) wants(rec *MutationRecord, atRoot bool) bool {
	if !atRoot && !o.opts.Subtree {
		return false
	}
	switch rec.Type {
	case RecordChildList:
		return o.opts.ChildList
	case RecordCharacterData:
		return o.opts.CharacterData
	case RecordAttributes:
		if !o.opts.Attributes {
			return false
		}
		return len(o.opts.AttributeFilter) == 0 || slices.Contains(o.opts.AttributeFilter, rec.AttributeName)
	}
	return false
}

func (o *Observer) enqueue(rec MutationRecord) {
	if rec.Type == RecordAttributes && !o.opts.AttributeOldValue {
		rec.OldValue, rec.HasOldValue = "", false
	}

	o.mu.Lock()
	if !o.connected {
		o.mu.Unlock()
		return
	}
	o.pending = append(o.pending, rec)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
		// Already signalled
	}
}

// record delivers rec to every observer registered at the target or one of
// its ancestors.
func (n *Node) record(rec MutationRecord) {
	for a := rec.Target; a != nil; a = a.parent {
		for _, o := range a.observers {
			if o.wants(&rec, a == rec.Target) {
				o.enqueue(rec)
			}
		}
	}
}
