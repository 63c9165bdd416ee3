// Package dom provides the live, mutable node tree that throwdown tracks.
//
// A Node is either an element (tag, ordered attributes, children) or a text
// node. Nodes are mutated in place through methods such as AppendChild,
// InsertBefore, RemoveChild, ReplaceChild, SetAttr and SetText. Every
// mutation made inside an observed subtree is recorded as a MutationRecord.
//
// # Building Trees
//
// Elements are created with a variadic factory, in the same style as a
// virtual DOM builder:
//
//	list := dom.Element("ul", dom.Class("items"),
//	    dom.Element("li", dom.Key("a"), "first"),
//	    dom.Element("li", dom.Key("b"), "second"),
//	)
//
// # Identity
//
// The reserved attribute IdentityAttr carries a node's registry identifier.
// It is only read and written through HasIdentity, Identity and SetIdentity,
// so callers never inspect the attribute bag directly.
//
// # Observation
//
// Observe registers an Observer at a root node. Records are queued as the
// tree changes and are delivered in batches: a receive on Notify signals
// that records are pending, and Take returns them in the order the
// mutations happened.
//
//	obs := dom.Observe(root, dom.ObserveAll)
//	for range obs.Notify() {
//	    batch := obs.Take()
//	    ...
//	}
package dom
