// Package lifecycle keeps the identity registry in step with a live tree.
//
// # Runtime
//
// A Runtime ties together the registry, an observer at the tree root, the
// mutation Dispatcher and the Reconciler:
//
//	rt := lifecycle.New(root, lifecycle.WithLogger(logger))
//	node, err := rt.Connect(render,
//	    lifecycle.WithAdded(func(n *dom.Node) { ... }),
//	    lifecycle.WithRemoved(func(n *dom.Node) { ... }),
//	)
//	root.AppendChild(node)
//	go rt.Run(ctx)
//
// Connect stamps a fresh identifier on the rendered node and registers its
// callbacks, but never fires added itself. Callbacks fire when the
// Dispatcher sees the node enter or leave the tree in a mutation batch.
//
// # Threading
//
// The runtime is a single logical thread. Run is the event loop: it
// processes each mutation batch to completion before taking the next, and
// runs functions handed to Post in between. Callbacks may mutate the tree
// or call Update; the resulting records are seen in a later batch, never in
// the one that triggered them. Flush drains pending batches synchronously
// for callers that drive the loop themselves.
//
// # Updates
//
// Update re-renders a tracked node in place. It copies the live identity
// onto the new representation and hands both to the Patcher, so the
// identity survives the patch and later batches resolve to the same entry.
// Update performs no registry bookkeeping of its own.
package lifecycle
