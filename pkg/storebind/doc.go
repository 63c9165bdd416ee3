// Package storebind binds connected nodes to a store.
//
// Bind returns one shared Binding per runtime and store, and that Binding
// subscribes to the store once, on the first bound node. On every
// store notification each bound node projects the new state and, if the
// projection differs from the last one by shallow equality, re-renders and
// is reconciled in place. A panicking projector or render is logged and
// skips only its own node. Bindings drop their subscriptions when the bound
// node is removed.
//
//	b := storebind.Bind(rt, st)
//	counter := b.Map(func(s any) map[string]any {
//	    return map[string]any{"count": s.(map[string]any)["count"]}
//	}, nil)
//
//	node, err := counter.Connect(func(p *storebind.Bound) *dom.Node {
//	    return dom.Span(fmt.Sprint(p.State()["count"]))
//	})
//
// Store notifications are handled on the dispatching goroutine. Dispatch
// on the runtime's loop (see lifecycle.Runtime.Post).
package storebind
