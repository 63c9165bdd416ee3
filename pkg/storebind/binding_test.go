package storebind

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/lifecycle"
	"github.com/vango-dev/throwdown/pkg/store"
)

// set is an action replacing keys of a map state.
type set map[string]any

func mapReducer(state, action any) any {
	s := state.(map[string]any)
	a, ok := action.(set)
	if !ok {
		return s
	}
	next := maps.Clone(s)
	maps.Copy(next, a)
	return next
}

func newRuntime(t *testing.T) (*lifecycle.Runtime, *dom.Node) {
	t.Helper()
	root := dom.Div()
	rt := lifecycle.New(root, lifecycle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(rt.Close)
	return rt, root
}

func TestUpdateOnlyOnProjectionChange(t *testing.T) {
	rt, root := newRuntime(t)
	st := store.New(mapReducer, map[string]any{"a": 1, "b": 2})
	b := Bind(rt, st)

	renders := 0
	var handle *Bound
	node, err := b.Map(nil, nil).Connect(func(p *Bound) *dom.Node {
		renders++
		handle = p
		return dom.Div(dom.Data("b", fmt.Sprint(p.State()["b"])))
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_ = root.AppendChild(node)
	rt.Flush(context.Background())
	if renders != 1 {
		t.Fatalf("renders = %d after connect, want 1", renders)
	}

	// New map, same values.
	st.Dispatch(set{"a": 1, "b": 2})
	if renders != 1 {
		t.Errorf("renders = %d after an equal projection, want 1", renders)
	}

	st.Dispatch(set{"b": 3})
	if renders != 2 {
		t.Errorf("renders = %d after a changed projection, want 2", renders)
	}
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 3}, handle.State()); diff != "" {
		t.Errorf("stored projection mismatch (-want +got):\n%s", diff)
	}
	if v, _ := node.Attr("data-b"); v != "3" {
		t.Errorf("data-b = %q, want 3", v)
	}
}

func TestOnlyAffectedComponentUpdates(t *testing.T) {
	rt, root := newRuntime(t)
	st := store.New(mapReducer, map[string]any{"x": 0, "y": 0})
	b := Bind(rt, st)

	pick := func(key string) Projector {
		return func(s any) map[string]any {
			return map[string]any{key: s.(map[string]any)[key]}
		}
	}

	var updates []string
	connect := func(key string) *dom.Node {
		first := true
		node, err := b.Map(pick(key), nil).Connect(func(p *Bound) *dom.Node {
			if !first {
				updates = append(updates, key)
			}
			first = false
			return dom.Span(dom.Data(key, fmt.Sprint(p.State()[key])))
		})
		if err != nil {
			t.Fatal(err)
		}
		return node
	}

	nx, ny := connect("x"), connect("y")
	_ = root.AppendChild(nx)
	_ = root.AppendChild(ny)
	rt.Flush(context.Background())

	st.Dispatch(set{"y": 7})

	if diff := cmp.Diff([]string{"y"}, updates); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
	if v, _ := ny.Attr("data-y"); v != "7" {
		t.Errorf("data-y = %q, want 7", v)
	}
	if v, _ := nx.Attr("data-x"); v != "0" {
		t.Errorf("data-x = %q, want 0", v)
	}
}

func TestSubscribesOnceLazily(t *testing.T) {
	rt, _ := newRuntime(t)
	st := store.New(mapReducer, map[string]any{})
	b := Bind(rt, st)

	if st.Listeners() != 0 {
		t.Fatal("Bind should not subscribe before a node is connected")
	}
	m := b.Map(nil, nil)
	for range 3 {
		if _, err := m.Connect(func(*Bound) *dom.Node { return dom.Div() }); err != nil {
			t.Fatal(err)
		}
	}
	if st.Listeners() != 1 {
		t.Errorf("store listeners = %d, want 1", st.Listeners())
	}
	if b.Len() != 3 {
		t.Errorf("binding subscriptions = %d, want 3", b.Len())
	}

	b.Close()
	if st.Listeners() != 0 {
		t.Error("Close should unsubscribe from the store")
	}
}

func TestRemovedNodeUnsubscribes(t *testing.T) {
	rt, root := newRuntime(t)
	ctx := context.Background()
	st := store.New(mapReducer, map[string]any{"v": 0})
	b := Bind(rt, st)

	removed := false
	renders := 0
	node, _ := b.Map(nil, nil).Connect(
		func(p *Bound) *dom.Node {
			renders++
			return dom.Div(dom.Data("v", fmt.Sprint(p.State()["v"])))
		},
		lifecycle.WithRemoved(func(*dom.Node) { removed = true }),
	)
	_ = root.AppendChild(node)
	rt.Flush(ctx)
	_ = root.RemoveChild(node)
	rt.Flush(ctx)

	if !removed {
		t.Error("user removed callback did not run")
	}
	if b.Len() != 0 {
		t.Errorf("binding subscriptions = %d, want 0", b.Len())
	}

	st.Dispatch(set{"v": 1})
	if renders != 1 {
		t.Errorf("removed node re-rendered: renders = %d", renders)
	}
}

func TestDispatchThroughMapper(t *testing.T) {
	rt, _ := newRuntime(t)

	var got []any
	st := store.New(func(state, action any) any {
		got = append(got, action)
		return state
	}, map[string]any{})
	b := Bind(rt, st)

	var handle *Bound
	_, err := b.Map(nil, func(a any) any { return "mapped:" + a.(string) }).
		Connect(func(p *Bound) *dom.Node {
			handle = p
			return dom.Div()
		})
	if err != nil {
		t.Fatal(err)
	}

	if ret := handle.Dispatch("click"); ret != "mapped:click" {
		t.Errorf("Dispatch returned %v", ret)
	}
	if diff := cmp.Diff([]any{"mapped:click"}, got); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if handle.ID() == "" {
		t.Error("bound handle has no identifier")
	}
}

func TestConstructHooksSeeSubscription(t *testing.T) {
	rt, _ := newRuntime(t)
	st := store.New(mapReducer, map[string]any{"k": "v"})
	b := Bind(rt, st)

	var seen map[string]any
	var handle *Bound
	_, err := b.Map(nil, nil).Connect(
		func(p *Bound) *dom.Node {
			handle = p
			return dom.Div()
		},
		lifecycle.WithConstruct(func(id string) {
			e, _ := rt.Registry().Lookup(id)
			seen = e.Subscription().Last
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if seen["k"] != "v" {
		t.Errorf("construct hook saw %v", seen)
	}
	if handle.State()["k"] != "v" {
		t.Errorf("State = %v", handle.State())
	}
}

func TestPanickingProjectorSkipsOnlyItsNode(t *testing.T) {
	rt, root := newRuntime(t)
	st := store.New(mapReducer, map[string]any{"x": 0, "y": 0})
	b := Bind(rt, st)

	broken := func(s any) map[string]any {
		m := s.(map[string]any)
		if m["y"] == 2 {
			panic("boom")
		}
		return map[string]any{"x": m["x"]}
	}
	pickY := func(s any) map[string]any {
		return map[string]any{"y": s.(map[string]any)["y"]}
	}

	var updates []string
	connect := func(name string, p Projector) *dom.Node {
		first := true
		node, err := b.Map(p, nil).Connect(func(*Bound) *dom.Node {
			if !first {
				updates = append(updates, name)
			}
			first = false
			return dom.Span()
		})
		if err != nil {
			t.Fatal(err)
		}
		return node
	}
	nx, ny := connect("x", broken), connect("y", pickY)
	_ = root.AppendChild(nx)
	_ = root.AppendChild(ny)
	rt.Flush(context.Background())

	st.Dispatch(set{"y": 2})

	if diff := cmp.Diff([]string{"y"}, updates); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
	if b.Len() != 2 {
		t.Errorf("binding subscriptions = %d, want 2", b.Len())
	}

	st.Dispatch(set{"x": 5, "y": 3})
	if diff := cmp.Diff([]string{"y", "x", "y"}, updates); diff != "" {
		t.Errorf("updates after recovery mismatch (-want +got):\n%s", diff)
	}
}

func TestBindSharesOneBindingPerStore(t *testing.T) {
	rt, _ := newRuntime(t)
	st := store.New(mapReducer, map[string]any{})

	first, second := Bind(rt, st), Bind(rt, st)
	if first != second {
		t.Fatal("Bind with the same runtime and store returned different bindings")
	}
	for _, b := range []*Binding{first, second} {
		if _, err := b.Map(nil, nil).Connect(func(*Bound) *dom.Node { return dom.Div() }); err != nil {
			t.Fatal(err)
		}
	}
	if st.Listeners() != 1 {
		t.Errorf("store listeners = %d, want 1", st.Listeners())
	}

	other, _ := newRuntime(t)
	if Bind(other, st) == first {
		t.Error("a different runtime shares the binding")
	}

	first.Close()
	if st.Listeners() != 0 {
		t.Errorf("store listeners = %d after Close, want 0", st.Listeners())
	}
	if Bind(rt, st) == first {
		t.Error("Bind returned a closed binding")
	}
}
