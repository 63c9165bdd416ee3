package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vango-dev/throwdown/pkg/dom"
)

func TestFlushProcessesCallbackMutations(t *testing.T) {
	rt, root := newTestRuntime(t, nil)
	rec := &recorder{}
	ctx := context.Background()

	inner := -1
	var node *dom.Node
	opts := append(rec.byIdentity(), WithAdded(func(n *dom.Node) {
		rec.calls = append(rec.calls, "added")
		inner = rt.Flush(ctx)
		_ = n.SetAttr("class", "ready")
	}))
	node, _ = rt.Connect(func() *dom.Node { return dom.Div() }, opts...)
	id := identity(t, node)

	_ = root.AppendChild(node)
	if n := rt.Flush(ctx); n != 2 {
		t.Errorf("Flush = %d batches, want 2", n)
	}
	rec.expect(t, "added", "mutated:"+id)
	if inner != 0 {
		t.Errorf("nested Flush = %d, want 0", inner)
	}
}

func TestRunProcessesPostedWork(t *testing.T) {
	root := dom.Div()
	rt := New(root, WithLogger(quietLogger()))

	added := make(chan string, 1)
	node, err := rt.Connect(func() *dom.Node { return dom.Li() },
		WithAdded(func(n *dom.Node) {
			id, _ := n.Identity()
			added <- id
		}))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	if err := rt.Post(func() { _ = root.AppendChild(node) }); err != nil {
		t.Fatalf("Post: %v", err)
	}

	select {
	case id := <-added:
		if want := identity(t, node); id != want {
			t.Errorf("added %q, want %q", id, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("added callback did not fire")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunStopsOnClose(t *testing.T) {
	rt := New(dom.Div(), WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	if err := rt.Post(rt.Close); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after Close")
	}

	if err := rt.Post(func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Post after Close = %v, want ErrClosed", err)
	}
	rt.Close()
}

func TestCloseClearsWithoutCallbacks(t *testing.T) {
	root := dom.Div()
	rt := New(root, WithLogger(quietLogger()))
	rec := &recorder{}

	node, _ := rt.Connect(func() *dom.Node { return dom.Div() }, rec.byIdentity()...)
	_ = root.AppendChild(node)
	rt.Flush(context.Background())
	rec.calls = nil

	rt.Close()
	rt.Close()
	if rt.Registry().Len() != 0 {
		t.Error("Close should clear the registry")
	}

	_ = root.RemoveChild(node)
	if n := rt.Flush(context.Background()); n != 0 {
		t.Errorf("Flush after Close = %d, want 0", n)
	}
	rec.expect(t)
}

func TestRunRecoversTaskPanic(t *testing.T) {
	rt := New(dom.Div(), WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	ran := make(chan struct{})
	_ = rt.Post(func() { panic("task failed") })
	_ = rt.Post(func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped after a panicking task")
	}
	cancel()
	<-done
}
