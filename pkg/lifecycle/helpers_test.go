package lifecycle

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/registry"
)

// recorder collects fired callbacks as "kind:id" strings.
type recorder struct {
	calls []string
}

func (r *recorder) cb(kind, id string) registry.Callback {
	return func(*dom.Node) {
		r.calls = append(r.calls, kind+":"+id)
	}
}

func (r *recorder) callbacks(id string) registry.Callbacks {
	return registry.Callbacks{
		Added:   r.cb("added", id),
		Mutated: r.cb("mutated", id),
		Removed: r.cb("removed", id),
	}
}

func (r *recorder) options(id string) []ConnectOption {
	return []ConnectOption{WithCallbacks(r.callbacks(id))}
}

func (r *recorder) expect(t *testing.T, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	got := r.calls
	if got == nil {
		got = []string{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("callbacks mismatch (-want +got):\n%s", diff)
	}
	r.calls = nil
}

// errorCollector is an ErrorSink that keeps what it receives.
type errorCollector struct {
	errs []error
}

func (c *errorCollector) sink(err error) { c.errs = append(c.errs, err) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// track registers a pre-built node under id with recorder callbacks.
func track(t *testing.T, reg *registry.Registry, rec *recorder, id string, n *dom.Node) *registry.Entry {
	t.Helper()
	if err := n.SetIdentity(id); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	e := registry.NewEntry(id, n, rec.callbacks(id))
	if err := reg.Register(e); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return e
}

// byIdentity returns callbacks that record the identity the node carries
// when the callback fires. Used where the identifier is allocated later.
func (r *recorder) byIdentity() []ConnectOption {
	named := func(kind string) registry.Callback {
		return func(n *dom.Node) {
			id, _ := n.Identity()
			r.calls = append(r.calls, kind+":"+id)
		}
	}
	return []ConnectOption{
		WithAdded(named("added")),
		WithMutated(named("mutated")),
		WithRemoved(named("removed")),
	}
}

func newTestRuntime(t *testing.T, errs *errorCollector, opts ...Option) (*Runtime, *dom.Node) {
	t.Helper()
	root := dom.Div(dom.ID("root"))
	base := []Option{WithLogger(quietLogger())}
	if errs != nil {
		base = append(base, WithRuntimeErrorSink(errs.sink))
	}
	rt := New(root, append(base, opts...)...)
	t.Cleanup(rt.Close)
	return rt, root
}

func identity(t *testing.T, n *dom.Node) string {
	t.Helper()
	id, ok := n.Identity()
	if !ok {
		t.Fatal("node has no identity")
	}
	return id
}
