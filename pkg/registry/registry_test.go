package registry

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vango-dev/throwdown/pkg/dom"
)

func TestAllocateUniqueAmongLive(t *testing.T) {
	for _, kind := range []string{AllocatorCounter, AllocatorULID, AllocatorUUID} {
		t.Run(kind, func(t *testing.T) {
			alloc, ok := NewAllocator(kind, "a")
			if !ok {
				t.Fatalf("NewAllocator(%q) not ok", kind)
			}
			r := New(WithAllocator(alloc))

			seen := make(map[string]bool)
			for i := 0; i < 500; i++ {
				id, err := r.Allocate()
				if err != nil {
					t.Fatalf("Allocate: %v", err)
				}
				if seen[id] {
					t.Fatalf("identifier %q issued twice", id)
				}
				seen[id] = true
				if err := r.Register(NewEntry(id, dom.Div(), Callbacks{})); err != nil {
					t.Fatalf("Register: %v", err)
				}
				// Free every other id so reuse would be possible.
				if i%2 == 0 {
					r.Unregister(id)
				}
			}
		})
	}
}

func TestAllocateSkipsLiveCollisions(t *testing.T) {
	ids := []string{"x", "x", "y"}
	i := 0
	r := New(WithAllocator(AllocatorFunc(func() string {
		id := ids[i%len(ids)]
		i++
		return id
	})))

	first, err := r.Allocate()
	if err != nil || first != "x" {
		t.Fatalf("Allocate = %q,%v, want x,nil", first, err)
	}
	_ = r.Register(NewEntry(first, nil, Callbacks{}))

	second, err := r.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if second != "y" {
		t.Errorf("Allocate = %q, want y (x is live)", second)
	}
}

func TestAllocateReportsCollision(t *testing.T) {
	r := New(
		WithAllocator(AllocatorFunc(func() string { return "same" })),
		WithMaxAttempts(3),
	)
	_ = r.Register(NewEntry("same", nil, Callbacks{}))

	_, err := r.Allocate()
	if !errors.Is(err, ErrIDCollision) {
		t.Fatalf("Allocate error = %v, want ErrIDCollision", err)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New()
	owner := NewEntry("a1", dom.Div(), Callbacks{})
	if err := r.Register(owner); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err := r.Register(NewEntry("a1", dom.Span(), Callbacks{}))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate Register = %v, want ErrDuplicateID", err)
	}
	if !strings.Contains(err.Error(), "a1") {
		t.Errorf("error %q should name the identifier", err)
	}

	got, _ := r.Lookup("a1")
	if got != owner || got.Node().Tag() != "div" {
		t.Error("duplicate registration must not overwrite the live entry")
	}
}

func TestLookupUnknown(t *testing.T) {
	r := New()
	if e, ok := r.Lookup("missing"); ok || e != nil {
		t.Errorf("Lookup(missing) = %v,%v, want nil,false", e, ok)
	}
	if _, ok := r.Unregister("missing"); ok {
		t.Error("Unregister(missing) should report false")
	}
}

func TestPhaseTransitions(t *testing.T) {
	r := New()
	e := NewEntry("a1", dom.Div(), Callbacks{})
	_ = r.Register(e)

	if e.Phase() != Registered {
		t.Fatalf("Phase = %v, want registered", e.Phase())
	}
	if !e.Attach() {
		t.Fatal("first Attach should transition")
	}
	if e.Attach() {
		t.Error("second Attach should not transition")
	}

	removed, ok := r.Unregister("a1")
	if !ok || removed != e {
		t.Fatal("Unregister should return the entry")
	}
	if e.Phase() != Detached {
		t.Errorf("Phase = %v, want detached", e.Phase())
	}
	if e.Attach() {
		t.Error("a detached entry must never re-attach")
	}
	if _, ok := r.Lookup("a1"); ok {
		t.Error("entry should be absent after Unregister")
	}
}

func TestDefaultCallbacksAreNoops(t *testing.T) {
	e := NewEntry("a1", dom.Div(), Callbacks{})
	// Must not panic.
	e.Callbacks.Added(e.Node())
	e.Callbacks.Mutated(e.Node())
	e.Callbacks.Removed(e.Node())
}

func TestStateMerge(t *testing.T) {
	r := New()
	_ = r.Register(NewEntry("a1", dom.Div(), Callbacks{}))

	if !r.InitState("a1", State{"x": 1, "y": 2}) {
		t.Fatal("InitState failed")
	}
	st, ok := r.MergeState("a1", State{"y": 3, "z": 4})
	if !ok {
		t.Fatal("MergeState failed")
	}
	if st["x"] != 1 || st["y"] != 3 || st["z"] != 4 {
		t.Errorf("merged state = %v", st)
	}

	st["x"] = 100
	again, _ := r.State("a1")
	if again["x"] != 1 {
		t.Error("State must return a copy")
	}

	if _, ok := r.MergeState("missing", State{"x": 1}); ok {
		t.Error("MergeState on unknown id should report false")
	}
}

func TestSnapshotOrderAndClear(t *testing.T) {
	r := New()
	for i := 1; i <= 3; i++ {
		_ = r.Register(NewEntry(fmt.Sprintf("a%d", i), dom.Li(), Callbacks{}))
	}
	_ = r.InitState("a2", nil)
	e3, _ := r.Lookup("a3")
	e3.SetSubscription(&Subscription{})

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot len = %d, want 3", len(snap))
	}
	for i, info := range snap {
		if want := fmt.Sprintf("a%d", i+1); info.ID != want {
			t.Errorf("snap[%d].ID = %s, want %s", i, info.ID, want)
		}
		if info.Tag != "li" || info.Phase != "registered" {
			t.Errorf("snap[%d] = %+v", i, info)
		}
	}
	if !snap[1].Component || snap[0].Component {
		t.Error("Component flag wrong")
	}
	if !snap[2].Subscribed {
		t.Error("Subscribed flag wrong")
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len after Clear = %d", r.Len())
	}
	if e3.Phase() != Detached {
		t.Error("Clear should detach entries")
	}
}
