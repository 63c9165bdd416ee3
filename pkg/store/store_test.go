package store

import (
	"testing"
)

func counterReducer(state, action any) any {
	n := state.(int)
	switch action {
	case "inc":
		return n + 1
	case "dec":
		return n - 1
	}
	return n
}

func TestDispatchUpdatesState(t *testing.T) {
	st := New(counterReducer, 0)

	if got := st.Dispatch("inc"); got != "inc" {
		t.Errorf("Dispatch returned %v, want the action", got)
	}
	st.Dispatch("inc")
	st.Dispatch("dec")
	st.Dispatch("unknown")

	if got := st.GetState(); got != 1 {
		t.Errorf("state = %v, want 1", got)
	}
}

func TestSubscribeOrderAndUnsubscribe(t *testing.T) {
	st := New(counterReducer, 0)

	var calls []string
	unA := st.Subscribe(func() { calls = append(calls, "a") })
	st.Subscribe(func() { calls = append(calls, "b") })

	st.Dispatch("inc")
	unA()
	unA()
	st.Dispatch("inc")

	want := []string{"a", "b", "b"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
	if st.Listeners() != 1 {
		t.Errorf("listeners = %d, want 1", st.Listeners())
	}
}

func TestSubscriberSeesNewState(t *testing.T) {
	st := New(counterReducer, 10)

	var seen any
	st.Subscribe(func() { seen = st.GetState() })
	st.Dispatch("dec")

	if seen != 9 {
		t.Errorf("subscriber saw %v, want 9", seen)
	}
}

func TestDispatchFromSubscriber(t *testing.T) {
	st := New(counterReducer, 0)

	st.Subscribe(func() {
		if st.GetState().(int) < 3 {
			st.Dispatch("inc")
		}
	})
	st.Dispatch("inc")

	if got := st.GetState(); got != 3 {
		t.Errorf("state = %v, want 3", got)
	}
}

func TestNilReducerKeepsState(t *testing.T) {
	st := New(nil, "fixed")
	st.Dispatch("anything")
	if st.GetState() != "fixed" {
		t.Errorf("state = %v", st.GetState())
	}
}
