// Package store defines the observable state container that components can
// be bound to, and a reducer-based implementation of it.
//
// Usage:
//
//	st := store.New(func(state, action any) any {
//	    s := state.(map[string]any)
//	    if action == "inc" {
//	        return map[string]any{"count": s["count"].(int) + 1}
//	    }
//	    return s
//	}, map[string]any{"count": 0})
//
//	unsubscribe := st.Subscribe(func() { fmt.Println(st.GetState()) })
//	st.Dispatch("inc")
//	unsubscribe()
package store

import (
	"slices"
	"sync"
)

// Store is an observable state container.
type Store interface {
	// Subscribe registers fn to run after every dispatch and returns a
	// function that removes it.
	Subscribe(fn func()) (unsubscribe func())

	// GetState returns the current state.
	GetState() any

	// Dispatch applies action and notifies subscribers. It returns the
	// dispatched action.
	Dispatch(action any) any
}

// Reducer computes the next state from the current state and an action.
type Reducer func(state, action any) any

type listener struct {
	id uint64
	fn func()
}

// ReducerStore is a Store driven by a Reducer. It is safe for concurrent
// use; subscribers run on the dispatching goroutine, outside the lock.
type ReducerStore struct {
	mu        sync.Mutex
	reducer   Reducer
	state     any
	listeners []listener
	nextID    uint64
}

var _ Store = (*ReducerStore)(nil)

// New creates a ReducerStore with the given initial state.
func New(reducer Reducer, initial any) *ReducerStore {
	return &ReducerStore{reducer: reducer, state: initial}
}

// Subscribe registers fn. Subscribers run in subscription order.
func (s *ReducerStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.listeners = slices.DeleteFunc(s.listeners, func(l listener) bool {
				return l.id == id
			})
			s.mu.Unlock()
		})
	}
}

// GetState returns the current state.
func (s *ReducerStore) GetState() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch runs the reducer and notifies every subscriber registered at
// the time of the dispatch.
func (s *ReducerStore) Dispatch(action any) any {
	s.mu.Lock()
	if s.reducer != nil {
		s.state = s.reducer(s.state, action)
	}
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
	return action
}

// Listeners returns the number of subscribers.
func (s *ReducerStore) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
