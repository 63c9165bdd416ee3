package registry

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/vango-dev/throwdown/internal/errors"
)

// DefaultMaxAttempts bounds the retries of Allocate on collision.
const DefaultMaxAttempts = 8

// Registry errors.
var (
	ErrUnknownID   = errors.New("E100")
	ErrDuplicateID = errors.New("E101")
	ErrIDCollision = errors.New("E102")
)

// Registry maps identifiers to entries. It is safe for concurrent use, and
// never invokes entry callbacks itself.
type Registry struct {
	mu          sync.Mutex
	entries     map[string]*Entry
	alloc       Allocator
	maxAttempts int
	seq         uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithAllocator sets the identifier source. Default: CounterAllocator
// with DefaultPrefix.
func WithAllocator(a Allocator) Option {
	return func(r *Registry) {
		r.alloc = a
	}
}

// WithMaxAttempts sets how many candidates Allocate tries before reporting
// ErrIDCollision.
func WithMaxAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:     make(map[string]*Entry),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.alloc == nil {
		r.alloc = NewCounterAllocator(DefaultPrefix)
	}
	return r
}

// Allocate returns an identifier that no live entry holds.
func (r *Registry) Allocate() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for range r.maxAttempts {
		id = r.alloc.Next()
		if _, live := r.entries[id]; !live && id != "" {
			return id, nil
		}
	}
	return "", ErrIDCollision.WithID(id)
}

// Register makes e live. It fails with ErrDuplicateID if an entry with the
// same identifier is live, leaving that entry untouched.
func (r *Registry) Register(e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, live := r.entries[e.ID]; live {
		return ErrDuplicateID.WithID(e.ID)
	}
	r.seq++
	e.seq = r.seq
	e.phase.Store(uint32(Registered))
	e.Callbacks = e.Callbacks.withDefaults()
	r.entries[e.ID] = e
	return nil
}

// Lookup returns the live entry for id.
func (r *Registry) Lookup(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Unregister removes the entry for id and marks it Detached. It returns
// the removed entry, or false if id was not live.
func (r *Registry) Unregister(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	e.detach()
	return e, true
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Entries returns the live entries in registration order.
func (r *Registry) Entries() []*Entry {
	r.mu.Lock()
	list := slices.Collect(maps.Values(r.entries))
	r.mu.Unlock()

	slices.SortFunc(list, func(a, b *Entry) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return list
}

// State returns a copy of the entry's component state. ok is false when
// id is not live.
func (r *Registry) State(id string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return maps.Clone(e.state), true
}

// InitState marks the entry as component-backed with the given initial
// state.
func (r *Registry) InitState(id string, initial State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.state = make(State, len(initial))
	maps.Copy(e.state, initial)
	return true
}

// MergeState shallow-merges partial into the entry's state. ok is false
// when id is not live.
func (r *Registry) MergeState(id string, partial State) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	if e.state == nil {
		e.state = make(State, len(partial))
	}
	maps.Copy(e.state, partial)
	return maps.Clone(e.state), true
}

// EntryInfo is a point-in-time description of an entry.
type EntryInfo struct {
	ID         string `json:"id"`
	Phase      string `json:"phase"`
	Tag        string `json:"tag,omitempty"`
	Component  bool   `json:"component"`
	Subscribed bool   `json:"subscribed"`
}

// Snapshot describes the live entries in registration order.
func (r *Registry) Snapshot() []EntryInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	slices.SortFunc(list, func(a, b *Entry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	infos := make([]EntryInfo, 0, len(list))
	for _, e := range list {
		info := EntryInfo{
			ID:         e.ID,
			Phase:      e.Phase().String(),
			Component:  e.state != nil,
			Subscribed: e.Subscription() != nil,
		}
		if n := e.Node(); n != nil {
			info.Tag = n.Tag()
		}
		infos = append(infos, info)
	}
	return infos
}

// Clear drops every entry, marking each Detached. No callbacks fire.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.entries {
		e.detach()
		delete(r.entries, id)
	}
}
