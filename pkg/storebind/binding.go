package storebind

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/vango-dev/throwdown/internal/errors"
	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/lifecycle"
	"github.com/vango-dev/throwdown/pkg/registry"
	"github.com/vango-dev/throwdown/pkg/store"
)

// ErrUpdateFailed is logged when projecting the store state for a bound
// node, or re-rendering it after a change, fails.
var ErrUpdateFailed = errors.New("E121")

// Projector computes a bound node's view of the store state.
type Projector func(state any) map[string]any

// ActionMapper transforms actions before they reach the store.
type ActionMapper func(action any) any

// IdentityProjector returns the state itself. The state must be a
// map[string]any; anything else projects to nil.
func IdentityProjector(state any) map[string]any {
	m, _ := state.(map[string]any)
	return m
}

// IdentityMapper returns the action unchanged.
func IdentityMapper(action any) any { return action }

// Binding connects nodes of one runtime to one store.
type Binding struct {
	rt     *lifecycle.Runtime
	st     store.Store
	logger *slog.Logger

	once        sync.Once
	unsubscribe func()

	mu  sync.Mutex
	ids []string

	// key is set for bindings shared through Bind.
	key *bindingKey
}

type bindingKey struct {
	rt *lifecycle.Runtime
	st store.Store
}

var (
	bindingsMu sync.Mutex
	bindings   = make(map[bindingKey]*Binding)
)

// Bind returns the binding between rt and st. Every call with the same
// runtime and store returns the same Binding until it is closed, so the
// store is subscribed to once however many nodes bind to it. Nothing
// subscribes to st until the first node is connected. Stores whose
// dynamic type is not comparable get a fresh Binding per call.
func Bind(rt *lifecycle.Runtime, st store.Store) *Binding {
	if t := reflect.TypeOf(st); t == nil || !t.Comparable() {
		return newBinding(rt, st)
	}
	key := bindingKey{rt: rt, st: st}

	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	if b, ok := bindings[key]; ok {
		return b
	}
	b := newBinding(rt, st)
	b.key = &key
	bindings[key] = b
	return b
}

func newBinding(rt *lifecycle.Runtime, st store.Store) *Binding {
	return &Binding{
		rt:     rt,
		st:     st,
		logger: rt.Logger().With("component", "storebind"),
	}
}

// Store returns the bound store.
func (b *Binding) Store() store.Store { return b.st }

// Len returns the number of live subscriptions.
func (b *Binding) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ids)
}

// Close stops listening to the store. Bound nodes keep their last render.
// A later Bind with the same runtime and store starts a new Binding.
func (b *Binding) Close() {
	if b.key != nil {
		bindingsMu.Lock()
		if bindings[*b.key] == b {
			delete(bindings, *b.key)
		}
		bindingsMu.Unlock()
	}
	b.once.Do(func() {})
	b.mu.Lock()
	unsub := b.unsubscribe
	b.unsubscribe = nil
	b.ids = nil
	b.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Map returns a Mapper with the given projector and action mapper. nil
// selects IdentityProjector and IdentityMapper.
func (b *Binding) Map(project Projector, mapAction ActionMapper) *Mapper {
	if project == nil {
		project = IdentityProjector
	}
	if mapAction == nil {
		mapAction = IdentityMapper
	}
	return &Mapper{b: b, project: project, mapAction: mapAction}
}

func (b *Binding) listen() {
	b.once.Do(func() {
		unsub := b.st.Subscribe(b.notify)
		b.mu.Lock()
		b.unsubscribe = unsub
		b.mu.Unlock()
		b.logger.Debug("subscribed to store")
	})
}

func (b *Binding) add(id string) {
	b.mu.Lock()
	b.ids = append(b.ids, id)
	b.mu.Unlock()
}

func (b *Binding) drop(id string) {
	b.mu.Lock()
	b.ids = slices.DeleteFunc(b.ids, func(x string) bool { return x == id })
	b.mu.Unlock()
}

// notify handles one store notification: every live subscription, in
// subscription order, is re-projected and updated if its view changed.
func (b *Binding) notify() {
	state := b.st.GetState()
	reg := b.rt.Registry()
	m := b.rt.Metrics()

	b.mu.Lock()
	ids := slices.Clone(b.ids)
	b.mu.Unlock()

	for _, id := range ids {
		e, ok := reg.Lookup(id)
		if !ok {
			b.drop(id)
			m.RecordStoreNotification("pruned")
			continue
		}
		sub := e.Subscription()
		if sub == nil {
			continue
		}

		next, err := project(id, sub.Project, state)
		if err != nil {
			b.fail(id, err)
			continue
		}
		if ShallowEqual(next, sub.Last) {
			m.RecordStoreNotification("unchanged")
			continue
		}
		e.SetSubscription(&registry.Subscription{
			Project:  sub.Project,
			Last:     next,
			OnChange: sub.OnChange,
		})
		m.RecordStoreNotification("changed")
		sub.OnChange()
	}
}

// project runs one projector, turning a panic into ErrUpdateFailed so the
// other subscriptions of the notification still run.
func project(id string, fn func(any) map[string]any, state any) (next map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = ErrUpdateFailed.WithID(id).Wrap(fmt.Errorf("projector panicked: %v", r))
		}
	}()
	return fn(state), nil
}

func (b *Binding) fail(id string, err error) {
	b.logger.Warn("bound update failed", "id", id, "code", errors.CodeOf(err), "error", err)
	b.rt.Metrics().RecordStoreNotification("failed")
}

// Mapper connects nodes that share one projector and action mapper.
type Mapper struct {
	b         *Binding
	project   Projector
	mapAction ActionMapper
}

// Bound is the handle a bound render function receives.
type Bound struct {
	id string
	m  *Mapper
}

// ID returns the bound node's identifier.
func (p *Bound) ID() string { return p.id }

// State returns the last projection of the store state, or nil once the
// node is gone.
func (p *Bound) State() map[string]any {
	e, ok := p.m.b.rt.Registry().Lookup(p.id)
	if !ok {
		return nil
	}
	if sub := e.Subscription(); sub != nil {
		return sub.Last
	}
	return nil
}

// Dispatch maps action and dispatches it to the store.
func (p *Bound) Dispatch(action any) any {
	return p.m.b.st.Dispatch(p.m.mapAction(action))
}

// Connect renders a node bound to the store. The node re-renders through
// render whenever its projection changes. opts are passed to
// lifecycle.Runtime.Connect; their construct hooks run after the
// subscription is set up.
func (m *Mapper) Connect(render func(*Bound) *dom.Node, opts ...lifecycle.ConnectOption) (*dom.Node, error) {
	b := m.b
	b.listen()

	p := &Bound{m: m}
	construct := func(id string) {
		p.id = id
		e, ok := b.rt.Registry().Lookup(id)
		if !ok {
			return
		}
		e.SetSubscription(&registry.Subscription{
			Project:  m.project,
			Last:     m.project(b.st.GetState()),
			OnChange: func() { m.rerender(p, render) },
		})
		b.add(id)
	}

	all := make([]lifecycle.ConnectOption, 0, len(opts)+2)
	all = append(all, lifecycle.WithConstruct(construct), lifecycle.WithCleanup(b.drop))
	all = append(all, opts...)
	return b.rt.Connect(func() *dom.Node { return render(p) }, all...)
}

func (m *Mapper) rerender(p *Bound, render func(*Bound) *dom.Node) {
	defer func() {
		if r := recover(); r != nil {
			m.b.fail(p.id, ErrUpdateFailed.WithID(p.id).Wrap(fmt.Errorf("render panicked: %v", r)))
		}
	}()

	next := render(p)
	if !next.IsElement() {
		m.b.fail(p.id, ErrUpdateFailed.WithID(p.id).Wrap(lifecycle.ErrNoElement))
		return
	}
	if err := m.b.rt.Update(lifecycle.ByID(p.id), next, nil); err != nil {
		m.b.fail(p.id, ErrUpdateFailed.WithID(p.id).Wrap(err))
	}
}
