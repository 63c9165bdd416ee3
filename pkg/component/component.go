// Package component provides stateful components on top of the lifecycle
// runtime: per-identity state, lifecycle hooks and in-place re-rendering.
package component

import (
	"fmt"

	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/lifecycle"
	"github.com/vango-dev/throwdown/pkg/registry"
)

// ChildrenProp is the prop holding the children passed to New.
const ChildrenProp = "children"

// Props are the inputs a component is created with.
type Props map[string]any

// Children returns the children passed to New.
func (p Props) Children() []*dom.Node {
	c, _ := p[ChildrenProp].([]*dom.Node)
	return c
}

// Component is anything that can render itself to an element.
type Component interface {
	Render(self *Instance) *dom.Node
}

// Func wraps a render function as a Component.
type Func func(self *Instance) *dom.Node

// Render calls the wrapped function.
func (f Func) Render(self *Instance) *dom.Node { return f(self) }

// Mounter is implemented by components that want to know when their node
// first enters the tree.
type Mounter interface {
	OnMount(self *Instance)
}

// Updater is implemented by components that want to know about every
// later change of their node.
type Updater interface {
	OnUpdate(self *Instance)
}

// Unmounter is implemented by components that want to know when their
// node leaves the tree.
type Unmounter interface {
	OnUnmount(self *Instance)
}

// UpdateDecider lets a component veto re-rendering after SetState.
// Components without it always re-render.
type UpdateDecider interface {
	ShouldUpdate(self *Instance) bool
}

// Instance is one connected component.
type Instance struct {
	id    string
	props Props
	comp  Component
	rt    *lifecycle.Runtime
}

// New renders c, connects its node to rt and wires the component hooks to
// the node's lifecycle callbacks. The component starts with empty state.
func New(rt *lifecycle.Runtime, c Component, props Props, children ...*dom.Node) (*Instance, *dom.Node, error) {
	p := make(Props, len(props)+1)
	for k, v := range props {
		p[k] = v
	}
	p[ChildrenProp] = children

	in := &Instance{props: p, comp: c, rt: rt}
	node, err := rt.Connect(
		func() *dom.Node { return c.Render(in) },
		lifecycle.WithConstruct(func(id string) { in.id = id }),
		lifecycle.WithState(registry.State{}),
		lifecycle.WithCallbacks(in.callbacks()),
	)
	if err != nil {
		return nil, nil, err
	}
	return in, node, nil
}

func (in *Instance) callbacks() registry.Callbacks {
	var cb registry.Callbacks
	if m, ok := in.comp.(Mounter); ok {
		cb.Added = func(*dom.Node) { m.OnMount(in) }
	}
	if u, ok := in.comp.(Updater); ok {
		cb.Mutated = func(*dom.Node) { u.OnUpdate(in) }
	}
	if u, ok := in.comp.(Unmounter); ok {
		cb.Removed = func(*dom.Node) { u.OnUnmount(in) }
	}
	return cb
}

// ID returns the component's identifier.
func (in *Instance) ID() string { return in.id }

// Props returns the props the component was created with.
func (in *Instance) Props() Props { return in.props }

// Node returns the live node, or nil once the component is gone.
func (in *Instance) Node() *dom.Node {
	e, ok := in.rt.Registry().Lookup(in.id)
	if !ok {
		return nil
	}
	return e.Node()
}

// GetState returns a copy of the component state, or nil once the
// component is gone.
func (in *Instance) GetState() registry.State {
	st, _ := in.rt.Registry().State(in.id)
	return st
}

// SetState shallow-merges partial into the component state and, if the
// node is in the tree and the component agrees, re-renders it in place.
// On a removed component it does nothing. Call it on the runtime's loop.
func (in *Instance) SetState(partial registry.State) error {
	reg := in.rt.Registry()
	e, ok := reg.Lookup(in.id)
	if !ok {
		return nil
	}
	if _, ok := reg.MergeState(in.id, partial); !ok {
		return nil
	}
	if e.Phase() != registry.Attached || !in.shouldUpdate() {
		return nil
	}

	next, err := in.render()
	if err != nil {
		in.rt.Logger().Warn("component render failed", "id", in.id, "error", err)
		return err
	}
	return in.rt.Update(lifecycle.ByID(in.id), next, nil)
}

func (in *Instance) shouldUpdate() bool {
	if d, ok := in.comp.(UpdateDecider); ok {
		return d.ShouldUpdate(in)
	}
	return true
}

func (in *Instance) render() (node *dom.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node = nil
			err = lifecycle.ErrRenderPanic.WithID(in.id).Wrap(fmt.Errorf("%v", r))
		}
	}()
	node = in.comp.Render(in)
	if !node.IsElement() {
		return nil, lifecycle.ErrNoElement.WithID(in.id)
	}
	return node, nil
}
