package lifecycle

import (
	"fmt"

	"github.com/vango-dev/throwdown/internal/errors"
	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/registry"
)

// Render errors.
var (
	ErrNoElement   = errors.New("E130")
	ErrRenderPanic = errors.New("E131")
)

// RenderFunc produces a fresh node.
type RenderFunc func() *dom.Node

type connectConfig struct {
	callbacks registry.Callbacks
	construct func(id string)
	cleanup   func(id string)
	state     registry.State
	hasState  bool
}

// ConnectOption configures Connect.
type ConnectOption func(*connectConfig)

// WithAdded sets the callback fired when the node is first observed in
// the tree.
func WithAdded(cb registry.Callback) ConnectOption {
	return func(c *connectConfig) {
		c.callbacks.Added = cb
	}
}

// WithMutated sets the callback fired on every later change of the node.
func WithMutated(cb registry.Callback) ConnectOption {
	return func(c *connectConfig) {
		c.callbacks.Mutated = cb
	}
}

// WithRemoved sets the callback fired when the node leaves the tree or
// loses its identity.
func WithRemoved(cb registry.Callback) ConnectOption {
	return func(c *connectConfig) {
		c.callbacks.Removed = cb
	}
}

// WithCallbacks sets all three callbacks at once. Nil members stay no-ops.
func WithCallbacks(cb registry.Callbacks) ConnectOption {
	return func(c *connectConfig) {
		c.callbacks = cb
	}
}

// WithConstruct sets a hook called with the allocated identifier before
// render runs. Wrappers use it to set up per-identity state the render
// function reads.
func WithConstruct(fn func(id string)) ConnectOption {
	return func(c *connectConfig) {
		if c.construct == nil {
			c.construct = fn
			return
		}
		prev := c.construct
		c.construct = func(id string) {
			prev(id)
			fn(id)
		}
	}
}

// WithCleanup sets a hook called with the identifier after the removed
// callback, even if that callback panics. Several hooks run in the order
// given.
func WithCleanup(fn func(id string)) ConnectOption {
	return func(c *connectConfig) {
		if c.cleanup == nil {
			c.cleanup = fn
			return
		}
		prev := c.cleanup
		c.cleanup = func(id string) {
			prev(id)
			fn(id)
		}
	}
}

// WithState marks the entry as component-backed with initial state.
func WithState(initial registry.State) ConnectOption {
	return func(c *connectConfig) {
		c.state = initial
		c.hasState = true
	}
}

// Connect renders a node, stamps a fresh identity on it and registers its
// callbacks. It does not fire added: that happens once the node is
// observed entering the tree.
func (rt *Runtime) Connect(render RenderFunc, opts ...ConnectOption) (*dom.Node, error) {
	if render == nil {
		return nil, ErrNoElement.WithDetail("nil render function")
	}
	var cfg connectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	id, err := rt.reg.Allocate()
	if err != nil {
		return nil, err
	}
	if cfg.cleanup != nil {
		removed, cleanup := cfg.callbacks.Removed, cfg.cleanup
		cfg.callbacks.Removed = func(n *dom.Node) {
			defer cleanup(id)
			if removed != nil {
				removed(n)
			}
		}
	}
	e := registry.NewEntry(id, nil, cfg.callbacks)
	if err := rt.reg.Register(e); err != nil {
		return nil, err
	}
	if cfg.hasState {
		rt.reg.InitState(id, cfg.state)
	}

	node, err := renderNode(id, cfg.construct, render)
	if err != nil {
		rt.reg.Unregister(id)
		return nil, err
	}

	releaseOrphan(rt.reg, node, id, rt.logger)
	if err := node.SetIdentity(id); err != nil {
		rt.reg.Unregister(id)
		return nil, ErrNoElement.WithID(id).Wrap(err)
	}
	e.SetNode(node)

	rt.metrics.SetLiveEntries(rt.reg.Len())
	rt.logger.Debug("connected", "id", id, "tag", node.Tag())
	return node, nil
}

func renderNode(id string, construct func(string), render RenderFunc) (node *dom.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node = nil
			err = ErrRenderPanic.WithID(id).Wrap(fmt.Errorf("%v", r))
		}
	}()

	if construct != nil {
		construct(id)
	}
	node = render()
	if !node.IsElement() {
		return nil, ErrNoElement.WithID(id)
	}
	return node, nil
}
