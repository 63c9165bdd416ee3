// Package morph is the patcher: it mutates a live node in place until it
// matches the shape of a freshly rendered node.
//
// Elements with the same tag are updated in place (attributes synced,
// children morphed recursively). Children carrying the key attribute are
// matched by key and moved into position; unkeyed children are matched by
// position. Anything that cannot be matched is inserted from the new tree,
// and leftover live children are removed. Every change goes through the
// dom mutation methods, so observers see exactly what was patched.
package morph

import (
	"errors"

	"github.com/vango-dev/throwdown/pkg/dom"
)

// DefaultKeyAttr is the attribute used for keyed child matching.
const DefaultKeyAttr = "key"

// Patch errors.
var (
	ErrNilNode      = errors.New("morph: nil node")
	ErrRootMismatch = errors.New("morph: cannot replace a node without a parent")
)

// Options configure a patch.
type Options struct {
	// ChildrenOnly leaves the root's own attributes untouched.
	ChildrenOnly bool

	// OnBeforeUpdate is called before an element is updated in place.
	// Returning false leaves that element and its subtree as they are.
	OnBeforeUpdate func(from, to *dom.Node) bool

	// KeyAttr overrides DefaultKeyAttr.
	KeyAttr string
}

// Patcher applies new representations to live nodes.
type Patcher struct {
	// Defaults are used when Apply receives nil options.
	Defaults Options
}

// Apply morphs old to match next. opts may be nil, an Options value or an
// *Options; anything else is ignored in favour of the defaults.
func (p Patcher) Apply(old, next *dom.Node, opts any) error {
	o := p.Defaults
	switch v := opts.(type) {
	case Options:
		o = v
	case *Options:
		if v != nil {
			o = *v
		}
	}
	return Morph(old, next, o)
}

// Morph mutates from until it matches to. Nodes of to may be moved into
// the live tree, so to must not be reused afterwards.
func Morph(from, to *dom.Node, opts Options) error {
	if from == nil || to == nil {
		return ErrNilNode
	}
	if opts.KeyAttr == "" {
		opts.KeyAttr = DefaultKeyAttr
	}
	m := &morpher{opts: opts}

	if opts.ChildrenOnly && from.IsElement() && to.IsElement() {
		return m.children(from, to)
	}
	return m.node(from, to)
}

type morpher struct {
	opts Options
}

func (m *morpher) node(from, to *dom.Node) error {
	if !compatible(from, to) {
		parent := from.Parent()
		if parent == nil {
			return ErrRootMismatch
		}
		return parent.ReplaceChild(to, from)
	}

	if from.Type() == dom.TextNode {
		if from.Data() != to.Data() {
			return from.SetText(to.Data())
		}
		return nil
	}

	if m.opts.OnBeforeUpdate != nil && !m.opts.OnBeforeUpdate(from, to) {
		return nil
	}
	if err := m.attrs(from, to); err != nil {
		return err
	}
	return m.children(from, to)
}

// attrs sets changed and added attributes, then removes stale ones.
func (m *morpher) attrs(from, to *dom.Node) error {
	for _, a := range to.Attrs() {
		if v, ok := from.Attr(a.Key); ok && v == a.Value {
			continue
		}
		if err := from.SetAttr(a.Key, a.Value); err != nil {
			return err
		}
	}
	for _, a := range from.Attrs() {
		if _, ok := to.Attr(a.Key); !ok {
			from.RemoveAttr(a.Key)
		}
	}
	return nil
}

func (m *morpher) children(from, to *dom.Node) error {
	keyed := make(map[string]*dom.Node)
	for _, c := range from.Children() {
		if k := m.key(c); k != "" {
			keyed[k] = c
		}
	}

	next := to.Children()
	for j, tc := range next {
		cur := from.Child(j)

		var match *dom.Node
		if k := m.key(tc); k != "" {
			if cand, ok := keyed[k]; ok && cand.Parent() == from && compatible(cand, tc) {
				match = cand
				delete(keyed, k)
			}
		} else if cur != nil && m.key(cur) == "" && compatible(cur, tc) {
			match = cur
		}

		if match == nil {
			if err := from.InsertBefore(tc, cur); err != nil {
				return err
			}
			continue
		}
		if match != cur {
			if err := from.InsertBefore(match, cur); err != nil {
				return err
			}
		}
		if err := m.node(match, tc); err != nil {
			return err
		}
	}

	for from.ChildCount() > len(next) {
		if err := from.RemoveChild(from.Child(len(next))); err != nil {
			return err
		}
	}
	return nil
}

func (m *morpher) key(n *dom.Node) string {
	if !n.IsElement() {
		return ""
	}
	k, _ := n.Attr(m.opts.KeyAttr)
	return k
}

func compatible(a, b *dom.Node) bool {
	if a.Type() != b.Type() {
		return false
	}
	return a.Type() == dom.TextNode || a.Tag() == b.Tag()
}
