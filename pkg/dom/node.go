package dom

import (
	"errors"
	"slices"
)

// IdentityAttr is the reserved attribute holding a node's registry identifier.
const IdentityAttr = "data-tdid"

// NodeType is the node kind discriminator.
type NodeType uint8

const (
	ElementNode NodeType = iota // <div>, <li>, etc.
	TextNode                    // Plain text
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	default:
		return "Unknown"
	}
}

// Tree errors.
var (
	ErrNilNode      = errors.New("dom: nil node")
	ErrNotElement   = errors.New("dom: node is not an element")
	ErrNotChild     = errors.New("dom: node is not a child of this node")
	ErrHierarchy    = errors.New("dom: insertion would create a cycle")
	ErrNotText      = errors.New("dom: node is not a text node")
	ErrEmptyAttrKey = errors.New("dom: empty attribute name")
)

// Attr is a single attribute.
type Attr struct {
	Key   string
	Value string
}

// Node is a live tree node. The zero value is not usable; create nodes with
// Element or Text.
type Node struct {
	typ      NodeType
	tag      string
	text     string
	attrs    []Attr
	children []*Node
	parent   *Node

	// observers registered with this node as their root.
	observers []*Observer
}

// NewElement creates an empty element node.
func NewElement(tag string) *Node {
	return &Node{typ: ElementNode, tag: tag}
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{typ: TextNode, text: s}
}

// Type returns the node kind.
func (n *Node) Type() NodeType { return n.typ }

// IsElement reports whether n is an element.
func (n *Node) IsElement() bool { return n != nil && n.typ == ElementNode }

// Tag returns the element tag name, or "" for text nodes.
func (n *Node) Tag() string { return n.tag }

// Data returns the content of a text node.
func (n *Node) Data() string { return n.text }

// Parent returns the parent node, or nil if n is detached or a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the child at index i, or nil if out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Root returns the top-most ancestor of n (n itself if it has no parent).
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Attrs returns a copy of the attributes in insertion order.
func (n *Node) Attrs() []Attr {
	return slices.Clone(n.attrs)
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, recording an attribute mutation.
func (n *Node) SetAttr(key, value string) error {
	if n.typ != ElementNode {
		return ErrNotElement
	}
	if key == "" {
		return ErrEmptyAttrKey
	}
	old, had := n.Attr(key)
	if had {
		for i := range n.attrs {
			if n.attrs[i].Key == key {
				n.attrs[i].Value = value
				break
			}
		}
	} else {
		n.attrs = append(n.attrs, Attr{Key: key, Value: value})
	}
	n.record(MutationRecord{
		Type:          RecordAttributes,
		Target:        n,
		AttributeName: key,
		OldValue:      old,
		HasOldValue:   had,
	})
	return nil
}

// RemoveAttr removes an attribute. Removing an absent attribute is a no-op
// and records nothing.
func (n *Node) RemoveAttr(key string) {
	for i, a := range n.attrs {
		if a.Key == key {
			n.attrs = slices.Delete(n.attrs, i, i+1)
			n.record(MutationRecord{
				Type:          RecordAttributes,
				Target:        n,
				AttributeName: key,
				OldValue:      a.Value,
				HasOldValue:   true,
			})
			return
		}
	}
}

// HasIdentity reports whether n carries a non-empty identity attribute.
func (n *Node) HasIdentity() bool {
	_, ok := n.Identity()
	return ok
}

// Identity returns the value of the identity attribute. Text nodes never
// carry an identity.
func (n *Node) Identity() (string, bool) {
	if !n.IsElement() {
		return "", false
	}
	id, ok := n.Attr(IdentityAttr)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// SetIdentity stamps the identity attribute on an element.
func (n *Node) SetIdentity(id string) error {
	return n.SetAttr(IdentityAttr, id)
}

// SetText replaces the content of a text node.
func (n *Node) SetText(s string) error {
	if n.typ != TextNode {
		return ErrNotText
	}
	old := n.text
	n.text = s
	n.record(MutationRecord{
		Type:        RecordCharacterData,
		Target:      n,
		OldValue:    old,
		HasOldValue: true,
	})
	return nil
}

// AppendChild adds child as the last child of n.
func (n *Node) AppendChild(child *Node) error {
	return n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref. A nil ref appends. If child already
// has a parent it is first removed from it, which is recorded on the old
// parent.
func (n *Node) InsertBefore(child, ref *Node) error {
	if child == nil {
		return ErrNilNode
	}
	if n.typ != ElementNode {
		return ErrNotElement
	}
	if child.Contains(n) {
		return ErrHierarchy
	}
	if ref != nil && ref.parent != n {
		return ErrNotChild
	}
	if child == ref {
		return nil
	}
	if child.parent != nil {
		if err := child.parent.RemoveChild(child); err != nil {
			return err
		}
	}

	idx := len(n.children)
	if ref != nil {
		idx = n.indexOf(ref)
	}
	n.children = slices.Insert(n.children, idx, child)
	child.parent = n
	n.record(MutationRecord{
		Type:   RecordChildList,
		Target: n,
		Added:  []*Node{child},
	})
	return nil
}

// RemoveChild detaches child from n.
func (n *Node) RemoveChild(child *Node) error {
	if child == nil {
		return ErrNilNode
	}
	idx := n.indexOf(child)
	if idx < 0 {
		return ErrNotChild
	}
	n.children = slices.Delete(n.children, idx, idx+1)
	child.parent = nil
	n.record(MutationRecord{
		Type:    RecordChildList,
		Target:  n,
		Removed: []*Node{child},
	})
	return nil
}

// ReplaceChild replaces old with next in a single mutation.
func (n *Node) ReplaceChild(next, old *Node) error {
	if next == nil || old == nil {
		return ErrNilNode
	}
	if next == old {
		return nil
	}
	if old.parent != n {
		return ErrNotChild
	}
	if next.Contains(n) {
		return ErrHierarchy
	}
	if next.parent != nil {
		if err := next.parent.RemoveChild(next); err != nil {
			return err
		}
	}

	idx := n.indexOf(old)
	n.children[idx] = next
	next.parent = n
	old.parent = nil
	n.record(MutationRecord{
		Type:    RecordChildList,
		Target:  n,
		Added:   []*Node{next},
		Removed: []*Node{old},
	})
	return nil
}

// Remove detaches n from its parent, if any.
func (n *Node) Remove() error {
	if n.parent == nil {
		return nil
	}
	return n.parent.RemoveChild(n)
}

// Walk visits n and its descendants in document order (pre-order). The
// child list of each node is read when that node is visited.
func (n *Node) Walk(visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children() {
		c.Walk(visit)
	}
}

func (n *Node) indexOf(child *Node) int {
	return slices.Index(n.children, child)
}
