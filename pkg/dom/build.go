package dom

import (
	"fmt"
	"strings"
)

// Element creates an element with the given tag and arguments.
// Arguments can be: nil, Attr, []Attr, *Node, []*Node, string (text child)
// or fmt.Stringer (text child). Building does not record mutations since
// the new node is not observed yet; a child taken from another parent is
// removed from it the usual way.
func Element(tag string, args ...any) *Node {
	n := NewElement(tag)
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional attributes)
			continue
		case Attr:
			n.setAttrQuiet(v)
		case []Attr:
			for _, a := range v {
				n.setAttrQuiet(a)
			}
		case *Node:
			n.appendQuiet(v)
		case []*Node:
			for _, c := range v {
				n.appendQuiet(c)
			}
		case string:
			n.appendQuiet(Text(v))
		case fmt.Stringer:
			n.appendQuiet(Text(v.String()))
		}
	}
	return n
}

// A creates an attribute.
func A(key, value string) Attr { return Attr{Key: key, Value: value} }

// ID sets the id attribute.
func ID(id string) Attr { return A("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return A("class", strings.Join(classes, " ")) }

// Key sets the reconciliation key used by keyed patching.
func Key(key string) Attr { return A("key", key) }

// Data creates a data-* attribute.
func Data(key, value string) Attr { return A("data-"+key, value) }

// Div, Span, Ul, Li, P, Button and Section are shorthands for Element.
func Div(args ...any) *Node     { return Element("div", args...) }
func Span(args ...any) *Node    { return Element("span", args...) }
func Ul(args ...any) *Node      { return Element("ul", args...) }
func Li(args ...any) *Node      { return Element("li", args...) }
func P(args ...any) *Node       { return Element("p", args...) }
func Button(args ...any) *Node  { return Element("button", args...) }
func Section(args ...any) *Node { return Element("section", args...) }

func (n *Node) setAttrQuiet(a Attr) {
	if a.Key == "" {
		return
	}
	for i := range n.attrs {
		if n.attrs[i].Key == a.Key {
			n.attrs[i].Value = a.Value
			return
		}
	}
	n.attrs = append(n.attrs, a)
}

func (n *Node) appendQuiet(c *Node) {
	if c == nil {
		return
	}
	if c.parent != nil {
		// Taking a node out of a live tree is a real removal.
		_ = c.parent.RemoveChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}
