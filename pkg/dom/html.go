package dom

import (
	"html"
	"io"
	"strings"
)

// voidElements are elements rendered without a closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Render writes the HTML serialization of n to w.
func Render(w io.Writer, n *Node) error {
	var sb strings.Builder
	writeNode(&sb, n)
	_, err := io.WriteString(w, sb.String())
	return err
}

// String returns the HTML serialization of n.
func (n *Node) String() string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	if n.typ == TextNode {
		sb.WriteString(html.EscapeString(n.text))
		return
	}

	sb.WriteByte('<')
	sb.WriteString(n.tag)
	for _, a := range n.attrs {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(a.Value))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	if voidElements[n.tag] {
		return
	}
	for _, c := range n.children {
		writeNode(sb, c)
	}
	sb.WriteString("</")
	sb.WriteString(n.tag)
	sb.WriteByte('>')
}
