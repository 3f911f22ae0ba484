package gen

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// XMLAttr is one attribute on an element.
type XMLAttr struct {
	Name  string
	Value string
}

// XMLNode is a built element tree. Serializers fill a node's attributes,
// children, and text; the owner of the node decides its name. An element
// carries either children or text, never both.
type XMLNode struct {
	Name     string
	Attrs    []XMLAttr
	Children []*XMLNode
	Text     string
}

func NewXMLNode(name string) *XMLNode {
	return &XMLNode{Name: name}
}

func (n *XMLNode) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, XMLAttr{Name: name, Value: value})
}

// Child appends a new empty element and returns it.
func (n *XMLNode) Child(name string) *XMLNode {
	c := NewXMLNode(name)
	n.Children = append(n.Children, c)
	return c
}

// ChildNamed returns the first child element with the given name.
func (n *XMLNode) ChildNamed(name string) *XMLNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child element with the given name, in
// document order. Flattened collections decode from this.
func (n *XMLNode) ChildrenNamed(name string) []*XMLNode {
	var out []*XMLNode
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (n *XMLNode) AttrNamed(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func xmlEscape(buf *bytes.Buffer, s string) {
	xml.EscapeText(buf, []byte(s))
}

func (n *XMLNode) render(buf *bytes.Buffer) {
	buf.WriteByte('<')
	buf.WriteString(n.Name)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		xmlEscape(buf, a.Value)
		buf.WriteByte('"')
	}
	if len(n.Children) == 0 && n.Text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	if len(n.Children) > 0 {
		for _, c := range n.Children {
			c.render(buf)
		}
	} else {
		xmlEscape(buf, n.Text)
	}
	buf.WriteString("</")
	buf.WriteString(n.Name)
	buf.WriteByte('>')
}

// Encode renders the element tree with deterministic attribute and
// child order, no indentation.
func (n *XMLNode) Encode() []byte {
	var buf bytes.Buffer
	n.render(&buf)
	return buf.Bytes()
}

// DecodeXMLNode parses one document into an element tree. Namespace
// prefixes are preserved as written; character data between child
// elements of a mixed node is dropped.
func DecodeXMLNode(body []byte) (*XMLNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var root *XMLNode
	var stack []*XMLNode
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed XML body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := NewXMLNode(prefixedName(t.Name))
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, XMLAttr{Name: prefixedName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				n := stack[len(stack)-1]
				if len(n.Children) == 0 {
					n.Text += string(t)
				}
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("empty XML body")
	}
	root.trimText()
	return root, nil
}

func (n *XMLNode) trimText() {
	if len(n.Children) > 0 {
		n.Text = ""
		for _, c := range n.Children {
			c.trimText()
		}
		return
	}
	n.Text = strings.TrimSpace(n.Text)
}

func prefixedName(name xml.Name) string {
	// encoding/xml resolves prefixes to namespace URLs in Name.Space.
	// Wire names in the model are local names, so local is what matters.
	return name.Local
}
