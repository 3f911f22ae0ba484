package gen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/boynton/data"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// xmlParseFn converts one element into the runtime value for one shape.
// Structures come back as *smithy.Builder, same contract as the JSON
// parse side.
type xmlParseFn func(n *XMLNode) (interface{}, error)

// scalarParse is the inverse of scalarText: one element's (or
// attribute's) text to a typed value.
func scalarParse(targetType, tsFormat string) func(s string) (interface{}, error) {
	switch targetType {
	case "string", "enum":
		return func(s string) (interface{}, error) { return s, nil }
	case "boolean":
		return func(s string) (interface{}, error) {
			return strconv.ParseBool(s)
		}
	case "byte", "short", "integer", "long", "intEnum":
		return func(s string) (interface{}, error) {
			return strconv.ParseInt(s, 10, 64)
		}
	case "float", "double":
		return func(s string) (interface{}, error) {
			return strconv.ParseFloat(s, 64)
		}
	case "bigInteger", "bigDecimal":
		return func(s string) (interface{}, error) {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, err
			}
			return data.NewDecimal(f), nil
		}
	case "blob":
		return func(s string) (interface{}, error) {
			return base64.StdEncoding.DecodeString(s)
		}
	case "timestamp":
		return func(s string) (interface{}, error) {
			if tsFormat == smithy.TimestampEpochSeconds {
				return smithy.ParseEpochSeconds(s)
			}
			return smithy.ParseTimestamp(s, tsFormat)
		}
	}
	return nil
}

func xmlTextParse(shapeID, targetType, tsFormat string) xmlParseFn {
	parse := scalarParse(targetType, tsFormat)
	return func(n *XMLNode) (interface{}, error) {
		v, err := parse(n.Text)
		if err != nil {
			return nil, parseErr(shapeID, fmt.Errorf("malformed %s %q", targetType, n.Text))
		}
		return v, nil
	}
}

func (g *XMLGenerator) shapeParser(shapeID string) (*Fn[xmlParseFn], error) {
	shape := g.s.model.GetShape(shapeID)
	if shape == nil {
		return nil, fmt.Errorf("no such shape: %s", shapeID)
	}
	key := FuncKey{ShapeID: shapeID, Role: RoleParse}
	return g.parsers.obtain(key, func(self *Fn[xmlParseFn]) (xmlParseFn, error) {
		switch shape.Type {
		case "string", "enum", "boolean", "byte", "short", "integer", "long",
			"intEnum", "float", "double", "bigInteger", "bigDecimal", "blob":
			return xmlTextParse(shapeID, shape.Type, ""), nil
		case "timestamp":
			format := shape.StringTrait(smithy.TraitTimestampFormat)
			if format == "" {
				format = g.policy.TimestampDefault
			}
			return xmlTextParse(shapeID, shape.Type, format), nil
		case "list", "set":
			elemName, elem, err := g.elementParser(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(n *XMLNode) (interface{}, error) {
				children := n.ChildrenNamed(elemName)
				out := make([]interface{}, 0, len(children))
				for _, c := range children {
					v, err := elem.Call(c)
					if err != nil {
						return nil, err
					}
					out = append(out, v)
				}
				return out, nil
			}, nil
		case "map":
			entry, err := g.mapEntryParser(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(n *XMLNode) (interface{}, error) {
				out := data.NewObject()
				for _, c := range n.ChildrenNamed("entry") {
					if err := entry(c, out); err != nil {
						return nil, err
					}
				}
				return out, nil
			}, nil
		case "structure":
			fields, err := g.structFieldParsers(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(n *XMLNode) (interface{}, error) {
				b := smithy.NewBuilder(shapeID)
				for _, f := range fields {
					if err := f.read(n, b); err != nil {
						return nil, err
					}
				}
				return b, nil
			}, nil
		case "union":
			variants, err := g.unionVariantParsers(shapeID, shape)
			if err != nil {
				return nil, err
			}
			client := g.s.target == ClientTarget
			return func(n *XMLNode) (interface{}, error) {
				for _, vp := range variants {
					if c := n.ChildNamed(vp.wire); c != nil {
						v, err := vp.fn.Call(c)
						if err != nil {
							return nil, err
						}
						return smithy.NewUnion(vp.name, v), nil
					}
				}
				if client {
					return smithy.UnknownUnion(), nil
				}
				return nil, parseErr(shapeID, fmt.Errorf("no recognized variant present"))
			}, nil
		default:
			return nil, unsupported(g.policy.Protocol, shapeID, "shape type "+shape.Type)
		}
	})
}

func (g *XMLGenerator) elementParser(shapeID string, shape *smithy.Shape) (string, *Fn[xmlParseFn], error) {
	elemName := shape.Member.StringTrait(smithy.TraitXmlName)
	if elemName == "" {
		elemName = "member"
	}
	fn, err := g.memberParser(shapeID, "member", shape.Member)
	if err != nil {
		return "", nil, err
	}
	return elemName, fn, nil
}

func (g *XMLGenerator) mapEntryParser(shapeID string, shape *smithy.Shape) (func(entry *XMLNode, out *data.Object) error, error) {
	keyName := shape.Key.StringTrait(smithy.TraitXmlName)
	if keyName == "" {
		keyName = "key"
	}
	valName := shape.Value.StringTrait(smithy.TraitXmlName)
	if valName == "" {
		valName = "value"
	}
	val, err := g.memberParser(shapeID, "value", shape.Value)
	if err != nil {
		return nil, err
	}
	return func(entry *XMLNode, out *data.Object) error {
		k := entry.ChildNamed(keyName)
		v := entry.ChildNamed(valName)
		if k == nil || v == nil {
			return parseErr(shapeID, fmt.Errorf("map entry missing %s or %s", keyName, valName))
		}
		parsed, err := val.Call(v)
		if err != nil {
			return err
		}
		out.Put(k.Text, parsed)
		return nil
	}, nil
}

// xmlFieldParser reads one structure member from its parent element into
// a builder. Absent members are skipped; required-ness is Finish's job.
type xmlFieldParser struct {
	read func(parent *XMLNode, b *smithy.Builder) error
}

func (g *XMLGenerator) structFieldParsers(shapeID string, shape *smithy.Shape) ([]xmlFieldParser, error) {
	var fields []xmlFieldParser
	for _, name := range shape.Members.Keys() {
		name := name
		m := shape.Members.Get(name)
		target, err := g.s.model.GetAst().ResolveMember(m)
		if err != nil {
			return nil, err
		}
		wire := g.policy.WireName(name, m)
		switch {
		case m.HasTrait(smithy.TraitXmlAttribute):
			parse := scalarParse(target.Type, g.policy.TimestampFormat(m, target))
			if parse == nil {
				return nil, unsupported(g.policy.Protocol, shapeID,
					fmt.Sprintf("attribute member %s targets %s", name, target.Type))
			}
			fields = append(fields, xmlFieldParser{read: func(parent *XMLNode, b *smithy.Builder) error {
				s, ok := parent.AttrNamed(wire)
				if !ok {
					return nil
				}
				v, err := parse(s)
				if err != nil {
					return parseErr(shapeID, fmt.Errorf("malformed attribute %s=%q", wire, s))
				}
				b.Set(name, v)
				return nil
			}})
		case g.policy.Flattened(m) && (target.Type == "list" || target.Type == "set"):
			_, elem, err := g.elementParser(m.Target, target)
			if err != nil {
				return nil, err
			}
			fields = append(fields, xmlFieldParser{read: func(parent *XMLNode, b *smithy.Builder) error {
				children := parent.ChildrenNamed(wire)
				if len(children) == 0 {
					return nil
				}
				out := make([]interface{}, 0, len(children))
				for _, c := range children {
					v, err := elem.Call(c)
					if err != nil {
						return err
					}
					out = append(out, v)
				}
				b.Set(name, out)
				return nil
			}})
		case g.policy.Flattened(m) && target.Type == "map":
			entry, err := g.mapEntryParser(m.Target, target)
			if err != nil {
				return nil, err
			}
			fields = append(fields, xmlFieldParser{read: func(parent *XMLNode, b *smithy.Builder) error {
				children := parent.ChildrenNamed(wire)
				if len(children) == 0 {
					return nil
				}
				out := data.NewObject()
				for _, c := range children {
					if err := entry(c, out); err != nil {
						return err
					}
				}
				b.Set(name, out)
				return nil
			}})
		default:
			fn, err := g.memberParser(shapeID, name, m)
			if err != nil {
				return nil, err
			}
			fields = append(fields, xmlFieldParser{read: func(parent *XMLNode, b *smithy.Builder) error {
				c := parent.ChildNamed(wire)
				if c == nil {
					return nil
				}
				v, err := fn.Call(c)
				if err != nil {
					return err
				}
				b.Set(name, v)
				return nil
			}})
		}
	}
	return fields, nil
}

type xmlVariantParser struct {
	name string
	wire string
	fn   *Fn[xmlParseFn]
}

func (g *XMLGenerator) unionVariantParsers(shapeID string, shape *smithy.Shape) ([]xmlVariantParser, error) {
	var variants []xmlVariantParser
	for _, name := range shape.Members.Keys() {
		m := shape.Members.Get(name)
		fn, err := g.memberParser(shapeID, name, m)
		if err != nil {
			return nil, err
		}
		variants = append(variants, xmlVariantParser{name: name, wire: g.policy.WireName(name, m), fn: fn})
	}
	return variants, nil
}

func (g *XMLGenerator) memberParser(containerID, memberName string, m *smithy.Member) (*Fn[xmlParseFn], error) {
	target, err := g.s.model.GetAst().ResolveMember(m)
	if err != nil {
		return nil, err
	}
	if target.Type != "timestamp" || !m.HasTrait(smithy.TraitTimestampFormat) {
		return g.shapeParser(m.Target)
	}
	key := FuncKey{ShapeID: containerID + "$" + memberName, Role: RoleParse}
	return g.parsers.obtain(key, func(self *Fn[xmlParseFn]) (xmlParseFn, error) {
		return xmlTextParse(m.Target, target.Type, g.policy.TimestampFormat(m, target)), nil
	})
}

// OperationParser decodes an operation's input document. The root
// element's name is not checked; routing happens before parsing. A
// zero-length body decodes as the empty input.
func (g *XMLGenerator) OperationParser(opID string) (OperationParser, error) {
	_, input, inputID, err := g.s.resolveOperation(opID)
	if err != nil {
		return nil, err
	}
	if input.Members.Length() == 0 {
		return nil, nil
	}
	return g.structBodyParser(inputID, "")
}

// OutputParser decodes an operation's output document (client side),
// unwrapping the query-convention Response/Result elements when present.
func (g *XMLGenerator) OutputParser(opID string) (OperationParser, error) {
	output, outputID, err := g.s.resolveOutput(opID)
	if err != nil {
		return nil, err
	}
	if output.Members.Length() == 0 {
		return nil, nil
	}
	return g.structBodyParser(outputID, localName(opID)+"Result")
}

// ErrorParser decodes a modeled error structure body.
func (g *XMLGenerator) ErrorParser(errorID string) (ErrorParser, error) {
	shape := g.s.model.GetShape(errorID)
	if shape == nil || shape.Type != "structure" || !shape.HasTrait(smithy.TraitError) {
		return nil, fmt.Errorf("%s is not a modeled error structure", errorID)
	}
	p, err := g.structBodyParser(errorID, "Error")
	if err != nil {
		return nil, err
	}
	return ErrorParser(p), nil
}

// structBodyParser decodes a body into a builder. When unwrap names a
// descendant element and the root contains it, parsing starts there.
func (g *XMLGenerator) structBodyParser(shapeID, unwrap string) (OperationParser, error) {
	fn, err := g.shapeParser(shapeID)
	if err != nil {
		return nil, err
	}
	return func(body []byte) (*smithy.Builder, error) {
		if len(bytes.TrimSpace(body)) == 0 {
			return smithy.NewBuilder(shapeID), nil
		}
		root, err := DecodeXMLNode(body)
		if err != nil {
			return nil, parseErr(shapeID, err)
		}
		n := root
		if unwrap != "" {
			if inner := findDescendant(root, unwrap); inner != nil {
				n = inner
			}
		}
		v, err := fn.Call(n)
		if err != nil {
			return nil, err
		}
		b, ok := v.(*smithy.Builder)
		if !ok {
			return nil, parseErr(shapeID, fmt.Errorf("internal: parser produced %T", v))
		}
		return b, nil
	}, nil
}

func findDescendant(n *XMLNode, name string) *XMLNode {
	if c := n.ChildNamed(name); c != nil {
		return c
	}
	for _, c := range n.Children {
		if found := findDescendant(c, name); found != nil {
			return found
		}
	}
	return nil
}

// PayloadParser decodes a single body-bound member.
func (g *XMLGenerator) PayloadParser(containerID, memberName string) (PayloadParser, error) {
	container := g.s.model.GetShape(containerID)
	if container == nil {
		return nil, fmt.Errorf("no such shape: %s", containerID)
	}
	m := container.Members.Get(memberName)
	if m == nil {
		return nil, fmt.Errorf("no member %s$%s", containerID, memberName)
	}
	fn, err := g.memberParser(containerID, memberName, m)
	if err != nil {
		return nil, err
	}
	target, err := g.s.model.GetAst().ResolveMember(m)
	if err != nil {
		return nil, err
	}
	isStruct := target.Type == "structure" || target.Type == "map"
	wire := g.policy.WireName(memberName, m)
	return func(body []byte) (interface{}, error) {
		// an absent body decodes like an empty element
		if len(bytes.TrimSpace(body)) == 0 && isStruct {
			return fn.Call(NewXMLNode(wire))
		}
		root, err := DecodeXMLNode(body)
		if err != nil {
			return nil, parseErr(m.Target, err)
		}
		return fn.Call(root)
	}, nil
}

// DocumentParser: open content has no XML projection.
func (g *XMLGenerator) DocumentParser() (DocumentParser, error) {
	return nil, unsupported(g.policy.Protocol, "smithy.api#Document", "open content")
}
