package gen

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boynton/data"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// xmlSerFn fills one element's attributes, children, or text from one
// value. The caller names the element; flattening decisions therefore
// live with the container, not the target shape.
type xmlSerFn func(v interface{}, n *XMLNode, st *SerializeSettings) error

type XMLGenerator struct {
	s       *Session
	policy  *Policy
	sers    *memoTable[xmlSerFn]
	parsers *memoTable[xmlParseFn]
}

func newXMLGenerator(s *Session) *XMLGenerator {
	return &XMLGenerator{
		s:       s,
		policy:  XMLPolicy,
		sers:    newMemoTable[xmlSerFn](),
		parsers: newMemoTable[xmlParseFn](),
	}
}

func (g *XMLGenerator) Protocol() string {
	return g.policy.Protocol
}

func (g *XMLGenerator) PayloadMediaType() string {
	return "application/xml"
}

// SerializerHandle exposes the memoized per-shape function identity.
func (g *XMLGenerator) SerializerHandle(shapeID string) (*Fn[xmlSerFn], error) {
	return g.shapeSerializer(shapeID)
}

func maybeRedactXML(inner xmlSerFn) xmlSerFn {
	return func(v interface{}, n *XMLNode, st *SerializeSettings) error {
		if st != nil && st.RedactSensitive {
			n.Children = nil
			n.Text = RedactionMarker
			return nil
		}
		return inner(v, n, st)
	}
}

// scalarText converts one simple-typed value to its XML/Query text form.
// Attribute values and query-string values both go through this.
func scalarText(targetType, tsFormat string) func(v interface{}) (string, error) {
	switch targetType {
	case "string", "enum":
		return asString
	case "boolean":
		return func(v interface{}) (string, error) {
			b, err := asBool(v)
			if err != nil {
				return "", err
			}
			return strconv.FormatBool(b), nil
		}
	case "byte", "short", "integer", "long", "intEnum":
		return func(v interface{}) (string, error) {
			i, err := asInt64(v)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(i, 10), nil
		}
	case "float", "double":
		return func(v interface{}) (string, error) {
			f, err := asFloat64(v)
			if err != nil {
				return "", err
			}
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}
	case "bigInteger", "bigDecimal":
		return func(v interface{}) (string, error) {
			d := data.AsDecimal(v)
			if d == nil {
				return "", fmt.Errorf("expected decimal, got %T", v)
			}
			return fmt.Sprintf("%v", d), nil
		}
	case "blob":
		return func(v interface{}) (string, error) {
			b, err := blobBytes(v)
			if err != nil {
				return "", err
			}
			return base64.StdEncoding.EncodeToString(b), nil
		}
	case "timestamp":
		return func(v interface{}) (string, error) {
			t, ok := v.(time.Time)
			if !ok {
				return "", fmt.Errorf("expected timestamp, got %T", v)
			}
			if tsFormat == smithy.TimestampEpochSeconds {
				return smithy.FormatEpochSeconds(t), nil
			}
			return smithy.FormatTimestamp(t, tsFormat)
		}
	}
	return nil
}

func xmlTextSer(targetType, tsFormat string) xmlSerFn {
	text := scalarText(targetType, tsFormat)
	return func(v interface{}, n *XMLNode, st *SerializeSettings) error {
		s, err := text(v)
		if err != nil {
			return err
		}
		n.Text = s
		return nil
	}
}

func (g *XMLGenerator) shapeSerializer(shapeID string) (*Fn[xmlSerFn], error) {
	shape := g.s.model.GetShape(shapeID)
	if shape == nil {
		return nil, fmt.Errorf("no such shape: %s", shapeID)
	}
	key := FuncKey{ShapeID: shapeID, Role: RoleSerialize}
	return g.sers.obtain(key, func(self *Fn[xmlSerFn]) (xmlSerFn, error) {
		switch shape.Type {
		case "string", "enum", "boolean", "byte", "short", "integer", "long",
			"intEnum", "float", "double", "bigInteger", "bigDecimal", "blob":
			return xmlTextSer(shape.Type, ""), nil
		case "timestamp":
			format := shape.StringTrait(smithy.TraitTimestampFormat)
			if format == "" {
				format = g.policy.TimestampDefault
			}
			return xmlTextSer(shape.Type, format), nil
		case "list", "set":
			elemName, elem, err := g.elementSerializer(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, n *XMLNode, st *SerializeSettings) error {
				items, err := asList(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				for _, item := range items {
					if err := elem.Call(item, n.Child(elemName), st); err != nil {
						return err
					}
				}
				return nil
			}, nil
		case "map":
			entry, err := g.mapEntrySerializer(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, n *XMLNode, st *SerializeSettings) error {
				obj, err := asOrderedObject(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				for _, k := range obj.Keys() {
					if err := entry(k, obj.Get(k), n.Child("entry"), st); err != nil {
						return err
					}
				}
				return nil
			}, nil
		case "structure":
			fields, err := g.structFields(shapeID, shape)
			if err != nil {
				return nil, err
			}
			ns, prefix := smithy.XmlNamespaceOf(shape.Traits)
			return func(v interface{}, n *XMLNode, st *SerializeSettings) error {
				if ns != "" {
					attr := "xmlns"
					if prefix != "" {
						attr = "xmlns:" + prefix
					}
					n.SetAttr(attr, ns)
				}
				return g.writeFields(fields, v, n, st)
			}, nil
		case "union":
			variants, err := g.unionVariants(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, n *XMLNode, st *SerializeSettings) error {
				u, ok := v.(*smithy.Union)
				if !ok {
					return serializeErr(shapeID, fmt.Errorf("expected union, got %T", v))
				}
				if !u.Known() {
					return &UnknownVariantError{ShapeID: shapeID}
				}
				variant, ok := variants[u.Tag]
				if !ok {
					return serializeErr(shapeID, fmt.Errorf("no such variant: %s", u.Tag))
				}
				return variant.fn.Call(u.Value, n.Child(variant.wire), st)
			}, nil
		default:
			return nil, unsupported(g.policy.Protocol, shapeID, "shape type "+shape.Type)
		}
	})
}

// elementSerializer resolves a list's element name and function. The
// list member's xmlName renames the repeated element; "member" is the
// default.
func (g *XMLGenerator) elementSerializer(shapeID string, shape *smithy.Shape) (string, *Fn[xmlSerFn], error) {
	elemName := shape.Member.StringTrait(smithy.TraitXmlName)
	if elemName == "" {
		elemName = "member"
	}
	fn, err := g.memberSerializer(shapeID, "member", shape.Member)
	if err != nil {
		return "", nil, err
	}
	return elemName, fn, nil
}

// mapEntrySerializer builds the key/value pair writer for one map shape.
// Map keys serialize as strings whatever their semantic type.
func (g *XMLGenerator) mapEntrySerializer(shapeID string, shape *smithy.Shape) (func(k string, v interface{}, entry *XMLNode, st *SerializeSettings) error, error) {
	keyName := shape.Key.StringTrait(smithy.TraitXmlName)
	if keyName == "" {
		keyName = "key"
	}
	valName := shape.Value.StringTrait(smithy.TraitXmlName)
	if valName == "" {
		valName = "value"
	}
	val, err := g.memberSerializer(shapeID, "value", shape.Value)
	if err != nil {
		return nil, err
	}
	return func(k string, v interface{}, entry *XMLNode, st *SerializeSettings) error {
		entry.Child(keyName).Text = k
		return val.Call(v, entry.Child(valName), st)
	}, nil
}

// xmlField is one precomputed structure member. Attribute members are
// rendered onto the parent element; flattened collections repeat the
// member element directly under the parent.
type xmlField struct {
	name     string
	wire     string
	expr     ValueExpr
	suppress bool

	attr      func(v interface{}) (string, error) //non-nil for xmlAttribute members
	flat      *xmlFlatField                       //non-nil for flattened collections
	sensitive bool                                //attr/flat members bypass the member wrapper, so they redact here
	fn        *Fn[xmlSerFn]
	nsAttr    string
	nsValue   string
}

type xmlFlatField struct {
	isMap    bool
	elem     *Fn[xmlSerFn]
	entry    func(k string, v interface{}, entry *XMLNode, st *SerializeSettings) error
	elemName string
}

func (g *XMLGenerator) structFields(shapeID string, shape *smithy.Shape) ([]xmlField, error) {
	var fields []xmlField
	for _, name := range shape.Members.Keys() {
		m := shape.Members.Get(name)
		target, err := g.s.model.GetAst().ResolveMember(m)
		if err != nil {
			return nil, err
		}
		f := xmlField{
			name:     name,
			wire:     g.policy.WireName(name, m),
			expr:     MemberExpr(name),
			suppress: g.policy.SuppressZero(m, target, false),
		}
		if ns, prefix := smithy.XmlNamespaceOf(m.Traits); ns != "" {
			f.nsAttr = "xmlns"
			if prefix != "" {
				f.nsAttr = "xmlns:" + prefix
			}
			f.nsValue = ns
		}
		switch {
		case m.HasTrait(smithy.TraitXmlAttribute):
			if !smithy.IsSimpleType(target.Type) || target.Type == "document" {
				return nil, unsupported(g.policy.Protocol, shapeID,
					fmt.Sprintf("attribute member %s targets %s", name, target.Type))
			}
			f.attr = scalarText(target.Type, g.policy.TimestampFormat(m, target))
			f.sensitive = smithy.Sensitive(m, target)
		case g.policy.Flattened(m) && (target.Type == "list" || target.Type == "set"):
			elemName, elem, err := g.elementSerializer(m.Target, target)
			if err != nil {
				return nil, err
			}
			f.flat = &xmlFlatField{elem: elem, elemName: elemName}
			f.sensitive = smithy.Sensitive(m, target)
		case g.policy.Flattened(m) && target.Type == "map":
			entry, err := g.mapEntrySerializer(m.Target, target)
			if err != nil {
				return nil, err
			}
			f.flat = &xmlFlatField{isMap: true, entry: entry}
			f.sensitive = smithy.Sensitive(m, target)
		default:
			fn, err := g.memberSerializer(shapeID, name, m)
			if err != nil {
				return nil, err
			}
			f.fn = fn
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (g *XMLGenerator) writeFields(fields []xmlField, v interface{}, n *XMLNode, st *SerializeSettings) error {
	for _, f := range fields {
		value, present := f.expr.Get(v)
		if !present {
			continue
		}
		if f.suppress && IsZeroValue(value) {
			continue
		}
		if f.sensitive && st != nil && st.RedactSensitive {
			if f.attr != nil {
				n.SetAttr(f.wire, RedactionMarker)
			} else {
				n.Child(f.wire).Text = RedactionMarker
			}
			continue
		}
		switch {
		case f.attr != nil:
			s, err := f.attr(value)
			if err != nil {
				return serializeErr(f.name, err)
			}
			n.SetAttr(f.wire, s)
		case f.flat != nil && !f.flat.isMap:
			items, err := asList(value)
			if err != nil {
				return serializeErr(f.name, err)
			}
			for _, item := range items {
				if err := f.flat.elem.Call(item, n.Child(f.wire), st); err != nil {
					return err
				}
			}
		case f.flat != nil:
			obj, err := asOrderedObject(value)
			if err != nil {
				return serializeErr(f.name, err)
			}
			for _, k := range obj.Keys() {
				if err := f.flat.entry(k, obj.Get(k), n.Child(f.wire), st); err != nil {
					return err
				}
			}
		default:
			c := n.Child(f.wire)
			if f.nsValue != "" {
				c.SetAttr(f.nsAttr, f.nsValue)
			}
			if err := f.fn.Call(value, c, st); err != nil {
				return err
			}
		}
	}
	return nil
}

type xmlVariant struct {
	wire string
	fn   *Fn[xmlSerFn]
}

func (g *XMLGenerator) unionVariants(shapeID string, shape *smithy.Shape) (map[string]xmlVariant, error) {
	variants := make(map[string]xmlVariant, shape.Members.Length())
	for _, name := range shape.Members.Keys() {
		m := shape.Members.Get(name)
		fn, err := g.memberSerializer(shapeID, name, m)
		if err != nil {
			return nil, err
		}
		variants[name] = xmlVariant{wire: g.policy.WireName(name, m), fn: fn}
	}
	return variants, nil
}

// memberSerializer mirrors the JSON generator's rule: a wrapper function
// memoized under the member path only when member traits change the wire
// encoding, otherwise the shared target shape function.
func (g *XMLGenerator) memberSerializer(containerID, memberName string, m *smithy.Member) (*Fn[xmlSerFn], error) {
	target, err := g.s.model.GetAst().ResolveMember(m)
	if err != nil {
		return nil, err
	}
	sensitive := smithy.Sensitive(m, target)
	tsOverride := target.Type == "timestamp" &&
		(m.HasTrait(smithy.TraitTimestampFormat) || target.HasTrait(smithy.TraitTimestampFormat))
	if !sensitive && !tsOverride {
		return g.shapeSerializer(m.Target)
	}
	key := FuncKey{ShapeID: containerID + "$" + memberName, Role: RoleSerialize}
	return g.sers.obtain(key, func(self *Fn[xmlSerFn]) (xmlSerFn, error) {
		var inner xmlSerFn
		if target.Type == "timestamp" {
			inner = xmlTextSer(target.Type, g.policy.TimestampFormat(m, target))
		} else {
			base, err := g.shapeSerializer(m.Target)
			if err != nil {
				return nil, err
			}
			inner = func(v interface{}, n *XMLNode, st *SerializeSettings) error {
				return base.Call(v, n, st)
			}
		}
		if sensitive {
			inner = maybeRedactXML(inner)
		}
		return inner, nil
	})
}

func localName(shapeID string) string {
	if i := strings.Index(shapeID, "#"); i >= 0 {
		return shapeID[i+1:]
	}
	return shapeID
}

// rootName resolves the element name for a top-level structure: the
// shape's xmlName trait, else its local name.
func rootName(shapeID string, shape *smithy.Shape) string {
	if n := shape.StringTrait(smithy.TraitXmlName); n != "" {
		return n
	}
	return localName(shapeID)
}

// OperationSerializer encodes the document-bound members of an
// operation's input under a root element named for the input shape.
// Returns (nil, nil) when no member is body-bound.
func (g *XMLGenerator) OperationSerializer(opID string) (OperationSerializer, error) {
	_, input, inputID, err := g.s.resolveOperation(opID)
	if err != nil {
		return nil, err
	}
	return g.bodySerializer(inputID, input, docBoundMembers(input), rootName(inputID, input), "")
}

// ServerOutputSerializer mirrors OperationSerializer for an operation's
// output structure.
func (g *XMLGenerator) ServerOutputSerializer(opID string) (OperationSerializer, error) {
	output, outputID, err := g.s.resolveOutput(opID)
	if err != nil {
		return nil, err
	}
	return g.bodySerializer(outputID, output, docBoundMembers(output), rootName(outputID, output), "")
}

// ServerErrorSerializer encodes a modeled error structure; the root
// element name carries the error type.
func (g *XMLGenerator) ServerErrorSerializer(errorID string) (OperationSerializer, error) {
	shape := g.s.model.GetShape(errorID)
	if shape == nil || shape.Type != "structure" || !shape.HasTrait(smithy.TraitError) {
		return nil, fmt.Errorf("%s is not a modeled error structure", errorID)
	}
	return g.bodySerializer(errorID, shape, docBoundMembers(shape), rootName(errorID, shape), "")
}

// wrappedOutputSerializer encodes an operation's output inside
// OpResponse/OpResult wrapper elements, the response convention of the
// query protocols.
func (g *XMLGenerator) wrappedOutputSerializer(opID string) (OperationSerializer, error) {
	output, outputID, err := g.s.resolveOutput(opID)
	if err != nil {
		return nil, err
	}
	op := localName(opID)
	return g.bodySerializer(outputID, output, docBoundMembers(output), op+"Response", op+"Result")
}

func (g *XMLGenerator) bodySerializer(shapeID string, shape *smithy.Shape, names []string, root, wrapper string) (OperationSerializer, error) {
	if len(names) == 0 && wrapper == "" {
		return nil, nil
	}
	var fields []xmlField
	all, err := g.structFields(shapeID, shape)
	if err != nil {
		return nil, err
	}
	for _, f := range all {
		for _, name := range names {
			if f.name == name {
				fields = append(fields, f)
				break
			}
		}
	}
	ns, prefix := smithy.XmlNamespaceOf(shape.Traits)
	return func(input *data.Object, st *SerializeSettings) ([]byte, error) {
		n := NewXMLNode(root)
		body := n
		if wrapper != "" {
			body = n.Child(wrapper)
		}
		if ns != "" {
			attr := "xmlns"
			if prefix != "" {
				attr = "xmlns:" + prefix
			}
			n.SetAttr(attr, ns)
		}
		if err := g.writeFields(fields, input, body, st); err != nil {
			return nil, err
		}
		return n.Encode(), nil
	}, nil
}

// PayloadSerializer encodes a single member bound as the wire body; the
// element is named by the member's wire name.
func (g *XMLGenerator) PayloadSerializer(containerID, memberName string) (PayloadSerializer, error) {
	container := g.s.model.GetShape(containerID)
	if container == nil {
		return nil, fmt.Errorf("no such shape: %s", containerID)
	}
	m := container.Members.Get(memberName)
	if m == nil {
		return nil, fmt.Errorf("no member %s$%s", containerID, memberName)
	}
	fn, err := g.memberSerializer(containerID, memberName, m)
	if err != nil {
		return nil, err
	}
	name := g.policy.WireName(memberName, m)
	return func(v interface{}, st *SerializeSettings) ([]byte, error) {
		n := NewXMLNode(name)
		if err := fn.Call(v, n, st); err != nil {
			return nil, err
		}
		return n.Encode(), nil
	}, nil
}

// DocumentSerializer: open content has no XML projection.
func (g *XMLGenerator) DocumentSerializer() (DocumentSerializer, error) {
	return nil, unsupported(g.policy.Protocol, "smithy.api#Document", "open content")
}
