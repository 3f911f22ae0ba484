package gen

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"

	"github.com/boynton/data"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// QueryWriter accumulates form-encoded key=value pairs in insertion
// order. url.Values would sort on encode, losing the model-order
// determinism the other writers keep.
type QueryWriter struct {
	keys   []string
	values []string
}

func NewQueryWriter() *QueryWriter {
	return &QueryWriter{}
}

func (w *QueryWriter) Add(key, value string) {
	w.keys = append(w.keys, key)
	w.values = append(w.values, value)
}

func (w *QueryWriter) Encode() []byte {
	var buf bytes.Buffer
	for i, k := range w.keys {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(k))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(w.values[i]))
	}
	return buf.Bytes()
}

func (w *QueryWriter) String() string {
	return string(w.Encode())
}

// querySerFn writes one value under one key prefix. List elements and
// map entries extend the prefix with 1-based indexes.
type querySerFn func(v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error

// QueryGenerator serializes the form-encoded query protocols. One
// instance runs with the AWS-Query policy, a second with the EC2 policy
// (capitalized members, unconditional flattening). The serialize side is
// the protocol; responses are XML and parse through the XML generator.
type QueryGenerator struct {
	s      *Session
	policy *Policy
	sers   *memoTable[querySerFn]
}

func newQueryGenerator(s *Session, policy *Policy) *QueryGenerator {
	return &QueryGenerator{
		s:      s,
		policy: policy,
		sers:   newMemoTable[querySerFn](),
	}
}

func (g *QueryGenerator) Protocol() string {
	return g.policy.Protocol
}

func (g *QueryGenerator) PayloadMediaType() string {
	return "application/x-www-form-urlencoded"
}

// SerializerHandle exposes the memoized per-shape function identity.
func (g *QueryGenerator) SerializerHandle(shapeID string) (*Fn[querySerFn], error) {
	return g.shapeSerializer(shapeID)
}

func maybeRedactQuery(inner querySerFn) querySerFn {
	return func(v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error {
		if st != nil && st.RedactSensitive {
			w.Add(prefix, RedactionMarker)
			return nil
		}
		return inner(v, w, prefix, st)
	}
}

func queryTextSer(targetType, tsFormat string) querySerFn {
	text := scalarText(targetType, tsFormat)
	return func(v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error {
		s, err := text(v)
		if err != nil {
			return err
		}
		w.Add(prefix, s)
		return nil
	}
}

func (g *QueryGenerator) shapeSerializer(shapeID string) (*Fn[querySerFn], error) {
	shape := g.s.model.GetShape(shapeID)
	if shape == nil {
		return nil, fmt.Errorf("no such shape: %s", shapeID)
	}
	key := FuncKey{ShapeID: shapeID, Role: RoleSerialize}
	return g.sers.obtain(key, func(self *Fn[querySerFn]) (querySerFn, error) {
		switch shape.Type {
		case "string", "enum", "boolean", "byte", "short", "integer", "long",
			"intEnum", "float", "double", "bigInteger", "bigDecimal", "blob":
			return queryTextSer(shape.Type, ""), nil
		case "timestamp":
			format := shape.StringTrait(smithy.TraitTimestampFormat)
			if format == "" {
				format = g.policy.TimestampDefault
			}
			return queryTextSer(shape.Type, format), nil
		case "list", "set":
			elem, err := g.memberSerializer(shapeID, "member", shape.Member)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error {
				items, err := asList(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				for i, item := range items {
					p := prefix + "." + strconv.Itoa(i+1)
					if err := elem.Call(item, w, p, st); err != nil {
						return err
					}
				}
				return nil
			}, nil
		case "map":
			keyName, valName := mapPairNames(shape)
			val, err := g.memberSerializer(shapeID, "value", shape.Value)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error {
				obj, err := asOrderedObject(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				i := 0
				for _, k := range obj.Keys() {
					i++
					p := prefix + "." + strconv.Itoa(i)
					w.Add(p+"."+keyName, k)
					if err := val.Call(obj.Get(k), w, p+"."+valName, st); err != nil {
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
			return func(v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error {
				return g.writeFields(fields, v, w, prefix, st)
			}, nil
		case "union":
			variants, err := g.unionVariants(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error {
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
				return variant.fn.Call(u.Value, w, joinPrefix(prefix, variant.wire), st)
			}, nil
		default:
			return nil, unsupported(g.policy.Protocol, shapeID, "shape type "+shape.Type)
		}
	})
}

func mapPairNames(shape *smithy.Shape) (string, string) {
	keyName := shape.Key.StringTrait(smithy.TraitXmlName)
	if keyName == "" {
		keyName = "key"
	}
	valName := shape.Value.StringTrait(smithy.TraitXmlName)
	if valName == "" {
		valName = "value"
	}
	return keyName, valName
}

func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// queryField is one precomputed structure member. Non-flattened
// collections get an extra "member"/"entry" path segment between the
// member key and the index; flattened ones index directly.
type queryField struct {
	name     string
	wire     string
	expr     ValueExpr
	fn       *Fn[querySerFn]
	infix    string //"" flattened or non-collection, else "member"/"entry"
	suppress bool
}

func (g *QueryGenerator) structFields(shapeID string, shape *smithy.Shape) ([]queryField, error) {
	var fields []queryField
	for _, name := range shape.Members.Keys() {
		m := shape.Members.Get(name)
		target, err := g.s.model.GetAst().ResolveMember(m)
		if err != nil {
			return nil, err
		}
		fn, err := g.memberSerializer(shapeID, name, m)
		if err != nil {
			return nil, err
		}
		f := queryField{
			name:     name,
			wire:     g.policy.WireName(name, m),
			expr:     MemberExpr(name),
			fn:       fn,
			suppress: g.policy.SuppressZero(m, target, false),
		}
		if !g.policy.Flattened(m) {
			switch target.Type {
			case "list", "set":
				f.infix = target.Member.StringTrait(smithy.TraitXmlName)
				if f.infix == "" {
					f.infix = "member"
				}
			case "map":
				f.infix = "entry"
			}
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (g *QueryGenerator) writeFields(fields []queryField, v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error {
	for _, f := range fields {
		value, present := f.expr.Get(v)
		if !present {
			continue
		}
		if f.suppress && IsZeroValue(value) {
			continue
		}
		p := joinPrefix(prefix, f.wire)
		if f.infix != "" {
			p = p + "." + f.infix
		}
		if err := f.fn.Call(value, w, p, st); err != nil {
			return err
		}
	}
	return nil
}

type queryVariant struct {
	wire string
	fn   *Fn[querySerFn]
}

func (g *QueryGenerator) unionVariants(shapeID string, shape *smithy.Shape) (map[string]queryVariant, error) {
	variants := make(map[string]queryVariant, shape.Members.Length())
	for _, name := range shape.Members.Keys() {
		m := shape.Members.Get(name)
		fn, err := g.memberSerializer(shapeID, name, m)
		if err != nil {
			return nil, err
		}
		variants[name] = queryVariant{wire: g.policy.WireName(name, m), fn: fn}
	}
	return variants, nil
}

func (g *QueryGenerator) memberSerializer(containerID, memberName string, m *smithy.Member) (*Fn[querySerFn], error) {
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
	return g.sers.obtain(key, func(self *Fn[querySerFn]) (querySerFn, error) {
		var inner querySerFn
		if target.Type == "timestamp" {
			inner = queryTextSer(target.Type, g.policy.TimestampFormat(m, target))
		} else {
			base, err := g.shapeSerializer(m.Target)
			if err != nil {
				return nil, err
			}
			inner = func(v interface{}, w *QueryWriter, prefix string, st *SerializeSettings) error {
				return base.Call(v, w, prefix, st)
			}
		}
		if sensitive {
			inner = maybeRedactQuery(inner)
		}
		return inner, nil
	})
}

// OperationSerializer encodes an operation's input as a form body with
// the protocol's Action and Version keys leading.
func (g *QueryGenerator) OperationSerializer(opID string) (OperationSerializer, error) {
	_, input, inputID, err := g.s.resolveOperation(opID)
	if err != nil {
		return nil, err
	}
	fields, err := g.structFields(inputID, input)
	if err != nil {
		return nil, err
	}
	fields = filterFields(fields, docBoundMembers(input))
	action := localName(opID)
	version := g.serviceVersion()
	return func(input *data.Object, st *SerializeSettings) ([]byte, error) {
		w := NewQueryWriter()
		w.Add("Action", action)
		if version != "" {
			w.Add("Version", version)
		}
		if err := g.writeFields(fields, input, w, "", st); err != nil {
			return nil, err
		}
		return w.Encode(), nil
	}, nil
}

func filterFields(fields []queryField, names []string) []queryField {
	var out []queryField
	for _, f := range fields {
		for _, name := range names {
			if f.name == name {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func (g *QueryGenerator) serviceVersion() string {
	serviceID := g.s.model.ServiceID()
	if serviceID == "" {
		return ""
	}
	service := g.s.model.GetShape(serviceID)
	if service == nil {
		return ""
	}
	return service.Version
}

// ServerOutputSerializer renders the XML response document with the
// Response/Result wrapper convention.
func (g *QueryGenerator) ServerOutputSerializer(opID string) (OperationSerializer, error) {
	return g.s.xml.wrappedOutputSerializer(opID)
}

// ServerErrorSerializer renders the XML error response document.
func (g *QueryGenerator) ServerErrorSerializer(errorID string) (OperationSerializer, error) {
	shape := g.s.model.GetShape(errorID)
	if shape == nil || shape.Type != "structure" || !shape.HasTrait(smithy.TraitError) {
		return nil, fmt.Errorf("%s is not a modeled error structure", errorID)
	}
	inner, err := g.s.xml.bodySerializer(errorID, shape, docBoundMembers(shape), "Error", "")
	if err != nil {
		return nil, err
	}
	code := localName(errorID)
	fault := shape.StringTrait(smithy.TraitError)
	if fault != "server" {
		fault = "Sender"
	} else {
		fault = "Receiver"
	}
	return func(input *data.Object, st *SerializeSettings) ([]byte, error) {
		n := NewXMLNode("ErrorResponse")
		e := n.Child("Error")
		e.Child("Type").Text = fault
		e.Child("Code").Text = code
		if inner != nil {
			body, err := inner(input, st)
			if err != nil {
				return nil, err
			}
			detail, err := DecodeXMLNode(body)
			if err != nil {
				return nil, err
			}
			e.Children = append(e.Children, detail.Children...)
			e.Attrs = append(e.Attrs, detail.Attrs...)
		}
		return n.Encode(), nil
	}, nil
}

// PayloadSerializer encodes a single member under its wire name.
func (g *QueryGenerator) PayloadSerializer(containerID, memberName string) (PayloadSerializer, error) {
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
		w := NewQueryWriter()
		if err := fn.Call(v, w, name, st); err != nil {
			return nil, err
		}
		return w.Encode(), nil
	}, nil
}

// DocumentSerializer: open content has no form-encoded projection.
func (g *QueryGenerator) DocumentSerializer() (DocumentSerializer, error) {
	return nil, unsupported(g.policy.Protocol, "smithy.api#Document", "open content")
}

// The query protocols are request-only on this side; responses are XML.
func (g *QueryGenerator) OperationParser(opID string) (OperationParser, error) {
	return nil, unsupported(g.policy.Protocol, opID, "form-encoded parse")
}

func (g *QueryGenerator) ErrorParser(errorID string) (ErrorParser, error) {
	return nil, unsupported(g.policy.Protocol, errorID, "form-encoded parse")
}

func (g *QueryGenerator) PayloadParser(containerID, memberName string) (PayloadParser, error) {
	return nil, unsupported(g.policy.Protocol, containerID+"$"+memberName, "form-encoded parse")
}

func (g *QueryGenerator) DocumentParser() (DocumentParser, error) {
	return nil, unsupported(g.policy.Protocol, "smithy.api#Document", "open content")
}
