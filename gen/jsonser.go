package gen

import (
	"fmt"
	"time"

	"github.com/boynton/data"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// jsonSerFn writes one value of one shape into a JSONWriter. Settings are
// consulted at call time; the same function serves every caller.
type jsonSerFn func(v interface{}, w *JSONWriter, st *SerializeSettings) error

type JSONGenerator struct {
	s       *Session
	policy  *Policy
	sers    *memoTable[jsonSerFn]
	parsers *memoTable[jsonParseFn]
}

func newJSONGenerator(s *Session) *JSONGenerator {
	return &JSONGenerator{
		s:       s,
		policy:  JSONPolicy,
		sers:    newMemoTable[jsonSerFn](),
		parsers: newMemoTable[jsonParseFn](),
	}
}

func (g *JSONGenerator) Protocol() string {
	return g.policy.Protocol
}

func (g *JSONGenerator) PayloadMediaType() string {
	return "application/json"
}

// SerializerHandle exposes the memoized per-shape function identity;
// two member paths reaching the same shape share one handle.
func (g *JSONGenerator) SerializerHandle(shapeID string) (*Fn[jsonSerFn], error) {
	return g.shapeSerializer(shapeID)
}

func maybeRedactJSON(inner jsonSerFn) jsonSerFn {
	return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
		if st != nil && st.RedactSensitive {
			return w.WriteString(RedactionMarker)
		}
		return inner(v, w, st)
	}
}

func jsonTimestampSer(format string) jsonSerFn {
	return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected timestamp, got %T", v)
		}
		if format == smithy.TimestampEpochSeconds {
			return w.WriteRawNumber(smithy.FormatEpochSeconds(t))
		}
		s, err := smithy.FormatTimestamp(t, format)
		if err != nil {
			return err
		}
		return w.WriteString(s)
	}
}

func (g *JSONGenerator) shapeSerializer(shapeID string) (*Fn[jsonSerFn], error) {
	shape := g.s.model.GetShape(shapeID)
	if shape == nil {
		return nil, fmt.Errorf("no such shape: %s", shapeID)
	}
	key := FuncKey{ShapeID: shapeID, Role: RoleSerialize}
	return g.sers.obtain(key, func(self *Fn[jsonSerFn]) (jsonSerFn, error) {
		switch shape.Type {
		case "string", "enum":
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				s, err := asString(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				return w.WriteString(s)
			}, nil
		case "boolean":
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				b, err := asBool(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				return w.WriteBool(b)
			}, nil
		case "byte", "short", "integer", "long", "intEnum":
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				i, err := asInt64(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				if i < 0 {
					return w.WriteNegInt(i)
				}
				return w.WritePosInt(uint64(i))
			}, nil
		case "float", "double":
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				f, err := asFloat64(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				if err := w.WriteFloat(f); err != nil {
					return serializeErr(shapeID, err)
				}
				return nil
			}, nil
		case "bigInteger", "bigDecimal":
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				d := data.AsDecimal(v)
				if d == nil {
					return serializeErr(shapeID, fmt.Errorf("expected decimal, got %T", v))
				}
				return w.WriteRawNumber(fmt.Sprintf("%v", d))
			}, nil
		case "blob":
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				b, err := blobBytes(v)
				if err != nil {
					return err
				}
				return w.WriteBase64(b)
			}, nil
		case "timestamp":
			format := shape.StringTrait(smithy.TraitTimestampFormat)
			if format == "" {
				format = g.policy.TimestampDefault
			}
			return jsonTimestampSer(format), nil
		case "document":
			return g.documentSerFn()
		case "list", "set":
			elem, err := g.memberSerializer(shapeID, "member", shape.Member)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				items, err := asList(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				w.BeginArray()
				for _, item := range items {
					if err := elem.Call(item, w, st); err != nil {
						return err
					}
				}
				w.EndArray()
				return nil
			}, nil
		case "map":
			val, err := g.memberSerializer(shapeID, "value", shape.Value)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				obj, err := asOrderedObject(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				w.BeginObject()
				for _, k := range obj.Keys() {
					if err := w.Key(k); err != nil {
						return err
					}
					if err := val.Call(obj.Get(k), w, st); err != nil {
						return err
					}
				}
				w.EndObject()
				return nil
			}, nil
		case "structure":
			fields, err := g.structFields(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				w.BeginObject()
				if err := g.writeFields(fields, v, w, st); err != nil {
					return err
				}
				w.EndObject()
				return nil
			}, nil
		case "union":
			variants, err := g.unionVariants(shapeID, shape)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
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
				w.BeginObject()
				if err := w.Key(variant.wire); err != nil {
					return err
				}
				if err := variant.fn.Call(u.Value, w, st); err != nil {
					return err
				}
				w.EndObject()
				return nil
			}, nil
		default:
			return nil, unsupported(g.policy.Protocol, shapeID, "shape type "+shape.Type)
		}
	})
}

// jsonField is one precomputed structure member: resolved wire name,
// value expression, serializer handle, and the zero-suppression decision.
type jsonField struct {
	name     string
	wire     string
	expr     ValueExpr
	fn       *Fn[jsonSerFn]
	suppress bool
}

type jsonVariant struct {
	wire string
	fn   *Fn[jsonSerFn]
}

func (g *JSONGenerator) structFields(shapeID string, shape *smithy.Shape) ([]jsonField, error) {
	var fields []jsonField
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
		fields = append(fields, jsonField{
			name:     name,
			wire:     g.policy.WireName(name, m),
			expr:     MemberExpr(name),
			fn:       fn,
			suppress: g.policy.SuppressZero(m, target, false),
		})
	}
	return fields, nil
}

func (g *JSONGenerator) writeFields(fields []jsonField, v interface{}, w *JSONWriter, st *SerializeSettings) error {
	for _, f := range fields {
		value, present := f.expr.Get(v)
		if !present {
			continue
		}
		if f.suppress && IsZeroValue(value) {
			continue
		}
		if err := w.Key(f.wire); err != nil {
			return err
		}
		if err := f.fn.Call(value, w, st); err != nil {
			return err
		}
	}
	return nil
}

func (g *JSONGenerator) unionVariants(shapeID string, shape *smithy.Shape) (map[string]jsonVariant, error) {
	variants := make(map[string]jsonVariant, shape.Members.Length())
	for _, name := range shape.Members.Keys() {
		m := shape.Members.Get(name)
		fn, err := g.memberSerializer(shapeID, name, m)
		if err != nil {
			return nil, err
		}
		variants[name] = jsonVariant{wire: g.policy.WireName(name, m), fn: fn}
	}
	return variants, nil
}

// memberSerializer resolves the function for one member. Members whose
// traits change the wire encoding (sensitivity, timestamp format) get a
// wrapper function memoized under the member path, so the wrapper too is
// generated at most once; trait-free members share the plain target
// shape function.
func (g *JSONGenerator) memberSerializer(containerID, memberName string, m *smithy.Member) (*Fn[jsonSerFn], error) {
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
	return g.sers.obtain(key, func(self *Fn[jsonSerFn]) (jsonSerFn, error) {
		var inner jsonSerFn
		if target.Type == "timestamp" {
			inner = jsonTimestampSer(g.policy.TimestampFormat(m, target))
		} else {
			base, err := g.shapeSerializer(m.Target)
			if err != nil {
				return nil, err
			}
			inner = func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				return base.Call(v, w, st)
			}
		}
		if sensitive {
			inner = maybeRedactJSON(inner)
		}
		return inner, nil
	})
}

func (g *JSONGenerator) documentSerFn() (jsonSerFn, error) {
	h, err := g.sers.obtain(FuncKey{ShapeID: "smithy.api#Document", Role: RoleDocument},
		func(self *Fn[jsonSerFn]) (jsonSerFn, error) {
			return func(v interface{}, w *JSONWriter, st *SerializeSettings) error {
				d, ok := v.(*smithy.Document)
				if !ok {
					return fmt.Errorf("expected document, got %T", v)
				}
				return writeDocument(d, w, self, st)
			}, nil
		})
	if err != nil {
		return nil, err
	}
	return h.Call, nil
}

func writeDocument(d *smithy.Document, w *JSONWriter, self *Fn[jsonSerFn], st *SerializeSettings) error {
	switch d.Kind {
	case smithy.DocumentNull:
		return w.WriteNull()
	case smithy.DocumentBool:
		return w.WriteBool(d.Bool)
	case smithy.DocumentString:
		return w.WriteString(d.Str)
	case smithy.DocumentFloat:
		return w.WriteFloat(d.Float)
	case smithy.DocumentNegInt:
		return w.WriteNegInt(d.Int)
	case smithy.DocumentPosInt:
		return w.WritePosInt(d.Uint)
	case smithy.DocumentArray:
		w.BeginArray()
		for _, e := range d.Array {
			if err := self.Call(e, w, st); err != nil {
				return err
			}
		}
		w.EndArray()
		return nil
	case smithy.DocumentObject:
		w.BeginObject()
		for _, k := range d.Obj.Keys() {
			if err := w.Key(k); err != nil {
				return err
			}
			e, _ := d.Obj.Get(k).(*smithy.Document)
			if err := self.Call(e, w, st); err != nil {
				return err
			}
		}
		w.EndObject()
		return nil
	}
	return fmt.Errorf("unknown document kind %d", d.Kind)
}

// OperationSerializer encodes the document-bound members of an
// operation's input. Returns (nil, nil) when no member is body-bound:
// the protocol sends an empty body.
func (g *JSONGenerator) OperationSerializer(opID string) (OperationSerializer, error) {
	_, input, inputID, err := g.s.resolveOperation(opID)
	if err != nil {
		return nil, err
	}
	return g.bodySerializer(inputID, input, docBoundMembers(input), nil)
}

// ServerOutputSerializer mirrors OperationSerializer for an operation's
// output structure.
func (g *JSONGenerator) ServerOutputSerializer(opID string) (OperationSerializer, error) {
	output, outputID, err := g.s.resolveOutput(opID)
	if err != nil {
		return nil, err
	}
	return g.bodySerializer(outputID, output, docBoundMembers(output), nil)
}

// ServerErrorSerializer encodes a modeled error structure, tagging the
// body with the error's type name.
func (g *JSONGenerator) ServerErrorSerializer(errorID string) (OperationSerializer, error) {
	shape := g.s.model.GetShape(errorID)
	if shape == nil || shape.Type != "structure" || !shape.HasTrait(smithy.TraitError) {
		return nil, fmt.Errorf("%s is not a modeled error structure", errorID)
	}
	typeTag := errorID
	return g.bodySerializer(errorID, shape, docBoundMembers(shape), &typeTag)
}

func (g *JSONGenerator) bodySerializer(shapeID string, shape *smithy.Shape, names []string, typeTag *string) (OperationSerializer, error) {
	if len(names) == 0 && typeTag == nil {
		return nil, nil
	}
	var fields []jsonField
	for _, name := range names {
		m := shape.Members.Get(name)
		target, err := g.s.model.GetAst().ResolveMember(m)
		if err != nil {
			return nil, err
		}
		fn, err := g.memberSerializer(shapeID, name, m)
		if err != nil {
			return nil, err
		}
		fields = append(fields, jsonField{
			name:     name,
			wire:     g.policy.WireName(name, m),
			expr:     MemberExpr(name),
			fn:       fn,
			suppress: g.policy.SuppressZero(m, target, false),
		})
	}
	return func(input *data.Object, st *SerializeSettings) ([]byte, error) {
		w := NewJSONWriter()
		w.BeginObject()
		if typeTag != nil {
			if err := w.Key("__type"); err != nil {
				return nil, err
			}
			if err := w.WriteString(*typeTag); err != nil {
				return nil, err
			}
		}
		if err := g.writeFields(fields, input, w, st); err != nil {
			return nil, err
		}
		w.EndObject()
		return w.Bytes(), nil
	}, nil
}

// PayloadSerializer encodes a single member bound as the wire body.
func (g *JSONGenerator) PayloadSerializer(containerID, memberName string) (PayloadSerializer, error) {
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
	return func(v interface{}, st *SerializeSettings) ([]byte, error) {
		w := NewJSONWriter()
		if err := fn.Call(v, w, st); err != nil {
			return nil, err
		}
		return w.Bytes(), nil
	}, nil
}

// DocumentSerializer encodes an untyped open-content value.
func (g *JSONGenerator) DocumentSerializer() (DocumentSerializer, error) {
	fn, err := g.documentSerFn()
	if err != nil {
		return nil, err
	}
	return func(d *smithy.Document, st *SerializeSettings) ([]byte, error) {
		w := NewJSONWriter()
		if err := fn(d, w, st); err != nil {
			return nil, err
		}
		return w.Bytes(), nil
	}, nil
}
