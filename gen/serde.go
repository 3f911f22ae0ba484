package gen

import (
	"fmt"
	"math"
	"time"

	"github.com/boynton/data"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// ValueSerializer is the generic sink driven by the settings-aware
// serializer walk. One sink implementation per target format; the walk
// itself is format-neutral and generated once per shape.
type ValueSerializer interface {
	SerializeNull() error
	SerializeBool(b bool) error
	SerializeString(s string) error
	SerializeBytes(b []byte) error
	SerializeNegInt(i int64) error
	SerializePosInt(u uint64) error
	SerializeFloat(f float64) error
	SerializeTimestamp(t time.Time, format string) error

	BeginStruct(name string) error
	FieldName(name string) error
	EndStruct() error

	BeginList(size int) error
	EndList() error

	BeginMap(size int) error
	MapKey(k string) error
	EndMap() error

	BeginVariant(name string) error
	EndVariant() error
}

// SerdeSettings parameterizes one serialization call. The generated
// functions read it at call time, so one function serves every
// combination.
type SerdeSettings struct {
	RedactSensitive bool

	//serialize NaN and the infinities as the literal strings "NaN",
	//"Infinity", "-Infinity" instead of failing
	OutOfRangeFloatsAsStrings bool
}

type serdeFn func(v interface{}, dst ValueSerializer, st *SerdeSettings) error

// SerdeGenerator compiles the protocol-neutral serializer walk. Names on
// the wire are model member names; protocol renames do not apply here.
type SerdeGenerator struct {
	s   *Session
	fns *memoTable[serdeFn]
}

func newSerdeGenerator(s *Session) *SerdeGenerator {
	return &SerdeGenerator{s: s, fns: newMemoTable[serdeFn]()}
}

// SerializerHandle exposes the memoized per-shape function identity.
func (g *SerdeGenerator) SerializerHandle(shapeID string) (*Fn[serdeFn], error) {
	return g.shapeSerializer(shapeID)
}

// Bound pairs a compiled serializer with a borrowed value, ready to
// drive any sink. The value is referenced, never copied.
type Bound struct {
	fn    *Fn[serdeFn]
	value interface{}
}

// Bind borrows v for later serialization against the given shape.
func (g *SerdeGenerator) Bind(shapeID string, v interface{}) (*Bound, error) {
	fn, err := g.shapeSerializer(shapeID)
	if err != nil {
		return nil, err
	}
	return &Bound{fn: fn, value: v}, nil
}

func (b *Bound) Serialize(dst ValueSerializer, st *SerdeSettings) error {
	return b.fn.Call(b.value, dst, st)
}

func maybeRedactSerde(inner serdeFn) serdeFn {
	return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
		if st != nil && st.RedactSensitive {
			return dst.SerializeString(RedactionMarker)
		}
		return inner(v, dst, st)
	}
}

func serdeFloat(f float64, dst ValueSerializer, st *SerdeSettings) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		if st == nil || !st.OutOfRangeFloatsAsStrings {
			return fmt.Errorf("cannot serialize non-finite float %v", f)
		}
		switch {
		case math.IsNaN(f):
			return dst.SerializeString("NaN")
		case f > 0:
			return dst.SerializeString("Infinity")
		default:
			return dst.SerializeString("-Infinity")
		}
	}
	return dst.SerializeFloat(f)
}

func serdeTimestamp(format string) serdeFn {
	return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected timestamp, got %T", v)
		}
		return dst.SerializeTimestamp(t, format)
	}
}

func (g *SerdeGenerator) shapeSerializer(shapeID string) (*Fn[serdeFn], error) {
	shape := g.s.model.GetShape(shapeID)
	if shape == nil {
		return nil, fmt.Errorf("no such shape: %s", shapeID)
	}
	key := FuncKey{ShapeID: shapeID, Role: RoleSerde}
	return g.fns.obtain(key, func(self *Fn[serdeFn]) (serdeFn, error) {
		switch shape.Type {
		case "string", "enum":
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				s, err := asString(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				return dst.SerializeString(s)
			}, nil
		case "boolean":
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				b, err := asBool(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				return dst.SerializeBool(b)
			}, nil
		case "byte", "short", "integer", "long", "intEnum":
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				i, err := asInt64(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				if i < 0 {
					return dst.SerializeNegInt(i)
				}
				return dst.SerializePosInt(uint64(i))
			}, nil
		case "float", "double":
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				f, err := asFloat64(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				return serdeFloat(f, dst, st)
			}, nil
		case "bigInteger", "bigDecimal":
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				d := data.AsDecimal(v)
				if d == nil {
					return serializeErr(shapeID, fmt.Errorf("expected decimal, got %T", v))
				}
				return dst.SerializeString(fmt.Sprintf("%v", d))
			}, nil
		case "blob":
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				b, err := blobBytes(v)
				if err != nil {
					return err
				}
				return dst.SerializeBytes(b)
			}, nil
		case "timestamp":
			format := shape.StringTrait(smithy.TraitTimestampFormat)
			if format == "" {
				format = smithy.TimestampDateTime
			}
			return serdeTimestamp(format), nil
		case "document":
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				d, ok := v.(*smithy.Document)
				if !ok {
					return serializeErr(shapeID, fmt.Errorf("expected document, got %T", v))
				}
				return serdeDocument(d, dst, st)
			}, nil
		case "list", "set":
			elem, err := g.memberSerializer(shapeID, "member", shape.Member)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				items, err := asList(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				if err := dst.BeginList(len(items)); err != nil {
					return err
				}
				for _, item := range items {
					if err := elem.Call(item, dst, st); err != nil {
						return err
					}
				}
				return dst.EndList()
			}, nil
		case "map":
			val, err := g.memberSerializer(shapeID, "value", shape.Value)
			if err != nil {
				return nil, err
			}
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				obj, err := asOrderedObject(v)
				if err != nil {
					return serializeErr(shapeID, err)
				}
				if err := dst.BeginMap(obj.Length()); err != nil {
					return err
				}
				for _, k := range obj.Keys() {
					if err := dst.MapKey(k); err != nil {
						return err
					}
					if err := val.Call(obj.Get(k), dst, st); err != nil {
						return err
					}
				}
				return dst.EndMap()
			}, nil
		case "structure":
			type serdeField struct {
				name string
				expr ValueExpr
				fn   *Fn[serdeFn]
			}
			var fields []serdeField
			for _, name := range shape.Members.Keys() {
				m := shape.Members.Get(name)
				fn, err := g.memberSerializer(shapeID, name, m)
				if err != nil {
					return nil, err
				}
				fields = append(fields, serdeField{name: name, expr: MemberExpr(name), fn: fn})
			}
			structName := localName(shapeID)
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				if err := dst.BeginStruct(structName); err != nil {
					return err
				}
				for _, f := range fields {
					value, present := f.expr.Get(v)
					if !present {
						continue
					}
					if err := dst.FieldName(f.name); err != nil {
						return err
					}
					if err := f.fn.Call(value, dst, st); err != nil {
						return err
					}
				}
				return dst.EndStruct()
			}, nil
		case "union":
			variants := make(map[string]*Fn[serdeFn], shape.Members.Length())
			for _, name := range shape.Members.Keys() {
				m := shape.Members.Get(name)
				fn, err := g.memberSerializer(shapeID, name, m)
				if err != nil {
					return nil, err
				}
				variants[name] = fn
			}
			return func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				u, ok := v.(*smithy.Union)
				if !ok {
					return serializeErr(shapeID, fmt.Errorf("expected union, got %T", v))
				}
				if !u.Known() {
					return &UnknownVariantError{ShapeID: shapeID}
				}
				fn, ok := variants[u.Tag]
				if !ok {
					return serializeErr(shapeID, fmt.Errorf("no such variant: %s", u.Tag))
				}
				if err := dst.BeginVariant(u.Tag); err != nil {
					return err
				}
				if err := fn.Call(u.Value, dst, st); err != nil {
					return err
				}
				return dst.EndVariant()
			}, nil
		default:
			return nil, unsupported("serde", shapeID, "shape type "+shape.Type)
		}
	})
}

func (g *SerdeGenerator) memberSerializer(containerID, memberName string, m *smithy.Member) (*Fn[serdeFn], error) {
	target, err := g.s.model.GetAst().ResolveMember(m)
	if err != nil {
		return nil, err
	}
	sensitive := smithy.Sensitive(m, target)
	tsOverride := target.Type == "timestamp" && m.HasTrait(smithy.TraitTimestampFormat)
	if !sensitive && !tsOverride {
		return g.shapeSerializer(m.Target)
	}
	key := FuncKey{ShapeID: containerID + "$" + memberName, Role: RoleSerde}
	return g.fns.obtain(key, func(self *Fn[serdeFn]) (serdeFn, error) {
		var inner serdeFn
		if tsOverride {
			inner = serdeTimestamp(smithy.ResolveTimestampFormat(m, target, smithy.TimestampDateTime))
		} else {
			base, err := g.shapeSerializer(m.Target)
			if err != nil {
				return nil, err
			}
			inner = func(v interface{}, dst ValueSerializer, st *SerdeSettings) error {
				return base.Call(v, dst, st)
			}
		}
		if sensitive {
			inner = maybeRedactSerde(inner)
		}
		return inner, nil
	})
}

func serdeDocument(d *smithy.Document, dst ValueSerializer, st *SerdeSettings) error {
	switch d.Kind {
	case smithy.DocumentNull:
		return dst.SerializeNull()
	case smithy.DocumentBool:
		return dst.SerializeBool(d.Bool)
	case smithy.DocumentString:
		return dst.SerializeString(d.Str)
	case smithy.DocumentFloat:
		return serdeFloat(d.Float, dst, st)
	case smithy.DocumentNegInt:
		return dst.SerializeNegInt(d.Int)
	case smithy.DocumentPosInt:
		return dst.SerializePosInt(d.Uint)
	case smithy.DocumentArray:
		if err := dst.BeginList(len(d.Array)); err != nil {
			return err
		}
		for _, e := range d.Array {
			if err := serdeDocument(e, dst, st); err != nil {
				return err
			}
		}
		return dst.EndList()
	case smithy.DocumentObject:
		if err := dst.BeginMap(d.Obj.Length()); err != nil {
			return err
		}
		for _, k := range d.Obj.Keys() {
			if err := dst.MapKey(k); err != nil {
				return err
			}
			e, _ := d.Obj.Get(k).(*smithy.Document)
			if err := serdeDocument(e, dst, st); err != nil {
				return err
			}
		}
		return dst.EndMap()
	}
	return fmt.Errorf("unknown document kind %d", d.Kind)
}
