package gen

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/boynton/data"
	gojson "github.com/goccy/go-json"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// jsonParseFn converts one decoded JSON node into the runtime value for
// one shape. Structures come back as *smithy.Builder; required-field
// validation happens later in Builder.Finish.
type jsonParseFn func(node interface{}) (interface{}, error)

func decodeJSONBody(body []byte) (interface{}, error) {
	dec := gojson.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed JSON body: %w", err)
	}
	return v, nil
}

func nodeNumber(node interface{}) (string, bool) {
	switch n := node.(type) {
	case json.Number:
		return string(n), true
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), true
	}
	return "", false
}

func jsonTimestampParse(format string) jsonParseFn {
	return func(node interface{}) (interface{}, error) {
		if format == smithy.TimestampEpochSeconds {
			if lit, ok := nodeNumber(node); ok {
				return smithy.ParseEpochSeconds(lit)
			}
		}
		s, ok := node.(string)
		if !ok {
			return nil, fmt.Errorf("expected %s timestamp, got %T", format, node)
		}
		return smithy.ParseTimestamp(s, format)
	}
}

func (g *JSONGenerator) shapeParser(shapeID string) (*Fn[jsonParseFn], error) {
	shape := g.s.model.GetShape(shapeID)
	if shape == nil {
		return nil, fmt.Errorf("no such shape: %s", shapeID)
	}
	key := FuncKey{ShapeID: shapeID, Role: RoleParse}
	return g.parsers.obtain(key, func(self *Fn[jsonParseFn]) (jsonParseFn, error) {
		switch shape.Type {
		case "string", "enum":
			return func(node interface{}) (interface{}, error) {
				s, ok := node.(string)
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected string, got %T", node))
				}
				return s, nil
			}, nil
		case "boolean":
			return func(node interface{}) (interface{}, error) {
				b, ok := node.(bool)
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected boolean, got %T", node))
				}
				return b, nil
			}, nil
		case "byte", "short", "integer", "long", "intEnum":
			return func(node interface{}) (interface{}, error) {
				lit, ok := nodeNumber(node)
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected number, got %T", node))
				}
				i, err := strconv.ParseInt(lit, 10, 64)
				if err != nil {
					return nil, parseErr(shapeID, fmt.Errorf("malformed integer %q", lit))
				}
				return i, nil
			}, nil
		case "float", "double":
			return func(node interface{}) (interface{}, error) {
				lit, ok := nodeNumber(node)
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected number, got %T", node))
				}
				f, err := strconv.ParseFloat(lit, 64)
				if err != nil {
					return nil, parseErr(shapeID, fmt.Errorf("malformed float %q", lit))
				}
				return f, nil
			}, nil
		case "bigInteger", "bigDecimal":
			return func(node interface{}) (interface{}, error) {
				lit, ok := nodeNumber(node)
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected number, got %T", node))
				}
				f, err := strconv.ParseFloat(lit, 64)
				if err != nil {
					return nil, parseErr(shapeID, fmt.Errorf("malformed number %q", lit))
				}
				return data.NewDecimal(f), nil
			}, nil
		case "blob":
			return func(node interface{}) (interface{}, error) {
				s, ok := node.(string)
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected base64 string, got %T", node))
				}
				b, err := base64.StdEncoding.DecodeString(s)
				if err != nil {
					return nil, parseErr(shapeID, err)
				}
				return b, nil
			}, nil
		case "timestamp":
			format := shape.StringTrait(smithy.TraitTimestampFormat)
			if format == "" {
				format = g.policy.TimestampDefault
			}
			return jsonTimestampParse(format), nil
		case "document":
			return func(node interface{}) (interface{}, error) {
				return smithy.DocumentFromAny(node)
			}, nil
		case "list", "set":
			elem, err := g.memberParser(shapeID, "member", shape.Member)
			if err != nil {
				return nil, err
			}
			return func(node interface{}) (interface{}, error) {
				items, ok := node.([]interface{})
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected array, got %T", node))
				}
				out := make([]interface{}, 0, len(items))
				for _, item := range items {
					v, err := elem.Call(item)
					if err != nil {
						return nil, err
					}
					out = append(out, v)
				}
				return out, nil
			}, nil
		case "map":
			val, err := g.memberParser(shapeID, "value", shape.Value)
			if err != nil {
				return nil, err
			}
			return func(node interface{}) (interface{}, error) {
				raw, ok := node.(map[string]interface{})
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected object, got %T", node))
				}
				obj, err := asOrderedObject(raw)
				if err != nil {
					return nil, parseErr(shapeID, err)
				}
				out := data.NewObject()
				for _, k := range obj.Keys() {
					v, err := val.Call(obj.Get(k))
					if err != nil {
						return nil, err
					}
					out.Put(k, v)
				}
				return out, nil
			}, nil
		case "structure":
			type fieldParser struct {
				name string
				wire string
				fn   *Fn[jsonParseFn]
			}
			var fields []fieldParser
			for _, name := range shape.Members.Keys() {
				m := shape.Members.Get(name)
				fn, err := g.memberParser(shapeID, name, m)
				if err != nil {
					return nil, err
				}
				fields = append(fields, fieldParser{name: name, wire: g.policy.WireName(name, m), fn: fn})
			}
			return func(node interface{}) (interface{}, error) {
				raw, ok := node.(map[string]interface{})
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected object, got %T", node))
				}
				b := smithy.NewBuilder(shapeID)
				for _, f := range fields {
					child, ok := raw[f.wire]
					if !ok || child == nil {
						//absent and explicit null decode identically
						continue
					}
					v, err := f.fn.Call(child)
					if err != nil {
						return nil, err
					}
					b.Set(f.name, v)
				}
				return b, nil
			}, nil
		case "union":
			type variantParser struct {
				name string
				wire string
				fn   *Fn[jsonParseFn]
			}
			var variants []variantParser
			for _, name := range shape.Members.Keys() {
				m := shape.Members.Get(name)
				fn, err := g.memberParser(shapeID, name, m)
				if err != nil {
					return nil, err
				}
				variants = append(variants, variantParser{name: name, wire: g.policy.WireName(name, m), fn: fn})
			}
			client := g.s.target == ClientTarget
			return func(node interface{}) (interface{}, error) {
				raw, ok := node.(map[string]interface{})
				if !ok {
					return nil, parseErr(shapeID, fmt.Errorf("expected object, got %T", node))
				}
				for _, vp := range variants {
					child, ok := raw[vp.wire]
					if !ok || child == nil {
						continue
					}
					v, err := vp.fn.Call(child)
					if err != nil {
						return nil, err
					}
					return smithy.NewUnion(vp.name, v), nil
				}
				if client {
					//an unrecognized variant is representable, but will
					//refuse to serialize again
					return smithy.UnknownUnion(), nil
				}
				return nil, parseErr(shapeID, fmt.Errorf("no recognized variant present"))
			}, nil
		default:
			return nil, unsupported(g.policy.Protocol, shapeID, "shape type "+shape.Type)
		}
	})
}

// memberParser mirrors memberSerializer: a wrapper memoized under the
// member path only when member traits change the wire decoding.
func (g *JSONGenerator) memberParser(containerID, memberName string, m *smithy.Member) (*Fn[jsonParseFn], error) {
	target, err := g.s.model.GetAst().ResolveMember(m)
	if err != nil {
		return nil, err
	}
	if target.Type != "timestamp" || !m.HasTrait(smithy.TraitTimestampFormat) {
		return g.shapeParser(m.Target)
	}
	key := FuncKey{ShapeID: containerID + "$" + memberName, Role: RoleParse}
	return g.parsers.obtain(key, func(self *Fn[jsonParseFn]) (jsonParseFn, error) {
		return jsonTimestampParse(g.policy.TimestampFormat(m, target)), nil
	})
}

// OperationParser decodes an operation's input document into a Builder.
// A zero-length body is treated exactly like the canonical empty object:
// missing-required errors, if any, surface later from Builder.Finish.
// Operations with an empty input structure get a nil parser, matching
// the nil serializer on the other side.
func (g *JSONGenerator) OperationParser(opID string) (OperationParser, error) {
	_, input, inputID, err := g.s.resolveOperation(opID)
	if err != nil {
		return nil, err
	}
	if input.Members.Length() == 0 {
		return nil, nil
	}
	return g.structBodyParser(inputID)
}

// OutputParser decodes an operation's output document (client side).
func (g *JSONGenerator) OutputParser(opID string) (OperationParser, error) {
	output, outputID, err := g.s.resolveOutput(opID)
	if err != nil {
		return nil, err
	}
	if output.Members.Length() == 0 {
		return nil, nil
	}
	return g.structBodyParser(outputID)
}

// ErrorParser decodes a modeled error structure body.
func (g *JSONGenerator) ErrorParser(errorID string) (ErrorParser, error) {
	shape := g.s.model.GetShape(errorID)
	if shape == nil || shape.Type != "structure" || !shape.HasTrait(smithy.TraitError) {
		return nil, fmt.Errorf("%s is not a modeled error structure", errorID)
	}
	p, err := g.structBodyParser(errorID)
	if err != nil {
		return nil, err
	}
	return ErrorParser(p), nil
}

func (g *JSONGenerator) structBodyParser(shapeID string) (OperationParser, error) {
	fn, err := g.shapeParser(shapeID)
	if err != nil {
		return nil, err
	}
	return func(body []byte) (*smithy.Builder, error) {
		var node interface{}
		if len(bytes.TrimSpace(body)) == 0 {
			node = map[string]interface{}{}
		} else {
			var err error
			node, err = decodeJSONBody(body)
			if err != nil {
				return nil, parseErr(shapeID, err)
			}
		}
		v, err := fn.Call(node)
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

// PayloadParser decodes a single body-bound member.
func (g *JSONGenerator) PayloadParser(containerID, memberName string) (PayloadParser, error) {
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
	isStruct := target.Type == "structure" || target.Type == "union" || target.Type == "map" || target.Type == "document"
	return func(body []byte) (interface{}, error) {
		var node interface{}
		if len(bytes.TrimSpace(body)) == 0 && isStruct {
			node = map[string]interface{}{}
		} else {
			var err error
			node, err = decodeJSONBody(body)
			if err != nil {
				return nil, parseErr(m.Target, err)
			}
		}
		return fn.Call(node)
	}, nil
}

// DocumentParser decodes untyped open content; an empty body is null.
func (g *JSONGenerator) DocumentParser() (DocumentParser, error) {
	return func(body []byte) (*smithy.Document, error) {
		if len(bytes.TrimSpace(body)) == 0 {
			return smithy.NullDocument(), nil
		}
		node, err := decodeJSONBody(body)
		if err != nil {
			return nil, err
		}
		return smithy.DocumentFromAny(node)
	}, nil
}
