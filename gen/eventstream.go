package gen

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/protocol/eventstream"
	"github.com/boynton/data"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// EventMarshaller converts one event-stream union value into a framed
// message: type headers, modeled headers, and a typed payload. Framing
// onto a transport is the caller's concern.
type EventMarshaller func(event *smithy.Union, st *SerializeSettings) (eventstream.Message, error)

// eventBodySerializer is the slice of a protocol generator the
// event-stream marshaller needs for structured payloads. The query
// generators do not implement it; events are JSON or XML framed.
type eventBodySerializer interface {
	PayloadMediaType() string
	PayloadSerializer(containerID, memberName string) (PayloadSerializer, error)
	eventBody(shapeID string, shape *smithy.Shape, names []string) (OperationSerializer, error)
}

func (g *JSONGenerator) eventBody(shapeID string, shape *smithy.Shape, names []string) (OperationSerializer, error) {
	return g.bodySerializer(shapeID, shape, names, nil)
}

func (g *XMLGenerator) eventBody(shapeID string, shape *smithy.Shape, names []string) (OperationSerializer, error) {
	return g.bodySerializer(shapeID, shape, names, rootName(shapeID, shape), "")
}

// eventVariant is one precomputed union variant: the headers it sets and
// the payload encoding it uses.
type eventVariant struct {
	exception   bool
	contentType string
	headers     []eventHeaderBinding
	rawString   bool
	rawBlob     bool

	payloadMember string
	payloadFn     PayloadSerializer   //single eventPayload member
	bodyFn        OperationSerializer //remaining structure members
}

type eventHeaderBinding struct {
	name string
	expr ValueExpr
	conv func(v interface{}) (eventstream.Value, error)
}

// EventMarshaller compiles the marshaller for one event-stream union.
// Headers come from eventHeader members, which must target scalar
// shapes; a non-scalar header target fails generation, not the call.
func (s *Session) EventMarshaller(streamID string, protocol string) (EventMarshaller, error) {
	shape := s.model.GetShape(streamID)
	if shape == nil {
		return nil, fmt.Errorf("no such shape: %s", streamID)
	}
	if shape.Type != "union" {
		return nil, fmt.Errorf("event stream %s is a %s, not a union", streamID, shape.Type)
	}
	gen, err := s.Generator(protocol)
	if err != nil {
		return nil, err
	}
	body, ok := gen.(eventBodySerializer)
	if !ok {
		return nil, unsupported(gen.Protocol(), streamID, "event framing")
	}
	variants := make(map[string]*eventVariant, shape.Members.Length())
	for _, name := range shape.Members.Keys() {
		m := shape.Members.Get(name)
		v, err := s.eventVariant(streamID, name, m, body)
		if err != nil {
			return nil, err
		}
		variants[name] = v
	}
	return func(event *smithy.Union, st *SerializeSettings) (eventstream.Message, error) {
		var msg eventstream.Message
		if event == nil || !event.Known() {
			return msg, &UnknownVariantError{ShapeID: streamID}
		}
		variant, ok := variants[event.Tag]
		if !ok {
			return msg, serializeErr(streamID, fmt.Errorf("no such variant: %s", event.Tag))
		}
		if variant.exception {
			msg.Headers.Set(":message-type", eventstream.StringValue("exception"))
			msg.Headers.Set(":exception-type", eventstream.StringValue(event.Tag))
		} else {
			msg.Headers.Set(":message-type", eventstream.StringValue("event"))
			msg.Headers.Set(":event-type", eventstream.StringValue(event.Tag))
		}
		msg.Headers.Set(":content-type", eventstream.StringValue(variant.contentType))
		switch {
		case variant.rawString:
			text, err := asString(event.Value)
			if err != nil {
				return msg, serializeErr(streamID, err)
			}
			msg.Payload = []byte(text)
		case variant.rawBlob:
			b, err := blobBytes(event.Value)
			if err != nil {
				return msg, err
			}
			msg.Payload = b
		default:
			for _, h := range variant.headers {
				value, present := h.expr.Get(event.Value)
				if !present {
					continue
				}
				hv, err := h.conv(value)
				if err != nil {
					return msg, serializeErr(streamID, err)
				}
				msg.Headers.Set(h.name, hv)
			}
			obj, err := asOrderedObject(event.Value)
			if err != nil {
				return msg, serializeErr(streamID, err)
			}
			switch {
			case variant.payloadFn != nil:
				p, err := payloadMemberValue(obj, variant, st)
				if err != nil {
					return msg, err
				}
				msg.Payload = p
			case variant.bodyFn != nil:
				p, err := variant.bodyFn(obj, st)
				if err != nil {
					return msg, err
				}
				msg.Payload = p
			}
		}
		return msg, nil
	}, nil
}

func payloadMemberValue(obj *data.Object, variant *eventVariant, st *SerializeSettings) ([]byte, error) {
	if obj.Has(variant.payloadMember) {
		return variant.payloadFn(obj.Get(variant.payloadMember), st)
	}
	return nil, nil
}

func (s *Session) eventVariant(streamID, name string, m *smithy.Member, body eventBodySerializer) (*eventVariant, error) {
	target, err := s.model.GetAst().ResolveMember(m)
	if err != nil {
		return nil, err
	}
	v := &eventVariant{exception: target.HasTrait(smithy.TraitError)}
	switch target.Type {
	case "string":
		v.rawString = true
		v.contentType = "text/plain"
		return v, nil
	case "blob":
		v.rawBlob = true
		v.contentType = "application/octet-stream"
		return v, nil
	case "structure":
		v.contentType = body.PayloadMediaType()
		var docMembers []string
		for _, fieldName := range target.Members.Keys() {
			fm := target.Members.Get(fieldName)
			switch {
			case fm.HasTrait(smithy.TraitEventHeader):
				ft, err := s.model.GetAst().ResolveMember(fm)
				if err != nil {
					return nil, err
				}
				conv := eventHeaderValue(ft.Type)
				if conv == nil {
					return nil, unsupported("eventstream", streamID,
						fmt.Sprintf("header member %s targets %s", fieldName, ft.Type))
				}
				v.headers = append(v.headers, eventHeaderBinding{
					name: fieldName,
					expr: MemberExpr(fieldName),
					conv: conv,
				})
			case fm.HasTrait(smithy.TraitEventPayload):
				fn, err := body.PayloadSerializer(m.Target, fieldName)
				if err != nil {
					return nil, err
				}
				v.payloadFn = fn
				v.payloadMember = fieldName
			default:
				docMembers = append(docMembers, fieldName)
			}
		}
		if v.payloadFn == nil {
			fn, err := body.eventBody(m.Target, target, docMembers)
			if err != nil {
				return nil, err
			}
			v.bodyFn = fn
		}
		return v, nil
	default:
		return nil, unsupported("eventstream", streamID,
			fmt.Sprintf("variant %s targets %s", name, target.Type))
	}
}

// eventHeaderValue converts one scalar to a wire header value. Returns
// nil for types headers cannot carry.
func eventHeaderValue(targetType string) func(v interface{}) (eventstream.Value, error) {
	switch targetType {
	case "string", "enum":
		return func(v interface{}) (eventstream.Value, error) {
			s, err := asString(v)
			if err != nil {
				return nil, err
			}
			return eventstream.StringValue(s), nil
		}
	case "boolean":
		return func(v interface{}) (eventstream.Value, error) {
			b, err := asBool(v)
			if err != nil {
				return nil, err
			}
			return eventstream.BoolValue(b), nil
		}
	case "byte":
		return func(v interface{}) (eventstream.Value, error) {
			i, err := asInt64(v)
			if err != nil {
				return nil, err
			}
			return eventstream.Int8Value(int8(i)), nil
		}
	case "short":
		return func(v interface{}) (eventstream.Value, error) {
			i, err := asInt64(v)
			if err != nil {
				return nil, err
			}
			return eventstream.Int16Value(int16(i)), nil
		}
	case "integer", "intEnum":
		return func(v interface{}) (eventstream.Value, error) {
			i, err := asInt64(v)
			if err != nil {
				return nil, err
			}
			return eventstream.Int32Value(int32(i)), nil
		}
	case "long":
		return func(v interface{}) (eventstream.Value, error) {
			i, err := asInt64(v)
			if err != nil {
				return nil, err
			}
			return eventstream.Int64Value(i), nil
		}
	case "blob":
		return func(v interface{}) (eventstream.Value, error) {
			b, err := blobBytes(v)
			if err != nil {
				return nil, err
			}
			return eventstream.BytesValue(b), nil
		}
	case "timestamp":
		return func(v interface{}) (eventstream.Value, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, fmt.Errorf("expected timestamp, got %T", v)
			}
			return eventstream.TimestampValue(t), nil
		}
	}
	return nil
}
