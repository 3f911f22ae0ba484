package gen

import (
	"encoding/base64"
	"time"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// JSONSink drives a JSONWriter from the generic serializer walk.
// Structs and maps render as objects, variants as single-key objects,
// bytes as base64 strings.
type JSONSink struct {
	w *JSONWriter
}

func NewJSONSink(w *JSONWriter) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) SerializeNull() error {
	return s.w.WriteNull()
}

func (s *JSONSink) SerializeBool(b bool) error {
	return s.w.WriteBool(b)
}

func (s *JSONSink) SerializeString(v string) error {
	return s.w.WriteString(v)
}

func (s *JSONSink) SerializeBytes(b []byte) error {
	return s.w.WriteString(base64.StdEncoding.EncodeToString(b))
}

func (s *JSONSink) SerializeNegInt(i int64) error {
	return s.w.WriteNegInt(i)
}

func (s *JSONSink) SerializePosInt(u uint64) error {
	return s.w.WritePosInt(u)
}

func (s *JSONSink) SerializeFloat(f float64) error {
	return s.w.WriteFloat(f)
}

func (s *JSONSink) SerializeTimestamp(t time.Time, format string) error {
	if format == smithy.TimestampEpochSeconds {
		return s.w.WriteRawNumber(smithy.FormatEpochSeconds(t))
	}
	v, err := smithy.FormatTimestamp(t, format)
	if err != nil {
		return err
	}
	return s.w.WriteString(v)
}

func (s *JSONSink) BeginStruct(name string) error {
	s.w.BeginObject()
	return nil
}

func (s *JSONSink) FieldName(name string) error {
	return s.w.Key(name)
}

func (s *JSONSink) EndStruct() error {
	s.w.EndObject()
	return nil
}

func (s *JSONSink) BeginList(size int) error {
	s.w.BeginArray()
	return nil
}

func (s *JSONSink) EndList() error {
	s.w.EndArray()
	return nil
}

func (s *JSONSink) BeginMap(size int) error {
	s.w.BeginObject()
	return nil
}

func (s *JSONSink) MapKey(k string) error {
	return s.w.Key(k)
}

func (s *JSONSink) EndMap() error {
	s.w.EndObject()
	return nil
}

func (s *JSONSink) BeginVariant(name string) error {
	s.w.BeginObject()
	return s.w.Key(name)
}

func (s *JSONSink) EndVariant() error {
	s.w.EndObject()
	return nil
}
