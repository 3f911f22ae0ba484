package smithy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boynton/data"
)

// Runtime values handled by compiled codecs:
//
//	structure        *data.Object (member name -> value, model order)
//	union            *Union
//	list/set         []interface{}
//	map              *data.Object
//	string/enum      string
//	boolean          bool
//	byte..long       int64
//	float/double     float64
//	bigInteger/bigDecimal  *data.Decimal
//	blob             []byte, or StreamingBlob when the member streams
//	timestamp        time.Time
//	document         *Document

// Union is a discriminated variant value. A client that receives a variant
// it does not statically recognize holds Tag == "", and any attempt to
// serialize it fails rather than dropping data.
type Union struct {
	Tag   string
	Value interface{}
}

func NewUnion(tag string, value interface{}) *Union {
	return &Union{Tag: tag, Value: value}
}

// UnknownUnion is the client-side stand-in for an unrecognized variant.
func UnknownUnion() *Union {
	return &Union{}
}

func (u *Union) Known() bool {
	return u != nil && u.Tag != ""
}

// ErrStreamNotReady indicates a streaming source whose bytes are not yet
// buffered. Recoverable: the caller may retry once the stream settles.
var ErrStreamNotReady = errors.New("streaming data not yet available")

// StreamingBlob is a blob member whose bytes arrive through a streaming
// source. Codecs only consume fully buffered bytes; an ongoing stream
// surfaces ErrStreamNotReady instead of blocking.
type StreamingBlob interface {
	Buffered() ([]byte, error)
}

type ByteStream struct {
	buf   []byte
	ready bool
}

func NewByteStream(buf []byte) *ByteStream {
	return &ByteStream{buf: buf, ready: true}
}

// NewPendingStream returns a stream whose bytes have not arrived.
func NewPendingStream() *ByteStream {
	return &ByteStream{}
}

func (b *ByteStream) Buffered() ([]byte, error) {
	if !b.ready {
		return nil, ErrStreamNotReady
	}
	return b.buf, nil
}

// DocumentKind discriminates open-content values. Numbers split three ways
// so 64-bit-safe encodings never lose sign or precision.
type DocumentKind int

const (
	DocumentNull DocumentKind = iota
	DocumentBool
	DocumentString
	DocumentFloat
	DocumentNegInt
	DocumentPosInt
	DocumentArray
	DocumentObject
)

type Document struct {
	Kind  DocumentKind
	Bool  bool
	Str   string
	Float float64
	Int   int64
	Uint  uint64
	Array []*Document
	Obj   *data.Object //values are *Document
}

func NullDocument() *Document            { return &Document{Kind: DocumentNull} }
func BoolDocument(b bool) *Document      { return &Document{Kind: DocumentBool, Bool: b} }
func StringDocument(s string) *Document  { return &Document{Kind: DocumentString, Str: s} }
func FloatDocument(f float64) *Document  { return &Document{Kind: DocumentFloat, Float: f} }
func NegIntDocument(i int64) *Document   { return &Document{Kind: DocumentNegInt, Int: i} }
func PosIntDocument(u uint64) *Document  { return &Document{Kind: DocumentPosInt, Uint: u} }
func ArrayDocument(a []*Document) *Document {
	return &Document{Kind: DocumentArray, Array: a}
}
func ObjectDocument(obj *data.Object) *Document {
	return &Document{Kind: DocumentObject, Obj: obj}
}

// DocumentFromAny converts a dynamically decoded value (interface{} trees
// from a JSON decoder running with UseNumber) into a Document.
func DocumentFromAny(v interface{}) (*Document, error) {
	switch t := v.(type) {
	case nil:
		return NullDocument(), nil
	case bool:
		return BoolDocument(t), nil
	case string:
		return StringDocument(t), nil
	case float64:
		return FloatDocument(t), nil
	case json.Number:
		//goccy/go-json's Number is an alias of encoding/json's
		return documentFromNumber(string(t))
	case []interface{}:
		var a []*Document
		for _, e := range t {
			d, err := DocumentFromAny(e)
			if err != nil {
				return nil, err
			}
			a = append(a, d)
		}
		return ArrayDocument(a), nil
	case map[string]interface{}:
		obj := data.NewObject()
		for _, k := range sortedKeys(t) {
			d, err := DocumentFromAny(t[k])
			if err != nil {
				return nil, err
			}
			obj.Put(k, d)
		}
		return ObjectDocument(obj), nil
	case *data.Object:
		obj := data.NewObject()
		for _, k := range t.Keys() {
			d, err := DocumentFromAny(t.Get(k))
			if err != nil {
				return nil, err
			}
			obj.Put(k, d)
		}
		return ObjectDocument(obj), nil
	case *Document:
		return t, nil
	default:
		return nil, fmt.Errorf("cannot build document from %T", v)
	}
}

func documentFromNumber(s string) (*Document, error) {
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q: %w", s, err)
		}
		return FloatDocument(f), nil
	}
	if strings.HasPrefix(s, "-") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed number %q: %w", s, err)
		}
		return NegIntDocument(i), nil
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed number %q: %w", s, err)
	}
	return PosIntDocument(u), nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	//deterministic output; decoded Go maps have no order of their own
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// Equal compares documents structurally.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Kind != other.Kind {
		return false
	}
	switch d.Kind {
	case DocumentNull:
		return true
	case DocumentBool:
		return d.Bool == other.Bool
	case DocumentString:
		return d.Str == other.Str
	case DocumentFloat:
		return d.Float == other.Float
	case DocumentNegInt:
		return d.Int == other.Int
	case DocumentPosInt:
		return d.Uint == other.Uint
	case DocumentArray:
		if len(d.Array) != len(other.Array) {
			return false
		}
		for i := range d.Array {
			if !d.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case DocumentObject:
		if d.Obj.Length() != other.Obj.Length() {
			return false
		}
		for _, k := range d.Obj.Keys() {
			dv, _ := d.Obj.Get(k).(*Document)
			ov, _ := other.Obj.Get(k).(*Document)
			if !dv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Timestamp wire encodings.

func FormatEpochSeconds(t time.Time) string {
	if t.Nanosecond() == 0 {
		return strconv.FormatInt(t.Unix(), 10)
	}
	ms := t.UnixMilli()
	return strconv.FormatFloat(float64(ms)/1e3, 'f', -1, 64)
}

func ParseEpochSeconds(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed epoch-seconds timestamp %q: %w", s, err)
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	//round to millisecond to match the encode precision
	nsec = (nsec / 1e6) * 1e6
	return time.Unix(sec, nsec).UTC(), nil
}

const dateTimeLayout = "2006-01-02T15:04:05.999Z"
const httpDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

func FormatDateTime(t time.Time) string {
	return t.UTC().Format(dateTimeLayout)
}

func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed date-time timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func FormatHttpDate(t time.Time) string {
	return t.UTC().Format(httpDateLayout)
}

func ParseHttpDate(s string) (time.Time, error) {
	t, err := time.Parse(httpDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed http-date timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func FormatTimestamp(t time.Time, format string) (string, error) {
	switch format {
	case TimestampEpochSeconds:
		return FormatEpochSeconds(t), nil
	case TimestampDateTime:
		return FormatDateTime(t), nil
	case TimestampHttpDate:
		return FormatHttpDate(t), nil
	}
	return "", fmt.Errorf("unsupported timestamp format: %q", format)
}

func ParseTimestamp(s string, format string) (time.Time, error) {
	switch format {
	case TimestampEpochSeconds:
		return ParseEpochSeconds(s)
	case TimestampDateTime:
		return ParseDateTime(s)
	case TimestampHttpDate:
		return ParseHttpDate(s)
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", format)
}
