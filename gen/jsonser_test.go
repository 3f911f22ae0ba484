package gen

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/boynton/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

func jsonEncode(t *testing.T, s *Session, shapeID string, v interface{}, st *SerializeSettings) string {
	t.Helper()
	fn, err := s.JSON().SerializerHandle(shapeID)
	require.NoError(t, err)
	w := NewJSONWriter()
	require.NoError(t, fn.Call(v, w, st))
	return w.String()
}

func TestJSONStructEncode(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("note", "hi")
	item.Put("name", "a")
	item.Put("count", int64(2))
	// members render in model order regardless of insertion order, and
	// jsonName overrides the wire key
	assert.Equal(t, `{"name":"a","count":2,"Note":"hi"}`,
		jsonEncode(t, s, "example#Item", item, nil))
}

func TestJSONZeroSuppressionBoundary(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(0))
	item.Put("counts", []interface{}{int64(0), int64(5)})
	// a required zero integer on the structure is omitted; the same zero
	// inside a list element is always written
	assert.Equal(t, `{"name":"a","counts":[0,5]}`,
		jsonEncode(t, s, "example#Item", item, nil))
}

func TestJSONRedactionIsCallTime(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	item.Put("secret", "hunter2")

	plain := jsonEncode(t, s, "example#Item", item, &SerializeSettings{})
	assert.Contains(t, plain, `"secret":"hunter2"`)

	redacted := jsonEncode(t, s, "example#Item", item, &SerializeSettings{RedactSensitive: true})
	assert.Contains(t, redacted, `"secret":"*** Sensitive Data Redacted ***"`)
	assert.NotContains(t, redacted, "hunter2")
}

func TestJSONTimestampFormats(t *testing.T) {
	s := testSession(t)
	at := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)

	// protocol default is epoch-seconds, written as a bare number
	assert.Equal(t, "1609556645", jsonEncode(t, s, "smithy.api#Timestamp", at, nil))

	// the member's timestampFormat trait overrides it
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	item.Put("created", at)
	assert.Contains(t, jsonEncode(t, s, "example#Item", item, nil),
		`"created":"2021-01-02T03:04:05Z"`)
}

func TestJSONNumericSplit(t *testing.T) {
	s := testSession(t)
	assert.Equal(t, "-7", jsonEncode(t, s, "smithy.api#Integer", int64(-7), nil))
	assert.Equal(t, "7", jsonEncode(t, s, "smithy.api#Integer", int64(7), nil))
	assert.Equal(t, "9223372036854775807", jsonEncode(t, s, "smithy.api#Long", int64(9223372036854775807), nil))
}

func TestJSONFloatRejectsNonFinite(t *testing.T) {
	s := testSession(t)
	fn, err := s.JSON().SerializerHandle("smithy.api#Double")
	require.NoError(t, err)
	w := NewJSONWriter()
	assert.Error(t, fn.Call(math.NaN(), w, nil))
}

func TestJSONBlobBase64(t *testing.T) {
	s := testSession(t)
	assert.Equal(t, `"aGk="`, jsonEncode(t, s, "smithy.api#Blob", []byte("hi"), nil))
	assert.Equal(t, `"aGk="`, jsonEncode(t, s, "smithy.api#Blob", smithy.NewByteStream([]byte("hi")), nil))

	fn, err := s.JSON().SerializerHandle("smithy.api#Blob")
	require.NoError(t, err)
	w := NewJSONWriter()
	err = fn.Call(smithy.NewPendingStream(), w, nil)
	assert.ErrorIs(t, err, smithy.ErrStreamNotReady)
}

func TestJSONMapEncode(t *testing.T) {
	s := testSession(t)
	// plain Go maps order by sorted key for determinism
	v := map[string]interface{}{"b": "2", "a": "1"}
	assert.Equal(t, `{"a":"1","b":"2"}`, jsonEncode(t, s, "example#StringMap", v, nil))
}

func TestJSONUnionEncode(t *testing.T) {
	s := testSession(t)
	assert.Equal(t, `{"s":"x"}`, jsonEncode(t, s, "example#Choice", smithy.NewUnion("s", "x"), nil))
	assert.Equal(t, `{"n":-3}`, jsonEncode(t, s, "example#Choice", smithy.NewUnion("n", int64(-3)), nil))

	fn, err := s.JSON().SerializerHandle("example#Choice")
	require.NoError(t, err)
	w := NewJSONWriter()
	err = fn.Call(smithy.UnknownUnion(), w, nil)
	var uv *UnknownVariantError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "example#Choice", uv.ShapeID)
}

func TestJSONOperationSerializer(t *testing.T) {
	s := testSession(t)
	ser, err := s.JSON().OperationSerializer("example#GetItem")
	require.NoError(t, err)
	input := data.NewObject()
	input.Put("bucket", "b")
	input.Put("token", "t")
	input.Put("id", "ignored-by-body")
	body, err := ser(input, nil)
	require.NoError(t, err)
	// HTTP-bound members stay out of the document body
	assert.Equal(t, `{"bucket":"b","token":"t"}`, string(body))
}

func TestJSONEmptyInputHasNoBody(t *testing.T) {
	s := testSession(t)
	ser, err := s.JSON().OperationSerializer("example#Ping")
	require.NoError(t, err)
	assert.Nil(t, ser)
}

func TestJSONServerErrorSerializer(t *testing.T) {
	s := testServerSession(t)
	ser, err := s.JSON().ServerErrorSerializer("example#NotFound")
	require.NoError(t, err)
	v := data.NewObject()
	v.Put("message", "gone")
	body, err := ser(v, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"__type":"example#NotFound","message":"gone"}`, string(body))

	_, err = s.JSON().ServerErrorSerializer("example#Item")
	assert.Error(t, err)
}

func TestJSONDocumentSerializer(t *testing.T) {
	s := testSession(t)
	ser, err := s.JSON().DocumentSerializer()
	require.NoError(t, err)
	d, err := smithy.DocumentFromAny(map[string]interface{}{
		"b": true,
		"a": []interface{}{nil, "x"},
	})
	require.NoError(t, err)
	body, err := ser(d, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[null,"x"],"b":true}`, string(body))
}

func TestJSONPayloadSerializer(t *testing.T) {
	s := testSession(t)
	ser, err := s.JSON().PayloadSerializer("example#Item", "labels")
	require.NoError(t, err)
	body, err := ser([]interface{}{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(body))

	_, err = s.JSON().PayloadSerializer("example#Item", "missing")
	assert.Error(t, err)
}

func TestJSONUnsupportedShape(t *testing.T) {
	s := testSession(t)
	_, err := s.JSON().SerializerHandle("example#Demo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
}
