package gen

import (
	"math"
	"testing"

	"github.com/boynton/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

func serdeJSON(t *testing.T, s *Session, shapeID string, v interface{}, st *SerdeSettings) (string, error) {
	t.Helper()
	bound, err := s.Serde().Bind(shapeID, v)
	require.NoError(t, err)
	w := NewJSONWriter()
	if err := bound.Serialize(NewJSONSink(w), st); err != nil {
		return "", err
	}
	return w.String(), nil
}

func TestSerdeStructUsesModelNames(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(2))
	item.Put("note", "hi")
	got, err := serdeJSON(t, s, "example#Item", item, nil)
	require.NoError(t, err)
	// protocol renames (jsonName, xmlName) do not apply to this walk
	assert.Equal(t, `{"name":"a","count":2,"note":"hi"}`, got)
}

func TestSerdeOutOfRangeFloats(t *testing.T) {
	s := testSession(t)

	_, err := serdeJSON(t, s, "smithy.api#Double", math.NaN(), nil)
	assert.Error(t, err)

	st := &SerdeSettings{OutOfRangeFloatsAsStrings: true}
	cases := []struct {
		f    float64
		want string
	}{
		{math.NaN(), `"NaN"`},
		{math.Inf(1), `"Infinity"`},
		{math.Inf(-1), `"-Infinity"`},
		{1.5, "1.5"},
	}
	for _, c := range cases {
		got, err := serdeJSON(t, s, "smithy.api#Double", c.f, st)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestSerdeRedaction(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	item.Put("secret", "hunter2")

	plain, err := serdeJSON(t, s, "example#Item", item, &SerdeSettings{})
	require.NoError(t, err)
	assert.Contains(t, plain, "hunter2")

	redacted, err := serdeJSON(t, s, "example#Item", item, &SerdeSettings{RedactSensitive: true})
	require.NoError(t, err)
	assert.NotContains(t, redacted, "hunter2")
	assert.Contains(t, redacted, RedactionMarker)
}

func TestSerdeBoundBorrowsValue(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	bound, err := s.Serde().Bind("example#Item", item)
	require.NoError(t, err)

	// the bound value is referenced, not copied
	item.Put("note", "late")
	w := NewJSONWriter()
	require.NoError(t, bound.Serialize(NewJSONSink(w), nil))
	assert.Contains(t, w.String(), `"note":"late"`)
}

func TestSerdeUnionVariant(t *testing.T) {
	s := testSession(t)
	got, err := serdeJSON(t, s, "example#Choice", smithy.NewUnion("s", "x"), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"s":"x"}`, got)

	_, err = serdeJSON(t, s, "example#Choice", smithy.UnknownUnion(), nil)
	var uv *UnknownVariantError
	assert.ErrorAs(t, err, &uv)
}

func TestSerdeMemoIdentity(t *testing.T) {
	s := testSession(t)
	first, err := s.Serde().SerializerHandle("example#Item")
	require.NoError(t, err)
	second, err := s.Serde().SerializerHandle("example#Item")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestSerdeTimestamp(t *testing.T) {
	s := testSession(t)
	got, err := serdeJSON(t, s, "smithy.api#Timestamp", mustTime(t, "2021-01-02T03:04:05Z"), nil)
	require.NoError(t, err)
	assert.Equal(t, `"2021-01-02T03:04:05Z"`, got)
}
