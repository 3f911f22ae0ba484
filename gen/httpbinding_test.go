package gen

import (
	"testing"

	"github.com/boynton/data"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBinder(t *testing.T) RequestBinder {
	t.Helper()
	s := testSession(t)
	binder, err := s.RequestBinder("example#GetItem", "json")
	require.NoError(t, err)
	return binder
}

func boundInput() *data.Object {
	input := data.NewObject()
	input.Put("id", "i 1")
	input.Put("path", "a/b")
	input.Put("bucket", "b")
	return input
}

func TestRequestBinderPathLabels(t *testing.T) {
	binder := testBinder(t)
	rb, err := binder(boundInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, "GET", rb.Method)
	// the plain label escapes its slash-free value; the greedy label
	// keeps path separators
	assert.Equal(t, "/items/i%201/a/b", rb.Path)
}

func TestRequestBinderQueryAndHeaders(t *testing.T) {
	binder := testBinder(t)
	input := boundInput()
	input.Put("filter", "f")
	input.Put("limit", int64(5))
	input.Put("requestedAt", mustTime(t, "2021-01-02T03:04:05Z"))
	rb, err := binder(input, nil)
	require.NoError(t, err)

	assert.Equal(t, "demo", rb.Query.Get("kind")) //from the URI pattern
	assert.Equal(t, "f", rb.Query.Get("filter"))
	assert.Equal(t, "5", rb.Query.Get("limit"))
	// headers default to http-date
	assert.Equal(t, "Sat, 02 Jan 2021 03:04:05 GMT", rb.Header.Get("x-requested-at"))
}

func TestRequestBinderHostPrefix(t *testing.T) {
	binder := testBinder(t)
	rb, err := binder(boundInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, "b.", rb.HostPrefix)
}

func TestRequestBinderIdempotencyToken(t *testing.T) {
	binder := testBinder(t)
	input := boundInput()
	rb, err := binder(input, nil)
	require.NoError(t, err)

	require.True(t, input.Has("token"))
	token, ok := input.Get("token").(string)
	require.True(t, ok)
	_, err = uuid.Parse(token)
	assert.NoError(t, err)
	assert.Contains(t, string(rb.Body), `"token":"`+token+`"`)

	// a caller-supplied token survives
	input2 := boundInput()
	input2.Put("token", "fixed")
	_, err = binder(input2, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", input2.Get("token"))
}

func TestRequestBinderBody(t *testing.T) {
	binder := testBinder(t)
	input := boundInput()
	input.Put("token", "t")
	rb, err := binder(input, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"bucket":"b","token":"t"}`, string(rb.Body))
	assert.Equal(t, "application/json", rb.Header.Get("Content-Type"))
}

func TestRequestBinderMissingLabel(t *testing.T) {
	binder := testBinder(t)
	input := data.NewObject()
	input.Put("bucket", "b")
	_, err := binder(input, nil)
	assert.Error(t, err)
}

func TestParseURIPattern(t *testing.T) {
	segments, static, err := parseURIPattern("/items/{id}/{path+}?kind=demo")
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "items", segments[0].literal)
	assert.Equal(t, "id", segments[1].label)
	assert.False(t, segments[1].greedy)
	assert.Equal(t, "path", segments[2].label)
	assert.True(t, segments[2].greedy)
	assert.Equal(t, "demo", static.Get("kind"))

	_, _, err = parseURIPattern("no-leading-slash")
	assert.Error(t, err)
	_, _, err = parseURIPattern("/x/{bad")
	assert.Error(t, err)
}

func TestExpandHostPrefix(t *testing.T) {
	labels := []hostLabelBinding{{member: "bucket", text: asString}}
	input := data.NewObject()
	input.Put("bucket", "b")
	prefix, err := expandHostPrefix("{bucket}.data.", labels, input)
	require.NoError(t, err)
	assert.Equal(t, "b.data.", prefix)

	_, err = expandHostPrefix("{other}.", labels, input)
	assert.Error(t, err)
}
