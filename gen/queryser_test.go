package gen

import (
	"net/url"
	"testing"
	"time"

	"github.com/boynton/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}

func queryEncodeOp(t *testing.T, g *QueryGenerator, opID string, input *data.Object, st *SerializeSettings) string {
	t.Helper()
	ser, err := g.OperationSerializer(opID)
	require.NoError(t, err)
	body, err := ser(input, st)
	require.NoError(t, err)
	return string(body)
}

func TestQueryActionAndVersion(t *testing.T) {
	s := testSession(t)
	input := data.NewObject()
	input.Put("bucket", "b")
	got := queryEncodeOp(t, s.Query(), "example#GetItem", input, nil)
	assert.Equal(t, "Action=GetItem&Version=2020-01-01&bucket=b", got)
}

func TestQueryNestedVersusFlattenedList(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	item.Put("labels", []interface{}{"x", "y"})
	item.Put("flat", []interface{}{"z"})
	input := data.NewObject()
	input.Put("item", item)
	got := queryEncodeOp(t, s.Query(), "example#GetItem", input, nil)

	// nested lists take a "member" path segment; flattened lists index
	// the member key directly
	assert.Contains(t, got, "item.labels.member.1=x")
	assert.Contains(t, got, "item.labels.member.2=y")
	assert.Contains(t, got, "item.flat.1=z")
	assert.NotContains(t, got, "item.flat.member")
}

func TestQueryMapEntries(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	item.Put("attrs", map[string]interface{}{"k": "v"})
	input := data.NewObject()
	input.Put("item", item)
	got := queryEncodeOp(t, s.Query(), "example#GetItem", input, nil)
	assert.Contains(t, got, "item.attrs.entry.1.key=k")
	assert.Contains(t, got, "item.attrs.entry.1.value=v")
}

func TestQueryZeroSuppression(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(0))
	item.Put("counts", []interface{}{int64(0)})
	input := data.NewObject()
	input.Put("item", item)
	got := queryEncodeOp(t, s.Query(), "example#GetItem", input, nil)
	assert.NotContains(t, got, "item.count=")
	assert.Contains(t, got, "item.counts.member.1=0")
}

func TestEC2QueryCapitalizationAndFlattening(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	item.Put("note", "hi")
	item.Put("labels", []interface{}{"x"})
	input := data.NewObject()
	input.Put("bucket", "b")
	input.Put("item", item)
	got := queryEncodeOp(t, s.EC2Query(), "example#GetItem", input, nil)

	// members capitalize unless a name trait overrides, and every list
	// flattens whatever its traits say
	assert.Contains(t, got, "Bucket=b")
	assert.Contains(t, got, "Item.Name=a")
	assert.Contains(t, got, "Item.NoteX=hi")
	assert.Contains(t, got, "Item.Labels.1=x")
	assert.NotContains(t, got, "Labels.member")
}

func TestQueryRedaction(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	item.Put("secret", "hunter2")
	input := data.NewObject()
	input.Put("item", item)
	got := queryEncodeOp(t, s.Query(), "example#GetItem", input, &SerializeSettings{RedactSensitive: true})
	values, err := url.ParseQuery(got)
	require.NoError(t, err)
	assert.Equal(t, RedactionMarker, values.Get("item.secret"))
}

func TestQueryTimestampFormat(t *testing.T) {
	s := testSession(t)
	ser, err := s.Query().PayloadSerializer("example#Item", "created")
	require.NoError(t, err)
	body, err := ser(mustTime(t, "2021-01-02T03:04:05Z"), nil)
	require.NoError(t, err)
	values, err := url.ParseQuery(string(body))
	require.NoError(t, err)
	assert.Equal(t, "2021-01-02T03:04:05Z", values.Get("created"))
}

func TestQueryUnknownVariantFails(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	item.Put("choice", smithy.UnknownUnion())
	input := data.NewObject()
	input.Put("item", item)
	ser, err := s.Query().OperationSerializer("example#GetItem")
	require.NoError(t, err)
	_, err = ser(input, nil)
	var uv *UnknownVariantError
	assert.ErrorAs(t, err, &uv)
}

func TestQueryServerOutputIsWrappedXML(t *testing.T) {
	s := testSession(t)
	ser, err := s.Query().ServerOutputSerializer("example#GetItem")
	require.NoError(t, err)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(1))
	output := data.NewObject()
	output.Put("item", item)
	body, err := ser(output, nil)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<GetItemResponse><GetItemResult>")
}

func TestQueryServerErrorResponse(t *testing.T) {
	s := testSession(t)
	ser, err := s.Query().ServerErrorSerializer("example#NotFound")
	require.NoError(t, err)
	v := data.NewObject()
	v.Put("message", "gone")
	body, err := ser(v, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`<ErrorResponse><Error><Type>Sender</Type><Code>NotFound</Code><message>gone</message></Error></ErrorResponse>`,
		string(body))
}

func TestQueryParsersUnsupported(t *testing.T) {
	s := testSession(t)
	_, err := s.Query().OperationParser("example#GetItem")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = s.EC2Query().DocumentParser()
	assert.ErrorIs(t, err, ErrUnsupported)
}
