package gen

import (
	"testing"
	"time"

	"github.com/boynton/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

func TestXMLNodeDecode(t *testing.T) {
	n, err := DecodeXMLNode([]byte(`<a x="1"><b>hi</b><b>there</b><c/></a>`))
	require.NoError(t, err)
	assert.Equal(t, "a", n.Name)
	v, ok := n.AttrNamed("x")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Len(t, n.ChildrenNamed("b"), 2)
	assert.Equal(t, "hi", n.ChildNamed("b").Text)
	assert.Equal(t, "", n.ChildNamed("c").Text)

	_, err = DecodeXMLNode([]byte(`<a><b></a>`))
	assert.Error(t, err)
	_, err = DecodeXMLNode([]byte(``))
	assert.Error(t, err)
}

func TestXMLParseStruct(t *testing.T) {
	s := testSession(t)
	p, err := s.XML().structBodyParser("example#Item", "")
	require.NoError(t, err)
	b, err := p([]byte(`<Item>
		<name>a</name>
		<count>2</count>
		<NoteX>hi</NoteX>
		<created>2021-01-02T03:04:05Z</created>
		<labels><member>x</member><member>y</member></labels>
		<flat>u</flat><flat>v</flat>
		<attrs><entry><key>k</key><value>v</value></entry></attrs>
		<choice><n>-3</n></choice>
	</Item>`))
	require.NoError(t, err)

	assert.Equal(t, "a", b.Get("name"))
	assert.Equal(t, int64(2), b.Get("count"))
	assert.Equal(t, "hi", b.Get("note"))
	assert.Equal(t, time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC), b.Get("created"))
	assert.Equal(t, []interface{}{"x", "y"}, b.Get("labels"))
	assert.Equal(t, []interface{}{"u", "v"}, b.Get("flat"))

	attrs, ok := b.Get("attrs").(*data.Object)
	require.True(t, ok)
	assert.Equal(t, "v", attrs.Get("k"))

	choice, ok := b.Get("choice").(*smithy.Union)
	require.True(t, ok)
	assert.Equal(t, "n", choice.Tag)
	assert.Equal(t, int64(-3), choice.Value)
}

func TestXMLParseAttribute(t *testing.T) {
	s := testSession(t)
	p, err := s.XML().structBodyParser("example#Tagged", "")
	require.NoError(t, err)
	b, err := p([]byte(`<Tagged id="i-1"><value>x</value></Tagged>`))
	require.NoError(t, err)
	assert.Equal(t, "i-1", b.Get("id"))
	assert.Equal(t, "x", b.Get("value"))
}

func TestXMLParseWrappedOutput(t *testing.T) {
	s := testSession(t)
	p, err := s.XML().OutputParser("example#GetItem")
	require.NoError(t, err)
	b, err := p([]byte(`<GetItemResponse><GetItemResult><item><name>a</name><count>1</count></item></GetItemResult></GetItemResponse>`))
	require.NoError(t, err)
	item, ok := b.Get("item").(*smithy.Builder)
	require.True(t, ok)
	assert.Equal(t, "a", item.Get("name"))
}

func TestXMLParseUnknownVariant(t *testing.T) {
	client := testSession(t)
	p, err := client.XML().structBodyParser("example#Item", "")
	require.NoError(t, err)
	b, err := p([]byte(`<Item><choice><future>1</future></choice></Item>`))
	require.NoError(t, err)
	choice, ok := b.Get("choice").(*smithy.Union)
	require.True(t, ok)
	assert.False(t, choice.Known())

	server := testServerSession(t)
	sp, err := server.XML().structBodyParser("example#Item", "")
	require.NoError(t, err)
	_, err = sp([]byte(`<Item><choice><future>1</future></choice></Item>`))
	assert.Error(t, err)
}

func TestXMLRoundTrip(t *testing.T) {
	s := testSession(t)
	item := data.NewObject()
	item.Put("name", "a")
	item.Put("count", int64(2))
	item.Put("data", []byte("hi"))
	item.Put("flat", []interface{}{"x"})

	encoded := xmlEncode(t, s, "example#Item", "Item", item, nil)
	p, err := s.XML().structBodyParser("example#Item", "")
	require.NoError(t, err)
	b, err := p([]byte(encoded))
	require.NoError(t, err)
	out, err := b.Finish(requiredMembers(s.Model().GetShape("example#Item")))
	require.NoError(t, err)
	for _, k := range item.Keys() {
		assert.Equal(t, item.Get(k), out.Get(k), k)
	}
}

func TestXMLErrorParser(t *testing.T) {
	s := testSession(t)
	p, err := s.XML().ErrorParser("example#NotFound")
	require.NoError(t, err)
	b, err := p([]byte(`<ErrorResponse><Error><Type>Sender</Type><Code>NotFound</Code><message>gone</message></Error></ErrorResponse>`))
	require.NoError(t, err)
	assert.Equal(t, "gone", b.Get("message"))
}

func TestXMLPayloadParserEmptyBody(t *testing.T) {
	s := testSession(t)
	p, err := s.XML().PayloadParser("example#GetItemInput", "item")
	require.NoError(t, err)

	// a structured payload with no body decodes like an empty element,
	// so required-member validation still happens at Finish
	v, err := p([]byte("  "))
	require.NoError(t, err)
	b, ok := v.(*smithy.Builder)
	require.True(t, ok)
	assert.Empty(t, b.Keys())
	_, err = b.Finish(requiredMembers(s.Model().GetShape("example#Item")))
	assert.Error(t, err)

	// scalar payloads have no canonical empty value
	sp, err := s.XML().PayloadParser("example#GetItemInput", "filter")
	require.NoError(t, err)
	_, err = sp(nil)
	assert.Error(t, err)
}

func TestXMLMalformedBody(t *testing.T) {
	s := testSession(t)
	p, err := s.XML().structBodyParser("example#Item", "")
	require.NoError(t, err)
	_, err = p([]byte(`<Item><count>two</count></Item>`))
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}
