package smithy

import (
	"encoding/json"
	"testing"

	"github.com/boynton/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traitsFromJSON(t *testing.T, src string) *data.Object {
	t.Helper()
	var obj data.Object
	require.NoError(t, json.Unmarshal([]byte(src), &obj))
	return &obj
}

func TestResolveTimestampFormat(t *testing.T) {
	target := &Shape{Type: "timestamp"}
	m := &Member{Target: "smithy.api#Timestamp"}

	// no trait anywhere: the protocol default wins
	assert.Equal(t, TimestampEpochSeconds, ResolveTimestampFormat(m, target, TimestampEpochSeconds))

	// a shape-level trait overrides the default
	shaped := &Shape{Type: "timestamp", Traits: traitsFromJSON(t, `{"smithy.api#timestampFormat": "http-date"}`)}
	assert.Equal(t, TimestampHttpDate, ResolveTimestampFormat(m, shaped, TimestampEpochSeconds))

	// a member-level trait overrides both
	tm := &Member{Target: "smithy.api#Timestamp", Traits: traitsFromJSON(t, `{"smithy.api#timestampFormat": "date-time"}`)}
	assert.Equal(t, TimestampDateTime, ResolveTimestampFormat(tm, shaped, TimestampEpochSeconds))
}

func TestSensitive(t *testing.T) {
	plainShape := &Shape{Type: "string"}
	plainMember := &Member{Target: "smithy.api#String"}
	assert.False(t, Sensitive(plainMember, plainShape))

	marked := traitsFromJSON(t, `{"smithy.api#sensitive": {}}`)
	assert.True(t, Sensitive(&Member{Traits: marked}, plainShape))
	assert.True(t, Sensitive(plainMember, &Shape{Type: "string", Traits: marked}))
}

func TestXmlNamespaceOf(t *testing.T) {
	uri, prefix := XmlNamespaceOf(traitsFromJSON(t, `{"smithy.api#xmlNamespace": {"uri": "http://example.com/ns", "prefix": "ex"}}`))
	assert.Equal(t, "http://example.com/ns", uri)
	assert.Equal(t, "ex", prefix)

	uri, prefix = XmlNamespaceOf(nil)
	assert.Equal(t, "", uri)
	assert.Equal(t, "", prefix)
}

func TestHttpBindingOf(t *testing.T) {
	method, uri, code := HttpBindingOf(traitsFromJSON(t, `{"smithy.api#http": {"method": "PUT", "uri": "/x/{id}", "code": 201}}`))
	assert.Equal(t, "PUT", method)
	assert.Equal(t, "/x/{id}", uri)
	assert.Equal(t, 201, code)

	method, uri, code = HttpBindingOf(nil)
	assert.Equal(t, "", method)
	assert.Equal(t, "", uri)
	assert.Equal(t, 0, code)
}

func TestEndpointPrefixOf(t *testing.T) {
	prefix := EndpointPrefixOf(traitsFromJSON(t, `{"smithy.api#endpoint": {"hostPrefix": "{bucket}."}}`))
	assert.Equal(t, "{bucket}.", prefix)
	assert.Equal(t, "", EndpointPrefixOf(nil))
}
