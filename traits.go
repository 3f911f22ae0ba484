package smithy

import (
	"github.com/boynton/data"
)

// Trait shape IDs consumed by generation. All are read-only annotations on
// shapes or members; generation resolves each at most once per member.
const (
	TraitRequired         = "smithy.api#required"
	TraitSensitive        = "smithy.api#sensitive"
	TraitStreaming        = "smithy.api#streaming"
	TraitDocumentation    = "smithy.api#documentation"
	TraitError            = "smithy.api#error"
	TraitTags             = "smithy.api#tags"
	TraitEnumValue        = "smithy.api#enumValue"
	TraitTimestampFormat  = "smithy.api#timestampFormat"
	TraitJsonName         = "smithy.api#jsonName"
	TraitXmlName          = "smithy.api#xmlName"
	TraitXmlFlattened     = "smithy.api#xmlFlattened"
	TraitXmlAttribute     = "smithy.api#xmlAttribute"
	TraitXmlNamespace     = "smithy.api#xmlNamespace"
	TraitEventHeader      = "smithy.api#eventHeader"
	TraitEventPayload     = "smithy.api#eventPayload"
	TraitHostLabel        = "smithy.api#hostLabel"
	TraitIdempotencyToken = "smithy.api#idempotencyToken"
	TraitHttp             = "smithy.api#http"
	TraitHttpLabel        = "smithy.api#httpLabel"
	TraitHttpQuery        = "smithy.api#httpQuery"
	TraitHttpHeader       = "smithy.api#httpHeader"
	TraitHttpPayload      = "smithy.api#httpPayload"
	TraitHttpError        = "smithy.api#httpError"
	TraitEndpoint         = "smithy.api#endpoint"
	TraitEc2QueryName     = "aws.protocols#ec2QueryName"
)

// Timestamp encodings. The resolution chain is member override, then target
// shape override, then the protocol default handed in by the caller.
const (
	TimestampEpochSeconds = "epoch-seconds"
	TimestampDateTime     = "date-time"
	TimestampHttpDate     = "http-date"
)

func ResolveTimestampFormat(m *Member, target *Shape, protocolDefault string) string {
	if f := m.StringTrait(TraitTimestampFormat); f != "" {
		return f
	}
	if f := target.StringTrait(TraitTimestampFormat); f != "" {
		return f
	}
	return protocolDefault
}

// Sensitive applies when either the member or its target carries the trait.
func Sensitive(m *Member, target *Shape) bool {
	return m.HasTrait(TraitSensitive) || target.HasTrait(TraitSensitive)
}

func (m *Member) IsRequired() bool {
	return m.HasTrait(TraitRequired)
}

// XmlNamespaceOf returns (uri, prefix) from an xmlNamespace trait object.
func XmlNamespaceOf(traits *data.Object) (string, string) {
	v := traits.Get(TraitXmlNamespace)
	if v == nil {
		return "", ""
	}
	m := data.AsObject(v)
	return m.GetString("uri"), m.GetString("prefix")
}

// HttpBindingOf returns (method, uri, code) from an http trait object.
func HttpBindingOf(traits *data.Object) (string, string, int) {
	v := traits.Get(TraitHttp)
	if v == nil {
		return "", "", 0
	}
	m := data.AsObject(v)
	return m.GetString("method"), m.GetString("uri"), m.GetInt("code")
}

// EndpointPrefixOf returns the hostPrefix template from an endpoint trait.
func EndpointPrefixOf(traits *data.Object) string {
	v := traits.Get(TraitEndpoint)
	if v == nil {
		return ""
	}
	return data.AsObject(v).GetString("hostPrefix")
}
