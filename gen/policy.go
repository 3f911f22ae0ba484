package gen

import (
	"strings"
	"time"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// RedactionMarker replaces sensitive values when redaction is enabled at
// call time. The marker is fixed; only the runtime setting varies.
const RedactionMarker = "*** Sensitive Data Redacted ***"

// SerializeSettings is consulted by generated serializers at call time,
// not at generation time: one generated function serves both redacting
// and non-redacting callers.
type SerializeSettings struct {
	RedactSensitive bool
}

// Policy is the read-only per-protocol rule table, supplied at generation
// start and consulted once per member.
type Policy struct {
	Protocol string

	//wire-name override chain, first match wins; raw member name last
	NameTraits []string

	//capitalize member names unless explicitly overridden (EC2-Query)
	CapitalizeMembers bool

	//ignore xmlFlattened and flatten every collection (EC2-Query)
	AlwaysFlatten bool

	//protocol default for timestamps; member/shape traits override
	TimestampDefault string
}

var JSONPolicy = &Policy{
	Protocol:         "json",
	NameTraits:       []string{smithy.TraitJsonName},
	TimestampDefault: smithy.TimestampEpochSeconds,
}

var XMLPolicy = &Policy{
	Protocol:         "xml",
	NameTraits:       []string{smithy.TraitXmlName},
	TimestampDefault: smithy.TimestampDateTime,
}

var QueryPolicy = &Policy{
	Protocol:         "awsQuery",
	NameTraits:       []string{smithy.TraitXmlName},
	TimestampDefault: smithy.TimestampDateTime,
}

var EC2QueryPolicy = &Policy{
	Protocol:          "ec2Query",
	NameTraits:        []string{smithy.TraitEc2QueryName, smithy.TraitXmlName},
	CapitalizeMembers: true,
	AlwaysFlatten:     true,
	TimestampDefault:  smithy.TimestampDateTime,
}

// WireName resolves a member's wire name: protocol name trait override
// chain, else the raw member name adjusted by protocol convention.
func (p *Policy) WireName(memberName string, m *smithy.Member) string {
	for _, trait := range p.NameTraits {
		if v := m.StringTrait(trait); v != "" {
			return v
		}
	}
	if p.CapitalizeMembers {
		return capitalize(memberName)
	}
	return memberName
}

// Flattened decides collection flattening for a member.
func (p *Policy) Flattened(m *smithy.Member) bool {
	if p.AlwaysFlatten {
		return true
	}
	return m.HasTrait(smithy.TraitXmlFlattened)
}

// TimestampFormat resolves the encoding for one timestamp member, once
// per member at generation time.
func (p *Policy) TimestampFormat(m *smithy.Member, target *smithy.Shape) string {
	return smithy.ResolveTimestampFormat(m, target, p.TimestampDefault)
}

// SuppressZero decides zero-value suppression: a required numeric or
// boolean member bound directly to a structure is omitted when it equals
// the type's zero value. Collection elements are never suppressed.
func (p *Policy) SuppressZero(m *smithy.Member, target *smithy.Shape, inCollection bool) bool {
	if inCollection || !m.IsRequired() {
		return false
	}
	return smithy.IsNumericType(target.Type) || target.Type == "boolean"
}

func IsZeroValue(v interface{}) bool {
	switch n := v.(type) {
	case nil:
		return true
	case bool:
		return !n
	case int:
		return n == 0
	case int64:
		return n == 0
	case float64:
		return n == 0
	case time.Time:
		return n.IsZero()
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
