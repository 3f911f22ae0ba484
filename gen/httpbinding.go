package gen

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/boynton/data"
	"github.com/google/uuid"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// RequestBinding is one fully bound HTTP request, minus transport: the
// resolved path, query, headers, hostname prefix, and encoded body.
type RequestBinding struct {
	Method     string
	Path       string
	Query      url.Values
	Header     http.Header
	HostPrefix string
	Body       []byte
}

// RequestBinder builds the request binding for one operation input.
type RequestBinder func(input *data.Object, st *SerializeSettings) (*RequestBinding, error)

// pathSegment is one literal or label piece of an http trait URI.
type pathSegment struct {
	literal string
	label   string //member name, "" for literals
	greedy  bool
}

type httpValueBinding struct {
	member string
	wire   string //query or header name
	text   func(v interface{}) (string, error)
	list   bool
	elem   func(v interface{}) (string, error)
}

type hostLabelBinding struct {
	member string
	text   func(v interface{}) (string, error)
}

// RequestBinder compiles the HTTP request binding for one operation on
// one protocol. Header timestamps default to http-date, query and label
// timestamps to date-time; member and shape format traits override both.
func (s *Session) RequestBinder(opID string, protocol string) (RequestBinder, error) {
	op, input, inputID, err := s.resolveOperation(opID)
	if err != nil {
		return nil, err
	}
	gen, err := s.Generator(protocol)
	if err != nil {
		return nil, err
	}
	method, uri, _ := smithy.HttpBindingOf(op.Traits)
	if method == "" {
		method = "POST"
	}
	if uri == "" {
		uri = "/"
	}
	segments, staticQuery, err := parseURIPattern(uri)
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", opID, err)
	}

	labels := map[string]func(v interface{}) (string, error){}
	var queries, headers []httpValueBinding
	var hostLabels []hostLabelBinding
	var tokenMember string
	var payloadMember string
	var payloadRaw bool
	var payloadFn PayloadSerializer

	for _, name := range input.Members.Keys() {
		m := input.Members.Get(name)
		target, err := s.model.GetAst().ResolveMember(m)
		if err != nil {
			return nil, err
		}
		if m.HasTrait(smithy.TraitIdempotencyToken) && target.Type == "string" {
			tokenMember = name
		}
		if m.HasTrait(smithy.TraitHostLabel) {
			text := scalarText(target.Type, smithy.TimestampDateTime)
			if text == nil {
				return nil, unsupported(protocol, inputID, fmt.Sprintf("host label %s targets %s", name, target.Type))
			}
			hostLabels = append(hostLabels, hostLabelBinding{member: name, text: text})
		}
		switch {
		case m.HasTrait(smithy.TraitHttpLabel):
			format := smithy.ResolveTimestampFormat(m, target, smithy.TimestampDateTime)
			text := scalarText(target.Type, format)
			if text == nil {
				return nil, unsupported(protocol, inputID, fmt.Sprintf("label %s targets %s", name, target.Type))
			}
			labels[name] = text
		case m.HasTrait(smithy.TraitHttpQuery):
			b, err := s.valueBinding(name, m.StringTrait(smithy.TraitHttpQuery), m, target, smithy.TimestampDateTime)
			if err != nil {
				return nil, err
			}
			queries = append(queries, b)
		case m.HasTrait(smithy.TraitHttpHeader):
			b, err := s.valueBinding(name, m.StringTrait(smithy.TraitHttpHeader), m, target, smithy.TimestampHttpDate)
			if err != nil {
				return nil, err
			}
			headers = append(headers, b)
		case m.HasTrait(smithy.TraitHttpPayload):
			payloadMember = name
			if target.Type == "string" || target.Type == "blob" {
				payloadRaw = true
			} else {
				payloadFn, err = gen.PayloadSerializer(inputID, name)
				if err != nil {
					return nil, err
				}
			}
		}
	}
	for _, seg := range segments {
		if seg.label != "" {
			if _, ok := labels[seg.label]; !ok {
				return nil, fmt.Errorf("operation %s: URI label {%s} has no bound member", opID, seg.label)
			}
		}
	}

	hostPrefix := smithy.EndpointPrefixOf(op.Traits)

	var bodyFn OperationSerializer
	if payloadMember == "" {
		bodyFn, err = gen.OperationSerializer(opID)
		if err != nil {
			return nil, err
		}
	}
	contentType := gen.PayloadMediaType()

	return func(input *data.Object, st *SerializeSettings) (*RequestBinding, error) {
		if tokenMember != "" && !input.Has(tokenMember) {
			input.Put(tokenMember, uuid.NewString())
		}
		rb := &RequestBinding{
			Method: method,
			Query:  url.Values{},
			Header: http.Header{},
		}
		var path strings.Builder
		for _, seg := range segments {
			path.WriteByte('/')
			if seg.label == "" {
				path.WriteString(seg.literal)
				continue
			}
			if !input.Has(seg.label) {
				return nil, serializeErr(inputID, fmt.Errorf("missing URI label member %s", seg.label))
			}
			text, err := labels[seg.label](input.Get(seg.label))
			if err != nil {
				return nil, serializeErr(inputID, err)
			}
			if text == "" {
				return nil, serializeErr(inputID, fmt.Errorf("empty URI label member %s", seg.label))
			}
			if seg.greedy {
				parts := strings.Split(text, "/")
				for i, p := range parts {
					if i > 0 {
						path.WriteByte('/')
					}
					path.WriteString(url.PathEscape(p))
				}
			} else {
				path.WriteString(url.PathEscape(text))
			}
		}
		rb.Path = path.String()
		if rb.Path == "" {
			rb.Path = "/"
		}
		for k, vs := range staticQuery {
			rb.Query[k] = append(rb.Query[k], vs...)
		}
		for _, q := range queries {
			if err := q.apply(input, func(k, v string) { rb.Query.Add(k, v) }); err != nil {
				return nil, serializeErr(inputID, err)
			}
		}
		for _, h := range headers {
			if err := h.apply(input, func(k, v string) { rb.Header.Add(k, v) }); err != nil {
				return nil, serializeErr(inputID, err)
			}
		}
		if hostPrefix != "" {
			prefix, err := expandHostPrefix(hostPrefix, hostLabels, input)
			if err != nil {
				return nil, serializeErr(inputID, err)
			}
			rb.HostPrefix = prefix
		}
		switch {
		case payloadMember != "" && payloadRaw:
			if input.Has(payloadMember) {
				b, err := blobOrStringBytes(input.Get(payloadMember))
				if err != nil {
					return nil, serializeErr(inputID, err)
				}
				rb.Body = b
				rb.Header.Set("Content-Type", "application/octet-stream")
			}
		case payloadMember != "":
			if input.Has(payloadMember) {
				b, err := payloadFn(input.Get(payloadMember), st)
				if err != nil {
					return nil, err
				}
				rb.Body = b
				rb.Header.Set("Content-Type", contentType)
			}
		case bodyFn != nil:
			b, err := bodyFn(input, st)
			if err != nil {
				return nil, err
			}
			rb.Body = b
			rb.Header.Set("Content-Type", contentType)
		}
		return rb, nil
	}, nil
}

func (b httpValueBinding) apply(input *data.Object, add func(k, v string)) error {
	if !input.Has(b.member) {
		return nil
	}
	value := input.Get(b.member)
	if b.list {
		items, err := asList(value)
		if err != nil {
			return err
		}
		for _, item := range items {
			s, err := b.elem(item)
			if err != nil {
				return err
			}
			add(b.wire, s)
		}
		return nil
	}
	s, err := b.text(value)
	if err != nil {
		return err
	}
	add(b.wire, s)
	return nil
}

// valueBinding compiles one query or header member: scalar targets bind
// one value, list targets repeat the key per element.
func (s *Session) valueBinding(name, wire string, m *smithy.Member, target *smithy.Shape, tsDefault string) (httpValueBinding, error) {
	if wire == "" {
		wire = name
	}
	b := httpValueBinding{member: name, wire: wire}
	format := smithy.ResolveTimestampFormat(m, target, tsDefault)
	if target.Type == "list" || target.Type == "set" {
		elemTarget, err := s.model.GetAst().ResolveMember(target.Member)
		if err != nil {
			return b, err
		}
		elemFormat := smithy.ResolveTimestampFormat(target.Member, elemTarget, tsDefault)
		elem := scalarText(elemTarget.Type, elemFormat)
		if elem == nil {
			return b, fmt.Errorf("member %s: list of %s cannot bind to %s", name, elemTarget.Type, wire)
		}
		b.list = true
		b.elem = elem
		return b, nil
	}
	text := scalarText(target.Type, format)
	if text == nil {
		return b, fmt.Errorf("member %s: %s cannot bind to %s", name, target.Type, wire)
	}
	b.text = text
	return b, nil
}

func blobOrStringBytes(v interface{}) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	return blobBytes(v)
}

// parseURIPattern splits an http trait URI into path segments and any
// literal query parameters after '?'.
func parseURIPattern(uri string) ([]pathSegment, url.Values, error) {
	staticQuery := url.Values{}
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		q, err := url.ParseQuery(uri[i+1:])
		if err != nil {
			return nil, nil, fmt.Errorf("malformed URI query %q: %w", uri, err)
		}
		staticQuery = q
		uri = uri[:i]
	}
	if !strings.HasPrefix(uri, "/") {
		return nil, nil, fmt.Errorf("URI pattern %q must begin with /", uri)
	}
	var segments []pathSegment
	for _, raw := range strings.Split(strings.TrimPrefix(uri, "/"), "/") {
		if raw == "" && len(segments) == 0 {
			continue
		}
		if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
			label := raw[1 : len(raw)-1]
			greedy := strings.HasSuffix(label, "+")
			label = strings.TrimSuffix(label, "+")
			if label == "" {
				return nil, nil, fmt.Errorf("empty label in URI pattern %q", uri)
			}
			segments = append(segments, pathSegment{label: label, greedy: greedy})
			continue
		}
		if strings.ContainsAny(raw, "{}") {
			return nil, nil, fmt.Errorf("malformed segment %q in URI pattern", raw)
		}
		segments = append(segments, pathSegment{literal: raw})
	}
	return segments, staticQuery, nil
}

// expandHostPrefix substitutes {hostLabel} members into an endpoint
// hostPrefix template.
func expandHostPrefix(template string, labels []hostLabelBinding, input *data.Object) (string, error) {
	out := template
	for _, l := range labels {
		if !input.Has(l.member) {
			return "", fmt.Errorf("missing host label member %s", l.member)
		}
		text, err := l.text(input.Get(l.member))
		if err != nil {
			return "", err
		}
		if text == "" {
			return "", fmt.Errorf("empty host label member %s", l.member)
		}
		out = strings.ReplaceAll(out, "{"+l.member+"}", text)
	}
	if i := strings.IndexByte(out, '{'); i >= 0 {
		return "", fmt.Errorf("unresolved host label in prefix %q", out)
	}
	return out, nil
}
