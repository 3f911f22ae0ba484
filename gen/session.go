package gen

import (
	"fmt"

	"github.com/boynton/data"
	"github.com/puzpuzpuz/xsync/v4"

	smithy "github.com/smithy-lang/smithy-rs-sub009"
)

// Target selects client or server generation. The only behavioral
// difference in this engine is union handling: only clients carry an
// unrecognized-variant case, and serializing it always fails.
type Target int

const (
	ClientTarget Target = iota
	ServerTarget
)

// Fn is the handle for one generated function. Handles are identity:
// every call site that asks for the same (shape, role) gets the same
// *Fn, which is what keeps shared and recursive shapes from exploding
// into duplicate functions.
type Fn[F any] struct {
	Name string
	Call F
}

// memoTable maps FuncKey to generated handles. The map is safe for
// concurrent use; generation itself is single-pass and idempotent, so a
// racing re-computation would produce an equivalent function.
type memoTable[F any] struct {
	entries *xsync.Map[FuncKey, *Fn[F]]
}

func newMemoTable[F any]() *memoTable[F] {
	return &memoTable[F]{entries: xsync.NewMap[FuncKey, *Fn[F]]()}
}

// obtain returns the memoized handle for key, generating it on first
// request. The handle is installed before build runs so that a
// recursive reference resolves to the handle under construction; build
// receives it for self-reference and must not call it until generation
// completes.
func (t *memoTable[F]) obtain(key FuncKey, build func(self *Fn[F]) (F, error)) (*Fn[F], error) {
	if h, ok := t.entries.Load(key); ok {
		return h, nil
	}
	h := &Fn[F]{Name: FunctionName(key.ShapeID, key.Role)}
	t.entries.Store(key, h)
	fn, err := build(h)
	if err != nil {
		t.entries.Delete(key)
		return nil, err
	}
	h.Call = fn
	return h, nil
}

func (t *memoTable[F]) size() int {
	return t.entries.Size()
}

// Entry-point function types shared by every protocol generator. Inner
// per-shape functions are writer-typed and private; these byte-oriented
// signatures are what the HTTP binding and event-stream layers consume.
type (
	OperationSerializer func(input *data.Object, st *SerializeSettings) ([]byte, error)
	PayloadSerializer   func(v interface{}, st *SerializeSettings) ([]byte, error)
	DocumentSerializer  func(d *smithy.Document, st *SerializeSettings) ([]byte, error)
	OperationParser     func(body []byte) (*smithy.Builder, error)
	ErrorParser         func(body []byte) (*smithy.Builder, error)
	PayloadParser       func(body []byte) (interface{}, error)
	DocumentParser      func(body []byte) (*smithy.Document, error)
)

// ProtocolGenerator is the shared contract of the per-protocol
// serializer/parser generators. Generators for protocols without a
// structured parse side (the query family) return ErrUnsupported from
// the parser entry points.
type ProtocolGenerator interface {
	Protocol() string
	PayloadMediaType() string

	OperationSerializer(opID string) (OperationSerializer, error)
	PayloadSerializer(containerID, memberName string) (PayloadSerializer, error)
	DocumentSerializer() (DocumentSerializer, error)
	ServerOutputSerializer(opID string) (OperationSerializer, error)
	ServerErrorSerializer(errorID string) (OperationSerializer, error)

	OperationParser(opID string) (OperationParser, error)
	ErrorParser(errorID string) (ErrorParser, error)
	PayloadParser(containerID, memberName string) (PayloadParser, error)
	DocumentParser() (DocumentParser, error)
}

// Session owns all state for one generation run over one model: the
// per-protocol generators and their memo tables. Sessions are cheap;
// make one per model per build.
type Session struct {
	model  *smithy.Model
	config *Config
	target Target

	json  *JSONGenerator
	xml   *XMLGenerator
	query *QueryGenerator
	ec2   *QueryGenerator
	serde *SerdeGenerator
}

func NewSession(model *smithy.Model, config *Config) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Session{model: model, config: config}
	switch config.Target {
	case "", "client":
		s.target = ClientTarget
	case "server":
		s.target = ServerTarget
	default:
		return nil, fmt.Errorf("unknown generation target %q", config.Target)
	}
	s.json = newJSONGenerator(s)
	s.xml = newXMLGenerator(s)
	s.query = newQueryGenerator(s, QueryPolicy)
	s.ec2 = newQueryGenerator(s, EC2QueryPolicy)
	s.serde = newSerdeGenerator(s)
	return s, nil
}

func (s *Session) Model() *smithy.Model {
	return s.model
}

func (s *Session) Target() Target {
	return s.target
}

func (s *Session) JSON() *JSONGenerator {
	return s.json
}

func (s *Session) XML() *XMLGenerator {
	return s.xml
}

func (s *Session) Query() *QueryGenerator {
	return s.query
}

func (s *Session) EC2Query() *QueryGenerator {
	return s.ec2
}

func (s *Session) Serde() *SerdeGenerator {
	return s.serde
}

// Generator looks a protocol generator up by the names accepted in
// configuration files.
func (s *Session) Generator(protocol string) (ProtocolGenerator, error) {
	switch protocol {
	case "json", "restJson1", "awsJson1_0", "awsJson1_1":
		return s.json, nil
	case "xml", "restXml":
		return s.xml, nil
	case "awsQuery", "query":
		return s.query, nil
	case "ec2Query":
		return s.ec2, nil
	default:
		return nil, fmt.Errorf("unknown protocol: %q", protocol)
	}
}

// resolveOperation returns (operation shape, input shape, input shape ID).
func (s *Session) resolveOperation(opID string) (*smithy.Shape, *smithy.Shape, string, error) {
	op := s.model.GetShape(opID)
	if op == nil {
		return nil, nil, "", fmt.Errorf("no such operation: %s", opID)
	}
	if op.Type != "operation" {
		return nil, nil, "", fmt.Errorf("%s is a %s, not an operation", opID, op.Type)
	}
	inputID := "smithy.api#Unit"
	if op.Input != nil {
		inputID = op.Input.Target
	}
	input := s.model.GetShape(inputID)
	if input == nil {
		return nil, nil, "", fmt.Errorf("operation %s input %s unresolved", opID, inputID)
	}
	return op, input, inputID, nil
}

// resolveOutput returns (output shape, output shape ID) for an operation.
func (s *Session) resolveOutput(opID string) (*smithy.Shape, string, error) {
	op := s.model.GetShape(opID)
	if op == nil || op.Type != "operation" {
		return nil, "", fmt.Errorf("no such operation: %s", opID)
	}
	outputID := "smithy.api#Unit"
	if op.Output != nil {
		outputID = op.Output.Target
	}
	output := s.model.GetShape(outputID)
	if output == nil {
		return nil, "", fmt.Errorf("operation %s output %s unresolved", opID, outputID)
	}
	return output, outputID, nil
}

// docBoundMembers lists the members of an input/output structure that
// belong in the protocol document body: everything not claimed by an
// HTTP label, query, header, or payload binding.
func docBoundMembers(shape *smithy.Shape) []string {
	var names []string
	for _, name := range shape.Members.Keys() {
		m := shape.Members.Get(name)
		if m.HasTrait(smithy.TraitHttpLabel) || m.HasTrait(smithy.TraitHttpQuery) ||
			m.HasTrait(smithy.TraitHttpHeader) || m.HasTrait(smithy.TraitHttpPayload) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// requiredMembers lists required member names, the set Builder.Finish
// validates.
func requiredMembers(shape *smithy.Shape) []string {
	var names []string
	for _, name := range shape.Members.Keys() {
		if shape.Members.Get(name).IsRequired() {
			names = append(names, name)
		}
	}
	return names
}
