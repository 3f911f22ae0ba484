package smithy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/boynton/data"
)

const UnspecifiedNamespace = "example"

// The prelude namespace. Members may target prelude primitives (e.g.
// smithy.api#String) that are never present in an assembled model.
const PreludeNamespace = "smithy.api"

type AST struct {
	Smithy   string       `json:"smithy"`
	Metadata *data.Object `json:"metadata,omitempty"`
	Shapes   *Shapes      `json:"shapes,omitempty"`
}

// a Shapes object is a map from Shape ID to *Shape. It preserves the order of its keys, unlike a Go map
type Shapes struct {
	keys     []string
	bindings map[string]*Shape
}

func NewShapes() *Shapes {
	return &Shapes{
		bindings: make(map[string]*Shape, 0),
	}
}

func (s *Shapes) UnmarshalJSON(raw []byte) error {
	keys, err := data.JsonKeysInOrder(raw)
	if err != nil {
		return err
	}
	shapes := NewShapes()
	shapes.keys = keys
	err = json.Unmarshal(raw, &shapes.bindings)
	if err != nil {
		return err
	}
	*s = *shapes
	return nil
}

func (s Shapes) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString("{")
	for i, key := range s.keys {
		value := s.bindings[key]
		if i > 0 {
			buffer.WriteString(",")
		}
		jsonValue, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buffer.WriteString(fmt.Sprintf("%q:%s", key, string(jsonValue)))
	}
	buffer.WriteString("}")
	return buffer.Bytes(), nil
}

func (s *Shapes) Put(key string, val *Shape) {
	if _, ok := s.bindings[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.bindings[key] = val
}

func (s *Shapes) Get(key string) *Shape {
	if s == nil {
		return nil
	}
	return s.bindings[key]
}

func (s *Shapes) Keys() []string {
	if s == nil {
		return nil
	}
	return s.keys
}

func (s *Shapes) Length() int {
	if s == nil || s.keys == nil {
		return 0
	}
	return len(s.keys)
}

// a Members object is a map from member name to *Member. It preserves the order of its keys, unlike a Go map
type Members struct {
	keys     []string
	bindings map[string]*Member
}

func NewMembers() *Members {
	return &Members{
		bindings: make(map[string]*Member, 0),
	}
}

func (m *Members) UnmarshalJSON(raw []byte) error {
	keys, err := data.JsonKeysInOrder(raw)
	if err != nil {
		return err
	}
	members := NewMembers()
	members.keys = keys
	err = json.Unmarshal(raw, &members.bindings)
	if err != nil {
		return err
	}
	*m = *members
	return nil
}

func (m Members) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString("{")
	for i, key := range m.keys {
		value := m.bindings[key]
		if i > 0 {
			buffer.WriteString(",")
		}
		jsonValue, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buffer.WriteString(fmt.Sprintf("%q:%s", key, string(jsonValue)))
	}
	buffer.WriteString("}")
	return buffer.Bytes(), nil
}

func (m *Members) Put(key string, val *Member) {
	if _, ok := m.bindings[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.bindings[key] = val
}

func (m *Members) Get(key string) *Member {
	if m == nil {
		return nil
	}
	return m.bindings[key]
}

func (m *Members) Keys() []string {
	if m != nil {
		return m.keys
	}
	return nil
}

func (m *Members) Length() int {
	if m == nil || m.keys == nil {
		return 0
	}
	return len(m.keys)
}

type Shape struct {
	Type   string       `json:"type"`
	Traits *data.Object `json:"traits,omitempty"`

	//List and Set
	Member *Member `json:"member,omitempty"`

	//Map
	Key   *Member `json:"key,omitempty"`
	Value *Member `json:"value,omitempty"`

	//Structure, Union, and Enum
	Members *Members `json:"members,omitempty"`

	//Operation
	Input  *ShapeRef   `json:"input,omitempty"`
	Output *ShapeRef   `json:"output,omitempty"`
	Errors []*ShapeRef `json:"errors,omitempty"`

	//Service
	Operations []*ShapeRef `json:"operations,omitempty"`
	Version    string      `json:"version,omitempty"`
}

type ShapeRef struct {
	Target string `json:"target"`
}

type Member struct {
	Target string       `json:"target"`
	Traits *data.Object `json:"traits,omitempty"`
}

func (shape *Shape) HasTrait(id string) bool {
	return shape != nil && shape.Traits.Has(id)
}

func (shape *Shape) StringTrait(id string) string {
	if shape == nil {
		return ""
	}
	return data.AsString(shape.Traits.Get(id))
}

func (m *Member) HasTrait(id string) bool {
	return m != nil && m.Traits.Has(id)
}

func (m *Member) StringTrait(id string) string {
	if m == nil {
		return ""
	}
	return data.AsString(m.Traits.Get(id))
}

func IsNumericType(shapeType string) bool {
	switch shapeType {
	case "byte", "short", "integer", "long", "float", "double", "bigInteger", "bigDecimal", "intEnum":
		return true
	}
	return false
}

func IsIntegerType(shapeType string) bool {
	switch shapeType {
	case "byte", "short", "integer", "long", "bigInteger", "intEnum":
		return true
	}
	return false
}

func IsFloatType(shapeType string) bool {
	switch shapeType {
	case "float", "double", "bigDecimal":
		return true
	}
	return false
}

func IsSimpleType(shapeType string) bool {
	switch shapeType {
	case "string", "enum", "boolean", "blob", "timestamp", "document":
		return true
	}
	return IsNumericType(shapeType)
}

func shapeIdNamespace(id string) string {
	//name.space#entity$member
	lst := strings.Split(id, "#")
	return lst[0]
}

func shapeIdName(id string) string {
	n := strings.Index(id, "#")
	if n < 0 {
		return id
	}
	return id[n+1:]
}

// prelude primitive shapes, resolvable without appearing in the assembly
var preludeShapes = map[string]*Shape{
	"smithy.api#String":           {Type: "string"},
	"smithy.api#Blob":             {Type: "blob"},
	"smithy.api#Boolean":          {Type: "boolean"},
	"smithy.api#Byte":             {Type: "byte"},
	"smithy.api#Short":            {Type: "short"},
	"smithy.api#Integer":          {Type: "integer"},
	"smithy.api#Long":             {Type: "long"},
	"smithy.api#Float":            {Type: "float"},
	"smithy.api#Double":           {Type: "double"},
	"smithy.api#BigInteger":       {Type: "bigInteger"},
	"smithy.api#BigDecimal":       {Type: "bigDecimal"},
	"smithy.api#Timestamp":        {Type: "timestamp"},
	"smithy.api#Document":         {Type: "document"},
	"smithy.api#Unit":             {Type: "structure", Members: NewMembers()},
	"smithy.api#PrimitiveBoolean": {Type: "boolean"},
	"smithy.api#PrimitiveByte":    {Type: "byte"},
	"smithy.api#PrimitiveShort":   {Type: "short"},
	"smithy.api#PrimitiveInteger": {Type: "integer"},
	"smithy.api#PrimitiveLong":    {Type: "long"},
	"smithy.api#PrimitiveFloat":   {Type: "float"},
	"smithy.api#PrimitiveDouble":  {Type: "double"},
}

func (ast *AST) PutShape(id string, shape *Shape) {
	if ast.Shapes == nil {
		ast.Shapes = NewShapes()
	}
	ast.Shapes.Put(id, shape)
}

func (ast *AST) GetShape(id string) *Shape {
	if shape := ast.Shapes.Get(id); shape != nil {
		return shape
	}
	return preludeShapes[id]
}

// ResolveMember returns the shape a member targets, or an error when the
// target is dangling. Generation treats a dangling target as fatal.
func (ast *AST) ResolveMember(m *Member) (*Shape, error) {
	if m == nil {
		return nil, fmt.Errorf("nil member")
	}
	shape := ast.GetShape(m.Target)
	if shape == nil {
		return nil, fmt.Errorf("unresolved member target: %s", m.Target)
	}
	return shape, nil
}

func (ast *AST) Namespaces() []string {
	m := make(map[string]int, 0)
	var nss []string
	if ast.Shapes != nil {
		for _, id := range ast.Shapes.Keys() {
			ns := shapeIdNamespace(id)
			if n, ok := m[ns]; ok {
				m[ns] = n + 1
			} else {
				m[ns] = 1
				nss = append(nss, ns)
			}
		}
	}
	return nss
}

// Validate checks the structural invariants generation relies on: every
// member target resolves, unions are non-empty, and operation refs resolve.
// Recursive shapes are assumed pre-boxed by the modeler.
func (ast *AST) Validate() error {
	for _, id := range ast.Shapes.Keys() {
		shape := ast.Shapes.Get(id)
		switch shape.Type {
		case "structure", "union", "enum":
			if shape.Type == "union" && shape.Members.Length() == 0 {
				return fmt.Errorf("union with no members: %s", id)
			}
			for _, name := range shape.Members.Keys() {
				if _, err := ast.ResolveMember(shape.Members.Get(name)); err != nil {
					return fmt.Errorf("%s$%s: %w", id, name, err)
				}
			}
		case "list", "set":
			if _, err := ast.ResolveMember(shape.Member); err != nil {
				return fmt.Errorf("%s$member: %w", id, err)
			}
		case "map":
			if _, err := ast.ResolveMember(shape.Key); err != nil {
				return fmt.Errorf("%s$key: %w", id, err)
			}
			if _, err := ast.ResolveMember(shape.Value); err != nil {
				return fmt.Errorf("%s$value: %w", id, err)
			}
		case "operation":
			for _, ref := range []*ShapeRef{shape.Input, shape.Output} {
				if ref != nil && ast.GetShape(ref.Target) == nil {
					return fmt.Errorf("operation %s references unknown shape %s", id, ref.Target)
				}
			}
		}
	}
	return nil
}

func (ast *AST) Merge(src *AST) error {
	if ast.Smithy == "" {
		ast.Smithy = src.Smithy
	}
	if src.Metadata != nil {
		if ast.Metadata == nil {
			ast.Metadata = src.Metadata
		} else {
			for _, k := range src.Metadata.Keys() {
				v := src.Metadata.Get(k)
				prev := ast.Metadata.Get(k)
				if prev != nil && !data.Equivalent(prev, v) {
					return fmt.Errorf("conflict when merging metadata in models: %s", k)
				}
				ast.Metadata.Put(k, v)
			}
		}
	}
	if src.Shapes != nil {
		for _, k := range src.Shapes.Keys() {
			if tmp := ast.Shapes.Get(k); tmp != nil {
				return fmt.Errorf("duplicate shape in assembly: %s", k)
			}
			ast.PutShape(k, src.GetShape(k))
		}
	}
	return nil
}

func (ast *AST) Filter(tags []string) {
	var root []string
	for _, k := range ast.Shapes.Keys() {
		shape := ast.Shapes.Get(k)
		shapeTags := shape.Traits.GetStringArray(TraitTags)
		for _, t := range shapeTags {
			if containsString(tags, t) {
				root = append(root, k)
			}
		}
	}
	included := make(map[string]bool, 0)
	for _, k := range root {
		if _, ok := included[k]; !ok {
			ast.noteDependencies(included, k)
		}
	}
	filtered := NewShapes()
	for _, name := range ast.Shapes.Keys() {
		if included[name] && !strings.HasPrefix(name, PreludeNamespace+"#") {
			filtered.Put(name, ast.Shapes.Get(name))
		}
	}
	ast.Shapes = filtered
}

func (ast *AST) noteDependenciesFromRef(included map[string]bool, ref *ShapeRef) {
	if ref != nil {
		ast.noteDependencies(included, ref.Target)
	}
}

func (ast *AST) noteDependencies(included map[string]bool, name string) {
	if name == "" || strings.HasPrefix(name, PreludeNamespace+"#") {
		return
	}
	if _, ok := included[name]; ok {
		return
	}
	included[name] = true
	shape := ast.GetShape(name)
	if shape == nil {
		return
	}
	if shape.Traits != nil {
		for _, tk := range shape.Traits.Keys() {
			ast.noteDependencies(included, tk)
		}
	}
	switch shape.Type {
	case "service":
		for _, o := range shape.Operations {
			ast.noteDependenciesFromRef(included, o)
		}
	case "operation":
		ast.noteDependenciesFromRef(included, shape.Input)
		ast.noteDependenciesFromRef(included, shape.Output)
		for _, e := range shape.Errors {
			ast.noteDependenciesFromRef(included, e)
		}
	case "structure", "union", "enum":
		for _, n := range shape.Members.Keys() {
			m := shape.Members.Get(n)
			ast.noteDependencies(included, m.Target)
		}
	case "list", "set":
		ast.noteDependencies(included, shape.Member.Target)
	case "map":
		ast.noteDependencies(included, shape.Key.Target)
		ast.noteDependencies(included, shape.Value.Target)
	}
}

func (ast *AST) ShapeNames() []string {
	var lst []string
	lst = append(lst, ast.Shapes.Keys()...)
	return lst
}

func LoadAST(path string) (*AST, error) {
	var ast *AST
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read smithy AST file: %w", err)
	}
	err = json.Unmarshal(raw, &ast)
	if err != nil {
		return nil, fmt.Errorf("cannot parse smithy AST file %s: %w", path, err)
	}
	if ast.Smithy == "" {
		return nil, fmt.Errorf("not a smithy AST file (missing version): %s", path)
	}
	return ast, nil
}

func containsString(ary []string, val string) bool {
	for _, s := range ary {
		if s == val {
			return true
		}
	}
	return false
}
