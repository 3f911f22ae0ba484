package smithy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func astFromJSON(t *testing.T, src string) *AST {
	t.Helper()
	var ast AST
	require.NoError(t, json.Unmarshal([]byte(src), &ast))
	return &ast
}

func TestShapesPreserveOrder(t *testing.T) {
	ast := astFromJSON(t, `{
  "smithy": "2.0",
  "shapes": {
    "example#Zebra": {"type": "string"},
    "example#Apple": {"type": "string"},
    "example#Mango": {"type": "string"}
  }
}`)
	assert.Equal(t, []string{"example#Zebra", "example#Apple", "example#Mango"}, ast.Shapes.Keys())

	raw, err := json.Marshal(ast.Shapes)
	require.NoError(t, err)
	reparsed := NewShapes()
	require.NoError(t, json.Unmarshal(raw, reparsed))
	assert.Equal(t, ast.Shapes.Keys(), reparsed.Keys())
}

func TestGetShapePreludeFallback(t *testing.T) {
	ast := astFromJSON(t, `{"smithy": "2.0", "shapes": {}}`)
	s := ast.GetShape("smithy.api#String")
	require.NotNil(t, s)
	assert.Equal(t, "string", s.Type)

	unit := ast.GetShape("smithy.api#Unit")
	require.NotNil(t, unit)
	assert.Equal(t, "structure", unit.Type)
	assert.Equal(t, 0, unit.Members.Length())

	assert.Nil(t, ast.GetShape("example#Missing"))
}

func TestResolveMember(t *testing.T) {
	ast := astFromJSON(t, `{"smithy": "2.0", "shapes": {"example#S": {"type": "string"}}}`)
	shape, err := ast.ResolveMember(&Member{Target: "example#S"})
	require.NoError(t, err)
	assert.Equal(t, "string", shape.Type)

	_, err = ast.ResolveMember(&Member{Target: "example#Nope"})
	assert.Error(t, err)
	_, err = ast.ResolveMember(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	good := astFromJSON(t, `{
  "smithy": "2.0",
  "shapes": {
    "example#S": {"type": "structure", "members": {"a": {"target": "smithy.api#String"}}},
    "example#L": {"type": "list", "member": {"target": "example#S"}}
  }
}`)
	assert.NoError(t, good.Validate())

	dangling := astFromJSON(t, `{
  "smithy": "2.0",
  "shapes": {
    "example#S": {"type": "structure", "members": {"a": {"target": "example#Nope"}}}
  }
}`)
	err := dangling.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example#S$a")

	emptyUnion := astFromJSON(t, `{
  "smithy": "2.0",
  "shapes": {"example#U": {"type": "union", "members": {}}}
}`)
	err = emptyUnion.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "union with no members")
}

func TestMergeDuplicateShape(t *testing.T) {
	a := astFromJSON(t, `{"smithy": "2.0", "shapes": {"example#S": {"type": "string"}}}`)
	b := astFromJSON(t, `{"smithy": "2.0", "shapes": {"example#S": {"type": "integer"}}}`)
	err := a.Merge(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate shape")
}

func TestMergeMetadata(t *testing.T) {
	a := astFromJSON(t, `{"smithy": "2.0", "metadata": {"x": "1"}, "shapes": {}}`)
	same := astFromJSON(t, `{"smithy": "2.0", "metadata": {"x": "1", "y": "2"}, "shapes": {"example#A": {"type": "string"}}}`)
	require.NoError(t, a.Merge(same))
	assert.Equal(t, "2", a.Metadata.GetString("y"))
	assert.NotNil(t, a.GetShape("example#A"))

	conflict := astFromJSON(t, `{"smithy": "2.0", "metadata": {"x": "other"}}`)
	err := a.Merge(conflict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict")
}

func TestFilterByTags(t *testing.T) {
	ast := astFromJSON(t, `{
  "smithy": "2.0",
  "shapes": {
    "example#Keep": {
      "type": "structure",
      "traits": {"smithy.api#tags": ["wanted"]},
      "members": {"dep": {"target": "example#Dep"}}
    },
    "example#Dep": {"type": "string"},
    "example#Drop": {"type": "string"}
  }
}`)
	ast.Filter([]string{"wanted"})
	// the tagged root and its transitive dependencies survive
	assert.NotNil(t, ast.GetShape("example#Keep"))
	assert.NotNil(t, ast.GetShape("example#Dep"))
	assert.Nil(t, ast.Shapes.Get("example#Drop"))
}

func TestNamespaces(t *testing.T) {
	ast := astFromJSON(t, `{
  "smithy": "2.0",
  "shapes": {
    "a.one#X": {"type": "string"},
    "a.one#Y": {"type": "string"},
    "b.two#Z": {"type": "string"}
  }
}`)
	assert.Equal(t, []string{"a.one", "b.two"}, ast.Namespaces())
}

func TestTraitAccessorsNilSafe(t *testing.T) {
	var shape *Shape
	assert.False(t, shape.HasTrait(TraitSensitive))
	assert.Equal(t, "", shape.StringTrait(TraitXmlName))

	var m *Member
	assert.False(t, m.HasTrait(TraitRequired))
	assert.Equal(t, "", m.StringTrait(TraitJsonName))
	assert.False(t, m.IsRequired())
}
