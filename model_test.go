package smithy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestAssembleModel(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "service.json", `{
  "smithy": "2.0",
  "shapes": {
    "example#Svc": {"type": "service", "version": "2020-01-01", "operations": [{"target": "example#Op"}]},
    "example#Op": {"type": "operation", "input": {"target": "example#In"}}
  }
}`)
	writeModelFile(t, dir, "types.json", `{
  "smithy": "2.0",
  "shapes": {
    "example#In": {"type": "structure", "members": {"id": {"target": "smithy.api#String"}}}
  }
}`)
	model, err := AssembleModel([]string{dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, "example#Svc", model.ServiceID())
	assert.Equal(t, []string{"example#Op"}, model.OperationIDs())
	assert.NotNil(t, model.GetShape("example#In"))
}

func TestAssembleModelDuplicateShape(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "a.json", `{"smithy": "2.0", "shapes": {"example#S": {"type": "string"}}}`)
	writeModelFile(t, dir, "b.json", `{"smithy": "2.0", "shapes": {"example#S": {"type": "string"}}}`)
	_, err := AssembleModel([]string{dir}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate shape")
}

func TestAssembleModelWithTags(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "m.json", `{
  "smithy": "2.0",
  "shapes": {
    "example#Keep": {"type": "string", "traits": {"smithy.api#tags": ["public"]}},
    "example#Drop": {"type": "string"}
  }
}`)
	model, err := AssembleModel([]string{dir}, []string{"public"})
	require.NoError(t, err)
	assert.Equal(t, []string{"example#Keep"}, model.ShapeNames())
}

func TestAssembleModelNoFiles(t *testing.T) {
	_, err := AssembleModel([]string{t.TempDir()}, nil)
	assert.Error(t, err)
}

func TestModelFromASTValidates(t *testing.T) {
	ast := astFromJSON(t, `{
  "smithy": "2.0",
  "shapes": {"example#U": {"type": "union", "members": {}}}
}`)
	_, err := ModelFromAST(ast)
	assert.Error(t, err)
}
