package smithy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/boynton/data"
)

// Model wraps an assembled, validated AST. Generation consumes it read-only.
type Model struct {
	ast *AST
}

func (model *Model) String() string {
	return data.Pretty(model.ast)
}

func (model *Model) GetAst() *AST {
	return model.ast
}

func (model *Model) GetShape(id string) *Shape {
	return model.ast.GetShape(id)
}

func (model *Model) ShapeNames() []string {
	return model.ast.ShapeNames()
}

func (model *Model) Namespaces() []string {
	return model.ast.Namespaces()
}

// ModelFromAST wraps a pre-assembled graph, validating it first.
func ModelFromAST(ast *AST) (*Model, error) {
	if err := ast.Validate(); err != nil {
		return nil, err
	}
	return &Model{ast: ast}, nil
}

// AssembleModel merges one or more JSON AST files (or directories of them)
// into a single validated model, optionally filtered by shape tags.
func AssembleModel(paths []string, tags []string) (*Model, error) {
	flatPathList, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(flatPathList) == 0 {
		return nil, fmt.Errorf("no model files found in %v", paths)
	}
	assembly := &AST{}
	for _, path := range flatPathList {
		ast, err := LoadAST(path)
		if err != nil {
			return nil, err
		}
		err = assembly.Merge(ast)
		if err != nil {
			return nil, err
		}
	}
	if len(tags) > 0 {
		assembly.Filter(tags)
	}
	return ModelFromAST(assembly)
}

func expandPaths(paths []string) ([]string, error) {
	var result []string
	for _, path := range paths {
		if filepath.Ext(path) == ".json" {
			result = append(result, path)
			continue
		}
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if fi.IsDir() {
			err = filepath.Walk(path, func(wpath string, info os.FileInfo, errIncoming error) error {
				if errIncoming != nil {
					return errIncoming
				}
				if filepath.Ext(wpath) == ".json" {
					result = append(result, wpath)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// OperationIDs lists operation shapes in model order, the order generation
// walks them.
func (model *Model) OperationIDs() []string {
	var ids []string
	for _, id := range model.ast.Shapes.Keys() {
		if model.ast.Shapes.Get(id).Type == "operation" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ServiceID returns the first service shape, or "".
func (model *Model) ServiceID() string {
	for _, id := range model.ast.Shapes.Keys() {
		if model.ast.Shapes.Get(id).Type == "service" {
			return id
		}
	}
	return ""
}
