package gen

import (
	"github.com/boynton/data"
)

// ValueExpr describes how a generated function obtains the value it
// serializes: an owned value handed in directly, or a named reference
// into an enclosing structure. Ownership is always explicit at the point
// the expression is built and propagates through composition; generation
// never infers it from the value itself.
type ValueExpr struct {
	//Ref is true when Get reaches into a containing value rather than
	//owning its input.
	Ref    bool
	member string
	get    func(parent interface{}) (interface{}, bool)
}

// OwnedExpr is the identity expression: the function owns its input.
func OwnedExpr() ValueExpr {
	return ValueExpr{
		get: func(parent interface{}) (interface{}, bool) {
			return parent, parent != nil
		},
	}
}

// MemberExpr references a named member of a structure value. The second
// result is the presence guard for optional members.
func MemberExpr(name string) ValueExpr {
	return ValueExpr{
		Ref:    true,
		member: name,
		get: func(parent interface{}) (interface{}, bool) {
			obj, ok := parent.(*data.Object)
			if !ok || !obj.Has(name) {
				return nil, false
			}
			return obj.Get(name), true
		},
	}
}

// Get resolves the expression against a parent value.
func (e ValueExpr) Get(parent interface{}) (interface{}, bool) {
	return e.get(parent)
}

// MemberName returns the referenced member name, "" for owned values.
func (e ValueExpr) MemberName() string {
	return e.member
}
