package smithy

import (
	"fmt"

	"github.com/boynton/data"
	"github.com/hengadev/errsx"
)

// Builder is the parse-time stand-in for a structure value. Parsers populate
// it field by field as wire bytes decode; required-field completeness is
// checked only in Finish, so "no body" and "body omitting all fields" decode
// identically and fail (or not) identically.
type Builder struct {
	shapeID string
	fields  *data.Object
}

func NewBuilder(shapeID string) *Builder {
	return &Builder{
		shapeID: shapeID,
		fields:  data.NewObject(),
	}
}

func (b *Builder) ShapeID() string {
	return b.shapeID
}

func (b *Builder) Set(name string, value interface{}) {
	b.fields.Put(name, value)
}

func (b *Builder) Get(name string) interface{} {
	return b.fields.Get(name)
}

func (b *Builder) Has(name string) bool {
	return b.fields.Has(name)
}

func (b *Builder) Keys() []string {
	return b.fields.Keys()
}

// Finish validates that every required member is present and returns the
// completed structure value. Missing fields are reported together, one
// entry per member.
func (b *Builder) Finish(required []string) (*data.Object, error) {
	var errs errsx.Map
	for _, name := range required {
		if !b.fields.Has(name) {
			errs.Set(name, fmt.Errorf("missing required member %s$%s", b.shapeID, name))
		}
	}
	if !errs.IsEmpty() {
		return nil, errs.AsError()
	}
	return b.fields, nil
}
