package gen

import (
	"errors"
	"fmt"
)

// Generation-time failures are contract violations in the model/protocol
// combination and are fatal at generation time. Runtime codec failures are
// typed errors returned by the generated functions; nothing panics.

// ErrUnsupported marks a shape/protocol combination generation cannot
// honor. Never deferred to the generated code.
var ErrUnsupported = errors.New("unsupported shape/protocol combination")

func unsupported(protocol, shapeID, detail string) error {
	return fmt.Errorf("%w: %s cannot encode %s (%s)", ErrUnsupported, protocol, shapeID, detail)
}

// UnknownVariantError reports an attempt to serialize a union variant the
// client does not statically recognize. Always fatal at the call site.
type UnknownVariantError struct {
	ShapeID string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("cannot serialize unknown variant of union %s", e.ShapeID)
}

// SerializeError wraps a runtime encode failure with the shape being
// encoded when it occurred.
type SerializeError struct {
	ShapeID string
	Err     error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("serializing %s: %v", e.ShapeID, e.Err)
}

func (e *SerializeError) Unwrap() error {
	return e.Err
}

// ParseError wraps a runtime decode failure. Partial population of a
// builder before the failure is allowed; completeness is Finish's job.
type ParseError struct {
	ShapeID string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.ShapeID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func serializeErr(shapeID string, err error) error {
	if err == nil {
		return nil
	}
	return &SerializeError{ShapeID: shapeID, Err: err}
}

func parseErr(shapeID string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{ShapeID: shapeID, Err: err}
}
