package schema

import (
	"errors"
	"fmt"
)

// ResolutionError reports a column segment that does not exist on the type
// being searched. It names the full path so errors from deep inside a
// composite stay attributable.
type ResolutionError struct {
	Column  string // full dotted path being resolved
	Segment string // the segment that failed
	Type    string // the type searched for the segment
	Reason  string // extra detail, e.g. ambiguity
}

func (e *ResolutionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot resolve %q: segment %q on %s: %s", e.Column, e.Segment, e.Type, e.Reason)
	}
	return fmt.Sprintf("cannot resolve %q: no member %q on %s", e.Column, e.Segment, e.Type)
}

// IsResolutionError reports whether err is (or wraps) a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

// CoercionError reports a raw value that cannot be converted to the resolved
// target type.
type CoercionError struct {
	Raw  string // the offending raw text
	Type string // target type name
	Err  error  // underlying parse failure, may be nil
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %q to %s", e.Raw, e.Type)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// IsCoercionError reports whether err is (or wraps) a CoercionError.
func IsCoercionError(err error) bool {
	var ce *CoercionError
	return errors.As(err, &ce)
}

// OperatorMismatchError reports an operator applied to a value type it does
// not support, e.g. a substring test on an integer column. Backends reject
// the mismatch at compile time rather than coercing silently.
type OperatorMismatchError struct {
	Op     string
	Column string
	Type   string
}

func (e *OperatorMismatchError) Error() string {
	return fmt.Sprintf("operator %s not supported on column %q of type %s", e.Op, e.Column, e.Type)
}

// IsOperatorMismatchError reports whether err is (or wraps) an
// OperatorMismatchError.
func IsOperatorMismatchError(err error) bool {
	var oe *OperatorMismatchError
	return errors.As(err, &oe)
}
