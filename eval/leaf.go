package eval

import (
	"reflect"
	"strings"
	"time"

	"github.com/siftgo/sift/filter"
	"github.com/siftgo/sift/schema"
)

var timeType = reflect.TypeOf(time.Time{})

func (c *compiler) compileLeaf(leaf *filter.Leaf, t reflect.Type, scope filter.Column) (matchFunc, error) {
	rel := leaf.Column.Rel(scope)
	path, err := c.opts.Resolver.Resolve(t, rel)
	if err != nil {
		return nil, err
	}

	get := c.getter(path)
	switch leaf.Op {
	case filter.OpEq, filter.OpNeq:
		return c.compileEquality(leaf, path, get)
	case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		return c.compileOrdering(leaf, path, get)
	case filter.OpCt, filter.OpNct:
		return c.compileContains(leaf, path, get)
	case filter.OpSw, filter.OpEw:
		return c.compileAffix(leaf, path, get)
	case filter.OpIn:
		return c.compileIn(leaf, path, get)
	default:
		return nil, &schema.OperatorMismatchError{
			Op: string(leaf.Op), Column: leaf.Column.String(), Type: path.Leaf.String(),
		}
	}
}

// getter wraps Path.Get with the null-guard policy: a nil intermediate
// yields the zero value of the terminal type when guarding is on, and a
// definitive miss otherwise.
func (c *compiler) getter(path *schema.Path) func(reflect.Value) (reflect.Value, bool) {
	guard := c.opts.NullGuard
	return func(v reflect.Value) (reflect.Value, bool) {
		got, ok := path.Get(v)
		if !ok {
			if !guard {
				return reflect.Value{}, false
			}
			return reflect.Zero(path.Leaf), true
		}
		return got, true
	}
}

func (c *compiler) compileEquality(leaf *filter.Leaf, path *schema.Path, get func(reflect.Value) (reflect.Value, bool)) (matchFunc, error) {
	if _, ordered := orderKind(path.Leaf); !ordered && !path.Leaf.Comparable() {
		return nil, &schema.OperatorMismatchError{
			Op: string(leaf.Op), Column: leaf.Column.String(), Type: path.Leaf.String(),
		}
	}
	constant, err := coerceTo(leaf.RawValue, path.Leaf)
	if err != nil {
		return nil, err
	}
	negate := leaf.Op == filter.OpNeq
	return func(v reflect.Value) bool {
		got, ok := get(v)
		if !ok {
			return false
		}
		return equalValues(got, constant) != negate
	}, nil
}

func (c *compiler) compileOrdering(leaf *filter.Leaf, path *schema.Path, get func(reflect.Value) (reflect.Value, bool)) (matchFunc, error) {
	if _, ordered := orderKind(path.Leaf); !ordered {
		return nil, &schema.OperatorMismatchError{
			Op: string(leaf.Op), Column: leaf.Column.String(), Type: path.Leaf.String(),
		}
	}
	constant, err := coerceTo(leaf.RawValue, path.Leaf)
	if err != nil {
		return nil, err
	}
	op := leaf.Op
	return func(v reflect.Value) bool {
		got, ok := get(v)
		if !ok {
			return false
		}
		cmp, _ := compareValues(got, constant)
		switch op {
		case filter.OpGt:
			return cmp > 0
		case filter.OpGte:
			return cmp >= 0
		case filter.OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	}, nil
}

// compileContains: substring test for string columns, value-in-collection
// for collection columns, and "is one of" (comma-split list membership) for
// any other scalar column. nct is the negation of ct in every form.
func (c *compiler) compileContains(leaf *filter.Leaf, path *schema.Path, get func(reflect.Value) (reflect.Value, bool)) (matchFunc, error) {
	negate := leaf.Op == filter.OpNct

	switch {
	case path.Leaf.Kind() == reflect.String:
		needle := leaf.RawValue
		return func(v reflect.Value) bool {
			got, ok := get(v)
			if !ok {
				return false
			}
			return strings.Contains(got.String(), needle) != negate
		}, nil

	case path.Leaf.Kind() == reflect.Slice || path.Leaf.Kind() == reflect.Array:
		elemType := derefType(path.Leaf.Elem())
		constant, err := coerceTo(leaf.RawValue, elemType)
		if err != nil {
			return nil, err
		}
		return func(v reflect.Value) bool {
			got, ok := get(v)
			if !ok {
				return false
			}
			return containsElement(got, constant) != negate
		}, nil

	default:
		constants, err := coerceListTo(leaf.RawValue, path.Leaf)
		if err != nil {
			return nil, err
		}
		return func(v reflect.Value) bool {
			got, ok := get(v)
			if !ok {
				return false
			}
			return memberOf(got, constants) != negate
		}, nil
	}
}

func (c *compiler) compileAffix(leaf *filter.Leaf, path *schema.Path, get func(reflect.Value) (reflect.Value, bool)) (matchFunc, error) {
	if path.Leaf.Kind() != reflect.String {
		return nil, &schema.OperatorMismatchError{
			Op: string(leaf.Op), Column: leaf.Column.String(), Type: path.Leaf.String(),
		}
	}
	affix := leaf.RawValue
	prefix := leaf.Op == filter.OpSw
	return func(v reflect.Value) bool {
		got, ok := get(v)
		if !ok {
			return false
		}
		if prefix {
			return strings.HasPrefix(got.String(), affix)
		}
		return strings.HasSuffix(got.String(), affix)
	}, nil
}

func (c *compiler) compileIn(leaf *filter.Leaf, path *schema.Path, get func(reflect.Value) (reflect.Value, bool)) (matchFunc, error) {
	constants, err := coerceListTo(leaf.RawValue, path.Leaf)
	if err != nil {
		return nil, err
	}
	return func(v reflect.Value) bool {
		got, ok := get(v)
		if !ok {
			return false
		}
		return memberOf(got, constants)
	}, nil
}

func coerceTo(raw string, t reflect.Type) (reflect.Value, error) {
	v, err := schema.Coerce(raw, t)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}

func coerceListTo(raw string, t reflect.Type) ([]reflect.Value, error) {
	vs, err := schema.CoerceList(raw, t)
	if err != nil {
		return nil, err
	}
	values := make([]reflect.Value, 0, len(vs))
	for _, v := range vs {
		values = append(values, reflect.ValueOf(v))
	}
	return values, nil
}

func containsElement(coll, constant reflect.Value) bool {
	for i := 0; i < coll.Len(); i++ {
		ev := coll.Index(i)
		for ev.Kind() == reflect.Pointer {
			if ev.IsNil() {
				break
			}
			ev = ev.Elem()
		}
		if ev.Kind() != reflect.Pointer && equalValues(ev, constant) {
			return true
		}
	}
	return false
}

func memberOf(v reflect.Value, constants []reflect.Value) bool {
	for _, c := range constants {
		if equalValues(v, c) {
			return true
		}
	}
	return false
}

// orderKind reports whether t supports ordered comparison and classifies it.
type ordClass int

const (
	ordNone ordClass = iota
	ordInt
	ordUint
	ordFloat
	ordString
	ordTime
)

func orderKind(t reflect.Type) (ordClass, bool) {
	if t == timeType {
		return ordTime, true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ordInt, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ordUint, true
	case reflect.Float32, reflect.Float64:
		return ordFloat, true
	case reflect.String:
		return ordString, true
	default:
		return ordNone, false
	}
}

// compareValues orders two values of the same type. ok is false for
// unordered types, in which case cmp is meaningless.
func compareValues(a, b reflect.Value) (int, bool) {
	class, ordered := orderKind(a.Type())
	if !ordered {
		return 0, false
	}
	switch class {
	case ordInt:
		return cmpOrdered(a.Int(), b.Int()), true
	case ordUint:
		return cmpOrdered(a.Uint(), b.Uint()), true
	case ordFloat:
		return cmpOrdered(a.Float(), b.Float()), true
	case ordString:
		return strings.Compare(a.String(), b.String()), true
	default:
		at := a.Interface().(time.Time)
		bt := b.Interface().(time.Time)
		return at.Compare(bt), true
	}
}

// equalValues tests equality of two values of the same type. time.Time
// compares by instant so location and monotonic clock differences do not
// leak into filter results.
func equalValues(a, b reflect.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	if cmp, ordered := compareValues(a, b); ordered {
		return cmp == 0
	}
	if !a.Type().Comparable() {
		return false
	}
	return a.Equal(b)
}

func cmpOrdered[T int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
