// Package eval compiles criterion trees into executable predicates over Go
// values. It is the in-memory backend; package querysql is the symbolic one.
// Both walk the same filter tree and enforce the same typing rules.
package eval

import (
	"fmt"
	"reflect"

	"github.com/siftgo/sift/filter"
	"github.com/siftgo/sift/schema"
)

// Predicate is a compiled boolean test over records of the type it was
// compiled for. Passing a value of another type returns false.
type Predicate func(record any) bool

// Options control compilation.
type Options struct {
	// NullGuard makes a nil pointer crossed before the terminal hop of a
	// multi-segment column behave as the type-appropriate zero value.
	// Without it, a nil intermediate simply fails the leaf.
	NullGuard bool

	// Resolver resolves column paths; nil uses schema.Default.
	Resolver *schema.Resolver
}

// DefaultOptions enables null guarding with the shared resolver.
func DefaultOptions() Options {
	return Options{NullGuard: true, Resolver: schema.Default}
}

// Compile turns a criterion tree into an executable predicate over values of
// type t. Column resolution, value coercion and operator/type checks all
// happen here, so every error a criterion can produce surfaces before the
// first record is tested.
func Compile(n filter.Node, t reflect.Type, opts Options) (Predicate, error) {
	c := &compiler{opts: opts}
	if c.opts.Resolver == nil {
		c.opts.Resolver = schema.Default
	}
	t = derefType(t)
	fn, err := c.compileNode(n, t, nil)
	if err != nil {
		return nil, err
	}
	return wrap(fn, t), nil
}

// CompileAll conjoins a criterion list into one predicate. An empty list
// compiles to a predicate that is always true.
func CompileAll(nodes []filter.Node, t reflect.Type, opts Options) (Predicate, error) {
	if len(nodes) == 0 {
		return func(any) bool { return true }, nil
	}
	if len(nodes) == 1 {
		return Compile(nodes[0], t, opts)
	}
	return Compile(&filter.Composite{Op: filter.And, Children: nodes}, t, opts)
}

// For is the typed convenience form of Compile.
func For[T any](n filter.Node, opts Options) (func(T) bool, error) {
	pred, err := Compile(n, reflect.TypeOf(*new(T)), opts)
	if err != nil {
		return nil, err
	}
	return func(v T) bool { return pred(v) }, nil
}

func wrap(fn matchFunc, t reflect.Type) Predicate {
	return func(record any) bool {
		v := reflect.ValueOf(record)
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return false
			}
			v = v.Elem()
		}
		if v.Type() != t {
			return false
		}
		return fn(v)
	}
}

// matchFunc tests one reflect.Value of the compiled record (or element) type.
type matchFunc func(v reflect.Value) bool

type compiler struct {
	opts Options
}

// compileNode compiles n against type t. scope is the quantifier prefix the
// surrounding composites have established; leaf columns are relativized
// against it before resolution.
func (c *compiler) compileNode(n filter.Node, t reflect.Type, scope filter.Column) (matchFunc, error) {
	switch node := n.(type) {
	case *filter.Leaf:
		return c.compileLeaf(node, t, scope)
	case *filter.Composite:
		switch node.Op {
		case filter.And, filter.Or:
			return c.compileBool(node, t, scope)
		case filter.Any, filter.All:
			return c.compileQuantifier(node, t, scope)
		default:
			return nil, fmt.Errorf("unknown composite operator %q", node.Op)
		}
	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
}

// compileBool combines children left to right with short-circuiting; the
// grouping follows the tree shape exactly.
func (c *compiler) compileBool(node *filter.Composite, t reflect.Type, scope filter.Column) (matchFunc, error) {
	children := make([]matchFunc, 0, len(node.Children))
	for _, child := range node.Children {
		fn, err := c.compileNode(child, t, scope)
		if err != nil {
			return nil, err
		}
		children = append(children, fn)
	}
	if node.Op == filter.And {
		return func(v reflect.Value) bool {
			for _, fn := range children {
				if !fn(v) {
					return false
				}
			}
			return true
		}, nil
	}
	return func(v reflect.Value) bool {
		for _, fn := range children {
			if fn(v) {
				return true
			}
		}
		return false
	}, nil
}

// compileQuantifier compiles any/all: children are compiled against the
// collection's element type and conjoined with AND, then wrapped in the
// existential or universal test. By convention, all over an empty collection
// is true and any over an empty collection is false.
func (c *compiler) compileQuantifier(node *filter.Composite, t reflect.Type, scope filter.Column) (matchFunc, error) {
	rel := node.Quantified.Rel(scope)
	path, err := c.opts.Resolver.Resolve(t, rel)
	if err != nil {
		return nil, err
	}
	if path.Leaf.Kind() != reflect.Slice && path.Leaf.Kind() != reflect.Array {
		return nil, &schema.OperatorMismatchError{
			Op: string(node.Op), Column: node.Quantified.String(), Type: path.Leaf.String(),
		}
	}
	elemType := derefType(path.Leaf.Elem())

	children := make([]matchFunc, 0, len(node.Children))
	for _, child := range node.Children {
		fn, err := c.compileNode(child, elemType, node.Quantified)
		if err != nil {
			return nil, err
		}
		children = append(children, fn)
	}
	element := func(ev reflect.Value) bool {
		for ev.Kind() == reflect.Pointer {
			if ev.IsNil() {
				return false
			}
			ev = ev.Elem()
		}
		for _, fn := range children {
			if !fn(ev) {
				return false
			}
		}
		return true
	}

	universal := node.Op == filter.All
	guard := c.opts.NullGuard
	return func(v reflect.Value) bool {
		coll, ok := path.Get(v)
		if !ok {
			if !guard {
				return false
			}
			// A nil chain reads as an empty collection under the guard.
			return universal
		}
		for i := 0; i < coll.Len(); i++ {
			if element(coll.Index(i)) != universal {
				return !universal
			}
		}
		return universal
	}, nil
}
