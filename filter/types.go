package filter

import "strings"

// Operator identifies the comparison a leaf applies between a column value
// and its raw literal.
//
// Operator semantics:
//   - OpEq/OpNeq: equality / inequality
//   - OpGt/OpGte/OpLt/OpLte: ordered comparison (numbers, strings, times)
//   - OpCt/OpNct: substring test for string columns, membership test for
//     everything else (the raw value is split on commas into a list)
//   - OpSw/OpEw: string prefix / suffix
//   - OpIn: membership in a comma-separated value list
type Operator string

const (
	OpEq  Operator = "eq"
	OpNeq Operator = "neq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpCt  Operator = "ct"
	OpNct Operator = "nct"
	OpSw  Operator = "sw"
	OpEw  Operator = "ew"
	OpIn  Operator = "in"
)

// ValidOperators enumerates every leaf operator token the grammar accepts.
var ValidOperators = map[Operator]bool{
	OpEq: true, OpNeq: true,
	OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpCt: true, OpNct: true, OpSw: true, OpEw: true,
	OpIn: true,
}

// CompositeOp identifies how a composite combines its children.
type CompositeOp string

const (
	// And is true when every child is true. Children are evaluated left to
	// right with short-circuiting.
	And CompositeOp = "and"
	// Or is true when at least one child is true.
	Or CompositeOp = "or"
	// Any ranges over a collection column and is true when at least one
	// element satisfies the children. Empty collections are false.
	Any CompositeOp = "any"
	// All ranges over a collection column and is true when every element
	// satisfies the children. Empty collections are vacuously true.
	All CompositeOp = "all"
)

// Direction orders a sort key.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Column is a dotted path of member names locating a value inside a record
// type, one segment per hop ("profile.address.city" → 3 segments).
// Columns are never empty in a well-formed tree.
type Column []string

// Col splits a dotted path into a Column. Whitespace around segments is
// trimmed so "a. b" and "a.b" name the same path.
func Col(path string) Column {
	parts := strings.Split(path, ".")
	col := make(Column, 0, len(parts))
	for _, p := range parts {
		col = append(col, strings.TrimSpace(p))
	}
	return col
}

// String renders the column back to its dotted form.
func (c Column) String() string {
	return strings.Join(c, ".")
}

// EqualFold reports whether two columns name the same path, comparing each
// segment case-insensitively.
func (c Column) EqualFold(other Column) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if !strings.EqualFold(c[i], other[i]) {
			return false
		}
	}
	return true
}

// HasPrefix reports whether c starts with every segment of prefix,
// case-insensitively.
func (c Column) HasPrefix(prefix Column) bool {
	if len(prefix) > len(c) {
		return false
	}
	for i := range prefix {
		if !strings.EqualFold(c[i], prefix[i]) {
			return false
		}
	}
	return true
}

// Rel strips prefix from c. Columns inside a quantifier are stored fully
// qualified; Rel recovers the element-relative path. If c does not carry the
// prefix it is returned unchanged, which lets hand-built trees use
// element-relative columns directly.
func (c Column) Rel(prefix Column) Column {
	if len(prefix) == 0 || !c.HasPrefix(prefix) || len(c) == len(prefix) {
		return c
	}
	return c[len(prefix):]
}

// qualify prepends prefix to c.
func (c Column) qualify(prefix Column) Column {
	if len(prefix) == 0 {
		return c
	}
	q := make(Column, 0, len(prefix)+len(c))
	q = append(q, prefix...)
	q = append(q, c...)
	return q
}

// Node is the criterion tree. It is a sealed interface: only Leaf and
// Composite implement it, which keeps backend type switches exhaustive.
type Node interface {
	filterNode()
}

// Leaf is a single column comparison. RawValue stays textual until a backend
// compiles the leaf, so type errors surface where the destination type is
// known rather than at parse time.
type Leaf struct {
	Column   Column
	Op       Operator
	RawValue string
}

func (*Leaf) filterNode() {}

// Composite combines child nodes under a boolean or quantifier operator.
//
// Quantified is set only for Any/All and names the collection column the
// quantifier ranges over. Children of a quantifier store columns qualified by
// the quantified path; backends relativize them against the element type.
// Child order is preserved: it fixes the formatted text, not the logic of
// And/Or.
type Composite struct {
	Op         CompositeOp
	Quantified Column
	Children   []Node
}

func (*Composite) filterNode() {}

// Sort is one key of an ordering, evaluated left to right across a sort
// list; later keys break ties of earlier ones.
type Sort struct {
	Column    Column
	Direction Direction
}

// qualifyNode rewrites every leaf column and quantified column under n by
// prepending prefix. Used when a quantifier adopts children so that all
// columns stay rooted at the record type.
func qualifyNode(n Node, prefix Column) Node {
	switch node := n.(type) {
	case *Leaf:
		return &Leaf{Column: node.Column.qualify(prefix), Op: node.Op, RawValue: node.RawValue}
	case *Composite:
		children := make([]Node, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, qualifyNode(child, prefix))
		}
		q := node.Quantified
		if len(q) > 0 {
			q = q.qualify(prefix)
		}
		return &Composite{Op: node.Op, Quantified: q, Children: children}
	default:
		return n
	}
}
