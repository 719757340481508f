package filter

// Where builds a leaf with an explicit operator.
func Where(column string, op Operator, value string) *Leaf {
	return &Leaf{Column: Col(column), Op: op, RawValue: value}
}

// Eq builds column:eq(value). The remaining comparison helpers follow the
// same shape.
func Eq(column, value string) *Leaf  { return Where(column, OpEq, value) }
func Neq(column, value string) *Leaf { return Where(column, OpNeq, value) }
func Gt(column, value string) *Leaf  { return Where(column, OpGt, value) }
func Gte(column, value string) *Leaf { return Where(column, OpGte, value) }
func Lt(column, value string) *Leaf  { return Where(column, OpLt, value) }
func Lte(column, value string) *Leaf { return Where(column, OpLte, value) }
func Ct(column, value string) *Leaf  { return Where(column, OpCt, value) }
func Nct(column, value string) *Leaf { return Where(column, OpNct, value) }
func Sw(column, value string) *Leaf  { return Where(column, OpSw, value) }
func Ew(column, value string) *Leaf  { return Where(column, OpEw, value) }
func In(column, value string) *Leaf  { return Where(column, OpIn, value) }

// AndOf combines children with logical AND, grouped exactly as given.
func AndOf(children ...Node) *Composite {
	return &Composite{Op: And, Children: children}
}

// OrOf combines children with logical OR.
func OrOf(children ...Node) *Composite {
	return &Composite{Op: Or, Children: children}
}

// AnyOf quantifies children over the collection column: true when at least
// one element satisfies all of them. Child columns are written relative to
// the element type; AnyOf qualifies them with the collection path, exactly
// as the parser does.
func AnyOf(column string, children ...Node) *Composite {
	return quantified(Any, column, children)
}

// AllOf quantifies children over the collection column: true when every
// element satisfies all of them, vacuously true for an empty collection.
func AllOf(column string, children ...Node) *Composite {
	return quantified(All, column, children)
}

func quantified(op CompositeOp, column string, children []Node) *Composite {
	col := Col(column)
	qualified := make([]Node, 0, len(children))
	for _, child := range children {
		qualified = append(qualified, qualifyNode(child, col))
	}
	return &Composite{Op: op, Quantified: col, Children: qualified}
}

// Asc builds an ascending sort key.
func Asc(column string) Sort {
	return Sort{Column: Col(column), Direction: Ascending}
}

// Desc builds a descending sort key.
func Desc(column string) Sort {
	return Sort{Column: Col(column), Direction: Descending}
}
