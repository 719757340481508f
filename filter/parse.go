package filter

import "strings"

// Parse parses a single query of the string grammar into a criterion tree.
//
// Grammar:
//
//	query        := leaf | boolComposite | collComposite
//	leaf         := column ":" ( operator "(" value ")" | rawvalue )
//	boolComposite:= ("and"|"or") "(" argList ")"
//	collComposite:= column ":" ("any"|"all") "(" argList ")"
//	argList      := query ("," query)*
//
// Commas split arguments only at parenthesis depth zero, so a child
// composite's own arguments are never mistaken for siblings. A leaf whose
// remainder does not form a well-balanced operator(value) call keeps the
// entire remainder as a literal value under the default operator eq.
//
// A value that itself looks like an operator call is read as one: "x:eq(5)"
// always means operator eq, never the literal text "eq(5)". Literals of that
// shape must be built through the typed builder API instead.
//
// Parsing fails fast with a *GrammarError and never returns a partial tree.
func Parse(input string) (Node, error) {
	return parseNode(strings.TrimSpace(input))
}

// ParseList parses a comma-separated sequence of queries, splitting only at
// parenthesis depth zero.
func ParseList(input string) ([]Node, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	args, err := splitArgs(input)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(args))
	for _, arg := range args {
		node, err := parseNode(arg)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// ParseSort parses a sort list: "name:desc,age" orders by name descending,
// breaking ties by age ascending. A missing direction defaults to asc.
func ParseSort(input string) ([]Sort, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	var sorts []Sort
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, grammarErr(ErrCodeEmptyQuery, input)
		}
		colText, dirText, hasDir := strings.Cut(item, ":")
		col, err := parseColumn(colText)
		if err != nil {
			return nil, err
		}
		dir := Ascending
		if hasDir {
			switch strings.ToLower(strings.TrimSpace(dirText)) {
			case "asc":
				dir = Ascending
			case "desc":
				dir = Descending
			default:
				return nil, grammarErr(ErrCodeBadSortDirection, item)
			}
		}
		sorts = append(sorts, Sort{Column: col, Direction: dir})
	}
	return sorts, nil
}

func parseNode(input string) (Node, error) {
	if input == "" {
		return nil, grammarErr(ErrCodeEmptyQuery, input)
	}

	// Composite detection runs before the leaf fallback: the text before the
	// first top-level "(" decides the shape.
	if open := strings.IndexByte(input, '('); open > 0 {
		head := input[:open]
		if head == string(And) || head == string(Or) {
			children, err := parseArgs(input, open)
			if err != nil {
				return nil, err
			}
			return &Composite{Op: CompositeOp(head), Children: children}, nil
		}
		if col, kw, ok := strings.Cut(head, ":"); ok {
			kw = strings.TrimSpace(kw)
			if kw == string(Any) || kw == string(All) {
				quantified, err := parseColumn(col)
				if err != nil {
					return nil, err
				}
				children, err := parseArgs(input, open)
				if err != nil {
					return nil, err
				}
				// Inner columns resolve against the element type but are
				// stored qualified by the quantified column, keeping every
				// path in the tree rooted at the record type.
				for i, child := range children {
					children[i] = qualifyNode(child, quantified)
				}
				return &Composite{Op: CompositeOp(kw), Quantified: quantified, Children: children}, nil
			}
		}
	}

	return parseLeaf(input)
}

// parseArgs parses the argument list of a composite whose "(" sits at open.
// The call must span the whole input: anything after the matching ")" is an
// unbalanced-parenthesis error.
func parseArgs(input string, open int) ([]Node, error) {
	if !strings.HasSuffix(input, ")") {
		return nil, grammarErr(ErrCodeUnbalancedParens, input)
	}
	body := input[open+1 : len(input)-1]
	args, err := splitArgs(body)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, grammarErr(ErrCodeEmptyQuery, input)
	}
	children := make([]Node, 0, len(args))
	for _, arg := range args {
		child, err := parseNode(arg)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func parseLeaf(input string) (Node, error) {
	colText, rest, ok := strings.Cut(input, ":")
	if !ok {
		return nil, grammarErr(ErrCodeMissingSeparator, input)
	}
	col, err := parseColumn(colText)
	if err != nil {
		return nil, err
	}
	rest = strings.TrimSpace(rest)

	// Optional operator(value) suffix. It must cover the whole remainder and
	// balance its parentheses; anything else is a literal under eq.
	if open := strings.IndexByte(rest, '('); open > 0 && strings.HasSuffix(rest, ")") {
		op := Operator(rest[:open])
		if ValidOperators[op] && balanced(rest[open+1:len(rest)-1]) {
			return &Leaf{Column: col, Op: op, RawValue: rest[open+1 : len(rest)-1]}, nil
		}
	}
	return &Leaf{Column: col, Op: OpEq, RawValue: rest}, nil
}

func parseColumn(text string) (Column, error) {
	col := Col(text)
	for _, seg := range col {
		if seg == "" || strings.ContainsAny(seg, "():,") {
			return nil, grammarErr(ErrCodeEmptyColumn, text)
		}
	}
	return col, nil
}

// splitArgs splits on commas at parenthesis depth zero.
func splitArgs(body string) ([]string, error) {
	var args []string
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, grammarErr(ErrCodeUnbalancedParens, body)
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, grammarErr(ErrCodeUnbalancedParens, body)
	}
	if last := strings.TrimSpace(body[start:]); last != "" || len(args) > 0 {
		args = append(args, last)
	}
	return args, nil
}

func balanced(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
