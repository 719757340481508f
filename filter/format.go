package filter

import "strings"

// Format renders a criterion tree back to the string grammar in normalized
// form: every leaf operator is explicit, including the default eq, and
// columns inside quantifiers print relative to their element scope.
//
// Format is the inverse of Parse: parsing the output of Format yields a
// structurally equal tree, and formatting is stable after the first
// normalization.
func Format(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n, nil)
	return sb.String()
}

// FormatList renders a criterion list the way ParseList reads it.
func FormatList(nodes []Node) string {
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeNode(&sb, n, nil)
	}
	return sb.String()
}

// FormatSort renders a sort list with explicit directions.
func FormatSort(sorts []Sort) string {
	var sb strings.Builder
	for i, s := range sorts {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s.Column.String())
		sb.WriteByte(':')
		sb.WriteString(string(s.Direction))
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node, scope Column) {
	switch node := n.(type) {
	case *Leaf:
		sb.WriteString(node.Column.Rel(scope).String())
		sb.WriteByte(':')
		sb.WriteString(string(node.Op))
		sb.WriteByte('(')
		sb.WriteString(node.RawValue)
		sb.WriteByte(')')
	case *Composite:
		childScope := scope
		if node.Op == Any || node.Op == All {
			sb.WriteString(node.Quantified.Rel(scope).String())
			sb.WriteByte(':')
			childScope = node.Quantified
		}
		sb.WriteString(string(node.Op))
		sb.WriteByte('(')
		for i, child := range node.Children {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeNode(sb, child, childScope)
		}
		sb.WriteByte(')')
	}
}
