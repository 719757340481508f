// Package cast rewrites criterion trees from one column vocabulary into
// another. The typical use is translating an external API's query surface
// onto internal storage names, optionally transforming values and excluding
// columns callers must not reach.
//
// Application is two-phase: a validation walk first collects every column
// the active policy refuses, so configuration problems surface as one
// aggregate error before any part of the tree is rewritten.
package cast

import (
	"strings"

	"github.com/siftgo/sift/filter"
)

// Policy decides what happens to a column no rule covers.
type Policy int

const (
	// PassThrough keeps unmapped columns as they are.
	PassThrough Policy = iota
	// Exclude silently drops criteria on unmapped columns.
	Exclude
	// Reject fails the whole application with an UnmappedColumnError.
	Reject
)

// Transform rewrites a leaf's raw value during remapping.
type Transform func(string) string

// CustomFunc replaces a whole leaf during remapping. It receives the leaf's
// operator and raw value and returns the replacement subtree, which may fan
// one criterion out into a composite. Returning nil drops the leaf.
type CustomFunc func(op filter.Operator, value string) filter.Node

type rule struct {
	target    filter.Column
	op        filter.Operator
	transform Transform
	custom    CustomFunc
	exclude   bool
}

// Config is a column remapping. Configs build up by chaining and are
// immutable once handed to Apply from multiple goroutines.
type Config struct {
	policy Policy
	rules  map[string]rule
}

// New returns an empty config with the pass-through policy.
func New() *Config {
	return &Config{rules: make(map[string]rule)}
}

// WithPolicy sets the unmapped-column policy.
func (c *Config) WithPolicy(p Policy) *Config {
	c.policy = p
	return c
}

// Map renames the source column to the target column. Source columns match
// case-insensitively on their full dotted path.
func (c *Config) Map(from, to string) *Config {
	return c.MapWith(from, to, nil)
}

// MapWith renames the source column and rewrites its values through t.
func (c *Config) MapWith(from, to string, t Transform) *Config {
	c.rules[ruleKey(filter.Col(from))] = rule{target: filter.Col(to), transform: t}
	return c
}

// MapOp renames the source column and forces the operator, regardless of
// what the incoming criterion used. An empty op keeps the incoming one.
func (c *Config) MapOp(from, to string, op filter.Operator) *Config {
	c.rules[ruleKey(filter.Col(from))] = rule{target: filter.Col(to), op: op}
	return c
}

// Custom hands criteria on the source column to fn wholesale. Sort keys on
// the column are dropped, since a fan-out has no single order.
func (c *Config) Custom(from string, fn CustomFunc) *Config {
	c.rules[ruleKey(filter.Col(from))] = rule{custom: fn}
	return c
}

// Exclude drops every criterion and sort key on the source column.
func (c *Config) Exclude(from string) *Config {
	c.rules[ruleKey(filter.Col(from))] = rule{exclude: true}
	return c
}

func ruleKey(col filter.Column) string {
	return strings.ToLower(col.String())
}

func (c *Config) lookup(col filter.Column) (rule, bool) {
	r, ok := c.rules[ruleKey(col)]
	return r, ok
}

// Apply rewrites criteria and sort keys through the config. The inputs are
// not modified; rewritten nodes are fresh allocations.
func (c *Config) Apply(filters []filter.Node, sorts []filter.Sort) ([]filter.Node, []filter.Sort, error) {
	if err := c.validate(filters, sorts); err != nil {
		return nil, nil, err
	}

	outFilters := make([]filter.Node, 0, len(filters))
	for _, n := range filters {
		rewritten, keep := c.rewrite(n)
		if keep {
			outFilters = append(outFilters, rewritten)
		}
	}
	outSorts := make([]filter.Sort, 0, len(sorts))
	for _, s := range sorts {
		r, ok := c.lookup(s.Column)
		switch {
		case !ok && c.policy == Exclude, ok && (r.exclude || r.custom != nil):
			continue
		case ok:
			outSorts = append(outSorts, filter.Sort{Column: r.target, Direction: s.Direction})
		default:
			outSorts = append(outSorts, s)
		}
	}
	return outFilters, outSorts, nil
}

// ApplyNode is the single-criterion form of Apply. ok is false when the
// whole criterion was excluded.
func (c *Config) ApplyNode(n filter.Node) (filter.Node, bool, error) {
	filters, _, err := c.Apply([]filter.Node{n}, nil)
	if err != nil {
		return nil, false, err
	}
	if len(filters) == 0 {
		return nil, false, nil
	}
	return filters[0], true, nil
}

// validate walks everything before any rewriting happens. Under the reject
// policy it collects all unmapped columns into one error.
func (c *Config) validate(filters []filter.Node, sorts []filter.Sort) error {
	if c.policy != Reject {
		return nil
	}
	seen := make(map[string]bool)
	var unmapped []string
	report := func(col filter.Column) {
		if _, ok := c.lookup(col); ok {
			return
		}
		key := col.String()
		if !seen[key] {
			seen[key] = true
			unmapped = append(unmapped, key)
		}
	}

	var walk func(n filter.Node)
	walk = func(n filter.Node) {
		switch node := n.(type) {
		case *filter.Leaf:
			report(node.Column)
		case *filter.Composite:
			if len(node.Quantified) > 0 {
				report(node.Quantified)
			}
			for _, child := range node.Children {
				walk(child)
			}
		}
	}
	for _, n := range filters {
		walk(n)
	}
	for _, s := range sorts {
		report(s.Column)
	}

	if len(unmapped) > 0 {
		return &UnmappedColumnError{Columns: unmapped}
	}
	return nil
}

// rewrite returns the remapped node and whether it survives. Composites that
// lose every child are dropped entirely.
func (c *Config) rewrite(n filter.Node) (filter.Node, bool) {
	switch node := n.(type) {
	case *filter.Leaf:
		r, ok := c.lookup(node.Column)
		switch {
		case ok && r.exclude:
			return nil, false
		case !ok && c.policy == Exclude:
			return nil, false
		case !ok:
			return node, true
		}
		if r.custom != nil {
			replacement := r.custom(node.Op, node.RawValue)
			if replacement == nil {
				return nil, false
			}
			return replacement, true
		}
		value := node.RawValue
		if r.transform != nil {
			value = r.transform(value)
		}
		op := node.Op
		if r.op != "" {
			op = r.op
		}
		return &filter.Leaf{Column: r.target, Op: op, RawValue: value}, true

	case *filter.Composite:
		if len(node.Quantified) > 0 {
			return c.rewriteQuantifier(node)
		}
		children := make([]filter.Node, 0, len(node.Children))
		for _, child := range node.Children {
			rewritten, keep := c.rewrite(child)
			if keep {
				children = append(children, rewritten)
			}
		}
		if len(children) == 0 {
			return nil, false
		}
		return &filter.Composite{Op: node.Op, Children: children}, true

	default:
		return n, true
	}
}

// rewriteQuantifier remaps the collection column and the children's full
// paths. A child with no rule of its own follows the collection's rename so
// the tree stays rooted at the new path.
func (c *Config) rewriteQuantifier(node *filter.Composite) (filter.Node, bool) {
	r, ok := c.lookup(node.Quantified)
	switch {
	case ok && r.exclude:
		return nil, false
	case !ok && c.policy == Exclude:
		return nil, false
	}
	quantified := node.Quantified
	if ok {
		quantified = r.target
	}

	children := make([]filter.Node, 0, len(node.Children))
	for _, child := range node.Children {
		rewritten, keep := c.rewrite(child)
		if !keep {
			continue
		}
		children = append(children, reprefix(rewritten, node.Quantified, quantified))
	}
	if len(children) == 0 {
		return nil, false
	}
	return &filter.Composite{Op: node.Op, Quantified: quantified, Children: children}, true
}

// reprefix swaps the collection prefix on columns still carrying the old
// one. Columns a rule already rewrote elsewhere are left alone.
func reprefix(n filter.Node, oldPrefix, newPrefix filter.Column) filter.Node {
	if oldPrefix.String() == newPrefix.String() {
		return n
	}
	switch node := n.(type) {
	case *filter.Leaf:
		if !node.Column.HasPrefix(oldPrefix) {
			return node
		}
		col := append(append(filter.Column{}, newPrefix...), node.Column.Rel(oldPrefix)...)
		return &filter.Leaf{Column: col, Op: node.Op, RawValue: node.RawValue}
	case *filter.Composite:
		out := &filter.Composite{Op: node.Op, Quantified: node.Quantified}
		if node.Quantified.HasPrefix(oldPrefix) {
			out.Quantified = append(append(filter.Column{}, newPrefix...), node.Quantified.Rel(oldPrefix)...)
		}
		for _, child := range node.Children {
			out.Children = append(out.Children, reprefix(child, oldPrefix, newPrefix))
		}
		return out
	default:
		return n
	}
}
