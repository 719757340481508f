// Package querysql compiles criterion trees into parameterized SQLite
// fragments. It is the symbolic backend; package eval is the executable one.
//
// Values are never interpolated into the SQL text. Every literal travels as
// a ? placeholder, and column identifiers are validated before they are
// written into a statement.
package querysql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/siftgo/sift/filter"
	"github.com/siftgo/sift/schema"
)

// Fragment is a compiled piece of SQL plus its positional parameters.
type Fragment struct {
	SQL    string
	Params []any
}

// Compiler translates criterion trees into SQLite WHERE and ORDER BY
// fragments.
//
// With a Record type set, columns are resolved and values coerced exactly as
// the executable backend does, so a criterion that compiles here also
// compiles there, and parameters carry their native Go types. Without one,
// columns pass through the naming function unchecked and values travel as
// raw text, leaning on SQLite column affinity.
type Compiler struct {
	// Record is the Go record type backing the table. Nil disables typed
	// validation and coercion.
	Record reflect.Type

	// Resolver resolves columns in typed mode; nil uses schema.Default.
	Resolver *schema.Resolver

	// ColumnName maps a column path to a SQL identifier. Nil uses
	// SnakeColumn.
	ColumnName func(filter.Column) string
}

// NewCompiler builds a typed compiler for record type t. Pass nil for an
// untyped compiler.
func NewCompiler(t reflect.Type) *Compiler {
	return &Compiler{Record: t}
}

// SnakeColumn is the default identifier mapping: segments are lowered to
// snake_case and joined with underscores, so Profile.CreatedAt becomes
// profile_created_at.
func SnakeColumn(col filter.Column) string {
	parts := make([]string, 0, len(col))
	for _, seg := range col {
		parts = append(parts, snake(seg))
	}
	return strings.Join(parts, "_")
}

// jsonElemColumn names a column of a json_each element row. Dotted paths
// become nested JSON paths, so address.city reads $.address.city of the
// element value.
func jsonElemColumn(col filter.Column) string {
	parts := make([]string, 0, len(col))
	for _, seg := range col {
		parts = append(parts, snake(seg))
	}
	return fmt.Sprintf("json_extract(value, '$.%s')", strings.Join(parts, "."))
}

func snake(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r - 'A' + 'a')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Where compiles a criterion list into one WHERE fragment. List entries
// conjoin; an empty list compiles to the always-true "1 = 1" so callers can
// splice the fragment unconditionally.
func (c *Compiler) Where(nodes []filter.Node) (Fragment, error) {
	if len(nodes) == 0 {
		return Fragment{SQL: "1 = 1"}, nil
	}
	parts := make([]string, 0, len(nodes))
	var params []any
	for _, n := range nodes {
		frag, err := c.compileNode(n, c.Record, nil)
		if err != nil {
			return Fragment{}, err
		}
		parts = append(parts, frag.SQL)
		params = append(params, frag.Params...)
	}
	return Fragment{SQL: strings.Join(parts, " AND "), Params: params}, nil
}

// OrderBy compiles a sort list into an ORDER BY clause body. A rowid
// tiebreaker is always appended so result order is deterministic even when
// every sort key ties. Text keys collate BINARY for stable ordering across
// SQLite builds.
func (c *Compiler) OrderBy(sorts []filter.Sort) (string, error) {
	parts := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		name, isText, err := c.sortIdentifier(s.Column)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if s.Direction == filter.Descending {
			dir = "DESC"
		}
		if isText {
			parts = append(parts, fmt.Sprintf("%s COLLATE BINARY %s", name, dir))
		} else {
			parts = append(parts, fmt.Sprintf("%s %s", name, dir))
		}
	}
	parts = append(parts, "rowid ASC")
	return strings.Join(parts, ", "), nil
}

// Select assembles a full SELECT statement over table.
func (c *Compiler) Select(table string, filters []filter.Node, sorts []filter.Sort) (string, []any, error) {
	if err := checkIdentifier(table); err != nil {
		return "", nil, err
	}
	where, err := c.Where(filters)
	if err != nil {
		return "", nil, err
	}
	orderBy, err := c.OrderBy(sorts)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY %s", table, where.SQL, orderBy)
	return sql, where.Params, nil
}

// Count assembles a COUNT statement over table. Sort keys never change a
// count, so none are taken.
func (c *Compiler) Count(table string, filters []filter.Node) (string, []any, error) {
	if err := checkIdentifier(table); err != nil {
		return "", nil, err
	}
	where, err := c.Where(filters)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where.SQL)
	return sql, where.Params, nil
}

func (c *Compiler) resolver() *schema.Resolver {
	if c.Resolver != nil {
		return c.Resolver
	}
	return schema.Default
}

func (c *Compiler) columnName(col filter.Column) string {
	if c.ColumnName != nil {
		return c.ColumnName(col)
	}
	return SnakeColumn(col)
}

// ident resolves a column to its SQL identifier. In typed mode the column is
// checked against the record type and rebuilt from canonical field names
// before naming, so profile.ADDRESS.city and Profile.Address.City produce
// the same identifier. leaf is the terminal Go type, nil in untyped mode.
func (c *Compiler) ident(t reflect.Type, col filter.Column, scope filter.Column) (string, reflect.Type, error) {
	rel := col.Rel(scope)
	var leaf reflect.Type
	if t != nil {
		path, err := c.resolver().Resolve(t, rel)
		if err != nil {
			return "", nil, err
		}
		rel = path.Canonical()
		leaf = path.Leaf
	}
	name := c.columnName(rel)
	if err := checkIdentifier(name); err != nil {
		return "", nil, err
	}
	return name, leaf, nil
}

func (c *Compiler) compileNode(n filter.Node, t reflect.Type, scope filter.Column) (Fragment, error) {
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
			return Fragment{}, fmt.Errorf("unsupported composite operator: %q", node.Op)
		}
	default:
		return Fragment{}, fmt.Errorf("unsupported node type: %T", n)
	}
}

func (c *Compiler) compileBool(node *filter.Composite, t reflect.Type, scope filter.Column) (Fragment, error) {
	if len(node.Children) == 0 {
		return Fragment{SQL: "1 = 1"}, nil
	}
	glue := " AND "
	if node.Op == filter.Or {
		glue = " OR "
	}
	parts := make([]string, 0, len(node.Children))
	var params []any
	for _, child := range node.Children {
		frag, err := c.compileNode(child, t, scope)
		if err != nil {
			return Fragment{}, err
		}
		parts = append(parts, frag.SQL)
		params = append(params, frag.Params...)
	}
	return Fragment{SQL: "(" + strings.Join(parts, glue) + ")", Params: params}, nil
}

// compileQuantifier renders any/all over a JSON-array column using json_each.
// any becomes EXISTS over elements matching every child; all becomes NOT
// EXISTS over elements failing one, which makes all over an empty array true
// and any over an empty array false, matching the executable backend.
func (c *Compiler) compileQuantifier(node *filter.Composite, t reflect.Type, scope filter.Column) (Fragment, error) {
	name, leaf, err := c.ident(t, node.Quantified, scope)
	if err != nil {
		return Fragment{}, err
	}
	var elemType reflect.Type
	if leaf != nil {
		if leaf.Kind() != reflect.Slice && leaf.Kind() != reflect.Array {
			return Fragment{}, &schema.OperatorMismatchError{
				Op: string(node.Op), Column: node.Quantified.String(), Type: leaf.String(),
			}
		}
		elemType = derefType(leaf.Elem())
	}

	elem := &Compiler{Record: elemType, Resolver: c.Resolver, ColumnName: jsonElemColumn}
	parts := make([]string, 0, len(node.Children))
	var params []any
	for _, child := range node.Children {
		frag, err := elem.compileNode(child, elemType, node.Quantified)
		if err != nil {
			return Fragment{}, err
		}
		parts = append(parts, frag.SQL)
		params = append(params, frag.Params...)
	}
	body := strings.Join(parts, " AND ")

	if node.Op == filter.Any {
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE %s)", name, body)
		return Fragment{SQL: sql, Params: params}, nil
	}
	sql := fmt.Sprintf("NOT EXISTS (SELECT 1 FROM json_each(%s) WHERE NOT (%s))", name, body)
	return Fragment{SQL: sql, Params: params}, nil
}

func (c *Compiler) compileLeaf(leaf *filter.Leaf, t reflect.Type, scope filter.Column) (Fragment, error) {
	name, leafType, err := c.ident(t, leaf.Column, scope)
	if err != nil {
		return Fragment{}, err
	}

	switch leaf.Op {
	case filter.OpEq, filter.OpNeq, filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		param, err := c.param(leaf, leafType)
		if err != nil {
			return Fragment{}, err
		}
		return Fragment{
			SQL:    fmt.Sprintf("%s %s ?", name, comparisonSQL[leaf.Op]),
			Params: []any{param},
		}, nil

	case filter.OpCt, filter.OpNct:
		return c.compileContains(leaf, name, leafType)

	case filter.OpSw, filter.OpEw:
		if leafType != nil && leafType.Kind() != reflect.String {
			return Fragment{}, &schema.OperatorMismatchError{
				Op: string(leaf.Op), Column: leaf.Column.String(), Type: leafType.String(),
			}
		}
		pattern := likeEscape(leaf.RawValue)
		if leaf.Op == filter.OpSw {
			pattern += "%"
		} else {
			pattern = "%" + pattern
		}
		return Fragment{
			SQL:    fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, name),
			Params: []any{pattern},
		}, nil

	case filter.OpIn:
		params, err := c.listParams(leaf, leafType)
		if err != nil {
			return Fragment{}, err
		}
		return Fragment{
			SQL:    fmt.Sprintf("%s IN (%s)", name, placeholders(len(params))),
			Params: params,
		}, nil

	default:
		return Fragment{}, fmt.Errorf("unsupported operator: %q", leaf.Op)
	}
}

// compileContains mirrors the executable backend's three contains forms:
// substring for text, element membership for JSON-array columns, and list
// membership for other scalars.
func (c *Compiler) compileContains(leaf *filter.Leaf, name string, leafType reflect.Type) (Fragment, error) {
	negate := leaf.Op == filter.OpNct

	switch {
	case leafType == nil || leafType.Kind() == reflect.String:
		sql := fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, name)
		if negate {
			sql = fmt.Sprintf(`%s NOT LIKE ? ESCAPE '\'`, name)
		}
		return Fragment{SQL: sql, Params: []any{"%" + likeEscape(leaf.RawValue) + "%"}}, nil

	case leafType.Kind() == reflect.Slice || leafType.Kind() == reflect.Array:
		param, err := coerceParam(leaf.RawValue, derefType(leafType.Elem()))
		if err != nil {
			return Fragment{}, err
		}
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = ?)", name)
		if negate {
			sql = "NOT " + sql
		}
		return Fragment{SQL: sql, Params: []any{param}}, nil

	default:
		params, err := c.listParams(leaf, leafType)
		if err != nil {
			return Fragment{}, err
		}
		op := "IN"
		if negate {
			op = "NOT IN"
		}
		return Fragment{
			SQL:    fmt.Sprintf("%s %s (%s)", name, op, placeholders(len(params))),
			Params: params,
		}, nil
	}
}

var comparisonSQL = map[filter.Operator]string{
	filter.OpEq:  "=",
	filter.OpNeq: "<>",
	filter.OpGt:  ">",
	filter.OpGte: ">=",
	filter.OpLt:  "<",
	filter.OpLte: "<=",
}

func (c *Compiler) param(leaf *filter.Leaf, leafType reflect.Type) (any, error) {
	if leafType == nil {
		return leaf.RawValue, nil
	}
	return coerceParam(leaf.RawValue, leafType)
}

func (c *Compiler) listParams(leaf *filter.Leaf, leafType reflect.Type) ([]any, error) {
	if leafType == nil {
		parts := strings.Split(leaf.RawValue, ",")
		params := make([]any, 0, len(parts))
		for _, p := range parts {
			params = append(params, strings.TrimSpace(p))
		}
		return params, nil
	}
	values, err := schema.CoerceList(leaf.RawValue, leafType)
	if err != nil {
		return nil, err
	}
	params := make([]any, 0, len(values))
	for _, v := range values {
		params = append(params, toDriverValue(v))
	}
	return params, nil
}

func coerceParam(raw string, t reflect.Type) (any, error) {
	v, err := schema.Coerce(raw, t)
	if err != nil {
		return nil, err
	}
	return toDriverValue(v), nil
}

// toDriverValue flattens coerced values to types the sqlite driver accepts.
// Named scalar types (enums) convert to their underlying kind, and UUIDs
// travel in their canonical text form.
func toDriverValue(v any) any {
	if id, ok := v.(uuid.UUID); ok {
		return id.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return v
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// likeEscape escapes the LIKE metacharacters so user text matches literally.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (c *Compiler) sortIdentifier(col filter.Column) (string, bool, error) {
	name, leaf, err := c.ident(c.Record, col, nil)
	if err != nil {
		return "", false, err
	}
	if leaf == nil {
		return name, true, nil
	}
	if _, ordered := orderedLeaf(leaf); !ordered {
		return "", false, &schema.OperatorMismatchError{
			Op: "sort", Column: col.String(), Type: leaf.String(),
		}
	}
	return name, leaf.Kind() == reflect.String, nil
}

func orderedLeaf(t reflect.Type) (reflect.Kind, bool) {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Struct: // time.Time stored as text compares correctly in RFC 3339
		return t.Kind(), true
	default:
		return t.Kind(), false
	}
}

// checkIdentifier rejects anything that could smuggle SQL into an identifier
// position. Generated names may contain the json_extract call form used for
// quantifier children; those are built internally from checked parts.
func checkIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("empty SQL identifier")
	}
	if strings.HasPrefix(name, "json_extract(value, '$.") && strings.HasSuffix(name, "')") {
		name = name[len("json_extract(value, '$.") : len(name)-2]
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return fmt.Errorf("invalid SQL identifier: %q", name)
		}
	}
	return nil
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
