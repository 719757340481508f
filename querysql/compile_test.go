package querysql

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftgo/sift/filter"
)

type role struct {
	Name string
}

type employee struct {
	Name     string
	Age      int
	Salary   float64
	IsActive bool
	Tags     []string
	Roles    []role
}

func whereFor(t *testing.T, c *Compiler, query string) Fragment {
	t.Helper()
	node, err := filter.Parse(query)
	require.NoError(t, err)
	frag, err := c.Where([]filter.Node{node})
	require.NoError(t, err)
	return frag
}

func TestWhere_EmptyListIsAlwaysTrue(t *testing.T) {
	frag, err := NewCompiler(reflect.TypeOf(employee{})).Where(nil)
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", frag.SQL)
	assert.Empty(t, frag.Params)
}

func TestWhere_TypedLeaves(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	tests := []struct {
		query  string
		sql    string
		params []any
	}{
		{"age:gt(30)", "age > ?", []any{int64(30)}},
		{"age:eq(30)", "age = ?", []any{int64(30)}},
		{"name:neq(Bob)", "name <> ?", []any{"Bob"}},
		{"salary:lte(1200.5)", "salary <= ?", []any{1200.5}},
		{"isActive:eq(true)", "is_active = ?", []any{true}},
		{"name:sw(Al)", `name LIKE ? ESCAPE '\'`, []any{`Al%`}},
		{"name:ew(ce)", `name LIKE ? ESCAPE '\'`, []any{`%ce`}},
		{"name:ct(li)", `name LIKE ? ESCAPE '\'`, []any{`%li%`}},
		{"name:nct(li)", `name NOT LIKE ? ESCAPE '\'`, []any{`%li%`}},
		{"age:in(30,35,40)", "age IN (?, ?, ?)", []any{int64(30), int64(35), int64(40)}},
		{"age:ct(30,35)", "age IN (?, ?)", []any{int64(30), int64(35)}},
		{"age:nct(30,35)", "age NOT IN (?, ?)", []any{int64(30), int64(35)}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			frag := whereFor(t, c, tt.query)
			assert.Equal(t, tt.sql, frag.SQL)
			assert.Equal(t, tt.params, frag.Params)
		})
	}
}

func TestWhere_LikeMetacharactersEscaped(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	frag := whereFor(t, c, "name:ct(50%_off)")
	assert.Equal(t, []any{`%50\%\_off%`}, frag.Params,
		"user text matches literally, never as a pattern")
}

func TestWhere_CanonicalizesColumnCase(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	frag := whereFor(t, c, "ISACTIVE:eq(true)")
	assert.Equal(t, "is_active = ?", frag.SQL)
}

func TestWhere_BooleanComposites(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	and := whereFor(t, c, "and(age:gt(30),isActive:eq(true))")
	assert.Equal(t, "(age > ? AND is_active = ?)", and.SQL)
	assert.Equal(t, []any{int64(30), true}, and.Params)

	or := whereFor(t, c, "or(name:eq(Alice),name:eq(Bob))")
	assert.Equal(t, "(name = ? OR name = ?)", or.SQL)

	nested := whereFor(t, c, "and(or(name:eq(Alice),name:eq(Bob)),age:lt(40))")
	assert.Equal(t, "((name = ? OR name = ?) AND age < ?)", nested.SQL)
}

func TestWhere_Quantifiers(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	anyFrag := whereFor(t, c, "roles:any(name:eq(Admin))")
	assert.Equal(t,
		"EXISTS (SELECT 1 FROM json_each(roles) WHERE json_extract(value, '$.name') = ?)",
		anyFrag.SQL)
	assert.Equal(t, []any{"Admin"}, anyFrag.Params)

	allFrag := whereFor(t, c, "roles:all(name:eq(Admin))")
	assert.Equal(t,
		"NOT EXISTS (SELECT 1 FROM json_each(roles) WHERE NOT (json_extract(value, '$.name') = ?))",
		allFrag.SQL)
}

func TestWhere_CollectionMembership(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	frag := whereFor(t, c, "tags:ct(go)")
	assert.Equal(t,
		"EXISTS (SELECT 1 FROM json_each(tags) WHERE json_each.value = ?)",
		frag.SQL)
	assert.Equal(t, []any{"go"}, frag.Params)
}

func TestWhere_UntypedPassesRawText(t *testing.T) {
	c := &Compiler{}

	frag := whereFor(t, c, "age:gt(30)")
	assert.Equal(t, "age > ?", frag.SQL)
	assert.Equal(t, []any{"30"}, frag.Params, "affinity handles the conversion")

	in := whereFor(t, c, "region:in(eu, us)")
	assert.Equal(t, "region IN (?, ?)", in.SQL)
	assert.Equal(t, []any{"eu", "us"}, in.Params)
}

func TestWhere_TypedValidationErrors(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	tests := []string{
		"nope:eq(1)",
		"age:gt(abc)",
		"age:sw(3)",
		"name:any(x:eq(1))",
	}
	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			node, err := filter.Parse(query)
			require.NoError(t, err)
			_, err = c.Where([]filter.Node{node})
			assert.Error(t, err)
		})
	}
}

func TestOrderBy(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	sorts, err := filter.ParseSort("name:desc,age")
	require.NoError(t, err)

	orderBy, err := c.OrderBy(sorts)
	require.NoError(t, err)
	assert.Equal(t, "name COLLATE BINARY DESC, age ASC, rowid ASC", orderBy)
}

func TestOrderBy_AlwaysHasTiebreaker(t *testing.T) {
	orderBy, err := NewCompiler(reflect.TypeOf(employee{})).OrderBy(nil)
	require.NoError(t, err)
	assert.Equal(t, "rowid ASC", orderBy)
}

func TestSelect_Statement(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	node, err := filter.Parse("age:gt(30)")
	require.NoError(t, err)
	sorts, err := filter.ParseSort("name")
	require.NoError(t, err)

	query, params, err := c.Select("employees", []filter.Node{node}, sorts)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM employees WHERE age > ? ORDER BY name COLLATE BINARY ASC, rowid ASC",
		query)
	assert.Equal(t, []any{int64(30)}, params)
}

func TestSelect_RejectsUnsafeTableName(t *testing.T) {
	c := NewCompiler(reflect.TypeOf(employee{}))

	_, _, err := c.Select("employees; DROP TABLE x", nil, nil)
	assert.Error(t, err)
}

func TestCount_Statement(t *testing.T) {
	query, params, err := NewCompiler(reflect.TypeOf(employee{})).Count("employees", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM employees WHERE 1 = 1", query)
	assert.Empty(t, params)
}
