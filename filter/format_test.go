package filter

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_NormalizesDefaultOperator(t *testing.T) {
	node, err := Parse("name:bob")
	require.NoError(t, err)
	assert.Equal(t, "name:eq(bob)", Format(node))
}

func TestFormat_IdempotentAfterFirstNormalization(t *testing.T) {
	queries := []string{
		"name:bob",
		"age:gt(30)",
		"and(age:gt(18),isActive:eq(true))",
		"or(and(a:eq(1),b:eq(2)),c:in(3,4))",
		"roles:any(name:eq(Admin))",
		"projects:all(status:eq(Done),owner.name:sw(A))",
		"teams:all(members:any(name:eq(ada)))",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			first, err := Parse(q)
			require.NoError(t, err)
			normalized := Format(first)

			second, err := Parse(normalized)
			require.NoError(t, err)
			assert.Equal(t, normalized, Format(second))
		})
	}
}

func TestFormat_RoundTripsBuilderTrees(t *testing.T) {
	trees := []Node{
		Eq("name", "bob"),
		Gt("age", "30"),
		AndOf(Gt("age", "18"), Eq("isActive", "true")),
		OrOf(AndOf(Eq("a", "1"), Eq("b", "2")), In("c", "3,4")),
		AnyOf("roles", Eq("name", "Admin")),
		AllOf("projects", Eq("status", "Done"), Sw("owner.name", "A")),
		AllOf("teams", AnyOf("members", Eq("name", "ada"))),
	}
	for _, tree := range trees {
		t.Run(Format(tree), func(t *testing.T) {
			parsed, err := Parse(Format(tree))
			require.NoError(t, err)
			assert.Equal(t, tree, parsed)
		})
	}
}

func TestFormat_QuantifierChildrenPrintRelative(t *testing.T) {
	node, err := Parse("roles:any(name:eq(Admin),scope.level:gt(2))")
	require.NoError(t, err)
	assert.Equal(t, "roles:any(name:eq(Admin),scope.level:gt(2))", Format(node))
}

func TestFormatSort_RoundTrip(t *testing.T) {
	sorts, err := ParseSort("name:desc,age")
	require.NoError(t, err)
	assert.Equal(t, "name:desc,age:asc", FormatSort(sorts))

	again, err := ParseSort(FormatSort(sorts))
	require.NoError(t, err)
	assert.Equal(t, sorts, again)
}

func TestFormat_Golden(t *testing.T) {
	queries := []string{
		"name:bob",
		"and(age:gt(18),isActive:eq(true))",
		"roles:any(name:eq(Admin))",
		"or(name:sw(a),teams:all(members:any(age:gte(18))))",
	}
	var buf bytes.Buffer
	for _, q := range queries {
		node, err := Parse(q)
		require.NoError(t, err)
		buf.WriteString(q)
		buf.WriteString(" => ")
		buf.WriteString(Format(node))
		buf.WriteByte('\n')
	}

	g := goldie.New(t, goldie.WithNameSuffix(".golden"))
	g.Assert(t, "normalize", buf.Bytes())
}
