package sift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type role struct {
	Name string
}

type member struct {
	Name  string
	Age   int
	Roles []role
}

var team = []member{
	{Name: "Alice", Age: 35, Roles: []role{{Name: "Admin"}}},
	{Name: "Bob", Age: 25, Roles: []role{{Name: "Viewer"}}},
	{Name: "Carol", Age: 35, Roles: []role{{Name: "Admin"}, {Name: "Viewer"}}},
	{Name: "Dave", Age: 40},
}

func names(recs []member) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func TestApply_FilterAndSort(t *testing.T) {
	ClearCache()
	c := MustParse("age:gte(35)", "age:asc,name:desc")

	got, err := Apply(team, c)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol", "Alice", "Dave"}, names(got))
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, names(team),
		"the input slice is untouched")
}

func TestApply_EmptyCriteriaKeepsEverything(t *testing.T) {
	c, err := Parse("", "")
	require.NoError(t, err)
	assert.True(t, c.Empty())

	got, err := Apply(team, c)
	require.NoError(t, err)
	assert.Equal(t, names(team), names(got))
}

func TestApply_QuantifiedCriteria(t *testing.T) {
	got, err := Apply(team, MustParse("roles:any(name:eq(Admin))", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Carol"}, names(got))
}

func TestApply_ReusesCompilations(t *testing.T) {
	ClearCache()
	c := MustParse("age:gt(30)", "name")

	_, err := Apply(team, c)
	require.NoError(t, err)
	_, err = Apply(team, c)
	require.NoError(t, err)

	stats := CacheStats()
	assert.Equal(t, int64(1), stats.Misses, "second application hits the cache")
	assert.Equal(t, int64(1), stats.Hits)
}

func TestApply_CompileErrorsPropagate(t *testing.T) {
	_, err := Apply(team, MustParse("nope:eq(1)", ""))
	assert.Error(t, err)

	_, err = Apply(team, MustParse("age:gt(abc)", ""))
	assert.Error(t, err)
}

func TestMatcher(t *testing.T) {
	match, err := Matcher[member](MustParse("name:sw(A)", ""))
	require.NoError(t, err)
	assert.True(t, match(member{Name: "Alice"}))
	assert.False(t, match(member{Name: "Bob"}))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("and(", "")
	assert.Error(t, err)

	_, err = Parse("", "name:sideways")
	assert.Error(t, err)
}

func TestCriteria_Strings(t *testing.T) {
	c := MustParse("name:bob,age:gt(30)", "name:desc,age")
	assert.Equal(t, "name:eq(bob),age:gt(30)", c.String())
	assert.Equal(t, "name:desc,age:asc", c.SortString())
}
