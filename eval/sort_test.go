package eval

import (
	"reflect"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftgo/sift/filter"
)

func compileSort(t *testing.T, input string) Comparator {
	t.Helper()
	sorts, err := filter.ParseSort(input)
	require.NoError(t, err)
	cmp, err := CompileSort(sorts, reflect.TypeOf(employee{}), DefaultOptions())
	require.NoError(t, err)
	return cmp
}

func names(recs []employee) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func TestCompileSort_SingleKey(t *testing.T) {
	cmp := compileSort(t, "age")

	recs := []employee{
		{Name: "cyd", Age: 35},
		{Name: "ann", Age: 25},
		{Name: "bob", Age: 30},
	}
	slices.SortStableFunc(recs, func(a, b employee) int { return cmp(a, b) })
	assert.Equal(t, []string{"ann", "bob", "cyd"}, names(recs))
}

func TestCompileSort_DescendingWithTieBreak(t *testing.T) {
	cmp := compileSort(t, "name:desc,age:asc")

	recs := []employee{
		{Name: "bob", Age: 40},
		{Name: "ann", Age: 30},
		{Name: "bob", Age: 20},
	}
	slices.SortStableFunc(recs, func(a, b employee) int { return cmp(a, b) })

	assert.Equal(t, []string{"bob", "bob", "ann"}, names(recs))
	assert.Equal(t, 20, recs[0].Age, "equal names fall back to the second key")
	assert.Equal(t, 40, recs[1].Age)
}

func TestCompileSort_StableOnFullTies(t *testing.T) {
	cmp := compileSort(t, "age")

	recs := []employee{
		{Name: "first", Age: 30},
		{Name: "second", Age: 30},
	}
	slices.SortStableFunc(recs, func(a, b employee) int { return cmp(a, b) })
	assert.Equal(t, []string{"first", "second"}, names(recs), "ties keep input order")
}

func TestCompileSort_DottedKeyWithNilGuard(t *testing.T) {
	sorts, err := filter.ParseSort("contact.email")
	require.NoError(t, err)
	cmp, err := CompileSort(sorts, reflect.TypeOf(employee{}), DefaultOptions())
	require.NoError(t, err)

	recs := []employee{
		{Name: "withEmail", Contact: &contact{Email: "z@x"}},
		{Name: "noContact"},
	}
	slices.SortStableFunc(recs, func(a, b employee) int { return cmp(a, b) })
	assert.Equal(t, []string{"noContact", "withEmail"}, names(recs),
		"guarded nil reads as the empty string and sorts first")
}

func TestCompileSort_RejectsUnorderedColumn(t *testing.T) {
	sorts, err := filter.ParseSort("isActive")
	require.NoError(t, err)

	_, err = CompileSort(sorts, reflect.TypeOf(employee{}), DefaultOptions())
	assert.Error(t, err)
}

func TestCompileSort_RejectsUnknownColumn(t *testing.T) {
	sorts, err := filter.ParseSort("nope:desc")
	require.NoError(t, err)

	_, err = CompileSort(sorts, reflect.TypeOf(employee{}), DefaultOptions())
	assert.Error(t, err)
}

func TestSortFor_Typed(t *testing.T) {
	cmp, err := SortFor[employee]([]filter.Sort{filter.Desc("age")}, DefaultOptions())
	require.NoError(t, err)

	recs := []employee{{Name: "a", Age: 20}, {Name: "b", Age: 40}}
	slices.SortStableFunc(recs, cmp)
	assert.Equal(t, []string{"b", "a"}, names(recs))
}
