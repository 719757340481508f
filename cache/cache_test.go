package cache

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftgo/sift/filter"
)

type record struct {
	Name string
	Age  int
}

func parseOne(t *testing.T, query string) []filter.Node {
	t.Helper()
	node, err := filter.Parse(query)
	require.NoError(t, err)
	return []filter.Node{node}
}

func TestKey_StructurallyEqualTreesShareKeys(t *testing.T) {
	typ := reflect.TypeOf(record{})

	parsed := parseOne(t, "and(name:eq(bob),age:gt(30))")
	built := []filter.Node{filter.AndOf(
		filter.Eq("name", "bob"),
		filter.Gt("age", "30"),
	)}

	assert.Equal(t, Key(typ, parsed, nil), Key(typ, built, nil),
		"parse and builder produce the same structural key")
}

func TestKey_Discriminates(t *testing.T) {
	typ := reflect.TypeOf(record{})
	base := Key(typ, parseOne(t, "age:gt(30)"), nil)

	assert.NotEqual(t, base, Key(typ, parseOne(t, "age:gt(31)"), nil), "value changes the key")
	assert.NotEqual(t, base, Key(typ, parseOne(t, "age:gte(30)"), nil), "operator changes the key")
	assert.NotEqual(t, base, Key(typ, parseOne(t, "name:gt(30)"), nil), "column changes the key")
	assert.NotEqual(t, base, Key(reflect.TypeOf(struct{ Age int }{}), parseOne(t, "age:gt(30)"), nil),
		"record type changes the key")
	assert.NotEqual(t, base, Key(typ, parseOne(t, "age:gt(30)"), []filter.Sort{filter.Asc("name")}),
		"sort keys change the key")
}

func TestKey_QuantifierStructure(t *testing.T) {
	typ := reflect.TypeOf(record{})

	anyKey := Key(typ, parseOne(t, "roles:any(name:eq(Admin))"), nil)
	allKey := Key(typ, parseOne(t, "roles:all(name:eq(Admin))"), nil)
	assert.NotEqual(t, anyKey, allKey)
}

func TestKey_PointerAndValueTypesAgree(t *testing.T) {
	filters := parseOne(t, "age:gt(30)")
	assert.Equal(t,
		Key(reflect.TypeOf(record{}), filters, nil),
		Key(reflect.TypeOf(&record{}), filters, nil))
}

func TestGetOrCreate_BuildsOncePerKey(t *testing.T) {
	c := New()
	typ := reflect.TypeOf(record{})
	key := Key(typ, parseOne(t, "age:gt(30)"), nil)

	builds := 0
	build := func() (any, error) {
		builds++
		return "compiled", nil
	}

	first, err := c.GetOrCreate(key, build)
	require.NoError(t, err)
	second, err := c.GetOrCreate(key, build)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, builds)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.InDelta(t, 0.5, stats.HitRatio(), 1e-9)
}

func TestGetOrCreate_FailedBuildNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	_, err := c.GetOrCreate("k", func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrCreate("k", func() (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v, "the key recovers after a failed build")
}

func TestGetOrCreate_ConcurrentMissesConverge(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCreate("shared", func() (any, error) {
				return new(int), nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for _, v := range results[1:] {
		assert.Same(t, results[0], v, "every caller observes one stored value")
	}
}

func TestClear(t *testing.T) {
	c := New()
	_, err := c.GetOrCreate("a", func() (any, error) { return 1, nil })
	require.NoError(t, err)

	c.Clear()
	assert.Equal(t, 0, c.Stats().Entries)

	_, ok := c.Get("a")
	assert.False(t, ok)
}
