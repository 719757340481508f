// Package sift filters, sorts and remaps collections of Go values with a
// compact string criteria grammar.
//
// A criteria string like "and(age:gt(30),roles:any(name:eq(Admin)))" parses
// into a tree that compiles either to an executable predicate over structs
// (package eval) or to parameterized SQLite fragments (package querysql).
// Compilations are memoized under structural hashes, so hot criteria pay
// reflection costs once.
package sift

import (
	"context"
	"reflect"
	"slices"

	"github.com/siftgo/sift/cache"
	"github.com/siftgo/sift/eval"
	"github.com/siftgo/sift/filter"
)

// Criteria is a parsed filter and sort specification, decoupled from any
// record type until compiled.
type Criteria struct {
	Filters []filter.Node
	Sorts   []filter.Sort
}

// Parse builds criteria from a filter list and a sort list. Either may be
// empty; empty criteria match everything and impose no order.
func Parse(filterExpr, sortExpr string) (Criteria, error) {
	filters, err := filter.ParseList(filterExpr)
	if err != nil {
		return Criteria{}, err
	}
	sorts, err := filter.ParseSort(sortExpr)
	if err != nil {
		return Criteria{}, err
	}
	return Criteria{Filters: filters, Sorts: sorts}, nil
}

// MustParse is Parse for statically known criteria; it panics on a grammar
// error.
func MustParse(filterExpr, sortExpr string) Criteria {
	c, err := Parse(filterExpr, sortExpr)
	if err != nil {
		panic(err)
	}
	return c
}

// Empty reports whether the criteria neither filter nor sort.
func (c Criteria) Empty() bool {
	return len(c.Filters) == 0 && len(c.Sorts) == 0
}

// String renders the filters back in normalized grammar form.
func (c Criteria) String() string {
	return filter.FormatList(c.Filters)
}

// SortString renders the sort keys back in grammar form.
func (c Criteria) SortString() string {
	return filter.FormatSort(c.Sorts)
}

// Key is the structural cache key of the criteria over record type t.
func (c Criteria) Key(t reflect.Type) string {
	return cache.Key(t, c.Filters, c.Sorts)
}

// Specification is implemented by domain types that carry their own query
// criteria, in the spirit of the specification pattern.
type Specification interface {
	Criteria() Criteria
}

// QueryProvider is implemented by storage adapters that can answer criteria
// directly, typically by handing them to the symbolic backend.
type QueryProvider interface {
	Query(ctx context.Context, c Criteria) (any, error)
	Count(ctx context.Context, c Criteria) (int64, error)
}

// compiled is one cache entry: the predicate and comparator for a
// (record type, criteria) pair.
type compiled struct {
	pred eval.Predicate
	cmp  eval.Comparator
}

var compilations = cache.New()

// CacheStats reports the shared compilation cache's effectiveness.
func CacheStats() cache.Stats {
	return compilations.Stats()
}

// ClearCache drops all memoized compilations, for tests and long-lived
// processes whose criteria churn.
func ClearCache() {
	compilations.Clear()
}

func compileCached(c Criteria, t reflect.Type, opts eval.Options) (compiled, error) {
	key := cache.Key(t, c.Filters, c.Sorts)
	v, err := compilations.GetOrCreate(key, func() (any, error) {
		pred, err := eval.CompileAll(c.Filters, t, opts)
		if err != nil {
			return nil, err
		}
		entry := compiled{pred: pred}
		if len(c.Sorts) > 0 {
			cmp, err := eval.CompileSort(c.Sorts, t, opts)
			if err != nil {
				return nil, err
			}
			entry.cmp = cmp
		}
		return entry, nil
	})
	if err != nil {
		return compiled{}, err
	}
	return v.(compiled), nil
}

// Apply filters and sorts recs by the criteria, returning a fresh slice.
// The input slice is never reordered. Sorting is stable: records equal
// under every sort key keep their input order.
func Apply[T any](recs []T, c Criteria) ([]T, error) {
	return ApplyWith(recs, c, eval.DefaultOptions())
}

// ApplyWith is Apply with explicit compile options.
func ApplyWith[T any](recs []T, c Criteria, opts eval.Options) ([]T, error) {
	entry, err := compileCached(c, reflect.TypeOf(*new(T)), opts)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		if entry.pred(rec) {
			out = append(out, rec)
		}
	}
	if entry.cmp != nil {
		slices.SortStableFunc(out, func(a, b T) int { return entry.cmp(a, b) })
	}
	return out, nil
}

// Matcher compiles the criteria's filters into a typed predicate, memoized
// like Apply. Sort keys are ignored.
func Matcher[T any](c Criteria) (func(T) bool, error) {
	entry, err := compileCached(Criteria{Filters: c.Filters}, reflect.TypeOf(*new(T)), eval.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return func(v T) bool { return entry.pred(v) }, nil
}
