package eval

import (
	"reflect"

	"github.com/siftgo/sift/filter"
	"github.com/siftgo/sift/schema"
)

// Comparator orders two records; the contract matches cmp.Compare so it can
// feed slices.SortStableFunc directly.
type Comparator func(a, b any) int

// CompileSort turns a sort list into one comparator. Keys apply in order:
// later keys break ties left by earlier ones, and records equal under every
// key compare as 0 so a stable sort preserves their input order.
func CompileSort(sorts []filter.Sort, t reflect.Type, opts Options) (Comparator, error) {
	if opts.Resolver == nil {
		opts.Resolver = schema.Default
	}
	t = derefType(t)

	type key struct {
		path *schema.Path
		desc bool
	}
	keys := make([]key, 0, len(sorts))
	for _, s := range sorts {
		path, err := opts.Resolver.Resolve(t, s.Column)
		if err != nil {
			return nil, err
		}
		if _, ordered := orderKind(path.Leaf); !ordered {
			return nil, &schema.OperatorMismatchError{
				Op: string(s.Direction), Column: s.Column.String(), Type: path.Leaf.String(),
			}
		}
		keys = append(keys, key{path: path, desc: s.Direction == filter.Descending})
	}

	guard := opts.NullGuard
	compareKey := func(k key, av, bv reflect.Value) int {
		ax, aok := k.path.Get(av)
		bx, bok := k.path.Get(bv)
		if !aok || !bok {
			if !guard {
				// Missing values sort last regardless of direction.
				switch {
				case aok:
					return -1
				case bok:
					return 1
				default:
					return 0
				}
			}
			if !aok {
				ax = reflect.Zero(k.path.Leaf)
			}
			if !bok {
				bx = reflect.Zero(k.path.Leaf)
			}
		}
		cmp, _ := compareValues(ax, bx)
		if k.desc {
			return -cmp
		}
		return cmp
	}

	return func(a, b any) int {
		av, aok := derefValue(a, t)
		bv, bok := derefValue(b, t)
		if !aok || !bok {
			return 0
		}
		for _, k := range keys {
			if cmp := compareKey(k, av, bv); cmp != 0 {
				return cmp
			}
		}
		return 0
	}, nil
}

// SortFor is the typed convenience form of CompileSort.
func SortFor[T any](sorts []filter.Sort, opts Options) (func(a, b T) int, error) {
	cmp, err := CompileSort(sorts, reflect.TypeOf(*new(T)), opts)
	if err != nil {
		return nil, err
	}
	return func(a, b T) int { return cmp(a, b) }, nil
}

func derefValue(rec any, t reflect.Type) (reflect.Value, bool) {
	v := reflect.ValueOf(rec)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Type() != t {
		return reflect.Value{}, false
	}
	return v, true
}
