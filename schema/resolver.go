// Package schema resolves column paths against record types and coerces raw
// filter values into the statically typed values a resolved column requires.
//
// Resolution is reflection-based and cached per (type, path): the accessor
// chain for a given column is computed once and reused by every compilation
// that touches it.
package schema

import (
	"reflect"
	"strings"
	"sync"

	"github.com/siftgo/sift/filter"
)

// TagName is the struct tag consulted when alternate-name fallback is
// enabled: `sift:"fullName"` lets a column named fullName resolve to a field
// with a different Go name.
const TagName = "sift"

// Hop is one resolved accessor in a chain: a single field access, possibly
// through promoted embedded fields.
type Hop struct {
	Name  string // canonical Go field name
	Index []int  // reflect field index chain for this hop
	Type  reflect.Type
}

// Path is a fully resolved accessor chain plus the terminal value type.
// Pointer hops are recorded dereferenced; Get re-checks nil at runtime.
type Path struct {
	Record reflect.Type
	Column filter.Column
	Hops   []Hop
	Leaf   reflect.Type // terminal value type, pointers dereferenced
}

// Canonical returns the column rebuilt from canonical Go field names, fixing
// whatever casing the input used.
func (p *Path) Canonical() filter.Column {
	col := make(filter.Column, 0, len(p.Hops))
	for _, h := range p.Hops {
		col = append(col, h.Name)
	}
	return col
}

// Get walks the accessor chain on rec. ok is false when a nil pointer is
// crossed anywhere along the chain; callers decide whether that is a guarded
// default or a failure.
func (p *Path) Get(rec reflect.Value) (reflect.Value, bool) {
	v := rec
	for _, hop := range p.Hops {
		for _, idx := range hop.Index {
			for v.Kind() == reflect.Pointer {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
			v = v.Field(idx)
		}
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, true
}

// Resolver resolves column paths against record types. A Resolver is safe
// for concurrent use; the zero value is usable with fallback disabled.
type Resolver struct {
	tagFallback bool

	mu    sync.RWMutex
	cache map[pathKey]*Path
}

type pathKey struct {
	record reflect.Type
	path   string // lowercased dotted column
}

// NewResolver builds a resolver. With tagFallback, a segment that matches no
// field name falls back to fields carrying a matching `sift` tag.
func NewResolver(tagFallback bool) *Resolver {
	return &Resolver{tagFallback: tagFallback, cache: make(map[pathKey]*Path)}
}

// Default is the shared process-wide resolver, with tag fallback enabled.
var Default = NewResolver(true)

// Resolve maps a column path onto record type t. Every segment must resolve
// to exactly one field of the type reached by the previous segment, by
// case-insensitive name or, when enabled, by `sift` tag. Failure at any
// segment returns a *ResolutionError naming the path, the segment and the
// type searched.
func (r *Resolver) Resolve(t reflect.Type, col filter.Column) (*Path, error) {
	if len(col) == 0 {
		return nil, &ResolutionError{Column: "", Type: t.String(), Reason: "empty column path"}
	}
	key := pathKey{record: t, path: strings.ToLower(col.String())}

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path, err := r.resolve(t, col)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.cache == nil {
		r.cache = make(map[pathKey]*Path)
	}
	r.cache[key] = path
	r.mu.Unlock()
	return path, nil
}

func (r *Resolver) resolve(t reflect.Type, col filter.Column) (*Path, error) {
	path := &Path{Record: t, Column: col, Hops: make([]Hop, 0, len(col))}
	cur := t
	for _, seg := range col {
		cur = deref(cur)
		if cur.Kind() != reflect.Struct {
			return nil, &ResolutionError{
				Column: col.String(), Segment: seg, Type: cur.String(),
				Reason: "not a struct type",
			}
		}
		hop, err := r.lookup(cur, seg, col)
		if err != nil {
			return nil, err
		}
		path.Hops = append(path.Hops, hop)
		cur = hop.Type
	}
	path.Leaf = deref(cur)
	return path, nil
}

// lookup finds the single field of t matching segment. Exact name wins, then
// a unique case-insensitive name, then a unique `sift` tag when fallback is
// enabled. Two case-insensitive candidates fail as ambiguous rather than
// picking one arbitrarily.
func (r *Resolver) lookup(t reflect.Type, seg string, col filter.Column) (Hop, error) {
	fields := reflect.VisibleFields(t)

	var folded []reflect.StructField
	for _, f := range fields {
		if f.PkgPath != "" { // unexported
			continue
		}
		if f.Name == seg {
			return Hop{Name: f.Name, Index: f.Index, Type: f.Type}, nil
		}
		if strings.EqualFold(f.Name, seg) {
			folded = append(folded, f)
		}
	}
	switch len(folded) {
	case 1:
		f := folded[0]
		return Hop{Name: f.Name, Index: f.Index, Type: f.Type}, nil
	case 0:
		// fall through to tag lookup
	default:
		return Hop{}, &ResolutionError{
			Column: col.String(), Segment: seg, Type: t.String(),
			Reason: "ambiguous: multiple case-insensitive matches",
		}
	}

	if r.tagFallback {
		var tagged []reflect.StructField
		for _, f := range fields {
			if f.PkgPath != "" {
				continue
			}
			tag, _, _ := strings.Cut(f.Tag.Get(TagName), ",")
			if tag != "" && strings.EqualFold(tag, seg) {
				tagged = append(tagged, f)
			}
		}
		if len(tagged) == 1 {
			f := tagged[0]
			return Hop{Name: f.Name, Index: f.Index, Type: f.Type}, nil
		}
		if len(tagged) > 1 {
			return Hop{}, &ResolutionError{
				Column: col.String(), Segment: seg, Type: t.String(),
				Reason: "ambiguous: multiple tag matches",
			}
		}
	}

	return Hop{}, &ResolutionError{Column: col.String(), Segment: seg, Type: t.String()}
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
