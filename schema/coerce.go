package schema

import (
	"encoding"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	uuidType     = reflect.TypeOf(uuid.UUID{})
)

// timeLayouts are tried in order; all parsing is culture-invariant.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var (
	enumMu    sync.RWMutex
	enumNames = make(map[reflect.Type]map[string]any)
)

// RegisterEnum declares the named values of an enum-like type. Coercion
// matches names case-insensitively, so "admin" and "Admin" both resolve the
// registered value.
func RegisterEnum[T any](values map[string]T) {
	t := reflect.TypeOf(*new(T))
	lowered := make(map[string]any, len(values))
	for name, v := range values {
		lowered[strings.ToLower(name)] = v
	}
	enumMu.Lock()
	enumNames[t] = lowered
	enumMu.Unlock()
}

// Coerce converts raw text into a value of type t (pointers dereferenced).
// Supported targets: strings, booleans, integers, unsigned integers, floats,
// time.Time, time.Duration, uuid.UUID, registered enums and any type whose
// pointer implements encoding.TextUnmarshaler. Failure returns a
// *CoercionError naming the raw text and the target type.
func Coerce(raw string, t reflect.Type) (any, error) {
	t = deref(t)

	enumMu.RLock()
	names, isEnum := enumNames[t]
	enumMu.RUnlock()
	if isEnum {
		if v, ok := names[strings.ToLower(raw)]; ok {
			return v, nil
		}
		return nil, &CoercionError{Raw: raw, Type: t.String()}
	}

	switch t {
	case timeType:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts, nil
			}
		}
		return nil, &CoercionError{Raw: raw, Type: t.String()}
	case durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, &CoercionError{Raw: raw, Type: t.String(), Err: err}
		}
		return d, nil
	case uuidType:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, &CoercionError{Raw: raw, Type: t.String(), Err: err}
		}
		return id, nil
	}

	if reflect.PointerTo(t).Implements(reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()) {
		v := reflect.New(t)
		if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
			return nil, &CoercionError{Raw: raw, Type: t.String(), Err: err}
		}
		return v.Elem().Interface(), nil
	}

	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(t).Interface(), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &CoercionError{Raw: raw, Type: t.String(), Err: err}
		}
		return reflect.ValueOf(b).Convert(t).Interface(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return nil, &CoercionError{Raw: raw, Type: t.String(), Err: err}
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return nil, &CoercionError{Raw: raw, Type: t.String(), Err: err}
		}
		return reflect.ValueOf(n).Convert(t).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return nil, &CoercionError{Raw: raw, Type: t.String(), Err: err}
		}
		return reflect.ValueOf(f).Convert(t).Interface(), nil
	}

	return nil, &CoercionError{Raw: raw, Type: t.String()}
}

// CoerceList splits raw on commas and coerces each part to t. Parts are
// trimmed of surrounding spaces so "1, 2, 3" and "1,2,3" are equivalent.
func CoerceList(raw string, t reflect.Type) ([]any, error) {
	parts := strings.Split(raw, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		v, err := Coerce(strings.TrimSpace(part), t)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
