package store

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

var (
	// ErrNotFound is returned when a key is absent from a bag.
	ErrNotFound = errors.New("key not found")
	// ErrTypeMismatch is returned when a stored value does not have the requested type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrEmptyKey is returned for lookups with an empty key.
	ErrEmptyKey = errors.New("key cannot be empty")
)

// Bag is an immutable string-keyed map. The zero value is an empty bag.
type Bag struct {
	data map[string]any
}

// New builds a bag holding a shallow copy of m.
func New(m map[string]any) Bag {
	if len(m) == 0 {
		return Bag{}
	}
	return Bag{data: maps.Clone(m)}
}

// Get returns the raw value stored under key.
func (b Bag) Get(key string) (any, bool) {
	v, ok := b.data[key]
	return v, ok
}

// Has reports whether key is present.
func (b Bag) Has(key string) bool {
	_, ok := b.data[key]
	return ok
}

// Len returns the number of keys.
func (b Bag) Len() int {
	return len(b.data)
}

// Keys returns the keys in sorted order.
func (b Bag) Keys() []string {
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Map returns a shallow copy of the bag contents. Mutating the result does
// not affect the bag.
func (b Bag) Map() map[string]any {
	out := make(map[string]any, len(b.data))
	maps.Copy(out, b.data)
	return out
}

// With returns a new bag with key set to value.
func (b Bag) With(key string, value any) Bag {
	out := make(map[string]any, len(b.data)+1)
	maps.Copy(out, b.data)
	out[key] = value
	return Bag{data: out}
}

// Without returns a new bag with key removed.
func (b Bag) Without(key string) Bag {
	if !b.Has(key) {
		return b
	}
	out := maps.Clone(b.data)
	delete(out, key)
	return Bag{data: out}
}

// Merge returns a new bag holding b overlaid with m. Keys in m win.
func (b Bag) Merge(m map[string]any) Bag {
	if len(m) == 0 {
		return b
	}
	out := make(map[string]any, len(b.data)+len(m))
	maps.Copy(out, b.data)
	maps.Copy(out, m)
	return Bag{data: out}
}

// Range calls fn for every entry in key order until fn returns false.
func (b Bag) Range(fn func(key string, value any) bool) {
	for _, k := range b.Keys() {
		if !fn(k, b.data[k]) {
			return
		}
	}
}

// Get retrieves the value under key as a T. Interface types match any value
// implementing them; concrete types must match exactly.
func Get[T any](b Bag, key string) (T, error) {
	var zero T
	if key == "" {
		return zero, ErrEmptyKey
	}

	v, ok := b.data[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	// A nil interface value is a valid T only when T itself admits nil.
	if v == nil {
		want := reflect.TypeOf((*T)(nil)).Elem()
		if canBeNil(want.Kind()) {
			return zero, nil
		}
		return zero, fmt.Errorf("%w: %s holds nil, wanted %v", ErrTypeMismatch, key, want)
	}

	result, ok := v.(T)
	if !ok {
		want := reflect.TypeOf((*T)(nil)).Elem()
		return zero, fmt.Errorf("%w: %s holds %T, wanted %v", ErrTypeMismatch, key, v, want)
	}
	return result, nil
}

// GetOrDefault retrieves the value under key as a T, falling back to def
// when the key is missing or holds a different type.
func GetOrDefault[T any](b Bag, key string, def T) T {
	v, err := Get[T](b, key)
	if err != nil {
		return def
	}
	return v
}

// KeysByType returns, in key order, the keys whose values are a T.
func KeysByType[T any](b Bag) []string {
	var keys []string
	for _, k := range b.Keys() {
		if _, ok := b.data[k].(T); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func canBeNil(kind reflect.Kind) bool {
	switch kind {
	case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return true
	default:
		return false
	}
}
