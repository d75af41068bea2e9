package cast

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
	spfcast "github.com/spf13/cast"
)

// Type is a field type tag.
type Type string

const (
	String   Type = "string"
	Integer  Type = "integer"
	Float    Type = "float"
	Boolean  Type = "boolean"
	Map      Type = "map"
	Array    Type = "array"
	Time     Type = "time"
	Duration Type = "duration"
	UUID     Type = "uuid"
	Any      Type = "any"
)

const arrayPrefix = "array:"

// ArrayOf returns the tag of an array whose elements are cast to elem.
func ArrayOf(elem Type) Type {
	return Type(arrayPrefix + string(elem))
}

// Elem returns the element type of a typed array tag.
func (t Type) Elem() (Type, bool) {
	s := string(t)
	if !strings.HasPrefix(s, arrayPrefix) {
		return "", false
	}
	return Type(strings.TrimPrefix(s, arrayPrefix)), true
}

// Valid reports whether t is a known tag.
func (t Type) Valid() bool {
	if elem, ok := t.Elem(); ok {
		return elem.Valid()
	}
	switch t {
	case String, Integer, Float, Boolean, Map, Array, Time, Duration, UUID, Any:
		return true
	}
	return false
}

func (t Type) spec() Field {
	return Field{Type: t}
}

// CastFunc converts a raw value. Returning an error marks the field invalid.
type CastFunc func(value any) (any, error)

// coerce converts value to t using lenient parsing rules.
func coerce(t Type, value any) (any, error) {
	if elem, ok := t.Elem(); ok {
		return coerceArray(elem, value)
	}

	switch t {
	case String:
		switch value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("cannot cast %T to string", value)
		}
		return spfcast.ToStringE(value)
	case Integer:
		return coerceInt(value)
	case Float:
		return coerceFloat(value)
	case Boolean:
		return spfcast.ToBoolE(value)
	case Map:
		return spfcast.ToStringMapE(value)
	case Array:
		return toSlice(value)
	case Time:
		return spfcast.ToTimeE(value)
	case Duration:
		return spfcast.ToDurationE(value)
	case UUID:
		return coerceUUID(value)
	case Any:
		return value, nil
	}
	return nil, fmt.Errorf("unknown type %q", t)
}

// coerceInt parses strings in base 10 only. Floats must be integral and fit
// in an int.
func coerceInt(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return parseInt(v)
	case json.Number:
		return parseInt(string(v))
	case float64:
		return intFromFloat(v)
	case float32:
		return intFromFloat(float64(v))
	case uint:
		if uint64(v) > math.MaxInt {
			return nil, fmt.Errorf("%d overflows int", v)
		}
	case uint64:
		if v > math.MaxInt {
			return nil, fmt.Errorf("%d overflows int", v)
		}
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return nil, fmt.Errorf("%d overflows int", v)
		}
	}
	return spfcast.ToIntE(value)
}

func parseInt(s string) (any, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 0); err == nil {
		return int(i), nil
	}
	if strings.ContainsAny(s, "xX") {
		return nil, fmt.Errorf("cannot cast %q to integer", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot cast %q to integer", s)
	}
	return intFromFloat(f)
}

func intFromFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", f)
	}
	if f < math.MinInt || f >= -math.MinInt {
		return nil, fmt.Errorf("%v overflows int", f)
	}
	return int(f), nil
}

// coerceFloat rejects NaN, infinities and values that overflow float64.
func coerceFloat(value any) (any, error) {
	var f float64
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if strings.ContainsAny(s, "xX") {
			return nil, fmt.Errorf("cannot cast %q to float", s)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %q to float", s)
		}
		f = parsed
	case json.Number:
		return coerceFloat(string(v))
	default:
		parsed, err := spfcast.ToFloat64E(value)
		if err != nil {
			return nil, err
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%v is not a finite float", f)
	}
	return f, nil
}

func coerceArray(elem Type, value any) (any, error) {
	items, err := toSlice(value)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := coerce(elem, item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func coerceUUID(value any) (any, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case fmt.Stringer:
		return uuid.Parse(v.String())
	}
	return nil, fmt.Errorf("cannot cast %T to uuid", value)
}

// toSlice accepts []any directly and any other slice or array kind through
// reflection, which spf13/cast does not cover for every element type.
func toSlice(value any) ([]any, error) {
	if items, err := spfcast.ToSliceE(value); err == nil {
		return items, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot cast %T to array", value)
}
