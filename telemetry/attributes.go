package telemetry

import (
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

const (
	attrEventID = attribute.Key("goaction.event_id")
	attrStatus  = attribute.Key("goaction.status")
)

// Attributes converts metadata to span attributes. Values without an
// attribute type are rendered with fmt. Keys are sorted so spans are stable.
func Attributes(md Metadata) []attribute.KeyValue {
	if len(md) == 0 {
		return nil
	}

	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, toAttribute(k, md[k]))
	}
	return attrs
}

func toAttribute(key string, v any) attribute.KeyValue {
	k := attribute.Key(key)
	switch val := v.(type) {
	case string:
		return k.String(val)
	case bool:
		return k.Bool(val)
	case int:
		return k.Int(val)
	case int32:
		return k.Int64(int64(val))
	case int64:
		return k.Int64(val)
	case float32:
		return k.Float64(float64(val))
	case float64:
		return k.Float64(val)
	case []string:
		return k.StringSlice(val)
	case []int:
		return k.IntSlice(val)
	case []bool:
		return k.BoolSlice(val)
	case time.Duration:
		return k.Int64(val.Microseconds())
	case time.Time:
		return k.String(val.Format(time.RFC3339Nano))
	case nil:
		return k.String("")
	default:
		// fmt recovers from panicking String methods, nil receivers included.
		return k.String(fmt.Sprint(val))
	}
}
