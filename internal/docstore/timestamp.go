package docstore

import (
	"encoding/json"
	"time"
)

// Timestamp is the store-native date representation.
type Timestamp struct {
	Seconds int64 `json:"_seconds"`
	Nanos   int32 `json:"_nanoseconds"`
}

func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

func Now() Timestamp { return TimestampOf(time.Now()) }

func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

// ToTime converts any supported date encoding to time.Time. Supported:
// Timestamp, *Timestamp, time.Time, RFC3339 strings, and the JSON map form
// {"_seconds", "_nanoseconds"} as decoded into map[string]any.
func ToTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case Timestamp:
		return x.Time(), true
	case *Timestamp:
		if x == nil {
			return time.Time{}, false
		}
		return x.Time(), true
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x.UTC(), true
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t.UTC(), true
		}
		if t, err := time.Parse(time.DateOnly, x); err == nil {
			return t, true
		}
		return time.Time{}, false
	case map[string]any:
		sec, ok := number(x["_seconds"])
		if !ok {
			sec, ok = number(x["seconds"])
		}
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := number(x["_nanoseconds"])
		return time.Unix(int64(sec), int64(nanos)).UTC(), true
	}
	return time.Time{}, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// NormalizeFields rewrites every time.Time value in fields to a Timestamp.
// The input map is not modified.
func NormalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case time.Time:
			out[k] = TimestampOf(t)
		case *time.Time:
			if t != nil {
				out[k] = TimestampOf(*t)
			}
		default:
			out[k] = v
		}
	}
	return out
}

// RestoreTimestamps converts map-encoded timestamps (as produced by a JSON
// round trip) back into Timestamp values.
func RestoreTimestamps(fields map[string]any) map[string]any {
	for k, v := range fields {
		m, ok := v.(map[string]any)
		if !ok || len(m) > 2 {
			continue
		}
		if _, has := m["_seconds"]; !has {
			continue
		}
		if t, ok := ToTime(m); ok {
			fields[k] = TimestampOf(t)
		}
	}
	return fields
}
