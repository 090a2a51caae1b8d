// Package cast converts loosely typed values decoded from JSON request bodies.
package cast

import "math"

// ToFloat64 converts a numeric value to float64. Supports int/uint/float types.
func ToFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// ToInt64 converts a numeric value to int64. Floats are truncated; NaN and Inf are rejected.
func ToInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		return clampUint(uint64(x)), true
	case uint64:
		return clampUint(x), true
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	default:
		return 0, false
	}
}

func clampUint(x uint64) int64 {
	if x > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(x)
}

func fromFloat(x float64) (int64, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return int64(x), true
}

// ToBool accepts only a real bool; strings such as "true" are rejected.
func ToBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// ToStringSlice converts v to []string. Accepts a single string, []string, or []any of strings.
func ToStringSlice(v any) ([]string, bool) {
	switch x := v.(type) {
	case string:
		return []string{x}, true
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
