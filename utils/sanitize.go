// utils/sanitize.go
package utils

import "math"

// SanitizeForJSON replaces NaN and infinite floats with nil, recursively
// through nested maps and slices. encoding/json refuses to marshal NaN, so an
// unsanitized value would fail the whole reject batch.
func SanitizeForJSON(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = SanitizeForJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = SanitizeForJSON(val)
		}
		return out
	default:
		return value
	}
}
