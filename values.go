package hxform

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// toString converts a scalar value to its string form. Lists yield their
// first entry.
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		if t {
			return "1"
		}
		return ""
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		if len(t) > 0 {
			return t[0]
		}
		return ""
	case []any:
		if len(t) > 0 {
			return toString(t[0])
		}
		return ""
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// toStrings flattens a value into a list of strings. Maps contribute their
// values in key order.
func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, toString(item))
		}
		return out
	case map[string]any:
		out := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			out = append(out, toString(t[k]))
		}
		return out
	default:
		return []string{toString(v)}
	}
}

// isList reports whether v holds several values.
func isList(v any) bool {
	switch v.(type) {
	case []string, []any, map[string]any:
		return true
	}
	return false
}

// countNonEmpty counts non-empty scalar leaves of v.
func countNonEmpty(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case map[string]any:
		n := 0
		for _, item := range t {
			n += countNonEmpty(item)
		}
		return n
	case []any:
		n := 0
		for _, item := range t {
			n += countNonEmpty(item)
		}
		return n
	case []string:
		n := 0
		for _, item := range t {
			if item != "" {
				n++
			}
		}
		return n
	default:
		if toString(v) != "" {
			return 1
		}
		return 0
	}
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// jsValue encodes v as a JavaScript literal.
func jsValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
