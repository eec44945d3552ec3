package hxform

import (
	"sort"
	"strconv"
	"strings"
)

// splitName splits a bracketed element name into path tokens.
//
//	"foo"          -> ["foo"]
//	"foo[bar][0]"  -> ["foo", "bar", "0"]
//	"files[]"      -> ["files", ""]
func splitName(name string) []string {
	i := strings.IndexByte(name, '[')
	if i <= 0 {
		return []string{name}
	}
	tokens := []string{name[:i]}
	rest := name[i:]
	for len(rest) > 0 && rest[0] == '[' {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			tokens = append(tokens, rest[1:])
			break
		}
		tokens = append(tokens, rest[1:end])
		rest = rest[end+1:]
	}
	return tokens
}

// trimArraySuffix removes a trailing "[]" from a name.
func trimArraySuffix(name string) string {
	return strings.TrimSuffix(name, "[]")
}

// lookupPath walks a nested value along tokens. An empty token selects the
// first list entry.
func lookupPath(root any, tokens []string) (any, bool) {
	value := root
	for _, token := range tokens {
		switch v := value.(type) {
		case map[string]any:
			if token == "" {
				token = "0"
			}
			next, ok := v[token]
			if !ok {
				return nil, false
			}
			value = next
		case []any:
			idx := 0
			if token != "" {
				n, err := strconv.Atoi(token)
				if err != nil {
					return nil, false
				}
				idx = n
			}
			if idx < 0 || idx >= len(v) {
				return nil, false
			}
			value = v[idx]
		case []string:
			// Leaf lists from url.Values.
			idx := 0
			if token != "" {
				n, err := strconv.Atoi(token)
				if err != nil {
					return nil, false
				}
				idx = n
			}
			if idx < 0 || idx >= len(v) {
				return nil, false
			}
			value = v[idx]
		default:
			return nil, false
		}
	}
	return value, true
}

// lookupName resolves a possibly bracketed name in values.
func lookupName(values map[string]any, name string) (any, bool) {
	if len(values) == 0 {
		return nil, false
	}
	return lookupPath(values, splitName(name))
}

// assignPath stores value into root under tokens, creating intermediate
// maps. A trailing empty token appends to a list; an empty token in the
// middle uses the next free numeric key.
func assignPath(root map[string]any, tokens []string, value any) {
	key := tokens[0]
	if len(tokens) == 1 {
		root[key] = value
		return
	}
	if len(tokens) == 2 && tokens[1] == "" {
		list, _ := root[key].([]any)
		if vs, ok := value.([]string); ok {
			for _, v := range vs {
				list = append(list, v)
			}
		} else {
			list = append(list, value)
		}
		root[key] = list
		return
	}
	next, ok := root[key].(map[string]any)
	if !ok {
		next = make(map[string]any)
		root[key] = next
	}
	rest := tokens[1:]
	if rest[0] == "" {
		rest = append([]string{strconv.Itoa(nextIndex(next))}, rest[1:]...)
	}
	assignPath(next, rest, value)
}

func nextIndex(m map[string]any) int {
	n := 0
	for k := range m {
		if i, err := strconv.Atoi(k); err == nil && i >= n {
			n = i + 1
		}
	}
	return n
}

// mergeValues merges src into dst recursively. Nested maps are merged,
// everything else in src overwrites dst.
func mergeValues(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeValues(dm, sm)
				continue
			}
			dst[k] = mergeValues(nil, sm)
			continue
		}
		dst[k] = v
	}
	return dst
}

// cloneValue copies nested maps and lists so the result shares no
// mutable state with v.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneValues(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

func cloneValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// sortedKeys returns the keys of m in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
