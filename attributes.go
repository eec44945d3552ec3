package hxform

import (
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Attributes holds HTML attributes of a node.
//
// Boolean attributes (disabled, checked, multiple, ...) are stored with
// their own name as value, e.g. {"checked": "checked"}.
type Attributes map[string]string

// Clone returns a copy of the attributes.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge copies attributes from other into a, overwriting existing keys.
func (a Attributes) Merge(other Attributes) Attributes {
	for k, v := range other {
		a[strings.ToLower(k)] = v
	}
	return a
}

// Has reports whether the attribute is present.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Templ converts the attributes for use in templ templates.
func (a Attributes) Templ() templ.Attributes {
	out := make(templ.Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String renders the attributes as ` key="value"` pairs in key order.
func (a Attributes) String() string {
	var sb strings.Builder
	_ = a.write(&sb)
	return sb.String()
}

func (a Attributes) write(w io.Writer) error {
	for _, k := range sortedKeys(a) {
		if _, err := io.WriteString(w, " "+k+`="`+templ.EscapeString(a[k])+`"`); err != nil {
			return err
		}
	}
	return nil
}

// without returns a copy of a without the given keys.
func (a Attributes) without(keys ...string) Attributes {
	out := a.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
