package hxform

import (
	"slices"
	"strings"

	"github.com/a-h/templ"
)

// Input is an <input> element. Buttons (submit, reset, button, image) only
// carry a value when they were used to submit the form.
type Input struct {
	node
	button    bool
	submitted any
}

// NewInput creates an input of an arbitrary type.
func NewInput(typ, name string, attrs Attributes) *Input {
	in := &Input{}
	in.init(in, typ, name, attrs)
	in.attrs["type"] = typ
	switch typ {
	case "submit", "reset", "button", "image":
		in.button = true
	}
	return in
}

func NewText(name string, attrs Attributes) *Input     { return NewInput("text", name, attrs) }
func NewPassword(name string, attrs Attributes) *Input { return NewInput("password", name, attrs) }
func NewHidden(name string, attrs Attributes) *Input   { return NewInput("hidden", name, attrs) }
func NewSubmit(name string, attrs Attributes) *Input   { return NewInput("submit", name, attrs) }
func NewReset(name string, attrs Attributes) *Input    { return NewInput("reset", name, attrs) }
func NewButton(name string, attrs Attributes) *Input   { return NewInput("button", name, attrs) }

// NewImage creates an image submit button. Its value is a map with the
// click coordinates "x" and "y".
func NewImage(name string, attrs Attributes) *Input { return NewInput("image", name, attrs) }

func (in *Input) RawValue() any {
	if in.isDisabled() {
		return nil
	}
	if in.button {
		return in.submitted
	}
	if v, ok := in.attrs["value"]; ok {
		return v
	}
	return nil
}

// SetValue sets the value attribute. Buttons keep their caption.
func (in *Input) SetValue(v any) {
	if in.button {
		return
	}
	if v == nil {
		delete(in.attrs, "value")
		return
	}
	in.attrs["value"] = toString(v)
}

func (in *Input) ToggleFrozen(freeze bool) bool {
	if in.button || in.typ == "hidden" {
		return false
	}
	return in.node.ToggleFrozen(freeze)
}

func (in *Input) updateValue() error {
	name := in.Name()
	if name == "" {
		return nil
	}
	if in.button {
		in.submitted = nil
		for _, ds := range in.DataSources() {
			if _, ok := ds.(Submit); !ok {
				continue
			}
			if in.typ == "image" {
				x, y := imageCoords(ds, name)
				if x != nil {
					in.submitted = map[string]any{"x": x, "y": y}
					return nil
				}
				continue
			}
			if v := ds.Value(name); v != nil {
				in.submitted = v
				return nil
			}
		}
		return nil
	}
	if v, ok := in.lookup(name, in.ignoresSubmit()); ok {
		in.SetValue(v)
	}
	return nil
}

// imageCoords finds click coordinates of an image button. Browsers send
// "name.x"; PHP-style clients send "name_x".
func imageCoords(ds DataSource, name string) (any, any) {
	for _, sep := range []string{".", "_"} {
		if x := ds.Value(name + sep + "x"); x != nil {
			return x, ds.Value(name + sep + "y")
		}
	}
	return nil, nil
}

func (in *Input) HTML() string {
	if in.frozen {
		return in.frozenHTML()
	}
	attrs := in.Attributes()
	if in.typ == "password" {
		delete(attrs, "value")
	}
	return "<input" + attrs.String() + " />"
}

func (in *Input) frozenHTML() string {
	value := toString(in.Value())
	if in.typ == "password" {
		if value == "" {
			return "&nbsp;" + in.persistentHTML()
		}
		return "********" + in.persistentHTML()
	}
	if value == "" {
		return "&nbsp;" + in.persistentHTML()
	}
	return templ.EscapeString(value) + in.persistentHTML()
}

func (in *Input) Render(r Renderer) error {
	if in.typ == "hidden" {
		return r.RenderHidden(in)
	}
	return r.RenderElement(in)
}

// persistentHTML renders the hidden input carrying a frozen value.
func (n *node) persistentHTML() string {
	if !n.persistent {
		return ""
	}
	name := n.self.Name()
	value := n.self.Value()
	if name == "" || value == nil {
		return ""
	}
	if isList(value) {
		var sb strings.Builder
		for _, v := range toStrings(value) {
			sb.WriteString(hiddenHTML(trimArraySuffix(name)+"[]", v, ""))
		}
		return sb.String()
	}
	return hiddenHTML(name, toString(value), n.ID())
}

func hiddenHTML(name, value, id string) string {
	attrs := Attributes{"type": "hidden", "name": name, "value": value}
	if id != "" {
		attrs["id"] = id
	}
	return "<input" + attrs.String() + " />"
}

// Checkable is a checkbox or radio button, optionally followed by a label
// with its content.
type Checkable struct {
	node
	content string
}

func newCheckable(typ, name string, attrs Attributes) *Checkable {
	c := &Checkable{}
	c.init(c, typ, name, attrs)
	c.attrs["type"] = typ
	if typ == "checkbox" && !c.attrs.Has("value") {
		c.attrs["value"] = "1"
	}
	return c
}

// NewCheckbox creates a checkbox. Its value attribute defaults to "1".
func NewCheckbox(name string, attrs Attributes) *Checkable {
	return newCheckable("checkbox", name, attrs)
}

// NewRadio creates a radio button.
func NewRadio(name string, attrs Attributes) *Checkable {
	return newCheckable("radio", name, attrs)
}

func (c *Checkable) Content() string       { return c.content }
func (c *Checkable) SetContent(text string) { c.content = text }

// Checked reports whether the element is checked.
func (c *Checkable) Checked() bool { return c.attrs.Has("checked") }

func (c *Checkable) RawValue() any {
	if c.isDisabled() || !c.Checked() {
		return nil
	}
	return c.attrs["value"]
}

// SetValue checks the element when v equals its value attribute, or
// contains it when v is a list.
func (c *Checkable) SetValue(v any) {
	own := c.attrs["value"]
	checked := false
	switch {
	case v == nil:
	case isList(v):
		checked = slices.Contains(toStrings(v), own)
	default:
		checked = toString(v) == own
	}
	if checked {
		c.attrs["checked"] = "checked"
	} else {
		delete(c.attrs, "checked")
	}
}

// updateValue unchecks the element when a submit source has no value for
// it, since browsers omit unchecked boxes.
func (c *Checkable) updateValue() error {
	name := trimArraySuffix(c.Name())
	if name == "" {
		return nil
	}
	skip := c.ignoresSubmit()
	for _, ds := range c.DataSources() {
		_, submit := ds.(Submit)
		if submit && skip {
			continue
		}
		if v := ds.Value(name); v != nil || submit {
			c.SetValue(v)
			return nil
		}
	}
	return nil
}

func (c *Checkable) HTML() string {
	var label string
	if c.content != "" {
		label = `<label for="` + templ.EscapeString(c.ID()) + `">` + templ.EscapeString(c.content) + "</label>"
	}
	if c.frozen {
		mark := "[ ]"
		if c.Checked() {
			mark = "[x]"
		}
		if c.typ == "radio" {
			mark = "( )"
			if c.Checked() {
				mark = "(x)"
			}
		}
		return "<code>" + mark + "</code>" + label + c.persistentHTML()
	}
	return "<input" + c.Attributes().String() + " />" + label
}

// Textarea is a <textarea> element.
type Textarea struct {
	node
	value any
}

func NewTextarea(name string, attrs Attributes) *Textarea {
	t := &Textarea{}
	t.init(t, "textarea", name, attrs)
	if v, ok := t.attrs["value"]; ok {
		t.value = v
		delete(t.attrs, "value")
	}
	return t
}

func (t *Textarea) RawValue() any {
	if t.isDisabled() {
		return nil
	}
	return t.value
}

func (t *Textarea) SetValue(v any) {
	if v == nil {
		t.value = nil
		return
	}
	t.value = toString(v)
}

func (t *Textarea) updateValue() error {
	if name := t.Name(); name != "" {
		if v, ok := t.lookup(name, t.ignoresSubmit()); ok {
			t.SetValue(v)
		}
	}
	return nil
}

func (t *Textarea) HTML() string {
	value := toString(t.value)
	if t.frozen {
		escaped := templ.EscapeString(value)
		return strings.ReplaceAll(escaped, "\n", "<br />") + t.persistentHTML()
	}
	return "<textarea" + t.Attributes().String() + ">" + templ.EscapeString(value) + "</textarea>"
}

// NewEmail creates an HTML5 email input. Unlike text inputs it keeps a
// hidden copy of its value when frozen.
func NewEmail(name string, attrs Attributes) *Input {
	in := NewInput("email", name, attrs)
	in.persistent = true
	return in
}
