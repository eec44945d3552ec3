package hxform

import (
	"slices"
	"strings"

	"github.com/a-h/templ"
)

// Option is a single <option> of a Select.
type Option struct {
	Value string
	Text  string
	Attrs Attributes
}

// OptGroup is an <optgroup> holding options.
type OptGroup struct {
	Label   string
	Attrs   Attributes
	Options []Option
}

// AddOption appends an option to the group.
func (g *OptGroup) AddOption(text, value string, attrs Attributes) {
	g.Options = append(g.Options, Option{Value: value, Text: text, Attrs: attrs})
}

type selectEntry struct {
	option *Option
	group  *OptGroup
}

// Select is a <select> element. Its value is limited to the values of its
// options: anything else submitted is dropped.
type Select struct {
	node
	entries  []selectEntry
	selected []string
}

func NewSelect(name string, attrs Attributes) *Select {
	s := &Select{}
	s.init(s, "select", name, attrs)
	return s
}

// AddOption appends a top-level option.
func (s *Select) AddOption(text, value string, attrs Attributes) {
	s.entries = append(s.entries, selectEntry{option: &Option{Value: value, Text: text, Attrs: attrs}})
}

// AddOptGroup appends an option group and returns it for filling.
func (s *Select) AddOptGroup(label string, attrs Attributes) *OptGroup {
	g := &OptGroup{Label: label, Attrs: attrs}
	s.entries = append(s.entries, selectEntry{group: g})
	return g
}

// LoadOptions appends options in order.
func (s *Select) LoadOptions(options []Option) {
	for _, o := range options {
		s.AddOption(o.Text, o.Value, o.Attrs)
	}
}

// Options returns all option values in document order.
func (s *Select) Options() []Option {
	var out []Option
	for _, e := range s.entries {
		if e.option != nil {
			out = append(out, *e.option)
			continue
		}
		out = append(out, e.group.Options...)
	}
	return out
}

func (s *Select) Multiple() bool { return s.attrs.Has("multiple") }

func (s *Select) hasOption(value string) bool {
	for _, o := range s.Options() {
		if o.Value == value {
			return true
		}
	}
	return false
}

func (s *Select) RawValue() any {
	if s.isDisabled() {
		return nil
	}
	var values []string
	for _, v := range s.selected {
		if s.hasOption(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	if s.Multiple() {
		return values
	}
	return values[0]
}

func (s *Select) SetValue(v any) {
	s.selected = toStrings(v)
}

func (s *Select) updateValue() error {
	name := trimArraySuffix(s.Name())
	if name == "" {
		return nil
	}
	if v, ok := s.lookup(name, s.ignoresSubmit()); ok {
		s.SetValue(v)
	}
	return nil
}

func (s *Select) isSelected(value string) bool {
	return slices.Contains(s.selected, value)
}

func (s *Select) HTML() string {
	if s.frozen {
		return s.frozenHTML()
	}
	attrs := s.Attributes()
	if s.Multiple() && attrs["name"] != "" && !strings.HasSuffix(attrs["name"], "[]") {
		attrs["name"] += "[]"
	}
	var sb strings.Builder
	sb.WriteString("<select" + attrs.String() + ">")
	for _, e := range s.entries {
		if e.option != nil {
			s.writeOption(&sb, *e.option)
			continue
		}
		ga := e.group.Attrs.Clone()
		ga["label"] = e.group.Label
		sb.WriteString("<optgroup" + ga.String() + ">")
		for _, o := range e.group.Options {
			s.writeOption(&sb, o)
		}
		sb.WriteString("</optgroup>")
	}
	sb.WriteString("</select>")
	return sb.String()
}

func (s *Select) writeOption(sb *strings.Builder, o Option) {
	attrs := o.Attrs.Clone()
	attrs["value"] = o.Value
	if s.isSelected(o.Value) {
		attrs["selected"] = "selected"
	}
	sb.WriteString("<option" + attrs.String() + ">" + templ.EscapeString(o.Text) + "</option>")
}

func (s *Select) frozenHTML() string {
	var texts []string
	for _, o := range s.Options() {
		if s.isSelected(o.Value) {
			texts = append(texts, templ.EscapeString(o.Text))
		}
	}
	if len(texts) == 0 {
		return "&nbsp;" + s.persistentHTML()
	}
	return strings.Join(texts, "<br />") + s.persistentHTML()
}
