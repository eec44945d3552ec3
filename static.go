package hxform

import (
	"fmt"
	"strings"
)

var forbiddenStaticTags = map[string]bool{
	"form":     true,
	"fieldset": true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
}

// Static is a piece of markup rendered inside the form. It has no value
// and is never submitted, but its content can come from non-submit data
// sources.
type Static struct {
	node
	content      string
	tagName      string
	forceClosing bool
}

// NewStatic creates a static element. content is emitted as-is.
func NewStatic(name string, attrs Attributes, content string) *Static {
	s := &Static{content: content}
	s.init(s, "static", name, attrs)
	return s
}

func (s *Static) Content() string        { return s.content }
func (s *Static) SetContent(html string) { s.content = html }

// SetTagName wraps the content in a tag. Form control tags are rejected.
// With forceClosing an empty element is rendered as <tag></tag> instead of
// a self-closing tag.
func (s *Static) SetTagName(tag string, forceClosing bool) error {
	tag = strings.ToLower(tag)
	if forbiddenStaticTags[tag] {
		return fmt.Errorf("%w: static element cannot use tag %q", ErrInvalidArgument, tag)
	}
	s.tagName = tag
	s.forceClosing = forceClosing
	return nil
}

func (s *Static) TagName() string { return s.tagName }

func (s *Static) SetValue(v any) { s.content = toString(v) }

func (s *Static) ToggleFrozen(bool) bool { return false }

func (s *Static) updateValue() error {
	if name := s.Name(); name != "" {
		if v, ok := s.lookup(name, true); ok {
			s.SetValue(v)
		}
	}
	return nil
}

func (s *Static) HTML() string {
	if s.tagName == "" {
		return s.content
	}
	attrs := s.attrs.String()
	if s.content == "" && !s.forceClosing {
		return "<" + s.tagName + attrs + " />"
	}
	return "<" + s.tagName + attrs + ">" + s.content + "</" + s.tagName + ">"
}

func (s *Static) JavascriptValue(bool) string  { return "" }
func (s *Static) JavascriptTriggers() []string { return nil }
