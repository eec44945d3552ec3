package hxform

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ElementTemplate renders an element in place of a renderer's builtin
// markup for its type.
type ElementTemplate func(w io.Writer, el Node) error

// RendererPlugin contributes element templates to a renderer type.
type RendererPlugin struct {
	Name      string
	Templates map[string]ElementTemplate
}

// Pluggable is implemented by renderers accepting plugin templates.
type Pluggable interface {
	Renderer
	SetElementTemplate(typ string, tpl ElementTemplate) error
}

// rendererRegistry manages renderer types and their plugins.
type rendererRegistry struct {
	mu      sync.RWMutex
	types   map[string]func() Renderer
	plugins map[string][]RendererPlugin
}

var renderers = &rendererRegistry{
	types: map[string]func() Renderer{
		"default": func() Renderer { return NewDefaultRenderer() },
		"array":   func() Renderer { return NewArrayRenderer() },
	},
	plugins: make(map[string][]RendererPlugin),
}

// RegisterRenderer adds a renderer type. Type names are case-insensitive
// and can only be registered once.
func RegisterRenderer(typ string, ctor func() Renderer) error {
	if typ == "" || ctor == nil {
		return fmt.Errorf("%w: renderer type needs a name and a constructor", ErrInvalidArgument)
	}
	typ = strings.ToLower(typ)
	renderers.mu.Lock()
	defer renderers.mu.Unlock()
	if _, exists := renderers.types[typ]; exists {
		return fmt.Errorf("%w: renderer type %q is already registered", ErrInvalidArgument, typ)
	}
	renderers.types[typ] = ctor
	return nil
}

// RegisterRendererPlugin adds a plugin to a renderer type. The type need
// not be registered yet, so plugins can ship with custom elements.
func RegisterRendererPlugin(typ string, plugin RendererPlugin) error {
	if plugin.Name == "" {
		return fmt.Errorf("%w: renderer plugin needs a name", ErrInvalidArgument)
	}
	typ = strings.ToLower(typ)
	renderers.mu.Lock()
	defer renderers.mu.Unlock()
	for _, p := range renderers.plugins[typ] {
		if strings.EqualFold(p.Name, plugin.Name) {
			return fmt.Errorf("%w: plugin %q for renderer type %q is already registered", ErrInvalidArgument, plugin.Name, typ)
		}
	}
	renderers.plugins[typ] = append(renderers.plugins[typ], plugin)
	return nil
}

// NewRenderer returns a fresh renderer of the given type with its
// plugins applied.
func NewRenderer(typ string) (Renderer, error) {
	typ = strings.ToLower(typ)
	renderers.mu.RLock()
	ctor, ok := renderers.types[typ]
	plugins := append([]RendererPlugin(nil), renderers.plugins[typ]...)
	renderers.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: renderer type %q is not known", ErrNotFound, typ)
	}
	r := ctor()
	if len(plugins) == 0 {
		return r, nil
	}
	p, ok := r.(Pluggable)
	if !ok {
		return nil, fmt.Errorf("%w: renderer type %q does not accept plugins", ErrInvalidArgument, typ)
	}
	for _, plugin := range plugins {
		for _, elType := range sortedKeys(plugin.Templates) {
			if err := p.SetElementTemplate(elType, plugin.Templates[elType]); err != nil {
				return nil, fmt.Errorf("plugin %q: %w", plugin.Name, err)
			}
		}
	}
	return r, nil
}

// templateSet holds plugin templates keyed by lowercased element type.
type templateSet map[string]ElementTemplate

func (s templateSet) set(typ string, tpl ElementTemplate) error {
	if tpl == nil {
		return fmt.Errorf("%w: nil template for %q", ErrInvalidArgument, typ)
	}
	typ = strings.ToLower(typ)
	if _, exists := s[typ]; exists {
		return fmt.Errorf("%w: duplicate template for element type %q", ErrInvalidArgument, typ)
	}
	s[typ] = tpl
	return nil
}

// collectJavascript returns the client-side rules of n, each paired with
// its on-blur flag.
func collectJavascript(n Node) []clientRule {
	var out []clientRule
	for _, e := range n.Rules() {
		if e.RunAt&RunAtClient == 0 {
			continue
		}
		out = append(out, clientRule{js: e.Rule.Javascript(), blur: e.RunAt&runAtBlur != 0})
	}
	return out
}

type clientRule struct {
	js   string
	blur bool
}

// javascriptSetup returns the script attaching rules to form id.
func javascriptSetup(formID string, rules []clientRule) string {
	if len(rules) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("qf.attach(")
	sb.WriteString(jsString(formID))
	sb.WriteString(", [\n")
	for i, r := range rules {
		if i > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString("[")
		sb.WriteString(r.js)
		if r.blur {
			sb.WriteString(", true]")
		} else {
			sb.WriteString(", false]")
		}
	}
	sb.WriteString("\n]);")
	return sb.String()
}
