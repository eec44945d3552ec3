package hxform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition describes a form declaratively:
//
//	id: signup
//	method: post
//	defaults:
//	  country: fr
//	elements:
//	  - type: text
//	    name: login
//	    label: Login
//	    rules:
//	      - type: required
//	        message: Login is required
//	      - type: length
//	        message: Between 3 and 20 characters
//	        config: {min: 3, max: 20}
//	        runAt: client+server
//	  - type: password
//	    name: confirm
//	    rules:
//	      - type: compare
//	        message: Passwords do not match
//	        config: {operator: "===", operand: {element: password}}
//
// A map with the single key "element" anywhere in a rule config is replaced
// by the element of that name (or id), so compare operands can refer to
// other elements.
type Definition struct {
	ID         string              `yaml:"id"`
	Method     string              `yaml:"method,omitempty"`
	Action     string              `yaml:"action,omitempty"`
	Attributes map[string]string   `yaml:"attributes,omitempty"`
	Tracking   *bool               `yaml:"tracking,omitempty"`
	Defaults   map[string]any      `yaml:"defaults,omitempty"`
	Elements   []ElementDefinition `yaml:"elements"`
	Rules      []RuleDefinition    `yaml:"rules,omitempty"`
}

// ElementDefinition describes an element or container. Data holds the
// type-specific construction data understood by the Factory.
type ElementDefinition struct {
	Type       string              `yaml:"type"`
	Name       string              `yaml:"name,omitempty"`
	Label      string              `yaml:"label,omitempty"`
	Attributes map[string]string   `yaml:"attributes,omitempty"`
	Data       map[string]any      `yaml:"data,omitempty"`
	Value      any                 `yaml:"value,omitempty"`
	Frozen     bool                `yaml:"frozen,omitempty"`
	Rules      []RuleDefinition    `yaml:"rules,omitempty"`
	Elements   []ElementDefinition `yaml:"elements,omitempty"`
}

// RuleDefinition describes a rule and its chains. Every entry of And is
// appended to the rule's last chain; every entry of Or starts a new chain.
// Template is the template rule of an "each" rule.
type RuleDefinition struct {
	Type     string           `yaml:"type"`
	Message  string           `yaml:"message,omitempty"`
	Config   any              `yaml:"config,omitempty"`
	RunAt    string           `yaml:"runAt,omitempty"`
	And      []RuleDefinition `yaml:"and,omitempty"`
	Or       []RuleDefinition `yaml:"or,omitempty"`
	Template *RuleDefinition  `yaml:"template,omitempty"`
}

// LoadDefinition decodes a YAML definition. Unknown keys are rejected.
func LoadDefinition(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty form definition", ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: parse form definition: %v", ErrInvalidArgument, err)
	}
	if def.ID == "" {
		return nil, fmt.Errorf("%w: form definition needs an id", ErrInvalidArgument)
	}
	return &def, nil
}

// LoadDefinitionFile reads a YAML definition from path.
func LoadDefinitionFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form definition: %w", err)
	}
	return LoadDefinition(bytes.NewReader(data))
}

// ParseRunAt converts "server", "client", "blur" or combinations joined
// with "+" ("client+server", "blur+server") into RunAt flags. Empty means
// server.
func ParseRunAt(s string) (RunAt, error) {
	if strings.TrimSpace(s) == "" {
		return RunAtServer, nil
	}
	var runAt RunAt
	for _, part := range strings.Split(s, "+") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "server":
			runAt |= RunAtServer
		case "client":
			runAt |= RunAtClient
		case "blur", "onblur":
			runAt |= RunAtOnBlurClient
		default:
			return 0, fmt.Errorf("%w: unknown run-at %q", ErrInvalidArgument, part)
		}
	}
	return runAt, nil
}

type pendingRules struct {
	owner Node
	defs  []RuleDefinition
}

// Build creates the form through f. Rules are attached once every element
// exists, so operands may refer to elements defined later.
func (d *Definition) Build(f *Factory, opts ...FormOption) (*Form, error) {
	if f == nil {
		f = DefaultFactory()
	}
	var formOpts []FormOption
	if d.Method != "" {
		formOpts = append(formOpts, WithMethod(d.Method))
	}
	if d.Action != "" {
		formOpts = append(formOpts, WithAction(d.Action))
	}
	if len(d.Attributes) > 0 {
		formOpts = append(formOpts, WithFormAttributes(d.Attributes))
	}
	if d.Tracking != nil && !*d.Tracking {
		formOpts = append(formOpts, WithoutTracking())
	}
	form := NewForm(d.ID, append(formOpts, opts...)...)

	pending := []pendingRules{{owner: form, defs: d.Rules}}
	if err := buildChildren(f, form, d.Elements, &pending); err != nil {
		return nil, err
	}
	for _, p := range pending {
		for _, rd := range p.defs {
			runAt, err := ParseRunAt(rd.RunAt)
			if err != nil {
				return nil, err
			}
			rule, err := buildRule(f, form, p.owner, rd)
			if err != nil {
				return nil, fmt.Errorf("rule %q on %q: %w", rd.Type, p.owner.Name(), err)
			}
			if err := p.owner.AddRule(rule, runAt); err != nil {
				return nil, fmt.Errorf("rule %q on %q: %w", rd.Type, p.owner.Name(), err)
			}
		}
	}
	if len(d.Defaults) > 0 {
		if err := form.AddDataSource(NewArrayDataSource(d.Defaults)); err != nil {
			return nil, err
		}
	}
	return form, nil
}

func buildChildren(f *Factory, parent Container, defs []ElementDefinition, pending *[]pendingRules) error {
	for _, ed := range defs {
		data := ed.Data
		if ed.Label != "" {
			data = mergeValues(map[string]any{"label": ed.Label}, data)
		}
		el, err := f.CreateElement(ed.Type, ed.Name, Attributes(ed.Attributes), data)
		if err != nil {
			return err
		}
		if err := parent.AppendChild(el); err != nil {
			return err
		}
		if ed.Value != nil {
			el.SetValue(ed.Value)
		}
		if ed.Frozen {
			el.ToggleFrozen(true)
		}
		if len(ed.Elements) > 0 {
			c, ok := el.(Container)
			if !ok {
				return fmt.Errorf("%w: element %q of type %q cannot have children", ErrInvalidArgument, ed.Name, ed.Type)
			}
			if err := buildChildren(f, c, ed.Elements, pending); err != nil {
				return err
			}
		}
		if len(ed.Rules) > 0 {
			*pending = append(*pending, pendingRules{owner: el, defs: ed.Rules})
		}
	}
	return nil
}

func buildRule(f *Factory, form *Form, owner Node, rd RuleDefinition) (Rule, error) {
	config, err := resolveOperands(form, rd.Config)
	if err != nil {
		return nil, err
	}
	if rd.Template != nil {
		template, err := buildRule(f, form, nil, *rd.Template)
		if err != nil {
			return nil, err
		}
		config = template
	}
	rule, err := f.CreateRule(rd.Type, owner, rd.Message, config)
	if err != nil {
		return nil, err
	}
	for _, and := range rd.And {
		child, err := buildRule(f, form, owner, and)
		if err != nil {
			return nil, err
		}
		if err := rule.And(child); err != nil {
			return nil, err
		}
	}
	for _, or := range rd.Or {
		child, err := buildRule(f, form, owner, or)
		if err != nil {
			return nil, err
		}
		if err := rule.Or(child); err != nil {
			return nil, err
		}
	}
	return rule, nil
}

// resolveOperands replaces {element: name} references with nodes.
func resolveOperands(form *Form, v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if name, ok := t["element"].(string); ok && len(t) == 1 {
			if found := form.ElementsByName(name); len(found) > 0 {
				return found[0], nil
			}
			if found := form.ElementByID(name); found != nil {
				return found, nil
			}
			return nil, fmt.Errorf("%w: element %q referenced by a rule", ErrNotFound, name)
		}
		out := make(map[string]any, len(t))
		for k, item := range t {
			r, err := resolveOperands(form, item)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			r, err := resolveOperands(form, item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}
