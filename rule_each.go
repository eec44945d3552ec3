package hxform

import (
	"fmt"
	"strings"
)

// EachRule applies a template rule to every element of a container and
// passes when the template passes for all of them.
//
// The template is evaluated with each element as its owner. Only its own
// check runs: its chained rules are ignored, and it never sets errors on
// the elements. Static elements and elements the template cannot own are
// skipped.
type EachRule struct{ baseRule }

// NewEach creates an each rule for container owner.
func NewEach(owner Node, message string, template Rule) (*EachRule, error) {
	r := &EachRule{}
	if err := r.initRule(r, owner, message, template); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *EachRule) checkOwner(owner Node) error {
	if _, ok := owner.(Container); !ok {
		return fmt.Errorf("%w: each rule can only validate containers, %s given", ErrInvalidArgument, owner.Type())
	}
	return nil
}

func (r *EachRule) canonicalConfig(config any) (any, error) {
	template, ok := config.(Rule)
	if !ok || template == nil {
		return nil, fmt.Errorf("%w: each rule requires a template rule", ErrInvalidArgument)
	}
	if _, ok := template.(*RequiredRule); ok {
		return nil, fmt.Errorf("%w: cannot use required rule as a template", ErrInvalidArgument)
	}
	return template, nil
}

func (r *EachRule) template() Rule {
	t, _ := r.config.(Rule)
	return t
}

// elements returns the leaves the template applies to.
func (r *EachRule) elements() []Node {
	c, ok := r.owner.(Container)
	if !ok {
		return nil
	}
	var out []Node
	for _, leaf := range c.Leaves() {
		if _, ok := leaf.(*Static); ok {
			continue
		}
		out = append(out, leaf)
	}
	return out
}

// withOwner evaluates fn with the template temporarily owned by n.
func withOwner[T any](template Rule, n Node, fn func() T) T {
	b := template.rule()
	saved := b.owner
	b.owner = n
	defer func() { b.owner = saved }()
	return fn()
}

func (r *EachRule) validateOwner() bool {
	template := r.template()
	for _, el := range r.elements() {
		if template.checkOwner(el) != nil {
			continue
		}
		if !withOwner(template, el, template.validateOwner) {
			return false
		}
	}
	return true
}

func (r *EachRule) javascriptCallback() string {
	template := r.template()
	if template == nil {
		return ""
	}
	var callbacks []string
	for _, el := range r.elements() {
		if template.checkOwner(el) != nil {
			continue
		}
		cb := withOwner(template, el, template.javascriptCallback)
		if cb == "" {
			return ""
		}
		callbacks = append(callbacks, cb)
	}
	if len(r.elements()) == 0 && withOwner(template, r.owner, template.javascriptCallback) == "" {
		return ""
	}
	return "function() { return qf.rules.each([" + strings.Join(callbacks, ", ") + "]); }"
}
