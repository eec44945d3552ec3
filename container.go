package hxform

import (
	"errors"
	"fmt"
)

var errStopWalk = errors.New("stop walk")

// container implements child management for Fieldset, Group and Form.
type container struct {
	node
	children []Node
}

func (c *container) containerBase() *container { return c }

func (c *container) Children() []Node {
	out := make([]Node, len(c.children))
	copy(out, c.children)
	return out
}

func (c *container) AppendChild(child Node) error {
	return c.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref, or appends it when ref is nil. A
// child attached elsewhere is moved.
func (c *container) InsertBefore(child, ref Node) error {
	if child == nil {
		return fmt.Errorf("%w: nil child", ErrInvalidArgument)
	}
	if _, ok := child.(*Form); ok {
		return fmt.Errorf("%w: a form cannot be nested", ErrInvalidArgument)
	}
	for p := Node(c.self); p != nil; p = p.Parent() {
		if p == child {
			return fmt.Errorf("%w: cannot append a container to its own descendant", ErrInvalidArgument)
		}
	}
	idx := len(c.children)
	if ref != nil {
		idx = c.indexOf(ref)
		if idx < 0 {
			return fmt.Errorf("%w: reference element %q is not a child of %q", ErrNotFound, ref.ID(), c.ID())
		}
	}
	if old := child.Parent(); old != nil {
		if old == c.self && c.indexOf(child) < idx {
			idx--
		}
		if err := old.RemoveChild(child); err != nil {
			return err
		}
	}

	c.children = append(c.children, nil)
	copy(c.children[idx+1:], c.children[idx:])
	c.children[idx] = child
	child.base().parent = c.self.(Container)

	if err := c.attached(child); err != nil {
		c.children = append(c.children[:idx], c.children[idx+1:]...)
		child.base().parent = nil
		return err
	}
	return nil
}

// attached runs the checks and updates needed once child joins a tree.
func (c *container) attached(child Node) error {
	form := formOf(child)
	if form == nil {
		return nil
	}
	err := visit(child, func(n Node) error {
		if f, ok := n.(*InputFile); ok {
			return f.checkForm(form)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = visit(child, func(n Node) error {
		form.claimID(n.base())
		return nil
	})
	return child.updateValue()
}

// visit calls fn for n and all its descendants.
func visit(n Node, fn func(Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	if c, ok := n.(Container); ok {
		return c.Walk(fn)
	}
	return nil
}

func (c *container) indexOf(n Node) int {
	for i, child := range c.children {
		if child == n {
			return i
		}
	}
	return -1
}

func (c *container) RemoveChild(child Node) error {
	idx := c.indexOf(child)
	if idx < 0 {
		return fmt.Errorf("%w: element %q is not a child of %q", ErrNotFound, child.ID(), c.ID())
	}
	if form := formOf(c.self); form != nil {
		_ = visit(child, func(n Node) error {
			form.releaseID(n.base())
			return nil
		})
	}
	c.children = append(c.children[:idx], c.children[idx+1:]...)
	child.base().parent = nil
	return nil
}

func (c *container) Walk(fn func(Node) error) error {
	for _, child := range c.children {
		if err := fn(child); err != nil {
			return err
		}
		if sub, ok := child.(Container); ok {
			if err := sub.Walk(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *container) ElementByID(id string) Node {
	var found Node
	_ = c.Walk(func(n Node) error {
		if n.ID() == id {
			found = n
			return errStopWalk
		}
		return nil
	})
	return found
}

func (c *container) ElementsByName(name string) []Node {
	var found []Node
	_ = c.Walk(func(n Node) error {
		if n.Name() == name {
			found = append(found, n)
		}
		return nil
	})
	return found
}

func (c *container) Leaves() []Node {
	var out []Node
	_ = c.Walk(func(n Node) error {
		if _, ok := n.(Container); !ok {
			out = append(out, n)
		}
		return nil
	})
	return out
}

func (c *container) updateValue() error {
	for _, child := range c.children {
		if err := child.updateValue(); err != nil {
			return err
		}
	}
	return nil
}

// validate validates every child, then the container's own rules.
func (c *container) validate() bool {
	valid := true
	for _, child := range c.children {
		if !child.validate() {
			valid = false
		}
	}
	return c.node.validate() && valid
}

func (c *container) ToggleFrozen(freeze bool) bool {
	for _, child := range c.children {
		child.ToggleFrozen(freeze)
	}
	return c.node.ToggleFrozen(freeze)
}

func (c *container) SetPersistentFreeze(persistent bool) {
	for _, child := range c.children {
		child.SetPersistentFreeze(persistent)
	}
	c.node.SetPersistentFreeze(persistent)
}

// collect merges the values of the children into values, keyed by their
// qualified names from the form root.
func (c *container) collect(values map[string]any, raw bool) {
	for _, child := range c.children {
		if g, ok := child.(*Group); ok && g.localName != "" {
			var v any
			if raw {
				v = g.RawValue()
			} else {
				v = g.Value()
			}
			if v != nil {
				mergeAt(values, splitName(g.Name()), v)
			}
			continue
		}
		if sub, ok := child.(Container); ok {
			cb := sub.containerBase()
			if raw || len(cb.filters) == 0 {
				cb.collect(values, raw)
				continue
			}
			if m, ok := sub.Value().(map[string]any); ok {
				mergeValues(values, m)
			}
			continue
		}
		var v any
		if raw {
			v = child.RawValue()
		} else {
			v = child.Value()
		}
		if v != nil && child.Name() != "" {
			assignPath(values, splitName(child.Name()), v)
		}
	}
}

// mergeAt stores v under tokens, merging maps already present there.
func mergeAt(values map[string]any, tokens []string, v any) {
	if m, ok := v.(map[string]any); ok {
		if existing, ok := lookupPath(values, tokens); ok {
			if em, ok := existing.(map[string]any); ok {
				mergeValues(em, m)
				return
			}
		}
	}
	assignPath(values, tokens, v)
}

func (c *container) RawValue() any {
	values := make(map[string]any)
	c.collect(values, true)
	return values
}

func (c *container) Value() any {
	values := make(map[string]any)
	c.collect(values, false)
	return c.applyFilters(values)
}

// SetValue distributes a nested map over the leaves by qualified name.
func (c *container) SetValue(v any) {
	m, ok := v.(map[string]any)
	if !ok {
		return
	}
	for _, leaf := range c.Leaves() {
		name := leaf.Name()
		if _, isCheck := leaf.(*Checkable); isCheck {
			name = trimArraySuffix(name)
		}
		if val, ok := lookupName(m, name); ok {
			leaf.SetValue(val)
		}
	}
}

func (c *container) HTML() string {
	r := NewDefaultRenderer()
	if err := c.self.Render(r); err != nil {
		return ""
	}
	return r.String()
}

func (c *container) renderChildren(r Renderer) error {
	for _, child := range c.children {
		if err := child.Render(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *container) Render(r Renderer) error {
	self := c.self.(Container)
	if err := r.StartContainer(self); err != nil {
		return err
	}
	if err := c.renderChildren(r); err != nil {
		return err
	}
	return r.FinishContainer(self)
}

func (c *container) JavascriptValue(inContainer bool) string {
	var ids []string
	for _, leaf := range c.Leaves() {
		if _, ok := leaf.(*Static); ok {
			continue
		}
		ids = append(ids, leaf.ID())
	}
	if ids == nil {
		ids = []string{}
	}
	return "qf.$cv(" + jsValue(ids) + ")"
}

func (c *container) JavascriptTriggers() []string {
	var out []string
	seen := make(map[string]bool)
	for _, leaf := range c.Leaves() {
		for _, id := range leaf.JavascriptTriggers() {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Fieldset groups elements visually. Its label is rendered as the legend.
type Fieldset struct {
	container
}

func NewFieldset(name string, attrs Attributes) *Fieldset {
	fs := &Fieldset{}
	fs.init(fs, "fieldset", name, attrs)
	return fs
}

// Group binds elements together under a common name: a child "city" of a
// group "address" is named "address[city]". An unnamed group only affects
// rendering.
type Group struct {
	container
	separator string
}

func NewGroup(name string, attrs Attributes) *Group {
	g := &Group{}
	g.init(g, "group", name, attrs)
	return g
}

// SetSeparator sets the markup rendered between the group's children.
func (g *Group) SetSeparator(html string) { g.separator = html }
func (g *Group) Separator() string        { return g.separator }

func (g *Group) RawValue() any {
	values := make(map[string]any)
	g.container.collect(values, true)
	return g.own(values)
}

func (g *Group) Value() any {
	values := make(map[string]any)
	g.container.collect(values, false)
	v := g.own(values)
	if v == nil {
		return nil
	}
	return g.applyFilters(v)
}

// own extracts the group's part of root-keyed values.
func (g *Group) own(values map[string]any) any {
	if g.localName == "" {
		if len(values) == 0 {
			return nil
		}
		return values
	}
	v, ok := lookupPath(values, splitName(g.Name()))
	if !ok {
		return nil
	}
	return v
}

// SetValue accepts the group's own part of the values.
func (g *Group) SetValue(v any) {
	if g.localName == "" {
		g.container.SetValue(v)
		return
	}
	root := make(map[string]any)
	assignPath(root, splitName(g.Name()), v)
	g.container.SetValue(root)
}

func (g *Group) Render(r Renderer) error {
	if err := r.StartGroup(g); err != nil {
		return err
	}
	if err := g.renderChildren(r); err != nil {
		return err
	}
	return r.FinishGroup(g)
}
