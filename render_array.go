package hxform

import (
	"strings"
)

// ElementView is the rendered form of one node for custom templates.
type ElementView struct {
	ID        string        `json:"id"`
	Name      string        `json:"name,omitempty"`
	Type      string        `json:"type"`
	Label     string        `json:"label,omitempty"`
	HTML      string        `json:"html,omitempty"`
	Value     any           `json:"value,omitempty"`
	Error     string        `json:"error,omitempty"`
	Required  bool          `json:"required,omitempty"`
	Frozen    bool          `json:"frozen,omitempty"`
	Separator string        `json:"separator,omitempty"`
	Elements  []ElementView `json:"elements,omitempty"`
}

// FormView is the output of the array renderer for a form.
type FormView struct {
	ID         string            `json:"id"`
	Attributes Attributes        `json:"attributes"`
	Hidden     []string          `json:"hidden,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Required   bool              `json:"required,omitempty"`
	Javascript string            `json:"javascript,omitempty"`
	Elements   []ElementView     `json:"elements"`
}

// ArrayRenderer turns a form into a FormView, leaving layout to the
// caller's templates. It also serializes cleanly to JSON.
type ArrayRenderer struct {
	templates templateSet
	view      *FormView
	stack     [][]ElementView
	required  bool
	js        []clientRule
}

func NewArrayRenderer() *ArrayRenderer {
	r := &ArrayRenderer{templates: templateSet{}}
	r.stack = [][]ElementView{nil}
	return r
}

func (r *ArrayRenderer) SetElementTemplate(typ string, tpl ElementTemplate) error {
	return r.templates.set(typ, tpl)
}

// View returns the last rendered form, nil before FinishForm.
func (r *ArrayRenderer) View() *FormView { return r.view }

// Elements returns the views rendered outside any form.
func (r *ArrayRenderer) Elements() []ElementView { return r.stack[0] }

func (r *ArrayRenderer) add(v ElementView) {
	last := len(r.stack) - 1
	r.stack[last] = append(r.stack[last], v)
}

func (r *ArrayRenderer) viewOf(el Node) (ElementView, error) {
	v := ElementView{
		ID:       el.ID(),
		Name:     el.Name(),
		Type:     el.Type(),
		Label:    el.Label(),
		Error:    el.Error(),
		Required: el.IsRequired(),
		Frozen:   el.IsFrozen(),
	}
	if v.Required && !v.Frozen {
		r.required = true
	}
	r.js = append(r.js, collectJavascript(el)...)
	if _, ok := el.(Container); ok {
		return v, nil
	}
	v.Value = el.Value()
	if tpl, ok := r.templates[strings.ToLower(el.Type())]; ok {
		var sb strings.Builder
		if err := tpl(&sb, el); err != nil {
			return v, err
		}
		v.HTML = sb.String()
	} else {
		v.HTML = el.HTML()
	}
	return v, nil
}

func (r *ArrayRenderer) RenderElement(el Node) error {
	v, err := r.viewOf(el)
	if err != nil {
		return err
	}
	r.add(v)
	return nil
}

func (r *ArrayRenderer) RenderHidden(el Node) error {
	r.js = append(r.js, collectJavascript(el)...)
	if r.view == nil {
		return r.RenderElement(el)
	}
	r.view.Hidden = append(r.view.Hidden, el.HTML())
	return nil
}

func (r *ArrayRenderer) StartForm(f *Form) error {
	r.view = &FormView{
		ID:         f.ID(),
		Attributes: f.Attributes(),
		Errors:     make(map[string]string),
	}
	r.required = false
	r.js = collectJavascript(f)
	r.stack = append(r.stack, nil)
	return nil
}

func (r *ArrayRenderer) FinishForm(f *Form) error {
	last := len(r.stack) - 1
	r.view.Elements = r.stack[last]
	if r.view.Elements == nil {
		r.view.Elements = []ElementView{}
	}
	r.stack = r.stack[:last]
	r.view.Required = r.required
	r.view.Errors = f.Errors()
	r.view.Javascript = javascriptSetup(f.ID(), r.js)
	return nil
}

func (r *ArrayRenderer) StartContainer(c Container) error {
	r.stack = append(r.stack, nil)
	return nil
}

func (r *ArrayRenderer) finish(c Container, separator string) error {
	last := len(r.stack) - 1
	children := r.stack[last]
	r.stack = r.stack[:last]
	v, err := r.viewOf(c)
	if err != nil {
		return err
	}
	v.Elements = children
	v.Separator = separator
	r.add(v)
	return nil
}

func (r *ArrayRenderer) FinishContainer(c Container) error { return r.finish(c, "") }

func (r *ArrayRenderer) StartGroup(g *Group) error {
	r.stack = append(r.stack, nil)
	return nil
}

func (r *ArrayRenderer) FinishGroup(g *Group) error { return r.finish(g, g.Separator()) }
