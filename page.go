package hxform

import (
	"fmt"

	"go.uber.org/zap"
)

// BuildFunc adds the elements of a page form. It runs at most once per
// request.
type BuildFunc func(f *Flow, form *Form) error

// Page is one form of a multi-page controller.
type Page struct {
	id       string
	build    BuildFunc
	formOpts []FormOption
	handlers map[string]Action

	defaultAction string
	defaultImage  string
	controller    *Controller
}

// NewPage creates a page whose form has the given id.
func NewPage(id string, build BuildFunc, opts ...FormOption) *Page {
	return &Page{id: id, build: build, formOpts: opts, handlers: make(map[string]Action)}
}

func (p *Page) ID() string { return p.id }

func (p *Page) Controller() *Controller { return p.controller }

// AddHandler registers an action for this page only.
func (p *Page) AddHandler(name string, a Action) {
	p.handlers[name] = a
}

// SetDefaultAction sets the action performed when the form is submitted
// by pressing Enter. It is implemented as an invisible image button put
// first in the form, so imageSrc should point to a transparent image.
func (p *Page) SetDefaultAction(action, imageSrc string) {
	p.defaultAction = action
	p.defaultImage = imageSrc
}

// ButtonName returns the name of a submit button performing action.
func (p *Page) ButtonName(action string) string {
	return fmt.Sprintf(buttonNameFormat, p.id, action)
}

// Button returns a submit button performing action.
func (p *Page) Button(action, label string) *Input {
	return NewSubmit(p.ButtonName(action), Attributes{"value": label})
}

// handle performs action: page handlers first, then the controller.
func (p *Page) handle(f *Flow, action string) error {
	f.logger.Debug("performing action", zap.String("page", p.id), zap.String("action", action))
	if a, ok := p.handlers[action]; ok {
		return a.Perform(f, p, action)
	}
	return p.controller.handle(f, p, action)
}

func (p *Page) defaultButton() *Input {
	return NewImage(p.ButtonName(p.defaultAction), Attributes{
		"src":   p.defaultImage,
		"alt":   "",
		"style": "position: absolute; width: 1px; height: 1px; border: 0; overflow: hidden; left: -9999px;",
	})
}
