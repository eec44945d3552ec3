package hxform

import (
	"net/http"
)

// Action is performed when a page button is pressed.
type Action interface {
	Perform(f *Flow, p *Page, name string) error
}

// ActionFunc adapts a function to Action.
type ActionFunc func(f *Flow, p *Page, name string) error

func (fn ActionFunc) Perform(f *Flow, p *Page, name string) error { return fn(f, p, name) }

var builtinActions = map[string]Action{
	"display": DisplayAction{},
	"jump":    JumpAction{},
	"next":    NextAction{},
	"back":    BackAction{},
	"submit":  SubmitAction{},
}

// DisplayAction renders the page form. When display was requested, stored
// values take precedence over defaults and a page stored as invalid shows
// its errors again. Wizard controllers jump to the first invalid page
// instead when an earlier page is not valid.
type DisplayAction struct{}

func (DisplayAction) Perform(f *Flow, p *Page, _ string) error {
	if f.ctrl.wizard {
		valid, err := f.IsValid(p)
		if err != nil {
			return err
		}
		if !valid {
			if first := f.FirstInvalidPage(); first != nil && first != p {
				return first.handle(f, "jump")
			}
		}
	}
	form, err := f.Form(p)
	if err != nil {
		return err
	}
	// Pages redisplayed by another action already hold the submitted values
	// and their errors.
	if _, action, _ := f.ActionName(); action == "display" {
		if values := f.container.PageValues(p.id); len(values) > 0 {
			sources := append([]DataSource{NewSessionDataSource(values)}, form.DataSources()...)
			if err := form.SetDataSources(sources...); err != nil {
				return err
			}
			if valid, seen := f.container.ValidationStatus(p.id); seen && !valid {
				form.Validate()
			}
		}
	}
	return f.Render(p, form)
}

// JumpAction redirects to the display URL of the page, or of the first
// invalid page when a wizard would not allow reaching it.
type JumpAction struct{}

func (JumpAction) Perform(f *Flow, p *Page, _ string) error {
	if f.ctrl.wizard {
		valid, err := f.IsValid(p)
		if err != nil {
			return err
		}
		if !valid {
			if first := f.FirstInvalidPage(); first != nil {
				p = first
			}
		}
	}
	return f.Redirect(f.JumpURL(p))
}

// NextAction stores the page and moves to the next one. On the last page
// of a wizard it acts as a submit button.
type NextAction struct{}

func (NextAction) Perform(f *Flow, p *Page, _ string) error {
	valid, err := f.StoreValues(p, true)
	if err != nil {
		return err
	}
	if f.ctrl.wizard && !valid {
		return p.handle(f, "display")
	}
	if next := f.NextPage(p); next != nil {
		return next.handle(f, "jump")
	}
	if !f.ctrl.wizard {
		return p.handle(f, "display")
	}
	return finish(f, p)
}

// finish processes the controller when all pages are valid, or jumps to
// the first invalid one.
func finish(f *Flow, p *Page) error {
	all, err := f.IsValid(nil)
	if err != nil {
		return err
	}
	if all {
		return p.handle(f, "process")
	}
	return f.FirstInvalidPage().handle(f, "jump")
}

// BackAction stores the page values without validating them and goes to
// the previous page.
type BackAction struct{}

func (BackAction) Perform(f *Flow, p *Page, _ string) error {
	if _, err := f.StoreValues(p, false); err != nil {
		return err
	}
	if prev := f.PreviousPage(p); prev != nil {
		return prev.handle(f, "jump")
	}
	return p.handle(f, "jump")
}

// SubmitAction processes the controller when every page is valid.
// Otherwise the current page is displayed again if it is invalid, or the
// first invalid page is shown.
type SubmitAction struct{}

func (SubmitAction) Perform(f *Flow, p *Page, _ string) error {
	valid, err := f.StoreValues(p, true)
	if err != nil {
		return err
	}
	all, err := f.IsValid(nil)
	if err != nil {
		return err
	}
	switch {
	case all:
		return p.handle(f, "process")
	case !valid:
		return p.handle(f, "display")
	default:
		return f.FirstInvalidPage().handle(f, "jump")
	}
}

// DirectAction stores the page and jumps to the page named by the action.
// It handles actions named after a page id.
type DirectAction struct{}

func (DirectAction) Perform(f *Flow, p *Page, name string) error {
	if _, err := f.StoreValues(p, true); err != nil {
		return err
	}
	target, err := f.ctrl.Page(name)
	if err != nil {
		return err
	}
	return target.handle(f, "jump")
}

// WireAttrs returns htmx attributes submitting a form to path with method,
// so page transitions happen without full reloads. Redirects issued by the
// controller are then sent as HX-Redirect headers.
//
//	hxform.NewPage("contact", build, hxform.WithFormAttributes(hxform.WireAttrs("/wizard", http.MethodPost)))
func WireAttrs(path, method string) Attributes {
	attrs := Attributes{}
	switch method {
	case http.MethodGet, "":
		attrs["hx-get"] = path
	case http.MethodPut:
		attrs["hx-put"] = path
	case http.MethodPatch:
		attrs["hx-patch"] = path
	case http.MethodDelete:
		attrs["hx-delete"] = path
	default:
		attrs["hx-post"] = path
	}
	return attrs
}
