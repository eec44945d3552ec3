// Package hxform builds, validates and renders server-side HTML forms, and
// drives multi-page forms through a session-backed controller.
//
// Forms are trees of nodes: elements (inputs, selects, textareas, uploads,
// static markup) inside containers (fieldsets, groups, the form itself).
// Values reach elements from data sources; the submitted request is one,
// defaults and stored session values are others. Output is a templ.Component
// so forms compose with templ layouts and htmx endpoints.
//
// # Building a form
//
//	form := hxform.NewForm("signup")
//	email := hxform.NewEmail("email", nil)
//	email.SetLabel("Email")
//	form.AppendChild(email)
//
//	req, _ := hxform.NewRequired(email, "Email is required", nil)
//	email.AddRule(req, hxform.RunAtClientServer)
//	valid, _ := hxform.NewEmailRule(email, "Not an email address")
//	email.AddRule(valid, hxform.RunAtServer)
//
//	form.BindRequest(r)
//	if form.Validate() {
//	    save(form.Values())
//	}
//	hxform.Render(w, r, form.Component())
//
// Elements inside a group are named after it: a child "city" of group
// "address" submits as "address[city]" and its value nests under the group
// key in Form.Values.
//
// # Rules
//
// A rule checks the value of its owner node. Rules combine with And and Or:
//
//	pass := ownCheck && (chain1[0] && chain1[1] ...) || (chain2[0] && ...)
//
// Elements run their server rules in order and stop at the first rule that
// sets an error, so a Required rule placed first hides every later message.
// A rule only writes its message when the owner has no error yet.
//
// Each applies a template rule to every leaf element of a container and
// reports a single error on the container.
//
// Rules added with RunAtClient are also rendered as JavaScript. The default
// renderer emits a qf.attach call; the runtime is served by
// JavascriptHandler.
//
// # Factory and definitions
//
// A Factory creates elements and rules by type name, so forms can be
// described declaratively. LoadDefinition reads a YAML definition and
// Definition.Build turns it into a Form through a Factory.
//
// # Renderers
//
// Renderers visit the tree. "default" produces HTML; "array" produces an
// ElementView tree for custom templates or JSON. RegisterRenderer adds
// types; RegisterRendererPlugin adds per-element templates to a type.
//
// # Controller
//
// A Controller splits a form over several pages:
//
//	ctrl := hxform.NewController("checkout")
//	ctrl.AddPage(hxform.NewPage("shipping", buildShipping))
//	ctrl.AddPage(hxform.NewPage("payment", buildPayment))
//	ctrl.AddHandler("process", hxform.ActionFunc(func(f *hxform.Flow, p *hxform.Page, _ string) error {
//	    order := f.Values()
//	    f.DestroySession()
//	    return f.Redirect("/thanks?order=" + place(order))
//	}))
//	http.Handle("/checkout", ctrl)
//
// Page buttons are named _qf_<page>_<action>. The controller finds the
// pressed button, stores the page values and validity in the session
// and runs the action. The builtin actions are display, jump, next, back
// and submit; process is supplied by the application. Redirects are sent as
// 303 responses, or as HX-Redirect headers to htmx requests.
//
// Session state lives in a SessionStore. MemoryStore keeps it in process
// behind a session id cookie; CookieStore signs or encrypts it into the
// cookie itself using msgpack and lib/encoding.
package hxform
