// Package hxformecho provides Echo framework integration for hxform.
//
// Mount a multi-page controller onto an Echo instance or group:
//
//	e := echo.New()
//	hxformecho.Mount(e, ctrl, hxformecho.WithPath("/checkout"))
//
// Or mount on a group with middleware:
//
//	g := e.Group("/app", authMiddleware)
//	hxformecho.MountGroup(g, ctrl)
//
// Controller errors are returned to Echo as *echo.HTTPError, so the
// application's HTTPErrorHandler renders them.
package hxformecho

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/hxform"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	path       string
	scriptPath string
}

// WithPath sets the URL path of the controller. Defaults to "/<id>", or
// "/forms" for controllers without an id.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithScript also serves the validation script at path. Use the same path
// with hxform.WithScriptURL when rendering.
func WithScript(path string) Option {
	return func(o *options) {
		o.scriptPath = path
	}
}

func newOptions(ctrl *hxform.Controller, opts []Option) *options {
	o := &options{path: "/forms"}
	if ctrl.ID() != "" {
		o.path = "/" + ctrl.ID()
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mount routes GET and POST requests for the controller path to ctrl.
//
//	e := echo.New()
//	hxformecho.Mount(e, ctrl)
//
//	// With options:
//	hxformecho.Mount(e, ctrl, hxformecho.WithPath("/signup"), hxformecho.WithScript("/qf.js"))
func Mount(e *echo.Echo, ctrl *hxform.Controller, opts ...Option) {
	o := newOptions(ctrl, opts)
	e.Match([]string{http.MethodGet, http.MethodPost}, o.path, Handler(ctrl))
	if o.scriptPath != "" {
		e.GET(o.scriptPath, echo.WrapHandler(hxform.JavascriptHandler()))
	}
}

// MountGroup mounts the controller on an Echo group.
// This allows controllers to share middleware with the group (auth, logging, etc.).
//
//	g := e.Group("/app", authMiddleware)
//	hxformecho.MountGroup(g, ctrl)
func MountGroup(g *echo.Group, ctrl *hxform.Controller, opts ...Option) {
	o := newOptions(ctrl, opts)
	g.Match([]string{http.MethodGet, http.MethodPost}, o.path, Handler(ctrl))
	if o.scriptPath != "" {
		g.GET(o.scriptPath, echo.WrapHandler(hxform.JavascriptHandler()))
	}
}

// Handler returns an Echo handler running ctrl.
func Handler(ctrl *hxform.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		return HTTPError(ctrl.Run(c.Response(), c.Request()))
	}
}

// HTTPError converts hxform errors into Echo HTTP errors. Unknown pages
// and actions become 404, invalid or tampered input 400.
func HTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case hxform.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound).SetInternal(err)
	case hxform.IsInvalidArgument(err), hxform.IsDecryptionError(err), errors.Is(err, hxform.ErrInvalidFormat):
		return echo.NewHTTPError(http.StatusBadRequest).SetInternal(err)
	}
	return err
}

// BindForm binds the request of c to form, so it is validated against the
// submitted values.
//
//	func signup(c echo.Context) error {
//	    form := newSignupForm()
//	    if err := hxformecho.BindForm(c, form); err != nil {
//	        return err
//	    }
//	    if form.Validate() {
//	        return c.Redirect(http.StatusSeeOther, "/welcome")
//	    }
//	    return hxformecho.Render(c, form.Component())
//	}
func BindForm(c echo.Context, form *hxform.Form, opts ...hxform.RequestOption) error {
	return HTTPError(form.BindRequest(c.Request(), opts...))
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxformecho.Render(c, myTemplate())
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
