package hxform

import (
	"net/http"

	"github.com/a-h/templ"
)

// Render writes a templ component to w as HTML, using the request context.
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    form := hxform.NewForm("login")
//	    // ...
//	    hxform.Render(w, r, form.Component())
//	}
func Render(w http.ResponseWriter, r *http.Request, component templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(r.Context(), w)
}

// IsHTMX reports whether htmx sent the request. Controllers answer such
// requests with an HX-Redirect header instead of a 303, which htmx would
// follow inside the swapped element.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// IsBoosted reports whether the request is an hx-boost navigation. Boosted
// requests replace the whole body, so layouts should render in full.
func IsBoosted(r *http.Request) bool {
	return r.Header.Get("HX-Boosted") == "true"
}

// TriggerName returns the name of the element that triggered an htmx
// request. Controllers fall back to it when no page button is among the
// submitted values:
//
//	<button hx-post="/wizard" hx-include="#shipping" name="_qf_shipping_next">Next</button>
func TriggerName(r *http.Request) string {
	return r.Header.Get("HX-Trigger-Name")
}
