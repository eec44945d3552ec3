package hxform

import (
	_ "embed"
	"net/http"
)

//go:embed static/qfvalidate.js
var validationScript []byte

// ValidationScript returns the client-side validation library that
// rendered qf.Rule calls depend on.
func ValidationScript() []byte {
	out := make([]byte, len(validationScript))
	copy(out, validationScript)
	return out
}

// JavascriptHandler serves the validation library. Mount it at the URL
// given to WithScriptURL.
func JavascriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(validationScript)
	})
}
