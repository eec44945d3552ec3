// Command example serves a three page signup wizard. Page values travel
// in an encrypted cookie, so the server keeps no state until the signup
// is processed.
package main

import (
	"net/http"
	"os"

	"github.com/pthm/hxform"
	"go.uber.org/zap"
)

const (
	scriptPath = "/static/qfvalidate.js"
	blankPath  = "/static/blank.gif"
)

// blankGIF is a transparent 1x1 image for the default action buttons.
var blankGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// In production, load a real secret.
	key := []byte(os.Getenv("SIGNUP_KEY"))
	if len(key) == 0 {
		key = []byte("wizard-example-key-32-bytes-long")
	}
	store, err := hxform.NewCookieStore(key, true)
	if err != nil {
		logger.Fatal("session store", zap.Error(err))
	}

	if err := hxform.RegisterRenderer("signup", func() hxform.Renderer {
		return hxform.NewDefaultRenderer(hxform.WithScriptURL(scriptPath))
	}); err != nil {
		logger.Fatal("register renderer", zap.Error(err))
	}

	signups := NewStore()
	ctrl, err := newSignupController(signups,
		hxform.WithStore(store),
		hxform.WithLogger(logger),
		hxform.WithRendererType("signup"),
		hxform.WithLayout(Layout),
	)
	if err != nil {
		logger.Fatal("signup controller", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/signup", ctrl)
	mux.Handle(scriptPath, hxform.JavascriptHandler())
	mux.HandleFunc(blankPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write(blankGIF)
	})
	mux.HandleFunc("/welcome", func(w http.ResponseWriter, r *http.Request) {
		handleWelcome(signups, w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
	})

	addr := ":8080"
	logger.Info("starting server", zap.String("url", "http://localhost"+addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func handleWelcome(signups *Store, w http.ResponseWriter, r *http.Request) {
	s := signups.Get(r.URL.Query().Get("id"))
	if s == nil {
		http.NotFound(w, r)
		return
	}
	if err := hxform.Render(w, r, Welcome(s)); err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
