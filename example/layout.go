package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/pthm/hxform"
)

var steps = map[string]string{
	"account": "1. Account",
	"profile": "2. Profile",
	"topics":  "3. Topics",
}

// Layout wraps a wizard page into the site layout, with a step indicator
// linking to every page the user may reach.
func Layout(f *hxform.Flow, p *hxform.Page, form templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if r := f.Request(); hxform.IsHTMX(r) && !hxform.IsBoosted(r) {
			return form.Render(ctx, w)
		}
		var nav strings.Builder
		for _, page := range f.Controller().Pages() {
			label := templ.EscapeString(steps[page.ID()])
			if page == p {
				fmt.Fprintf(&nav, "<li><strong>%s</strong></li>", label)
				continue
			}
			fmt.Fprintf(&nav, `<li><a href="%s">%s</a></li>`, templ.EscapeString(f.JumpURL(page)), label)
		}
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Sign up</title>
<script src="https://unpkg.com/htmx.org@2.0.4"></script>
</head>
<body hx-target="#page">
<ol class="steps">%s</ol>
<main id="page">
`, nav.String()); err != nil {
			return err
		}
		if err := form.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n</main>\n</body>\n</html>\n")
		return err
	})
}

// Welcome greets a new user.
func Welcome(s *Signup) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		topics := "nothing yet"
		if len(s.Topics) > 0 {
			topics = strings.Join(s.Topics, ", ")
		}
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Welcome</title></head>
<body>
<h1>Welcome, %s</h1>
<p>We will send news about %s to %s.</p>
</body>
</html>
`, templ.EscapeString(s.Login), templ.EscapeString(topics), templ.EscapeString(s.Email))
		return err
	})
}
