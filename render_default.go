package hxform

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// DefaultOptions configures a DefaultRenderer.
type DefaultOptions struct {
	// GroupErrors lists all errors above the form instead of next to each
	// element.
	GroupErrors  bool
	ErrorsPrefix string
	ErrorsSuffix string
	// RequiredNote is shown below forms with required elements. Empty
	// disables it.
	RequiredNote string
	// ScriptURL, when set, adds a <script src> tag loading the validation
	// library before the form rules.
	ScriptURL string
}

const defaultRequiredNote = `<em>*</em> denotes required fields.`

// DefaultRenderer renders forms as HTML: every element in its own row with
// label, required mark and error; hidden elements collected at the top of
// the form; client-side rules gathered into one script.
type DefaultRenderer struct {
	opts      DefaultOptions
	templates templateSet

	frames      []*frame
	hidden      []string
	errors      []string
	js          []clientRule
	hasRequired bool
	out         string
}

// frame buffers the output of the container being rendered.
type frame struct {
	sb    strings.Builder
	group bool
	parts []string
}

type DefaultOption func(*DefaultOptions)

func WithGroupErrors(prefix, suffix string) DefaultOption {
	return func(o *DefaultOptions) {
		o.GroupErrors = true
		o.ErrorsPrefix = prefix
		o.ErrorsSuffix = suffix
	}
}

func WithRequiredNote(html string) DefaultOption {
	return func(o *DefaultOptions) { o.RequiredNote = html }
}

func WithScriptURL(url string) DefaultOption {
	return func(o *DefaultOptions) { o.ScriptURL = url }
}

func NewDefaultRenderer(opts ...DefaultOption) *DefaultRenderer {
	o := DefaultOptions{RequiredNote: defaultRequiredNote}
	for _, opt := range opts {
		opt(&o)
	}
	r := &DefaultRenderer{opts: o, templates: templateSet{}}
	r.reset()
	return r
}

func (r *DefaultRenderer) SetElementTemplate(typ string, tpl ElementTemplate) error {
	return r.templates.set(typ, tpl)
}

func (r *DefaultRenderer) reset() {
	r.frames = []*frame{{}}
	r.hidden = nil
	r.errors = nil
	r.js = nil
	r.hasRequired = false
	r.out = ""
}

func (r *DefaultRenderer) top() *frame { return r.frames[len(r.frames)-1] }

func (r *DefaultRenderer) push(group bool) {
	r.frames = append(r.frames, &frame{group: group})
}

func (r *DefaultRenderer) pop() *frame {
	f := r.top()
	r.frames = r.frames[:len(r.frames)-1]
	return f
}

// emit writes html to the current frame, as a group part inside groups.
func (r *DefaultRenderer) emit(html string) {
	if f := r.top(); f.group {
		f.parts = append(f.parts, html)
		return
	}
	r.top().sb.WriteString(html)
}

// String returns the rendered output. For a form it is complete after
// FinishForm; for a lone element it is the element row.
func (r *DefaultRenderer) String() string {
	if r.out != "" {
		return r.out
	}
	return r.frames[0].sb.String()
}

// Component returns the output as a templ component.
func (r *DefaultRenderer) Component() templ.Component {
	out := r.String()
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, out)
		return err
	})
}

// Javascript returns the script setting up client-side validation, empty
// when no element has client rules.
func (r *DefaultRenderer) Javascript(formID string) string {
	return javascriptSetup(formID, r.js)
}

func (r *DefaultRenderer) noteError(el Node) string {
	msg := el.Error()
	if msg == "" {
		return ""
	}
	if r.opts.GroupErrors {
		r.errors = append(r.errors, msg)
		return ""
	}
	return `<span class="error">` + templ.EscapeString(msg) + `</span><br />`
}

func (r *DefaultRenderer) labelHTML(el Node) string {
	label := el.Label()
	if label == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(`<p class="label">`)
	if el.IsRequired() && !el.IsFrozen() {
		r.hasRequired = true
		sb.WriteString(`<span class="required">*</span>`)
	}
	if _, isContainer := el.(Container); isContainer {
		sb.WriteString(`<label>` + templ.EscapeString(label) + `</label>`)
	} else {
		sb.WriteString(`<label for="` + templ.EscapeString(el.ID()) + `">` + templ.EscapeString(label) + `</label>`)
	}
	sb.WriteString(`</p>`)
	return sb.String()
}

// row wraps element markup with label and error.
func (r *DefaultRenderer) row(el Node, html string) string {
	var sb strings.Builder
	sb.WriteString(`<div class="row">`)
	sb.WriteString(r.labelHTML(el))
	errHTML := r.noteError(el)
	if errHTML != "" {
		sb.WriteString(`<div class="element error">`)
	} else {
		sb.WriteString(`<div class="element">`)
	}
	sb.WriteString(errHTML)
	sb.WriteString(html)
	sb.WriteString(`</div></div>`)
	return sb.String()
}

func (r *DefaultRenderer) RenderElement(el Node) error {
	r.js = append(r.js, collectJavascript(el)...)
	if tpl, ok := r.templates[strings.ToLower(el.Type())]; ok {
		var sb strings.Builder
		if err := tpl(&sb, el); err != nil {
			return err
		}
		r.emit(sb.String())
		return nil
	}
	if r.top().group {
		html := el.HTML()
		if msg := el.Error(); msg != "" && !r.opts.GroupErrors {
			html = `<span class="error">` + templ.EscapeString(msg) + `</span>` + html
		} else if msg != "" {
			r.errors = append(r.errors, msg)
		}
		if el.IsRequired() && !el.IsFrozen() {
			r.hasRequired = true
		}
		r.emit(html)
		return nil
	}
	r.emit(r.row(el, el.HTML()))
	return nil
}

func (r *DefaultRenderer) RenderHidden(el Node) error {
	r.js = append(r.js, collectJavascript(el)...)
	if len(r.frames) == 1 {
		r.emit(el.HTML())
		return nil
	}
	r.hidden = append(r.hidden, el.HTML())
	return nil
}

// detachedHidden returns the hidden elements collected while rendering a
// container outside a form, which has no FinishForm to place them.
func (r *DefaultRenderer) detachedHidden() string {
	if len(r.frames) != 1 || len(r.hidden) == 0 {
		return ""
	}
	html := strings.Join(r.hidden, "")
	r.hidden = nil
	return html
}

func (r *DefaultRenderer) StartForm(f *Form) error {
	r.reset()
	r.js = append(r.js, collectJavascript(f)...)
	r.push(false)
	return nil
}

func (r *DefaultRenderer) FinishForm(f *Form) error {
	body := r.pop()
	var sb strings.Builder
	sb.WriteString(`<div class="quickform">`)
	if msg := f.Error(); msg != "" {
		r.errors = append([]string{msg}, r.errors...)
	}
	if len(r.errors) > 0 {
		sb.WriteString(`<div class="errors">`)
		if r.opts.ErrorsPrefix != "" {
			sb.WriteString(`<p>` + r.opts.ErrorsPrefix + `</p>`)
		}
		sb.WriteString(`<ul>`)
		for _, msg := range r.errors {
			sb.WriteString(`<li>` + templ.EscapeString(msg) + `</li>`)
		}
		sb.WriteString(`</ul>`)
		if r.opts.ErrorsSuffix != "" {
			sb.WriteString(`<p>` + r.opts.ErrorsSuffix + `</p>`)
		}
		sb.WriteString(`</div>`)
	}
	sb.WriteString(`<form`)
	_ = f.Attributes().write(&sb)
	sb.WriteString(`>`)
	if len(r.hidden) > 0 {
		sb.WriteString(`<div style="display: none;">`)
		sb.WriteString(strings.Join(r.hidden, ""))
		sb.WriteString(`</div>`)
	}
	sb.WriteString(body.sb.String())
	if r.hasRequired && r.opts.RequiredNote != "" && !f.IsFrozen() {
		sb.WriteString(`<div class="reqnote">` + r.opts.RequiredNote + `</div>`)
	}
	sb.WriteString(`</form>`)
	if js := r.Javascript(f.ID()); js != "" {
		if r.opts.ScriptURL != "" {
			sb.WriteString(`<script type="text/javascript" src="` + templ.EscapeString(r.opts.ScriptURL) + `"></script>`)
		}
		sb.WriteString("<script type=\"text/javascript\">\n//<![CDATA[\n" + js + "\n//]]>\n</script>")
	}
	sb.WriteString(`</div>`)
	r.out = sb.String()
	return nil
}

func (r *DefaultRenderer) StartContainer(c Container) error {
	r.js = append(r.js, collectJavascript(c)...)
	r.push(false)
	return nil
}

func (r *DefaultRenderer) FinishContainer(c Container) error {
	body := r.pop()
	var sb strings.Builder
	sb.WriteString(`<fieldset`)
	_ = c.Attributes().without("name").write(&sb)
	sb.WriteString(`>`)
	if label := c.Label(); label != "" {
		sb.WriteString(`<legend>` + templ.EscapeString(label) + `</legend>`)
	}
	if errHTML := r.noteError(c); errHTML != "" {
		sb.WriteString(`<div class="error">` + errHTML + `</div>`)
	}
	sb.WriteString(r.detachedHidden())
	sb.WriteString(body.sb.String())
	sb.WriteString(`</fieldset>`)
	r.emit(sb.String())
	return nil
}

func (r *DefaultRenderer) StartGroup(g *Group) error {
	r.js = append(r.js, collectJavascript(g)...)
	r.push(true)
	return nil
}

func (r *DefaultRenderer) FinishGroup(g *Group) error {
	f := r.pop()
	html := r.detachedHidden() + strings.Join(f.parts, g.Separator())
	if tpl, ok := r.templates["group"]; ok {
		var sb strings.Builder
		if err := tpl(&sb, g); err != nil {
			return err
		}
		html = sb.String()
	}
	if r.top().group {
		if msg := g.Error(); msg != "" {
			html = `<span class="error">` + templ.EscapeString(msg) + `</span>` + html
		}
		r.emit(html)
		return nil
	}
	r.emit(r.row(g, `<div class="group" id="`+templ.EscapeString(g.ID())+`">`+html+`</div>`))
	return nil
}
