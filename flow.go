package hxform

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"
)

// Flow is the state of a controller for a single request: the session
// container and the page forms built so far. It must not be shared
// between requests.
type Flow struct {
	ctrl      *Controller
	w         http.ResponseWriter
	r         *http.Request
	id        string
	logger    *zap.Logger
	session   Session
	container *SessionContainer
	dirty     bool
	destroyed bool

	forms      map[string]*Form
	pageAction string
	action     string
}

// NewFlow opens the session of r and loads the controller container.
func (c *Controller) NewFlow(w http.ResponseWriter, r *http.Request) (*Flow, error) {
	if err := parseRequest(r, c.requestOpts); err != nil {
		return nil, err
	}
	f := &Flow{
		ctrl:   c,
		w:      w,
		r:      r,
		id:     c.id,
		logger: c.logger,
		forms:  make(map[string]*Form),
	}
	session, err := c.store.Open(w, r)
	if err != nil {
		f.logger.Warn("session open failed", zap.Error(err))
		return nil, err
	}
	f.session = session

	explicit := f.id != ""
	if !explicit {
		f.id = r.Form.Get(KeyID)
		if f.id == "" {
			return nil, fmt.Errorf("%w: controller id not explicitly given and not found in request", ErrNotFound)
		}
	}
	f.logger = f.logger.With(zap.String("controller", f.id))

	container, ok, err := session.Get(f.containerKey())
	if err != nil {
		f.logger.Warn("session load failed", zap.Error(err))
		if explicit && IsDecryptionError(err) {
			ok = false
		} else {
			return nil, err
		}
	}
	if !ok {
		if !explicit {
			return nil, fmt.Errorf("%w: no session container for controller %q", ErrNotFound, f.id)
		}
		container = newSessionContainer()
		f.dirty = true
	}
	f.container = container
	return f, nil
}

// parseRequest parses query and body values into r.Form.
func parseRequest(r *http.Request, opts []RequestOption) error {
	if r.Form != nil {
		return nil
	}
	err := r.ParseMultipartForm(newRequestConfig(r, opts).maxMemory)
	if err == http.ErrNotMultipart {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("%w: parse request: %v", ErrInvalidArgument, err)
	}
	return nil
}

func (f *Flow) containerKey() string { return fmt.Sprintf(containerKeyFormat, f.id) }

// ID returns the controller id, explicit or found in the request.
func (f *Flow) ID() string                          { return f.id }
func (f *Flow) Controller() *Controller             { return f.ctrl }
func (f *Flow) Request() *http.Request              { return f.r }
func (f *Flow) ResponseWriter() http.ResponseWriter { return f.w }
func (f *Flow) Logger() *zap.Logger                 { return f.logger }

// Container returns the session container. Call MarkDirty after changing
// it directly.
func (f *Flow) Container() *SessionContainer { return f.container }

func (f *Flow) MarkDirty() { f.dirty = true }

// ActionName returns the page and action requested, from the names of
// submitted buttons. Without one, the first page is displayed.
func (f *Flow) ActionName() (page, action string, err error) {
	if f.pageAction != "" {
		return f.pageAction, f.action, nil
	}
	if len(f.ctrl.pages) == 0 {
		return "", "", fmt.Errorf("%w: no pages added to the controller", ErrNotFound)
	}
	re := f.ctrl.actionPattern()
	keys := make([]string, 0, len(f.r.Form))
	for key := range f.r.Form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if name := TriggerName(f.r); name != "" {
		keys = append(keys, name)
	}
	for _, key := range keys {
		if strings.HasSuffix(key, ".y") || strings.HasSuffix(key, "_y") {
			continue
		}
		if m := re.FindStringSubmatch(key); m != nil {
			f.pageAction, f.action = m[1], m[2]
			return f.pageAction, f.action, nil
		}
	}
	f.pageAction, f.action = f.ctrl.pages[0].id, "display"
	return f.pageAction, f.action, nil
}

// Handle performs action on page p.
func (f *Flow) Handle(p *Page, action string) error {
	return p.handle(f, action)
}

// Form returns the form of page p, building it on first use. The form
// reads submitted values when this request submitted it.
func (f *Flow) Form(p *Page) (*Form, error) {
	if form, ok := f.forms[p.id]; ok {
		return form, nil
	}
	form := NewForm(p.id, p.formOpts...)
	if err := form.SetDataSources(f.defaultSources()...); err != nil {
		return nil, err
	}
	if err := form.BindRequest(f.r, f.ctrl.requestOpts...); err != nil {
		return nil, err
	}
	if p.defaultAction != "" {
		if err := form.AppendChild(p.defaultButton()); err != nil {
			return nil, err
		}
	}
	if p.build != nil {
		if err := p.build(f, form); err != nil {
			return nil, fmt.Errorf("build page %q: %w", p.id, err)
		}
	}
	if f.ctrl.propagateID {
		hidden := NewHidden(KeyID, Attributes{"id": KeyID + "-" + p.id})
		if err := form.AppendChild(hidden); err != nil {
			return nil, err
		}
		hidden.SetValue(f.id)
	}
	f.forms[p.id] = form
	return form, nil
}

// defaultSources returns the data sources every page form starts with.
func (f *Flow) defaultSources() []DataSource {
	var out []DataSource
	if len(f.container.Defaults) > 0 {
		out = append(out, NewArrayDataSource(f.container.Defaults))
	}
	return append(out, f.ctrl.datasources...)
}

// AddDefaults merges default values for all pages into the session.
func (f *Flow) AddDefaults(values map[string]any) {
	if f.container.Defaults == nil {
		f.container.Defaults = make(map[string]any)
	}
	mergeValues(f.container.Defaults, values)
	f.dirty = true
}

// StoreValues saves the current values of page p in the session and,
// with validate set, its validation status. It returns the stored status.
func (f *Flow) StoreValues(p *Page, validate bool) (bool, error) {
	form, err := f.Form(p)
	if err != nil {
		return false, err
	}
	f.container.StoreValues(p.id, form.Values())
	if validate {
		f.container.StoreValidationStatus(p.id, form.Validate())
	}
	f.dirty = true
	valid, _ := f.container.ValidationStatus(p.id)
	return valid, nil
}

// IsValid reports whether all pages before reference are valid, or all
// pages when reference is nil.
//
// In a non-wizard controller a page the user never saw is validated with
// its default values.
func (f *Flow) IsValid(reference *Page) (bool, error) {
	for _, p := range f.ctrl.pages {
		if p == reference {
			return true, nil
		}
		valid, seen := f.container.ValidationStatus(p.id)
		if valid {
			continue
		}
		if !f.ctrl.wizard && !seen {
			form, err := f.Form(p)
			if err != nil {
				return false, err
			}
			sources := append(f.defaultSources(), NewSessionDataSource(map[string]any{}))
			if err := form.SetDataSources(sources...); err != nil {
				return false, err
			}
			ok, err := f.StoreValues(p, true)
			if err != nil {
				return false, err
			}
			if ok {
				continue
			}
		}
		return false, nil
	}
	return true, nil
}

// FirstInvalidPage returns the first page not known to be valid, nil if
// all are valid.
func (f *Flow) FirstInvalidPage() *Page {
	for _, p := range f.ctrl.pages {
		if valid, _ := f.container.ValidationStatus(p.id); !valid {
			return p
		}
	}
	return nil
}

// NextPage returns the page after p, nil for the last page.
func (f *Flow) NextPage(p *Page) *Page {
	for i, cur := range f.ctrl.pages {
		if cur == p && i+1 < len(f.ctrl.pages) {
			return f.ctrl.pages[i+1]
		}
	}
	return nil
}

// PreviousPage returns the page before p, nil for the first page.
func (f *Flow) PreviousPage(p *Page) *Page {
	for i, cur := range f.ctrl.pages {
		if cur == p && i > 0 {
			return f.ctrl.pages[i-1]
		}
	}
	return nil
}

// Values returns the stored values of all pages merged together. Values
// of buttons and other controller elements are left out.
func (f *Flow) Values() map[string]any {
	out := make(map[string]any)
	for _, p := range f.ctrl.pages {
		for key, v := range f.container.PageValues(p.id) {
			if strings.HasPrefix(key, "_qf") {
				continue
			}
			existing, ok := out[key].(map[string]any)
			incoming, isMap := v.(map[string]any)
			if ok && isMap {
				mergeValues(existing, incoming)
				continue
			}
			out[key] = cloneValue(v)
		}
	}
	return out
}

// JumpURL returns the URL displaying page p.
func (f *Flow) JumpURL(p *Page) string {
	form, err := f.Form(p)
	action := ""
	if err == nil {
		action = form.Action()
	}
	if action == "" {
		action = f.r.URL.Path
	}
	q := url.Values{}
	q.Set(p.ButtonName("display"), "true")
	if f.ctrl.propagateID {
		q.Set(KeyID, f.id)
	}
	sep := "?"
	if strings.Contains(action, "?") {
		sep = "&"
	}
	return action + sep + q.Encode()
}

// Redirect saves the session and sends the client to target: a 303 for
// regular requests, an HX-Redirect header for htmx requests.
func (f *Flow) Redirect(target string) error {
	if err := f.Commit(); err != nil {
		return err
	}
	f.logger.Debug("redirecting", zap.String("url", target))
	if IsHTMX(f.r) {
		f.w.Header().Set("HX-Redirect", target)
		f.w.WriteHeader(http.StatusOK)
		return nil
	}
	http.Redirect(f.w, f.r, target, http.StatusSeeOther)
	return nil
}

// Render saves the session and writes the page form as HTML.
func (f *Flow) Render(p *Page, form *Form) error {
	r, err := NewRenderer(f.ctrl.rendererType)
	if err != nil {
		return err
	}
	cr, ok := r.(interface{ Component() templ.Component })
	if !ok {
		return fmt.Errorf("%w: renderer %q does not produce HTML", ErrUnsupported, f.ctrl.rendererType)
	}
	if err := form.Render(r); err != nil {
		return err
	}
	comp := cr.Component()
	if f.ctrl.layout != nil {
		comp = f.ctrl.layout(f, p, comp)
	}
	if err := f.Commit(); err != nil {
		return err
	}
	return Render(f.w, f.r, comp)
}

// Commit saves the session container if it changed.
func (f *Flow) Commit() error {
	if f.destroyed || !f.dirty {
		return nil
	}
	if err := f.session.Put(f.containerKey(), f.container); err != nil {
		f.logger.Warn("session save failed", zap.Error(err))
		return err
	}
	f.dirty = false
	return nil
}

// DestroySession removes the controller container from the session.
// Process handlers usually call it once the values are used.
func (f *Flow) DestroySession() error {
	f.destroyed = true
	f.container = newSessionContainer()
	if err := f.session.Delete(f.containerKey()); err != nil {
		f.logger.Warn("session delete failed", zap.Error(err))
		return err
	}
	return nil
}
