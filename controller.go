package hxform

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"
)

const (
	// KeyID is the request parameter carrying the controller id when it is
	// propagated between pages.
	KeyID = "_qfc_id"

	containerKeyFormat = "_%s_container"
	buttonNameFormat   = "_qf_%s_%s"
)

// LayoutFunc wraps the rendered form of a page, e.g. into a full page
// template.
type LayoutFunc func(f *Flow, p *Page, form templ.Component) templ.Component

// Controller drives a multi-page form. Pages are shown one at a time and
// their values kept in a session until the whole form is processed.
//
// A wizard controller only lets users reach a page once every page before
// it is valid, and finishes on the last page. A non-wizard controller
// allows jumping between pages freely.
//
// Pages, handlers and data sources are configured before the controller
// serves requests; per-request state lives in a Flow.
type Controller struct {
	id          string
	wizard      bool
	propagateID bool

	pages     []*Page
	pageIndex map[string]*Page
	handlers  map[string]Action

	datasources  []DataSource
	store        SessionStore
	logger       *zap.Logger
	rendererType string
	layout       LayoutFunc
	requestOpts  []RequestOption

	// OnError is called when running an action fails.
	OnError func(http.ResponseWriter, *http.Request, error)
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithWizard sets whether pages must be completed in order. Controllers
// are wizards by default.
func WithWizard(wizard bool) ControllerOption {
	return func(c *Controller) { c.wizard = wizard }
}

// WithPropagateID adds the controller id to page forms and jump URLs, so
// several instances of the controller can share a session.
func WithPropagateID(propagate bool) ControllerOption {
	return func(c *Controller) { c.propagateID = propagate }
}

func WithStore(store SessionStore) ControllerOption {
	return func(c *Controller) { c.store = store }
}

func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithRendererType selects the registered renderer used by the display
// action. It must produce a templ component; "default" is used otherwise.
// WithRequestOptions sets how page forms read requests, such as the
// multipart memory limit or the largest accepted upload.
func WithRequestOptions(opts ...RequestOption) ControllerOption {
	return func(c *Controller) { c.requestOpts = append(c.requestOpts, opts...) }
}

func WithRendererType(typ string) ControllerOption {
	return func(c *Controller) { c.rendererType = typ }
}

func WithLayout(layout LayoutFunc) ControllerOption {
	return func(c *Controller) { c.layout = layout }
}

// NewController creates a controller. With an empty id, the id is read
// from the KeyID request parameter, and a session for it must exist;
// such controllers always propagate their id.
func NewController(id string, opts ...ControllerOption) *Controller {
	c := &Controller{
		id:           id,
		wizard:       true,
		pageIndex:    make(map[string]*Page),
		handlers:     make(map[string]Action),
		store:        NewMemoryStore(0),
		logger:       zap.NewNop(),
		rendererType: "default",
	}
	for _, opt := range opts {
		opt(c)
	}
	if id == "" {
		c.propagateID = true
	}

	c.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		if IsNotFound(err) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if IsDecryptionError(err) || IsInvalidArgument(err) || errors.Is(err, ErrInvalidFormat) {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
	return c
}

// ID returns the configured id, empty when it is read from requests.
func (c *Controller) ID() string       { return c.id }
func (c *Controller) IsWizard() bool    { return c.wizard }
func (c *Controller) PropagateID() bool { return c.propagateID }

func (c *Controller) Logger() *zap.Logger { return c.logger }

// AddPage appends a page. Page ids must be unique.
func (c *Controller) AddPage(p *Page) error {
	if p == nil {
		return fmt.Errorf("%w: nil page", ErrInvalidArgument)
	}
	if _, exists := c.pageIndex[p.id]; exists {
		return fmt.Errorf("%w: duplicate page id %q", ErrInvalidArgument, p.id)
	}
	if p.controller != nil && p.controller != c {
		return fmt.Errorf("%w: page %q belongs to another controller", ErrInvalidArgument, p.id)
	}
	p.controller = c
	c.pages = append(c.pages, p)
	c.pageIndex[p.id] = p
	return nil
}

// Page returns the page with the given id.
func (c *Controller) Page(id string) (*Page, error) {
	p, ok := c.pageIndex[id]
	if !ok {
		return nil, fmt.Errorf("%w: no page with id %q", ErrNotFound, id)
	}
	return p, nil
}

func (c *Controller) Pages() []*Page {
	out := make([]*Page, len(c.pages))
	copy(out, c.pages)
	return out
}

// AddHandler registers an action for all pages, replacing a builtin one
// with the same name. The "process" action has no builtin and must be
// registered.
func (c *Controller) AddHandler(name string, a Action) {
	c.handlers[name] = a
}

// AddDataSource adds default values used by the forms of all pages.
func (c *Controller) AddDataSource(ds DataSource) error {
	if ds == nil {
		return fmt.Errorf("%w: nil data source", ErrInvalidArgument)
	}
	c.datasources = append(c.datasources, ds)
	return nil
}

// actionPattern matches button names of the controller pages.
func (c *Controller) actionPattern() *regexp.Regexp {
	ids := make([]string, len(c.pages))
	for i, p := range c.pages {
		ids[i] = regexp.QuoteMeta(p.id)
	}
	return regexp.MustCompile(`^_qf_(` + strings.Join(ids, "|") + `)_(.+?)(_x|\.x)?$`)
}

// ServeHTTP runs the controller and reports errors through OnError.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := c.Run(w, r); err != nil {
		c.logger.Debug("controller run failed", zap.Error(err))
		c.OnError(w, r, err)
	}
}

// Run handles one request: the requested action of the requested page is
// performed, and the session saved.
func (c *Controller) Run(w http.ResponseWriter, r *http.Request) error {
	flow, err := c.NewFlow(w, r)
	if err != nil {
		return err
	}
	page, action, err := flow.ActionName()
	if err != nil {
		return err
	}
	p, err := c.Page(page)
	if err != nil {
		return err
	}
	if err := flow.Handle(p, action); err != nil {
		return err
	}
	return flow.Commit()
}

// handle resolves an action not handled by the page itself.
func (c *Controller) handle(f *Flow, p *Page, name string) error {
	if a, ok := c.handlers[name]; ok {
		return a.Perform(f, p, name)
	}
	if a, ok := builtinActions[name]; ok {
		return a.Perform(f, p, name)
	}
	if _, ok := c.pageIndex[name]; ok {
		return DirectAction{}.Perform(f, p, name)
	}
	return fmt.Errorf("%w: unhandled action %q", ErrNotFound, name)
}
