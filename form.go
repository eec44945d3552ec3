package hxform

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// trackPrefix prefixes the hidden element marking a form as submitted.
const trackPrefix = "_qf__"

// Form is the root container of an element tree.
type Form struct {
	container
	datasources []DataSource
	trackSubmit bool
	ids         map[string]bool
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithMethod sets the submit method, "post" by default.
func WithMethod(method string) FormOption {
	return func(f *Form) { f.attrs["method"] = strings.ToLower(method) }
}

// WithAction sets the URL the form submits to. Empty means the current URL.
func WithAction(action string) FormOption {
	return func(f *Form) { f.attrs["action"] = action }
}

// WithFormAttributes merges extra attributes into the <form> tag.
func WithFormAttributes(attrs Attributes) FormOption {
	return func(f *Form) {
		for k, v := range attrs {
			switch strings.ToLower(k) {
			case "id", "name", "method":
			default:
				f.attrs[strings.ToLower(k)] = v
			}
		}
	}
}

// WithoutTracking disables the hidden "_qf__<id>" element. An untracked
// form is considered submitted whenever the request method matches.
func WithoutTracking() FormOption {
	return func(f *Form) { f.trackSubmit = false }
}

// NewForm creates a form with the given id.
func NewForm(id string, opts ...FormOption) *Form {
	f := &Form{trackSubmit: true, ids: make(map[string]bool)}
	f.init(f, "form", id, Attributes{"id": id, "method": "post", "action": ""})
	for _, opt := range opts {
		opt(f)
	}
	if f.trackSubmit {
		track := NewHidden(trackPrefix+id, Attributes{"id": "qf:" + id})
		track.SetValue("")
		_ = f.AppendChild(track)
	}
	return f
}

func (f *Form) Name() string { return f.ID() }

// SetID is ignored: the id of a form is fixed at construction.
func (f *Form) SetID(string) {}

// SetName is ignored: the name of a form is its id.
func (f *Form) SetName(string) {}

func (f *Form) Method() string { return f.attrs["method"] }
func (f *Form) Action() string { return f.attrs["action"] }

// Attributes returns the <form> attributes. Unlike elements, forms carry
// no name attribute.
func (f *Form) Attributes() Attributes { return f.attrs.Clone() }

func (f *Form) DataSources() []DataSource {
	out := make([]DataSource, len(f.datasources))
	copy(out, f.datasources)
	return out
}

// SetDataSources replaces the data sources and reloads element values.
func (f *Form) SetDataSources(sources ...DataSource) error {
	for _, ds := range sources {
		if ds == nil {
			return fmt.Errorf("%w: nil data source", ErrInvalidArgument)
		}
	}
	f.datasources = append([]DataSource(nil), sources...)
	return f.updateValue()
}

// AddDataSource appends a data source and reloads element values.
func (f *Form) AddDataSource(ds DataSource) error {
	if ds == nil {
		return fmt.Errorf("%w: nil data source", ErrInvalidArgument)
	}
	f.datasources = append(f.datasources, ds)
	return f.updateValue()
}

// BindRequest adds the submitted request values as the first data source
// when the request submits this form. Values are read from the query for
// GET forms and from the request body otherwise.
func (f *Form) BindRequest(r *http.Request, opts ...RequestOption) error {
	opts = append([]RequestOption{WithRequestMethod(f.Method())}, opts...)
	ds, err := NewRequestDataSource(r, opts...)
	if err != nil {
		return err
	}
	tracked := false
	if f.trackSubmit {
		tracked = ds.Value(trackPrefix+f.ID()) != nil
	} else {
		tracked = strings.EqualFold(r.Method, f.Method())
	}
	if !tracked {
		return nil
	}
	f.datasources = append([]DataSource{ds}, f.datasources...)
	return f.updateValue()
}

// IsSubmitted reports whether the form has a submit data source.
func (f *Form) IsSubmitted() bool {
	for _, ds := range f.datasources {
		if _, ok := ds.(Submit); ok {
			return true
		}
	}
	return false
}

// Validate validates the whole tree. A form that was not submitted is
// never valid.
func (f *Form) Validate() bool {
	if !f.IsSubmitted() {
		return false
	}
	return f.validate()
}

func (f *Form) RawValue() any {
	values := f.container.RawValue().(map[string]any)
	delete(values, trackPrefix+f.ID())
	return values
}

// Value returns the filtered values of all elements as a nested map.
func (f *Form) Value() any {
	values := make(map[string]any)
	f.collect(values, false)
	delete(values, trackPrefix+f.ID())
	return f.applyFilters(values)
}

// Values is Value with a concrete map type.
func (f *Form) Values() map[string]any {
	if m, ok := f.Value().(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// Errors returns the validation errors keyed by element id.
func (f *Form) Errors() map[string]string {
	out := make(map[string]string)
	if f.err != "" {
		out[f.ID()] = f.err
	}
	_ = f.Walk(func(n Node) error {
		if msg := n.Error(); msg != "" {
			out[n.ID()] = msg
		}
		return nil
	})
	return out
}

func (f *Form) Render(r Renderer) error {
	if err := r.StartForm(f); err != nil {
		return err
	}
	if err := f.renderChildren(r); err != nil {
		return err
	}
	return r.FinishForm(f)
}

// claimID makes an auto-generated id unique within the form.
func (f *Form) claimID(n *node) {
	if !n.autoID {
		f.ids[n.attrs["id"]] = true
		return
	}
	id := n.idBase
	for i := 1; f.ids[id]; i++ {
		id = n.idBase + "-" + strconv.Itoa(i)
	}
	f.ids[id] = true
	n.attrs["id"] = id
}

func (f *Form) releaseID(n *node) {
	delete(f.ids, n.attrs["id"])
}
