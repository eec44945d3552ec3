package hxform

// ArrayDataSource serves values from a nested map. It is the usual source
// of defaults.
type ArrayDataSource struct {
	values map[string]any
}

func NewArrayDataSource(values map[string]any) *ArrayDataSource {
	if values == nil {
		values = make(map[string]any)
	}
	return &ArrayDataSource{values: values}
}

func (ds *ArrayDataSource) Value(name string) any {
	v, _ := lookupName(ds.values, name)
	return v
}

// Values returns the underlying map.
func (ds *ArrayDataSource) Values() map[string]any { return ds.values }

// SetValues replaces the underlying map.
func (ds *ArrayDataSource) SetValues(values map[string]any) {
	if values == nil {
		values = make(map[string]any)
	}
	ds.values = values
}

// SessionDataSource serves values stored by a multi-page controller. It
// counts as submitted so stored pages revalidate, and it can hold explicit
// nil values.
type SessionDataSource struct {
	ArrayDataSource
}

func NewSessionDataSource(values map[string]any) *SessionDataSource {
	return &SessionDataSource{ArrayDataSource: *NewArrayDataSource(values)}
}

func (ds *SessionDataSource) HasValue(name string) bool {
	_, ok := lookupName(ds.values, name)
	return ok
}

// Upload always returns nil: uploads are not kept between requests.
func (ds *SessionDataSource) Upload(string) []*Upload { return nil }

var (
	_ DataSource = (*ArrayDataSource)(nil)
	_ Submit     = (*SessionDataSource)(nil)
	_ NullAware  = (*SessionDataSource)(nil)
)
