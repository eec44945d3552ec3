package hxform

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMaxMemory is the part of a multipart body kept in memory; larger
// uploads are spooled to temporary files.
const DefaultMaxMemory = 32 << 20

type requestConfig struct {
	method    string
	maxMemory int64
	maxUpload int64
}

// RequestOption configures a RequestDataSource.
type RequestOption func(*requestConfig)

// WithRequestMethod selects where values are read from: the query string
// for "get", the body otherwise. It defaults to the request method.
func WithRequestMethod(method string) RequestOption {
	return func(c *requestConfig) { c.method = method }
}

// WithMaxMemory overrides DefaultMaxMemory.
func WithMaxMemory(n int64) RequestOption {
	return func(c *requestConfig) { c.maxMemory = n }
}

// WithMaxUploadSize marks uploads larger than n bytes with UploadIniSize.
func WithMaxUploadSize(n int64) RequestOption {
	return func(c *requestConfig) { c.maxUpload = n }
}

// RequestDataSource serves the values and uploads of an HTTP request.
// Bracketed keys are expanded into nested maps; keys ending in "[]" hold
// lists.
type RequestDataSource struct {
	values    map[string]any
	files     map[string][]*Upload
	maxUpload int64
}

func newRequestConfig(r *http.Request, opts []RequestOption) requestConfig {
	cfg := requestConfig{method: r.Method, maxMemory: DefaultMaxMemory}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func NewRequestDataSource(r *http.Request, opts ...RequestOption) (*RequestDataSource, error) {
	cfg := newRequestConfig(r, opts)
	ds := &RequestDataSource{
		files:     make(map[string][]*Upload),
		maxUpload: cfg.maxUpload,
	}
	if strings.EqualFold(cfg.method, http.MethodGet) {
		ds.values = parseValues(r.URL.Query())
		return ds, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(cfg.maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("%w: parse multipart form: %v", ErrInvalidArgument, err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: parse form: %v", ErrInvalidArgument, err)
	}
	ds.values = parseValues(r.PostForm)
	if r.MultipartForm != nil {
		ds.loadFiles(r)
	}
	return ds, nil
}

func (ds *RequestDataSource) loadFiles(r *http.Request) {
	formLimit, _ := strconv.ParseInt(toString(ds.Value("MAX_FILE_SIZE")), 10, 64)
	for _, key := range sortedKeys(r.MultipartForm.File) {
		base := trimArraySuffix(key)
		for _, fh := range r.MultipartForm.File[key] {
			u := &Upload{
				Name:   fh.Filename,
				Type:   fh.Header.Get("Content-Type"),
				Size:   fh.Size,
				Header: fh,
			}
			switch {
			case ds.maxUpload > 0 && fh.Size > ds.maxUpload:
				u.Error = UploadIniSize
			case formLimit > 0 && fh.Size > formLimit:
				u.Error = UploadFormSize
			}
			ds.files[base] = append(ds.files[base], u)
		}
	}
}

// parseValues converts url.Values into nested values. A repeated plain key
// keeps its last value.
func parseValues(src url.Values) map[string]any {
	values := make(map[string]any)
	for _, key := range sortedKeys(src) {
		vs := src[key]
		if len(vs) == 0 {
			continue
		}
		tokens := splitName(key)
		if len(tokens) > 1 && tokens[len(tokens)-1] == "" {
			assignPath(values, tokens, vs)
			continue
		}
		assignPath(values, tokens, vs[len(vs)-1])
	}
	return values
}

func (ds *RequestDataSource) Value(name string) any {
	v, _ := lookupName(ds.values, name)
	return v
}

// Values returns the parsed request values.
func (ds *RequestDataSource) Values() map[string]any { return ds.values }

// Upload returns the uploads for a file element. "docs[]" matches files
// posted as "docs[]" as well as "docs[0]", "docs[1]", ...
func (ds *RequestDataSource) Upload(name string) []*Upload {
	key := trimArraySuffix(name)
	if u, ok := ds.files[key]; ok {
		return u
	}
	if !strings.HasSuffix(name, "[]") {
		return nil
	}
	var out []*Upload
	for _, k := range sortedKeys(ds.files) {
		if strings.HasPrefix(k, key+"[") && !strings.Contains(k[len(key)+1:], "[") {
			out = append(out, ds.files[k]...)
		}
	}
	return out
}

// MaxUploadSize returns the configured upload limit, 0 if unlimited.
func (ds *RequestDataSource) MaxUploadSize() int64 { return ds.maxUpload }

var _ Submit = (*RequestDataSource)(nil)
