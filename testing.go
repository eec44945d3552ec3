package hxform

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
)

// TestResult holds the response of a handler under test.
//
// Provides convenience methods for asserting on HTML content, headers,
// status codes, cookies and redirects.
type TestResult struct {
	HTML        string
	StatusCode  int
	Headers     http.Header
	RedirectURL string
	Cookies     []*http.Cookie
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HTMLContainsAny checks if the HTML contains any of the given substrings.
func (r *TestResult) HTMLContainsAny(substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(r.HTML, s) {
			return true
		}
	}
	return false
}

// WasRedirected checks if the response was a redirect, either a 3xx with
// Location or an HX-Redirect header.
func (r *TestResult) WasRedirected() bool {
	return r.RedirectURL != ""
}

// RedirectedTo checks if the response was redirected to a specific URL.
func (r *TestResult) RedirectedTo(target string) bool {
	return r.RedirectURL == target
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// GetHeader returns the value of a header.
func (r *TestResult) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// Cookie returns the last cookie set with name, nil if none.
func (r *TestResult) Cookie(name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range r.Cookies {
		if c.Name == name {
			found = c
		}
	}
	return found
}

type testFile struct {
	field, filename, contentType string
	content                      []byte
}

// TestRequestBuilder provides a fluent interface for building form
// submissions:
//
//	result, err := hxform.NewTestRequest("POST", "/signup").
//	    WithFormData("_qf__signup", "").
//	    WithFormData("email", "ada@example.com").
//	    WithFile("avatar", "me.png", "image/png", png).
//	    Execute(handler)
type TestRequestBuilder struct {
	method   string
	url      string
	formData url.Values
	files    []testFile
	headers  map[string]string
	cookies  []*http.Cookie
	ctx      context.Context
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, target string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:   method,
		url:      target,
		formData: url.Values{},
		headers:  make(map[string]string),
		ctx:      context.Background(),
	}
}

// WithFormData adds a form value. Repeated keys are sent repeatedly, as
// for "name[]" fields.
func (b *TestRequestBuilder) WithFormData(key, value string) *TestRequestBuilder {
	b.formData.Add(key, value)
	return b
}

// WithFormValues adds multiple form values to the request.
func (b *TestRequestBuilder) WithFormValues(data map[string]string) *TestRequestBuilder {
	for k, v := range data {
		b.formData.Add(k, v)
	}
	return b
}

// WithFile attaches an upload, turning the body into multipart/form-data.
// An empty filename simulates a file field left empty.
func (b *TestRequestBuilder) WithFile(field, filename, contentType string, content []byte) *TestRequestBuilder {
	b.files = append(b.files, testFile{field: field, filename: filename, contentType: contentType, content: content})
	return b
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// AsHTMX marks the request as sent by htmx.
func (b *TestRequestBuilder) AsHTMX() *TestRequestBuilder {
	return b.WithHeader("HX-Request", "true")
}

// WithCookies adds cookies, typically from a previous TestResult.
func (b *TestRequestBuilder) WithCookies(cookies ...*http.Cookie) *TestRequestBuilder {
	b.cookies = append(b.cookies, cookies...)
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// Build returns the request. GET requests carry form data in the query.
func (b *TestRequestBuilder) Build() (*http.Request, error) {
	target := b.url
	var body bytes.Buffer
	contentType := ""

	switch {
	case b.method == http.MethodGet || b.method == http.MethodHead:
		if len(b.formData) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + b.formData.Encode()
		}
	case len(b.files) > 0:
		mw := multipart.NewWriter(&body)
		for _, key := range sortedKeys(b.formData) {
			for _, v := range b.formData[key] {
				if err := mw.WriteField(key, v); err != nil {
					return nil, err
				}
			}
		}
		for _, f := range b.files {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
			if f.contentType != "" {
				h.Set("Content-Type", f.contentType)
			}
			part, err := mw.CreatePart(h)
			if err != nil {
				return nil, err
			}
			if _, err := part.Write(f.content); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		contentType = mw.FormDataContentType()
	case len(b.formData) > 0:
		body.WriteString(b.formData.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req := httptest.NewRequest(b.method, target, &body)
	req = req.WithContext(b.ctx)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	return req, nil
}

// Execute sends the request to h and records the response.
func (b *TestRequestBuilder) Execute(h http.Handler) (*TestResult, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := rec.Result()
	defer res.Body.Close()
	result := &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
		Cookies:    res.Cookies(),
	}
	if redirect := rec.Header().Get("HX-Redirect"); redirect != "" {
		result.RedirectURL = redirect
	} else if rec.Code >= 300 && rec.Code < 400 {
		result.RedirectURL = rec.Header().Get("Location")
	}
	return result, nil
}

// TestClient sends requests to a handler and keeps the cookies between
// them, so multi-page controllers can be walked through.
type TestClient struct {
	Handler http.Handler
	cookies map[string]*http.Cookie
}

func NewTestClient(h http.Handler) *TestClient {
	return &TestClient{Handler: h, cookies: make(map[string]*http.Cookie)}
}

// Do executes b with the client cookies and stores the cookies set by the
// response. Expired cookies are forgotten.
func (c *TestClient) Do(b *TestRequestBuilder) (*TestResult, error) {
	for _, name := range sortedKeys(c.cookies) {
		b.WithCookies(c.cookies[name])
	}
	result, err := b.Execute(c.Handler)
	if err != nil {
		return nil, err
	}
	for _, ck := range result.Cookies {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = &http.Cookie{Name: ck.Name, Value: ck.Value}
	}
	return result, nil
}

// Follow requests the redirect target of result with GET.
func (c *TestClient) Follow(result *TestResult) (*TestResult, error) {
	if !result.WasRedirected() {
		return nil, fmt.Errorf("%w: response is not a redirect", ErrInvalidArgument)
	}
	return c.Do(NewTestRequest(http.MethodGet, result.RedirectURL))
}
