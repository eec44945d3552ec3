package hxform

import (
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
)

// UploadError classifies an uploaded file. The numeric values match the
// upload error codes used by PHP, which the message ids are keyed on.
type UploadError int

const (
	UploadOK        UploadError = 0
	UploadIniSize   UploadError = 1
	UploadFormSize  UploadError = 2
	UploadPartial   UploadError = 3
	UploadNoFile    UploadError = 4
	UploadNoTmpDir  UploadError = 6
	UploadCantWrite UploadError = 7
	UploadExtension UploadError = 8
)

// Upload describes one uploaded file.
type Upload struct {
	Name   string
	Type   string
	Size   int64
	Error  UploadError
	Header *multipart.FileHeader
}

// Open opens the uploaded content.
func (u *Upload) Open() (multipart.File, error) {
	if u.Header == nil {
		return nil, fmt.Errorf("%w: upload %q has no content", ErrNotFound, u.Name)
	}
	return u.Header.Open()
}

// InputFile is an <input type="file"> element. Its value comes from the
// uploads of submit data sources: a single *Upload, or []*Upload when the
// name ends in "[]".
type InputFile struct {
	node
	value    any
	provider MessageProvider
	language string
}

func NewInputFile(name string, attrs Attributes) *InputFile {
	f := &InputFile{provider: DefaultMessages, language: "en"}
	f.init(f, "file", name, attrs)
	f.attrs["type"] = "file"
	return f
}

// SetMessageProvider replaces the provider of upload error messages.
func (f *InputFile) SetMessageProvider(p MessageProvider) error {
	if p == nil {
		return fmt.Errorf("%w: nil message provider", ErrInvalidArgument)
	}
	f.provider = p
	return nil
}

// SetLanguage selects the language of upload error messages.
func (f *InputFile) SetLanguage(lang string) { f.language = lang }

func (f *InputFile) RawValue() any {
	if f.isDisabled() {
		return nil
	}
	return f.value
}

// SetValue is ignored: file inputs only take values from uploads.
func (f *InputFile) SetValue(any) {}

func (f *InputFile) ToggleFrozen(bool) bool { return false }

func (f *InputFile) AddFilter(Filter) error {
	return fmt.Errorf("%w: file inputs do not support filters", ErrUnsupported)
}

func (f *InputFile) AddRecursiveFilter(Filter) error {
	return fmt.Errorf("%w: file inputs do not support filters", ErrUnsupported)
}

// Uploads returns the attempted uploads, leaving out empty file fields.
func (f *InputFile) Uploads() []*Upload {
	var out []*Upload
	switch v := f.value.(type) {
	case *Upload:
		if v.Error != UploadNoFile {
			out = append(out, v)
		}
	case []*Upload:
		for _, u := range v {
			if u.Error != UploadNoFile {
				out = append(out, u)
			}
		}
	}
	return out
}

func (f *InputFile) updateValue() error {
	f.value = nil
	name := f.Name()
	if name == "" {
		return nil
	}
	for _, ds := range f.DataSources() {
		s, ok := ds.(Submit)
		if !ok {
			continue
		}
		uploads := s.Upload(name)
		if len(uploads) == 0 {
			continue
		}
		if strings.HasSuffix(name, "[]") {
			f.value = uploads
		} else {
			f.value = uploads[0]
		}
		return nil
	}
	return nil
}

// validate reports upload errors before running the attached rules.
func (f *InputFile) validate() bool {
	if f.err != "" {
		return false
	}
	for _, u := range f.Uploads() {
		if u.Error == UploadOK {
			continue
		}
		f.err = f.uploadMessage(u.Error)
		return false
	}
	return f.node.validate()
}

func (f *InputFile) uploadMessage(code UploadError) string {
	msg := f.provider.Message([]string{"file", strconv.Itoa(int(code))}, f.language)
	if msg == "" {
		msg = fmt.Sprintf("Upload failed with error code %d", int(code))
	}
	if !strings.Contains(msg, "%d") {
		return msg
	}
	var limit int64
	switch code {
	case UploadFormSize:
		limit = f.formSizeLimit()
	case UploadIniSize:
		limit = f.serverSizeLimit()
	}
	return strings.ReplaceAll(msg, "%d", strconv.FormatInt(limit, 10))
}

// formSizeLimit reads the MAX_FILE_SIZE field of the first submit source.
func (f *InputFile) formSizeLimit() int64 {
	for _, ds := range f.DataSources() {
		if _, ok := ds.(Submit); ok {
			n, _ := strconv.ParseInt(toString(ds.Value("MAX_FILE_SIZE")), 10, 64)
			return n
		}
	}
	return 0
}

func (f *InputFile) serverSizeLimit() int64 {
	for _, ds := range f.DataSources() {
		if l, ok := ds.(interface{ MaxUploadSize() int64 }); ok {
			return l.MaxUploadSize()
		}
	}
	return 0
}

// checkForm enforces multipart encoding on the enclosing form.
func (f *InputFile) checkForm(form *Form) error {
	if form == nil {
		return nil
	}
	if strings.EqualFold(form.Method(), "get") {
		return fmt.Errorf("%w: file upload elements can only be added to forms with post submit method", ErrInvalidArgument)
	}
	form.attrs["enctype"] = "multipart/form-data"
	return nil
}

func (f *InputFile) HTML() string {
	return "<input" + f.Attributes().String() + " />"
}
