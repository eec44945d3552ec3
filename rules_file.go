package hxform

import (
	"fmt"
	"mime"
	"slices"
	"strings"
)

func checkFileOwner(kind string, owner Node) error {
	if _, ok := owner.(*InputFile); !ok {
		return fmt.Errorf("%w: %s rule can only validate file upload fields, %s given", ErrInvalidArgument, kind, owner.Type())
	}
	return nil
}

// MaxFileSizeRule limits the size in bytes of every successful upload.
type MaxFileSizeRule struct{ baseRule }

func NewMaxFileSize(owner Node, message string, size any) (*MaxFileSizeRule, error) {
	r := &MaxFileSizeRule{}
	if err := r.initRule(r, owner, message, size); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MaxFileSizeRule) checkOwner(owner Node) error {
	return checkFileOwner("maxfilesize", owner)
}

func (r *MaxFileSizeRule) canonicalConfig(config any) (any, error) {
	n, ok := toInt(config)
	if !ok || n <= 0 {
		return nil, fmt.Errorf("%w: maxfilesize rule requires a positive size limit, %v given", ErrInvalidArgument, config)
	}
	return int64(n), nil
}

func (r *MaxFileSizeRule) validateOwner() bool {
	limit, _ := r.config.(int64)
	for _, u := range r.owner.(*InputFile).Uploads() {
		if u.Error == UploadOK && u.Size > limit {
			return false
		}
	}
	return true
}

// MimeTypeRule restricts the declared content type of every successful
// upload to a list of types.
type MimeTypeRule struct{ baseRule }

func NewMimeType(owner Node, message string, types any) (*MimeTypeRule, error) {
	r := &MimeTypeRule{}
	if err := r.initRule(r, owner, message, types); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MimeTypeRule) checkOwner(owner Node) error {
	return checkFileOwner("mimetype", owner)
}

func (r *MimeTypeRule) canonicalConfig(config any) (any, error) {
	types := toStrings(config)
	if len(types) == 0 || slices.Contains(types, "") {
		return nil, fmt.Errorf("%w: mimetype rule requires a list of allowed mime types", ErrInvalidArgument)
	}
	for i, t := range types {
		types[i] = strings.ToLower(t)
	}
	return types, nil
}

func (r *MimeTypeRule) validateOwner() bool {
	allowed, _ := r.config.([]string)
	for _, u := range r.owner.(*InputFile).Uploads() {
		if u.Error != UploadOK {
			continue
		}
		mediaType, _, err := mime.ParseMediaType(u.Type)
		if err != nil || !slices.Contains(allowed, mediaType) {
			return false
		}
	}
	return true
}
