package hxform

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
)

// EmptyRule passes when the owner has no value. It is mostly used as the
// first alternative of an optional field: empty.Or(otherChecks).
type EmptyRule struct{ baseRule }

func NewEmpty(owner Node, message string) (*EmptyRule, error) {
	r := &EmptyRule{}
	if err := r.initRule(r, owner, message, nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *EmptyRule) validateOwner() bool {
	if f, ok := r.owner.(*InputFile); ok {
		return len(f.Uploads()) == 0
	}
	return countNonEmpty(r.owner.Value()) == 0
}

func (r *EmptyRule) javascriptCallback() string {
	return "function() { return qf.rules.empty(" + r.ownerJS() + "); }"
}

// NonemptyRule passes when the owner has at least Config() non-empty
// values, 1 by default.
type NonemptyRule struct{ baseRule }

func NewNonempty(owner Node, message string, min any) (*NonemptyRule, error) {
	r := &NonemptyRule{}
	if err := r.initRule(r, owner, message, min); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *NonemptyRule) canonicalConfig(config any) (any, error) {
	if config == nil {
		return 1, nil
	}
	n, ok := toInt(config)
	if !ok || n < 1 {
		return nil, fmt.Errorf("%w: nonempty rule accepts a positive count of nonempty values, got %v", ErrInvalidArgument, config)
	}
	return n, nil
}

func (r *NonemptyRule) min() int {
	n, _ := r.config.(int)
	return n
}

func (r *NonemptyRule) validateOwner() bool {
	if f, ok := r.owner.(*InputFile); ok {
		n := 0
		for _, u := range f.Uploads() {
			if u.Error == UploadOK {
				n++
			}
		}
		return n >= r.min()
	}
	return countNonEmpty(r.owner.Value()) >= r.min()
}

func (r *NonemptyRule) javascriptCallback() string {
	return "function() { return qf.rules.nonempty(" + r.ownerJS() + ", " + strconv.Itoa(r.min()) + "); }"
}

// RequiredRule is a Nonempty rule that marks its owner as required. Its
// message is mandatory, and it cannot join another rule's chains or have
// alternatives of its own.
type RequiredRule struct{ NonemptyRule }

func NewRequired(owner Node, message string, min any) (*RequiredRule, error) {
	if message == "" {
		return nil, fmt.Errorf("%w: required rule needs an error message", ErrInvalidArgument)
	}
	r := &RequiredRule{}
	if err := r.initRule(r, owner, message, min); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RequiredRule) SetMessage(message string) {
	if message != "" {
		r.message = message
	}
}

// Or always fails: a required field has no alternatives.
func (r *RequiredRule) Or(...Rule) error {
	return fmt.Errorf("%w: cannot add alternatives to a required rule", ErrInvalidArgument)
}

// RegexRule matches the owner value against a pattern. Patterns may use
// the delimited form "/pattern/flags" with flags i, m, s and u.
type RegexRule struct {
	baseRule
	re     *regexp.Regexp
	jsExpr string
}

func NewRegex(owner Node, message string, pattern any) (*RegexRule, error) {
	r := &RegexRule{}
	if err := r.initRule(r, owner, message, pattern); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RegexRule) canonicalConfig(config any) (any, error) {
	var pattern string
	switch p := config.(type) {
	case string:
		pattern = p
	case *regexp.Regexp:
		pattern = p.String()
	default:
		return nil, fmt.Errorf("%w: regex rule requires a pattern", ErrInvalidArgument)
	}
	if pattern == "" {
		return nil, fmt.Errorf("%w: regex rule requires a pattern", ErrInvalidArgument)
	}
	goExpr, jsExpr, err := translatePattern(pattern)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(goExpr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	r.re = re
	r.jsExpr = jsExpr
	return pattern, nil
}

// translatePattern converts a delimited pattern into Go and JavaScript
// regular expressions.
func translatePattern(pattern string) (goExpr, jsExpr string, err error) {
	end := strings.LastIndexByte(pattern, '/')
	if pattern[0] != '/' || end <= 0 {
		return pattern, "/" + strings.ReplaceAll(pattern, "/", `\/`) + "/", nil
	}
	body, flags := pattern[1:end], pattern[end+1:]
	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			goFlags.WriteRune(f)
		case 'u':
		default:
			return "", "", fmt.Errorf("%w: unsupported regex flag %q", ErrInvalidArgument, f)
		}
	}
	goExpr = body
	if goFlags.Len() > 0 {
		goExpr = "(?" + goFlags.String() + ")" + body
	}
	return goExpr, "/" + body + "/" + flags, nil
}

func (r *RegexRule) validateOwner() bool {
	for _, v := range toStrings(r.owner.Value()) {
		if v != "" && !r.re.MatchString(v) {
			return false
		}
	}
	return true
}

func (r *RegexRule) javascriptCallback() string {
	v := r.ownerJS()
	return "function() { var v = " + v + "; return qf.rules.empty(v) || " + r.jsExpr + ".test(v); }"
}

// EmailRule checks for a bare address such as "user@example.com". Empty
// values pass.
type EmailRule struct{ baseRule }

func NewEmailRule(owner Node, message string) (*EmailRule, error) {
	r := &EmailRule{}
	if err := r.initRule(r, owner, message, nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *EmailRule) validateOwner() bool {
	for _, v := range toStrings(r.owner.Value()) {
		if v == "" {
			continue
		}
		addr, err := mail.ParseAddress(v)
		if err != nil || addr.Name != "" || addr.Address != v {
			return false
		}
	}
	return true
}

func (r *EmailRule) javascriptCallback() string {
	return "function() { return qf.rules.email(" + r.ownerJS() + "); }"
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// NumericRule passes for empty values and decimal numbers. Surrounding
// whitespace is ignored.
type NumericRule struct{ baseRule }

func NewNumeric(owner Node, message string) (*NumericRule, error) {
	r := &NumericRule{}
	if err := r.initRule(r, owner, message, nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *NumericRule) validateOwner() bool {
	v := strings.TrimSpace(toString(r.owner.Value()))
	return v == "" || numericPattern.MatchString(v)
}

// AlphaNumericRule passes when the value consists of ASCII letters and
// digits only. The empty string does not pass.
type AlphaNumericRule struct{ baseRule }

func NewAlphaNumeric(owner Node, message string) (*AlphaNumericRule, error) {
	r := &AlphaNumericRule{}
	if err := r.initRule(r, owner, message, nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *AlphaNumericRule) validateOwner() bool {
	v := toString(r.owner.Value())
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// toInt converts numeric config values, including those decoded from
// YAML, to int.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		if t != float64(int(t)) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}
