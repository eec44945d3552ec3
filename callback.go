package hxform

import (
	"fmt"
	"strings"
)

// CallbackFunc checks a value, receiving the extra arguments configured on
// the rule.
type CallbackFunc func(value any, args ...any) bool

// CallbackConfig configures a CallbackRule.
type CallbackConfig struct {
	Callback  CallbackFunc
	Arguments []any
	// JSCallback names a JavaScript function with the same signature,
	// enabling client-side validation.
	JSCallback string
}

// CallbackRule passes when its callback returns true.
type CallbackRule struct {
	baseRule
	negate bool
}

// NewCallback creates a callback rule. config is a CallbackConfig, a
// CallbackFunc or a func(any) bool.
func NewCallback(owner Node, message string, config any) (*CallbackRule, error) {
	r := &CallbackRule{}
	if err := r.initRule(r, owner, message, config); err != nil {
		return nil, err
	}
	return r, nil
}

// NewNotCallback creates a callback rule that passes when the callback
// returns false.
func NewNotCallback(owner Node, message string, config any) (*CallbackRule, error) {
	r := &CallbackRule{negate: true}
	if err := r.initRule(r, owner, message, config); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CallbackRule) canonicalConfig(config any) (any, error) {
	cfg, ok := toCallbackConfig(config)
	if !ok || cfg.Callback == nil {
		return nil, fmt.Errorf("%w: callback rule requires a valid callback, got %T", ErrInvalidArgument, config)
	}
	return cfg, nil
}

func toCallbackConfig(config any) (CallbackConfig, bool) {
	switch c := config.(type) {
	case CallbackConfig:
		return c, true
	case *CallbackConfig:
		if c == nil {
			return CallbackConfig{}, false
		}
		return *c, true
	case CallbackFunc:
		return CallbackConfig{Callback: c}, true
	case func(value any, args ...any) bool:
		return CallbackConfig{Callback: c}, true
	case func(value any) bool:
		return CallbackConfig{Callback: func(v any, _ ...any) bool { return c(v) }}, true
	}
	return CallbackConfig{}, false
}

// mergeCallbackConfig keeps a registered callback and takes the arguments
// from the local config.
func mergeCallbackConfig(local, global any) (any, error) {
	if global == nil {
		return local, nil
	}
	g, ok := toCallbackConfig(global)
	if !ok {
		return global, nil
	}
	switch l := local.(type) {
	case nil:
	case []any:
		g.Arguments = l
	default:
		if lc, ok := toCallbackConfig(local); ok {
			if lc.Callback != nil {
				return lc, nil
			}
			g.Arguments = lc.Arguments
		} else {
			g.Arguments = []any{local}
		}
	}
	return g, nil
}

func (r *CallbackRule) callback() CallbackConfig {
	cfg, _ := r.config.(CallbackConfig)
	return cfg
}

func (r *CallbackRule) validateOwner() bool {
	cfg := r.callback()
	ok := cfg.Callback(r.owner.Value(), cfg.Arguments...)
	return ok != r.negate
}

func (r *CallbackRule) javascriptCallback() string {
	cfg := r.callback()
	if cfg.JSCallback == "" {
		return ""
	}
	args := []string{r.ownerJS()}
	for _, a := range cfg.Arguments {
		args = append(args, jsValue(a))
	}
	call := cfg.JSCallback + "(" + strings.Join(args, ", ") + ")"
	if r.negate {
		call = "!" + call
	}
	return "function() { return " + call + "; }"
}
