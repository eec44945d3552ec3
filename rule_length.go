package hxform

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// LengthConfig limits a value length to [Min, Max]. A zero Max means no
// upper limit.
type LengthConfig struct {
	Min int
	Max int
}

// LengthRule checks the length of the owner value in characters. Its
// config is either an exact length (int) or a LengthConfig. Empty values
// pass.
type LengthRule struct{ baseRule }

// NewLength creates a length rule. config is an int for an exact length,
// or a LengthConfig, a map with "min"/"max" keys, or a two-element list.
func NewLength(owner Node, message string, config any) (*LengthRule, error) {
	r := &LengthRule{}
	if err := r.initRule(r, owner, message, config); err != nil {
		return nil, err
	}
	return r, nil
}

type lengthLimits struct {
	min, max       int
	hasMin, hasMax bool
}

// parseLength splits config into an exact length or partial limits.
func parseLength(config any) (exact int, isExact bool, limits lengthLimits, err error) {
	switch c := config.(type) {
	case LengthConfig:
		return 0, false, lengthLimits{min: c.Min, max: c.Max, hasMin: true, hasMax: true}, nil
	case *LengthConfig:
		return 0, false, lengthLimits{min: c.Min, max: c.Max, hasMin: true, hasMax: true}, nil
	case map[string]any:
		for key, v := range c {
			n, ok := toInt(v)
			if !ok {
				return 0, false, limits, fmt.Errorf("%w: length rule limit %q must be a number", ErrInvalidArgument, key)
			}
			switch key {
			case "min":
				limits.min, limits.hasMin = n, true
			case "max":
				limits.max, limits.hasMax = n, true
			}
		}
		return 0, false, limits, nil
	case map[string]int:
		generic := make(map[string]any, len(c))
		for k, v := range c {
			generic[k] = v
		}
		return parseLength(generic)
	case []any:
		for i, v := range c {
			n, ok := toInt(v)
			if !ok {
				return 0, false, limits, fmt.Errorf("%w: length rule limits must be numbers", ErrInvalidArgument)
			}
			switch i {
			case 0:
				limits.min, limits.hasMin = n, true
			case 1:
				limits.max, limits.hasMax = n, true
			}
		}
		return 0, false, limits, nil
	case []int:
		items := make([]any, len(c))
		for i, v := range c {
			items[i] = v
		}
		return parseLength(items)
	case nil:
		return 0, false, limits, nil
	}
	n, ok := toInt(config)
	if !ok {
		return 0, false, limits, fmt.Errorf("%w: length rule requires a length or limits, got %T", ErrInvalidArgument, config)
	}
	return n, true, limits, nil
}

func (r *LengthRule) canonicalConfig(config any) (any, error) {
	exact, isExact, l, err := parseLength(config)
	if err != nil {
		return nil, err
	}
	if isExact {
		if exact <= 0 {
			return nil, fmt.Errorf("%w: length rule requires a positive length", ErrInvalidArgument)
		}
		return exact, nil
	}
	if !l.hasMin && !l.hasMax {
		return nil, fmt.Errorf("%w: length rule requires at least one limit", ErrInvalidArgument)
	}
	if l.min < 0 || l.max < 0 {
		return nil, fmt.Errorf("%w: length rule requires nonnegative limits", ErrInvalidArgument)
	}
	if l.min == 0 && l.max == 0 {
		return nil, fmt.Errorf("%w: length rule requires at least one non-zero limit", ErrInvalidArgument)
	}
	if l.max != 0 && l.min > l.max {
		l.min, l.max = l.max, l.min
	}
	return LengthConfig{Min: l.min, Max: l.max}, nil
}

// mergeLengthConfig merges registered limits over local ones. An exact
// registered length replaces local options; registered limits override
// the corresponding local limit, and a local exact length counts as Min.
func mergeLengthConfig(local, global any) (any, error) {
	if global == nil {
		return local, nil
	}
	gExact, gIsExact, g, err := parseLength(global)
	if err != nil {
		return nil, err
	}
	if gIsExact {
		return gExact, nil
	}
	lExact, lIsExact, l, err := parseLength(local)
	if err != nil {
		return nil, err
	}
	if lIsExact {
		l = lengthLimits{min: lExact, hasMin: true}
	}
	if g.hasMin {
		l.min, l.hasMin = g.min, true
	}
	if g.hasMax {
		l.max, l.hasMax = g.max, true
	}
	return LengthConfig{Min: l.min, Max: l.max}, nil
}

func runeLength(s string) int {
	return utf8.RuneCountInString(norm.NFC.String(s))
}

func (r *LengthRule) validateOwner() bool {
	for _, v := range toStrings(r.owner.Value()) {
		if v == "" {
			continue
		}
		n := runeLength(v)
		switch cfg := r.config.(type) {
		case int:
			if n != cfg {
				return false
			}
		case LengthConfig:
			if n < cfg.Min || (cfg.Max > 0 && n > cfg.Max) {
				return false
			}
		}
	}
	return true
}

func (r *LengthRule) javascriptCallback() string {
	var lo, hi int
	switch cfg := r.config.(type) {
	case int:
		lo, hi = cfg, cfg
	case LengthConfig:
		lo, hi = cfg.Min, cfg.Max
	}
	return "function() { return qf.rules.length(" + r.ownerJS() + ", " + strconv.Itoa(lo) + ", " + strconv.Itoa(hi) + "); }"
}
