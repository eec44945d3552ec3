package hxform

import (
	"fmt"
	"math/big"
	"regexp"
	"slices"
	"strings"
)

// CompareConfig is the canonical configuration of a CompareRule. Operand
// is either a literal or a Node whose value is compared against.
type CompareConfig struct {
	Operator string
	Operand  any
}

var compareOperators = map[string]bool{
	"==": true, "!=": true, "===": true, "!==": true,
	"<": true, "<=": true, ">": true, ">=": true,
}

// CompareRule compares the owner value with an operand.
//
// "===" and "!==" compare strings; the other operators compare numbers.
// The default operator is "===".
type CompareRule struct{ baseRule }

// NewCompare creates a compare rule. config is one of: an operand (literal
// or Node), []any{operand}, []any{operator, operand}, a map with
// "operator" and "operand" keys, or a CompareConfig.
func NewCompare(owner Node, message string, config any) (*CompareRule, error) {
	r := &CompareRule{}
	if err := r.initRule(r, owner, message, config); err != nil {
		return nil, err
	}
	return r, nil
}

type partialCompare struct {
	operator    string
	operand     any
	hasOperator bool
	hasOperand  bool
}

// parseCompare converts config into its parts. A single scalar is taken as
// scalarKey: "operand" for rule options, "operator" for registered config.
func parseCompare(config any, scalarKey string) (partialCompare, error) {
	var p partialCompare
	setScalar := func(v any) {
		if scalarKey == "operator" {
			p.operator, p.hasOperator = toString(v), true
		} else {
			p.operand, p.hasOperand = v, true
		}
	}
	switch c := config.(type) {
	case nil:
	case CompareConfig:
		p = partialCompare{operator: c.Operator, operand: c.Operand, hasOperator: c.Operator != "", hasOperand: c.Operand != nil}
	case *CompareConfig:
		p = partialCompare{operator: c.Operator, operand: c.Operand, hasOperator: c.Operator != "", hasOperand: c.Operand != nil}
	case map[string]any:
		if op, ok := c["operator"]; ok {
			p.operator, p.hasOperator = toString(op), true
		}
		if operand, ok := c["operand"]; ok {
			p.operand, p.hasOperand = operand, true
		}
	case []string:
		items := make([]any, len(c))
		for i, s := range c {
			items[i] = s
		}
		return parseCompare(items, scalarKey)
	case []any:
		switch len(c) {
		case 0:
		case 1:
			setScalar(c[0])
		default:
			p.operator, p.hasOperator = toString(c[0]), true
			p.operand, p.hasOperand = c[1], true
		}
	default:
		setScalar(c)
	}
	return p, nil
}

func (p partialCompare) canonical() (CompareConfig, error) {
	if !p.hasOperand {
		return CompareConfig{}, fmt.Errorf("%w: compare rule requires an argument to compare with", ErrInvalidArgument)
	}
	op := p.operator
	if !p.hasOperator || op == "" {
		op = "==="
	}
	if !compareOperators[op] {
		return CompareConfig{}, fmt.Errorf("%w: compare rule requires a valid comparison operator, %q given", ErrInvalidArgument, op)
	}
	return CompareConfig{Operator: op, Operand: p.operand}, nil
}

func (r *CompareRule) canonicalConfig(config any) (any, error) {
	p, err := parseCompare(config, "operand")
	if err != nil {
		return nil, err
	}
	return p.canonical()
}

// mergeCompareConfig fills the parts missing from the registered config
// with those of the local options.
func mergeCompareConfig(local, global any) (any, error) {
	if global == nil {
		return local, nil
	}
	g, err := parseCompare(global, "operator")
	if err != nil {
		return nil, err
	}
	if local != nil {
		l, err := parseCompare(local, "operand")
		if err != nil {
			return nil, err
		}
		if !g.hasOperator && l.hasOperator {
			g.operator, g.hasOperator = l.operator, true
		}
		if !g.hasOperand && l.hasOperand {
			g.operand, g.hasOperand = l.operand, true
		}
	}
	return g.canonical()
}

func (r *CompareRule) compareConfig() CompareConfig {
	cfg, _ := r.config.(CompareConfig)
	return cfg
}

func (r *CompareRule) validateOwner() bool {
	cfg := r.compareConfig()
	operand := cfg.Operand
	if n, ok := operand.(Node); ok {
		operand = n.Value()
	}
	a, b := toString(r.owner.Value()), toString(operand)
	switch cfg.Operator {
	case "===":
		return a == b
	case "!==":
		return a != b
	}
	c := numericValue(a).Cmp(numericValue(b))
	switch cfg.Operator {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// numericValue parses the leading number of s exactly, 0 if there is
// none. Exact arithmetic keeps long digit strings such as account numbers
// distinct.
func numericValue(s string) *big.Rat {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	r := new(big.Rat)
	if m == "" {
		return r
	}
	if _, ok := r.SetString(m); !ok {
		return new(big.Rat)
	}
	return r
}

func (r *CompareRule) ownTriggers() []string {
	triggers := r.owner.JavascriptTriggers()
	if n, ok := r.compareConfig().Operand.(Node); ok {
		for _, id := range n.JavascriptTriggers() {
			if !slices.Contains(triggers, id) {
				triggers = append(triggers, id)
			}
		}
	}
	return triggers
}

func (r *CompareRule) javascriptCallback() string {
	cfg := r.compareConfig()
	operand := jsValue(toString(cfg.Operand))
	if n, ok := cfg.Operand.(Node); ok {
		operand = n.JavascriptValue(false)
	}
	return "function() { return qf.rules.compare(" + r.ownerJS() + ", " + operand + ", " + jsString(cfg.Operator) + "); }"
}
