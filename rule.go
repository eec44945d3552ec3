package hxform

import (
	"fmt"
	"strings"
)

// Rule validates the value of its owner node.
//
// Rules are composed with And and Or: the rule passes when its own check
// and every rule of one and-chain pass. Or starts a new alternative chain.
//
//	// password is either empty, or confirmed and at least 8 runes long
//	empty.Or(length, compare)
//
// The interface carries unexported methods; rules are built with the New*
// constructors, a Factory, or NewCustomRule.
type Rule interface {
	Owner() Node
	SetOwner(owner Node) error
	Message() string
	SetMessage(message string)
	Config() any
	SetConfig(config any) error

	// And adds rules to the last chain.
	And(rules ...Rule) error
	// Or adds a new alternative chain made of rules.
	Or(rules ...Rule) error

	// Validate evaluates the rule and its chains and sets the owner error
	// on failure.
	Validate() bool
	// Javascript returns the client-side rule constructor call.
	Javascript() string

	rule() *baseRule
	validateOwner() bool
	javascriptCallback() string
	canonicalConfig(config any) (any, error)
	checkOwner(owner Node) error
}

type baseRule struct {
	self    Rule
	owner   Node
	message string
	config  any
	chains  [][]Rule
}

// initRule wires self and validates owner and config.
func (r *baseRule) initRule(self Rule, owner Node, message string, config any) error {
	r.self = self
	r.message = message
	r.chains = [][]Rule{{}}
	if owner != nil {
		if err := self.SetOwner(owner); err != nil {
			return err
		}
	}
	return self.SetConfig(config)
}

func (r *baseRule) rule() *baseRule { return r }

func (r *baseRule) Owner() Node { return r.owner }

// SetOwner moves the rule to owner, detaching it from its previous owner.
func (r *baseRule) SetOwner(owner Node) error {
	if owner == nil {
		return fmt.Errorf("%w: nil rule owner", ErrInvalidArgument)
	}
	if err := r.self.checkOwner(owner); err != nil {
		return err
	}
	if r.owner != nil && r.owner != owner {
		r.owner.RemoveRule(r.self)
	}
	r.owner = owner
	return nil
}

func (r *baseRule) checkOwner(Node) error { return nil }

func (r *baseRule) Message() string { return r.message }

func (r *baseRule) SetMessage(message string) { r.message = message }

func (r *baseRule) Config() any { return r.config }

func (r *baseRule) SetConfig(config any) error {
	cfg, err := r.self.canonicalConfig(config)
	if err != nil {
		return err
	}
	r.config = cfg
	return nil
}

func (r *baseRule) canonicalConfig(config any) (any, error) { return config, nil }

func (r *baseRule) And(rules ...Rule) error {
	if err := checkChainable(rules); err != nil {
		return err
	}
	last := len(r.chains) - 1
	r.chains[last] = append(r.chains[last], rules...)
	return nil
}

func (r *baseRule) Or(rules ...Rule) error {
	if err := checkChainable(rules); err != nil {
		return err
	}
	chain := append([]Rule(nil), rules...)
	r.chains = append(r.chains, chain)
	return nil
}

func checkChainable(rules []Rule) error {
	for _, rule := range rules {
		if rule == nil {
			return fmt.Errorf("%w: nil rule", ErrInvalidArgument)
		}
		if _, ok := rule.(*RequiredRule); ok {
			return fmt.Errorf("%w: cannot add a required rule to a chain", ErrInvalidArgument)
		}
	}
	return nil
}

func (r *baseRule) Validate() bool {
	globalValid := false
	localValid := r.self.validateOwner()
	for _, chain := range r.chains {
		for _, rule := range chain {
			localValid = localValid && rule.Validate()
			if !localValid {
				break
			}
		}
		globalValid = globalValid || localValid
		if globalValid {
			break
		}
		localValid = true
	}
	if !globalValid {
		r.setOwnerError()
	}
	return globalValid
}

func (r *baseRule) setOwnerError() {
	if r.owner == nil || r.message == "" || r.owner.Error() != "" {
		return
	}
	r.owner.SetError(r.message)
}

func (r *baseRule) validateOwner() bool { return true }

func (r *baseRule) javascriptCallback() string { return "" }

// triggers returns the ids of elements whose changes re-run the rule.
func (r *baseRule) triggers() []string {
	if t, ok := r.self.(interface{ ownTriggers() []string }); ok {
		return t.ownTriggers()
	}
	if r.owner == nil {
		return nil
	}
	return r.owner.JavascriptTriggers()
}

// Javascript renders
//
//	new qf.Rule(callback, ownerID, message, triggers, chained)
//
// Chained rules are rendered without triggers.
func (r *baseRule) Javascript() string {
	return r.javascript(true)
}

func (r *baseRule) javascript(withTriggers bool) string {
	ownerID := ""
	if r.owner != nil {
		ownerID = r.owner.ID()
	}
	triggers := "null"
	if withTriggers {
		t := r.triggers()
		if t == nil {
			t = []string{}
		}
		triggers = jsValue(t)
	}
	var chained strings.Builder
	chained.WriteByte('[')
	empty := len(r.chains) == 1 && len(r.chains[0]) == 0
	if !empty {
		for i, chain := range r.chains {
			if i > 0 {
				chained.WriteString(", ")
			}
			chained.WriteByte('[')
			for j, rule := range chain {
				if j > 0 {
					chained.WriteString(", ")
				}
				chained.WriteString(rule.rule().javascript(false))
			}
			chained.WriteByte(']')
		}
	}
	chained.WriteByte(']')
	return "new qf.Rule(" + r.self.javascriptCallback() + ", " + jsString(ownerID) + ", " +
		jsString(r.message) + ", " + triggers + ", " + chained.String() + ")"
}

// ownerJS returns the JavaScript expression for the owner value.
func (r *baseRule) ownerJS() string {
	if r.owner == nil {
		return "null"
	}
	return r.owner.JavascriptValue(false)
}

// CustomRule is a rule defined by functions, for validation logic not
// covered by the builtin rules.
type CustomRule struct {
	baseRule
	check func(owner Node, config any) bool
	js    func(owner Node, config any) string
}

// NewCustomRule creates a rule running check on the owner. js, when not
// nil, returns a JavaScript function expression for client-side use.
func NewCustomRule(owner Node, message string, config any, check func(owner Node, config any) bool, js func(owner Node, config any) string) (*CustomRule, error) {
	if check == nil {
		return nil, fmt.Errorf("%w: custom rule needs a check function", ErrInvalidArgument)
	}
	r := &CustomRule{check: check, js: js}
	if err := r.initRule(r, owner, message, config); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CustomRule) validateOwner() bool {
	return r.check(r.owner, r.config)
}

func (r *CustomRule) javascriptCallback() string {
	if r.js == nil {
		return ""
	}
	return r.js(r.owner, r.config)
}
