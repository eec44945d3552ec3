package hxform

import (
	"fmt"
	"strings"
	"sync"
)

// ElementConstructor builds an element from a name, attributes and
// type-specific data.
//
// Data keys understood by the builtin types: "label", "content" (checkbox,
// radio, static), "options" (select), "tagName" and "forceClosingTag"
// (static), "messageProvider" and "language" (file).
type ElementConstructor func(name string, attrs Attributes, data map[string]any) (Node, error)

// RuleConstructor builds a rule for owner.
type RuleConstructor func(owner Node, message string, config any) (Rule, error)

// ConfigMerger merges local rule options with the config given at
// registration time.
type ConfigMerger func(local, global any) (any, error)

// RuleType describes a registered rule type.
type RuleType struct {
	New RuleConstructor
	// Merge combines local options with the registered config. When nil,
	// the registered config is used whenever it is set.
	Merge ConfigMerger
}

type registeredRule struct {
	RuleType
	config any
}

// Factory maps type names to element and rule constructors. Type names
// are case-insensitive. A Factory is safe for concurrent use.
type Factory struct {
	mu       sync.RWMutex
	elements map[string]ElementConstructor
	rules    map[string]registeredRule
}

// NewFactory returns a factory with no registered types.
func NewFactory() *Factory {
	return &Factory{
		elements: make(map[string]ElementConstructor),
		rules:    make(map[string]registeredRule),
	}
}

// DefaultFactory returns a factory with the builtin element and rule types
// registered.
func DefaultFactory() *Factory {
	f := NewFactory()
	for name, ctor := range builtinElements {
		f.elements[name] = ctor
	}
	for name, rt := range builtinRules {
		f.rules[name] = registeredRule{RuleType: rt}
	}
	return f
}

// RegisterElement registers or replaces an element type.
func (f *Factory) RegisterElement(typ string, ctor ElementConstructor) error {
	if typ == "" || ctor == nil {
		return fmt.Errorf("%w: element type needs a name and a constructor", ErrInvalidArgument)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[strings.ToLower(typ)] = ctor
	return nil
}

// RegisterRule registers or replaces a rule type. config, when not nil, is
// merged into the options of every rule created with this type.
func (f *Factory) RegisterRule(typ string, rt RuleType, config any) error {
	if typ == "" || rt.New == nil {
		return fmt.Errorf("%w: rule type needs a name and a constructor", ErrInvalidArgument)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[strings.ToLower(typ)] = registeredRule{RuleType: rt, config: config}
	return nil
}

// IsElementRegistered reports whether typ is a known element type.
func (f *Factory) IsElementRegistered(typ string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.elements[strings.ToLower(typ)]
	return ok
}

// IsRuleRegistered reports whether typ is a known rule type.
func (f *Factory) IsRuleRegistered(typ string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.rules[strings.ToLower(typ)]
	return ok
}

// CreateElement builds an element of the given type.
func (f *Factory) CreateElement(typ, name string, attrs Attributes, data map[string]any) (Node, error) {
	f.mu.RLock()
	ctor, ok := f.elements[strings.ToLower(typ)]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: element type %q is not known", ErrInvalidArgument, typ)
	}
	el, err := ctor(name, attrs, data)
	if err != nil {
		return nil, err
	}
	if label, ok := data["label"]; ok {
		el.SetLabel(toString(label))
	}
	return el, nil
}

// CreateRule builds a rule of the given type, merging config with the
// config given at registration.
func (f *Factory) CreateRule(typ string, owner Node, message string, config any) (Rule, error) {
	f.mu.RLock()
	reg, ok := f.rules[strings.ToLower(typ)]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: rule %q is not registered", ErrInvalidArgument, typ)
	}
	if reg.config != nil {
		merge := reg.Merge
		if merge == nil {
			merge = mergeRegisteredConfig
		}
		merged, err := merge(config, reg.config)
		if err != nil {
			return nil, err
		}
		config = merged
	}
	return reg.New(owner, message, config)
}

func mergeRegisteredConfig(local, global any) (any, error) {
	if global != nil {
		return global, nil
	}
	return local, nil
}

var builtinElements = map[string]ElementConstructor{
	"button":   inputElement(NewButton),
	"email":    inputElement(NewEmail),
	"hidden":   inputElement(NewHidden),
	"image":    inputElement(NewImage),
	"password": inputElement(NewPassword),
	"reset":    inputElement(NewReset),
	"submit":   inputElement(NewSubmit),
	"text":     inputElement(NewText),
	"checkbox": checkableElement(NewCheckbox),
	"radio":    checkableElement(NewRadio),
	"textarea": func(name string, attrs Attributes, _ map[string]any) (Node, error) {
		return NewTextarea(name, attrs), nil
	},
	"fieldset": func(name string, attrs Attributes, _ map[string]any) (Node, error) {
		return NewFieldset(name, attrs), nil
	},
	"group": func(name string, attrs Attributes, data map[string]any) (Node, error) {
		g := NewGroup(name, attrs)
		if sep, ok := data["separator"]; ok {
			g.SetSeparator(toString(sep))
		}
		return g, nil
	},
	"select": newSelectElement,
	"static": newStaticElement,
	"file":   newFileElement,
}

func inputElement[T Node](ctor func(string, Attributes) T) ElementConstructor {
	return func(name string, attrs Attributes, _ map[string]any) (Node, error) {
		return ctor(name, attrs), nil
	}
}

func checkableElement(ctor func(string, Attributes) *Checkable) ElementConstructor {
	return func(name string, attrs Attributes, data map[string]any) (Node, error) {
		c := ctor(name, attrs)
		if content, ok := data["content"]; ok {
			c.SetContent(toString(content))
		}
		return c, nil
	}
}

func newSelectElement(name string, attrs Attributes, data map[string]any) (Node, error) {
	s := NewSelect(name, attrs)
	switch opts := data["options"].(type) {
	case nil:
	case []Option:
		s.LoadOptions(opts)
	case map[string]string:
		for _, value := range sortedKeys(opts) {
			s.AddOption(opts[value], value, nil)
		}
	case map[string]any:
		for _, value := range sortedKeys(opts) {
			s.AddOption(toString(opts[value]), value, nil)
		}
	case []any:
		for _, o := range opts {
			switch t := o.(type) {
			case map[string]any:
				s.AddOption(toString(t["text"]), toString(t["value"]), nil)
			default:
				s.AddOption(toString(t), toString(t), nil)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported select options %T", ErrInvalidArgument, opts)
	}
	return s, nil
}

func newStaticElement(name string, attrs Attributes, data map[string]any) (Node, error) {
	s := NewStatic(name, attrs, toString(data["content"]))
	if tag, ok := data["tagName"]; ok {
		force, _ := data["forceClosingTag"].(bool)
		if err := s.SetTagName(toString(tag), force); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func newFileElement(name string, attrs Attributes, data map[string]any) (Node, error) {
	f := NewInputFile(name, attrs)
	if p, ok := data["messageProvider"]; ok {
		mp, ok := p.(MessageProvider)
		if !ok {
			return nil, fmt.Errorf("%w: messageProvider must implement MessageProvider, got %T", ErrInvalidArgument, p)
		}
		if err := f.SetMessageProvider(mp); err != nil {
			return nil, err
		}
	}
	if lang, ok := data["language"]; ok {
		f.SetLanguage(toString(lang))
	}
	return f, nil
}

func ruleOf[T Rule](r T, err error) (Rule, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

var builtinRules = map[string]RuleType{
	"empty": {New: func(owner Node, message string, _ any) (Rule, error) {
		return ruleOf(NewEmpty(owner, message))
	}},
	"nonempty": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewNonempty(owner, message, config))
	}},
	"required": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewRequired(owner, message, config))
	}},
	"compare": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewCompare(owner, message, config))
	}, Merge: mergeCompareConfig},
	"eq": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewCompare(owner, message, config))
	}, Merge: mergeCompareConfig},
	"length": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewLength(owner, message, config))
	}, Merge: mergeLengthConfig},
	"minlength": {New: func(owner Node, message string, config any) (Rule, error) {
		n, ok := toInt(config)
		if !ok {
			return nil, fmt.Errorf("%w: minlength rule requires a length", ErrInvalidArgument)
		}
		return ruleOf(NewLength(owner, message, LengthConfig{Min: n}))
	}},
	"maxlength": {New: func(owner Node, message string, config any) (Rule, error) {
		n, ok := toInt(config)
		if !ok {
			return nil, fmt.Errorf("%w: maxlength rule requires a length", ErrInvalidArgument)
		}
		return ruleOf(NewLength(owner, message, LengthConfig{Max: n}))
	}},
	"regex": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewRegex(owner, message, config))
	}},
	"callback": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewCallback(owner, message, config))
	}, Merge: mergeCallbackConfig},
	"notcallback": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewNotCallback(owner, message, config))
	}, Merge: mergeCallbackConfig},
	"email": {New: func(owner Node, message string, _ any) (Rule, error) {
		return ruleOf(NewEmailRule(owner, message))
	}},
	"numeric": {New: func(owner Node, message string, _ any) (Rule, error) {
		return ruleOf(NewNumeric(owner, message))
	}},
	"alphanumeric": {New: func(owner Node, message string, _ any) (Rule, error) {
		return ruleOf(NewAlphaNumeric(owner, message))
	}},
	"each": {New: func(owner Node, message string, config any) (Rule, error) {
		template, _ := config.(Rule)
		return ruleOf(NewEach(owner, message, template))
	}},
	"maxfilesize": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewMaxFileSize(owner, message, config))
	}},
	"mimetype": {New: func(owner Node, message string, config any) (Rule, error) {
		return ruleOf(NewMimeType(owner, message, config))
	}},
}
