package hxform

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// RunAt selects where a rule is evaluated.
type RunAt int

const (
	RunAtServer RunAt = 1 << iota
	RunAtClient
	runAtBlur

	// RunAtClientServer runs a rule in the browser on submit and again on
	// the server.
	RunAtClientServer = RunAtServer | RunAtClient
	// RunAtOnBlurClient runs a rule in the browser when the element loses
	// focus as well as on submit.
	RunAtOnBlurClient = RunAtClient | runAtBlur
	// RunAtOnBlurClientServer adds server validation to RunAtOnBlurClient.
	RunAtOnBlurClientServer = RunAtOnBlurClient | RunAtServer
)

// RuleEntry is a rule attached to a node together with its run-at flags.
type RuleEntry struct {
	Rule  Rule
	RunAt RunAt
}

type filterEntry struct {
	fn        Filter
	recursive bool
}

// node holds the state shared by all elements and containers. Concrete
// types embed it and set self so base methods dispatch to overrides.
type node struct {
	self Node

	localName string
	typ       string
	attrs     Attributes
	idBase    string
	autoID    bool

	label      string
	err        string
	frozen     bool
	persistent bool
	required   bool

	rules   []RuleEntry
	filters []filterEntry
	parent  Container
}

func (n *node) init(self Node, typ, name string, attrs Attributes) {
	n.self = self
	n.typ = typ
	n.localName = name
	n.attrs = Attributes{}
	if attrs != nil {
		n.attrs.Merge(attrs)
	}
	if name == "" {
		if v, ok := n.attrs["name"]; ok {
			n.localName = v
		}
	}
	delete(n.attrs, "name")
	if n.attrs["id"] == "" {
		n.idBase = generateID(n.localName)
		n.attrs["id"] = n.idBase
		n.autoID = true
	}
}

// generateID derives an id from an element name: brackets become dashes.
func generateID(name string) string {
	if name == "" {
		return "qfauto"
	}
	var sb strings.Builder
	for _, tok := range splitName(name) {
		if tok == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(tok)
	}
	if sb.Len() == 0 {
		return "qfauto"
	}
	return sb.String()
}

func (n *node) base() *node { return n }

func (n *node) Name() string {
	for p := n.parent; p != nil; p = p.Parent() {
		if g, ok := p.(*Group); ok && g.localName != "" {
			return prefixName(g.Name(), n.localName)
		}
	}
	return n.localName
}

// prefixName qualifies a child name with a group name.
func prefixName(group, name string) string {
	if name == "" {
		return ""
	}
	if i := strings.IndexByte(name, '['); i > 0 {
		return group + "[" + name[:i] + "]" + name[i:]
	}
	return group + "[" + name + "]"
}

func (n *node) SetName(name string) {
	n.localName = name
	if n.autoID {
		n.idBase = generateID(name)
		n.attrs["id"] = n.idBase
		if f := formOf(n.self); f != nil {
			f.claimID(n)
		}
	}
	_ = n.self.updateValue()
}

func (n *node) ID() string { return n.attrs["id"] }

func (n *node) SetID(id string) {
	if id == "" {
		n.autoID = true
		n.idBase = generateID(n.localName)
		n.attrs["id"] = n.idBase
		if f := formOf(n.self); f != nil {
			f.claimID(n)
		}
		return
	}
	n.autoID = false
	n.attrs["id"] = id
}

func (n *node) Type() string { return n.typ }

func (n *node) Attr(key string) string { return n.attrs[strings.ToLower(key)] }

func (n *node) SetAttr(key, value string) {
	key = strings.ToLower(key)
	switch key {
	case "name":
		n.self.SetName(value)
	case "id":
		n.self.SetID(value)
	default:
		n.attrs[key] = value
	}
}

func (n *node) RemoveAttr(key string) {
	key = strings.ToLower(key)
	if key == "id" || key == "name" {
		return
	}
	delete(n.attrs, key)
}

// Attributes returns a copy of the attributes including the qualified name.
func (n *node) Attributes() Attributes {
	out := n.attrs.Clone()
	if name := n.self.Name(); name != "" {
		out["name"] = name
	}
	return out
}

func (n *node) Label() string         { return n.label }
func (n *node) SetLabel(label string) { n.label = label }

func (n *node) Error() string           { return n.err }
func (n *node) SetError(message string) { n.err = message }

func (n *node) RawValue() any    { return nil }
func (n *node) SetValue(v any)   {}
func (n *node) HTML() string     { return "" }
func (n *node) IsFrozen() bool   { return n.frozen }
func (n *node) IsRequired() bool { return n.required }

func (n *node) ToggleFrozen(freeze bool) bool {
	n.frozen = freeze
	return n.frozen
}

func (n *node) PersistentFreeze() bool { return n.persistent }

func (n *node) SetPersistentFreeze(persistent bool) { n.persistent = persistent }

func (n *node) isDisabled() bool { return n.attrs.Has("disabled") }

// Value applies the node filters to RawValue.
func (n *node) Value() any {
	v := n.self.RawValue()
	if v == nil {
		return nil
	}
	return n.applyFilters(v)
}

func (n *node) applyFilters(v any) any {
	for _, f := range n.filters {
		if f.recursive {
			v = applyRecursive(v, f.fn)
		} else {
			v = f.fn(v)
		}
	}
	return v
}

// applyRecursive calls fn on every scalar leaf of v.
func applyRecursive(v any, fn Filter) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = applyRecursive(item, fn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = applyRecursive(item, fn)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = fn(item)
		}
		return out
	default:
		return fn(v)
	}
}

func (n *node) AddFilter(filter Filter) error {
	if filter == nil {
		return fmt.Errorf("%w: nil filter", ErrInvalidArgument)
	}
	n.filters = append(n.filters, filterEntry{fn: filter})
	return nil
}

func (n *node) AddRecursiveFilter(filter Filter) error {
	if filter == nil {
		return fmt.Errorf("%w: nil filter", ErrInvalidArgument)
	}
	n.filters = append(n.filters, filterEntry{fn: filter, recursive: true})
	return nil
}

// AddRule attaches rule to the node. A rule created for another owner is
// moved to this node first.
func (n *node) AddRule(rule Rule, runAt RunAt) error {
	if rule == nil {
		return fmt.Errorf("%w: nil rule", ErrInvalidArgument)
	}
	if runAt == 0 {
		runAt = RunAtServer
	}
	if rule.Owner() != n.self {
		if err := rule.SetOwner(n.self); err != nil {
			return err
		}
	}
	if runAt&RunAtClient != 0 && rule.javascriptCallback() == "" {
		return fmt.Errorf("%w: %T cannot run on the client", ErrInvalidArgument, rule)
	}
	if _, ok := rule.(*RequiredRule); ok {
		n.required = true
	}
	n.rules = append(n.rules, RuleEntry{Rule: rule, RunAt: runAt})
	return nil
}

func (n *node) RemoveRule(rule Rule) {
	kept := n.rules[:0]
	for _, e := range n.rules {
		if e.Rule != rule {
			kept = append(kept, e)
		}
	}
	n.rules = kept
	n.required = false
	for _, e := range n.rules {
		if _, ok := e.Rule.(*RequiredRule); ok {
			n.required = true
		}
	}
}

func (n *node) Rules() []RuleEntry {
	out := make([]RuleEntry, len(n.rules))
	copy(out, n.rules)
	return out
}

func (n *node) Parent() Container { return n.parent }

// DataSources returns the data sources of the enclosing form.
func (n *node) DataSources() []DataSource {
	if f := formOf(n.self); f != nil {
		return f.datasources
	}
	return nil
}

// formOf returns the form a node belongs to, nil if detached.
func formOf(start Node) *Form {
	for cur := start; cur != nil; {
		if f, ok := cur.(*Form); ok {
			return f
		}
		p := cur.Parent()
		if p == nil {
			return nil
		}
		cur = p
	}
	return nil
}

// validate runs server-side rules in order until one sets an error.
func (n *node) validate() bool {
	for _, e := range n.rules {
		if n.err != "" {
			break
		}
		if e.RunAt&RunAtServer != 0 {
			e.Rule.Validate()
		}
	}
	return n.err == ""
}

// updateValue is a no-op for nodes without a value.
func (n *node) updateValue() error { return nil }

// lookup returns the first value found for name in the node data sources.
// Submit sources are skipped when skipSubmit is set.
func (n *node) lookup(name string, skipSubmit bool) (any, bool) {
	for _, ds := range n.self.DataSources() {
		if _, ok := ds.(Submit); ok && skipSubmit {
			continue
		}
		if v := ds.Value(name); v != nil {
			return v, true
		}
		if na, ok := ds.(NullAware); ok && na.HasValue(name) {
			return nil, true
		}
	}
	return nil, false
}

// ignoresSubmit reports whether submitted values must not reach the node.
func (n *node) ignoresSubmit() bool {
	return n.frozen && !n.persistent
}

func (n *node) Component() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, n.self.HTML())
		return err
	})
}

func (n *node) Render(r Renderer) error {
	return r.RenderElement(n.self)
}

func (n *node) JavascriptValue(inContainer bool) string {
	return "qf.$v(" + jsString(n.ID()) + ")"
}

func (n *node) JavascriptTriggers() []string {
	return []string{n.ID()}
}
