package hxform

import "github.com/a-h/templ"

// Node is implemented by every element and container of a form tree.
//
// Nodes are built with the New* constructors (or through a Factory) and
// attached to a container with AppendChild. A node that is not attached to
// a Form has no data sources, so its value only changes via SetValue.
//
// The interface carries unexported methods: custom elements are written by
// embedding one of the exported element types.
type Node interface {
	// Name returns the qualified name, including the names of enclosing
	// groups: a child "city" of group "address" is named "address[city]".
	Name() string
	SetName(name string)
	ID() string
	SetID(id string)
	Type() string

	Attr(key string) string
	SetAttr(key, value string)
	RemoveAttr(key string)
	Attributes() Attributes

	Label() string
	SetLabel(label string)

	// Value returns the filtered value, RawValue the unfiltered one. Both
	// return nil when the node has no value (unchecked checkbox, disabled
	// input, upload not attempted).
	Value() any
	RawValue() any
	SetValue(value any)

	Error() string
	SetError(message string)

	IsFrozen() bool
	// ToggleFrozen freezes or unfreezes the node and returns the resulting
	// state. Nodes that cannot be frozen always return false.
	ToggleFrozen(freeze bool) bool
	PersistentFreeze() bool
	SetPersistentFreeze(persistent bool)

	IsRequired() bool
	AddRule(rule Rule, runAt RunAt) error
	RemoveRule(rule Rule)
	Rules() []RuleEntry

	AddFilter(filter Filter) error
	AddRecursiveFilter(filter Filter) error

	Parent() Container
	DataSources() []DataSource

	// HTML returns the markup of the node itself, without label or error.
	HTML() string
	// Component wraps HTML for use in templ templates.
	Component() templ.Component
	Render(r Renderer) error

	JavascriptValue(inContainer bool) string
	JavascriptTriggers() []string

	base() *node
	updateValue() error
	validate() bool
}

// Container is a node holding child nodes.
type Container interface {
	Node

	Children() []Node
	AppendChild(child Node) error
	InsertBefore(child, ref Node) error
	RemoveChild(child Node) error

	ElementByID(id string) Node
	ElementsByName(name string) []Node
	// Walk calls fn for every descendant in document order.
	Walk(fn func(Node) error) error
	// Leaves returns all non-container descendants in document order.
	Leaves() []Node

	containerBase() *container
}

// DataSource provides values for elements by (possibly bracketed) name.
type DataSource interface {
	// Value returns nil when the source has no value for name.
	Value(name string) any
}

// NullAware is implemented by data sources that can hold explicit nil
// values, so HasValue is consulted when Value returns nil.
type NullAware interface {
	DataSource
	HasValue(name string) bool
}

// Submit marks data sources holding submitted values. A form is considered
// submitted when at least one of its data sources implements Submit.
type Submit interface {
	DataSource
	// Upload returns uploaded files for a file element name, nil if none.
	Upload(name string) []*Upload
}

// Renderer visits a form tree and accumulates output.
type Renderer interface {
	RenderElement(el Node) error
	RenderHidden(el Node) error
	StartForm(f *Form) error
	FinishForm(f *Form) error
	StartContainer(c Container) error
	FinishContainer(c Container) error
	StartGroup(g *Group) error
	FinishGroup(g *Group) error
}

// Filter transforms a value when it is read with Node.Value.
type Filter func(value any) any
