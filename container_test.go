package hxform

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGroup_QualifiedNames(t *testing.T) {
	address := NewGroup("address", nil)
	city := NewText("city", nil)
	line := NewText("lines[]", nil)
	phone := NewGroup("phone", nil)
	mobile := NewText("mobile", nil)
	for _, n := range []Node{city, line, phone} {
		if err := address.AppendChild(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := phone.AppendChild(mobile); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		node Node
		want string
	}{
		{city, "address[city]"},
		{line, "address[lines][]"},
		{phone, "address[phone]"},
		{mobile, "address[phone][mobile]"},
	}
	for _, tt := range tests {
		if got := tt.node.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}

	if got := city.Attributes()["name"]; got != "address[city]" {
		t.Errorf("rendered name = %q", got)
	}
}

func TestUnnamedGroupKeepsNames(t *testing.T) {
	g := NewGroup("", nil)
	user := NewText("user", nil)
	if err := g.AppendChild(user); err != nil {
		t.Fatal(err)
	}
	if user.Name() != "user" {
		t.Errorf("Name() = %q, want user", user.Name())
	}
}

func TestGroup_Values(t *testing.T) {
	address := NewGroup("address", nil)
	city := NewText("city", nil)
	zip := NewText("zip", nil)
	_ = address.AppendChild(city)
	_ = address.AppendChild(zip)
	user := NewText("user", nil)
	form := attach(t, []DataSource{NewArrayDataSource(map[string]any{
		"user":    "ada",
		"address": map[string]any{"city": "Paris", "zip": "75001"},
	})}, user, address)

	if diff := cmp.Diff(map[string]any{"city": "Paris", "zip": "75001"}, address.Value()); diff != "" {
		t.Errorf("group Value() mismatch (-want +got):\n%s", diff)
	}
	want := map[string]any{
		"user":    "ada",
		"address": map[string]any{"city": "Paris", "zip": "75001"},
	}
	if diff := cmp.Diff(want, form.Values()); diff != "" {
		t.Errorf("form Values() mismatch (-want +got):\n%s", diff)
	}

	address.SetValue(map[string]any{"city": "Lyon"})
	if city.Value() != "Lyon" || zip.Value() != "75001" {
		t.Errorf("after SetValue: city %v zip %v", city.Value(), zip.Value())
	}
}

func TestGroup_Filters(t *testing.T) {
	g := NewGroup("g", nil)
	a := NewText("a", Attributes{"value": "x"})
	_ = g.AppendChild(a)
	_ = g.AddRecursiveFilter(func(v any) any { return toString(v) + "!" })

	if diff := cmp.Diff(map[string]any{"a": "x!"}, g.Value()); diff != "" {
		t.Errorf("filtered Value() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"a": "x"}, g.RawValue()); diff != "" {
		t.Errorf("RawValue() mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldsetIsTransparent(t *testing.T) {
	fs := NewFieldset("personal", nil)
	name := NewText("name", Attributes{"value": "Ada"})
	_ = fs.AppendChild(name)
	form := attach(t, nil, fs)

	if name.Name() != "name" {
		t.Errorf("Name() = %q, fieldsets do not qualify names", name.Name())
	}
	if diff := cmp.Diff(map[string]any{"name": "Ada"}, form.Values()); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
}

func TestContainer_InsertBefore(t *testing.T) {
	form := NewForm("f", WithoutTracking())
	a, b, c := NewText("a", nil), NewText("b", nil), NewText("c", nil)
	_ = form.AppendChild(a)
	_ = form.AppendChild(c)
	if err := form.InsertBefore(b, c); err != nil {
		t.Fatal(err)
	}
	if got := names(form.Children()); !cmp.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("children = %v", got)
	}

	// Moving within the same container.
	if err := form.InsertBefore(c, a); err != nil {
		t.Fatal(err)
	}
	if got := names(form.Children()); !cmp.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("children after move = %v", got)
	}

	other := NewText("other", nil)
	if err := form.InsertBefore(NewText("x", nil), other); !IsNotFound(err) {
		t.Errorf("InsertBefore unknown ref = %v, want ErrNotFound", err)
	}
}

func TestContainer_MoveBetweenContainers(t *testing.T) {
	g1, g2 := NewGroup("g1", nil), NewGroup("g2", nil)
	el := NewText("el", nil)
	_ = g1.AppendChild(el)
	if err := g2.AppendChild(el); err != nil {
		t.Fatal(err)
	}
	if len(g1.Children()) != 0 || el.Parent() != Container(g2) {
		t.Error("element should be moved to its new container")
	}
	if el.Name() != "g2[el]" {
		t.Errorf("Name() = %q, want g2[el]", el.Name())
	}
}

func TestContainer_InvalidChildren(t *testing.T) {
	outer := NewGroup("outer", nil)
	inner := NewGroup("inner", nil)
	_ = outer.AppendChild(inner)

	tests := []struct {
		name  string
		to    Container
		child Node
	}{
		{"nil", outer, nil},
		{"form", outer, NewForm("nested")},
		{"self", outer, outer},
		{"ancestor", inner, outer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.to.AppendChild(tt.child); !IsInvalidArgument(err) {
				t.Errorf("AppendChild = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestContainer_RemoveChild(t *testing.T) {
	form := NewForm("f", WithoutTracking())
	q := NewText("q", nil)
	_ = form.AppendChild(q)
	if err := form.RemoveChild(q); err != nil {
		t.Fatal(err)
	}
	if q.Parent() != nil || len(form.Children()) != 0 {
		t.Error("removed child is still attached")
	}
	if err := form.RemoveChild(q); !IsNotFound(err) {
		t.Errorf("second RemoveChild = %v, want ErrNotFound", err)
	}

	// The id is free again.
	again := NewText("q", nil)
	_ = form.AppendChild(again)
	if again.ID() != "q" {
		t.Errorf("ID() = %q, want q", again.ID())
	}
}

func TestContainer_Lookup(t *testing.T) {
	g := NewGroup("address", nil)
	city := NewText("city", nil)
	_ = g.AppendChild(city)
	radios := []Node{NewRadio("size", Attributes{"value": "s"}), NewRadio("size", Attributes{"value": "m"})}
	form := attach(t, nil, append([]Node{g}, radios...)...)

	if form.ElementByID(city.ID()) != Node(city) {
		t.Error("ElementByID did not find the nested element")
	}
	if form.ElementByID("missing") != nil {
		t.Error("ElementByID(missing) should be nil")
	}
	if got := form.ElementsByName("size"); len(got) != 2 {
		t.Errorf("ElementsByName(size) = %d nodes, want 2", len(got))
	}
	if got := form.ElementsByName("address[city]"); len(got) != 1 {
		t.Errorf("ElementsByName(address[city]) = %d nodes, want 1", len(got))
	}
	if got := len(form.Leaves()); got != 3 {
		t.Errorf("Leaves() = %d, want 3", got)
	}
}

func TestContainer_WalkStops(t *testing.T) {
	form := attach(t, nil, NewText("a", nil), NewText("b", nil), NewText("c", nil))
	stop := errors.New("stop")
	var seen []string
	err := form.Walk(func(n Node) error {
		seen = append(seen, n.Name())
		if n.Name() == "b" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() = %v, want the callback error", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, seen); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
}

func TestUniqueIDs(t *testing.T) {
	form := NewForm("f", WithoutTracking())
	first := NewText("q", nil)
	second := NewText("q", nil)
	third := NewText("q", nil)
	explicit := NewText("other", Attributes{"id": "mine"})
	for _, n := range []Node{first, second, third, explicit} {
		_ = form.AppendChild(n)
	}

	got := []string{first.ID(), second.ID(), third.ID(), explicit.ID()}
	if diff := cmp.Diff([]string{"q", "q-1", "q-2", "mine"}, got); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	if id := generateID("a[b][]"); id != "a-b" {
		t.Errorf("generateID(a[b][]) = %q, want a-b", id)
	}
	if id := generateID(""); id != "qfauto" {
		t.Errorf("generateID(\"\") = %q, want qfauto", id)
	}
}

func TestContainer_Frozen(t *testing.T) {
	g := NewGroup("g", nil)
	a := NewText("a", nil)
	_ = g.AppendChild(a)
	g.ToggleFrozen(true)
	g.SetPersistentFreeze(true)
	if !a.IsFrozen() || !a.PersistentFreeze() {
		t.Error("freezing a container should freeze its children")
	}
}

func TestContainer_JavascriptValue(t *testing.T) {
	g := NewGroup("g", nil)
	_ = g.AppendChild(NewText("a", nil))
	_ = g.AppendChild(NewStatic("note", nil, "hi"))
	_ = g.AppendChild(NewText("b", nil))

	if got, want := g.JavascriptValue(false), `qf.$cv(["a","b"])`; got != want {
		t.Errorf("JavascriptValue() = %s, want %s", got, want)
	}
	if diff := cmp.Diff([]string{"a", "b"}, g.JavascriptTriggers()); diff != "" {
		t.Errorf("JavascriptTriggers() mismatch (-want +got):\n%s", diff)
	}
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}
