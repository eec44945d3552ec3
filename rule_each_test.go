package hxform

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newPhoneGroup(values ...string) (*Group, []*Input) {
	g := NewGroup("phones", nil)
	var inputs []*Input
	for i, v := range values {
		in := NewText("p"+string(rune('0'+i)), Attributes{"value": v})
		_ = g.AppendChild(in)
		inputs = append(inputs, in)
	}
	_ = g.AppendChild(NewStatic("hint", nil, "digits only"))
	return g, inputs
}

func TestEachRule(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   bool
	}{
		{"all match", []string{"123", "456"}, true},
		{"one fails", []string{"123", "45x"}, false},
		{"empty values pass the template", []string{"", "1"}, true},
		{"no elements", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, inputs := newPhoneGroup(tt.values...)
			template, _ := NewRegex(nil, "template message", `^\d+$`)
			each, err := NewEach(g, "Digits only", template)
			if err != nil {
				t.Fatal(err)
			}
			if got := each.Validate(); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
			for _, in := range inputs {
				if in.Error() != "" {
					t.Errorf("template set error %q on %s", in.Error(), in.Name())
				}
			}
			if !tt.want && g.Error() != "Digits only" {
				t.Errorf("group error = %q", g.Error())
			}
			if template.Owner() != nil {
				t.Error("template owner should be restored")
			}
		})
	}
}

func TestEachRule_IgnoresTemplateChains(t *testing.T) {
	g, _ := newPhoneGroup("1", "2")
	template, _ := NewNonempty(nil, "", nil)
	failing, _ := NewCallback(nil, "", func(any) bool { return false })
	_ = template.And(failing)

	each, _ := NewEach(g, "", template)
	if !each.Validate() {
		t.Error("chained rules of the template should not run")
	}
}

func TestEachRule_Config(t *testing.T) {
	g := NewGroup("g", nil)
	required, _ := NewRequired(nil, "x", nil)
	if _, err := NewEach(g, "", required); !IsInvalidArgument(err) {
		t.Errorf("required template = %v, want ErrInvalidArgument", err)
	}
	if _, err := NewEach(g, "", nil); !IsInvalidArgument(err) {
		t.Errorf("nil template = %v, want ErrInvalidArgument", err)
	}
	nonempty, _ := NewNonempty(nil, "", nil)
	if _, err := NewEach(NewText("el", nil), "", nonempty); !IsInvalidArgument(err) {
		t.Errorf("non-container owner = %v, want ErrInvalidArgument", err)
	}
}

func TestEachRule_Javascript(t *testing.T) {
	g, _ := newPhoneGroup("1", "2")
	template, _ := NewNonempty(nil, "", nil)
	each, _ := NewEach(g, "", template)

	js := each.javascriptCallback()
	for _, want := range []string{"qf.rules.each([", `qf.$v("p0")`, `qf.$v("p1")`} {
		if !strings.Contains(js, want) {
			t.Errorf("javascriptCallback() missing %q: %s", want, js)
		}
	}
	if strings.Contains(js, "hint") {
		t.Errorf("static elements should be skipped: %s", js)
	}

	numeric, _ := NewNumeric(nil, "")
	serverOnly, _ := NewEach(g, "", numeric)
	if err := g.AddRule(serverOnly, RunAtClient); !IsInvalidArgument(err) {
		t.Errorf("each with a server-only template on client = %v, want ErrInvalidArgument", err)
	}
}

func TestEachRule_NestedContainers(t *testing.T) {
	outer := NewGroup("outer", nil)
	inner := NewGroup("inner", nil)
	first := NewText("a", Attributes{"value": "1"})
	second := NewText("b", Attributes{"value": "x"})
	_ = outer.AppendChild(first)
	_ = outer.AppendChild(inner)
	_ = inner.AppendChild(second)

	template, _ := NewRegex(nil, "", `^\d+$`)
	each, err := NewEach(outer, "Digits only", template)
	if err != nil {
		t.Fatal(err)
	}
	if each.Validate() {
		t.Error("leaf of a nested group should be validated")
	}
	second.SetValue("2")
	if !each.Validate() {
		t.Error("all nested leaves are digits")
	}
}

func TestEachRule_Triggers(t *testing.T) {
	g := NewGroup("g", nil)
	_ = g.AppendChild(NewText("foo", Attributes{"id": "foo"}))
	_ = g.AppendChild(NewText("bar", Attributes{"id": "bar"}))
	template, _ := NewNonempty(nil, "", nil)
	each, _ := NewEach(g, "", template)

	if diff := cmp.Diff([]string{"foo", "bar"}, each.rule().triggers()); diff != "" {
		t.Errorf("triggers mismatch (-want +got):\n%s", diff)
	}
}

func TestEachRule_SkipsElementsTemplateCannotOwn(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"small upload", "ok", true},
		{"large upload", "too large", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := NewForm("upload")
			set := NewFieldset("files", nil)
			_ = form.AppendChild(set)
			_ = set.AppendChild(NewText("title", Attributes{"value": "report"}))
			_ = set.AppendChild(NewInputFile("doc", nil))
			req := newMultipartRequest(t, url.Values{"_qf__upload": {""}}, uploadPart{"doc", "a.txt", "text/plain", tt.content})
			if err := form.BindRequest(req); err != nil {
				t.Fatal(err)
			}

			template, err := NewMaxFileSize(nil, "too big", 4)
			if err != nil {
				t.Fatal(err)
			}
			each, err := NewEach(set, "Files too big", template)
			if err != nil {
				t.Fatal(err)
			}
			if got := each.Validate(); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
			if js := each.javascriptCallback(); js != "" {
				t.Errorf("server-only template produced javascript: %s", js)
			}
		})
	}
}
