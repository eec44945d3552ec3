package hxform

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"foo", []string{"foo"}},
		{"foo[bar]", []string{"foo", "bar"}},
		{"foo[bar][0]", []string{"foo", "bar", "0"}},
		{"files[]", []string{"files", ""}},
		{"[odd]", []string{"[odd]"}},
		{"open[end", []string{"open", "end"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, splitName(tt.name)); diff != "" {
				t.Errorf("splitName(%q) mismatch (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}

func TestLookupName(t *testing.T) {
	values := map[string]any{
		"user": "ada",
		"address": map[string]any{
			"city": "Paris",
			"lines": []any{"1 Rue", "Apt 2"},
		},
		"tags": []string{"go", "htmx"},
	}

	tests := []struct {
		name  string
		want  any
		found bool
	}{
		{"user", "ada", true},
		{"address[city]", "Paris", true},
		{"address[lines][1]", "Apt 2", true},
		{"address[lines][]", "1 Rue", true},
		{"tags[1]", "htmx", true},
		{"tags[9]", nil, false},
		{"address[zip]", nil, false},
		{"user[first]", nil, false},
		{"missing", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := lookupName(values, tt.name)
			if found != tt.found {
				t.Fatalf("lookupName(%q) found = %v, want %v", tt.name, found, tt.found)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("lookupName(%q) mismatch (-want +got):\n%s", tt.name, diff)
			}
		})
	}

	if _, found := lookupName(nil, "user"); found {
		t.Error("lookup in nil values should not find anything")
	}
}

func TestParseValues(t *testing.T) {
	src := url.Values{
		"user":          {"first", "last"},
		"address[city]": {"Paris"},
		"address[zip]":  {"75001"},
		"tags[]":        {"go", "htmx"},
		"rows[][name]":  {"a"},
		"empty":         {},
	}

	want := map[string]any{
		"user": "last",
		"address": map[string]any{
			"city": "Paris",
			"zip":  "75001",
		},
		"tags": []any{"go", "htmx"},
		"rows": map[string]any{
			"0": map[string]any{"name": "a"},
		},
	}
	if diff := cmp.Diff(want, parseValues(src)); diff != "" {
		t.Errorf("parseValues mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeValues(t *testing.T) {
	dst := map[string]any{
		"user":    "ada",
		"address": map[string]any{"city": "Paris", "zip": "75001"},
	}
	src := map[string]any{
		"address": map[string]any{"city": "Lyon"},
		"tags":    []any{"go"},
	}

	want := map[string]any{
		"user":    "ada",
		"address": map[string]any{"city": "Lyon", "zip": "75001"},
		"tags":    []any{"go"},
	}
	if diff := cmp.Diff(want, mergeValues(dst, src)); diff != "" {
		t.Errorf("mergeValues mismatch (-want +got):\n%s", diff)
	}

	nested := map[string]any{"a": map[string]any{"b": "c"}}
	got := mergeValues(nil, nested)
	got["a"].(map[string]any)["b"] = "changed"
	if nested["a"].(map[string]any)["b"] != "c" {
		t.Error("mergeValues into nil should copy nested maps")
	}
}

func TestToStrings(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, nil},
		{"string", "a", []string{"a"}},
		{"strings", []string{"a", "b"}, []string{"a", "b"}},
		{"any list", []any{"a", 2, true}, []string{"a", "2", "1"}},
		{"map in key order", map[string]any{"b": "2", "a": "1"}, []string{"1", "2"}},
		{"int", 7, []string{"7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, toStrings(tt.in)); diff != "" {
				t.Errorf("toStrings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCountNonEmpty(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"nil", nil, 0},
		{"empty string", "", 0},
		{"string", "x", 1},
		{"strings", []string{"a", "", "b"}, 2},
		{"nested", map[string]any{"a": "1", "b": map[string]any{"c": "", "d": []any{"x", ""}}}, 2},
		{"false", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countNonEmpty(tt.in); got != tt.want {
				t.Errorf("countNonEmpty(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestJSString(t *testing.T) {
	if got, want := jsString(`say "hi"`), `"say \"hi\""`; got != want {
		t.Errorf("jsString = %s, want %s", got, want)
	}
	if got := jsValue(func() {}); got != "null" {
		t.Errorf("jsValue of unencodable value = %s, want null", got)
	}
}
