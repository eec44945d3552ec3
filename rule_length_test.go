package hxform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLengthRule(t *testing.T) {
	tests := []struct {
		name   string
		config any
		value  string
		want   bool
	}{
		{"exact match", 3, "abc", true},
		{"exact too short", 3, "ab", false},
		{"empty passes", 3, "", true},
		{"range inside", LengthConfig{Min: 2, Max: 4}, "abc", true},
		{"range below", LengthConfig{Min: 2, Max: 4}, "a", false},
		{"range above", LengthConfig{Min: 2, Max: 4}, "abcde", false},
		{"min only", map[string]any{"min": 8}, "short", false},
		{"max only", map[string]int{"max": 5}, "ok", true},
		{"list limits", []any{1, 3}, "abcd", false},
		{"counts characters", 5, "héllo", true},
		{"normalizes combining marks", 5, "he\u0301llo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewLength(withValue(tt.value), "", tt.config)
			if err != nil {
				t.Fatal(err)
			}
			if got := r.Validate(); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestLengthRule_Config(t *testing.T) {
	tests := []struct {
		name   string
		config any
		want   any
	}{
		{"exact", 4, 4},
		{"exact from string", "4", 4},
		{"swapped limits", []any{5, 3}, LengthConfig{Min: 3, Max: 5}},
		{"int list", []int{2}, LengthConfig{Min: 2}},
		{"pointer", &LengthConfig{Max: 9}, LengthConfig{Max: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewLength(withValue(""), "", tt.config)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, r.Config()); diff != "" {
				t.Errorf("Config() mismatch (-want +got):\n%s", diff)
			}
		})
	}

	for _, bad := range []any{nil, 0, -2, "x", map[string]any{}, map[string]any{"min": 0, "max": 0}, []any{-1, 3}, map[string]any{"min": "a"}} {
		if _, err := NewLength(withValue(""), "", bad); !IsInvalidArgument(err) {
			t.Errorf("NewLength(%v) = %v, want ErrInvalidArgument", bad, err)
		}
	}
}

func TestMergeLengthConfig(t *testing.T) {
	tests := []struct {
		name          string
		local, global any
		want          any
	}{
		{"no registered config", 3, nil, 3},
		{"registered exact wins", LengthConfig{Min: 1, Max: 9}, 4, 4},
		{"registered max over local min", map[string]any{"min": 2}, map[string]any{"max": 6}, LengthConfig{Min: 2, Max: 6}},
		{"local exact counts as min", 3, map[string]any{"max": 10}, LengthConfig{Min: 3, Max: 10}},
		{"registered min overrides", []any{1, 8}, map[string]any{"min": 5}, LengthConfig{Min: 5, Max: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergeLengthConfig(tt.local, tt.global)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("merged config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLengthRule_Javascript(t *testing.T) {
	r, _ := NewLength(NewText("code", nil), "", 6)
	want := `function() { return qf.rules.length(qf.$v("code"), 6, 6); }`
	if got := r.javascriptCallback(); got != want {
		t.Errorf("javascriptCallback() = %s, want %s", got, want)
	}
}
