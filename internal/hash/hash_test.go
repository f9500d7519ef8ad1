package hash

import (
	"strings"
	"testing"
)

func TestContentIsDeterministic(t *testing.T) {
	a := Content("hello world")
	b := Content("hello world")

	if a != b {
		t.Errorf("Expected equal digests for equal input, got %s and %s", a, b)
	}

	if !strings.HasPrefix(a, PrefixSHA256) {
		t.Errorf("Expected digest to carry the %q prefix, got %s", PrefixSHA256, a)
	}
}

func TestContentDiffersForDifferentInput(t *testing.T) {
	a := Content("hello world")
	b := Content("hello world!")

	if a == b {
		t.Errorf("Expected different digests for different input, both were %s", a)
	}
}

func TestContentOfEmptyText(t *testing.T) {
	digest := Content("")
	if digest == "" {
		t.Error("Expected a non-empty digest for empty text")
	}
	if digest == Content(" ") {
		t.Error("Expected empty text and a single space to hash differently")
	}
}

func TestFallbackNeverMatchesSHA256(t *testing.T) {
	text := "same input"
	if Content(text) == ContentFallback(text) {
		t.Error("Expected sha256 and fnv digests of the same text to differ")
	}
	if !strings.HasPrefix(ContentFallback(text), PrefixFNV) {
		t.Errorf("Expected fallback digest to carry the %q prefix", PrefixFNV)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"both set and equal", Content("x"), Content("x"), true},
		{"both set and different", Content("x"), Content("y"), false},
		{"left empty", "", Content("x"), false},
		{"right empty", Content("x"), "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
