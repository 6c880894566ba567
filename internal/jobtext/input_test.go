package jobtext

import (
	"strings"
	"testing"
)

func TestResolveText(t *testing.T) {
	if got := Text("  Senior Go Engineer  ").Resolve(); got != "Senior Go Engineer" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolveStructuredOrder(t *testing.T) {
	in := Structured(map[string]string{
		"requirements": "5 years Go",
		"title":        "Backend Engineer",
		"company":      "Acme",
		"description":  "Build services",
	})

	got := in.Resolve()
	lines := strings.Split(got, "\n")
	want := []string{
		"Title: Backend Engineer",
		"Company: Acme",
		"Description: Build services",
		"Requirements: 5 years Go",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestResolveStructuredDeterministic(t *testing.T) {
	m := map[string]string{"zeta": "z", "alpha": "a", "title": "T"}
	first := Structured(m).Resolve()
	for i := 0; i < 10; i++ {
		if got := Structured(m).Resolve(); got != first {
			t.Fatalf("Resolve not deterministic: %q vs %q", got, first)
		}
	}
	// Known field leads, unknown fields follow alphabetically.
	if !strings.HasPrefix(first, "Title: T\nAlpha: a\nZeta: z") {
		t.Errorf("unexpected order: %q", first)
	}
}

func TestResolveStructuredSkipsBlanks(t *testing.T) {
	in := Structured(map[string]string{"title": "X", "company": "   "})
	if got := in.Resolve(); got != "Title: X" {
		t.Errorf("Resolve = %q, want %q", got, "Title: X")
	}
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		in   Input
		want bool
	}{
		{Text(""), true},
		{Text("   "), true},
		{Text("x"), false},
		{Structured(nil), true},
		{Structured(map[string]string{"title": " "}), true},
		{Structured(map[string]string{"title": "x"}), false},
	}
	for _, tt := range tests {
		if got := tt.in.IsEmpty(); got != tt.want {
			t.Errorf("IsEmpty(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromPDFMissingFile(t *testing.T) {
	if _, err := FromPDF(t.TempDir() + "/absent.pdf"); err == nil {
		t.Error("expected error for missing pdf")
	}
}
