package ope

import (
	"strings"
	"testing"
)

func TestCompoundDetector_IsCompound(t *testing.T) {
	d := NewCompoundDetector(nil)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"two questions", "What is X? And also what is Y?", true},
		{"question marks only", "Why? How?", true},
		{"and then", "Build the image and then push it to the registry", true},
		{"numbered list", "Please do 1. parse the file 2. count the words", true},
		{"serial list", "Compare apples, oranges, and pears", true},
		{"single question", "What is the capital of France?", false},
		{"single and", "Salt and pepper", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsCompound(tt.text); got != tt.want {
				t.Errorf("IsCompound(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCompoundDetector_Structure(t *testing.T) {
	d := NewCompoundDetector(nil)

	t.Run("question connector", func(t *testing.T) {
		got, ok := d.Structure("What is X? And also what is Y?")
		if !ok {
			t.Fatal("expected the text to be structured")
		}
		lines := strings.Split(got, "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
		}
		if lines[0] != "1. What is X?" {
			t.Errorf("unexpected first line %q", lines[0])
		}
		if lines[1] != "2. what is Y?" {
			t.Errorf("unexpected second line %q", lines[1])
		}
	})

	t.Run("and then", func(t *testing.T) {
		got, ok := d.Structure("Build the container image and then push it to the registry")
		if !ok {
			t.Fatal("expected the text to be structured")
		}
		want := "1. Build the container image\n2. push it to the registry"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("bare and fallback", func(t *testing.T) {
		got, ok := d.Structure("Summarize the quarterly report and draft a reply to the board")
		if !ok {
			t.Fatal("expected the bare and split to apply")
		}
		want := "1. Summarize the quarterly report\n2. draft a reply to the board"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("short parts rejected", func(t *testing.T) {
		text := "Salt and pepper"
		got, ok := d.Structure(text)
		if ok {
			t.Errorf("expected no structuring, got %q", got)
		}
		if got != text {
			t.Errorf("expected text unchanged, got %q", got)
		}
	})

	t.Run("three parts", func(t *testing.T) {
		got, ok := d.Structure("What is Go? And what is Rust? And then compare them")
		if !ok {
			t.Fatal("expected the text to be structured")
		}
		if n := len(strings.Split(got, "\n")); n != 3 {
			t.Errorf("expected 3 lines, got %d: %q", n, got)
		}
	})
}
