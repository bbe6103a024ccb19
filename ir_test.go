package ope

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSynthesize(t *testing.T) {
	req := TaskRequirements{NeedsJSON: true, NeedsCitations: true, MaxWords: 160}

	t.Run("defaults", func(t *testing.T) {
		got := Synthesize("What is Kubernetes?", req, nil, nil)
		want := PromptIR{
			Role:         "precise expert",
			Objective:    "Answer accurately and concisely.",
			Constraints:  []string{"json-only", "cite-or-say-unknown", "120-160-words"},
			Style:        []string{"succinct", "use table only if clearly useful"},
			Steps:        []string{"analyze", "answer"},
			OutputSchema: map[string]string{"answer": "string", "citations": "string[]"},
			Examples:     []ExamplePair{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Synthesize mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("overlay", func(t *testing.T) {
		overlay := &ContextOverlay{
			RoleSuffix:            "specializing in databases",
			ObjectivePrefix:       "Be exact.",
			AdditionalConstraints: []string{"name-the-engine"},
			AdditionalStyle:       []string{"use SQL examples"},
		}
		examples := []ExamplePair{{User: "u", Assistant: "a"}}
		got := Synthesize("What are the tradeoffs of database indexes in Postgres?", req, overlay, examples)

		if got.Role != "precise expert specializing in databases" {
			t.Errorf("unexpected role %q", got.Role)
		}
		wantObjective := "Be exact. Answer about the tradeoffs of database indexes in Postgres accurately and concisely."
		if got.Objective != wantObjective {
			t.Errorf("got objective %q, want %q", got.Objective, wantObjective)
		}
		wantConstraints := []string{"json-only", "cite-or-say-unknown", "120-160-words", "name-the-engine"}
		if diff := cmp.Diff(wantConstraints, got.Constraints); diff != "" {
			t.Errorf("constraints mismatch (-want +got):\n%s", diff)
		}
		wantStyle := []string{"succinct", "use table only if clearly useful", "use SQL examples"}
		if diff := cmp.Diff(wantStyle, got.Style); diff != "" {
			t.Errorf("style mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(examples, got.Examples); diff != "" {
			t.Errorf("examples mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("overlay slices are not shared", func(t *testing.T) {
		overlay := &ContextOverlay{AdditionalConstraints: []string{"a"}}
		first := Synthesize("x", req, overlay, nil)
		first.Constraints[3] = "mutated"
		if overlay.AdditionalConstraints[0] != "a" {
			t.Error("synthesized constraints alias the overlay")
		}
	})
}

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"What is Kubernetes?", ""},
		{"What are the main differences between TCP and UDP?", "the main differences between TCP and UDP"},
		{"Can you explain how TCP congestion control works in practice", "how TCP congestion control works in practice"},
		{"Tell me how to configure a reverse proxy with nginx.", "configure a reverse proxy with nginx"},
		{"Please summarize this quarterly sales report for me", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := extractTopic(tt.text); got != tt.want {
				t.Errorf("extractTopic(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
