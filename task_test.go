package ope

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnalyzeTask(t *testing.T) {
	tests := []struct {
		name     string
		task     TaskType
		analysis *PromptAnalysis
		want     TaskRequirements
	}{
		{"qa", TaskQA, nil, TaskRequirements{NeedsJSON: true, NeedsCitations: true, MaxWords: 160}},
		{"default", "", nil, TaskRequirements{NeedsJSON: true, NeedsCitations: true, MaxWords: 160}},
		{"summarize", TaskSummarize, nil, TaskRequirements{NeedsJSON: true, NeedsCitations: true, MaxWords: 180}},
		{"extract", TaskExtract, nil, TaskRequirements{NeedsJSON: true, NeedsCitations: false, MaxWords: 120}},
		{
			"academic forces citations",
			TaskExtract,
			&PromptAnalysis{DetectedDomain: DomainAcademic},
			TaskRequirements{NeedsJSON: true, NeedsCitations: true, MaxWords: 120},
		},
		{
			"ambiguity widens",
			TaskQA,
			&PromptAnalysis{AmbiguityScore: 1},
			TaskRequirements{NeedsJSON: true, NeedsCitations: true, MaxWords: 208},
		},
		{
			"compound widens",
			TaskSummarize,
			&PromptAnalysis{AmbiguityScore: 0.5, IsCompoundQuestion: true},
			TaskRequirements{NeedsJSON: true, NeedsCitations: true, MaxWords: 297},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeTask(tt.task, tt.analysis)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AnalyzeTask mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTaskType_Valid(t *testing.T) {
	for _, tt := range []TaskType{"", TaskQA, TaskExtract, TaskSummarize} {
		if !tt.Valid() {
			t.Errorf("expected %q to be valid", tt)
		}
	}
	if TaskType("translate").Valid() {
		t.Error("expected unknown task type to be invalid")
	}
}
