package ope

import "math"

// TaskType selects the base output policy.
type TaskType string

// Task types.
const (
	TaskQA        TaskType = "qa"
	TaskExtract   TaskType = "extract"
	TaskSummarize TaskType = "summarize"
)

// Valid reports whether t is a known task type. The empty type means qa.
func (t TaskType) Valid() bool {
	return t == "" || t == TaskQA || t == TaskExtract || t == TaskSummarize
}

// TaskRequirements are the output requirements derived for a request.
type TaskRequirements struct {
	NeedsJSON      bool `json:"needsJson"`
	NeedsCitations bool `json:"needsCitations"`
	MaxWords       int  `json:"maxWords"`
}

// AnalyzeTask derives output requirements from the task type and, when
// available, the prompt analysis. Ambiguity and compound questions widen the
// word budget without changing the base policy.
func AnalyzeTask(task TaskType, analysis *PromptAnalysis) TaskRequirements {
	req := TaskRequirements{NeedsJSON: true}
	switch task {
	case TaskSummarize:
		req.NeedsCitations = true
		req.MaxWords = 180
	case TaskExtract:
		req.NeedsCitations = false
		req.MaxWords = 120
	default:
		req.NeedsCitations = true
		req.MaxWords = 160
	}

	if analysis == nil {
		return req
	}
	if analysis.DetectedDomain == DomainAcademic {
		req.NeedsCitations = true
	}
	factor := 1 + 0.3*analysis.AmbiguityScore
	if analysis.IsCompoundQuestion {
		factor += 0.5
	}
	req.MaxWords = int(math.Round(float64(req.MaxWords) * factor))
	return req
}
