package ope

import (
	"fmt"
	"regexp"
	"strings"
)

// PromptIR is the structured instruction record rendered by Compile.
type PromptIR struct {
	Role         string            `json:"role"`
	Objective    string            `json:"objective"`
	Constraints  []string          `json:"constraints"`
	Style        []string          `json:"style"`
	Steps        []string          `json:"steps"`
	OutputSchema map[string]string `json:"outputSchema"`
	Examples     []ExamplePair     `json:"examples"`
}

const (
	baseRole        = "precise expert"
	minTopicWords   = 5
	wordRangeMargin = 40
)

var topicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhat\s+(?:is|are)\s+([^?.!\n]+)`),
	regexp.MustCompile(`(?i)\bexplain\s+([^?.!\n]+)`),
	regexp.MustCompile(`(?i)\bhow\s+(?:to|does)\s+([^?.!\n]+)`),
}

// Synthesize builds the IR from the enhanced text, the task requirements and
// the optional overlay. It is pure; overlay and examples may be nil.
func Synthesize(enhanced string, req TaskRequirements, overlay *ContextOverlay, examples []ExamplePair) PromptIR {
	low := req.MaxWords - wordRangeMargin
	if low < 0 {
		low = 0
	}
	constraints := []string{
		"json-only",
		"cite-or-say-unknown",
		fmt.Sprintf("%d-%d-words", low, req.MaxWords),
	}
	style := []string{"succinct", "use table only if clearly useful"}
	role := baseRole
	objective := baseObjective(enhanced)

	if overlay != nil {
		constraints = append(constraints, overlay.AdditionalConstraints...)
		style = append(style, overlay.AdditionalStyle...)
		if overlay.RoleSuffix != "" {
			role += " " + overlay.RoleSuffix
		}
		if overlay.ObjectivePrefix != "" {
			objective = overlay.ObjectivePrefix + " " + objective
		}
	}

	ex := make([]ExamplePair, len(examples))
	copy(ex, examples)

	return PromptIR{
		Role:         role,
		Objective:    objective,
		Constraints:  constraints,
		Style:        style,
		Steps:        []string{"analyze", "answer"},
		OutputSchema: OutputSchema(),
		Examples:     ex,
	}
}

func baseObjective(text string) string {
	if topic := extractTopic(text); topic != "" {
		return fmt.Sprintf("Answer about %s accurately and concisely.", topic)
	}
	return "Answer accurately and concisely."
}

// extractTopic returns a best-effort subject phrase, or "" for short texts
// and texts no topic pattern matches.
func extractTopic(text string) string {
	if len(strings.Fields(text)) < minTopicWords {
		return ""
	}
	for _, p := range topicPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if topic := strings.TrimSpace(strings.TrimRight(m[1], " ,;:")); topic != "" {
				return topic
			}
		}
	}
	return ""
}
