package ope

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// EnhanceMode selects whether rule-based enhancement runs.
type EnhanceMode string

// Enhancement modes.
const (
	EnhanceRules EnhanceMode = "rules"
	EnhanceNone  EnhanceMode = "none"
)

// Valid reports whether m is a known mode. The empty mode is valid and means rules.
func (m EnhanceMode) Valid() bool {
	return m == "" || m == EnhanceRules || m == EnhanceNone
}

// Enhancement tags, recorded in the order the steps run.
const (
	TagStructuredCompound   = "structured_compound_question"
	TagClarityImprovement   = "clarity_improvement"
	TagDefinitionExpanded   = "definition_question_expanded"
	TagDomainDetectedPrefix = "domain_detected:"
	TagExamplesSuggested    = "examples_suggested"
	TagUserStoryStructured  = "user_story_structured"
)

// Thresholds used by the clarity and definition steps.
const (
	clarityThreshold     = 0.5
	veryShortLen         = 15
	veryShortAmbiguity   = 0.7
	maxDefinitionTermLen = 80
)

// PromptAnalysis is computed once per request from the raw text.
type PromptAnalysis struct {
	DetectedDomain     DomainID      `json:"detectedDomain,omitempty"`
	IsCompoundQuestion bool          `json:"isCompoundQuestion"`
	AmbiguityScore     float64       `json:"ambiguityScore"`
	VagueTerms         []string      `json:"vagueTerms,omitempty"`
	SuggestedExamples  []ExamplePair `json:"suggestedExamples"`
}

// EnhancementResult is the audit record of one enhancement pass.
type EnhancementResult struct {
	OriginalPrompt      string         `json:"originalPrompt"`
	EnhancedPrompt      string         `json:"enhancedPrompt"`
	Analysis            PromptAnalysis `json:"analysis"`
	EnhancementsApplied []string       `json:"enhancementsApplied"`
}

// Applied reports whether any enhancement tag was recorded.
func (r EnhancementResult) Applied() bool {
	return len(r.EnhancementsApplied) > 0
}

var (
	danglingReference  = regexp.MustCompile(`(?i)\b(?:fix|explain|help(?:\s+me)?\s+with)\s+(it|this|that)\b`)
	definitionQuestion = regexp.MustCompile(`(?i)^\s*what\s+is\s+([^?\n]+?)\s*\?\s*$`)
	guidanceMarkers    = []string{"please provide", "include", "use cases", "\n"}

	userStoryStrict = regexp.MustCompile(`(?is)^\s*as\s+an?\s+(.+?),?\s+i\s+(?:want|need)(?:\s+to)?\s+(.+?)(?:,?\s+so\s+that\s+(.+?))?\s*[.!]?\s*$`)
	userStoryWant   = regexp.MustCompile(`(?i)\bi\s+want\s+to\s+([^.\n]+)`)
	userStoryActor  = regexp.MustCompile(`(?i)\bas\s+an?\s+([a-z][a-z -]*?)(?:[,.]|\s+i\b|$)`)
)

const (
	shortClarificationNote = "\n\n(Note: this request is very brief. Please add context about what you are trying to achieve and what a good answer looks like.)"
	danglingNoteFormat     = "\n\n(Note: please specify what %q refers to and the outcome you expect.)"
	definitionSuffix       = " Please explain its purpose and main use cases."
)

// definitionTemplates holds hand-authored expansions keyed by domain and
// lowercase term.
var definitionTemplates = map[DomainID]map[string]string{
	DomainCode: {
		"kubernetes": `What is Kubernetes?

Please cover:
1. Core purpose: the problem Kubernetes solves for running containers at scale
2. Key components: control plane, nodes, pods, services and deployments
3. Main use cases: autoscaling, self-healing workloads and rolling updates
4. Trade-offs: when Kubernetes is overkill and common lighter alternatives`,
	},
}

// Enhancer orchestrates the analyzers and the deterministic rewrites.
type Enhancer struct {
	tables     *PatternTables
	classifier *Classifier
	scorer     *AmbiguityScorer
	compound   *CompoundDetector
}

// NewEnhancer creates an enhancer over the given tables.
// A nil table falls back to DefaultPatterns.
func NewEnhancer(tables *PatternTables) *Enhancer {
	if tables == nil {
		tables = DefaultPatterns()
	}
	return &Enhancer{
		tables:     tables,
		classifier: NewClassifier(tables),
		scorer:     NewAmbiguityScorer(tables),
		compound:   NewCompoundDetector(tables),
	}
}

// Analyze runs the three analyzers over the raw text.
func (e *Enhancer) Analyze(text string) PromptAnalysis {
	domain := e.classifier.Classify(text)
	ambiguity := e.scorer.Score(text)
	examples := e.tables.ExamplesFor(domain)
	if examples == nil {
		examples = []ExamplePair{}
	}
	return PromptAnalysis{
		DetectedDomain:     domain,
		IsCompoundQuestion: e.compound.IsCompound(text),
		AmbiguityScore:     ambiguity.Value,
		VagueTerms:         ambiguity.MatchedVagueTerms,
		SuggestedExamples:  examples,
	}
}

// enhanceStep rewrites the working text and reports the tags it earned.
// Steps receive the raw text too; only the user story step reads it.
type enhanceStep func(working, original string, a PromptAnalysis) (string, []string)

// Enhance produces the improved prompt and its audit trail.
// In EnhanceNone mode the analysis is still computed but the text is untouched.
func (e *Enhancer) Enhance(text string, mode EnhanceMode) EnhancementResult {
	analysis := e.Analyze(text)
	result := EnhancementResult{
		OriginalPrompt:      text,
		EnhancedPrompt:      text,
		Analysis:            analysis,
		EnhancementsApplied: []string{},
	}
	if mode == EnhanceNone {
		return result
	}

	steps := []enhanceStep{
		e.structureStep,
		clarityStep,
		definitionStep,
		annotateStep,
		userStoryStep,
	}

	working := text
	tags := []string{}
	for _, step := range steps {
		next, added := step(working, text, analysis)
		working = next
		tags = append(tags, added...)
	}

	result.EnhancedPrompt = working
	result.EnhancementsApplied = tags
	return result
}

func (e *Enhancer) structureStep(working, _ string, a PromptAnalysis) (string, []string) {
	if !a.IsCompoundQuestion {
		return working, nil
	}
	structured, ok := e.compound.Structure(working)
	if !ok {
		return working, nil
	}
	return structured, []string{TagStructuredCompound}
}

func clarityStep(working, _ string, a PromptAnalysis) (string, []string) {
	if a.AmbiguityScore < clarityThreshold {
		return working, nil
	}
	if len(strings.TrimSpace(working)) < veryShortLen && a.AmbiguityScore > veryShortAmbiguity {
		return working + shortClarificationNote, []string{TagClarityImprovement}
	}
	if m := danglingReference.FindStringSubmatch(working); m != nil {
		return working + fmt.Sprintf(danglingNoteFormat, strings.ToLower(m[1])), []string{TagClarityImprovement}
	}
	return working, nil
}

func definitionStep(working, _ string, a PromptAnalysis) (string, []string) {
	if a.DetectedDomain == DomainNone || a.IsCompoundQuestion {
		return working, nil
	}
	lower := strings.ToLower(working)
	for _, marker := range guidanceMarkers {
		if strings.Contains(lower, marker) {
			return working, nil
		}
	}
	m := definitionQuestion.FindStringSubmatch(working)
	if m == nil {
		return working, nil
	}
	term := strings.TrimSpace(m[1])
	if term == "" || utf8.RuneCountInString(term) > maxDefinitionTermLen {
		return working, nil
	}
	if tmpl, ok := definitionTemplates[a.DetectedDomain][strings.ToLower(term)]; ok {
		return tmpl, []string{TagDefinitionExpanded}
	}
	return strings.TrimRight(working, " \t") + definitionSuffix, []string{TagDefinitionExpanded}
}

func annotateStep(working, _ string, a PromptAnalysis) (string, []string) {
	if a.DetectedDomain == DomainNone {
		return working, nil
	}
	tags := []string{TagDomainDetectedPrefix + string(a.DetectedDomain)}
	if len(a.SuggestedExamples) > 0 {
		tags = append(tags, TagExamplesSuggested)
	}
	return working, tags
}

// userStoryStep always reads the raw text and replaces whatever earlier steps built.
func userStoryStep(working, original string, _ PromptAnalysis) (string, []string) {
	story, ok := parseUserStory(original)
	if !ok {
		return working, nil
	}
	return formatUserStory(story, original), []string{TagUserStoryStructured}
}

type userStory struct {
	Actor   string
	Action  string
	Benefit string
}

func parseUserStory(text string) (userStory, bool) {
	if m := userStoryStrict.FindStringSubmatch(text); m != nil {
		return userStory{
			Actor:   strings.TrimSpace(m[1]),
			Action:  strings.TrimSpace(m[2]),
			Benefit: strings.TrimSpace(m[3]),
		}, true
	}

	want := userStoryWant.FindStringSubmatch(text)
	actor := userStoryActor.FindStringSubmatch(text)
	if want == nil || actor == nil {
		return userStory{}, false
	}
	action := strings.TrimSpace(want[1])
	if idx := strings.Index(strings.ToLower(action), " as a"); idx > 0 {
		action = strings.TrimSpace(action[:idx])
	}
	return userStory{
		Actor:  strings.TrimSpace(actor[1]),
		Action: strings.TrimRight(action, ",;"),
	}, true
}

func formatUserStory(s userStory, original string) string {
	benefit := s.Benefit
	if benefit == "" {
		benefit = "(not stated)"
	}
	return fmt.Sprintf(`Write a specification for the following user story.

User story:
- Actor: %s
- Goal: %s
- Benefit: %s

Original request: %s

Provide:
1. Acceptance criteria
2. The main flow and its edge cases
3. Open questions to confirm before implementation`, s.Actor, s.Action, benefit, original)
}

// FormatEnhancementSummary renders the enhanced prompt together with a
// visible list of the enhancements applied. It is a display helper; the
// pipeline never feeds its output to a model.
func FormatEnhancementSummary(r EnhancementResult) string {
	var b strings.Builder
	b.WriteString("[Enhanced prompt]\n")
	b.WriteString(r.EnhancedPrompt)
	b.WriteString("\n\n[Enhancements applied]\n")
	if len(r.EnhancementsApplied) == 0 {
		b.WriteString("- none\n")
	}
	for _, tag := range r.EnhancementsApplied {
		b.WriteString("- " + tag + "\n")
	}
	if r.Analysis.DetectedDomain != DomainNone {
		b.WriteString(fmt.Sprintf("\nDomain: %s", r.Analysis.DetectedDomain))
	}
	b.WriteString(fmt.Sprintf("\nAmbiguity: %.2f", r.Analysis.AmbiguityScore))
	return b.String()
}
