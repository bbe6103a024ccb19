package ope

import (
	"regexp"
	"slices"
)

// DomainID names a coarse topic category. The empty DomainID means none.
type DomainID string

// Known domains, in declaration order.
const (
	DomainNone     DomainID = ""
	DomainCode     DomainID = "code"
	DomainMedical  DomainID = "medical"
	DomainLegal    DomainID = "legal"
	DomainAcademic DomainID = "academic"
	DomainBusiness DomainID = "business"
	DomainCreative DomainID = "creative"
)

// DomainPattern describes how a domain is recognized.
// Keywords are matched case-insensitively by containment.
type DomainPattern struct {
	Domain   DomainID
	Keywords []string
	Patterns []*regexp.Regexp
	Weight   float64
}

// VagueTerm is a single vagueness rule with its fixed contribution.
type VagueTerm struct {
	Term    string
	Pattern *regexp.Regexp
	Score   float64
}

// ExamplePair is a user/assistant demonstration attached to a domain.
type ExamplePair struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// PatternTables holds the static data the analyzers run against.
// Tables are read-only once built and safe for concurrent use.
type PatternTables struct {
	Domains  []DomainPattern
	Vague    []VagueTerm
	Compound []*regexp.Regexp
	Examples map[DomainID][]ExamplePair
}

// ExamplesFor returns a copy of the example pairs for a domain, or nil.
func (t *PatternTables) ExamplesFor(domain DomainID) []ExamplePair {
	if t == nil || domain == DomainNone {
		return nil
	}
	return slices.Clone(t.Examples[domain])
}

// DefaultPatterns returns the built-in tables.
func DefaultPatterns() *PatternTables {
	return defaultPatterns
}

func re(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

var defaultPatterns = &PatternTables{
	Domains: []DomainPattern{
		{
			Domain: DomainCode,
			Keywords: []string{
				"function", "javascript", "typescript", "python", "golang", "array",
				"algorithm", "compile", "variable", "database", "script", "refactor",
				"regex", "recursion", "endpoint", "debug", "unit test", "source code",
			},
			Patterns: []*regexp.Regexp{
				re(`(?i)\b(?:write|implement|create|build)\s+(?:a\s+|an\s+|the\s+)?(?:function|class|method|script|program|endpoint)\b`),
				re(`(?i)\b(?:javascript|typescript|python|golang|java|rust|kotlin|swift|c\+\+)\b`),
				re(`(?i)\b(?:kubernetes|docker|terraform|graphql|git)\b`),
				re(`(?i)\b(?:stack\s*trace|segfault|null pointer|exception)\b`),
			},
			Weight: 1.0,
		},
		{
			Domain: DomainMedical,
			Keywords: []string{
				"symptom", "diagnosis", "treatment", "medication", "disease", "patient",
				"doctor", "dosage", "clinical", "therapy", "infection", "chronic",
				"prescription",
			},
			Patterns: []*regexp.Regexp{
				re(`(?i)\b(?:side effects?|blood pressure|heart rate|blood sugar)\b`),
				re(`(?i)\b\d+\s*(?:mg|milligrams?)\b`),
			},
			Weight: 1.2,
		},
		{
			Domain: DomainLegal,
			Keywords: []string{
				"contract", "lawsuit", "liability", "statute", "attorney", "lawyer",
				"court", "legal", "plaintiff", "defendant", "copyright", "trademark",
				"jurisdiction", "clause", "compliance",
			},
			Patterns: []*regexp.Regexp{
				re(`(?i)\b(?:is it legal|terms of service|intellectual property|gdpr)\b`),
				re(`(?i)\b(?:sue|sued|suing)\b`),
			},
			Weight: 1.2,
		},
		{
			Domain: DomainAcademic,
			Keywords: []string{
				"research", "thesis", "citation", "peer-reviewed", "journal",
				"hypothesis", "methodology", "dissertation", "academic", "scholarly",
				"paper",
			},
			Patterns: []*regexp.Regexp{
				re(`(?i)\b(?:literature review|systematic review|meta-analysis)\b`),
				re(`(?i)\b(?:cite|bibliography|apa style|mla style)\b`),
			},
			Weight: 1.0,
		},
		{
			Domain: DomainBusiness,
			Keywords: []string{
				"revenue", "marketing", "startup", "customer", "strategy", "profit",
				"sales", "investor", "budget", "pricing", "competitor", "stakeholder",
			},
			Patterns: []*regexp.Regexp{
				re(`(?i)\b(?:roi|kpis?|b2b|b2c|saas|go-to-market)\b`),
				re(`(?i)\bbusiness\s+(?:plan|model|case)\b`),
			},
			Weight: 1.1,
		},
		{
			Domain: DomainCreative,
			Keywords: []string{
				"poem", "story", "novel", "character", "plot", "lyrics", "fiction",
				"creative", "haiku", "screenplay",
			},
			Patterns: []*regexp.Regexp{
				re(`(?i)\bwrite\s+(?:me\s+)?(?:a\s+|an\s+)?(?:poem|story|song|haiku|limerick|short story)\b`),
			},
			Weight: 1.0,
		},
	},
	Vague: []VagueTerm{
		{Term: "help", Pattern: re(`(?i)^\W*help\W*$`), Score: 0.9},
		{Term: "help me", Pattern: re(`(?i)^\W*help\s+me\W*$`), Score: 0.8},
		{Term: "it", Pattern: re(`(?i)\b(?:fix|explain|help(?:\s+me)?\s+with|do|make|change|improve|check|update|look\s+at)\s+it\b`), Score: 0.7},
		{Term: "this", Pattern: re(`(?i)\b(?:fix|explain|help(?:\s+me)?\s+with|do|make|change|improve|check|update|look\s+at)\s+this\W*$`), Score: 0.8},
		{Term: "that", Pattern: re(`(?i)\b(?:fix|explain|help(?:\s+me)?\s+with|do|make|change|improve|check|update|look\s+at)\s+that\W*$`), Score: 0.8},
		{Term: "better", Pattern: re(`(?i)\bmake\s+(?:it|this|that)\s+better\b`), Score: 0.6},
		{Term: "whatever", Pattern: re(`(?i)\bwhatever\b`), Score: 0.6},
		{Term: "something", Pattern: re(`(?i)\bsomething\b`), Score: 0.5},
		{Term: "anything", Pattern: re(`(?i)\banything\b`), Score: 0.5},
		{Term: "stuff", Pattern: re(`(?i)\bstuff\b`), Score: 0.5},
		{Term: "things", Pattern: re(`(?i)\bthings?\b`), Score: 0.4},
		{Term: "etc", Pattern: re(`(?i)\betc\b`), Score: 0.4},
		{Term: "kind of", Pattern: re(`(?i)\b(?:kind of|sort of)\b`), Score: 0.4},
	},
	Compound: []*regexp.Regexp{
		re(`(?i)\?\s*(?:and|also|then)\b`),
		re(`(?i)\band\s+(?:also|then)\b`),
		re(`(?s)(?:^|\s)1[.)]\s+\S.*\s2[.)]\s+\S`),
		re(`(?i)\w+,\s*\w+,?\s+(?:and|or)\s+\w+`),
		re(`(?i)\band\b.{10,}\band\b`),
	},
	Examples: map[DomainID][]ExamplePair{
		DomainCode: {
			{
				User:      "Write a function that reverses a string in Python",
				Assistant: `{"answer":"def reverse(s: str) -> str:\n    return s[::-1]","citations":["https://docs.python.org/3/library/stdtypes.html#common-sequence-operations"]}`,
			},
		},
		DomainAcademic: {
			{
				User:      "Summarize the main finding of a study on sleep and memory",
				Assistant: `{"answer":"Sleep after learning improves retention compared with equal time awake.","citations":["https://doi.org/10.1038/nrn2762"]}`,
			},
		},
	},
}
