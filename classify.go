package ope

import "strings"

// minDomainScore is the lowest score a domain needs to be reported.
const minDomainScore = 1.0

// DomainScore is the per-domain breakdown produced by Classifier.Scores.
type DomainScore struct {
	Domain         DomainID `json:"domain"`
	KeywordMatches int      `json:"keywordMatches"`
	PatternMatches int      `json:"patternMatches"`
	Score          float64  `json:"score"`
	Qualified      bool     `json:"qualified"`
}

// Classifier picks a domain for a request from the pattern tables.
type Classifier struct {
	tables *PatternTables
}

// NewClassifier creates a classifier over the given tables.
// A nil table falls back to DefaultPatterns.
func NewClassifier(tables *PatternTables) *Classifier {
	if tables == nil {
		tables = DefaultPatterns()
	}
	return &Classifier{tables: tables}
}

// Scores returns one entry per domain, in declaration order.
func (c *Classifier) Scores(text string) []DomainScore {
	lower := strings.ToLower(text)
	scores := make([]DomainScore, 0, len(c.tables.Domains))
	for _, entry := range c.tables.Domains {
		scores = append(scores, scoreDomain(entry, text, lower))
	}
	return scores
}

// Classify returns the best matching domain, or DomainNone.
// Ties go to the domain declared first.
func (c *Classifier) Classify(text string) DomainID {
	best := DomainNone
	bestScore := 0.0
	for _, s := range c.Scores(text) {
		if !s.Qualified {
			continue
		}
		if best == DomainNone || s.Score > bestScore {
			best = s.Domain
			bestScore = s.Score
		}
	}
	if best == DomainNone || bestScore < minDomainScore {
		return DomainNone
	}
	return best
}

func scoreDomain(entry DomainPattern, text, lower string) DomainScore {
	s := DomainScore{Domain: entry.Domain}
	for _, kw := range entry.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			s.KeywordMatches++
		}
	}
	for _, p := range entry.Patterns {
		if p.MatchString(text) {
			s.PatternMatches++
		}
	}
	s.Qualified = s.KeywordMatches >= 2 || s.PatternMatches >= 1
	if !s.Qualified {
		return s
	}
	weight := entry.Weight
	if weight <= 0 {
		weight = 1
	}
	s.Score = float64(s.KeywordMatches+2*s.PatternMatches) / weight
	return s
}
