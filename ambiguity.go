package ope

// AmbiguityReport is the outcome of scoring a request for vagueness.
type AmbiguityReport struct {
	Value             float64  `json:"value"`
	MatchedVagueTerms []string `json:"matchedVagueTerms"`
}

// AmbiguityScorer measures how underspecified a request is.
//
// The score is a plain additive heuristic: every matching vague term adds its
// fixed weight and short texts add a length penalty. There is no
// normalization, so short vague prompts saturate near 1.0.
type AmbiguityScorer struct {
	tables *PatternTables
}

// NewAmbiguityScorer creates a scorer over the given tables.
// A nil table falls back to DefaultPatterns.
func NewAmbiguityScorer(tables *PatternTables) *AmbiguityScorer {
	if tables == nil {
		tables = DefaultPatterns()
	}
	return &AmbiguityScorer{tables: tables}
}

// Score returns a value in [0,1] and the vague terms that matched.
func (s *AmbiguityScorer) Score(text string) AmbiguityReport {
	total := 0.0
	matched := []string{}
	for _, term := range s.tables.Vague {
		if term.Pattern.MatchString(text) {
			total += term.Score
			matched = append(matched, term.Term)
		}
	}

	switch n := len(text); {
	case n < 20:
		total += 0.3
	case n < 50:
		total += 0.1
	}

	return AmbiguityReport{Value: clamp01(total), MatchedVagueTerms: matched}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
