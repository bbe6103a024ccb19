package ope

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	connectorSplit = regexp.MustCompile(`(?i)\?\s*(?:and\s+(?:also|then)|and|also|then)\b\s*|\s*\band\s+(?:also|then)\b\s*`)
	bareAndSplit   = regexp.MustCompile(`(?i)\s+\band\b\s+`)
)

// minFallbackPartLen is the length every part of a bare "and" split must exceed.
const minFallbackPartLen = 10

// CompoundDetector finds multi-part asks and rewrites them as numbered items.
type CompoundDetector struct {
	tables *PatternTables
}

// NewCompoundDetector creates a detector over the given tables.
// A nil table falls back to DefaultPatterns.
func NewCompoundDetector(tables *PatternTables) *CompoundDetector {
	if tables == nil {
		tables = DefaultPatterns()
	}
	return &CompoundDetector{tables: tables}
}

// IsCompound reports whether text asks more than one thing.
func (d *CompoundDetector) IsCompound(text string) bool {
	if strings.Count(text, "?") >= 2 {
		return true
	}
	for _, p := range d.tables.Compound {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Structure splits text into a 1-based numbered list, one part per line.
// When no split qualifies it returns text unchanged and false.
func (*CompoundDetector) Structure(text string) (string, bool) {
	parts := splitOnConnectors(text)
	if len(parts) <= 1 {
		parts = splitOnBareAnd(text)
	}
	if len(parts) <= 1 {
		return text, false
	}

	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = fmt.Sprintf("%d. %s", i+1, p)
	}
	return strings.Join(lines, "\n"), true
}

func splitOnConnectors(text string) []string {
	var parts []string
	prev := 0
	for _, loc := range connectorSplit.FindAllStringIndex(text, -1) {
		end := loc[0]
		// A leading question mark belongs to the part before the connector.
		if text[loc[0]] == '?' {
			end++
		}
		parts = appendPart(parts, text[prev:end])
		prev = loc[1]
	}
	return appendPart(parts, text[prev:])
}

func splitOnBareAnd(text string) []string {
	var parts []string
	for _, p := range bareAndSplit.Split(text, -1) {
		parts = appendPart(parts, p)
	}
	if len(parts) <= 1 {
		return nil
	}
	for _, p := range parts {
		if len(p) <= minFallbackPartLen {
			return nil
		}
	}
	return parts
}

func appendPart(parts []string, p string) []string {
	p = strings.TrimSpace(p)
	if p == "" {
		return parts
	}
	return append(parts, p)
}
