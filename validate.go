package ope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ValidationErrorKind classifies a non-conforming reply.
type ValidationErrorKind string

// Validation failure kinds.
const (
	InvalidJSON   ValidationErrorKind = "INVALID_JSON"
	NotAnObject   ValidationErrorKind = "NOT_AN_OBJECT"
	MissingFields ValidationErrorKind = "MISSING_FIELDS"
	InvalidTypes  ValidationErrorKind = "INVALID_TYPES"
)

// UnknownCitation replaces citations that are not http(s) URLs.
const UnknownCitation = "unknown"

// ValidationError is the structured classification of a repaired reply.
type ValidationError struct {
	Kind    ValidationErrorKind `json:"kind"`
	Detail  string              `json:"detail"`
	Missing []string            `json:"missing,omitempty"`
	Issues  []string            `json:"issues,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// ValidationResult is the outcome of Validate. Value is always well-formed.
type ValidationResult struct {
	OK            bool             `json:"ok"`
	Value         Output           `json:"value"`
	Repaired      bool             `json:"repaired"`
	RepairReason  string           `json:"repairReason,omitempty"`
	OriginalError *ValidationError `json:"originalError,omitempty"`
}

// Meta summarizes the result for the response envelope.
func (r ValidationResult) Meta() ValidationMeta {
	m := ValidationMeta{WasRepaired: r.Repaired}
	if r.OriginalError != nil {
		kind := string(r.OriginalError.Kind)
		detail := r.OriginalError.Detail
		m.ErrorKind = &kind
		m.ErrorDetail = &detail
	}
	return m
}

// reply is the parsed shape of a raw model reply.
type reply interface{ isReply() }

type (
	notJSONReply struct {
		err error
	}
	notObjectReply struct {
		value any
	}
	missingFieldsReply struct {
		obj     map[string]any
		missing []string
	}
	issuesReply struct {
		obj    map[string]any
		issues []string
	}
	validReply struct {
		out Output
	}
)

func (notJSONReply) isReply()       {}
func (notObjectReply) isReply()     {}
func (missingFieldsReply) isReply() {}
func (issuesReply) isReply()        {}
func (validReply) isReply()         {}

// Validate checks a raw reply against the Output contract and repairs it when
// it does not conform. It never fails.
func Validate(raw string) ValidationResult {
	trimmed := strings.TrimSpace(raw)

	switch r := parseReply(trimmed).(type) {
	case validReply:
		return ValidationResult{OK: true, Value: r.out}

	case notJSONReply:
		return repaired(
			Output{Answer: trimmed, Citations: []string{}},
			"Model output was not valid JSON; the raw text was used as the answer.",
			&ValidationError{Kind: InvalidJSON, Detail: r.err.Error()},
		)

	case notObjectReply:
		return repaired(
			Output{Answer: stringify(r.value), Citations: []string{}},
			"Model output was JSON but not an object; its text was used as the answer.",
			&ValidationError{Kind: NotAnObject, Detail: "expected object, got " + jsonKind(r.value)},
		)

	case missingFieldsReply:
		out := Output{Answer: trimmed, Citations: []string{}}
		if v, ok := present(r.obj, "answer"); ok {
			out.Answer = stringify(v)
		}
		if v, ok := present(r.obj, "citations"); ok {
			if items, ok := v.([]any); ok {
				out.Citations = normalizeAll(items)
			}
		}
		return repaired(
			out,
			fmt.Sprintf("Model output was missing required fields (%s); defaults were filled in.", strings.Join(r.missing, ", ")),
			&ValidationError{
				Kind:    MissingFields,
				Detail:  "missing fields: " + strings.Join(r.missing, ", "),
				Missing: r.missing,
			},
		)

	case issuesReply:
		out := Output{Answer: stringify(r.obj["answer"]), Citations: []string{}}
		switch c := r.obj["citations"].(type) {
		case []any:
			out.Citations = normalizeAll(c)
		case string:
			out.Citations = []string{NormalizeCitation(c)}
		}
		return repaired(
			out,
			"Model output had fields with unexpected types; they were coerced to the expected shape.",
			&ValidationError{
				Kind:   InvalidTypes,
				Detail: strings.Join(r.issues, "; "),
				Issues: r.issues,
			},
		)
	}

	// parseReply is exhaustive; keep the function total regardless.
	return repaired(
		Output{Answer: trimmed, Citations: []string{}},
		"Model output could not be classified; the raw text was used as the answer.",
		&ValidationError{Kind: InvalidJSON, Detail: "unclassified reply"},
	)
}

func repaired(out Output, reason string, verr *ValidationError) ValidationResult {
	return ValidationResult{
		OK:            true,
		Value:         out,
		Repaired:      true,
		RepairReason:  reason,
		OriginalError: verr,
	}
}

func parseReply(text string) reply {
	if !json.Valid([]byte(text)) {
		return notJSONReply{err: invalidJSONError(text)}
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return notJSONReply{err: err}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return notObjectReply{value: value}
	}

	var missing []string
	for _, field := range []string{"answer", "citations"} {
		if _, ok := present(obj, field); !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return missingFieldsReply{obj: obj, missing: missing}
	}

	var issues []string
	answer, ok := obj["answer"].(string)
	if !ok {
		issues = append(issues, "answer: expected string, got "+jsonKind(obj["answer"]))
	}
	items, ok := obj["citations"].([]any)
	if !ok {
		issues = append(issues, "citations: expected array, got "+jsonKind(obj["citations"]))
	}
	citations := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			issues = append(issues, fmt.Sprintf("citations[%d]: expected string, got %s", i, jsonKind(item)))
			continue
		}
		citations = append(citations, s)
	}
	if len(issues) > 0 {
		return issuesReply{obj: obj, issues: issues}
	}
	return validReply{out: Output{Answer: answer, Citations: citations}}
}

func invalidJSONError(text string) error {
	if text == "" {
		return errors.New("empty reply")
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}

// present reports whether the field exists and is not null.
func present(obj map[string]any, field string) (any, bool) {
	v, ok := obj[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func normalizeAll(items []any) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = NormalizeCitation(item)
	}
	return out
}

// NormalizeCitation returns v when it is an absolute http(s) URL with a host,
// and UnknownCitation otherwise.
func NormalizeCitation(v any) string {
	s, ok := v.(string)
	if !ok {
		return UnknownCitation
	}
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return UnknownCitation
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return UnknownCitation
	}
	return s
}

// stringify renders a decoded JSON value as answer text: strings as-is,
// everything else as compact JSON.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
