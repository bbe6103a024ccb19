package ope

import (
	"fmt"
	"strings"
)

// CompileRequest flows through the pipz pipeline. Each stage fills the fields
// it owns; earlier fields are never rewritten by later stages.
type CompileRequest struct {
	// Input
	RequestID string  `json:"requestId"`
	Request   Request `json:"request"`

	// Prepare stages
	Enhancement  EnhancementResult `json:"enhancement"`
	Resolution   Resolution        `json:"-"`
	Requirements TaskRequirements  `json:"requirements"`
	IR           PromptIR          `json:"ir"`
	Compiled     CompiledPrompt    `json:"compiled"`
	Route        RouteDecision     `json:"route"`

	// Call stages
	RawOutput  string           `json:"rawOutput,omitempty"`
	Validation ValidationResult `json:"validation"`
}

// ContextID returns the applied overlay id, or "".
func (r *CompileRequest) ContextID() string {
	return r.Resolution.ID
}

// normalizeRequest checks a boundary request and fills defaults. Every error
// it returns is a client error.
func normalizeRequest(req Request, overlays OverlaySource) (Request, error) {
	req.RawPrompt = strings.TrimSpace(req.RawPrompt)
	if req.RawPrompt == "" {
		return req, ErrEmptyPrompt
	}
	if !req.TaskType.Valid() {
		return req, fmt.Errorf("%w: %q", ErrInvalidTaskType, req.TaskType)
	}
	if !req.TargetHint.Valid() {
		return req, fmt.Errorf("%w: %q", ErrInvalidHint, req.TargetHint)
	}
	if !req.Enhance.Valid() {
		return req, fmt.Errorf("%w: %q", ErrInvalidEnhanceMode, req.Enhance)
	}
	if req.TaskType == "" {
		req.TaskType = TaskQA
	}
	if req.Enhance == "" {
		req.Enhance = EnhanceRules
	}

	req.Context = strings.TrimSpace(req.Context)
	if req.Context != "" {
		if overlays == nil {
			return req, fmt.Errorf("%w: %q", ErrUnknownContext, req.Context)
		}
		if _, ok := overlays.Get(req.Context); !ok {
			return req, fmt.Errorf("%w: %q", ErrUnknownContext, req.Context)
		}
	}
	return req, nil
}
