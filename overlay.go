package ope

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/zoobzio/capitan"
	"gopkg.in/yaml.v3"
)

//go:embed contexts.yaml
var defaultContextsYAML []byte

// Overlay limits enforced at load time.
const (
	MaxOverlayTemperature = 2.0
	MaxOverlayTokens      = 100000
	MaxOverlayTextLen     = 250000
)

// ContextOverlay is a named bundle of adjustments applied on top of the
// task-type defaults. Overlays are read-only after loading.
type ContextOverlay struct {
	ID                    string   `yaml:"-" json:"id"`
	RoleSuffix            string   `yaml:"role_suffix,omitempty" json:"roleSuffix,omitempty"`
	ObjectivePrefix       string   `yaml:"objective_prefix,omitempty" json:"objectivePrefix,omitempty"`
	AdditionalConstraints []string `yaml:"constraints,omitempty" json:"additionalConstraints,omitempty"`
	AdditionalStyle       []string `yaml:"style,omitempty" json:"additionalStyle,omitempty"`
	TemperatureOverride   *float64 `yaml:"temperature,omitempty" json:"temperatureOverride,omitempty"`
	MaxTokensOverride     *int     `yaml:"max_tokens,omitempty" json:"maxTokensOverride,omitempty"`
	SystemSuffix          string   `yaml:"system_suffix,omitempty" json:"systemSuffix,omitempty"`
	UserPrefix            string   `yaml:"user_prefix,omitempty" json:"userPrefix,omitempty"`
}

// OverlayErrorKind classifies an invalid overlay definition.
type OverlayErrorKind string

// Overlay validation failures.
const (
	OverlayInvalidTemperature OverlayErrorKind = "INVALID_TEMPERATURE"
	OverlayInvalidMaxTokens   OverlayErrorKind = "INVALID_MAX_TOKENS"
	OverlayFieldTooLong       OverlayErrorKind = "FIELD_TOO_LONG"
)

// OverlayError reports why an overlay was excluded from the usable set.
type OverlayError struct {
	ID     string           `json:"id"`
	Kind   OverlayErrorKind `json:"kind"`
	Field  string           `json:"field"`
	Detail string           `json:"detail"`
}

func (e *OverlayError) Error() string {
	return fmt.Sprintf("overlay %q: %s on %s: %s", e.ID, e.Kind, e.Field, e.Detail)
}

// Validate checks the overlay against the load-time limits.
// It returns the first violation found, or nil.
func (o *ContextOverlay) Validate() *OverlayError {
	if t := o.TemperatureOverride; t != nil && (math.IsNaN(*t) || *t < 0 || *t > MaxOverlayTemperature) {
		return &OverlayError{
			ID:     o.ID,
			Kind:   OverlayInvalidTemperature,
			Field:  "temperature",
			Detail: fmt.Sprintf("%g is outside [0, %g]", *t, MaxOverlayTemperature),
		}
	}
	if n := o.MaxTokensOverride; n != nil && (*n <= 0 || *n > MaxOverlayTokens) {
		return &OverlayError{
			ID:     o.ID,
			Kind:   OverlayInvalidMaxTokens,
			Field:  "max_tokens",
			Detail: fmt.Sprintf("%d is outside (0, %d]", *n, MaxOverlayTokens),
		}
	}

	fields := []overlayField{
		{"role_suffix", o.RoleSuffix},
		{"objective_prefix", o.ObjectivePrefix},
		{"system_suffix", o.SystemSuffix},
		{"user_prefix", o.UserPrefix},
	}
	for i, c := range o.AdditionalConstraints {
		fields = append(fields, overlayField{fmt.Sprintf("constraints[%d]", i), c})
	}
	for i, s := range o.AdditionalStyle {
		fields = append(fields, overlayField{fmt.Sprintf("style[%d]", i), s})
	}
	for _, f := range fields {
		if n := utf8.RuneCountInString(f.value); n > MaxOverlayTextLen {
			return &OverlayError{
				ID:     o.ID,
				Kind:   OverlayFieldTooLong,
				Field:  f.name,
				Detail: fmt.Sprintf("%d characters exceeds %d", n, MaxOverlayTextLen),
			}
		}
	}
	return nil
}

func (o *ContextOverlay) clone() *ContextOverlay {
	c := *o
	c.AdditionalConstraints = slices.Clone(o.AdditionalConstraints)
	c.AdditionalStyle = slices.Clone(o.AdditionalStyle)
	if o.TemperatureOverride != nil {
		v := *o.TemperatureOverride
		c.TemperatureOverride = &v
	}
	if o.MaxTokensOverride != nil {
		v := *o.MaxTokensOverride
		c.MaxTokensOverride = &v
	}
	return &c
}

type overlayField struct {
	name  string
	value string
}

// OverlaySource is the lookup port the pipeline consumes.
type OverlaySource interface {
	Get(id string) (*ContextOverlay, bool)
	List() []string
}

// OverlayTable is the validated, immutable overlay set.
type OverlayTable struct {
	overlays map[string]*ContextOverlay
	ids      []string
	rejected []*OverlayError
}

type overlayFile struct {
	Contexts map[string]*ContextOverlay `yaml:"contexts"`
}

// LoadOverlays parses an overlay table. Invalid overlays are excluded and
// reported through Rejected and the OverlayRejected hook; only malformed
// YAML is an error.
func LoadOverlays(data []byte) (*OverlayTable, error) {
	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse overlays: %w", err)
	}
	return NewOverlayTable(file.Contexts), nil
}

// DefaultOverlays loads the embedded overlay table.
func DefaultOverlays() (*OverlayTable, error) {
	return LoadOverlays(defaultContextsYAML)
}

// NewOverlayTable validates overlays keyed by id and builds a table.
func NewOverlayTable(overlays map[string]*ContextOverlay) *OverlayTable {
	t := &OverlayTable{overlays: make(map[string]*ContextOverlay, len(overlays))}

	ids := make([]string, 0, len(overlays))
	for id := range overlays {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		o := &ContextOverlay{}
		if src := overlays[id]; src != nil {
			o = src.clone()
		}
		o.ID = id
		if verr := o.Validate(); verr != nil {
			t.rejected = append(t.rejected, verr)
			capitan.Emit(context.Background(), OverlayRejected,
				ContextKey.Field(id),
				ErrorKindKey.Field(string(verr.Kind)),
				ErrorKey.Field(verr.Error()),
			)
			continue
		}
		t.overlays[id] = o
		t.ids = append(t.ids, id)
	}
	return t
}

// Get returns a copy of the overlay for id. The table itself is never
// reachable through the result.
func (t *OverlayTable) Get(id string) (*ContextOverlay, bool) {
	if t == nil {
		return nil, false
	}
	o, ok := t.overlays[id]
	if !ok {
		return nil, false
	}
	return o.clone(), true
}

// List returns the usable overlay ids in sorted order.
func (t *OverlayTable) List() []string {
	if t == nil {
		return []string{}
	}
	ids := make([]string, len(t.ids))
	copy(ids, t.ids)
	return ids
}

// Rejected returns the overlays excluded at load time.
func (t *OverlayTable) Rejected() []*OverlayError {
	if t == nil {
		return nil
	}
	out := make([]*OverlayError, len(t.rejected))
	copy(out, t.rejected)
	return out
}

// Resolution is the outcome of overlay lookup for one request.
type Resolution struct {
	ID          string
	Overlay     *ContextOverlay
	AutoApplied bool
}

// ResolveOverlay picks the overlay for a request. An explicit id must exist;
// otherwise the detected domain is tried silently. A zero Resolution means no
// overlay applies.
func ResolveOverlay(src OverlaySource, explicitID string, detected DomainID) (Resolution, error) {
	if src == nil {
		if explicitID != "" {
			return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownContext, explicitID)
		}
		return Resolution{}, nil
	}
	if explicitID != "" {
		o, ok := src.Get(explicitID)
		if !ok {
			return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownContext, explicitID)
		}
		return Resolution{ID: explicitID, Overlay: o}, nil
	}
	if detected != DomainNone {
		if o, ok := src.Get(string(detected)); ok {
			return Resolution{ID: string(detected), Overlay: o, AutoApplied: true}, nil
		}
	}
	return Resolution{}, nil
}
