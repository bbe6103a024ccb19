package ope

// Decoding defaults used when no overlay narrows them.
const (
	DefaultTemperature = 1.0
	DefaultMaxTokens   = 600
)

// Decoding carries the sampling parameters handed to an adapter.
type Decoding struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// resolveDecoding applies overlay overrides on top of the defaults.
func resolveDecoding(overlay *ContextOverlay) Decoding {
	d := Decoding{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
	if overlay == nil {
		return d
	}
	if overlay.TemperatureOverride != nil {
		d.Temperature = *overlay.TemperatureOverride
	}
	if overlay.MaxTokensOverride != nil {
		d.MaxTokens = *overlay.MaxTokensOverride
	}
	return d
}
