// Package anthropic provides the cloud adapter backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/srdjan/ope"
	"github.com/zoobzio/capitan"
)

// Name is the adapter identifier reported in responses.
const Name = "anthropic"

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-sonnet-4-20250514"

// Config holds configuration for the Anthropic adapter.
type Config struct {
	APIKey  string
	Model   string        // Optional, defaults to DefaultModel
	BaseURL string        // Optional, defaults to the SDK endpoint
	Timeout time.Duration // Optional, defaults to 60s

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Adapter implements ope.Adapter over the Messages API.
type Adapter struct {
	client sdk.Client
	model  string
	hasKey bool
}

// New creates an Anthropic adapter. A missing API key is reported as
// CONFIG_MISSING on the first call.
func New(config Config) *Adapter {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(config.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	return &Adapter{
		client: sdk.NewClient(opts...),
		model:  config.Model,
		hasKey: strings.TrimSpace(config.APIKey) != "",
	}
}

// Name returns the adapter identifier.
func (*Adapter) Name() string {
	return Name
}

// Model returns the configured model.
func (a *Adapter) Model() string {
	return a.model
}

// Call sends the system text as the system prompt and the user text as the
// single user turn. Temperature is clamped to the API's [0, 1] range.
func (a *Adapter) Call(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	if !a.hasKey {
		return "", &ope.AdapterError{Kind: ope.ErrKindConfigMissing, Adapter: Name, Err: errors.New("ANTHROPIC_API_KEY is not set")}
	}
	if maxTokens <= 0 {
		maxTokens = ope.DefaultMaxTokens
	}

	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(a.model),
		MaxTokens:   int64(maxTokens),
		System:      []sdk.TextBlockParam{{Text: system}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(user))},
		Temperature: sdk.Float(clamp(temperature)),
	})
	if err != nil {
		return "", mapError(err)
	}

	capitan.Emit(ctx, ope.AdapterUsage,
		ope.AdapterKey.Field(Name),
		ope.ModelKey.Field(string(msg.Model)),
		ope.PromptTokensKey.Field(int(msg.Usage.InputTokens)),
		ope.CompletionTokensKey.Field(int(msg.Usage.OutputTokens)),
		ope.FinishReasonKey.Field(string(msg.StopReason)),
	)

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", &ope.AdapterError{Kind: ope.ErrKindInvalidResponse, Adapter: Name, Err: errors.New("no text content returned")}
	}
	return b.String(), nil
}

func clamp(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}

func mapError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		kind := ope.ErrKindNetwork
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			kind = ope.ErrKindConfigMissing
		}
		return &ope.AdapterError{Kind: kind, Adapter: Name, StatusCode: apiErr.StatusCode, Err: err}
	}
	return &ope.AdapterError{Kind: ope.ErrKindNetwork, Adapter: Name, Err: err}
}
