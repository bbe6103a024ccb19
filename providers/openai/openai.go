// Package openai provides the local-HTTP adapter: any endpoint that speaks
// the OpenAI chat completions protocol (Ollama, LM Studio, vLLM, OpenAI).
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/srdjan/ope"
	"github.com/zoobzio/capitan"
)

// Name is the adapter identifier reported in responses.
const Name = "local-http"

// Config holds configuration for the local-HTTP adapter.
type Config struct {
	BaseURL  string        // e.g. "http://localhost:11434/v1"
	Model    string        // e.g. "llama3.1"
	APIKey   string        // Optional; most local servers ignore it
	Timeout  time.Duration // Optional, defaults to 60s
	JSONMode bool          // Request a JSON object response format

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Adapter implements ope.Adapter over the chat completions API.
type Adapter struct {
	client   sdk.Client
	model    string
	baseURL  string
	jsonMode bool
}

// New creates a local-HTTP adapter. A missing base URL or model is reported
// as CONFIG_MISSING on the first call rather than here.
func New(config Config) *Adapter {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "local"
	}

	baseURL := strings.TrimSpace(config.BaseURL)
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Adapter{
		client:   sdk.NewClient(opts...),
		model:    config.Model,
		baseURL:  baseURL,
		jsonMode: config.JSONMode,
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

// Call sends the system and user text as a two-message chat and returns the
// first choice's content.
func (a *Adapter) Call(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	if a.baseURL == "" || a.model == "" {
		return "", &ope.AdapterError{Kind: ope.ErrKindConfigMissing, Adapter: Name, Err: errors.New("base URL and model are required")}
	}

	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(a.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(system),
			sdk.UserMessage(user),
		},
		Temperature: sdk.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(maxTokens))
	}
	if a.jsonMode {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ope.AdapterError{Kind: ope.ErrKindInvalidResponse, Adapter: Name, Err: errors.New("no choices returned")}
	}

	choice := resp.Choices[0]
	capitan.Emit(ctx, ope.AdapterUsage,
		ope.AdapterKey.Field(Name),
		ope.ModelKey.Field(resp.Model),
		ope.PromptTokensKey.Field(int(resp.Usage.PromptTokens)),
		ope.CompletionTokensKey.Field(int(resp.Usage.CompletionTokens)),
		ope.FinishReasonKey.Field(choice.FinishReason),
	)

	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", &ope.AdapterError{Kind: ope.ErrKindInvalidResponse, Adapter: Name, Err: errors.New("empty completion")}
	}
	return choice.Message.Content, nil
}

// mapError classifies SDK failures. Authentication failures mean the adapter
// is misconfigured; every other API or transport failure is a network error.
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
