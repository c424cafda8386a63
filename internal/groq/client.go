// Package groq provides a thin wrapper around the official OpenAI Go SDK
// pointed at Groq's OpenAI-compatible chat-completions endpoint. Credentials
// are supplied per call so the key pool can rotate them.
package groq

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/pmsignal/hub/internal/apperrors"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible API root.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is the chat model used for naming, reranking, and answers.
	DefaultModel = "llama-3.3-70b-versatile"

	providerName = "groq"
)

// ErrEmptyCompletion is returned when the API response contains no choices.
var ErrEmptyCompletion = errors.New("groq: no choices in completion response")

// Client calls Groq chat completions. It is stateless; each call builds an
// SDK client bound to the acquired credential.
type Client struct {
	baseURL string
	model   string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root (tests point this at a stub server).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithModel sets the chat model name. Empty uses the default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// NewClient creates a Groq chat-completions client.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Generate sends the prompt and returns the raw completion text. HTTP 429
// maps to a RateLimitedError (credential penalty + retry); every other API
// failure maps to an UnavailableError (same-attempt retry, then abandonment).
func (c *Client) Generate(
	ctx context.Context, credential, system, prompt string, maxTokens int, temperature float64,
) (string, error) {
	sdk := openaisdk.NewClient(
		option.WithAPIKey(credential),
		option.WithBaseURL(c.baseURL),
	)

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openaisdk.SystemMessage(system))
	}
	messages = append(messages, openaisdk.UserMessage(prompt))

	resp, err := sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.model),
		Messages:    messages,
		Temperature: param.NewOpt(temperature),
		MaxTokens:   param.NewOpt(int64(maxTokens)),
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.NewMalformedResponseError(ErrEmptyCompletion.Error())
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return apperrors.NewRateLimitedError(providerName, "groq rate limit: "+apiErr.Error())
	}

	return apperrors.NewUnavailableError(providerName, "groq chat completion: "+err.Error())
}
