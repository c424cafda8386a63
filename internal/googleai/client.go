// Package googleai provides a thin wrapper around the Google Gen AI SDK for
// embeddings (Gemini API). Credentials are supplied per call so the key pool
// can rotate them.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/pmsignal/hub/internal/apperrors"
)

var (
	// ErrEmptyInput is returned when an embed call receives no text.
	ErrEmptyInput = errors.New("googleai: input text is empty")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
	// ErrEmbeddingCountMismatch is returned when the response embedding count does not match the input count.
	ErrEmbeddingCountMismatch = errors.New("googleai: embedding count mismatch")
)

const (
	defaultDimension = 768
	defaultModel     = "gemini-embedding-001"

	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"

	providerName = "gemini"
)

// Client calls the Gemini embeddings API via the Google Gen AI SDK.
type Client struct {
	model      string
	dimensions int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the requested embedding dimension (must match the DB column).
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model name. Empty uses the default.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// NewClient creates a Gemini embeddings client.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		model:      defaultModel,
		dimensions: defaultDimension,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Dimensions returns the configured embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// EmbedDocuments embeds a batch of document texts in one API call.
// The returned slice is parallel to texts.
func (c *Client) EmbedDocuments(ctx context.Context, credential string, texts []string) ([][]float32, error) {
	return c.embed(ctx, credential, texts, taskTypeDocument)
}

// EmbedQuery embeds a single search query.
func (c *Client) EmbedQuery(ctx context.Context, credential, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, credential, []string{text}, taskTypeQuery)
	if err != nil {
		return nil, err
	}

	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, credential string, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyInput
		}

		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	if len(contents) == 0 {
		return nil, ErrEmptyInput
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  credential,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	//nolint:gosec // G115: dimensions is a small positive configuration value
	dimInt32 := int32(c.dimensions)

	resp, err := genaiClient.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dimInt32,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingCountMismatch, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out := make([]float32, len(emb.Values))
		copy(out, emb.Values)
		vectors[i] = out
	}

	return vectors, nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return apperrors.NewRateLimitedError(providerName, "gemini rate limit: "+apiErr.Message)
	}

	return apperrors.NewUnavailableError(providerName, "gemini embedding: "+err.Error())
}
