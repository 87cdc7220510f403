// Package openai implements pkg/embeddings' Embedder client for
// OpenAI-compatible embedding APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/parlancehq/parlance/pkg/embeddings"
)

const (
	// DefaultModel is the default model used for embeddings.
	DefaultModel = "text-embedding-3-small"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxInputRunes is the per-input length limit. Inputs beyond it
	// fail with embeddings.ErrInputTooLong rather than being truncated.
	DefaultMaxInputRunes = 8192

	// APIKeyEnv is the environment variable consulted when Config.APIKey
	// is empty.
	APIKeyEnv = "OPENAI_API_KEY"
)

// Embedder wraps an OpenAI-compatible embedding API.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions uint
	maxRunes   int
	httpClient *http.Client
}

// Config holds configuration for the OpenAI embedder.
type Config struct {
	// BaseURL is the API URL (e.g., "https://api.openai.com/v1").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey authenticates requests. Falls back to the OPENAI_API_KEY
	// environment variable if empty.
	APIKey string

	// Model is the embedding model to use.
	// Defaults to DefaultModel if empty.
	Model string

	// Dimensions is the dimensionality the model is expected to produce.
	// Required; it is also sent with each request so models that support
	// shortened embeddings return exactly this many dimensions.
	Dimensions uint

	// Timeout bounds a single embedding request.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// MaxInputRunes is the per-input length limit in runes.
	// Defaults to DefaultMaxInputRunes if zero.
	MaxInputRunes int
}

// embedRequest is the request body for the embeddings endpoint.
type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions uint     `json:"dimensions,omitempty"`
}

// embedResponse is the response from the embeddings endpoint. Items carry
// an index because the API does not guarantee response order.
type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder creates a new embedder using an OpenAI-compatible embedding API.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.Dimensions == 0 {
		return nil, fmt.Errorf("embedding dimensions cannot be 0, must be configured")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required: set it in config or %s", APIKeyEnv)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	maxRunes := cfg.MaxInputRunes
	if maxRunes == 0 {
		maxRunes = DefaultMaxInputRunes
	}

	return &Embedder{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: cfg.Dimensions,
		maxRunes:   maxRunes,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch converts texts into vector embeddings, preserving input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	for i, text := range texts {
		if n := utf8.RuneCountInString(text); n > e.maxRunes {
			return nil, fmt.Errorf("%w: input %d is %d runes, limit %d", embeddings.ErrInputTooLong, i, n, e.maxRunes)
		}
	}

	reqBody := embedRequest{
		Model:      e.model,
		Input:      texts,
		Dimensions: e.dimensions,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: openai returned status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrEmbedding, len(texts), len(embedResp.Data))
	}

	// Place each embedding by its declared index.
	vecs := make([][]float32, len(texts))
	for _, item := range embedResp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", embeddings.ErrEmbedding, item.Index)
		}
		if uint(len(item.Embedding)) != e.dimensions {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", embeddings.ErrEmbedding, item.Index, len(item.Embedding), e.dimensions)
		}
		vecs[item.Index] = item.Embedding
	}

	for i, vec := range vecs {
		if vec == nil {
			return nil, fmt.Errorf("%w: no embedding returned for input %d", embeddings.ErrEmbedding, i)
		}
	}

	return vecs, nil
}

// Dimensions reports the dimensionality of produced embeddings.
func (e *Embedder) Dimensions() uint {
	return e.dimensions
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Embedder implements embeddings.Embedder
var _ embeddings.Embedder = (*Embedder)(nil)
