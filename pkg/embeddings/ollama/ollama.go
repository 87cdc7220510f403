// Package ollama implements pkg/embeddings' Embedder client for Ollama's embedding APIs
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/parlancehq/parlance/pkg/embeddings"
)

const (
	// DefaultModel is the default model used for embeddings.
	DefaultModel = "embeddinggemma"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxInputRunes is the per-input length limit. Inputs beyond it
	// fail with embeddings.ErrInputTooLong rather than being truncated.
	DefaultMaxInputRunes = 8192
)

// Embedder wraps Ollama's embedding API.
type Embedder struct {
	baseURL    string
	model      string
	dimensions uint
	maxRunes   int
	httpClient *http.Client
}

// Config holds configuration for the Ollama embedder.
type Config struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the embedding model to use (e.g., "embeddinggemma", "nomic-embed-text").
	// Defaults to DefaultModel if empty.
	Model string

	// Dimensions is the dimensionality the model is expected to produce.
	// Required; responses with any other dimensionality are rejected.
	Dimensions uint

	// Timeout bounds a single embedding request.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// MaxInputRunes is the per-input length limit in runes.
	// Defaults to DefaultMaxInputRunes if zero.
	MaxInputRunes int
}

// embedRequest is the request body for Ollama's embedding API.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the response from Ollama's embedding API.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates a new embedder using Ollama's embedding API.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.Dimensions == 0 {
		return nil, fmt.Errorf("embedding dimensions cannot be 0, must be configured")
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
		Model: e.model,
		Input: texts,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrEmbedding, len(texts), len(embedResp.Embeddings))
	}

	for i, vec := range embedResp.Embeddings {
		if uint(len(vec)) != e.dimensions {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", embeddings.ErrEmbedding, i, len(vec), e.dimensions)
		}
	}

	return embedResp.Embeddings, nil
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
