package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"github.com/parlancehq/parlance/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
// Texts registered in Embeddings get their canned vector; any other text
// gets a deterministic pseudo-embedding derived from its hash, so distinct
// texts embed differently without per-test setup.
type MockEmbedder struct {
	Embeddings map[string][]float32
	Dims       uint

	// FailOn causes Embed and EmbedBatch to return an error when the
	// input text matches.
	FailOn string

	// Calls counts texts embedded across Embed and EmbedBatch.
	Calls atomic.Int64
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)

func NewMockEmbedder(dims uint) *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Dims:       dims,
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return m.embed(text)
}

func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := m.embed(text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (m *MockEmbedder) Dimensions() uint {
	if m.Dims == 0 {
		return 3
	}
	return m.Dims
}

func (m *MockEmbedder) Close() error {
	return nil
}

func (m *MockEmbedder) embed(text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock failure for: %s", embeddings.ErrEmbedding, text)
	}
	m.Calls.Add(1)

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}
	return m.synthesize(text), nil
}

func (m *MockEmbedder) synthesize(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.Dimensions())
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed>>40) / float32(1<<24)
	}
	return vec
}
