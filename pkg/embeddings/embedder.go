// Package embeddings defines the embedding contract shared by the
// indexing pipeline and the search layer.
package embeddings

import "context"

// Embedder converts text into fixed-dimension vector embeddings.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts into vector embeddings, one per input,
	// preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the dimensionality of the vectors this embedder
	// produces. Constant for the embedder's lifetime.
	Dimensions() uint

	// Close releases any resources held by the embedder.
	Close() error
}
