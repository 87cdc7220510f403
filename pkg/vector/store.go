// Package vector provides per-language persistence and similarity search
// for embedded chunks. A Store holds exactly one language's records; the
// language set is fixed at startup and each language gets its own store.
package vector

import "context"

// Record is a stored chunk with its embedding. Identity is the content
// hash: upserting a hash that is already present never creates a second
// record.
type Record struct {
	// Hash is the content hash of the normalized chunk text.
	Hash string

	// Source identifies the document the chunk came from.
	Source string

	// Text is the chunk text.
	Text string

	// Embedding is the vector representation of Text.
	Embedding []float32
}

// QueryResult is a search hit with its similarity score.
type QueryResult struct {
	Record

	// Score is the cosine similarity to the query vector
	// (higher = more similar).
	Score float32
}

// UpsertStats reports the outcome of an Upsert call. Counts are exact:
// they feed the indexing report.
type UpsertStats struct {
	// Added counts records whose hash was not present before.
	Added int

	// Updated counts records whose hash was present with different
	// text or embedding.
	Updated int

	// Skipped counts records identical to what was already stored.
	Skipped int
}

// Add accumulates other into s.
func (s *UpsertStats) Add(other UpsertStats) {
	s.Added += other.Added
	s.Updated += other.Updated
	s.Skipped += other.Skipped
}

// Store persists embedded chunks for a single language and answers
// nearest-neighbor queries over them.
type Store interface {
	// Upsert stores records keyed by content hash: absent hashes are
	// added, present hashes with different text or embedding are
	// replaced, identical records are skipped. Changes are durable
	// before Upsert returns.
	Upsert(ctx context.Context, records []Record) (UpsertStats, error)

	// Query returns up to topK records most similar to the embedding,
	// ordered by similarity descending with ties broken by insertion
	// order. topK must be positive; a topK larger than the store size
	// returns all records.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// SourceHashes returns the content hashes currently stored for a
	// source. Used to remove hashes a re-chunking pass no longer
	// produces.
	SourceHashes(ctx context.Context, source string) ([]string, error)

	// Delete removes records by content hash. Unknown hashes are
	// ignored.
	Delete(ctx context.Context, hashes []string) error

	// Size returns the number of stored records.
	Size(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
