package testutils

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/parlancehq/parlance/pkg/vector"
)

// MockVectorStore is a functioning in-memory vector store. It honors the
// full Store contract — upsert diffing by hash, cosine ranking with
// insertion-order tie-breaks, source listing — so tests built on it
// exercise real ranking behavior rather than canned results.
type MockVectorStore struct {
	mu      sync.Mutex
	records []vector.Record
	byHash  map[string]int

	// UpsertErr and QueryErr, when set, are returned by the matching
	// operation. Used to test degraded-store behavior.
	UpsertErr error
	QueryErr  error
}

var _ vector.Store = (*MockVectorStore)(nil)

func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		byHash: make(map[string]int),
	}
}

func (m *MockVectorStore) Upsert(_ context.Context, records []vector.Record) (vector.UpsertStats, error) {
	if m.UpsertErr != nil {
		return vector.UpsertStats{}, m.UpsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var stats vector.UpsertStats
	for _, rec := range records {
		if rec.Hash == "" {
			return vector.UpsertStats{}, fmt.Errorf("record has no hash")
		}
		idx, exists := m.byHash[rec.Hash]
		switch {
		case !exists:
			m.byHash[rec.Hash] = len(m.records)
			m.records = append(m.records, rec)
			stats.Added++
		case m.records[idx].Text == rec.Text && equalVectors(m.records[idx].Embedding, rec.Embedding):
			stats.Skipped++
		default:
			m.records[idx] = rec
			stats.Updated++
		}
	}
	return stats, nil
}

func (m *MockVectorStore) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	type scored struct {
		idx   int
		score float32
	}
	ranked := make([]scored, 0, len(m.records))
	for i, rec := range m.records {
		ranked = append(ranked, scored{idx: i, score: cosine(embedding, rec.Embedding)})
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].idx < ranked[b].idx
	})

	if topK > len(ranked) {
		topK = len(ranked)
	}
	results := make([]vector.QueryResult, 0, topK)
	for _, s := range ranked[:topK] {
		results = append(results, vector.QueryResult{
			Record: m.records[s.idx],
			Score:  s.score,
		})
	}
	return results, nil
}

func (m *MockVectorStore) SourceHashes(_ context.Context, source string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hashes := []string{}
	for _, rec := range m.records {
		if rec.Source == source {
			hashes = append(hashes, rec.Hash)
		}
	}
	return hashes, nil
}

func (m *MockVectorStore) Delete(_ context.Context, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		drop[h] = true
	}

	kept := m.records[:0]
	for _, rec := range m.records {
		if !drop[rec.Hash] {
			kept = append(kept, rec)
		}
	}
	m.records = kept
	m.byHash = make(map[string]int, len(m.records))
	for i, rec := range m.records {
		m.byHash[rec.Hash] = i
	}
	return nil
}

func (m *MockVectorStore) Size(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *MockVectorStore) Close() error {
	return nil
}

func equalVectors(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
