// Package chroma provides a Chroma-backed vector store over its REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/vector"
)

const (
	// DefaultCollectionName is the collection name used when none is
	// configured. Per-language stores pass their own name.
	DefaultCollectionName = "parlance"

	// DefaultMaxRetries is how many times the initial collection
	// bootstrap is attempted before giving up.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the initial delay between bootstrap attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the backoff between bootstrap attempts.
	DefaultMaxRetryDelay = 5 * time.Second

	apiPrefix = "/api/v2/tenants/default_tenant/databases/default_database"
)

// Store implements vector.Store using Chroma's REST API.
type Store struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma store.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds bootstrap attempts while Chroma starts up.
	// Defaults to DefaultMaxRetries if zero.
	MaxRetries int

	// RetryDelay is the initial backoff between bootstrap attempts.
	// Defaults to DefaultRetryDelay if zero.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff. Defaults to DefaultMaxRetryDelay
	// if zero.
	MaxRetryDelay time.Duration
}

// NewStore creates a new Chroma vector store, creating its collection if
// needed. The bootstrap retries with backoff so a store can be constructed
// while Chroma is still starting up.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	maxRetries := c.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	retryDelay := c.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}

	maxRetryDelay := c.MaxRetryDelay
	if maxRetryDelay == 0 {
		maxRetryDelay = DefaultMaxRetryDelay
	}

	s := &Store{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var collectionID string
	var err error
	delay := retryDelay
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, err = s.getOrCreateCollection(context.Background())
		if err == nil {
			break
		}
		if attempt == maxRetries {
			return nil, fmt.Errorf("%w: connecting to chroma at %s after %d attempts: %v", vector.ErrUnavailable, c.URL, maxRetries, err)
		}

		logger.Warn("chroma not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	s.collectionID = collectionID

	logger.Info("connected to Chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.String("collection_id", collectionID),
	)

	return s, nil
}

// getOrCreateCollection gets an existing collection or creates a new one
// configured for cosine similarity.
func (s *Store) getOrCreateCollection(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s%s/collections/%s", s.baseURL, apiPrefix, s.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createURL := fmt.Sprintf("%s%s/collections", s.baseURL, apiPrefix)
	createBody := chromaCreateCollectionRequest{
		Name: s.collectionName,
		Configuration: map[string]any{
			"hnsw": map[string]any{"space": "cosine"},
		},
	}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", createURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// collectionURL builds an endpoint URL under the store's collection.
func (s *Store) collectionURL(endpoint string) string {
	return fmt.Sprintf("%s%s/collections/%s/%s", s.baseURL, apiPrefix, s.collectionID, endpoint)
}

// post sends a JSON body to a collection endpoint and decodes the response
// into out when out is non-nil.
func (s *Store) post(ctx context.Context, endpoint string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.collectionURL(endpoint), bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending %s request: %v", vector.ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chroma %s failed: status %d: %s", endpoint, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", endpoint, err)
		}
	}

	return nil
}

// Upsert stores records keyed by content hash. Record ids in Chroma are the
// content hashes themselves; existing records are fetched first so added,
// updated and skipped can be counted exactly.
func (s *Store) Upsert(ctx context.Context, records []vector.Record) (vector.UpsertStats, error) {
	var stats vector.UpsertStats
	if len(records) == 0 {
		return stats, nil
	}

	for _, rec := range records {
		if rec.Hash == "" {
			return vector.UpsertStats{}, fmt.Errorf("record from source %q has no hash", rec.Source)
		}
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.Hash
	}

	var existing chromaGetResponse
	err := s.post(ctx, "get", chromaGetRequest{
		IDs:     ids,
		Include: []string{"documents", "embeddings"},
	}, &existing)
	if err != nil {
		return vector.UpsertStats{}, err
	}

	// Current view of the store for the records in this batch, updated as
	// the batch is classified so in-batch duplicates count as skipped.
	type stored struct {
		text      string
		embedding []float32
	}
	current := make(map[string]stored, len(existing.IDs))
	for i, id := range existing.IDs {
		rec := stored{}
		if i < len(existing.Documents) {
			rec.text = existing.Documents[i]
		}
		if i < len(existing.Embeddings) {
			rec.embedding = existing.Embeddings[i]
		}
		current[id] = rec
	}

	var toAdd, toUpdate []vector.Record
	for _, rec := range records {
		prev, ok := current[rec.Hash]
		switch {
		case !ok:
			toAdd = append(toAdd, rec)
			stats.Added++
		case prev.text == rec.Text && equalVectors(prev.embedding, rec.Embedding):
			stats.Skipped++
			continue
		default:
			toUpdate = append(toUpdate, rec)
			stats.Updated++
		}
		current[rec.Hash] = stored{text: rec.Text, embedding: rec.Embedding}
	}

	if len(toAdd) > 0 {
		req := chromaAddRequest{
			IDs:        make([]string, len(toAdd)),
			Embeddings: make([][]float32, len(toAdd)),
			Metadatas:  make([]map[string]any, len(toAdd)),
			Documents:  make([]string, len(toAdd)),
		}
		for i, rec := range toAdd {
			req.IDs[i] = rec.Hash
			req.Embeddings[i] = rec.Embedding
			req.Metadatas[i] = map[string]any{"source": rec.Source}
			req.Documents[i] = rec.Text
		}
		if err := s.post(ctx, "add", req, nil); err != nil {
			return vector.UpsertStats{}, err
		}
	}

	if len(toUpdate) > 0 {
		req := chromaUpdateRequest{
			IDs:        make([]string, len(toUpdate)),
			Embeddings: make([][]float32, len(toUpdate)),
			Metadatas:  make([]map[string]any, len(toUpdate)),
			Documents:  make([]string, len(toUpdate)),
		}
		for i, rec := range toUpdate {
			req.IDs[i] = rec.Hash
			req.Embeddings[i] = rec.Embedding
			req.Metadatas[i] = map[string]any{"source": rec.Source}
			req.Documents[i] = rec.Text
		}
		if err := s.post(ctx, "update", req, nil); err != nil {
			return vector.UpsertStats{}, err
		}
	}

	s.logger.Debug("upserted records to chroma",
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
	)

	return stats, nil
}

// equalVectors reports whether two embeddings are identical.
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

// Query finds the topK most similar records to the given embedding.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	var queryResp chromaQueryResponse
	err := s.post(ctx, "query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "documents", "distances"},
	}, &queryResp)
	if err != nil {
		return nil, err
	}

	var results []vector.QueryResult

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{
			Record: vector.Record{
				Hash: id,
			},
		}

		if i < len(metadatas) && metadatas[i] != nil {
			if source, ok := metadatas[i]["source"].(string); ok {
				result.Source = source
			}
		}

		if i < len(documents) {
			result.Text = documents[i]
		}

		// The collection uses cosine space: distance is 1 - similarity
		if i < len(distances) {
			result.Score = 1.0 - distances[i]
		}

		results = append(results, result)
	}

	s.logger.Debug("queried chroma",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// SourceHashes returns the content hashes currently stored for a source.
// Chroma record ids are the hashes, so a metadata-filtered get suffices.
func (s *Store) SourceHashes(ctx context.Context, source string) ([]string, error) {
	var resp chromaGetResponse
	err := s.post(ctx, "get", chromaGetRequest{
		Where:   map[string]any{"source": source},
		Include: []string{},
	}, &resp)
	if err != nil {
		return nil, err
	}

	return resp.IDs, nil
}

// Delete removes records by content hash.
func (s *Store) Delete(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	if err := s.post(ctx, "delete", chromaDeleteRequest{IDs: hashes}, nil); err != nil {
		return err
	}

	s.logger.Debug("deleted records from chroma",
		zap.Int("count", len(hashes)),
	)

	return nil
}

// Size returns the number of stored records.
func (s *Store) Size(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.collectionURL("count"), nil)
	if err != nil {
		return 0, fmt.Errorf("creating count request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: sending count request: %v", vector.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("chroma count failed: status %d: %s", resp.StatusCode, string(body))
	}

	var count int
	if err := json.NewDecoder(resp.Body).Decode(&count); err != nil {
		return 0, fmt.Errorf("decoding count response: %w", err)
	}

	return count, nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Store implements vector.Store
var _ vector.Store = (*Store)(nil)
