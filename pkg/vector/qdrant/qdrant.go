// Package qdrant provides a Qdrant-backed vector store over its gRPC API.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/vector"
)

const (
	// DefaultCollectionName is the collection name used when none is
	// configured. Per-language stores pass their own name.
	DefaultCollectionName = "parlance"

	// DefaultPort is the Qdrant gRPC port.
	DefaultPort = 6334

	// scrollPageSize bounds a single page when listing a source's hashes.
	scrollPageSize = 1024
)

// Store implements vector.Store using a Qdrant collection.
type Store struct {
	client     *qdrant.Client
	collection string
	dimensions uint
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant store.
type Config struct {
	// Host is the Qdrant gRPC host (e.g., "localhost").
	Host string

	// Port is the Qdrant gRPC port. Defaults to DefaultPort if zero.
	Port int

	// APIKey authenticates requests when set.
	APIKey string

	// UseTLS enables TLS for the connection.
	UseTLS bool

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the number of dimensions for the embedding vectors,
	// fixed when the collection is created.
	Dimensions uint
}

// NewStore creates a new Qdrant vector store, creating its collection with
// cosine distance if needed.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrUnavailable, err)
	}

	ctx := context.Background()

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection %q: %v", vector.ErrUnavailable, collection, err)
	}

	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %q: %w", collection, err)
		}
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.Int("port", port),
		zap.String("collection", collection),
		zap.Uint("dimensions", c.Dimensions),
	)

	return &Store{
		client:     client,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// pointID derives a deterministic Qdrant point id from a content hash, so
// re-upserting the same chunk always addresses the same point.
func pointID(hash string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(hash)).String()
}

// Upsert stores records keyed by content hash. Existing points are fetched
// first so added, updated and skipped can be counted exactly.
func (s *Store) Upsert(ctx context.Context, records []vector.Record) (vector.UpsertStats, error) {
	var stats vector.UpsertStats
	if len(records) == 0 {
		return stats, nil
	}

	for _, rec := range records {
		if rec.Hash == "" {
			return vector.UpsertStats{}, fmt.Errorf("record from source %q has no hash", rec.Source)
		}
		if uint(len(rec.Embedding)) != s.dimensions {
			return vector.UpsertStats{}, fmt.Errorf("record %s has a %d-dimension embedding, store expects %d", rec.Hash, len(rec.Embedding), s.dimensions)
		}
	}

	ids := make([]*qdrant.PointId, len(records))
	for i, rec := range records {
		ids[i] = qdrant.NewIDUUID(pointID(rec.Hash))
	}

	existing, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return vector.UpsertStats{}, fmt.Errorf("%w: fetching existing points: %v", vector.ErrUnavailable, err)
	}

	// Current view of the store for the records in this batch, updated as
	// the batch is classified so in-batch duplicates count as skipped.
	type stored struct {
		text      string
		embedding []float32
	}
	current := make(map[string]stored, len(existing))
	for _, point := range existing {
		payload := point.GetPayload()
		current[payload["hash"].GetStringValue()] = stored{
			text:      payload["text"].GetStringValue(),
			embedding: point.GetVectors().GetVector().GetData(),
		}
	}

	var points []*qdrant.PointStruct
	pointIdx := make(map[string]int)
	for _, rec := range records {
		prev, ok := current[rec.Hash]
		switch {
		case !ok:
			stats.Added++
		case prev.text == rec.Text && equalVectors(prev.embedding, rec.Embedding):
			stats.Skipped++
			continue
		default:
			stats.Updated++
		}
		current[rec.Hash] = stored{text: rec.Text, embedding: rec.Embedding}

		point := &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(rec.Hash)),
			Vectors: qdrant.NewVectors(rec.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"hash":   rec.Hash,
				"source": rec.Source,
				"text":   rec.Text,
			}),
		}
		// A hash reappearing in the batch replaces its earlier point.
		if idx, dup := pointIdx[rec.Hash]; dup {
			points[idx] = point
			continue
		}
		pointIdx[rec.Hash] = len(points)
		points = append(points, point)
	}

	if len(points) > 0 {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return vector.UpsertStats{}, fmt.Errorf("upserting points: %w", err)
		}
	}

	s.logger.Debug("upserted records to qdrant",
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

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %v", vector.ErrUnavailable, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		results = append(results, vector.QueryResult{
			Record: vector.Record{
				Hash:   payload["hash"].GetStringValue(),
				Source: payload["source"].GetStringValue(),
				Text:   payload["text"].GetStringValue(),
			},
			// Qdrant reports cosine similarity directly
			Score: point.GetScore(),
		})
	}

	s.logger.Debug("queried qdrant",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// SourceHashes returns the content hashes currently stored for a source.
func (s *Store) SourceHashes(ctx context.Context, source string) ([]string, error) {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("source", source)},
	}

	seen := make(map[string]struct{})
	var hashes []string
	var offset *qdrant.PointId

	for {
		points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: scrolling points: %v", vector.ErrUnavailable, err)
		}
		if len(points) == 0 {
			break
		}

		for _, point := range points {
			hash := point.GetPayload()["hash"].GetStringValue()
			if _, dup := seen[hash]; dup {
				continue
			}
			seen[hash] = struct{}{}
			hashes = append(hashes, hash)
		}

		if len(points) < scrollPageSize {
			break
		}
		// The next page starts at the last seen id; the overlap is
		// deduplicated above.
		offset = points[len(points)-1].GetId()
	}

	return hashes, nil
}

// Delete removes records by content hash.
func (s *Store) Delete(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, len(hashes))
	for i, hash := range hashes {
		ids[i] = qdrant.NewIDUUID(pointID(hash))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(ids...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	s.logger.Debug("deleted records from qdrant",
		zap.Int("count", len(hashes)),
	)

	return nil
}

// Size returns the number of stored records.
func (s *Store) Size(ctx context.Context) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", vector.ErrUnavailable, err)
	}

	return int(count), nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ensure Store implements vector.Store
var _ vector.Store = (*Store)(nil)
