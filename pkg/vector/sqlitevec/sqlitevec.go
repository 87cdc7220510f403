// Package sqlitevec provides a SQLite-backed vector store using sqlite-vec.
package sqlitevec

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/vector"
)

// Store implements vector.Store using SQLite with sqlite-vec.
type Store struct {
	db         *sql.DB
	dimensions uint
	logger     *zap.Logger
}

// Config holds configuration for the SQLite vec store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// The store records this on first open and refuses to open a
	// database created with a different dimensionality.
	Dimensions uint
}

// NewStore creates a new SQLite vector store backed by sqlite-vec.
func NewStore(c Config, logger *zap.Logger) (*Store, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrUnavailable, err)
	}

	// Single connection: sqlite is single-writer, and :memory: databases
	// exist per connection.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrUnavailable, err)
	}

	if err := verifyDimensions(db, dimensions); err != nil {
		db.Close()
		return nil, err
	}

	// Create the chunk mapping table. vec0 virtual tables use integer
	// rowids, so string content hashes map to rowids here. AUTOINCREMENT
	// keeps rowids monotonic, which is what makes the insertion-order
	// tie-break in Query hold after deletes.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			hash TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			text TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating source index: %w", err)
	}

	// Create the vec0 virtual table for vector storage and KNN queries.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector store initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Store{
		db:         db,
		dimensions: dimensions,
		logger:     logger,
	}, nil
}

// verifyDimensions records the configured dimensionality on first open and
// rejects databases created with a different one.
func verifyDimensions(db *sql.DB, dimensions uint) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS store_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	if err != nil {
		return fmt.Errorf("creating meta table: %w", err)
	}

	var stored uint
	err = db.QueryRow(`SELECT value FROM store_meta WHERE key = 'dimensions'`).Scan(&stored)
	switch {
	case err == nil:
		if stored != dimensions {
			return fmt.Errorf("%w: store holds %d-dimension vectors, configured for %d", vector.ErrCorrupt, stored, dimensions)
		}
		return nil
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.Exec(`INSERT INTO store_meta (key, value) VALUES ('dimensions', ?)`, dimensions); err != nil {
			return fmt.Errorf("recording dimensions: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: reading store dimensions: %v", vector.ErrCorrupt, err)
	}
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert stores records keyed by content hash.
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return vector.UpsertStats{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		embBlob := serializeFloat32(rec.Embedding)

		var existingRowID int64
		var existingText string
		err := tx.QueryRowContext(ctx,
			`SELECT rowid, text FROM chunks WHERE hash = ?`, rec.Hash,
		).Scan(&existingRowID, &existingText)

		switch {
		case err == nil:
			var existingBlob []byte
			err := tx.QueryRowContext(ctx,
				`SELECT embedding FROM chunk_vectors WHERE rowid = ?`, existingRowID,
			).Scan(&existingBlob)
			if errors.Is(err, sql.ErrNoRows) {
				return vector.UpsertStats{}, fmt.Errorf("%w: record %s has no stored embedding", vector.ErrCorrupt, rec.Hash)
			}
			if err != nil {
				return vector.UpsertStats{}, fmt.Errorf("reading embedding for record %s: %w", rec.Hash, err)
			}

			if existingText == rec.Text && bytes.Equal(existingBlob, embBlob) {
				stats.Skipped++
				continue
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE chunks SET source = ?, text = ? WHERE rowid = ?`,
				rec.Source, rec.Text, existingRowID,
			); err != nil {
				return vector.UpsertStats{}, fmt.Errorf("updating record %s: %w", rec.Hash, err)
			}

			// Replace the embedding via DELETE + INSERT
			// (vec0 does not support UPDATE)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM chunk_vectors WHERE rowid = ?`, existingRowID,
			); err != nil {
				return vector.UpsertStats{}, fmt.Errorf("deleting old embedding for record %s: %w", rec.Hash, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chunk_vectors(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return vector.UpsertStats{}, fmt.Errorf("re-inserting embedding for record %s: %w", rec.Hash, err)
			}

			stats.Updated++
		case errors.Is(err, sql.ErrNoRows):
			// New record — insert into the mapping table first to get the rowid
			result, err := tx.ExecContext(ctx,
				`INSERT INTO chunks(hash, source, text) VALUES (?, ?, ?)`,
				rec.Hash, rec.Source, rec.Text,
			)
			if err != nil {
				return vector.UpsertStats{}, fmt.Errorf("inserting record %s: %w", rec.Hash, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return vector.UpsertStats{}, fmt.Errorf("getting rowid for record %s: %w", rec.Hash, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO chunk_vectors(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return vector.UpsertStats{}, fmt.Errorf("inserting embedding for record %s: %w", rec.Hash, err)
			}

			stats.Added++
		default:
			return vector.UpsertStats{}, fmt.Errorf("checking for existing record %s: %w", rec.Hash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return vector.UpsertStats{}, fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("upserted records to sqlite-vec",
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
	)

	return stats, nil
}

// Query finds the topK most similar records to the given embedding.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	if uint(len(embedding)) != s.dimensions {
		return nil, fmt.Errorf("query embedding has %d dimensions, store expects %d", len(embedding), s.dimensions)
	}

	queryBlob := serializeFloat32(embedding)

	// KNN query via vec0 MATCH, joined back for hash, source and text.
	// The secondary rowid sort makes equal-distance ordering follow
	// insertion order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.hash,
			c.source,
			c.text,
			v.distance
		FROM chunk_vectors v
		INNER JOIN chunks c ON c.rowid = v.rowid
		WHERE v.embedding MATCH ?
			AND v.k = ?
		ORDER BY v.distance, c.rowid
	`, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var hash, source, text string
		var distance float64
		if err := rows.Scan(&hash, &source, &text, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		results = append(results, vector.QueryResult{
			Record: vector.Record{
				Hash:   hash,
				Source: source,
				Text:   text,
			},
			// Cosine distance is 1 - similarity
			Score: float32(1.0 - distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	s.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// SourceHashes returns the content hashes currently stored for a source.
func (s *Store) SourceHashes(ctx context.Context, source string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash FROM chunks WHERE source = ? ORDER BY rowid`, source,
	)
	if err != nil {
		return nil, fmt.Errorf("querying source hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scanning hash: %w", err)
		}
		hashes = append(hashes, hash)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source hashes: %w", err)
	}

	return hashes, nil
}

// Delete removes records by content hash.
func (s *Store) Delete(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Build placeholders for IN clause
	placeholders := make([]string, len(hashes))
	args := make([]any, len(hashes))
	for i, hash := range hashes {
		placeholders[i] = "?"
		args[i] = hash
	}
	inClause := strings.Join(placeholders, ",")

	// Collect rowids first so the vec0 rows can be removed too
	query := fmt.Sprintf(
		`SELECT rowid FROM chunks WHERE hash IN (%s)`, inClause,
	)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chunk_vectors WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	deleteQuery := fmt.Sprintf(
		`DELETE FROM chunks WHERE hash IN (%s)`, inClause,
	)
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("deleted records from sqlite-vec",
		zap.Int("count", len(hashes)),
	)

	return nil
}

// Size returns the number of stored records.
func (s *Store) Size(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements vector.Store
var _ vector.Store = (*Store)(nil)
