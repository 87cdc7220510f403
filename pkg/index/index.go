// Package index drives the corpus indexing pipeline: documents are loaded,
// chunked, embedded, and upserted into the per-language vector stores. After
// the upserts, a removal pass deletes every record whose hash the latest
// chunking pass no longer produces, so chunk boundary shifts between runs
// cannot leak stale records.
package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/chunker"
	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/embeddings"
	"github.com/parlancehq/parlance/pkg/eventstream"
	"github.com/parlancehq/parlance/pkg/eventstream/nop"
	"github.com/parlancehq/parlance/pkg/vector"
)

var defaultNumWorkers uint = 4

// SourceStatus summarizes what an indexing run did to one source.
type SourceStatus string

const (
	SourceStatusAdded   SourceStatus = "added"
	SourceStatusUpdated SourceStatus = "updated"
	SourceStatusSkipped SourceStatus = "skipped"
	SourceStatusError   SourceStatus = "error"
)

// SourceReport is the per-source slice of an indexing report. Counts come
// straight from the store upserts and the removal pass, so they are exact.
type SourceReport struct {
	Path       string            `json:"path"`
	Language   document.Language `json:"language"`
	Status     SourceStatus      `json:"status"`
	ChunkCount int               `json:"chunk_count"`
	Added      int               `json:"added"`
	Updated    int               `json:"updated"`
	Skipped    int               `json:"skipped"`
	Removed    int               `json:"removed"`
	Err        string            `json:"error,omitempty"`
}

// Report summarizes one indexing run. Totals aggregate every source,
// including sources that ended in an error after partial progress.
type Report struct {
	Added        int            `json:"added"`
	Updated      int            `json:"updated"`
	Skipped      int            `json:"skipped"`
	Removed      int            `json:"removed"`
	TotalRecords int            `json:"total_records"`
	Sources      []SourceReport `json:"sources"`
	Elapsed      time.Duration  `json:"elapsed_ns"`
}

// Errored reports how many sources failed.
func (r *Report) Errored() int {
	n := 0
	for _, sr := range r.Sources {
		if sr.Status == SourceStatusError {
			n++
		}
	}
	return n
}

// Config is the configuration options for the indexer.
type Config struct {
	// Loader reads corpus documents from disk.
	Loader *document.Loader

	// Chunker splits documents into bounded chunks.
	Chunker *chunker.Chunker

	// Embedder converts chunk text into vectors.
	Embedder embeddings.Embedder

	// Stores holds one vector store per configured language.
	Stores map[document.Language]vector.Store

	// Publisher receives indexing events (defaults to the no-op publisher).
	Publisher eventstream.Publisher

	// NumWorkers is the number of sources indexed concurrently (defaults to 4).
	NumWorkers uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Indexer runs the chunk-embed-upsert pipeline over the corpus.
type Indexer struct {
	loader    *document.Loader
	chunker   *chunker.Chunker
	embedder  embeddings.Embedder
	stores    map[document.Language]vector.Store
	publisher eventstream.Publisher
	workers   uint
	logger    *zap.Logger
}

func New(cfg *Config) (*Indexer, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if cfg.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if len(cfg.Stores) == 0 {
		return nil, fmt.Errorf("at least one language store is required")
	}

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	workers := cfg.NumWorkers
	if workers == 0 {
		workers = defaultNumWorkers
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Indexer{
		loader:    cfg.Loader,
		chunker:   cfg.Chunker,
		embedder:  cfg.Embedder,
		stores:    cfg.Stores,
		publisher: publisher,
		workers:   workers,
		logger:    logger,
	}, nil
}

// sourceResult carries one source's partial report plus the hashes its
// chunking pass produced, for the removal pass.
type sourceResult struct {
	report   SourceReport
	produced map[string]bool
}

// Reindex runs the full pipeline over every corpus document. A failing
// source is reported with status "error" and does not stop the run; only a
// corpus that cannot be listed at all fails Reindex itself.
func (ix *Indexer) Reindex(ctx context.Context) (*Report, error) {
	start := time.Now()

	loaded, err := ix.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}

	docs := loaded.Documents
	results := make([]sourceResult, len(docs))
	jobs := make(chan int, len(docs))

	workers := int(ix.workers)
	if workers > len(docs) {
		workers = len(docs)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := ix.processSource(ctx, docs[i])
				if err != nil {
					res.report.Err = err.Error()
					ix.logger.Warn("source indexing failed",
						zap.String("source", docs[i].Source),
						zap.Error(err),
					)
				}
				results[i] = res
			}
		}()
	}

	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// The removal pass checks each source's stored hashes against the union
	// of hashes produced for its language, not just its own: a hash shared
	// by two sources stays alive while any current document still produces
	// it.
	produced := make(map[document.Language]map[string]bool, len(ix.stores))
	for _, res := range results {
		if len(res.produced) == 0 {
			continue
		}
		set := produced[res.report.Language]
		if set == nil {
			set = make(map[string]bool, len(res.produced))
			produced[res.report.Language] = set
		}
		for h := range res.produced {
			set[h] = true
		}
	}

	reports := make([]SourceReport, 0, len(results)+len(loaded.Failed))
	for _, res := range results {
		sr := res.report
		if sr.Err != "" {
			// A failed source keeps its old records; removing them would
			// degrade search over content that is still the latest known.
			sr.Status = SourceStatusError
			reports = append(reports, sr)
			continue
		}

		removed, err := ix.removeStale(ctx, sr.Path, sr.Language, produced[sr.Language])
		if err != nil {
			sr.Status = SourceStatusError
			sr.Err = err.Error()
			ix.logger.Warn("stale record removal failed",
				zap.String("source", sr.Path),
				zap.Error(err),
			)
			reports = append(reports, sr)
			continue
		}
		sr.Removed = removed
		sr.Status = statusFor(sr)
		reports = append(reports, sr)
	}

	for _, f := range loaded.Failed {
		reports = append(reports, SourceReport{
			Path:     f.Source,
			Language: f.Language,
			Status:   SourceStatusError,
			Err:      f.Err.Error(),
		})
	}

	report := &Report{Sources: reports}
	for _, sr := range reports {
		report.Added += sr.Added
		report.Updated += sr.Updated
		report.Skipped += sr.Skipped
		report.Removed += sr.Removed
	}

	for lang, store := range ix.stores {
		n, err := store.Size(ctx)
		if err != nil {
			ix.logger.Warn("reading store size",
				zap.String("language", string(lang)),
				zap.Error(err),
			)
			continue
		}
		report.TotalRecords += n
	}

	report.Elapsed = time.Since(start)

	for _, sr := range reports {
		ix.publishSource(ctx, sr)
	}
	ix.publishCorpus(ctx, report)

	ix.logger.Info("corpus indexed",
		zap.Int("sources", len(report.Sources)),
		zap.Int("added", report.Added),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("removed", report.Removed),
		zap.Int("total_records", report.TotalRecords),
		zap.Duration("elapsed", report.Elapsed),
	)

	return report, nil
}

// processSource chunks, embeds, and upserts one document. The returned
// result is partial on error: counters reflect only what actually reached
// the store.
func (ix *Indexer) processSource(ctx context.Context, doc document.Document) (sourceResult, error) {
	res := sourceResult{
		report: SourceReport{Path: doc.Source, Language: doc.Language},
	}

	store, ok := ix.stores[doc.Language]
	if !ok {
		return res, fmt.Errorf("no vector store for language %q", doc.Language)
	}

	chunks := ix.chunker.Split(doc)
	res.report.ChunkCount = len(chunks)
	if len(chunks) == 0 {
		return res, nil
	}

	res.produced = make(map[string]bool, len(chunks))
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
		res.produced[ch.Hash] = true
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return res, fmt.Errorf("embedding chunks: %w", err)
	}

	records := make([]vector.Record, len(chunks))
	for i, ch := range chunks {
		records[i] = vector.Record{
			Hash:      ch.Hash,
			Source:    doc.Source,
			Text:      ch.Text,
			Embedding: vecs[i],
		}
	}

	stats, err := store.Upsert(ctx, records)
	if err != nil {
		return res, fmt.Errorf("upserting records: %w", err)
	}
	res.report.Added = stats.Added
	res.report.Updated = stats.Updated
	res.report.Skipped = stats.Skipped

	ix.logger.Debug("source indexed",
		zap.String("source", doc.Source),
		zap.Int("chunks", len(chunks)),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
	)

	return res, nil
}

// removeStale deletes the source's records whose hashes are outside keep,
// the union of hashes produced for the language in this run.
func (ix *Indexer) removeStale(ctx context.Context, source string, lang document.Language, keep map[string]bool) (int, error) {
	store := ix.stores[lang]

	existing, err := store.SourceHashes(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("listing source hashes: %w", err)
	}

	var stale []string
	for _, h := range existing {
		if !keep[h] {
			stale = append(stale, h)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := store.Delete(ctx, stale); err != nil {
		return 0, fmt.Errorf("deleting stale records: %w", err)
	}

	return len(stale), nil
}

// statusFor derives a source's status from its upsert counters. A source
// whose only change was removals still reports by its upsert outcome; the
// removed count stays visible in the report.
func statusFor(sr SourceReport) SourceStatus {
	switch {
	case sr.Updated > 0:
		return SourceStatusUpdated
	case sr.Added > 0:
		return SourceStatusAdded
	default:
		return SourceStatusSkipped
	}
}

// publishSource emits the per-source event. Event delivery is advisory:
// failures are logged, never returned.
func (ix *Indexer) publishSource(ctx context.Context, sr SourceReport) {
	event := &eventstream.SourceIndexedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeSourceIndexed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        sr.Path,
		Language:      string(sr.Language),
		Status:        string(sr.Status),
		ChunkCount:    sr.ChunkCount,
		Added:         sr.Added,
		Updated:       sr.Updated,
		Skipped:       sr.Skipped,
		Removed:       sr.Removed,
		Error:         sr.Err,
	}

	if err := ix.publisher.PublishSourceIndexed(ctx, event); err != nil {
		ix.logger.Warn("publishing source indexed event",
			zap.String("source", sr.Path),
			zap.Error(err),
		)
	}
}

func (ix *Indexer) publishCorpus(ctx context.Context, report *Report) {
	event := &eventstream.CorpusIndexedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeCorpusIndexed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Added:         report.Added,
		Updated:       report.Updated,
		Skipped:       report.Skipped,
		Removed:       report.Removed,
		TotalRecords:  report.TotalRecords,
		Sources:       len(report.Sources),
		DurationMs:    report.Elapsed.Milliseconds(),
	}

	if err := ix.publisher.PublishCorpusIndexed(ctx, event); err != nil {
		ix.logger.Warn("publishing corpus indexed event", zap.Error(err))
	}
}
