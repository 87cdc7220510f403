// Package search implements query-time retrieval: query normalization,
// per-language vector search fan-out, and context assembly. It is used by
// the REST API, the MCP server tools, and the CLI search commands.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/embeddings"
	"github.com/parlancehq/parlance/pkg/vector"
)

// ErrEmptyQuery indicates a query with no searchable text after
// normalization.
var ErrEmptyQuery = errors.New("query is empty")

const (
	// DefaultTopK is the number of chunks fetched per language when the
	// caller does not pick a count. Collaborators size their prompt
	// budgets against this exact value: it is a documented contract, not
	// an internal tuning knob.
	DefaultTopK = 25

	// DefaultThreshold is the minimum cosine similarity a chunk must
	// reach to enter a context.
	DefaultThreshold = 0.3
)

// LanguageStats reports retrieval quality for one language.
type LanguageStats struct {
	// Results counts the chunks that cleared the threshold.
	Results int `json:"results"`

	// TopScore is the best raw similarity, reported even when it falls
	// below the threshold so an empty context stays explainable.
	TopScore float32 `json:"top_score"`
}

// Stats describes one search for observability.
type Stats struct {
	PerLanguage map[document.Language]LanguageStats `json:"per_language"`
	Elapsed     time.Duration                       `json:"elapsed_ns"`
}

// Hit is one retrieved chunk that cleared the threshold, in rank order.
type Hit struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
}

// Result is the outcome of one multilingual search. Contexts holds an
// entry for every configured language; the entry is an empty string when
// that language's store had nothing relevant. Hits carries the same
// chunks individually, with sources and scores, for display surfaces
// that rank rather than assemble.
type Result struct {
	Contexts map[document.Language]string `json:"contexts"`
	Hits     map[document.Language][]Hit  `json:"hits"`
	Stats    Stats                        `json:"stats"`
}

// Config configures a Multilingual searcher.
type Config struct {
	// Stores maps each configured language to its vector store.
	Stores map[document.Language]vector.Store

	// Embedder embeds the normalized query, once per search.
	Embedder embeddings.Embedder

	// Rules is the query normalization table. Defaults to DefaultRules.
	Rules map[document.Language]Rule

	// Priority is the deterministic fallback order for context
	// selection. Languages without a store are dropped; configured
	// languages missing from it are appended in sorted order.
	Priority []document.Language

	// Threshold is the minimum similarity for a chunk to enter a
	// context. Defaults to DefaultThreshold.
	Threshold float64
}

// Multilingual embeds a query once and fans it out across every
// configured language's store, assembling one context per language.
type Multilingual struct {
	stores    map[document.Language]vector.Store
	embedder  embeddings.Embedder
	pre       *Preprocessor
	priority  []document.Language
	threshold float32
	logger    *zap.Logger
}

func NewMultilingual(cfg Config, logger *zap.Logger) (*Multilingual, error) {
	if len(cfg.Stores) == 0 {
		return nil, fmt.Errorf("at least one language store is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %v", cfg.Threshold)
	}

	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	priority := make([]document.Language, 0, len(cfg.Stores))
	seen := make(map[document.Language]bool, len(cfg.Stores))
	for _, lang := range cfg.Priority {
		if _, ok := cfg.Stores[lang]; ok && !seen[lang] {
			priority = append(priority, lang)
			seen[lang] = true
		}
	}
	rest := make([]document.Language, 0, len(cfg.Stores))
	for lang := range cfg.Stores {
		if !seen[lang] {
			rest = append(rest, lang)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	priority = append(priority, rest...)

	return &Multilingual{
		stores:    cfg.Stores,
		embedder:  cfg.Embedder,
		pre:       NewPreprocessor(rules),
		priority:  priority,
		threshold: float32(threshold),
		logger:    logger,
	}, nil
}

// Search normalizes the query with lang's rule, embeds it once, then
// queries every configured language's store. A language whose store is
// empty gets an empty context entry, not an error. An unavailable store
// degrades to an empty entry with a logged warning; the search itself
// fails only when the query cannot be embedded or every store fails.
func (m *Multilingual) Search(ctx context.Context, query string, lang document.Language, topK int) (*Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	start := time.Now()

	normalized := m.pre.Normalize(query, lang)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	m.logger.Debug("search request",
		zap.String("query", query),
		zap.String("normalized", normalized),
		zap.String("language", lang.String()),
		zap.Int("topK", topK),
	)

	queryEmbedding, err := m.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	result := &Result{
		Contexts: make(map[document.Language]string, len(m.stores)),
		Hits:     make(map[document.Language][]Hit, len(m.stores)),
		Stats: Stats{
			PerLanguage: make(map[document.Language]LanguageStats, len(m.stores)),
		},
	}

	var lastErr error
	failed := 0
	for _, storeLang := range m.priority {
		results, err := m.stores[storeLang].Query(ctx, queryEmbedding, topK)
		if err != nil {
			failed++
			lastErr = err
			m.logger.Warn("language store query failed, context degraded",
				zap.String("language", storeLang.String()),
				zap.Error(err),
			)
			result.Contexts[storeLang] = ""
			result.Hits[storeLang] = nil
			result.Stats.PerLanguage[storeLang] = LanguageStats{}
			continue
		}

		stats := LanguageStats{}
		if len(results) > 0 {
			stats.TopScore = results[0].Score
		}
		texts := make([]string, 0, len(results))
		hits := make([]Hit, 0, len(results))
		for _, r := range results {
			// Results are descending; the first miss ends the context.
			if r.Score < m.threshold {
				break
			}
			texts = append(texts, r.Text)
			hits = append(hits, Hit{Source: r.Source, Text: r.Text, Score: r.Score})
		}
		stats.Results = len(texts)

		result.Contexts[storeLang] = strings.Join(texts, "\n\n")
		result.Hits[storeLang] = hits
		result.Stats.PerLanguage[storeLang] = stats
	}
	if failed == len(m.priority) {
		return nil, fmt.Errorf("querying vector stores: %w", lastErr)
	}
	result.Stats.Elapsed = time.Since(start)

	total := 0
	for _, s := range result.Stats.PerLanguage {
		total += s.Results
	}
	m.logger.Debug("search complete",
		zap.Int("results", total),
		zap.Duration("elapsed", result.Stats.Elapsed),
	)
	return result, nil
}

// Priority returns the fallback order used for context selection.
func (m *Multilingual) Priority() []document.Language {
	return append([]document.Language(nil), m.priority...)
}

// PickContext selects the context for the preferred language, falling
// back to the first non-empty context in priority order. The fallback is
// deterministic: map iteration order never decides.
func PickContext(contexts map[document.Language]string, preferred document.Language, priority []document.Language) string {
	if ctx := contexts[preferred]; ctx != "" {
		return ctx
	}
	for _, lang := range priority {
		if lang == preferred {
			continue
		}
		if ctx := contexts[lang]; ctx != "" {
			return ctx
		}
	}
	return ""
}

// PickHits selects the ranked hits for the preferred language, with the
// same fallback order as PickContext.
func PickHits(hits map[document.Language][]Hit, preferred document.Language, priority []document.Language) []Hit {
	if len(hits[preferred]) > 0 {
		return hits[preferred]
	}
	for _, lang := range priority {
		if lang == preferred {
			continue
		}
		if len(hits[lang]) > 0 {
			return hits[lang]
		}
	}
	return nil
}
