package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent parlance configuration stored as config.toml
// in the .parlance/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Corpus      CorpusConfig      `toml:"corpus"`
	Chunker     ChunkerConfig     `toml:"chunker"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Search      SearchConfig      `toml:"search"`
	History     HistoryConfig     `toml:"history"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Events      EventsConfig      `toml:"events"`
}

// CorpusConfig describes the document corpus to index. The root directory is
// expected to contain one subdirectory per language code, each holding the
// source files for that language.
type CorpusConfig struct {
	Root      string   `toml:"root,omitempty"`
	Languages []string `toml:"languages,omitempty"`
}

// ChunkerConfig holds chunking settings. All sizes are in runes.
type ChunkerConfig struct {
	ChunkSize      uint `toml:"chunk_size,omitempty"`
	Overlap        uint `toml:"overlap,omitempty"`
	BoundaryWindow uint `toml:"boundary_window,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider       string `toml:"provider,omitempty"`
	Target         string `toml:"target,omitempty"`
	Model          string `toml:"model,omitempty"`
	Dimensions     uint   `toml:"dimensions,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
}

// VectorStoreConfig holds vector store settings. For the sqlite provider the
// store files live in the .parlance/ directory; for chroma and qdrant the
// target is the server URL.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	TopK             uint     `toml:"top_k,omitempty"`
	Threshold        float64  `toml:"threshold,omitempty"`
	LanguagePriority []string `toml:"language_priority,omitempty"`
}

// HistoryConfig holds conversation history settings. For the sqlite provider
// the database lives in the .parlance/ directory; for postgres the target is
// the connection string.
type HistoryConfig struct {
	Provider      string `toml:"provider,omitempty"`
	Target        string `toml:"target,omitempty"`
	MaxMessages   uint   `toml:"max_messages,omitempty"`
	MaxAgeMinutes uint   `toml:"max_age_minutes,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to the running
// API server (e.g. parlance search). Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EventsConfig holds indexing event stream settings.
type EventsConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
// List-valued keys are read and written as comma-separated values.
var configKeys = map[string]configKeyInfo{
	"corpus.root": {
		get: func(c *Config) string { return c.Corpus.Root },
		set: func(c *Config, v string) error { c.Corpus.Root = v; return nil },
	},
	"corpus.languages": {
		get: func(c *Config) string { return joinList(c.Corpus.Languages) },
		set: func(c *Config, v string) error { c.Corpus.Languages = splitList(v); return nil },
	},
	"chunker.chunk_size": {
		get: func(c *Config) string { return formatUint(c.Chunker.ChunkSize) },
		set: func(c *Config, v string) error { return setUint(&c.Chunker.ChunkSize, "chunker.chunk_size", v) },
	},
	"chunker.overlap": {
		get: func(c *Config) string { return formatUint(c.Chunker.Overlap) },
		set: func(c *Config, v string) error { return setUint(&c.Chunker.Overlap, "chunker.overlap", v) },
	},
	"chunker.boundary_window": {
		get: func(c *Config) string { return formatUint(c.Chunker.BoundaryWindow) },
		set: func(c *Config, v string) error {
			return setUint(&c.Chunker.BoundaryWindow, "chunker.boundary_window", v)
		},
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string { return formatUint(c.Embedding.Dimensions) },
		set: func(c *Config, v string) error {
			return setUint(&c.Embedding.Dimensions, "embedding.dimensions", v)
		},
	},
	"embedding.timeout_seconds": {
		get: func(c *Config) string { return formatUint(c.Embedding.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			return setUint(&c.Embedding.TimeoutSeconds, "embedding.timeout_seconds", v)
		},
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"search.top_k": {
		get: func(c *Config) string { return formatUint(c.Search.TopK) },
		set: func(c *Config, v string) error { return setUint(&c.Search.TopK, "search.top_k", v) },
	},
	"search.threshold": {
		get: func(c *Config) string {
			if c.Search.Threshold == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Search.Threshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for search.threshold: %w", err)
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("search.threshold must be between 0 and 1, got %v", f)
			}
			c.Search.Threshold = f
			return nil
		},
	},
	"search.language_priority": {
		get: func(c *Config) string { return joinList(c.Search.LanguagePriority) },
		set: func(c *Config, v string) error { c.Search.LanguagePriority = splitList(v); return nil },
	},
	"history.provider": {
		get: func(c *Config) string { return c.History.Provider },
		set: func(c *Config, v string) error { c.History.Provider = v; return nil },
	},
	"history.target": {
		get: func(c *Config) string { return c.History.Target },
		set: func(c *Config, v string) error { c.History.Target = v; return nil },
	},
	"history.max_messages": {
		get: func(c *Config) string { return formatUint(c.History.MaxMessages) },
		set: func(c *Config, v string) error {
			return setUint(&c.History.MaxMessages, "history.max_messages", v)
		},
	},
	"history.max_age_minutes": {
		get: func(c *Config) string { return formatUint(c.History.MaxAgeMinutes) },
		set: func(c *Config, v string) error {
			return setUint(&c.History.MaxAgeMinutes, "history.max_age_minutes", v)
		},
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return joinList(c.Events.Brokers) },
		set: func(c *Config, v string) error { c.Events.Brokers = splitList(v); return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func setUint(target *uint, key, v string) error {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = uint(n)
	return nil
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
