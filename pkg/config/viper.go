package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/parlancehq/parlance/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PARLANCE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PARLANCE_API_LISTEN, PARLANCE_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: PARLANCE_API_LISTEN, PARLANCE_HISTORY_PROVIDER, etc.
	v.SetEnvPrefix("PARLANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// GetStringList reads a list-valued key, splitting comma-separated scalars
// so environment values (PARLANCE_CORPUS_LANGUAGES=en,ru) behave like TOML
// arrays and flag lists.
func GetStringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Corpus
	v.SetDefault("corpus.root", d.Corpus.Root)
	v.SetDefault("corpus.languages", d.Corpus.Languages)

	// Chunker
	v.SetDefault("chunker.chunk_size", d.Chunker.ChunkSize)
	v.SetDefault("chunker.overlap", d.Chunker.Overlap)
	v.SetDefault("chunker.boundary_window", d.Chunker.BoundaryWindow)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.timeout_seconds", d.Embedding.TimeoutSeconds)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)

	// Search
	v.SetDefault("search.top_k", d.Search.TopK)
	v.SetDefault("search.threshold", d.Search.Threshold)
	v.SetDefault("search.language_priority", d.Search.LanguagePriority)

	// History
	v.SetDefault("history.provider", d.History.Provider)
	v.SetDefault("history.target", d.History.Target)
	v.SetDefault("history.max_messages", d.History.MaxMessages)
	v.SetDefault("history.max_age_minutes", d.History.MaxAgeMinutes)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}
