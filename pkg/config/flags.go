package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --corpus
// on both "parlance index" and "parlance serve").
type Flag struct {
	// Name is the long flag name (e.g. "corpus").
	Name string

	// Shorthand is the one-letter short flag (e.g. "c"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "corpus.root").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagCorpusRoot      = "corpus"
	FlagLanguages       = "languages"
	FlagChunkSize       = "chunk-size"
	FlagChunkOverlap    = "chunk-overlap"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagHistoryProv     = "history-provider"
	FlagHistoryTgt      = "history-target"
	FlagAPIListen       = "api-listen"
	FlagAPITarget       = "api-target"
	FlagTopK            = "top-k"
	FlagEventsProvider  = "events-provider"
	FlagEventsTopic     = "events-topic"
)

// DefaultFlagSet returns the registry of all shared parlance flags.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagCorpusRoot: {
			Name:        "corpus",
			Shorthand:   "c",
			ViperKey:    "corpus.root",
			Description: "Corpus root directory containing per-language subdirectories",
		},
		FlagLanguages: {
			Name:        "languages",
			ViperKey:    "corpus.languages",
			Description: "Comma-separated language codes to index (e.g. en,ru)",
		},
		FlagChunkSize: {
			Name:        "chunk-size",
			ViperKey:    "chunker.chunk_size",
			Description: "Maximum chunk size in runes",
		},
		FlagChunkOverlap: {
			Name:        "chunk-overlap",
			ViperKey:    "chunker.overlap",
			Description: "Chunk overlap in runes",
		},
		FlagEmbeddingProv: {
			Name:        "embedding-provider",
			ViperKey:    "embedding.provider",
			Description: "Embedding provider type (ollama, openai)",
		},
		FlagEmbeddingTgt: {
			Name:        "embedding-target",
			ViperKey:    "embedding.target",
			Description: "Embedding provider URL",
		},
		FlagEmbeddingModel: {
			Name:        "embedding-model",
			ViperKey:    "embedding.model",
			Description: "Embedding model name",
		},
		FlagEmbeddingDims: {
			Name:        "embedding-dimensions",
			ViperKey:    "embedding.dimensions",
			Description: "Embedding vector dimensions",
		},
		FlagVectorStoreProv: {
			Name:        "vector-store-provider",
			ViperKey:    "vector_store.provider",
			Description: "Vector store provider (sqlite, chroma, qdrant)",
		},
		FlagVectorStoreTgt: {
			Name:        "vector-store-target",
			ViperKey:    "vector_store.target",
			Description: "Vector store server URL (chroma, qdrant)",
		},
		FlagHistoryProv: {
			Name:        "history-provider",
			ViperKey:    "history.provider",
			Description: "History store provider (sqlite, postgres, memory)",
		},
		FlagHistoryTgt: {
			Name:        "history-target",
			ViperKey:    "history.target",
			Description: "History store connection string (postgres)",
		},
		FlagAPIListen: {
			Name:        "listen",
			Shorthand:   "l",
			ViperKey:    "api.listen",
			Description: "Address for the API server to listen on",
		},
		FlagAPITarget: {
			Name:        "api-target",
			ViperKey:    "client.api_target",
			Description: "Parlance API server URL",
		},
		FlagTopK: {
			Name:        "top-k",
			Shorthand:   "k",
			ViperKey:    "search.top_k",
			Description: "Number of chunks to retrieve per language",
		},
		FlagEventsProvider: {
			Name:        "events-provider",
			ViperKey:    "events.provider",
			Description: "Indexing event stream provider (nop, kafka)",
		},
		FlagEventsTopic: {
			Name:        "events-topic",
			ViperKey:    "events.topic",
			Description: "Indexing event stream topic",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddStringSliceFlag registers a string slice flag on cmd from the given FlagSet.
func AddStringSliceFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *[]string) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultStringSlice(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringSliceVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringSliceVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultStringSlice returns the default string slice value for a viper key from NewDefaultConfig.
func defaultStringSlice(viperKey string) []string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetStringSlice(viperKey)
}
