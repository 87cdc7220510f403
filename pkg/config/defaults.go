package config

const (
	defaultCorpusRoot = "corpus"

	defaultChunkSize      = 1000
	defaultChunkOverlap   = 150
	defaultBoundaryWindow = 200

	defaultEmbeddingProvider       = "ollama"
	defaultEmbeddingTarget         = "http://localhost:11434"
	defaultEmbeddingModel          = "embeddinggemma"
	defaultEmbeddingDimensions     = 768
	defaultEmbeddingTimeoutSeconds = 30

	defaultVectorProvider = "sqlite"

	defaultSearchTopK      = 25
	defaultSearchThreshold = 0.3

	defaultHistoryProvider      = "sqlite"
	defaultHistoryMaxMessages   = 20
	defaultHistoryMaxAgeMinutes = 60

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "parlance.indexing"
)

// defaultLanguages is the language enumeration used when none is configured.
// The order doubles as the fallback priority for context selection.
func defaultLanguages() []string {
	return []string{"en", "ru"}
}

func defaultEventsBrokers() []string {
	return []string{"localhost:9092"}
}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Corpus: CorpusConfig{
			Root:      defaultCorpusRoot,
			Languages: defaultLanguages(),
		},
		Chunker: ChunkerConfig{
			ChunkSize:      defaultChunkSize,
			Overlap:        defaultChunkOverlap,
			BoundaryWindow: defaultBoundaryWindow,
		},
		Embedding: EmbeddingConfig{
			Provider:       defaultEmbeddingProvider,
			Target:         defaultEmbeddingTarget,
			Model:          defaultEmbeddingModel,
			Dimensions:     defaultEmbeddingDimensions,
			TimeoutSeconds: defaultEmbeddingTimeoutSeconds,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Search: SearchConfig{
			TopK:             defaultSearchTopK,
			Threshold:        defaultSearchThreshold,
			LanguagePriority: defaultLanguages(),
		},
		History: HistoryConfig{
			Provider:      defaultHistoryProvider,
			MaxMessages:   defaultHistoryMaxMessages,
			MaxAgeMinutes: defaultHistoryMaxAgeMinutes,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Brokers:  defaultEventsBrokers(),
			Topic:    defaultEventsTopic,
		},
	}
}
