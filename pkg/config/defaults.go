package config

const (
	defaultServerListen = ":7070"
	defaultAPIListen    = ":7071"
	defaultLogLevel     = "info"

	defaultClientServerTarget = "localhost:7070"
	defaultClientAPITarget    = "http://localhost:7071"

	defaultIngestCapacity    = 256
	defaultIngestWorkers     = 4
	defaultIngestReportEvery = 1000

	defaultVectorProvider   = "inmemory"
	defaultVectorCollection = "glyph"

	defaultEmbeddingProvider   = "hash"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 384

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "glyph.acks"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
//
// ingest.max_inflight_embeds stays 0, meaning "same as ingest.workers".
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:   defaultServerListen,
			LogLevel: defaultLogLevel,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			ServerTarget: defaultClientServerTarget,
			APITarget:    defaultClientAPITarget,
		},
		Ingest: IngestConfig{
			Capacity:    defaultIngestCapacity,
			Workers:     defaultIngestWorkers,
			ReportEvery: defaultIngestReportEvery,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
