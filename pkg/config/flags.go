package config

import (
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag describes a CLI flag once so that commands sharing it (--target on
// both "glyph ingest" and "glyph search") cannot drift apart.
type Flag struct {
	Name      string
	Shorthand string

	// ViperKey is the dotted config key the flag overrides (e.g. "ingest.capacity").
	ViperKey string

	Description string
}

// FlagSet maps registry keys to flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagAPIListen       = "api-listen"
	FlagLogLevel        = "log-level"
	FlagCapacity        = "capacity"
	FlagWorkers         = "workers"
	FlagMaxEmbeds       = "max-inflight-embeds"
	FlagReportEvery     = "report-every"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagCollection      = "collection"
	FlagSQLite          = "sqlite"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagEventStreamProv = "eventstream-provider"
	FlagEventStreamTpc  = "eventstream-topic"
	FlagServerTarget    = "target"
	FlagAPITarget       = "api-target"
)

// Flags is the registry shared by every glyph command.
var Flags = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "gRPC listen address"},
	FlagAPIListen:       {Name: "api-listen", ViperKey: "api.listen", Description: "HTTP API listen address (empty to disable)"},
	FlagLogLevel:        {Name: "log-level", ViperKey: "server.log_level", Description: "Log level: debug, info, warn, error"},
	FlagCapacity:        {Name: "capacity", ViperKey: "ingest.capacity", Description: "Documents in flight per stream before senders block"},
	FlagWorkers:         {Name: "workers", Shorthand: "w", ViperKey: "ingest.workers", Description: "Indexing workers per stream"},
	FlagMaxEmbeds:       {Name: "max-inflight-embeds", ViperKey: "ingest.max_inflight_embeds", Description: "Concurrent embedding calls across streams (0 = workers)"},
	FlagReportEvery:     {Name: "report-every", ViperKey: "ingest.report_every", Description: "Log throughput every N acknowledgments"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store: inmemory, sqlite, chroma, qdrant, pgvector"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store URL, address or PostgreSQL DSN"},
	FlagCollection:      {Name: "collection", ViperKey: "vector_store.collection", Description: "Vector store collection name"},
	FlagSQLite:          {Name: "sqlite", ViperKey: "vector_store.sqlite_path", Description: "Path to the sqlite-vec database"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider: hash, ollama"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding vector dimensions"},
	FlagEventStreamProv: {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Acknowledgment event stream: none, kafka"},
	FlagEventStreamTpc:  {Name: "eventstream-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for acknowledgment events"},
	FlagServerTarget:    {Name: "target", Shorthand: "t", ViperKey: "client.server_target", Description: "glyph gRPC server address"},
	FlagAPITarget:       {Name: "api-target", ViperKey: "client.api_target", Description: "glyph HTTP API URL"},
}

// AddStringFlag registers the string flag fs[key] on cmd. Name, shorthand,
// default and description all come from the registry.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	if def, ok := fs[key]; ok {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaults().GetString(def.ViperKey), def.Description)
	}
}

// AddUintFlag registers the uint flag fs[key] on cmd.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	if def, ok := fs[key]; ok {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaults().GetUint(def.ViperKey), def.Description)
	}
}

// BindRegisteredFlags binds the already registered flags named by keys to
// their viper keys. Call it in PreRunE after InitViper; unknown keys and
// flags missing from cmd are skipped.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		if f := cmd.Flags().Lookup(def.Name); f != nil {
			_ = v.BindPFlag(def.ViperKey, f)
		}
	}
}

// defaults holds NewDefaultConfig as viper keys for flag defaults.
var defaults = sync.OnceValue(func() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
})
