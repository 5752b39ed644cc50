package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent glyph configuration stored as config.toml
// in the .glyph/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Ingest      IngestConfig      `toml:"ingest"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// ServerConfig holds the gRPC ingestion server settings.
type ServerConfig struct {
	Listen   string `toml:"listen,omitempty"`
	LogLevel string `toml:"log_level,omitempty"`
}

// APIConfig holds HTTP query API settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// glyph server (glyph ingest, glyph search).
type ClientConfig struct {
	// ServerTarget is the gRPC address (host:port).
	ServerTarget string `toml:"server_target,omitempty"`

	// APITarget is the HTTP API URL (scheme + host + port).
	APITarget string `toml:"api_target,omitempty"`
}

// IngestConfig holds the backpressure and worker settings of a stream.
type IngestConfig struct {
	Capacity          uint `toml:"capacity,omitempty"`
	Workers           uint `toml:"workers,omitempty"`
	MaxInflightEmbeds uint `toml:"max_inflight_embeds,omitempty"`
	ReportEvery       uint `toml:"report_every,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// EventStreamConfig holds acknowledgment event publishing settings.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// keyOrder lists configKeys in TOML section order for list output and
// completion.
var keyOrder = []string{
	"server.listen",
	"server.log_level",
	"api.listen",
	"client.server_target",
	"client.api_target",
	"ingest.capacity",
	"ingest.workers",
	"ingest.max_inflight_embeds",
	"ingest.report_every",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"vector_store.sqlite_path",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":    stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.log_level": stringKey(func(c *Config) *string { return &c.Server.LogLevel }),
	"api.listen":       stringKey(func(c *Config) *string { return &c.API.Listen }),

	"client.server_target": stringKey(func(c *Config) *string { return &c.Client.ServerTarget }),
	"client.api_target":    stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"ingest.capacity":            uintKey("ingest.capacity", func(c *Config) *uint { return &c.Ingest.Capacity }),
	"ingest.workers":             uintKey("ingest.workers", func(c *Config) *uint { return &c.Ingest.Workers }),
	"ingest.max_inflight_embeds": uintKey("ingest.max_inflight_embeds", func(c *Config) *uint { return &c.Ingest.MaxInflightEmbeds }),
	"ingest.report_every":        uintKey("ingest.report_every", func(c *Config) *uint { return &c.Ingest.ReportEvery }),

	"vector_store.provider":    stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":      stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection":  stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.sqlite_path": stringKey(func(c *Config) *string { return &c.VectorStore.SQLitePath }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = splitList(v)
			return nil
		},
	},
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
