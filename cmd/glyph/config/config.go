// Package configcmder provides the config command for managing persistent
// glyph configuration stored in the .glyph/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent glyph configuration.

Configuration is stored as config.toml in the .glyph/ directory and provides
default values for command flags. CLI flags and GLYPH_* environment variables
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.log_level, api.listen,
  client.server_target, client.api_target,
  ingest.capacity, ingest.workers, ingest.max_inflight_embeds, ingest.report_every,
  vector_store.provider, vector_store.target, vector_store.collection, vector_store.sqlite_path,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  glyph config set <key> <value>    Set a configuration value
  glyph config get <key>            Get a configuration value
  glyph config list                 List all configuration values

Examples:
  glyph config set ingest.capacity 512
  glyph config set vector_store.provider qdrant
  glyph config get embedding.dimensions
  glyph config list`

const configShortDesc string = "Manage persistent glyph configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
