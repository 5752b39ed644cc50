// Package glyphcmder wires the glyph subcommands into the root command.
package glyphcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/glyph/cmd/glyph/config"
	ingestcmder "github.com/papercomputeco/glyph/cmd/glyph/ingest"
	initcmder "github.com/papercomputeco/glyph/cmd/glyph/init"
	searchcmder "github.com/papercomputeco/glyph/cmd/glyph/search"
	servecmder "github.com/papercomputeco/glyph/cmd/glyph/serve"
	versioncmder "github.com/papercomputeco/glyph/cmd/glyph/version"
)

const glyphLongDesc string = `Glyph streams text documents into a vector index and answers
similarity queries over it.

Run the server and feed it:
  glyph serve                      Run the gRPC indexer (and the HTTP API)
  glyph ingest ./docs              Stream files to a running server
  glyph ingest --synthetic 100000  Stream generated documents (backpressure test)
  glyph search "query text"        Query the index`

const glyphShortDesc string = "Glyph - streaming text indexing"

func NewGlyphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "glyph",
		Short:         glyphShortDesc,
		Long:          glyphLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("pretty", false, "Colorized human readable logs")
	cmd.PersistentFlags().String("config-dir", "", "Override the .glyph/ directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
