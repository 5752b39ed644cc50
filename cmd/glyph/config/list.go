package configcmder

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/glyph/pkg/cliui"
	"github.com/papercomputeco/glyph/pkg/config"
)

const listLongDesc string = `List all configuration values.

Prints every key grouped by TOML section, with its value from the
config.toml in the .glyph/ directory or <not set> when empty.

Examples:
  glyph config list
  glyph config list --config-dir /srv/glyph/.glyph`

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}
}

func runList(w io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(w, cfger.GetTarget())

	var (
		section string
		pairs   []cliui.Pair
	)
	flush := func() {
		if len(pairs) == 0 {
			return
		}
		fmt.Fprintf(w, "  %s\n", cliui.HeaderStyle.Render("["+section+"]"))
		cliui.KeyValues(w, pairs...)
		fmt.Fprintln(w)
		pairs = pairs[:0]
	}

	for _, key := range config.ValidConfigKeys() {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		sec, name, _ := strings.Cut(key, ".")
		if sec != section {
			flush()
			section = sec
		}

		shown := "<not set>"
		if value != "" {
			shown = strconv.Quote(value)
		}
		pairs = append(pairs, cliui.Pair{Key: name, Value: shown})
	}
	flush()

	return nil
}
