// Package initcmder provides the init command for initializing a local .glyph
// directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/glyph/pkg/cliui"
	"github.com/papercomputeco/glyph/pkg/config"
	"github.com/papercomputeco/glyph/pkg/dotdir"
)

const fetchTimeout = 10 * time.Second

const initLongDesc string = `Initialize a new .glyph/ directory in the current working directory.

Creates a local .glyph/ directory that takes precedence over the default
~/.glyph/ directory for configuration, the sqlite-vec index and watch state.

A config.toml with default values is written unless one already exists.
Use --preset to start from a named preset (local, ollama, qdrant, pgvector)
or from a config.toml fetched over HTTP. A preset always overwrites
config.toml.

Examples:
  glyph init
  glyph init --preset ollama
  glyph init --preset https://example.com/glyph/config.toml`

const initShortDesc string = "Initialize a local .glyph/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Preset name (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)
	configPath := filepath.Join(dir, "config.toml")

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()
	if !existed {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .glyph directory: %w", err)
		}
	}

	cfg, err := c.resolveConfig(ctx)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(configPath)
	if cfg != nil || statErr != nil {
		if cfg == nil {
			cfg = config.NewDefaultConfig()
		}
		cfger, err := config.NewConfiger(dir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	if existed {
		fmt.Fprintf(c.out, "  %s Already initialized: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	} else {
		fmt.Fprintf(c.out, "  %s Initialized .glyph directory: %s\n", cliui.SuccessMark, cliui.DimStyle.Render(dir))
	}
	if c.preset != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Preset:"), cliui.ValueStyle.Render(c.preset))
	}

	return nil
}

// resolveConfig returns the preset config, or nil when no preset was given.
func (c *initCommander) resolveConfig(ctx context.Context) (*config.Config, error) {
	if c.preset == "" {
		return nil, nil
	}

	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}

	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
