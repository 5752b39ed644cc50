// Package ingestcmder provides the ingest command, a streaming client for the
// glyph indexer.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/glyph/pkg/cliui"
	"github.com/papercomputeco/glyph/pkg/config"
	"github.com/papercomputeco/glyph/pkg/logger"
	"github.com/papercomputeco/glyph/server"
)

type ingestCommander struct {
	target      string
	reportEvery uint
	synthetic   uint
	watch       bool
	configDir   string
	paths       []string

	debug  bool
	out    io.Writer
	logger *slog.Logger
}

const ingestLongDesc string = `Stream documents to a running glyph server.

Each file under the given paths becomes one document whose id is its path.
Responses are read concurrently with sending; the server blocks the stream
whenever its in-flight capacity is reached, so memory stays bounded no matter
how many documents are sent.

--synthetic N sends N generated documents instead of files, which is useful
for measuring throughput under backpressure.

--watch keeps running after the first pass and re-sends files when they are
created or modified. Already sent versions are remembered in
.glyph/ingest_state.json across restarts.

Examples:
  glyph ingest ./docs
  glyph ingest notes.md README.md --target localhost:7070
  glyph ingest --synthetic 100000 --report-every 1000
  glyph ingest ./docs --watch`

const ingestShortDesc string = "Stream documents to the indexer"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest [paths...]",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cmder.synthetic == 0 && len(args) == 0 {
				return errors.New("provide paths to ingest or --synthetic N")
			}
			if cmder.synthetic > 0 && cmder.watch {
				return errors.New("--watch cannot be combined with --synthetic")
			}

			cfg, err := config.ResolveCommand(cmd, []string{config.FlagServerTarget, config.FlagReportEvery})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.target = cfg.Client.ServerTarget
			cmder.reportEvery = cfg.Ingest.ReportEvery
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.paths = args
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			pretty, err := cmd.Flags().GetBool("pretty")
			if err != nil {
				return fmt.Errorf("could not get pretty flag: %w", err)
			}
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(pretty),
				logger.WithWriter(os.Stderr),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServerTarget, &cmder.target)
	config.AddUintFlag(cmd, config.Flags, config.FlagReportEvery, &cmder.reportEvery)
	cmd.Flags().UintVar(&cmder.synthetic, "synthetic", 0, "Send N generated documents instead of files")
	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Keep watching paths and send new or modified files")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context) error {
	client, err := server.NewClient(c.target)
	if err != nil {
		return err
	}
	defer client.Close()

	st := &streamer{
		client:      client,
		reportEvery: uint64(c.reportEvery),
		out:         c.out,
		logger:      c.logger,
	}

	if c.watch {
		return c.runWatch(ctx, st)
	}

	var (
		docs  = syntheticDocs(c.synthetic)
		label = fmt.Sprintf("%d synthetic documents", c.synthetic)
	)
	if c.synthetic == 0 {
		var files []fileDoc
		err := cliui.Step(c.out, "Scanning files", func() error {
			var err error
			files, err = collectFiles(c.paths)
			return err
		})
		if err != nil {
			return err
		}
		docs = fileRequests(files, c.logger)
		label = fmt.Sprintf("%d files", len(files))
	}

	fmt.Fprintf(c.out, "\n  %s %s %s\n\n",
		cliui.HeaderStyle.Render("Sending"),
		cliui.ValueStyle.Render(label),
		cliui.DimStyle.Render("to "+c.target),
	)

	summary, err := st.stream(ctx, docs)
	printSummary(c.out, summary)
	return err
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\n  %s\n", cliui.HeaderStyle.Render("Ingest finished"))
	cliui.KeyValues(w,
		cliui.Pair{Key: "sent", Value: strconv.FormatUint(s.Sent, 10)},
		cliui.Pair{Key: "indexed", Value: strconv.FormatUint(s.Indexed, 10)},
		cliui.Pair{Key: "failed", Value: strconv.FormatUint(s.Failed, 10)},
		cliui.Pair{Key: "elapsed", Value: cliui.FormatDuration(s.Elapsed)},
		cliui.Pair{Key: "throughput", Value: cliui.FormatRate(s.Rate)},
	)
	fmt.Fprintln(w)
}
