// Package searchcmder provides the search command for similarity queries
// against a running glyph server.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/glyph/pkg/config"
	"github.com/papercomputeco/glyph/pkg/search"
	"github.com/papercomputeco/glyph/pkg/utils"
	"github.com/papercomputeco/glyph/server"
)

var (
	rankStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

const searchTimeout = 30 * time.Second

type searchCommander struct {
	query string
	topK  int
	quiet bool
	http  bool

	target    string
	apiTarget string

	out io.Writer
}

const searchLongDesc string = `Search the glyph index.

The query text is embedded by the server and the closest documents are
returned with their similarity score and metadata, best match first.

By default the gRPC Search endpoint at --target is used. With --http the
query goes through the HTTP API at --api-target instead.

Use --quiet to print only document ids, one per line.

Examples:
  glyph search "how to configure logging"
  glyph search "error handling" --top 10
  glyph search "error handling" --http --api-target http://localhost:7071
  glyph search "backpressure" --quiet`

const searchShortDesc string = "Search the index"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveCommand(cmd, []string{config.FlagServerTarget, config.FlagAPITarget})
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.target = cfg.Client.ServerTarget
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only document ids, one per line")
	cmd.Flags().BoolVar(&cmder.http, "http", false, "Query the HTTP API instead of gRPC")
	config.AddStringFlag(cmd, config.Flags, config.FlagServerTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var (
		output *search.SearchOutput
		err    error
	)
	if c.http {
		output, err = SearchAPI(ctx, c.apiTarget, c.query, c.topK)
	} else {
		output, err = SearchGRPC(ctx, c.target, c.query, c.topK)
	}
	if err != nil {
		return err
	}

	render(c.out, output, c.quiet)
	return nil
}

// SearchGRPC runs a text query against the Indexer service at target.
func SearchGRPC(ctx context.Context, target, query string, topK int) (*search.SearchOutput, error) {
	client, err := server.NewClient(target)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	return searchWith(ctx, client, query, topK)
}

func searchWith(ctx context.Context, client *server.Client, query string, topK int) (*search.SearchOutput, error) {
	resp, err := client.Search(ctx, &server.SearchRequest{Query: query, Limit: int32(topK)})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	output := &search.SearchOutput{
		Query:   query,
		Results: make([]search.Result, len(resp.Results)),
		Count:   len(resp.Results),
	}
	for i, r := range resp.Results {
		output.Results[i] = search.Result{ID: r.ID, Score: r.Score, Metadata: r.Metadata}
	}
	return output, nil
}

// SearchAPI calls the glyph HTTP search endpoint and returns the parsed output.
func SearchAPI(ctx context.Context, apiTarget, query string, topK int) (*search.SearchOutput, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(topK))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to glyph API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output search.SearchOutput
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}

func render(w io.Writer, output *search.SearchOutput, quiet bool) {
	if output.Count == 0 {
		if !quiet {
			fmt.Fprintln(w, "No results found.")
		}
		return
	}

	if quiet {
		for _, r := range output.Results {
			fmt.Fprintln(w, r.ID)
		}
		return
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		idStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, r := range output.Results {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			scoreStyle.Render(fmt.Sprintf("score: %.4f", r.Score)),
			idStyle.Render(r.ID),
		)
		for _, k := range slices.Sorted(maps.Keys(r.Metadata)) {
			v := strings.ReplaceAll(utils.Truncate(r.Metadata[k], 60), "\n", " ")
			fmt.Fprintf(w, "      %s %s\n", keyStyle.Render(k+":"), valueStyle.Render(v))
		}
		fmt.Fprintln(w)
	}
}
