// Package searchcmder provides the search command for querying the corpus
// through a running parlance API server.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/api"
	"github.com/parlancehq/parlance/pkg/cliui"
	"github.com/parlancehq/parlance/pkg/config"
	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/logger"
	"github.com/parlancehq/parlance/pkg/search"
	"github.com/parlancehq/parlance/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query    string
	language string
	topK     uint
	quiet    bool
	jsonOut  bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const searchLongDesc string = `Search the corpus via the parlance API.

Embeds the query once and retrieves the most relevant chunks from every
configured language's store, printing the ranked matches for one language
plus per-language match counts. Requires a running parlance API server
(parlance serve).

Use --quiet to output only the assembled context text with no styling.
This is useful for piping into prompt templates.

Example:
  parlance search "refund policy"
  parlance search "сроки возврата" --language ru
  parlance search "shipping times" --top-k 10 --api-target http://localhost:8081
  parlance search "refund policy" --quiet`

const searchShortDesc string = "Search the corpus"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			if !cmd.Flags().Changed("top-k") {
				cmder.topK = cfg.Search.TopK
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.language, "language", "l", "", "Query language (defaults to the server's default)")
	cmd.Flags().UintVarP(&cmder.topK, "top-k", "k", defaults.Search.TopK, "Number of chunks to retrieve per language")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only the assembled context text (for piping)")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the raw search response as JSON")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Parlance API server URL")

	return cmd
}

func (c *searchCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	output, err := SearchAPI(c.apiTarget, c.query, c.language, int(c.topK))
	if err != nil {
		return err
	}

	if c.quiet {
		if output.Context != "" {
			fmt.Println(output.Context)
		}
		return nil
	}

	if c.jsonOut {
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(output.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("\n%s %s %s\n\n",
		headerStyle.Render("Search results for:"),
		sourceStyle.Render(fmt.Sprintf("%q", output.Query)),
		dimStyle.Render(fmt.Sprintf("(%s, %s)", output.Language, cliui.FormatDuration(output.Stats.Elapsed))),
	)

	for i, hit := range output.Results {
		c.printHit(i+1, hit)
	}

	c.printOtherLanguages(output)

	return nil
}

func (c *searchCommander) printHit(rank int, hit search.Hit) {
	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		cliui.FormatScore(hit.Score),
		sourceStyle.Render(hit.Source),
	)

	preview := strings.ReplaceAll(hit.Text, "\n", " ")
	fmt.Printf("      %s\n\n", previewStyle.Render(utils.Truncate(preview, 120)))
}

func (c *searchCommander) printOtherLanguages(output *api.SearchResponse) {
	langs := make([]string, 0, len(output.Stats.PerLanguage))
	for lang := range output.Stats.PerLanguage {
		if string(lang) != output.Language {
			langs = append(langs, string(lang))
		}
	}
	if len(langs) == 0 {
		return
	}
	sort.Strings(langs)

	fmt.Printf("  %s\n", dimStyle.Render("Other languages:"))
	for _, lang := range langs {
		ls := output.Stats.PerLanguage[document.Language(lang)]
		fmt.Printf("    %s %s\n",
			cliui.KeyStyle.Render(lang+":"),
			dimStyle.Render(fmt.Sprintf("%d chunks, top score %.4f", ls.Results, ls.TopScore)),
		)
	}
	fmt.Println()
}

// SearchAPI calls the parlance search API and returns the parsed response.
// Exported so other commands (e.g. the console) can reuse it.
func SearchAPI(apiTarget, query, language string, topK int) (*api.SearchResponse, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	if language != "" {
		q.Set("language", language)
	}
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to parlance API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.SearchResponse
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
