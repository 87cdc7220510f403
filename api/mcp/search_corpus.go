package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/search"
)

var (
	searchCorpusToolName    = "search_corpus"
	searchCorpusDescription = "Search the multilingual support corpus for passages relevant to a query. Returns an assembled context in the preferred language, with per-language match statistics."
)

// SearchCorpusInput represents the input arguments for the search_corpus tool.
type SearchCorpusInput struct {
	Query    string `json:"query" jsonschema:"the search query text"`
	Language string `json:"language,omitempty" jsonschema:"preferred context language code such as en or ru (default: the server's primary language)"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks fetched per language (default: 25)"`
}

// LanguageMatches reports how one language's store answered the query.
type LanguageMatches struct {
	Language string  `json:"language"`
	Results  int     `json:"results"`
	TopScore float32 `json:"top_score"`
}

// SearchCorpusOutput represents the output of the search_corpus tool.
type SearchCorpusOutput struct {
	Query     string            `json:"query"`
	Language  string            `json:"language"`
	Context   string            `json:"context"`
	Languages []LanguageMatches `json:"languages"`
}

// handleSearchCorpus processes a corpus search request.
func (s *Server) handleSearchCorpus(ctx context.Context, _ *mcp.CallToolRequest, input SearchCorpusInput) (*mcp.CallToolResult, SearchCorpusOutput, error) {
	logger := s.config.Logger

	if input.Query == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "query is required"},
			},
		}, SearchCorpusOutput{}, nil
	}

	lang := s.config.DefaultLanguage
	if input.Language != "" {
		parsed, err := document.ParseLanguage(input.Language, s.config.Searcher.Priority())
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{
					&mcp.TextContent{Text: err.Error()},
				},
			}, SearchCorpusOutput{}, nil
		}
		lang = parsed
	}

	logger.Debug("MCP search request",
		zap.String("query", input.Query),
		zap.String("language", lang.String()),
		zap.Int("topK", input.TopK),
	)

	result, err := s.config.Searcher.Search(ctx, input.Query, lang, input.TopK)
	if err != nil {
		logger.Error("corpus search failed", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Search failed: %v", err)},
			},
		}, SearchCorpusOutput{}, nil
	}

	priority := s.config.Searcher.Priority()
	matches := make([]LanguageMatches, 0, len(priority))
	for _, l := range priority {
		stats := result.Stats.PerLanguage[l]
		matches = append(matches, LanguageMatches{
			Language: l.String(),
			Results:  stats.Results,
			TopScore: stats.TopScore,
		})
	}

	output := SearchCorpusOutput{
		Query:     input.Query,
		Language:  lang.String(),
		Context:   search.PickContext(result.Contexts, lang, priority),
		Languages: matches,
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, SearchCorpusOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
