package api

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/search"
)

// SearchResponse is the body of a successful GET /v1/search. Context and
// Results are picked for the requested language with priority fallback;
// Contexts holds one entry per configured language.
type SearchResponse struct {
	Query    string                       `json:"query"`
	Language string                       `json:"language"`
	Context  string                       `json:"context"`
	Results  []search.Hit                 `json:"results"`
	Contexts map[document.Language]string `json:"contexts"`
	Stats    search.Stats                 `json:"stats"`
}

// handleSearch handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - language (optional): preferred language for the picked context,
//     defaulting to the server's default language
//   - top_k (optional, default 25): chunks fetched per language
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	lang := s.config.DefaultLanguage
	if langStr := c.Query("language"); langStr != "" {
		parsed, err := document.ParseLanguage(langStr, s.config.Searcher.Priority())
		if err != nil {
			return errorJSON(c, err)
		}
		lang = parsed
	}

	topK := search.DefaultTopK
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		if parsed > MaxTopK {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: fmt.Sprintf("top_k must be at most %d", MaxTopK),
			})
		}
		topK = parsed
	}

	result, err := s.config.Searcher.Search(c.Context(), query, lang, topK)
	if err != nil {
		return errorJSON(c, err)
	}

	priority := s.config.Searcher.Priority()
	return c.JSON(SearchResponse{
		Query:    query,
		Language: lang.String(),
		Context:  search.PickContext(result.Contexts, lang, priority),
		Results:  search.PickHits(result.Hits, lang, priority),
		Contexts: result.Contexts,
		Stats:    result.Stats,
	})
}
