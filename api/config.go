// Package api provides the HTTP API server for querying the parlance
// retrieval system: multilingual search, corpus statistics, and per-user
// conversation history.
package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/history"
	"github.com/parlancehq/parlance/pkg/search"
	"github.com/parlancehq/parlance/pkg/vector"
)

// MaxTopK caps the per-request result count so one query cannot pin a
// store.
const MaxTopK = 100

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":7700")
	ListenAddr string

	// Searcher answers multilingual retrieval queries.
	Searcher *search.Multilingual

	// History stores per-user conversation windows and language
	// preferences.
	History history.Store

	// Stores holds the per-language vector stores, used for record counts.
	Stores map[document.Language]vector.Store

	// DefaultLanguage applies when a request names no language. Defaults
	// to the searcher's highest-priority language.
	DefaultLanguage document.Language

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler

	// Logger is the configured zap logger.
	Logger *zap.Logger
}

// ErrorResponse is the JSON error payload for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
