// Package mcp provides an MCP (Model Context Protocol) server exposing the
// parlance retrieval system to agents: corpus search and conversation
// history as tools over streamable HTTP.
package mcp

import (
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/history"
	"github.com/parlancehq/parlance/pkg/search"
	"github.com/parlancehq/parlance/pkg/utils"
)

type Config struct {
	// Searcher answers corpus queries for the search_corpus tool.
	Searcher *search.Multilingual

	// History backs the conversation_history tool.
	History history.Store

	// DefaultLanguage picks the context language when a tool call does
	// not name one. Defaults to the searcher's highest-priority language.
	DefaultLanguage document.Language

	// Noop builds a server with no tools registered, for deployments
	// with MCP capabilities disabled.
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the corpus tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "parlance",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)
	s.mcpServer = mcpServer

	// A stateless handler: every request carries its whole session.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		return s, nil
	}

	if c.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if c.History == nil {
		return nil, errors.New("history store is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if s.config.DefaultLanguage == "" {
		s.config.DefaultLanguage = c.Searcher.Priority()[0]
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchCorpusToolName,
		Description: searchCorpusDescription,
	}, s.handleSearchCorpus)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        conversationHistoryToolName,
		Description: conversationHistoryDescription,
	}, s.handleConversationHistory)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
