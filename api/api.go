package api

import (
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server is the API server for querying the parlance retrieval system.
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The searcher, history store, and
// vector stores are injected to allow sharing with other components.
func NewServer(config Config) (*Server, error) {
	if config.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if config.History == nil {
		return nil, errors.New("history store is required")
	}
	if len(config.Stores) == 0 {
		return nil, errors.New("at least one language store is required")
	}
	if config.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = config.Searcher.Priority()[0]
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: config.Logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Get("/search", s.handleSearch)
	v1.Get("/stats", s.handleStats)
	v1.Get("/history/:user", s.handleGetHistory)
	v1.Post("/history/:user", s.handleAddMessage)
	v1.Delete("/history/:user", s.handleResetHistory)
	v1.Get("/history/:user/language", s.handleGetLanguage)
	v1.Put("/history/:user/language", s.handleSetLanguage)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
