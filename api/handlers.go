package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/embeddings"
	"github.com/parlancehq/parlance/pkg/history"
	"github.com/parlancehq/parlance/pkg/search"
	"github.com/parlancehq/parlance/pkg/vector"
)

// StatsResponse reports the corpus size per language.
type StatsResponse struct {
	Languages    map[string]int `json:"languages"`
	TotalRecords int            `json:"total_records"`
}

// HistoryResponse carries a user's visible conversation window.
type HistoryResponse struct {
	User     string            `json:"user"`
	Messages []history.Message `json:"messages"`
	Count    int               `json:"count"`
}

// AddMessageRequest is the body of POST /v1/history/:user. Role defaults
// to "user" when empty.
type AddMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LanguageResponse reports a user's language preference.
type LanguageResponse struct {
	User     string `json:"user"`
	Language string `json:"language"`
}

// SetLanguageRequest is the body of PUT /v1/history/:user/language.
type SetLanguageRequest struct {
	Language string `json:"language"`
}

// errorJSON writes an error response with a status derived from the error
// chain: invalid input maps to 400, embedding backend failures to 502, and
// unreachable stores to 503.
func errorJSON(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, history.ErrInvalidRole),
		errors.Is(err, document.ErrUnsupportedLanguage):
		status = fiber.StatusBadRequest
	case errors.Is(err, embeddings.ErrEmbedding):
		status = fiber.StatusBadGateway
	case errors.Is(err, vector.ErrUnavailable), errors.Is(err, history.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := StatsResponse{
		Languages: make(map[string]int, len(s.config.Stores)),
	}
	for lang, store := range s.config.Stores {
		size, err := store.Size(c.Context())
		if err != nil {
			s.logger.Error("reading store size",
				zap.String("language", lang.String()),
				zap.Error(err),
			)
			return errorJSON(c, err)
		}
		resp.Languages[lang.String()] = size
		resp.TotalRecords += size
	}
	return c.JSON(resp)
}

func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	user := c.Params("user")
	messages, err := s.config.History.History(c.Context(), user)
	if err != nil {
		s.logger.Error("reading history",
			zap.String("user", user),
			zap.Error(err),
		)
		return errorJSON(c, err)
	}
	if messages == nil {
		messages = []history.Message{}
	}
	return c.JSON(HistoryResponse{
		User:     user,
		Messages: messages,
		Count:    len(messages),
	})
}

func (s *Server) handleAddMessage(c *fiber.Ctx) error {
	user := c.Params("user")

	var req AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "content is required",
		})
	}
	role := req.Role
	if role == "" {
		role = history.RoleUser
	}

	if err := s.config.History.AddMessage(c.Context(), user, role, req.Content); err != nil {
		return errorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": user,
		"role": role,
	})
}

func (s *Server) handleResetHistory(c *fiber.Ctx) error {
	user := c.Params("user")
	if err := s.config.History.Reset(c.Context(), user); err != nil {
		return errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGetLanguage(c *fiber.Ctx) error {
	user := c.Params("user")
	lang, err := s.config.History.UserLanguage(c.Context(), user, s.config.DefaultLanguage)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(LanguageResponse{
		User:     user,
		Language: lang.String(),
	})
}

func (s *Server) handleSetLanguage(c *fiber.Ctx) error {
	user := c.Params("user")

	var req SetLanguageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}
	lang, err := document.ParseLanguage(req.Language, s.config.Searcher.Priority())
	if err != nil {
		return errorJSON(c, err)
	}
	if err := s.config.History.SetLanguage(c.Context(), user, lang); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(LanguageResponse{
		User:     user,
		Language: lang.String(),
	})
}
