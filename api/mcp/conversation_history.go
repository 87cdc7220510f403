package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/parlancehq/parlance/pkg/history"
)

var (
	conversationHistoryToolName    = "conversation_history"
	conversationHistoryDescription = "Fetch a user's recent conversation messages. Returns only the messages still inside the retention window, oldest first."
)

// ConversationHistoryInput represents the input arguments for the
// conversation_history tool.
type ConversationHistoryInput struct {
	User string `json:"user" jsonschema:"the user identifier whose conversation to fetch"`
}

// ConversationHistoryOutput represents the structured output of a
// conversation history fetch.
type ConversationHistoryOutput struct {
	User     string            `json:"user"`
	Messages []history.Message `json:"messages"`
	Count    int               `json:"count"`
}

// handleConversationHistory processes a history fetch via MCP.
func (s *Server) handleConversationHistory(ctx context.Context, _ *mcp.CallToolRequest, input ConversationHistoryInput) (*mcp.CallToolResult, ConversationHistoryOutput, error) {
	if input.User == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "user is required"},
			},
		}, ConversationHistoryOutput{}, nil
	}

	messages, err := s.config.History.History(ctx, input.User)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to read history: %v", err)},
			},
		}, ConversationHistoryOutput{}, nil
	}

	if messages == nil {
		messages = []history.Message{}
	}

	output := ConversationHistoryOutput{
		User:     input.User,
		Messages: messages,
		Count:    len(messages),
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, ConversationHistoryOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
