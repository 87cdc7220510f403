// Package historycmder provides the history command for inspecting per-user
// conversation windows through the parlance API.
package historycmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/parlancehq/parlance/pkg/config"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	roleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const historyLongDesc string = `Inspect and manage per-user conversation history.

Conversation history is windowed: only messages recent enough and within
the configured per-user count are visible. Reading history through this
command shows exactly what the server would hand to an agent prompt.
Requires a running parlance API server (parlance serve).

Subcommands:
  parlance history show <user>              Show a user's visible messages
  parlance history add <user> <content>     Append a message
  parlance history reset <user>             Delete a user's messages
  parlance history lang <user> [language]   Get or set a user's language

Examples:
  parlance history show alice
  parlance history add alice "where is my refund?"
  parlance history add alice "checking that for you" --role assistant
  parlance history lang alice ru
  parlance history reset alice`

const historyShortDesc string = "Inspect per-user conversation history"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newLangCmd())

	return cmd
}

// clientFlags wires the --api-target flag and its config-file fallback,
// shared by every history subcommand.
func clientFlags(cmd *cobra.Command, target *string) {
	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(target, "api-target", defaults.Client.APITarget, "Parlance API server URL")

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
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
			*target = cfg.Client.APITarget
		}
		return nil
	}
}

// callHistoryAPI performs one request against the parlance history API,
// decoding the JSON response into out when out is non-nil.
func callHistoryAPI(method, apiTarget, apiPath string, payload, out any) error {
	base, err := url.Parse(apiTarget)
	if err != nil {
		return fmt.Errorf("invalid API target URL: %w", err)
	}
	base.Path = apiPath

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, base.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to parlance API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("history request failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func historyPath(user string, extra ...string) string {
	p := "/v1/history/" + url.PathEscape(user)
	for _, e := range extra {
		p += "/" + e
	}
	return p
}
