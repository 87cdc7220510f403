// Package parlancecmder
package parlancecmder

import (
	configcmder "github.com/parlancehq/parlance/cmd/parlance/config"
	consolecmder "github.com/parlancehq/parlance/cmd/parlance/console"
	historycmder "github.com/parlancehq/parlance/cmd/parlance/history"
	indexcmder "github.com/parlancehq/parlance/cmd/parlance/index"
	searchcmder "github.com/parlancehq/parlance/cmd/parlance/search"
	servecmder "github.com/parlancehq/parlance/cmd/parlance/serve"
	statuscmder "github.com/parlancehq/parlance/cmd/parlance/status"
	versioncmder "github.com/parlancehq/parlance/cmd/version"
	"github.com/spf13/cobra"
)

const parlanceLongDesc string = `Parlance is a multilingual retrieval engine for support content.

Index a corpus of per-language documents and query it:
  parlance index       Chunk, embed, and index the corpus
  parlance search      Search the index via a running API server
  parlance console     Interactive search console
  parlance serve       Run the API and MCP servers
  parlance status      Show the last indexing run
  parlance history     Inspect per-user conversation history`

const parlanceShortDesc string = "Parlance - Multilingual Retrieval"

func NewParlanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parlance",
		Short: parlanceShortDesc,
		Long:  parlanceLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Config directory (default ./.parlance, then ~/.parlance)")

	// Add subcommands
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(consolecmder.NewConsoleCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
