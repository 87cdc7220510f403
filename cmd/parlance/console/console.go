// Package consolecmder provides the interactive search console.
package consolecmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/config"
	"github.com/parlancehq/parlance/pkg/logger"
)

type consoleCommander struct {
	language  string
	topK      uint
	languages []string

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const consoleLongDesc string = `Interactive search console.

Runs a terminal UI against a running parlance API server: type a query,
press Enter to search, and walk the ranked results with the arrow keys.
The selected chunk is shown in full below the list. Tab cycles the query
language, Esc clears the input, Ctrl+C quits.

Examples:
  parlance console
  parlance console --language ru
  parlance console --api-target http://localhost:8081`

const consoleShortDesc string = "Interactive search console"

func NewConsoleCmd() *cobra.Command {
	cmder := &consoleCommander{}

	cmd := &cobra.Command{
		Use:   "console",
		Short: consoleShortDesc,
		Long:  consoleLongDesc,
		Args:  cobra.NoArgs,
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
			cmder.languages = cfg.Corpus.Languages
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
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
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Parlance API server URL")

	return cmd
}

func (c *consoleCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	return runConsoleTUI(consoleOpts{
		apiTarget: c.apiTarget,
		language:  c.language,
		topK:      int(c.topK),
		languages: c.languages,
	})
}
