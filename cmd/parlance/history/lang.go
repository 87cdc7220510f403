package historycmder

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/api"
	"github.com/parlancehq/parlance/pkg/cliui"
	"github.com/parlancehq/parlance/pkg/logger"
)

const langLongDesc string = `Get or set a user's language preference.

With one argument, prints the user's effective language (falling back to
the server default when unset). With two arguments, stores the preference;
the language must be one of the server's configured languages.

Examples:
  parlance history lang alice
  parlance history lang alice ru`

const langShortDesc string = "Get or set a user's language"

type langCommander struct {
	user     string
	language string

	apiTarget string

	debug  bool
	logger *zap.Logger
}

func newLangCmd() *cobra.Command {
	cmder := &langCommander{}

	cmd := &cobra.Command{
		Use:   "lang <user> [language]",
		Short: langShortDesc,
		Long:  langLongDesc,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.user = args[0]
			if len(args) == 2 {
				cmder.language = args[1]
			}

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	clientFlags(cmd, &cmder.apiTarget)

	return cmd
}

func (c *langCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.language == "" {
		var output api.LanguageResponse
		if err := callHistoryAPI(http.MethodGet, c.apiTarget, historyPath(c.user, "language"), nil, &output); err != nil {
			return err
		}

		fmt.Printf("  %s  %s\n",
			cliui.NameStyle.Render(output.User),
			cliui.ValueStyle.Render(output.Language),
		)
		return nil
	}

	payload := api.SetLanguageRequest{Language: c.language}
	var output api.LanguageResponse
	if err := callHistoryAPI(http.MethodPut, c.apiTarget, historyPath(c.user, "language"), payload, &output); err != nil {
		return err
	}

	fmt.Printf("  %s Set language for %s = %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(output.User),
		cliui.ValueStyle.Render(output.Language),
	)
	return nil
}
