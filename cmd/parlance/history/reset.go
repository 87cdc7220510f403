package historycmder

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/pkg/cliui"
	"github.com/parlancehq/parlance/pkg/logger"
)

const resetLongDesc string = `Delete all of a user's messages.

The user's language preference survives a reset.

Examples:
  parlance history reset alice`

const resetShortDesc string = "Delete a user's messages"

type resetCommander struct {
	user string

	apiTarget string

	debug  bool
	logger *zap.Logger
}

func newResetCmd() *cobra.Command {
	cmder := &resetCommander{}

	cmd := &cobra.Command{
		Use:   "reset <user>",
		Short: resetShortDesc,
		Long:  resetLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.user = args[0]

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

func (c *resetCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if err := callHistoryAPI(http.MethodDelete, c.apiTarget, historyPath(c.user), nil, nil); err != nil {
		return err
	}

	fmt.Printf("  %s Cleared history for %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(c.user),
	)
	return nil
}
