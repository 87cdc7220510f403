package historycmder

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parlancehq/parlance/api"
	"github.com/parlancehq/parlance/pkg/cliui"
	"github.com/parlancehq/parlance/pkg/history"
	"github.com/parlancehq/parlance/pkg/logger"
)

const addLongDesc string = `Append a message to a user's conversation history.

The server assigns the timestamp. Role defaults to "user"; pass --role to
record the other side of the conversation.

Examples:
  parlance history add alice "where is my refund?"
  parlance history add alice "checking that for you" --role assistant`

const addShortDesc string = "Append a message to a user's history"

type addCommander struct {
	user    string
	content string
	role    string

	apiTarget string

	debug  bool
	logger *zap.Logger
}

func newAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add <user> <content>",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.user = args[0]
			cmder.content = args[1]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.role, "role", history.RoleUser, "Message role (user, assistant)")
	clientFlags(cmd, &cmder.apiTarget)

	return cmd
}

func (c *addCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	payload := api.AddMessageRequest{
		Role:    c.role,
		Content: c.content,
	}
	if err := callHistoryAPI(http.MethodPost, c.apiTarget, historyPath(c.user), payload, nil); err != nil {
		return err
	}

	fmt.Printf("  %s Added %s message for %s\n",
		cliui.SuccessMark,
		roleStyle.Render(c.role),
		cliui.NameStyle.Render(c.user),
	)
	return nil
}
